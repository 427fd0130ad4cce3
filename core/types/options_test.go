// Package types - Option table tests
package types

import "testing"

func TestEveryReportTypeHasOptions(t *testing.T) {
	for _, rt := range ReportTypes() {
		opts, ok := Options(rt)
		if !ok {
			t.Fatalf("report type %s has no option table", rt)
		}
		if opts.PrimaryMetric == "" {
			t.Fatalf("report type %s has no primary metric", rt)
		}
		if len(opts.SourceColumns[opts.PrimaryMetric]) == 0 {
			t.Fatalf("primary metric %s of %s has no source columns", opts.PrimaryMetric, rt)
		}
		for _, name := range opts.MetricNames() {
			if len(opts.SourceColumns[name]) == 0 {
				t.Fatalf("metric %s of %s has no source columns", name, rt)
			}
		}
	}
}

func TestCostAliasing(t *testing.T) {
	opts, _ := Options(ReportCosts)
	if opts.ResolveOrderAlias("cost") != MetricCostTotal {
		t.Fatal("order_by[cost] must resolve to cost_total")
	}
	if opts.ResolveDeltaAlias("cost") != MetricCostTotal {
		t.Fatal("delta=cost must resolve to cost_total")
	}
}

func TestLegalGroupByExcludesPod(t *testing.T) {
	for _, rt := range ReportTypes() {
		opts, _ := Options(rt)
		if opts.LegalGroupBy("pod") {
			t.Fatalf("pod must not be a legal group-by for %s", rt)
		}
		if !opts.LegalGroupBy("project") {
			t.Fatalf("project must be a legal group-by for %s", rt)
		}
	}
}

func TestRatioFieldsPerReportType(t *testing.T) {
	cpu, _ := Options(ReportCPU)
	if !cpu.LegalRatioField(MetricLimit) {
		t.Fatal("limit is a legal ratio field for cpu")
	}
	volume, _ := Options(ReportVolume)
	if volume.LegalRatioField(MetricLimit) {
		t.Fatal("limit is not a legal ratio field for volume")
	}
	costs, _ := Options(ReportCosts)
	if costs.LegalRatioField(MetricUsage) {
		t.Fatal("cost reports have no ratio fields")
	}
}

func TestNullGroupKeyNaming(t *testing.T) {
	if NullGroupKey(PlainDimension("project")) != "no-project" {
		t.Fatal("null bucket for project must be no-project")
	}
	if NullGroupKey(TagDimension("App")) != "no-app" {
		t.Fatal("null bucket for a tag dimension lowercases the key")
	}
}
