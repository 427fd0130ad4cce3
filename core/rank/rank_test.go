// Package rank - Ranking and collapse invariant tests
package rank

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cost-reports/core/types"
)

var (
	day1 = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)

	project = types.PlainDimension("project")
)

func row(date time.Time, key string, cost int64) types.AggregateRow {
	return types.AggregateRow{
		Date:        date,
		GroupValues: []types.GroupValue{{Dimension: project, Value: key}},
		Metrics:     map[string]decimal.Decimal{types.MetricCostTotal: decimal.NewFromInt(cost)},
	}
}

func defaultParams(limit int) Params {
	return Params{
		Dimension:  project,
		OrderField: types.MetricCostTotal,
		Descending: true,
		Limit:      limit,
	}
}

func totalOf(groups []*Group) decimal.Decimal {
	var sum decimal.Decimal
	for _, g := range groups {
		sum = sum.Add(g.Metric(types.MetricCostTotal))
	}
	return sum
}

func TestCollapseConservesTotals(t *testing.T) {
	rows := []types.AggregateRow{
		row(day1, "a", 40), row(day1, "b", 30), row(day1, "c", 20), row(day1, "d", 10),
	}
	ranking := Collapse(BucketByDate(rows), defaultParams(2))

	got := totalOf(ranking.ByDate[day1])
	want := decimal.NewFromInt(100)
	if !got.Equal(want) {
		t.Fatalf("collapsed totals sum to %s, want %s; collapsing must never lose value", got, want)
	}
}

func TestCollapseKeepsTopNAndFoldsRemainder(t *testing.T) {
	rows := []types.AggregateRow{
		row(day1, "a", 40), row(day1, "b", 30), row(day1, "c", 20), row(day1, "d", 10),
	}
	ranking := Collapse(BucketByDate(rows), defaultParams(2))

	groups := ranking.ByDate[day1]
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 2 kept + 1 synthetic", len(groups))
	}
	if groups[0].Key != "a" || groups[1].Key != "b" {
		t.Fatalf("top 2 by cost descending = %s, %s; want a, b", groups[0].Key, groups[1].Key)
	}
	other := groups[2]
	if !other.Synthetic || other.Key != "Others" {
		t.Fatalf("third group = %+v, want synthetic Others", other)
	}
	if !other.Metric(types.MetricCostTotal).Equal(decimal.NewFromInt(30)) {
		t.Fatalf("Others total = %s, want exact re-sum 30", other.Metric(types.MetricCostTotal))
	}
	if ranking.OthersCount() != 2 {
		t.Fatalf("others count = %d, want 2 collapsed entities", ranking.OthersCount())
	}
}

func TestCollapseSingularOther(t *testing.T) {
	rows := []types.AggregateRow{
		row(day1, "a", 40), row(day1, "b", 30), row(day1, "c", 20),
	}
	ranking := Collapse(BucketByDate(rows), defaultParams(2))

	groups := ranking.ByDate[day1]
	if groups[2].Key != "Other" {
		t.Fatalf("one collapsed entity must be named Other, got %q", groups[2].Key)
	}
}

func TestCollapseNoOverflowNoSynthetic(t *testing.T) {
	rows := []types.AggregateRow{row(day1, "a", 40), row(day1, "b", 30)}
	ranking := Collapse(BucketByDate(rows), defaultParams(2))

	for _, g := range ranking.ByDate[day1] {
		if g.Synthetic {
			t.Fatal("no synthetic group may appear when nothing was collapsed")
		}
	}
	if ranking.OthersCount() != 0 {
		t.Fatalf("others count = %d, want 0", ranking.OthersCount())
	}
}

func TestCollapseNullBucketStaysSeparateAndLast(t *testing.T) {
	rows := []types.AggregateRow{
		row(day1, "a", 40), row(day1, "b", 30), row(day1, "c", 20), row(day1, "", 99),
	}
	ranking := Collapse(BucketByDate(rows), defaultParams(2))

	groups := ranking.ByDate[day1]
	last := groups[len(groups)-1]
	if !last.NullKey || last.Key != "no-project" {
		t.Fatalf("last group = %+v, want the no-project bucket", last)
	}
	// despite its large value the null bucket is never ranked or collapsed
	for _, g := range groups[:len(groups)-1] {
		if g.NullKey {
			t.Fatal("null bucket must sort after every ranked group")
		}
	}
	if !ranking.HasNull {
		t.Fatal("ranking must record the null bucket")
	}
}

func TestCollapseTieBreaksByKeyAscending(t *testing.T) {
	rows := []types.AggregateRow{
		row(day1, "zeta", 30), row(day1, "alpha", 30), row(day1, "mid", 30),
	}
	ranking := Collapse(BucketByDate(rows), defaultParams(0))

	groups := ranking.ByDate[day1]
	if groups[0].Key != "alpha" || groups[1].Key != "mid" || groups[2].Key != "zeta" {
		t.Fatalf("equal values must tie-break by key ascending, got %s, %s, %s",
			groups[0].Key, groups[1].Key, groups[2].Key)
	}
}

func TestCollapseOffsetAppliesAfterCollapsing(t *testing.T) {
	rows := []types.AggregateRow{
		row(day1, "a", 40), row(day1, "b", 30), row(day1, "c", 20), row(day1, "d", 10),
	}
	p := defaultParams(2)
	p.Offset = 1
	ranking := Collapse(BucketByDate(rows), p)

	groups := ranking.ByDate[day1]
	if len(groups) != 2 {
		t.Fatalf("offset 1 over 3 collapsed groups leaves %d, want 2", len(groups))
	}
	if groups[0].Key != "b" {
		t.Fatalf("first group after offset = %q, want b", groups[0].Key)
	}
	// ranks reflect pre-offset positions
	if groups[0].Rank != 2 {
		t.Fatalf("rank = %d, want 2", groups[0].Rank)
	}
}

func TestCollapseRanksEachDateIndependently(t *testing.T) {
	rows := []types.AggregateRow{
		row(day1, "a", 40), row(day1, "b", 10),
		row(day2, "a", 10), row(day2, "b", 40),
	}
	ranking := Collapse(BucketByDate(rows), defaultParams(0))

	if ranking.ByDate[day1][0].Key != "a" || ranking.ByDate[day2][0].Key != "b" {
		t.Fatal("each date bucket must rank on its own totals")
	}
}

func TestCollapseAscendingOrder(t *testing.T) {
	rows := []types.AggregateRow{row(day1, "a", 40), row(day1, "b", 10)}
	p := defaultParams(0)
	p.Descending = false
	ranking := Collapse(BucketByDate(rows), p)

	if ranking.ByDate[day1][0].Key != "b" {
		t.Fatal("ascending order must put the smallest value first")
	}
}

func TestCollapseOrderByKeyName(t *testing.T) {
	rows := []types.AggregateRow{row(day1, "beta", 10), row(day1, "alpha", 40)}
	p := defaultParams(0)
	p.OrderField = "project"
	p.Descending = false
	ranking := Collapse(BucketByDate(rows), p)

	if ranking.ByDate[day1][0].Key != "alpha" {
		t.Fatal("ordering by the dimension name must sort by key")
	}
}

func TestCollapseSortOverride(t *testing.T) {
	rows := []types.AggregateRow{row(day1, "a", 40), row(day1, "b", 10)}
	p := defaultParams(0)
	p.SortOverride = func(g *Group) decimal.Decimal {
		// invert the natural order
		return decimal.NewFromInt(100).Sub(g.Metric(types.MetricCostTotal))
	}
	ranking := Collapse(BucketByDate(rows), p)

	if ranking.ByDate[day1][0].Key != "b" {
		t.Fatal("sort override must replace the metric lookup")
	}
}

func TestFlattenOneGroupPerDate(t *testing.T) {
	rows := []types.AggregateRow{
		row(day1, "a", 40), row(day1, "b", 30), row(day2, "a", 5),
	}
	ranking := Flatten(BucketByDate(rows))

	if len(ranking.ByDate[day1]) != 1 || len(ranking.ByDate[day2]) != 1 {
		t.Fatal("flatten must produce exactly one group per date")
	}
	if !ranking.ByDate[day1][0].Metric(types.MetricCostTotal).Equal(decimal.NewFromInt(70)) {
		t.Fatal("flattened group must sum every row in the bucket")
	}
}

func TestRatioPercentZeroDenominator(t *testing.T) {
	if !RatioPercent(decimal.NewFromInt(50), decimal.Zero).IsZero() {
		t.Fatal("a ratio against zero capacity reports zero percent, not an error")
	}
	got := RatioPercent(decimal.NewFromInt(50), decimal.NewFromInt(200))
	if !got.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("50/200 = %s%%, want 25", got)
	}
}
