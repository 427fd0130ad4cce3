// Package types - Per-report-type option tables.
// These structs replace runtime capability lookup: each report type declares
// its legal group-bys, orderings, deltas, metrics, and summary source columns,
// and the parameter model and aggregation driver are injected with them.
package types

// ReportType identifies a report endpoint
type ReportType string

const (
	// ReportCosts is the cost report
	ReportCosts ReportType = "costs"

	// ReportCPU is the CPU usage report
	ReportCPU ReportType = "cpu"

	// ReportMemory is the memory usage report
	ReportMemory ReportType = "memory"

	// ReportVolume is the storage volume report
	ReportVolume ReportType = "volume"
)

// MetricSpec declares one usage metric and its unit of measure
type MetricSpec struct {
	// Name is the metric name as it appears in rows and responses
	Name string `json:"name"`

	// Units is the fixed unit string for the metric
	Units string `json:"units"`
}

// ReportTypeOptions is the full option table for one report type
type ReportTypeOptions struct {
	// Type is the report type the options belong to
	Type ReportType `json:"type"`

	// GroupByOptions are the legal plain group-by/filter dimensions
	GroupByOptions []string `json:"group_by_options"`

	// OrderByFields are the legal order_by fields after aliasing
	OrderByFields []string `json:"order_by_fields"`

	// OrderByAliases maps request order_by names to metric names
	OrderByAliases map[string]string `json:"order_by_aliases,omitempty"`

	// DeltaChoices are the legal single-metric delta names after aliasing
	DeltaChoices []string `json:"delta_choices,omitempty"`

	// DeltaAliases maps request delta names to metric names
	DeltaAliases map[string]string `json:"delta_aliases,omitempty"`

	// RatioFields are the metrics allowed on either side of an A__B delta
	RatioFields []string `json:"ratio_fields,omitempty"`

	// UsageMetrics are the report's non-cost metrics
	UsageMetrics []MetricSpec `json:"usage_metrics,omitempty"`

	// HasCost marks reports whose leaves carry the nested cost decomposition
	HasCost bool `json:"has_cost"`

	// PrimaryMetric is the default ranking metric, also used for tag ordering
	PrimaryMetric string `json:"primary_metric"`

	// SourceColumns maps each metric name to the summary columns summed into it
	SourceColumns map[string][]string `json:"source_columns"`
}

// cost columns are shared by every report type
var costColumns = map[string][]string{
	MetricInfra:     {"infra_raw_cost"},
	MetricSup:       {"sup_raw_cost"},
	MetricMarkup:    {"markup_cost"},
	MetricCostTotal: {"infra_raw_cost", "sup_raw_cost", "markup_cost"},
}

func withCostColumns(usage map[string][]string) map[string][]string {
	out := make(map[string][]string, len(usage)+len(costColumns))
	for k, v := range costColumns {
		out[k] = v
	}
	for k, v := range usage {
		out[k] = v
	}
	return out
}

var reportOptions = map[ReportType]*ReportTypeOptions{
	ReportCosts: {
		Type:           ReportCosts,
		GroupByOptions: []string{"cluster", "project", "node"},
		OrderByFields:  []string{MetricCostTotal, "delta"},
		OrderByAliases: map[string]string{"cost": MetricCostTotal},
		DeltaChoices:   []string{MetricCostTotal},
		DeltaAliases:   map[string]string{"cost": MetricCostTotal},
		HasCost:        true,
		PrimaryMetric:  MetricCostTotal,
		SourceColumns:  withCostColumns(nil),
	},
	ReportCPU: {
		Type:           ReportCPU,
		GroupByOptions: []string{"cluster", "project", "node"},
		OrderByFields:  []string{MetricUsage, MetricRequest, MetricLimit, MetricCostTotal, "delta"},
		OrderByAliases: map[string]string{"cost": MetricCostTotal},
		DeltaChoices:   []string{MetricUsage, MetricRequest, MetricCostTotal},
		DeltaAliases:   map[string]string{"cost": MetricCostTotal},
		RatioFields:    []string{MetricUsage, MetricRequest, MetricLimit, MetricCapacity},
		UsageMetrics: []MetricSpec{
			{Name: MetricUsage, Units: "Core-Hours"},
			{Name: MetricRequest, Units: "Core-Hours"},
			{Name: MetricLimit, Units: "Core-Hours"},
			{Name: MetricCapacity, Units: "Core-Hours"},
		},
		HasCost:       true,
		PrimaryMetric: MetricUsage,
		SourceColumns: withCostColumns(map[string][]string{
			MetricUsage:    {"cpu_usage"},
			MetricRequest:  {"cpu_request"},
			MetricLimit:    {"cpu_limit"},
			MetricCapacity: {"cpu_capacity"},
		}),
	},
	ReportMemory: {
		Type:           ReportMemory,
		GroupByOptions: []string{"cluster", "project", "node"},
		OrderByFields:  []string{MetricUsage, MetricRequest, MetricLimit, MetricCostTotal, "delta"},
		OrderByAliases: map[string]string{"cost": MetricCostTotal},
		DeltaChoices:   []string{MetricUsage, MetricRequest, MetricCostTotal},
		DeltaAliases:   map[string]string{"cost": MetricCostTotal},
		RatioFields:    []string{MetricUsage, MetricRequest, MetricLimit, MetricCapacity},
		UsageMetrics: []MetricSpec{
			{Name: MetricUsage, Units: "GB-Hours"},
			{Name: MetricRequest, Units: "GB-Hours"},
			{Name: MetricLimit, Units: "GB-Hours"},
			{Name: MetricCapacity, Units: "GB-Hours"},
		},
		HasCost:       true,
		PrimaryMetric: MetricUsage,
		SourceColumns: withCostColumns(map[string][]string{
			MetricUsage:    {"mem_usage"},
			MetricRequest:  {"mem_request"},
			MetricLimit:    {"mem_limit"},
			MetricCapacity: {"mem_capacity"},
		}),
	},
	ReportVolume: {
		Type:           ReportVolume,
		GroupByOptions: []string{"cluster", "project", "node"},
		OrderByFields:  []string{MetricUsage, MetricRequest, MetricCostTotal, "delta"},
		OrderByAliases: map[string]string{"cost": MetricCostTotal},
		DeltaChoices:   []string{MetricUsage, MetricRequest, MetricCostTotal},
		DeltaAliases:   map[string]string{"cost": MetricCostTotal},
		RatioFields:    []string{MetricUsage, MetricRequest, MetricCapacity},
		UsageMetrics: []MetricSpec{
			{Name: MetricUsage, Units: "GB-Mo"},
			{Name: MetricRequest, Units: "GB-Mo"},
			{Name: MetricCapacity, Units: "GB-Mo"},
		},
		HasCost:       true,
		PrimaryMetric: MetricUsage,
		SourceColumns: withCostColumns(map[string][]string{
			MetricUsage:    {"vol_usage"},
			MetricRequest:  {"vol_request"},
			MetricCapacity: {"vol_capacity"},
		}),
	},
}

// Options returns the option table for a report type
func Options(t ReportType) (*ReportTypeOptions, bool) {
	opts, ok := reportOptions[t]
	return opts, ok
}

// ReportTypes lists the known report types
func ReportTypes() []ReportType {
	return []ReportType{ReportCosts, ReportCPU, ReportMemory, ReportVolume}
}

// MetricNames returns every metric the driver should request for the type
func (o *ReportTypeOptions) MetricNames() []string {
	var names []string
	for _, m := range o.UsageMetrics {
		names = append(names, m.Name)
	}
	if o.HasCost {
		names = append(names, MetricInfra, MetricSup, MetricMarkup, MetricCostTotal)
	}
	return names
}

// UnitsFor returns the unit string for a usage metric
func (o *ReportTypeOptions) UnitsFor(metric string) string {
	for _, m := range o.UsageMetrics {
		if m.Name == metric {
			return m.Units
		}
	}
	return ""
}

// LegalGroupBy reports whether a plain dimension may be grouped on
func (o *ReportTypeOptions) LegalGroupBy(name string) bool {
	for _, g := range o.GroupByOptions {
		if g == name {
			return true
		}
	}
	return false
}

// LegalOrderBy reports whether a field may be ordered on, after aliasing
func (o *ReportTypeOptions) LegalOrderBy(field string) bool {
	for _, f := range o.OrderByFields {
		if f == field {
			return true
		}
	}
	// ordering by a grouped dimension's key is always legal
	return o.LegalGroupBy(field)
}

// ResolveOrderAlias maps a requested order field to its metric name
func (o *ReportTypeOptions) ResolveOrderAlias(field string) string {
	if alias, ok := o.OrderByAliases[field]; ok {
		return alias
	}
	return field
}

// ResolveDeltaAlias maps a requested delta name to its metric name
func (o *ReportTypeOptions) ResolveDeltaAlias(name string) string {
	if alias, ok := o.DeltaAliases[name]; ok {
		return alias
	}
	return name
}

// LegalDelta reports whether a single-metric delta is allowed, after aliasing
func (o *ReportTypeOptions) LegalDelta(name string) bool {
	for _, d := range o.DeltaChoices {
		if d == name {
			return true
		}
	}
	return false
}

// LegalRatioField reports whether a metric may appear in an A__B delta
func (o *ReportTypeOptions) LegalRatioField(name string) bool {
	for _, f := range o.RatioFields {
		if f == name {
			return true
		}
	}
	return false
}
