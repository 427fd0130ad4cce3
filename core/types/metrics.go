// Package types - Metric value types
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Metric values serialize as JSON numbers, matching the report contract.
	decimal.MarshalJSONWithoutQuotes = true
}

// Metric name constants shared across report types
const (
	MetricCostTotal = "cost_total"
	MetricInfra     = "infra_total"
	MetricSup       = "sup_total"
	MetricMarkup    = "markup"

	MetricUsage    = "usage"
	MetricRequest  = "request"
	MetricLimit    = "limit"
	MetricCapacity = "capacity"
)

// MetricValue is a unit-annotated metric amount
type MetricValue struct {
	// Value is the metric amount
	Value decimal.Decimal `json:"value"`

	// Units is the unit of measure fixed per report type and metric
	Units string `json:"units"`
}

// Cost is the nested cost decomposition attached to cost leaves
type Cost struct {
	// Infrastructure is the raw infrastructure cost
	Infrastructure MetricValue `json:"infrastructure"`

	// Supplementary is the supplementary (usage-derived) cost
	Supplementary MetricValue `json:"supplementary"`

	// Markup is the applied markup cost
	Markup MetricValue `json:"markup"`

	// Total is the sum of the three sub-costs
	Total MetricValue `json:"total"`
}

// NewCost assembles a cost decomposition in the given currency
func NewCost(infra, sup, markup decimal.Decimal, currency string) Cost {
	return Cost{
		Infrastructure: MetricValue{Value: infra, Units: currency},
		Supplementary:  MetricValue{Value: sup, Units: currency},
		Markup:         MetricValue{Value: markup, Units: currency},
		Total:          MetricValue{Value: infra.Add(sup).Add(markup), Units: currency},
	}
}

// GroupValue is one (dimension, value) pair of an aggregate row,
// ordered to match the requested group-by list
type GroupValue struct {
	// Dimension is the grouping dimension
	Dimension Dimension `json:"dimension"`

	// Value is the observed dimension value; empty for null-key rows
	Value string `json:"value"`
}

// AggregateRow is one row returned by the aggregation backend: one date
// bucket crossed with one distinct combination of group dimension values
type AggregateRow struct {
	// Date is the bucket start
	Date time.Time `json:"date"`

	// GroupValues holds the row's dimension values in group-by order
	GroupValues []GroupValue `json:"group_values,omitempty"`

	// Metrics holds the summed metric values keyed by metric name
	Metrics map[string]decimal.Decimal `json:"metrics"`
}

// Metric returns a named metric sum, zero when absent
func (r AggregateRow) Metric(name string) decimal.Decimal {
	if v, ok := r.Metrics[name]; ok {
		return v
	}
	return decimal.Zero
}

// FirstKey returns the row's first-level group value
func (r AggregateRow) FirstKey() string {
	if len(r.GroupValues) == 0 {
		return ""
	}
	return r.GroupValues[0].Value
}

// DeltaResult is a computed comparison value
type DeltaResult struct {
	// Value is the absolute delta
	Value decimal.Decimal `json:"value"`

	// Percent is the relative delta; nil when the denominator is zero
	Percent *decimal.Decimal `json:"percent"`
}
