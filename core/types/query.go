// Package types - Validated query specification
package types

import "strings"

// Wildcard matches any non-null dimension value
const Wildcard = "*"

// HasWildcard reports whether a value list contains the wildcard
func HasWildcard(values []string) bool {
	for _, v := range values {
		if v == Wildcard {
			return true
		}
	}
	return false
}

// Composition selects AND or OR matching for multi-value predicates
type Composition int

const (
	// CompositionOr matches rows carrying any listed value (default)
	CompositionOr Composition = iota

	// CompositionAnd matches rows carrying all listed values
	CompositionAnd
)

// Direction is a sort direction
type Direction string

const (
	// Ascending sorts low to high
	Ascending Direction = "asc"

	// Descending sorts high to low
	Descending Direction = "desc"
)

// DimensionPredicate is one filter or exclude clause
type DimensionPredicate struct {
	// Dimension is the attribute being tested
	Dimension Dimension `json:"dimension"`

	// Values are the requested match values; ignored when Wildcard is set
	Values []string `json:"values,omitempty"`

	// Wildcard means "any non-null value"
	Wildcard bool `json:"wildcard,omitempty"`

	// Negated marks exclude predicates
	Negated bool `json:"negated,omitempty"`

	// Composition is AND or OR across Values
	Composition Composition `json:"composition"`
}

// GroupBy is one requested grouping level
type GroupBy struct {
	// Dimension is the grouping dimension
	Dimension Dimension `json:"dimension"`

	// Values optionally restricts the grouped entities; "*" means all
	Values []string `json:"values,omitempty"`

	// Composition is AND or OR across Values when they restrict
	Composition Composition `json:"composition"`
}

// OrderBy is the requested result ordering
type OrderBy struct {
	// Field is a metric name, "delta", or a group-by dimension name
	Field string `json:"field"`

	// Tag is set when ordering by a tag dimension
	Tag *Dimension `json:"tag,omitempty"`

	// Direction is asc or desc
	Direction Direction `json:"direction"`
}

// DeltaSpec is a validated delta request
type DeltaSpec struct {
	// Metric is the single-metric delta name (period-over-period)
	Metric string `json:"metric,omitempty"`

	// RatioA and RatioB are set for A__B same-period ratio deltas
	RatioA string `json:"ratio_a,omitempty"`
	RatioB string `json:"ratio_b,omitempty"`
}

// IsRatio reports whether the delta is a same-period ratio
func (d DeltaSpec) IsRatio() bool {
	return d.RatioB != ""
}

// String renders the delta in wire form
func (d DeltaSpec) String() string {
	if d.IsRatio() {
		return d.RatioA + "__" + d.RatioB
	}
	return d.Metric
}

// QuerySpec is the validated, normalized report query. It is constructed
// once per request and immutable thereafter.
type QuerySpec struct {
	// Report is the report type the query runs against
	Report ReportType `json:"report"`

	// Filters are the include predicates
	Filters []DimensionPredicate `json:"filters,omitempty"`

	// Excludes are the negated predicates, applied after Filters
	Excludes []DimensionPredicate `json:"excludes,omitempty"`

	// GroupBy is the ordered list of grouping levels
	GroupBy []GroupBy `json:"group_by,omitempty"`

	// OrderBy is the requested ordering, nil for the default
	OrderBy *OrderBy `json:"order_by,omitempty"`

	// Delta is the requested comparison, nil when none
	Delta *DeltaSpec `json:"delta,omitempty"`

	// Resolution is the bucket granularity
	Resolution Resolution `json:"resolution"`

	// TimeScope is the relative window request; zero when explicit dates used
	TimeScope TimeScope `json:"time_scope"`

	// Range is the resolved reporting window
	Range DateRange `json:"range"`

	// Limit bounds ranked groups per bucket (or buckets, without group-by);
	// zero means unlimited
	Limit int `json:"limit"`

	// Offset slices into the ranked, collapsed list
	Offset int `json:"offset"`

	// KeyOnly requests only the list of existing keys, no aggregated values
	KeyOnly bool `json:"key_only"`
}

// GroupDimensions returns the ordered grouping dimensions
func (q *QuerySpec) GroupDimensions() []Dimension {
	dims := make([]Dimension, len(q.GroupBy))
	for i, g := range q.GroupBy {
		dims[i] = g.Dimension
	}
	return dims
}

// HasGroupBy reports whether any grouping was requested
func (q *QuerySpec) HasGroupBy() bool {
	return len(q.GroupBy) > 0
}

// GroupByTag reports whether the given tag key is a grouping level
func (q *QuerySpec) GroupByTag(key string) bool {
	for _, g := range q.GroupBy {
		if g.Dimension.Kind == DimensionTag && g.Dimension.TagKey == key {
			return true
		}
	}
	return false
}

// OrderField returns the effective ranking field, defaulting to the
// report's primary metric
func (q *QuerySpec) OrderField(opts *ReportTypeOptions) string {
	if q.OrderBy == nil || q.OrderBy.Tag != nil {
		return opts.PrimaryMetric
	}
	return q.OrderBy.Field
}

// OrderDirection returns the effective sort direction
func (q *QuerySpec) OrderDirection() Direction {
	if q.OrderBy == nil {
		return Descending
	}
	return q.OrderBy.Direction
}

// NullGroupKey names the bucket for rows with no value at a dimension
// ("no-project", "no-node")
func NullGroupKey(d Dimension) string {
	return "no-" + strings.ToLower(d.DisplayName())
}
