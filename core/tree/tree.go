// Package tree reshapes ranked aggregation rows into the nested, paginated,
// unit-annotated response structure.
package tree

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"cost-reports/core/delta"
	"cost-reports/core/rank"
	"cost-reports/core/types"
)

// Report is the response body: data buckets, meta, and pagination links
type Report struct {
	// Data holds one entry per date bucket, chronological
	Data []map[string]interface{} `json:"data"`

	// Meta describes the full, unpaginated result
	Meta Meta `json:"meta"`

	// Links carries pagination URLs
	Links Links `json:"links"`
}

// Meta describes the result independent of pagination
type Meta struct {
	// Count is the number of items at the paginated level
	Count int `json:"count"`

	// Others is the number of entities collapsed into Other(s)
	Others int `json:"others"`

	// GroupBy echoes the requested grouping keys
	GroupBy []string `json:"group_by,omitempty"`

	// OrderBy echoes the requested ordering
	OrderBy map[string]string `json:"order_by,omitempty"`

	// Filter echoes the include predicates in wire form
	Filter map[string][]string `json:"filter,omitempty"`

	// Exclude echoes the negated predicates in wire form
	Exclude map[string][]string `json:"exclude,omitempty"`

	// Delta is the aggregate comparison when one was requested
	Delta *delta.Totals `json:"delta,omitempty"`

	// Total holds the grand totals over the unpaginated result
	Total map[string]interface{} `json:"total"`
}

// Builder assembles the response tree for one query
type Builder struct {
	// Spec is the validated query
	Spec *types.QuerySpec

	// Opts is the report type's option table
	Opts *types.ReportTypeOptions

	// Currency is the unit string for cost metrics
	Currency string
}

// Build assembles the full response from the ranked groups, the raw
// (unpaginated) rows for grand totals, and the computed delta totals.
func (b *Builder) Build(ranking *rank.Ranking, allRows []types.AggregateRow, deltaTotals *delta.Totals) *Report {
	report := &Report{
		Meta: Meta{
			Others: ranking.OthersCount(),
			Delta:  deltaTotals,
			Total:  b.formatMetrics(sumRows(allRows)),
		},
	}
	for _, g := range b.Spec.GroupBy {
		report.Meta.GroupBy = append(report.Meta.GroupBy, g.Dimension.Key())
	}
	if ob := b.Spec.OrderBy; ob != nil {
		field := ob.Field
		if ob.Tag != nil {
			field = ob.Tag.Key()
		}
		report.Meta.OrderBy = map[string]string{field: string(ob.Direction)}
	}
	report.Meta.Filter = echoPredicates(b.Spec.Filters)
	report.Meta.Exclude = echoPredicates(b.Spec.Excludes)

	buckets := b.Spec.Range.Buckets(b.Spec.Resolution)
	if b.Spec.HasGroupBy() {
		report.Meta.Count = len(ranking.Keys)
		if ranking.HasNull {
			report.Meta.Count++
		}
		report.Data = b.buildGrouped(buckets, ranking)
		return report
	}

	// without grouping, limit/offset paginate the date series itself
	report.Meta.Count = len(buckets)
	report.Data = b.buildFlat(paginateBuckets(buckets, b.Spec.Limit, b.Spec.Offset), ranking)
	return report
}

// echoPredicates renders predicates back in their wire form, keyed the way
// the request spelled them ("project", "tag:app", "and:node")
func echoPredicates(preds []types.DimensionPredicate) map[string][]string {
	if len(preds) == 0 {
		return nil
	}
	out := make(map[string][]string, len(preds))
	for _, p := range preds {
		key := p.Dimension.Key()
		if p.Composition == types.CompositionAnd {
			key = "and:" + key
		}
		values := p.Values
		if p.Wildcard {
			values = []string{types.Wildcard}
		}
		out[key] = append(out[key], values...)
	}
	return out
}

// paginateBuckets slices the date series, preserving chronological order
func paginateBuckets(buckets []time.Time, limit, offset int) []time.Time {
	if offset > 0 {
		if offset >= len(buckets) {
			return nil
		}
		buckets = buckets[offset:]
	}
	if limit > 0 && len(buckets) > limit {
		buckets = buckets[:limit]
	}
	return buckets
}

// buildFlat emits one entry per date bucket with a values list and no
// nested group levels
func (b *Builder) buildFlat(buckets []time.Time, ranking *rank.Ranking) []map[string]interface{} {
	data := make([]map[string]interface{}, 0, len(buckets))
	for _, date := range buckets {
		entry := map[string]interface{}{
			"date":   types.FormatBucket(date, b.Spec.Resolution),
			"values": []map[string]interface{}{},
		}
		if groups := ranking.ByDate[date]; len(groups) > 0 {
			g := groups[0]
			leaf := b.leaf(date, nil, g.Totals)
			attachDelta(leaf, g)
			entry["values"] = []map[string]interface{}{leaf}
		}
		data = append(data, entry)
	}
	return data
}

// buildGrouped emits one entry per date bucket with the first group level
// ranked and collapsed, and deeper levels nested recursively
func (b *Builder) buildGrouped(buckets []time.Time, ranking *rank.Ranking) []map[string]interface{} {
	dims := b.Spec.GroupDimensions()
	first := dims[0]

	data := make([]map[string]interface{}, 0, len(buckets))
	for _, date := range buckets {
		entries := make([]map[string]interface{}, 0)
		for _, g := range ranking.ByDate[date] {
			entries = append(entries, b.groupEntry(date, g, dims))
		}
		data = append(data, map[string]interface{}{
			"date":                         types.FormatBucket(date, b.Spec.Resolution),
			Pluralize(first.DisplayName()): entries,
		})
	}
	return data
}

// groupEntry renders one ranked first-level entity, recursing into any
// remaining group-by dimensions
func (b *Builder) groupEntry(date time.Time, g *rank.Group, dims []types.Dimension) map[string]interface{} {
	path := []pathStep{{dim: dims[0], value: g.Key}}
	entry := map[string]interface{}{
		dims[0].DisplayName(): g.Key,
	}

	if len(dims) == 1 {
		leaf := b.leaf(date, path, g.Totals)
		attachDelta(leaf, g)
		entry["values"] = []map[string]interface{}{leaf}
		return entry
	}

	entry[Pluralize(dims[1].DisplayName())] = b.buildLevel(date, g, g.Rows, dims, 1, path)
	return entry
}

type pathStep struct {
	dim   types.Dimension
	value string
}

// buildLevel renders group level `level` for the rows of one parent entity.
// Sub-levels are not re-ranked; entries sort by key ascending.
func (b *Builder) buildLevel(date time.Time, parent *rank.Group, rows []types.AggregateRow, dims []types.Dimension, level int, path []pathStep) []map[string]interface{} {
	byKey := make(map[string][]types.AggregateRow)
	var keys []string
	for _, row := range rows {
		key := ""
		if level < len(row.GroupValues) {
			key = row.GroupValues[level].Value
		}
		if key == "" {
			key = types.NullGroupKey(dims[level])
		}
		if _, seen := byKey[key]; !seen {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], row)
	}
	sort.Strings(keys)

	entries := make([]map[string]interface{}, 0, len(keys))
	for _, key := range keys {
		sub := byKey[key]
		subPath := append(append([]pathStep{}, path...), pathStep{dim: dims[level], value: key})
		entry := map[string]interface{}{
			dims[level].DisplayName(): key,
		}
		if level == len(dims)-1 {
			leaf := b.leaf(date, subPath, sumRows(sub))
			attachDelta(leaf, parent)
			entry["values"] = []map[string]interface{}{leaf}
		} else {
			entry[Pluralize(dims[level+1].DisplayName())] = b.buildLevel(date, parent, sub, dims, level+1, subPath)
		}
		entries = append(entries, entry)
	}
	return entries
}

// leaf renders one unit-annotated value entry
func (b *Builder) leaf(date time.Time, path []pathStep, totals map[string]decimal.Decimal) map[string]interface{} {
	leaf := b.formatMetrics(totals)
	leaf["date"] = types.FormatBucket(date, b.Spec.Resolution)
	for _, step := range path {
		leaf[step.dim.DisplayName()] = step.value
	}
	return leaf
}

// attachDelta copies a group's computed comparison onto a leaf
func attachDelta(leaf map[string]interface{}, g *rank.Group) {
	if g.DeltaValue != nil {
		leaf["delta_value"] = *g.DeltaValue
		leaf["delta_percent"] = g.DeltaPercent
	}
}

// formatMetrics renders metric sums with their fixed units, nesting the
// cost decomposition for cost-bearing report types
func (b *Builder) formatMetrics(totals map[string]decimal.Decimal) map[string]interface{} {
	out := make(map[string]interface{})
	for _, m := range b.Opts.UsageMetrics {
		out[m.Name] = types.MetricValue{Value: metric(totals, m.Name), Units: m.Units}
	}
	if b.Opts.HasCost {
		out["cost"] = types.NewCost(
			metric(totals, types.MetricInfra),
			metric(totals, types.MetricSup),
			metric(totals, types.MetricMarkup),
			b.Currency,
		)
	}
	return out
}

func metric(totals map[string]decimal.Decimal, name string) decimal.Decimal {
	if v, ok := totals[name]; ok {
		return v
	}
	return decimal.Zero
}

// sumRows folds rows into per-metric totals
func sumRows(rows []types.AggregateRow) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, row := range rows {
		for name, v := range row.Metrics {
			out[name] = out[name].Add(v)
		}
	}
	return out
}

// Pluralize names the nested list for a grouping dimension; a trailing "s"
// is not doubled
func Pluralize(name string) string {
	if len(name) > 0 && name[len(name)-1] == 's' {
		return name
	}
	return name + "s"
}
