// Package rank implements the top-N-plus-Other summarization applied to
// grouped aggregation rows, independently within each date bucket.
package rank

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"cost-reports/core/types"
)

// Params controls ranking and collapsing for the first group-by level
type Params struct {
	// Dimension is the first-level grouping dimension
	Dimension types.Dimension

	// OrderField is a metric name, "delta", or the dimension's display name
	OrderField string

	// Ratio is set when ordering by a same-period ratio delta
	Ratio *types.DeltaSpec

	// SortOverride, when set, replaces the metric lookup as the ranking
	// value (used for period-over-period delta ordering)
	SortOverride func(g *Group) decimal.Decimal

	// Descending selects the sort direction
	Descending bool

	// Limit keeps the top N entities per date; zero disables collapsing
	Limit int

	// Offset slices into the already-collapsed ranked list
	Offset int
}

// Group is one ranked entity within a date bucket
type Group struct {
	// Key is the entity's dimension value, "Other(s)", or "no-<dimension>"
	Key string

	// Date is the entity's bucket start
	Date time.Time

	// Rank is the entity's 1-based position before offset slicing
	Rank int

	// Synthetic marks the collapsed overflow entity
	Synthetic bool

	// NullKey marks the bucket holding rows with no value at the dimension
	NullKey bool

	// Rows holds the entity's backend rows, carrying any deeper group levels
	Rows []types.AggregateRow

	// Totals holds the entity's per-metric sums for this date
	Totals map[string]decimal.Decimal

	// DeltaValue and DeltaPercent are attached by the delta calculator
	DeltaValue   *decimal.Decimal
	DeltaPercent *decimal.Decimal
}

// Metric returns an entity total, zero when absent
func (g *Group) Metric(name string) decimal.Decimal {
	if v, ok := g.Totals[name]; ok {
		return v
	}
	return decimal.Zero
}

// Ranking is the collapsed result across all date buckets
type Ranking struct {
	// ByDate holds the sliced, ranked groups per bucket
	ByDate map[time.Time][]*Group

	// CollapsedKeys is the union of entity keys folded into Other(s)
	CollapsedKeys map[string]bool

	// Keys is the union of real (non-synthetic, non-null) entity keys
	// observed before collapsing
	Keys map[string]bool

	// HasNull records whether any date bucket produced a null-key entity
	HasNull bool
}

// OthersCount returns the number of distinct entities collapsed away
func (r *Ranking) OthersCount() int {
	return len(r.CollapsedKeys)
}

// BucketByDate partitions rows into their date buckets
func BucketByDate(rows []types.AggregateRow) map[time.Time][]types.AggregateRow {
	out := make(map[time.Time][]types.AggregateRow)
	for _, row := range rows {
		out[row.Date] = append(out[row.Date], row)
	}
	return out
}

// Collapse ranks each date bucket's entities, keeps the top Limit by global
// per-date rank, folds the remainder into a single synthetic entity with
// exactly re-summed metrics, and applies Offset to the collapsed list.
// Null-key rows form a separate "no-<dimension>" entity that never joins the
// synthetic one.
func Collapse(buckets map[time.Time][]types.AggregateRow, p Params) *Ranking {
	ranking := &Ranking{
		ByDate:        make(map[time.Time][]*Group, len(buckets)),
		CollapsedKeys: make(map[string]bool),
		Keys:          make(map[string]bool),
	}

	for date, rows := range buckets {
		real, null := groupByKey(rows, p.Dimension)
		for _, g := range real {
			g.Date = date
			ranking.Keys[g.Key] = true
		}
		if null != nil {
			null.Date = date
			ranking.HasNull = true
		}

		sortGroups(real, p)

		kept := real
		if p.Limit > 0 && len(real) > p.Limit {
			kept = real[:p.Limit]
			collapsed := real[p.Limit:]
			other := foldOther(collapsed)
			for _, g := range collapsed {
				ranking.CollapsedKeys[g.Key] = true
			}
			kept = append(kept, other)
		}
		if null != nil {
			kept = append(kept, null)
		}
		for i, g := range kept {
			g.Rank = i + 1
		}

		if p.Offset > 0 {
			if p.Offset >= len(kept) {
				kept = nil
			} else {
				kept = kept[p.Offset:]
			}
		}
		ranking.ByDate[date] = kept
	}
	return ranking
}

// groupByKey partitions one bucket's rows into per-key entities and the
// null-key entity
func groupByKey(rows []types.AggregateRow, dim types.Dimension) (real []*Group, null *Group) {
	byKey := make(map[string]*Group)
	for _, row := range rows {
		key := row.FirstKey()
		g, ok := byKey[key]
		if !ok {
			g = &Group{Key: key, Totals: make(map[string]decimal.Decimal)}
			byKey[key] = g
		}
		g.Rows = append(g.Rows, row)
		for name, v := range row.Metrics {
			g.Totals[name] = g.Totals[name].Add(v)
		}
	}

	for key, g := range byKey {
		if key == "" {
			g.Key = types.NullGroupKey(dim)
			g.NullKey = true
			null = g
			continue
		}
		real = append(real, g)
	}
	return real, null
}

// sortGroups orders entities by the requested field, tie-breaking on key
// name ascending for determinism
func sortGroups(groups []*Group, p Params) {
	byKey := p.OrderField == p.Dimension.DisplayName()
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if byKey {
			if p.Descending {
				return a.Key > b.Key
			}
			return a.Key < b.Key
		}
		av, bv := sortValue(a, p), sortValue(b, p)
		switch av.Cmp(bv) {
		case 0:
			return a.Key < b.Key
		case 1:
			return p.Descending
		default:
			return !p.Descending
		}
	})
}

// sortValue computes an entity's ranking value
func sortValue(g *Group, p Params) decimal.Decimal {
	if p.SortOverride != nil {
		return p.SortOverride(g)
	}
	if p.OrderField == "delta" && p.Ratio != nil {
		return RatioPercent(g.Metric(p.Ratio.RatioA), g.Metric(p.Ratio.RatioB))
	}
	return g.Metric(p.OrderField)
}

// foldOther re-sums collapsed entities into one synthetic group. The bucket
// is named "Other" when a single entity collapsed, "Others" otherwise.
func foldOther(collapsed []*Group) *Group {
	name := "Others"
	if len(collapsed) == 1 {
		name = "Other"
	}
	other := &Group{Key: name, Date: collapsed[0].Date, Synthetic: true, Totals: make(map[string]decimal.Decimal)}
	for _, g := range collapsed {
		other.Rows = append(other.Rows, g.Rows...)
		for metric, v := range g.Totals {
			other.Totals[metric] = other.Totals[metric].Add(v)
		}
	}
	return other
}

// Flatten builds one unranked entity per date bucket, used when no grouping
// was requested and pagination applies to the date series instead.
func Flatten(buckets map[time.Time][]types.AggregateRow) *Ranking {
	ranking := &Ranking{
		ByDate:        make(map[time.Time][]*Group, len(buckets)),
		CollapsedKeys: make(map[string]bool),
		Keys:          make(map[string]bool),
	}
	for date, rows := range buckets {
		g := &Group{Rank: 1, Date: date, Totals: make(map[string]decimal.Decimal)}
		g.Rows = rows
		for _, row := range rows {
			for name, v := range row.Metrics {
				g.Totals[name] = g.Totals[name].Add(v)
			}
		}
		ranking.ByDate[date] = []*Group{g}
	}
	return ranking
}

// RatioPercent computes (a/b)*100, zero when the denominator is zero
func RatioPercent(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b).Mul(decimal.NewFromInt(100))
}
