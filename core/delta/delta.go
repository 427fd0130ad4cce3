// Package delta computes period-over-period and same-period ratio
// comparisons over ranked aggregation results. It assumes a validated spec;
// unknown delta names are rejected upstream by the parameter model.
package delta

import (
	"time"

	"github.com/shopspring/decimal"

	"cost-reports/core/param"
	"cost-reports/core/rank"
	"cost-reports/core/types"
)

// Totals is the aggregate comparison reported in response meta
type Totals struct {
	// Value is the absolute delta across the whole result
	Value decimal.Decimal `json:"value"`

	// Percent is the relative delta; nil when the baseline is zero
	Percent *decimal.Decimal `json:"percent"`
}

// Percent computes (current-prior)/prior*100. It returns nil when the prior
// value is zero: a percentage against nothing is undefined, not infinite.
func Percent(current, prior decimal.Decimal) *decimal.Decimal {
	if prior.IsZero() {
		return nil
	}
	p := current.Sub(prior).Div(prior).Mul(decimal.NewFromInt(100))
	return &p
}

type priorKey struct {
	date time.Time
	key  string
}

// priorTotals indexes prior-period rows by their current-period-aligned date
// and first-level group key. Prior dates are shifted forward by exactly one
// resolution period.
func priorTotals(prior []types.AggregateRow, priorRange types.DateRange, res types.Resolution, metric string) map[priorKey]decimal.Decimal {
	out := make(map[priorKey]decimal.Decimal, len(prior))
	for _, row := range prior {
		k := priorKey{date: param.ShiftForward(row.Date, priorRange, res), key: row.FirstKey()}
		out[k] = out[k].Add(row.Metric(metric))
	}
	return out
}

// ApplyPeriod attaches delta_value and delta_percent to every ranked group by
// matching on (shifted date, group key). A missing prior value is treated
// as zero. Synthetic Other(s) entities have no prior counterpart and compare
// against zero.
func ApplyPeriod(ranking *rank.Ranking, prior []types.AggregateRow, priorRange types.DateRange, res types.Resolution, metric string) {
	priorByKey := priorTotals(prior, priorRange, res, metric)

	for date, groups := range ranking.ByDate {
		for _, g := range groups {
			var prev decimal.Decimal
			if !g.Synthetic {
				key := g.Key
				if g.NullKey {
					key = ""
				}
				prev = priorByKey[priorKey{date: date, key: key}]
			}
			cur := g.Metric(metric)
			value := cur.Sub(prev)
			g.DeltaValue = &value
			g.DeltaPercent = Percent(cur, prev)
		}
	}
}

// ApplyRatio attaches the same-period ratio to every ranked group:
// percent = (A/B)*100 within the current period, zero when B is zero or
// absent. No prior-period lookup occurs.
func ApplyRatio(ranking *rank.Ranking, spec types.DeltaSpec) {
	for _, groups := range ranking.ByDate {
		for _, g := range groups {
			a, b := g.Metric(spec.RatioA), g.Metric(spec.RatioB)
			value := a.Sub(b)
			percent := rank.RatioPercent(a, b)
			g.DeltaValue = &value
			g.DeltaPercent = &percent
		}
	}
}

// PeriodTotals computes the aggregate comparison over the full, unpaginated
// row sets.
func PeriodTotals(current, prior []types.AggregateRow, metric string) Totals {
	var cur, prev decimal.Decimal
	for _, row := range current {
		cur = cur.Add(row.Metric(metric))
	}
	for _, row := range prior {
		prev = prev.Add(row.Metric(metric))
	}
	return Totals{Value: cur.Sub(prev), Percent: Percent(cur, prev)}
}

// RatioTotals computes the aggregate ratio comparison over the full,
// unpaginated current-period rows.
func RatioTotals(current []types.AggregateRow, spec types.DeltaSpec) Totals {
	var a, b decimal.Decimal
	for _, row := range current {
		a = a.Add(row.Metric(spec.RatioA))
		b = b.Add(row.Metric(spec.RatioB))
	}
	percent := rank.RatioPercent(a, b)
	return Totals{Value: a.Sub(b), Percent: &percent}
}

// PeriodSortOverride builds a ranking value for order_by[delta] with a
// period-over-period delta: entities sort by their absolute delta.
func PeriodSortOverride(prior []types.AggregateRow, priorRange types.DateRange, res types.Resolution, metric string) func(g *rank.Group) decimal.Decimal {
	priorByKey := priorTotals(prior, priorRange, res, metric)
	return func(g *rank.Group) decimal.Decimal {
		key := g.Key
		if g.NullKey {
			key = ""
		}
		return g.Metric(metric).Sub(priorByKey[priorKey{date: g.Date, key: key}])
	}
}
