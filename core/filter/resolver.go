// Package filter turns a validated QuerySpec into dimension predicates and
// provides the row-level match test applied by aggregation backends.
package filter

import (
	"cost-reports/core/types"
)

// ResolvedPredicates is the predicate set consumed by the aggregation driver
type ResolvedPredicates struct {
	// Include predicates AND across dimensions; rows must match every one
	Include []types.DimensionPredicate

	// Exclude predicates drop matching rows, evaluated after includes
	Exclude []types.DimensionPredicate

	// GroupBy is the ordered list of grouping dimensions
	GroupBy []types.Dimension
}

// ValueSource exposes a record's values for one dimension. Plain dimensions
// yield zero or one value; tag dimensions yield every label value at the key.
type ValueSource interface {
	DimensionValues(d types.Dimension) []string
}

// Resolve builds the predicate set for a query. Group-by clauses with
// explicit (non-wildcard) values double as include filters, so grouping by
// project=p1 restricts the result to p1 while still producing per-value
// groups.
func Resolve(spec *types.QuerySpec) *ResolvedPredicates {
	out := &ResolvedPredicates{GroupBy: spec.GroupDimensions()}

	out.Include = append(out.Include, spec.Filters...)
	out.Exclude = append(out.Exclude, spec.Excludes...)

	for _, g := range spec.GroupBy {
		if len(g.Values) == 0 || types.HasWildcard(g.Values) {
			// wildcard grouping: one group per distinct observed value,
			// no additional filtering
			continue
		}
		out.Include = append(out.Include, types.DimensionPredicate{
			Dimension:   g.Dimension,
			Values:      g.Values,
			Composition: g.Composition,
		})
	}
	return out
}

// Matches applies the full include/exclude test to one record
func (p *ResolvedPredicates) Matches(src ValueSource) bool {
	for _, pred := range p.Include {
		if !matchPredicate(pred, src) {
			return false
		}
	}
	for _, pred := range p.Exclude {
		if matchPredicate(pred, src) {
			return false
		}
	}
	return true
}

// matchPredicate tests one predicate against a record's values for the
// predicate's dimension.
//
// AND composition requires the record to carry every listed value. A plain
// dimension holds exactly one value per record, so an AND over more than one
// value is unsatisfiable there; tag dimensions may carry several values and
// can satisfy it.
func matchPredicate(pred types.DimensionPredicate, src ValueSource) bool {
	have := src.DimensionValues(pred.Dimension)

	if pred.Wildcard {
		return hasNonNull(have)
	}
	if len(pred.Values) == 0 {
		return true
	}

	if pred.Composition == types.CompositionAnd {
		for _, want := range pred.Values {
			if !contains(have, want) {
				return false
			}
		}
		return true
	}

	for _, want := range pred.Values {
		if contains(have, want) {
			return true
		}
	}
	return false
}

func hasNonNull(values []string) bool {
	for _, v := range values {
		if v != "" {
			return true
		}
	}
	return false
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
