// Package filter - Predicate resolution and match tests
package filter

import (
	"testing"

	"cost-reports/core/types"
)

// fakeRecord maps dimension keys ("project", "tag:app") to value lists
type fakeRecord map[string][]string

func (r fakeRecord) DimensionValues(d types.Dimension) []string {
	return r[d.Key()]
}

func specWith(mutate func(*types.QuerySpec)) *types.QuerySpec {
	spec := &types.QuerySpec{Report: types.ReportCosts}
	mutate(spec)
	return spec
}

func TestResolveWildcardGroupByAddsNoFilter(t *testing.T) {
	spec := specWith(func(s *types.QuerySpec) {
		s.GroupBy = []types.GroupBy{{Dimension: types.PlainDimension("project"), Values: []string{"*"}}}
	})
	preds := Resolve(spec)

	if len(preds.Include) != 0 {
		t.Fatalf("wildcard group_by produced %d include predicates, want 0", len(preds.Include))
	}
	if len(preds.GroupBy) != 1 || preds.GroupBy[0].Name != "project" {
		t.Fatalf("group dimensions not carried through: %+v", preds.GroupBy)
	}
}

func TestResolveExplicitGroupByValuesBecomeFilters(t *testing.T) {
	spec := specWith(func(s *types.QuerySpec) {
		s.GroupBy = []types.GroupBy{{Dimension: types.PlainDimension("project"), Values: []string{"p1", "p2"}}}
	})
	preds := Resolve(spec)

	if len(preds.Include) != 1 {
		t.Fatalf("explicit group_by values produced %d include predicates, want 1", len(preds.Include))
	}

	if !preds.Matches(fakeRecord{"project": {"p1"}}) {
		t.Fatal("record with listed project value must match")
	}
	if preds.Matches(fakeRecord{"project": {"p3"}}) {
		t.Fatal("record outside the listed project values must not match")
	}
}

func TestMatchWildcardRequiresNonNullValue(t *testing.T) {
	preds := &ResolvedPredicates{Include: []types.DimensionPredicate{{
		Dimension: types.TagDimension("app"),
		Wildcard:  true,
	}}}

	if !preds.Matches(fakeRecord{"tag:app": {"web"}}) {
		t.Fatal("record with a tag value must match the wildcard")
	}
	if preds.Matches(fakeRecord{}) {
		t.Fatal("record without the tag must not match the wildcard")
	}
	if preds.Matches(fakeRecord{"tag:app": {""}}) {
		t.Fatal("an empty value is null for wildcard purposes")
	}
}

func TestMatchAndCompositionOverPlainDimensionIsUnsatisfiable(t *testing.T) {
	preds := &ResolvedPredicates{Include: []types.DimensionPredicate{{
		Dimension:   types.PlainDimension("node"),
		Values:      []string{"n1", "n2"},
		Composition: types.CompositionAnd,
	}}}

	// a record carries exactly one node value; it can never carry both
	if preds.Matches(fakeRecord{"node": {"n1"}}) {
		t.Fatal("AND over two values cannot be satisfied by a single-valued dimension")
	}
}

func TestMatchAndCompositionOverTagDimension(t *testing.T) {
	preds := &ResolvedPredicates{Include: []types.DimensionPredicate{{
		Dimension:   types.TagDimension("env"),
		Values:      []string{"prod", "canary"},
		Composition: types.CompositionAnd,
	}}}

	if !preds.Matches(fakeRecord{"tag:env": {"prod", "canary"}}) {
		t.Fatal("record carrying both tag values must satisfy AND")
	}
	if preds.Matches(fakeRecord{"tag:env": {"prod"}}) {
		t.Fatal("record carrying one of two AND values must not match")
	}
}

func TestMatchOrCompositionMatchesAnyValue(t *testing.T) {
	preds := &ResolvedPredicates{Include: []types.DimensionPredicate{{
		Dimension: types.PlainDimension("cluster"),
		Values:    []string{"c1", "c2"},
	}}}

	if !preds.Matches(fakeRecord{"cluster": {"c2"}}) {
		t.Fatal("record with either OR value must match")
	}
}

func TestMatchExcludeDropsMatchingRecords(t *testing.T) {
	preds := &ResolvedPredicates{Exclude: []types.DimensionPredicate{{
		Dimension: types.PlainDimension("project"),
		Values:    []string{"kube-system"},
		Negated:   true,
	}}}

	if preds.Matches(fakeRecord{"project": {"kube-system"}}) {
		t.Fatal("excluded project must not match")
	}
	if !preds.Matches(fakeRecord{"project": {"shop"}}) {
		t.Fatal("non-excluded project must match")
	}
}

func TestMatchIncludeThenExclude(t *testing.T) {
	preds := &ResolvedPredicates{
		Include: []types.DimensionPredicate{{
			Dimension: types.PlainDimension("cluster"),
			Values:    []string{"c1"},
		}},
		Exclude: []types.DimensionPredicate{{
			Dimension: types.PlainDimension("project"),
			Values:    []string{"p1"},
			Negated:   true,
		}},
	}

	if !preds.Matches(fakeRecord{"cluster": {"c1"}, "project": {"p2"}}) {
		t.Fatal("record passing include and missing exclude must match")
	}
	if preds.Matches(fakeRecord{"cluster": {"c1"}, "project": {"p1"}}) {
		t.Fatal("exclude applies after include")
	}
}
