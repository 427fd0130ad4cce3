package param

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cost-reports/core/types"
	"cost-reports/internal/errors"
)

var testNow = time.Date(2025, 7, 15, 13, 30, 0, 0, time.UTC)

var testTagKeys = []string{"app", "env"}

func parse(t *testing.T, report types.ReportType, query string) (*types.QuerySpec, error) {
	t.Helper()
	raw, err := url.ParseQuery(query)
	require.NoError(t, err)
	return Parse(report, raw, testTagKeys, testNow)
}

func TestParseDefaults(t *testing.T) {
	spec, err := parse(t, types.ReportCosts, "")
	require.NoError(t, err)

	require.Equal(t, types.TimeScope{Value: -10, Units: types.UnitsDay}, spec.TimeScope)
	require.Equal(t, types.ResolutionDaily, spec.Resolution)
	require.Equal(t, time.Date(2025, 7, 6, 0, 0, 0, 0, time.UTC), spec.Range.Start)
	require.Equal(t, time.Date(2025, 7, 16, 0, 0, 0, 0, time.UTC), spec.Range.End)
	require.Zero(t, spec.Limit)
	require.Zero(t, spec.Offset)
	require.False(t, spec.HasGroupBy())
	require.Nil(t, spec.Delta)
}

func TestParseTimeScopeDefaulting(t *testing.T) {
	cases := []struct {
		name      string
		query     string
		wantScope types.TimeScope
		wantRes   types.Resolution
	}{
		{
			name:      "month value defaults units and resolution",
			query:     "filter[time_scope_value]=-1",
			wantScope: types.TimeScope{Value: -1, Units: types.UnitsMonth},
			wantRes:   types.ResolutionMonthly,
		},
		{
			name:      "month units defaults value to -1",
			query:     "filter[time_scope_units]=month",
			wantScope: types.TimeScope{Value: -1, Units: types.UnitsMonth},
			wantRes:   types.ResolutionMonthly,
		},
		{
			name:      "day value defaults to daily",
			query:     "filter[time_scope_value]=-30",
			wantScope: types.TimeScope{Value: -30, Units: types.UnitsDay},
			wantRes:   types.ResolutionDaily,
		},
		{
			name:      "explicit resolution wins over defaulting",
			query:     "filter[time_scope_value]=-2&filter[resolution]=daily",
			wantScope: types.TimeScope{Value: -2, Units: types.UnitsMonth},
			wantRes:   types.ResolutionDaily,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec, err := parse(t, types.ReportCosts, tc.query)
			require.NoError(t, err)
			require.Equal(t, tc.wantScope, spec.TimeScope)
			require.Equal(t, tc.wantRes, spec.Resolution)
		})
	}
}

func TestParseRejectsInvalidParameters(t *testing.T) {
	cases := []struct {
		name      string
		query     string
		wantField string
	}{
		{"unknown top-level key", "bogus=1", "bogus"},
		{"illegal group-by dimension", "group_by[pod]=*", "group_by[pod]"},
		{"illegal filter dimension", "filter[pod]=a", "filter[pod]"},
		{"disabled tag key", "group_by[tag:team]=*", "group_by[tag:team]"},
		{"bad sort direction", "order_by[cost]=sideways", "order_by[cost]"},
		{"unknown order field", "order_by[memory]=asc", "order_by[memory]"},
		{"monthly resolution with day scope", "filter[resolution]=monthly&filter[time_scope_value]=-30", "filter[resolution]"},
		{"invalid time scope for unit", "filter[time_scope_value]=-7", "filter[time_scope_value]"},
		{"zero limit", "filter[limit]=0", "filter[limit]"},
		{"negative offset", "filter[offset]=-3", "filter[offset]"},
		{"key_only without group_by", "key_only=true", "key_only"},
		{"order by delta without delta", "group_by[project]=*&order_by[delta]=desc", "order_by[delta]"},
		{"three-field ratio delta", "delta=usage__request__limit", "delta"},
		{"unknown delta name", "delta=capacity", "delta"},
		{"end date before start", "start_date=2025-07-10&end_date=2025-07-01", "end_date"},
		{"start date without end", "start_date=2025-07-10", "end_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse(t, types.ReportCosts, tc.query)
			require.Error(t, err)
			require.True(t, errors.IsType(err, errors.TypeValidation), "expected validation error, got %v", err)

			var domainErr *errors.Error
			require.ErrorAs(t, err, &domainErr)
			require.Equal(t, tc.wantField, domainErr.Field())
		})
	}
}

func TestParseGroupByTagAndComposition(t *testing.T) {
	spec, err := parse(t, types.ReportCPU, "group_by[tag:app]=*&filter[and:node]=n1&filter[and:node]=n2")
	require.NoError(t, err)

	require.Len(t, spec.GroupBy, 1)
	require.Equal(t, types.TagDimension("app"), spec.GroupBy[0].Dimension)
	require.Equal(t, []string{"*"}, spec.GroupBy[0].Values)

	require.Len(t, spec.Filters, 1)
	require.Equal(t, types.CompositionAnd, spec.Filters[0].Composition)
	require.Equal(t, []string{"n1", "n2"}, spec.Filters[0].Values)
}

func TestParseGroupByNestingUsesSortedKeyOrder(t *testing.T) {
	spec, err := parse(t, types.ReportCosts, "group_by[project]=*&group_by[cluster]=*")
	require.NoError(t, err)

	dims := spec.GroupDimensions()
	require.Len(t, dims, 2)
	require.Equal(t, "cluster", dims[0].Name)
	require.Equal(t, "project", dims[1].Name)
}

func TestParseOrderByAliasing(t *testing.T) {
	spec, err := parse(t, types.ReportCosts, "order_by[cost]=asc")
	require.NoError(t, err)
	require.Equal(t, types.MetricCostTotal, spec.OrderBy.Field)
	require.Equal(t, types.Ascending, spec.OrderBy.Direction)
}

func TestParseOrderByTagRequiresMatchingGroupBy(t *testing.T) {
	_, err := parse(t, types.ReportCosts, "order_by[tag:app]=desc")
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.TypeValidation))

	spec, err := parse(t, types.ReportCosts, "group_by[tag:app]=*&order_by[tag:app]=desc")
	require.NoError(t, err)
	require.NotNil(t, spec.OrderBy.Tag)
	require.Equal(t, "app", spec.OrderBy.Tag.TagKey)
}

func TestParseDelta(t *testing.T) {
	spec, err := parse(t, types.ReportCosts, "delta=cost")
	require.NoError(t, err)
	require.Equal(t, types.MetricCostTotal, spec.Delta.Metric)
	require.False(t, spec.Delta.IsRatio())

	spec, err = parse(t, types.ReportCPU, "delta=usage__capacity")
	require.NoError(t, err)
	require.True(t, spec.Delta.IsRatio())
	require.Equal(t, "usage", spec.Delta.RatioA)
	require.Equal(t, "capacity", spec.Delta.RatioB)

	// ratio fields differ per report type: limit is not one for volume
	_, err = parse(t, types.ReportVolume, "delta=usage__limit")
	require.Error(t, err)
}

func TestParseExplicitDates(t *testing.T) {
	spec, err := parse(t, types.ReportCosts, "start_date=2025-06-01&end_date=2025-06-30")
	require.NoError(t, err)

	require.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), spec.Range.Start)
	// end_date is inclusive; the range's upper bound is exclusive
	require.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), spec.Range.End)
	require.Equal(t, types.ResolutionDaily, spec.Resolution)
}

func TestParseKeyOnly(t *testing.T) {
	spec, err := parse(t, types.ReportCosts, "group_by[project]=*&key_only=true")
	require.NoError(t, err)
	require.True(t, spec.KeyOnly)
}

func TestParseUnknownReportType(t *testing.T) {
	_, err := parse(t, types.ReportType("network"), "")
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.TypeNotFound))
}
