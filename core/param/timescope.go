// Package param - Relative time scope resolution
package param

import (
	"time"

	"cost-reports/core/types"
	"cost-reports/internal/errors"
)

// legal time_scope_value choices per unit
var (
	monthScopeValues = map[int]bool{-1: true, -2: true}
	dayScopeValues   = map[int]bool{-10: true, -30: true, -90: true}
)

// monthScope reports whether a time_scope_value is month-based
func monthScope(value int) bool {
	return monthScopeValues[value]
}

// validateTimeScope checks a value/units pair
func validateTimeScope(ts types.TimeScope) error {
	switch ts.Units {
	case types.UnitsMonth:
		if !monthScopeValues[ts.Value] {
			return errors.Validationf("filter[time_scope_value]",
				"%d is not a valid time scope for unit month", ts.Value)
		}
	case types.UnitsDay:
		if !dayScopeValues[ts.Value] {
			return errors.Validationf("filter[time_scope_value]",
				"%d is not a valid time scope for unit day", ts.Value)
		}
	default:
		return errors.Validationf("filter[time_scope_units]",
			"%q is not a valid time scope unit", string(ts.Units))
	}
	return nil
}

// ResolveTimeScope turns a relative scope into a concrete half-open range.
//
//	-1 month: current month to date
//	-2 month: previous full month
//	-N day:   trailing N days including today
func ResolveTimeScope(ts types.TimeScope, now time.Time) types.DateRange {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	if ts.Units == types.UnitsMonth {
		switch ts.Value {
		case -1:
			return types.DateRange{Start: monthStart, End: today.AddDate(0, 0, 1)}
		default: // -2
			return types.DateRange{Start: monthStart.AddDate(0, -1, 0), End: monthStart}
		}
	}

	days := -ts.Value
	return types.DateRange{Start: today.AddDate(0, 0, -(days - 1)), End: today.AddDate(0, 0, 1)}
}

// PriorRange shifts a reporting window back by exactly one resolution period:
// one month for monthly resolution, the window's own length for daily. The
// shifted end is clamped to the current start: a month-to-date window ending
// past the prior month's length would otherwise normalize back into the
// current period.
func PriorRange(r types.DateRange, res types.Resolution) types.DateRange {
	if res == types.ResolutionMonthly {
		end := r.End.AddDate(0, -1, 0)
		if end.After(r.Start) {
			end = r.Start
		}
		return types.DateRange{Start: r.Start.AddDate(0, -1, 0), End: end}
	}
	days := r.Days()
	return types.DateRange{Start: r.Start.AddDate(0, 0, -days), End: r.End.AddDate(0, 0, -days)}
}

// ShiftForward maps a prior-period bucket date onto its current-period
// counterpart for delta alignment
func ShiftForward(t time.Time, r types.DateRange, res types.Resolution) time.Time {
	if res == types.ResolutionMonthly {
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, r.Days())
}
