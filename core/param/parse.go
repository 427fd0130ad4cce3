// Package param validates and normalizes raw query parameters into a
// typed QuerySpec. All validation happens here, before any backend call.
package param

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"cost-reports/core/types"
	"cost-reports/internal/errors"
)

const (
	andPrefix = "and:"
	orPrefix  = "or:"
	tagPrefix = "tag:"
)

// filter sub-keys that configure the query rather than match dimensions
var filterSettings = map[string]bool{
	"limit":            true,
	"offset":           true,
	"resolution":       true,
	"time_scope_value": true,
	"time_scope_units": true,
}

// Parse validates a raw query-parameter bag against the report type's option
// table and the tenant's enabled tag keys, returning the normalized spec.
func Parse(report types.ReportType, raw url.Values, tagKeys []string, now time.Time) (*types.QuerySpec, error) {
	opts, ok := types.Options(report)
	if !ok {
		return nil, errors.NotFound("report type", string(report))
	}

	tagSet := make(map[string]bool, len(tagKeys))
	for _, k := range tagKeys {
		tagSet[k] = true
	}

	spec := &types.QuerySpec{Report: report}
	var (
		deltaRaw   string
		resolution string
		tsValue    string
		tsUnits    string
		startDate  string
		endDate    string
		limitRaw   string
		offsetRaw  string
	)

	// url.Values does not preserve request order; sorted key order keeps
	// group-by nesting deterministic.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, rawKey := range keys {
		vals := raw[rawKey]
		top, sub, ok := splitKey(rawKey)
		if !ok {
			return nil, errors.Validationf(rawKey, "malformed query parameter %q", rawKey)
		}

		switch top {
		case "filter":
			if filterSettings[sub] {
				switch sub {
				case "limit":
					limitRaw = vals[0]
				case "offset":
					offsetRaw = vals[0]
				case "resolution":
					resolution = vals[0]
				case "time_scope_value":
					tsValue = vals[0]
				case "time_scope_units":
					tsUnits = vals[0]
				}
				continue
			}
			pred, err := parsePredicate("filter", sub, vals, opts, tagSet, false)
			if err != nil {
				return nil, err
			}
			spec.Filters = append(spec.Filters, pred)

		case "exclude":
			pred, err := parsePredicate("exclude", sub, vals, opts, tagSet, true)
			if err != nil {
				return nil, err
			}
			spec.Excludes = append(spec.Excludes, pred)

		case "group_by":
			dim, comp, err := parseDimensionKey("group_by", sub, opts, tagSet)
			if err != nil {
				return nil, err
			}
			spec.GroupBy = append(spec.GroupBy, types.GroupBy{
				Dimension:   dim,
				Values:      vals,
				Composition: comp,
			})

		case "order_by":
			if spec.OrderBy != nil {
				return nil, errors.Validationf(rawKey, "only one order_by parameter is supported")
			}
			ob, err := parseOrderBy(sub, vals[0], opts, tagSet)
			if err != nil {
				return nil, err
			}
			spec.OrderBy = ob

		case "delta":
			if sub != "" {
				return nil, errors.Validationf(rawKey, "unknown query parameter %q", rawKey)
			}
			deltaRaw = vals[0]

		case "limit":
			limitRaw = vals[0]

		case "offset":
			offsetRaw = vals[0]

		case "key_only":
			b, err := strconv.ParseBool(vals[0])
			if err != nil {
				return nil, errors.Validationf("key_only", "%q is not a boolean", vals[0])
			}
			spec.KeyOnly = b

		case "start_date":
			startDate = vals[0]

		case "end_date":
			endDate = vals[0]

		default:
			return nil, errors.Validationf(rawKey, "unknown query parameter %q", rawKey)
		}
	}

	if err := applyPaging(spec, limitRaw, offsetRaw); err != nil {
		return nil, err
	}
	if err := applyTimeScope(spec, resolution, tsValue, tsUnits, startDate, endDate, now); err != nil {
		return nil, err
	}
	if err := applyDelta(spec, deltaRaw, opts); err != nil {
		return nil, err
	}
	if err := crossValidate(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// splitKey parses "top" or "top[sub]" with an optional trailing "[]"
func splitKey(key string) (top, sub string, ok bool) {
	i := strings.IndexByte(key, '[')
	if i < 0 {
		return key, "", true
	}
	top = key[:i]
	rest := strings.TrimSuffix(key[i:], "[]")
	if len(rest) < 2 || rest[0] != '[' || rest[len(rest)-1] != ']' {
		return "", "", false
	}
	sub = rest[1 : len(rest)-1]
	if sub == "" || strings.ContainsAny(sub, "[]") {
		return "", "", false
	}
	return top, sub, true
}

// parseDimensionKey resolves a bracketed field name to a dimension and its
// composition, validating against the report's option table and the enabled
// tag keys.
func parseDimensionKey(section, sub string, opts *types.ReportTypeOptions, tagSet map[string]bool) (types.Dimension, types.Composition, error) {
	field := section + "[" + sub + "]"
	comp := types.CompositionOr

	name := sub
	if strings.HasPrefix(name, andPrefix) {
		comp = types.CompositionAnd
		name = strings.TrimPrefix(name, andPrefix)
	} else if strings.HasPrefix(name, orPrefix) {
		name = strings.TrimPrefix(name, orPrefix)
	}

	if strings.HasPrefix(name, tagPrefix) {
		key := strings.TrimPrefix(name, tagPrefix)
		if key == "" {
			return types.Dimension{}, comp, errors.Validationf(field, "empty tag key in %s", field)
		}
		if !tagSet[key] {
			return types.Dimension{}, comp, errors.Validationf(field, "tag key %q is not enabled", key)
		}
		return types.TagDimension(key), comp, nil
	}

	if !opts.LegalGroupBy(name) {
		return types.Dimension{}, comp, errors.Validationf(field,
			"%q is not a valid field for %s reports", name, string(opts.Type))
	}
	return types.PlainDimension(name), comp, nil
}

// parsePredicate builds a filter or exclude predicate from one bracketed key
func parsePredicate(section, sub string, vals []string, opts *types.ReportTypeOptions, tagSet map[string]bool, negated bool) (types.DimensionPredicate, error) {
	dim, comp, err := parseDimensionKey(section, sub, opts, tagSet)
	if err != nil {
		return types.DimensionPredicate{}, err
	}
	return types.DimensionPredicate{
		Dimension:   dim,
		Values:      vals,
		Wildcard:    types.HasWildcard(vals),
		Negated:     negated,
		Composition: comp,
	}, nil
}

// parseOrderBy validates one order_by[<field>]=<direction> pair
func parseOrderBy(sub, dirRaw string, opts *types.ReportTypeOptions, tagSet map[string]bool) (*types.OrderBy, error) {
	field := "order_by[" + sub + "]"

	var dir types.Direction
	switch dirRaw {
	case "asc":
		dir = types.Ascending
	case "desc":
		dir = types.Descending
	default:
		return nil, errors.Validationf(field, "%q is not a valid sort direction", dirRaw)
	}

	if strings.HasPrefix(sub, tagPrefix) {
		key := strings.TrimPrefix(sub, tagPrefix)
		if !tagSet[key] {
			return nil, errors.Validationf(field, "tag key %q is not enabled", key)
		}
		dim := types.TagDimension(key)
		return &types.OrderBy{Tag: &dim, Direction: dir}, nil
	}

	name := opts.ResolveOrderAlias(sub)
	if !opts.LegalOrderBy(name) {
		return nil, errors.Validationf(field,
			"%q is not a valid order_by field for %s reports", sub, string(opts.Type))
	}
	return &types.OrderBy{Field: name, Direction: dir}, nil
}

// applyPaging validates and sets limit/offset
func applyPaging(spec *types.QuerySpec, limitRaw, offsetRaw string) error {
	if limitRaw != "" {
		n, err := strconv.Atoi(limitRaw)
		if err != nil || n < 1 {
			return errors.Validationf("filter[limit]", "%q is not a positive integer", limitRaw)
		}
		spec.Limit = n
	}
	if offsetRaw != "" {
		n, err := strconv.Atoi(offsetRaw)
		if err != nil || n < 0 {
			return errors.Validationf("filter[offset]", "%q is not a non-negative integer", offsetRaw)
		}
		spec.Offset = n
	}
	return nil
}

// applyTimeScope applies koku's defaulting rules and resolves the window.
// With no dates and no scope: -10 day, daily. A month value defaults units
// and resolution to month/monthly; explicit dates default to daily.
func applyTimeScope(spec *types.QuerySpec, resolution, tsValue, tsUnits, startDate, endDate string, now time.Time) error {
	if startDate != "" || endDate != "" {
		if startDate == "" {
			return errors.Validation("start_date", "start_date is required with end_date")
		}
		if endDate == "" {
			return errors.Validation("end_date", "end_date is required with start_date")
		}
		start, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return errors.Validationf("start_date", "%q is not a valid date", startDate)
		}
		end, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			return errors.Validationf("end_date", "%q is not a valid date", endDate)
		}
		if end.Before(start) {
			return errors.Validation("end_date", "end_date must not precede start_date")
		}
		if resolution == "" {
			resolution = string(types.ResolutionDaily)
		}
		res, err := parseResolution(resolution)
		if err != nil {
			return err
		}
		spec.Resolution = res
		spec.Range = types.DateRange{Start: start, End: end.AddDate(0, 0, 1)}
		return nil
	}

	if tsValue == "" {
		if tsUnits == string(types.UnitsMonth) {
			tsValue = "-1"
		} else {
			tsValue = "-10"
		}
	}
	value, err := strconv.Atoi(tsValue)
	if err != nil {
		return errors.Validationf("filter[time_scope_value]", "%q is not an integer", tsValue)
	}
	if tsUnits == "" {
		if monthScope(value) {
			tsUnits = string(types.UnitsMonth)
		} else {
			tsUnits = string(types.UnitsDay)
		}
	}
	if resolution == "" {
		if monthScope(value) {
			resolution = string(types.ResolutionMonthly)
		} else {
			resolution = string(types.ResolutionDaily)
		}
	}

	ts := types.TimeScope{Value: value, Units: types.TimeScopeUnits(tsUnits)}
	if err := validateTimeScope(ts); err != nil {
		return err
	}
	res, err := parseResolution(resolution)
	if err != nil {
		return err
	}
	if res == types.ResolutionMonthly && ts.Units == types.UnitsDay {
		return errors.Validation("filter[resolution]",
			"monthly resolution is inconsistent with a day-based time scope")
	}

	spec.TimeScope = ts
	spec.Resolution = res
	spec.Range = ResolveTimeScope(ts, now)
	return nil
}

func parseResolution(raw string) (types.Resolution, error) {
	switch raw {
	case string(types.ResolutionDaily):
		return types.ResolutionDaily, nil
	case string(types.ResolutionMonthly):
		return types.ResolutionMonthly, nil
	default:
		return "", errors.Validationf("filter[resolution]", "%q is not a valid resolution", raw)
	}
}

// applyDelta validates the delta request: a single known metric, or two known
// metrics joined by a double underscore.
func applyDelta(spec *types.QuerySpec, deltaRaw string, opts *types.ReportTypeOptions) error {
	if deltaRaw == "" {
		return nil
	}
	if strings.Contains(deltaRaw, "__") {
		parts := strings.Split(deltaRaw, "__")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return errors.Validationf("delta", "only two fields may be compared in %q", deltaRaw)
		}
		for _, p := range parts {
			if !opts.LegalRatioField(p) {
				return errors.Validationf("delta",
					"%q is not a valid delta field for %s reports", p, string(opts.Type))
			}
		}
		spec.Delta = &types.DeltaSpec{RatioA: parts[0], RatioB: parts[1]}
		return nil
	}

	name := opts.ResolveDeltaAlias(deltaRaw)
	if !opts.LegalDelta(name) {
		return errors.Validationf("delta",
			"%q is not a valid delta for %s reports", deltaRaw, string(opts.Type))
	}
	spec.Delta = &types.DeltaSpec{Metric: name}
	return nil
}

// crossValidate enforces rules spanning multiple parameters
func crossValidate(spec *types.QuerySpec) error {
	if spec.OrderBy != nil {
		if tag := spec.OrderBy.Tag; tag != nil && !spec.GroupByTag(tag.TagKey) {
			return errors.Validationf("order_by[tag:"+tag.TagKey+"]",
				"order_by[tag:%s] requires a matching group_by[tag:%s]", tag.TagKey, tag.TagKey)
		}
		if spec.OrderBy.Field == "delta" && spec.Delta == nil {
			return errors.Validation("order_by[delta]", "cannot order by delta without a delta parameter")
		}
	}
	if spec.KeyOnly && !spec.HasGroupBy() {
		return errors.Validation("key_only", "key_only requires at least one group_by dimension")
	}
	return nil
}
