// Package engine provides the API-primary report query engine.
// HTTP and CLI are thin wrappers around this engine.
package engine

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"cost-reports/core/delta"
	"cost-reports/core/driver"
	"cost-reports/core/filter"
	"cost-reports/core/param"
	"cost-reports/core/rank"
	"cost-reports/core/tree"
	"cost-reports/core/types"
	"cost-reports/internal/config"
	"cost-reports/internal/errors"
	"cost-reports/internal/logging"
)

// Engine runs report queries end to end: parameter validation, filter
// resolution, aggregation, ranking, delta calculation, and tree assembly.
type Engine struct {
	drv   *driver.Driver
	tags  driver.TagKeyRegistry
	query config.QueryConfig

	// now is injectable for deterministic tests
	now func() time.Time
}

// Option customizes an Engine
type Option func(*Engine)

// WithClock overrides the engine's time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over an aggregation backend and tag-key registry
func New(backend driver.Aggregator, tags driver.TagKeyRegistry, query config.QueryConfig, opts ...Option) *Engine {
	e := &Engine{
		drv:   driver.New(backend),
		tags:  tags,
		query: query,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Response is the outcome of one query. Exactly one of Report or Keys is
// populated: Keys when the query requested key_only, Report otherwise.
type Response struct {
	// Report is the assembled result tree
	Report *tree.Report

	// Keys is the sorted distinct key list for key_only queries
	Keys []string

	// Spec is the validated query, exposed for link building and logging
	Spec *types.QuerySpec
}

// Execute validates raw query parameters against the report type and runs
// the full pipeline. Validation failures surface as TypeValidation errors
// with the offending parameter named; backend failures as TypeBackend.
func (e *Engine) Execute(ctx context.Context, report types.ReportType, raw url.Values) (*Response, error) {
	opts, ok := types.Options(report)
	if !ok {
		return nil, errors.NotFound("report type", string(report))
	}

	tagKeys, err := e.tags.EnabledTagKeys(ctx)
	if err != nil {
		return nil, errors.Backend("listing enabled tag keys", err)
	}

	spec, err := param.Parse(report, raw, tagKeys, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.applyLimits(spec); err != nil {
		return nil, err
	}

	preds := filter.Resolve(spec)

	if spec.KeyOnly {
		keys, err := e.drv.Keys(ctx, spec, preds)
		if err != nil {
			return nil, err
		}
		return &Response{Keys: keys, Spec: spec}, nil
	}

	result, err := e.drv.Run(ctx, spec, preds)
	if err != nil {
		return nil, err
	}

	ranking := e.rank(spec, opts, result)
	totals := applyDelta(spec, ranking, result)

	builder := &tree.Builder{Spec: spec, Opts: opts, Currency: e.query.Currency}
	rep := builder.Build(ranking, result.Current, totals)

	logging.Debug("query executed",
		zap.String("report", string(report)),
		zap.Int("rows", len(result.Current)),
		zap.Int("count", rep.Meta.Count),
		zap.Int("others", rep.Meta.Others))
	return &Response{Report: rep, Spec: spec}, nil
}

// TagKeys returns the tenant's enabled label keys
func (e *Engine) TagKeys(ctx context.Context) ([]string, error) {
	keys, err := e.tags.EnabledTagKeys(ctx)
	if err != nil {
		return nil, errors.Backend("listing enabled tag keys", err)
	}
	return keys, nil
}

// applyLimits fills the configured default limit and enforces the cap
func (e *Engine) applyLimits(spec *types.QuerySpec) error {
	if spec.Limit == 0 && e.query.DefaultLimit > 0 {
		spec.Limit = e.query.DefaultLimit
	}
	if e.query.MaxLimit > 0 && spec.Limit > e.query.MaxLimit {
		return errors.Validationf("filter[limit]", "limit exceeds maximum of %d", e.query.MaxLimit)
	}
	return nil
}

// rank collapses the current-period rows. With grouping the first level is
// ranked and folded into Other(s); without it each date bucket becomes one
// flat entity.
func (e *Engine) rank(spec *types.QuerySpec, opts *types.ReportTypeOptions, result *driver.Result) *rank.Ranking {
	buckets := rank.BucketByDate(result.Current)
	if !spec.HasGroupBy() {
		return rank.Flatten(buckets)
	}

	dim := spec.GroupBy[0].Dimension
	p := rank.Params{
		Dimension:  dim,
		Descending: spec.OrderDirection() == types.Descending,
		Limit:      spec.Limit,
		Offset:     spec.Offset,
	}

	if orderTag(spec) != nil {
		// tag ordering ranks groups by the report's primary metric;
		// key order is only the tie-break inside Collapse
		p.OrderField = opts.PrimaryMetric
	} else {
		p.OrderField = spec.OrderField(opts)
	}

	if p.OrderField == "delta" {
		if spec.Delta.IsRatio() {
			p.Ratio = spec.Delta
		} else {
			p.OrderField = spec.Delta.Metric
			p.SortOverride = delta.PeriodSortOverride(result.Prior, *result.PriorRange, spec.Resolution, spec.Delta.Metric)
		}
	}

	return rank.Collapse(buckets, p)
}

// orderTag returns the ordering tag dimension when one was requested
func orderTag(spec *types.QuerySpec) *types.Dimension {
	if spec.OrderBy == nil {
		return nil
	}
	return spec.OrderBy.Tag
}

// applyDelta attaches per-group deltas and computes the aggregate totals
// when a comparison was requested
func applyDelta(spec *types.QuerySpec, ranking *rank.Ranking, result *driver.Result) *delta.Totals {
	if spec.Delta == nil {
		return nil
	}
	if spec.Delta.IsRatio() {
		delta.ApplyRatio(ranking, *spec.Delta)
		t := delta.RatioTotals(result.Current, *spec.Delta)
		return &t
	}
	delta.ApplyPeriod(ranking, result.Prior, *result.PriorRange, spec.Resolution, spec.Delta.Metric)
	t := delta.PeriodTotals(result.Current, result.Prior, spec.Delta.Metric)
	return &t
}
