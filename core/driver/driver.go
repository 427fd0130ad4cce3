// Package driver issues aggregate calls against the aggregation backend.
// It performs reads only and never retries; transient backend failures
// propagate to the caller.
package driver

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cost-reports/core/filter"
	"cost-reports/core/param"
	"cost-reports/core/types"
	"cost-reports/internal/errors"
	"cost-reports/internal/logging"
)

// AggregateRequest asks the backend for summed rows per (bucket, group combo)
type AggregateRequest struct {
	// Report selects the metric source columns
	Report types.ReportType

	// Predicates is the resolved include/exclude set
	Predicates *filter.ResolvedPredicates

	// GroupBy is the ordered list of grouping dimensions
	GroupBy []types.Dimension

	// Resolution is the date truncation to apply
	Resolution types.Resolution

	// Range is the reporting window
	Range types.DateRange

	// Metrics names the metric sums to produce
	Metrics []string
}

// KeyRequest asks the backend for the distinct values of one dimension
type KeyRequest struct {
	// Dimension is the key dimension
	Dimension types.Dimension

	// Predicates is the resolved include/exclude set
	Predicates *filter.ResolvedPredicates

	// Range is the reporting window
	Range types.DateRange
}

// Aggregator is the aggregation backend capability this engine consumes
type Aggregator interface {
	// Aggregate returns one row per (date bucket, distinct group values)
	// with at least one matching underlying record
	Aggregate(ctx context.Context, req AggregateRequest) ([]types.AggregateRow, error)

	// DistinctKeys returns the distinct values of a dimension in the window
	DistinctKeys(ctx context.Context, req KeyRequest) ([]string, error)
}

// TagKeyRegistry is the external tag-key registry capability
type TagKeyRegistry interface {
	// EnabledTagKeys returns the tenant's currently enabled label keys
	EnabledTagKeys(ctx context.Context) ([]string, error)
}

// Result carries the backend rows for one query
type Result struct {
	// Current holds the reporting-window rows
	Current []types.AggregateRow

	// Prior holds the comparison-window rows for single-metric deltas
	Prior []types.AggregateRow

	// PriorRange is the comparison window when Prior was fetched
	PriorRange *types.DateRange
}

// Driver runs aggregate calls for validated queries
type Driver struct {
	backend Aggregator
}

// New creates a driver over an aggregation backend
func New(backend Aggregator) *Driver {
	return &Driver{backend: backend}
}

// Run fetches the current-period rows and, for period-over-period deltas,
// the prior-period rows. The two calls share predicates and run
// concurrently; neither depends on the other.
func (d *Driver) Run(ctx context.Context, spec *types.QuerySpec, preds *filter.ResolvedPredicates) (*Result, error) {
	opts, _ := types.Options(spec.Report)
	base := AggregateRequest{
		Report:     spec.Report,
		Predicates: preds,
		GroupBy:    preds.GroupBy,
		Resolution: spec.Resolution,
		Range:      spec.Range,
		Metrics:    opts.MetricNames(),
	}

	result := &Result{}
	needPrior := spec.Delta != nil && !spec.Delta.IsRatio()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := d.backend.Aggregate(gctx, base)
		if err != nil {
			return errors.Backend("aggregating current period", err)
		}
		result.Current = rows
		return nil
	})
	if needPrior {
		prior := base
		priorRange := param.PriorRange(spec.Range, spec.Resolution)
		prior.Range = priorRange
		result.PriorRange = &priorRange
		g.Go(func() error {
			rows, err := d.backend.Aggregate(gctx, prior)
			if err != nil {
				return errors.Backend("aggregating prior period", err)
			}
			result.Prior = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Debug("aggregation complete",
		zap.Int("current_rows", len(result.Current)),
		zap.Int("prior_rows", len(result.Prior)),
		zap.Bool("prior_fetched", needPrior))
	return result, nil
}

// Keys runs the key_only path: the sorted, deduplicated values of the first
// group-by dimension, with no metric aggregation.
func (d *Driver) Keys(ctx context.Context, spec *types.QuerySpec, preds *filter.ResolvedPredicates) ([]string, error) {
	keys, err := d.backend.DistinctKeys(ctx, KeyRequest{
		Dimension:  preds.GroupBy[0],
		Predicates: preds,
		Range:      spec.Range,
	})
	if err != nil {
		return nil, errors.Backend("listing distinct keys", err)
	}

	seen := make(map[string]bool, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}
