package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cost-reports/core/driver"
	"cost-reports/core/types"
	"cost-reports/internal/errors"
)

// record is one scanned summary row, exposing dimension values for the
// filter match test
type record struct {
	date    time.Time
	plain   map[string]string
	labels  map[string]string
	columns map[string]decimal.Decimal
}

// DimensionValues implements filter.ValueSource. Plain dimensions yield at
// most one value; tag dimensions yield the label value at the key. Null and
// missing values yield none.
func (r *record) DimensionValues(d types.Dimension) []string {
	if d.Kind == types.DimensionTag {
		if v, ok := r.labels[d.TagKey]; ok {
			return []string{v}
		}
		return nil
	}
	if v := r.plain[d.Name]; v != "" {
		return []string{v}
	}
	return nil
}

// firstValue returns the record's value for a grouping dimension, empty for
// null-key records
func (r *record) firstValue(d types.Dimension) string {
	vals := r.DimensionValues(d)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// scan reads all summary rows within a window
func (s *Store) scan(ctx context.Context, rng types.DateRange) ([]*record, error) {
	query := "SELECT usage_start, cluster, project, node, labels, " +
		strings.Join(metricColumns, ", ") +
		" FROM daily_summary WHERE usage_start >= ? AND usage_start < ?"

	rows, err := s.db.QueryContext(ctx, query,
		rng.Start.UTC().Format("2006-01-02"),
		rng.End.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, errors.Backend("querying summary rows", err)
	}
	defer rows.Close()

	var out []*record
	for rows.Next() {
		var (
			usageStart             string
			cluster, project, node sql.NullString
			labelJSON              string
		)
		metricRaw := make([]string, len(metricColumns))

		dest := []interface{}{&usageStart, &cluster, &project, &node, &labelJSON}
		for i := range metricRaw {
			dest = append(dest, &metricRaw[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Backend("scanning summary row", err)
		}

		date, err := time.ParseInLocation("2006-01-02", usageStart, time.UTC)
		if err != nil {
			return nil, errors.Internal("parsing usage_start", err)
		}
		labels := map[string]string{}
		if err := json.Unmarshal([]byte(labelJSON), &labels); err != nil {
			return nil, errors.Internal("decoding labels", err)
		}

		rec := &record{
			date: date,
			plain: map[string]string{
				"cluster": cluster.String,
				"project": project.String,
				"node":    node.String,
			},
			labels:  labels,
			columns: make(map[string]decimal.Decimal, len(metricColumns)),
		}
		for i, name := range metricColumns {
			v, err := decimal.NewFromString(metricRaw[i])
			if err != nil {
				return nil, errors.Internal("parsing metric column "+name, err)
			}
			rec.columns[name] = v
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Backend("iterating summary rows", err)
	}
	return out, nil
}

// Aggregate implements driver.Aggregator: one output row per (date bucket,
// distinct group value combination) with at least one matching record.
// Metric sums are taken over the report type's source columns.
func (s *Store) Aggregate(ctx context.Context, req driver.AggregateRequest) ([]types.AggregateRow, error) {
	opts, ok := types.Options(req.Report)
	if !ok {
		return nil, errors.NotFound("report type", string(req.Report))
	}

	records, err := s.scan(ctx, req.Range)
	if err != nil {
		return nil, err
	}

	acc := make(map[string]*types.AggregateRow)
	var order []string
	for _, rec := range records {
		if !req.Predicates.Matches(rec) {
			continue
		}

		date := types.Truncate(rec.date, req.Resolution)
		values := make([]string, len(req.GroupBy))
		for i, dim := range req.GroupBy {
			values[i] = rec.firstValue(dim)
		}
		key := date.Format("2006-01-02") + "\x1f" + strings.Join(values, "\x1f")

		row, seen := acc[key]
		if !seen {
			row = &types.AggregateRow{
				Date:    date,
				Metrics: make(map[string]decimal.Decimal, len(req.Metrics)),
			}
			for i, dim := range req.GroupBy {
				row.GroupValues = append(row.GroupValues, types.GroupValue{Dimension: dim, Value: values[i]})
			}
			acc[key] = row
			order = append(order, key)
		}
		for _, metric := range req.Metrics {
			sum := row.Metrics[metric]
			for _, col := range opts.SourceColumns[metric] {
				sum = sum.Add(rec.columns[col])
			}
			row.Metrics[metric] = sum
		}
	}

	sort.Strings(order)
	out := make([]types.AggregateRow, 0, len(order))
	for _, key := range order {
		out = append(out, *acc[key])
	}
	return out, nil
}

// DistinctKeys implements driver.Aggregator: the distinct non-null values of
// one dimension among matching records in the window
func (s *Store) DistinctKeys(ctx context.Context, req driver.KeyRequest) ([]string, error) {
	records, err := s.scan(ctx, req.Range)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var keys []string
	for _, rec := range records {
		if !req.Predicates.Matches(rec) {
			continue
		}
		for _, v := range rec.DimensionValues(req.Dimension) {
			if !seen[v] {
				seen[v] = true
				keys = append(keys, v)
			}
		}
	}
	return keys, nil
}

// EnabledTagKeys implements driver.TagKeyRegistry
func (s *Store) EnabledTagKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM tag_keys WHERE enabled = 1 ORDER BY key")
	if err != nil {
		return nil, errors.Backend("querying tag keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Backend("scanning tag key", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Backend("iterating tag keys", err)
	}
	return keys, nil
}
