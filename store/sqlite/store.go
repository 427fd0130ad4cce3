// Package sqlite is the reference aggregation backend. It serves the
// engine's backend interfaces from a local daily_summary table so the
// system runs end to end without external infrastructure. Costs are stored
// as decimal strings; SQLite floats never touch a metric.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"cost-reports/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_summary (
	id              TEXT PRIMARY KEY,
	usage_start     TEXT NOT NULL,
	cluster         TEXT,
	project         TEXT,
	node            TEXT,
	labels          TEXT NOT NULL DEFAULT '{}',
	infra_raw_cost  TEXT NOT NULL DEFAULT '0',
	sup_raw_cost    TEXT NOT NULL DEFAULT '0',
	markup_cost     TEXT NOT NULL DEFAULT '0',
	cpu_usage       TEXT NOT NULL DEFAULT '0',
	cpu_request     TEXT NOT NULL DEFAULT '0',
	cpu_limit       TEXT NOT NULL DEFAULT '0',
	cpu_capacity    TEXT NOT NULL DEFAULT '0',
	mem_usage       TEXT NOT NULL DEFAULT '0',
	mem_request     TEXT NOT NULL DEFAULT '0',
	mem_limit       TEXT NOT NULL DEFAULT '0',
	mem_capacity    TEXT NOT NULL DEFAULT '0',
	vol_usage       TEXT NOT NULL DEFAULT '0',
	vol_request     TEXT NOT NULL DEFAULT '0',
	vol_capacity    TEXT NOT NULL DEFAULT '0'
);
CREATE INDEX IF NOT EXISTS idx_daily_summary_usage_start ON daily_summary(usage_start);

CREATE TABLE IF NOT EXISTS tag_keys (
	key     TEXT PRIMARY KEY,
	enabled INTEGER NOT NULL DEFAULT 1
);
`

// metricColumns fixes the scan and insert order of the summary columns
var metricColumns = []string{
	"infra_raw_cost", "sup_raw_cost", "markup_cost",
	"cpu_usage", "cpu_request", "cpu_limit", "cpu_capacity",
	"mem_usage", "mem_request", "mem_limit", "mem_capacity",
	"vol_usage", "vol_request", "vol_capacity",
}

// Store is a summary table in a local SQLite database
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "opening database", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.TypeConfig, "initializing schema", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// SummaryRow is one daily usage record to persist. Empty Cluster, Project,
// or Node are stored as NULL and land in the matching no-<dimension> bucket
// when grouped.
type SummaryRow struct {
	UsageStart time.Time
	Cluster    string
	Project    string
	Node       string
	Labels     map[string]string

	InfraRawCost decimal.Decimal
	SupRawCost   decimal.Decimal
	MarkupCost   decimal.Decimal

	CPUUsage    decimal.Decimal
	CPURequest  decimal.Decimal
	CPULimit    decimal.Decimal
	CPUCapacity decimal.Decimal

	MemUsage    decimal.Decimal
	MemRequest  decimal.Decimal
	MemLimit    decimal.Decimal
	MemCapacity decimal.Decimal

	VolUsage    decimal.Decimal
	VolRequest  decimal.Decimal
	VolCapacity decimal.Decimal
}

func (r *SummaryRow) metricValues() []decimal.Decimal {
	return []decimal.Decimal{
		r.InfraRawCost, r.SupRawCost, r.MarkupCost,
		r.CPUUsage, r.CPURequest, r.CPULimit, r.CPUCapacity,
		r.MemUsage, r.MemRequest, r.MemLimit, r.MemCapacity,
		r.VolUsage, r.VolRequest, r.VolCapacity,
	}
}

// Insert persists one summary row
func (s *Store) Insert(ctx context.Context, row SummaryRow) error {
	labels := row.Labels
	if labels == nil {
		labels = map[string]string{}
	}
	labelJSON, err := json.Marshal(labels)
	if err != nil {
		return errors.Internal("encoding labels", err)
	}

	cols := "id, usage_start, cluster, project, node, labels"
	args := []interface{}{
		uuid.New().String(),
		row.UsageStart.UTC().Format("2006-01-02"),
		nullable(row.Cluster),
		nullable(row.Project),
		nullable(row.Node),
		string(labelJSON),
	}
	values := row.metricValues()
	for i, name := range metricColumns {
		cols += ", " + name
		args = append(args, values[i].String())
	}
	placeholders := ""
	for i := range args {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
	}

	query := fmt.Sprintf("INSERT INTO daily_summary (%s) VALUES (%s)", cols, placeholders)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Backend("inserting summary row", err)
	}
	return nil
}

// SetTagKey records a label key in the registry with the given enablement
func (s *Store) SetTagKey(ctx context.Context, key string, enabled bool) error {
	flag := 0
	if enabled {
		flag = 1
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tag_keys (key, enabled) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET enabled = excluded.enabled",
		key, flag)
	if err != nil {
		return errors.Backend("storing tag key", err)
	}
	return nil
}

func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
