// Package cmd - query command
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"cost-reports/core/engine"
	"cost-reports/core/types"
	"cost-reports/internal/config"
	"cost-reports/store/sqlite"
)

var queryDB string

// queryCmd runs one report query against the local database
var queryCmd = &cobra.Command{
	Use:   "query <report> [parameters]",
	Short: "Run a report query locally",
	Long: `Run one report query against the summary database and print the
result as JSON. Parameters use the same query-string language as the
HTTP API.

Examples:
  cost-reports query costs
  cost-reports query costs 'group_by[project]=*&filter[limit]=5'
  cost-reports query memory 'group_by[cluster]=*&delta=usage__capacity'
  cost-reports query volume 'group_by[tag:app]=*&key_only=true'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryDB, "db", "", "summary database path (overrides config)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if queryDB != "" {
		cfg.Store.DatabasePath = queryDB
	}

	report := types.ReportType(args[0])
	raw := url.Values{}
	if len(args) > 1 {
		parsed, err := url.ParseQuery(args[1])
		if err != nil {
			return fmt.Errorf("invalid parameters: %w", err)
		}
		raw = parsed
	}

	store, err := sqlite.Open(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	eng := engine.New(store, store, cfg.Query)
	resp, err := eng.Execute(context.Background(), report, raw)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if resp.Spec.KeyOnly {
		return enc.Encode(map[string]interface{}{"data": resp.Keys})
	}
	return enc.Encode(resp.Report)
}
