// Package cmd - serve command
package cmd

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"cost-reports/api"
	"cost-reports/core/engine"
	"cost-reports/internal/config"
	"cost-reports/internal/logging"
	"cost-reports/store/sqlite"
)

var (
	serveAddr string
	serveDB   string
)

// serveCmd starts the HTTP report server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report API over HTTP",
	Long: `Start the HTTP report server backed by the summary database.

Examples:
  cost-reports serve
  cost-reports serve --addr :9000 --db ./summary.db`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "summary database path (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveDB != "" {
		cfg.Store.DatabasePath = serveDB
	}

	store, err := sqlite.Open(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	eng := engine.New(store, store, cfg.Query)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewServer(eng, version),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	logging.Info("cost report server listening on " + cfg.Server.Addr)
	return server.ListenAndServe()
}
