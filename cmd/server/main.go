// Package main - Entry point for the cost report server
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"cost-reports/api"
	"cost-reports/core/engine"
	"cost-reports/internal/config"
	"cost-reports/internal/logging"
	"cost-reports/store/sqlite"
)

const version = "1.0.0"

func main() {
	addr := flag.String("addr", "", "listen address (overrides config)")
	cfgFile := flag.String("config", "", "config file path")
	dbPath := flag.String("db", "", "summary database path (overrides config)")
	flag.Parse()

	cfg := config.Get()
	if *cfgFile != "" {
		loaded, err := config.Load(*cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Set(loaded)
		cfg = loaded
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Store.DatabasePath = *dbPath
	}

	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	store, err := sqlite.Open(cfg.Store.DatabasePath)
	if err != nil {
		logging.Fatal("opening store: " + err.Error())
	}
	defer store.Close()

	eng := engine.New(store, store, cfg.Query)
	apiServer := api.NewServer(eng, version)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      apiServer,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	logging.Info("cost report server listening on " + cfg.Server.Addr)
	if err := server.ListenAndServe(); err != nil {
		logging.Fatal(err.Error())
	}
}
