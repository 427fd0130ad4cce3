// Package cmd provides the CLI commands for cost-reports.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cost-reports/internal/config"
	"cost-reports/internal/logging"
)

const version = "1.0.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cost-reports",
	Short: "Query cost and usage reports",
	Long: `cost-reports serves and queries aggregated cloud cost and usage data.

Reports are grouped, ranked, and compared with the same parameter language
the HTTP API accepts.

Examples:
  cost-reports serve --addr :8080
  cost-reports query costs 'group_by[project]=*&filter[limit]=5'
  cost-reports query cpu 'group_by[cluster]=*&delta=usage__capacity'`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cost-reports.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Set(cfg)
	}

	// Initialize logging
	cfg := config.Get()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cost-reports version " + version)
	},
}
