package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/balazsgrill/synapse/internal/config"
	"github.com/balazsgrill/synapse/internal/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "synapse",
	Short: "Synapse - delivery disruption scenario gateway",
	Long: `Synapse forwards free-text delivery disruption scenarios to a reasoning
service and keeps the resulting plans as execution records.

Available commands:
  serve   - Run the proxy gateway in front of the reasoning service
  console - Submit scenarios interactively through a running gateway

Examples:
  MCP_SERVER_URL=http://localhost:8000 synapse serve
  synapse console --gateway http://localhost:3000`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (toml, yaml or json)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(consoleCmd)
}

// loadRuntime reads configuration and builds the logger every command needs.
func loadRuntime() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.JSON)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize logger")
	}
	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
