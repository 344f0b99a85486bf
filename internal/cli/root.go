// Package cli implements the cogsearchctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cogsearch-go/internal/app"
	"cogsearch-go/internal/config"
	"cogsearch-go/internal/model"
	"cogsearch-go/pkg/embedding"
	"cogsearch-go/pkg/log"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cogsearchctl",
	Short: "Manage search indexes, ingest documents and query them",
	Long: `cogsearchctl talks to the configured Elasticsearch cluster and embedding
deployments directly, without going through the HTTP API.

Example usage:
  cogsearchctl index create docs --kind cogsearchvs
  cogsearchctl ingest "manuals/**/*.pdf" --index docs --kind cogsearchvs
  cogsearchctl query -q "how do I reset it" --index docs --kind cogsearchvs`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		log.Init(level, "console", cfg.Log.OutputPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (env overrides only when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level for this invocation")
}

// withApp builds the component graph, runs fn and releases connections.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseKind(s string) (model.IndexKind, error) {
	return model.ParseIndexKind(s)
}

// parseModel falls back to the configured model type when s is empty.
func parseModel(s string) (embedding.ModelType, error) {
	if s == "" {
		s = cfg.Embedding.ModelType
	}
	return embedding.ParseModelType(s)
}
