package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/config"
	logpkg "github.com/kailas-cloud/newsdex/internal/logger"
	"github.com/kailas-cloud/newsdex/internal/metrics"
	"github.com/kailas-cloud/newsdex/internal/version"
)

// cli carries what every subcommand needs after PersistentPreRunE.
type cli struct {
	env      string
	logLevel string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "newsdex",
		Short: "Hybrid semantic and keyword retrieval over Spanish news",
		Long: `newsdex embeds a corpus of Spanish news articles with one of five
embedding strategies (tfidf, bm25, dpr, sbert, minilm), stores one vector
collection per strategy and answers hybrid queries that combine a free-text
prompt with scored article keywords.`,
		Version:           version.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.bootstrap,
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	cmd.SetVersionTemplate("newsdex {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&c.env, "env", config.GetEnv(), "Configuration environment (config/<env>.yaml)")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(c),
		newIndexCmd(c),
		newSearchCmd(c),
		newSimilarCmd(c),
		newCollectionsCmd(c),
		newTestSetCmd(c),
		newEvaluateCmd(c),
		newVersionCmd(),
	)
	return cmd
}

func (c *cli) bootstrap(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(c.env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := cfg.Logging.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	logger, err := logpkg.New(logpkg.Options{Env: c.env, Level: level, Format: cfg.Logging.Format})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	metrics.Register()

	c.cfg = cfg
	c.logger = logger.With(zap.String("command", cmd.CommandPath()))
	return nil
}
