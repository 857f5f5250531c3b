package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ignite/similarweb-ingest/internal/config"
	"github.com/ignite/similarweb-ingest/internal/pkg/logger"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands
	debug bool
)

// newRootCommand builds the command tree.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "similarweb-ingest",
		Short:         "Load Similarweb traffic into the analytics warehouse",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "config/config.yaml", "config file (optional)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newRunCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newEnsureTableCommand())
	root.AddCommand(newPreviewCommand())
	return root
}

// Execute runs the root command
func Execute() error {
	root := newRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", logger.RedactURL(err.Error()))
		return err
	}
	return nil
}

// loadConfig resolves configuration and initialises logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Logging.Development); err != nil {
		return nil, err
	}
	return cfg, nil
}
