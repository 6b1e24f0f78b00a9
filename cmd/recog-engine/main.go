// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the recog-engine CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/recog-engine/internal/logging"
	"github.com/pdiddy/recog-engine/internal/secrets"
	"github.com/pdiddy/recog-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// appConfig is resolved once per invocation from the config file,
	// the environment and .secrets/.
	appConfig types.Config

	logger = zap.NewNop()
)

// rootCmd is the base command for the recog-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "recog-engine",
	Short: "Recognition of academic modules across institutions",
	Long: `recog-engine helps an examination office decide whether a module completed
elsewhere can be recognized for a module of its own catalog.

A chat model extracts structured metadata from the external module description,
a similarity index suggests comparable catalog modules, and the chat model
judges the external module against the selected internal one.

The stages are available as subcommands (extract, suggest, examine), end to
end (recognize), or as a JSON HTTP API (serve).`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./recog-engine.yaml or ~/.config/recog-engine/config.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of secret files")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
}

// setup loads .env, the config and secrets, and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, used, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	l, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	logger = l
	if used != "" {
		logger.Info("using config file", zap.String("path", used))
	}

	dir, _ := cmd.Flags().GetString("secrets-dir")
	s, err := secrets.Load(dir, logger)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		keys := make([]string, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		logger.Info("loaded secrets", zap.Strings("keys", keys))
	}
	secrets.Apply(s, &cfg)

	appConfig = cfg
	return nil
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
