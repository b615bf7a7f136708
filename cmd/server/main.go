// Command server runs the chatrelay chat relay.
//
// Usage:
//
//	server [serve] [--config path]   run the HTTP server (default)
//	server migrate [--config path]   apply PostgreSQL migrations and exit
//
// Configuration is read from a YAML file and CHATRELAY_* environment
// variables; see pkg/config. OLLAMA_BASE_URL, OLLAMA_MODEL and
// OPENAI_API_KEY are honored as well.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rhuss/chatrelay/pkg/config"
	"github.com/rhuss/chatrelay/pkg/debug"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)
		return cfg, nil
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat relay HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL schema migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Type != "postgres" {
				return fmt.Errorf("migrate requires storage.type \"postgres\", got %q", cfg.Storage.Type)
			}
			return runMigrate(cmd.Context(), cfg)
		},
	}

	root := &cobra.Command{
		Use:           "server",
		Short:         "Stream chat completions from an Ollama-compatible model server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	root.AddCommand(serve, migrate)

	return root
}
