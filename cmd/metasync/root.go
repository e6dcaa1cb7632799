package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/metasync/internal/config"
	"github.com/JonMunkholm/metasync/internal/logging"
)

func newRootCommand() *cobra.Command {
	ctx := newCommandContext()

	rootCmd := &cobra.Command{
		Use:           "metasync",
		Short:         "Write spreadsheet columns into media library clip metadata",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logging.SetupWriter(cmd.ErrOrStderr(), ctx.logLevel(cfg), cfg.Logging.Format)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.backend, "backend", "", "Library backend: sqlite, filesystem, postgres or memory (env HOST_BACKEND)")
	flags.StringVar(&ctx.library, "library", "", "SQLite library file or media root directory (env HOST_LIBRARY_PATH)")
	flags.StringVar(&ctx.credentials, "credentials", "", "Service account key for the Sheets API (env SHEETS_CREDENTIALS_PATH)")
	flags.BoolVarP(&ctx.verbose, "verbose", "v", false, "Log every row to stderr")

	rootCmd.AddCommand(newApplyCommand(ctx))
	rootCmd.AddCommand(newPreviewCommand(ctx))
	rootCmd.AddCommand(newHeadersCommand(ctx))
	rootCmd.AddCommand(newLibraryCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// commandContext holds the global flags and the configuration they shape.
type commandContext struct {
	backend     string
	library     string
	credentials string
	verbose     bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

// ensureConfig loads .env and the environment once. Flags take precedence
// over both and go through the same validation.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := godotenv.Load(); err == nil {
			slog.Debug("loaded .env file")
		}
		c.config, c.configErr = config.LoadFrom(c.getenv)
	})
	return c.config, c.configErr
}

func (c *commandContext) getenv(key string) string {
	overrides := map[string]string{
		"HOST_BACKEND":            c.backend,
		"HOST_LIBRARY_PATH":       c.library,
		"SHEETS_CREDENTIALS_PATH": c.credentials,
	}
	if v := strings.TrimSpace(overrides[key]); v != "" {
		return v
	}
	return os.Getenv(key)
}

// logLevel keeps the CLI quiet unless asked: warnings only, unless
// LOG_LEVEL is set or --verbose is given.
func (c *commandContext) logLevel(cfg *config.Config) string {
	switch {
	case c.verbose:
		return "debug"
	case os.Getenv("LOG_LEVEL") != "":
		return cfg.Logging.Level
	}
	return "warn"
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
