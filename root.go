package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/gotmail/gotmail-go/internal/api"
	"github.com/gotmail/gotmail-go/internal/cache"
	"github.com/gotmail/gotmail-go/internal/config"
	"github.com/gotmail/gotmail-go/internal/session"
	"github.com/gotmail/gotmail-go/internal/tokenstore"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagServer     string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// cfg holds the effective configuration loaded by PersistentPreRunE.
var cfg config.Config

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gotmail",
		Short:   "GotMail client",
		Long:    "Command-line client for the GotMail email service.",
		Version: version,
		// Silence cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			loaded, err := config.Load(flagConfigPath)
			if err != nil {
				return err
			}

			if flagServer != "" {
				loaded.Server.BaseURL = flagServer
			}

			cfg = loaded

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagServer, "server", "", "service base URL")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newProfileCmd())
	cmd.AddCommand(newSettingsCmd())

	return cmd
}

// buildLogger creates an slog.Logger from the resolved config and CLI
// flags. Config supplies the baseline level; --verbose and --quiet win.
// Format "auto" picks text on a terminal and JSON otherwise, so piped
// output stays machine-readable.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	format := cfg.Logging.Format
	if format == "" || format == "auto" {
		if isatty.IsTerminal(os.Stderr.Fd()) {
			format = "text"
		} else {
			format = "json"
		}
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newSession assembles the session stack: token store, API client bound
// to the session, and (when enabled) the offline cache. The returned
// cleanup func closes the cache.
func newSession(logger *slog.Logger) (*session.Session, func(), error) {
	store := tokenstore.New(config.TokenPath(), logger)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout(api.DefaultTimeout)}
	client := api.NewClient(cfg.Server.BaseURL, httpClient, nil, logger)

	opts := []session.Option{}

	if id, err := config.DeviceID(""); err == nil {
		opts = append(opts, session.WithDeviceID(id))
	} else {
		logger.Warn("device id unavailable", slog.String("error", err.Error()))
	}

	cleanup := func() {}

	if cfg.Cache.Enabled {
		path := cfg.Cache.Path
		if path == "" {
			path = config.CachePath()
		}

		snapshots, err := cache.Open(path, logger)
		if err != nil {
			// The cache is an optimization; a broken cache never blocks login.
			logger.Warn("opening offline cache failed", slog.String("error", err.Error()))
		} else {
			opts = append(opts, session.WithCache(snapshots))
			cleanup = func() { snapshots.Close() }
		}
	}

	return session.New(client, store, logger, opts...), cleanup, nil
}

// statusf prints user-facing status output unless --quiet is set.
func statusf(format string, args ...any) {
	if flagQuiet {
		return
	}

	fmt.Printf(format, args...)
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
