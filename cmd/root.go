package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Tiliavir/horas/internal/config"
	"github.com/Tiliavir/horas/internal/storage"
)

var settings = viper.New()

var rootCmd = &cobra.Command{
	Use:   "horas",
	Short: "horas – push tracked time to issue tracker worklogs",
	Long: `horas reads time entries from a time-tracking source, totals them per
day and description, and writes each total as a worklog to the ticket its
description mentions. Repeated runs update worklogs instead of duplicating
them. Configuration lives in ~/.horas/config.json.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// exitError carries a process exit code other than 1.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (default ~/.horas/config.json)")
	pf.String("dsn", "", "Task store DSN, overrides database.dsn")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.BoolP("verbose", "v", false, "Shorthand for --log-level debug")

	for _, name := range []string{"config", "dsn", "log-level", "verbose"} {
		_ = settings.BindPFlag(name, pf.Lookup(name))
	}
	settings.SetEnvPrefix("horas")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
}

func setupLogging(cmd *cobra.Command, args []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(settings.GetString("log-level"))); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	if settings.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig reads the configuration named by --config / HORAS_CONFIG.
func loadConfig() (config.Config, error) {
	return config.Load(settings.GetString("config"))
}

// openStore opens the task store configured in cfg. --dsn / HORAS_DSN
// replaces the configured DSN.
func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	dsn := cfg.Database.DSN
	if v := settings.GetString("dsn"); v != "" {
		dsn = v
	}
	return storage.Open(ctx, cfg.Database.Driver, dsn)
}
