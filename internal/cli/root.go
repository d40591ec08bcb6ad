// Package cli is the aion command line: the paper runtime, the decision
// pipeline checkpoints, the closed-trade journal and config tooling.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/aion/config"
)

// RootConfig holds the global flags and the loaded configuration.
type RootConfig struct {
	ConfigPath string
	RuntimeDir string
	DBPath     string
	LogLevel   string
	NoColor    bool
	// MetricsFile receives the process counters in the node_exporter
	// textfile format after each successful command.
	MetricsFile string

	Config *config.Config
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:   "aion",
		Short: "aion: paper-trading decision gate and daily bias checkpoints",
		Long: `aion runs paper trades through the phase, limits and risk gates, keeps an
append-only event journal, and builds per-pair bias sheets at session
checkpoints.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.RuntimeDir, "runtime-dir", "", "Paper runtime persistence directory (overrides config)")
	cmd.PersistentFlags().StringVar(&rc.DBPath, "db", "", "SQLite closed-trade journal (overrides config)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().BoolVar(&rc.NoColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(&rc.MetricsFile, "metrics-textfile", "", "Write Prometheus counters to this file when done")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return rc.load(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if rc.MetricsFile == "" {
			return nil
		}
		if err := prometheus.WriteToTextfile(rc.MetricsFile, prometheus.DefaultGatherer); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		return nil
	}

	cmd.AddCommand(
		newSubmitCmd(rc),
		newManageCmd(rc),
		newCloseCmd(rc),
		newGetCmd(rc),
		newListCmd(rc),
		newSnapshotCmd(rc),
		newRestoreCmd(rc),
		newResetCmd(rc),
		newCheckpointCmd(rc),
		newSynthesizeCmd(rc),
		newJournalCmd(rc),
		newConfigCmd(),
		newStrategiesCmd(),
		newVersionCmd(),
	)
	return cmd
}

// load reads the config file, applies flag overrides and sets up logging.
func (rc *RootConfig) load(cmd *cobra.Command) error {
	cfg := config.Default()
	if rc.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(rc.ConfigPath); err != nil {
			return err
		}
	}
	if rc.ConfigPath == "" || cmd.Flags().Changed("log-level") {
		cfg.Log.Level = rc.LogLevel
	}
	if rc.RuntimeDir != "" {
		cfg.Persistence.Enabled = true
		cfg.Persistence.BaseDir = rc.RuntimeDir
	}
	if rc.DBPath != "" {
		cfg.Journal.Type = "sqlite"
		cfg.Journal.DBPath = rc.DBPath
	}
	if err := setupLogging(cmd.ErrOrStderr(), cfg.Log.Level, rc.NoColor); err != nil {
		return err
	}
	rc.Config = cfg
	return nil
}

func setupLogging(w io.Writer, level string, noColor bool) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return fmt.Errorf("bad --log-level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
	return nil
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
