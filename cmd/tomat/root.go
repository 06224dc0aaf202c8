package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/arsetyo/tomat/internal/clock"
	"github.com/arsetyo/tomat/internal/config"
	"github.com/arsetyo/tomat/internal/session"
	"github.com/arsetyo/tomat/internal/task"
	"github.com/arsetyo/tomat/internal/tui"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tomat",
	Short: "A Pomodoro timer for polyglot programmers",
	Long: `tomat times focused work intervals against tasks tagged by
programming language, appends completed intervals to a durable CSV
session log, and charts the accumulated effort.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSession,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/tomat/config.yaml)")
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tomat version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tomat", Version)
	},
}

// deps holds everything a command needs after startup wiring.
type deps struct {
	cfg      *config.Config
	logger   zerolog.Logger
	log      *session.Log
	registry *task.Registry
}

// setup loads config, opens the diagnostics log and the session log,
// and rebuilds the task registry by replaying the log. A session log
// that cannot be opened is fatal here, before any timer starts.
func setup() (*deps, error) {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger, err := openLogger(cfg)
	if err != nil {
		return nil, err
	}

	sessionLog, err := session.New(cfg.SessionRoot(), logger)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}

	registry, skipped := task.Rebuild(sessionLog.All())
	if skipped > 0 {
		logger.Warn().Int("rows", skipped).Msg("skipped unreadable rows while rebuilding registry")
	}

	logger.Info().
		Str("version", Version).
		Str("sessions", cfg.SessionRoot()).
		Int("tasks", registry.Len()).
		Msg("starting tomat")

	return &deps{cfg: cfg, logger: logger, log: sessionLog, registry: registry}, nil
}

// openLogger writes diagnostics to a file: the TUI owns the terminal.
func openLogger(cfg *config.Config) (zerolog.Logger, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return zerolog.Nop(), fmt.Errorf("creating data dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("opening log file: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(f).Level(level).With().Timestamp().Logger(), nil
}

func runSession(cmd *cobra.Command, args []string) error {
	d, err := setup()
	if err != nil {
		return err
	}

	app := tui.NewApp(d.cfg, d.log, d.registry, clock.System{}, d.logger)
	p := tea.NewProgram(app, tea.WithAltScreen())

	m, err := p.Run()
	if err != nil {
		return err
	}
	if a, ok := m.(tui.App); ok && a.Err() != nil {
		return a.Err()
	}
	return nil
}
