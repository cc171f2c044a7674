package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"unitscope/internal/config"
	"unitscope/internal/crash"
	"unitscope/internal/logging"
	"unitscope/internal/paths"
	"unitscope/internal/perf"
	"unitscope/internal/tui"
)

var (
	logLevel    string
	enableTrace bool

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "unitscope",
	Short: "Interactive terminal viewer for host service diagnostics",
	Long: `unitscope watches a host's services from the terminal.

Diagnostics live under the data directory: a daily-rotating log file, optional
chrome://tracing performance captures (--trace) and crash dumps.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func Execute() error {
	return rootCmd.Execute()
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"minimum log severity (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&enableTrace, "trace", false,
		"record performance events to a chrome://tracing file")
}

// run is the startup sequence: resolve directories, load config, install the
// log pipeline, optionally enable tracing, arm the crash boundary, run the UI.
func run(_ *cobra.Command, _ []string) (err error) {
	dataDir, err := paths.DataDir()
	if err != nil {
		return err
	}
	configDir, err := paths.ConfigDir()
	if err != nil {
		return err
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if enableTrace {
		cfg.Trace = true
	}

	guard, err := logging.Init(dataDir, logging.Options{
		Level:        logging.ParseLevel(cfg.LogLevel),
		FeedCapacity: cfg.FeedLines,
	})
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer func() {
		if cerr := guard.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	log := slog.With("component", "startup")
	log.Info("logging initialized", "directory", dataDir)

	recorder := perf.New()
	if cfg.Trace {
		if err := recorder.Enable(dataDir); err != nil {
			return fmt.Errorf("enabling tracing: %w", err)
		}
		log.Info("performance tracing enabled", "path", recorder.Path())
	}

	boundary := crash.NewBoundary(
		crash.WithDumpWriter(crash.NewDumpWriter(filepath.Join(dataDir, "crashdumps"), 10)),
		crash.WithFlush(guard.Close),
	)
	defer boundary.Recover()

	program := tea.NewProgram(
		tui.New(guard.Feed(), recorder, appVersion),
		tea.WithAltScreen(),
	)
	return runProgram(boundary, program)
}

// uiProgram is the slice of tea.Program the run path needs.
type uiProgram interface {
	Run() (tea.Model, error)
	ReleaseTerminal() error
}

// runProgram arms the boundary with the program's terminal-restore primitive
// and runs the UI. The restore hook must stay registered through the entire
// unwind: a panic escaping Run is handled by the deferred Recover in run,
// which restores the terminal before reporting.
func runProgram(boundary *crash.Boundary, program uiProgram) error {
	boundary.SetRestore(program.ReleaseTerminal)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}
