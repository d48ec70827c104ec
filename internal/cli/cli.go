// Package cli holds the scaffolding every binary shares: environment config, the
// logger, and fatal error reporting with exit status 1.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"catalogrecon/internal/config"
	"catalogrecon/internal/logging"
	"catalogrecon/internal/pipeline"
)

// FatalMarker prefixes the log line of an error that ends a run.
const FatalMarker = "FATAL"

type App struct {
	Config config.Config
	Log    *logrus.Logger
	Stdout io.Writer
	Stderr io.Writer

	envFile   string
	logLevel  string
	logFormat string
}

func NewApp() *App {
	return &App{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Command wires the shared persistent flags and config loading onto cmd.
func (a *App) Command(cmd *cobra.Command) *cobra.Command {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", "", "optional .env file (default .env when present)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "text or json (overrides LOG_FORMAT)")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(a.envFile)
		if err != nil {
			return err
		}
		if a.logLevel != "" {
			cfg.LogLevel = a.logLevel
		}
		if a.logFormat != "" {
			cfg.LogFormat = a.logFormat
		}
		log, err := logging.New(a.Stderr, cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		a.Config = cfg
		a.Log = log
		return nil
	}
	return cmd
}

// Run executes cmd and returns the process exit code.
func (a *App) Run(cmd *cobra.Command, args []string) int {
	return a.RunContext(context.Background(), cmd, args)
}

// RunContext is Run with a context that commands observe through cmd.Context().
func (a *App) RunContext(ctx context.Context, cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	cmd.SetOut(a.Stdout)
	cmd.SetErr(a.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		log := a.Log
		if log == nil {
			log = logrus.New()
			log.SetOutput(a.Stderr)
		}
		log.WithError(err).Error(FatalMarker)
		return 1
	}
	return 0
}

// Main runs cmd with the process arguments and exits with its status. SIGINT and
// SIGTERM cancel the command context.
func Main(a *App, cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := a.RunContext(ctx, cmd, os.Args[1:])
	stop()
	os.Exit(code)
}

// DataPath returns flagValue, or name inside CATALOG_DATA_DIR when the flag is unset.
func (a *App) DataPath(flagValue, name string) string {
	if flagValue != "" {
		return flagValue
	}
	return filepath.Join(a.Config.DataDir, name)
}

// PrintArtifacts lists the files a pipeline run produced.
func PrintArtifacts(w io.Writer, res pipeline.Result) {
	if res.Backup != "" {
		fmt.Fprintf(w, "Backup: %s\n", res.Backup)
	}
	if res.Output != "" {
		fmt.Fprintf(w, "Updated: %s\n", res.Output)
	}
	if res.Report != "" {
		fmt.Fprintf(w, "Report: %s\n", res.Report)
	}
}
