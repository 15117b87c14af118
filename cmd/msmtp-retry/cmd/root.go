package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/psantana5/msmtp-retry/internal/config"
	"github.com/psantana5/msmtp-retry/internal/confirm"
	"github.com/psantana5/msmtp-retry/internal/logging"
	"github.com/psantana5/msmtp-retry/internal/report"
	"github.com/psantana5/msmtp-retry/internal/supervisor"
	"github.com/psantana5/msmtp-retry/internal/tty"
)

// runner holds the streams of one invocation and its exit code
type runner struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	exitCode int
}

// newRootCmd builds the only command. Flag parsing is disabled so that
// every argument, --help included, reaches the mail command untouched.
func newRootCmd(r *runner) *cobra.Command {
	root := &cobra.Command{
		Use:   "msmtp-retry [msmtp arguments...]",
		Short: "Run msmtp and offer to retry when it fails",
		Long: `msmtp-retry reads the message from standard input once, passes it and all
arguments to msmtp, and when msmtp exits non-zero asks on the terminal
whether to try again. The same bytes and arguments are resent on every try.

Use it wherever msmtp is configured as the sendmail program:
  set sendmail = "msmtp-retry -a work"

Settings come from $HOME/.msmtp-retry/config.yaml (or $MSMTP_RETRY_CONFIG)
and MSMTP_RETRY_* environment variables, never from flags.`,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			r.exitCode = r.run(cmd.Context(), args)
			return nil
		},
	}
	root.SetIn(r.stdin)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	return root
}

// Execute runs the wrapper on the process streams and returns the exit code
func Execute() int {
	return execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	r := &runner{stdin: stdin, stdout: stdout, stderr: stderr}
	if isCompletionRequest(args) {
		// cobra would answer these itself instead of running RunE
		return r.run(context.Background(), args)
	}
	root := newRootCmd(r)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return r.exitCode
}

// isCompletionRequest reports whether cobra would route args to its
// hidden shell completion command.
func isCompletionRequest(args []string) bool {
	if len(args) == 0 {
		return false
	}
	return args[0] == cobra.ShellCompRequestCmd || args[0] == cobra.ShellCompNoDescRequestCmd
}

func (r *runner) run(ctx context.Context, args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(r.stderr, "Warning: %v\n", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(r.stderr, "Warning: %v, logging to stderr\n", err)
		logger = logging.NewLogger(cfg.Level(), cfg.JSONLogs())
		logger.SetOutput(r.stderr)
	} else if cfg.LogFile == "" {
		logger.SetOutput(r.stderr)
	}
	defer logger.Close()

	input, err := io.ReadAll(r.stdin)
	if err != nil {
		fmt.Fprintf(r.stderr, "Error reading from stdin: %v\n", err)
		return 1
	}

	runID := uuid.NewString()
	history := report.NewHistory(cfg.HistorySize)
	metrics := report.NewMetrics()
	device := tty.New(cfg.TTY)

	sup := supervisor.New(cfg.Command, args, input, supervisor.Options{
		Launcher:  supervisor.NewExecLauncher(r.stdout, r.stderr),
		Confirmer: confirm.New(device, cfg.Command, logger.WithField("run_id", runID)),
		Logger:    logger,
		History:   history,
		Metrics:   metrics,
		RunID:     runID,
	})

	logger.Debug("run starting", map[string]interface{}{
		"run_id": runID,
		"config": cfg.ConfigFile,
		"tty":    device.Path(),
	})

	startedAt := time.Now()
	code, runErr := sup.Run(ctx)
	if runErr != nil {
		fmt.Fprintln(r.stderr, runErr)
	}

	summary := &report.Summary{
		RunID:      runID,
		Command:    cfg.Command,
		ArgCount:   len(args),
		InputBytes: len(input),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		ExitCode:   code,
		Attempts:   history.All(),
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}
	finish(cfg, logger.WithField("run_id", runID), metrics, summary)

	return code
}

// finish exports the run. Failures here never change the exit code.
func finish(cfg *config.Config, logger *logging.Logger, metrics *report.Metrics, summary *report.Summary) {
	logger.Info("run finished", summary.Fields())

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warn("failed to write metrics textfile", map[string]interface{}{
				"path":  cfg.MetricsTextfile,
				"error": err.Error(),
			})
		}
	}

	if cfg.ReportFile != "" {
		if err := summary.WriteFile(cfg.ReportFile); err != nil {
			logger.Warn("failed to write run report", map[string]interface{}{
				"path":  cfg.ReportFile,
				"error": err.Error(),
			})
		}
	}
}
