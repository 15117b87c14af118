// Package supervisor runs the mail command until it succeeds or the user
// stops retrying.
//
// The input bytes and arguments are captured once by the caller and
// resent unchanged on every attempt. Only the command's own failure is
// retried; every local error ends the run.
package supervisor

import (
	"context"
	"fmt"

	"github.com/psantana5/msmtp-retry/internal/logging"
	"github.com/psantana5/msmtp-retry/internal/observe"
	"github.com/psantana5/msmtp-retry/internal/report"
)

// DefaultCommand is the mail command wrapped unless configured otherwise
const DefaultCommand = "msmtp"

// Confirmer asks whether a failed attempt should be retried.
// It returns DecisionRetry or DecisionDecline, or an error.
type Confirmer interface {
	Confirm(ctx context.Context, exitCode int) (report.Decision, error)
}

// Options carries the collaborators of a Supervisor. Zero values get
// defaults, except Confirmer which is required.
type Options struct {
	Launcher  Launcher
	Confirmer Confirmer
	Logger    *logging.Logger
	History   *report.History
	Metrics   *report.Metrics
	RunID     string
	Clock     observe.Clock
}

// Supervisor owns one run of the wrapper
type Supervisor struct {
	command string
	args    []string
	input   []byte

	launcher  Launcher
	confirmer Confirmer
	logger    *logging.Logger
	history   *report.History
	metrics   *report.Metrics
	runID     string
	clock     observe.Clock
}

// New creates a supervisor for command. args and input are copied.
func New(command string, args []string, input []byte, opts Options) *Supervisor {
	if command == "" {
		command = DefaultCommand
	}
	if opts.Launcher == nil {
		opts.Launcher = NewExecLauncher(nil, nil)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.History == nil {
		opts.History = report.NewHistory(report.DefaultHistorySize)
	}
	if opts.Metrics == nil {
		opts.Metrics = report.NewMetrics()
	}

	return &Supervisor{
		command:   command,
		args:      append([]string(nil), args...),
		input:     append([]byte(nil), input...),
		launcher:  opts.Launcher,
		confirmer: opts.Confirmer,
		logger:    opts.Logger.WithField("run_id", opts.RunID),
		history:   opts.History,
		metrics:   opts.Metrics,
		runID:     opts.RunID,
		clock:     opts.Clock,
	}
}

// Command returns the wrapped command name
func (s *Supervisor) Command() string {
	return s.command
}

// History returns the attempts made so far
func (s *Supervisor) History() *report.History {
	return s.history
}

// Run invokes the command until it exits 0 or the user declines.
// It returns the exit code the process should terminate with: 0 on
// success, the command's own code when declined, 1 with a non-nil
// *Error on any local failure.
func (s *Supervisor) Run(ctx context.Context) (int, error) {
	if s.confirmer == nil {
		return 1, fmt.Errorf("supervisor for %s has no confirmer", s.command)
	}

	for number := 1; ; number++ {
		a, exit, err := s.attempt(ctx, number)
		if err != nil {
			s.fail(a, err)
			return 1, err
		}

		if exit.Success() {
			s.history.Record(a)
			s.logger.Info("mail command succeeded", a.Fields())
			return 0, nil
		}

		s.logger.Info("mail command failed", a.Fields())

		decision, err := s.confirmer.Confirm(ctx, exit.Code)
		if err != nil {
			a.SetDecision(report.DecisionTerminalError)
			s.fail(a, err)
			return 1, err
		}

		a.SetDecision(decision)
		s.history.Record(a)
		s.metrics.RecordDecision(decision)

		if decision != report.DecisionRetry {
			s.logger.Info("retry declined", a.Fields())
			return exit.Code, nil
		}
		s.logger.Debug("retrying mail command", a.Fields())
	}
}

// attempt runs the command once and builds its record
func (s *Supervisor) attempt(ctx context.Context, number int) (*report.Attempt, Exit, error) {
	timing := observe.NewTiming(s.clock)
	s.logger.Debug("starting mail command", map[string]interface{}{
		"attempt": number,
		"command": s.command,
		"args":    len(s.args),
		"bytes":   len(s.input),
	})

	exit, err := s.launcher.Launch(ctx, s.command, s.args, s.input)
	timing.Complete()

	a := report.NewAttempt(s.runID, number, exit.PID, exit.Code, string(exit.Reason), timing.StartedAt, timing.CompletedAt)
	a.Signal = exit.Signal
	if err != nil {
		a.Error = err.Error()
		return a, exit, err
	}

	s.metrics.RecordAttempt(a)
	return a, exit, nil
}

func (s *Supervisor) fail(a *report.Attempt, err error) {
	kind := KindOf(err)
	s.history.Record(a)
	s.metrics.RecordFatal(kind.String())
	s.logger.Info("run aborted", map[string]interface{}{
		"kind":    kind.String(),
		"attempt": a.Number,
		"error":   err.Error(),
	})
}
