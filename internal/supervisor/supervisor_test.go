package supervisor

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/msmtp-retry/internal/report"
)

type launchCall struct {
	name  string
	args  []string
	input []byte
}

// fakeLauncher returns the scripted exits in order
type fakeLauncher struct {
	exits []Exit
	err   error
	calls []launchCall
}

func (f *fakeLauncher) Launch(ctx context.Context, name string, args []string, input []byte) (Exit, error) {
	f.calls = append(f.calls, launchCall{
		name:  name,
		args:  append([]string(nil), args...),
		input: append([]byte(nil), input...),
	})
	if f.err != nil {
		return Exit{Code: NoExitCode, Reason: ExitReasonUnknown}, f.err
	}
	i := len(f.calls) - 1
	if i >= len(f.exits) {
		i = len(f.exits) - 1
	}
	e := f.exits[i]
	e.PID = 100 + len(f.calls)
	return e, nil
}

func failed(code int) Exit {
	return Exit{Code: code, Reason: ExitReasonError}
}

func succeeded() Exit {
	return Exit{Code: 0, Reason: ExitReasonSuccess}
}

// fakeConfirmer answers with the scripted decisions in order
type fakeConfirmer struct {
	decisions []report.Decision
	err       error
	codes     []int
}

func (f *fakeConfirmer) Confirm(ctx context.Context, exitCode int) (report.Decision, error) {
	f.codes = append(f.codes, exitCode)
	if f.err != nil {
		return report.DecisionTerminalError, f.err
	}
	d := f.decisions[0]
	f.decisions = f.decisions[1:]
	return d, nil
}

func newTestSupervisor(l Launcher, c Confirmer) (*Supervisor, *report.Metrics) {
	m := report.NewMetrics()
	s := New("msmtp", []string{"-t", "--read-envelope-from"}, []byte("Subject: hi\n\nbody\n"), Options{
		Launcher:  l,
		Confirmer: c,
		Metrics:   m,
		RunID:     "run-1",
		Clock:     func() time.Time { return time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC) },
	})
	return s, m
}

func TestRunSucceedsFirstTime(t *testing.T) {
	l := &fakeLauncher{exits: []Exit{succeeded()}}
	c := &fakeConfirmer{}
	s, m := newTestSupervisor(l, c)

	code, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Len(t, l.calls, 1)
	assert.Empty(t, c.codes, "no prompt on success")
	assert.Equal(t, 1, s.History().Count())
	expected := `
# HELP msmtp_retry_attempts_total Mail command invocations by result
# TYPE msmtp_retry_attempts_total counter
msmtp_retry_attempts_total{result="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "msmtp_retry_attempts_total"))
}

func TestRunRetriesUntilSuccess(t *testing.T) {
	l := &fakeLauncher{exits: []Exit{failed(1), failed(1), succeeded()}}
	c := &fakeConfirmer{decisions: []report.Decision{report.DecisionRetry, report.DecisionRetry}}
	s, _ := newTestSupervisor(l, c)

	code, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	require.Len(t, l.calls, 3)
	assert.Equal(t, []int{1, 1}, c.codes)

	for _, call := range l.calls {
		assert.Equal(t, "msmtp", call.name)
		assert.Equal(t, []string{"-t", "--read-envelope-from"}, call.args)
		assert.Equal(t, "Subject: hi\n\nbody\n", string(call.input))
	}

	attempts := s.History().All()
	require.Len(t, attempts, 3)
	assert.Equal(t, report.DecisionRetry, attempts[0].Decision)
	assert.Equal(t, report.DecisionRetry, attempts[1].Decision)
	assert.Equal(t, report.DecisionNone, attempts[2].Decision)
	assert.Equal(t, 3, attempts[2].Number)
	assert.Equal(t, "run-1", attempts[2].RunID)
}

func TestRunDeclineReturnsCommandCode(t *testing.T) {
	l := &fakeLauncher{exits: []Exit{failed(75)}}
	c := &fakeConfirmer{decisions: []report.Decision{report.DecisionDecline}}
	s, _ := newTestSupervisor(l, c)

	code, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 75, code)
	assert.Len(t, l.calls, 1)
	assert.Equal(t, []int{75}, c.codes)
}

func TestRunSignalledChildPromptsWithNoExitCode(t *testing.T) {
	l := &fakeLauncher{exits: []Exit{{Code: NoExitCode, Reason: ExitReasonSignal, Signal: "SIGKILL"}}}
	c := &fakeConfirmer{decisions: []report.Decision{report.DecisionDecline}}
	s, _ := newTestSupervisor(l, c)

	code, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, NoExitCode, code)
	assert.Equal(t, []int{-1}, c.codes)

	last, _ := s.History().Last()
	assert.Equal(t, "SIGKILL", last.Signal)
}

func TestRunLaunchErrorIsFatal(t *testing.T) {
	launchErr := NewError(ErrorKindLaunch, "msmtp", os.ErrNotExist)
	l := &fakeLauncher{err: launchErr}
	c := &fakeConfirmer{}
	s, m := newTestSupervisor(l, c)

	code, err := s.Run(context.Background())

	assert.Equal(t, 1, code)
	require.Error(t, err)
	assert.Equal(t, ErrorKindLaunch, KindOf(err))
	assert.Empty(t, c.codes, "no prompt after launch error")
	expected := `
# HELP msmtp_retry_fatal_errors_total Local errors that aborted the run
# TYPE msmtp_retry_fatal_errors_total counter
msmtp_retry_fatal_errors_total{kind="launch"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "msmtp_retry_fatal_errors_total"))

	last, ok := s.History().Last()
	require.True(t, ok)
	assert.Contains(t, last.Error, "Error starting msmtp")
}

func TestRunTerminalErrorIsFatal(t *testing.T) {
	termErr := NewTerminalError("opening", "/dev/tty", "msmtp", 75, errors.New("no such device or address"))
	l := &fakeLauncher{exits: []Exit{failed(75)}}
	c := &fakeConfirmer{err: termErr}
	s, _ := newTestSupervisor(l, c)

	code, err := s.Run(context.Background())

	assert.Equal(t, 1, code)
	assert.ErrorIs(t, err, termErr)

	last, _ := s.History().Last()
	assert.Equal(t, report.DecisionTerminalError, last.Decision)
}

func TestRunWithoutConfirmer(t *testing.T) {
	s := New("", nil, nil, Options{Launcher: &fakeLauncher{exits: []Exit{succeeded()}}})
	assert.Equal(t, DefaultCommand, s.Command())

	code, err := s.Run(context.Background())
	assert.Equal(t, 1, code)
	assert.Error(t, err)
}

func TestNewCopiesInput(t *testing.T) {
	input := []byte("original")
	args := []string{"-a", "work"}
	l := &fakeLauncher{exits: []Exit{succeeded()}}
	s := New("msmtp", args, input, Options{Launcher: l, Confirmer: &fakeConfirmer{}})

	input[0] = 'X'
	args[1] = "home"

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "original", string(l.calls[0].input))
	assert.Equal(t, []string{"-a", "work"}, l.calls[0].args)
}
