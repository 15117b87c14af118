package report

import (
	"time"
)

// Decision is what happened after a failed attempt
type Decision string

const (
	DecisionNone          Decision = "none"           // attempt succeeded or never finished
	DecisionRetry         Decision = "retry"          // user answered y
	DecisionDecline       Decision = "decline"        // user answered n
	DecisionTerminalError Decision = "terminal_error" // dialogue failed
)

// Attempt is the record of one invocation of the mail command.
// Fields are set once, when the attempt completes; Decision is set
// once more after the dialogue.
type Attempt struct {
	RunID  string `json:"run_id" yaml:"run_id"`
	Number int    `json:"attempt" yaml:"attempt"`
	PID    int    `json:"pid" yaml:"pid"`

	StartTime time.Time     `json:"start_time" yaml:"start_time"`
	EndTime   time.Time     `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration"`

	ExitCode   int    `json:"exit_code" yaml:"exit_code"`
	ExitReason string `json:"exit_reason" yaml:"exit_reason"`
	Signal     string `json:"signal,omitempty" yaml:"signal,omitempty"`

	// Error holds the local failure, if the attempt never produced an exit status
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	Decision Decision `json:"decision" yaml:"decision"`
}

// NewAttempt creates an attempt record
func NewAttempt(runID string, number, pid, exitCode int, reason string, startTime, endTime time.Time) *Attempt {
	return &Attempt{
		RunID:      runID,
		Number:     number,
		PID:        pid,
		StartTime:  startTime,
		EndTime:    endTime,
		Duration:   endTime.Sub(startTime),
		ExitCode:   exitCode,
		ExitReason: reason,
		Decision:   DecisionNone,
	}
}

// Succeeded reports whether the command exited 0
func (a *Attempt) Succeeded() bool {
	return a.Error == "" && a.ExitCode == 0
}

// SetDecision records the outcome of the dialogue
func (a *Attempt) SetDecision(d Decision) {
	a.Decision = d
}

// Fields returns the attempt as structured log fields
func (a *Attempt) Fields() map[string]interface{} {
	f := map[string]interface{}{
		"attempt":     a.Number,
		"pid":         a.PID,
		"exit_code":   a.ExitCode,
		"exit_reason": a.ExitReason,
		"runtime":     a.Duration.Round(time.Millisecond).String(),
		"decision":    string(a.Decision),
	}
	if a.Signal != "" {
		f["signal"] = a.Signal
	}
	if a.Error != "" {
		f["error"] = a.Error
	}
	return f
}
