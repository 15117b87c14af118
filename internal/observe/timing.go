package observe

import "time"

// Clock returns the current time
type Clock func() time.Time

// Timing records when one attempt started and finished
type Timing struct {
	StartedAt   time.Time
	CompletedAt time.Time

	clock Clock
}

// NewTiming starts a timing now. A nil clock means time.Now.
func NewTiming(clock Clock) *Timing {
	if clock == nil {
		clock = time.Now
	}
	return &Timing{
		StartedAt: clock(),
		clock:     clock,
	}
}

// Complete records completion time and returns the duration.
// Only the first call has an effect.
func (t *Timing) Complete() time.Duration {
	if t.CompletedAt.IsZero() {
		t.CompletedAt = t.clock()
	}
	return t.Duration()
}

// Done reports whether Complete has been called
func (t *Timing) Done() bool {
	return !t.CompletedAt.IsZero()
}

// Duration returns the elapsed time, up to now if still running
func (t *Timing) Duration() time.Duration {
	if !t.Done() {
		return t.clock().Sub(t.StartedAt)
	}
	return t.CompletedAt.Sub(t.StartedAt)
}
