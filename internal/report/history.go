package report

import "sync"

// DefaultHistorySize is how many attempts a run keeps unless configured
const DefaultHistorySize = 50

// History keeps the most recent attempts of a run (ring buffer)
type History struct {
	attempts []Attempt
	maxSize  int
	mu       sync.RWMutex
}

// NewHistory creates a history holding at most maxSize attempts
func NewHistory(maxSize int) *History {
	if maxSize <= 0 {
		maxSize = DefaultHistorySize
	}
	return &History{
		attempts: make([]Attempt, 0, maxSize),
		maxSize:  maxSize,
	}
}

// Record stores a copy of the attempt, dropping the oldest when full
func (h *History) Record(a *Attempt) {
	if a == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.attempts) >= h.maxSize {
		h.attempts = h.attempts[1:]
	}
	h.attempts = append(h.attempts, *a)
}

// Recent returns up to n attempts, newest first. n <= 0 means all.
func (h *History) Recent(n int) []Attempt {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > len(h.attempts) {
		n = len(h.attempts)
	}

	result := make([]Attempt, n)
	for i := 0; i < n; i++ {
		result[i] = h.attempts[len(h.attempts)-1-i]
	}
	return result
}

// All returns the kept attempts, oldest first
func (h *History) All() []Attempt {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Attempt, len(h.attempts))
	copy(result, h.attempts)
	return result
}

// Count returns the number of kept attempts
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.attempts)
}

// Last returns the newest attempt, if any
func (h *History) Last() (Attempt, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.attempts) == 0 {
		return Attempt{}, false
	}
	return h.attempts[len(h.attempts)-1], true
}
