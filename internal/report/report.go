package report

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one reported error
type Entry struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// Boundary accumulates fatal conditions until they are dismissed so the
// search flow is never interrupted per keystroke. The same message is only
// kept once between dismissals.
type Boundary struct {
	mu      sync.Mutex
	entries []Entry
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Boundary. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Boundary {
	if logger == nil {
		logger = slog.Default()
	}
	return &Boundary{logger: logger, now: time.Now}
}

// Report records err and returns the ID of its entry. A nil error is
// ignored and yields "".
func (b *Boundary) Report(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.entries {
		if e.Message == msg {
			return e.ID
		}
	}
	e := Entry{
		ID:      uuid.NewString(),
		Time:    b.now(),
		Message: msg,
		Err:     err,
	}
	b.entries = append(b.entries, e)
	b.logger.Error("error reported", "id", e.ID, "error", msg)
	return e.ID
}

// Errors returns every entry since the last dismissal, oldest first
func (b *Boundary) Errors() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.entries)
}

// Len returns the number of pending entries
func (b *Boundary) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Has reports whether any pending entry wraps target
func (b *Boundary) Has(target error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if errors.Is(e.Err, target) {
			return true
		}
	}
	return false
}

// Dismiss clears all entries and returns how many were cleared
func (b *Boundary) Dismiss() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.entries)
	b.entries = nil
	return n
}
