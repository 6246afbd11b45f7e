package searcher

import (
	"sync"
	"time"
)

// navigationKeys never trigger a search
var navigationKeys = map[string]bool{
	"ArrowUp":    true,
	"ArrowDown":  true,
	"ArrowLeft":  true,
	"ArrowRight": true,
	"Enter":      true,
	"Escape":     true,
	"Tab":        true,
	"Shift":      true,
	"Control":    true,
	"Alt":        true,
	"Meta":       true,
	"PageUp":     true,
	"PageDown":   true,
	"Home":       true,
	"End":        true,
}

// IsNavigationKey reports whether key only moves the selection
func IsNavigationKey(key string) bool {
	return navigationKeys[key]
}

// Debouncer runs fn with the latest query once no key was pressed for the
// quiet period. Bursts collapse into one call.
type Debouncer struct {
	delay time.Duration
	fn    func(query string)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	seq     uint64 // Identifies the newest timer
}

// NewDebouncer creates a Debouncer. A zero delay runs fn synchronously.
func NewDebouncer(delay time.Duration, fn func(query string)) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Key records a key press with the query text after it. Navigation keys are
// ignored.
func (d *Debouncer) Key(key, query string) {
	if IsNavigationKey(key) {
		return
	}
	d.Trigger(query)
}

// Trigger schedules fn for query, replacing any pending call
func (d *Debouncer) Trigger(query string) {
	if d.delay <= 0 {
		d.fn(query)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = query
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || d.timer == nil {
		// Superseded or flushed
		d.mu.Unlock()
		return
	}
	query := d.pending
	d.timer = nil
	d.mu.Unlock()
	d.fn(query)
}

// Flush runs a pending call immediately. It reports whether one was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.timer == nil || !d.timer.Stop() {
		d.mu.Unlock()
		return false
	}
	query := d.pending
	d.timer = nil
	d.mu.Unlock()
	d.fn(query)
	return true
}

// Stop cancels a pending call
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
