package views

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period for search input.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer delays propagation of rapidly-changing input until it settles
// for the configured quiet period. Each Update resets the timer; only the
// latest value is delivered. Stop cancels any pending delivery so the
// callback never fires against a torn-down consumer.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	deliver func(string)
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer delivering settled values to fn.
func NewDebouncer(delay time.Duration, fn func(string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, deliver: fn}
}

// Update records the latest value and restarts the quiet period.
func (d *Debouncer) Update(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			d.deliver(value)
		}
	})
}

// Stop cancels any pending delivery. The debouncer cannot be reused.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
