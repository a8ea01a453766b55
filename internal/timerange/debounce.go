package timerange

import (
	"sync"
	"time"
)

// SlowDebounce is the quiet window before a draft is resolved.
const SlowDebounce = 500 * time.Millisecond

// AfterFunc schedules f after d and returns a function that cancels it,
// reporting whether the call was prevented. time.AfterFunc satisfies it
// via StdAfterFunc.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

// StdAfterFunc is the AfterFunc backed by time.AfterFunc.
func StdAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Debouncer runs fn only after Trigger has not been called for the quiet
// window. Each Trigger supersedes the previous one.
type Debouncer struct {
	wait  time.Duration
	after AfterFunc
	fn    func(seq uint64, value string)

	mu   sync.Mutex
	seq  uint64
	stop func() bool
}

// NewDebouncer creates a Debouncer. A nil after uses StdAfterFunc.
func NewDebouncer(wait time.Duration, after AfterFunc, fn func(seq uint64, value string)) *Debouncer {
	if after == nil {
		after = StdAfterFunc
	}
	return &Debouncer{wait: wait, after: after, fn: fn}
}

// Trigger restarts the quiet window for value and returns its sequence
// number. Only the last sequence issued can fire.
func (d *Debouncer) Trigger(value string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		d.stop()
	}
	d.seq++
	seq := d.seq
	d.stop = d.after(d.wait, func() {
		d.mu.Lock()
		current := seq == d.seq
		if current {
			d.stop = nil
		}
		d.mu.Unlock()
		if current {
			d.fn(seq, value)
		}
	})
	return seq
}

// Stop cancels any pending fire. Fires already running are unaffected, but
// their sequence is no longer current.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
	d.seq++
}

// Seq returns the most recently issued sequence number.
func (d *Debouncer) Seq() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq
}
