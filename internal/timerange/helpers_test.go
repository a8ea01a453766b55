package timerange_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/derickschaefer/timefilter/internal/timerange"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// fakeEvaluator answers from a fixed table and counts every call.
type fakeEvaluator struct {
	mu     sync.Mutex
	ranges map[string][2]string
	calls  []string
	hook   func(expr string)
}

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{ranges: map[string][2]string{
		"Last week":              {"2021-04-05T00:00:00", "2021-04-12T00:00:00"},
		"previous calendar week": {"2021-04-05T00:00:00", "2021-04-12T00:00:00"},
		"Last day":               {"2021-04-11T00:00:00", "2021-04-12T00:00:00"},
		"2021-01-01T00:00:00 : 2021-02-01T00:00:00": {"2021-01-01T00:00:00", "2021-02-01T00:00:00"},
		"Last year : ":           {"2020-04-12T00:00:00", ""},
	}}
}

func (f *fakeEvaluator) EvaluateTimeRange(_ context.Context, expr string) (string, string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, expr)
	hook := f.hook
	r, ok := f.ranges[expr]
	f.mu.Unlock()
	if hook != nil {
		hook(expr)
	}
	if !ok {
		return "", "", errors.New("Error parsing date-time expression: " + expr)
	}
	return r[0], r[1], nil
}

func (f *fakeEvaluator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeTimers records scheduled callbacks and runs them only on fire().
type fakeTimers struct {
	mu      sync.Mutex
	pending []*fakeTimer
}

type fakeTimer struct {
	f       func()
	done    bool
	stopped bool
}

func (ft *fakeTimers) after(_ time.Duration, f func()) func() bool {
	t := &fakeTimer{f: f}
	ft.mu.Lock()
	ft.pending = append(ft.pending, t)
	ft.mu.Unlock()
	return func() bool {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		if t.done || t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

// fire runs every live timer and returns how many ran.
func (ft *fakeTimers) fire() int {
	ft.mu.Lock()
	var live []*fakeTimer
	for _, t := range ft.pending {
		if !t.done && !t.stopped {
			t.done = true
			live = append(live, t)
		}
	}
	ft.pending = nil
	ft.mu.Unlock()
	for _, t := range live {
		t.f()
	}
	return len(live)
}

// memCache is an in-memory timerange.Cache.
type memCache struct {
	mu sync.Mutex
	m  map[string]timerange.ResolvedRange
}

func (c *memCache) GetResolution(key string) (timerange.ResolvedRange, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.m[key]
	return r, ok, nil
}

func (c *memCache) PutResolution(key string, r timerange.ResolvedRange) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string]timerange.ResolvedRange{}
	}
	c.m[key] = r
	return nil
}

var testEndpoints = timerange.Endpoints{timerange.Inclusive, timerange.Exclusive}

func newTestSession(eval *fakeEvaluator, value string, opts ...timerange.SessionOption) (*timerange.Session, *fakeTimers) {
	timers := &fakeTimers{}
	r := timerange.NewResolver(eval, timerange.WithEndpoints(testEndpoints))
	opts = append([]timerange.SessionOption{timerange.WithAfterFunc(timers.after)}, opts...)
	return timerange.NewSession(r, value, opts...), timers
}
