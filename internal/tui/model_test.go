package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/derickschaefer/timefilter/internal/timerange"
)

var testRanges = map[string][2]string{
	"Last week":              {"2021-04-05T00:00:00", "2021-04-12T00:00:00"},
	"Last day":               {"2021-04-11T00:00:00", "2021-04-12T00:00:00"},
	"previous calendar week": {"2021-04-05T00:00:00", "2021-04-12T00:00:00"},
	"No filter":              {"", ""},
}

func testEvaluator() timerange.EvaluatorFunc {
	return func(_ context.Context, expr string) (string, string, error) {
		r, ok := testRanges[expr]
		if !ok {
			return "", "", errors.New("Error parsing date-time expression")
		}
		return r[0], r[1], nil
	}
}

// manualTimers holds debounced callbacks until fire is called.
type manualTimers struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	f    func()
	dead bool
}

func (mt *manualTimers) after(_ time.Duration, f func()) func() bool {
	t := &manualTimer{f: f}
	mt.mu.Lock()
	mt.pending = append(mt.pending, t)
	mt.mu.Unlock()
	return func() bool {
		mt.mu.Lock()
		defer mt.mu.Unlock()
		if t.dead {
			return false
		}
		t.dead = true
		return true
	}
}

func (mt *manualTimers) fire() {
	mt.mu.Lock()
	var live []*manualTimer
	for _, t := range mt.pending {
		if !t.dead {
			t.dead = true
			live = append(live, t)
		}
	}
	mt.pending = nil
	mt.mu.Unlock()
	for _, t := range live {
		t.f()
	}
}

func newTestModel(t *testing.T, value string, opts ...timerange.SessionOption) (*Model, *manualTimers) {
	t.Helper()
	timers := &manualTimers{}
	resolver := timerange.NewResolver(testEvaluator())
	opts = append([]timerange.SessionOption{timerange.WithAfterFunc(timers.after)}, opts...)
	session := timerange.NewSession(resolver, value, opts...)
	session.Refresh(context.Background())
	m := NewModel(context.Background(), session, nil)
	m.now = func() time.Time { return time.Date(2021, 4, 12, 9, 30, 0, 0, time.UTC) }
	return m, timers
}

func typeText(m *Model, s string) tea.Cmd {
	m.input.SetValue("")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return cmd
}

func TestNewModelOpensSession(t *testing.T) {
	m, _ := newTestModel(t, "Last week")
	view := m.session.View()
	if view.State != timerange.StateOpen {
		t.Fatalf("expected open session, got %s", view.State)
	}
	if m.input.Value() != "Last week" {
		t.Errorf("expected input seeded with committed value, got %q", m.input.Value())
	}
	if !view.CanApply {
		t.Error("expected resolved committed value to be applicable")
	}
}

func TestTypingUpdatesDraft(t *testing.T) {
	m, timers := newTestModel(t, "Last week")
	typeText(m, "Last day")

	view := m.session.View()
	if view.Draft != "Last day" {
		t.Fatalf("expected draft %q, got %q", "Last day", view.Draft)
	}
	if !view.Pending || view.CanApply {
		t.Fatalf("expected pending draft, got %+v", view)
	}

	timers.fire()
	view = m.session.View()
	if view.Pending || !view.Valid {
		t.Errorf("expected resolved valid draft, got %+v", view)
	}
}

func TestEnterBlockedWhilePending(t *testing.T) {
	m, _ := newTestModel(t, "Last week")
	typeText(m, "Last day")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("expected no quit while resolving")
	}
	if m.Applied() {
		t.Error("expected draft not applied")
	}
	if m.errMsg != "still resolving" {
		t.Errorf("unexpected message %q", m.errMsg)
	}
}

func TestEnterBlockedWhenInvalid(t *testing.T) {
	m, timers := newTestModel(t, "Last week")
	typeText(m, "nonsense")
	timers.fire()

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.Applied() {
		t.Error("expected invalid draft not applied")
	}
	if m.errMsg != "range is not valid" {
		t.Errorf("unexpected message %q", m.errMsg)
	}
	if out := m.View(); !strings.Contains(out, "Error parsing date-time expression") {
		t.Errorf("expected evaluation error in view:\n%s", out)
	}
}

func TestEnterApplies(t *testing.T) {
	var changed []string
	m, timers := newTestModel(t, "Last week", timerange.WithOnChange(func(v string) {
		changed = append(changed, v)
	}))
	typeText(m, "Last day")
	timers.fire()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !m.Applied() || m.Canceled() {
		t.Fatal("expected applied edit")
	}
	if m.Value() != "Last day" {
		t.Errorf("expected committed %q, got %q", "Last day", m.Value())
	}
	if len(changed) != 1 || changed[0] != "Last day" {
		t.Errorf("expected one change callback, got %v", changed)
	}
	if m.session.View().State != timerange.StateClosed {
		t.Error("expected session closed after apply")
	}
}

func TestEscCancels(t *testing.T) {
	m, _ := newTestModel(t, "Last week")
	typeText(m, "Last day")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !m.Canceled() || m.Applied() {
		t.Fatal("expected canceled edit")
	}
	if m.Value() != "Last week" {
		t.Errorf("expected committed value kept, got %q", m.Value())
	}
	if m.session.View().Draft != "Last week" {
		t.Errorf("expected draft reset, got %q", m.session.View().Draft)
	}
}

func TestTabCyclesFrames(t *testing.T) {
	m, _ := newTestModel(t, "Last week")

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	view := m.session.View()
	if view.Frame != timerange.FrameCalendar || view.Draft != "previous calendar week" {
		t.Fatalf("tab: got frame %s draft %q", view.Frame, view.Draft)
	}
	if m.input.Value() != view.Draft {
		t.Errorf("expected input to follow draft, got %q", m.input.Value())
	}

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	view = m.session.View()
	if view.Frame != timerange.FrameNoFilter || view.Draft != timerange.NoFilter {
		t.Fatalf("shift+tab wrap: got frame %s draft %q", view.Frame, view.Draft)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	view = m.session.View()
	if view.Frame != timerange.FrameAdvanced || view.Draft != timerange.Separator {
		t.Errorf("advanced: got frame %s draft %q", view.Frame, view.Draft)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	view = m.session.View()
	if view.Frame != timerange.FrameCustom {
		t.Fatalf("custom: got frame %s", view.Frame)
	}
	if want := `DATEADD(DATETIME("2021-04-12T00:00:00"), -7, day) : 2021-04-12T00:00:00`; view.Draft != want {
		t.Errorf("custom draft: expected %q, got %q", want, view.Draft)
	}
}

func TestViewRendersFramesAndCurrent(t *testing.T) {
	m, _ := newTestModel(t, "Last week")
	out := m.View()
	for _, want := range []string{"Edit time range", "Current: Last week", "Last", "Previous", "Custom", "Advanced", "No filter", "Actual time range:"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestSessionChangedRearmsWait(t *testing.T) {
	changes := NewNotifier()
	m, _ := newTestModel(t, "Last week")
	m.changes = changes

	changes.Notify()
	changes.Notify()
	if len(changes) != 1 {
		t.Fatalf("expected notifications to collapse, got %d", len(changes))
	}
	_, cmd := m.Update(sessionChangedMsg{})
	if cmd == nil {
		t.Fatal("expected wait command")
	}
	if msg := cmd(); msg != (sessionChangedMsg{}) {
		t.Errorf("expected sessionChangedMsg, got %T", msg)
	}
}
