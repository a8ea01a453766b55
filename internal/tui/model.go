// Package tui provides the Bubble Tea time-range editor.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/derickschaefer/timefilter/internal/timerange"
)

var (
	titleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	activeFrameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F0F0F0")).
				Bold(true).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveFrameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	validStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// sessionChangedMsg tells the model the session has new state to show.
type sessionChangedMsg struct{}

// Notifier carries session change notifications into the Bubble Tea loop.
// Notify never blocks; bursts collapse into one pending message.
type Notifier chan struct{}

// NewNotifier creates a Notifier.
func NewNotifier() Notifier {
	return make(Notifier, 1)
}

// Notify records a change. It is meant for timerange.WithNotify.
func (n Notifier) Notify() {
	select {
	case n <- struct{}{}:
	default:
	}
}

func (n Notifier) wait() tea.Cmd {
	if n == nil {
		return nil
	}
	return func() tea.Msg {
		<-n
		return sessionChangedMsg{}
	}
}

// Model implements the Bubble Tea time-range editor over a Session.
type Model struct {
	ctx      context.Context
	session  *timerange.Session
	changes  Notifier
	input    textinput.Model
	now      func() time.Time
	width    int
	errMsg   string
	applied  bool
	canceled bool
}

// NewModel opens session for editing and returns the model driving it.
// changes may be nil when the session has no notify hook.
func NewModel(ctx context.Context, session *timerange.Session, changes Notifier) *Model {
	session.Open()
	input := textinput.New()
	input.Prompt = "Range: "
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	input.SetValue(session.View().Draft)
	input.CursorEnd()
	input.Focus()
	return &Model{
		ctx:     ctx,
		session: session,
		changes: changes,
		input:   input,
		now:     time.Now,
	}
}

// Applied reports whether the edit ended with Apply.
func (m *Model) Applied() bool {
	return m.applied
}

// Canceled reports whether the edit ended without applying.
func (m *Model) Canceled() bool {
	return m.canceled
}

// Value returns the committed expression.
func (m *Model) Value() string {
	return m.session.Value()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.changes.wait())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionChangedMsg:
		return m, m.changes.wait()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.session.Cancel()
			m.canceled = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.apply()
		case tea.KeyTab:
			return m, m.moveFrame(1)
		case tea.KeyShiftTab:
			return m, m.moveFrame(-1)
		}
		var cmd tea.Cmd
		before := m.input.Value()
		m.input, cmd = m.input.Update(msg)
		if v := m.input.Value(); v != before {
			m.errMsg = ""
			if err := m.session.SetDraft(v); err != nil {
				m.errMsg = err.Error()
			}
		}
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) apply() (tea.Model, tea.Cmd) {
	view := m.session.View()
	if !view.CanApply {
		if view.Pending {
			m.errMsg = "still resolving"
		} else {
			m.errMsg = "range is not valid"
		}
		return m, nil
	}
	if err := m.session.Apply(m.ctx); err != nil {
		m.errMsg = err.Error()
		return m, nil
	}
	m.applied = true
	return m, tea.Quit
}

// moveFrame switches to the next or previous frame and seeds the draft
// for it.
func (m *Model) moveFrame(delta int) tea.Cmd {
	view := m.session.View()
	idx := 0
	for i, o := range timerange.FrameOptions {
		if o.Value == string(view.Frame) {
			idx = i
			break
		}
	}
	n := len(timerange.FrameOptions)
	next := timerange.Frame(timerange.FrameOptions[((idx+delta)%n+n)%n].Value)
	if err := m.session.SelectFrame(next); err != nil {
		m.errMsg = err.Error()
		return nil
	}
	draft := timerange.FrameDraft(next, m.session.View().Draft, m.now())
	if err := m.session.SetDraft(draft); err != nil {
		m.errMsg = err.Error()
		return nil
	}
	m.errMsg = ""
	m.input.SetValue(draft)
	m.input.CursorEnd()
	return nil
}

// View implements tea.Model.
func (m *Model) View() string {
	view := m.session.View()
	var b strings.Builder

	b.WriteString(titleStyle.Render("Edit time range"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Current: %s", view.Label.Control)))
	if view.Label.Tooltip != "" && view.Label.Tooltip != view.Label.Control {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  (%s)", view.Label.Tooltip)))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderFrames(view.Frame))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(renderEvaluation(view))
	b.WriteString("\n")
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("tab/shift+tab frame • enter apply • esc cancel"))
	return b.String()
}

func (m *Model) renderFrames(active timerange.Frame) string {
	tabs := make([]string, 0, len(timerange.FrameOptions))
	for _, o := range timerange.FrameOptions {
		if o.Value == string(active) {
			tabs = append(tabs, activeFrameStyle.Render(o.Label))
		} else {
			tabs = append(tabs, inactiveFrameStyle.Render(o.Label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func renderEvaluation(view timerange.View) string {
	switch {
	case view.Pending:
		return mutedStyle.Render("Actual time range: resolving…")
	case view.Valid:
		return validStyle.Render("Actual time range: " + view.Evaluation)
	case view.Evaluation != "":
		return errorStyle.Render(view.Evaluation)
	}
	return ""
}

// ─── Program ──────────────────────────────────────────────────────────────────

// Options configures Run.
type Options struct {
	Debounce time.Duration
	OnChange func(string)
}

// Run opens an interactive editor for value and blocks until the user
// applies or cancels. It returns the committed value and whether it was
// applied.
func Run(ctx context.Context, resolver *timerange.Resolver, value string, opts Options) (string, bool, error) {
	changes := NewNotifier()
	sessOpts := []timerange.SessionOption{
		timerange.WithContext(ctx),
		timerange.WithNotify(changes.Notify),
	}
	if opts.Debounce > 0 {
		sessOpts = append(sessOpts, timerange.WithDebounce(opts.Debounce))
	}
	if opts.OnChange != nil {
		sessOpts = append(sessOpts, timerange.WithOnChange(opts.OnChange))
	}
	session := timerange.NewSession(resolver, value, sessOpts...)
	session.Refresh(ctx)

	model := NewModel(ctx, session, changes)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return session.Value(), false, fmt.Errorf("run editor: %w", err)
	}
	return model.Value(), model.Applied(), nil
}
