package timerange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Session errors.
var (
	ErrNotOpen      = errors.New("edit session is not open")
	ErrInvalidRange = errors.New("time range is not valid")
)

// State is the edit-session state.
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// View is a point-in-time copy of a Session for renderers.
type View struct {
	State          State  `json:"state"`
	Committed      string `json:"committed"`
	CommittedFrame Frame  `json:"committed_frame"`
	Label          Label  `json:"label"`
	Draft          string `json:"draft"`
	Frame          Frame  `json:"frame"`
	Evaluation     string `json:"evaluation"`
	Valid          bool   `json:"valid"`
	Pending        bool   `json:"pending"`
	CanApply       bool   `json:"can_apply"`
}

// Session holds the committed value of a date-filter control and the draft
// being edited while the control is open.
//
// Two resolutions run against the Resolver: the committed value whenever it
// changes, and the draft after each edit once the debounce window is quiet.
// Results that arrive for a superseded request are dropped.
type Session struct {
	resolver *Resolver
	debounce *Debouncer
	ctx      context.Context
	onChange func(string)
	notify   func()

	mu             sync.Mutex
	state          State
	committed      string
	committedFrame Frame
	committedSeq   uint64
	committedRes   ResolvedRange
	label          Label

	draft        string
	frame        Frame
	draftSeq     uint64
	draftPending bool
	draftValid   bool
	draftEval    string
}

type sessionConfig struct {
	wait     time.Duration
	after    AfterFunc
	ctx      context.Context
	onChange func(string)
	notify   func()
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

// WithDebounce sets the quiet window for draft resolution.
func WithDebounce(wait time.Duration) SessionOption {
	return func(c *sessionConfig) { c.wait = wait }
}

// WithAfterFunc replaces the timer used by the debouncer, for tests.
func WithAfterFunc(after AfterFunc) SessionOption {
	return func(c *sessionConfig) { c.after = after }
}

// WithContext sets the context used for debounced draft resolutions.
func WithContext(ctx context.Context) SessionOption {
	return func(c *sessionConfig) { c.ctx = ctx }
}

// WithOnChange registers the parent callback invoked on Apply.
func WithOnChange(fn func(string)) SessionOption {
	return func(c *sessionConfig) { c.onChange = fn }
}

// WithNotify registers a hook called after every state change.
func WithNotify(fn func()) SessionOption {
	return func(c *sessionConfig) { c.notify = fn }
}

// NewSession creates a closed session with value committed. An empty value
// commits DefaultTimeRange. The committed value is not resolved until
// Refresh or SetValue is called.
func NewSession(resolver *Resolver, value string, opts ...SessionOption) *Session {
	cfg := sessionConfig{wait: SlowDebounce, ctx: context.Background()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if value == "" {
		value = DefaultTimeRange
	}
	s := &Session{
		resolver:       resolver,
		ctx:            cfg.ctx,
		onChange:       cfg.onChange,
		notify:         cfg.notify,
		committed:      value,
		committedFrame: Classify(value),
		label:          Label{Control: value, Tooltip: value},
		draft:          value,
		draftEval:      value,
	}
	s.frame = s.committedFrame
	s.debounce = NewDebouncer(cfg.wait, cfg.after, s.resolveDraft)
	return s
}

func (s *Session) changed() {
	if s.notify != nil {
		s.notify()
	}
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		State:          s.state,
		Committed:      s.committed,
		CommittedFrame: s.committedFrame,
		Label:          s.label,
		Draft:          s.draft,
		Frame:          s.frame,
		Evaluation:     s.draftEval,
		Valid:          s.draftValid,
		Pending:        s.draftPending,
		CanApply:       s.canApplyLocked(),
	}
}

// Value returns the committed expression.
func (s *Session) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

// Refresh resolves the committed value again.
func (s *Session) Refresh(ctx context.Context) ResolvedRange {
	return s.SetValue(ctx, s.Value())
}

// SetValue replaces the committed value, as a parent form does, and
// resolves it. A resolution overtaken by a later SetValue is discarded.
func (s *Session) SetValue(ctx context.Context, value string) ResolvedRange {
	s.mu.Lock()
	s.committed = value
	s.committedFrame = Classify(value)
	s.committedSeq++
	seq := s.committedSeq
	if s.state == StateClosed {
		s.draft = value
		s.frame = s.committedFrame
	}
	s.mu.Unlock()

	res := s.resolver.Resolve(ctx, value)

	s.mu.Lock()
	if seq != s.committedSeq {
		s.mu.Unlock()
		return res
	}
	s.committedRes = res
	s.label = Present(value, res)
	if s.state == StateClosed {
		s.mirrorCommittedLocked()
	}
	s.mu.Unlock()
	s.changed()
	return res
}

// committedCurrentLocked reports whether committedRes belongs to the
// current committed value.
func (s *Session) committedCurrentLocked() bool {
	return !s.committedRes.ResolvedAt.IsZero() && s.committedRes.Expression == s.committed
}

// mirrorCommittedLocked copies the committed resolution into the draft
// evaluation fields.
func (s *Session) mirrorCommittedLocked() {
	s.draftPending = false
	s.draftValid = s.committedRes.OK()
	if s.draftValid {
		s.draftEval = s.committedRes.Value
	} else {
		s.draftEval = s.committedRes.Error
	}
}

// Open starts editing: the draft becomes the committed value and the frame
// is guessed from it. Opening an open session is a no-op.
func (s *Session) Open() {
	s.mu.Lock()
	if s.state == StateOpen {
		s.mu.Unlock()
		return
	}
	s.state = StateOpen
	s.resetDraftLocked()
	if s.committedCurrentLocked() {
		s.mirrorCommittedLocked()
	} else {
		s.draftPending = true
		s.draftValid = false
		s.draftSeq = s.debounce.Trigger(s.draft)
	}
	s.mu.Unlock()
	s.changed()
}

// Toggle opens a closed session or cancels an open one.
func (s *Session) Toggle() {
	if s.View().State == StateOpen {
		s.Cancel()
		return
	}
	s.Open()
}

func (s *Session) resetDraftLocked() {
	s.draft = s.committed
	s.frame = s.committedFrame
}

// SetDraft replaces the draft expression and schedules its resolution.
// Setting the current draft again is a no-op.
func (s *Session) SetDraft(expr string) error {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return ErrNotOpen
	}
	changed := s.setDraftLocked(expr)
	s.mu.Unlock()
	if changed {
		s.changed()
	}
	return nil
}

func (s *Session) setDraftLocked(expr string) bool {
	if expr == s.draft {
		return false
	}
	s.draft = expr
	s.draftPending = true
	s.draftSeq = s.debounce.Trigger(expr)
	return true
}

// SelectFrame switches the range type being edited. Choosing FrameNoFilter
// sets the draft to NoFilter immediately.
func (s *Session) SelectFrame(f Frame) error {
	if _, ok := ParseFrame(string(f)); !ok {
		return fmt.Errorf("unknown frame %q", f)
	}
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return ErrNotOpen
	}
	s.frame = f
	if f == FrameNoFilter {
		s.setDraftLocked(NoFilter)
	}
	s.mu.Unlock()
	s.changed()
	return nil
}

// CanApply reports whether the latest draft resolution succeeded and no
// newer one is pending.
func (s *Session) CanApply() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canApplyLocked()
}

func (s *Session) canApplyLocked() bool {
	return s.state == StateOpen && s.draftValid && !s.draftPending
}

// Apply commits the draft, reports it through the OnChange callback, closes
// the session and resolves the new committed value.
func (s *Session) Apply(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return ErrNotOpen
	}
	if !s.canApplyLocked() {
		s.mu.Unlock()
		return ErrInvalidRange
	}
	value := s.draft
	s.closeLocked()
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(value)
	}
	s.SetValue(ctx, value)
	return nil
}

// Cancel discards the draft and closes the session. A pending debounced
// resolution is not issued.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return
	}
	s.closeLocked()
	s.resetDraftLocked()
	if s.committedCurrentLocked() {
		s.mirrorCommittedLocked()
	} else {
		// SetValue mirrors the result once it lands.
		s.draftValid = false
		s.draftEval = s.committed
	}
	s.mu.Unlock()
	s.changed()
}

func (s *Session) closeLocked() {
	s.debounce.Stop()
	s.draftSeq = 0
	s.draftPending = false
	s.state = StateClosed
}

// resolveDraft is the debouncer callback.
func (s *Session) resolveDraft(seq uint64, expr string) {
	s.mu.Lock()
	if s.state != StateOpen || seq != s.draftSeq {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.mu.Unlock()

	res := s.resolver.Resolve(ctx, expr)

	s.mu.Lock()
	if s.state != StateOpen || seq != s.draftSeq {
		s.mu.Unlock()
		return
	}
	s.draftPending = false
	s.draftValid = res.OK()
	if s.draftValid {
		s.draftEval = res.Value
	} else {
		s.draftEval = res.Error
	}
	s.mu.Unlock()
	s.changed()
}
