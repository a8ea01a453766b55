package timerange

import (
	"context"
	"log/slog"
	"time"
)

// Evaluator turns an expression into absolute bounds. The Superset client
// implements it against /api/v1/time_range/.
type Evaluator interface {
	EvaluateTimeRange(ctx context.Context, expr string) (since, until string, err error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, expr string) (string, string, error)

// EvaluateTimeRange calls f.
func (f EvaluatorFunc) EvaluateTimeRange(ctx context.Context, expr string) (string, string, error) {
	return f(ctx, expr)
}

// ResolvedRange is the outcome of resolving one expression. Exactly one of
// Value and Error is set.
type ResolvedRange struct {
	Expression string    `json:"expression" yaml:"expression"`
	Since      string    `json:"since" yaml:"since"`
	Until      string    `json:"until" yaml:"until"`
	Value      string    `json:"value,omitempty" yaml:"value,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	ResolvedAt time.Time `json:"resolved_at" yaml:"resolved_at"`
	CacheHit   bool      `json:"-" yaml:"-"`
}

// OK reports whether the resolution succeeded.
func (r ResolvedRange) OK() bool { return r.Error == "" }

// Cache stores successful resolutions. The bbolt store implements it.
type Cache interface {
	GetResolution(key string) (ResolvedRange, bool, error)
	PutResolution(key string, r ResolvedRange) error
}

// ErrorMessager extracts the user-facing text from an evaluator error.
type ErrorMessager func(error) string

// Resolver resolves expressions and formats them for display.
type Resolver struct {
	eval      Evaluator
	endpoints Endpoints
	cache     Cache
	ttl       time.Duration
	refresh   bool
	scope     string
	message   ErrorMessager
	now       func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEndpoints sets the bound inclusivity used when formatting.
func WithEndpoints(e Endpoints) ResolverOption {
	return func(r *Resolver) { r.endpoints = e }
}

// WithCache enables caching of successful resolutions for ttl. A zero ttl
// disables reads; results are still written.
func WithCache(c Cache, ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.cache = c
		r.ttl = ttl
	}
}

// WithCacheScope partitions cache entries, typically by Superset base URL,
// so instances never share resolutions.
func WithCacheScope(scope string) ResolverOption {
	return func(r *Resolver) { r.scope = scope }
}

// WithRefresh skips cache reads so every call reaches the evaluator.
func WithRefresh(refresh bool) ResolverOption {
	return func(r *Resolver) { r.refresh = refresh }
}

// WithErrorMessager sets how evaluator errors become display text.
func WithErrorMessager(m ErrorMessager) ResolverOption {
	return func(r *Resolver) { r.message = m }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// NewResolver builds a Resolver over eval.
func NewResolver(eval Evaluator, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		eval:    eval,
		message: func(err error) string { return err.Error() },
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Endpoints returns the configured bound inclusivity.
func (r *Resolver) Endpoints() Endpoints { return r.endpoints }

// CacheKey is the cache key for expr under the given endpoints.
func CacheKey(expr string, e Endpoints) string {
	return ScopedCacheKey(expr, e, "")
}

// ScopedCacheKey is CacheKey within a cache scope. Keys always start with
// "expr:" followed by the expression.
func ScopedCacheKey(expr string, e Endpoints, scope string) string {
	key := "expr:" + expr
	if s := e.String(); s != "" {
		key += "|endpoints:" + s
	}
	if scope != "" {
		key += "|scope:" + scope
	}
	return key
}

// Resolve evaluates expr. Failures are reported in the Error field; Resolve
// itself never fails.
func (r *Resolver) Resolve(ctx context.Context, expr string) ResolvedRange {
	if expr == NoFilter {
		return ResolvedRange{
			Expression: expr,
			Value:      FormatTimeRange(BuildTimeRangeString("", ""), r.endpoints),
			ResolvedAt: r.now(),
		}
	}

	key := ScopedCacheKey(expr, r.endpoints, r.scope)
	if r.cache != nil && r.ttl > 0 && !r.refresh {
		cached, ok, err := r.cache.GetResolution(key)
		if err != nil {
			slog.Debug("resolution cache read failed", "expr", expr, "error", err)
		} else if ok && r.now().Sub(cached.ResolvedAt) < r.ttl {
			cached.CacheHit = true
			return cached
		}
	}

	since, until, err := r.eval.EvaluateTimeRange(ctx, expr)
	if err != nil {
		msg := r.message(err)
		if msg == "" {
			msg = err.Error()
		}
		return ResolvedRange{Expression: expr, Error: msg, ResolvedAt: r.now()}
	}

	res := ResolvedRange{
		Expression: expr,
		Since:      since,
		Until:      until,
		Value:      FormatTimeRange(BuildTimeRangeString(since, until), r.endpoints),
		ResolvedAt: r.now(),
	}
	if r.cache != nil {
		if err := r.cache.PutResolution(key, res); err != nil {
			slog.Debug("resolution cache write failed", "expr", expr, "error", err)
		}
	}
	return res
}

// Label is what a date-filter control shows: the pill text and its tooltip.
type Label struct {
	Control string `json:"control" yaml:"control"`
	Tooltip string `json:"tooltip" yaml:"tooltip"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Present applies the display rule for expr and its resolution. Common,
// Calendar and No filter show the expression with the range as tooltip;
// Custom and Advanced swap the two. On error both show the expression.
func Present(expr string, res ResolvedRange) Label {
	if !res.OK() {
		return Label{Control: expr, Tooltip: expr, Error: res.Error}
	}
	if Classify(expr).ShowsExpression() {
		return Label{Control: expr, Tooltip: res.Value}
	}
	return Label{Control: res.Value, Tooltip: expr}
}
