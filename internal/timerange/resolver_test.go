package timerange_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/derickschaefer/timefilter/internal/timerange"
)

func TestResolveLastWeek(t *testing.T) {
	eval := newFakeEvaluator()
	r := timerange.NewResolver(eval, timerange.WithEndpoints(testEndpoints))

	res := r.Resolve(context.Background(), "Last week")
	if !res.OK() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	want := "2021-04-05 00:00:00 ≤ col < 2021-04-12 00:00:00"
	if res.Value != want {
		t.Errorf("Value: expected %q, got %q", want, res.Value)
	}

	label := timerange.Present("Last week", res)
	if label.Control != "Last week" {
		t.Errorf("Control: expected the expression, got %q", label.Control)
	}
	if label.Tooltip != want {
		t.Errorf("Tooltip: expected the resolved range, got %q", label.Tooltip)
	}
}

func TestPresentSwapsForCustomAndAdvanced(t *testing.T) {
	expr := "2021-01-01T00:00:00 : 2021-02-01T00:00:00"
	r := timerange.NewResolver(newFakeEvaluator())
	res := r.Resolve(context.Background(), expr)
	label := timerange.Present(expr, res)
	if label.Control != res.Value || label.Tooltip != expr {
		t.Errorf("custom: got %+v", label)
	}

	expr = "Last year : "
	res = r.Resolve(context.Background(), expr)
	if res.Value != "2020-04-12 00:00:00 < col < ∞" {
		t.Errorf("advanced value: got %q", res.Value)
	}
	label = timerange.Present(expr, res)
	if label.Control != res.Value || label.Tooltip != expr {
		t.Errorf("advanced: got %+v", label)
	}
}

func TestResolveNoFilterSkipsEvaluator(t *testing.T) {
	eval := newFakeEvaluator()
	r := timerange.NewResolver(eval)

	res := r.Resolve(context.Background(), timerange.NoFilter)
	if !res.OK() {
		t.Fatalf("No filter must always be valid, got error %q", res.Error)
	}
	if res.Since != "" || res.Until != "" {
		t.Errorf("expected empty bounds, got %q / %q", res.Since, res.Until)
	}
	if len(eval.Calls()) != 0 {
		t.Errorf("evaluator should not be called, got %v", eval.Calls())
	}
	label := timerange.Present(timerange.NoFilter, res)
	if label.Control != timerange.NoFilter || label.Tooltip != "-∞ < col < ∞" {
		t.Errorf("label: got %+v", label)
	}
}

func TestResolveErrorIsReportedNotReturned(t *testing.T) {
	r := timerange.NewResolver(newFakeEvaluator())
	res := r.Resolve(context.Background(), "garbage : more garbage")
	if res.OK() {
		t.Fatal("expected an error result")
	}
	if res.Value != "" {
		t.Errorf("Value must be empty on error, got %q", res.Value)
	}
	label := timerange.Present("garbage : more garbage", res)
	if label.Control != "garbage : more garbage" || label.Error == "" {
		t.Errorf("label: got %+v", label)
	}
}

func TestResolveUsesErrorMessager(t *testing.T) {
	eval := timerange.EvaluatorFunc(func(context.Context, string) (string, string, error) {
		return "", "", errors.New("wrapped: HTTP 400")
	})
	r := timerange.NewResolver(eval, timerange.WithErrorMessager(func(error) string {
		return "Unexpected time range"
	}))
	if res := r.Resolve(context.Background(), "x"); res.Error != "Unexpected time range" {
		t.Errorf("got %q", res.Error)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	r := timerange.NewResolver(newFakeEvaluator(), timerange.WithEndpoints(testEndpoints))
	for _, expr := range []string{"Last week", "nonsense", timerange.NoFilter} {
		a := r.Resolve(context.Background(), expr)
		b := r.Resolve(context.Background(), expr)
		if a.Value != b.Value || a.Error != b.Error || a.Since != b.Since || a.Until != b.Until {
			t.Errorf("%q: results differ: %+v vs %+v", expr, a, b)
		}
	}
}

func TestResolveCacheHonoursTTL(t *testing.T) {
	eval := newFakeEvaluator()
	cache := &memCache{}
	now := time.Date(2021, 4, 12, 10, 0, 0, 0, time.UTC)
	r := timerange.NewResolver(eval,
		timerange.WithCache(cache, time.Minute),
		timerange.WithClock(func() time.Time { return now }))

	first := r.Resolve(context.Background(), "Last week")
	if first.CacheHit {
		t.Error("first resolve should miss")
	}
	second := r.Resolve(context.Background(), "Last week")
	if !second.CacheHit || second.Value != first.Value {
		t.Errorf("second resolve should hit the cache: %+v", second)
	}
	if n := len(eval.Calls()); n != 1 {
		t.Errorf("expected 1 evaluator call, got %d", n)
	}

	now = now.Add(2 * time.Minute)
	if third := r.Resolve(context.Background(), "Last week"); third.CacheHit {
		t.Error("expired entry should not be served")
	}
	if n := len(eval.Calls()); n != 2 {
		t.Errorf("expected 2 evaluator calls, got %d", n)
	}
}

func TestResolveDoesNotCacheErrors(t *testing.T) {
	cache := &memCache{}
	r := timerange.NewResolver(newFakeEvaluator(), timerange.WithCache(cache, time.Hour))
	r.Resolve(context.Background(), "bogus")
	if _, ok, _ := cache.GetResolution(timerange.CacheKey("bogus", timerange.Endpoints{})); ok {
		t.Error("errors must not be cached")
	}
}

func TestCacheKeyIncludesEndpoints(t *testing.T) {
	a := timerange.CacheKey("Last week", timerange.Endpoints{})
	b := timerange.CacheKey("Last week", testEndpoints)
	if a == b {
		t.Errorf("keys should differ: %q", a)
	}
}

func TestCacheScopeSeparatesInstances(t *testing.T) {
	cache := &memCache{}
	evalA := newFakeEvaluator()
	evalB := newFakeEvaluator()
	a := timerange.NewResolver(evalA, timerange.WithCache(cache, time.Hour), timerange.WithCacheScope("http://a/"))
	b := timerange.NewResolver(evalB, timerange.WithCache(cache, time.Hour), timerange.WithCacheScope("http://b/"))

	a.Resolve(context.Background(), "Last week")
	if res := b.Resolve(context.Background(), "Last week"); res.CacheHit {
		t.Error("a resolution cached for one scope must not serve another")
	}
	if n := len(evalB.Calls()); n != 1 {
		t.Errorf("expected 1 call on the second instance, got %d", n)
	}
	if res := a.Resolve(context.Background(), "Last week"); !res.CacheHit {
		t.Error("same scope should still hit")
	}

	ka := timerange.ScopedCacheKey("Last week", timerange.Endpoints{}, "http://a/")
	if ka == timerange.CacheKey("Last week", timerange.Endpoints{}) {
		t.Errorf("scoped key should differ from unscoped: %q", ka)
	}
}
