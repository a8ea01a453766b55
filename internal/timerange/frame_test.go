package timerange_test

import (
	"testing"
	"time"

	"github.com/derickschaefer/timefilter/internal/timerange"
)

func TestClassifyCommonValues(t *testing.T) {
	for _, o := range timerange.CommonOptions {
		if got := timerange.Classify(o.Value); got != timerange.FrameCommon {
			t.Errorf("Classify(%q): expected Common, got %q", o.Value, got)
		}
	}
}

func TestClassifyCalendarValues(t *testing.T) {
	for _, o := range timerange.CalendarOptions {
		if got := timerange.Classify(o.Value); got != timerange.FrameCalendar {
			t.Errorf("Classify(%q): expected Calendar, got %q", o.Value, got)
		}
	}
}

func TestClassifyNoFilter(t *testing.T) {
	if got := timerange.Classify("No filter"); got != timerange.FrameNoFilter {
		t.Errorf("expected No filter, got %q", got)
	}
	// Membership is exact; case variants fall through.
	if got := timerange.Classify("no filter"); got != timerange.FrameAdvanced {
		t.Errorf("lower-case sentinel: expected Advanced, got %q", got)
	}
}

func TestClassifyCustom(t *testing.T) {
	cases := []string{
		"2021-01-01T00:00:00 : 2021-02-01T00:00:00",
		"now : today",
		`DATEADD(DATETIME("now"), -7, day) : now`,
		`DATEADD(DATETIME("2021-04-12T00:00:00"), -1, month) : 2021-04-12T00:00:00`,
		`today : DATEADD(DATETIME("today"), 3, WEEK)`,
	}
	for _, expr := range cases {
		if got := timerange.Classify(expr); got != timerange.FrameCustom {
			t.Errorf("Classify(%q): expected Custom, got %q", expr, got)
		}
	}
}

func TestClassifyAdvancedFallback(t *testing.T) {
	cases := []string{
		"",
		"Last 3 days",
		"Last year : ",
		"yesterday : tomorrow",
		`DATEADD(DATETIME("now"), -7, day) : DATEADD(DATETIME("now"), 7, day)`,
		`DATEADD(DATETIME("now"), -7, day) : today`,
		"2021-01-01 : 2021-02-01",
		"a : b : c",
	}
	for _, expr := range cases {
		if got := timerange.Classify(expr); got != timerange.FrameAdvanced {
			t.Errorf("Classify(%q): expected Advanced, got %q", expr, got)
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	expr := `DATEADD(DATETIME("now"), -7, day) : now`
	first := timerange.Classify(expr)
	for i := 0; i < 10; i++ {
		if got := timerange.Classify(expr); got != first {
			t.Fatalf("run %d: expected %q, got %q", i, first, got)
		}
	}
}

func TestParseFrame(t *testing.T) {
	cases := map[string]timerange.Frame{
		"Common":    timerange.FrameCommon,
		"last":      timerange.FrameCommon,
		"previous":  timerange.FrameCalendar,
		"CALENDAR":  timerange.FrameCalendar,
		"custom":    timerange.FrameCustom,
		"advanced":  timerange.FrameAdvanced,
		"no filter": timerange.FrameNoFilter,
	}
	for in, want := range cases {
		got, ok := timerange.ParseFrame(in)
		if !ok || got != want {
			t.Errorf("ParseFrame(%q): expected %q, got %q (ok=%v)", in, want, got, ok)
		}
	}
	if _, ok := timerange.ParseFrame("weekly"); ok {
		t.Error("ParseFrame should reject unknown names")
	}
}

func TestFrameShowsExpression(t *testing.T) {
	show := []timerange.Frame{timerange.FrameCommon, timerange.FrameCalendar, timerange.FrameNoFilter}
	for _, f := range show {
		if !f.ShowsExpression() {
			t.Errorf("%q should show the expression", f)
		}
	}
	for _, f := range []timerange.Frame{timerange.FrameCustom, timerange.FrameAdvanced} {
		if f.ShowsExpression() {
			t.Errorf("%q should show the resolved range", f)
		}
	}
}

func TestFrameDraft(t *testing.T) {
	now := time.Date(2024, 3, 15, 13, 45, 0, 0, time.UTC)
	cases := []struct {
		frame timerange.Frame
		draft string
		want  string
	}{
		{timerange.FrameCommon, "Last month", "Last month"},
		{timerange.FrameCommon, "previous calendar year", "Last week"},
		{timerange.FrameCalendar, "previous calendar month", "previous calendar month"},
		{timerange.FrameCalendar, "Last week", "previous calendar week"},
		{timerange.FrameCustom, "Last week",
			`DATEADD(DATETIME("2024-03-15T00:00:00"), -7, day) : 2024-03-15T00:00:00`},
		{timerange.FrameCustom, "2024-01-01T00:00:00 : now", "2024-01-01T00:00:00 : now"},
		{timerange.FrameAdvanced, "Last week", "Last week : "},
		{timerange.FrameAdvanced, "Next 3 days", " : Next 3 days"},
		{timerange.FrameAdvanced, "a : b", "a : b"},
		{timerange.FrameAdvanced, "No filter", " : "},
		{timerange.FrameNoFilter, "Last week", "No filter"},
	}
	for _, c := range cases {
		if got := timerange.FrameDraft(c.frame, c.draft, now); got != c.want {
			t.Errorf("FrameDraft(%s, %q): expected %q, got %q", c.frame, c.draft, c.want, got)
		}
	}
	// Every default lands back in the frame it was built for.
	for _, o := range timerange.FrameOptions {
		f := timerange.Frame(o.Value)
		if f == timerange.FrameAdvanced {
			continue
		}
		if got := timerange.Classify(timerange.FrameDraft(f, "", now)); got != f {
			t.Errorf("default for %s classifies as %s", f, got)
		}
	}
}
