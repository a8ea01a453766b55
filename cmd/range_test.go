package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/timefilter/internal/timerange"
)

// newBuildFlagsCmd registers the range build flags on a fresh command so
// tests do not share Changed state with rangeBuildCmd.
func newBuildFlagsCmd(t *testing.T) *cobra.Command {
	t.Helper()
	saved := rangeBuild
	t.Cleanup(func() { rangeBuild = saved })

	c := &cobra.Command{}
	f := c.Flags()
	f.StringVar(&rangeBuild.Since, "since", "", "")
	f.StringVar(&rangeBuild.SinceMode, "since-mode", "", "")
	f.StringVar(&rangeBuild.SinceGrain, "since-grain", "", "")
	f.IntVar(&rangeBuild.SinceValue, "since-value", 0, "")
	f.StringVar(&rangeBuild.Until, "until", "", "")
	f.StringVar(&rangeBuild.UntilMode, "until-mode", "", "")
	f.StringVar(&rangeBuild.UntilGrain, "until-grain", "", "")
	f.IntVar(&rangeBuild.UntilValue, "until-value", 0, "")
	f.StringVar(&rangeBuild.Anchor, "anchor", "", "")
	return c
}

func setFlags(t *testing.T, c *cobra.Command, kv ...string) {
	t.Helper()
	for i := 0; i+1 < len(kv); i += 2 {
		if err := c.Flags().Set(kv[i], kv[i+1]); err != nil {
			t.Fatalf("setting --%s: %v", kv[i], err)
		}
	}
}

func TestCustomRangeFromFlags(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		flags []string
		want  string
	}{
		{
			name: "defaults",
			want: `DATEADD(DATETIME("2024-03-15T00:00:00"), -7, day) : 2024-03-15T00:00:00`,
		},
		{
			name:  "specific since until now",
			flags: []string{"since", "2024-01-01T00:00:00", "until-mode", "now"},
			want:  "2024-01-01T00:00:00 : now",
		},
		{
			name:  "relative since until today",
			flags: []string{"since-mode", "relative", "since-value", "-3", "since-grain", "month", "until-mode", "today"},
			want:  `DATEADD(DATETIME("today"), -3, month) : today`,
		},
		{
			name: "both relative around anchor",
			flags: []string{
				"since-mode", "relative", "since-value", "-1", "since-grain", "week",
				"until-mode", "relative", "until-value", "1", "until-grain", "week",
				"anchor", "2024-02-01T00:00:00",
			},
			want: `DATEADD(DATETIME("2024-02-01T00:00:00"), -1, week) : DATEADD(DATETIME("2024-02-01T00:00:00"), 1, week)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newBuildFlagsCmd(t)
			setFlags(t, c, tt.flags...)
			cr, err := customRangeFromFlags(c, now)
			if err != nil {
				t.Fatalf("customRangeFromFlags: %v", err)
			}
			if got := timerange.EncodeCustom(cr); got != tt.want {
				t.Errorf("EncodeCustom = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCustomRangeFromFlagsRejectsBadInput(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	for _, flags := range [][]string{
		{"since", "2024-01-01"},
		{"until", "yesterday"},
		{"since-mode", "sometimes"},
		{"until-grain", "fortnight"},
	} {
		c := newBuildFlagsCmd(t)
		setFlags(t, c, flags...)
		if _, err := customRangeFromFlags(c, now); err == nil {
			t.Errorf("expected error for --%s %q", flags[0], flags[1])
		}
	}
}
