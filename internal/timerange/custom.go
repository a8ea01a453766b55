package timerange

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateTimeMode says how one side of a custom range is pinned.
type DateTimeMode string

const (
	ModeSpecific DateTimeMode = "specific"
	ModeRelative DateTimeMode = "relative"
	ModeNow      DateTimeMode = "now"
	ModeToday    DateTimeMode = "today"
)

// Grain is the unit of a relative offset.
type Grain string

const (
	GrainSecond  Grain = "second"
	GrainMinute  Grain = "minute"
	GrainHour    Grain = "hour"
	GrainDay     Grain = "day"
	GrainWeek    Grain = "week"
	GrainMonth   Grain = "month"
	GrainQuarter Grain = "quarter"
	GrainYear    Grain = "year"
)

// Grains lists every accepted grain, smallest first.
var Grains = []Grain{GrainSecond, GrainMinute, GrainHour, GrainDay, GrainWeek, GrainMonth, GrainQuarter, GrainYear}

// ParseGrain accepts a grain name in any case.
func ParseGrain(s string) (Grain, error) {
	g := Grain(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Grains {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("invalid grain %q: expected one of second|minute|hour|day|week|month|quarter|year", s)
}

// ParseMode accepts specific|relative|now|today in any case.
func ParseMode(s string) (DateTimeMode, error) {
	switch m := DateTimeMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSpecific, ModeRelative, ModeNow, ModeToday:
		return m, nil
	}
	return "", fmt.Errorf("invalid mode %q: expected specific|relative|now|today", s)
}

// CustomRange is the decoded form of a FrameCustom expression.
type CustomRange struct {
	SinceDatetime   string       `json:"since_datetime" yaml:"since_datetime"`
	SinceMode       DateTimeMode `json:"since_mode" yaml:"since_mode"`
	SinceGrain      Grain        `json:"since_grain" yaml:"since_grain"`
	SinceGrainValue int          `json:"since_grain_value" yaml:"since_grain_value"`
	UntilDatetime   string       `json:"until_datetime" yaml:"until_datetime"`
	UntilMode       DateTimeMode `json:"until_mode" yaml:"until_mode"`
	UntilGrain      Grain        `json:"until_grain" yaml:"until_grain"`
	UntilGrainValue int          `json:"until_grain_value" yaml:"until_grain_value"`
	AnchorMode      string       `json:"anchor_mode" yaml:"anchor_mode"`
	AnchorValue     string       `json:"anchor_value" yaml:"anchor_value"`
}

// DatetimeLayout is the layout used for specific datetimes in expressions.
const DatetimeLayout = "2006-01-02T15:04:05"

// DefaultCustomRange is the range a custom editor starts from: the seven
// days leading up to midnight of now's day.
func DefaultCustomRange(now time.Time) CustomRange {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Format(DatetimeLayout)
	return CustomRange{
		SinceDatetime:   today,
		SinceMode:       ModeRelative,
		SinceGrain:      GrainDay,
		SinceGrainValue: -7,
		UntilDatetime:   today,
		UntilMode:       ModeSpecific,
		UntilGrain:      GrainDay,
		UntilGrainValue: 7,
		AnchorMode:      "now",
		AnchorValue:     "now",
	}
}

const (
	iso8601          = `\d{4}-\d\d-\d\dT\d\d:\d\d:\d\d(?:\.\d+)?(?:(?:[+-]\d\d:\d\d)|Z)?`
	datetimeConstant = `TODAY|NOW`
	grainValue       = `[+-]?[1-9][0-9]*`
	grainPattern     = `YEAR|QUARTER|MONTH|WEEK|DAY|HOUR|MINUTE|SECOND`
)

var (
	customRangeExpr = regexp.MustCompile(
		`(?i)^DATEADD\(DATETIME\("(` + iso8601 + `|` + datetimeConstant + `)"\),\s(` + grainValue + `),\s(` + grainPattern + `)\)$`)
	specificExpr = regexp.MustCompile(`(?i)^(?:` + iso8601 + `|` + datetimeConstant + `)$`)
)

func specificMode(s string) DateTimeMode {
	switch strings.ToLower(s) {
	case "now":
		return ModeNow
	case "today":
		return ModeToday
	}
	return ModeSpecific
}

func isSpecificMode(m DateTimeMode) bool {
	return m == ModeSpecific || m == ModeNow || m == ModeToday
}

// DecodeCustom parses expr against the custom grammar. The boolean is false
// when expr is not a custom expression; DecodeCustom never fails otherwise.
//
// Accepted shapes are specific : specific, DATEADD(anchor) : specific where
// the anchor repeats the until literal, and specific : DATEADD(anchor) where
// the anchor repeats the since literal.
func DecodeCustom(expr string) (CustomRange, bool) {
	parts := strings.Split(expr, Separator)
	if len(parts) != 2 {
		return CustomRange{}, false
	}
	since, until := parts[0], parts[1]
	cr := DefaultCustomRange(time.Now())

	if specificExpr.MatchString(since) && specificExpr.MatchString(until) {
		cr.SinceDatetime, cr.SinceMode = since, specificMode(since)
		cr.UntilDatetime, cr.UntilMode = until, specificMode(until)
		return cr, true
	}

	if m := customRangeExpr.FindStringSubmatch(since); m != nil &&
		specificExpr.MatchString(until) && strings.Contains(since, until) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return CustomRange{}, false
		}
		cr.SinceMode = ModeRelative
		cr.SinceGrain = Grain(strings.ToLower(m[3]))
		cr.SinceGrainValue = n
		cr.SinceDatetime = m[1]
		cr.UntilDatetime = m[1]
		cr.UntilMode = specificMode(until)
		return cr, true
	}

	if m := customRangeExpr.FindStringSubmatch(until); m != nil &&
		specificExpr.MatchString(since) && strings.Contains(until, since) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return CustomRange{}, false
		}
		cr.UntilMode = ModeRelative
		cr.UntilGrain = Grain(strings.ToLower(m[3]))
		cr.UntilGrainValue = n
		cr.SinceDatetime = m[1]
		cr.UntilDatetime = m[1]
		cr.SinceMode = specificMode(since)
		return cr, true
	}

	return CustomRange{}, false
}

// EncodeCustom renders cr as an expression the evaluator understands.
func EncodeCustom(cr CustomRange) string {
	pin := func(mode DateTimeMode, dttm string) string {
		if mode == ModeSpecific {
			return dttm
		}
		return string(mode)
	}
	dateAdd := func(anchor string, n int, g Grain) string {
		return fmt.Sprintf(`DATEADD(DATETIME("%s"), %d, %s)`, anchor, n, g)
	}

	switch {
	case isSpecificMode(cr.SinceMode) && isSpecificMode(cr.UntilMode):
		return pin(cr.SinceMode, cr.SinceDatetime) + Separator + pin(cr.UntilMode, cr.UntilDatetime)
	case cr.SinceMode == ModeRelative && isSpecificMode(cr.UntilMode):
		until := pin(cr.UntilMode, cr.UntilDatetime)
		return dateAdd(until, cr.SinceGrainValue, cr.SinceGrain) + Separator + until
	case isSpecificMode(cr.SinceMode) && cr.UntilMode == ModeRelative:
		since := pin(cr.SinceMode, cr.SinceDatetime)
		return since + Separator + dateAdd(since, cr.UntilGrainValue, cr.UntilGrain)
	}
	return dateAdd(cr.AnchorValue, cr.SinceGrainValue, cr.SinceGrain) + Separator +
		dateAdd(cr.AnchorValue, cr.UntilGrainValue, cr.UntilGrain)
}

// SplitAdvanced splits an advanced expression into its since and until
// halves. An expression without the separator is returned as since.
func SplitAdvanced(expr string) (since, until string) {
	since, until, _ = strings.Cut(expr, Separator)
	return since, until
}

// JoinAdvanced builds an advanced expression from raw since/until text.
func JoinAdvanced(since, until string) string {
	return strings.TrimSpace(since) + Separator + strings.TrimSpace(until)
}
