// Package timerange interprets Superset time-range expressions: it guesses
// the frame an expression belongs to, resolves it to an absolute range
// through an Evaluator, and drives the edit session that sits behind a
// date-filter control.
package timerange

import (
	"strings"
	"time"
)

// Frame is the structural category of a time-range expression.
type Frame string

// Frame values. FrameNoFilter is also the literal sentinel expression.
const (
	FrameCommon   Frame = "Common"
	FrameCalendar Frame = "Calendar"
	FrameCustom   Frame = "Custom"
	FrameAdvanced Frame = "Advanced"
	FrameNoFilter Frame = "No filter"
)

const (
	// NoFilter is the expression that disables time filtering.
	NoFilter = string(FrameNoFilter)

	// DefaultTimeRange is used when a control has no committed value.
	DefaultTimeRange = "Last week"

	// Separator splits the since and until halves of an expression.
	Separator = " : "
)

// Option is a selectable value with its display label.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// FrameOptions lists the range types in display order.
var FrameOptions = []Option{
	{Value: string(FrameCommon), Label: "Last"},
	{Value: string(FrameCalendar), Label: "Previous"},
	{Value: string(FrameCustom), Label: "Custom"},
	{Value: string(FrameAdvanced), Label: "Advanced"},
	{Value: string(FrameNoFilter), Label: "No filter"},
}

// CommonOptions are the relative ranges offered under FrameCommon.
var CommonOptions = []Option{
	{Value: "Last day", Label: "last day"},
	{Value: "Last week", Label: "last week"},
	{Value: "Last month", Label: "last month"},
	{Value: "Last quarter", Label: "last quarter"},
	{Value: "Last year", Label: "last year"},
}

// CalendarOptions are the calendar-anchored ranges offered under FrameCalendar.
var CalendarOptions = []Option{
	{Value: "previous calendar week", Label: "previous calendar week"},
	{Value: "previous calendar month", Label: "previous calendar month"},
	{Value: "previous calendar year", Label: "previous calendar year"},
}

var (
	commonRangeValues   = valueSet(CommonOptions)
	calendarRangeValues = valueSet(CalendarOptions)
)

func valueSet(opts []Option) map[string]struct{} {
	set := make(map[string]struct{}, len(opts))
	for _, o := range opts {
		set[o.Value] = struct{}{}
	}
	return set
}

// IsCommon reports whether expr is one of the CommonOptions values.
func IsCommon(expr string) bool {
	_, ok := commonRangeValues[expr]
	return ok
}

// IsCalendar reports whether expr is one of the CalendarOptions values.
func IsCalendar(expr string) bool {
	_, ok := calendarRangeValues[expr]
	return ok
}

// Classify returns the frame of expr. Set membership is checked before the
// custom grammar, so a listed value is never reported as FrameCustom.
func Classify(expr string) Frame {
	switch {
	case IsCommon(expr):
		return FrameCommon
	case IsCalendar(expr):
		return FrameCalendar
	case expr == NoFilter:
		return FrameNoFilter
	}
	if _, ok := DecodeCustom(expr); ok {
		return FrameCustom
	}
	return FrameAdvanced
}

// ParseFrame maps a frame value or its label (case-insensitive) to a Frame.
func ParseFrame(s string) (Frame, bool) {
	for _, o := range FrameOptions {
		if strings.EqualFold(s, o.Value) || strings.EqualFold(s, o.Label) {
			return Frame(o.Value), true
		}
	}
	return "", false
}

// ShowsExpression reports whether a control in this frame displays the
// expression itself, with the resolved range relegated to the tooltip.
func (f Frame) ShowsExpression() bool {
	return f == FrameCommon || f == FrameCalendar || f == FrameNoFilter
}

// Label returns the display label of the frame.
func (f Frame) Label() string {
	for _, o := range FrameOptions {
		if o.Value == string(f) {
			return o.Label
		}
	}
	return string(f)
}

// FrameDraft returns the draft an editor switching to f should start from.
// A draft that already belongs to f is kept. Otherwise Common starts from
// DefaultTimeRange, Calendar from the previous calendar week and Custom from
// DefaultCustomRange(now). Advanced keeps a relative draft on its side of
// the separator.
func FrameDraft(f Frame, draft string, now time.Time) string {
	switch f {
	case FrameCommon:
		if IsCommon(draft) {
			return draft
		}
		return DefaultTimeRange
	case FrameCalendar:
		if IsCalendar(draft) {
			return draft
		}
		return CalendarOptions[0].Value
	case FrameCustom:
		if _, ok := DecodeCustom(draft); ok {
			return draft
		}
		return EncodeCustom(DefaultCustomRange(now))
	case FrameAdvanced:
		switch {
		case strings.Contains(draft, Separator):
			return draft
		case strings.HasPrefix(draft, "Last"):
			return JoinAdvanced(draft, "")
		case strings.HasPrefix(draft, "Next"):
			return JoinAdvanced("", draft)
		}
		return Separator
	case FrameNoFilter:
		return NoFilter
	}
	return draft
}
