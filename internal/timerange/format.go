package timerange

import (
	"fmt"
	"strings"
)

// Endpoint describes whether a bound is part of the range.
type Endpoint string

const (
	Inclusive Endpoint = "inclusive"
	Exclusive Endpoint = "exclusive"
	Unknown   Endpoint = "unknown"
)

// Endpoints holds the inclusivity of the since and until bounds.
type Endpoints [2]Endpoint

// ParseEndpoints parses "inclusive,exclusive" style pairs. An empty string
// yields the zero value, which formats both bounds as exclusive.
func ParseEndpoints(s string) (Endpoints, error) {
	var e Endpoints
	s = strings.TrimSpace(s)
	if s == "" {
		return e, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return e, fmt.Errorf("invalid endpoints %q: expected <since>,<until>", s)
	}
	for i, p := range parts {
		switch ep := Endpoint(strings.ToLower(strings.TrimSpace(p))); ep {
		case Inclusive, Exclusive, Unknown:
			e[i] = ep
		default:
			return e, fmt.Errorf("invalid endpoint %q: expected inclusive|exclusive|unknown", p)
		}
	}
	return e, nil
}

// String renders the pair as ParseEndpoints accepts it.
func (e Endpoints) String() string {
	if e == (Endpoints{}) {
		return ""
	}
	return string(e[0]) + "," + string(e[1])
}

func (e Endpoint) operator() string {
	if e == Inclusive {
		return "≤"
	}
	return "<"
}

// BuildTimeRangeString joins evaluated bounds with the expression separator.
func BuildTimeRangeString(since, until string) string {
	return since + Separator + until
}

func formatBound(dttm string, isStart bool) string {
	if dttm == "" {
		if isStart {
			return "-∞"
		}
		return "∞"
	}
	return strings.Replace(dttm, "T", " ", 1)
}

// FormatTimeRange renders "since : until" as "since ≤ col < until" using the
// endpoint operators. Strings without the separator pass through unchanged.
func FormatTimeRange(timeRange string, endpoints Endpoints) string {
	since, until, ok := strings.Cut(timeRange, Separator)
	if !ok {
		return timeRange
	}
	return fmt.Sprintf("%s %s col %s %s",
		formatBound(since, true), endpoints[0].operator(),
		endpoints[1].operator(), formatBound(until, false))
}
