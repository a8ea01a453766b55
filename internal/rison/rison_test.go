package rison_test

import (
	"math"
	"testing"

	"github.com/derickschaefer/timefilter/internal/rison"
)

func TestEncodeStrings(t *testing.T) {
	cases := map[string]string{
		"Last":                "Last",
		"Last week":           "'Last week'",
		"":                    "''",
		"7days":               "'7days'",
		"-x":                  "'-x'",
		"it's":                "'it!'s'",
		"wow!":                "'wow!!'",
		"a:b":                 "'a:b'",
		"No filter":           "'No filter'",
		"2021-01-01T00:00:00": "'2021-01-01T00:00:00'",
	}
	for in, want := range cases {
		got, err := rison.Encode(in)
		if err != nil {
			t.Errorf("Encode(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("Encode(%q): expected %s, got %s", in, want, got)
		}
	}
}

func TestEncodeScalars(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, "!n"},
		{true, "!t"},
		{false, "!f"},
		{42, "42"},
		{int64(-3), "-3"},
		{1.5, "1.5"},
	}
	for _, c := range cases {
		if got := rison.MustEncode(c.in); got != c.want {
			t.Errorf("Encode(%v): expected %s, got %s", c.in, c.want, got)
		}
	}
}

func TestEncodeCollections(t *testing.T) {
	if got := rison.MustEncode([]int{1, 2}); got != "!(1,2)" {
		t.Errorf("[]int: got %s", got)
	}
	if got := rison.MustEncode([]string{}); got != "!()" {
		t.Errorf("empty list: got %s", got)
	}
	if got := rison.MustEncode(map[string]interface{}{"a": "x"}); got != "(a:x)" {
		t.Errorf("map: got %s", got)
	}
}

type filter struct {
	Col   string      `json:"col"`
	Opr   string      `json:"opr"`
	Value interface{} `json:"value"`
}

type listParams struct {
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Filters  []filter `json:"filters"`
}

func TestEncodeStructDecodesBack(t *testing.T) {
	in := listParams{
		Page:     0,
		PageSize: 25,
		Filters: []filter{
			{Col: "database_name", Opr: "ct", Value: "my db"},
			{Col: "expose_in_sqllab", Opr: "eq", Value: true},
		},
	}
	enc := rison.MustEncode(in)

	var out listParams
	if err := rison.Decode(enc, &out); err != nil {
		t.Fatalf("Decode(%s): %v", enc, err)
	}
	if out.Page != 0 || out.PageSize != 25 || len(out.Filters) != 2 {
		t.Fatalf("decoded %+v from %s", out, enc)
	}
	if out.Filters[0].Value != "my db" || out.Filters[1].Value != true {
		t.Errorf("filter values = %v, %v", out.Filters[0].Value, out.Filters[1].Value)
	}
}

func TestEncodeRejectsUnsupported(t *testing.T) {
	if _, err := rison.Encode(math.NaN()); err == nil {
		t.Error("expected error for NaN")
	}
	if _, err := rison.Encode(make(chan int)); err == nil {
		t.Error("expected error for a channel")
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	var v interface{}
	if err := rison.Decode("(a:", &v); err == nil {
		t.Error("expected error for unterminated object")
	}
}
