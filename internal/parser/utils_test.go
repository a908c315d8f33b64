package parser

import (
	"testing"
	"time"

	"millscope/internal/model"
)

func TestParseMonthHeader_Formats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want model.YearMonth
	}{
		{"Jan-24", model.YearMonth{Year: 2024, Month: 1}},
		{"dec-2023", model.YearMonth{Year: 2023, Month: 12}},
		{45292.0, model.YearMonth{Year: 2024, Month: 1}},
		{"45292", model.YearMonth{Year: 2024, Month: 1}},
		{45000.0, model.YearMonth{Year: 2023, Month: 3}},
		{"2024-03-01", model.YearMonth{Year: 2024, Month: 3}},
		{"2024-03", model.YearMonth{Year: 2024, Month: 3}},
		{"2024/7/15", model.YearMonth{Year: 2024, Month: 7}},
		{"March 2024", model.YearMonth{Year: 2024, Month: 3}},
		{"Mar 2024", model.YearMonth{Year: 2024, Month: 3}},
		{"15 Aug 2022", model.YearMonth{Year: 2022, Month: 8}},
		{time.Date(2021, 5, 9, 0, 0, 0, 0, time.UTC), model.YearMonth{Year: 2021, Month: 5}},
	}

	for _, tc := range cases {
		got, ok := ParseMonthHeader(tc.in)
		if !ok {
			t.Fatalf("ParseMonthHeader(%#v) not recognized", tc.in)
		}
		if got != tc.want {
			t.Fatalf("ParseMonthHeader(%#v) want=%s got=%s", tc.in, tc.want, got)
		}
	}
}

func TestParseMonthHeader_Rejects(t *testing.T) {
	t.Parallel()

	rejects := []any{
		"Estate Code",
		"Fruit Mix",
		"LMM CPO",
		"Xyz-24",
		"PSM",
		"",
		nil,
		40000.0,
		60000.0,
		12.0,
		"1985-01-01",
		"2055-01-01",
		"__EMPTY",
	}
	for _, in := range rejects {
		if got, ok := ParseMonthHeader(in); ok {
			t.Fatalf("ParseMonthHeader(%#v) should be rejected, got %s", in, got)
		}
	}
}

func TestParseMonthHeader_RoundTrip(t *testing.T) {
	t.Parallel()

	for year := 2015; year <= 2030; year++ {
		for month := 1; month <= 12; month++ {
			ym := model.YearMonth{Year: year, Month: month}
			got, ok := ParseMonthHeader(ym.DateString())
			if !ok || got != ym {
				t.Fatalf("round trip %s: ok=%v got=%s", ym.DateString(), ok, got)
			}
		}
	}
}

func TestNormalizeColumnName(t *testing.T) {
	t.Parallel()

	if got := NormalizeColumnName(" OER Data\nBefore  HFC "); got != "OERDataBeforeHFC" {
		t.Fatalf("unexpected normalized name: %q", got)
	}
}

func TestParseMonthHeader_SerialBounds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		ok   bool
		want model.YearMonth
	}{
		{40000.0, false, model.YearMonth{}},
		{"40000", false, model.YearMonth{}},
		{40000.5, true, model.YearMonth{Year: 2009, Month: 7}},
		{40001, true, model.YearMonth{Year: 2009, Month: 7}},
		{59999.0, true, model.YearMonth{Year: 2064, Month: 4}},
		{60000, false, model.YearMonth{}},
	}
	for _, tc := range cases {
		got, ok := ParseMonthHeader(tc.in)
		if ok != tc.ok {
			t.Fatalf("ParseMonthHeader(%#v) ok=%v, want %v", tc.in, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseMonthHeader(%#v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
