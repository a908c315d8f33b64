package parser

import (
	"math"
	"testing"
	"time"
)

func TestParseNumericValue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   any
		want float64
	}{
		{"nil", nil, 0},
		{"empty", "", 0},
		{"spaces", "   ", 0},
		{"float", 22.5, 22.5},
		{"int", 7, 7},
		{"zero", 0.0, 0},
		{"numeric string", " 21.75 ", 21.75},
		{"percent", "45%", 0.45},
		{"percent with spaces", " 12.5 % ", 0.125},
		{"prefix", "12abc", 12},
		{"leading dot", ".5", 0.5},
		{"negative", "-3.2", -3.2},
		{"exponent", "1e2", 100},
		{"garbage", "n/a", 0},
		{"bad percent", "abc%", 0},
		{"bool", true, 0},
		{"time", time.Now(), 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ParseNumericValue(tc.in)
			if math.Abs(got-tc.want) > 1e-12 {
				t.Fatalf("ParseNumericValue(%#v) want=%v got=%v", tc.in, tc.want, got)
			}
		})
	}
}

func TestParseNumericValue_Infinity(t *testing.T) {
	t.Parallel()

	if got := ParseNumericValue("Infinity"); !math.IsInf(got, 1) {
		t.Fatalf("want +Inf got=%v", got)
	}
	if got := ParseNumericValue("-Infinity"); !math.IsInf(got, -1) {
		t.Fatalf("want -Inf got=%v", got)
	}
}

func TestCellString(t *testing.T) {
	t.Parallel()

	if got := CellString(1001.0); got != "1001" {
		t.Fatalf("float code want=1001 got=%q", got)
	}
	if got := CellString(nil); got != "" {
		t.Fatalf("nil want empty got=%q", got)
	}
	if got := CellString("ABCM"); got != "ABCM" {
		t.Fatalf("string want=ABCM got=%q", got)
	}
}

func TestIsBlankCell(t *testing.T) {
	t.Parallel()

	for _, v := range []any{nil, "", "  ", "\t"} {
		if !IsBlankCell(v) {
			t.Fatalf("%#v should be blank", v)
		}
	}
	for _, v := range []any{0.0, "0", "x", false} {
		if IsBlankCell(v) {
			t.Fatalf("%#v should not be blank", v)
		}
	}
}
