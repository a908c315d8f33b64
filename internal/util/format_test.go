package util

import "testing"

func TestFormatPercent(t *testing.T) {
	t.Parallel()

	v := 21.456
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"plain", FormatPercent(23.4), "23.40%"},
		{"gain", FormatSignedPercent(1.5), "+1.50%"},
		{"loss", FormatSignedPercent(-0.25), "-0.25%"},
		{"zero", FormatSignedPercent(0), "0.00%"},
		{"optional", FormatOptionalPercent(&v), "21.46%"},
		{"missing", FormatOptionalPercent(nil), "-"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s: got %q want %q", tc.name, tc.got, tc.want)
		}
	}
}

func TestFindAvailablePort(t *testing.T) {
	t.Parallel()

	p, err := FindAvailablePort(20262, 50)
	if err != nil {
		t.Fatalf("FindAvailablePort: %v", err)
	}
	if p < 20262 || p >= 20312 {
		t.Fatalf("port %d out of range", p)
	}
}
