package calculator

import (
	"math"
	"testing"

	"millscope/internal/model"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		values []float64
		mean   float64
		sd     float64
		cv     float64
	}{
		{name: "empty", values: nil},
		{name: "constant", values: []float64{10, 10, 10}, mean: 10},
		{name: "population", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}, mean: 5, sd: 2, cv: 40},
		{name: "non-positive mean", values: []float64{-1, 1}, sd: 1},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Describe(tc.values)
			if got.Count != len(tc.values) || !almostEqual(got.Mean, tc.mean) ||
				!almostEqual(got.StdDev, tc.sd) || !almostEqual(got.CV, tc.cv) {
				t.Fatalf("Describe(%v) = %+v", tc.values, got)
			}
		})
	}
}

func TestConstantSeriesIsExcellent(t *testing.T) {
	t.Parallel()

	st := Describe([]float64{10, 10, 10})
	if st.StdDev != 0 || st.CV != 0 {
		t.Fatalf("want zero spread, got %+v", st)
	}
	if got := StabilityLevel(st.CV); got != "Excellent" {
		t.Fatalf("want Excellent, got %s", got)
	}
}

func TestPearson(t *testing.T) {
	t.Parallel()

	if r := Pearson([]float64{1, 2, 3, 4}, []float64{10, 20, 30, 40}); !almostEqual(r, 1) {
		t.Fatalf("perfect positive relation: %v", r)
	}
	if r := Pearson([]float64{1, 2, 3}, []float64{3, 2, 1}); !almostEqual(r, -1) {
		t.Fatalf("perfect negative relation: %v", r)
	}
	if r := Pearson([]float64{5, 5, 5}, []float64{1, 2, 3}); r != 0 {
		t.Fatalf("constant series should yield 0, got %v", r)
	}
	if r := Pearson([]float64{1}, []float64{1}); r != 0 {
		t.Fatalf("single sample should yield 0, got %v", r)
	}
}

func TestStatusBands(t *testing.T) {
	t.Parallel()

	levels := map[float64]string{0: "Excellent", 9.99: "Excellent", 10: "Good", 20: "Moderate", 30: "Poor"}
	for cv, want := range levels {
		if got := StabilityLevel(cv); got != want {
			t.Errorf("StabilityLevel(%v) = %s, want %s", cv, got, want)
		}
	}
	strengths := map[float64]string{0.51: "Strong", -0.6: "Strong", 0.5: "Moderate", -0.31: "Moderate", 0.3: "Weak", 0: "Weak"}
	for r, want := range strengths {
		if got := CorrelationStrength(r); got != want {
			t.Errorf("CorrelationStrength(%v) = %s, want %s", r, got, want)
		}
	}
	benchmarks := map[float64]string{18.9: "Poor", 19: "Average", 21: "Good", 23: "Excellent", 25: "Exceptional"}
	for avg, want := range benchmarks {
		if got := BenchmarkStatus(avg); got != want {
			t.Errorf("BenchmarkStatus(%v) = %s, want %s", avg, got, want)
		}
	}
	fluctuations := map[float64]string{2.99: "Stable", 3: "Moderate", 6: "Volatile"}
	for cv, want := range fluctuations {
		if got, _ := FluctuationStatus(cv); got != want {
			t.Errorf("FluctuationStatus(%v) = %s, want %s", cv, got, want)
		}
	}
}

func TestRollingWindow(t *testing.T) {
	t.Parallel()

	var records []*model.MergedRecord
	start := model.YearMonth{Year: 2023, Month: 1}
	for i := 0; i < 15; i++ {
		records = append(records, mill("M1", start.AddMonths(i)).after(20).build())
	}
	// 缺月时窗口按出现过的月份向前延伸
	records = append(records, mill("M2", model.YearMonth{Year: 2022, Month: 6}).after(20).build())

	got := RollingWindow(records, 12)
	if len(got) != 12 {
		t.Fatalf("want 12 records, got %d", len(got))
	}
	if got[0].Date.String() != "2023-04" || got[len(got)-1].Date.String() != "2024-03" {
		t.Fatalf("unexpected window %s..%s", got[0].Date, got[len(got)-1].Date)
	}

	sparse := []*model.MergedRecord{
		mill("M1", model.YearMonth{Year: 2020, Month: 1}).build(),
		mill("M1", model.YearMonth{Year: 2024, Month: 1}).build(),
		mill("M2", model.YearMonth{Year: 2024, Month: 1}).build(),
	}
	if got := RollingWindow(sparse, 12); len(got) != 3 {
		t.Fatalf("sparse history should stay whole, got %d", len(got))
	}
	if got := RollingWindow(nil, 12); got != nil {
		t.Fatalf("empty input should give nil")
	}
}
