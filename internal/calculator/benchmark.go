package calculator

import (
	"fmt"

	"millscope/internal/model"
)

// BenchmarkBand 行业基准区间
type BenchmarkBand struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// BenchmarkBands Poor 到 Exceptional 五档
var BenchmarkBands = []BenchmarkBand{
	{Label: "Poor", Min: 17, Max: 19},
	{Label: "Average", Min: 19, Max: 21},
	{Label: "Good", Min: 21, Max: 23},
	{Label: "Excellent", Min: 23, Max: 25},
	{Label: "Exceptional", Min: 25, Max: 27},
}

// BenchmarkStatus 按平均 OER 定档
func BenchmarkStatus(avg float64) string {
	switch {
	case avg >= 25:
		return "Exceptional"
	case avg >= 23:
		return "Excellent"
	case avg >= 21:
		return "Good"
	case avg >= 19:
		return "Average"
	default:
		return "Poor"
	}
}

// BenchmarkResult 当前 OER 与基准、历史峰值的对比
type BenchmarkResult struct {
	Period     string          `json:"period"`
	CurrentOER float64         `json:"currentOer"`
	HasCurrent bool            `json:"hasCurrent"`
	DataPoints int             `json:"dataPoints"`
	Status     string          `json:"status"`
	Bands      []BenchmarkBand `json:"bands"`
	PeakMonth  string          `json:"peakMonth,omitempty"`
	PeakOER    *float64        `json:"peakOer"`
	PeakCount  int             `json:"peakCount"`
	GapToPeak  *float64        `json:"gapToPeak"`
	PeakNote   string          `json:"peakNote"`
}

// Benchmark 以最晚月份为终点的 12 个日历月内的平均 oer_after（非 0）定档
//
// 历史峰值在 filtered（不考虑完整性）上按月计算 oer_after 均值，包含 0 读数，同值取较早月份。
func (c *Calculator) Benchmark(records, filtered []*model.MergedRecord) *BenchmarkResult {
	last, ok := latestMonth(records)
	if !ok {
		return nil
	}
	start := last.AddMonths(-(c.opts.RollingMonths - 1))

	var values []float64
	for _, r := range records {
		if r.Date.Before(start) || !r.HasOERAfter() {
			continue
		}
		values = append(values, *r.OERAfter)
	}

	result := &BenchmarkResult{
		Period:     monthRangeLabel(start, last),
		CurrentOER: Mean(values),
		HasCurrent: len(values) > 0,
		DataPoints: len(values),
		Bands:      BenchmarkBands,
		PeakNote:   "No peak data",
	}
	result.Status = BenchmarkStatus(result.CurrentOER)

	var peak *monthlyBucket
	buckets := groupByMonth(filtered, func(r *model.MergedRecord) (float64, bool) {
		return model.Float(r.OERAfter), r.OERAfter != nil
	})
	for i := range buckets {
		if peak == nil || Mean(buckets[i].Values) > Mean(peak.Values) {
			peak = &buckets[i]
		}
	}
	if peak != nil {
		avg := Mean(peak.Values)
		result.PeakMonth = peak.Month.String()
		result.PeakOER = model.FloatPtr(avg)
		result.PeakCount = len(peak.Values)
		result.PeakNote = fmt.Sprintf("Peak month: %s (avg of %d records)", peak.Month.Label(), len(peak.Values))
		if result.HasCurrent {
			result.GapToPeak = model.FloatPtr(avg - result.CurrentOER)
		}
	}
	return result
}

// Recommendations 按当前平均 OER 给出分档建议
func Recommendations(avgOER float64) Narrative {
	switch {
	case avgOER < 19:
		return Narrative{
			Level: LevelCritical,
			Title: "Critical: Below Industry Average",
			Body:  fmt.Sprintf("Your OER (%.2f%%) is below industry standards. Immediate action required.", avgOER),
			Actions: []string{
				"Conduct comprehensive mill audit (sterilization, pressing, clarification)",
				"Review fruit quality standards and ripeness criteria",
				"Check equipment maintenance schedules and efficiency",
				"Analyze process losses at each stage",
			},
		}
	case avgOER < 21:
		return Narrative{
			Level: LevelWarning,
			Title: "Room for Improvement",
			Body:  fmt.Sprintf("Your OER (%.2f%%) is average. Target 21%%+ for better performance.", avgOER),
			Actions: []string{
				"Optimize sterilization parameters (temperature, pressure, time)",
				"Improve fruit ripeness selection (target 80-90% ripe)",
				"Review pressing efficiency and screw press settings",
			},
		}
	case avgOER < 23:
		return Narrative{
			Level: LevelInfo,
			Title: "Good Performance",
			Body:  fmt.Sprintf("Your OER (%.2f%%) is good. Focus on consistency and incremental gains.", avgOER),
			Actions: []string{
				"Maintain current best practices",
				"Fine-tune process parameters for 1-2% improvement",
				"Monitor fruit quality consistency",
			},
		}
	default:
		return Narrative{
			Level: LevelPositive,
			Title: "Excellent Performance",
			Body:  fmt.Sprintf("Your OER (%.2f%%) is excellent. Focus on maintaining this level.", avgOER),
			Actions: []string{
				"Document current best practices",
				"Share knowledge across estates",
				"Monitor for any degradation in performance",
			},
		}
	}
}
