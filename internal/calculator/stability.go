package calculator

import (
	"fmt"

	"millscope/internal/model"
)

// SourceStability 单个果源占比的稳定性
type SourceStability struct {
	Source string  `json:"source"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	CV     float64 `json:"cv"`
	Level  string  `json:"level"`
}

// StabilityResult 果源供应稳定性
type StabilityResult struct {
	Period     string          `json:"period"`
	Months     int             `json:"months"`
	DataPoints int             `json:"dataPoints"`
	Inti       SourceStability `json:"inti"`
	Plasma     SourceStability `json:"plasma"`
	ThirdParty SourceStability `json:"thirdParty"`
	AvgCV      float64         `json:"avgCv"`
	Verdict    Narrative       `json:"verdict"`
	Notes      []string        `json:"notes"`
}

// Sources 按 Inti、Plasma、3P 顺序返回
func (s *StabilityResult) Sources() []SourceStability {
	return []SourceStability{s.Inti, s.Plasma, s.ThirdParty}
}

// StabilityLevel CV 分档：<10 Excellent，<20 Good，<30 Moderate，否则 Poor
func StabilityLevel(cv float64) string {
	switch {
	case cv < 10:
		return "Excellent"
	case cv < 20:
		return "Good"
	case cv < 30:
		return "Moderate"
	default:
		return "Poor"
	}
}

func newSourceStability(source string, records []*model.MergedRecord, pick func(*model.MergedRecord) *float64) SourceStability {
	var values []float64
	for _, r := range records {
		if v := pick(r); v != nil && *v > 0 {
			values = append(values, *v*100)
		}
	}
	st := Describe(values)
	return SourceStability{
		Source: source,
		Mean:   st.Mean,
		StdDev: st.StdDev,
		CV:     st.CV,
		Level:  StabilityLevel(st.CV),
	}
}

// CalculateStability 滚动窗口内各果源占比的总体均值、标准差与变异系数（仅统计严格为正的占比）
func (c *Calculator) CalculateStability(records []*model.MergedRecord) *StabilityResult {
	window := RollingWindow(records, c.opts.RollingMonths)
	months := windowMonths(window)

	result := &StabilityResult{
		Period:     fmt.Sprintf("%d-Month Rolling", c.opts.RollingMonths),
		Months:     months,
		DataPoints: len(window),
		Inti:       newSourceStability(FruitInti, window, func(r *model.MergedRecord) *float64 { return r.FruitInti }),
		Plasma:     newSourceStability(FruitPlasma, window, func(r *model.MergedRecord) *float64 { return r.FruitPlasma }),
		ThirdParty: newSourceStability(Fruit3P, window, func(r *model.MergedRecord) *float64 { return r.Fruit3P }),
		Notes:      []string{},
	}
	if months < c.opts.RollingMonths {
		result.Period = fmt.Sprintf("%d-Month Period", months)
	}
	result.AvgCV = (result.Inti.CV + result.Plasma.CV + result.ThirdParty.CV) / 3

	switch {
	case result.AvgCV < 15:
		result.Verdict = Narrative{
			Level: LevelPositive,
			Title: "Excellent Stability",
			Body: fmt.Sprintf("Fruit sourcing is consistent (Avg CV: %.1f%%). "+
				"Predictable supply supports stable mill operations.", result.AvgCV),
		}
	case result.AvgCV < 25:
		result.Verdict = Narrative{
			Level: LevelInfo,
			Title: "Good Stability",
			Body: fmt.Sprintf("Moderate consistency (Avg CV: %.1f%%). "+
				"Some seasonal fluctuation exists but is manageable.", result.AvgCV),
		}
	default:
		result.Verdict = Narrative{
			Level: LevelWarning,
			Title: "High Variability",
			Body: fmt.Sprintf("Significant supply fluctuations detected (Avg CV: %.1f%%). "+
				"This makes OER prediction difficult.", result.AvgCV),
		}
	}
	if result.Inti.CV > 25 {
		result.Notes = append(result.Notes, fmt.Sprintf(
			"Inti Instability: Internal fruit supply is highly variable (%.1f%% CV). Review harvesting schedules.", result.Inti.CV))
	}
	return result
}
