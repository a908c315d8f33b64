package calculator

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"millscope/internal/model"
)

// minCorrelationRecords 相关性分析所需的最少记录数
const minCorrelationRecords = 3

// SourceCorrelation 单个果源占比与 oer_after 的相关性
type SourceCorrelation struct {
	Source    string  `json:"source"`
	R         float64 `json:"r"`
	Strength  string  `json:"strength"`
	Direction string  `json:"direction"`
	Impact    float64 `json:"impact"`
}

// CorrelationResult 果源结构与 OER 的相关性分析
type CorrelationResult struct {
	Period          string            `json:"period"`
	Months          int               `json:"months"`
	DataPoints      int               `json:"dataPoints"`
	Inti            SourceCorrelation `json:"inti"`
	Plasma          SourceCorrelation `json:"plasma"`
	ThirdParty      SourceCorrelation `json:"thirdParty"`
	Recommendations []Narrative       `json:"recommendations"`
	Conclusions     []string          `json:"conclusions"`
}

// Sources 按 Inti、Plasma、3P 顺序返回
func (c *CorrelationResult) Sources() []SourceCorrelation {
	return []SourceCorrelation{c.Inti, c.Plasma, c.ThirdParty}
}

// CorrelationStrength |r|>0.5 Strong，>0.3 Moderate，否则 Weak
func CorrelationStrength(r float64) string {
	abs := math.Abs(r)
	switch {
	case abs > 0.5:
		return "Strong"
	case abs > 0.3:
		return "Moderate"
	default:
		return "Weak"
	}
}

func newSourceCorrelation(source string, fruit, oer []float64) SourceCorrelation {
	r := Pearson(fruit, oer)
	direction := "Positive"
	if r < 0 {
		direction = "Negative"
	}
	return SourceCorrelation{
		Source:    source,
		R:         r,
		Strength:  CorrelationStrength(r),
		Direction: direction,
		Impact:    r * 0.8,
	}
}

// CalculateCorrelation 在滚动窗口内计算 oer_after 与三类果源占比（×100）的皮尔逊相关系数
//
// 只使用 oer_after 与三个果源均非空的记录，不足 3 条时返回 nil。
func (c *Calculator) CalculateCorrelation(records []*model.MergedRecord) *CorrelationResult {
	valid := lo.Filter(records, func(r *model.MergedRecord, _ int) bool {
		return r.OERAfter != nil && r.HasAllFruit()
	})
	if len(valid) < minCorrelationRecords {
		return nil
	}

	window := RollingWindow(valid, c.opts.RollingMonths)
	months := windowMonths(window)

	oer := make([]float64, len(window))
	inti := make([]float64, len(window))
	plasma := make([]float64, len(window))
	thirdParty := make([]float64, len(window))
	for i, r := range window {
		oer[i] = *r.OERAfter
		inti[i] = *r.FruitInti * 100
		plasma[i] = *r.FruitPlasma * 100
		thirdParty[i] = *r.Fruit3P * 100
	}

	result := &CorrelationResult{
		Period:     fmt.Sprintf("%d-Month Rolling", c.opts.RollingMonths),
		Months:     months,
		DataPoints: len(window),
		Inti:       newSourceCorrelation(FruitInti, inti, oer),
		Plasma:     newSourceCorrelation(FruitPlasma, plasma, oer),
		ThirdParty: newSourceCorrelation(Fruit3P, thirdParty, oer),
	}
	if months < c.opts.RollingMonths {
		result.Period = fmt.Sprintf("%d-Month Period", months)
	}
	result.Recommendations = correlationRecommendations(result.Inti.R, result.ThirdParty.R)
	result.Conclusions = correlationConclusions(result.Inti.R, result.ThirdParty.R)
	return result
}

func correlationRecommendations(rInti, r3P float64) []Narrative {
	out := []Narrative{}
	if rInti < 0 {
		out = append(out, Narrative{
			Level: LevelCritical,
			Title: "Inti (Internal Fruit) Quality Alert",
			Body: fmt.Sprintf("Issue: Negative correlation detected (%.2f). Increasing Inti proportion is associated with lower OER. "+
				"Root Cause: Likely quality issues with internal fruit supply.", rInti),
			Actions: []string{
				"Inspect ripeness standards (target 80-90% ripe bunches)",
				"Check for fruit damage during harvest and transportation",
				"Review internal estate agronomic practices",
				"Verify fruit age (freshness from harvest to processing)",
				"Assess bunch composition (loose fruit percentage)",
			},
		})
	} else if rInti > 0.3 {
		out = append(out, Narrative{
			Level: LevelPositive,
			Title: "Inti (Internal Fruit) Performing Well",
			Body: fmt.Sprintf("Good correlation (+%.2f): Your internal fruit quality is contributing positively to OER. "+
				"Maintain current harvest and quality standards.", rInti),
		})
	}
	if r3P < -0.3 {
		out = append(out, Narrative{
			Level: LevelWarning,
			Title: "Third-Party (3P) Fruit Quality Concern",
			Body: fmt.Sprintf("Issue: Strong negative correlation (%.2f). Higher 3P proportion correlates with lower OER. "+
				"Recommendation: Implement stricter quality acceptance criteria for third-party suppliers. "+
				"Consider reducing 3P dependency and increasing Inti/Plasma proportion.", r3P),
		})
	}
	return out
}

func correlationConclusions(rInti, r3P float64) []string {
	var out []string
	if rInti < 0 {
		out = append(out, "Negative Inti Correlation: Internal fruit quality is negatively impacting OER. "+
			"This is a critical issue as Inti should be the highest quality source.")
	} else if rInti > 0.5 {
		out = append(out, "Strong Positive Inti Correlation: Internal fruit is driving OER performance. Maintain current estate practices.")
	}
	if r3P < -0.3 {
		out = append(out, "3P Quality Drag: Third-party fruit is significantly reducing overall OER. Quality control measures are needed.")
	}
	if len(out) == 0 {
		out = append(out, "No significant negative correlations detected. Fruit mix impact on OER appears stable.")
	}
	return out
}
