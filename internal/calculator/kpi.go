package calculator

import (
	"github.com/samber/lo"

	"millscope/internal/model"
)

const (
	FruitInti   = "Inti"
	FruitPlasma = "Plasma"
	Fruit3P     = "3P"

	// LMMMixed 多个不同 LMM 取值
	LMMMixed = "Mixed"
	// NoData 无数据占位
	NoData = "-"
)

// KPISummary 顶部指标卡
//
// 均值、最大最小值只统计非空且非 0 的读数；字段为 nil 表示没有可用读数。
type KPISummary struct {
	Records       int      `json:"records"`
	AvgOERBefore  *float64 `json:"avgOerBefore"`
	AvgOERAfter   *float64 `json:"avgOerAfter"`
	Gain          *float64 `json:"gain"`
	MaxOERAfter   *float64 `json:"maxOerAfter"`
	MinOERAfter   *float64 `json:"minOerAfter"`
	DominantFruit string   `json:"dominantFruit"`
	LMMStatus     string   `json:"lmmStatus"`
}

// CalculateKPIs 汇总 OER 完整厂的记录
func CalculateKPIs(records []*model.MergedRecord) KPISummary {
	summary := KPISummary{
		Records:       len(records),
		DominantFruit: FruitInti,
		LMMStatus:     NoData,
	}

	var before, after []float64
	var inti, plasma, thirdParty float64
	for _, r := range records {
		if r.HasOERBefore() {
			before = append(before, *r.OERBefore)
		}
		if r.HasOERAfter() {
			after = append(after, *r.OERAfter)
		}
		inti += model.Float(r.FruitInti)
		plasma += model.Float(r.FruitPlasma)
		thirdParty += model.Float(r.Fruit3P)
	}

	if len(before) > 0 {
		summary.AvgOERBefore = model.FloatPtr(Mean(before))
	}
	if len(after) > 0 {
		summary.AvgOERAfter = model.FloatPtr(Mean(after))
		summary.MaxOERAfter = model.FloatPtr(lo.Max(after))
		summary.MinOERAfter = model.FloatPtr(lo.Min(after))
	}
	if summary.AvgOERBefore != nil && summary.AvgOERAfter != nil {
		summary.Gain = model.FloatPtr(*summary.AvgOERAfter - *summary.AvgOERBefore)
	}

	best := inti
	if plasma > best {
		summary.DominantFruit = FruitPlasma
		best = plasma
	}
	if thirdParty > best {
		summary.DominantFruit = Fruit3P
	}

	lmms := lo.Uniq(lo.FilterMap(records, func(r *model.MergedRecord, _ int) (string, bool) {
		return r.LMM.Text, r.LMM.Valid
	}))
	switch len(lmms) {
	case 0:
	case 1:
		summary.LMMStatus = lmms[0]
	default:
		summary.LMMStatus = LMMMixed
	}
	return summary
}

// Indicators 将指标卡整理为分组展示结构
func (s KPISummary) Indicators() []IndicatorGroup {
	return []IndicatorGroup{
		{
			Name: "OER",
			Indicators: []Indicator{
				{ID: "oer_before_avg", Name: "Avg OER Before HFC", Value: s.AvgOERBefore, Unit: "%"},
				{ID: "oer_after_avg", Name: "Avg OER After HFC", Value: s.AvgOERAfter, Unit: "%"},
				{ID: "oer_gain", Name: "OER Gain", Value: s.Gain, Unit: "%"},
				{ID: "oer_after_max", Name: "Max OER After HFC", Value: s.MaxOERAfter, Unit: "%"},
				{ID: "oer_after_min", Name: "Min OER After HFC", Value: s.MinOERAfter, Unit: "%"},
			},
		},
		{
			Name: "Sourcing",
			Indicators: []Indicator{
				{ID: "dominant_fruit", Name: "Dominant Fruit Source", Text: s.DominantFruit},
				{ID: "lmm_status", Name: "LMM Status", Text: s.LMMStatus},
			},
		},
	}
}
