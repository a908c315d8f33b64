package calculator

import (
	"fmt"
	"sort"

	"millscope/internal/model"
)

// insightDelta 果源占比差异达到该百分点才输出洞察
const insightDelta = 2.0

// MillPerformance 单厂近期表现
type MillPerformance struct {
	Estate           string   `json:"estate"`
	AvgOER           float64  `json:"avgOer"`
	GapToTarget      float64  `json:"gapToTarget"`
	GapToTopMonth    *float64 `json:"gapToTopMonth"`
	DominantFruit    string   `json:"dominantFruit"`
	DominantFruitPct *float64 `json:"dominantFruitPct"`
	AvgIntiPct       float64  `json:"avgIntiPct"`
	AvgPlasmaPct     float64  `json:"avgPlasmaPct"`
	Avg3PPct         float64  `json:"avg3pPct"`
}

// FruitShares 一组厂的平均果源占比（百分比）
type FruitShares struct {
	Inti       float64 `json:"inti"`
	Plasma     float64 `json:"plasma"`
	ThirdParty float64 `json:"thirdParty"`
}

// PerformanceReport 近期窗口内的优秀厂与落后厂
type PerformanceReport struct {
	Target       float64           `json:"target"`
	Months       int               `json:"months"`
	Top          []MillPerformance `json:"top"`
	Bottom       []MillPerformance `json:"bottom"`
	TopShares    FruitShares       `json:"topShares"`
	BottomShares FruitShares       `json:"bottomShares"`
	KeyInsights  []string          `json:"keyInsights"`
}

type performanceAccumulator struct {
	estate      string
	values      []float64
	maxOER      float64
	fruitMonths int
	inti        float64
	plasma      float64
	thirdParty  float64
}

// MillPerformance 最近 12 个出现过的月份内各厂平均 OER、与目标及最佳月份的差距，输出前 N 与后 N
func (c *Calculator) MillPerformance(records []*model.MergedRecord) PerformanceReport {
	window := RollingWindow(records, c.opts.RollingMonths)
	report := PerformanceReport{
		Target:      c.opts.TargetOER,
		Months:      windowMonths(window),
		Top:         []MillPerformance{},
		Bottom:      []MillPerformance{},
		KeyInsights: []string{},
	}

	stats := c.buildMillStats(window)
	if len(stats) > 0 {
		report.Top = pickPerformers(stats, c.opts.PerformerRows, func(a, b MillPerformance) bool { return a.AvgOER > b.AvgOER })
		report.Bottom = pickPerformers(stats, c.opts.PerformerRows, func(a, b MillPerformance) bool { return a.AvgOER < b.AvgOER })
	}
	report.TopShares = averageShares(report.Top)
	report.BottomShares = averageShares(report.Bottom)
	report.KeyInsights = keyInsights(report.Top, report.Bottom, report.TopShares, report.BottomShares)
	return report
}

func (c *Calculator) buildMillStats(records []*model.MergedRecord) []MillPerformance {
	index := make(map[string]*performanceAccumulator)
	var order []string
	for _, r := range records {
		if r.Estate == "" || !r.HasOERAfter() {
			continue
		}
		acc, ok := index[r.Estate]
		if !ok {
			acc = &performanceAccumulator{estate: r.Estate, maxOER: *r.OERAfter}
			index[r.Estate] = acc
			order = append(order, r.Estate)
		}
		acc.values = append(acc.values, *r.OERAfter)
		if *r.OERAfter > acc.maxOER {
			acc.maxOER = *r.OERAfter
		}
		if r.HasAnyFruit() {
			acc.fruitMonths++
			acc.inti += model.Float(r.FruitInti)
			acc.plasma += model.Float(r.FruitPlasma)
			acc.thirdParty += model.Float(r.Fruit3P)
		}
	}

	out := make([]MillPerformance, 0, len(order))
	for _, estate := range order {
		acc := index[estate]
		avg := Mean(acc.values)
		var inti, plasma, thirdParty float64
		if acc.fruitMonths > 0 {
			n := float64(acc.fruitMonths)
			inti, plasma, thirdParty = acc.inti/n, acc.plasma/n, acc.thirdParty/n
		}

		dominant, share := FruitInti, inti
		if plasma > share {
			dominant, share = FruitPlasma, plasma
		}
		if thirdParty > share {
			dominant, share = Fruit3P, thirdParty
		}

		mp := MillPerformance{
			Estate:        estate,
			AvgOER:        avg,
			GapToTarget:   avg - c.opts.TargetOER,
			GapToTopMonth: model.FloatPtr(acc.maxOER - avg),
			DominantFruit: NoData,
			AvgIntiPct:    inti * 100,
			AvgPlasmaPct:  plasma * 100,
			Avg3PPct:      thirdParty * 100,
		}
		if share > 0 {
			mp.DominantFruit = dominant
			mp.DominantFruitPct = model.FloatPtr(share * 100)
		}
		out = append(out, mp)
	}
	return out
}

func pickPerformers(stats []MillPerformance, limit int, better func(a, b MillPerformance) bool) []MillPerformance {
	sorted := make([]MillPerformance, len(stats))
	copy(sorted, stats)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].AvgOER == sorted[j].AvgOER {
			return sorted[i].Estate < sorted[j].Estate
		}
		return better(sorted[i], sorted[j])
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func averageShares(stats []MillPerformance) FruitShares {
	if len(stats) == 0 {
		return FruitShares{}
	}
	var shares FruitShares
	for _, s := range stats {
		shares.Inti += s.AvgIntiPct
		shares.Plasma += s.AvgPlasmaPct
		shares.ThirdParty += s.Avg3PPct
	}
	n := float64(len(stats))
	return FruitShares{Inti: shares.Inti / n, Plasma: shares.Plasma / n, ThirdParty: shares.ThirdParty / n}
}

func keyInsights(top, bottom []MillPerformance, topAvg, bottomAvg FruitShares) []string {
	if len(top) == 0 || len(bottom) == 0 {
		return []string{"Key insights populate after the workbook is processed."}
	}
	var insights []string
	if topAvg.Inti-bottomAvg.Inti >= insightDelta {
		insights = append(insights, fmt.Sprintf("Top performers maintain roughly %.1f%% Inti vs %.1f%% across the bottom group, "+
			"reinforcing that higher Inti share tracks with stronger OER.", topAvg.Inti, bottomAvg.Inti))
	}
	if bottomAvg.Plasma-topAvg.Plasma >= insightDelta {
		insights = append(insights, fmt.Sprintf("Bottom mills rely on %.1f%% Plasma compared to %.1f%% for leaders, "+
			"suggesting Plasma quality or proportion can suppress OER when elevated.", bottomAvg.Plasma, topAvg.Plasma))
	}
	if bottomAvg.ThirdParty-topAvg.ThirdParty >= insightDelta {
		insights = append(insights, fmt.Sprintf("Higher 3P exposure (%.1f%% vs %.1f%%) aligns with lower OER, "+
			"so clamp down on 3P quality/quantity if you need gains.", bottomAvg.ThirdParty, topAvg.ThirdParty))
	}
	if len(insights) == 0 {
		insights = append(insights, "Top and bottom performers currently present similar fruit mix patterns; "+
			"dig into processing losses or fruit quality signals for the next insight layer.")
	}
	return insights
}
