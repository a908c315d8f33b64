package calculator

import (
	"millscope/internal/model"
)

// MonthlyPoint 月度均值点，Overall 为不受筛选影响的全量均值（该月无数据时为 nil）
type MonthlyPoint struct {
	Month   string   `json:"month"`
	Label   string   `json:"label"`
	Value   float64  `json:"value"`
	Overall *float64 `json:"overall"`
}

// FluctuationResult oer_after 月度波动
type FluctuationResult struct {
	HasData bool           `json:"hasData"`
	Period  string         `json:"period"`
	Points  []MonthlyPoint `json:"points"`
	Mean    float64        `json:"mean"`
	StdDev  float64        `json:"stdDev"`
	CV      float64        `json:"cv"`
	Status  string         `json:"status"`
	Insight string         `json:"insight"`
}

// FluctuationStatus CV≥6 Volatile，≥3 Moderate，否则 Stable；返回状态与说明
func FluctuationStatus(cv float64) (string, string) {
	switch {
	case cv >= 6:
		return "Volatile", "High month-to-month fluctuation; investigate operational consistency."
	case cv >= 3:
		return "Moderate", "Some variability present; monitor for drift and tighten controls."
	default:
		return "Stable", "Low month-to-month swing; OER is steady."
	}
}

// CalculateFluctuation 以最晚月份为终点的 12 个日历月内，逐月 oer_after 均值的总体标准差与 CV
//
// all 为未筛选的全部记录，用于对比曲线。
func (c *Calculator) CalculateFluctuation(records, all []*model.MergedRecord) *FluctuationResult {
	result := &FluctuationResult{Points: []MonthlyPoint{}}
	buckets := groupByMonth(records, nonZeroOERAfter)
	if len(buckets) == 0 {
		result.Period = "No data"
		result.Insight = "No data available for volatility check."
		return result
	}

	last := buckets[len(buckets)-1].Month
	start := last.AddMonths(-(c.opts.RollingMonths - 1))

	overall := make(map[int]float64)
	for _, b := range groupByMonth(all, nonZeroOERAfter) {
		overall[b.Month.Index()] = Mean(b.Values)
	}

	values := make([]float64, 0, len(buckets))
	for _, b := range buckets {
		if b.Month.Before(start) {
			continue
		}
		avg := Mean(b.Values)
		point := MonthlyPoint{Month: b.Month.String(), Label: b.Month.Label(), Value: avg}
		if v, ok := overall[b.Month.Index()]; ok {
			point.Overall = model.FloatPtr(v)
		}
		result.Points = append(result.Points, point)
		values = append(values, avg)
	}

	st := Describe(values)
	status, detail := FluctuationStatus(st.CV)
	first, _ := model.ParseMonthKey(result.Points[0].Month)
	result.HasData = true
	result.Period = monthRangeLabel(first, last)
	result.Mean = st.Mean
	result.StdDev = st.StdDev
	result.CV = st.CV
	result.Status = status
	result.Insight = status + " OER: " + detail
	return result
}
