package calculator

import (
	"sort"

	"millscope/internal/model"
)

// OverviewRow 概览表一行（每厂一行）
type OverviewRow struct {
	Estate        string      `json:"estate"`
	PSM           model.Label `json:"psm"`
	Region        model.Label `json:"region"`
	LMM           model.Label `json:"lmm"`
	AvgOERAfter   float64     `json:"avgOerAfter"`
	DominantFruit string      `json:"dominantFruit"`
}

type overviewAccumulator struct {
	row         OverviewRow
	oerSum      float64
	oerCount    int
	inti        float64
	plasma      float64
	thirdParty  float64
	fruitMonths int
}

// OverviewTable 各厂概览，按平均 oer_after 降序
//
// 组织归属取该厂首条记录；平均值包含 0 读数。
func OverviewTable(records []*model.MergedRecord) []OverviewRow {
	index := make(map[string]*overviewAccumulator)
	var order []string
	for _, r := range records {
		acc, ok := index[r.Estate]
		if !ok {
			acc = &overviewAccumulator{row: OverviewRow{
				Estate: r.Estate,
				PSM:    r.PSM,
				Region: r.Region,
				LMM:    r.LMM,
			}}
			index[r.Estate] = acc
			order = append(order, r.Estate)
		}
		if r.OERAfter != nil {
			acc.oerSum += *r.OERAfter
			acc.oerCount++
		}
		if r.HasAnyFruit() {
			acc.inti += model.Float(r.FruitInti)
			acc.plasma += model.Float(r.FruitPlasma)
			acc.thirdParty += model.Float(r.Fruit3P)
			acc.fruitMonths++
		}
	}

	rows := make([]OverviewRow, 0, len(order))
	for _, estate := range order {
		acc := index[estate]
		row := acc.row
		if acc.oerCount > 0 {
			row.AvgOERAfter = acc.oerSum / float64(acc.oerCount)
		}
		row.DominantFruit = NoData
		if acc.fruitMonths > 0 {
			// 同值时后出现的果源胜出
			name, value := FruitInti, acc.inti
			if acc.plasma >= value {
				name, value = FruitPlasma, acc.plasma
			}
			if acc.thirdParty >= value {
				name, value = Fruit3P, acc.thirdParty
			}
			if value > 0 {
				row.DominantFruit = name
			}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].AvgOERAfter > rows[j].AvgOERAfter
	})
	return rows
}

// TrendPoint 趋势图的单月数据，无记录的月份各值为 nil
type TrendPoint struct {
	Month         string   `json:"month"`
	Label         string   `json:"label"`
	OERBefore     *float64 `json:"oerBefore"`
	OERAfter      *float64 `json:"oerAfter"`
	IntiPct       *float64 `json:"intiPct"`
	PlasmaPct     *float64 `json:"plasmaPct"`
	ThirdPartyPct *float64 `json:"thirdPartyPct"`
	Target        float64  `json:"target"`
}

type trendAccumulator struct {
	beforeSum, afterSum            float64
	beforeCount, afterCount, count int
	inti, plasma, thirdParty       float64
}

// TrendSeries 从首月到末月逐个日历月的 OER 均值与果源占比（×100）
func (c *Calculator) TrendSeries(records []*model.MergedRecord) []TrendPoint {
	first, last, ok := model.DateBounds(records)
	if !ok {
		return []TrendPoint{}
	}
	months := make(map[int]*trendAccumulator)
	for _, r := range records {
		acc, exists := months[r.Date.Index()]
		if !exists {
			acc = &trendAccumulator{}
			months[r.Date.Index()] = acc
		}
		if r.HasOERBefore() {
			acc.beforeSum += *r.OERBefore
			acc.beforeCount++
		}
		if r.HasOERAfter() {
			acc.afterSum += *r.OERAfter
			acc.afterCount++
		}
		acc.inti += model.Float(r.FruitInti)
		acc.plasma += model.Float(r.FruitPlasma)
		acc.thirdParty += model.Float(r.Fruit3P)
		acc.count++
	}

	points := make([]TrendPoint, 0, last.Index()-first.Index()+1)
	for m := first; !m.After(last); m = m.AddMonths(1) {
		point := TrendPoint{Month: m.String(), Label: m.Label(), Target: c.opts.TargetOER}
		if acc, ok := months[m.Index()]; ok {
			if acc.beforeCount > 0 {
				point.OERBefore = model.FloatPtr(acc.beforeSum / float64(acc.beforeCount))
			}
			if acc.afterCount > 0 {
				point.OERAfter = model.FloatPtr(acc.afterSum / float64(acc.afterCount))
			}
			n := float64(acc.count)
			point.IntiPct = model.FloatPtr(acc.inti / n * 100)
			point.PlasmaPct = model.FloatPtr(acc.plasma / n * 100)
			point.ThirdPartyPct = model.FloatPtr(acc.thirdParty / n * 100)
		}
		points = append(points, point)
	}
	return points
}
