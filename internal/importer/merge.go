package importer

import (
	"sort"
	"strings"

	"millscope/internal/model"
)

// FruitSource 果源类别
type FruitSource int

const (
	FruitUnknown FruitSource = iota
	FruitInti
	FruitPlasma
	Fruit3P
)

// ClassifyFruitCategory 按子串（不区分大小写）识别果源类别，依次匹配 inti、plasma、3p/third/external
func ClassifyFruitCategory(category string) FruitSource {
	cat := strings.ToLower(category)
	switch {
	case strings.Contains(cat, "inti"):
		return FruitInti
	case strings.Contains(cat, "plasma"):
		return FruitPlasma
	case strings.Contains(cat, "3p"), strings.Contains(cat, "third"), strings.Contains(cat, "external"):
		return Fruit3P
	default:
		return FruitUnknown
	}
}

// MergeDatasets 按 estate|date 合并三张表的逐月指标
//
// 处理顺序为技改前、技改后、果源。PSM/Region 在键首次创建时从映射表取得；
// lmm 以技改前为准，技改后仅在尚未解析时补充，果源新建的键 lmm 未解析。
// 未识别的果源类别被丢弃，但仍会创建键。
func MergeDatasets(before, after, fruit []model.MetricFact, mapping model.Mapping) []*model.MergedRecord {
	merged := make(map[string]*model.MergedRecord)

	ensure := func(f model.MetricFact) *model.MergedRecord {
		key := model.RecordKey(f.Estate, f.Date)
		if rec, ok := merged[key]; ok {
			return rec
		}
		entry := mapping[f.Estate]
		rec := &model.MergedRecord{
			Estate: f.Estate,
			Date:   f.Date,
			Year:   f.Date.Year,
			Month:  f.Date.Month,
			PSM:    entry.PSM,
			Region: entry.Region,
		}
		merged[key] = rec
		return rec
	}

	for _, f := range before {
		rec := ensure(f)
		rec.OERBefore = model.FloatPtr(f.Value)
		rec.LMM = f.LMM
	}

	for _, f := range after {
		rec := ensure(f)
		rec.OERAfter = model.FloatPtr(f.Value)
		if !rec.LMM.Resolved() {
			rec.LMM = f.LMM
		}
	}

	for _, f := range fruit {
		rec := ensure(f)
		if !f.Category.Valid {
			continue
		}
		switch ClassifyFruitCategory(f.Category.Text) {
		case FruitInti:
			rec.FruitInti = model.FloatPtr(f.Value)
		case FruitPlasma:
			rec.FruitPlasma = model.FloatPtr(f.Value)
		case Fruit3P:
			rec.Fruit3P = model.FloatPtr(f.Value)
		}
	}

	out := make([]*model.MergedRecord, 0, len(merged))
	for _, rec := range merged {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Estate < out[j].Estate
	})
	return out
}
