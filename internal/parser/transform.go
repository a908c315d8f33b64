package parser

import (
	"sort"
	"strings"

	"millscope/internal/model"
)

// EstateCode 返回行的厂代码（去空白）
func EstateCode(row model.RawRow) string {
	return strings.TrimSpace(CellString(row[ColumnEstateCode]))
}

// TransformSheet 将宽表（每月一列）展开为逐月指标
//
// 每个能解析为月份的表头产生一条记录，N 个月份列得到 N 条；厂代码为空的行跳过。
func TransformSheet(rows []model.RawRow, field model.MetricField, hasCategory bool) []model.MetricFact {
	facts := make([]model.MetricFact, 0, len(rows)*12)
	for _, row := range rows {
		estate := EstateCode(row)
		if estate == "" {
			continue
		}
		lmm := model.NewLabel(CellString(row[ColumnLMMCPO]))
		var category model.Label
		if hasCategory {
			category = model.NewLabel(CellString(row[ColumnFruitMix]))
		}

		for _, key := range sortedKeys(row) {
			ym, ok := ParseMonthHeader(key)
			if !ok {
				continue
			}
			facts = append(facts, model.MetricFact{
				Estate:   estate,
				LMM:      lmm,
				Date:     ym,
				Category: category,
				Field:    field,
				Value:    ParseNumericValue(row[key]),
			})
		}
	}
	return facts
}

// TransformMapping 解析映射表：厂代码 -> PSM / Region
//
// 同一厂出现多次时以最后一行为准。
func TransformMapping(rows []model.RawRow) model.Mapping {
	mapping := make(model.Mapping, len(rows))
	for _, row := range rows {
		estate := EstateCode(row)
		if estate == "" {
			continue
		}
		mapping[estate] = model.MappingEntry{
			PSM:    model.NewLabel(CellString(row[ColumnPSM])),
			Region: model.NewLabel(CellString(row[ColumnRegion])),
		}
	}
	return mapping
}

// MonthColumns 返回行中可解析为月份的表头
func MonthColumns(row model.RawRow) []string {
	var cols []string
	for _, key := range sortedKeys(row) {
		if _, ok := ParseMonthHeader(key); ok {
			cols = append(cols, key)
		}
	}
	return cols
}

func sortedKeys(row model.RawRow) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
