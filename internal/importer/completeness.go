package importer

import (
	"fmt"
	"sort"

	"millscope/internal/model"
	"millscope/internal/parser"
)

// 缺失原因文案
const (
	reasonBeforeAbsent = "Pre-LMM OER"
	reasonAfterAbsent  = "Post-LMM OER"
	reasonFruitAbsent  = "Fruit Mix %"
)

// sheetPresence 单个源表的厂集合与空白单元格计数
type sheetPresence struct {
	estates map[string]struct{}
	blanks  map[string]int
}

func scanSheet(rows []model.RawRow) sheetPresence {
	p := sheetPresence{
		estates: make(map[string]struct{}),
		blanks:  make(map[string]int),
	}
	monthCols := make(map[string]bool)
	for _, row := range rows {
		estate := parser.EstateCode(row)
		if estate == "" {
			continue
		}
		p.estates[estate] = struct{}{}
		for key, val := range row {
			isMonth, seen := monthCols[key]
			if !seen {
				_, isMonth = parser.ParseMonthHeader(key)
				monthCols[key] = isMonth
			}
			if isMonth && parser.IsBlankCell(val) {
				p.blanks[estate]++
			}
		}
	}
	return p
}

func (p sheetPresence) has(estate string) bool {
	_, ok := p.estates[estate]
	return ok
}

// AnalyzeCompleteness 检查每个厂在三张源表中的出现情况与空白月份
//
// 数值 0 不算空白；只要有一个空白月份，整厂即被排除出对应的汇总。
func AnalyzeCompleteness(before, after, fruit []model.RawRow) model.CompletenessReport {
	b, a, f := scanSheet(before), scanSheet(after), scanSheet(fruit)

	union := make(map[string]struct{})
	for _, p := range []sheetPresence{b, a, f} {
		for e := range p.estates {
			union[e] = struct{}{}
		}
	}
	estates := make([]string, 0, len(union))
	for e := range union {
		estates = append(estates, e)
	}
	sort.Strings(estates)

	report := model.CompletenessReport{
		Incomplete:    []model.IncompleteMill{},
		OERComplete:   []string{},
		FruitComplete: []string{},
	}
	for _, estate := range estates {
		details := model.CompletenessDetails{
			HasBefore: b.has(estate),
			HasAfter:  a.has(estate),
			HasFruit:  f.has(estate),
			Blanks: model.BlankCounts{
				Before: b.blanks[estate],
				After:  a.blanks[estate],
				Fruit:  f.blanks[estate],
			},
		}
		details.OERComplete = details.HasBefore && details.HasAfter &&
			details.Blanks.Before == 0 && details.Blanks.After == 0
		details.FruitComplete = details.HasFruit && details.Blanks.Fruit == 0

		var missing []string
		if !details.HasBefore {
			missing = append(missing, reasonBeforeAbsent)
		}
		if !details.HasAfter {
			missing = append(missing, reasonAfterAbsent)
		}
		if details.Blanks.Before > 0 {
			missing = append(missing, blankReason(reasonBeforeAbsent, details.Blanks.Before))
		}
		if details.Blanks.After > 0 {
			missing = append(missing, blankReason(reasonAfterAbsent, details.Blanks.After))
		}
		if !details.HasFruit {
			missing = append(missing, reasonFruitAbsent)
		}
		if details.Blanks.Fruit > 0 {
			missing = append(missing, blankReason(reasonFruitAbsent, details.Blanks.Fruit))
		}

		if details.OERComplete {
			report.OERComplete = append(report.OERComplete, estate)
		}
		if details.FruitComplete {
			report.FruitComplete = append(report.FruitComplete, estate)
		}
		if len(missing) > 0 {
			report.Incomplete = append(report.Incomplete, model.IncompleteMill{
				Estate:  estate,
				Missing: missing,
				Details: details,
			})
		}
	}
	return report
}

func blankReason(sheet string, n int) string {
	unit := "month"
	if n > 1 {
		unit = "months"
	}
	return fmt.Sprintf("%s: %d blank %s", sheet, n, unit)
}
