package exporter

import (
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"millscope/internal/calculator"
	"millscope/internal/model"
)

// 导出工作簿的 sheet 名称
const (
	SheetSummary      = "Summary"
	SheetOverview     = "Overview"
	SheetRanking      = "Ranking"
	SheetPerformance  = "Performance"
	SheetCompleteness = "Completeness"
	SheetRecords      = "Records"
)

// Snapshot 一次导出所需的全部数据，三者须来自同一时刻的筛选状态
type Snapshot struct {
	Filter    model.FilterState
	Dashboard calculator.Dashboard
	Records   []*model.MergedRecord
}

// Source 导出数据来源（看板控制器实现）
type Source interface {
	ExportSnapshot() (Snapshot, error)
}

// Exporter 看板导出器
//
// 每次导出新建工作簿，按固定顺序写出汇总、总览、排名、表现、完整性与明细 sheet。
type Exporter struct {
	source Source
}

// NewExporter 创建导出器
func NewExporter(source Source) *Exporter {
	return &Exporter{source: source}
}

// ExportOptions 导出选项
type ExportOptions struct {
	Progress func(ProgressEvent)
}

// Export 取得当前快照并导出
func (e *Exporter) Export(opts ExportOptions) (*excelize.File, error) {
	reportProgress(opts.Progress, ProgressEvent{Percent: 5, Stage: StageSnapshot, Message: "计算看板数据"})
	snap, err := e.source.ExportSnapshot()
	if err != nil {
		return nil, err
	}
	return WriteSnapshot(snap, opts)
}

// WriteSnapshot 将快照写入新工作簿
func WriteSnapshot(snap Snapshot, opts ExportOptions) (*excelize.File, error) {
	f := excelize.NewFile()
	for i, step := range sheetSteps {
		var err error
		if i == 0 {
			err = f.SetSheetName("Sheet1", step.sheet)
		} else {
			_, err = f.NewSheet(step.sheet)
		}
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("创建 sheet %s 失败: %w", step.sheet, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w := &sheetWriter{f: f, header: header}

	dash := snap.Dashboard
	fills := map[string]func() error{
		SheetSummary:      func() error { return w.fillSummary(dash, snap.Filter) },
		SheetOverview:     func() error { return w.fillOverview(dash.Overview) },
		SheetRanking:      func() error { return w.fillRanking(dash.Ranking) },
		SheetPerformance:  func() error { return w.fillPerformance(dash.Analysis) },
		SheetCompleteness: func() error { return w.fillCompleteness(dash.Incomplete) },
		SheetRecords:      func() error { return w.fillRecords(snap.Records) },
	}
	for _, step := range sheetSteps {
		reportProgress(opts.Progress, ProgressEvent{
			Percent: step.percent,
			Stage:   StageSheet,
			Sheet:   step.sheet,
			Message: step.message,
		})
		if err := fills[step.sheet](); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%s失败: %w", step.message, err)
		}
	}

	f.SetActiveSheet(0)
	reportProgress(opts.Progress, ProgressEvent{Percent: 100, Stage: StageDone, Message: "导出完成"})
	return f, nil
}

type sheetWriter struct {
	f      *excelize.File
	header int
}

func (w *sheetWriter) writeHeader(sheet string, row int, titles ...string) error {
	cells := make([]interface{}, len(titles))
	for i, t := range titles {
		cells[i] = t
	}
	if err := w.writeRow(sheet, row, cells...); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(titles), row)
	return w.f.SetCellStyle(sheet, first, last, w.header)
}

func (w *sheetWriter) writeRow(sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return w.f.SetSheetRow(sheet, cell, &values)
}

func (w *sheetWriter) fillSummary(dash calculator.Dashboard, filter model.FilterState) error {
	row := 1
	if err := w.writeHeader(SheetSummary, row, "Filter", "Value"); err != nil {
		return err
	}
	filters := [][2]string{
		{"PSM", filter.PSM},
		{"Region", filter.Region},
		{"Estate", filter.Estate},
		{"LMM", filter.LMM},
		{"Start", filter.StartMonth},
		{"End", filter.EndMonth},
	}
	for _, kv := range filters {
		row++
		if err := w.writeRow(SheetSummary, row, kv[0], kv[1]); err != nil {
			return err
		}
	}

	row += 2
	if err := w.writeHeader(SheetSummary, row, "Group", "Indicator", "Value", "Unit"); err != nil {
		return err
	}
	for _, g := range dash.Indicators {
		for _, ind := range g.Indicators {
			row++
			if err := w.writeRow(SheetSummary, row, g.Name, ind.Name, indicatorValue(ind), ind.Unit); err != nil {
				return err
			}
		}
	}

	row += 2
	counts := [][2]interface{}{
		{"Records", dash.Records},
		{"OER complete records", dash.OERCompleteRecords},
		{"Fruit complete records", dash.FruitCompleteRecords},
	}
	for _, kv := range counts {
		if err := w.writeRow(SheetSummary, row, kv[0], kv[1]); err != nil {
			return err
		}
		row++
	}

	if dash.Analysis == nil {
		return nil
	}
	a := dash.Analysis
	row++
	if b := a.Benchmark; b != nil {
		if err := w.writeRow(SheetSummary, row, "Benchmark", b.Period, optional(b.CurrentOER, b.HasCurrent), b.Status); err != nil {
			return err
		}
		row++
	}
	if err := w.writeRow(SheetSummary, row, "Recommendation", a.Recommendation.Title, a.Recommendation.Body); err != nil {
		return err
	}
	row++
	if a.Issues != nil {
		for _, is := range a.Issues.Issues {
			if err := w.writeRow(SheetSummary, row, "Issue", string(is.Severity), is.Title, is.Problem); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func (w *sheetWriter) fillOverview(rows []calculator.OverviewRow) error {
	if err := w.writeHeader(SheetOverview, 1, "Estate", "PSM", "Region", "LMM", "Avg OER After (%)", "Dominant Fruit"); err != nil {
		return err
	}
	for i, r := range rows {
		if err := w.writeRow(SheetOverview, i+2,
			r.Estate, r.PSM.String(), r.Region.String(), r.LMM.String(),
			roundHalfUp(r.AvgOERAfter, 2), r.DominantFruit,
		); err != nil {
			return err
		}
	}
	return w.f.SetColWidth(SheetOverview, "A", "F", 16)
}

func (w *sheetWriter) fillRanking(r calculator.Ranking) error {
	if err := w.writeHeader(SheetRanking, 1, "Rank", "Estate", "Avg OER (%)", "Months"); err != nil {
		return err
	}
	for i, a := range r.ByAverage {
		if err := w.writeRow(SheetRanking, i+2, a.Rank, a.Estate, roundHalfUp(a.AvgOER, 2), a.Months); err != nil {
			return err
		}
	}

	// 稳定性排名写在右侧，与平均值排名并列
	stabHeader := []interface{}{"Rank", "Estate", "Mean", "Std Dev", "CV (%)", "Score"}
	if err := w.f.SetSheetRow(SheetRanking, "G1", &stabHeader); err != nil {
		return err
	}
	if err := w.f.SetCellStyle(SheetRanking, "G1", "L1", w.header); err != nil {
		return err
	}
	for i, s := range r.ByStability {
		cell, _ := excelize.CoordinatesToCellName(7, i+2)
		values := []interface{}{s.Rank, s.Estate, roundHalfUp(s.Mean, 2), roundHalfUp(s.StdDev, 2), roundHalfUp(s.CV, 2), roundHalfUp(s.Score, 2)}
		if err := w.f.SetSheetRow(SheetRanking, cell, &values); err != nil {
			return err
		}
	}

	row := len(r.ByAverage)
	if n := len(r.ByStability); n > row {
		row = n
	}
	row += 3
	if err := w.writeRow(SheetRanking, row, "Best overall", r.BestOverall); err != nil {
		return err
	}
	if err := w.writeRow(SheetRanking, row+1, "Worst overall", r.WorstOverall); err != nil {
		return err
	}
	for i, insight := range r.Insights {
		if err := setCellValue(w.f, SheetRanking, fmt.Sprintf("A%d", row+3+i), insight); err != nil {
			return err
		}
	}
	return nil
}

func (w *sheetWriter) fillPerformance(a *calculator.Analysis) error {
	if a == nil {
		return setCellValue(w.f, SheetPerformance, "A1", "No fruit-complete mills in the current selection")
	}
	p := a.Performance
	if err := w.writeRow(SheetPerformance, 1, "Target OER (%)", p.Target, "Months", p.Months); err != nil {
		return err
	}
	row := 3
	for _, group := range []struct {
		name  string
		mills []calculator.MillPerformance
	}{{"Top performers", p.Top}, {"Bottom performers", p.Bottom}} {
		if err := setCellValue(w.f, SheetPerformance, fmt.Sprintf("A%d", row), group.name); err != nil {
			return err
		}
		row++
		if err := w.writeHeader(SheetPerformance, row, "Estate", "Avg OER (%)", "Gap To Target", "Gap To Top Month", "Dominant Fruit", "Dominant %", "Inti %", "Plasma %", "3P %"); err != nil {
			return err
		}
		for _, m := range group.mills {
			row++
			if err := w.writeRow(SheetPerformance, row,
				m.Estate, roundHalfUp(m.AvgOER, 2), roundHalfUp(m.GapToTarget, 2), optionalPtr(m.GapToTopMonth),
				m.DominantFruit, optionalPtr(m.DominantFruitPct),
				roundHalfUp(m.AvgIntiPct, 2), roundHalfUp(m.AvgPlasmaPct, 2), roundHalfUp(m.Avg3PPct, 2),
			); err != nil {
				return err
			}
		}
		row += 2
	}
	for _, insight := range p.KeyInsights {
		if err := setCellValue(w.f, SheetPerformance, fmt.Sprintf("A%d", row), insight); err != nil {
			return err
		}
		row++
	}
	return nil
}

func (w *sheetWriter) fillCompleteness(items []model.IncompleteMill) error {
	if err := w.writeHeader(SheetCompleteness, 1, "Estate", "Missing", "OER Complete", "Fruit Complete", "Blank Before", "Blank After", "Blank Fruit"); err != nil {
		return err
	}
	for i, it := range items {
		d := it.Details
		if err := w.writeRow(SheetCompleteness, i+2,
			it.Estate, strings.Join(it.Missing, ", "), d.OERComplete, d.FruitComplete,
			d.Blanks.Before, d.Blanks.After, d.Blanks.Fruit,
		); err != nil {
			return err
		}
	}
	return nil
}

func (w *sheetWriter) fillRecords(records []*model.MergedRecord) error {
	if err := w.writeHeader(SheetRecords, 1, "Estate", "Date", "PSM", "Region", "LMM", "OER Before", "OER After", "Inti %", "Plasma %", "3P %"); err != nil {
		return err
	}
	for i, r := range records {
		if err := w.writeRow(SheetRecords, i+2,
			r.Estate, r.Date.DateString(), r.PSM.String(), r.Region.String(), r.LMM.String(),
			optionalPtr(r.OERBefore), optionalPtr(r.OERAfter),
			sharePct(r.FruitInti), sharePct(r.FruitPlasma), sharePct(r.Fruit3P),
		); err != nil {
			return err
		}
	}
	return w.f.SetPanes(SheetRecords, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func indicatorValue(ind calculator.Indicator) interface{} {
	if ind.Text != "" {
		return ind.Text
	}
	return optionalPtr(ind.Value)
}

// optionalPtr nil 写为空单元格
func optionalPtr(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return roundHalfUp(*v, 2)
}

func optional(v float64, ok bool) interface{} {
	if !ok {
		return nil
	}
	return roundHalfUp(v, 2)
}

// sharePct 果源占比（0-1）转百分数
func sharePct(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return roundHalfUp(*v*100, 2)
}

func setCellValue(f *excelize.File, sheet, cell string, value interface{}) error {
	return f.SetCellValue(sheet, cell, value)
}

func roundHalfUp(v float64, digits int) float64 {
	if digits < 0 {
		return v
	}
	scale := math.Pow10(digits)
	x := v * scale
	if x >= 0 {
		return math.Floor(x+0.5) / scale
	}
	return -math.Floor(-x+0.5) / scale
}
