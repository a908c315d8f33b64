package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"millscope/internal/model"
	"millscope/internal/parser"
	"millscope/internal/store"
)

// Settings 管道参数
type Settings struct {
	ExcludedEstates     []string
	MappingHeaderOffset int
}

// Coordinator 导入协调器
type Coordinator struct {
	store      *store.Store
	recognizer *parser.SheetRecognizer
	settings   Settings
	metrics    *Metrics
}

// NewCoordinator 创建导入协调器；store 为 nil 时不落库（CLI 场景）
func NewCoordinator(st *store.Store, settings Settings, metrics *Metrics) *Coordinator {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Coordinator{
		store:      st,
		recognizer: parser.NewSheetRecognizer(),
		settings:   settings,
		metrics:    metrics,
	}
}

// ImportOptions 导入选项
type ImportOptions struct {
	FilePath string
	// SourceName 展示用文件名（上传时的原始文件名），为空时取 FilePath 的文件名
	SourceName string
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/info/warning/sheet_done/done/error
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// ImportResult 导入成功的产物，随 done 事件下发
type ImportResult struct {
	Report  *parser.ImportReport `json:"report"`
	Dataset *model.Dataset       `json:"-"`
}

// importContext 单次导入上下文
type importContext struct {
	runID       string
	source      string
	report      *parser.ImportReport
	importLogID int64
	emit        func(ProgressEvent)
}

// Import 执行导入，返回进度通道
func (c *Coordinator) Import(ctx context.Context, opts ImportOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doImport(ctx, opts, progressChan)
	}()

	return progressChan
}

// doImport 打开工作簿并执行管道
func (c *Coordinator) doImport(ctx context.Context, opts ImportOptions, progressChan chan ProgressEvent) {
	emit := func(evt ProgressEvent) { c.sendProgress(progressChan, evt) }

	source := opts.SourceName
	if source == "" {
		source = filepath.Base(opts.FilePath)
	}

	wb, err := parser.OpenWorkbook(opts.FilePath)
	if err != nil {
		c.metrics.Runs.WithLabelValues("error").Inc()
		c.sendFinal(ctx, progressChan, ProgressEvent{
			Type:      "error",
			Message:   fmt.Sprintf("打开文件失败: %v", err),
			Timestamp: time.Now(),
		})
		return
	}
	defer wb.Close()

	var size int64
	if fi, err := os.Stat(opts.FilePath); err == nil {
		size = fi.Size()
	}

	ds, report, err := c.run(ctx, wb, source, opts.FilePath, size, emit)
	if err != nil {
		c.sendFinal(ctx, progressChan, ProgressEvent{
			Type:      "error",
			Message:   err.Error(),
			Data:      errorData(err),
			Timestamp: time.Now(),
		})
		return
	}

	c.sendFinal(ctx, progressChan, ProgressEvent{
		Type:      "done",
		Message:   "导入完成",
		Data:      &ImportResult{Report: report, Dataset: ds},
		Timestamp: time.Now(),
	})
}

// Run 同步执行完整管道（CLI 与测试使用）
func (c *Coordinator) Run(ctx context.Context, wb parser.Workbook, source string) (*model.Dataset, *parser.ImportReport, error) {
	return c.run(ctx, wb, source, "", 0, func(ProgressEvent) {})
}

// run 管道主体：必需 sheet 检查 -> 读取 -> 剔除 -> 完整性 -> 映射 -> 展开 -> 合并 -> 落库
//
// 任一步失败都不会产生部分数据集。
func (c *Coordinator) run(ctx context.Context, wb parser.Workbook, source, filePath string, fileSize int64, emit func(ProgressEvent)) (ds *model.Dataset, report *parser.ImportReport, err error) {
	startTime := time.Now()
	ictx := &importContext{
		runID:  uuid.NewString(),
		source: source,
		emit:   emit,
		report: &parser.ImportReport{
			Filename: source,
			Sheets:   []parser.ParseResult{},
		},
	}

	defer func() {
		c.metrics.Duration.Observe(time.Since(startTime).Seconds())
		if err != nil {
			c.metrics.Runs.WithLabelValues("error").Inc()
		} else {
			c.metrics.Runs.WithLabelValues("success").Inc()
		}
		c.finishImportLog(ictx, err)
	}()

	emit(ProgressEvent{
		Type:    "start",
		Message: "开始导入 Excel 文件",
		Data: map[string]string{
			"filename": source,
			"run_id":   ictx.runID,
		},
		Timestamp: time.Now(),
	})

	if c.store != nil {
		id, logErr := c.store.CreateImportLog(ictx.runID, source, filePath, fileSize)
		if logErr != nil {
			c.warn(ictx, fmt.Sprintf("写入导入日志失败: %v", logErr))
		}
		ictx.importLogID = id
	}

	sheetList := wb.SheetNames()
	ictx.report.TotalSheets = len(sheetList)
	emit(ProgressEvent{
		Type:    "info",
		Message: fmt.Sprintf("发现 %d 个 Sheet", len(sheetList)),
		Data: map[string]interface{}{
			"total_sheets": len(sheetList),
		},
		Timestamp: time.Now(),
	})

	resolved, err := c.recognizer.Resolve(sheetList)
	if err != nil {
		return nil, ictx.report, err
	}

	before, err := c.readDataSheet(ctx, ictx, wb, resolved[parser.SheetTypeOERBefore], parser.SheetTypeOERBefore)
	if err != nil {
		return nil, ictx.report, err
	}
	after, err := c.readDataSheet(ctx, ictx, wb, resolved[parser.SheetTypeOERAfter], parser.SheetTypeOERAfter)
	if err != nil {
		return nil, ictx.report, err
	}
	fruit, err := c.readDataSheet(ctx, ictx, wb, resolved[parser.SheetTypeFruitMix], parser.SheetTypeFruitMix)
	if err != nil {
		return nil, ictx.report, err
	}

	completeness := AnalyzeCompleteness(before, after, fruit)
	ictx.report.IncompleteMills = len(completeness.Incomplete)
	if n := len(completeness.Incomplete); n > 0 {
		c.warn(ictx, fmt.Sprintf("%d 个厂数据不完整，已从相关汇总中排除", n))
	}

	mapping, err := c.readMapping(ctx, ictx, wb, resolved)
	if err != nil {
		return nil, ictx.report, err
	}

	used := lo.Values(resolved)
	for _, name := range sheetList {
		if !lo.Contains(used, name) {
			c.recordSheetResult(ictx, parser.ParseResult{
				SheetName: name,
				SheetType: parser.SheetTypeUnknown,
				Status:    "skipped",
			}, nil)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, ictx.report, err
	}

	records := MergeDatasets(
		parser.TransformSheet(before, model.FieldOERBefore, false),
		parser.TransformSheet(after, model.FieldOERAfter, false),
		parser.TransformSheet(fruit, model.FieldFruitMix, true),
		mapping,
	)
	ictx.report.MergedRecords = len(records)

	ds = &model.Dataset{
		ID:           ictx.runID,
		SourceFile:   source,
		LoadedAt:     time.Now(),
		Records:      records,
		Completeness: completeness,
	}

	if c.store != nil {
		if err := c.store.ReplaceDataset(ds); err != nil {
			return nil, ictx.report, fmt.Errorf("保存数据集失败: %w", err)
		}
	}

	c.metrics.LoadedRecords.Set(float64(len(records)))
	c.metrics.Incomplete.Set(float64(len(completeness.Incomplete)))
	ictx.report.Duration = time.Since(startTime)

	emit(ProgressEvent{
		Type:    "info",
		Message: fmt.Sprintf("合并得到 %d 条厂-月记录", len(records)),
		Data: map[string]interface{}{
			"merged_records":   len(records),
			"incomplete_mills": len(completeness.Incomplete),
		},
		Timestamp: time.Now(),
	})
	return ds, ictx.report, nil
}

// readDataSheet 读取数据表并剔除排除名单中的厂
func (c *Coordinator) readDataSheet(ctx context.Context, ictx *importContext, wb parser.Workbook, sheetName string, sheetType parser.SheetType) ([]model.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sheetStartTime := time.Now()

	rows, err := wb.Rows(sheetName, 0)
	if err != nil {
		c.recordSheetResult(ictx, parser.ParseResult{
			SheetName: sheetName,
			SheetType: sheetType,
			Status:    "error",
			Errors:    []string{err.Error()},
			Duration:  time.Since(sheetStartTime),
		}, nil)
		return nil, fmt.Errorf("读取 Sheet %s 失败: %w", sheetName, err)
	}

	kept, excluded := FilterExcludedEstates(rows, c.settings.ExcludedEstates)
	monthCols := 0
	if len(kept) > 0 {
		monthCols = len(parser.MonthColumns(kept[0]))
	}

	c.recordSheetResult(ictx, parser.ParseResult{
		SheetName: sheetName,
		SheetType: sheetType,
		Status:    "imported",
		Rows:      len(kept),
		Facts:     len(kept) * monthCols,
		Excluded:  excluded,
		Duration:  time.Since(sheetStartTime),
	}, kept)

	ictx.emit(ProgressEvent{
		Type:    "sheet_done",
		Message: fmt.Sprintf("Sheet \"%s\" 读取成功: %d 行（排除 %d 行）", sheetName, len(kept), excluded),
		Data: map[string]interface{}{
			"sheet_name":    sheetName,
			"sheet_type":    sheetType,
			"rows":          len(kept),
			"excluded_rows": excluded,
			"month_columns": monthCols,
		},
		Timestamp: time.Now(),
	})
	return kept, nil
}

// readMapping 读取可选的映射表；缺失时 PSM/Region 全部未解析
func (c *Coordinator) readMapping(ctx context.Context, ictx *importContext, wb parser.Workbook, resolved map[parser.SheetType]string) (model.Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sheetName, ok := resolved[parser.SheetTypeMapping]
	if !ok {
		c.warn(ictx, "未找到 Mapping 表，PSM / Region 将显示为 Unknown")
		return model.Mapping{}, nil
	}

	rows, err := wb.Rows(sheetName, c.settings.MappingHeaderOffset)
	if err != nil {
		c.warn(ictx, fmt.Sprintf("读取 Mapping 表失败: %v", err))
		return model.Mapping{}, nil
	}
	mapping := parser.TransformMapping(rows)
	c.recordSheetResult(ictx, parser.ParseResult{
		SheetName: sheetName,
		SheetType: parser.SheetTypeMapping,
		Status:    "imported",
		Rows:      len(mapping),
	}, rows)
	return mapping, nil
}

// FilterExcludedEstates 剔除排除名单中的厂（按去空白后的厂代码精确匹配）
func FilterExcludedEstates(rows []model.RawRow, excluded []string) ([]model.RawRow, int) {
	if len(excluded) == 0 {
		return rows, 0
	}
	kept := lo.Filter(rows, func(row model.RawRow, _ int) bool {
		return !lo.Contains(excluded, parser.EstateCode(row))
	})
	return kept, len(rows) - len(kept)
}

// recordSheetResult 记录 Sheet 处理结果
func (c *Coordinator) recordSheetResult(ictx *importContext, result parser.ParseResult, rows []model.RawRow) {
	ictx.report.Sheets = append(ictx.report.Sheets, result)

	switch result.Status {
	case "imported":
		ictx.report.ImportedSheets++
	case "skipped":
		ictx.report.SkippedSheets++
	}
	ictx.report.TotalRows += result.Rows

	if c.store == nil || ictx.importLogID == 0 {
		return
	}
	var columns []string
	monthCols := 0
	if len(rows) > 0 {
		columns = lo.Keys(rows[0])
		sort.Strings(columns)
		monthCols = len(parser.MonthColumns(rows[0]))
	}
	meta := store.SheetMeta{
		ImportLogID:  ictx.importLogID,
		SheetName:    result.SheetName,
		SheetType:    string(result.SheetType),
		TotalRows:    result.Rows,
		TotalColumns: len(columns),
		MonthColumns: monthCols,
		ExcludedRows: result.Excluded,
		ColumnsJSON:  store.BuildColumnsJSON(columns),
		Status:       result.Status,
		SourceFile:   ictx.source,
	}
	if len(result.Errors) > 0 {
		meta.ErrorMessage = result.Errors[0]
	}
	if err := c.store.InsertSheetMeta(meta); err != nil {
		c.warn(ictx, fmt.Sprintf("写入 Sheet 元信息失败: %v", err))
	}
}

// finishImportLog 更新导入日志状态
func (c *Coordinator) finishImportLog(ictx *importContext, runErr error) {
	if c.store == nil || ictx.importLogID == 0 {
		return
	}
	u := store.ImportLogUpdate{
		TotalSheets:     ictx.report.TotalSheets,
		ImportedSheets:  ictx.report.ImportedSheets,
		SkippedSheets:   ictx.report.SkippedSheets,
		TotalRows:       ictx.report.TotalRows,
		MergedRecords:   ictx.report.MergedRecords,
		IncompleteMills: ictx.report.IncompleteMills,
		Status:          "success",
	}
	if runErr != nil {
		u.Status = "failed"
		u.ErrorMessage = runErr.Error()
	}
	if err := c.store.UpdateImportLog(ictx.importLogID, u); err != nil {
		c.warn(ictx, fmt.Sprintf("更新导入日志失败: %v", err))
	}
}

func (c *Coordinator) warn(ictx *importContext, msg string) {
	ictx.emit(ProgressEvent{
		Type:      "warning",
		Message:   msg,
		Timestamp: time.Now(),
	})
}

// errorData 为缺失 sheet 错误附带结构化信息
func errorData(err error) interface{} {
	var missing *parser.MissingSheetsError
	if errors.As(err, &missing) {
		return map[string]interface{}{"missing_sheets": missing.Missing}
	}
	return nil
}

// sendFinal 发送终止事件（done/error），不丢弃
func (c *Coordinator) sendFinal(ctx context.Context, ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	case <-ctx.Done():
	}
}

// sendProgress 发送进度事件
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
		// 通道已满，丢弃事件
	}
}
