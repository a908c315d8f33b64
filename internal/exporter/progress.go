package exporter

// Stage 导出阶段
type Stage string

const (
	StageSnapshot Stage = "snapshot"
	StageSheet    Stage = "sheet"
	StageDone     Stage = "done"
)

// ProgressEvent 导出进度事件；Sheet 仅在 StageSheet 阶段有值
type ProgressEvent struct {
	Percent int    `json:"percent"`
	Stage   Stage  `json:"stage"`
	Sheet   string `json:"sheet,omitempty"`
	Message string `json:"message"`
}

type sheetStep struct {
	sheet   string
	percent int
	message string
}

// sheetSteps 工作簿中 sheet 的顺序，以及开始写入该 sheet 时上报的进度
var sheetSteps = []sheetStep{
	{SheetSummary, 15, "写入筛选条件与指标汇总"},
	{SheetOverview, 35, "写入厂总览"},
	{SheetRanking, 50, "写入平均值与稳定性排名"},
	{SheetPerformance, 65, "写入厂表现分析"},
	{SheetCompleteness, 75, "写入不完整厂清单"},
	{SheetRecords, 90, "写入筛选明细"},
}

func reportProgress(progress func(ProgressEvent), event ProgressEvent) {
	if progress == nil {
		return
	}
	event.Percent = max(0, min(event.Percent, 100))
	progress(event)
}
