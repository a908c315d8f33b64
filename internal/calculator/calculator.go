package calculator

import (
	"github.com/samber/lo"

	"millscope/internal/model"
)

// Indicator 指标定义
type Indicator struct {
	ID    string   `json:"id"`             // 指标ID
	Name  string   `json:"name"`           // 指标名称
	Value *float64 `json:"value"`          // 指标值，无读数时为 nil
	Text  string   `json:"text,omitempty"` // 文本型指标（主要果源、LMM 状态）
	Unit  string   `json:"unit,omitempty"` // 单位 (如 %)
}

// IndicatorGroup 指标分组
type IndicatorGroup struct {
	Name       string      `json:"name"`       // 分组名称
	Indicators []Indicator `json:"indicators"` // 指标列表
}

// NarrativeLevel 文本结论的语气
type NarrativeLevel string

const (
	LevelCritical NarrativeLevel = "critical"
	LevelWarning  NarrativeLevel = "warning"
	LevelInfo     NarrativeLevel = "info"
	LevelPositive NarrativeLevel = "positive"
)

// Narrative 由阈值选出的固定文本结论
type Narrative struct {
	Level   NarrativeLevel `json:"level"`
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Actions []string       `json:"actions,omitempty"`
}

// Options 计算参数
type Options struct {
	TargetOER     float64
	RollingMonths int
	PerformerRows int
}

// DefaultOptions 默认参数：目标 OER 23%，12 个月滚动窗口，前后各 5 家
func DefaultOptions() Options {
	return Options{TargetOER: 23, RollingMonths: 12, PerformerRows: 5}
}

// Calculator 指标计算器
type Calculator struct {
	opts Options
}

// NewCalculator 创建计算器，非正参数回落到默认值
func NewCalculator(opts Options) *Calculator {
	def := DefaultOptions()
	if opts.TargetOER <= 0 {
		opts.TargetOER = def.TargetOER
	}
	if opts.RollingMonths <= 0 {
		opts.RollingMonths = def.RollingMonths
	}
	if opts.PerformerRows <= 0 {
		opts.PerformerRows = def.PerformerRows
	}
	return &Calculator{opts: opts}
}

// Options 返回当前参数
func (c *Calculator) Options() Options {
	return c.opts
}

// Analysis 果源完整厂的深度分析
type Analysis struct {
	DataPoints     int                `json:"dataPoints"`
	Benchmark      *BenchmarkResult   `json:"benchmark"`
	Correlation    *CorrelationResult `json:"correlation"`
	Stability      *StabilityResult   `json:"stability"`
	Fluctuation    *FluctuationResult `json:"fluctuation"`
	Issues         *IssueReport       `json:"issues"`
	Recommendation Narrative          `json:"recommendation"`
	Performance    PerformanceReport  `json:"performance"`
}

// Dashboard 一次筛选对应的全部计算结果
type Dashboard struct {
	Records              int                    `json:"records"`
	OERCompleteRecords   int                    `json:"oerCompleteRecords"`
	FruitCompleteRecords int                    `json:"fruitCompleteRecords"`
	KPI                  KPISummary             `json:"kpi"`
	Indicators           []IndicatorGroup       `json:"indicators"`
	Trend                []TrendPoint           `json:"trend"`
	Overview             []OverviewRow          `json:"overview"`
	Ranking              Ranking                `json:"ranking"`
	Analysis             *Analysis              `json:"analysis"`
	Incomplete           []model.IncompleteMill `json:"incomplete"`
}

// Dashboard 计算全部看板数据
//
// filtered 为当前筛选结果（按日期升序），all 为未筛选的全部记录。
// KPI 只统计 OER 完整的厂；趋势与深度分析只统计果源完整的厂。
func (c *Calculator) Dashboard(filtered, all []*model.MergedRecord, completeness model.CompletenessReport) Dashboard {
	oerSet := completeness.OERCompleteSet()
	fruitSet := completeness.FruitCompleteSet()
	oerComplete := lo.Filter(filtered, func(r *model.MergedRecord, _ int) bool {
		_, ok := oerSet[r.Estate]
		return ok
	})
	fruitComplete := lo.Filter(filtered, func(r *model.MergedRecord, _ int) bool {
		_, ok := fruitSet[r.Estate]
		return ok
	})

	kpi := CalculateKPIs(oerComplete)
	incomplete := completeness.Incomplete
	if incomplete == nil {
		incomplete = []model.IncompleteMill{}
	}
	return Dashboard{
		Records:              len(filtered),
		OERCompleteRecords:   len(oerComplete),
		FruitCompleteRecords: len(fruitComplete),
		KPI:                  kpi,
		Indicators:           kpi.Indicators(),
		Trend:                c.TrendSeries(fruitComplete),
		Overview:             OverviewTable(filtered),
		Ranking:              c.RankMills(filtered),
		Analysis:             c.Analyze(fruitComplete, filtered, all),
		Incomplete:           incomplete,
	}
}

// Analyze 深度分析，records 为空时返回 nil
//
// 综合结论仅在相关性与稳定性都有结果时生成。
func (c *Calculator) Analyze(records, filtered, all []*model.MergedRecord) *Analysis {
	if len(records) == 0 {
		return nil
	}
	benchmark := c.Benchmark(records, filtered)
	analysis := &Analysis{
		DataPoints:  len(records),
		Benchmark:   benchmark,
		Correlation: c.CalculateCorrelation(records),
		Stability:   c.CalculateStability(records),
		Fluctuation: c.CalculateFluctuation(records, all),
		Performance: c.MillPerformance(records),
	}
	if analysis.Correlation != nil && analysis.Stability != nil {
		report := SynthesizeIssues(analysis.Correlation, analysis.Stability)
		analysis.Issues = &report
	}
	analysis.Recommendation = Recommendations(benchmark.CurrentOER)
	return analysis
}
