package parser

import "time"

// SheetType Sheet 类型
type SheetType string

const (
	SheetTypeOERBefore SheetType = "oer_before" // 技改前 OER
	SheetTypeOERAfter  SheetType = "oer_after"  // 技改后 OER
	SheetTypeFruitMix  SheetType = "fruit_mix"  // 果源占比
	SheetTypeMapping   SheetType = "mapping"    // 厂 -> PSM/Region
	SheetTypeUnknown   SheetType = "unknown"
)

// 工作簿中的标准 sheet 名称
const (
	SheetNameOERBefore = "OER Data Before HFC"
	SheetNameOERAfter  = "OER Data After HFC"
	SheetNameFruitMix  = "Fruit Mix %"
	SheetNameMapping   = "Mapping"
)

// 源表固定列名
const (
	ColumnEstateCode = "Estate Code"
	ColumnLMMCPO     = "LMM CPO"
	ColumnFruitMix   = "Fruit Mix"
	ColumnPSM        = "PSM"
	ColumnRegion     = "Region"
)

// RequiredSheets 必需的三张数据表（顺序即缺失提示顺序）
var RequiredSheets = []SheetType{SheetTypeOERBefore, SheetTypeOERAfter, SheetTypeFruitMix}

// CanonicalName 返回 sheet 类型对应的标准名称
func (t SheetType) CanonicalName() string {
	switch t {
	case SheetTypeOERBefore:
		return SheetNameOERBefore
	case SheetTypeOERAfter:
		return SheetNameOERAfter
	case SheetTypeFruitMix:
		return SheetNameFruitMix
	case SheetTypeMapping:
		return SheetNameMapping
	default:
		return ""
	}
}

// SheetRecognitionResult Sheet 识别结果
type SheetRecognitionResult struct {
	SheetName string    `json:"sheetName"`
	SheetType SheetType `json:"sheetType"`
}

// ParseResult 单个 sheet 的处理结果
type ParseResult struct {
	SheetName string        `json:"sheetName"`
	SheetType SheetType     `json:"sheetType"`
	Status    string        `json:"status"` // imported/skipped/error
	Rows      int           `json:"rows"`
	Facts     int           `json:"facts"`
	Excluded  int           `json:"excluded"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// ImportReport 导入报告
type ImportReport struct {
	Filename        string        `json:"filename"`
	TotalSheets     int           `json:"totalSheets"`
	ImportedSheets  int           `json:"importedSheets"`
	SkippedSheets   int           `json:"skippedSheets"`
	TotalRows       int           `json:"totalRows"`
	MergedRecords   int           `json:"mergedRecords"`
	IncompleteMills int           `json:"incompleteMills"`
	Duration        time.Duration `json:"duration"`
	Sheets          []ParseResult `json:"sheets"`
}
