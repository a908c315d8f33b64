package model

import "time"

// Cell 工作表单元格原始值：nil / float64 / string / bool / time.Time
type Cell = any

// RawRow 按表头键索引的一行数据
type RawRow map[string]Cell

// Dataset 一次成功导入得到的完整数据集
type Dataset struct {
	ID           string             `json:"id"`
	SourceFile   string             `json:"sourceFile"`
	LoadedAt     time.Time          `json:"loadedAt"`
	Records      []*MergedRecord    `json:"records"`
	Completeness CompletenessReport `json:"completeness"`
}

// DateBounds 返回数据集中最早与最晚月份
func DateBounds(records []*MergedRecord) (YearMonth, YearMonth, bool) {
	if len(records) == 0 {
		return YearMonth{}, YearMonth{}, false
	}
	minYM, maxYM := records[0].Date, records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(minYM) {
			minYM = r.Date
		}
		if r.Date.After(maxYM) {
			maxYM = r.Date
		}
	}
	return minYM, maxYM, true
}
