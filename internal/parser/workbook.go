package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"millscope/internal/model"
)

// emptyHeader 空表头列的占位键
const emptyHeader = "__EMPTY"

// Workbook 工作簿读取接口
type Workbook interface {
	SheetNames() []string
	// Rows 以第 headerOffset 行（0 起）为表头读取 sheet，返回其后的非空行
	Rows(sheet string, headerOffset int) ([]model.RawRow, error)
}

// ExcelWorkbook 基于 excelize 的工作簿
type ExcelWorkbook struct {
	file *excelize.File
}

// OpenWorkbook 打开 xlsx 文件
func OpenWorkbook(path string) (*ExcelWorkbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &ExcelWorkbook{file: f}, nil
}

// ReadWorkbook 从 reader 读取 xlsx
func ReadWorkbook(r io.Reader) (*ExcelWorkbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	return &ExcelWorkbook{file: f}, nil
}

// NewExcelWorkbook 包装已打开的 excelize 文件
func NewExcelWorkbook(f *excelize.File) *ExcelWorkbook {
	return &ExcelWorkbook{file: f}
}

// Close 关闭底层文件
func (w *ExcelWorkbook) Close() error {
	return w.file.Close()
}

// SheetNames 返回 sheet 名称列表（工作簿顺序）
func (w *ExcelWorkbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// Rows 读取 sheet 行数据
//
// 使用原始单元格值：日期格式的表头得到序列号，百分比单元格得到小数。
// 可解析为数值的单元格转为 float64，空单元格为 nil。
func (w *ExcelWorkbook) Rows(sheet string, headerOffset int) ([]model.RawRow, error) {
	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	grid := make([][]model.Cell, len(rows))
	for i, row := range rows {
		cells := make([]model.Cell, len(row))
		for j, v := range row {
			cells[j] = excelCell(v)
		}
		grid[i] = cells
	}
	return buildRows(grid, headerOffset), nil
}

func excelCell(v string) model.Cell {
	if v == "" {
		return nil
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}

// StaticWorkbook 内存工作簿（CLI 管道与测试使用）
type StaticWorkbook struct {
	Order  []string
	Sheets map[string][][]model.Cell
}

// NewStaticWorkbook 创建空的内存工作簿
func NewStaticWorkbook() *StaticWorkbook {
	return &StaticWorkbook{Sheets: make(map[string][][]model.Cell)}
}

// AddSheet 追加 sheet，grid 第一维为行
func (w *StaticWorkbook) AddSheet(name string, grid [][]model.Cell) *StaticWorkbook {
	if _, exists := w.Sheets[name]; !exists {
		w.Order = append(w.Order, name)
	}
	w.Sheets[name] = grid
	return w
}

// SheetNames 返回 sheet 名称列表
func (w *StaticWorkbook) SheetNames() []string {
	return append([]string(nil), w.Order...)
}

// Rows 读取 sheet 行数据，单元格值原样保留
func (w *StaticWorkbook) Rows(sheet string, headerOffset int) ([]model.RawRow, error) {
	grid, ok := w.Sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %s not found", sheet)
	}
	return buildRows(grid, headerOffset), nil
}

// buildRows 以 headerOffset 行为表头，把后续行转换为 RawRow
//
// 每行都包含全部表头键，缺失单元格为 nil；整行空白的行被跳过。
func buildRows(grid [][]model.Cell, headerOffset int) []model.RawRow {
	if headerOffset < 0 || headerOffset >= len(grid) {
		return nil
	}
	headers := headerKeys(grid[headerOffset])

	out := make([]model.RawRow, 0, len(grid)-headerOffset-1)
	for _, cells := range grid[headerOffset+1:] {
		row := make(model.RawRow, len(headers))
		empty := true
		for i, key := range headers {
			var v model.Cell
			if i < len(cells) {
				v = cells[i]
			}
			if v != nil && v != "" {
				empty = false
			}
			row[key] = v
		}
		if empty {
			continue
		}
		out = append(out, row)
	}
	return out
}

// headerKeys 生成唯一表头键：空表头为 __EMPTY，重复表头追加 _1、_2
func headerKeys(cells []model.Cell) []string {
	keys := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, c := range cells {
		key := strings.TrimSpace(CellString(c))
		if key == "" {
			key = emptyHeader
		}
		base := key
		if n, dup := seen[base]; dup {
			key = base + "_" + strconv.Itoa(n)
			seen[base] = n + 1
		} else {
			seen[base] = 1
		}
		keys[i] = key
	}
	return keys
}
