package store

import (
	"encoding/json"
	"fmt"
)

// SheetMeta Sheet 元信息（用于追溯）
type SheetMeta struct {
	ImportLogID  int64
	SheetName    string
	SheetType    string
	TotalRows    int
	TotalColumns int
	MonthColumns int
	ExcludedRows int
	ColumnsJSON  string
	Status       string
	ErrorMessage string
	SourceFile   string
}

// InsertSheetMeta 写入 Sheet 元信息
func (s *Store) InsertSheetMeta(meta SheetMeta) error {
	_, err := s.db.Exec(`
		INSERT INTO sheets_meta (
			import_log_id, sheet_name, sheet_type,
			total_rows, total_columns, month_columns, excluded_rows,
			columns_json, status, error_message, source_file
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		meta.ImportLogID, meta.SheetName, meta.SheetType,
		meta.TotalRows, meta.TotalColumns, meta.MonthColumns, meta.ExcludedRows,
		meta.ColumnsJSON, meta.Status, meta.ErrorMessage, meta.SourceFile,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sheets_meta: %w", err)
	}
	return nil
}

// CountSheetMeta 统计某次导入写入的 Sheet 元信息条数
func (s *Store) CountSheetMeta(importLogID int64) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM sheets_meta WHERE import_log_id = ?`, importLogID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sheets_meta: %w", err)
	}
	return n, nil
}

// BuildColumnsJSON 将列名序列化为 JSON
func BuildColumnsJSON(columns []string) string {
	b, err := json.Marshal(columns)
	if err != nil {
		return "[]"
	}
	return string(b)
}
