package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ImportLog 导入日志
type ImportLog struct {
	ID              int64      `json:"id"`
	RunID           string     `json:"runId"`
	Filename        string     `json:"filename"`
	TotalSheets     int        `json:"totalSheets"`
	ImportedSheets  int        `json:"importedSheets"`
	SkippedSheets   int        `json:"skippedSheets"`
	TotalRows       int        `json:"totalRows"`
	MergedRecords   int        `json:"mergedRecords"`
	IncompleteMills int        `json:"incompleteMills"`
	Status          string     `json:"status"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// ImportLogUpdate 导入完成后的统计
type ImportLogUpdate struct {
	TotalSheets     int
	ImportedSheets  int
	SkippedSheets   int
	TotalRows       int
	MergedRecords   int
	IncompleteMills int
	Status          string
	ErrorMessage    string
}

// CreateImportLog 创建导入日志，返回 import_log_id
func (s *Store) CreateImportLog(runID, filename, filePath string, fileSize int64) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO import_logs (run_id, filename, file_path, file_size, status)
		VALUES (?, ?, ?, ?, 'processing')
	`, runID, filename, filePath, fileSize)
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import log id: %w", err)
	}
	return id, nil
}

// UpdateImportLog 完成导入日志更新
func (s *Store) UpdateImportLog(id int64, u ImportLogUpdate) error {
	_, err := s.db.Exec(`
		UPDATE import_logs SET
			total_sheets = ?,
			imported_sheets = ?,
			skipped_sheets = ?,
			total_rows = ?,
			merged_records = ?,
			incomplete_mills = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, u.TotalSheets, u.ImportedSheets, u.SkippedSheets, u.TotalRows, u.MergedRecords, u.IncompleteMills, u.Status, u.ErrorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

// LatestImportLog 获取最近一次导入日志
func (s *Store) LatestImportLog() (*ImportLog, error) {
	var (
		l           ImportLog
		errMsg      sql.NullString
		createdAt   string
		completedAt sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT id, run_id, filename, total_sheets, imported_sheets, skipped_sheets,
		       total_rows, merged_records, incomplete_mills, status, error_message,
		       created_at, completed_at
		FROM import_logs
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&l.ID, &l.RunID, &l.Filename, &l.TotalSheets, &l.ImportedSheets, &l.SkippedSheets,
		&l.TotalRows, &l.MergedRecords, &l.IncompleteMills, &l.Status, &errMsg,
		&createdAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query import log: %w", err)
	}
	l.ErrorMessage = errMsg.String
	l.CreatedAt = parseSQLiteTime(createdAt)
	if completedAt.Valid {
		t := parseSQLiteTime(completedAt.String)
		l.CompletedAt = &t
	}
	return &l, nil
}

// parseSQLiteTime 解析 CURRENT_TIMESTAMP 写入的时间
func parseSQLiteTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
