package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"millscope/internal/model"
)

// ErrNoDataset 尚无已保存的数据集
var ErrNoDataset = errors.New("no persisted dataset")

// ReplaceDataset 在单个事务中用新数据集整体替换旧快照
func (s *Store) ReplaceDataset(ds *model.Dataset) error {
	completenessJSON, err := json.Marshal(ds.Completeness)
	if err != nil {
		return fmt.Errorf("failed to encode completeness: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM mill_records`); err != nil {
		return fmt.Errorf("failed to clear mill_records: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM datasets`); err != nil {
		return fmt.Errorf("failed to clear datasets: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO datasets (id, source_file, loaded_at, record_count, completeness_json)
		VALUES (?, ?, ?, ?, ?)
	`, ds.ID, ds.SourceFile, ds.LoadedAt.UTC().Format(time.RFC3339Nano), len(ds.Records), string(completenessJSON)); err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO mill_records (
			dataset_id, estate, data_year, data_month,
			psm, region, lmm,
			oer_before, oer_after,
			fruit_inti, fruit_plasma, fruit_3p
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range ds.Records {
		_, err := stmt.Exec(
			ds.ID, r.Estate, r.Date.Year, r.Date.Month,
			nullLabel(r.PSM), nullLabel(r.Region), nullLabel(r.LMM),
			nullFloat(r.OERBefore), nullFloat(r.OERAfter),
			nullFloat(r.FruitInti), nullFloat(r.FruitPlasma), nullFloat(r.Fruit3P),
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %w", r.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadLatestDataset 读取已保存的数据集快照
func (s *Store) LoadLatestDataset() (*model.Dataset, error) {
	var (
		ds               model.Dataset
		loadedAt         string
		completenessJSON string
	)
	err := s.db.QueryRow(`
		SELECT id, source_file, loaded_at, completeness_json
		FROM datasets
		ORDER BY loaded_at DESC
		LIMIT 1
	`).Scan(&ds.ID, &ds.SourceFile, &loadedAt, &completenessJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoDataset
		}
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, loadedAt); err == nil {
		ds.LoadedAt = t
	}
	if err := json.Unmarshal([]byte(completenessJSON), &ds.Completeness); err != nil {
		return nil, fmt.Errorf("failed to decode completeness: %w", err)
	}

	records, err := s.QueryRecords(ds.ID)
	if err != nil {
		return nil, err
	}
	ds.Records = records
	return &ds, nil
}

// QueryRecords 查询数据集的全部记录（按年月、厂代码排序）
func (s *Store) QueryRecords(datasetID string) ([]*model.MergedRecord, error) {
	rows, err := s.db.Query(`
		SELECT estate, data_year, data_month, psm, region, lmm,
		       oer_before, oer_after, fruit_inti, fruit_plasma, fruit_3p
		FROM mill_records
		WHERE dataset_id = ?
		ORDER BY data_year, data_month, estate
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []*model.MergedRecord
	for rows.Next() {
		var (
			r                model.MergedRecord
			psm, region, lmm sql.NullString
			before, after    sql.NullFloat64
			inti, plasma, tp sql.NullFloat64
		)
		if err := rows.Scan(&r.Estate, &r.Date.Year, &r.Date.Month, &psm, &region, &lmm,
			&before, &after, &inti, &plasma, &tp); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.Year, r.Month = r.Date.Year, r.Date.Month
		r.PSM, r.Region, r.LMM = labelFrom(psm), labelFrom(region), labelFrom(lmm)
		r.OERBefore, r.OERAfter = floatFrom(before), floatFrom(after)
		r.FruitInti, r.FruitPlasma, r.Fruit3P = floatFrom(inti), floatFrom(plasma), floatFrom(tp)
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return out, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullLabel(l model.Label) sql.NullString {
	return sql.NullString{String: l.Text, Valid: l.Valid}
}

func floatFrom(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return model.FloatPtr(v.Float64)
}

func labelFrom(v sql.NullString) model.Label {
	if !v.Valid {
		return model.Label{}
	}
	return model.Label{Text: v.String, Valid: true}
}
