package store

import "fmt"

// YearMonthStat 可用年月统计
type YearMonthStat struct {
	Year  int `json:"year"`
	Month int `json:"month"`

	Mills     int `json:"mills"`
	WithOER   int `json:"withOer"`
	WithFruit int `json:"withFruit"`
}

// ListAvailableYearMonths 列出已保存数据集中存在数据的年月（按年/月倒序）
func (s *Store) ListAvailableYearMonths() ([]YearMonthStat, error) {
	rows, err := s.db.Query(`
		SELECT
			data_year,
			data_month,
			COUNT(DISTINCT estate) AS mills,
			SUM(CASE WHEN oer_after IS NOT NULL THEN 1 ELSE 0 END) AS with_oer,
			SUM(CASE WHEN fruit_inti IS NOT NULL OR fruit_plasma IS NOT NULL OR fruit_3p IS NOT NULL THEN 1 ELSE 0 END) AS with_fruit
		FROM mill_records
		GROUP BY data_year, data_month
		ORDER BY data_year DESC, data_month DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query available months failed: %w", err)
	}
	defer rows.Close()

	var out []YearMonthStat
	for rows.Next() {
		var it YearMonthStat
		if err := rows.Scan(&it.Year, &it.Month, &it.Mills, &it.WithOER, &it.WithFruit); err != nil {
			return nil, fmt.Errorf("scan available months failed: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate available months failed: %w", err)
	}
	return out, nil
}
