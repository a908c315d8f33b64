package backup

import "time"

// Summary 备份概要（索引项）
type Summary struct {
	ID         string    `json:"id"`
	DatasetID  string    `json:"datasetId"`
	SourceFile string    `json:"sourceFile"`
	CreatedAt  time.Time `json:"createdAt"`
	Records    int       `json:"records"`
	Estates    int       `json:"estates"`
	Incomplete int       `json:"incomplete"`
	MinMonth   string    `json:"minMonth"`
	MaxMonth   string    `json:"maxMonth"`
}

// Index 备份索引文件：backups/index.json
type Index struct {
	SchemaVersion int       `json:"schemaVersion"`
	Items         []Summary `json:"items"`
}
