package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"millscope/internal/model"
)

// 配置表中使用的键
const (
	configKeyFilterState = "filter_state"
	configKeyLastDataset = "last_dataset_id"
)

// ErrConfigNotFound 配置项不存在
var ErrConfigNotFound = errors.New("config key not found")

// GetConfig 获取配置项
func (s *Store) GetConfig(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, key)
		}
		return "", err
	}
	return value, nil
}

// SetConfig 设置配置项
func (s *Store) SetConfig(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP
	`, key, value, value)
	return err
}

// GetAllConfig 获取所有配置项
func (s *Store) GetAllConfig() (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM config")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	config := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		config[key] = value
	}

	return config, rows.Err()
}

// SaveFilterState 保存当前筛选状态
func (s *Store) SaveFilterState(state model.FilterState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode filter state: %w", err)
	}
	return s.SetConfig(configKeyFilterState, string(b))
}

// LoadFilterState 读取已保存的筛选状态
func (s *Store) LoadFilterState() (model.FilterState, error) {
	value, err := s.GetConfig(configKeyFilterState)
	if err != nil {
		return model.FilterState{}, err
	}
	var state model.FilterState
	if err := json.Unmarshal([]byte(value), &state); err != nil {
		return model.FilterState{}, fmt.Errorf("failed to decode filter state: %w", err)
	}
	return state, nil
}

// SetLastDatasetID 记录最近一次加载的数据集
func (s *Store) SetLastDatasetID(id string) error {
	return s.SetConfig(configKeyLastDataset, id)
}

// GetLastDatasetID 获取最近一次加载的数据集
func (s *Store) GetLastDatasetID() (string, error) {
	return s.GetConfig(configKeyLastDataset)
}
