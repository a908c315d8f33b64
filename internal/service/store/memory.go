package store

import (
	"errors"
	"sort"
	"sync"

	"millscope/internal/model"
)

// ErrRecordNotFound 记录不存在
var ErrRecordNotFound = errors.New("record not found")

// MemoryStore 内存数据存储，持有当前生效的数据集
type MemoryStore struct {
	dataset *model.Dataset
	records map[string]*model.MergedRecord
	mu      sync.RWMutex
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*model.MergedRecord),
	}
}

// SetDataset 整体替换数据集
func (s *MemoryStore) SetDataset(ds *model.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dataset = ds
	s.records = make(map[string]*model.MergedRecord)
	if ds == nil {
		return
	}
	for _, r := range ds.Records {
		s.records[r.Key()] = r
	}
}

// Dataset 获取当前数据集，未加载时为 nil
func (s *MemoryStore) Dataset() *model.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset
}

// HasData 是否已加载数据集
func (s *MemoryStore) HasData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset != nil
}

// Records 获取全部记录（按日期、厂代码排序的副本）
func (s *MemoryStore) Records() []*model.MergedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.MergedRecord, 0, len(s.records))
	for _, r := range s.records {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Estate < result[j].Estate
	})
	return result
}

// GetRecord 获取单厂单月记录
func (s *MemoryStore) GetRecord(estate string, month model.YearMonth) (*model.MergedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[model.RecordKey(estate, month)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return r, nil
}

// Completeness 获取当前完整性报告
func (s *MemoryStore) Completeness() model.CompletenessReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return model.CompletenessReport{}
	}
	return s.dataset.Completeness
}

// Estates 获取全部厂代码（升序）
func (s *MemoryStore) Estates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, r := range s.records {
		seen[r.Estate] = struct{}{}
	}
	result := make([]string, 0, len(seen))
	for e := range seen {
		result = append(result, e)
	}
	sort.Strings(result)
	return result
}

// Count 获取记录数量
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear 清空数据集
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = nil
	s.records = make(map[string]*model.MergedRecord)
}
