package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"millscope/internal/model"
)

const (
	schemaVersion = 1
	// DefaultKeep 默认保留的备份数
	DefaultKeep = 10
)

// ErrNotFound 备份不存在
var ErrNotFound = errors.New("backup not found")

// Manager 数据集备份管理：每次成功载入后把数据集写成 JSON，按时间保留最近 keep 份
type Manager struct {
	dir  string
	keep int

	mu    sync.Mutex
	index Index
}

// NewManager 创建备份管理器并读取索引
func NewManager(dir string, keep int) (*Manager, error) {
	if dir == "" {
		return nil, errors.New("backup dir is required")
	}
	if keep <= 0 {
		keep = DefaultKeep
	}
	m := &Manager{
		dir:  dir,
		keep: keep,
		index: Index{
			SchemaVersion: schemaVersion,
			Items:         []Summary{},
		},
	}
	if err := m.loadIndex(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) indexPath() string {
	return filepath.Join(m.dir, "index.json")
}

func (m *Manager) datasetPath(id string) string {
	return filepath.Join(m.dir, id+".json")
}

func (m *Manager) loadIndex() error {
	path := m.indexPath()
	if !fileExists(path) {
		return writeJSONAtomic(path, m.index, true)
	}
	var idx Index
	if err := readJSON(path, &idx); err != nil {
		return fmt.Errorf("read backup index: %w", err)
	}
	if idx.SchemaVersion == 0 {
		idx.SchemaVersion = schemaVersion
	}
	if idx.Items == nil {
		idx.Items = []Summary{}
	}
	m.index = idx
	return nil
}

func (m *Manager) saveIndexLocked() error {
	return writeJSONAtomic(m.indexPath(), m.index, true)
}

// Save 写入一份数据集备份，超出保留数的旧备份被删除
func (m *Manager) Save(ds *model.Dataset) (Summary, error) {
	if ds == nil {
		return Summary{}, errors.New("dataset is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	estates := lo.Uniq(lo.Map(ds.Records, func(r *model.MergedRecord, _ int) string {
		return r.Estate
	}))
	summary := Summary{
		ID:         uuid.NewString(),
		DatasetID:  ds.ID,
		SourceFile: ds.SourceFile,
		CreatedAt:  time.Now().UTC(),
		Records:    len(ds.Records),
		Estates:    len(estates),
		Incomplete: len(ds.Completeness.Incomplete),
	}
	if minYM, maxYM, ok := model.DateBounds(ds.Records); ok {
		summary.MinMonth, summary.MaxMonth = minYM.String(), maxYM.String()
	}

	if err := writeJSONAtomic(m.datasetPath(summary.ID), ds, false); err != nil {
		return Summary{}, fmt.Errorf("write backup: %w", err)
	}

	m.index.Items = append([]Summary{summary}, m.index.Items...)
	m.sortLocked()
	if len(m.index.Items) > m.keep {
		for _, old := range m.index.Items[m.keep:] {
			_ = os.Remove(m.datasetPath(old.ID))
		}
		m.index.Items = m.index.Items[:m.keep]
	}
	if err := m.saveIndexLocked(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// List 返回全部备份（新的在前）
func (m *Manager) List() []Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Summary, len(m.index.Items))
	copy(out, m.index.Items)
	return out
}

// Load 读取备份中的数据集
func (m *Manager) Load(id string) (*model.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.findLocked(id); !ok {
		return nil, ErrNotFound
	}
	var ds model.Dataset
	if err := readJSON(m.datasetPath(id), &ds); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read backup %s: %w", id, err)
	}
	return &ds, nil
}

// Delete 删除备份
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.findLocked(id); !ok {
		return ErrNotFound
	}
	m.index.Items = lo.Filter(m.index.Items, func(s Summary, _ int) bool {
		return s.ID != id
	})
	_ = os.Remove(m.datasetPath(id))
	return m.saveIndexLocked()
}

func (m *Manager) findLocked(id string) (Summary, bool) {
	return lo.Find(m.index.Items, func(s Summary) bool {
		return s.ID == id
	})
}

func (m *Manager) sortLocked() {
	sort.SliceStable(m.index.Items, func(i, j int) bool {
		return m.index.Items[i].CreatedAt.After(m.index.Items[j].CreatedAt)
	})
}
