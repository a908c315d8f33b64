package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"millscope/internal/calculator"
	"millscope/internal/exporter"
	"millscope/internal/importer"
	"millscope/internal/model"
	"millscope/internal/parser"
	"millscope/internal/service/backup"
	"millscope/internal/service/filter"
	memstore "millscope/internal/service/store"
	"millscope/internal/store"
)

// ErrNoData 尚未加载任何数据集
var ErrNoData = errors.New("no dataset loaded")

// ErrNoSource 默认工作簿与已保存快照均不可用
var ErrNoSource = errors.New("no data source available, please upload the workbook manually")

// Source 数据集来源
type Source string

const (
	SourceUpload   Source = "upload"
	SourceDefault  Source = "default_workbook"
	SourceSnapshot Source = "snapshot"
	SourceBackup   Source = "backup"
)

// FilterView 筛选状态与可选项
type FilterView struct {
	State   model.FilterState   `json:"state"`
	Options model.FilterOptions `json:"options"`
}

// FilterPatch 局部更新筛选条件，nil 字段保持不变
//
// 选择器按 PSM -> Region -> Estate -> LMM 的顺序应用，级联重置与逐个调用一致。
type FilterPatch struct {
	PSM        *string `json:"psm"`
	Region     *string `json:"region"`
	Estate     *string `json:"estate"`
	LMM        *string `json:"lmm"`
	StartMonth *string `json:"startMonth"`
	EndMonth   *string `json:"endMonth"`
}

// Status 当前数据集概况
type Status struct {
	Loaded     bool      `json:"loaded"`
	Source     Source    `json:"source,omitempty"`
	DatasetID  string    `json:"datasetId,omitempty"`
	SourceFile string    `json:"sourceFile,omitempty"`
	LoadedAt   time.Time `json:"loadedAt"`
	Records    int       `json:"records"`
	Estates    int       `json:"estates"`
	Incomplete int       `json:"incomplete"`
	MinMonth   string    `json:"minMonth,omitempty"`
	MaxMonth   string    `json:"maxMonth,omitempty"`
}

// Controller 看板控制器
//
// 唯一持有内存数据集与筛选状态；载入、筛选变更与计算在同一把锁内串行执行。
type Controller struct {
	mu          sync.Mutex
	data        *memstore.MemoryStore
	engine      *filter.Engine
	calc        *calculator.Calculator
	db          *store.Store
	coordinator *importer.Coordinator
	backups     *backup.Manager
	source      Source
}

// NewController 创建控制器；db 为 nil 时不持久化筛选状态，coordinator 为 nil 时无法加载默认工作簿
func NewController(db *store.Store, coordinator *importer.Coordinator, calc *calculator.Calculator) *Controller {
	if calc == nil {
		calc = calculator.NewCalculator(calculator.DefaultOptions())
	}
	return &Controller{
		data:        memstore.NewMemoryStore(),
		engine:      filter.NewEngine(nil),
		calc:        calc,
		db:          db,
		coordinator: coordinator,
	}
}

// SetBackups 设置备份管理器；设置后上传与默认工作簿载入的数据集会自动备份
func (c *Controller) SetBackups(m *backup.Manager) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backups = m
}

// Load 载入新数据集，筛选条件重置为全量
func (c *Controller) Load(ds *model.Dataset, source Source) {
	c.mu.Lock()
	c.loadLocked(ds, source)
	c.persistLocked()
	backups := c.backups
	c.mu.Unlock()

	if backups == nil || source == SourceSnapshot || source == SourceBackup {
		return
	}
	if _, err := backups.Save(ds); err != nil {
		log.Printf("备份数据集失败: %v", err)
	}
}

// Backups 返回备份列表，未启用备份时为空
func (c *Controller) Backups() []backup.Summary {
	c.mu.Lock()
	backups := c.backups
	c.mu.Unlock()
	if backups == nil {
		return []backup.Summary{}
	}
	return backups.List()
}

// RestoreBackup 从指定备份载入数据集
func (c *Controller) RestoreBackup(id string) error {
	c.mu.Lock()
	backups := c.backups
	c.mu.Unlock()
	if backups == nil {
		return backup.ErrNotFound
	}
	ds, err := backups.Load(id)
	if err != nil {
		return err
	}
	c.Load(ds, SourceBackup)
	return nil
}

func (c *Controller) loadLocked(ds *model.Dataset, source Source) {
	c.data.SetDataset(ds)
	c.engine.Reset(c.data.Records())
	c.source = source
	if c.db != nil && ds != nil {
		if err := c.db.SetLastDatasetID(ds.ID); err != nil {
			log.Printf("记录数据集 ID 失败: %v", err)
		}
	}
}

// Restore 从 SQLite 快照恢复最近一次成功导入的数据集及其筛选状态
func (c *Controller) Restore() error {
	if c.db == nil {
		return ErrNoData
	}
	ds, err := c.db.LoadLatestDataset()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked(ds, SourceSnapshot)
	if saved, err := c.db.LoadFilterState(); err == nil {
		if err := c.engine.Restore(saved); err != nil {
			log.Printf("恢复筛选状态失败，使用默认筛选: %v", err)
		}
	}
	c.persistLocked()
	return nil
}

// LoadDefault 先尝试默认工作簿，失败后回退到已保存快照；两者都失败返回 ErrNoSource
func (c *Controller) LoadDefault(ctx context.Context, path string) (Source, error) {
	var primaryErr error
	if path == "" || c.coordinator == nil {
		primaryErr = errors.New("default workbook not configured")
	} else {
		primaryErr = c.loadWorkbook(ctx, path)
		if primaryErr == nil {
			return SourceDefault, nil
		}
		log.Printf("加载默认工作簿失败: %v", primaryErr)
	}

	if err := c.Restore(); err != nil {
		return "", fmt.Errorf("%w (default workbook: %v; snapshot: %v)", ErrNoSource, primaryErr, err)
	}
	return SourceSnapshot, nil
}

func (c *Controller) loadWorkbook(ctx context.Context, path string) error {
	wb, err := parser.OpenWorkbook(path)
	if err != nil {
		return err
	}
	defer wb.Close()

	ds, _, err := c.coordinator.Run(ctx, wb, filepath.Base(path))
	if err != nil {
		return err
	}
	c.Load(ds, SourceDefault)
	return nil
}

// Status 返回数据集概况
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	ds := c.data.Dataset()
	if ds == nil {
		return Status{}
	}
	st := Status{
		Loaded:     true,
		Source:     c.source,
		DatasetID:  ds.ID,
		SourceFile: ds.SourceFile,
		LoadedAt:   ds.LoadedAt,
		Records:    c.data.Count(),
		Estates:    len(c.data.Estates()),
		Incomplete: len(ds.Completeness.Incomplete),
	}
	opts := c.engine.Options()
	st.MinMonth, st.MaxMonth = opts.MinDate, opts.MaxDate
	return st
}

// Filters 返回当前筛选状态与可选项
func (c *Controller) Filters() FilterView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// SetPSM 设置 PSM，级联重置 Region 与 Estate
func (c *Controller) SetPSM(value string) FilterView {
	v, _ := c.Update(FilterPatch{PSM: &value})
	return v
}

// SetRegion 设置 Region，级联重置 Estate
func (c *Controller) SetRegion(value string) FilterView {
	v, _ := c.Update(FilterPatch{Region: &value})
	return v
}

// SetEstate 设置厂
func (c *Controller) SetEstate(value string) FilterView {
	v, _ := c.Update(FilterPatch{Estate: &value})
	return v
}

// SetLMM 设置 LMM
func (c *Controller) SetLMM(value string) FilterView {
	v, _ := c.Update(FilterPatch{LMM: &value})
	return v
}

// SetDateRange 设置月份范围（YYYY-MM，空串不限）
func (c *Controller) SetDateRange(start, end string) (FilterView, error) {
	return c.Update(FilterPatch{StartMonth: &start, EndMonth: &end})
}

// Update 应用局部筛选变更并持久化；月份格式非法时不做任何修改
func (c *Controller) Update(p FilterPatch) (FilterView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.StartMonth != nil || p.EndMonth != nil {
		cur := c.engine.State()
		start, end := cur.StartMonth, cur.EndMonth
		if p.StartMonth != nil {
			start = *p.StartMonth
		}
		if p.EndMonth != nil {
			end = *p.EndMonth
		}
		if err := c.engine.SetDateRange(start, end); err != nil {
			return c.viewLocked(), err
		}
	}
	if p.PSM != nil {
		c.engine.SetPSM(*p.PSM)
	}
	if p.Region != nil {
		c.engine.SetRegion(*p.Region)
	}
	if p.Estate != nil {
		c.engine.SetEstate(*p.Estate)
	}
	if p.LMM != nil {
		c.engine.SetLMM(*p.LMM)
	}
	c.persistLocked()
	return c.viewLocked(), nil
}

// ResetFilters 恢复为全量筛选
func (c *Controller) ResetFilters() FilterView {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.Reset(c.data.Records())
	c.persistLocked()
	return c.viewLocked()
}

// Records 返回当前筛选结果（按日期升序）
func (c *Controller) Records() []*model.MergedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Apply()
}

// AllRecords 返回未筛选的全部记录
func (c *Controller) AllRecords() []*model.MergedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.Records()
}

// Completeness 返回当前数据集的完整性报告
func (c *Controller) Completeness() (model.CompletenessReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.data.HasData() {
		return model.CompletenessReport{}, ErrNoData
	}
	return c.data.Completeness(), nil
}

// Dashboard 按当前筛选计算全部看板数据
func (c *Controller) Dashboard() (calculator.Dashboard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.data.HasData() {
		return calculator.Dashboard{}, ErrNoData
	}
	return c.calc.Dashboard(c.engine.Apply(), c.data.Records(), c.data.Completeness()), nil
}

// ExportSnapshot 在同一把锁内取得筛选条件、看板结果与筛选明细
func (c *Controller) ExportSnapshot() (exporter.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.data.HasData() {
		return exporter.Snapshot{}, ErrNoData
	}
	filtered := c.engine.Apply()
	return exporter.Snapshot{
		Filter:    c.engine.State(),
		Dashboard: c.calc.Dashboard(filtered, c.data.Records(), c.data.Completeness()),
		Records:   filtered,
	}, nil
}

func (c *Controller) viewLocked() FilterView {
	return FilterView{State: c.engine.State(), Options: c.engine.Options()}
}

func (c *Controller) persistLocked() {
	if c.db == nil || !c.data.HasData() {
		return
	}
	if err := c.db.SaveFilterState(c.engine.State()); err != nil {
		log.Printf("保存筛选状态失败: %v", err)
	}
}
