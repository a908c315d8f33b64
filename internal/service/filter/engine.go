package filter

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"millscope/internal/model"
)

// Engine 级联筛选引擎
//
// 非并发安全，由上层控制器串行调用。PSM/Region/LMM 按展示值比较，未解析的标签等同于 "Unknown"。
type Engine struct {
	records []*model.MergedRecord
	state   model.FilterState
	regions []string
	estates []string
}

// NewEngine 创建筛选引擎并重置为全量
func NewEngine(records []*model.MergedRecord) *Engine {
	e := &Engine{}
	e.Reset(records)
	return e
}

// Reset 载入新数据：所有选择恢复为 all，日期范围为数据的最早到最晚月份
func (e *Engine) Reset(records []*model.MergedRecord) {
	e.records = records
	e.state = model.DefaultFilterState()
	if minYM, maxYM, ok := model.DateBounds(records); ok {
		e.state.StartMonth = minYM.String()
		e.state.EndMonth = maxYM.String()
	}
	e.regions = distinct(records, regionOf)
	e.estates = distinct(records, estateOf)
}

// Restore 恢复已保存的筛选状态，并按 PSM / Region 重新计算下级选项
func (e *Engine) Restore(state model.FilterState) error {
	if err := validateMonth(state.StartMonth); err != nil {
		return err
	}
	if err := validateMonth(state.EndMonth); err != nil {
		return err
	}
	e.state = normalize(state)
	e.regions = e.validRegions(e.state.PSM)
	e.refreshEstates()
	return nil
}

// State 返回当前筛选状态
func (e *Engine) State() model.FilterState {
	return e.state
}

// Records 返回引擎持有的全部记录
func (e *Engine) Records() []*model.MergedRecord {
	return e.records
}

// SetPSM 选择 PSM；级联刷新 Region 与厂选项
//
// 选中具体 PSM 且当前 Region 不属于它时 Region 重置为 all；选择 all 时不重置 Region。
func (e *Engine) SetPSM(value string) {
	value = orAll(value)
	e.state.PSM = value

	e.regions = e.validRegions(value)
	if value != model.AllOption && !lo.Contains(e.regions, e.state.Region) {
		e.state.Region = model.AllOption
	}
	e.refreshEstates()
}

// SetRegion 选择 Region；级联刷新厂选项
func (e *Engine) SetRegion(value string) {
	e.state.Region = orAll(value)
	e.refreshEstates()
}

// SetEstate 选择厂
func (e *Engine) SetEstate(value string) {
	e.state.Estate = orAll(value)
}

// SetLMM 选择 LMM
func (e *Engine) SetLMM(value string) {
	e.state.LMM = orAll(value)
}

// SetDateRange 设置日期范围（YYYY-MM，空串表示不限，闭区间）
func (e *Engine) SetDateRange(start, end string) error {
	if err := validateMonth(start); err != nil {
		return err
	}
	if err := validateMonth(end); err != nil {
		return err
	}
	e.state.StartMonth = start
	e.state.EndMonth = end
	return nil
}

// Options 返回当前可选项
func (e *Engine) Options() model.FilterOptions {
	opts := model.FilterOptions{
		PSMs:    distinct(e.records, psmOf),
		Regions: append([]string{}, e.regions...),
		Estates: append([]string{}, e.estates...),
		LMMs:    distinct(e.records, lmmOf),
	}
	if minYM, maxYM, ok := model.DateBounds(e.records); ok {
		opts.MinDate = minYM.String()
		opts.MaxDate = maxYM.String()
	}
	return opts
}

// Matches 记录是否满足当前筛选
func (e *Engine) Matches(r *model.MergedRecord) bool {
	return Match(e.state, r)
}

// Apply 返回满足筛选的记录，按日期升序
func (e *Engine) Apply() []*model.MergedRecord {
	out := lo.Filter(e.records, func(r *model.MergedRecord, _ int) bool {
		return Match(e.state, r)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Match 判断记录是否满足筛选状态
func Match(state model.FilterState, r *model.MergedRecord) bool {
	if state.PSM != model.AllOption && r.PSM.String() != state.PSM {
		return false
	}
	if state.Region != model.AllOption && r.Region.String() != state.Region {
		return false
	}
	if state.Estate != model.AllOption && r.Estate != state.Estate {
		return false
	}
	if state.LMM != model.AllOption && r.LMM.String() != state.LMM {
		return false
	}
	key := r.MonthKey()
	if state.StartMonth != "" && key < state.StartMonth {
		return false
	}
	if state.EndMonth != "" && key > state.EndMonth {
		return false
	}
	return true
}

// validRegions 选中 PSM 下的 Region 选项
func (e *Engine) validRegions(psm string) []string {
	relevant := e.records
	if psm != model.AllOption {
		relevant = lo.Filter(e.records, func(r *model.MergedRecord, _ int) bool {
			return r.PSM.String() == psm
		})
	}
	return distinct(relevant, regionOf)
}

// refreshEstates 按 PSM + Region 刷新厂选项，当前厂不再有效时重置为 all
func (e *Engine) refreshEstates() {
	relevant := lo.Filter(e.records, func(r *model.MergedRecord, _ int) bool {
		if e.state.PSM != model.AllOption && r.PSM.String() != e.state.PSM {
			return false
		}
		if e.state.Region != model.AllOption && r.Region.String() != e.state.Region {
			return false
		}
		return true
	})
	e.estates = distinct(relevant, estateOf)
	if e.state.Estate != model.AllOption && !lo.Contains(e.estates, e.state.Estate) {
		e.state.Estate = model.AllOption
	}
}

func psmOf(r *model.MergedRecord) string    { return r.PSM.String() }
func regionOf(r *model.MergedRecord) string { return r.Region.String() }
func estateOf(r *model.MergedRecord) string { return r.Estate }
func lmmOf(r *model.MergedRecord) string    { return r.LMM.String() }

// distinct 去重、去空并排序
func distinct(records []*model.MergedRecord, key func(*model.MergedRecord) string) []string {
	values := lo.Uniq(lo.FilterMap(records, func(r *model.MergedRecord, _ int) (string, bool) {
		v := key(r)
		return v, v != ""
	}))
	sort.Strings(values)
	return values
}

func orAll(value string) string {
	if value == "" {
		return model.AllOption
	}
	return value
}

func normalize(state model.FilterState) model.FilterState {
	state.PSM = orAll(state.PSM)
	state.Region = orAll(state.Region)
	state.Estate = orAll(state.Estate)
	state.LMM = orAll(state.LMM)
	return state
}

func validateMonth(s string) error {
	if s == "" {
		return nil
	}
	if len(s) != 7 {
		return fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	if _, ok := model.ParseMonthKey(s); !ok {
		return fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	return nil
}
