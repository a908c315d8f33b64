package model

// AllOption 筛选器"全部"哨兵值
const AllOption = "all"

// FilterState 当前筛选条件
//
// StartMonth / EndMonth 为 YYYY-MM，空串表示不限。
type FilterState struct {
	PSM        string `json:"psm"`
	Region     string `json:"region"`
	Estate     string `json:"estate"`
	LMM        string `json:"lmm"`
	StartMonth string `json:"startMonth"`
	EndMonth   string `json:"endMonth"`
}

// DefaultFilterState 全部选择为 all，日期不限
func DefaultFilterState() FilterState {
	return FilterState{PSM: AllOption, Region: AllOption, Estate: AllOption, LMM: AllOption}
}

// FilterOptions 各筛选器的可选项
type FilterOptions struct {
	PSMs    []string `json:"psms"`
	Regions []string `json:"regions"`
	Estates []string `json:"estates"`
	LMMs    []string `json:"lmms"`
	MinDate string   `json:"minDate"`
	MaxDate string   `json:"maxDate"`
}
