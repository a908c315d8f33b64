package model

// BlankCounts 各源表的空白月份单元格数
type BlankCounts struct {
	Before int `json:"before"`
	After  int `json:"after"`
	Fruit  int `json:"fruit"`
}

// CompletenessDetails 单厂完整性明细
type CompletenessDetails struct {
	OERComplete   bool        `json:"oerComplete"`
	FruitComplete bool        `json:"fruitComplete"`
	Blanks        BlankCounts `json:"blanks"`
	HasBefore     bool        `json:"hasBefore"`
	HasAfter      bool        `json:"hasAfter"`
	HasFruit      bool        `json:"hasFruit"`
}

// IncompleteMill 数据不完整的厂
type IncompleteMill struct {
	Estate  string              `json:"estate"`
	Missing []string            `json:"missing"`
	Details CompletenessDetails `json:"details"`
}

// CompletenessReport 数据完整性报告
//
// OERComplete / FruitComplete 决定哪些厂参与 OER 与果源相关的汇总；缺任意一个月即整厂剔除。
type CompletenessReport struct {
	Incomplete    []IncompleteMill `json:"incomplete"`
	OERComplete   []string         `json:"oerComplete"`
	FruitComplete []string         `json:"fruitComplete"`
}

// OERCompleteSet OER 完整厂集合
func (r CompletenessReport) OERCompleteSet() map[string]struct{} {
	return toSet(r.OERComplete)
}

// FruitCompleteSet 果源完整厂集合
func (r CompletenessReport) FruitCompleteSet() map[string]struct{} {
	return toSet(r.FruitComplete)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
