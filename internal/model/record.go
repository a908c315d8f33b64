package model

import (
	"encoding/json"
	"strings"
)

// UnknownLabel 未解析标签的展示值
const UnknownLabel = "Unknown"

// Label 可选的分类标签（PSM / Region / LMM）
//
// 未解析（映射表缺失该厂、单元格为空）与字面值 "Unknown" 区分开：Valid=false 表示未解析。
type Label struct {
	Text  string
	Valid bool
}

// NewLabel 由原始文本构造标签，空白视为未解析
func NewLabel(text string) Label {
	text = strings.TrimSpace(text)
	if text == "" {
		return Label{}
	}
	return Label{Text: text, Valid: true}
}

// String 返回展示值，未解析时为 "Unknown"
func (l Label) String() string {
	if !l.Valid {
		return UnknownLabel
	}
	return l.Text
}

// Resolved 是否为已解析的真实取值（字面值 "Unknown" 也视为未解析）
func (l Label) Resolved() bool {
	return l.Valid && l.Text != UnknownLabel
}

// MarshalJSON 未解析输出 null
func (l Label) MarshalJSON() ([]byte, error) {
	if !l.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(l.Text)
}

// UnmarshalJSON null 解析为未解析标签
func (l *Label) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = Label{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = NewLabel(s)
	return nil
}

// MetricField 指标字段
type MetricField string

const (
	FieldOERBefore MetricField = "oer_before"
	FieldOERAfter  MetricField = "oer_after"
	FieldFruitMix  MetricField = "fruit_mix_pct"
)

// MetricFact 单厂单月单指标的观测值
type MetricFact struct {
	Estate   string      `json:"estate"`
	LMM      Label       `json:"lmm"`
	Date     YearMonth   `json:"date"`
	Category Label       `json:"category"`
	Field    MetricField `json:"field"`
	Value    float64     `json:"value"`
}

// MergedRecord 合并后的单厂单月记录，键为 estate|date
//
// 指标字段为 nil 表示三张源表都没有该值；0 是有效观测（停产月份）。
type MergedRecord struct {
	Estate string    `json:"estate"`
	Date   YearMonth `json:"date"`
	Year   int       `json:"year"`
	Month  int       `json:"month"`
	PSM    Label     `json:"psm"`
	Region Label     `json:"region"`
	LMM    Label     `json:"lmm"`

	OERBefore   *float64 `json:"oerBefore,omitempty"`
	OERAfter    *float64 `json:"oerAfter,omitempty"`
	FruitInti   *float64 `json:"fruitInti,omitempty"`
	FruitPlasma *float64 `json:"fruitPlasma,omitempty"`
	Fruit3P     *float64 `json:"fruit3p,omitempty"`
}

// RecordKey 合并键
func RecordKey(estate string, date YearMonth) string {
	return estate + "|" + date.DateString()
}

// Key 返回记录的合并键
func (r *MergedRecord) Key() string {
	return RecordKey(r.Estate, r.Date)
}

// MonthKey 返回 YYYY-MM
func (r *MergedRecord) MonthKey() string {
	return r.Date.String()
}

// HasOERAfter oer_after 存在且非 0（0 代表停产月份，不参与均值）
func (r *MergedRecord) HasOERAfter() bool {
	return r.OERAfter != nil && *r.OERAfter != 0
}

// HasOERBefore oer_before 存在且非 0
func (r *MergedRecord) HasOERBefore() bool {
	return r.OERBefore != nil && *r.OERBefore != 0
}

// HasAnyFruit 是否存在任一果源占比
func (r *MergedRecord) HasAnyFruit() bool {
	return r.FruitInti != nil || r.FruitPlasma != nil || r.Fruit3P != nil
}

// HasAllFruit 三个果源占比是否齐全
func (r *MergedRecord) HasAllFruit() bool {
	return r.FruitInti != nil && r.FruitPlasma != nil && r.Fruit3P != nil
}

// Float 返回指针指向的值，nil 视为 0
func Float(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// FloatPtr 返回 v 的指针
func FloatPtr(v float64) *float64 {
	return &v
}

// MappingEntry 映射表中单厂的组织归属
type MappingEntry struct {
	PSM    Label `json:"psm"`
	Region Label `json:"region"`
}

// Mapping 厂代码 -> 组织归属
type Mapping map[string]MappingEntry
