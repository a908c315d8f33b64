package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// YearMonth 规范化年月（始终代表该月 1 日）
type YearMonth struct {
	Year  int
	Month int
}

// NewYearMonth 由 time.Time 构造年月
func NewYearMonth(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: int(t.Month())}
}

// IsZero 是否为空年月
func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

// String 返回 YYYY-MM（筛选与分组使用的月份键）
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// DateString 返回 YYYY-MM-01
func (ym YearMonth) DateString() string {
	return ym.String() + "-01"
}

// Label 返回展示用月份，例如 "Jan 2024"
func (ym YearMonth) Label() string {
	return ym.Time().Format("Jan 2006")
}

// Time 返回该月 1 日 00:00 UTC
func (ym YearMonth) Time() time.Time {
	return time.Date(ym.Year, time.Month(ym.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Index 返回单调递增的月序号，便于比较与区间计算
func (ym YearMonth) Index() int {
	return ym.Year*12 + ym.Month - 1
}

// AddMonths 加减月份
func (ym YearMonth) AddMonths(n int) YearMonth {
	idx := ym.Index() + n
	return YearMonth{Year: idx / 12, Month: idx%12 + 1}
}

// Before 是否早于 other
func (ym YearMonth) Before(other YearMonth) bool {
	return ym.Index() < other.Index()
}

// After 是否晚于 other
func (ym YearMonth) After(other YearMonth) bool {
	return ym.Index() > other.Index()
}

// MarshalText 序列化为 YYYY-MM-01
func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.DateString()), nil
}

// UnmarshalText 支持 YYYY-MM 与 YYYY-MM-DD
func (ym *YearMonth) UnmarshalText(text []byte) error {
	parsed, ok := ParseMonthKey(string(text))
	if !ok {
		return fmt.Errorf("invalid year-month: %q", string(text))
	}
	*ym = parsed
	return nil
}

// ParseMonthKey 解析 "YYYY-MM" 或 "YYYY-MM-DD" 形式的月份键
func ParseMonthKey(s string) (YearMonth, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 7 || s[4] != '-' {
		return YearMonth{}, false
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return YearMonth{}, false
	}
	month, err := strconv.Atoi(s[5:7])
	if err != nil || month < 1 || month > 12 {
		return YearMonth{}, false
	}
	if len(s) > 7 && s[7] != '-' {
		return YearMonth{}, false
	}
	return YearMonth{Year: year, Month: month}, true
}
