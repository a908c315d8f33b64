package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"millscope/internal/model"
)

var numericPrefixRe = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// ParseNumericValue 将单元格值宽松地转换为数值，永不失败
//
// nil / 空串 -> 0；数值原样返回；字符串去空白后，以 % 结尾时取数值前缀 / 100，
// 否则取最长数值前缀（"12abc" -> 12）；无法解析 -> 0。
func ParseNumericValue(raw model.Cell) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case uint:
		return float64(v)
	case uint64:
		return float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		if strings.HasSuffix(s, "%") {
			n, ok := parseFloatPrefix(strings.TrimSuffix(s, "%"))
			if !ok {
				return 0
			}
			return n / 100
		}
		n, ok := parseFloatPrefix(s)
		if !ok {
			return 0
		}
		return n
	case bool, time.Time:
		return 0
	default:
		return 0
	}
}

// parseFloatPrefix 解析字符串开头的最长数值前缀
func parseFloatPrefix(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	m := numericPrefixRe.FindString(s)
	if m == "" {
		return 0, false
	}
	switch strings.TrimLeft(m, "+-") {
	case "Infinity":
		if strings.HasPrefix(m, "-") {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		// 指数溢出时 ParseFloat 返回 ±Inf 与 ErrRange
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return n, true
		}
		return 0, false
	}
	return n, true
}

// CellString 返回单元格的字符串形式（数值不带多余小数位）
func CellString(raw model.Cell) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return ""
	}
}

// IsBlankCell 空白单元格：nil、空串或纯空白字符串（数值 0 不算空白）
func IsBlankCell(raw model.Cell) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}
