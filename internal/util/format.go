package util

import "fmt"

// FormatPercent 格式化百分数（输入已是百分数，如 23.4 -> "23.40%"）
func FormatPercent(value float64) string {
	return fmt.Sprintf("%.2f%%", value)
}

// FormatSignedPercent 带符号的百分点差值
func FormatSignedPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatOptionalPercent nil 输出 "-"
func FormatOptionalPercent(value *float64) string {
	if value == nil {
		return "-"
	}
	return FormatPercent(*value)
}
