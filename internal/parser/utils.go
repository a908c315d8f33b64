package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"millscope/internal/model"
)

const (
	// excelEpochOffsetDays 1970-01-01 对应的 Excel 序列号
	excelEpochOffsetDays = 25569
	serialDateMin        = 40000
	serialDateMax        = 60000

	headerYearMin = 1990
	headerYearMax = 2050
)

var (
	shortMonthRe   = regexp.MustCompile(`^([A-Za-z]{3})-(\d{2,4})$`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	nonMonthTokens = []string{"Code", "Mix", "LMM"}

	monthAbbr = map[string]int{
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	}

	// genericDateLayouts 通用日期写法
	genericDateLayouts = []string{
		"2006-01-02",
		"2006-01",
		"2006/01/02",
		"2006/1/2",
		"01/02/2006",
		"1/2/2006",
		"January 2006",
		"Jan 2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"2 Jan 2006",
		"02-Jan-2006",
		"2-Jan-2006",
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006",
	}
)

// ParseMonthHeader 判断表头是否为月份，并规范化为 YearMonth
//
// 规则依次为：
//  1. 数值（或数值字符串）落在 (40000, 60000) 内按 Excel 序列日期处理（UTC）
//  2. "Jan-24" / "Jan-2024" 形式，两位年份补为 20YY
//  3. 含 Code / Mix / LMM 的字符串一律不是月份
//  4. 通用日期字符串，年份须在 (1990, 2050) 内
func ParseMonthHeader(raw any) (model.YearMonth, bool) {
	switch v := raw.(type) {
	case nil:
		return model.YearMonth{}, false
	case float64:
		return fromSerial(v)
	case int:
		return fromSerial(float64(v))
	case int64:
		return fromSerial(float64(v))
	case time.Time:
		if v.Year() <= headerYearMin || v.Year() >= headerYearMax {
			return model.YearMonth{}, false
		}
		return model.NewYearMonth(v), true
	case string:
		return parseMonthString(v)
	default:
		return model.YearMonth{}, false
	}
}

func fromSerial(n float64) (model.YearMonth, bool) {
	if math.IsNaN(n) || n <= serialDateMin || n >= serialDateMax {
		return model.YearMonth{}, false
	}
	ms := math.Round((n - excelEpochOffsetDays) * 86400 * 1000)
	return model.NewYearMonth(time.UnixMilli(int64(ms)).UTC()), true
}

func parseMonthString(s string) (model.YearMonth, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.YearMonth{}, false
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if ym, ok := fromSerial(n); ok {
			return ym, true
		}
	}

	if m := shortMonthRe.FindStringSubmatch(s); m != nil {
		month, ok := monthAbbr[strings.ToLower(m[1])]
		if !ok {
			return model.YearMonth{}, false
		}
		year, _ := strconv.Atoi(m[2])
		if len(m[2]) == 2 {
			year += 2000
		}
		return model.YearMonth{Year: year, Month: month}, true
	}

	if ContainsAny(s, nonMonthTokens) {
		return model.YearMonth{}, false
	}

	for _, layout := range genericDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() <= headerYearMin || t.Year() >= headerYearMax {
			return model.YearMonth{}, false
		}
		return model.NewYearMonth(t), true
	}
	return model.YearMonth{}, false
}

// NormalizeColumnName 规范化列名，去除空格和特殊字符
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\n", "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\t", "")
	return whitespaceRe.ReplaceAllString(name, "")
}

// ContainsAny 检查字符串是否包含任意一个关键词
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
