package parser

import (
	"strings"
)

// SheetRecognizer Sheet 类型识别器
//
// 先按标准名称精确匹配，再按规范化后的名称匹配（忽略大小写与空白差异）。
type SheetRecognizer struct{}

// NewSheetRecognizer 创建识别器
func NewSheetRecognizer() *SheetRecognizer {
	return &SheetRecognizer{}
}

// Recognize 识别 Sheet 类型
func (r *SheetRecognizer) Recognize(sheetName string) SheetRecognitionResult {
	for _, t := range []SheetType{SheetTypeOERBefore, SheetTypeOERAfter, SheetTypeFruitMix, SheetTypeMapping} {
		if sheetName == t.CanonicalName() {
			return SheetRecognitionResult{SheetName: sheetName, SheetType: t}
		}
	}

	normalized := strings.ToLower(NormalizeColumnName(sheetName))
	for _, t := range []SheetType{SheetTypeOERBefore, SheetTypeOERAfter, SheetTypeFruitMix, SheetTypeMapping} {
		if normalized == strings.ToLower(NormalizeColumnName(t.CanonicalName())) {
			return SheetRecognitionResult{SheetName: sheetName, SheetType: t}
		}
	}

	return SheetRecognitionResult{SheetName: sheetName, SheetType: SheetTypeUnknown}
}

// Resolve 为工作簿的所有 sheet 建立类型 -> sheet 名映射
//
// 同一类型出现多次时取第一个；缺少任一必需 sheet 返回 *MissingSheetsError。
func (r *SheetRecognizer) Resolve(sheetNames []string) (map[SheetType]string, error) {
	resolved := make(map[SheetType]string, len(sheetNames))
	for _, name := range sheetNames {
		res := r.Recognize(name)
		if res.SheetType == SheetTypeUnknown {
			continue
		}
		if _, exists := resolved[res.SheetType]; !exists {
			resolved[res.SheetType] = name
		}
	}

	var missing []string
	for _, t := range RequiredSheets {
		if _, ok := resolved[t]; !ok {
			missing = append(missing, t.CanonicalName())
		}
	}
	if len(missing) > 0 {
		return resolved, &MissingSheetsError{Missing: missing}
	}
	return resolved, nil
}
