package parser

import (
	"errors"
	"strings"
)

// ErrMissingSheets 工作簿缺少必需的 sheet
var ErrMissingSheets = errors.New("missing sheets")

// MissingSheetsError 列出缺失的 sheet 名称
type MissingSheetsError struct {
	Missing []string
}

func (e *MissingSheetsError) Error() string {
	return "Missing sheets: " + strings.Join(e.Missing, ", ")
}

func (e *MissingSheetsError) Unwrap() error {
	return ErrMissingSheets
}
