package parser

import (
	"errors"
	"testing"
)

func TestSheetRecognizer_Recognize(t *testing.T) {
	t.Parallel()

	r := NewSheetRecognizer()
	expect := map[string]SheetType{
		"OER Data Before HFC": SheetTypeOERBefore,
		"OER Data After HFC":  SheetTypeOERAfter,
		"Fruit Mix %":         SheetTypeFruitMix,
		"Mapping":             SheetTypeMapping,
		"oer data  after hfc": SheetTypeOERAfter,
		"Summary":             SheetTypeUnknown,
	}
	for sheet, want := range expect {
		if got := r.Recognize(sheet).SheetType; got != want {
			t.Fatalf("sheet %s type mismatch: got=%s want=%s", sheet, got, want)
		}
	}
}

func TestSheetRecognizer_ResolveMissing(t *testing.T) {
	t.Parallel()

	r := NewSheetRecognizer()
	_, err := r.Resolve([]string{"OER Data After HFC", "Mapping"})
	if err == nil {
		t.Fatalf("expected missing sheets error")
	}
	if !errors.Is(err, ErrMissingSheets) {
		t.Fatalf("expected ErrMissingSheets, got %v", err)
	}
	var missing *MissingSheetsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingSheetsError, got %T", err)
	}
	if len(missing.Missing) != 2 || missing.Missing[0] != SheetNameOERBefore || missing.Missing[1] != SheetNameFruitMix {
		t.Fatalf("unexpected missing list: %v", missing.Missing)
	}
	if err.Error() != "Missing sheets: OER Data Before HFC, Fruit Mix %" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestSheetRecognizer_ResolveAll(t *testing.T) {
	t.Parallel()

	r := NewSheetRecognizer()
	resolved, err := r.Resolve([]string{"Fruit Mix %", "OER Data Before HFC", "OER Data After HFC"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved[SheetTypeFruitMix] != "Fruit Mix %" {
		t.Fatalf("unexpected resolution: %v", resolved)
	}
	if _, ok := resolved[SheetTypeMapping]; ok {
		t.Fatalf("mapping should be absent")
	}
}
