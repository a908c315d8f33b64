package backup

import (
	"errors"
	"testing"
	"time"

	"millscope/internal/model"
)

func testDataset(id string) *model.Dataset {
	rec := func(estate string, month int) *model.MergedRecord {
		return &model.MergedRecord{
			Estate:    estate,
			Date:      model.YearMonth{Year: 2024, Month: month},
			Year:      2024,
			Month:     month,
			PSM:       model.NewLabel("P1"),
			OERAfter:  model.FloatPtr(22.5),
			FruitInti: model.FloatPtr(0.6),
		}
	}
	return &model.Dataset{
		ID:         id,
		SourceFile: "mills.xlsx",
		LoadedAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Records:    []*model.MergedRecord{rec("M1", 1), rec("M1", 2), rec("M2", 1)},
		Completeness: model.CompletenessReport{
			Incomplete:    []model.IncompleteMill{{Estate: "M2", Missing: []string{"Fruit Mix %"}}},
			OERComplete:   []string{"M1", "M2"},
			FruitComplete: []string{"M1"},
		},
	}
}

// TestManager_SaveAndLoad 测试备份写入与读取
func TestManager_SaveAndLoad(t *testing.T) {
	t.Parallel()

	m, err := NewManager(t.TempDir(), 3)
	if err != nil {
		t.Fatalf("create manager failed: %v", err)
	}

	summary, err := m.Save(testDataset("ds-1"))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if summary.Records != 3 || summary.Estates != 2 || summary.Incomplete != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.MinMonth != "2024-01" || summary.MaxMonth != "2024-02" {
		t.Fatalf("unexpected month range: %s..%s", summary.MinMonth, summary.MaxMonth)
	}

	ds, err := m.Load(summary.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if ds.ID != "ds-1" || len(ds.Records) != 3 {
		t.Fatalf("unexpected dataset: id=%s records=%d", ds.ID, len(ds.Records))
	}
	r := ds.Records[0]
	if r.Date != (model.YearMonth{Year: 2024, Month: 1}) || !r.PSM.Valid || r.Region.Valid {
		t.Fatalf("record not restored: %+v", r)
	}
	if r.OERBefore != nil || r.OERAfter == nil || *r.OERAfter != 22.5 {
		t.Fatalf("metric pointers not restored: %+v", r)
	}
}

// TestManager_PrunesOldBackups 测试超出保留数时删除最旧备份
func TestManager_PrunesOldBackups(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m, err := NewManager(dir, 2)
	if err != nil {
		t.Fatalf("create manager failed: %v", err)
	}

	first, _ := m.Save(testDataset("ds-1"))
	time.Sleep(2 * time.Millisecond)
	_, _ = m.Save(testDataset("ds-2"))
	time.Sleep(2 * time.Millisecond)
	third, _ := m.Save(testDataset("ds-3"))

	items := m.List()
	if len(items) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(items))
	}
	if items[0].ID != third.ID {
		t.Fatalf("expected newest first, got %s", items[0].DatasetID)
	}
	if _, err := m.Load(first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected pruned backup to be gone, got %v", err)
	}

	reopened, err := NewManager(dir, 2)
	if err != nil {
		t.Fatalf("reopen manager failed: %v", err)
	}
	if got := len(reopened.List()); got != 2 {
		t.Fatalf("index not persisted: %d items", got)
	}
}

// TestManager_Delete 测试删除备份
func TestManager_Delete(t *testing.T) {
	t.Parallel()

	m, err := NewManager(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("create manager failed: %v", err)
	}
	s, _ := m.Save(testDataset("ds-1"))
	if err := m.Delete(s.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := m.Delete(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(m.List()) != 0 {
		t.Fatalf("expected empty list")
	}
}
