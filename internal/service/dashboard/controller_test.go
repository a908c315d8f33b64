package dashboard

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"millscope/internal/calculator"
	"millscope/internal/importer"
	"millscope/internal/model"
	"millscope/internal/service/backup"
	"millscope/internal/store"
)

func record(estate, psm, region string, month int, after float64) *model.MergedRecord {
	ym := model.YearMonth{Year: 2024, Month: month}
	return &model.MergedRecord{
		Estate: estate, Date: ym, Year: 2024, Month: month,
		PSM: model.NewLabel(psm), Region: model.NewLabel(region), LMM: model.NewLabel("LMM"),
		OERBefore:   model.FloatPtr(after - 1),
		OERAfter:    model.FloatPtr(after),
		FruitInti:   model.FloatPtr(0.6),
		FruitPlasma: model.FloatPtr(0.3),
		Fruit3P:     model.FloatPtr(0.1),
	}
}

func testDataset(id string) *model.Dataset {
	return &model.Dataset{
		ID:         id,
		SourceFile: "mills.xlsx",
		LoadedAt:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Records: []*model.MergedRecord{
			record("M1", "P1", "R1", 1, 22),
			record("M1", "P1", "R1", 2, 23),
			record("M2", "P1", "R2", 1, 20),
			record("M2", "P1", "R2", 2, 21),
			record("M3", "P2", "R3", 1, 24),
			record("M3", "P2", "R3", 2, 25),
		},
		Completeness: model.CompletenessReport{
			Incomplete:    []model.IncompleteMill{},
			OERComplete:   []string{"M1", "M2", "M3"},
			FruitComplete: []string{"M1", "M2", "M3"},
		},
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "millscope.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestController_NoData(t *testing.T) {
	t.Parallel()

	c := NewController(nil, nil, nil)
	if _, err := c.Dashboard(); !errors.Is(err, ErrNoData) {
		t.Fatalf("want ErrNoData got %v", err)
	}
	if _, err := c.Completeness(); !errors.Is(err, ErrNoData) {
		t.Fatalf("want ErrNoData got %v", err)
	}
	if c.Status().Loaded {
		t.Fatalf("status should report not loaded")
	}
}

func TestController_LoadAndCascade(t *testing.T) {
	t.Parallel()

	c := NewController(nil, nil, calculator.NewCalculator(calculator.DefaultOptions()))
	c.Load(testDataset("ds-1"), SourceUpload)

	st := c.Status()
	if !st.Loaded || st.Records != 6 || st.Estates != 3 || st.MinMonth != "2024-01" || st.MaxMonth != "2024-02" {
		t.Fatalf("unexpected status: %+v", st)
	}

	view := c.Filters()
	if view.State.StartMonth != "2024-01" || view.State.EndMonth != "2024-02" {
		t.Fatalf("load should reset to full range: %+v", view.State)
	}

	c.SetRegion("R3")
	view = c.SetPSM("P1")
	if view.State.Region != model.AllOption {
		t.Fatalf("region outside psm should reset: %+v", view.State)
	}
	if len(view.Options.Regions) != 2 || view.Options.Regions[0] != "R1" || view.Options.Regions[1] != "R2" {
		t.Fatalf("regions for P1 = %v", view.Options.Regions)
	}
	if got := len(c.Records()); got != 4 {
		t.Fatalf("P1 should match 4 records, got %d", got)
	}

	d, err := c.Dashboard()
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Records != 4 || d.KPI.AvgOERAfter == nil || *d.KPI.AvgOERAfter != 21.5 {
		t.Fatalf("unexpected dashboard kpi: %+v", d.KPI)
	}
	if len(d.Overview) != 2 || d.Analysis == nil {
		t.Fatalf("unexpected dashboard: %+v", d)
	}

	view = c.ResetFilters()
	if view.State.PSM != model.AllOption || len(c.Records()) != 6 {
		t.Fatalf("reset should restore full view: %+v", view.State)
	}
}

func TestController_UpdateRejectsBadMonth(t *testing.T) {
	t.Parallel()

	c := NewController(nil, nil, nil)
	c.Load(testDataset("ds-1"), SourceUpload)

	bad := "2024/02"
	psm := "P2"
	view, err := c.Update(FilterPatch{PSM: &psm, EndMonth: &bad})
	if err == nil {
		t.Fatalf("want error for malformed month")
	}
	if view.State.PSM != model.AllOption || view.State.EndMonth != "2024-02" {
		t.Fatalf("failed update must not change state: %+v", view.State)
	}

	view, err = c.SetDateRange("2024-02", "")
	if err != nil {
		t.Fatalf("set range: %v", err)
	}
	if view.State.StartMonth != "2024-02" || view.State.EndMonth != "" || len(c.Records()) != 3 {
		t.Fatalf("unexpected range state: %+v", view.State)
	}
}

func TestController_RestorePersistedState(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ds := testDataset("ds-1")
	if err := st.ReplaceDataset(ds); err != nil {
		t.Fatalf("persist dataset: %v", err)
	}

	first := NewController(st, nil, nil)
	first.Load(ds, SourceUpload)
	first.SetPSM("P2")
	first.SetEstate("M3")

	second := NewController(st, nil, nil)
	if err := second.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	state := second.Filters().State
	if state.PSM != "P2" || state.Estate != "M3" {
		t.Fatalf("filter state not restored: %+v", state)
	}
	if got := second.Status(); got.Source != SourceSnapshot || got.DatasetID != "ds-1" {
		t.Fatalf("unexpected status: %+v", got)
	}
	if id, err := st.GetLastDatasetID(); err != nil || id != "ds-1" {
		t.Fatalf("last dataset id = %q, %v", id, err)
	}
}

func TestController_LoadDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "default.xlsx")
	writeSampleWorkbook(t, path)

	st := openStore(t)
	coord := importer.NewCoordinator(st, importer.Settings{ExcludedEstates: []string{"SNKM"}, MappingHeaderOffset: 1}, nil)
	c := NewController(st, coord, nil)

	src, err := c.LoadDefault(context.Background(), path)
	if err != nil || src != SourceDefault {
		t.Fatalf("load default: %s %v", src, err)
	}
	if got := c.Status(); got.Records != 2 || got.SourceFile != "default.xlsx" {
		t.Fatalf("unexpected status: %+v", got)
	}

	// 默认工作簿不可用时回退到快照
	fallback := NewController(st, coord, nil)
	src, err = fallback.LoadDefault(context.Background(), filepath.Join(dir, "missing.xlsx"))
	if err != nil || src != SourceSnapshot {
		t.Fatalf("fallback: %s %v", src, err)
	}
	if fallback.Status().Records != 2 {
		t.Fatalf("snapshot not loaded")
	}
}

func TestController_LoadDefaultNoSource(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	coord := importer.NewCoordinator(st, importer.Settings{}, nil)
	c := NewController(st, coord, nil)

	_, err := c.LoadDefault(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"))
	if !errors.Is(err, ErrNoSource) {
		t.Fatalf("want ErrNoSource got %v", err)
	}
}

// writeSampleWorkbook 单厂两个月的最小工作簿
func writeSampleWorkbook(t *testing.T, path string) {
	t.Helper()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	sheets := map[string][][]interface{}{
		"OER Data Before HFC": {{"Estate Code", "LMM CPO", "Jan-24", "Feb-24"}, {"ABCM", "LMM", 20.0, 21.0}},
		"OER Data After HFC":  {{"Estate Code", "LMM CPO", "Jan-24", "Feb-24"}, {"ABCM", "LMM", 22.0, 23.0}},
		"Fruit Mix %":         {{"Estate Code", "Fruit Mix", "Jan-24", "Feb-24"}, {"ABCM", "Inti", 0.7, 0.6}},
	}
	order := []string{"OER Data Before HFC", "OER Data After HFC", "Fruit Mix %"}
	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range sheets[name] {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			values := row
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

func TestController_BackupAndRestore(t *testing.T) {
	t.Parallel()

	mgr, err := backup.NewManager(t.TempDir(), 5)
	if err != nil {
		t.Fatalf("backup manager: %v", err)
	}
	c := NewController(nil, nil, nil)
	if got := c.Backups(); len(got) != 0 {
		t.Fatalf("expected no backups before SetBackups, got %d", len(got))
	}
	c.SetBackups(mgr)

	c.Load(testDataset("ds-1"), SourceUpload)
	items := c.Backups()
	if len(items) != 1 || items[0].DatasetID != "ds-1" {
		t.Fatalf("unexpected backups: %+v", items)
	}

	other := testDataset("ds-2")
	other.Records = other.Records[:2]
	c.Load(other, SourceUpload)
	if c.Status().Records != 2 {
		t.Fatalf("expected second dataset loaded")
	}

	if err := c.RestoreBackup(items[0].ID); err != nil {
		t.Fatalf("restore backup: %v", err)
	}
	st := c.Status()
	if st.DatasetID != "ds-1" || st.Source != SourceBackup || st.Records != 6 {
		t.Fatalf("unexpected status after restore: %+v", st)
	}
	// 从备份恢复不再产生新的备份
	if got := len(c.Backups()); got != 2 {
		t.Fatalf("expected 2 backups, got %d", got)
	}
	if err := c.RestoreBackup("missing"); !errors.Is(err, backup.ErrNotFound) {
		t.Fatalf("want ErrNotFound got %v", err)
	}
}

func TestController_ExportSnapshotConsistent(t *testing.T) {
	t.Parallel()

	c := NewController(nil, nil, nil)
	if _, err := c.ExportSnapshot(); !errors.Is(err, ErrNoData) {
		t.Fatalf("want ErrNoData got %v", err)
	}
	c.Load(testDataset("ds-1"), SourceUpload)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			psm := "P1"
			if i%2 == 1 {
				psm = "P2"
			}
			c.SetPSM(psm)
		}
	}()

	for i := 0; i < 200; i++ {
		snap, err := c.ExportSnapshot()
		if err != nil {
			t.Fatalf("export snapshot: %v", err)
		}
		if snap.Dashboard.Records != len(snap.Records) {
			t.Fatalf("dashboard covers %d records, snapshot has %d", snap.Dashboard.Records, len(snap.Records))
		}
		for _, r := range snap.Records {
			if snap.Filter.PSM != model.AllOption && r.PSM.String() != snap.Filter.PSM {
				t.Fatalf("record %s (psm %s) does not match filter psm %s", r.Key(), r.PSM, snap.Filter.PSM)
			}
		}
	}
	wg.Wait()
}
