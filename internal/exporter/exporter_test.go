package exporter

import (
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"millscope/internal/calculator"
	"millscope/internal/model"
)

func sampleRecords() []*model.MergedRecord {
	rec := func(estate string, month int, after, inti float64) *model.MergedRecord {
		return &model.MergedRecord{
			Estate:      estate,
			Date:        model.YearMonth{Year: 2024, Month: month},
			Year:        2024,
			Month:       month,
			PSM:         model.NewLabel("PSM 1"),
			Region:      model.NewLabel("North"),
			OERBefore:   model.FloatPtr(after - 1),
			OERAfter:    model.FloatPtr(after),
			FruitInti:   model.FloatPtr(inti),
			FruitPlasma: model.FloatPtr(0.2),
			Fruit3P:     model.FloatPtr(0.8 - inti),
		}
	}
	return []*model.MergedRecord{
		rec("ABCM", 1, 22.5, 0.6),
		rec("DEFM", 1, 20, 0.3),
		rec("ABCM", 2, 23.5, 0.5),
		rec("DEFM", 2, 21, 0.4),
	}
}

func sampleDashboard(records []*model.MergedRecord) calculator.Dashboard {
	report := model.CompletenessReport{
		OERComplete:   []string{"ABCM", "DEFM"},
		FruitComplete: []string{"ABCM", "DEFM"},
		Incomplete: []model.IncompleteMill{
			{Estate: "GHIM", Missing: []string{"OER Before HFC"}},
		},
	}
	calc := calculator.NewCalculator(calculator.DefaultOptions())
	return calc.Dashboard(records, records, report)
}

func TestWriteSnapshotSheets(t *testing.T) {
	t.Parallel()

	records := sampleRecords()
	var events []ProgressEvent
	snap := Snapshot{Filter: model.DefaultFilterState(), Dashboard: sampleDashboard(records), Records: records}
	f, err := WriteSnapshot(snap, ExportOptions{
		Progress: func(e ProgressEvent) { events = append(events, e) },
	})
	if err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	defer f.Close()

	want := []string{SheetSummary, SheetOverview, SheetRanking, SheetPerformance, SheetCompleteness, SheetRecords}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sheet[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if len(events) == 0 || events[len(events)-1].Percent != 100 || events[len(events)-1].Stage != StageDone {
		t.Fatalf("progress events = %+v, want final 100", events)
	}
	var sheetEvents []string
	for _, e := range events {
		if e.Stage == StageSheet {
			sheetEvents = append(sheetEvents, e.Sheet)
		}
	}
	if len(sheetEvents) != len(want) {
		t.Fatalf("sheet events = %v, want %v", sheetEvents, want)
	}
	for i := range want {
		if sheetEvents[i] != want[i] {
			t.Fatalf("sheet event[%d] = %q, want %q", i, sheetEvents[i], want[i])
		}
	}
	for i := 1; i < len(events); i++ {
		if events[i].Percent < events[i-1].Percent {
			t.Fatalf("progress not monotonic: %+v", events)
		}
	}

	rows, err := f.GetRows(SheetRecords)
	if err != nil {
		t.Fatalf("GetRows(Records) error = %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("records rows = %d, want 5", len(rows))
	}
	if rows[1][0] != "ABCM" || rows[1][1] != "2024-01-01" {
		t.Fatalf("first record row = %v", rows[1])
	}
	if rows[1][7] != "60" {
		t.Fatalf("inti pct = %q, want 60", rows[1][7])
	}

	if v, _ := f.GetCellValue(SheetOverview, "A2"); v != "ABCM" {
		t.Fatalf("overview A2 = %q, want ABCM", v)
	}
	if v, _ := f.GetCellValue(SheetOverview, "E2"); v != "23" {
		t.Fatalf("overview E2 = %q, want 23", v)
	}
	if v, _ := f.GetCellValue(SheetRanking, "B2"); v != "ABCM" {
		t.Fatalf("ranking B2 = %q, want ABCM", v)
	}
	if v, _ := f.GetCellValue(SheetCompleteness, "B2"); v != "OER Before HFC" {
		t.Fatalf("completeness B2 = %q", v)
	}
}

func TestWriteSnapshotEmptyAnalysis(t *testing.T) {
	t.Parallel()

	f, err := WriteSnapshot(Snapshot{}, ExportOptions{})
	if err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	defer f.Close()

	v, err := f.GetCellValue(SheetPerformance, "A1")
	if err != nil {
		t.Fatalf("GetCellValue error = %v", err)
	}
	if v == "" {
		t.Fatalf("expected placeholder text on empty performance sheet")
	}
}

type fakeSource struct {
	snap  Snapshot
	err   error
	calls int
}

func (s *fakeSource) ExportSnapshot() (Snapshot, error) {
	s.calls++
	return s.snap, s.err
}

func TestExporterPropagatesSourceError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("no data")
	_, err := NewExporter(&fakeSource{err: wantErr}).Export(ExportOptions{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Export() error = %v, want %v", err, wantErr)
	}
}

func TestExporterRoundTrip(t *testing.T) {
	t.Parallel()

	records := sampleRecords()
	src := &fakeSource{snap: Snapshot{Filter: model.DefaultFilterState(), Dashboard: sampleDashboard(records), Records: records}}
	var first ProgressEvent
	f, err := NewExporter(src).Export(ExportOptions{Progress: func(e ProgressEvent) {
		if first.Stage == "" {
			first = e
		}
	}})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("snapshot taken %d times, want 1", src.calls)
	}
	if first.Stage != StageSnapshot {
		t.Fatalf("first progress stage = %q, want %q", first.Stage, StageSnapshot)
	}
	path := t.TempDir() + "/export.xlsx"
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs error = %v", err)
	}
	_ = f.Close()

	reopened, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile error = %v", err)
	}
	defer reopened.Close()
	if v, _ := reopened.GetCellValue(SheetSummary, "A2"); v != "PSM" {
		t.Fatalf("summary A2 = %q, want PSM", v)
	}
}

func TestRoundHalfUp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in     float64
		digits int
		want   float64
	}{
		{2.5, 0, 3},
		{-2.5, 0, -3},
		{2.344, 2, 2.34},
		{1.125, 2, 1.13},
	}
	for _, tc := range cases {
		if got := roundHalfUp(tc.in, tc.digits); got != tc.want {
			t.Errorf("roundHalfUp(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestReportProgressClamps(t *testing.T) {
	t.Parallel()

	var got []int
	progress := func(e ProgressEvent) { got = append(got, e.Percent) }
	reportProgress(progress, ProgressEvent{Percent: -5})
	reportProgress(progress, ProgressEvent{Percent: 150})
	reportProgress(nil, ProgressEvent{Percent: 50})
	if len(got) != 2 || got[0] != 0 || got[1] != 100 {
		t.Fatalf("clamped percents = %v, want [0 100]", got)
	}
}
