package v3

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"millscope/internal/calculator"
	"millscope/internal/config"
	"millscope/internal/importer"
	"millscope/internal/model"
	"millscope/internal/service/backup"
	"millscope/internal/service/dashboard"
	"millscope/internal/store"
)

func testRecord(estate, psm string, month int, after float64) *model.MergedRecord {
	return &model.MergedRecord{
		Estate: estate, Date: model.YearMonth{Year: 2024, Month: month}, Year: 2024, Month: month,
		PSM: model.NewLabel(psm), Region: model.NewLabel("North"), LMM: model.NewLabel("LMM"),
		OERBefore:   model.FloatPtr(after - 1),
		OERAfter:    model.FloatPtr(after),
		FruitInti:   model.FloatPtr(0.6),
		FruitPlasma: model.FloatPtr(0.3),
		Fruit3P:     model.FloatPtr(0.1),
	}
}

func testDataset() *model.Dataset {
	return &model.Dataset{
		ID:         "ds-1",
		SourceFile: "mills.xlsx",
		LoadedAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Records: []*model.MergedRecord{
			testRecord("M1", "P1", 1, 22),
			testRecord("M2", "P2", 1, 20),
			testRecord("M1", "P1", 2, 23.333),
			testRecord("M2", "P2", 2, 21),
		},
		Completeness: model.CompletenessReport{
			Incomplete:    []model.IncompleteMill{},
			OERComplete:   []string{"M1", "M2"},
			FruitComplete: []string{"M1", "M2"},
		},
	}
}

type testEnv struct {
	router     *gin.Engine
	controller *dashboard.Controller
}

func newTestEnv(t *testing.T, loaded bool) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(filepath.Join(t.TempDir(), "millscope.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.DefaultConfig()
	coordinator := importer.NewCoordinator(st, importer.Settings{
		ExcludedEstates:     cfg.Workbook.ExcludedEstates,
		MappingHeaderOffset: cfg.Workbook.MappingHeaderOffset,
	}, nil)
	controller := dashboard.NewController(st, coordinator, calculator.NewCalculator(calculator.DefaultOptions()))
	if loaded {
		controller.Load(testDataset(), dashboard.SourceUpload)
	}

	r := gin.New()
	NewHandler(st, cfg, controller, coordinator, Dirs{Uploads: t.TempDir(), Exports: t.TempDir()}).RegisterRoutes(r.Group("/api"))
	return testEnv{router: r, controller: controller}
}

func (e testEnv) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestStatusWithoutData(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status code=%d body=%s", w.Code, w.Body.String())
	}
	var resp StatusResponse
	decode(t, w, &resp)
	if resp.Loaded {
		t.Fatalf("expected not loaded")
	}

	w = env.do(t, http.MethodGet, "/api/dashboard", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("dashboard code=%d, want 404", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/completeness", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("completeness code=%d, want 404", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/records", nil)
	var records recordsResponse
	decode(t, w, &records)
	if records.Total != 0 || records.Items == nil {
		t.Fatalf("records = %+v, want empty list", records)
	}
}

func TestFiltersAndRecords(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/api/filters", nil)
	var view dashboard.FilterView
	decode(t, w, &view)
	if view.State.PSM != model.AllOption || view.State.StartMonth != "2024-01" || view.State.EndMonth != "2024-02" {
		t.Fatalf("initial state = %+v", view.State)
	}

	w = env.do(t, http.MethodPatch, "/api/filters", []byte(`{"psm":"P1"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("patch code=%d body=%s", w.Code, w.Body.String())
	}
	decode(t, w, &view)
	if view.State.PSM != "P1" {
		t.Fatalf("psm = %q, want P1", view.State.PSM)
	}

	w = env.do(t, http.MethodGet, "/api/records", nil)
	var records recordsResponse
	decode(t, w, &records)
	if records.Total != 2 {
		t.Fatalf("filtered records = %d, want 2", records.Total)
	}
	for _, r := range records.Items {
		if r.Estate != "M1" {
			t.Fatalf("unexpected estate %q", r.Estate)
		}
	}

	w = env.do(t, http.MethodGet, "/api/records?scope=all", nil)
	decode(t, w, &records)
	if records.Total != 4 {
		t.Fatalf("all records = %d, want 4", records.Total)
	}

	w = env.do(t, http.MethodPatch, "/api/filters", []byte(`{"startMonth":"bad"}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad month code=%d, want 400", w.Code)
	}
	if got := env.controller.Filters().State.PSM; got != "P1" {
		t.Fatalf("state changed after rejected patch: psm=%q", got)
	}

	w = env.do(t, http.MethodPost, "/api/filters/reset", nil)
	decode(t, w, &view)
	if view.State.PSM != model.AllOption {
		t.Fatalf("reset psm = %q", view.State.PSM)
	}
}

func TestDashboardRoundsIndicators(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/api/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard code=%d body=%s", w.Code, w.Body.String())
	}
	var dash calculator.Dashboard
	decode(t, w, &dash)
	if dash.Records != 4 {
		t.Fatalf("records = %d, want 4", dash.Records)
	}
	for _, g := range dash.Indicators {
		for _, ind := range g.Indicators {
			if ind.ID == "oer_after_max" {
				if ind.Value == nil || *ind.Value != 23.33 {
					t.Fatalf("max oer = %v, want 23.33", ind.Value)
				}
				return
			}
		}
	}
	t.Fatalf("oer_after_max indicator missing")
}

func TestExportAndDownload(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodPost, "/api/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export code=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("content type = %q", ct)
	}
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open exported workbook: %v", err)
	}
	_ = f.Close()

	w = env.do(t, http.MethodPost, "/api/export/stream", nil)
	body := w.Body.String()
	if !strings.Contains(body, `"type":"done"`) {
		t.Fatalf("stream missing done event: %s", body)
	}
	idx := strings.Index(body, "/api/export/download/")
	url := body[idx:]
	url = url[:strings.IndexByte(url, '"')]

	w = env.do(t, http.MethodGet, url, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download code=%d", w.Code)
	}
	w = env.do(t, http.MethodGet, url, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second download code=%d, want 404", w.Code)
	}
}

func TestImportLoadsDataset(t *testing.T) {
	env := newTestEnv(t, false)

	f := excelize.NewFile()
	sheets := map[string][][]interface{}{
		"OER Data Before HFC": {{"Estate Code", "LMM CPO", "Jan-24", "Feb-24"}, {"ABCM", "LMM", 20.0, 21.0}},
		"OER Data After HFC":  {{"Estate Code", "LMM CPO", "Jan-24", "Feb-24"}, {"ABCM", "LMM", 22.0, 23.0}},
		"Fruit Mix %":         {{"Estate Code", "Fruit Mix", "Jan-24", "Feb-24"}, {"ABCM", "Inti", 0.7, 0.6}},
	}
	for i, name := range []string{"OER Data Before HFC", "OER Data After HFC", "Fruit Mix %"} {
		if i == 0 {
			_ = f.SetSheetName("Sheet1", name)
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
	var xlsx bytes.Buffer
	if err := f.Write(&xlsx); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	_ = f.Close()

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("file", "mills.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write(xlsx.Bytes())
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), `"type":"done"`) {
		t.Fatalf("import stream missing done event: %s", w.Body.String())
	}

	st := env.controller.Status()
	if !st.Loaded || st.Source != dashboard.SourceUpload || st.SourceFile != "mills.xlsx" {
		t.Fatalf("status after import = %+v", st)
	}
	if st.Records != 2 {
		t.Fatalf("records = %d, want 2", st.Records)
	}

	w = env.do(t, http.MethodGet, "/api/months", nil)
	var months monthsResponse
	decode(t, w, &months)
	if len(months.Items) != 2 || months.Items[0].Month != 2 {
		t.Fatalf("months = %+v", months.Items)
	}
}

func TestImportRequiresFile(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/import", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code=%d, want 400", w.Code)
	}
}

func TestBackupsRoutes(t *testing.T) {
	env := newTestEnv(t, false)
	mgr, err := backup.NewManager(t.TempDir(), 3)
	if err != nil {
		t.Fatalf("backup manager: %v", err)
	}
	env.controller.SetBackups(mgr)
	env.controller.Load(testDataset(), dashboard.SourceUpload)

	w := env.do(t, http.MethodGet, "/api/backups", nil)
	var list struct {
		Items []backup.Summary `json:"items"`
	}
	decode(t, w, &list)
	if len(list.Items) != 1 {
		t.Fatalf("backups = %+v", list.Items)
	}

	w = env.do(t, http.MethodPost, "/api/backups/"+list.Items[0].ID+"/restore", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("restore code=%d body=%s", w.Code, w.Body.String())
	}
	var st dashboard.Status
	decode(t, w, &st)
	if st.Source != dashboard.SourceBackup || st.Records != 4 {
		t.Fatalf("status after restore = %+v", st)
	}

	w = env.do(t, http.MethodPost, "/api/backups/nope/restore", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing backup code=%d, want 404", w.Code)
	}
}

func TestExportStreamWithoutData(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/export/stream", nil)
	body := w.Body.String()
	if !strings.Contains(body, `"type":"error"`) || strings.Contains(body, `"type":"start"`) {
		t.Fatalf("stream without data should only report an error: %s", body)
	}

	w = env.do(t, http.MethodPost, "/api/export", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("export without data code=%d, want 404", w.Code)
	}
}
