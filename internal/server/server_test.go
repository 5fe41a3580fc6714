package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/isq-cli/internal/audit"
	"github.com/sells-group/isq-cli/internal/extract"
	"github.com/sells-group/isq-cli/internal/model"
	"github.com/sells-group/isq-cli/internal/store"
	"github.com/sells-group/isq-cli/internal/workflow"
)

type stubExtractor struct {
	out *extract.Output
}

func (s stubExtractor) Extract(_ context.Context, _ string, _ []string) (*extract.Output, error) {
	return s.out, nil
}

var sheetExtraction = model.ExtractionResult{
	Config: model.SpecEntry{Name: "Grade", Options: []string{"304", "316"}},
	Keys:   []model.SpecEntry{{Name: "Thickness", Options: []string{"1mm", "2mm"}}},
	Buyers: []model.SpecEntry{},
}

const uploadJSON = `{
	"mcat_name": "Stainless Steel Sheet",
	"specifications": [
		{"name": "Grade", "options": ["SS304", "SS316", "SS202"], "tier": "Primary"},
		{"name": "Thickness", "options": ["1 mm", "2 mm", "1mm"], "tier": "Secondary"}
	],
	"urls": ["https://a.test/sheet"]
}`

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "isq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	ex := stubExtractor{out: &extract.Output{
		Result: sheetExtraction,
		Pages:  []model.FetchedPage{{URL: "https://a.test/sheet", Text: "grade 304"}},
	}}
	svc := workflow.New(st, audit.NewChecker(nil), ex)

	srv := New(context.Background(), svc, Config{CORSOrigins: []string{"https://ui.test"}})
	srv.now = func() time.Time { return time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC) }
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createRun(t *testing.T, ts *httptest.Server) model.Run {
	t.Helper()
	resp := postJSON(t, ts.URL+"/api/runs", uploadJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[model.Run](t, resp)
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)

	resp := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody[map[string]string](t, resp)["status"])
}

func TestReconcileEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	body := `{
		"specifications": [{"name": "Grade", "options": ["SS304", "SS316", "SS202"], "tier": "Primary"}],
		"extraction": {"config": {"name": "Grade", "options": ["304", "316"]}, "keys": [], "buyers": []}
	}`
	resp := postJSON(t, ts.URL+"/api/reconcile", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody[reconcileResponse](t, resp)
	require.Len(t, got.CommonSpecs, 1)
	assert.Equal(t, []string{"SS304", "SS316"}, got.CommonSpecs[0].CommonOptions)
	require.Len(t, got.BuyerISQs, 1)
	assert.Equal(t, "Grade", got.BuyerISQs[0].Name)
}

func TestReconcileEndpoint_EmptyExtraction(t *testing.T) {
	_, ts := newTestServer(t)

	body := `{"specifications": [{"name": "Grade", "options": ["304"]}], "extraction": {"config": {"name": "", "options": []}}}`
	resp := postJSON(t, ts.URL+"/api/reconcile", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody[reconcileResponse](t, resp)
	assert.Empty(t, got.CommonSpecs)
	assert.Empty(t, got.BuyerISQs)
}

func TestCompareEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	body := `{"left": [{"name": "Grade", "options": ["SS304", "SS410"]}], "right": [{"name": "Grade", "options": ["304", "316"]}]}`
	resp := postJSON(t, ts.URL+"/api/compare", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody[model.Comparison](t, resp)
	require.Len(t, got.Common, 1)
	assert.Equal(t, []string{"SS410"}, got.Common[0].SourceOnly)
}

func TestBadRequestBody(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/compare", `{"left":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/runs", `{"specifications": []}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunLifecycle(t *testing.T) {
	_, ts := newTestServer(t)

	run := createRun(t, ts)
	assert.Equal(t, model.RunStatusAudited, run.Status)
	require.NotNil(t, run.Result)
	require.Len(t, run.Result.Audit, 2)
	assert.Equal(t, model.AuditIncorrect, run.Result.Audit[1].Status)

	resp := postJSON(t, ts.URL+"/api/runs/"+run.ID+"/extract?wait=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	done := decodeBody[model.Run](t, resp)
	assert.Equal(t, model.RunStatusComplete, done.Status)
	assert.Equal(t, 1, done.Result.PagesUsed)
	require.NotEmpty(t, done.Result.CommonSpecs)

	resp = get(t, ts.URL+"/api/runs/"+run.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"https://a.test/sheet"}, decodeBody[model.Run](t, resp).URLs)

	resp = get(t, ts.URL+"/api/runs?status=complete")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody[[]model.Run](t, resp), 1)

	resp = postJSON(t, ts.URL+"/api/runs/"+run.ID+"/reconcile", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExtract_Background(t *testing.T) {
	srv, ts := newTestServer(t)

	run := createRun(t, ts)
	resp := postJSON(t, ts.URL+"/api/runs/"+run.ID+"/rerun", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, run.ID, decodeBody[acceptedResponse](t, resp).RunID)

	srv.Wait()
	resp = get(t, ts.URL+"/api/runs/"+run.ID)
	assert.Equal(t, model.RunStatusComplete, decodeBody[model.Run](t, resp).Status)
}

func TestReconcileRun_NotExtracted(t *testing.T) {
	_, ts := newTestServer(t)

	run := createRun(t, ts)
	resp := postJSON(t, ts.URL+"/api/runs/"+run.ID+"/reconcile", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateRun_MalformedURLs(t *testing.T) {
	_, ts := newTestServer(t)

	body := `{"mcat_name": "SS Pipe", "specifications": [{"name": "Grade", "options": ["304"]}], "urls": "https://a.test"}`
	resp := postJSON(t, ts.URL+"/api/runs", body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeBody[map[string]string](t, resp)["error"], "urls")

	resp = get(t, ts.URL+"/api/runs")
	assert.Empty(t, decodeBody[[]model.Run](t, resp))
}

func TestMultipartUpload(t *testing.T) {
	_, ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "specs.yaml")
	require.NoError(t, err)
	_, err = io.WriteString(fw, "specifications:\n  - name: Grade\n    options: [304, 316]\n")
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("mcat_name", "SS Pipe"))
	require.NoError(t, mw.WriteField("urls", "https://a.test\nhttps://b.test"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/runs", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	run := decodeBody[model.Run](t, resp)
	assert.Equal(t, "SS Pipe", run.Input.MCATName)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, run.URLs)
}

func TestExportXLSX(t *testing.T) {
	_, ts := newTestServer(t)

	run := createRun(t, ts)
	resp := get(t, ts.URL+"/api/runs/"+run.ID+"/export.xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Stainless_Steel_Sheet_Complete_2026-03-14.xlsx")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	assert.Equal(t, "Audit", f.Sheets[0].Name)

	resp = get(t, ts.URL+"/api/runs/"+run.ID+"/export.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, run.ID, decodeBody[map[string]any](t, resp)["run_id"])
}

func TestNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/api/runs/missing", "/api/runs/missing/export.xlsx"} {
		resp := get(t, ts.URL+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
	resp := postJSON(t, ts.URL+"/api/runs/missing/extract", `{"urls": ["https://a.test"]}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRuns_InvalidLimit(t *testing.T) {
	_, ts := newTestServer(t)

	resp := get(t, ts.URL+"/api/runs?limit=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/runs", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://ui.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "https://ui.test", resp.Header.Get("Access-Control-Allow-Origin"))
}
