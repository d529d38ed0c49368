package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/okofler/jobpilot/internal/catalog"
	"github.com/okofler/jobpilot/internal/llm"
	"github.com/okofler/jobpilot/internal/recommend"
	"github.com/okofler/jobpilot/internal/storage"
)

const testToken = "test-token-12345"

type stubProvider struct {
	key     string
	records []map[string]any
}

func (p *stubProvider) Key() string { return p.key }

func (p *stubProvider) Fetch(context.Context) ([]map[string]any, error) {
	return p.records, nil
}

func testCatalogRecords() []map[string]any {
	return []map[string]any{
		{
			"id":          "wf-datev",
			"name":        "DATEV Rechnungsverarbeitung",
			"description": "Eingangsrechnungen automatisch kontieren und verbuchen",
			"nodes":       []any{"DATEV", "Email"},
			"triggerType": "webhook",
			"active":      true,
		},
		{
			"id":          "wf-news",
			"name":        "Newsletter scheduler",
			"description": "Sends marketing newsletters on a daily schedule",
			"nodes":       []any{"Mailchimp"},
			"active":      true,
		},
	}
}

func setupHandler(t *testing.T, token string) (http.Handler, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cache := catalog.New("v1", store, []catalog.Provider{
		&stubProvider{key: "community", records: testCatalogRecords()},
	}, zap.NewNop())

	advisor := recommend.New(cache, llm.NewPlanner(nil, nil), store, zap.NewNop())

	handler := NewHandler(AppDeps{
		Advisor: advisor,
		Catalog: cache,
		Store:   store,
		Token:   token,
		Logger:  zap.NewNop(),
	})
	return handler, store
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestHealthUnauthenticated(t *testing.T) {
	handler, _ := setupHandler(t, testToken)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestBearerAuthRejectsBadToken(t *testing.T) {
	handler, _ := setupHandler(t, testToken)

	for _, token := range []string{"", "wrong-token"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authReq(http.MethodGet, "/catalog/sources", "", token))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, rec.Code)
		}
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	handler, _ := setupHandler(t, testToken)

	body := `{"jobTitle":"Buchhalter","text":"AUFGABEN:\n- Rechnungen kontieren und verbuchen in DATEV\n- Erstellung monatlicher Reports in Excel\n- Pflege der Stammdaten im System\n\nANFORDERUNGEN:\n- Ausbildung"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authReq(http.MethodPost, "/analyze", body, testToken))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var analysis recommend.Analysis
	if err := json.Unmarshal(rec.Body.Bytes(), &analysis); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if analysis.ID == "" || analysis.Summary.TaskCount == 0 {
		t.Fatalf("unexpected analysis: %+v", analysis.Summary)
	}

	// The run must be retrievable through the audit endpoints.
	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, authReq(http.MethodGet, "/analyses", "", testToken))
	if listRec.Code != http.StatusOK {
		t.Fatalf("list status = %d", listRec.Code)
	}
	var summaries []analysisSummary
	if err := json.Unmarshal(listRec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != analysis.ID {
		t.Fatalf("summaries = %+v", summaries)
	}

	getRec := httptest.NewRecorder()
	handler.ServeHTTP(getRec, authReq(http.MethodGet, "/analyses/"+analysis.ID, "", testToken))
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status = %d", getRec.Code)
	}
	var replay recommend.Analysis
	if err := json.Unmarshal(getRec.Body.Bytes(), &replay); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if replay.ID != analysis.ID {
		t.Errorf("payload id = %s", replay.ID)
	}
}

func TestAnalyzeRequiresText(t *testing.T) {
	handler, _ := setupHandler(t, testToken)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authReq(http.MethodPost, "/analyze", `{"jobTitle":"x"}`, testToken))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeRejectsBadPDF(t *testing.T) {
	handler, _ := setupHandler(t, testToken)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authReq(http.MethodPost, "/analyze", `{"pdfBase64":"not-base64!!!"}`, testToken))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCatalogSources(t *testing.T) {
	handler, _ := setupHandler(t, testToken)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authReq(http.MethodGet, "/catalog/sources", "", testToken))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Sources []string `json:"sources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(resp.Sources) != 2 || resp.Sources[0] != catalog.SourceAll || resp.Sources[1] != "community" {
		t.Fatalf("sources = %v", resp.Sources)
	}
}

func TestCatalogRefreshAndSearch(t *testing.T) {
	handler, _ := setupHandler(t, testToken)

	refreshRec := httptest.NewRecorder()
	handler.ServeHTTP(refreshRec, authReq(http.MethodPost, "/catalog/refresh", "", testToken))
	if refreshRec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", refreshRec.Code)
	}
	var refresh struct {
		Results []catalog.RefreshResult `json:"results"`
	}
	if err := json.Unmarshal(refreshRec.Body.Bytes(), &refresh); err != nil {
		t.Fatalf("decoding refresh: %v", err)
	}
	if len(refresh.Results) != 1 || !refresh.Results[0].Success || refresh.Results[0].Count != 2 {
		t.Fatalf("refresh results = %+v", refresh.Results)
	}

	searchRec := httptest.NewRecorder()
	handler.ServeHTTP(searchRec, authReq(http.MethodGet, "/catalog/artifacts?q=rechnung", "", testToken))
	if searchRec.Code != http.StatusOK {
		t.Fatalf("search status = %d", searchRec.Code)
	}
	var result catalog.SearchResult
	if err := json.Unmarshal(searchRec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding search: %v", err)
	}
	if result.Total != 1 || result.Artifacts[0].ID != "wf-datev" {
		t.Fatalf("search result = %+v", result)
	}
}

func TestCatalogArtifactsRejectsBadActiveFlag(t *testing.T) {
	handler, _ := setupHandler(t, testToken)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authReq(http.MethodGet, "/catalog/artifacts?active=maybe", "", testToken))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	handler, _ := setupHandler(t, testToken)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authReq(http.MethodGet, "/analyses/nope", "", testToken))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAuthDisabledWithoutToken(t *testing.T) {
	handler, _ := setupHandler(t, "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authReq(http.MethodGet, "/catalog/sources", "", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with auth disabled", rec.Code)
	}
}
