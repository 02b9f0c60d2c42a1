package portfolios

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	localstore "portfolio-backend/internal/shared/storage/object/local"
	"portfolio-backend/internal/workflow"
)

func newTestRouter(t *testing.T, env workflow.Envelope, userID string) (*gin.Engine, *MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewMemoryRepo()
	store := localstore.New(t.TempDir())
	svc := &Service{
		Repo:     repo,
		Store:    store,
		Workflow: &stubRunner{env: env},
	}
	handler := NewHandler(svc, repo, store)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("userId", userID)
		}
		c.Next()
	})
	api := r.Group("/api/v1")
	handler.RegisterRoutes(api)
	return r, repo
}

func successEnvelope(html string) workflow.Envelope {
	return workflow.Envelope{
		StatusCode: 200,
		JSON: map[string]any{
			"data": map[string]any{
				"outputs": map[string]any{"output": html},
			},
		},
	}
}

func TestGenerateEndpointReturnsDocument(t *testing.T) {
	html := "<html><body>Ada</body></html>"
	r, _ := newTestRouter(t, successEnvelope(html), "guest:g1")

	body := `{"fullName":"Ada Lovelace","jobTitle":"Engineer"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolios/generate", strings.NewReader(body))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.HTML != html {
		t.Fatalf("expected html in response, got %q", payload.HTML)
	}
	if payload.PortfolioID == "" {
		t.Fatalf("expected portfolioId to be set")
	}
}

func TestGenerateEndpointRequiresIdentity(t *testing.T) {
	r, _ := newTestRouter(t, successEnvelope("<html></html>"), "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolios/generate", strings.NewReader(`{"fullName":"Ada"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestGenerateEndpointRejectsInvalidJSON(t *testing.T) {
	r, _ := newTestRouter(t, successEnvelope("<html></html>"), "guest:g1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolios/generate", strings.NewReader(`{"fullName":`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGenerateEndpointNoHTMLFound(t *testing.T) {
	r, _ := newTestRouter(t, workflow.Envelope{
		StatusCode: 200,
		JSON:       map[string]any{"data": map[string]any{"outputs": map[string]any{"output": "just words"}}},
	}, "guest:g1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolios/generate", strings.NewReader(`{"fullName":"Ada"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "no_html_found") {
		t.Fatalf("expected no_html_found code, got %s", resp.Body.String())
	}
}

func TestGenerateEndpointWorkflowTimeout(t *testing.T) {
	r, _ := newTestRouter(t, workflow.Envelope{
		StatusCode: 408,
		JSON:       map[string]any{"error": "request_timeout"},
	}, "guest:g1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolios/generate", strings.NewReader(`{"fullName":"Ada"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", resp.Code)
	}
}

func TestGenerateEndpointWorkflowUnreachable(t *testing.T) {
	r, _ := newTestRouter(t, workflow.Envelope{
		StatusCode: 0,
		JSON:       map[string]any{"error": "request_error"},
	}, "guest:g1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolios/generate", strings.NewReader(`{"fullName":"Ada"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "workflow_unreachable") {
		t.Fatalf("expected workflow_unreachable code, got %s", resp.Body.String())
	}
}

func TestListEndpointReturnsOwnPortfoliosOnly(t *testing.T) {
	r, repo := newTestRouter(t, successEnvelope("<html></html>"), "guest:g1")

	seed := []Portfolio{
		{ID: "p1", UserID: "guest:g1", StorageKey: "k1", MimeType: "text/html; charset=utf-8"},
		{ID: "p2", UserID: "guest:other", StorageKey: "k2", MimeType: "text/html; charset=utf-8"},
	}
	for _, p := range seed {
		if err := repo.Create(context.Background(), p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolios", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var out []PortfolioResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 1 || out[0].PortfolioID != "p1" {
		t.Fatalf("expected only own portfolio, got %+v", out)
	}
}

func TestGetEndpointNotFound(t *testing.T) {
	r, _ := newTestRouter(t, successEnvelope("<html></html>"), "guest:g1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolios/missing", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestGetEndpointRejectsForeignPortfolio(t *testing.T) {
	r, repo := newTestRouter(t, successEnvelope("<html></html>"), "guest:g1")
	if err := repo.Create(context.Background(), Portfolio{ID: "p1", UserID: "guest:other", StorageKey: "k1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolios/p1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestPreviewAndDownloadServeStoredDocument(t *testing.T) {
	html := "<html><body>doc</body></html>"
	r, _ := newTestRouter(t, successEnvelope(html), "guest:g1")

	genReq := httptest.NewRequest(http.MethodPost, "/api/v1/portfolios/generate", strings.NewReader(`{"fullName":"Ada"}`))
	genResp := httptest.NewRecorder()
	r.ServeHTTP(genResp, genReq)
	if genResp.Code != http.StatusCreated {
		t.Fatalf("generate: expected 201, got %d", genResp.Code)
	}
	var created GenerateResponse
	if err := json.NewDecoder(genResp.Body).Decode(&created); err != nil {
		t.Fatalf("decode generate response: %v", err)
	}

	prevReq := httptest.NewRequest(http.MethodGet, "/api/v1/portfolios/"+created.PortfolioID+"/preview", nil)
	prevResp := httptest.NewRecorder()
	r.ServeHTTP(prevResp, prevReq)
	if prevResp.Code != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d", prevResp.Code)
	}
	if got := prevResp.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Fatalf("preview: expected html content type, got %q", got)
	}
	if prevResp.Header().Get("Content-Disposition") != "" {
		t.Fatalf("preview: expected inline rendering without disposition")
	}
	if prevResp.Body.String() != html {
		t.Fatalf("preview: body mismatch: %q", prevResp.Body.String())
	}

	dlReq := httptest.NewRequest(http.MethodGet, "/api/v1/portfolios/"+created.PortfolioID+"/download", nil)
	dlResp := httptest.NewRecorder()
	r.ServeHTTP(dlResp, dlReq)
	if dlResp.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d", dlResp.Code)
	}
	if got := dlResp.Header().Get("Content-Disposition"); !strings.Contains(got, "attachment") {
		t.Fatalf("download: expected attachment disposition, got %q", got)
	}
	if dlResp.Body.String() != html {
		t.Fatalf("download: body mismatch: %q", dlResp.Body.String())
	}
}
