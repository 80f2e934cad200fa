package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/dailybelle/sizeadvisor/config"
	"github.com/dailybelle/sizeadvisor/internal/domain"
	"github.com/dailybelle/sizeadvisor/internal/usecase"
	"github.com/gin-gonic/gin"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"https://kiosk-*", "http://localhost:3000"},
		},
	}
}

// setupTestRouter creates a router whose API routes have no use case behind them
func setupTestRouter() *gin.Engine {
	return SetupRouter(testConfig(), NewHandler(nil, nil), nil)
}

// --- Fakes for the real services ---

type fakeProvider struct {
	records  []domain.ScanRecord
	listErr  error
	users    map[string]*domain.UserProfile
	payloads map[string]domain.MeasurementPayload
}

func (f *fakeProvider) ListScanRecords(ctx context.Context, limit, offset int) ([]domain.ScanRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records, nil
}

func (f *fakeProvider) GetUser(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, &domain.StatusError{Endpoint: "/users/" + userID, StatusCode: http.StatusNotFound}
}

func (f *fakeProvider) GetMeasurements(ctx context.Context, scanID string, pose domain.Pose) (domain.MeasurementPayload, error) {
	if p, ok := f.payloads[scanID+"/"+string(pose)]; ok {
		return p, nil
	}
	return domain.MeasurementPayload{}, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (f *fakeAudit) Append(ctx context.Context, entry *domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.AuditEntry{}
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.entries[i])
	}
	return out, nil
}

func testProvider() *fakeProvider {
	return &fakeProvider{
		records: []domain.ScanRecord{
			{UserID: "u-1", ScanID: "s-1", TagList: []string{"Oval", "下垂"}},
		},
		users: map[string]*domain.UserProfile{
			"u-1": {UserID: "u-1", Username: "26020865", Nickname: "小美"},
		},
		payloads: map[string]domain.MeasurementPayload{
			"s-1/I": {"Chest Circumference": domain.ParseMeasurementValue(82.5)},
		},
	}
}

func testCatalog() *domain.Catalog {
	return &domain.Catalog{
		Sizes: []domain.SizeIntervalRow{
			{UpperMin: 80, UpperMax: 85, LowerMin: 62, LowerMax: 68, GroupID: "G1", SizeLabel: "70B"},
		},
		Products: []domain.ProductMappingRow{
			{GroupID: "G1", ProductCode: "P1"},
			{GroupID: "G1", ProductCode: "P2"},
		},
		Attributes: []domain.AttributeProductRow{
			{Attribute: "外擴", ProductCode: "P2"},
		},
		ProductURLs: map[string]string{"P1": "https://shop.example.com/p1"},
	}
}

// setupTestRouterWithService wires the real recommendation service over fakes
func setupTestRouterWithService(t *testing.T, provider *fakeProvider, audit *fakeAudit) *gin.Engine {
	t.Helper()

	preprocessor, err := usecase.NewQueryPreprocessor(usecase.MatchContains)
	if err != nil {
		t.Fatalf("NewQueryPreprocessor() error = %v", err)
	}
	classifier, err := usecase.NewClassifier(usecase.ClassifierKeyword, nil)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	measurements := usecase.NewMeasurementService(provider, preprocessor, classifier,
		usecase.NewNormalizer(usecase.DefaultMeasurementDefaults()), usecase.MeasurementServiceConfig{}, nil)
	matcher := usecase.NewMatchingService(testCatalog(), usecase.MatchConfig{}, nil)
	service := usecase.NewRecommendationService(matcher, measurements, nil, audit, usecase.RecommendationServiceConfig{}, nil)

	return SetupRouter(testConfig(), NewHandler(service, nil), nil)
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body %s)", err, w.Body.String())
	}
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter()

		w := doJSON(router, "GET", "/health", "")

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		decodeBody(t, w, &response)

		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "sizeadvisor" {
			t.Errorf("service = %v, want sizeadvisor", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			w := doJSON(router, method, "/health", "")
			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestUnconfiguredService(t *testing.T) {
	router := setupTestRouter()

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{"GET", "/api/v1/scans/26020865", ""},
		{"POST", "/api/v1/recommendations", `{"upperBust":82,"lowerBust":65}`},
		{"POST", "/api/v1/recommendations/scan", `{"keyword":"26020865"}`},
		{"GET", "/api/v1/audit", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := doJSON(router, tt.method, tt.path, tt.body)

			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
			}
			var response map[string]interface{}
			decodeBody(t, w, &response)
			if msg, _ := response["error"].(string); !strings.Contains(msg, "not configured") {
				t.Errorf("error = %q, want to contain 'not configured'", msg)
			}
		})
	}
}

func TestRecommendEndpoint(t *testing.T) {
	t.Run("matches manual readings", func(t *testing.T) {
		audit := &fakeAudit{}
		router := setupTestRouterWithService(t, testProvider(), audit)

		w := doJSON(router, "POST", "/api/v1/recommendations",
			`{"name":"Amy","upperBust":82,"lowerBust":65,"attribute":"外擴"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}

		var result domain.RecommendationResult
		decodeBody(t, w, &result)

		if result.Set.Outcome != domain.OutcomeMatched {
			t.Errorf("Outcome = %s, want matched", result.Set.Outcome)
		}
		if len(result.Set.Recommendations) != 1 {
			t.Fatalf("Recommendations = %d, want 1", len(result.Set.Recommendations))
		}
		if got := result.Set.Recommendations[0].ProductCodes; len(got) != 1 || got[0] != "P2" {
			t.Errorf("ProductCodes = %v, want [P2]", got)
		}
		if !strings.Contains(result.Report, "親愛的 Amy 您好") {
			t.Errorf("Report missing greeting: %s", result.Report)
		}
		if !result.AuditLogged || len(audit.entries) != 1 {
			t.Errorf("AuditLogged = %v, entries = %d, want one audit row", result.AuditLogged, len(audit.entries))
		}
		if result.EmailSent {
			t.Error("EmailSent = true without a notifier")
		}
	})

	t.Run("reports no size match as a business outcome", func(t *testing.T) {
		router := setupTestRouterWithService(t, testProvider(), &fakeAudit{})

		w := doJSON(router, "POST", "/api/v1/recommendations", `{"upperBust":120,"lowerBust":65}`)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		var result domain.RecommendationResult
		decodeBody(t, w, &result)
		if result.Set.Outcome != domain.OutcomeNoSizeMatch {
			t.Errorf("Outcome = %s, want no_size_match", result.Set.Outcome)
		}
	})

	t.Run("rejects invalid body", func(t *testing.T) {
		router := setupTestRouterWithService(t, testProvider(), &fakeAudit{})

		for _, body := range []string{`{"upperBust":`, `{"lowerBust":65}`, `{"upperBust":-1,"lowerBust":65}`} {
			w := doJSON(router, "POST", "/api/v1/recommendations", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("body %s: Status = %d, want %d", body, w.Code, http.StatusBadRequest)
			}
		}
	})
}

func TestScanEndpoints(t *testing.T) {
	t.Run("looks up a scan by account keyword", func(t *testing.T) {
		router := setupTestRouterWithService(t, testProvider(), &fakeAudit{})

		w := doJSON(router, "GET", "/api/v1/scans/26020865", "")

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}
		var m domain.ResolvedMeasurement
		decodeBody(t, w, &m)
		if m.UpperBust != 82.5 || m.LowerBust != 65 {
			t.Errorf("readings = %v/%v, want 82.5/65", m.UpperBust, m.LowerBust)
		}
		if m.DetectedAttribute != "下垂" {
			t.Errorf("DetectedAttribute = %s, want 下垂", m.DetectedAttribute)
		}
		if !m.Degraded {
			t.Error("Degraded = false, want true for defaulted readings")
		}
	})

	t.Run("unknown keyword is 404", func(t *testing.T) {
		router := setupTestRouterWithService(t, testProvider(), &fakeAudit{})

		w := doJSON(router, "GET", "/api/v1/scans/99999999", "")

		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("provider outage is 502", func(t *testing.T) {
		provider := testProvider()
		provider.listErr = &domain.ConnectivityError{Endpoint: "/records", StatusCode: http.StatusServiceUnavailable}
		router := setupTestRouterWithService(t, provider, &fakeAudit{})

		w := doJSON(router, "GET", "/api/v1/scans/26020865", "")

		if w.Code != http.StatusBadGateway {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadGateway)
		}
	})

	t.Run("recommends from the resolved scan", func(t *testing.T) {
		router := setupTestRouterWithService(t, testProvider(), &fakeAudit{})

		w := doJSON(router, "POST", "/api/v1/recommendations/scan", `{"keyword":"26020865"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}
		var result domain.RecommendationResult
		decodeBody(t, w, &result)
		if result.Measurement == nil || result.Measurement.DisplayName != "小美" {
			t.Errorf("Measurement = %+v, want display name 小美", result.Measurement)
		}
		if result.Set.Attribute != "下垂" {
			t.Errorf("Attribute = %s, want 下垂", result.Set.Attribute)
		}
		if got := result.Set.Recommendations[0].ProductCodes; len(got) != 2 {
			t.Errorf("ProductCodes = %v, want [P1 P2]", got)
		}
	})

	t.Run("missing keyword is 400", func(t *testing.T) {
		router := setupTestRouterWithService(t, testProvider(), &fakeAudit{})

		w := doJSON(router, "POST", "/api/v1/recommendations/scan", `{}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestAuditEndpoint(t *testing.T) {
	audit := &fakeAudit{}
	router := setupTestRouterWithService(t, testProvider(), audit)

	for i := 0; i < 3; i++ {
		body := fmt.Sprintf(`{"name":"c%d","upperBust":82,"lowerBust":65}`, i)
		if w := doJSON(router, "POST", "/api/v1/recommendations", body); w.Code != http.StatusOK {
			t.Fatalf("seed request %d: Status = %d", i, w.Code)
		}
	}

	t.Run("returns newest first with limit", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/v1/audit?limit=2", "")

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		var response struct {
			Entries []domain.AuditEntry `json:"entries"`
			Count   int                 `json:"count"`
		}
		decodeBody(t, w, &response)
		if response.Count != 2 || response.Entries[0].Name != "c2" {
			t.Errorf("entries = %+v, want c2 first and 2 rows", response.Entries)
		}
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		for _, q := range []string{"0", "-3", "abc"} {
			w := doJSON(router, "GET", "/api/v1/audit?limit="+q, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("limit=%s: Status = %d, want %d", q, w.Code, http.StatusBadRequest)
			}
		}
	})
}

func TestCORSIntegration(t *testing.T) {
	router := setupTestRouter()

	req, _ := http.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://kiosk-taipei.dailybelle.com.tw")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://kiosk-taipei.dailybelle.com.tw" {
		t.Errorf("Access-Control-Allow-Origin = %s", got)
	}
}

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid request", fmt.Errorf("%w: blank keyword", domain.ErrInvalidRequest), http.StatusBadRequest},
		{"keyword not found", &domain.NotFoundError{Keyword: "x"}, http.StatusNotFound},
		{"connectivity", &domain.ConnectivityError{Endpoint: "/records", StatusCode: 500}, http.StatusBadGateway},
		{"parse", &domain.ParseError{Endpoint: "/records", Err: fmt.Errorf("bad json")}, http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			NewHandler(nil, nil).writeError(c, tt.err)

			if w.Code != tt.want {
				t.Errorf("Status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
