package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/use-agent/fraudlens/analysis"
	"github.com/use-agent/fraudlens/cache"
	"github.com/use-agent/fraudlens/config"
	"github.com/use-agent/fraudlens/gate"
	"github.com/use-agent/fraudlens/llm"
	"github.com/use-agent/fraudlens/models"
	"github.com/use-agent/fraudlens/scan"
	"github.com/use-agent/fraudlens/scraper"
	"github.com/use-agent/fraudlens/testutil"
)

type fakeService struct {
	mu       sync.Mutex
	result   *models.ScanResult
	err      error
	calls    int
	lastURL  string
	lastID   string
	gate     models.GateStats
	cacheLen int
}

func (f *fakeService) Scan(ctx context.Context, rawURL, requestID string) (*models.ScanResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastURL = rawURL
	f.lastID = requestID
	if f.err != nil {
		return nil, f.err
	}
	res := f.result.Clone()
	res.RequestID = requestID
	return res, nil
}

func (f *fakeService) Stats() (models.GateStats, int) {
	return f.gate, f.cacheLen
}

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.RateLimit = config.RateLimitConfig{MaxScans: 100, Window: time.Hour}
	return cfg
}

func newFakeService() *fakeService {
	shot := "data:image/jpeg;base64,AAAA"
	return &fakeService{
		result: &models.ScanResult{
			URL:        "https://example.com",
			Screenshot: &shot,
			Analysis: models.RiskAssessment{
				RiskScore:    12,
				RiskLevel:    models.RiskSafe,
				FraudTypes:   []string{},
				Indicators:   []string{},
				SafetyAdvice: []string{"Stay alert"},
			},
			Markers:  []models.SuspiciousRegion{},
			ScanTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		gate: models.GateStats{Active: 1, Queued: 2, Limit: 5},
	}
}

func postScan(t *testing.T, h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, w.Body.String())
	}
	return body
}

func TestScan_Success(t *testing.T) {
	svc := newFakeService()
	r := NewRouter(svc, testConfig(), time.Now())

	w := postScan(t, r, `{"url":"https://example.com"}`, map[string]string{"X-Request-ID": "client-id"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Request-ID"); got != "client-id" {
		t.Errorf("X-Request-ID = %q, want client-id", got)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"url", "screenshot", "analysis", "markers", "scanTime", "requestId", "cached"} {
		if _, ok := body[key]; !ok {
			t.Errorf("response missing %q", key)
		}
	}
	if body["requestId"] != "client-id" || svc.lastID != "client-id" {
		t.Errorf("requestId = %v, service saw %q", body["requestId"], svc.lastID)
	}
	got := body["analysis"].(map[string]any)
	if got["riskLevel"] != "Safe" {
		t.Errorf("riskLevel = %v", got["riskLevel"])
	}
	if v, ok := got["isSimulated"]; !ok || v != false {
		t.Errorf("isSimulated = %v (present %v), want false", v, ok)
	}
}

// newPipelineRouter serves a real scan.Service backed by fake browser and
// oracle collaborators.
func newPipelineRouter(oracle *testutil.FakeOracle) http.Handler {
	extractor := scraper.NewExtractor(
		&testutil.FakeProvider{Page: &testutil.FakePage{}},
		&testutil.FakeProber{},
		scraper.ExtractorOptions{NavigationTimeout: time.Second},
	)
	svc := scan.NewService(scan.Deps{
		Cache:     cache.New(cache.Options{Enabled: true, TTL: time.Minute, MaxItems: 10, SweepInterval: time.Minute}),
		Gate:      gate.New(2),
		Extractor: extractor,
		Assessor:  analysis.NewAssessor(oracle),
		Locator:   analysis.NewLocator(oracle),
	})
	return NewRouter(svc, testConfig(), time.Now())
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v (%q)", err, w.Body.String())
	}
	return body
}

func TestScan_OracleUnavailableEndToEnd(t *testing.T) {
	oracle := &testutil.FakeOracle{AssessErr: &llm.APIError{StatusCode: 503, Message: "unavailable"}}
	r := newPipelineRouter(oracle)

	body := decodeResult(t, postScan(t, r, `{"url":"http://example.com"}`, nil))

	a := body["analysis"].(map[string]any)
	if a["isSimulated"] != true {
		t.Errorf("analysis.isSimulated = %v, want true", a["isSimulated"])
	}
	if a["riskScore"] != float64(75) {
		t.Errorf("analysis.riskScore = %v, want 75", a["riskScore"])
	}
	if markers := body["markers"].([]any); len(markers) != 3 {
		t.Errorf("len(markers) = %d, want 3", len(markers))
	}
}

func TestScan_NonFiniteOracleScore(t *testing.T) {
	oracle := &testutil.FakeOracle{
		AssessReply:  `{"riskScore":"NaN","riskLevel":"High"}`,
		RegionsReply: `{"markers":[{"top":"NaN","left":1,"width":1,"height":1}]}`,
	}
	r := newPipelineRouter(oracle)

	body := decodeResult(t, postScan(t, r, `{"url":"https://x.test"}`, nil))

	a := body["analysis"].(map[string]any)
	if a["isSimulated"] != true || a["riskScore"] != float64(75) {
		t.Errorf("analysis = %v, want simulated fallback", a)
	}
}

func TestScan_GeneratesRequestID(t *testing.T) {
	r := NewRouter(newFakeService(), testConfig(), time.Now())
	w := postScan(t, r, `{"url":"https://example.com"}`, nil)
	if len(w.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("generated X-Request-ID = %q, want a UUID", w.Header().Get("X-Request-ID"))
	}
}

func TestScan_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{}`},
		{"blank url", `{"url":"   "}`},
		{"not json", `url=https://example.com`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			r := NewRouter(svc, testConfig(), time.Now())

			w := postScan(t, r, tt.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			body := decodeError(t, w)
			if !body.Error || body.Code != models.KindValidation || body.RequestID == "" || body.Timestamp == "" {
				t.Errorf("error body = %+v", body)
			}
			if svc.calls != 0 {
				t.Error("service must not be called for invalid input")
			}
		})
	}
}

func TestScan_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   models.ErrorKind
	}{
		{models.NewScanError(models.KindValidation, errors.New("bad scheme")), 400, models.KindValidation},
		{models.NewScanError(models.KindDomainNotFound, errors.New("net::ERR_NAME_NOT_RESOLVED")), 400, models.KindDomainNotFound},
		{models.NewScanError(models.KindTimeout, nil), 408, models.KindTimeout},
		{models.NewScanError(models.KindConnectionRefused, nil), 503, models.KindConnectionRefused},
		{models.NewScanError(models.KindSSL, nil), 502, models.KindSSL},
		{models.NewScanError(models.KindProtocol, nil), 502, models.KindProtocol},
		{errors.New("boom"), 500, models.KindGeneral},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			svc := newFakeService()
			svc.err = tt.err
			r := NewRouter(svc, testConfig(), time.Now())

			w := postScan(t, r, `{"url":"https://x.test"}`, nil)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			body := decodeError(t, w)
			if body.Code != tt.code || body.Message != tt.code.Message() {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestScan_ErrorDetails(t *testing.T) {
	svc := newFakeService()
	svc.err = models.NewScanError(models.KindDomainNotFound, errors.New("net::ERR_NAME_NOT_RESOLVED"))
	r := NewRouter(svc, testConfig(), time.Now())

	body := decodeError(t, postScan(t, r, `{"url":"http://nonexistent.invalid"}`, nil))
	if body.Details != "net::ERR_NAME_NOT_RESOLVED" {
		t.Errorf("Details = %q", body.Details)
	}
}

func TestScan_DailyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{MaxScans: 2, Window: time.Hour}
	r := NewRouter(newFakeService(), cfg, time.Now())

	for i := 0; i < 2; i++ {
		if w := postScan(t, r, `{"url":"https://example.com"}`, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	w := postScan(t, r, `{"url":"https://example.com"}`, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if body := decodeError(t, w); body.Code != models.KindRateLimit {
		t.Errorf("code = %s", body.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func TestScan_Auth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{"secret"}}
	r := NewRouter(newFakeService(), cfg, time.Now())

	if w := postScan(t, r, `{"url":"https://example.com"}`, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", w.Code)
	}
	if w := postScan(t, r, `{"url":"https://example.com"}`, map[string]string{"X-API-Key": "wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", w.Code)
	}
	if w := postScan(t, r, `{"url":"https://example.com"}`, map[string]string{"Authorization": "Bearer secret"}); w.Code != http.StatusOK {
		t.Errorf("bearer key: status = %d, want 200", w.Code)
	}
}

func TestHealth(t *testing.T) {
	svc := newFakeService()
	svc.cacheLen = 7
	r := NewRouter(svc, testConfig(), time.Now().Add(-time.Minute))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.CacheItems != 7 || body.Gate != svc.gate {
		t.Errorf("health = %+v", body)
	}
}

func TestIndexAndMetrics(t *testing.T) {
	r := NewRouter(newFakeService(), testConfig(), time.Now())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/api/scan") {
		t.Errorf("GET / status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "fraudlens_http_requests_total") {
		t.Errorf("GET /metrics status = %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"https://app.example"}
	r := NewRouter(newFakeService(), cfg, time.Now())

	req := httptest.NewRequest(http.MethodOptions, "/api/scan", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("allowed origin header = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("disallowed origin status = %d, want 403", w.Code)
	}
}
