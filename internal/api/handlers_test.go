package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiwatch/sentinel/internal/config"
	"github.com/epiwatch/sentinel/internal/models"
	"github.com/epiwatch/sentinel/internal/session"
)

type staticClassifier struct{ score float64 }

func (c *staticClassifier) Predict(_ context.Context, _ []float32) (float64, error) {
	return c.score, nil
}
func (c *staticClassifier) InputSize() int { return 8 }
func (c *staticClassifier) Name() string   { return "static-classifier" }

type staticRegressor struct{ base float64 }

func (r *staticRegressor) Predict(_ context.Context, _ []float64) (float64, error) {
	return r.base, nil
}
func (r *staticRegressor) NumFeatures() int { return 7 }
func (r *staticRegressor) Name() string     { return "static-regressor" }

// memStore is an in-memory Store for handler tests.
type memStore struct {
	mu         sync.Mutex
	detections []*models.DetectionRecord
	forecasts  []*models.ForecastRecord
	audits     []*models.AuditLog
}

func (s *memStore) SaveDetection(_ context.Context, r *models.DetectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detections = append(s.detections, r)
	return nil
}

func (s *memStore) ListDetections(_ context.Context, _, _ int) ([]*models.DetectionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detections, nil
}

func (s *memStore) SaveForecast(_ context.Context, r *models.ForecastRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecasts = append(s.forecasts, r)
	return nil
}

func (s *memStore) ListForecasts(_ context.Context, _, _ int) ([]*models.ForecastRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forecasts, nil
}

func (s *memStore) DashboardStats(_ context.Context) (*models.DashboardStats, error) {
	return &models.DashboardStats{}, nil
}

func (s *memStore) LogRequest(_ context.Context, l *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, l)
	return nil
}

func (s *memStore) GetAuditLogs(_ context.Context, _, _ int) ([]*models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audits, nil
}

func (s *memStore) Close() error   { return nil }
func (s *memStore) Migrate() error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.RateLimits.RequestsPerMinute = 1000

	classifier := &staticClassifier{score: 0.8}
	regressor := &staticRegressor{base: 30}
	store := &memStore{}
	sessions := session.NewManager(classifier, regressor, store, time.Second, time.Millisecond)

	srv := httptest.NewServer(NewRouter(cfg, sessions, store, classifier, regressor))
	t.Cleanup(srv.Close)
	return srv
}

func smearPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, sessionID string, body []byte) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestSessionHeaderIssuedAndHonored(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/detection/image", "", smearPNG(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	sessionID := resp.Header.Get(SessionHeader)
	require.NotEmpty(t, sessionID)

	// The issued session carries the staged image.
	resp = doRequest(t, srv, http.MethodGet, "/api/v1/detection/session", sessionID, nil)
	var snap models.DetectionSession
	decodeBody(t, resp, &snap)
	assert.Equal(t, models.DetectionReady, snap.Status)

	// A different caller sees a fresh, empty session.
	resp = doRequest(t, srv, http.MethodGet, "/api/v1/detection/session", "", nil)
	var other models.DetectionSession
	decodeBody(t, resp, &other)
	assert.Equal(t, models.DetectionEmpty, other.Status)
	assert.NotEqual(t, sessionID, resp.Header.Get(SessionHeader))
}

func TestDetectionWorkflow(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/detection/image", "s1", smearPNG(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodPost, "/api/v1/detection/analyze", "s1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap models.DetectionSession
	decodeBody(t, resp, &snap)
	assert.Equal(t, models.DetectionComplete, snap.Status)
	require.NotNil(t, snap.RawScore)
	assert.Equal(t, 0.8, *snap.RawScore)
	require.NotNil(t, snap.Positive)
	assert.True(t, *snap.Positive)

	resp = doRequest(t, srv, http.MethodPost, "/api/v1/detection/reset", "s1", nil)
	decodeBody(t, resp, &snap)
	assert.Equal(t, models.DetectionEmpty, snap.Status)
}

func TestAnalyzeWithoutImageReturns400(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/detection/analyze", "s1", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGarbageImageReturns400(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/detection/image", "s1", []byte("not an image"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestForecastEndpoint(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(models.ForecastRequest{
		Country:         "Senegal",
		City:            "Dakar",
		Month:           "June",
		Temperature:     30,
		RainfallMm:      100,
		HumidityPct:     60,
		PreviousCases:   10,
		PopulationTier:  models.PopulationLarge,
		HealthcareIndex: 10,
	})

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/forecast", "s1", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap models.ForecastSession
	decodeBody(t, resp, &snap)
	assert.Equal(t, models.ForecastComplete, snap.Status)
	require.NotNil(t, snap.PredictedCases)
	assert.Equal(t, 9, *snap.PredictedCases) // 30 * 1.5 * 0.2
	assert.Equal(t, models.RiskLow, snap.RiskLevel)
}

func TestForecastValidationReturns400(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(models.ForecastRequest{
		Country:         "Mali",
		City:            "Dakar", // wrong country for this city
		Month:           "June",
		Temperature:     30,
		RainfallMm:      100,
		HumidityPct:     60,
		PreviousCases:   10,
		PopulationTier:  models.PopulationMedium,
		HealthcareIndex: 5,
	})

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/forecast", "s1", body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestForecastBadBodyReturns400(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/forecast", "s1", []byte("{"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDashboard(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/v1/dashboard", "s1", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHistoryEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/v1/history/detections", "/api/v1/history/forecasts"} {
		resp := doRequest(t, srv, http.MethodGet, path, "s1", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)

		var body map[string]interface{}
		decodeBody(t, resp, &body)
		assert.Contains(t, body, "limit")
	}
}
