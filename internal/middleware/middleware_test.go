package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ruralpay/wallet/internal/logger"
	"github.com/ruralpay/wallet/internal/metrics"
	"github.com/ruralpay/wallet/internal/services"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) ValidateToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func echoSession(w http.ResponseWriter, r *http.Request) {
	id, _ := SessionID(r.Context())
	json.NewEncoder(w).Encode(map[string]string{"session": id, "token": Token(r.Context())})
}

func TestAuth(t *testing.T) {
	v := &MockValidator{}
	v.On("ValidateToken", mock.Anything, "good").Return("s1", nil)
	v.On("ValidateToken", mock.Anything, "revoked").Return("", services.ErrInvalidToken)
	v.On("ValidateToken", mock.Anything, "broken").Return("", errors.New("store down"))

	h := Auth(v, logger.Discard().Component("auth"))(http.HandlerFunc(echoSession))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"extra parts", "Bearer good extra", http.StatusUnauthorized},
		{"revoked", "Bearer revoked", http.StatusUnauthorized},
		{"validator failure", "Bearer broken", http.StatusInternalServerError},
		{"valid", "Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "s1", body["session"])
	assert.Equal(t, "good", body["token"])
}

func TestSessionIDMissing(t *testing.T) {
	_, ok := SessionID(context.Background())
	assert.False(t, ok)

	id, ok := SessionID(WithSession(context.Background(), "s9", "tok"))
	assert.True(t, ok)
	assert.Equal(t, "s9", id)
}

func TestGlyphServer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zap.svg"), []byte(`<svg id="zap"/>`), 0o644))
	h := http.StripPrefix("/static/glyphs/", GlyphServer(dir))

	tests := []struct {
		path string
		body string
	}{
		{"/static/glyphs/zap.svg", `<svg id="zap"/>`},
		{"/static/glyphs/zap", `<svg id="zap"/>`},
		{"/static/glyphs/flame.svg", services.PlaceholderGlyph},
		{"/static/glyphs/../../etc/passwd", services.PlaceholderGlyph},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, tt.path)
		assert.Equal(t, tt.body, rec.Body.String(), tt.path)
	}
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/wallet/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wallet/abc", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/wallet/{id}", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RequestsInFlight))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithOutput("wallet", "info", &buf)
	h := RequestLogger(log.Component("http"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/flows", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Request rejected", entry["message"])
	assert.Equal(t, logrus.WarnLevel.String(), entry["level"])
	assert.Equal(t, "/api/v1/flows", entry["path"])
	assert.Equal(t, float64(400), entry["status"])
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
