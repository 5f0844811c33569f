package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.PaymentAttempts.WithLabelValues("transfer", "success").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.PaymentAttempts.WithLabelValues("transfer", "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PaymentAttempts.WithLabelValues("transfer", "success")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.LedgerFallbacks.WithLabelValues("missing").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `wallet_ledger_seed_fallbacks_total{reason="missing"} 1`)
}
