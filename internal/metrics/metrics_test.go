package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Analysis("ok")
	m.Analysis("ok")
	m.Analysis("transport_failure")
	m.CredentialOp("save", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.analyses.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues("transport_failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.credentialOps.WithLabelValues("save", "ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Analysis("ok")
	m.AnalysisSeconds(1)
	m.CredentialOp("clear", "ok")
}

func TestHandler(t *testing.T) {
	m := New()
	m.Analysis("ok")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "bias_analyzer_analyses_total"))
}
