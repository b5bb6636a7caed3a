package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	m := NewManager()
	m.ObserveOperation("admit", "ok")
	m.ObserveOperation("admit", "ok")
	m.ObserveOperation("admit", "DUPLICATE_CANDIDATE")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("admit", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("admit", "DUPLICATE_CANDIDATE")))
}

func TestObserveRating(t *testing.T) {
	m := NewManager()
	m.ObserveRating(4)
	m.ObserveRating(2.5)
	assert.Equal(t, 1, testutil.CollectAndCount(m.ratings))
}

func TestRegisterGauge(t *testing.T) {
	m := NewManager()
	m.RegisterGauge("sse", "clients", "Connected clients.", func() float64 { return 3 })

	expected := `
# HELP recruitflow_sse_clients Connected clients.
# TYPE recruitflow_sse_clients gauge
recruitflow_sse_clients 3
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "recruitflow_sse_clients"))
}

func TestMiddlewareLabelsRoutePattern(t *testing.T) {
	m := NewManager()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/candidates/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/candidates/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/candidates/{id}", "GET", "404")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewManager()
	m.ObserveOperation("schedule", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `recruitflow_workflow_operations_total{operation="schedule",result="ok"} 1`)
}
