package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type recordedRequest struct {
	method, route string
	code          int
}

type fakeHTTPMetrics struct {
	requests []recordedRequest
	active   int
	peak     int
}

func (f *fakeHTTPMetrics) RecordHTTPRequest(method, route string, code int, _ time.Duration) {
	f.requests = append(f.requests, recordedRequest{method, route, code})
}

func (f *fakeHTTPMetrics) RequestStarted() {
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
}

func (f *fakeHTTPMetrics) RequestFinished() { f.active-- }

func TestMetrics_UsesRoutePattern(t *testing.T) {
	m := &fakeHTTPMetrics{}
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/monomers/{polymer_type}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/monomers/protein", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, []recordedRequest{
		{http.MethodGet, "/monomers/{polymer_type}", http.StatusTeapot},
		{http.MethodGet, "unmatched", http.StatusNotFound},
	}, m.requests)
	assert.Equal(t, 0, m.active)
	assert.Equal(t, 1, m.peak)
}
