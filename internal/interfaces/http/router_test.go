package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SeqQuant/internal/application/encoding"
	"github.com/turtacn/SeqQuant/internal/config"
	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/internal/interfaces/http/handlers"
)

type stubService struct {
	mu      sync.Mutex
	encoded [][]string
}

func (s *stubService) Encode(_ context.Context, req *encoding.EncodeRequest) (*encoding.LatentResult, error) {
	s.mu.Lock()
	s.encoded = append(s.encoded, req.Sequences)
	s.mu.Unlock()
	res := encoding.NewLatentResult()
	for _, seq := range req.Sequences {
		res.Set(seq, []float32{float32(len(seq))})
	}
	return res, nil
}

func (s *stubService) Monomers(context.Context, string) ([]string, error) {
	return []string{"A", "C", "G", "T"}, nil
}

func (s *stubService) KernelInfo(_ context.Context, pt string, _ []polymer.NewMonomerRequest) (*encoding.KernelInfo, error) {
	return &encoding.KernelInfo{MaxSequenceLength: 100, PolymerType: polymer.PolymerType(pt)}, nil
}

func (s *stubService) Descriptors(_ context.Context, smiles string) (*encoding.DescriptorReport, error) {
	return &encoding.DescriptorReport{SMILES: smiles}, nil
}

func (s *stubService) Ready(context.Context) error { return nil }

type stubMetrics struct {
	mu       sync.Mutex
	routes   []string
	limited  []string
	inFlight int
}

func (m *stubMetrics) RecordHTTPRequest(_ string, route string, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, route)
}

func (m *stubMetrics) RequestStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight++
}

func (m *stubMetrics) RequestFinished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
}

func (m *stubMetrics) RecordRateLimited(route string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limited = append(m.limited, route)
}

func newTestRouter(t *testing.T, rl config.RateLimitConfig) (*Router, *stubService, *stubMetrics) {
	t.Helper()
	svc := &stubService{}
	metrics := &stubMetrics{}
	r := NewRouter(RouterConfig{
		EncodeHandler: handlers.NewEncodeHandler(handlers.EncodeHandlerConfig{Service: svc}),
		HealthHandler: handlers.NewHealthHandler("test"),
		Metrics:       metrics,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		RateLimit:   rl,
		CORSOrigins: []string{"*"},
	})
	t.Cleanup(r.Close)
	return r, svc, metrics
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "10.0.0.1:5555"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewRouter_RoutesRegistered(t *testing.T) {
	r, _, _ := newTestRouter(t, config.RateLimitConfig{})

	cases := []struct {
		method, target string
	}{
		{http.MethodPost, "/encode_sequence?sequences=AC"},
		{http.MethodGet, "/monomers/DNA"},
		{http.MethodPost, "/kernel_info/RNA"},
		{http.MethodGet, "/descriptors?smiles=CCO"},
		{http.MethodGet, "/healthz"},
		{http.MethodGet, "/readyz"},
		{http.MethodGet, "/metrics"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			w := serve(r, tc.method, tc.target)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestNewRouter_UnknownRoute(t *testing.T) {
	r, _, metrics := newTestRouter(t, config.RateLimitConfig{})
	w := serve(r, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, []string{"unmatched"}, metrics.routes)
}

func TestNewRouter_MetricsUseRoutePattern(t *testing.T) {
	r, _, metrics := newTestRouter(t, config.RateLimitConfig{})
	serve(r, http.MethodGet, "/monomers/protein")
	assert.Equal(t, []string{"/monomers/{polymer_type}"}, metrics.routes)
	assert.Equal(t, 0, metrics.inFlight)
}

func TestNewRouter_EncodeBatchCap(t *testing.T) {
	r, svc, _ := newTestRouter(t, config.RateLimitConfig{})

	seqs := make([]string, 150)
	for i := range seqs {
		seqs[i] = "AC"
	}
	w := serve(r, http.MethodPost, "/encode_sequence?sequences="+strings.Join(seqs, ","))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SEQ_007", resp.Code)
	assert.Equal(t, "the number of sequences in the query exceeds 100", resp.Message)
	assert.Empty(t, svc.encoded)
}

func TestNewRouter_EncodePreservesOrder(t *testing.T) {
	r, _, _ := newTestRouter(t, config.RateLimitConfig{})
	w := serve(r, http.MethodPost, "/encode_sequence?sequences=GGG,A,CC")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"GGG":[3],"A":[1],"CC":[2]}`, strings.TrimSpace(w.Body.String()))
}

func TestNewRouter_RateLimitPerGroup(t *testing.T) {
	r, _, metrics := newTestRouter(t, config.RateLimitConfig{
		Enabled: true, EncodePerMinute: 1, CatalogPerMinute: 1, Burst: 1,
	})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/monomers/DNA").Code)
	w := serve(r, http.MethodGet, "/descriptors?smiles=C")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// The encode budget is separate from the catalog budget.
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/encode_sequence?sequences=A").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/encode_sequence?sequences=A").Code)

	// Health checks are never limited.
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz").Code)
	}
	assert.Equal(t, []string{"catalog", "encode"}, metrics.limited)
}

func TestNewRouter_RateLimitKeysOnPeerUnlessTrusted(t *testing.T) {
	r := NewRouter(RouterConfig{
		EncodeHandler:  handlers.NewEncodeHandler(handlers.EncodeHandlerConfig{Service: &stubService{}}),
		RateLimit:      config.RateLimitConfig{Enabled: true, EncodePerMinute: 1, CatalogPerMinute: 1, Burst: 1},
		TrustedProxies: []string{"10.9.0.0/16"},
	})
	t.Cleanup(r.Close)

	send := func(remote, xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/monomers/DNA", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", xff)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	// A direct client cannot mint new budgets by rotating the header.
	assert.Equal(t, http.StatusOK, send("198.51.100.9:1000", "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.9:1000", "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.9:1000", "203.0.113.3"))

	// Behind the trusted proxy every forwarded client has its own budget.
	assert.Equal(t, http.StatusOK, send("10.9.0.5:2000", "203.0.113.10"))
	assert.Equal(t, http.StatusOK, send("10.9.0.5:2000", "203.0.113.11"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.9.0.5:2000", "203.0.113.10"))
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	r, _, _ := newTestRouter(t, config.RateLimitConfig{})
	req := httptest.NewRequest(http.MethodOptions, "/encode_sequence", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_NilEncodeHandler(t *testing.T) {
	r := NewRouter(RouterConfig{HealthHandler: handlers.NewHealthHandler("test")})
	defer r.Close()

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/monomers/DNA").Code)
}
