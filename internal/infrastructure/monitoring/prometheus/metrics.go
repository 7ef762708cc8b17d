package prometheus

import (
	"strconv"
	"time"
)

// Default buckets.
var (
	DefaultHTTPDurationBuckets      = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultInferenceDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultJobDurationBuckets       = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120}
)

// SeqQuantMetrics holds every metric the service records. It implements the
// encoding package's Metrics interface.
type SeqQuantMetrics struct {
	// Encoding
	EncodeRequestsTotal       CounterVec
	SequencesFilteredTotal    CounterVec
	SequencesEncodedTotal     CounterVec
	InferenceDuration         HistogramVec
	MonomerRegistrationsTotal CounterVec
	EncoderLoaded             GaugeVec

	// Latent cache
	CacheLookupsTotal CounterVec

	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec
	RateLimitedTotal    CounterVec

	// Worker
	WorkerJobsTotal   CounterVec
	WorkerJobDuration HistogramVec
}

// NewSeqQuantMetrics registers all metrics on collector.
func NewSeqQuantMetrics(collector MetricsCollector) *SeqQuantMetrics {
	m := &SeqQuantMetrics{}

	m.EncodeRequestsTotal = collector.RegisterCounter("encode_requests_total", "Latent encoding requests", "strategy", "polymer_type", "status")
	m.SequencesFilteredTotal = collector.RegisterCounter("sequences_filtered_total", "Sequences dropped before encoding", "stage")
	m.SequencesEncodedTotal = collector.RegisterCounter("sequences_encoded_total", "Sequences converted to descriptor matrices", "polymer_type")
	m.InferenceDuration = collector.RegisterHistogram("inference_duration_seconds", "Latent encoder inference duration", DefaultInferenceDurationBuckets, "encoder")
	m.MonomerRegistrationsTotal = collector.RegisterCounter("monomer_registrations_total", "Custom monomer registrations", "status")
	m.EncoderLoaded = collector.RegisterGauge("encoder_loaded", "Latent encoder load state (1=loaded)", "strategy")

	m.CacheLookupsTotal = collector.RegisterCounter("latent_cache_lookups_total", "Latent vector cache lookups", "result")

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "HTTP requests", "method", "route", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests")
	m.RateLimitedTotal = collector.RegisterCounter("rate_limited_total", "Requests rejected by the rate limiter", "route")

	m.WorkerJobsTotal = collector.RegisterCounter("worker_jobs_total", "Encode jobs processed by the worker", "status")
	m.WorkerJobDuration = collector.RegisterHistogram("worker_job_duration_seconds", "Encode job processing duration", DefaultJobDurationBuckets)

	return m
}

func (m *SeqQuantMetrics) ObserveEncodeRequest(strategy, polymerType, status string) {
	m.EncodeRequestsTotal.WithLabelValues(strategy, polymerType, status).Inc()
}

func (m *SeqQuantMetrics) AddSequencesFiltered(stage string, n int) {
	if n > 0 {
		m.SequencesFilteredTotal.WithLabelValues(stage).Add(float64(n))
	}
}

func (m *SeqQuantMetrics) AddSequencesEncoded(polymerType string, n int) {
	if n > 0 {
		m.SequencesEncodedTotal.WithLabelValues(polymerType).Add(float64(n))
	}
}

func (m *SeqQuantMetrics) ObserveInference(encoder string, d time.Duration) {
	m.InferenceDuration.WithLabelValues(encoder).Observe(d.Seconds())
}

func (m *SeqQuantMetrics) AddMonomerRegistrations(status string, n int) {
	if n > 0 {
		m.MonomerRegistrationsTotal.WithLabelValues(status).Add(float64(n))
	}
}

// ObserveCache matches latent.CacheObserver.
func (m *SeqQuantMetrics) ObserveCache(hits, misses int) {
	if hits > 0 {
		m.CacheLookupsTotal.WithLabelValues("hit").Add(float64(hits))
	}
	if misses > 0 {
		m.CacheLookupsTotal.WithLabelValues("miss").Add(float64(misses))
	}
}

// SetEncoderLoaded records whether the encoder for strategy is loaded.
func (m *SeqQuantMetrics) SetEncoderLoaded(strategy string, loaded bool) {
	v := 0.0
	if loaded {
		v = 1
	}
	m.EncoderLoaded.WithLabelValues(strategy).Set(v)
}

// RecordHTTPRequest records one completed request. route is the router
// pattern, not the raw path, to bound cardinality.
func (m *SeqQuantMetrics) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RequestStarted and RequestFinished track in-flight HTTP requests.
func (m *SeqQuantMetrics) RequestStarted()  { m.HTTPActiveRequests.WithLabelValues().Inc() }
func (m *SeqQuantMetrics) RequestFinished() { m.HTTPActiveRequests.WithLabelValues().Dec() }

func (m *SeqQuantMetrics) RecordRateLimited(route string) {
	m.RateLimitedTotal.WithLabelValues(route).Inc()
}

// RecordWorkerJob records one processed encode job.
func (m *SeqQuantMetrics) RecordWorkerJob(status string, d time.Duration) {
	m.WorkerJobsTotal.WithLabelValues(status).Inc()
	m.WorkerJobDuration.WithLabelValues().Observe(d.Seconds())
}
