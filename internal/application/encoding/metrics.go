package encoding

import "time"

// Metrics receives kernel and service measurements. The Prometheus
// implementation lives in the monitoring package.
type Metrics interface {
	ObserveEncodeRequest(strategy, polymerType, status string)
	AddSequencesFiltered(stage string, n int)
	AddSequencesEncoded(polymerType string, n int)
	ObserveInference(encoder string, d time.Duration)
	AddMonomerRegistrations(status string, n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveEncodeRequest(string, string, string) {}
func (noopMetrics) AddSequencesFiltered(string, int)            {}
func (noopMetrics) AddSequencesEncoded(string, int)             {}
func (noopMetrics) ObserveInference(string, time.Duration)      {}
func (noopMetrics) AddMonomerRegistrations(string, int)         {}

// NoopMetrics discards every measurement.
func NoopMetrics() Metrics { return noopMetrics{} }
