package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds its own registry so concurrent test servers never collide
// on duplicate registration.
type metrics struct {
	registry *prometheus.Registry

	authFailures   prometheus.Counter
	evidenceSaved  *prometheus.CounterVec
	transcriptions *prometheus.CounterVec
	bytesStored    prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voiceit_auth_failures_total",
			Help: "Failed authentication attempts.",
		}),
		evidenceSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceit_evidence_saved_total",
			Help: "Evidence files saved, by media type.",
		}, []string{"media_type"}),
		transcriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceit_transcriptions_total",
			Help: "Completed transcriptions, by method.",
		}, []string{"method"}),
		bytesStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voiceit_vault_bytes_stored",
			Help: "Encrypted bytes currently in the vault.",
		}),
	}
	m.registry.MustRegister(m.authFailures, m.evidenceSaved, m.transcriptions, m.bytesStored)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
