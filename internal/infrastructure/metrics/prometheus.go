// Package metrics expone contadores del motor en formato Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/bultos-api/internal/domain"
)

// Resultados de una operación.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict" // contención reintentable
	OutcomeRejected = "rejected" // regla de negocio
	OutcomeError    = "error"    // infraestructura
)

// Prometheus registro propio con las métricas del motor. Implementa ports.Metrics.
type Prometheus struct {
	registry     *prometheus.Registry
	operations   *prometheus.CounterVec
	httpRequests *prometheus.HistogramVec
}

// New crea el registro con métricas de proceso y de Go incluidas.
func New(namespace string) *Prometheus {
	registry := prometheus.NewRegistry()
	p := &Prometheus{
		registry: registry,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Operaciones del motor por tipo y resultado.",
		}, []string{"operation", "outcome"}),
		httpRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duración de las peticiones HTTP.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	registry.MustRegister(
		p.operations,
		p.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Outcome clasifica el error de una operación.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case domain.IsConflict(err):
		return OutcomeConflict
	case domain.IsBusiness(err):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// ObserveOperation cuenta una operación del motor.
func (p *Prometheus) ObserveOperation(operation string, err error) {
	p.operations.WithLabelValues(operation, Outcome(err)).Inc()
}

// ObserveHTTP registra la duración de una petición.
func (p *Prometheus) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Operations devuelve el contador de operaciones (tests).
func (p *Prometheus) Operations() *prometheus.CounterVec {
	return p.operations
}

// Handler sirve el registro en formato de exposición de Prometheus.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
