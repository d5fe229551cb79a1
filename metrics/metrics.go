// Package metrics exposes pipeline and HTTP activity as Prometheus series.
package metrics

import (
	"errors"

	"github.com/poiesic/skillmatch/dispatch"
	"github.com/poiesic/skillmatch/filter"
	"github.com/poiesic/skillmatch/ingestion"
	"github.com/poiesic/skillmatch/pipeline"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "skillmatch"

// Request outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeRejected = "rejected"
)

// Metrics holds every collector and records pipeline events as a
// pipeline.Observer.
type Metrics struct {
	pipeline.NoopObserver

	requests        *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	batches         *prometheus.CounterVec
	documents       *prometheus.CounterVec
	requestDuration prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var _ pipeline.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with reg. A nil reg
// registers with prometheus.DefaultRegisterer. Registering twice with the
// same registry reuses the collectors already registered.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Match requests by outcome",
		}, []string{"outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by tier and result",
		}, []string{"tier", "result"}), // "hit" / "miss"
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Extraction batches by status",
		}, []string{"status"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents seen per pipeline phase",
		}, []string{"phase"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Match request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "path", "status"}),
	}

	if err := register(reg, &m.requests, &m.cacheLookups, &m.batches, &m.documents,
		&m.httpRequests); err != nil {
		return nil, err
	}
	if err := registerOne(reg, &m.requestDuration); err != nil {
		return nil, err
	}
	if err := registerOne(reg, &m.httpDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func register(reg prometheus.Registerer, vecs ...**prometheus.CounterVec) error {
	for _, v := range vecs {
		if err := registerOne(reg, v); err != nil {
			return err
		}
	}
	return nil
}

// registerOne registers *c, swapping in the existing collector when an
// identical one is already registered.
func registerOne[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			*c = existing
			return nil
		}
	}
	return err
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func (m *Metrics) DocumentRead(string, ingestion.Progress) {
	m.documents.WithLabelValues("read").Inc()
}

func (m *Metrics) AfterIngestion(_ string, read int, skipped []string) {
	m.documents.WithLabelValues("ingested").Add(float64(read))
	m.documents.WithLabelValues("skipped").Add(float64(len(skipped)))
}

func (m *Metrics) AfterFilter(_ string, enabled bool, res filter.Result) {
	m.documents.WithLabelValues("filtered").Add(float64(res.Corpus.Len()))
	if !enabled {
		return
	}
	switch res.Fallback {
	case filter.FallbackEmptyQuery, filter.FallbackEmptyCorpus:
		return
	}
	m.cacheLookups.WithLabelValues("index", hitLabel(res.IndexCacheHit)).Inc()
}

func (m *Metrics) BatchCompleted(r dispatch.BatchReport) {
	status := "succeeded"
	if r.Err != nil {
		status = "failed"
	}
	m.batches.WithLabelValues(status).Inc()
}

func (m *Metrics) AfterDispatch(_ string, res dispatch.Result) {
	m.cacheLookups.WithLabelValues("result", hitLabel(res.CacheHit)).Inc()
}

func (m *Metrics) Finish(res pipeline.Result, err error) {
	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeRejected
	case res.Telemetry.Degraded():
		outcome = OutcomeDegraded
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.requestDuration.Observe(res.Telemetry.Elapsed.Duration().Seconds())
}
