package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/poiesic/skillmatch/core"
	"github.com/poiesic/skillmatch/dispatch"
	"github.com/poiesic/skillmatch/filter"
	"github.com/poiesic/skillmatch/ingestion"
	"github.com/poiesic/skillmatch/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestNew_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	first.requests.WithLabelValues(OutcomeOK).Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(second.requests.WithLabelValues(OutcomeOK)))
}

func TestObserver_RequestOutcomes(t *testing.T) {
	m := newMetrics(t)

	m.Finish(pipeline.Result{}, core.ErrEmptyQuery)
	m.Finish(pipeline.Result{Telemetry: core.Telemetry{FailedBatches: []int{1}}}, nil)
	m.Finish(pipeline.Result{}, nil)
	m.Finish(pipeline.Result{}, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(OutcomeDegraded)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))
}

func TestObserver_PipelineEvents(t *testing.T) {
	m := newMetrics(t)
	corpus, err := core.NewCorpus(core.NewDocument("a.txt", "Go"), core.NewDocument("b.txt", "SQL"))
	require.NoError(t, err)

	m.DocumentRead("r1", ingestion.Progress{Done: 1, Total: 3})
	m.DocumentRead("r1", ingestion.Progress{Done: 2, Total: 3})
	m.DocumentRead("r1", ingestion.Progress{Done: 3, Total: 3})
	m.AfterIngestion("r1", 2, []string{"broken.pdf"})
	m.AfterFilter("r1", true, filter.Result{Corpus: corpus, IndexCacheHit: true})
	m.AfterFilter("r1", true, filter.Result{Corpus: corpus, Fallback: filter.FallbackEmbedding})
	m.AfterFilter("r1", false, filter.Result{Corpus: corpus})
	m.BatchCompleted(dispatch.BatchReport{Index: 0})
	m.BatchCompleted(dispatch.BatchReport{Index: 1, Err: errors.New("timeout")})
	m.AfterDispatch("r1", dispatch.Result{CacheHit: true})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.documents.WithLabelValues("read")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.documents.WithLabelValues("ingested")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documents.WithLabelValues("skipped")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.documents.WithLabelValues("filtered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("index", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("index", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("result", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("failed")))
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := newMetrics(t)
	r := chi.NewRouter()
	r.Use(m.Middleware())
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Delete("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, path := range []string{"/items/1", "/items/2"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/items/3", http.NoBody))
	require.Equal(t, http.StatusNoContent, rr.Code)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/items/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("DELETE", "/items/{id}", "204")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.httpDuration))
}
