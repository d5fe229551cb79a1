package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/skillmatch/core"
	"github.com/poiesic/skillmatch/metrics"
	"github.com/poiesic/skillmatch/pipeline"
	"github.com/poiesic/skillmatch/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clearCall struct {
	tier storage.Tier
	key  string
}

type fakeService struct {
	mu       sync.Mutex
	requests []pipeline.Request
	clears   []clearCall

	matchErr error
	clearErr error
}

func (f *fakeService) Match(_ context.Context, req pipeline.Request) (pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.matchErr != nil {
		return pipeline.Result{Records: []core.CandidateRecord{}}, f.matchErr
	}
	return pipeline.Result{
		Records: []core.CandidateRecord{{
			SourceID: "a.txt",
			Fields:   map[string]any{"name": "Jane Doe", "match_score": 90.0},
		}},
		Telemetry: core.Telemetry{
			RequestID:        "01J0000000000000000000000",
			Stage:            core.StageDone,
			TotalDocuments:   3,
			BatchesTotal:     1,
			BatchesSucceeded: 1,
			Elapsed:          core.Seconds(1500 * time.Millisecond),
		},
	}, nil
}

func (f *fakeService) ClearCache(_ context.Context, tier storage.Tier, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears = append(f.clears, clearCall{tier, key})
	return f.clearErr
}

func newTestServer(t *testing.T, svc Service) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	s, err := New(svc, WithMetrics(m, reg), WithLogger(nil))
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, reg
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrServiceRequired)
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, &fakeService{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMatch(t *testing.T) {
	svc := &fakeService{}
	ts, _ := newTestServer(t, svc)

	body := `{"dir_path": "/data/resumes", "query": "Python, SQL", "force": true}`
	resp, err := http.Post(ts.URL+"/v1/match", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out struct {
		Records   []map[string]any `json:"records"`
		Telemetry map[string]any   `json:"telemetry"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Records, 1)
	assert.Equal(t, "a.txt", out.Records[0]["source_file"])
	assert.Equal(t, "Jane Doe", out.Records[0]["name"])
	assert.Equal(t, "done", out.Telemetry["stage"])
	assert.Equal(t, 1.5, out.Telemetry["elapsed_time"])
	assert.Equal(t, 1.0, out.Telemetry["batches_succeeded"])

	require.Len(t, svc.requests, 1)
	assert.Equal(t, pipeline.Request{Dir: "/data/resumes", Query: "Python, SQL", Force: true}, svc.requests[0])
}

func TestMatch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed body", `{"query":`, nil, http.StatusBadRequest},
		{"empty query", `{"dir_path":"/x","query":""}`, core.ErrEmptyQuery, http.StatusBadRequest},
		{"missing dir", `{"dir_path":"/x","query":"Go"}`, fmt.Errorf("%w: /x", core.ErrDirectoryNotFound), http.StatusBadRequest},
		{"not a dir", `{"dir_path":"/x","query":"Go"}`, core.ErrNotADirectory, http.StatusBadRequest},
		{"internal", `{"dir_path":"/x","query":"Go"}`, errors.New("permission denied"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newTestServer(t, &fakeService{matchErr: tt.err})
			resp, err := http.Post(ts.URL+"/v1/match", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)

			var out errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.NotEmpty(t, out.Error)
		})
	}
}

func TestClearCache(t *testing.T) {
	tests := []struct {
		query  string
		status int
		want   *clearCall
	}{
		{"", http.StatusNoContent, &clearCall{"", ""}},
		{"?tier=index", http.StatusNoContent, &clearCall{storage.TierIndex, ""}},
		{"?tier=result&key=abc123", http.StatusNoContent, &clearCall{storage.TierResult, "abc123"}},
		{"?key=abc123", http.StatusNoContent, &clearCall{"", "abc123"}},
		{"?tier=bogus", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			svc := &fakeService{}
			ts, _ := newTestServer(t, svc)

			req, err := http.NewRequest(http.MethodDelete, ts.URL+"/v1/cache"+tt.query, http.NoBody)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.want == nil {
				assert.Empty(t, svc.clears)
				return
			}
			require.Len(t, svc.clears, 1)
			assert.Equal(t, *tt.want, svc.clears[0])
		})
	}
}

func TestClearCache_Failure(t *testing.T) {
	ts, _ := newTestServer(t, &fakeService{clearErr: errors.New("disk unavailable")})
	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/v1/cache?tier=index", http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, &fakeService{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `skillmatch_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s, err := New(&fakeService{})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
