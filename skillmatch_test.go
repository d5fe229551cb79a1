package skillmatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/poiesic/skillmatch/ai/mock"
	"github.com/poiesic/skillmatch/config"
	"github.com/poiesic/skillmatch/metrics"
	"github.com/poiesic/skillmatch/pipeline"
	"github.com/poiesic/skillmatch/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")
	cfg.Cache.SQLite.Path = filepath.Join(cfg.Cache.Dir, "skillmatch.db")
	cfg.Ingestion.Extensions = []string{"txt", ".MD"}
	cfg.Dispatch.BatchDelay = 0
	return cfg
}

func writeResumes(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"a.txt":    "Python and SQL developer",
		"b.txt":    "Java developer",
		"c.txt":    "Python scripts",
		"d.md":     "# Ops\n\nJava and Kubernetes",
		"e.pdf":    "not configured",
		"old.doc":  "legacy",
		"notes.rt": "unknown",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newMatcher(t *testing.T, cfg config.Config, opts ...MatcherOption) (*Matcher, *mock.MockProvider) {
	t.Helper()
	provider := mock.NewMockProviderWithServices(
		mock.NewKeywordEmbedder("python", "sql", "java"),
		mock.NewMockExtractor(),
	).(*mock.MockProvider)

	m, err := New(context.Background(), cfg, append([]MatcherOption{WithProvider(provider)}, opts...)...)
	require.NoError(t, err)
	return m, provider
}

func sourceIDs(res pipeline.Result) []string {
	ids := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		ids = append(ids, r.SourceID)
	}
	return ids
}

func countEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Filter.Threshold = 2
	_, err := New(context.Background(), cfg, WithProvider(mock.NewMockProvider()))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestMatcher_Match(t *testing.T) {
	reg := prometheus.NewRegistry()
	mt, err := metrics.New(reg)
	require.NoError(t, err)

	cfg := testConfig(t)
	m, provider := newMatcher(t, cfg, WithMetrics(mt), WithLogger(nil))
	defer m.Close()

	dir := writeResumes(t)
	req := pipeline.Request{Dir: dir, Query: "Python, SQL"}

	res, err := m.Match(context.Background(), req)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "c.txt"}, sourceIDs(res))

	tel := res.Telemetry
	assert.Equal(t, 4, tel.TotalDocuments, "txt and md are configured")
	assert.Equal(t, 2, tel.FilteredDocuments)
	assert.ElementsMatch(t, []string{"e.pdf", "old.doc", "notes.rt"}, tel.SkippedDocuments)
	assert.False(t, tel.IndexCacheHit)
	assert.False(t, tel.ResultCacheHit)
	assert.Equal(t, 1, provider.GetMockExtractor().CallCount())

	assert.Equal(t, 1, countEntries(t, filepath.Join(cfg.Cache.Dir, string(storage.TierIndex))))
	assert.Equal(t, 1, countEntries(t, filepath.Join(cfg.Cache.Dir, string(storage.TierResult))))

	res, err = m.Match(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Telemetry.IndexCacheHit)
	assert.True(t, res.Telemetry.ResultCacheHit)
	assert.Equal(t, 1, provider.GetMockExtractor().CallCount())

	expected := `
# HELP skillmatch_requests_total Match requests by outcome
# TYPE skillmatch_requests_total counter
skillmatch_requests_total{outcome="degraded"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "skillmatch_requests_total"))
}

func TestMatcher_FilterDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Filter.Enabled = false
	m, provider := newMatcher(t, cfg)
	defer m.Close()

	res, err := m.Match(context.Background(), pipeline.Request{Dir: writeResumes(t), Query: "Java"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b.txt", "d.md"}, sourceIDs(res))
	assert.Equal(t, 4, res.Telemetry.FilteredDocuments)
	assert.Empty(t, res.Telemetry.FilterFallback)
	assert.Zero(t, provider.GetMockEmbedder().CallCount())
}

func TestMatcher_ClearCache(t *testing.T) {
	cfg := testConfig(t)
	m, _ := newMatcher(t, cfg)
	defer m.Close()

	ctx := context.Background()
	dir := writeResumes(t)
	_, err := m.Match(ctx, pipeline.Request{Dir: dir, Query: "Python"})
	require.NoError(t, err)
	res, err := m.Match(ctx, pipeline.Request{Dir: dir, Query: "Python, SQL"})
	require.NoError(t, err)

	resultDir := filepath.Join(cfg.Cache.Dir, string(storage.TierResult))
	indexDir := filepath.Join(cfg.Cache.Dir, string(storage.TierIndex))
	require.Equal(t, 2, countEntries(t, resultDir))
	require.Equal(t, 1, countEntries(t, indexDir))

	require.NoError(t, m.ClearCache(ctx, storage.TierResult, res.Telemetry.CacheKey))
	assert.Equal(t, 1, countEntries(t, resultDir))
	assert.Equal(t, 1, countEntries(t, indexDir))

	require.NoError(t, m.ClearCache(ctx, storage.TierIndex, ""))
	assert.Equal(t, 0, countEntries(t, indexDir))
	assert.Equal(t, 1, countEntries(t, resultDir))

	require.NoError(t, m.ClearCache(ctx, "", ""))
	assert.Equal(t, 0, countEntries(t, resultDir))

	assert.ErrorIs(t, m.ClearCache(ctx, "bogus", ""), storage.ErrInvalidTier)
	assert.ErrorIs(t, m.ClearCache(ctx, storage.TierIndex, "../escape"), storage.ErrInvalidKey)
}

func TestMatcher_Close(t *testing.T) {
	m, provider := newMatcher(t, testConfig(t))
	require.NoError(t, m.Close())
	assert.True(t, provider.Closed())

	_, err := m.Match(context.Background(), pipeline.Request{Dir: writeResumes(t), Query: "Python"})
	require.NoError(t, err, "closed caches degrade to misses")
}

func TestOpenStores_Backends(t *testing.T) {
	srv := miniredis.RunT(t)

	tests := []struct {
		name   string
		index  string
		result string
	}{
		{"fs", config.BackendFS, config.BackendFS},
		{"badger", config.BackendBadger, config.BackendBadger},
		{"sqlite", config.BackendSQLite, config.BackendSQLite},
		{"redis", config.BackendRedis, config.BackendRedis},
		{"mixed", config.BackendBadger, config.BackendSQLite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t).Cache
			cfg.IndexBackend = tt.index
			cfg.ResultBackend = tt.result
			cfg.Redis.Addr = srv.Addr()
			cfg.Redis.Prefix = "test-" + tt.name

			ctx := context.Background()
			opened, err := openStores(ctx, cfg)
			require.NoError(t, err)

			for _, tier := range storage.Tiers {
				store := opened.byTier[tier]
				require.NotNil(t, store)
				assert.Equal(t, tier, store.Tier())
				require.NoError(t, store.Put(ctx, "k1", []byte(`{"tier":"`+string(tier)+`"}`)))
			}
			for _, tier := range storage.Tiers {
				entry, err := opened.byTier[tier].Get(ctx, "k1")
				require.NoError(t, err)
				assert.Equal(t, `{"tier":"`+string(tier)+`"}`, string(entry.Payload), "tiers do not collide")
			}
			assert.NoError(t, opened.Close())
		})
	}
}

func TestOpenStores_UnknownBackend(t *testing.T) {
	cfg := testConfig(t).Cache
	cfg.ResultBackend = "memcached"
	_, err := openStores(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
