package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/skillmatch"
	"github.com/poiesic/skillmatch/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	dir      string
	config   string
	cacheDir string
	provider *mock.MockProvider
}

func setup(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	e := &env{
		dir:      filepath.Join(root, "resumes"),
		config:   filepath.Join(root, "skillmatch.yaml"),
		cacheDir: filepath.Join(root, "cache"),
		provider: mock.NewMockProviderWithServices(
			mock.NewKeywordEmbedder("python", "sql", "java"),
			mock.NewMockExtractor(),
		).(*mock.MockProvider),
	}

	require.NoError(t, os.MkdirAll(e.dir, 0o755))
	for name, content := range map[string]string{
		"a.txt": "Python and SQL developer",
		"b.txt": "Java developer",
		"c.txt": "Python scripts",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(e.dir, name), []byte(content), 0o644))
	}

	cfg := "cache:\n  dir: " + e.cacheDir + "\ndispatch:\n  batch_delay: 0s\n"
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0o600))
	return e
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp(skillmatch.WithProvider(e.provider))
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"skillmatch", "--config", e.config}, args...))
	return out.String(), err
}

type output struct {
	Records []struct {
		SourceFile string  `json:"source_file"`
		MatchScore float64 `json:"match_score"`
	} `json:"records"`
	Telemetry struct {
		Stage          string `json:"stage"`
		ResultCacheHit bool   `json:"result_cache_hit"`
		TotalDocuments int    `json:"total_documents"`
	} `json:"telemetry"`
}

func TestMatchCommand(t *testing.T) {
	e := setup(t)

	stdout, err := e.run(t, "match", "--dir", e.dir, "--query", "Python, SQL")
	require.NoError(t, err)

	var res output
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "done", res.Telemetry.Stage)
	assert.Equal(t, 3, res.Telemetry.TotalDocuments)
	assert.False(t, res.Telemetry.ResultCacheHit)
	require.Len(t, res.Records, 2)

	scores := map[string]float64{}
	for _, r := range res.Records {
		scores[r.SourceFile] = r.MatchScore
	}
	assert.Equal(t, map[string]float64{"a.txt": 100, "c.txt": 50}, scores)

	stdout, err = e.run(t, "match", "--dir", e.dir, "--query", "Python, SQL")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.True(t, res.Telemetry.ResultCacheHit)
	assert.Equal(t, 1, e.provider.GetMockExtractor().CallCount())

	_, err = e.run(t, "match", "--dir", e.dir, "--query", "Python, SQL", "--force")
	require.NoError(t, err)
	assert.Equal(t, 2, e.provider.GetMockExtractor().CallCount())
}

func TestMatchCommand_FilesAndOut(t *testing.T) {
	e := setup(t)
	outPath := filepath.Join(t.TempDir(), "result.json")

	stdout, err := e.run(t, "match", "--query", "Java", "--no-filter", "--out", outPath,
		filepath.Join(e.dir, "b.txt"), filepath.Join(e.dir, "c.txt"))
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var res output
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, 2, res.Telemetry.TotalDocuments)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "b.txt", res.Records[0].SourceFile)
	assert.Zero(t, e.provider.GetMockEmbedder().CallCount())
}

func TestMatchCommand_Errors(t *testing.T) {
	e := setup(t)

	_, err := e.run(t, "match", "--dir", e.dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")

	_, err = e.run(t, "match", "--query", "Go")
	require.Error(t, err)

	_, err = e.run(t, "match", "--dir", filepath.Join(e.dir, "missing"), "--query", "Go")
	require.Error(t, err)

	_, err = e.run(t, "match", "--dir", e.dir, "--query", " , ")
	require.Error(t, err)
}

func TestCacheClearCommand(t *testing.T) {
	e := setup(t)

	_, err := e.run(t, "match", "--dir", e.dir, "--query", "Python")
	require.NoError(t, err)

	stdout, err := e.run(t, "cache", "clear", "--tier", "result")
	require.NoError(t, err)
	assert.Equal(t, "cleared result tier\n", stdout)

	entries, err := os.ReadDir(filepath.Join(e.cacheDir, "result"))
	require.NoError(t, err)
	assert.Empty(t, entries)
	entries, err = os.ReadDir(filepath.Join(e.cacheDir, "index"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	stdout, err = e.run(t, "cache", "clear")
	require.NoError(t, err)
	assert.Equal(t, "cleared all tiers\n", stdout)

	_, err = e.run(t, "cache", "clear", "--tier", "bogus")
	require.Error(t, err)
}

func TestGlobalFlags(t *testing.T) {
	e := setup(t)

	for _, format := range []string{"text", "json", "zap", "zap-dev"} {
		t.Run(format, func(t *testing.T) {
			_, err := e.run(t, "--log-format", format, "--log-level", "warn", "cache", "clear")
			require.NoError(t, err)
		})
	}

	_, err := e.run(t, "--log-level", "verbose", "cache", "clear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")

	_, err = e.run(t, "--log-format", "xml", "cache", "clear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")

	app := newApp()
	app.Writer, app.ErrWriter = io.Discard, io.Discard
	err = app.Run([]string{"skillmatch", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "cache", "clear"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
