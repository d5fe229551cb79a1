package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/skillmatch/core"
	"github.com/poiesic/skillmatch/reader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves canned text by path and tracks concurrency.
type fakeReader struct {
	texts    map[string]string
	failures map[string]error
	delay    time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeReader) Read(_ context.Context, path string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.failures[path]; ok {
		return "", err
	}
	return f.texts[path], nil
}

func paths(n int) ([]string, map[string]string) {
	ps := make([]string, n)
	texts := make(map[string]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("/docs/cv%02d.txt", i)
		texts[ps[i]] = fmt.Sprintf("candidate %d knows Go", i)
	}
	return ps, texts
}

func TestNewCoordinator(t *testing.T) {
	_, err := NewCoordinator(nil)
	assert.ErrorIs(t, err, ErrReaderRequired)

	_, err = NewCoordinator(&fakeReader{}, WithMaxWorkers(0))
	assert.ErrorIs(t, err, ErrInvalidWorkers)

	c, err := NewCoordinator(&fakeReader{}, WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxWorkers, c.workers)
	assert.Equal(t, DefaultParallelThreshold, c.threshold)
}

func TestReadAll_Sequential(t *testing.T) {
	ps, texts := paths(3)
	fr := &fakeReader{texts: texts, delay: time.Millisecond}
	c, err := NewCoordinator(fr)
	require.NoError(t, err)

	result := c.ReadAll(context.Background(), ps, nil)
	assert.Equal(t, 3, result.Corpus.Len())
	assert.Empty(t, result.Skipped)
	assert.Equal(t, int32(1), fr.peak.Load(), "below threshold reads one at a time")

	doc := result.Corpus["cv01.txt"]
	assert.Equal(t, "candidate 1 knows Go", doc.Content)
	assert.Equal(t, core.HashContent(doc.Content), doc.ContentHash)
}

func TestReadAll_Parallel(t *testing.T) {
	ps, texts := paths(12)
	fr := &fakeReader{texts: texts, delay: 20 * time.Millisecond}
	c, err := NewCoordinator(fr, WithMaxWorkers(3))
	require.NoError(t, err)

	result := c.ReadAll(context.Background(), ps, nil)
	assert.Equal(t, 12, result.Corpus.Len())
	assert.LessOrEqual(t, fr.peak.Load(), int32(3))
	assert.Greater(t, fr.peak.Load(), int32(1))
}

func TestReadAll_FailuresIsolated(t *testing.T) {
	ps, texts := paths(6)
	texts[ps[2]] = "   \n"
	fr := &fakeReader{
		texts: texts,
		failures: map[string]error{
			ps[0]: errors.New("permission denied"),
			ps[4]: reader.ErrUnsupportedFormat,
		},
	}
	c, err := NewCoordinator(fr)
	require.NoError(t, err)

	result := c.ReadAll(context.Background(), ps, nil)
	assert.Equal(t, []string{"cv01.txt", "cv03.txt", "cv05.txt"}, result.Corpus.IDs())
	assert.Equal(t, []string{"cv00.txt", "cv02.txt", "cv04.txt"}, result.SkippedNames())
	assert.Contains(t, result.Skipped[0].Reason, "permission denied")
}

func TestReadAll_DuplicateNames(t *testing.T) {
	fr := &fakeReader{texts: map[string]string{
		"/a/cv.txt": "first",
		"/b/cv.txt": "second",
	}}
	c, err := NewCoordinator(fr)
	require.NoError(t, err)

	result := c.ReadAll(context.Background(), []string{"/a/cv.txt", "/b/cv.txt"}, nil)
	require.Equal(t, 1, result.Corpus.Len())
	assert.Equal(t, "first", result.Corpus["cv.txt"].Content)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "/b/cv.txt", result.Skipped[0].Path)
}

func TestReadAll_Empty(t *testing.T) {
	var reports []Progress
	c, err := NewCoordinator(&fakeReader{}, WithProgress(func(p Progress) {
		reports = append(reports, p)
	}))
	require.NoError(t, err)

	result := c.ReadAll(context.Background(), nil, nil)
	assert.NotNil(t, result.Corpus)
	assert.Equal(t, 0, result.Corpus.Len())
	require.Len(t, reports, 1)
	assert.Equal(t, 100.0, reports[0].Percent())
}

func TestReadAll_ProgressAfterEveryRead(t *testing.T) {
	ps, texts := paths(8)
	fr := &fakeReader{texts: texts, failures: map[string]error{ps[3]: errors.New("boom")}}
	c, err := NewCoordinator(fr, WithMaxWorkers(4))
	require.NoError(t, err)

	var mu sync.Mutex
	var done []int
	c.ReadAll(context.Background(), ps, func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 8, p.Total)
		done = append(done, p.Done)
	})

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, done)
}

func TestProgressTracker(t *testing.T) {
	var got []Progress
	tracker := NewProgressTracker(func(p Progress) { got = append(got, p) }, 4)

	// Ignored before Start
	tracker.Increment(1)
	assert.Empty(t, got)
	assert.Equal(t, time.Duration(0), tracker.Elapsed())

	tracker.Start()
	time.Sleep(5 * time.Millisecond)
	tracker.Increment(1)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Done)
	assert.Greater(t, got[0].ETA, time.Duration(0))

	tracker.Increment(10)
	assert.Equal(t, 4, tracker.Snapshot().Done, "capped at total")
	assert.Equal(t, time.Duration(0), tracker.Snapshot().ETA)

	tracker.Finish()
	assert.Equal(t, 100.0, got[len(got)-1].Percent())
}

func TestWriterProgress(t *testing.T) {
	var buf bytes.Buffer
	report := WriterProgress(&buf)

	report(Progress{Done: 1, Total: 2, Elapsed: time.Second, ETA: time.Second})
	assert.Contains(t, buf.String(), "1/2 (50.0%)")
	assert.NotContains(t, buf.String(), "\n")

	report(Progress{Done: 2, Total: 2, Elapsed: 2 * time.Second})
	assert.Contains(t, buf.String(), "2/2 (100.0%)")
	assert.Contains(t, buf.String(), "\n")
}

func TestListDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.TXT", "old.doc", "notes.rtf", ".hidden.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755))

	listing, err := ListDocuments(dir, reader.NewRegistry().Supports, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.TXT"), filepath.Join(dir, "b.pdf")}, listing.Paths)

	require.Len(t, listing.Skipped, 2)
	assert.Equal(t, filepath.Join(dir, "notes.rtf"), listing.Skipped[0].Path)
	assert.Contains(t, listing.Skipped[1].Reason, ".doc")
}

func TestListDocuments_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ListDocuments(filepath.Join(dir, "missing"), reader.NewRegistry().Supports, nil)
	assert.ErrorIs(t, err, core.ErrDirectoryNotFound)

	file := filepath.Join(dir, "cv.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = ListDocuments(file, reader.NewRegistry().Supports, nil)
	assert.ErrorIs(t, err, core.ErrNotADirectory)
}
