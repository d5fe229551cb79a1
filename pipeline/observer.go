package pipeline

import (
	"log/slog"

	"github.com/poiesic/skillmatch/dispatch"
	"github.com/poiesic/skillmatch/filter"
	"github.com/poiesic/skillmatch/ingestion"
)

// Observer receives structured progress for each request.
// Implementations must be safe for concurrent use across requests.
type Observer interface {
	// Start is called once the request passed input validation.
	Start(requestID string, req Request)

	// DocumentRead is called after every completed file read.
	DocumentRead(requestID string, p ingestion.Progress)

	// AfterIngestion is called with the document count and skipped files.
	AfterIngestion(requestID string, read int, skipped []string)

	// AfterFilter is called with the filter outcome. enabled is false when
	// the filter is switched off and did not run.
	AfterFilter(requestID string, enabled bool, res filter.Result)

	// BatchCompleted is called after every extraction batch.
	BatchCompleted(r dispatch.BatchReport)

	// AfterDispatch is called with the dispatch outcome.
	AfterDispatch(requestID string, res dispatch.Result)

	// Finish is called exactly once per request, including rejected ones.
	Finish(res Result, err error)
}

// NoopObserver ignores every event. Embed it to implement a subset of hooks.
type NoopObserver struct{}

var _ Observer = NoopObserver{}

func (NoopObserver) Start(string, Request) {}
func (NoopObserver) DocumentRead(string, ingestion.Progress) {}
func (NoopObserver) AfterIngestion(string, int, []string) {}
func (NoopObserver) AfterFilter(string, bool, filter.Result) {}
func (NoopObserver) BatchCompleted(dispatch.BatchReport) {}
func (NoopObserver) AfterDispatch(string, dispatch.Result) {}
func (NoopObserver) Finish(Result, error) {}

// LogObserver writes every event to a slog logger.
type LogObserver struct {
	logger *slog.Logger
}

var _ Observer = (*LogObserver)(nil)

// NewLogObserver creates a LogObserver. A nil logger uses slog.Default().
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger.With("component", "pipeline")}
}

func (o *LogObserver) Start(requestID string, req Request) {
	o.logger.Info("request started",
		"request_id", requestID,
		"dir", req.Dir,
		"paths", len(req.Paths),
		"query", req.Query,
		"force", req.Force)
}

func (o *LogObserver) DocumentRead(requestID string, p ingestion.Progress) {
	o.logger.Debug("document read",
		"request_id", requestID,
		"done", p.Done,
		"total", p.Total,
		"eta", p.ETA)
}

func (o *LogObserver) AfterIngestion(requestID string, read int, skipped []string) {
	o.logger.Info("ingestion finished", "request_id", requestID, "documents", read, "skipped", len(skipped))
}

func (o *LogObserver) AfterFilter(requestID string, enabled bool, res filter.Result) {
	o.logger.Info("filter finished",
		"request_id", requestID,
		"enabled", enabled,
		"documents", res.Corpus.Len(),
		"index_cache_hit", res.IndexCacheHit,
		"fallback", res.Fallback)
}

func (o *LogObserver) BatchCompleted(r dispatch.BatchReport) {
	if r.Err != nil {
		o.logger.Warn("batch failed", "request_id", r.RequestID, "batch", r.Index+1, "of", r.Total, "err", r.Err)
		return
	}
	o.logger.Debug("batch completed",
		"request_id", r.RequestID,
		"batch", r.Index+1,
		"of", r.Total,
		"records", r.Records,
		"elapsed", r.Elapsed)
}

func (o *LogObserver) AfterDispatch(requestID string, res dispatch.Result) {
	o.logger.Info("dispatch finished",
		"request_id", requestID,
		"result_cache_hit", res.CacheHit,
		"batches", res.BatchesTotal,
		"succeeded", res.BatchesSucceeded,
		"records", len(res.Records))
}

func (o *LogObserver) Finish(res Result, err error) {
	t := res.Telemetry
	if err != nil {
		o.logger.Warn("request rejected", "request_id", t.RequestID, "err", err)
		return
	}
	o.logger.Info("request finished",
		"request_id", t.RequestID,
		"stage", t.Stage,
		"records", len(res.Records),
		"degraded", t.Degraded(),
		"elapsed", t.Elapsed.Duration())
}

// MultiObserver fans every event out to each observer in order.
type MultiObserver []Observer

var _ Observer = MultiObserver(nil)

func (m MultiObserver) Start(requestID string, req Request) {
	for _, o := range m {
		o.Start(requestID, req)
	}
}

func (m MultiObserver) DocumentRead(requestID string, p ingestion.Progress) {
	for _, o := range m {
		o.DocumentRead(requestID, p)
	}
}

func (m MultiObserver) AfterIngestion(requestID string, read int, skipped []string) {
	for _, o := range m {
		o.AfterIngestion(requestID, read, skipped)
	}
}

func (m MultiObserver) AfterFilter(requestID string, enabled bool, res filter.Result) {
	for _, o := range m {
		o.AfterFilter(requestID, enabled, res)
	}
}

func (m MultiObserver) BatchCompleted(r dispatch.BatchReport) {
	for _, o := range m {
		o.BatchCompleted(r)
	}
}

func (m MultiObserver) AfterDispatch(requestID string, res dispatch.Result) {
	for _, o := range m {
		o.AfterDispatch(requestID, res)
	}
}

func (m MultiObserver) Finish(res Result, err error) {
	for _, o := range m {
		o.Finish(res, err)
	}
}
