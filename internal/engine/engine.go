package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onionwatch/onionwatch/internal/classifier"
	"github.com/onionwatch/onionwatch/internal/collector"
	"github.com/onionwatch/onionwatch/internal/database"
	"github.com/onionwatch/onionwatch/internal/envelope"
	"github.com/onionwatch/onionwatch/internal/model"
	"github.com/onionwatch/onionwatch/internal/tor"
)

// Creation-time validation errors. They surface synchronously to the
// caller; everything that happens after creation is reported through the
// job record instead.
var (
	// ErrScanNotFound is returned when a classification job references a
	// scan id that does not exist.
	ErrScanNotFound = errors.New("scan not found")

	// ErrReportNotFound is returned when a report lookup misses.
	ErrReportNotFound = errors.New("report not found")

	// ErrEmptyTarget is returned when a scan request carries no target
	// address.
	ErrEmptyTarget = errors.New("target address must not be empty")

	// ErrEmptyName is returned when a scan request carries no name.
	ErrEmptyName = errors.New("scan name must not be empty")
)

// Engine owns job records and dispatches their background workers. It is
// the only writer of job status; the collector and classifier strategies
// are injected so site-specific parsing and AI-vendor specifics stay
// replaceable without touching lifecycle logic.
type Engine struct {
	// db is the job store. Background workers share it; the sqlite driver
	// serializes access through a single connection.
	db *database.JobDB

	// collector executes collection jobs.
	collector collector.Collector

	// classifier executes classification jobs, one call per item.
	classifier classifier.Classifier

	// fallback is the proxy configuration used when a scan request carries
	// none, typically pointing at the embedded Tor daemon. Zero when no
	// fallback is available.
	fallback tor.ProxyConfig

	// logger records job lifecycle events.
	logger *slog.Logger

	// wg tracks in-flight background workers so shutdown can drain them.
	wg sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithFallbackProxy sets the proxy configuration used for scan requests
// that carry no endpoints of their own.
func WithFallbackProxy(cfg tor.ProxyConfig) Option {
	return func(e *Engine) {
		e.fallback = cfg
	}
}

// New creates a job lifecycle engine.
func New(db *database.JobDB, col collector.Collector, cls classifier.Classifier, opts ...Option) *Engine {
	e := &Engine{
		db:         db,
		collector:  col,
		classifier: cls,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Wait blocks until all in-flight background workers have written their
// terminal status. Used on shutdown; callers never wait per job.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// CreateScanRequest carries the caller-supplied fields of a collection job.
type CreateScanRequest struct {
	// Name is the human-assigned label for the job.
	Name string

	// Target is the listing URL to collect.
	Target string

	// Proxy holds the proxy endpoints. May be zero when the engine has a
	// fallback configured.
	Proxy tor.ProxyConfig
}

// CreateScan validates the request, persists a running Scan, dispatches its
// background worker, and returns the persisted record. The returned
// snapshot always has status "running" and an empty result; the worker's
// outcome is observed through later reads.
func (e *Engine) CreateScan(ctx context.Context, req CreateScanRequest) (*model.Scan, error) {
	if req.Name == "" {
		return nil, ErrEmptyName
	}
	if req.Target == "" {
		return nil, ErrEmptyTarget
	}

	proxy, err := e.resolveProxy(req.Proxy)
	if err != nil {
		return nil, err
	}

	scan, err := e.db.InsertScan(ctx, &model.Scan{
		Name:       req.Name,
		Target:     req.Target,
		ProxyHTTP:  proxy.HTTP,
		ProxyHTTPS: proxy.HTTPS,
		CreatedAt:  time.Now().UTC(),
		Status:     model.StatusRunning,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scan: %w", err)
	}

	e.logger.Info("scan created",
		"scan_id", scan.ID,
		"name", scan.Name,
		"target", scan.Target,
	)

	e.wg.Add(1)
	go e.runScan(scan.ID, scan.Target, proxy)

	return scan, nil
}

// resolveProxy picks the request's proxy endpoints or the engine fallback,
// and validates whichever is used.
func (e *Engine) resolveProxy(cfg tor.ProxyConfig) (tor.ProxyConfig, error) {
	if cfg.IsZero() {
		if e.fallback.IsZero() {
			return tor.ProxyConfig{}, tor.ErrNoProxyConfigured
		}
		cfg = e.fallback
	}
	if err := cfg.Validate(); err != nil {
		return tor.ProxyConfig{}, err
	}
	return cfg, nil
}

// runScan is the collection worker body. It runs detached from the
// creating request, so it derives its own context and uses the shared
// store handle rather than anything request-scoped.
func (e *Engine) runScan(id int64, target string, proxy tor.ProxyConfig) {
	defer e.wg.Done()
	ctx := context.Background()

	// A worker must always leave a terminal status behind, even when the
	// collector misbehaves in ways it never promised to.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("scan worker panicked", "scan_id", id, "panic", r)
			e.finishScan(ctx, id, model.StatusFailed, envelope.EncodeJobError(fmt.Sprintf("internal error: %v", r)))
		}
	}()

	items, err := e.collector.Collect(ctx, target, proxy)
	if err != nil {
		e.logger.Warn("scan failed", "scan_id", id, "error", err)
		e.finishScan(ctx, id, model.StatusFailed, envelope.EncodeJobError(err.Error()))
		return
	}

	env, err := envelope.EncodeItems(items)
	if err != nil {
		e.logger.Error("scan result encoding failed", "scan_id", id, "error", err)
		e.finishScan(ctx, id, model.StatusFailed, envelope.EncodeJobError(err.Error()))
		return
	}

	e.logger.Info("scan completed", "scan_id", id, "items", len(items))
	e.finishScan(ctx, id, model.StatusCompleted, env)
}

// finishScan writes a scan's terminal status and result.
func (e *Engine) finishScan(ctx context.Context, id int64, status model.Status, result string) {
	err := e.db.UpdateScan(ctx, &model.Scan{ID: id, Status: status, Result: result})
	if err != nil {
		// Nothing left to do but log: the worker has no caller.
		e.logger.Error("failed to write scan terminal status",
			"scan_id", id,
			"status", status,
			"error", err,
		)
	}
}

// CreateReportRequest carries the caller-supplied fields of a
// classification job.
type CreateReportRequest struct {
	// ScanID references the scan whose items to classify. The scan must
	// exist at creation time.
	ScanID int64

	// Params are passed unchanged to the classifier for every item.
	Params classifier.Params
}

// CreateReport validates that the referenced scan exists, persists a
// running Report, dispatches its background worker, and returns the
// persisted record. A missing scan fails the creation call itself and
// creates no record.
func (e *Engine) CreateReport(ctx context.Context, req CreateReportRequest) (*model.Report, error) {
	scan, err := e.db.GetScan(ctx, req.ScanID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up scan %d: %w", req.ScanID, err)
	}
	if scan == nil {
		return nil, fmt.Errorf("%w: id %d", ErrScanNotFound, req.ScanID)
	}

	report, err := e.db.InsertReport(ctx, &model.Report{
		ScanID:    scan.ID,
		Name:      scan.Name,
		CreatedAt: time.Now().UTC(),
		Status:    model.StatusRunning,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	e.logger.Info("report created",
		"report_id", report.ID,
		"scan_id", scan.ID,
		"model", req.Params.Model,
	)

	e.wg.Add(1)
	go e.runClassification(report.ID, req.ScanID, req.Params)

	return report, nil
}

// runClassification is the classification worker body. It re-fetches the
// owning scan because any amount of time may have passed since creation;
// whatever is persisted at read time is what gets classified, including a
// still-running scan's empty result.
func (e *Engine) runClassification(id, scanID int64, params classifier.Params) {
	defer e.wg.Done()
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("report worker panicked", "report_id", id, "panic", r)
			e.finishReport(ctx, id, model.StatusFailed, envelope.EncodeJobError(fmt.Sprintf("internal error: %v", r)))
		}
	}()

	scan, err := e.db.GetScan(ctx, scanID)
	if err != nil || scan == nil {
		e.logger.Warn("report worker could not load scan", "report_id", id, "scan_id", scanID, "error", err)
		e.finishReport(ctx, id, model.StatusFailed, envelope.EncodeJobError("Scan not found"))
		return
	}

	// A malformed or absent result decodes to zero items; classifying an
	// empty list is a valid, completed outcome, not a failure.
	payload, err := envelope.DecodeItems(scan.Result)
	if err != nil {
		e.logger.Warn("scan result not decodable, classifying zero items",
			"report_id", id,
			"scan_id", scanID,
			"error", err,
		)
	}

	verdicts := make([]model.Verdict, 0, len(payload.Posts))
	for i, item := range payload.Posts {
		body, err := envelope.DecodeBody(item.Content)
		if err != nil {
			// Unlike a classify failure, a corrupt stored body means the
			// scan payload itself is bad; the whole report fails.
			e.logger.Warn("report failed on corrupt item body", "report_id", id, "item", i, "error", err)
			e.finishReport(ctx, id, model.StatusFailed, envelope.EncodeJobError(fmt.Sprintf("failed to decode content of post %d: %v", i, err)))
			return
		}
		verdicts = append(verdicts, e.classifier.Classify(ctx, body, params))
	}

	env, err := envelope.EncodeVerdicts(verdicts)
	if err != nil {
		e.logger.Error("report encoding failed", "report_id", id, "error", err)
		e.finishReport(ctx, id, model.StatusFailed, envelope.EncodeJobError(err.Error()))
		return
	}

	e.logger.Info("report completed", "report_id", id, "verdicts", len(verdicts))
	e.finishReport(ctx, id, model.StatusCompleted, env)
}

// finishReport writes a report's terminal status and classification.
func (e *Engine) finishReport(ctx context.Context, id int64, status model.Status, classification string) {
	err := e.db.UpdateReport(ctx, &model.Report{ID: id, Status: status, Classification: classification})
	if err != nil {
		e.logger.Error("failed to write report terminal status",
			"report_id", id,
			"status", status,
			"error", err,
		)
	}
}

// GetScan returns a scan by id, or ErrScanNotFound.
func (e *Engine) GetScan(ctx context.Context, id int64) (*model.Scan, error) {
	scan, err := e.db.GetScan(ctx, id)
	if err != nil {
		return nil, err
	}
	if scan == nil {
		return nil, fmt.Errorf("%w: id %d", ErrScanNotFound, id)
	}
	return scan, nil
}

// ListScans returns scans matching the filter, in creation order.
func (e *Engine) ListScans(ctx context.Context, filter database.ScanFilter) ([]model.Scan, error) {
	return e.db.ListScans(ctx, filter)
}

// DeleteAllScans removes every scan and report. Administrative reset only.
func (e *Engine) DeleteAllScans(ctx context.Context) error {
	e.logger.Warn("deleting all scans and reports")
	return e.db.DeleteAllScans(ctx)
}

// GetReport returns a report by id, or ErrReportNotFound.
func (e *Engine) GetReport(ctx context.Context, id int64) (*model.Report, error) {
	report, err := e.db.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("%w: id %d", ErrReportNotFound, id)
	}
	return report, nil
}

// ListReports returns all reports in creation order.
func (e *Engine) ListReports(ctx context.Context) ([]model.Report, error) {
	return e.db.ListReports(ctx)
}
