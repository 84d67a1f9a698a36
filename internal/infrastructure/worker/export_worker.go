package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-requirement/internal/voucher"
)

// Exporter produces the disbursement sheet for unpaid requirements
type Exporter interface {
	ExportUnpaid(ctx context.Context) (string, error)
}

// ExportWorker periodically writes the disbursement sheet so finance has
// an up-to-date list of completed, unpaid requirements.
type ExportWorker struct {
	interval time.Duration
	exporter Exporter
	logger   *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
	runs      int
	failures  int
	lastPath  string
	lastError error
}

// ExportStats is a snapshot of the worker's counters
type ExportStats struct {
	Runs      int
	Failures  int
	LastPath  string
	LastError error
}

// NewExportWorker creates a worker that exports once per interval
func NewExportWorker(interval time.Duration, exporter Exporter, logger *zap.Logger) *ExportWorker {
	return &ExportWorker{
		interval: interval,
		exporter: exporter,
		logger:   logger,
	}
}

// Start begins the export loop
func (w *ExportWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return fmt.Errorf("export interval must be positive, got %s", w.interval)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("export worker already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("ExportWorker started", zap.Duration("interval", w.interval))
	go w.loop(loopCtx, w.done)
	return nil
}

// Stop terminates the loop and waits for an in-flight export to finish
func (w *ExportWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	stats := w.Stats()
	w.logger.Info("ExportWorker stopped",
		zap.Int("runs", stats.Runs),
		zap.Int("failures", stats.Failures))
	return nil
}

// Name returns the worker name for identification
func (w *ExportWorker) Name() string {
	return "ExportWorker"
}

// Stats returns the current counters
func (w *ExportWorker) Stats() ExportStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ExportStats{
		Runs:      w.runs,
		Failures:  w.failures,
		LastPath:  w.lastPath,
		LastError: w.lastError,
	}
}

func (w *ExportWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *ExportWorker) runOnce(ctx context.Context) {
	path, err := w.exporter.ExportUnpaid(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.runs++

	switch {
	case errors.Is(err, voucher.ErrNoRequirements):
		// nothing to pay out this round
		w.lastError = nil
	case err != nil:
		w.failures++
		w.lastError = err
		w.logger.Error("Disbursement export failed", zap.Error(err))
	default:
		w.lastPath = path
		w.lastError = nil
		w.logger.Info("Disbursement sheet exported", zap.String("path", path))
	}
}
