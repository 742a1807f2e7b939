package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"honorarios/internal/amqp"
	applog "honorarios/internal/log"
)

// Exporter writes a snapshot of the current store.
type Exporter interface {
	Export(ctx context.Context, reason string) error
	LastExport() time.Time
}

// SnapshotWorker turns snapshot requests into exports. Requests issued before
// the last successful export are already covered by it and are skipped, so a
// burst of mutations costs one export.
type SnapshotWorker struct {
	exporter Exporter
	interval time.Duration
	logger   *applog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSnapshotWorker(exporter Exporter, interval time.Duration, logger *applog.Logger) *SnapshotWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &SnapshotWorker{
		exporter: exporter,
		interval: interval,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleSnapshotRequest is the AMQP message handler.
func (w *SnapshotWorker) HandleSnapshotRequest(ctx context.Context, msg *amqp.SnapshotRequestMessage) error {
	if last := w.exporter.LastExport(); !last.IsZero() && msg.Timestamp.Before(last) {
		w.logger.DebugContext(ctx, "Snapshot request already covered",
			applog.FieldMessageID, msg.ID,
			applog.FieldReason, msg.Reason)
		return nil
	}
	if err := w.exporter.Export(ctx, msg.Reason); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Snapshot request processed",
		applog.FieldMessageID, msg.ID,
		applog.FieldReason, msg.Reason)
	return nil
}

// Start runs an export immediately and then every interval until Stop.
func (w *SnapshotWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("snapshot worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.runLoop(ctx)

	w.logger.InfoContext(ctx, "Periodic snapshot export started", "interval", w.interval)
	return nil
}

func (w *SnapshotWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.exportPeriodic(ctx)
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.exportPeriodic(ctx)
		}
	}
}

func (w *SnapshotWorker) exportPeriodic(ctx context.Context) {
	if err := w.exporter.Export(ctx, "periodic"); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Periodic snapshot export failed", applog.FieldError, err.Error())
	}
}

// Stop waits for the loop to finish or for ctx to expire.
func (w *SnapshotWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	select {
	case <-done:
		w.logger.InfoContext(ctx, "Periodic snapshot export stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *SnapshotWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
