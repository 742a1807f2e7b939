package services

import (
	"context"
	"sync"
	"time"

	applog "honorarios/internal/log"
)

// ChangeNotifier is told about every successful mutation.
type ChangeNotifier interface {
	Changed(ctx context.Context, reason string)
}

// SnapshotRequester asks for a tabular snapshot to be written. The AMQP
// client publishes the request; SnapshotService exports in-process.
type SnapshotRequester interface {
	RequestSnapshot(ctx context.Context, reason string) error
}

// CacheInvalidator drops derived views.
type CacheInvalidator interface {
	Bump() uint64
}

// SnapshotStatus describes the outcome of the last snapshot request.
type SnapshotStatus struct {
	Reason      string
	RequestedAt time.Time
	Err         error
}

// Dispatcher invalidates the read cache and then requests a snapshot.
// Snapshot failures are logged and kept for the health endpoint; they never
// undo the mutation that triggered them.
type Dispatcher struct {
	cache     CacheInvalidator
	requester SnapshotRequester
	logger    *applog.Logger
	now       func() time.Time

	mu   sync.Mutex
	last SnapshotStatus
}

func NewDispatcher(cache CacheInvalidator, requester SnapshotRequester, logger *applog.Logger) *Dispatcher {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Dispatcher{
		cache:     cache,
		requester: requester,
		logger:    logger.WithComponent(applog.ComponentSnapshot),
		now:       time.Now,
	}
}

func (d *Dispatcher) Changed(ctx context.Context, reason string) {
	if d.cache != nil {
		version := d.cache.Bump()
		d.logger.DebugContext(ctx, "Read cache invalidated", applog.FieldVersion, version, applog.FieldReason, reason)
	}
	if d.requester == nil {
		return
	}

	err := d.requester.RequestSnapshot(ctx, reason)
	if err != nil {
		d.logger.ErrorContext(ctx, "Snapshot request failed", applog.FieldReason, reason, applog.FieldError, err.Error())
	}

	d.mu.Lock()
	d.last = SnapshotStatus{Reason: reason, RequestedAt: d.now(), Err: err}
	d.mu.Unlock()
}

func (d *Dispatcher) LastSnapshot() SnapshotStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

type nopNotifier struct{}

func (nopNotifier) Changed(context.Context, string) {}

func notifierOrNop(n ChangeNotifier) ChangeNotifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
