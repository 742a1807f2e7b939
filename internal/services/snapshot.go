package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
	"honorarios/internal/ports"
)

// SnapshotService dumps clients and installments to every configured sink.
type SnapshotService struct {
	store  ports.Store
	retry  RetryPolicy
	sinks  []ports.SnapshotWriter
	logger *applog.Logger
	now    func() time.Time

	mu         sync.Mutex
	lastExport time.Time
}

func NewSnapshotService(store ports.Store, retry RetryPolicy, logger *applog.Logger, sinks ...ports.SnapshotWriter) *SnapshotService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &SnapshotService{
		store:  store,
		retry:  retry,
		sinks:  sinks,
		logger: logger.WithComponent(applog.ComponentSnapshot),
		now:    time.Now,
	}
}

// Build reads a full snapshot from the store.
func (s *SnapshotService) Build(ctx context.Context) (core.Snapshot, error) {
	clients, err := retryValue(ctx, s.retry, "list clients", s.store.ListClients)
	if err != nil {
		return core.Snapshot{}, err
	}
	items, err := retryValue(ctx, s.retry, "list all installments", s.store.ListAllInstallments)
	if err != nil {
		return core.Snapshot{}, err
	}
	return core.Snapshot{GeneratedAt: s.now(), Clients: clients, Installments: items}, nil
}

// Export builds a snapshot and writes it to all sinks concurrently. Every
// sink is attempted; the joined sink errors are returned.
func (s *SnapshotService) Export(ctx context.Context, reason string) error {
	snap, err := s.Build(ctx)
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}

	// A plain Group does not cancel the others when one sink fails: the xlsx
	// backup is written even when the Sheets mirror is down.
	var g errgroup.Group
	errs := make([]error, len(s.sinks))
	for i, sink := range s.sinks {
		g.Go(func() error {
			errs[i] = sink.WriteSnapshot(ctx, snap)
			return errs[i]
		})
	}
	if g.Wait() != nil {
		return fmt.Errorf("write snapshot: %w", errors.Join(errs...))
	}

	s.mu.Lock()
	s.lastExport = snap.GeneratedAt
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Snapshot exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldReason, reason,
		"clients", len(snap.Clients),
		"installments", len(snap.Installments),
		"sinks", len(s.sinks))
	return nil
}

// RequestSnapshot exports synchronously; it is the in-process requester used
// when no broker is configured.
func (s *SnapshotService) RequestSnapshot(ctx context.Context, reason string) error {
	return s.Export(ctx, reason)
}

// LastExport is the generation time of the last successful export.
func (s *SnapshotService) LastExport() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastExport
}
