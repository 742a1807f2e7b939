package services

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
	"honorarios/internal/ports"
	"honorarios/internal/store/memory"
)

var fastRetry = RetryPolicy{Attempts: 3, Delay: time.Millisecond}

func testLogger(buf *bytes.Buffer) *applog.Logger {
	return applog.New(applog.Config{
		Handler: slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

type recordingNotifier struct {
	mu      sync.Mutex
	reasons []string
}

func (n *recordingNotifier) Changed(_ context.Context, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.reasons)
}

// busyStore fails the next failures calls of every method with
// core.ErrContention before delegating.
type busyStore struct {
	ports.Store
	mu       sync.Mutex
	failures int
}

func (b *busyStore) fail() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.failures--
		return core.ErrContention
	}
	return nil
}

func (b *busyStore) CreateInstallments(ctx context.Context, items []core.Installment) error {
	if err := b.fail(); err != nil {
		return err
	}
	return b.Store.CreateInstallments(ctx, items)
}

func (b *busyStore) ListAllInstallments(ctx context.Context) ([]core.Installment, error) {
	if err := b.fail(); err != nil {
		return nil, err
	}
	return b.Store.ListAllInstallments(ctx)
}

func seedClient(t *testing.T, store ports.Store, code string, feeCents int64) core.Client {
	t.Helper()
	c := core.Client{
		Code:          code,
		Name:          "CLIENTE " + code,
		Phone:         "(11) 98765-4321",
		TaxID:         "123.456.789-01",
		ContractedFee: core.Money{Cents: feeCents},
		RegisteredOn:  core.NewDate(2024, 1, 2),
	}
	if err := store.CreateClient(context.Background(), c); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func newTestLedger(t *testing.T, cfg LedgerConfig) (*Ledger, *memory.Store, *recordingNotifier) {
	t.Helper()
	store := memory.New()
	n := &recordingNotifier{}
	var buf bytes.Buffer
	return NewLedger(store, cfg, fastRetry, n, testLogger(&buf)), store, n
}
