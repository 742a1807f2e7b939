package ports

import (
	"context"

	"honorarios/internal/core"
)

// Ports for outbound adapters.
type (
	// ClientStore owns client records keyed by their code.
	ClientStore interface {
		// NextClientCode returns max(existing code)+1, zero padded; "0001" when empty.
		NextClientCode(ctx context.Context) (string, error)
		CreateClient(ctx context.Context, c core.Client) error
		GetClient(ctx context.Context, code string) (core.Client, error)
		UpdateClient(ctx context.Context, c core.Client) error
		DeleteClient(ctx context.Context, code string) error
		ListClients(ctx context.Context) ([]core.Client, error)
		// SearchClients matches a case-insensitive substring of the name.
		SearchClients(ctx context.Context, term string) ([]core.Client, error)
	}

	// InstallmentStore owns installment records keyed by (client code, number).
	// It does not check that the client exists.
	InstallmentStore interface {
		// CreateInstallments inserts all rows or none.
		CreateInstallments(ctx context.Context, items []core.Installment) error
		// AppendInstallment stores inst numbered max(existing)+1 and returns it.
		AppendInstallment(ctx context.Context, inst core.Installment) (core.Installment, error)
		GetInstallment(ctx context.Context, clientCode string, number int) (core.Installment, error)
		UpdateInstallment(ctx context.Context, inst core.Installment) error
		// ListInstallments returns a client's installments ordered by number.
		ListInstallments(ctx context.Context, clientCode string) ([]core.Installment, error)
		// ListAllInstallments returns every installment in insertion order.
		ListAllInstallments(ctx context.Context) ([]core.Installment, error)
		// ListInstallmentsWithClient inner-joins installments with client names, insertion order.
		ListInstallmentsWithClient(ctx context.Context) ([]core.InstallmentWithClient, error)
		DeleteClientInstallments(ctx context.Context, clientCode string) (int64, error)
	}

	// Store is the full repository consumed by the services.
	Store interface {
		ClientStore
		InstallmentStore
	}

	// SnapshotWriter receives full exports of the store.
	SnapshotWriter interface {
		WriteSnapshot(ctx context.Context, s core.Snapshot) error
	}

	// ReportRenderer turns a client and its ordered installments into a document.
	ReportRenderer interface {
		Render(c core.Client, installments []core.Installment) (core.Document, error)
	}
)
