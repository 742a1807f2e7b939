package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"honorarios/internal/core"
	"honorarios/internal/ports"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var _ ports.Store = (*SQLiteRepository)(nil)

// DefaultBusyTimeoutMS is how long a connection waits on a locked database
// before SQLite reports SQLITE_BUSY.
const DefaultBusyTimeoutMS = 2000

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", dbPath, DefaultBusyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// classify maps driver errors onto the core sentinels. Busy and locked
// databases become core.ErrContention so the service layer can retry them.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%s: %w: %v", op, core.ErrContention, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConstraint(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func (r *SQLiteRepository) NextClientCode(ctx context.Context) (string, error) {
	max, err := r.queries.GetMaxClientCode(ctx)
	if err != nil {
		return "", classify("next client code", err)
	}
	return fmt.Sprintf("%04d", max+1), nil
}

func clientParams(c core.Client) CreateClientParams {
	return CreateClientParams{
		Code:               c.Code,
		Name:               c.Name,
		Phone:              c.Phone,
		TaxID:              c.TaxID,
		Secret:             c.Secret,
		CaseType:           c.CaseType,
		ContractedFeeCents: c.ContractedFee.Cents,
		CaseSummary:        c.CaseSummary,
		RegisteredOn:       c.RegisteredOn.FormatDMY(),
	}
}

func toCoreClient(c Client) (core.Client, error) {
	registered, err := core.ParseDMY(c.RegisteredOn)
	if err != nil {
		return core.Client{}, fmt.Errorf("client %s registered_on %q: %w", c.Code, c.RegisteredOn, err)
	}
	return core.Client{
		Code:          c.Code,
		Name:          c.Name,
		Phone:         c.Phone,
		TaxID:         c.TaxID,
		Secret:        c.Secret,
		CaseType:      c.CaseType,
		ContractedFee: core.Money{Cents: c.ContractedFeeCents},
		CaseSummary:   c.CaseSummary,
		RegisteredOn:  registered,
	}, nil
}

func (r *SQLiteRepository) CreateClient(ctx context.Context, c core.Client) error {
	if err := r.queries.CreateClient(ctx, clientParams(c)); err != nil {
		if isConstraint(err) {
			return fmt.Errorf("create client %s: %w", c.Code, core.ErrDuplicateClient)
		}
		return classify("create client", err)
	}
	slog.InfoContext(ctx, "Client saved to SQLite", "code", c.Code)
	return nil
}

func (r *SQLiteRepository) GetClient(ctx context.Context, code string) (core.Client, error) {
	row, err := r.queries.GetClient(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Client{}, fmt.Errorf("get client %s: %w", code, core.ErrClientNotFound)
	}
	if err != nil {
		return core.Client{}, classify("get client", err)
	}
	return toCoreClient(row)
}

func (r *SQLiteRepository) UpdateClient(ctx context.Context, c core.Client) error {
	n, err := r.queries.UpdateClient(ctx, clientParams(c))
	if err != nil {
		return classify("update client", err)
	}
	if n == 0 {
		return fmt.Errorf("update client %s: %w", c.Code, core.ErrClientNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteClient(ctx context.Context, code string) error {
	n, err := r.queries.DeleteClient(ctx, code)
	if err != nil {
		return classify("delete client", err)
	}
	if n == 0 {
		return fmt.Errorf("delete client %s: %w", code, core.ErrClientNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListClients(ctx context.Context) ([]core.Client, error) {
	rows, err := r.queries.ListClients(ctx)
	if err != nil {
		return nil, classify("list clients", err)
	}
	return toCoreClients(rows)
}

func (r *SQLiteRepository) SearchClients(ctx context.Context, term string) ([]core.Client, error) {
	rows, err := r.queries.SearchClients(ctx, term)
	if err != nil {
		return nil, classify("search clients", err)
	}
	return toCoreClients(rows)
}

func toCoreClients(rows []Client) ([]core.Client, error) {
	out := make([]core.Client, 0, len(rows))
	for _, row := range rows {
		c, err := toCoreClient(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func installmentRow(i core.Installment) Installment {
	var paid int64
	if i.Paid {
		paid = 1
	}
	return Installment{
		ClientCode:     i.ClientCode,
		Number:         int64(i.Number),
		AmountCents:    i.Amount.Cents,
		DueDate:        i.DueDate.FormatDMY(),
		PaymentDate:    i.PaymentDate.FormatDMY(),
		PaymentMethod:  i.PaymentMethod,
		DepositAccount: i.DepositAccount,
		Paid:           paid,
	}
}

func toCoreInstallment(i Installment) (core.Installment, error) {
	due, err := core.ParseDMY(i.DueDate)
	if err != nil {
		return core.Installment{}, fmt.Errorf("installment %s/%d due_date %q: %w", i.ClientCode, i.Number, i.DueDate, err)
	}
	paidOn, err := core.ParseDMY(i.PaymentDate)
	if err != nil {
		return core.Installment{}, fmt.Errorf("installment %s/%d payment_date %q: %w", i.ClientCode, i.Number, i.PaymentDate, err)
	}
	return core.Installment{
		ClientCode:     i.ClientCode,
		Number:         int(i.Number),
		Amount:         core.Money{Cents: i.AmountCents},
		DueDate:        due,
		PaymentDate:    paidOn,
		PaymentMethod:  i.PaymentMethod,
		DepositAccount: i.DepositAccount,
		Paid:           i.Paid != 0,
	}, nil
}

func toCoreInstallments(rows []Installment) ([]core.Installment, error) {
	out := make([]core.Installment, 0, len(rows))
	for _, row := range rows {
		i, err := toCoreInstallment(row)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

// CreateInstallments inserts the whole batch in one transaction.
func (r *SQLiteRepository) CreateInstallments(ctx context.Context, items []core.Installment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin create installments", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, inst := range items {
		if err := q.CreateInstallment(ctx, installmentRow(inst)); err != nil {
			return classify(fmt.Sprintf("create installment %s/%d", inst.ClientCode, inst.Number), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return classify("commit create installments", err)
	}
	slog.InfoContext(ctx, "Installments saved to SQLite", "count", len(items))
	return nil
}

// AppendInstallment assigns the next number (max+1) and inserts inst in the
// same transaction.
func (r *SQLiteRepository) AppendInstallment(ctx context.Context, inst core.Installment) (core.Installment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Installment{}, classify("begin append installment", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	max, err := q.GetMaxInstallmentNumber(ctx, inst.ClientCode)
	if err != nil {
		return core.Installment{}, classify("max installment number", err)
	}
	inst.Number = int(max) + 1
	if err := q.CreateInstallment(ctx, installmentRow(inst)); err != nil {
		return core.Installment{}, classify("append installment", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Installment{}, classify("commit append installment", err)
	}
	return inst, nil
}

func (r *SQLiteRepository) GetInstallment(ctx context.Context, clientCode string, number int) (core.Installment, error) {
	row, err := r.queries.GetInstallment(ctx, clientCode, int64(number))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Installment{}, fmt.Errorf("get installment %s/%d: %w", clientCode, number, core.ErrInstallmentNotFound)
	}
	if err != nil {
		return core.Installment{}, classify("get installment", err)
	}
	return toCoreInstallment(row)
}

func (r *SQLiteRepository) UpdateInstallment(ctx context.Context, inst core.Installment) error {
	n, err := r.queries.UpdateInstallment(ctx, installmentRow(inst))
	if err != nil {
		return classify("update installment", err)
	}
	if n == 0 {
		return fmt.Errorf("update installment %s/%d: %w", inst.ClientCode, inst.Number, core.ErrInstallmentNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListInstallments(ctx context.Context, clientCode string) ([]core.Installment, error) {
	rows, err := r.queries.ListInstallmentsByClient(ctx, clientCode)
	if err != nil {
		return nil, classify("list installments", err)
	}
	return toCoreInstallments(rows)
}

func (r *SQLiteRepository) ListAllInstallments(ctx context.Context) ([]core.Installment, error) {
	rows, err := r.queries.ListAllInstallments(ctx)
	if err != nil {
		return nil, classify("list all installments", err)
	}
	return toCoreInstallments(rows)
}

func (r *SQLiteRepository) ListInstallmentsWithClient(ctx context.Context) ([]core.InstallmentWithClient, error) {
	rows, err := r.queries.ListInstallmentsWithClient(ctx)
	if err != nil {
		return nil, classify("list installments with client", err)
	}
	out := make([]core.InstallmentWithClient, 0, len(rows))
	for _, row := range rows {
		inst, err := toCoreInstallment(row.Installment)
		if err != nil {
			return nil, err
		}
		out = append(out, core.InstallmentWithClient{Installment: inst, ClientName: row.ClientName})
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteClientInstallments(ctx context.Context, clientCode string) (int64, error) {
	n, err := r.queries.DeleteInstallmentsByClient(ctx, clientCode)
	if err != nil {
		return 0, classify("delete client installments", err)
	}
	slog.InfoContext(ctx, "Installments removed from SQLite", "client_code", clientCode, "count", n)
	return n, nil
}
