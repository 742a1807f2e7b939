package services

import (
	"context"
	"fmt"
	"time"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
	"honorarios/internal/ports"
)

// SplitSpacingDays separates consecutive due dates of an even split.
const SplitSpacingDays = 30

type LedgerConfig struct {
	// AbsorbRemainder puts the rounding drift of an even split on the last
	// installment instead of only reporting it.
	AbsorbRemainder bool
}

// SplitResult is a generated schedule. Drift is the contracted fee minus the
// sum of the installments; it may be negative.
type SplitResult struct {
	Installments []core.Installment
	Drift        core.Money
}

// InstallmentUpdate replaces the mutable fields of an installment.
type InstallmentUpdate struct {
	Amount         core.Money
	PaymentDate    core.Date
	PaymentMethod  string
	DepositAccount string
	Paid           bool
}

// Ledger owns the installment schedule of each client.
type Ledger struct {
	store    ports.Store
	retry    RetryPolicy
	notifier ChangeNotifier
	cfg      LedgerConfig
	logger   *applog.Logger
}

func NewLedger(store ports.Store, cfg LedgerConfig, retry RetryPolicy, notifier ChangeNotifier, logger *applog.Logger) *Ledger {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Ledger{
		store:    store,
		retry:    retry,
		notifier: notifierOrNop(notifier),
		cfg:      cfg,
		logger:   logger.WithComponent(applog.ComponentLedger),
	}
}

// GenerateEvenSplit creates count equal installments for a client that has
// none yet, due every SplitSpacingDays starting on the day of now.
func (l *Ledger) GenerateEvenSplit(ctx context.Context, clientCode string, contracted core.Money, count int, now time.Time) (SplitResult, error) {
	if count < 1 {
		return SplitResult{}, fmt.Errorf("split %d installments: %w", count, core.ErrInvalidCount)
	}
	if err := contracted.Validate(); err != nil {
		return SplitResult{}, fmt.Errorf("contracted fee: %w", err)
	}
	if _, err := l.client(ctx, clientCode); err != nil {
		return SplitResult{}, err
	}
	existing, err := l.ListInstallments(ctx, clientCode)
	if err != nil {
		return SplitResult{}, err
	}
	if len(existing) > 0 {
		return SplitResult{}, fmt.Errorf("client %s: %w", clientCode, core.ErrScheduleExists)
	}

	amounts, err := l.splitAmounts(contracted, count)
	if err != nil {
		return SplitResult{}, err
	}

	first := core.DateOf(now)
	items := make([]core.Installment, count)
	for i := range items {
		items[i] = core.Installment{
			ClientCode: clientCode,
			Number:     i + 1,
			Amount:     amounts[i],
			DueDate:    first.AddDays(i * SplitSpacingDays),
		}
	}
	drift := contracted.Sub(core.Sum(amounts...))

	err = l.retry.Do(ctx, "create installments", func(ctx context.Context) error {
		return l.store.CreateInstallments(ctx, items)
	})
	if err != nil {
		return SplitResult{}, err
	}

	fields := applog.NewFields().
		WithInstallment(clientCode, 0, contracted.Cents).
		WithOperation(applog.OpSplit)
	fields[applog.FieldCount] = count
	if !drift.IsZero() {
		fields[applog.FieldDriftCents] = drift.Cents
		l.logger.WarnContext(ctx, "Even split does not add up to the contracted fee", fields.ToSlice()...)
	} else {
		l.logger.InfoContext(ctx, "Even split generated", fields.ToSlice()...)
	}
	l.notifier.Changed(ctx, "installments split")

	return SplitResult{Installments: items, Drift: drift}, nil
}

// splitAmounts divides contracted into count parts rounded half-up to cents.
// With AbsorbRemainder the last part takes the difference; when that would
// make it negative the parts are floored instead.
func (l *Ledger) splitAmounts(contracted core.Money, count int) ([]core.Money, error) {
	part, err := contracted.DivideEven(count)
	if err != nil {
		return nil, err
	}
	amounts := make([]core.Money, count)
	for i := range amounts {
		amounts[i] = part
	}
	if !l.cfg.AbsorbRemainder {
		return amounts, nil
	}

	last := contracted.Cents - part.Cents*int64(count-1)
	if last < 0 {
		floor := contracted.Cents / int64(count)
		for i := range amounts {
			amounts[i] = core.Money{Cents: floor}
		}
		last = floor + contracted.Cents%int64(count)
	}
	amounts[count-1] = core.Money{Cents: last}
	return amounts, nil
}

// AppendInstallment adds one installment numbered after the current maximum.
// It fails with core.ErrExceedsContract when the schedule would exceed the
// contracted fee; reaching it exactly is allowed.
func (l *Ledger) AppendInstallment(ctx context.Context, clientCode string, amount core.Money, dueDate core.Date, depositAccount string) (core.Installment, error) {
	if err := amount.Validate(); err != nil {
		return core.Installment{}, fmt.Errorf("installment amount: %w", err)
	}
	if err := dueDate.Validate(); err != nil {
		return core.Installment{}, fmt.Errorf("due date: %w", err)
	}
	client, err := l.client(ctx, clientCode)
	if err != nil {
		return core.Installment{}, err
	}
	existing, err := l.ListInstallments(ctx, clientCode)
	if err != nil {
		return core.Installment{}, err
	}

	total := sumAmounts(existing).Add(amount)
	if total.Cents > client.ContractedFee.Cents {
		return core.Installment{}, fmt.Errorf("total %s over fee %s: %w", total, client.ContractedFee, core.ErrExceedsContract)
	}

	inst, err := retryValue(ctx, l.retry, "append installment", func(ctx context.Context) (core.Installment, error) {
		return l.store.AppendInstallment(ctx, core.Installment{
			ClientCode:     clientCode,
			Amount:         amount,
			DueDate:        dueDate,
			DepositAccount: depositAccount,
		})
	})
	if err != nil {
		return core.Installment{}, err
	}

	l.logger.InfoContext(ctx, "Installment appended", applog.NewFields().
		WithInstallment(clientCode, inst.Number, amount.Cents).
		WithOperation(applog.OpAppend).
		ToSlice()...)
	l.notifier.Changed(ctx, "installment appended")
	return inst, nil
}

// UpdateInstallment overwrites amount and payment details. It does not check
// the new amount against the contracted fee.
func (l *Ledger) UpdateInstallment(ctx context.Context, clientCode string, number int, upd InstallmentUpdate) (core.Installment, error) {
	if number < 1 {
		return core.Installment{}, fmt.Errorf("installment %d: %w", number, core.ErrInvalidNumber)
	}
	if err := upd.Amount.Validate(); err != nil {
		return core.Installment{}, fmt.Errorf("installment amount: %w", err)
	}

	inst, err := retryValue(ctx, l.retry, "get installment", func(ctx context.Context) (core.Installment, error) {
		return l.store.GetInstallment(ctx, clientCode, number)
	})
	if err != nil {
		return core.Installment{}, err
	}

	inst.Amount = upd.Amount
	inst.PaymentDate = upd.PaymentDate
	inst.PaymentMethod = upd.PaymentMethod
	inst.DepositAccount = upd.DepositAccount
	inst.Paid = upd.Paid

	err = l.retry.Do(ctx, "update installment", func(ctx context.Context) error {
		return l.store.UpdateInstallment(ctx, inst)
	})
	if err != nil {
		return core.Installment{}, err
	}

	l.logger.InfoContext(ctx, "Installment updated", applog.NewFields().
		WithInstallment(clientCode, number, inst.Amount.Cents).
		WithOperation(applog.OpUpdate).
		ToSlice()...)
	l.notifier.Changed(ctx, "installment updated")
	return inst, nil
}

func (l *Ledger) ListInstallments(ctx context.Context, clientCode string) ([]core.Installment, error) {
	return retryValue(ctx, l.retry, "list installments", func(ctx context.Context) ([]core.Installment, error) {
		return l.store.ListInstallments(ctx, clientCode)
	})
}

// Balance returns the client's schedule with its totals.
func (l *Ledger) Balance(ctx context.Context, clientCode string) (core.LedgerStatus, error) {
	client, err := l.client(ctx, clientCode)
	if err != nil {
		return core.LedgerStatus{}, err
	}
	items, err := l.ListInstallments(ctx, clientCode)
	if err != nil {
		return core.LedgerStatus{}, err
	}

	status := core.LedgerStatus{Client: client, Installments: items}
	for _, inst := range items {
		status.Total = status.Total.Add(inst.Amount)
		if inst.Paid {
			status.Paid = status.Paid.Add(inst.Amount)
		} else {
			status.Outstanding = status.Outstanding.Add(inst.Amount)
		}
	}
	status.Mismatch = status.Total != client.ContractedFee
	return status, nil
}

// RemoveClientInstallments deletes the whole schedule of a client.
func (l *Ledger) RemoveClientInstallments(ctx context.Context, clientCode string) (int64, error) {
	n, err := retryValue(ctx, l.retry, "delete client installments", func(ctx context.Context) (int64, error) {
		return l.store.DeleteClientInstallments(ctx, clientCode)
	})
	if err != nil {
		return 0, err
	}
	l.logger.InfoContext(ctx, "Installments removed",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldClientCode, clientCode,
		applog.FieldCount, n)
	if n > 0 {
		l.notifier.Changed(ctx, "installments removed")
	}
	return n, nil
}

// Orphans lists installments whose client no longer exists.
func (l *Ledger) Orphans(ctx context.Context) ([]core.Installment, error) {
	clients, err := retryValue(ctx, l.retry, "list clients", l.store.ListClients)
	if err != nil {
		return nil, err
	}
	items, err := retryValue(ctx, l.retry, "list all installments", l.store.ListAllInstallments)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(clients))
	for _, c := range clients {
		known[c.Code] = struct{}{}
	}
	orphans := []core.Installment{}
	for _, inst := range items {
		if _, ok := known[inst.ClientCode]; !ok {
			orphans = append(orphans, inst)
		}
	}
	return orphans, nil
}

func (l *Ledger) client(ctx context.Context, code string) (core.Client, error) {
	return retryValue(ctx, l.retry, "get client", func(ctx context.Context) (core.Client, error) {
		return l.store.GetClient(ctx, code)
	})
}

func sumAmounts(items []core.Installment) core.Money {
	var total core.Money
	for _, inst := range items {
		total = total.Add(inst.Amount)
	}
	return total
}
