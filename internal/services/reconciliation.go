package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"honorarios/internal/cache"
	"honorarios/internal/core"
	applog "honorarios/internal/log"
	"honorarios/internal/ports"
)

// Reconciler computes the overdue, paid and receivable views straight from
// the store. Results are cached until the next mutation bumps the version.
type Reconciler struct {
	store  ports.Store
	retry  RetryPolicy
	cache  *cache.Versioned[any]
	logger *applog.Logger
}

func NewReconciler(store ports.Store, retry RetryPolicy, reports *cache.Versioned[any], logger *applog.Logger) *Reconciler {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if reports == nil {
		reports = cache.NewVersioned[any](64, time.Minute)
	}
	return &Reconciler{
		store:  store,
		retry:  retry,
		cache:  reports,
		logger: logger.WithComponent(applog.ComponentReconciliation),
	}
}

// Bump invalidates every cached report.
func (r *Reconciler) Bump() uint64 {
	return r.cache.Bump()
}

func cached[T any](ctx context.Context, r *Reconciler, key string, load func(context.Context) (T, error)) (T, error) {
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Overdue lists unpaid installments whose due date is before now, in store
// order; one due today counts once midnight has passed. Installments of
// deleted clients are left out.
func (r *Reconciler) Overdue(ctx context.Context, now time.Time) (core.OverdueReport, error) {
	wall := core.WallClock(now)
	today := core.DateOf(wall)
	// The result only changes when the day changes or midnight is left behind.
	key := fmt.Sprintf("overdue:%s:%t", today.FormatDMY(), wall.Equal(today.Time))
	return cached(ctx, r, key, func(ctx context.Context) (core.OverdueReport, error) {
		joined, err := r.joined(ctx)
		if err != nil {
			return core.OverdueReport{}, err
		}
		report := core.OverdueReport{Rows: []core.OverdueRow{}}
		for _, inst := range joined {
			if !inst.IsOverdue(wall) {
				continue
			}
			report.Rows = append(report.Rows, core.OverdueRow{
				ClientCode:     inst.ClientCode,
				ClientName:     inst.ClientName,
				Number:         inst.Number,
				Amount:         inst.Amount,
				DueDate:        inst.DueDate,
				DepositAccount: inst.DepositAccount,
			})
			report.Total = report.Total.Add(inst.Amount)
		}
		return report, nil
	})
}

// PaidByPeriod totals paid installments per month of their settlement date.
func (r *Reconciler) PaidByPeriod(ctx context.Context, filter core.PeriodFilter) (core.PaidReport, error) {
	return cached(ctx, r, fmt.Sprintf("paid:%d:%d", filter.Month, filter.Year), func(ctx context.Context) (core.PaidReport, error) {
		items, err := r.all(ctx)
		if err != nil {
			return core.PaidReport{}, err
		}
		periods := groupByPeriod(items, func(inst core.Installment) (core.Date, bool) {
			return inst.SettlementDate(), inst.Paid
		})

		report := core.PaidReport{Periods: []core.PeriodTotal{}}
		for _, p := range periods {
			if !filter.Matches(core.NewDate(p.Year, p.Month, 1)) {
				continue
			}
			report.Periods = append(report.Periods, p)
			report.Total = report.Total.Add(p.Total)
		}
		return report, nil
	})
}

// Receivable totals unpaid installments per due month. The period totals
// cover every unpaid installment; filter only narrows the detail rows.
func (r *Reconciler) Receivable(ctx context.Context, filter core.PeriodFilter) (core.ReceivableReport, error) {
	return cached(ctx, r, fmt.Sprintf("receivable:%d:%d", filter.Month, filter.Year), func(ctx context.Context) (core.ReceivableReport, error) {
		items, err := r.all(ctx)
		if err != nil {
			return core.ReceivableReport{}, err
		}
		report := core.ReceivableReport{
			Periods: groupByPeriod(items, func(inst core.Installment) (core.Date, bool) {
				return inst.DueDate, !inst.Paid
			}),
			Details: []core.ReceivableRow{},
		}
		for _, p := range report.Periods {
			report.Total = report.Total.Add(p.Total)
		}

		joined, err := r.joined(ctx)
		if err != nil {
			return core.ReceivableReport{}, err
		}
		for _, inst := range joined {
			if inst.Paid || !filter.Matches(inst.DueDate) {
				continue
			}
			report.Details = append(report.Details, core.ReceivableRow{
				ClientCode: inst.ClientCode,
				ClientName: inst.ClientName,
				Number:     inst.Number,
				Amount:     inst.Amount,
				DueDate:    inst.DueDate,
			})
		}
		return report, nil
	})
}

func (r *Reconciler) all(ctx context.Context) ([]core.Installment, error) {
	return retryValue(ctx, r.retry, "list all installments", r.store.ListAllInstallments)
}

func (r *Reconciler) joined(ctx context.Context) ([]core.InstallmentWithClient, error) {
	joined, err := retryValue(ctx, r.retry, "list installments with client", r.store.ListInstallmentsWithClient)
	if err != nil {
		return nil, err
	}
	r.logger.DebugContext(ctx, "Installments joined with clients", applog.FieldCount, len(joined))

	if all, err := r.all(ctx); err == nil && len(all) > len(joined) {
		r.logger.WarnContext(ctx, "Installments without a client left out of the report",
			applog.FieldCount, len(all)-len(joined))
	}
	return joined, nil
}

type periodKey struct{ year, month int }

// groupByPeriod sums the selected installments per calendar month of the date
// returned by pick, ordered by (year, month). Months with nothing selected are
// absent.
func groupByPeriod(items []core.Installment, pick func(core.Installment) (core.Date, bool)) []core.PeriodTotal {
	totals := make(map[periodKey]core.Money)
	for _, inst := range items {
		d, ok := pick(inst)
		if !ok || d.IsZero() {
			continue
		}
		k := periodKey{d.Year(), d.Month()}
		totals[k] = totals[k].Add(inst.Amount)
	}

	out := make([]core.PeriodTotal, 0, len(totals))
	for k, total := range totals {
		out = append(out, core.PeriodTotal{
			Year:      k.year,
			Month:     k.month,
			MonthName: core.MonthName(k.month),
			Total:     total,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}
