package http

import (
	"time"

	"honorarios/internal/core"
	"honorarios/internal/services"
	"honorarios/internal/snapshot"
)

// Amounts are sent as integer cents next to their display form.
type moneyView struct {
	Cents     int64  `json:"cents"`
	Formatted string `json:"formatted"`
}

func money(m core.Money) moneyView {
	return moneyView{Cents: m.Cents, Formatted: core.FormatBRL(m)}
}

type clientView struct {
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	TaxID         string    `json:"tax_id"`
	Secret        string    `json:"secret"`
	CaseType      string    `json:"case_type"`
	ContractedFee moneyView `json:"contracted_fee"`
	CaseSummary   string    `json:"case_summary"`
	RegisteredOn  string    `json:"registered_on"`
}

// clientOf renders c; the secret is masked unless reveal is set.
func clientOf(c core.Client, reveal bool) clientView {
	secret := snapshot.MaskSecret(c.Secret)
	if reveal {
		secret = c.Secret
	}
	return clientView{
		Code:          c.Code,
		Name:          c.Name,
		Phone:         c.Phone,
		TaxID:         c.TaxID,
		Secret:        secret,
		CaseType:      c.CaseType,
		ContractedFee: money(c.ContractedFee),
		CaseSummary:   c.CaseSummary,
		RegisteredOn:  c.RegisteredOn.FormatDMY(),
	}
}

func clientsOf(cs []core.Client) []clientView {
	out := make([]clientView, 0, len(cs))
	for _, c := range cs {
		out = append(out, clientOf(c, false))
	}
	return out
}

type installmentView struct {
	ClientCode     string    `json:"client_code"`
	Number         int       `json:"number"`
	Amount         moneyView `json:"amount"`
	DueDate        string    `json:"due_date"`
	PaymentDate    string    `json:"payment_date,omitempty"`
	PaymentMethod  string    `json:"payment_method,omitempty"`
	DepositAccount string    `json:"deposit_account,omitempty"`
	Paid           bool      `json:"paid"`
}

func installmentOf(i core.Installment) installmentView {
	return installmentView{
		ClientCode:     i.ClientCode,
		Number:         i.Number,
		Amount:         money(i.Amount),
		DueDate:        i.DueDate.FormatDMY(),
		PaymentDate:    i.PaymentDate.FormatDMY(),
		PaymentMethod:  i.PaymentMethod,
		DepositAccount: i.DepositAccount,
		Paid:           i.Paid,
	}
}

func installmentsOf(items []core.Installment) []installmentView {
	out := make([]installmentView, 0, len(items))
	for _, i := range items {
		out = append(out, installmentOf(i))
	}
	return out
}

type ledgerView struct {
	Client       clientView        `json:"client"`
	Installments []installmentView `json:"installments"`
	Total        moneyView         `json:"total"`
	Paid         moneyView         `json:"paid"`
	Outstanding  moneyView         `json:"outstanding"`
	Mismatch     bool              `json:"mismatch"`
	Warning      string            `json:"warning,omitempty"`
}

func ledgerOf(s core.LedgerStatus) ledgerView {
	v := ledgerView{
		Client:       clientOf(s.Client, true),
		Installments: installmentsOf(s.Installments),
		Total:        money(s.Total),
		Paid:         money(s.Paid),
		Outstanding:  money(s.Outstanding),
		Mismatch:     s.Mismatch,
	}
	if s.Mismatch {
		v.Warning = "installments total " + core.FormatBRL(s.Total) +
			" differs from contracted fee " + core.FormatBRL(s.Client.ContractedFee)
	}
	return v
}

type splitView struct {
	Installments []installmentView `json:"installments"`
	Drift        moneyView         `json:"drift"`
	Warning      string            `json:"warning,omitempty"`
}

func splitOf(r services.SplitResult) splitView {
	v := splitView{Installments: installmentsOf(r.Installments), Drift: money(r.Drift)}
	if !r.Drift.IsZero() {
		v.Warning = "installments do not add up to the contracted fee"
	}
	return v
}

type periodView struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	MonthName string    `json:"month_name"`
	Total     moneyView `json:"total"`
}

func periodsOf(ps []core.PeriodTotal) []periodView {
	out := make([]periodView, 0, len(ps))
	for _, p := range ps {
		out = append(out, periodView{Year: p.Year, Month: p.Month, MonthName: p.MonthName, Total: money(p.Total)})
	}
	return out
}

type overdueRowView struct {
	ClientCode     string    `json:"client_code"`
	ClientName     string    `json:"client_name"`
	Number         int       `json:"number"`
	Amount         moneyView `json:"amount"`
	DueDate        string    `json:"due_date"`
	DepositAccount string    `json:"deposit_account,omitempty"`
}

type overdueView struct {
	Rows  []overdueRowView `json:"rows"`
	Total moneyView        `json:"total"`
}

func overdueOf(r core.OverdueReport) overdueView {
	v := overdueView{Rows: make([]overdueRowView, 0, len(r.Rows)), Total: money(r.Total)}
	for _, row := range r.Rows {
		v.Rows = append(v.Rows, overdueRowView{
			ClientCode:     row.ClientCode,
			ClientName:     row.ClientName,
			Number:         row.Number,
			Amount:         money(row.Amount),
			DueDate:        row.DueDate.FormatDMY(),
			DepositAccount: row.DepositAccount,
		})
	}
	return v
}

type paidView struct {
	Periods []periodView `json:"periods"`
	Total   moneyView    `json:"total"`
}

type receivableRowView struct {
	ClientCode string    `json:"client_code"`
	ClientName string    `json:"client_name"`
	Number     int       `json:"number"`
	Amount     moneyView `json:"amount"`
	DueDate    string    `json:"due_date"`
}

type receivableView struct {
	Periods []periodView        `json:"periods"`
	Details []receivableRowView `json:"details"`
	Total   moneyView           `json:"total"`
}

func receivableOf(r core.ReceivableReport) receivableView {
	v := receivableView{
		Periods: periodsOf(r.Periods),
		Details: make([]receivableRowView, 0, len(r.Details)),
		Total:   money(r.Total),
	}
	for _, d := range r.Details {
		v.Details = append(v.Details, receivableRowView{
			ClientCode: d.ClientCode,
			ClientName: d.ClientName,
			Number:     d.Number,
			Amount:     money(d.Amount),
			DueDate:    d.DueDate.FormatDMY(),
		})
	}
	return v
}

type snapshotStatusView struct {
	Reason      string     `json:"reason,omitempty"`
	RequestedAt *time.Time `json:"requested_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func snapshotStatusOf(s services.SnapshotStatus) snapshotStatusView {
	v := snapshotStatusView{Reason: s.Reason}
	if !s.RequestedAt.IsZero() {
		t := s.RequestedAt
		v.RequestedAt = &t
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	return v
}
