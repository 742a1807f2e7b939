package core

import "time"

// PeriodFilter narrows period reports; zero fields mean "all".
type PeriodFilter struct {
	Month int // 1-12, 0 for all
	Year  int // 0 for all
}

func (f PeriodFilter) Matches(d Date) bool {
	if f.Month != 0 && d.Month() != f.Month {
		return false
	}
	if f.Year != 0 && d.Year() != f.Year {
		return false
	}
	return true
}

// PeriodTotal is an amount aggregated by calendar month.
type PeriodTotal struct {
	Year      int
	Month     int // 1-12
	MonthName string
	Total     Money
}

type OverdueRow struct {
	ClientCode     string
	ClientName     string
	Number         int
	Amount         Money
	DueDate        Date
	DepositAccount string
}

type OverdueReport struct {
	Rows  []OverdueRow
	Total Money
}

type PaidReport struct {
	Periods []PeriodTotal
	Total   Money
}

type ReceivableRow struct {
	ClientCode string
	ClientName string
	Number     int
	Amount     Money
	DueDate    Date
}

type ReceivableReport struct {
	Periods []PeriodTotal
	Details []ReceivableRow
	Total   Money
}

// LedgerStatus summarizes one client's installments against the contract.
type LedgerStatus struct {
	Client       Client
	Installments []Installment
	Total        Money
	Paid         Money
	Outstanding  Money
	// Mismatch is set when the installments do not add up to the contracted fee.
	Mismatch bool
}

// Snapshot is a full tabular dump of clients and installments.
type Snapshot struct {
	GeneratedAt  time.Time
	Clients      []Client
	Installments []Installment
}

// Document is a rendered report ready to be served or saved.
type Document struct {
	FileName    string
	ContentType string
	Bytes       []byte
}
