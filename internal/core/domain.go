package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the day/month/year layout used for persistence and display.
const DateLayout = "02/01/2006"

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Client struct {
		Code          string // zero-padded sequential code, immutable
		Name          string
		Phone         string
		TaxID         string
		Secret        string // e-gov credential
		CaseType      string
		ContractedFee Money
		CaseSummary   string
		RegisteredOn  Date
	}

	Installment struct {
		ClientCode     string
		Number         int // 1-based, sequential per client
		Amount         Money
		DueDate        Date
		PaymentDate    Date // zero until a payment is recorded
		PaymentMethod  string
		DepositAccount string
		Paid           bool
	}

	// InstallmentWithClient is an installment joined with its owner's name.
	InstallmentWithClient struct {
		Installment
		ClientName string
	}
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyCode       = errors.New("empty client code")
	ErrInvalidPhone    = errors.New("invalid phone: 11 digits required")
	ErrInvalidTaxID    = errors.New("invalid tax id: 11 digits required")
	ErrInvalidCount    = errors.New("installment count must be at least 1")
	ErrInvalidNumber   = errors.New("installment number must be at least 1")
	ErrExceedsContract = errors.New("installments total exceeds contracted fee")
	ErrScheduleExists  = errors.New("client already has installments")

	ErrClientNotFound      = errors.New("client not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrDuplicateClient     = errors.New("client code already exists")

	// ErrContention marks a transient storage failure (locked or busy store).
	ErrContention = errors.New("storage contention")
	// ErrStorageBusy is returned once retries on ErrContention are exhausted.
	ErrStorageBusy = errors.New("storage busy")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDMY parses a dd/mm/yyyy string. An empty string yields the zero Date.
func ParseDMY(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// FormatDMY renders the date as dd/mm/yyyy, or "" for the zero Date.
func (d Date) FormatDMY() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) String() string {
	return d.FormatDMY()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Validate accepts zero: installments and fees may legitimately be 0.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }

// Sum adds up amounts without any intermediate formatting.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

func (c Client) Validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return ErrEmptyCode
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if err := ValidatePhone(c.Phone); err != nil {
		return err
	}
	if err := ValidateTaxID(c.TaxID); err != nil {
		return err
	}
	if err := c.ContractedFee.Validate(); err != nil {
		return err
	}
	if c.RegisteredOn.IsZero() {
		return fmt.Errorf("registration date: %w", ErrInvalidDate)
	}
	return nil
}

// Normalize upper-cases the free-text fields and formats phone and tax id.
func (c Client) Normalize() Client {
	c.Name = strings.ToUpper(strings.TrimSpace(c.Name))
	c.Secret = strings.ToUpper(strings.TrimSpace(c.Secret))
	c.CaseType = strings.ToUpper(strings.TrimSpace(c.CaseType))
	c.CaseSummary = strings.ToUpper(strings.TrimSpace(c.CaseSummary))
	c.Phone = FormatPhone(c.Phone)
	c.TaxID = FormatTaxID(c.TaxID)
	return c
}

func (i Installment) Validate() error {
	if strings.TrimSpace(i.ClientCode) == "" {
		return ErrEmptyCode
	}
	if i.Number < 1 {
		return ErrInvalidNumber
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if err := i.DueDate.Validate(); err != nil {
		return fmt.Errorf("due date: %w", err)
	}
	return nil
}

// SettlementDate is the date a paid installment counts towards: the recorded
// payment date, or the due date when none was recorded.
func (i Installment) SettlementDate() Date {
	if !i.PaymentDate.IsZero() {
		return i.PaymentDate
	}
	return i.DueDate
}

// IsOverdue reports whether the installment is unpaid and its due date, taken
// as midnight, lies strictly before the wall-clock time of now. An installment
// due today is overdue from the first instant after midnight.
func (i Installment) IsOverdue(now time.Time) bool {
	if i.Paid {
		return false
	}
	return i.DueDate.Time.Before(WallClock(now))
}

// WallClock re-reads now's calendar fields in UTC, the zone dates are kept in.
func WallClock(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(),
		now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)
}
