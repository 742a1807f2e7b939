package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDMY(t *testing.T) {
	d, err := ParseDMY("15/03/2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2024 || d.Month() != 3 || d.Day() != 15 {
		t.Fatalf("unexpected date: %v", d)
	}
	if d.FormatDMY() != "15/03/2024" {
		t.Fatalf("format = %q", d.FormatDMY())
	}

	empty, err := ParseDMY("  ")
	if err != nil || !empty.IsZero() {
		t.Fatalf("empty input should give zero date, got %v (err=%v)", empty, err)
	}
	if empty.FormatDMY() != "" {
		t.Fatalf("zero date should format as empty string")
	}

	for _, bad := range []string{"2024-03-15", "31/02/2024", "abc"} {
		if _, err := ParseDMY(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("zero should be accepted, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func validClient() Client {
	return Client{
		Code:          "0001",
		Name:          "MARIA",
		Phone:         "(11) 91234-5678",
		TaxID:         "123.456.789-01",
		ContractedFee: Money{Cents: 120000},
		RegisteredOn:  NewDate(2024, 1, 10),
	}
}

func TestClientValidate(t *testing.T) {
	if err := validClient().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Client)
		want   error
	}{
		{"missing code", func(c *Client) { c.Code = "" }, ErrEmptyCode},
		{"missing name", func(c *Client) { c.Name = "  " }, ErrEmptyName},
		{"short phone", func(c *Client) { c.Phone = "1199999" }, ErrInvalidPhone},
		{"short tax id", func(c *Client) { c.TaxID = "1234" }, ErrInvalidTaxID},
		{"negative fee", func(c *Client) { c.ContractedFee = Money{Cents: -5} }, ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validClient()
			tc.mutate(&c)
			if err := c.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestClientNormalize(t *testing.T) {
	c := Client{
		Name:        " maria souza ",
		Phone:       "11912345678",
		TaxID:       "12345678901",
		Secret:      "abc",
		CaseType:    "trabalhista",
		CaseSummary: "rescisão",
	}.Normalize()

	if c.Name != "MARIA SOUZA" || c.CaseType != "TRABALHISTA" || c.Secret != "ABC" || c.CaseSummary != "RESCISÃO" {
		t.Fatalf("text fields not upper-cased: %+v", c)
	}
	if c.Phone != "(11) 91234-5678" {
		t.Fatalf("phone = %q", c.Phone)
	}
	if c.TaxID != "123.456.789-01" {
		t.Fatalf("tax id = %q", c.TaxID)
	}
}

func TestInstallmentOverdue(t *testing.T) {
	tests := []struct {
		name string
		due  Date
		paid bool
		now  time.Time
		want bool
	}{
		{"due yesterday", NewDate(2024, 5, 9), false, time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC), true},
		{"paid", NewDate(2024, 5, 9), true, time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC), false},
		{"due today after midnight", NewDate(2024, 5, 10), false, time.Date(2024, 5, 10, 0, 0, 1, 0, time.UTC), true},
		{"due today at midnight", NewDate(2024, 5, 10), false, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), false},
		{"due tomorrow", NewDate(2024, 5, 11), false, time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC), false},
		{"local zone wall clock", NewDate(2024, 5, 10), false, time.Date(2024, 5, 10, 8, 0, 0, 0, time.FixedZone("BRT", -3*3600)), true},
		{"local evening before due day", NewDate(2024, 5, 11), false, time.Date(2024, 5, 10, 22, 0, 0, 0, time.FixedZone("BRT", -3*3600)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := Installment{ClientCode: "0001", Number: 1, Amount: Money{Cents: 100}, DueDate: tt.due, Paid: tt.paid}
			if got := inst.IsOverdue(tt.now); got != tt.want {
				t.Errorf("IsOverdue(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestInstallmentSettlementDate(t *testing.T) {
	inst := Installment{DueDate: NewDate(2024, 1, 5)}
	if !inst.SettlementDate().Equal(inst.DueDate.Time) {
		t.Fatalf("without payment date the due date is used")
	}
	inst.PaymentDate = NewDate(2024, 3, 2)
	if inst.SettlementDate().Month() != 3 {
		t.Fatalf("payment date should win, got %v", inst.SettlementDate())
	}
}
