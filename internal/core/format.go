package core

import (
	"strings"
	"time"
	"unicode"
)

const (
	phoneDigits = 11
	taxIDDigits = 11

	// FormattedPhoneLen is the length of "(DD) DDDDD-DDDD".
	FormattedPhoneLen = 15
	// FormattedTaxIDLen is the length of "DDD.DDD.DDD-DD".
	FormattedTaxIDLen = 14
)

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// FormatPhone renders an 11 digit phone number as "(DD) DDDDD-DDDD". Any other
// input is returned as its bare digits.
func FormatPhone(raw string) string {
	d := digitsOnly(raw)
	if len(d) != phoneDigits {
		return d
	}
	return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
}

// FormatTaxID renders an 11 digit CPF as "DDD.DDD.DDD-DD". Any other input is
// returned as its bare digits.
func FormatTaxID(raw string) string {
	d := digitsOnly(raw)
	if len(d) != taxIDDigits {
		return d
	}
	return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
}

func ValidatePhone(phone string) error {
	if len(FormatPhone(phone)) != FormattedPhoneLen {
		return ErrInvalidPhone
	}
	return nil
}

func ValidateTaxID(taxID string) error {
	if len(FormatTaxID(taxID)) != FormattedTaxIDLen {
		return ErrInvalidTaxID
	}
	return nil
}

// Portuguese month names, accepted as filter input next to the English ones.
var ptMonths = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// MonthName returns the full month name used by the period reports.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return time.Month(month).String()
}

// ParseMonthName resolves a month given as a number, an English name or a
// Portuguese name (case-insensitive). It returns 0 when the input is unknown.
func ParseMonthName(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	if allDigits(s) {
		n := 0
		for _, r := range s {
			n = n*10 + int(r-'0')
			if n > 12 {
				return 0
			}
		}
		return n
	}
	for m := 1; m <= 12; m++ {
		if s == strings.ToLower(time.Month(m).String()) || s == ptMonths[m-1] {
			return m
		}
	}
	return 0
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
