// Package http provides the JSON API over the ledger services.
//
// This file implements utilities for parsing and validating request data.
// Bodies may be JSON objects or form-encoded; amounts and dates are accepted
// in the office display formats.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"honorarios/internal/core"
	"honorarios/internal/services"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser reads the body once and serves fields from either JSON or
// form data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Has reports whether key was sent at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Amount parses key as Money. A missing or empty field is an error.
func (p *RequestBodyParser) Amount(key string) (core.Money, error) {
	m, err := core.ParseAmount(p.Get(key))
	if err != nil {
		return core.Money{}, fmt.Errorf("%s: %w", key, err)
	}
	return m, nil
}

// Date parses key as a dd/mm/yyyy or yyyy-mm-dd date; empty yields the zero Date.
func (p *RequestBodyParser) Date(key string) (core.Date, error) {
	d, err := parseDate(p.Get(key))
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// Int parses key as an integer.
func (p *RequestBodyParser) Int(key string) (int, error) {
	n, err := strconv.Atoi(p.Get(key))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, services.ErrInvalidInput)
	}
	return n, nil
}

// Bool accepts true/false, 1/0, sim/não.
func (p *RequestBodyParser) Bool(key string) (bool, error) {
	switch strings.ToLower(p.Get(key)) {
	case "", "false", "0", "nao", "não", "no":
		return false, nil
	case "true", "1", "sim", "yes":
		return true, nil
	default:
		return false, fmt.Errorf("%s must be a boolean: %w", key, services.ErrInvalidInput)
	}
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// parseDate accepts the display layout and ISO dates.
func parseDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, nil
	}
	if d, err := core.ParseDMY(s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return core.Date{}, core.ErrInvalidDate
	}
	return core.DateOf(t), nil
}

// ParsePeriodFilter reads month and year query parameters. Empty values and
// "all" select everything; month accepts a number, an English or a
// Portuguese name.
func ParsePeriodFilter(query url.Values) (core.PeriodFilter, error) {
	var f core.PeriodFilter

	if v := strings.TrimSpace(query.Get("month")); v != "" && !isAll(v) {
		f.Month = core.ParseMonthName(v)
		if f.Month == 0 {
			return f, fmt.Errorf("month %q: %w", v, core.ErrInvalidMonth)
		}
	}
	if v := strings.TrimSpace(query.Get("year")); v != "" && !isAll(v) {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return f, fmt.Errorf("year %q: %w", v, services.ErrInvalidInput)
		}
		f.Year = y
	}
	return f, nil
}

func isAll(s string) bool {
	switch strings.ToLower(s) {
	case "all", "todos", "todas":
		return true
	}
	return false
}

// parseInstallmentNumber reads the {number} path value.
func parseInstallmentNumber(r *http.Request) (int, error) {
	n, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("installment %q: %w", r.PathValue("number"), core.ErrInvalidNumber)
	}
	return n, nil
}
