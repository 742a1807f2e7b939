// Package google mirrors store snapshots into a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
	"honorarios/internal/ports"
	"honorarios/internal/snapshot"
)

const valueInputRaw = "RAW"

var ErrMissingCredentials = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")

// Mirror rewrites the Clientes and Parcelas sheets on every snapshot.
type Mirror struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *applog.Logger
}

var _ ports.SnapshotWriter = (*Mirror)(nil)

// Credentials resolves service account JSON from an inline value or a file.
func Credentials(inlineJSON, file string) ([]byte, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	file = strings.TrimSpace(file)
	switch {
	case inlineJSON != "":
		return []byte(inlineJSON), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, ErrMissingCredentials
	}
}

// New creates a mirror authenticated with service account credentials.
func New(ctx context.Context, spreadsheetID string, credentialsJSON []byte, logger *applog.Logger) (*Mirror, error) {
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, logger)
}

func NewWithService(svc *gsheet.Service, spreadsheetID string, logger *applog.Logger) (*Mirror, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Mirror{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger.WithComponent(applog.ComponentSheets),
	}, nil
}

// WriteSnapshot creates missing sheets, clears them and writes every table
// from A1 with RAW input.
func (m *Mirror) WriteSnapshot(ctx context.Context, s core.Snapshot) error {
	tables := snapshot.Tables(s)
	if err := m.ensureSheets(ctx, tables); err != nil {
		return err
	}

	for _, t := range tables {
		if _, err := m.svc.Spreadsheets.Values.Clear(m.spreadsheetID, t.Name, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do(); err != nil {
			return fmt.Errorf("clear %s: %w", t.Name, err)
		}

		values := make([][]interface{}, len(t.Rows))
		for i, row := range t.Rows {
			values[i] = row
		}
		rng := fmt.Sprintf("%s!A1", t.Name)
		if _, err := m.svc.Spreadsheets.Values.Update(m.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
			ValueInputOption(valueInputRaw).Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %s: %w", t.Name, err)
		}
	}

	m.logger.InfoContext(ctx, "Spreadsheet mirror updated",
		"spreadsheet_id", m.spreadsheetID,
		applog.FieldCount, len(s.Installments))
	return nil
}

func (m *Mirror) ensureSheets(ctx context.Context, tables []snapshot.Table) error {
	ss, err := m.svc.Spreadsheets.Get(m.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	existing := make(map[string]bool, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = true
		}
	}

	var reqs []*gsheet.Request
	for _, t := range tables {
		if existing[t.Name] {
			continue
		}
		reqs = append(reqs, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: t.Name}},
		})
	}
	if len(reqs) == 0 {
		return nil
	}

	m.logger.InfoContext(ctx, "Creating missing sheets", applog.FieldCount, len(reqs))
	_, err = m.svc.Spreadsheets.BatchUpdate(m.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add sheets: %w", err)
	}
	return nil
}
