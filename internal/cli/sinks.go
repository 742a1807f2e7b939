package cli

import (
	"context"
	"fmt"

	"honorarios/internal/config"
	applog "honorarios/internal/log"
	"honorarios/internal/ports"
	gsheet "honorarios/internal/sheets/google"
	"honorarios/internal/snapshot"
)

// SnapshotSinks builds the configured snapshot destinations: the xlsx backup
// always, the Google Sheets mirror when a spreadsheet is configured.
func SnapshotSinks(ctx context.Context, cfg *config.Config, logger *applog.Logger) ([]ports.SnapshotWriter, error) {
	sinks := []ports.SnapshotWriter{snapshot.NewXLSXWriter(cfg.SnapshotXLSXPath, logger)}

	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
		return sinks, nil
	}

	creds, err := gsheet.Credentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("google sheets credentials: %w", err)
	}
	mirror, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, creds, logger)
	if err != nil {
		return nil, fmt.Errorf("google sheets client: %w", err)
	}
	logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return append(sinks, mirror), nil
}
