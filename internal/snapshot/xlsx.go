package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
)

// ContentTypeXLSX is the media type of the workbook served over HTTP.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultSheet = "Sheet1"

// Workbook builds an in-memory workbook with one sheet per table. The caller
// must Close it.
func Workbook(s core.Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	for i, t := range Tables(s) {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.Name); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", t.Name, err)
		}
		for r, row := range t.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				_ = f.Close()
				return nil, err
			}
			if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("write %s row %d: %w", t.Name, r+1, err)
			}
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Encode writes the snapshot workbook to w.
func Encode(w io.Writer, s core.Snapshot) error {
	f, err := Workbook(s)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// XLSXWriter keeps the backup workbook on disk up to date.
type XLSXWriter struct {
	path   string
	logger *applog.Logger
}

func NewXLSXWriter(path string, logger *applog.Logger) *XLSXWriter {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &XLSXWriter{path: path, logger: logger.WithComponent(applog.ComponentSnapshot)}
}

func (w *XLSXWriter) Path() string { return w.path }

// WriteSnapshot replaces the workbook atomically: readers see either the old
// file or the new one.
func (w *XLSXWriter) WriteSnapshot(ctx context.Context, s core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Encode(tmp, s); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp workbook: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("replace workbook: %w", err)
	}

	w.logger.Debug("Workbook written",
		"path", w.path,
		applog.FieldCount, len(s.Installments))
	return nil
}
