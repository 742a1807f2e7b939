package snapshot

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
)

func testSnapshot() core.Snapshot {
	return core.Snapshot{
		GeneratedAt: time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC),
		Clients: []core.Client{
			{
				Code:          "0001",
				Name:          "MARIA SILVA",
				Phone:         "(11) 98765-4321",
				TaxID:         "123.456.789-01",
				Secret:        "SENHA123",
				CaseType:      "TRABALHISTA",
				ContractedFee: core.Money{Cents: 120000},
				RegisteredOn:  core.NewDate(2024, 1, 15),
			},
			{Code: "0002", Name: "JOSE SOUZA", RegisteredOn: core.NewDate(2024, 2, 1)},
		},
		Installments: []core.Installment{
			{ClientCode: "0001", Number: 1, Amount: core.Money{Cents: 40000}, DueDate: core.NewDate(2024, 3, 1),
				PaymentDate: core.NewDate(2024, 3, 5), PaymentMethod: "PIX", Paid: true},
			{ClientCode: "0001", Number: 2, Amount: core.Money{Cents: 40000}, DueDate: core.NewDate(2024, 3, 31)},
		},
	}
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelError})
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"SENHA123", maskedSecret},
		{"x", maskedSecret},
	}
	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTablesLayout(t *testing.T) {
	tables := Tables(testSnapshot())
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}
	if tables[0].Name != ClientsSheet || tables[1].Name != InstallmentsSheet {
		t.Fatalf("unexpected sheet names %q, %q", tables[0].Name, tables[1].Name)
	}
	if len(tables[0].Rows) != 3 {
		t.Errorf("clients: expected header + 2 rows, got %d", len(tables[0].Rows))
	}
	if len(tables[1].Rows) != 3 {
		t.Errorf("installments: expected header + 2 rows, got %d", len(tables[1].Rows))
	}
	for _, v := range tables[0].Rows[1] {
		if v == "SENHA123" {
			t.Fatal("secret exported in clear")
		}
	}
	if got := tables[1].Rows[2][4]; got != "" {
		t.Errorf("unset payment date should be empty, got %v", got)
	}
}

func TestXLSXWriterWritesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "backup.xlsx")
	w := NewXLSXWriter(path, quietLogger())

	if err := w.WriteSnapshot(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	clients, err := f.GetRows(ClientsSheet)
	if err != nil {
		t.Fatalf("GetRows(%s): %v", ClientsSheet, err)
	}
	if len(clients) != 3 {
		t.Fatalf("expected 3 client rows, got %d", len(clients))
	}
	if clients[0][0] != "Código" {
		t.Errorf("unexpected header %q", clients[0][0])
	}
	row := clients[1]
	if row[0] != "0001" || row[1] != "MARIA SILVA" {
		t.Errorf("unexpected client row %v", row)
	}
	if row[4] != maskedSecret {
		t.Errorf("secret cell = %q, want masked", row[4])
	}
	if row[8] != "15/01/2024" {
		t.Errorf("registration date = %q, want 15/01/2024", row[8])
	}

	items, err := f.GetRows(InstallmentsSheet)
	if err != nil {
		t.Fatalf("GetRows(%s): %v", InstallmentsSheet, err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 installment rows, got %d", len(items))
	}
	if items[1][3] != "01/03/2024" || items[1][4] != "05/03/2024" || items[1][7] != "Sim" {
		t.Errorf("unexpected paid row %v", items[1])
	}
	if items[2][7] != "Não" {
		t.Errorf("unexpected unpaid row %v", items[2])
	}
}

func TestXLSXWriterReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backup.xlsx")
	w := NewXLSXWriter(path, quietLogger())
	ctx := context.Background()

	if err := w.WriteSnapshot(ctx, testSnapshot()); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteSnapshot(ctx, core.Snapshot{}); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(ClientsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("expected only the header after an empty export, got %d rows", len(rows))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestXLSXWriterCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "backup.xlsx")
	if err := NewXLSXWriter(path, quietLogger()).WriteSnapshot(ctx, testSnapshot()); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("workbook should not exist")
	}
}

func TestEncodeProducesReadableWorkbook(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, testSnapshot()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	if got := f.GetSheetList(); len(got) != 2 || got[0] != ClientsSheet || got[1] != InstallmentsSheet {
		t.Errorf("unexpected sheets %v", got)
	}
}
