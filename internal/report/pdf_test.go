package report

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
)

func testRenderer(opts Options) *PDFRenderer {
	r := NewPDFRenderer(opts, applog.New(applog.Config{Level: slog.LevelError}))
	r.compress = false
	return r
}

func testClient() core.Client {
	return core.Client{
		Code:          "0007",
		Name:          "MARIA SILVA",
		CaseType:      "TRABALHISTA",
		ContractedFee: core.Money{Cents: 120000},
		RegisteredOn:  core.NewDate(2024, 1, 15),
	}
}

func TestRenderStatement(t *testing.T) {
	items := []core.Installment{
		{ClientCode: "0007", Number: 1, Amount: core.Money{Cents: 40000}, DueDate: core.NewDate(2024, 3, 1),
			PaymentDate: core.NewDate(2024, 3, 20), Paid: true},
		{ClientCode: "0007", Number: 2, Amount: core.Money{Cents: 40000}, DueDate: core.NewDate(2024, 3, 31)},
		{ClientCode: "0007", Number: 3, Amount: core.Money{Cents: 40000}, DueDate: core.NewDate(2024, 4, 30)},
	}

	doc, err := testRenderer(Options{OfficeName: "Escritorio Modelo"}).Render(testClient(), items)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if doc.FileName != "relatorio_parcelas_0007.pdf" {
		t.Errorf("FileName = %q", doc.FileName)
	}
	if doc.ContentType != ContentTypePDF {
		t.Errorf("ContentType = %q", doc.ContentType)
	}
	if !bytes.HasPrefix(doc.Bytes, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}

	for _, want := range []string{
		"Escritorio Modelo",
		"MARIA SILVA",
		"R$ 1.200,00",
		"20/03/2024",
		"Total a pagar: R$ 800,00",
		"gina 1 de 1",
	} {
		if !bytes.Contains(doc.Bytes, []byte(want)) {
			t.Errorf("PDF does not contain %q", want)
		}
	}
}

func TestRenderPaginates(t *testing.T) {
	var items []core.Installment
	due := core.NewDate(2024, 1, 10)
	for n := 1; n <= 40; n++ {
		items = append(items, core.Installment{ClientCode: "0007", Number: n, Amount: core.Money{Cents: 3000}, DueDate: due.AddDays(30 * (n - 1))})
	}

	doc, err := testRenderer(Options{}).Render(testClient(), items)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Contains(doc.Bytes, []byte("gina 2 de ")) {
		t.Error("expected a second page")
	}
	if bytes.Contains(doc.Bytes, []byte("{nb}")) {
		t.Error("page count alias was not replaced")
	}
	if !bytes.Contains(doc.Bytes, []byte("Total a pagar: R$ 1.200,00")) {
		t.Error("unexpected total")
	}
}

func TestRenderWithoutInstallments(t *testing.T) {
	doc, err := testRenderer(Options{}).Render(testClient(), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Contains(doc.Bytes, []byte("Total a pagar: R$ 0,00")) {
		t.Error("expected zero total")
	}
}

func TestMissingLogoIsIgnored(t *testing.T) {
	r := testRenderer(Options{LogoPath: filepath.Join(t.TempDir(), "missing.png")})
	if r.logoPath != "" {
		t.Fatalf("missing logo should be dropped, got %q", r.logoPath)
	}
	if _, err := r.Render(testClient(), nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func TestCompressedOutput(t *testing.T) {
	r := NewPDFRenderer(Options{}, applog.New(applog.Config{Level: slog.LevelError}))
	doc, err := r.Render(testClient(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(doc.Bytes, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
}
