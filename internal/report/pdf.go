// Package report renders client installment statements as PDF documents.
package report

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/go-pdf/fpdf"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
	"honorarios/internal/ports"
)

const (
	ContentTypePDF = "application/pdf"

	fontFamily = "Arial"
	rowHeight  = 10.0
	logoWidth  = 33.0
)

// Column widths in mm, matching the A4 printable width used by the layout.
var columns = []struct {
	title string
	width float64
}{
	{"Nº da Parcela", 30},
	{"Valor", 35},
	{"Data de Vencimento", 45},
	{"Pagamento", 30},
	{"Data do Pagamento", 50},
}

type Options struct {
	OfficeName string
	LogoPath   string
}

// PDFRenderer produces the "Relatório de Parcelas" statement.
type PDFRenderer struct {
	officeName string
	logoPath   string
	compress   bool
	logger     *applog.Logger
}

var _ ports.ReportRenderer = (*PDFRenderer)(nil)

func NewPDFRenderer(opts Options, logger *applog.Logger) *PDFRenderer {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentReport)

	logo := opts.LogoPath
	if logo != "" {
		if _, err := os.Stat(logo); err != nil {
			logger.Warn("Report logo unavailable, rendering without it",
				"path", logo,
				applog.FieldError, err.Error())
			logo = ""
		}
	}
	return &PDFRenderer{
		officeName: opts.OfficeName,
		logoPath:   logo,
		compress:   true,
		logger:     logger,
	}
}

// FileName is the download name of a client's statement.
func FileName(clientCode string) string {
	return "relatorio_parcelas_" + clientCode + ".pdf"
}

// Render lays out the client header, one table row per installment and the
// total still to be paid.
func (r *PDFRenderer) Render(c core.Client, installments []core.Installment) (core.Document, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle("Relatório de Parcelas", true)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		if r.logoPath != "" {
			pdf.ImageOptions(r.logoPath, 10, 8, logoWidth, 0, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
		}
		pdf.SetFont(fontFamily, "B", 12)
		if r.officeName != "" {
			pdf.CellFormat(0, rowHeight, tr(r.officeName), "", 1, "C", false, 0, "")
		}
		pdf.CellFormat(0, rowHeight, tr("Relatório de Parcelas"), "", 1, "C", false, 0, "")
		pdf.Ln(10)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
		pdf.CellFormat(0, rowHeight, tr(fmt.Sprintf("Página %d de {nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	title := func(s string) {
		pdf.SetFont(fontFamily, "B", 12)
		pdf.CellFormat(0, rowHeight, tr(s), "", 1, "L", false, 0, "")
		pdf.Ln(5)
	}
	title("Nome do Cliente: " + c.Name)
	title("Tipo de Ação: " + c.CaseType)
	title("Valor Total dos Honorários: " + core.FormatBRL(c.ContractedFee))
	title("Detalhamento das Parcelas:")

	pdf.SetFont(fontFamily, "B", 12)
	for _, col := range columns {
		pdf.CellFormat(col.width, rowHeight, tr(col.title), "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(fontFamily, "", 12)
	var due core.Money
	for _, inst := range installments {
		paid, paidOn := "Não", ""
		if inst.Paid {
			paid, paidOn = "Sim", inst.SettlementDate().FormatDMY()
		} else {
			due = due.Add(inst.Amount)
		}
		cells := []string{
			strconv.Itoa(inst.Number),
			core.FormatBRL(inst.Amount),
			inst.DueDate.FormatDMY(),
			paid,
			paidOn,
		}
		for i, col := range columns {
			pdf.CellFormat(col.width, rowHeight, tr(cells[i]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(10)
	pdf.SetFont(fontFamily, "B", 12)
	pdf.CellFormat(0, rowHeight, tr("Total a pagar: "+core.FormatBRL(due)), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return core.Document{}, fmt.Errorf("render pdf for client %s: %w", c.Code, err)
	}

	r.logger.Debug("Report rendered",
		applog.FieldOperation, applog.OpRender,
		applog.FieldClientCode, c.Code,
		applog.FieldCount, len(installments),
		"bytes", buf.Len())

	return core.Document{
		FileName:    FileName(c.Code),
		ContentType: ContentTypePDF,
		Bytes:       buf.Bytes(),
	}, nil
}
