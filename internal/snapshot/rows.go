// Package snapshot renders full store dumps as tables for the backup sinks.
package snapshot

import (
	"strings"

	"honorarios/internal/core"
)

const (
	ClientsSheet      = "Clientes"
	InstallmentsSheet = "Parcelas"

	maskedSecret = "********"
)

var (
	clientHeader = []any{
		"Código", "Nome", "Contato", "CPF", "Senha e-Gov",
		"Tipo de Ação", "Valor Honorários", "Resumo do Caso", "Data de Cadastro",
	}
	installmentHeader = []any{
		"Código Cliente", "Parcela", "Valor", "Vencimento", "Data Pagamento",
		"Forma de Pagamento", "Conta Depósito", "Pago",
	}
)

// Table is one sheet of a snapshot: a header row followed by data rows.
type Table struct {
	Name string
	Rows [][]any
}

// Tables lays out a snapshot as the Clientes and Parcelas sheets.
func Tables(s core.Snapshot) []Table {
	clients := make([][]any, 0, len(s.Clients)+1)
	clients = append(clients, clientHeader)
	for _, c := range s.Clients {
		clients = append(clients, clientRow(c))
	}

	items := make([][]any, 0, len(s.Installments)+1)
	items = append(items, installmentHeader)
	for _, i := range s.Installments {
		items = append(items, installmentRow(i))
	}

	return []Table{
		{Name: ClientsSheet, Rows: clients},
		{Name: InstallmentsSheet, Rows: items},
	}
}

func clientRow(c core.Client) []any {
	return []any{
		c.Code,
		c.Name,
		c.Phone,
		c.TaxID,
		MaskSecret(c.Secret),
		c.CaseType,
		c.ContractedFee.Decimal().InexactFloat64(),
		c.CaseSummary,
		c.RegisteredOn.FormatDMY(),
	}
}

func installmentRow(i core.Installment) []any {
	return []any{
		i.ClientCode,
		i.Number,
		i.Amount.Decimal().InexactFloat64(),
		i.DueDate.FormatDMY(),
		i.PaymentDate.FormatDMY(),
		i.PaymentMethod,
		i.DepositAccount,
		yesNo(i.Paid),
	}
}

// MaskSecret hides a credential; an empty secret stays empty.
func MaskSecret(secret string) string {
	if strings.TrimSpace(secret) == "" {
		return ""
	}
	return maskedSecret
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}
