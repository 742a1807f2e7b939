package storage

import (
	"context"
)

const clientColumns = `code, name, phone, tax_id, secret, case_type, contracted_fee_cents, case_summary, registered_on`

const installmentColumns = `client_code, number, amount_cents, due_date, payment_date, payment_method, deposit_account, paid`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClient(row rowScanner) (Client, error) {
	var c Client
	err := row.Scan(
		&c.Code,
		&c.Name,
		&c.Phone,
		&c.TaxID,
		&c.Secret,
		&c.CaseType,
		&c.ContractedFeeCents,
		&c.CaseSummary,
		&c.RegisteredOn,
	)
	return c, err
}

func scanInstallment(row rowScanner, extra ...interface{}) (Installment, error) {
	var i Installment
	dest := []interface{}{
		&i.ClientCode,
		&i.Number,
		&i.AmountCents,
		&i.DueDate,
		&i.PaymentDate,
		&i.PaymentMethod,
		&i.DepositAccount,
		&i.Paid,
	}
	err := row.Scan(append(dest, extra...)...)
	return i, err
}

const getMaxClientCode = `-- name: GetMaxClientCode :one
SELECT CAST(COALESCE(MAX(CAST(code AS INTEGER)), 0) AS INTEGER) FROM clients
`

func (q *Queries) GetMaxClientCode(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, getMaxClientCode)
	var max int64
	err := row.Scan(&max)
	return max, err
}

const createClient = `-- name: CreateClient :exec
INSERT INTO clients (code, name, phone, tax_id, secret, case_type, contracted_fee_cents, case_summary, registered_on)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateClientParams struct {
	Code               string
	Name               string
	Phone              string
	TaxID              string
	Secret             string
	CaseType           string
	ContractedFeeCents int64
	CaseSummary        string
	RegisteredOn       string
}

func (q *Queries) CreateClient(ctx context.Context, arg CreateClientParams) error {
	_, err := q.db.ExecContext(ctx, createClient,
		arg.Code,
		arg.Name,
		arg.Phone,
		arg.TaxID,
		arg.Secret,
		arg.CaseType,
		arg.ContractedFeeCents,
		arg.CaseSummary,
		arg.RegisteredOn,
	)
	return err
}

const getClient = `-- name: GetClient :one
SELECT ` + clientColumns + ` FROM clients WHERE code = ?
`

func (q *Queries) GetClient(ctx context.Context, code string) (Client, error) {
	return scanClient(q.db.QueryRowContext(ctx, getClient, code))
}

const updateClient = `-- name: UpdateClient :execrows
UPDATE clients
SET name = ?, phone = ?, tax_id = ?, secret = ?, case_type = ?,
    contracted_fee_cents = ?, case_summary = ?, registered_on = ?
WHERE code = ?
`

type UpdateClientParams = CreateClientParams

func (q *Queries) UpdateClient(ctx context.Context, arg UpdateClientParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateClient,
		arg.Name,
		arg.Phone,
		arg.TaxID,
		arg.Secret,
		arg.CaseType,
		arg.ContractedFeeCents,
		arg.CaseSummary,
		arg.RegisteredOn,
		arg.Code,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteClient = `-- name: DeleteClient :execrows
DELETE FROM clients WHERE code = ?
`

func (q *Queries) DeleteClient(ctx context.Context, code string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteClient, code)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listClients = `-- name: ListClients :many
SELECT ` + clientColumns + ` FROM clients ORDER BY code
`

func (q *Queries) ListClients(ctx context.Context) ([]Client, error) {
	return q.queryClients(ctx, listClients)
}

const searchClients = `-- name: SearchClients :many
SELECT ` + clientColumns + ` FROM clients
WHERE UPPER(name) LIKE '%' || UPPER(?) || '%'
ORDER BY code
`

func (q *Queries) SearchClients(ctx context.Context, term string) ([]Client, error) {
	return q.queryClients(ctx, searchClients, term)
}

func (q *Queries) queryClients(ctx context.Context, query string, args ...interface{}) ([]Client, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createInstallment = `-- name: CreateInstallment :exec
INSERT INTO installments (client_code, number, amount_cents, due_date, payment_date, payment_method, deposit_account, paid)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateInstallment(ctx context.Context, arg Installment) error {
	_, err := q.db.ExecContext(ctx, createInstallment,
		arg.ClientCode,
		arg.Number,
		arg.AmountCents,
		arg.DueDate,
		arg.PaymentDate,
		arg.PaymentMethod,
		arg.DepositAccount,
		arg.Paid,
	)
	return err
}

const getMaxInstallmentNumber = `-- name: GetMaxInstallmentNumber :one
SELECT CAST(COALESCE(MAX(number), 0) AS INTEGER) FROM installments WHERE client_code = ?
`

func (q *Queries) GetMaxInstallmentNumber(ctx context.Context, clientCode string) (int64, error) {
	row := q.db.QueryRowContext(ctx, getMaxInstallmentNumber, clientCode)
	var max int64
	err := row.Scan(&max)
	return max, err
}

const getInstallment = `-- name: GetInstallment :one
SELECT ` + installmentColumns + ` FROM installments WHERE client_code = ? AND number = ?
`

func (q *Queries) GetInstallment(ctx context.Context, clientCode string, number int64) (Installment, error) {
	return scanInstallment(q.db.QueryRowContext(ctx, getInstallment, clientCode, number))
}

const updateInstallment = `-- name: UpdateInstallment :execrows
UPDATE installments
SET amount_cents = ?, due_date = ?, payment_date = ?, payment_method = ?, deposit_account = ?, paid = ?
WHERE client_code = ? AND number = ?
`

func (q *Queries) UpdateInstallment(ctx context.Context, arg Installment) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateInstallment,
		arg.AmountCents,
		arg.DueDate,
		arg.PaymentDate,
		arg.PaymentMethod,
		arg.DepositAccount,
		arg.Paid,
		arg.ClientCode,
		arg.Number,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listInstallmentsByClient = `-- name: ListInstallmentsByClient :many
SELECT ` + installmentColumns + ` FROM installments WHERE client_code = ? ORDER BY number
`

func (q *Queries) ListInstallmentsByClient(ctx context.Context, clientCode string) ([]Installment, error) {
	return q.queryInstallments(ctx, listInstallmentsByClient, clientCode)
}

const listAllInstallments = `-- name: ListAllInstallments :many
SELECT ` + installmentColumns + ` FROM installments ORDER BY rowid
`

func (q *Queries) ListAllInstallments(ctx context.Context) ([]Installment, error) {
	return q.queryInstallments(ctx, listAllInstallments)
}

func (q *Queries) queryInstallments(ctx context.Context, query string, args ...interface{}) ([]Installment, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Installment
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listInstallmentsWithClient = `-- name: ListInstallmentsWithClient :many
SELECT i.client_code, i.number, i.amount_cents, i.due_date, i.payment_date,
       i.payment_method, i.deposit_account, i.paid, c.name
FROM installments i
INNER JOIN clients c ON c.code = i.client_code
ORDER BY i.rowid
`

func (q *Queries) ListInstallmentsWithClient(ctx context.Context) ([]InstallmentWithClient, error) {
	rows, err := q.db.QueryContext(ctx, listInstallmentsWithClient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InstallmentWithClient
	for rows.Next() {
		var name string
		i, err := scanInstallment(rows, &name)
		if err != nil {
			return nil, err
		}
		items = append(items, InstallmentWithClient{Installment: i, ClientName: name})
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteInstallmentsByClient = `-- name: DeleteInstallmentsByClient :execrows
DELETE FROM installments WHERE client_code = ?
`

func (q *Queries) DeleteInstallmentsByClient(ctx context.Context, clientCode string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteInstallmentsByClient, clientCode)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
