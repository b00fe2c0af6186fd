package storage

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Transaction struct {
	ID          int64
	Username    string
	Operation   string
	AmountCents int64
	OccurredAt  string
	Category    string
	Type        string
	Merchant    string
	Remark      string
}

type CustomBudget struct {
	Username   string
	ValueCents int64
}

const transactionColumns = `id, username, operation, amount_cents, occurred_at, category, type, merchant, remark`

const createTransaction = `
INSERT INTO transactions (username, operation, amount_cents, occurred_at, category, type, merchant, remark)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	Username    string
	Operation   string
	AmountCents int64
	OccurredAt  string
	Category    string
	Type        string
	Merchant    string
	Remark      string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.Username,
		arg.Operation,
		arg.AmountCents,
		arg.OccurredAt,
		arg.Category,
		arg.Type,
		arg.Merchant,
		arg.Remark,
	)
	var i Transaction
	err := scanTransaction(row, &i)
	return i, err
}

const listTransactionsByUser = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE username = ?
ORDER BY id`

func (q *Queries) ListTransactionsByUser(ctx context.Context, username string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByUser, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := scanTransaction(rows, &i); err != nil {
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

const listUsers = `
SELECT username FROM transactions
GROUP BY username
ORDER BY MIN(id)`

func (q *Queries) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, err
		}
		items = append(items, username)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCustomBudget = `
SELECT username, value_cents FROM custom_budgets
WHERE username = ?`

func (q *Queries) GetCustomBudget(ctx context.Context, username string) (CustomBudget, error) {
	row := q.db.QueryRowContext(ctx, getCustomBudget, username)
	var i CustomBudget
	err := row.Scan(&i.Username, &i.ValueCents)
	return i, err
}

const upsertCustomBudget = `
INSERT INTO custom_budgets (username, value_cents, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(username) DO UPDATE SET
    value_cents = excluded.value_cents,
    updated_at  = excluded.updated_at`

type UpsertCustomBudgetParams struct {
	Username   string
	ValueCents int64
	UpdatedAt  time.Time
}

func (q *Queries) UpsertCustomBudget(ctx context.Context, arg UpsertCustomBudgetParams) error {
	_, err := q.db.ExecContext(ctx, upsertCustomBudget, arg.Username, arg.ValueCents, arg.UpdatedAt)
	return err
}

const deleteCustomBudget = `
DELETE FROM custom_budgets WHERE username = ?`

func (q *Queries) DeleteCustomBudget(ctx context.Context, username string) error {
	_, err := q.db.ExecContext(ctx, deleteCustomBudget, username)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s scanner, i *Transaction) error {
	return s.Scan(
		&i.ID,
		&i.Username,
		&i.Operation,
		&i.AmountCents,
		&i.OccurredAt,
		&i.Category,
		&i.Type,
		&i.Merchant,
		&i.Remark,
	)
}
