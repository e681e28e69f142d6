package db

import (
	"context"
	"database/sql"
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

const insertQuote = `
INSERT INTO quotes (store_id, ingredient, cents, currency, method, confidence, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type InsertQuoteParams struct {
	StoreID    string
	Ingredient string
	Cents      int64
	Currency   string
	Method     string
	Confidence float64
	CreatedAt  int64
}

func (q *Queries) InsertQuote(ctx context.Context, arg InsertQuoteParams) error {
	_, err := q.db.ExecContext(ctx, insertQuote,
		arg.StoreID,
		arg.Ingredient,
		arg.Cents,
		arg.Currency,
		arg.Method,
		arg.Confidence,
		arg.CreatedAt,
	)
	return err
}

const listRecentQuotes = `
SELECT store_id, ingredient, cents, currency, method, confidence, created_at
FROM quotes
ORDER BY created_at DESC
LIMIT ?
`

type ListRecentQuotesRow struct {
	StoreID    string
	Ingredient string
	Cents      int64
	Currency   string
	Method     string
	Confidence float64
	CreatedAt  int64
}

func (q *Queries) ListRecentQuotes(ctx context.Context, limit int64) ([]ListRecentQuotesRow, error) {
	rows, err := q.db.QueryContext(ctx, listRecentQuotes, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListRecentQuotesRow
	for rows.Next() {
		var i ListRecentQuotesRow
		if err := rows.Scan(
			&i.StoreID,
			&i.Ingredient,
			&i.Cents,
			&i.Currency,
			&i.Method,
			&i.Confidence,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listQuotesForIngredient = `
SELECT store_id, ingredient, cents, currency, method, confidence, created_at
FROM quotes
WHERE ingredient = ?
ORDER BY created_at DESC
LIMIT ?
`

func (q *Queries) ListQuotesForIngredient(ctx context.Context, ingredient string, limit int64) ([]ListRecentQuotesRow, error) {
	rows, err := q.db.QueryContext(ctx, listQuotesForIngredient, ingredient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListRecentQuotesRow
	for rows.Next() {
		var i ListRecentQuotesRow
		if err := rows.Scan(
			&i.StoreID,
			&i.Ingredient,
			&i.Cents,
			&i.Currency,
			&i.Method,
			&i.Confidence,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
