package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"caixa/internal/core"
)

// CreateSale inserts a sale record and returns it with its id.
func (r *SQLiteRepository) CreateSale(ctx context.Context, s core.SaleRecord) (core.SaleRecord, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sales (owner, sale_date, description, amount, payment_method, customer, receipt_url, entry_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Owner, storeDate(s.Date), s.Description, s.Amount.String(),
		s.PaymentMethod, s.Customer, s.ReceiptURL, nullID(s.EntryID))
	if err != nil {
		return core.SaleRecord{}, fmt.Errorf("insert sale: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.SaleRecord{}, fmt.Errorf("sale insert id: %w", err)
	}
	s.ID = id

	slog.InfoContext(ctx, "Sale saved",
		"id", s.ID,
		"owner", s.Owner,
		"amount", s.Amount.String(),
		"entry_id", s.EntryID)

	return s, nil
}

func (r *SQLiteRepository) GetSale(ctx context.Context, owner string, id int64) (core.SaleRecord, error) {
	row := r.db.QueryRowContext(ctx, saleSelect+` WHERE id = ? AND owner = ?`, id, owner)
	return scanSale(row)
}

// GetSaleByEntry fetches the sale whose back-reference is entryID.
func (r *SQLiteRepository) GetSaleByEntry(ctx context.Context, owner string, entryID int64) (core.SaleRecord, error) {
	row := r.db.QueryRowContext(ctx, saleSelect+` WHERE owner = ? AND entry_id = ?`, owner, entryID)
	return scanSale(row)
}

func (r *SQLiteRepository) ListSales(ctx context.Context, owner string) ([]core.SaleRecord, error) {
	rows, err := r.db.QueryContext(ctx, saleSelect+` WHERE owner = ? ORDER BY sale_date DESC, id DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var sales []core.SaleRecord
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, nil
}

func (r *SQLiteRepository) UpdateSale(ctx context.Context, s core.SaleRecord) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sales
		SET sale_date = ?, description = ?, amount = ?, payment_method = ?, customer = ?, receipt_url = ?, entry_id = ?
		WHERE id = ? AND owner = ?`,
		storeDate(s.Date), s.Description, s.Amount.String(), s.PaymentMethod,
		s.Customer, s.ReceiptURL, nullID(s.EntryID), s.ID, s.Owner)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	return requireRow(res, "sale")
}

func (r *SQLiteRepository) DeleteSale(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	return requireRow(res, "sale")
}

const saleSelect = `
	SELECT id, owner, sale_date, description, amount, payment_method, customer, receipt_url, entry_id
	FROM sales`

func scanSale(row rowScanner) (core.SaleRecord, error) {
	var (
		s            core.SaleRecord
		date, amount string
		entryID      sql.NullInt64
	)
	err := row.Scan(&s.ID, &s.Owner, &date, &s.Description, &amount, &s.PaymentMethod, &s.Customer, &s.ReceiptURL, &entryID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SaleRecord{}, core.ErrNotFound
	}
	if err != nil {
		return core.SaleRecord{}, fmt.Errorf("scan sale: %w", err)
	}

	if s.Date, err = parseDate(date); err != nil {
		return core.SaleRecord{}, err
	}
	if s.Amount, err = core.MoneyFromString(amount); err != nil {
		return core.SaleRecord{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	if entryID.Valid {
		s.EntryID = entryID.Int64
	}
	return s, nil
}
