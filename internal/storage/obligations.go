package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"caixa/internal/core"
)

// CreateObligation inserts a tax obligation and returns it with its id.
// (owner, period) is unique; inserting a duplicate period fails.
func (r *SQLiteRepository) CreateObligation(ctx context.Context, o core.TaxObligation) (core.TaxObligation, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tax_obligations (owner, period, due_date, amount, status, payment_date, receipt_url, entry_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Owner, o.Period, storeDate(o.DueDate), o.Amount.String(),
		string(o.Status), nullDate(o.PaymentDate), o.ReceiptURL, nullID(o.EntryID))
	if err != nil {
		return core.TaxObligation{}, fmt.Errorf("insert tax obligation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.TaxObligation{}, fmt.Errorf("tax obligation insert id: %w", err)
	}
	o.ID = id

	slog.InfoContext(ctx, "Tax obligation saved",
		"id", o.ID,
		"owner", o.Owner,
		"period", o.Period,
		"due_date", storeDate(o.DueDate))

	return o, nil
}

func (r *SQLiteRepository) GetObligation(ctx context.Context, owner string, id int64) (core.TaxObligation, error) {
	row := r.db.QueryRowContext(ctx, obligationSelect+` WHERE id = ? AND owner = ?`, id, owner)
	return scanObligation(row)
}

// GetObligationByPeriod fetches the obligation covering a competence period.
func (r *SQLiteRepository) GetObligationByPeriod(ctx context.Context, owner, period string) (core.TaxObligation, error) {
	row := r.db.QueryRowContext(ctx, obligationSelect+` WHERE owner = ? AND period = ?`, owner, period)
	return scanObligation(row)
}

// GetObligationByEntry fetches the obligation whose back-reference is entryID.
func (r *SQLiteRepository) GetObligationByEntry(ctx context.Context, owner string, entryID int64) (core.TaxObligation, error) {
	row := r.db.QueryRowContext(ctx, obligationSelect+` WHERE owner = ? AND entry_id = ?`, owner, entryID)
	return scanObligation(row)
}

func (r *SQLiteRepository) ListObligations(ctx context.Context, owner string) ([]core.TaxObligation, error) {
	rows, err := r.db.QueryContext(ctx, obligationSelect+` WHERE owner = ? ORDER BY period DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list tax obligations: %w", err)
	}
	defer rows.Close()
	return collectObligations(rows)
}

// ListPendingObligationsFrom returns pending obligations with due date on
// or after from, soonest first. Feeds the notification generator.
func (r *SQLiteRepository) ListPendingObligationsFrom(ctx context.Context, owner string, from core.Date) ([]core.TaxObligation, error) {
	rows, err := r.db.QueryContext(ctx,
		obligationSelect+` WHERE owner = ? AND status = 'pending' AND due_date >= ? ORDER BY due_date ASC`,
		owner, storeDate(from))
	if err != nil {
		return nil, fmt.Errorf("list pending tax obligations: %w", err)
	}
	defer rows.Close()
	return collectObligations(rows)
}

func (r *SQLiteRepository) UpdateObligation(ctx context.Context, o core.TaxObligation) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tax_obligations
		SET period = ?, due_date = ?, amount = ?, status = ?, payment_date = ?, receipt_url = ?, entry_id = ?
		WHERE id = ? AND owner = ?`,
		o.Period, storeDate(o.DueDate), o.Amount.String(), string(o.Status),
		nullDate(o.PaymentDate), o.ReceiptURL, nullID(o.EntryID), o.ID, o.Owner)
	if err != nil {
		return fmt.Errorf("update tax obligation: %w", err)
	}
	return requireRow(res, "tax obligation")
}

func (r *SQLiteRepository) DeleteObligation(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tax_obligations WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete tax obligation: %w", err)
	}
	return requireRow(res, "tax obligation")
}

const obligationSelect = `
	SELECT id, owner, period, due_date, amount, status, payment_date, receipt_url, entry_id
	FROM tax_obligations`

func scanObligation(row rowScanner) (core.TaxObligation, error) {
	var (
		o           core.TaxObligation
		due, amount string
		status      string
		paymentDate sql.NullString
		entryID     sql.NullInt64
	)
	err := row.Scan(&o.ID, &o.Owner, &o.Period, &due, &amount, &status, &paymentDate, &o.ReceiptURL, &entryID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TaxObligation{}, core.ErrNotFound
	}
	if err != nil {
		return core.TaxObligation{}, fmt.Errorf("scan tax obligation: %w", err)
	}

	o.Status = core.ObligationStatus(status)
	if o.DueDate, err = parseDate(due); err != nil {
		return core.TaxObligation{}, err
	}
	if o.Amount, err = core.MoneyFromString(amount); err != nil {
		return core.TaxObligation{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	if paymentDate.Valid {
		if o.PaymentDate, err = parseDate(paymentDate.String); err != nil {
			return core.TaxObligation{}, err
		}
	}
	if entryID.Valid {
		o.EntryID = entryID.Int64
	}
	return o, nil
}

func collectObligations(rows *sql.Rows) ([]core.TaxObligation, error) {
	var obligations []core.TaxObligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		obligations = append(obligations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tax obligations: %w", err)
	}
	return obligations, nil
}

func nullDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return storeDate(d)
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
