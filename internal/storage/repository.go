package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"caixa/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteRepository is the owner-scoped relational store behind the
// ledger, tax obligation and sale services.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func storeDate(d core.Date) string {
	return d.Format(dateLayout)
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}

// CreateEntry inserts a ledger entry and returns it with its assigned id.
func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (owner, kind, entry_date, amount, description, category, payment_method, linked_kind, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Owner, string(e.Kind), storeDate(e.Date), e.Amount.String(),
		e.Description, e.Category, e.PaymentMethod, string(e.LinkedKind), now, now)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("insert ledger entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("ledger entry insert id: %w", err)
	}

	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now

	slog.InfoContext(ctx, "Ledger entry saved",
		"id", e.ID,
		"owner", e.Owner,
		"kind", e.Kind,
		"amount", e.Amount.String())

	return e, nil
}

// GetEntry fetches one entry by id, scoped to owner.
func (r *SQLiteRepository) GetEntry(ctx context.Context, owner string, id int64) (core.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner, kind, entry_date, amount, description, category, payment_method, linked_kind, created_at, updated_at
		FROM ledger_entries WHERE id = ? AND owner = ?`, id, owner)
	return scanEntry(row)
}

// ListEntries returns all of an owner's entries, newest first.
func (r *SQLiteRepository) ListEntries(ctx context.Context, owner string) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, kind, entry_date, amount, description, category, payment_method, linked_kind, created_at, updated_at
		FROM ledger_entries WHERE owner = ? ORDER BY entry_date DESC, id DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListEntriesBetween returns an owner's entries with date in [from, to].
func (r *SQLiteRepository) ListEntriesBetween(ctx context.Context, owner string, from, to core.Date) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, kind, entry_date, amount, description, category, payment_method, linked_kind, created_at, updated_at
		FROM ledger_entries WHERE owner = ? AND entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date DESC, id DESC`, owner, storeDate(from), storeDate(to))
	if err != nil {
		return nil, fmt.Errorf("list ledger entries between: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// UpdateEntry rewrites the mutable fields of an entry, scoped to owner.
func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e core.LedgerEntry) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ledger_entries
		SET kind = ?, entry_date = ?, amount = ?, description = ?, category = ?, payment_method = ?, linked_kind = ?, updated_at = ?
		WHERE id = ? AND owner = ?`,
		string(e.Kind), storeDate(e.Date), e.Amount.String(), e.Description,
		e.Category, e.PaymentMethod, string(e.LinkedKind), time.Now().UTC(), e.ID, e.Owner)
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}
	return requireRow(res, "ledger entry")
}

// DeleteEntry removes an entry, scoped to owner.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	return requireRow(res, "ledger entry")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.LedgerEntry, error) {
	var (
		e                    core.LedgerEntry
		kind, date, amount   string
		linkedKind           string
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&e.ID, &e.Owner, &kind, &date, &amount, &e.Description,
		&e.Category, &e.PaymentMethod, &linkedKind, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, core.ErrNotFound
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("scan ledger entry: %w", err)
	}

	e.Kind = core.EntryKind(kind)
	e.LinkedKind = core.LinkedKind(linkedKind)
	e.CreatedAt = createdAt
	e.UpdatedAt = updatedAt

	if e.Date, err = parseDate(date); err != nil {
		return core.LedgerEntry{}, err
	}
	if e.Amount, err = core.MoneyFromString(amount); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	return e, nil
}

func collectEntries(rows *sql.Rows) ([]core.LedgerEntry, error) {
	var entries []core.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
