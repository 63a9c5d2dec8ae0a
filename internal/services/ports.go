// Package services orchestrates the ledger, its derived records and the
// read-only projections over them. Every operation is owner-scoped and
// resolves the owner through an identity.Provider before touching a store.
package services

import (
	"context"

	"caixa/internal/core"
)

// LedgerStore is the owner-scoped persistence port for ledger entries.
type LedgerStore interface {
	CreateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error)
	GetEntry(ctx context.Context, owner string, id int64) (core.LedgerEntry, error)
	ListEntries(ctx context.Context, owner string) ([]core.LedgerEntry, error)
	ListEntriesBetween(ctx context.Context, owner string, from, to core.Date) ([]core.LedgerEntry, error)
	UpdateEntry(ctx context.Context, e core.LedgerEntry) error
	DeleteEntry(ctx context.Context, owner string, id int64) error
}

// ObligationStore is the owner-scoped persistence port for tax obligations.
type ObligationStore interface {
	CreateObligation(ctx context.Context, o core.TaxObligation) (core.TaxObligation, error)
	GetObligation(ctx context.Context, owner string, id int64) (core.TaxObligation, error)
	GetObligationByPeriod(ctx context.Context, owner, period string) (core.TaxObligation, error)
	GetObligationByEntry(ctx context.Context, owner string, entryID int64) (core.TaxObligation, error)
	ListObligations(ctx context.Context, owner string) ([]core.TaxObligation, error)
	ListPendingObligationsFrom(ctx context.Context, owner string, from core.Date) ([]core.TaxObligation, error)
	UpdateObligation(ctx context.Context, o core.TaxObligation) error
	DeleteObligation(ctx context.Context, owner string, id int64) error
}

// SaleStore is the owner-scoped persistence port for sale records.
type SaleStore interface {
	CreateSale(ctx context.Context, s core.SaleRecord) (core.SaleRecord, error)
	GetSale(ctx context.Context, owner string, id int64) (core.SaleRecord, error)
	GetSaleByEntry(ctx context.Context, owner string, entryID int64) (core.SaleRecord, error)
	ListSales(ctx context.Context, owner string) ([]core.SaleRecord, error)
	UpdateSale(ctx context.Context, s core.SaleRecord) error
	DeleteSale(ctx context.Context, owner string, id int64) error
}
