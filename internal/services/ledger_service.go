package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"caixa/internal/amqp"
	"caixa/internal/core"
	"caixa/internal/identity"
)

// LedgerService owns ledger entry mutations and keeps derived records
// (tax obligations, sales) consistent with them. Derived-record
// propagation runs after the primary write and is never rolled back; a
// failed step surfaces as *core.PartialSyncError so the caller can show
// the residual state instead of hiding it.
type LedgerService struct {
	store    LedgerStore
	taxes    ObligationStore
	sales    SaleStore
	identity identity.Provider
	events   *amqp.Client
}

func NewLedgerService(store LedgerStore, taxes ObligationStore, sales SaleStore, provider identity.Provider, events *amqp.Client) *LedgerService {
	return &LedgerService{
		store:    store,
		taxes:    taxes,
		sales:    sales,
		identity: provider,
		events:   events,
	}
}

// Create records a new ledger entry for the current owner.
func (s *LedgerService) Create(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	e.Owner = owner

	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("validate entry: %w", err)
	}

	created, err := s.store.CreateEntry(ctx, e)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("create entry: %w", err)
	}

	s.publish(ctx, amqp.OpCreated, created.ID, owner)
	return created, nil
}

// Get fetches one of the owner's entries.
func (s *LedgerService) Get(ctx context.Context, id int64) (core.LedgerEntry, error) {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	return s.store.GetEntry(ctx, owner, id)
}

// List returns all of the owner's entries.
func (s *LedgerService) List(ctx context.Context) ([]core.LedgerEntry, error) {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListEntries(ctx, owner)
}

// Update rewrites an entry and propagates changed value/date/description
// fields to a linked derived record. Classification looks at the updated
// entry only: an entry that starts or stops matching the tax/sale rule
// mid-update is neither re-linked nor unlinked (see DESIGN.md).
func (s *LedgerService) Update(ctx context.Context, e core.LedgerEntry) error {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return err
	}
	e.Owner = owner

	if err := e.Validate(); err != nil {
		return fmt.Errorf("validate entry: %w", err)
	}

	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	s.publish(ctx, amqp.OpUpdated, e.ID, owner)

	if err := s.propagateUpdate(ctx, e); err != nil {
		return &core.PartialSyncError{
			Action: "update entry",
			Step:   "propagate to linked record",
			Err:    err,
		}
	}
	return nil
}

func (s *LedgerService) propagateUpdate(ctx context.Context, e core.LedgerEntry) error {
	switch {
	case e.IsTaxRelated():
		o, err := s.taxes.GetObligationByEntry(ctx, e.Owner, e.ID)
		if errors.Is(err, core.ErrNotFound) {
			return nil // no linked obligation, nothing to do
		}
		if err != nil {
			return fmt.Errorf("find linked obligation: %w", err)
		}

		changed := false
		if !o.Amount.Equal(e.Amount) {
			o.Amount = e.Amount
			changed = true
		}
		if !o.PaymentDate.Equal(e.Date.Time) {
			o.PaymentDate = e.Date
			changed = true
		}
		if !changed {
			return nil
		}
		if err := s.taxes.UpdateObligation(ctx, o); err != nil {
			return fmt.Errorf("update linked obligation: %w", err)
		}
		slog.InfoContext(ctx, "Propagated entry update to obligation",
			"entry_id", e.ID, "obligation_id", o.ID)
		return nil

	case e.IsSaleRelated():
		sale, err := s.sales.GetSaleByEntry(ctx, e.Owner, e.ID)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find linked sale: %w", err)
		}

		changed := false
		if !sale.Amount.Equal(e.Amount) {
			sale.Amount = e.Amount
			changed = true
		}
		if !sale.Date.Equal(e.Date.Time) {
			sale.Date = e.Date
			changed = true
		}
		if sale.Description != e.Description {
			sale.Description = e.Description
			changed = true
		}
		if !changed {
			return nil
		}
		if err := s.sales.UpdateSale(ctx, sale); err != nil {
			return fmt.Errorf("update linked sale: %w", err)
		}
		slog.InfoContext(ctx, "Propagated entry update to sale",
			"entry_id", e.ID, "sale_id", sale.ID)
		return nil
	}

	return nil
}

// Delete removes an entry and any derived record linked to it. The entry
// delete is the primary write; a failed cascade surfaces as a partial
// sync failure after the entry is already gone.
func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return err
	}

	entry, err := s.store.GetEntry(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("fetch entry for delete: %w", err)
	}

	if err := s.store.DeleteEntry(ctx, owner, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	s.publish(ctx, amqp.OpDeleted, id, owner)

	if err := s.cascadeDelete(ctx, entry); err != nil {
		return &core.PartialSyncError{
			Action: "delete entry",
			Step:   "remove linked record",
			Err:    err,
		}
	}

	if err := s.verifyUnreferenced(ctx, entry); err != nil {
		return &core.PartialSyncError{
			Action: "delete entry",
			Step:   "verify no stale reference",
			Err:    err,
		}
	}
	return nil
}

func (s *LedgerService) cascadeDelete(ctx context.Context, entry core.LedgerEntry) error {
	switch {
	case entry.IsTaxRelated():
		o, err := s.taxes.GetObligationByEntry(ctx, entry.Owner, entry.ID)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find linked obligation: %w", err)
		}
		if err := s.taxes.DeleteObligation(ctx, entry.Owner, o.ID); err != nil {
			return fmt.Errorf("delete linked obligation: %w", err)
		}
		slog.InfoContext(ctx, "Deleted obligation linked to entry",
			"entry_id", entry.ID, "obligation_id", o.ID)

	case entry.IsSaleRelated():
		sale, err := s.sales.GetSaleByEntry(ctx, entry.Owner, entry.ID)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find linked sale: %w", err)
		}
		if err := s.sales.DeleteSale(ctx, entry.Owner, sale.ID); err != nil {
			return fmt.Errorf("delete linked sale: %w", err)
		}
		slog.InfoContext(ctx, "Deleted sale linked to entry",
			"entry_id", entry.ID, "sale_id", sale.ID)
	}

	return nil
}

// verifyUnreferenced re-queries both derived stores after a delete; a
// surviving back-reference means the cascade silently failed.
func (s *LedgerService) verifyUnreferenced(ctx context.Context, entry core.LedgerEntry) error {
	if _, err := s.taxes.GetObligationByEntry(ctx, entry.Owner, entry.ID); err == nil {
		return fmt.Errorf("obligation still references deleted entry %d", entry.ID)
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("re-query obligations: %w", err)
	}

	if _, err := s.sales.GetSaleByEntry(ctx, entry.Owner, entry.ID); err == nil {
		return fmt.Errorf("sale still references deleted entry %d", entry.ID)
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("re-query sales: %w", err)
	}
	return nil
}

func (s *LedgerService) publish(ctx context.Context, op string, entryID int64, owner string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, op, entryID, owner); err != nil {
		// Don't fail the request - the local write already succeeded
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"op", op, "entry_id", entryID, "error", err)
	}
}
