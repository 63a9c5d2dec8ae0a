package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"caixa/internal/amqp"
	"caixa/internal/core"
	"caixa/internal/identity"
	"caixa/internal/receipts"
)

// SaleService manages sale records and the income ledger entry each one
// mirrors. A sale and its entry are created, updated and deleted in
// lockstep.
type SaleService struct {
	store    SaleStore
	ledger   LedgerStore
	receipts receipts.Uploader // optional
	identity identity.Provider
	events   *amqp.Client
}

func NewSaleService(store SaleStore, ledger LedgerStore, uploader receipts.Uploader, provider identity.Provider, events *amqp.Client) *SaleService {
	return &SaleService{
		store:    store,
		ledger:   ledger,
		receipts: uploader,
		identity: provider,
		events:   events,
	}
}

// Create records a sale and its income entry. The entry is written
// first; if the sale insert then fails the entry is deleted again so
// neither side survives alone.
func (s *SaleService) Create(ctx context.Context, sale core.SaleRecord) (core.SaleRecord, error) {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return core.SaleRecord{}, err
	}
	sale.Owner = owner

	if err := sale.Validate(); err != nil {
		return core.SaleRecord{}, fmt.Errorf("validate sale: %w", err)
	}

	entry := core.LedgerEntry{
		Owner:         owner,
		Kind:          core.Income,
		Date:          sale.Date,
		Amount:        sale.Amount,
		Description:   sale.Description,
		PaymentMethod: sale.PaymentMethod,
		Category:      "vendas",
		LinkedKind:    core.LinkedSale,
	}
	created, err := s.ledger.CreateEntry(ctx, entry)
	if err != nil {
		return core.SaleRecord{}, fmt.Errorf("create income entry: %w", err)
	}

	sale.EntryID = created.ID
	stored, err := s.store.CreateSale(ctx, sale)
	if err != nil {
		// Compensate so the entry does not survive without its sale.
		if delErr := s.ledger.DeleteEntry(ctx, owner, created.ID); delErr != nil {
			return core.SaleRecord{}, &core.PartialSyncError{
				Action: "create income entry",
				Step:   "roll back after sale insert failure",
				Err:    errors.Join(err, delErr),
			}
		}
		return core.SaleRecord{}, fmt.Errorf("create sale: %w", err)
	}

	s.publish(ctx, amqp.OpCreated, created.ID, owner)
	return stored, nil
}

// Get fetches one of the owner's sales.
func (s *SaleService) Get(ctx context.Context, id int64) (core.SaleRecord, error) {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return core.SaleRecord{}, err
	}
	return s.store.GetSale(ctx, owner, id)
}

// List returns all of the owner's sales.
func (s *SaleService) List(ctx context.Context) ([]core.SaleRecord, error) {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListSales(ctx, owner)
}

// Update rewrites a sale and mirrors the change onto its ledger entry.
func (s *SaleService) Update(ctx context.Context, sale core.SaleRecord) error {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return err
	}
	sale.Owner = owner

	if err := sale.Validate(); err != nil {
		return fmt.Errorf("validate sale: %w", err)
	}

	existing, err := s.store.GetSale(ctx, owner, sale.ID)
	if err != nil {
		return fmt.Errorf("fetch sale: %w", err)
	}
	sale.EntryID = existing.EntryID

	if err := s.store.UpdateSale(ctx, sale); err != nil {
		return fmt.Errorf("update sale: %w", err)
	}

	if sale.EntryID == 0 {
		return nil
	}

	entry, err := s.ledger.GetEntry(ctx, owner, sale.EntryID)
	if err != nil {
		return &core.PartialSyncError{
			Action: "update sale",
			Step:   "fetch linked entry",
			Err:    err,
		}
	}

	entry.Date = sale.Date
	entry.Amount = sale.Amount
	entry.Description = sale.Description
	entry.PaymentMethod = sale.PaymentMethod
	if err := s.ledger.UpdateEntry(ctx, entry); err != nil {
		return &core.PartialSyncError{
			Action: "update sale",
			Step:   "update linked entry",
			Err:    err,
		}
	}

	s.publish(ctx, amqp.OpUpdated, entry.ID, owner)
	return nil
}

// Delete removes a sale together with its ledger entry and stored
// receipt, when present.
func (s *SaleService) Delete(ctx context.Context, id int64) error {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return err
	}

	sale, err := s.store.GetSale(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("fetch sale: %w", err)
	}

	if err := s.store.DeleteSale(ctx, owner, id); err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}

	if sale.EntryID != 0 {
		if err := s.ledger.DeleteEntry(ctx, owner, sale.EntryID); err != nil && !errors.Is(err, core.ErrNotFound) {
			return &core.PartialSyncError{
				Action: "delete sale",
				Step:   "delete linked entry",
				Err:    err,
			}
		}
		s.publish(ctx, amqp.OpDeleted, sale.EntryID, owner)
	}

	if sale.ReceiptURL != "" && s.receipts != nil {
		if err := s.receipts.Delete(ctx, sale.ReceiptURL); err != nil {
			return &core.PartialSyncError{
				Action: "delete sale",
				Step:   "delete receipt",
				Err:    err,
			}
		}
	}

	slog.InfoContext(ctx, "Sale deleted", "sale_id", id, "entry_id", sale.EntryID)
	return nil
}

func (s *SaleService) publish(ctx context.Context, op string, entryID int64, owner string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, op, entryID, owner); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"op", op, "entry_id", entryID, "error", err)
	}
}
