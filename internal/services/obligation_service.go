package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"caixa/internal/amqp"
	"caixa/internal/core"
	"caixa/internal/identity"
	"caixa/internal/receipts"
)

// ObligationService manages the monthly DAS obligation and the expense
// ledger entry that records its payment.
type ObligationService struct {
	store    ObligationStore
	ledger   LedgerStore
	receipts receipts.Uploader // optional
	identity identity.Provider
	events   *amqp.Client

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

func NewObligationService(store ObligationStore, ledger LedgerStore, uploader receipts.Uploader, provider identity.Provider, events *amqp.Client) *ObligationService {
	return &ObligationService{
		store:    store,
		ledger:   ledger,
		receipts: uploader,
		identity: provider,
		events:   events,
		now:      time.Now,
	}
}

// Create registers a pending obligation for a competence period. The due
// date is derived: the 20th of the month after the period.
func (s *ObligationService) Create(ctx context.Context, period string, amount core.Money) (core.TaxObligation, error) {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return core.TaxObligation{}, err
	}

	dueDate, err := core.DueDateForPeriod(period)
	if err != nil {
		return core.TaxObligation{}, fmt.Errorf("derive due date: %w", err)
	}

	o := core.TaxObligation{
		Owner:   owner,
		Period:  period,
		DueDate: dueDate,
		Amount:  amount,
		Status:  core.Pending,
	}
	if err := o.Validate(); err != nil {
		return core.TaxObligation{}, fmt.Errorf("validate obligation: %w", err)
	}

	created, err := s.store.CreateObligation(ctx, o)
	if err != nil {
		return core.TaxObligation{}, fmt.Errorf("create obligation: %w", err)
	}
	return created, nil
}

// Get fetches one of the owner's obligations.
func (s *ObligationService) Get(ctx context.Context, id int64) (core.TaxObligation, error) {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return core.TaxObligation{}, err
	}
	return s.store.GetObligation(ctx, owner, id)
}

// List returns all of the owner's obligations, newest period first.
func (s *ObligationService) List(ctx context.Context) ([]core.TaxObligation, error) {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListObligations(ctx, owner)
}

// MarkPaid transitions an obligation to paid as of paymentDate. The
// expense ledger entry is created first (or reused when the obligation is
// already linked), then the obligation records the payment date and the
// back-reference. A link failure after the entry write surfaces as a
// partial sync failure.
func (s *ObligationService) MarkPaid(ctx context.Context, id int64, paymentDate core.Date) (core.TaxObligation, error) {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return core.TaxObligation{}, err
	}

	o, err := s.store.GetObligation(ctx, owner, id)
	if err != nil {
		return core.TaxObligation{}, fmt.Errorf("fetch obligation: %w", err)
	}

	if o.IsLinked() {
		// Re-marking paid: refresh the existing payment entry instead
		// of creating a second one.
		entry, err := s.ledger.GetEntry(ctx, owner, o.EntryID)
		if err != nil {
			return core.TaxObligation{}, fmt.Errorf("fetch linked entry: %w", err)
		}
		entry.Date = paymentDate
		entry.Amount = o.Amount
		if err := s.ledger.UpdateEntry(ctx, entry); err != nil {
			return core.TaxObligation{}, fmt.Errorf("refresh payment entry: %w", err)
		}
	} else {
		entry := core.LedgerEntry{
			Owner:       owner,
			Kind:        core.Expense,
			Date:        paymentDate,
			Amount:      o.Amount,
			Description: fmt.Sprintf("%s %s", core.TaxMarker, o.Period),
			Category:    "impostos",
			LinkedKind:  core.LinkedTax,
		}
		created, err := s.ledger.CreateEntry(ctx, entry)
		if err != nil {
			return core.TaxObligation{}, fmt.Errorf("create payment entry: %w", err)
		}
		o.EntryID = created.ID
	}

	o.Status = core.Paid
	o.PaymentDate = paymentDate
	if err := s.store.UpdateObligation(ctx, o); err != nil {
		return core.TaxObligation{}, &core.PartialSyncError{
			Action: "record payment entry",
			Step:   "link obligation",
			Err:    err,
		}
	}

	slog.InfoContext(ctx, "Obligation marked paid",
		"obligation_id", o.ID,
		"period", o.Period,
		"entry_id", o.EntryID,
		"payment_date", paymentDate.Format(core.DisplayFormat))

	return o, nil
}

// MarkPending reverts a paid obligation: the back-reference and payment
// date are cleared first, then the previously linked entry is deleted so
// no record can reference a missing entry in between.
func (s *ObligationService) MarkPending(ctx context.Context, id int64) (core.TaxObligation, error) {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return core.TaxObligation{}, err
	}

	o, err := s.store.GetObligation(ctx, owner, id)
	if err != nil {
		return core.TaxObligation{}, fmt.Errorf("fetch obligation: %w", err)
	}

	entryID := o.EntryID
	o.Status = core.Pending
	o.PaymentDate = core.Date{}
	o.EntryID = 0
	if err := s.store.UpdateObligation(ctx, o); err != nil {
		return core.TaxObligation{}, fmt.Errorf("unlink obligation: %w", err)
	}

	if entryID != 0 {
		if err := s.ledger.DeleteEntry(ctx, owner, entryID); err != nil && !errors.Is(err, core.ErrNotFound) {
			return o, &core.PartialSyncError{
				Action: "unlink obligation",
				Step:   "delete payment entry",
				Err:    err,
			}
		}
		s.publishDeleted(ctx, entryID, owner)
	}

	slog.InfoContext(ctx, "Obligation reverted to pending",
		"obligation_id", o.ID, "period", o.Period)

	return o, nil
}

// Delete removes an obligation together with its linked payment entry
// and stored receipt, when present.
func (s *ObligationService) Delete(ctx context.Context, id int64) error {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return err
	}

	o, err := s.store.GetObligation(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("fetch obligation: %w", err)
	}

	if err := s.store.DeleteObligation(ctx, owner, id); err != nil {
		return fmt.Errorf("delete obligation: %w", err)
	}

	if o.EntryID != 0 {
		if err := s.ledger.DeleteEntry(ctx, owner, o.EntryID); err != nil && !errors.Is(err, core.ErrNotFound) {
			return &core.PartialSyncError{
				Action: "delete obligation",
				Step:   "delete linked entry",
				Err:    err,
			}
		}
		s.publishDeleted(ctx, o.EntryID, owner)
	}

	if o.ReceiptURL != "" && s.receipts != nil {
		if err := s.receipts.Delete(ctx, o.ReceiptURL); err != nil {
			return &core.PartialSyncError{
				Action: "delete obligation",
				Step:   "delete receipt",
				Err:    err,
			}
		}
	}

	return nil
}

// EnsureCurrentPeriod creates the running month's pending obligation if
// it does not exist yet. The amount carries over from the most recent
// obligation, falling back to defaultAmount for a fresh ledger. Returns
// true when an obligation was created.
func (s *ObligationService) EnsureCurrentPeriod(ctx context.Context, defaultAmount core.Money) (bool, core.TaxObligation, error) {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return false, core.TaxObligation{}, err
	}

	period := core.PeriodKey(core.DateOf(s.now()))

	existing, err := s.store.GetObligationByPeriod(ctx, owner, period)
	if err == nil {
		return false, existing, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return false, core.TaxObligation{}, fmt.Errorf("check period %s: %w", period, err)
	}

	amount := defaultAmount
	if previous, err := s.store.ListObligations(ctx, owner); err == nil && len(previous) > 0 {
		amount = previous[0].Amount
	}

	created, err := s.Create(ctx, period, amount)
	if err != nil {
		return false, core.TaxObligation{}, err
	}

	slog.InfoContext(ctx, "Ensured obligation for current period",
		"period", period,
		"due_date", created.DueDate.Format(core.DisplayFormat),
		"amount", amount.String())

	return true, created, nil
}

// AttachReceipt uploads a receipt and stores its URL on the obligation.
func (s *ObligationService) AttachReceipt(ctx context.Context, id int64, name string, r io.Reader) (core.TaxObligation, error) {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return core.TaxObligation{}, err
	}
	if s.receipts == nil {
		return core.TaxObligation{}, fmt.Errorf("receipt storage not configured")
	}

	o, err := s.store.GetObligation(ctx, owner, id)
	if err != nil {
		return core.TaxObligation{}, fmt.Errorf("fetch obligation: %w", err)
	}

	url, err := s.receipts.Upload(ctx, name, r)
	if err != nil {
		return core.TaxObligation{}, fmt.Errorf("upload receipt: %w", err)
	}

	o.ReceiptURL = url
	if err := s.store.UpdateObligation(ctx, o); err != nil {
		return core.TaxObligation{}, &core.PartialSyncError{
			Action: "upload receipt",
			Step:   "store receipt reference",
			Err:    err,
		}
	}
	return o, nil
}

// RemoveReceipt deletes the stored receipt and clears its reference.
func (s *ObligationService) RemoveReceipt(ctx context.Context, id int64) error {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return err
	}

	o, err := s.store.GetObligation(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("fetch obligation: %w", err)
	}
	if o.ReceiptURL == "" {
		return nil
	}

	if s.receipts != nil {
		if err := s.receipts.Delete(ctx, o.ReceiptURL); err != nil {
			return fmt.Errorf("delete receipt: %w", err)
		}
	}

	o.ReceiptURL = ""
	if err := s.store.UpdateObligation(ctx, o); err != nil {
		return fmt.Errorf("clear receipt reference: %w", err)
	}
	return nil
}

func (s *ObligationService) publishDeleted(ctx context.Context, entryID int64, owner string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, amqp.OpDeleted, entryID, owner); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"op", amqp.OpDeleted, "entry_id", entryID, "error", err)
	}
}
