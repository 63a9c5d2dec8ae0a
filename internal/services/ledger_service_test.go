package services

import (
	"context"
	"errors"
	"testing"

	"caixa/internal/core"
	"caixa/internal/identity"
)

const testOwner = "owner-1"

func newLedgerFixture() (*LedgerService, *fakeLedgerStore, *fakeObligationStore, *fakeSaleStore) {
	ledger := newFakeLedgerStore()
	taxes := newFakeObligationStore()
	sales := newFakeSaleStore()
	svc := NewLedgerService(ledger, taxes, sales, identity.NewStatic(testOwner), nil)
	return svc, ledger, taxes, sales
}

func TestCreateRequiresAuthentication(t *testing.T) {
	ledger := newFakeLedgerStore()
	svc := NewLedgerService(ledger, newFakeObligationStore(), newFakeSaleStore(), identity.NewStatic(""), nil)

	_, err := svc.Create(context.Background(), core.LedgerEntry{
		Kind:        core.Income,
		Date:        core.NewDate(2026, 8, 1),
		Amount:      core.MoneyFromFloat(100),
		Description: "consulting",
	})
	if !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("Create() error = %v, want %v", err, core.ErrNotAuthenticated)
	}
	if len(ledger.entries) != 0 {
		t.Errorf("store has %d entries, want 0", len(ledger.entries))
	}
}

func TestDeleteCascadesToLinkedObligation(t *testing.T) {
	svc, ledger, taxes, _ := newLedgerFixture()
	ctx := context.Background()

	entry, _ := ledger.CreateEntry(ctx, core.LedgerEntry{
		Owner:       testOwner,
		Kind:        core.Expense,
		Date:        core.NewDate(2026, 8, 20),
		Amount:      core.MoneyFromFloat(71.60),
		Description: "DAS 2026-07",
	})
	obligation, _ := taxes.CreateObligation(ctx, core.TaxObligation{
		Owner:       testOwner,
		Period:      "2026-07",
		DueDate:     core.NewDate(2026, 8, 20),
		Amount:      core.MoneyFromFloat(71.60),
		Status:      core.Paid,
		PaymentDate: core.NewDate(2026, 8, 20),
		EntryID:     entry.ID,
	})

	if err := svc.Delete(ctx, entry.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := ledger.GetEntry(ctx, testOwner, entry.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("entry still exists after delete")
	}
	if _, err := taxes.GetObligation(ctx, testOwner, obligation.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("linked obligation still exists after entry delete")
	}
}

func TestDeleteCascadesToLinkedSale(t *testing.T) {
	svc, ledger, _, sales := newLedgerFixture()
	ctx := context.Background()

	entry, _ := ledger.CreateEntry(ctx, core.LedgerEntry{
		Owner:       testOwner,
		Kind:        core.Income,
		Date:        core.NewDate(2026, 8, 5),
		Amount:      core.MoneyFromFloat(250),
		Description: "venda balcão",
		LinkedKind:  core.LinkedSale,
	})
	sale, _ := sales.CreateSale(ctx, core.SaleRecord{
		Owner:       testOwner,
		Date:        core.NewDate(2026, 8, 5),
		Description: "venda balcão",
		Amount:      core.MoneyFromFloat(250),
		EntryID:     entry.ID,
	})

	if err := svc.Delete(ctx, entry.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := sales.GetSale(ctx, testOwner, sale.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("linked sale still exists after entry delete")
	}
}

func TestDeleteUnlinkedEntryLeavesDerivedAlone(t *testing.T) {
	svc, ledger, taxes, _ := newLedgerFixture()
	ctx := context.Background()

	entry, _ := ledger.CreateEntry(ctx, core.LedgerEntry{
		Owner:       testOwner,
		Kind:        core.Expense,
		Date:        core.NewDate(2026, 8, 10),
		Amount:      core.MoneyFromFloat(30),
		Description: "material de escritório",
	})
	other, _ := taxes.CreateObligation(ctx, core.TaxObligation{
		Owner:   testOwner,
		Period:  "2026-07",
		DueDate: core.NewDate(2026, 8, 20),
		Amount:  core.MoneyFromFloat(71.60),
		Status:  core.Pending,
	})

	if err := svc.Delete(ctx, entry.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := taxes.GetObligation(ctx, testOwner, other.ID); err != nil {
		t.Errorf("unrelated obligation removed: %v", err)
	}
}

func TestDeleteReportsPartialFailure(t *testing.T) {
	svc, ledger, taxes, _ := newLedgerFixture()
	ctx := context.Background()

	entry, _ := ledger.CreateEntry(ctx, core.LedgerEntry{
		Owner:       testOwner,
		Kind:        core.Expense,
		Date:        core.NewDate(2026, 8, 20),
		Amount:      core.MoneyFromFloat(71.60),
		Description: "DAS 2026-07",
	})
	taxes.CreateObligation(ctx, core.TaxObligation{
		Owner:   testOwner,
		Period:  "2026-07",
		DueDate: core.NewDate(2026, 8, 20),
		Amount:  core.MoneyFromFloat(71.60),
		Status:  core.Paid,
		EntryID: entry.ID,
	})
	taxes.deleteErr = errors.New("store unavailable")

	err := svc.Delete(ctx, entry.ID)

	var partial *core.PartialSyncError
	if !errors.As(err, &partial) {
		t.Fatalf("Delete() error = %v, want PartialSyncError", err)
	}
	// The primary write is not rolled back.
	if _, err := ledger.GetEntry(ctx, testOwner, entry.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("entry survived a partial delete, want it gone")
	}
}

func TestUpdatePropagatesAmountToSale(t *testing.T) {
	svc, ledger, _, sales := newLedgerFixture()
	ctx := context.Background()

	entry, _ := ledger.CreateEntry(ctx, core.LedgerEntry{
		Owner:       testOwner,
		Kind:        core.Income,
		Date:        core.NewDate(2026, 8, 5),
		Amount:      core.MoneyFromFloat(100),
		Description: "venda fiado",
		LinkedKind:  core.LinkedSale,
	})
	sale, _ := sales.CreateSale(ctx, core.SaleRecord{
		Owner:       testOwner,
		Date:        core.NewDate(2026, 8, 5),
		Description: "venda fiado",
		Amount:      core.MoneyFromFloat(100),
		EntryID:     entry.ID,
	})

	entry.Amount = core.MoneyFromFloat(150)
	if err := svc.Update(ctx, entry); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := sales.GetSale(ctx, testOwner, sale.ID)
	if !got.Amount.Equal(core.MoneyFromFloat(150)) {
		t.Errorf("sale amount = %s, want 150.00", got.Amount)
	}
	if got.Description != "venda fiado" {
		t.Errorf("sale description = %q, want unchanged", got.Description)
	}
}

func TestUpdatePropagatesToObligation(t *testing.T) {
	svc, ledger, taxes, _ := newLedgerFixture()
	ctx := context.Background()

	entry, _ := ledger.CreateEntry(ctx, core.LedgerEntry{
		Owner:       testOwner,
		Kind:        core.Expense,
		Date:        core.NewDate(2026, 8, 18),
		Amount:      core.MoneyFromFloat(71.60),
		Description: "DAS 2026-07",
	})
	obligation, _ := taxes.CreateObligation(ctx, core.TaxObligation{
		Owner:       testOwner,
		Period:      "2026-07",
		DueDate:     core.NewDate(2026, 8, 20),
		Amount:      core.MoneyFromFloat(71.60),
		Status:      core.Paid,
		PaymentDate: core.NewDate(2026, 8, 18),
		EntryID:     entry.ID,
	})

	entry.Amount = core.MoneyFromFloat(75.90)
	entry.Date = core.NewDate(2026, 8, 19)
	if err := svc.Update(ctx, entry); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := taxes.GetObligation(ctx, testOwner, obligation.ID)
	if !got.Amount.Equal(core.MoneyFromFloat(75.90)) {
		t.Errorf("obligation amount = %s, want 75.90", got.Amount)
	}
	if !got.PaymentDate.Equal(core.NewDate(2026, 8, 19).Time) {
		t.Errorf("obligation payment date = %v, want 2026-08-19", got.PaymentDate)
	}
}

func TestUpdateWithoutLinkedRecordIsNoop(t *testing.T) {
	svc, ledger, _, _ := newLedgerFixture()
	ctx := context.Background()

	entry, _ := ledger.CreateEntry(ctx, core.LedgerEntry{
		Owner:       testOwner,
		Kind:        core.Expense,
		Date:        core.NewDate(2026, 8, 18),
		Amount:      core.MoneyFromFloat(40),
		Description: "DAS 2026-06",
	})

	entry.Amount = core.MoneyFromFloat(45)
	if err := svc.Update(ctx, entry); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := ledger.GetEntry(ctx, testOwner, entry.ID)
	if !got.Amount.Equal(core.MoneyFromFloat(45)) {
		t.Errorf("entry amount = %s, want 45.00", got.Amount)
	}
}
