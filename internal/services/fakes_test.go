package services

import (
	"context"
	"sort"

	"caixa/internal/core"
)

// In-memory stores backing the service tests. Error fields make a single
// operation fail so partial-failure paths can be exercised.

type fakeLedgerStore struct {
	entries   map[int64]core.LedgerEntry
	nextID    int64
	createErr error
	updateErr error
	deleteErr error
	listErr   error
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{entries: map[int64]core.LedgerEntry{}}
}

func (f *fakeLedgerStore) CreateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	if f.createErr != nil {
		return core.LedgerEntry{}, f.createErr
	}
	f.nextID++
	e.ID = f.nextID
	f.entries[e.ID] = e
	return e, nil
}

func (f *fakeLedgerStore) GetEntry(ctx context.Context, owner string, id int64) (core.LedgerEntry, error) {
	e, ok := f.entries[id]
	if !ok || e.Owner != owner {
		return core.LedgerEntry{}, core.ErrNotFound
	}
	return e, nil
}

func (f *fakeLedgerStore) ListEntries(ctx context.Context, owner string) ([]core.LedgerEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []core.LedgerEntry
	for _, e := range f.entries {
		if e.Owner == owner {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLedgerStore) ListEntriesBetween(ctx context.Context, owner string, from, to core.Date) ([]core.LedgerEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []core.LedgerEntry
	for _, e := range f.entries {
		if e.Owner != owner {
			continue
		}
		if e.Date.Before(from.Time) || e.Date.After(to.Time) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLedgerStore) UpdateEntry(ctx context.Context, e core.LedgerEntry) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	existing, ok := f.entries[e.ID]
	if !ok || existing.Owner != e.Owner {
		return core.ErrNotFound
	}
	f.entries[e.ID] = e
	return nil
}

func (f *fakeLedgerStore) DeleteEntry(ctx context.Context, owner string, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	e, ok := f.entries[id]
	if !ok || e.Owner != owner {
		return core.ErrNotFound
	}
	delete(f.entries, id)
	return nil
}

type fakeObligationStore struct {
	obligations map[int64]core.TaxObligation
	nextID      int64
	updateErr   error
	deleteErr   error
}

func newFakeObligationStore() *fakeObligationStore {
	return &fakeObligationStore{obligations: map[int64]core.TaxObligation{}}
}

func (f *fakeObligationStore) CreateObligation(ctx context.Context, o core.TaxObligation) (core.TaxObligation, error) {
	f.nextID++
	o.ID = f.nextID
	f.obligations[o.ID] = o
	return o, nil
}

func (f *fakeObligationStore) GetObligation(ctx context.Context, owner string, id int64) (core.TaxObligation, error) {
	o, ok := f.obligations[id]
	if !ok || o.Owner != owner {
		return core.TaxObligation{}, core.ErrNotFound
	}
	return o, nil
}

func (f *fakeObligationStore) GetObligationByPeriod(ctx context.Context, owner, period string) (core.TaxObligation, error) {
	for _, o := range f.obligations {
		if o.Owner == owner && o.Period == period {
			return o, nil
		}
	}
	return core.TaxObligation{}, core.ErrNotFound
}

func (f *fakeObligationStore) GetObligationByEntry(ctx context.Context, owner string, entryID int64) (core.TaxObligation, error) {
	for _, o := range f.obligations {
		if o.Owner == owner && o.EntryID == entryID {
			return o, nil
		}
	}
	return core.TaxObligation{}, core.ErrNotFound
}

func (f *fakeObligationStore) ListObligations(ctx context.Context, owner string) ([]core.TaxObligation, error) {
	var out []core.TaxObligation
	for _, o := range f.obligations {
		if o.Owner == owner {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })
	return out, nil
}

func (f *fakeObligationStore) ListPendingObligationsFrom(ctx context.Context, owner string, from core.Date) ([]core.TaxObligation, error) {
	var out []core.TaxObligation
	for _, o := range f.obligations {
		if o.Owner == owner && o.Status == core.Pending && !o.DueDate.Before(from.Time) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate.Time) })
	return out, nil
}

func (f *fakeObligationStore) UpdateObligation(ctx context.Context, o core.TaxObligation) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	existing, ok := f.obligations[o.ID]
	if !ok || existing.Owner != o.Owner {
		return core.ErrNotFound
	}
	f.obligations[o.ID] = o
	return nil
}

func (f *fakeObligationStore) DeleteObligation(ctx context.Context, owner string, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	o, ok := f.obligations[id]
	if !ok || o.Owner != owner {
		return core.ErrNotFound
	}
	delete(f.obligations, id)
	return nil
}

type fakeSaleStore struct {
	sales     map[int64]core.SaleRecord
	nextID    int64
	createErr error
	updateErr error
	deleteErr error
}

func newFakeSaleStore() *fakeSaleStore {
	return &fakeSaleStore{sales: map[int64]core.SaleRecord{}}
}

func (f *fakeSaleStore) CreateSale(ctx context.Context, s core.SaleRecord) (core.SaleRecord, error) {
	if f.createErr != nil {
		return core.SaleRecord{}, f.createErr
	}
	f.nextID++
	s.ID = f.nextID
	f.sales[s.ID] = s
	return s, nil
}

func (f *fakeSaleStore) GetSale(ctx context.Context, owner string, id int64) (core.SaleRecord, error) {
	s, ok := f.sales[id]
	if !ok || s.Owner != owner {
		return core.SaleRecord{}, core.ErrNotFound
	}
	return s, nil
}

func (f *fakeSaleStore) GetSaleByEntry(ctx context.Context, owner string, entryID int64) (core.SaleRecord, error) {
	for _, s := range f.sales {
		if s.Owner == owner && s.EntryID == entryID {
			return s, nil
		}
	}
	return core.SaleRecord{}, core.ErrNotFound
}

func (f *fakeSaleStore) ListSales(ctx context.Context, owner string) ([]core.SaleRecord, error) {
	var out []core.SaleRecord
	for _, s := range f.sales {
		if s.Owner == owner {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSaleStore) UpdateSale(ctx context.Context, s core.SaleRecord) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	existing, ok := f.sales[s.ID]
	if !ok || existing.Owner != s.Owner {
		return core.ErrNotFound
	}
	f.sales[s.ID] = s
	return nil
}

func (f *fakeSaleStore) DeleteSale(ctx context.Context, owner string, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	s, ok := f.sales[id]
	if !ok || s.Owner != owner {
		return core.ErrNotFound
	}
	delete(f.sales, id)
	return nil
}
