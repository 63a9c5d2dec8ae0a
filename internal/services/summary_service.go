package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"caixa/internal/core"
	"caixa/internal/identity"
)

type SummaryPeriod string

const (
	SummaryMonth SummaryPeriod = "month"
	SummaryYear  SummaryPeriod = "year"
)

// SummaryService computes income/expense/balance projections over the
// ledger. Summaries are always "as of now"; the clock is a field only so
// tests can pin it.
type SummaryService struct {
	store    LedgerStore
	identity identity.Provider

	now func() time.Time
}

func NewSummaryService(store LedgerStore, provider identity.Provider) *SummaryService {
	return &SummaryService{
		store:    store,
		identity: provider,
		now:      time.Now,
	}
}

// Summarize aggregates the owner's entries over the current month or
// year. It degrades gracefully: any failure yields a zero summary with
// no entries instead of an error, so dashboards render regardless.
func (s *SummaryService) Summarize(ctx context.Context, period SummaryPeriod) core.Summary {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Summary degraded to zero", "reason", err)
		return core.Summarize(nil)
	}

	from, to, err := s.bounds(period)
	if err != nil {
		slog.WarnContext(ctx, "Summary degraded to zero", "reason", err)
		return core.Summarize(nil)
	}

	entries, err := s.store.ListEntriesBetween(ctx, owner, from, to)
	if err != nil {
		slog.WarnContext(ctx, "Summary degraded to zero",
			"period", period, "reason", err)
		return core.Summarize(nil)
	}

	return core.Summarize(entries)
}

func (s *SummaryService) bounds(period SummaryPeriod) (core.Date, core.Date, error) {
	now := s.now()
	switch period {
	case SummaryMonth:
		first := core.NewDate(now.Year(), int(now.Month()), 1)
		last := core.Date{Time: first.AddDate(0, 1, -1)}
		return first, last, nil
	case SummaryYear:
		return core.NewDate(now.Year(), 1, 1), core.NewDate(now.Year(), 12, 31), nil
	default:
		return core.Date{}, core.Date{}, fmt.Errorf("unknown summary period: %s", period)
	}
}
