package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"caixa/internal/core"
	"caixa/internal/identity"
)

const (
	// alertWindowDays is how close a due date must be before an alert
	// is raised.
	alertWindowDays = 10
	// highPriorityDays is the threshold below which an alert is high
	// priority instead of medium.
	highPriorityDays = 3
)

// ObligationSource yields the pending obligations the generator scans.
type ObligationSource interface {
	ListPendingObligationsFrom(ctx context.Context, owner string, from core.Date) ([]core.TaxObligation, error)
}

// Generator derives the deduplicated, priority-ranked alert feed from
// pending tax obligations.
type Generator struct {
	store    ObligationSource
	cache    *Cache
	identity identity.Provider

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

func NewGenerator(store ObligationSource, cache *Cache, provider identity.Provider) *Generator {
	return &Generator{
		store:    store,
		cache:    cache,
		identity: provider,
		now:      time.Now,
	}
}

// Refresh scans pending obligations due within the alert window and adds
// one alert per obligation that has none yet. Deduplication is by message
// content: an alert exists when a stored message already carries the
// obligation's competence period and formatted due date. Returns the
// number of alerts created.
func (g *Generator) Refresh(ctx context.Context) (int, error) {
	owner, err := g.identity.CurrentOwner(ctx)
	if err != nil {
		return 0, err
	}

	now := g.now()
	today := core.DateOf(now)

	items, err := g.cache.GetAll()
	if err != nil {
		return 0, fmt.Errorf("load notification feed: %w", err)
	}

	// First ever refresh seeds the feed; guarded by emptiness so it
	// happens exactly once.
	if len(items) == 0 {
		items = seedFeed(now)
	}

	obligations, err := g.store.ListPendingObligationsFrom(ctx, owner, today)
	if err != nil {
		return 0, fmt.Errorf("list pending obligations: %w", err)
	}

	created := 0
	for _, o := range obligations {
		days := core.DaysUntil(o.DueDate, now)
		if days > alertWindowDays || days < 0 {
			continue
		}

		dueText := o.DueDate.Format(core.DisplayFormat)
		if feedContains(items, o.Period, dueText) {
			continue
		}

		priority := PriorityMedium
		if days <= highPriorityDays {
			priority = PriorityHigh
		}

		items = append(items, Notification{
			ID:        uuid.NewString(),
			Message:   alertMessage(o, days, dueText),
			CreatedAt: now,
			Category:  CategoryTaxAlert,
			Priority:  priority,
		})
		created++

		slog.InfoContext(ctx, "Tax alert created",
			"period", o.Period,
			"due_date", dueText,
			"days_until_due", days,
			"priority", priority)
	}

	if err := g.cache.SetAll(items); err != nil {
		return 0, fmt.Errorf("store notification feed: %w", err)
	}

	return created, nil
}

// Feed returns the whole feed sorted for display: priority first, then
// newest first within the same priority.
func (g *Generator) Feed(ctx context.Context) ([]Notification, error) {
	items, err := g.cache.GetAll()
	if err != nil {
		return nil, fmt.Errorf("load notification feed: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority.Rank() != items[j].Priority.Rank() {
			return items[i].Priority.Rank() > items[j].Priority.Rank()
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	return items, nil
}

// MarkRead flips one notification to read. The transition is one-way.
func (g *Generator) MarkRead(ctx context.Context, id string) error {
	items, err := g.cache.GetAll()
	if err != nil {
		return fmt.Errorf("load notification feed: %w", err)
	}

	found := false
	for i := range items {
		if items[i].ID == id {
			items[i].Read = true
			found = true
			break
		}
	}
	if !found {
		return core.ErrNotFound
	}

	return g.cache.SetAll(items)
}

// MarkAllRead flips the whole feed to read.
func (g *Generator) MarkAllRead(ctx context.Context) error {
	items, err := g.cache.GetAll()
	if err != nil {
		return fmt.Errorf("load notification feed: %w", err)
	}
	for i := range items {
		items[i].Read = true
	}
	return g.cache.SetAll(items)
}

// UnreadCount returns how many notifications are still unread.
func (g *Generator) UnreadCount(ctx context.Context) (int, error) {
	items, err := g.cache.GetAll()
	if err != nil {
		return 0, fmt.Errorf("load notification feed: %w", err)
	}
	count := 0
	for _, n := range items {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func alertMessage(o core.TaxObligation, days int, dueText string) string {
	if days == 0 {
		return fmt.Sprintf("DAS %s vence hoje (%s). Valor: R$ %s", o.Period, dueText, o.Amount)
	}
	return fmt.Sprintf("DAS %s vence em %d dias (%s). Valor: R$ %s", o.Period, days, dueText, o.Amount)
}

// feedContains is the content-based dedup check: read or unread, an item
// whose message carries both the period and the formatted due date counts
// as the alert for that obligation.
func feedContains(items []Notification, period, dueText string) bool {
	for _, n := range items {
		if strings.Contains(n.Message, period) && strings.Contains(n.Message, dueText) {
			return true
		}
	}
	return false
}

func seedFeed(now time.Time) []Notification {
	return []Notification{
		{
			ID:        uuid.NewString(),
			Message:   "Bem-vindo! Seus alertas de vencimento do DAS aparecem aqui.",
			CreatedAt: now.Add(-72 * time.Hour),
			Category:  CategoryWelcome,
			Priority:  PriorityLow,
		},
		{
			ID:        uuid.NewString(),
			Message:   "O DAS vence todo dia 20 do mês seguinte ao período de competência.",
			CreatedAt: now.Add(-48 * time.Hour),
			Category:  CategoryInfo,
			Priority:  PriorityLow,
		},
		{
			ID:        uuid.NewString(),
			Message:   "Registre vendas e despesas para acompanhar o saldo do mês.",
			CreatedAt: now.Add(-24 * time.Hour),
			Category:  CategoryInfo,
			Priority:  PriorityLow,
		},
	}
}
