package notify

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"caixa/internal/core"
	"caixa/internal/identity"
)

type fakeObligationSource struct {
	obligations []core.TaxObligation
	err         error
}

func (f *fakeObligationSource) ListPendingObligationsFrom(ctx context.Context, owner string, from core.Date) ([]core.TaxObligation, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []core.TaxObligation
	for _, o := range f.obligations {
		if o.Owner == owner && o.Status == core.Pending && !o.DueDate.Before(from.Time) {
			out = append(out, o)
		}
	}
	return out, nil
}

func newTestGenerator(t *testing.T, source *fakeObligationSource, now time.Time) *Generator {
	t.Helper()
	cache := NewCache(filepath.Join(t.TempDir(), "notifications.json"))
	g := NewGenerator(source, cache, identity.NewStatic("owner-1"))
	g.now = func() time.Time { return now }
	return g
}

func pendingObligation(period string, due core.Date) core.TaxObligation {
	return core.TaxObligation{
		Owner:   "owner-1",
		Period:  period,
		DueDate: due,
		Amount:  core.MoneyFromFloat(71.60),
		Status:  core.Pending,
	}
}

func TestRefreshDueToday(t *testing.T) {
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	source := &fakeObligationSource{
		obligations: []core.TaxObligation{
			pendingObligation("2026-07", core.NewDate(2026, 8, 20)),
		},
	}
	g := newTestGenerator(t, source, now)

	created, err := g.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if created != 1 {
		t.Fatalf("Refresh() created = %d, want 1", created)
	}

	feed, err := g.Feed(context.Background())
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}

	var alerts []Notification
	for _, n := range feed {
		if n.Category == CategoryTaxAlert {
			alerts = append(alerts, n)
		}
	}
	if len(alerts) != 1 {
		t.Fatalf("tax alerts = %d, want 1", len(alerts))
	}

	alert := alerts[0]
	if alert.Priority != PriorityHigh {
		t.Errorf("Priority = %s, want %s", alert.Priority, PriorityHigh)
	}
	if !strings.Contains(alert.Message, "hoje") {
		t.Errorf("Message = %q, want it to mention hoje", alert.Message)
	}
	if !strings.Contains(alert.Message, "2026-07") {
		t.Errorf("Message = %q, want it to carry the competence period", alert.Message)
	}
	if !strings.Contains(alert.Message, "20/08/2026") {
		t.Errorf("Message = %q, want it to carry the formatted due date", alert.Message)
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)
	source := &fakeObligationSource{
		obligations: []core.TaxObligation{
			pendingObligation("2026-07", core.NewDate(2026, 8, 20)),
		},
	}
	g := newTestGenerator(t, source, now)

	if _, err := g.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
	first, _ := g.Feed(context.Background())

	created, err := g.Refresh(context.Background())
	if err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	if created != 0 {
		t.Errorf("second Refresh() created = %d, want 0", created)
	}

	second, _ := g.Feed(context.Background())
	if len(second) != len(first) {
		t.Errorf("feed size after second refresh = %d, want %d", len(second), len(first))
	}
}

func TestRefreshWindowAndPriority(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		due          core.Date
		wantAlert    bool
		wantPriority Priority
	}{
		{
			name:      "due in 19 days - outside window",
			due:       core.NewDate(2026, 8, 20),
			wantAlert: false,
		},
		{
			name:         "due in 10 days - medium",
			due:          core.NewDate(2026, 8, 11),
			wantAlert:    true,
			wantPriority: PriorityMedium,
		},
		{
			name:         "due in 3 days - high",
			due:          core.NewDate(2026, 8, 4),
			wantAlert:    true,
			wantPriority: PriorityHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeObligationSource{
				obligations: []core.TaxObligation{pendingObligation("2026-07", tt.due)},
			}
			g := newTestGenerator(t, source, now)

			created, err := g.Refresh(context.Background())
			if err != nil {
				t.Fatalf("Refresh() error = %v", err)
			}

			if !tt.wantAlert {
				if created != 0 {
					t.Errorf("created = %d, want 0", created)
				}
				return
			}
			if created != 1 {
				t.Fatalf("created = %d, want 1", created)
			}

			feed, _ := g.Feed(context.Background())
			if feed[0].Category != CategoryTaxAlert || feed[0].Priority != tt.wantPriority {
				t.Errorf("top of feed = %s/%s, want tax_alert/%s", feed[0].Category, feed[0].Priority, tt.wantPriority)
			}
		})
	}
}

func TestRefreshSeedsOnlyEmptyFeed(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	source := &fakeObligationSource{}
	g := newTestGenerator(t, source, now)

	if _, err := g.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	feed, _ := g.Feed(context.Background())
	if len(feed) == 0 {
		t.Fatal("expected welcome seed on empty feed")
	}
	seeded := len(feed)

	hasWelcome := false
	for _, n := range feed {
		if n.Category == CategoryWelcome {
			hasWelcome = true
		}
		if n.Priority != PriorityLow {
			t.Errorf("seed priority = %s, want %s", n.Priority, PriorityLow)
		}
	}
	if !hasWelcome {
		t.Error("expected a welcome notification in the seed set")
	}

	// Non-empty feed never reseeds.
	if _, err := g.Refresh(context.Background()); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	feed, _ = g.Feed(context.Background())
	if len(feed) != seeded {
		t.Errorf("feed size after reseed attempt = %d, want %d", len(feed), seeded)
	}
}

func TestFeedSortOrder(t *testing.T) {
	now := time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC)
	source := &fakeObligationSource{
		obligations: []core.TaxObligation{
			// 2 days out - high; 9 days out (sep period) - medium
			pendingObligation("2026-07", core.NewDate(2026, 8, 20)),
			pendingObligation("2026-08", core.NewDate(2026, 8, 27)),
		},
	}
	g := newTestGenerator(t, source, now)

	if _, err := g.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	feed, err := g.Feed(context.Background())
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}

	for i := 1; i < len(feed); i++ {
		prev, cur := feed[i-1], feed[i]
		if prev.Priority.Rank() < cur.Priority.Rank() {
			t.Fatalf("feed not sorted by priority: %s before %s", prev.Priority, cur.Priority)
		}
		if prev.Priority.Rank() == cur.Priority.Rank() && prev.CreatedAt.Before(cur.CreatedAt) {
			t.Fatalf("feed not sorted by recency within priority")
		}
	}

	if feed[0].Priority != PriorityHigh {
		t.Errorf("top of feed priority = %s, want %s", feed[0].Priority, PriorityHigh)
	}
}

func TestMarkRead(t *testing.T) {
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	source := &fakeObligationSource{
		obligations: []core.TaxObligation{
			pendingObligation("2026-07", core.NewDate(2026, 8, 20)),
		},
	}
	g := newTestGenerator(t, source, now)

	if _, err := g.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	before, _ := g.UnreadCount(context.Background())
	if before == 0 {
		t.Fatal("expected unread notifications after refresh")
	}

	feed, _ := g.Feed(context.Background())
	if err := g.MarkRead(context.Background(), feed[0].ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	after, _ := g.UnreadCount(context.Background())
	if after != before-1 {
		t.Errorf("UnreadCount() = %d, want %d", after, before-1)
	}

	if err := g.MarkRead(context.Background(), "missing-id"); err != core.ErrNotFound {
		t.Errorf("MarkRead(missing) = %v, want %v", err, core.ErrNotFound)
	}

	if err := g.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	final, _ := g.UnreadCount(context.Background())
	if final != 0 {
		t.Errorf("UnreadCount() after MarkAllRead = %d, want 0", final)
	}
}
