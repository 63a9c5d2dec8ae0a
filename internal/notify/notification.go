package notify

import "time"

type (
	Category string
	Priority string
)

const (
	CategoryTaxAlert Category = "tax_alert"
	CategoryInfo     Category = "info"
	CategoryWelcome  Category = "welcome"

	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Notification is one item of the alert feed. The feed lives in a local
// durable cache, not in the relational store, and items only ever move
// from unread to read.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
	Category  Category  `json:"category"`
	Priority  Priority  `json:"priority"`
}

// Rank orders priorities for display sorting.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}
