package core

import (
	"regexp"
	"strings"
	"time"
)

const (
	Income  EntryKind = "income"
	Expense EntryKind = "expense"

	Pending ObligationStatus = "pending"
	Paid    ObligationStatus = "paid"

	// TaxMarker flags a ledger entry as belonging to the monthly DAS
	// obligation. Classification by description substring is a known
	// limitation kept for compatibility with existing data; entries
	// created by this codebase also carry an explicit LinkedKind.
	TaxMarker = "DAS"
)

type (
	EntryKind        string
	ObligationStatus string

	// LinkedKind is the explicit discriminator for which derived record,
	// if any, mirrors a ledger entry.
	LinkedKind string

	Date struct {
		time.Time
	}

	// LedgerEntry is the primary transaction record and the source of
	// truth for all money movements.
	LedgerEntry struct {
		ID            int64
		Owner         string
		Kind          EntryKind
		Date          Date
		Amount        Money
		Description   string
		Category      string
		PaymentMethod string
		LinkedKind    LinkedKind
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// TaxObligation is the recurring monthly DAS payment. Its due date is
	// the 20th of the month following the competence period. Once paid it
	// links back to the expense LedgerEntry that records the payment.
	TaxObligation struct {
		ID          int64
		Owner       string
		Period      string // competence period, "YYYY-MM"
		DueDate     Date
		Amount      Money
		Status      ObligationStatus
		PaymentDate Date  // zero while pending
		ReceiptURL  string
		EntryID     int64 // linked ledger entry, 0 while pending
	}

	// SaleRecord mirrors exactly one income LedgerEntry.
	SaleRecord struct {
		ID            int64
		Owner         string
		Date          Date
		Description   string
		Amount        Money
		PaymentMethod string
		Customer      string
		ReceiptURL    string
		EntryID       int64
	}
)

const (
	LinkedNone LinkedKind = ""
	LinkedTax  LinkedKind = "tax"
	LinkedSale LinkedKind = "sale"
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// NewDate creates a calendar-day Date (midnight UTC).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidPeriod
	}
	return nil
}

// DisplayFormat is the date layout embedded in notification messages.
const DisplayFormat = "02/01/2006"

func (k EntryKind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (s ObligationStatus) Validate() error {
	switch s {
	case Pending, Paid:
		return nil
	default:
		return ErrInvalidStatus
	}
}

// ValidatePeriod checks a competence period key such as "2026-08".
func ValidatePeriod(period string) error {
	if !periodPattern.MatchString(period) {
		return ErrInvalidPeriod
	}
	return nil
}

func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(e.Owner) == "" {
		return ErrEmptyOwner
	}
	if err := e.Kind.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	return e.Amount.Validate()
}

// IsTaxRelated reports whether the entry records a DAS payment: an expense
// whose description carries the tax marker. Falls back to the substring
// heuristic so rows predating the LinkedKind column still classify.
func (e LedgerEntry) IsTaxRelated() bool {
	if e.LinkedKind == LinkedTax {
		return true
	}
	return e.Kind == Expense && strings.Contains(e.Description, TaxMarker)
}

// IsSaleRelated reports whether the entry may mirror a sale record.
func (e LedgerEntry) IsSaleRelated() bool {
	if e.LinkedKind == LinkedSale {
		return true
	}
	return e.Kind == Income
}

func (o TaxObligation) Validate() error {
	if strings.TrimSpace(o.Owner) == "" {
		return ErrEmptyOwner
	}
	if err := ValidatePeriod(o.Period); err != nil {
		return err
	}
	if err := o.Status.Validate(); err != nil {
		return err
	}
	if err := o.Amount.Validate(); err != nil {
		return err
	}
	return o.DueDate.Validate()
}

// IsLinked reports whether the obligation references a ledger entry.
func (o TaxObligation) IsLinked() bool {
	return o.EntryID != 0
}

func (s SaleRecord) Validate() error {
	if strings.TrimSpace(s.Owner) == "" {
		return ErrEmptyOwner
	}
	if err := s.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(s.Description)) == 0 {
		return ErrEmptyDescription
	}
	return s.Amount.Validate()
}

func (s SaleRecord) IsLinked() bool {
	return s.EntryID != 0
}
