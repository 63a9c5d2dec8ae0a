package core

import (
	"fmt"
	"math"
	"time"
)

// DueDay is the fixed day of the month the DAS obligation falls due on.
const DueDay = 20

// NextDueDate returns the next DAS due date relative to ref: the 20th of
// ref's month while ref is on or before the 20th, otherwise the 20th of
// the following month. time.Date normalizes December+1 into January.
func NextDueDate(ref Date) Date {
	year, month := ref.Year(), ref.Month()
	if ref.Day() > DueDay {
		month++
	}
	return Date{Time: time.Date(year, month, DueDay, 0, 0, 0, 0, time.UTC)}
}

// DaysUntil returns the number of whole days from ref until due, rounding
// partial days up. Negative when due is in the past.
func DaysUntil(due Date, ref time.Time) int {
	diff := due.Sub(ref)
	return int(math.Ceil(diff.Hours() / 24))
}

// PeriodKey returns the "YYYY-MM" competence key for d's own year and month.
func PeriodKey(d Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
}

// NextPeriodKey returns the competence key of the month after ref,
// rolling the year over at December.
func NextPeriodKey(ref Date) string {
	next := time.Date(ref.Year(), ref.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return PeriodKey(Date{Time: next})
}

// DueDateForPeriod returns the due date of a competence period: the 20th
// of the following month.
func DueDateForPeriod(period string) (Date, error) {
	if err := ValidatePeriod(period); err != nil {
		return Date{}, err
	}
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return Date{}, fmt.Errorf("parse period %q: %w", period, err)
	}
	return Date{Time: time.Date(t.Year(), t.Month()+1, DueDay, 0, 0, 0, 0, time.UTC)}, nil
}
