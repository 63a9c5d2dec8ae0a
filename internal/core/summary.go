package core

// Summary aggregates the ledger over a period of time.
type Summary struct {
	Income  Money
	Expense Money
	Balance Money
	Entries []LedgerEntry
}

// Summarize folds entries into income/expense totals and their balance.
func Summarize(entries []LedgerEntry) Summary {
	s := Summary{
		Income:  ZeroMoney(),
		Expense: ZeroMoney(),
		Entries: entries,
	}
	for _, e := range entries {
		switch e.Kind {
		case Income:
			s.Income = s.Income.Add(e.Amount)
		case Expense:
			s.Expense = s.Expense.Add(e.Amount)
		}
	}
	s.Balance = s.Income.Sub(s.Expense)
	return s
}
