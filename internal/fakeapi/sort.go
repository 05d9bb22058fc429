package fakeapi

import (
	"sort"

	"expensepool/internal/core"
)

// sortExpenses orders by date, then id, so listings are stable.
func sortExpenses(es []core.FixedExpense) {
	sort.Slice(es, func(i, j int) bool {
		if !es[i].Date.Equal(es[j].Date) {
			return es[i].Date.Before(es[j].Date)
		}
		return es[i].ID < es[j].ID
	})
}
