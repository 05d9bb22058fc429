package sheets

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expensepool/internal/core"
)

func TestRows(t *testing.T) {
	d := core.PoolDetail{
		Pool: core.ExpensePool{
			Name:           "Groceries",
			ReceivedAmount: decimal.RequireFromString("500"),
			Balance:        decimal.RequireFromString("379.5"),
			Type:           core.Personal,
			Expiry:         core.NewDate(2026, 10, 20),
		},
		Expenses: []core.FixedExpense{{
			Description: "Milk and bread",
			Category:    core.Food,
			Date:        time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC),
			Price:       decimal.RequireFromString("120.5"),
		}},
	}

	rows := Rows(d)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	want := [][]string{
		{"Groceries", "Personal", "2026-10-20", "500.00", "379.50"},
		Header,
		{"2026-10-19", "Milk and bread", "Food", "120.50"},
		{"", "", "Total", "120.50"},
	}
	for i := range want {
		if len(rows[i]) != len(want[i]) {
			t.Fatalf("row %d: got %v, want %v", i, rows[i], want[i])
		}
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Errorf("row %d col %d: got %q, want %q", i, j, rows[i][j], want[i][j])
			}
		}
	}
}
