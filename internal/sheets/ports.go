package sheets

import (
	"context"

	"expensepool/internal/core"
)

// PoolExporter writes a pool and its expenses to an external sheet and
// returns a reference to the written range.
type PoolExporter interface {
	ExportPool(ctx context.Context, d core.PoolDetail) (ref string, err error)
}

// Header is the column layout of the expense rows.
var Header = []string{"Date", "Description", "Category", "Price"}

// Rows lays out a pool export: a summary row, the header, then one row per
// expense in the order given.
func Rows(d core.PoolDetail) [][]string {
	p := d.Pool
	rows := make([][]string, 0, len(d.Expenses)+3)
	rows = append(rows,
		[]string{p.Name, string(p.Type), p.Expiry.String(), p.ReceivedAmount.StringFixed(2), p.Balance.StringFixed(2)},
		Header,
	)
	for _, e := range d.Expenses {
		rows = append(rows, []string{
			e.Date.UTC().Format(core.DateLayout),
			e.Description,
			string(e.Category),
			e.Price.StringFixed(2),
		})
	}
	rows = append(rows, []string{"", "", "Total", d.Total().StringFixed(2)})
	return rows
}
