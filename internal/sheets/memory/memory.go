package memory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"expensepool/internal/core"
	ports "expensepool/internal/sheets"
)

// Store keeps exported pools in memory. When an output writer is set every
// export is also rendered there as a table.
type Store struct {
	mu      sync.Mutex
	out     io.Writer
	exports []core.PoolDetail
}

var _ ports.PoolExporter = (*Store)(nil)

func New(out io.Writer) *Store {
	return &Store{out: out}
}

// ExportPool stores the detail and returns a synthetic reference.
func (s *Store) ExportPool(_ context.Context, d core.PoolDetail) (string, error) {
	if strings.TrimSpace(d.Pool.ID) == "" {
		return "", fmt.Errorf("export pool: missing pool id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, d)
	ref := fmt.Sprintf("mem:%d", len(s.exports))
	if s.out != nil {
		if err := render(s.out, d); err != nil {
			return "", fmt.Errorf("render export: %w", err)
		}
	}
	return ref, nil
}

// Exports returns the pools exported so far.
func (s *Store) Exports() []core.PoolDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.PoolDetail(nil), s.exports...)
}

func render(w io.Writer, d core.PoolDetail) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range ports.Rows(d) {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
