package ledger

import (
	"context"
	"sync"
)

// MemoryGateway is a Gateway backed by in-process maps. It exists for tests and
// for running the bot without a database; it honors the same sparse-row
// semantics as the real sheet.
type MemoryGateway struct {
	mu     sync.Mutex
	sheets map[string][]Row
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		sheets: make(map[string][]Row),
	}
}

// Seed replaces the contents of a sheet wholesale.
func (g *MemoryGateway) Seed(sheet string, rows []Row) {
	g.mu.Lock()
	defer g.mu.Unlock()
	copied := make([]Row, len(rows))
	for i, row := range rows {
		copied[i] = append(Row(nil), row...)
	}
	g.sheets[sheet] = copied
}

func (g *MemoryGateway) ReadRows(_ context.Context, sheetRange string) ([]Row, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rows := g.sheets[sheetRange]
	out := make([]Row, len(rows))
	for i, row := range rows {
		out[i] = append(Row(nil), row...)
	}
	return out, nil
}

func (g *MemoryGateway) WriteCell(_ context.Context, ref CellRef, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	rows := g.sheets[ref.Sheet]
	for len(rows) < ref.Row {
		rows = append(rows, Row{})
	}
	row := rows[ref.Row-1]
	for len(row) < ref.Col {
		row = append(row, "")
	}
	row[ref.Col-1] = value
	rows[ref.Row-1] = row
	g.sheets[ref.Sheet] = rows
	return nil
}

func (g *MemoryGateway) AppendRows(_ context.Context, sheetRange string, rows []Row) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, row := range rows {
		g.sheets[sheetRange] = append(g.sheets[sheetRange], append(Row(nil), row...))
	}
	return nil
}
