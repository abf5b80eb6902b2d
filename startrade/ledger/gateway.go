package ledger

import (
	"context"
	"fmt"
)

// Row is one spreadsheet row, sparse at the tail: trailing empty cells may be
// absent entirely, so callers index through Cell rather than directly.
type Row []string

// Cell returns the value at a zero-based column index, or "" when the row is
// too short to reach it.
func (r Row) Cell(col int) string {
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// CellRef addresses a single cell. Rows and columns are 1-based, matching the
// spreadsheet conventions the ledger sheets were designed around.
type CellRef struct {
	Sheet string
	Row   int
	Col   int
}

func Ref(sheet string, row, col int) CellRef {
	return CellRef{Sheet: sheet, Row: row, Col: col}
}

// String renders the reference in A1 notation, e.g. "Trades!C12".
func (c CellRef) String() string {
	return fmt.Sprintf("%s!%s%d", c.Sheet, ColumnName(c.Col), c.Row)
}

// ColumnName converts a 1-based column index to its letter form (1 → A, 27 → AA).
func ColumnName(col int) string {
	var name []byte
	for col > 0 {
		col--
		name = append([]byte{byte('A' + col%26)}, name...)
		col /= 26
	}
	return string(name)
}

// Gateway is the row/cell contract the trade engine runs on. It deliberately
// exposes no transactions and no locking: the sheet behind it has neither, and
// every correctness guarantee above this interface must come from the engine's
// own serialization.
type Gateway interface {
	// ReadRows returns the rows of a named sheet range in order. Row 1 of the
	// result corresponds to row 1 of the sheet; there is no header handling.
	ReadRows(ctx context.Context, sheetRange string) ([]Row, error)

	// WriteCell overwrites a single cell.
	WriteCell(ctx context.Context, ref CellRef, value string) error

	// AppendRows appends rows after the last populated row of the range. The
	// rows of one call land contiguously and in order.
	AppendRows(ctx context.Context, sheetRange string, rows []Row) error
}
