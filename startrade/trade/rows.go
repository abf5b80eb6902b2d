package trade

import (
	"strings"

	"github.com/hyeseon-dev/startrade/startrade/ledger"
)

// Trade Request sheet columns (1-based): participant A name and card,
// participant B name and card, serialized initiation state, each side's
// response, and the terminal outcome.
const (
	reqColNameA      = 1
	reqColCardA      = 2
	reqColNameB      = 3
	reqColCardB      = 4
	reqColInitiation = 5
	reqColResponseA  = 6
	reqColResponseB  = 7
	reqColOutcome    = 8
)

const (
	OutcomeCompleted = "completed"
	OutcomeDeclined  = "declined"
)

// requestRow is the parsed view of one Trade Request sheet row.
type requestRow struct {
	rowNum     int
	nameA      string
	cardA      string
	nameB      string
	cardB      string
	initiation string
	responseA  string
	responseB  string
	outcome    string
}

func parseRequestRow(rowNum int, row ledger.Row) requestRow {
	cell := func(col int) string {
		return strings.TrimSpace(row.Cell(col - 1))
	}
	return requestRow{
		rowNum:     rowNum,
		nameA:      cell(reqColNameA),
		cardA:      cell(reqColCardA),
		nameB:      cell(reqColNameB),
		cardB:      cell(reqColCardB),
		initiation: cell(reqColInitiation),
		responseA:  cell(reqColResponseA),
		responseB:  cell(reqColResponseB),
		outcome:    cell(reqColOutcome),
	}
}

// hasCards reports whether the row describes a complete trade request.
func (r requestRow) hasCards() bool {
	return r.cardA != "" && r.cardB != ""
}

// unprocessed means the scanner has not initiated this row and no outcome or
// failure was recorded against it.
func (r requestRow) unprocessed() bool {
	return r.hasCards() && r.initiation == "" && r.outcome == ""
}

// resolved means the trade already ran to a terminal state: an explicit
// outcome, any decline, or both sides accepted.
func (r requestRow) resolved() bool {
	if r.outcome != "" {
		return true
	}
	if r.responseA == string(ResponseDecline) || r.responseB == string(ResponseDecline) {
		return true
	}
	return r.responseA == string(ResponseAccept) && r.responseB == string(ResponseAccept)
}

func parseResponse(raw string) Response {
	switch raw {
	case string(ResponseAccept):
		return ResponseAccept
	case string(ResponseDecline):
		return ResponseDecline
	default:
		return ResponsePending
	}
}

func responseCol(slot int) int {
	if slot == 0 {
		return reqColResponseA
	}
	return reqColResponseB
}
