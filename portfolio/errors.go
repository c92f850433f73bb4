package portfolio

import (
	"fmt"
)

// MalformedRecordError is returned when input can not be read into a Tx.
type MalformedRecordError struct {
	Desc string
	Line int
	// Position of the record within its run, or -1 if the run itself could not
	// be decoded.
	Index  int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	loc := fmt.Sprintf("%s:%d", e.Desc, e.Line)
	if e.Index >= 0 {
		return fmt.Sprintf("%s: malformed record %d: %s", loc, e.Index+1, e.Reason)
	}
	return fmt.Sprintf("%s: malformed run: %s", loc, e.Reason)
}

// InvalidOperationError is returned when a well formed Tx breaks a rule of the
// simulation, such as selling more shares than are held.
type InvalidOperationError struct {
	Tx   *Tx
	Rule string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("record %d (line %d): invalid %s of %d shares at %s: %s",
		e.Tx.Index+1, e.Tx.Line, e.Tx.Action, e.Tx.Shares, e.Tx.UnitCost, e.Rule)
}
