package portfolio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tsiemens/capgain/log"
)

// Run is one independent sequence of transactions, read from a single line of
// JSON input (or a group of CSV rows).
type Run struct {
	Desc string
	// Line the run starts on.
	Line int
	Txs  []*Tx
	// Set if the run could not be read. Txs is then incomplete.
	Err error
}

func parseAction(data string) (TxAction, error) {
	switch strings.TrimSpace(strings.ToLower(data)) {
	case "buy":
		return BUY, nil
	case "sell":
		return SELL, nil
	default:
		return NO_ACTION, fmt.Errorf("Invalid operation: '%s'", data)
	}
}

func parseQuantity(data string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(data))
	if err != nil {
		return 0, fmt.Errorf("Error parsing quantity: %v", err)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("Quantity is not a whole number: %s", data)
	}
	if !d.Equal(decimal.NewFromInt(d.IntPart())) {
		return 0, fmt.Errorf("Quantity is out of range: %s", data)
	}
	return d.IntPart(), nil
}

func parseUnitCost(data string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(data))
	if err != nil {
		return decimal.Zero, fmt.Errorf("Error parsing unit cost: %v", err)
	}
	return d, nil
}

// **********************************************************************************
// JSON lines
// **********************************************************************************

type jsonRecord struct {
	Operation *string         `json:"operation"`
	UnitCost  json.RawMessage `json:"unit-cost"`
	Quantity  json.RawMessage `json:"quantity"`
}

// jsonNumberField returns the literal text of a numeric field. Quoted numbers
// and other JSON types are rejected.
func jsonNumberField(name string, raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("missing field %q", name)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("field %q: %v", name, err)
	}
	num, ok := v.(json.Number)
	if !ok {
		return "", fmt.Errorf("field %q: expected a number, found %s", name, raw)
	}
	return num.String(), nil
}

func (r *jsonRecord) toTx() (*Tx, error) {
	if r.Operation == nil {
		return nil, fmt.Errorf("missing field \"operation\"")
	}
	unitCostStr, err := jsonNumberField("unit-cost", r.UnitCost)
	if err != nil {
		return nil, err
	}
	quantityStr, err := jsonNumberField("quantity", r.Quantity)
	if err != nil {
		return nil, err
	}
	action, err := parseAction(*r.Operation)
	if err != nil {
		return nil, err
	}
	unitCost, err := parseUnitCost(unitCostStr)
	if err != nil {
		return nil, err
	}
	shares, err := parseQuantity(quantityStr)
	if err != nil {
		return nil, err
	}
	return &Tx{Action: action, Shares: shares, UnitCost: unitCost}, nil
}

// ParseTxJsonLine decodes a single run, formatted as a JSON array of
// {"operation", "unit-cost", "quantity"} objects. Unknown fields are ignored.
func ParseTxJsonLine(line string, desc string, lineNo int) ([]*Tx, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal([]byte(line), &raws); err != nil {
		return nil, &MalformedRecordError{Desc: desc, Line: lineNo, Index: -1, Reason: err.Error()}
	}
	if raws == nil {
		return nil, &MalformedRecordError{
			Desc: desc, Line: lineNo, Index: -1, Reason: "expected an array of records, found null"}
	}

	txs := make([]*Tx, 0, len(raws))
	for i, raw := range raws {
		rec := jsonRecord{}
		err := json.Unmarshal(raw, &rec)
		var tx *Tx
		if err == nil {
			tx, err = rec.toTx()
		}
		if err != nil {
			return txs, &MalformedRecordError{Desc: desc, Line: lineNo, Index: i, Reason: err.Error()}
		}
		tx.Line = lineNo
		tx.Index = i
		txs = append(txs, tx)
	}
	return txs, nil
}

// ParseRunsJson reads one run per line from r. Blank lines are skipped, or end
// the input if stopOnBlank is set. A malformed line only fails its own Run; the
// returned error is for I/O failures.
func ParseRunsJson(r io.Reader, desc string, stopOnBlank bool) ([]*Run, error) {
	scanner := bufio.NewScanner(r)
	// Runs can be arbitrarily long.
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	runs := []*Run{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if stopOnBlank {
				break
			}
			continue
		}
		txs, err := ParseTxJsonLine(line, desc, lineNo)
		log.Tracef("feed", "%s:%d: %d records, err: %v", desc, lineNo, len(txs), err)
		runs = append(runs, &Run{Desc: desc, Line: lineNo, Txs: txs, Err: err})
	}
	if err := scanner.Err(); err != nil {
		return runs, fmt.Errorf("Failed to read %s: %w", desc, err)
	}
	return runs, nil
}

// **********************************************************************************
// CSV
// **********************************************************************************

type csvRecord struct {
	Tx  *Tx
	Run string
}

type ColParser func(string, *csvRecord) error

var colParserMap = map[string]ColParser{
	"operation": parseCsvOperation,
	"unit-cost": parseCsvUnitCost,
	"quantity":  parseCsvQuantity,
	"run":       parseCsvRun,
}

// Alternate header names accepted for the columns above.
var colAliases = map[string]string{
	"action":       "operation",
	"amount/share": "unit-cost",
	"price":        "unit-cost",
	"shares":       "quantity",
}

var requiredCols = []string{"operation", "unit-cost", "quantity"}

// Column names in the order they are documented.
var ColNames = []string{"operation", "unit-cost", "quantity", "run"}

func parseNothing(data string, rec *csvRecord) error {
	return nil
}

func parseCsvOperation(data string, rec *csvRecord) error {
	action, err := parseAction(data)
	rec.Tx.Action = action
	return err
}

func parseCsvUnitCost(data string, rec *csvRecord) error {
	d, err := parseUnitCost(data)
	rec.Tx.UnitCost = d
	return err
}

func parseCsvQuantity(data string, rec *csvRecord) error {
	q, err := parseQuantity(data)
	rec.Tx.Shares = q
	return err
}

func parseCsvRun(data string, rec *csvRecord) error {
	rec.Run = strings.TrimSpace(data)
	return nil
}

// ParseRunsCsv reads a CSV with a header row. Consecutive rows sharing a "run"
// value form one Run; without a run column the whole file is a single Run.
func ParseRunsCsv(r io.Reader, desc string) ([]*Run, error) {
	csvR := csv.NewReader(r)
	csvR.FieldsPerRecord = -1
	records, err := csvR.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, &MalformedRecordError{
				Desc: desc, Line: parseErr.Line, Index: -1, Reason: parseErr.Err.Error()}
		}
		return nil, fmt.Errorf("Failed to read %s: %w", desc, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("No rows found in %s", desc)
	}

	header := records[0]
	colParsers := make([]ColParser, len(header))
	seen := map[string]bool{}
	for i, col := range header {
		sanCol := strings.TrimSpace(strings.ToLower(col))
		if alias, ok := colAliases[sanCol]; ok {
			sanCol = alias
		}
		if parser, ok := colParserMap[sanCol]; ok {
			colParsers[i] = parser
			seen[sanCol] = true
		} else {
			fmt.Fprintf(os.Stderr, "Warning: Unrecognized column %s\n", sanCol)
			colParsers[i] = parseNothing
		}
	}
	for _, col := range requiredCols {
		if !seen[col] {
			return nil, &MalformedRecordError{
				Desc: desc, Line: 1, Index: -1, Reason: fmt.Sprintf("missing column %q", col)}
		}
	}

	runs := []*Run{}
	var run *Run
	runKey := ""
	for i, record := range records[1:] {
		lineNo := i + 2
		rec := &csvRecord{Tx: &Tx{Line: lineNo}}
		var rowErr error
		for j, col := range record {
			if j >= len(colParsers) {
				break
			}
			if err := colParsers[j](col, rec); err != nil && rowErr == nil {
				rowErr = fmt.Errorf("column %d: %v", j+1, err)
			}
		}
		if len(record) < len(colParsers) && rowErr == nil {
			rowErr = fmt.Errorf("expected %d columns, found %d", len(colParsers), len(record))
		}

		if run == nil || rec.Run != runKey {
			run = &Run{Desc: desc, Line: lineNo, Txs: []*Tx{}}
			runs = append(runs, run)
			runKey = rec.Run
		}
		if run.Err != nil {
			continue
		}
		rec.Tx.Index = len(run.Txs)
		if rowErr != nil {
			run.Err = &MalformedRecordError{
				Desc: desc, Line: lineNo, Index: rec.Tx.Index, Reason: rowErr.Error()}
			continue
		}
		run.Txs = append(run.Txs, rec.Tx)
	}
	return runs, nil
}

// ToCsvString renders txs in the format read by ParseRunsCsv.
func ToCsvString(txs []*Tx) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Write(ColNames[:3])
	for _, tx := range txs {
		w.Write([]string{
			strings.ToLower(tx.Action.String()), tx.UnitCost.String(), fmt.Sprintf("%d", tx.Shares)})
	}
	w.Flush()
	return b.String()
}
