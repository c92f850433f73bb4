package outfmt

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tsiemens/capgain/portfolio"
)

func mkRun(t *testing.T, number int, txs ...*portfolio.Tx) *RunOutput {
	deltas, err := portfolio.TxsToDeltaList(txs, nil, portfolio.DefaultRules())
	require.Nil(t, err)
	return &RunOutput{
		Number: number, Desc: "stdin", Line: number,
		Deltas: deltas, Summary: portfolio.CalcRunSummary(deltas),
	}
}

func tx(action portfolio.TxAction, shares int64, price string) *portfolio.Tx {
	return &portfolio.Tx{Action: action, Shares: shares, UnitCost: decimal.RequireFromString(price)}
}

func sampleRuns(t *testing.T) []*RunOutput {
	return []*RunOutput{
		mkRun(t, 1, tx(portfolio.BUY, 10000, "10"), tx(portfolio.SELL, 5000, "20")),
		{Number: 2, Desc: "stdin", Line: 2, Err: errors.New("stdin:2: malformed run: bad")},
		mkRun(t, 3, tx(portfolio.BUY, 100, "10"), tx(portfolio.SELL, 50, "15")),
	}
}

func aggregateOf(runs []*RunOutput) *AggregateOutput {
	summaries := map[int]*portfolio.RunSummary{}
	for _, r := range runs {
		if r.Err == nil {
			summaries[r.Number] = r.Summary
		}
	}
	return &AggregateOutput{Taxes: portfolio.CalcCumulativeTaxes(summaries), Summaries: summaries}
}

func TestRunOutputName(t *testing.T) {
	r := &RunOutput{Number: 3, Desc: "in.json", Line: 7}
	require.Equal(t, "run 3 (in.json:7)", r.Name())
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)
	runs := sampleRuns(t)
	for _, r := range runs {
		require.Nil(t, w.WriteRun(r))
	}
	require.Nil(t, w.WriteAggregate(aggregateOf(runs)))
	require.Equal(t,
		`[{"tax":0.00},{"tax":10000.00}]`+"\n"+`[{"tax":0.00},{"tax":0.00}]`+"\n",
		buf.String())

	// An empty run is an empty array
	buf.Reset()
	require.Nil(t, w.WriteRun(mkRun(t, 1)))
	require.Equal(t, "[]\n", buf.String())
}

func TestSTDWriter(t *testing.T) {
	rq := require.New(t)

	var buf bytes.Buffer
	w := NewSTDWriter(&buf, portfolio.RenderOptions{})
	runs := sampleRuns(t)
	for _, r := range runs {
		rq.Nil(w.WriteRun(r))
	}
	rq.Nil(w.WriteAggregate(aggregateOf(runs)))

	out := buf.String()
	rq.Contains(out, "Transactions for run 1 (stdin:1)")
	rq.Contains(out, "[!] stdin:2: malformed run: bad. Printing parsed information state:")
	rq.Contains(out, "$10000.00")
	rq.Contains(out, "Aggregate Taxes")

	// No aggregate for a single run
	buf.Reset()
	rq.Nil(w.WriteAggregate(aggregateOf(runs[:1])))
	rq.Equal("", buf.String())
}

func TestCSVWriter(t *testing.T) {
	rq := require.New(t)

	dir := filepath.Join(t.TempDir(), "reports")
	w, err := NewCSVWriter(dir, portfolio.RenderOptions{})
	rq.Nil(err)
	runs := sampleRuns(t)
	for _, r := range runs {
		rq.Nil(w.WriteRun(r))
	}
	rq.Nil(w.WriteAggregate(aggregateOf(runs)))

	for _, fn := range []string{"run-001.csv", "run-002.csv", "run-003.csv", "aggregate-taxes.csv"} {
		_, err := os.Stat(filepath.Join(dir, fn))
		rq.Nil(err, fn)
	}

	data, err := os.ReadFile(filepath.Join(dir, "run-001.csv"))
	rq.Nil(err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	rq.True(strings.HasPrefix(lines[0], "#,TX,Shares,Unit Cost,Amount"), lines[0])
	rq.Equal(4, len(lines))
	rq.Contains(lines[2], "$10000.00")

	data, err = os.ReadFile(filepath.Join(dir, "run-002.csv"))
	rq.Nil(err)
	rq.Contains(string(data), "[!] stdin:2: malformed run: bad")

	data, err = os.ReadFile(filepath.Join(dir, "aggregate-taxes.csv"))
	rq.Nil(err)
	rq.Contains(string(data), "All runs,$50250.00,$10000.00")
}
