package app

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tsiemens/capgain/app/outfmt"
	"github.com/tsiemens/capgain/log"
	ptf "github.com/tsiemens/capgain/portfolio"
)

const (
	case1 = `[{"operation":"buy", "unit-cost":10.00, "quantity": 100}, {"operation":"sell", "unit-cost":15.00, "quantity": 50}, {"operation":"sell", "unit-cost":15.00, "quantity": 50}]`
	case2 = `[{"operation":"buy", "unit-cost":10.00, "quantity": 10000}, {"operation":"sell", "unit-cost":20.00, "quantity": 5000}, {"operation":"sell", "unit-cost":5.00, "quantity": 5000}]`
	// Sells more than it holds
	badRun = `[{"operation":"buy", "unit-cost":10.00, "quantity": 10}, {"operation":"sell", "unit-cost":20.00, "quantity": 11}]`

	case1Out = `[{"tax":0.00},{"tax":0.00},{"tax":0.00}]`
	case2Out = `[{"tax":0.00},{"tax":10000.00},{"tax":0.00}]`
)

func defaultOpts() Options {
	return Options{Rules: ptf.DefaultRules(), Jobs: 1}
}

func runJson(t *testing.T, input string, opts Options) (string, string, *AppResult) {
	var out bytes.Buffer
	errPrinter := &log.BufErrorPrinter{}
	res, err := RunApp(
		[]DescribedReader{{Desc: "stdin", Reader: strings.NewReader(input), Format: InputJson}},
		opts, outfmt.NewJSONWriter(&out), errPrinter)
	require.Nil(t, err)
	return out.String(), errPrinter.String(), res
}

func TestRunAppJson(t *testing.T) {
	rq := require.New(t)

	out, errOut, res := runJson(t, case1+"\n"+case2+"\n", defaultOpts())
	rq.Equal(case1Out+"\n"+case2Out+"\n", out)
	rq.Equal("", errOut)
	rq.Equal(2, len(res.Runs))
	rq.Equal(0, res.FailedRuns())
	rq.Equal("10000", res.Aggregate.Taxes.TaxTotal.String())
}

func TestRunAppFailedRunIsIsolated(t *testing.T) {
	rq := require.New(t)

	out, errOut, res := runJson(t, case1+"\n"+badRun+"\n"+case2+"\n", defaultOpts())
	rq.Equal(case1Out+"\n"+case2Out+"\n", out)
	rq.True(strings.HasPrefix(errOut, "[!] stdin: "), errOut)
	rq.Contains(errOut, "more than the current holdings (10)")
	rq.Equal(1, res.FailedRuns())
	rq.NotNil(res.Runs[1].Err)
	// Deltas before the failure are kept
	rq.Equal(1, len(res.Runs[1].Deltas))
	rq.Equal(2, len(res.Aggregate.Summaries))

	// Malformed lines are reported the same way
	out, errOut, _ = runJson(t, case1+"\nnot json\n"+case2+"\n", defaultOpts())
	rq.Equal(case1Out+"\n"+case2Out+"\n", out)
	rq.Contains(errOut, "stdin:2: malformed run")
}

func TestRunAppFailFast(t *testing.T) {
	opts := defaultOpts()
	opts.FailFast = true
	out, errOut, res := runJson(t, case1+"\n"+badRun+"\n"+case2+"\n", opts)
	require.Equal(t, case1Out+"\n", out)
	require.Equal(t, 1, strings.Count(errOut, "[!]"))
	require.Equal(t, 2, len(res.Runs))
}

func TestRunAppParallelMatchesSequential(t *testing.T) {
	lines := make([]string, 0, 60)
	for i := 0; i < 20; i++ {
		lines = append(lines, case1, case2,
			fmt.Sprintf(`[{"operation":"buy","unit-cost":%d.25,"quantity":3000},{"operation":"sell","unit-cost":%d,"quantity":1500}]`,
				i+1, i*3+1))
	}
	input := strings.Join(lines, "\n")

	seqOut, seqErr, _ := runJson(t, input, defaultOpts())
	for _, jobs := range []int{0, 4, 64} {
		opts := defaultOpts()
		opts.Jobs = jobs
		out, errOut, res := runJson(t, input, opts)
		require.Equal(t, seqOut, out, "jobs=%d", jobs)
		require.Equal(t, seqErr, errOut)
		for i, run := range res.Runs {
			require.Equal(t, i+1, run.Number)
			require.Equal(t, i+1, run.Line)
		}
	}
}

func TestRunAppInitialStatus(t *testing.T) {
	opts := defaultOpts()
	status, err := ParseInitialStatus("1000:5.00:100")
	require.Nil(t, err)
	opts.InitialStatus = status

	// 30000 sale, gain 25000 less 100 of carried loss
	out, _, _ := runJson(t, `[{"operation":"sell","unit-cost":30,"quantity":1000}]`, opts)
	require.Equal(t, `[{"tax":4980.00}]`+"\n", out)
	// Shared status is not modified by runs
	require.Equal(t, int64(1000), status.ShareBalance)
}

func TestRunAppCsv(t *testing.T) {
	rq := require.New(t)

	var out bytes.Buffer
	errPrinter := &log.BufErrorPrinter{}
	csvIn := "run,operation,unit-cost,quantity\n" +
		"1,buy,10,100\n1,sell,15,50\n" +
		"2,buy,10,10000\n2,sell,20,5000\n2,sell,5,5000\n"
	res, err := RunApp(
		[]DescribedReader{
			{Desc: "a.csv", Reader: strings.NewReader(csvIn), Format: InputCsv},
			{Desc: "b.json", Reader: strings.NewReader(case1), Format: InputJson},
			{Desc: "c.csv", Reader: strings.NewReader("operation,quantity\nbuy,1\n"), Format: InputCsv},
		},
		defaultOpts(), outfmt.NewJSONWriter(&out), errPrinter)
	rq.Nil(err)
	rq.Equal(`[{"tax":0.00},{"tax":0.00}]`+"\n"+case2Out+"\n"+case1Out+"\n", out.String())
	rq.Equal(4, len(res.Runs))
	rq.Equal("b.json", res.Runs[2].Desc)
	rq.Contains(errPrinter.String(), `c.csv:1: malformed run: missing column "unit-cost"`)
}

func TestReadRunsUnknownFormat(t *testing.T) {
	_, err := ReadRuns(
		[]DescribedReader{{Desc: "x", Reader: strings.NewReader(""), Format: "xml"}},
		defaultOpts())
	require.NotNil(t, err)
}

func TestParseInitialStatus(t *testing.T) {
	rq := require.New(t)

	s, err := ParseInitialStatus("100:10.50")
	rq.Nil(err)
	rq.Equal(int64(100), s.ShareBalance)
	rq.Equal("10.5", s.AvgPrice.String())
	rq.True(s.AccumulatedLoss.IsZero())

	s, err = ParseInitialStatus("0:0:250.5")
	rq.Nil(err)
	rq.Equal("250.5", s.AccumulatedLoss.String())

	for _, bad := range []string{"", "100", "1:2:3:4", "x:1", "1.5:1", "-1:1", "1:-1", "1:1:-1", "1:abc"} {
		_, err := ParseInitialStatus(bad)
		rq.NotNil(err, bad)
	}
}

func TestRunAppRejectsWrongTypes(t *testing.T) {
	out, errOut, res := runJson(t,
		"null\n"+`[{"operation":"buy","unit-cost":"10","quantity":"5"}]`+"\n"+case1+"\n", defaultOpts())
	require.Equal(t, case1Out+"\n", out)
	require.Equal(t, 2, res.FailedRuns())
	require.Contains(t, errOut, "stdin:1: malformed run")
	require.Contains(t, errOut, "stdin:2: malformed record 1")
}
