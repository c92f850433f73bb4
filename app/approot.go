package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tsiemens/capgain/app/outfmt"
	"github.com/tsiemens/capgain/log"
	ptf "github.com/tsiemens/capgain/portfolio"
)

const (
	InputJson = "json"
	InputCsv  = "csv"
)

/* Parses a base status, formatted as:
 * nShares:avgPrice[:accumulatedLoss]. Eg. 100:10.50 or 100:10.50:250
 */
func ParseInitialStatus(opt string) (*ptf.PortfolioStatus, error) {
	parts := strings.Split(opt, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return nil, fmt.Errorf("Invalid base status format '%s'", opt)
	}
	shares, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("Invalid shares format '%s'. %v", opt, err)
	} else if shares < 0 {
		return nil, fmt.Errorf("Invalid shares format '%s'. Must not be negative", opt)
	}
	avg, err := parseNonNegative(parts[1])
	if err != nil {
		return nil, fmt.Errorf("Invalid average price format '%s'. %v", opt, err)
	}
	loss := decimal.Zero
	if len(parts) == 3 {
		loss, err = parseNonNegative(parts[2])
		if err != nil {
			return nil, fmt.Errorf("Invalid accumulated loss format '%s'. %v", opt, err)
		}
	}
	return &ptf.PortfolioStatus{ShareBalance: shares, AvgPrice: avg, AccumulatedLoss: loss}, nil
}

func parseNonNegative(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return d, err
	} else if d.IsNegative() {
		return d, fmt.Errorf("Must not be negative")
	}
	return d, nil
}

type DescribedReader struct {
	Desc   string
	Reader io.Reader
	// InputJson or InputCsv
	Format string
}

type Options struct {
	Rules ptf.Rules
	// Status every run starts from. Nil for an empty portfolio.
	InitialStatus *ptf.PortfolioStatus
	// Max runs simulated concurrently. <= 0 for no limit.
	Jobs int
	// Stop writing results after the first failed run.
	FailFast bool
	// End JSON input at the first blank line.
	StopOnBlank bool
}

type AppResult struct {
	Runs      []*outfmt.RunOutput
	Aggregate *outfmt.AggregateOutput
}

func (r *AppResult) FailedRuns() int {
	n := 0
	for _, run := range r.Runs {
		if run.Err != nil {
			n++
		}
	}
	return n
}

// ReadRuns parses every reader into runs, in order. Only I/O failures are
// returned as errors; malformed input is recorded on the affected Run.
func ReadRuns(readers []DescribedReader, opts Options) ([]*ptf.Run, error) {
	allRuns := make([]*ptf.Run, 0, 8)
	for _, r := range readers {
		var runs []*ptf.Run
		var err error
		switch r.Format {
		case InputCsv:
			runs, err = ptf.ParseRunsCsv(r.Reader, r.Desc)
			var malformed *ptf.MalformedRecordError
			if errors.As(err, &malformed) {
				runs, err = []*ptf.Run{{Desc: r.Desc, Line: malformed.Line, Err: err}}, nil
			}
		case InputJson, "":
			runs, err = ptf.ParseRunsJson(r.Reader, r.Desc, opts.StopOnBlank)
		default:
			return nil, fmt.Errorf("Unsupported input format %q for %s", r.Format, r.Desc)
		}
		if err != nil {
			return nil, err
		}
		allRuns = append(allRuns, runs...)
	}
	return allRuns, nil
}

func simulateRun(number int, run *ptf.Run, opts Options) *outfmt.RunOutput {
	out := &outfmt.RunOutput{Number: number, Desc: run.Desc, Line: run.Line, Err: run.Err}
	if out.Err != nil {
		return out
	}
	deltas, err := ptf.TxsToDeltaList(run.Txs, opts.InitialStatus, opts.Rules)
	out.Deltas = deltas
	if err != nil {
		out.Err = fmt.Errorf("%s: %w", run.Desc, err)
		return out
	}
	out.Summary = ptf.CalcRunSummary(deltas)
	return out
}

// SimulateRuns simulates each run independently, up to opts.Jobs at a time.
// Results are in the same order as runs.
func SimulateRuns(runs []*ptf.Run, opts Options) []*outfmt.RunOutput {
	results := make([]*outfmt.RunOutput, len(runs))
	g := new(errgroup.Group)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}
	for i, run := range runs {
		i, run := i, run
		g.Go(func() error {
			results[i] = simulateRun(i+1, run, opts)
			return nil
		})
	}
	// Run failures are carried in the results, never returned here.
	_ = g.Wait()
	return results
}

func RunApp(
	readers []DescribedReader,
	opts Options,
	writer outfmt.TaxWriter,
	errPrinter log.ErrorPrinter) (*AppResult, error) {

	runs, err := ReadRuns(readers, opts)
	if err != nil {
		errPrinter.Ln("Error:", err)
		return nil, err
	}
	log.Fverbosef(os.Stderr, "Read %d runs from %d inputs\n", len(runs), len(readers))

	result := &AppResult{Runs: make([]*outfmt.RunOutput, 0, len(runs))}
	summaries := map[int]*ptf.RunSummary{}
	for _, run := range SimulateRuns(runs, opts) {
		result.Runs = append(result.Runs, run)
		if run.Err != nil {
			errPrinter.F("[!] %v\n", run.Err)
		} else {
			summaries[run.Number] = run.Summary
			log.Fverbosef(os.Stderr, "%s: %d transactions, tax %s\n",
				run.Name(), len(run.Deltas), run.Summary.TaxTotal.StringFixed(2))
		}
		if err := writer.WriteRun(run); err != nil {
			return result, fmt.Errorf("Writing %s: %w", run.Name(), err)
		}
		if run.Err != nil && opts.FailFast {
			break
		}
	}

	result.Aggregate = &outfmt.AggregateOutput{
		Taxes:     ptf.CalcCumulativeTaxes(summaries),
		Summaries: summaries,
	}
	if err := writer.WriteAggregate(result.Aggregate); err != nil {
		return result, fmt.Errorf("Writing aggregate: %w", err)
	}
	return result, nil
}
