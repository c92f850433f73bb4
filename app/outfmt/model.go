package outfmt

import (
	"fmt"

	"github.com/tsiemens/capgain/portfolio"
)

type OutputType int

const (
	Transactions OutputType = iota
	AggregateTaxes
)

// RunOutput is the result of simulating one run.
type RunOutput struct {
	// 1-based, counted across all inputs.
	Number int
	Desc   string
	Line   int
	Deltas []*portfolio.TxDelta
	// Nil if Err is set.
	Summary *portfolio.RunSummary
	Err     error
}

func (r *RunOutput) Name() string {
	return fmt.Sprintf("run %d (%s:%d)", r.Number, r.Desc, r.Line)
}

type AggregateOutput struct {
	Taxes     *portfolio.CumulativeTaxes
	Summaries map[int]*portfolio.RunSummary
}

type TaxWriter interface {
	WriteRun(run *RunOutput) error
	WriteAggregate(agg *AggregateOutput) error
}
