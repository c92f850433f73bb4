package outfmt

import (
	"fmt"
	"io"

	"github.com/tsiemens/capgain/portfolio"
)

// STDWriter prints human readable tables.
type STDWriter struct {
	w    io.Writer
	opts portfolio.RenderOptions
}

func NewSTDWriter(w io.Writer, opts portfolio.RenderOptions) *STDWriter {
	return &STDWriter{
		w:    w,
		opts: opts,
	}
}

// WriteRun implements TaxWriter.
func (w *STDWriter) WriteRun(run *RunOutput) error {
	tableModel := portfolio.RenderTxTableModel(run.Deltas, run.Summary, w.opts)
	if run.Err != nil {
		tableModel.Errors = append(tableModel.Errors, run.Err)
	}
	return w.PrintRenderTable(Transactions, run.Name(), tableModel)
}

// WriteAggregate implements TaxWriter.
func (w *STDWriter) WriteAggregate(agg *AggregateOutput) error {
	if len(agg.Summaries) < 2 {
		return nil
	}
	tableModel := portfolio.RenderAggregateTaxes(agg.Taxes, agg.Summaries, w.opts)
	return w.PrintRenderTable(AggregateTaxes, "", tableModel)
}

func (w *STDWriter) PrintRenderTable(outType OutputType, name string, tableModel *portfolio.RenderTable) error {
	var title string
	switch outType {
	case Transactions:
		title = fmt.Sprintf("Transactions for %s", name)
	case AggregateTaxes:
		title = "Aggregate Taxes"
	default:
		return fmt.Errorf("OutputType %v not implemented", outType)
	}
	portfolio.PrintRenderTable(title, tableModel, w.w)
	_, err := fmt.Fprintln(w.w, "")
	return err
}
