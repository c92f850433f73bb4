package outfmt

import (
	"encoding/csv"
	"fmt"
	"os"
	"path"

	"github.com/tsiemens/capgain/portfolio"
)

// CSVWriter writes one file per run, plus aggregate-taxes.csv.
type CSVWriter struct {
	OutDir string
	opts   portfolio.RenderOptions
}

// WriteRun implements TaxWriter.
func (w *CSVWriter) WriteRun(run *RunOutput) error {
	tableModel := portfolio.RenderTxTableModel(run.Deltas, run.Summary, w.opts)
	if run.Err != nil {
		tableModel.Notes = append(tableModel.Notes, fmt.Sprintf("[!] %v", run.Err))
	}
	return w.PrintRenderTable(Transactions, fmt.Sprintf("run-%03d", run.Number), tableModel)
}

// WriteAggregate implements TaxWriter.
func (w *CSVWriter) WriteAggregate(agg *AggregateOutput) error {
	tableModel := portfolio.RenderAggregateTaxes(agg.Taxes, agg.Summaries, w.opts)
	return w.PrintRenderTable(AggregateTaxes, "", tableModel)
}

func (w *CSVWriter) PrintRenderTable(outType OutputType, name string, tableModel *portfolio.RenderTable) error {
	var fn string
	switch outType {
	case Transactions:
		fn = fmt.Sprintf("%s.csv", name)
	case AggregateTaxes:
		fn = "aggregate-taxes.csv"
	default:
		return fmt.Errorf("OutputType %v not implemented", outType)
	}

	fp, err := os.Create(path.Join(w.OutDir, fn))
	if err != nil {
		return fmt.Errorf("Create file %q: %w", fn, err)
	}
	defer fp.Close()

	csvWriter := csv.NewWriter(fp)

	if err := csvWriter.Write(tableModel.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range tableModel.Rows {
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if len(tableModel.Footer) > 0 {
		if err := csvWriter.Write(tableModel.Footer); err != nil {
			return fmt.Errorf("write footer: %w", err)
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("flush %q: %w", fn, err)
	}

	for _, note := range tableModel.Notes {
		fmt.Fprintln(fp, note)
	}

	return nil
}

func NewCSVWriter(outDir string, opts portfolio.RenderOptions) (*CSVWriter, error) {
	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("Creating CSV output directory: %w", err)
	}
	return &CSVWriter{OutDir: outDir, opts: opts}, nil
}
