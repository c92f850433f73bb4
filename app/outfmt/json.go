package outfmt

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tsiemens/capgain/portfolio"
)

// JSONWriter writes one JSON array of tax records per successful run, one run
// per line. Failed runs produce no output.
type JSONWriter struct {
	w io.Writer
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

// WriteRun implements TaxWriter.
func (w *JSONWriter) WriteRun(run *RunOutput) error {
	if run.Err != nil {
		return nil
	}
	data, err := json.Marshal(portfolio.DeltasToTaxes(run.Deltas))
	if err != nil {
		return fmt.Errorf("marshal %s: %w", run.Name(), err)
	}
	_, err = fmt.Fprintf(w.w, "%s\n", data)
	return err
}

// WriteAggregate implements TaxWriter.
func (w *JSONWriter) WriteAggregate(agg *AggregateOutput) error {
	return nil
}
