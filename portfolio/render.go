package portfolio

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Rhymond/go-money"
	tw "github.com/olekukonko/tablewriter"

	decimal_opt "github.com/tsiemens/capgain/decimal_value"
	"github.com/tsiemens/capgain/util"
)

type RenderOptions struct {
	FullDollarValues bool
	// ISO 4217 code. If set (and known), amounts are shown with that
	// currency's symbol and fraction, otherwise with "$" and 2 places.
	Currency string
}

type _PrintHelper struct {
	PrintAllDecimals bool
	Currency         *money.Currency
}

func newPrintHelper(opts RenderOptions) _PrintHelper {
	ph := _PrintHelper{PrintAllDecimals: opts.FullDollarValues}
	if opts.Currency != "" {
		ph.Currency = money.GetCurrency(strings.ToUpper(opts.Currency))
	}
	return ph
}

var displayNanEnvSetting util.Optional[string]

func NaNString() string {
	if !displayNanEnvSetting.Present() {
		displayNanEnvSetting.Set(os.Getenv("DISPLAY_NAN"))
	}
	if displayNanEnvSetting.MustGet() == "" || displayNanEnvSetting.MustGet() == "0" {
		return "-"
	}
	return "NaN"
}

func (h _PrintHelper) OptCurrStr(val decimal_opt.DecimalOpt) string {
	if h.PrintAllDecimals {
		return val.String()
	}
	return val.StringFixed(2)
}

// Non-negative amounts only. Signs are handled by PlusMinusDollar.
func (h _PrintHelper) DollarStr(val decimal_opt.DecimalOpt) string {
	if val.IsNull {
		return NaNString()
	}
	if h.Currency != nil && !h.PrintAllDecimals {
		minor := val.Decimal.Shift(int32(h.Currency.Fraction)).Round(0).IntPart()
		return money.New(minor, h.Currency.Code).Display()
	}
	return "$" + h.OptCurrStr(val)
}

func (h _PrintHelper) PlusMinusDollar(val decimal_opt.DecimalOpt, showPlus bool) string {
	if val.IsNull {
		return NaNString()
	}
	if val.IsNegative() {
		return "-" + h.DollarStr(val.Neg())
	}
	plus := ""
	if showPlus {
		plus = "+"
	}
	return plus + h.DollarStr(val)
}

func strOrDash(useStr bool, str string) string {
	if useStr {
		return str
	}
	return "-"
}

type RenderTable struct {
	Header []string
	Rows   [][]string
	Footer []string
	Notes  []string
	Errors []error
}

// Column of the total tax in the tx table footer.
const TxTableTaxCol = 9

func RenderTxTableModel(
	deltas []*TxDelta, summary *RunSummary, opts RenderOptions) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"#", "TX", "Shares", "Unit Cost", "Amount", "Avg Cost",
		"Cap. Gain", "Loss Offset", "Taxable", "Tax", "Share Balance", "New Avg Cost",
		"Acc. Loss",
	}

	ph := newPrintHelper(opts)
	d := decimal_opt.New

	sawTaxFreeGain := false

	for _, delta := range deltas {
		tx := delta.Tx
		isSell := tx.Action == SELL

		taxFreeAsterix := ""
		if isSell && delta.TaxFree && delta.CapitalGain.IsPositive() {
			taxFreeAsterix = " *"
			sawTaxFreeGain = true
		}

		row := []string{
			fmt.Sprintf("%d", tx.Index+1),
			tx.Action.String(),
			fmt.Sprintf("%d", tx.Shares),
			ph.DollarStr(d(tx.UnitCost)),
			ph.DollarStr(d(tx.Amount())),
			ph.DollarStr(delta.PreStatus.PerShareAvg()),
			strOrDash(isSell, ph.PlusMinusDollar(delta.CapitalGain, false)+taxFreeAsterix),
			strOrDash(!delta.LossOffset.IsZero(), ph.DollarStr(d(delta.LossOffset))),
			strOrDash(isSell, ph.DollarStr(d(delta.TaxableGain))),
			ph.DollarStr(d(delta.Tax.Tax)),
			fmt.Sprintf("%d", delta.PostStatus.ShareBalance),
			ph.DollarStr(delta.PostStatus.PerShareAvg()),
			ph.DollarStr(d(delta.PostStatus.AccumulatedLoss)),
		}
		table.Rows = append(table.Rows, row)
	}

	table.Footer = make([]string, len(table.Header))
	if summary != nil {
		table.Footer[TxTableTaxCol-1] = "Total"
		table.Footer[TxTableTaxCol] = ph.DollarStr(d(summary.TaxTotal))
		table.Footer[TxTableTaxCol-3] = ph.PlusMinusDollar(d(summary.CapitalGainsTotal), false)
	}

	if sawTaxFreeGain {
		table.Notes = append(table.Notes, " * Sale value within the tax-free threshold")
	}

	return table
}

/*
Generates a RenderTable that will render out to this:
| Run       | Capital Gains | Tax     |
+-----------+---------------+---------+
| 1         | xxxx.xx       | xxxx.xx |
| 2         | xxxx.xx       | xxxx.xx |
| All runs  | xxxx.xx       | xxxx.xx |
*/
func RenderAggregateTaxes(
	taxes *CumulativeTaxes, runSummaries map[int]*RunSummary, opts RenderOptions) *RenderTable {

	table := &RenderTable{}
	table.Header = []string{"Run", "Capital Gains", "Tax"}

	ph := newPrintHelper(opts)

	for _, run := range taxes.RunTaxTotalsKeysSorted() {
		gains := decimal_opt.Null
		if s, ok := runSummaries[run]; ok {
			gains = decimal_opt.New(s.CapitalGainsTotal)
		}
		table.Rows = append(table.Rows, []string{
			fmt.Sprintf("%d", run),
			ph.PlusMinusDollar(gains, false),
			ph.DollarStr(decimal_opt.New(taxes.RunTaxTotals[run])),
		})
	}
	table.Rows = append(table.Rows, []string{
		"All runs",
		ph.PlusMinusDollar(decimal_opt.New(taxes.CapitalGainsTotal), false),
		ph.DollarStr(decimal_opt.New(taxes.TaxTotal)),
	})

	return table
}

func PrintRenderTable(title string, tableModel *RenderTable, writer io.Writer) {
	for _, err := range tableModel.Errors {
		fmt.Fprintf(writer, "[!] %v. Printing parsed information state:\n", err)
	}
	fmt.Fprintf(writer, "%s\n", title)

	table := tw.NewWriter(writer)
	table.SetHeader(tableModel.Header)
	table.SetBorder(false)
	table.SetRowLine(true)

	for _, row := range tableModel.Rows {
		table.Append(row)
	}

	if len(tableModel.Footer) > 0 {
		table.SetFooter(tableModel.Footer)
	}

	table.Render()

	for _, note := range tableModel.Notes {
		fmt.Fprintln(writer, note)
	}
}
