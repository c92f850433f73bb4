package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tsiemens/capgain/util"
)

type RunSummary struct {
	TaxTotal          decimal.Decimal
	CapitalGainsTotal decimal.Decimal
	TaxedSales        int
	// Nil if the run had no transactions.
	FinalStatus *PortfolioStatus
}

func CalcRunSummary(deltas []*TxDelta) *RunSummary {
	s := &RunSummary{TaxTotal: decimal.Zero, CapitalGainsTotal: decimal.Zero}
	for _, d := range deltas {
		s.TaxTotal = s.TaxTotal.Add(d.Tax.Tax)
		if !d.CapitalGain.IsNull {
			s.CapitalGainsTotal = s.CapitalGainsTotal.Add(d.CapitalGain.Decimal)
		}
		if d.IsTaxed() {
			s.TaxedSales++
		}
		s.FinalStatus = d.PostStatus
	}
	return s
}

type CumulativeTaxes struct {
	TaxTotal          decimal.Decimal
	CapitalGainsTotal decimal.Decimal
	// Run number (1-based) -> tax owed in that run
	RunTaxTotals map[int]decimal.Decimal
}

func (c *CumulativeTaxes) RunTaxTotalsKeysSorted() []int {
	runs := util.MapKeys(c.RunTaxTotals)
	sort.Ints(runs)
	return runs
}

// CalcCumulativeTaxes aggregates the summaries of several runs, keyed by run
// number.
func CalcCumulativeTaxes(runSummaries map[int]*RunSummary) *CumulativeTaxes {
	c := &CumulativeTaxes{
		TaxTotal:          decimal.Zero,
		CapitalGainsTotal: decimal.Zero,
		RunTaxTotals:      map[int]decimal.Decimal{},
	}
	for run, s := range runSummaries {
		c.TaxTotal = c.TaxTotal.Add(s.TaxTotal)
		c.CapitalGainsTotal = c.CapitalGainsTotal.Add(s.CapitalGainsTotal)
		c.RunTaxTotals[run] = s.TaxTotal
	}
	return c
}
