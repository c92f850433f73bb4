package portfolio

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	decimal_opt "github.com/tsiemens/capgain/decimal_value"
	"github.com/tsiemens/capgain/log"
	"github.com/tsiemens/capgain/util"
)

// Places value meaning "do not round".
const FullPrecision int32 = -1

// Rules holds the jurisdiction constants applied to every sale.
type Rules struct {
	// Sales whose total value does not exceed this are never taxed.
	TaxFreeThreshold decimal.Decimal
	TaxRate          decimal.Decimal
	// Decimal places the owed tax is rounded to (half-up).
	TaxPlaces int32
	// Decimal places the weighted average price is rounded to after each buy.
	// FullPrecision keeps the unrounded quotient.
	AvgPricePlaces int32
	// If set, a sale exactly at the threshold is taxable.
	ThresholdExclusive bool
}

func DefaultRules() Rules {
	return Rules{
		TaxFreeThreshold:   decimal.NewFromInt(20000),
		TaxRate:            decimal.RequireFromString("0.20"),
		TaxPlaces:          2,
		AvgPricePlaces:     2,
		ThresholdExclusive: false,
	}
}

func (r Rules) IsTaxFree(saleValue decimal.Decimal) bool {
	if r.ThresholdExclusive {
		return saleValue.LessThan(r.TaxFreeThreshold)
	}
	return saleValue.LessThanOrEqual(r.TaxFreeThreshold)
}

func roundPlaces(d decimal.Decimal, places int32) decimal.Decimal {
	if places < 0 {
		return d
	}
	return d.Round(places)
}

func weightedAverage(
	preShares int64, preAvg decimal.Decimal, shares int64, unitCost decimal.Decimal,
	places int32) decimal.Decimal {

	if preShares == 0 {
		return unitCost
	}
	total := preAvg.Mul(decimal.NewFromInt(preShares)).
		Add(unitCost.Mul(decimal.NewFromInt(shares)))
	return roundPlaces(total.Div(decimal.NewFromInt(preShares+shares)), places)
}

// AddTx applies tx to preTxStatus and returns the resulting TxDelta.
// preTxStatus is not modified.
func AddTx(tx *Tx, preTxStatus *PortfolioStatus, rules Rules) (*TxDelta, error) {
	util.Assert(preTxStatus != nil, "AddTx: nil preTxStatus")

	invalid := func(fmtStr string, v ...interface{}) error {
		return &InvalidOperationError{Tx: tx, Rule: fmt.Sprintf(fmtStr, v...)}
	}
	if tx.Shares <= 0 {
		return nil, invalid("quantity must be positive")
	} else if !tx.UnitCost.IsPositive() {
		return nil, invalid("unit cost must be positive")
	}

	newStatus := *preTxStatus
	delta := &TxDelta{
		Tx:          tx,
		PreStatus:   preTxStatus,
		PostStatus:  &newStatus,
		CapitalGain: decimal_opt.Null,
		LossOffset:  decimal.Zero,
		TaxableGain: decimal.Zero,
		Tax:         NewTax(decimal.Zero),
	}

	switch tx.Action {
	case BUY:
		if tx.Shares > math.MaxInt64-preTxStatus.ShareBalance {
			return nil, invalid("share balance would overflow")
		}
		newStatus.ShareBalance = preTxStatus.ShareBalance + tx.Shares
		newStatus.AvgPrice = weightedAverage(
			preTxStatus.ShareBalance, preTxStatus.AvgPrice, tx.Shares, tx.UnitCost,
			rules.AvgPricePlaces)
	case SELL:
		if tx.Shares > preTxStatus.ShareBalance {
			return nil, invalid("is more than the current holdings (%d)",
				preTxStatus.ShareBalance)
		}
		newStatus.ShareBalance = preTxStatus.ShareBalance - tx.Shares

		delta.CapitalGain = decimal_opt.New(tx.UnitCost).Sub(preTxStatus.PerShareAvg()).
			MulD(decimal.NewFromInt(tx.Shares))
		gain := delta.CapitalGain.Decimal
		delta.TaxFree = rules.IsTaxFree(tx.Amount())

		if gain.IsNegative() {
			// Losses carry forward whether or not the sale was taxable.
			newStatus.AccumulatedLoss = preTxStatus.AccumulatedLoss.Add(gain.Neg())
		} else if gain.IsPositive() && !delta.TaxFree {
			offset := decimal.Min(preTxStatus.AccumulatedLoss, gain)
			newStatus.AccumulatedLoss = preTxStatus.AccumulatedLoss.Sub(offset)
			delta.LossOffset = offset
			delta.TaxableGain = gain.Sub(offset)
			delta.Tax = NewTax(roundPlaces(delta.TaxableGain.Mul(rules.TaxRate), rules.TaxPlaces))
		}
	default:
		return nil, invalid("unrecognized operation")
	}

	log.Tracef("sim", "%s %d @ %s: %s -> %s, gain %s, tax %s",
		tx.Action, tx.Shares, tx.UnitCost, preTxStatus, &newStatus,
		delta.CapitalGain, delta.Tax)
	return delta, nil
}

// TxsToDeltaList folds txs over initialStatus (or an empty status if nil).
// On error, the deltas computed before the failing Tx are returned alongside it.
func TxsToDeltaList(
	txs []*Tx,
	initialStatus *PortfolioStatus,
	rules Rules,
) ([]*TxDelta, error) {

	status := initialStatus
	if status == nil {
		status = NewEmptyPortfolioStatus()
	}
	deltas := make([]*TxDelta, 0, len(txs))
	for _, tx := range txs {
		delta, err := AddTx(tx, status, rules)
		if err != nil {
			// Return what we've managed so far, for debugging
			return deltas, err
		}
		util.Assertf(!delta.PostStatus.AccumulatedLoss.IsNegative(),
			"TxsToDeltaList: negative accumulated loss after %v", delta.PostStatus)
		deltas = append(deltas, delta)
		status = delta.PostStatus
	}
	return deltas, nil
}

// ComputeTaxes returns the tax owed for each of txs, starting from an empty
// portfolio.
func ComputeTaxes(txs []*Tx, rules Rules) ([]Tax, error) {
	deltas, err := TxsToDeltaList(txs, nil, rules)
	if err != nil {
		return nil, err
	}
	return DeltasToTaxes(deltas), nil
}
