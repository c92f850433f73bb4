package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"

	decimal_opt "github.com/tsiemens/capgain/decimal_value"
)

type TxAction int

const (
	NO_ACTION TxAction = iota
	BUY
	SELL
)

func (a TxAction) String() string {
	var str string = "invalid"
	switch a {
	case BUY:
		str = "Buy"
	case SELL:
		str = "Sell"
	default:
	}
	return str
}

// PortfolioStatus is the state carried from one transaction to the next within
// a run.
type PortfolioStatus struct {
	ShareBalance int64
	// Weighted average cost of the shares currently held. Only meaningful while
	// ShareBalance is positive.
	AvgPrice        decimal.Decimal
	AccumulatedLoss decimal.Decimal
}

func NewEmptyPortfolioStatus() *PortfolioStatus {
	return &PortfolioStatus{ShareBalance: 0, AvgPrice: decimal.Zero, AccumulatedLoss: decimal.Zero}
}

// PerShareAvg returns the average price, or Null when nothing is held.
func (s *PortfolioStatus) PerShareAvg() decimal_opt.DecimalOpt {
	if s.ShareBalance == 0 {
		return decimal_opt.Null
	}
	return decimal_opt.New(s.AvgPrice)
}

func (s *PortfolioStatus) Equal(o *PortfolioStatus) bool {
	return s.ShareBalance == o.ShareBalance &&
		s.AvgPrice.Equal(o.AvgPrice) &&
		s.AccumulatedLoss.Equal(o.AccumulatedLoss)
}

func (s *PortfolioStatus) String() string {
	return fmt.Sprintf("{shares: %d, avg: %s, loss: %s}",
		s.ShareBalance, s.AvgPrice, s.AccumulatedLoss)
}

type Tx struct {
	Action   TxAction
	Shares   int64
	UnitCost decimal.Decimal

	// Where the record was read from. Line is 1-based, Index is the 0-based
	// position of the record within its run.
	Line  int
	Index int
}

// Total value of the operation (shares x unit cost).
func (tx *Tx) Amount() decimal.Decimal {
	return tx.UnitCost.Mul(decimal.NewFromInt(tx.Shares))
}

// Tax is the amount owed for a single transaction.
type Tax struct {
	Tax decimal.Decimal `json:"tax"`
}

func NewTax(amount decimal.Decimal) Tax {
	return Tax{Tax: amount}
}

// MarshalJSON emits the amount as a bare number with two decimal places.
func (t Tax) MarshalJSON() ([]byte, error) {
	return []byte(`{"tax":` + t.Tax.StringFixed(2) + `}`), nil
}

func (t Tax) String() string {
	return t.Tax.StringFixed(2)
}

type TxDelta struct {
	Tx         *Tx
	PreStatus  *PortfolioStatus
	PostStatus *PortfolioStatus
	// Raw gain (or loss, when negative) realized by a sell. Null for buys.
	CapitalGain decimal_opt.DecimalOpt
	// Portion of accumulated loss consumed to offset this sell's gain.
	LossOffset  decimal.Decimal
	TaxableGain decimal.Decimal
	// True when the sale fell at or under the tax-free threshold.
	TaxFree bool
	Tax     Tax
}

func (d *TxDelta) IsTaxed() bool {
	return d.Tax.Tax.IsPositive()
}

func DeltasToTaxes(deltas []*TxDelta) []Tax {
	taxes := make([]Tax, 0, len(deltas))
	for _, d := range deltas {
		taxes = append(taxes, d.Tax)
	}
	return taxes
}
