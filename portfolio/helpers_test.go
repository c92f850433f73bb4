package portfolio_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	ptf "github.com/tsiemens/capgain/portfolio"
)

var DInt = decimal.NewFromInt
var DStr = decimal.RequireFromString

// Use this class instead of require.New if any type needing comparison has
// either a custom String method or Equal method (Decimal for example)
type CustomRequire struct {
	t       *testing.T
	options cmp.Options
}

func NewCustomRequire(t *testing.T) *CustomRequire {
	return &CustomRequire{t, []cmp.Option{
		cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
	}}
}

func (rq *CustomRequire) Equal(expected, actual interface{}) {
	diff := cmp.Diff(expected, actual, rq.options)
	require.True(rq.t, diff == "", diff)
}

func (rq *CustomRequire) LinesEqual(expected, actual string) {
	expLines := strings.Split(expected, "\n")
	actLines := strings.Split(actual, "\n")
	diff := cmp.Diff(expLines, actLines, rq.options)
	require.True(rq.t, diff == "", diff)
}

// Test Tx
type TTx struct {
	Act    ptf.TxAction
	Shares int64
	Price  string
}

func (t TTx) X() *ptf.Tx {
	return &ptf.Tx{Action: t.Act, Shares: t.Shares, UnitCost: DStr(t.Price)}
}

func mkTxs(ttxs ...TTx) []*ptf.Tx {
	txs := make([]*ptf.Tx, 0, len(ttxs))
	for i, t := range ttxs {
		tx := t.X()
		tx.Index = i
		tx.Line = 1
		txs = append(txs, tx)
	}
	return txs
}

func buy(shares int64, price string) TTx {
	return TTx{ptf.BUY, shares, price}
}

func sell(shares int64, price string) TTx {
	return TTx{ptf.SELL, shares, price}
}

func taxes(amounts ...string) []ptf.Tax {
	taxes := make([]ptf.Tax, 0, len(amounts))
	for _, a := range amounts {
		taxes = append(taxes, ptf.NewTax(DStr(a)))
	}
	return taxes
}

// Test PortfolioStatus
type TPS struct {
	Shares int64
	Avg    string
	Loss   string
}

func (t TPS) X() *ptf.PortfolioStatus {
	avg, loss := t.Avg, t.Loss
	if avg == "" {
		avg = "0"
	}
	if loss == "" {
		loss = "0"
	}
	return &ptf.PortfolioStatus{ShareBalance: t.Shares, AvgPrice: DStr(avg), AccumulatedLoss: DStr(loss)}
}
