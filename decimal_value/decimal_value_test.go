package decimal_value

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNullPropagates(t *testing.T) {
	rq := require.New(t)

	one := New(decimal.NewFromInt(1))
	rq.True(one.Sub(Null).IsNull)
	rq.True(Null.Sub(one).IsNull)
	rq.True(Null.MulD(decimal.NewFromInt(2)).IsNull)
	rq.True(Null.Neg().IsNull)
	rq.Equal("NaN", Null.String())
	rq.Equal("NaN", Null.StringFixed(2))

	rq.False(Null.IsPositive())
	rq.False(Null.IsNegative())
}

func TestArithmetic(t *testing.T) {
	rq := require.New(t)

	d := New(decimal.RequireFromString("2.25"))
	rq.Equal("4.5", d.MulD(decimal.NewFromInt(2)).String())
	rq.Equal("-2.25", d.Neg().String())
	rq.True(d.Neg().IsNegative())
	rq.Equal("0.25", d.Sub(New(decimal.NewFromInt(2))).String())
	rq.Equal("2.250", d.StringFixed(3))
	rq.True(d.IsPositive())
}
