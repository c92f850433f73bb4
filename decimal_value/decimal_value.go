package decimal_value

import (
	"github.com/shopspring/decimal"
)

var Null = DecimalOpt{IsNull: true}

// DecimalOpt is a decimal which may be absent, such as the average cost of an
// empty position. Arithmetic with a Null operand yields Null.
type DecimalOpt struct {
	Decimal decimal.Decimal
	IsNull  bool
}

func New(value decimal.Decimal) DecimalOpt {
	return DecimalOpt{Decimal: value}
}

func (d DecimalOpt) Neg() DecimalOpt {
	if d.IsNull {
		return Null
	}
	return DecimalOpt{Decimal: d.Decimal.Neg()}
}

func (d DecimalOpt) Sub(d2 DecimalOpt) DecimalOpt {
	if d.IsNull || d2.IsNull {
		return Null
	}
	return DecimalOpt{Decimal: d.Decimal.Sub(d2.Decimal)}
}

func (d DecimalOpt) MulD(d2 decimal.Decimal) DecimalOpt {
	if d.IsNull {
		return Null
	}
	return DecimalOpt{Decimal: d.Decimal.Mul(d2)}
}

func (d DecimalOpt) IsPositive() bool {
	if d.IsNull {
		return false
	}

	return d.Decimal.IsPositive()
}

func (d DecimalOpt) IsNegative() bool {
	if d.IsNull {
		return false
	}

	return d.Decimal.IsNegative()
}

func (d DecimalOpt) String() string {
	if d.IsNull {
		return "NaN"
	}

	return d.Decimal.String()
}

func (d DecimalOpt) StringFixed(places int32) string {
	if d.IsNull {
		return "NaN"
	}

	return d.Decimal.StringFixed(places)
}
