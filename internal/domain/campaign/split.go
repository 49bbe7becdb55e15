package campaign

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Split is how a settled budget is divided between the platform and the
// channel owner. Commission + Payout always equals the budget.
type Split struct {
	Commission decimal.Decimal
	Payout     decimal.Decimal
}

// SplitBudget divides budget using commissionPercent. The payout is
// rounded down to the cent and the residual goes to the commission.
func SplitBudget(budget, commissionPercent decimal.Decimal) Split {
	payout := budget.Mul(hundred.Sub(commissionPercent)).Div(hundred).RoundFloor(2)
	return Split{
		Commission: budget.Sub(payout),
		Payout:     payout,
	}
}
