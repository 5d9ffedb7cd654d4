package finance

import (
	"errors"

	"github.com/shopspring/decimal"
)

// CommissionType selects how a commission is derived.
type CommissionType string

const (
	CommissionOnProfit  CommissionType = "profit"
	CommissionOnRevenue CommissionType = "revenue"
	CommissionFixed     CommissionType = "fixed"
)

// ErrInvalidCommissionPolicy indicates an unknown type or a negative rate.
var ErrInvalidCommissionPolicy = errors.New("finance: invalid commission policy")

var hundred = decimal.NewFromInt(100)

// CommissionPolicy is configured per salesperson.
// Rate is a percentage for profit and revenue policies and a flat amount for fixed.
type CommissionPolicy struct {
	Type CommissionType  `json:"type"`
	Rate decimal.Decimal `json:"rate"`
}

// Validate checks the policy fields.
func (p CommissionPolicy) Validate() error {
	switch p.Type {
	case CommissionOnProfit, CommissionOnRevenue, CommissionFixed:
	default:
		return ErrInvalidCommissionPolicy
	}
	if p.Rate.IsNegative() {
		return ErrInvalidCommissionPolicy
	}
	return nil
}

// Calculate returns the commission for a job, never below zero.
func (p CommissionPolicy) Calculate(profit, revenue decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch p.Type {
	case CommissionOnProfit:
		amount = profit.Mul(p.Rate).Div(hundred)
	case CommissionOnRevenue:
		amount = revenue.Mul(p.Rate).Div(hundred)
	case CommissionFixed:
		amount = p.Rate
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}
