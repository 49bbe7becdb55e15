package account

import (
	"fmt"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Error codes raised by the account context
const (
	CodeSellerNotFound  = "SELLER_NOT_FOUND"
	CodeChannelNotFound = "CHANNEL_NOT_FOUND"
	CodeInvalidAmount   = "INVALID_AMOUNT"
)

var (
	ErrSellerNotFound  = shared.NewDomainError(CodeSellerNotFound, "Seller not found")
	ErrChannelNotFound = shared.NewDomainError(CodeChannelNotFound, "Channel not found")
	ErrSellerInactive  = shared.NewDomainError(shared.CodeForbidden, "Seller account is not active")
	ErrChannelInactive = shared.NewDomainError(CodeChannelNotFound, "Channel is not active")
)

// ErrInsufficientFunds reports a balance that does not cover the requested amount
func ErrInsufficientFunds(available, requested decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInsufficientFunds,
		fmt.Sprintf("Insufficient funds: available %s, requested %s",
			available.StringFixed(2), requested.StringFixed(2)))
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(CodeInvalidAmount, "Amount must be positive")
	}
	return nil
}
