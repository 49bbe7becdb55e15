package ledger

import (
	"fmt"

	"github.com/admarket/backend/internal/domain/shared"
)

// Error codes raised by the ledger context
const (
	CodeTransactionNotFound  = "TRANSACTION_NOT_FOUND"
	CodeWithdrawalNotFound   = "WITHDRAWAL_NOT_FOUND"
	CodeInvalidPaymentMethod = "INVALID_PAYMENT_METHOD"
)

var (
	ErrTransactionNotFound = shared.NewDomainError(CodeTransactionNotFound, "Transaction not found")
	ErrWithdrawalNotFound  = shared.NewDomainError(CodeWithdrawalNotFound, "Withdrawal request not found")
)

// ErrInvalidPaymentMethod reports an unsupported payment method
func ErrInvalidPaymentMethod(method PaymentMethod) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidPaymentMethod,
		fmt.Sprintf("Unsupported payment method: %s", method))
}

// ErrTransactionNotPending reports a status change on a finalised record
func ErrTransactionNotPending(current TransactionStatus) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInvalidStateTransition,
		fmt.Sprintf("Transaction is already %s", current))
}

// ErrWithdrawalNotPending reports processing of an already processed request
func ErrWithdrawalNotPending(current WithdrawalStatus) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInvalidStateTransition,
		fmt.Sprintf("Withdrawal request is already %s", current))
}
