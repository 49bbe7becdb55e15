package dispute

import (
	"fmt"

	"github.com/admarket/backend/internal/domain/shared"
)

// Error codes raised by the dispute context
const (
	CodeDisputeNotFound     = "DISPUTE_NOT_FOUND"
	CodeInvalidDecision     = "INVALID_DECISION"
	CodeMissingRefundAmount = "MISSING_REFUND_AMOUNT"
)

var (
	ErrDisputeNotFound     = shared.NewDomainError(CodeDisputeNotFound, "Dispute not found")
	ErrMissingRefundAmount = shared.NewDomainError(CodeMissingRefundAmount, "Refund amount is required for partial refund")
	ErrAlreadyResolved     = shared.NewDomainError(shared.CodeInvalidStateTransition, "Dispute is already resolved")
)

// ErrInvalidDecision reports an unknown admin decision
func ErrInvalidDecision(decision string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidDecision,
		fmt.Sprintf("Invalid decision %q: must be refund, release_payment or partial_refund", decision))
}
