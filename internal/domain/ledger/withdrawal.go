package ledger

import (
	"strings"
	"time"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the lifecycle state of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
)

// IsValid checks if the status is a known WithdrawalStatus
func (s WithdrawalStatus) IsValid() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusCompleted, WithdrawalStatusRejected:
		return true
	}
	return false
}

// WithdrawalRequest is a channel owner's request to pay out earnings. The
// amount is reserved on the channel until an admin approves or rejects it.
type WithdrawalRequest struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	ChannelID        uuid.UUID
	TransactionID    uuid.UUID
	Amount           decimal.Decimal
	Method           PaymentMethod
	AccountDetails   string
	Status           WithdrawalStatus
	ReasonIfRejected *string
	ProcessedBy      *uuid.UUID
	ProcessedAt      *time.Time
	CreatedAt        time.Time
}

// NewWithdrawalRequest creates a pending request for the given ledger record.
// Account details are stored masked.
func NewWithdrawalRequest(userID uuid.UUID, tx *Transaction, accountDetails string, now time.Time) (*WithdrawalRequest, error) {
	if tx == nil || tx.Type != TransactionTypeWithdrawal || tx.ChannelID == nil || tx.PaymentMethod == nil {
		return nil, shared.NewValidationError("Withdrawal request needs a withdrawal transaction")
	}
	if strings.TrimSpace(accountDetails) == "" {
		return nil, shared.NewValidationError("Account details are required")
	}
	return &WithdrawalRequest{
		ID:             uuid.New(),
		UserID:         userID,
		ChannelID:      *tx.ChannelID,
		TransactionID:  tx.ID,
		Amount:         tx.Amount,
		Method:         *tx.PaymentMethod,
		AccountDetails: MaskAccount(accountDetails),
		Status:         WithdrawalStatusPending,
		CreatedAt:      now,
	}, nil
}

// Approve marks the request paid out
func (w *WithdrawalRequest) Approve(adminID uuid.UUID, now time.Time) error {
	if w.Status != WithdrawalStatusPending {
		return ErrWithdrawalNotPending(w.Status)
	}
	w.Status = WithdrawalStatusCompleted
	w.ProcessedBy = &adminID
	w.ProcessedAt = &now
	return nil
}

// DefaultRejectionReason is recorded when the admin gives none
const DefaultRejectionReason = "Request rejected by administrator"

// Reject refuses the request. The reservation must be released in the same unit of work.
func (w *WithdrawalRequest) Reject(adminID uuid.UUID, reason string, now time.Time) error {
	if w.Status != WithdrawalStatusPending {
		return ErrWithdrawalNotPending(w.Status)
	}
	if strings.TrimSpace(reason) == "" {
		reason = DefaultRejectionReason
	}
	w.Status = WithdrawalStatusRejected
	w.ReasonIfRejected = &reason
	w.ProcessedBy = &adminID
	w.ProcessedAt = &now
	return nil
}

// MaskAccount keeps the first two and last four characters of an account
// number. Anything of four characters or fewer is fully masked.
func MaskAccount(account string) string {
	account = strings.TrimSpace(account)
	runes := []rune(account)
	if len(runes) <= 4 {
		return "****"
	}
	return string(runes[:2]) + "****" + string(runes[len(runes)-4:])
}
