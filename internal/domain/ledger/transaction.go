package ledger

import (
	"time"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger record
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeCommission TransactionType = "commission"
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeHold       TransactionType = "hold"
)

// IsValid checks if the type is a known TransactionType
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeCommission,
		TransactionTypePayment, TransactionTypeRefund, TransactionTypeHold:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a ledger record
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// IsValid checks if the status is a known TransactionStatus
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled:
		return true
	}
	return false
}

// PaymentMethod identifies how money enters or leaves the platform
type PaymentMethod string

const (
	PaymentMethodYooMoney     PaymentMethod = "yoomoney"
	PaymentMethodSBP          PaymentMethod = "sbp"
	PaymentMethodCardMir      PaymentMethod = "card_mir"
	PaymentMethodQiwi         PaymentMethod = "qiwi"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// IsValid checks if the method is supported
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodYooMoney, PaymentMethodSBP, PaymentMethodCardMir,
		PaymentMethodQiwi, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// Transaction is an immutable record of one balance change. Campaign
// settlement records carry the campaign; deposits and withdrawals carry
// the payment method and the provider's external ID.
type Transaction struct {
	ID            uuid.UUID
	CampaignID    *uuid.UUID
	SellerID      *uuid.UUID
	ChannelID     *uuid.UUID
	Type          TransactionType
	Amount        decimal.Decimal
	Commission    decimal.Decimal
	NetAmount     decimal.Decimal
	Status        TransactionStatus
	PaymentMethod *PaymentMethod
	ExternalID    *string
	Description   string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

func newTransaction(txType TransactionType, amount decimal.Decimal, description string, now time.Time) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Transaction amount must be positive, got %s", amount.String())
	}
	return &Transaction{
		ID:          uuid.New(),
		Type:        txType,
		Amount:      amount,
		Commission:  decimal.Zero,
		NetAmount:   amount,
		Status:      TransactionStatusPending,
		Description: description,
		CreatedAt:   now,
	}, nil
}

func newCompletedTransaction(txType TransactionType, amount decimal.Decimal, description string, now time.Time) (*Transaction, error) {
	tx, err := newTransaction(txType, amount, description, now)
	if err != nil {
		return nil, err
	}
	tx.Status = TransactionStatusCompleted
	tx.CompletedAt = &now
	return tx, nil
}

// NewCommissionTransaction records the platform's cut of a settled campaign
func NewCommissionTransaction(campaignID, sellerID, channelID uuid.UUID, commission decimal.Decimal, now time.Time) (*Transaction, error) {
	tx, err := newCompletedTransaction(TransactionTypeCommission, commission, "Platform commission for campaign "+campaignID.String(), now)
	if err != nil {
		return nil, err
	}
	tx.CampaignID = &campaignID
	tx.SellerID = &sellerID
	tx.ChannelID = &channelID
	tx.Commission = commission
	tx.NetAmount = commission
	return tx, nil
}

// NewPaymentTransaction records a payout to a channel owner. commission is
// the platform cut taken from the same budget and may be zero.
func NewPaymentTransaction(campaignID, sellerID, channelID uuid.UUID, payout, commission decimal.Decimal, now time.Time) (*Transaction, error) {
	tx, err := newCompletedTransaction(TransactionTypePayment, payout, "Payment for campaign "+campaignID.String(), now)
	if err != nil {
		return nil, err
	}
	tx.CampaignID = &campaignID
	tx.SellerID = &sellerID
	tx.ChannelID = &channelID
	tx.Commission = commission
	tx.NetAmount = payout
	return tx, nil
}

// NewRefundTransaction records escrowed money returned to a seller
func NewRefundTransaction(campaignID, sellerID uuid.UUID, amount decimal.Decimal, description string, now time.Time) (*Transaction, error) {
	tx, err := newCompletedTransaction(TransactionTypeRefund, amount, description, now)
	if err != nil {
		return nil, err
	}
	tx.CampaignID = &campaignID
	tx.SellerID = &sellerID
	return tx, nil
}

// NewHoldTransaction records seller money moved into escrow for a campaign
func NewHoldTransaction(campaignID, sellerID uuid.UUID, amount decimal.Decimal, description string, now time.Time) (*Transaction, error) {
	tx, err := newCompletedTransaction(TransactionTypeHold, amount, description, now)
	if err != nil {
		return nil, err
	}
	tx.CampaignID = &campaignID
	tx.SellerID = &sellerID
	return tx, nil
}

// NewDepositTransaction creates a pending top-up awaiting the provider callback
func NewDepositTransaction(sellerID uuid.UUID, amount decimal.Decimal, method PaymentMethod, now time.Time) (*Transaction, error) {
	if !method.IsValid() {
		return nil, ErrInvalidPaymentMethod(method)
	}
	tx, err := newTransaction(TransactionTypeDeposit, amount, "Balance deposit", now)
	if err != nil {
		return nil, err
	}
	tx.SellerID = &sellerID
	tx.PaymentMethod = &method
	return tx, nil
}

// NewWithdrawalTransaction creates a pending payout awaiting admin processing
func NewWithdrawalTransaction(channelID uuid.UUID, amount decimal.Decimal, method PaymentMethod, now time.Time) (*Transaction, error) {
	if !method.IsValid() {
		return nil, ErrInvalidPaymentMethod(method)
	}
	tx, err := newTransaction(TransactionTypeWithdrawal, amount, "Withdrawal request", now)
	if err != nil {
		return nil, err
	}
	tx.ChannelID = &channelID
	tx.PaymentMethod = &method
	return tx, nil
}

// IsPending reports whether the record can still change status
func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}

// Complete finalises a pending record
func (t *Transaction) Complete(externalID string, now time.Time) error {
	if !t.IsPending() {
		return ErrTransactionNotPending(t.Status)
	}
	t.Status = TransactionStatusCompleted
	if externalID != "" {
		t.ExternalID = &externalID
	}
	t.CompletedAt = &now
	return nil
}

// Cancel voids a pending record
func (t *Transaction) Cancel(now time.Time) error {
	if !t.IsPending() {
		return ErrTransactionNotPending(t.Status)
	}
	t.Status = TransactionStatusCancelled
	t.CompletedAt = &now
	return nil
}
