package payment

import (
	"time"

	"github.com/admarket/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateDepositRequest starts a balance top-up
type CreateDepositRequest struct {
	Amount decimal.Decimal      `json:"amount" binding:"required,money"`
	Method ledger.PaymentMethod `json:"payment_method" binding:"required"`
}

// Provider outcomes reported by the deposit webhook
const (
	DepositSucceeded = "succeeded"
	DepositCanceled  = "canceled"
)

// DepositWebhookRequest is the payment provider's verdict on a deposit.
// Signature verification happens before it reaches the service.
type DepositWebhookRequest struct {
	TransactionID uuid.UUID `json:"transaction_id" binding:"required"`
	ExternalID    string    `json:"external_id" binding:"max=255"`
	Status        string    `json:"status" binding:"omitempty,oneof=succeeded canceled"`
}

// RequestWithdrawalRequest asks for a payout of channel earnings
type RequestWithdrawalRequest struct {
	Amount         decimal.Decimal      `json:"amount" binding:"required,money"`
	Method         ledger.PaymentMethod `json:"payment_method" binding:"required"`
	AccountDetails string               `json:"account_details" binding:"required,max=255"`
}

// RejectWithdrawalRequest carries the administrator's reason
type RejectWithdrawalRequest struct {
	Reason string `json:"reason" binding:"max=2000"`
}

// TransactionResponse is the API view of a ledger record
type TransactionResponse struct {
	ID            uuid.UUID                `json:"id"`
	CampaignID    *uuid.UUID               `json:"campaign_id,omitempty"`
	SellerID      *uuid.UUID               `json:"seller_id,omitempty"`
	ChannelID     *uuid.UUID               `json:"channel_id,omitempty"`
	Type          ledger.TransactionType   `json:"transaction_type"`
	Amount        decimal.Decimal          `json:"amount"`
	Commission    decimal.Decimal          `json:"commission"`
	NetAmount     decimal.Decimal          `json:"net_amount"`
	Status        ledger.TransactionStatus `json:"status"`
	PaymentMethod *ledger.PaymentMethod    `json:"payment_method,omitempty"`
	ExternalID    *string                  `json:"external_id,omitempty"`
	Description   string                   `json:"description"`
	CreatedAt     time.Time                `json:"created_at"`
	CompletedAt   *time.Time               `json:"completed_at,omitempty"`
}

// ToTransactionResponse converts a ledger record
func ToTransactionResponse(t *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID,
		CampaignID:    t.CampaignID,
		SellerID:      t.SellerID,
		ChannelID:     t.ChannelID,
		Type:          t.Type,
		Amount:        t.Amount,
		Commission:    t.Commission,
		NetAmount:     t.NetAmount,
		Status:        t.Status,
		PaymentMethod: t.PaymentMethod,
		ExternalID:    t.ExternalID,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt,
		CompletedAt:   t.CompletedAt,
	}
}

// WithdrawalResponse is the API view of a withdrawal request
type WithdrawalResponse struct {
	ID               uuid.UUID               `json:"id"`
	UserID           uuid.UUID               `json:"user_id"`
	ChannelID        uuid.UUID               `json:"channel_id"`
	TransactionID    uuid.UUID               `json:"transaction_id"`
	Amount           decimal.Decimal         `json:"amount"`
	Method           ledger.PaymentMethod    `json:"payment_method"`
	AccountDetails   string                  `json:"account_details"`
	Status           ledger.WithdrawalStatus `json:"status"`
	ReasonIfRejected *string                 `json:"reason_if_rejected,omitempty"`
	ProcessedAt      *time.Time              `json:"processed_at,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

// ToWithdrawalResponse converts a withdrawal request
func ToWithdrawalResponse(w *ledger.WithdrawalRequest) WithdrawalResponse {
	return WithdrawalResponse{
		ID:               w.ID,
		UserID:           w.UserID,
		ChannelID:        w.ChannelID,
		TransactionID:    w.TransactionID,
		Amount:           w.Amount,
		Method:           w.Method,
		AccountDetails:   w.AccountDetails,
		Status:           w.Status,
		ReasonIfRejected: w.ReasonIfRejected,
		ProcessedAt:      w.ProcessedAt,
		CreatedAt:        w.CreatedAt,
	}
}

// SellerBalance is the seller side of a balance view
type SellerBalance struct {
	SellerID   uuid.UUID       `json:"seller_id"`
	Balance    decimal.Decimal `json:"balance"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

// ChannelBalance is the channel owner side of a balance view
type ChannelBalance struct {
	ChannelID         uuid.UUID       `json:"channel_id"`
	TotalEarned       decimal.Decimal `json:"total_earned"`
	HeldForWithdrawal decimal.Decimal `json:"held_for_withdrawal"`
	Available         decimal.Decimal `json:"available"`
}

// BalanceResponse shows every account a user holds
type BalanceResponse struct {
	Seller  *SellerBalance  `json:"seller,omitempty"`
	Channel *ChannelBalance `json:"channel,omitempty"`
}
