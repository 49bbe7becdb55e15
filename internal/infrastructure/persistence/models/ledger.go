package models

import (
	"time"

	"github.com/admarket/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionModel is the persistence model for a ledger Transaction.
type TransactionModel struct {
	ID            uuid.UUID                `gorm:"type:uuid;primaryKey"`
	CampaignID    *uuid.UUID               `gorm:"type:uuid;index"`
	SellerID      *uuid.UUID               `gorm:"type:uuid;index"`
	ChannelID     *uuid.UUID               `gorm:"column:channel_owner_id;type:uuid;index"`
	Type          ledger.TransactionType   `gorm:"column:transaction_type;type:varchar(20);not null"`
	Amount        decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	Commission    decimal.Decimal          `gorm:"type:decimal(18,2);not null;default:0"`
	NetAmount     decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	Status        ledger.TransactionStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentMethod *ledger.PaymentMethod    `gorm:"type:varchar(30)"`
	ExternalID    *string                  `gorm:"type:varchar(255)"`
	Description   string                   `gorm:"type:text"`
	CreatedAt     time.Time                `gorm:"not null;index"`
	CompletedAt   *time.Time
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction.
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	return &ledger.Transaction{
		ID:            m.ID,
		CampaignID:    m.CampaignID,
		SellerID:      m.SellerID,
		ChannelID:     m.ChannelID,
		Type:          m.Type,
		Amount:        m.Amount,
		Commission:    m.Commission,
		NetAmount:     m.NetAmount,
		Status:        m.Status,
		PaymentMethod: m.PaymentMethod,
		ExternalID:    m.ExternalID,
		Description:   m.Description,
		CreatedAt:     m.CreatedAt,
		CompletedAt:   m.CompletedAt,
	}
}

// TransactionModelFromDomain creates a persistence model from a domain Transaction.
func TransactionModelFromDomain(t *ledger.Transaction) *TransactionModel {
	return &TransactionModel{
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

// WithdrawalRequestModel is the persistence model for a WithdrawalRequest.
type WithdrawalRequestModel struct {
	ID               uuid.UUID               `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID               `gorm:"type:uuid;not null;index"`
	ChannelID        uuid.UUID               `gorm:"type:uuid;not null;index"`
	TransactionID    uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex"`
	Amount           decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Method           ledger.PaymentMethod    `gorm:"type:varchar(30);not null"`
	AccountDetails   string                  `gorm:"type:varchar(255);not null"`
	Status           ledger.WithdrawalStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ReasonIfRejected *string                 `gorm:"type:text"`
	ProcessedBy      *uuid.UUID              `gorm:"type:uuid"`
	ProcessedAt      *time.Time
	CreatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WithdrawalRequestModel) TableName() string {
	return "withdrawal_requests"
}

// ToDomain converts the persistence model to a domain WithdrawalRequest.
func (m *WithdrawalRequestModel) ToDomain() *ledger.WithdrawalRequest {
	return &ledger.WithdrawalRequest{
		ID:               m.ID,
		UserID:           m.UserID,
		ChannelID:        m.ChannelID,
		TransactionID:    m.TransactionID,
		Amount:           m.Amount,
		Method:           m.Method,
		AccountDetails:   m.AccountDetails,
		Status:           m.Status,
		ReasonIfRejected: m.ReasonIfRejected,
		ProcessedBy:      m.ProcessedBy,
		ProcessedAt:      m.ProcessedAt,
		CreatedAt:        m.CreatedAt,
	}
}

// WithdrawalRequestModelFromDomain creates a persistence model from a domain WithdrawalRequest.
func WithdrawalRequestModelFromDomain(w *ledger.WithdrawalRequest) *WithdrawalRequestModel {
	return &WithdrawalRequestModel{
		ID:               w.ID,
		UserID:           w.UserID,
		ChannelID:        w.ChannelID,
		TransactionID:    w.TransactionID,
		Amount:           w.Amount,
		Method:           w.Method,
		AccountDetails:   w.AccountDetails,
		Status:           w.Status,
		ReasonIfRejected: w.ReasonIfRejected,
		ProcessedBy:      w.ProcessedBy,
		ProcessedAt:      w.ProcessedAt,
		CreatedAt:        w.CreatedAt,
	}
}
