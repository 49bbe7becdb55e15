package models

import (
	"time"

	"github.com/admarket/backend/internal/domain/dispute"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DisputeModel is the persistence model for a CampaignDispute.
type DisputeModel struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey"`
	CampaignID        uuid.UUID         `gorm:"type:uuid;not null;index"`
	InitiatedByUserID uuid.UUID         `gorm:"type:uuid;not null"`
	Reason            string            `gorm:"type:text;not null"`
	Status            dispute.Status    `gorm:"type:varchar(20);not null;default:'open';index"`
	AdminDecision     *dispute.Decision `gorm:"type:varchar(30)"`
	AdminNotes        *string           `gorm:"type:text"`
	RefundAmount      *decimal.Decimal  `gorm:"type:decimal(18,2)"`
	DecidedByAdminID  *uuid.UUID        `gorm:"type:uuid"`
	CreatedAt         time.Time         `gorm:"not null"`
	ResolvedAt        *time.Time
}

// TableName returns the table name for GORM
func (DisputeModel) TableName() string {
	return "campaign_disputes"
}

// ToDomain converts the persistence model to a domain Dispute.
func (m *DisputeModel) ToDomain() *dispute.Dispute {
	return &dispute.Dispute{
		ID:                m.ID,
		CampaignID:        m.CampaignID,
		InitiatedByUserID: m.InitiatedByUserID,
		Reason:            m.Reason,
		Status:            m.Status,
		AdminDecision:     m.AdminDecision,
		AdminNotes:        m.AdminNotes,
		RefundAmount:      m.RefundAmount,
		DecidedByAdminID:  m.DecidedByAdminID,
		CreatedAt:         m.CreatedAt,
		ResolvedAt:        m.ResolvedAt,
	}
}

// DisputeModelFromDomain creates a persistence model from a domain Dispute.
func DisputeModelFromDomain(d *dispute.Dispute) *DisputeModel {
	return &DisputeModel{
		ID:                d.ID,
		CampaignID:        d.CampaignID,
		InitiatedByUserID: d.InitiatedByUserID,
		Reason:            d.Reason,
		Status:            d.Status,
		AdminDecision:     d.AdminDecision,
		AdminNotes:        d.AdminNotes,
		RefundAmount:      d.RefundAmount,
		DecidedByAdminID:  d.DecidedByAdminID,
		CreatedAt:         d.CreatedAt,
		ResolvedAt:        d.ResolvedAt,
	}
}
