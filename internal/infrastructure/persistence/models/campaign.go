package models

import (
	"time"

	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignModel is the persistence model for the Campaign aggregate.
type CampaignModel struct {
	AggregateModel
	SellerID                  uuid.UUID       `gorm:"type:uuid;not null;index:idx_campaign_seller_status,priority:1"`
	ChannelID                 uuid.UUID       `gorm:"type:uuid;not null;index:idx_campaign_channel_status,priority:1"`
	Status                    campaign.Status `gorm:"type:varchar(20);not null;default:'pending';index:idx_campaign_seller_status,priority:2;index:idx_campaign_channel_status,priority:2"`
	Budget                    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PlatformCommissionPercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:10"`
	StartDate                 time.Time       `gorm:"not null"`
	EndDate                   time.Time       `gorm:"not null"`
	AdFormat                  string          `gorm:"type:varchar(50)"`
	CreativeText              string          `gorm:"type:text"`
	PlacementProofURL         *string         `gorm:"type:text"`
	PlacementProofType        *string         `gorm:"type:varchar(50)"`
	OwnerNotes                *string         `gorm:"type:text"`
	SellerNotes               *string         `gorm:"type:text"`
	OwnerSubmittedAt          *time.Time
	SellerConfirmedAt         *time.Time
	ActualCompletionDate      *time.Time
}

// TableName returns the table name for GORM
func (CampaignModel) TableName() string {
	return "campaigns"
}

// ToDomain converts the persistence model to a domain Campaign.
func (m *CampaignModel) ToDomain() *campaign.Campaign {
	c := &campaign.Campaign{
		SellerID:                  m.SellerID,
		ChannelID:                 m.ChannelID,
		Status:                    m.Status,
		Budget:                    m.Budget,
		PlatformCommissionPercent: m.PlatformCommissionPercent,
		StartDate:                 m.StartDate,
		EndDate:                   m.EndDate,
		AdFormat:                  m.AdFormat,
		CreativeText:              m.CreativeText,
		PlacementProofURL:         m.PlacementProofURL,
		PlacementProofType:        m.PlacementProofType,
		OwnerNotes:                m.OwnerNotes,
		SellerNotes:               m.SellerNotes,
		OwnerSubmittedAt:          m.OwnerSubmittedAt,
		SellerConfirmedAt:         m.SellerConfirmedAt,
		ActualCompletionDate:      m.ActualCompletionDate,
	}
	m.PopulateAggregateRoot(&c.BaseAggregateRoot)
	return c
}

// CampaignModelFromDomain creates a persistence model from a domain Campaign.
func CampaignModelFromDomain(c *campaign.Campaign) *CampaignModel {
	m := &CampaignModel{
		SellerID:                  c.SellerID,
		ChannelID:                 c.ChannelID,
		Status:                    c.Status,
		Budget:                    c.Budget,
		PlatformCommissionPercent: c.PlatformCommissionPercent,
		StartDate:                 c.StartDate,
		EndDate:                   c.EndDate,
		AdFormat:                  c.AdFormat,
		CreativeText:              c.CreativeText,
		PlacementProofURL:         c.PlacementProofURL,
		PlacementProofType:        c.PlacementProofType,
		OwnerNotes:                c.OwnerNotes,
		SellerNotes:               c.SellerNotes,
		OwnerSubmittedAt:          c.OwnerSubmittedAt,
		SellerConfirmedAt:         c.SellerConfirmedAt,
		ActualCompletionDate:      c.ActualCompletionDate,
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	return m
}

// CampaignActivityModel is the persistence model for the campaign activity log.
type CampaignActivityModel struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey"`
	CampaignID  uuid.UUID           `gorm:"type:uuid;not null;index"`
	UserID      uuid.UUID           `gorm:"type:uuid;not null"`
	ActionType  campaign.ActionType `gorm:"type:varchar(30);not null"`
	Description string              `gorm:"type:text"`
	CreatedAt   time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CampaignActivityModel) TableName() string {
	return "campaign_activities"
}

// ToDomain converts the persistence model to a domain Activity.
func (m *CampaignActivityModel) ToDomain() *campaign.Activity {
	return &campaign.Activity{
		ID:          m.ID,
		CampaignID:  m.CampaignID,
		UserID:      m.UserID,
		ActionType:  m.ActionType,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

// CampaignActivityModelFromDomain creates a persistence model from a domain Activity.
func CampaignActivityModelFromDomain(a *campaign.Activity) *CampaignActivityModel {
	return &CampaignActivityModel{
		ID:          a.ID,
		CampaignID:  a.CampaignID,
		UserID:      a.UserID,
		ActionType:  a.ActionType,
		Description: a.Description,
		CreatedAt:   a.CreatedAt,
	}
}
