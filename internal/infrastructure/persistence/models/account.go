package models

import (
	"github.com/admarket/backend/internal/domain/account"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SellerModel is the persistence model for the Seller aggregate.
type SellerModel struct {
	AggregateModel
	UserID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Balance        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalSpent     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalCampaigns int             `gorm:"not null;default:0"`
	IsActive       bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (SellerModel) TableName() string {
	return "sellers"
}

// ToDomain converts the persistence model to a domain Seller.
func (m *SellerModel) ToDomain() *account.Seller {
	s := &account.Seller{
		UserID:         m.UserID,
		Balance:        m.Balance,
		TotalSpent:     m.TotalSpent,
		TotalCampaigns: m.TotalCampaigns,
		IsActive:       m.IsActive,
	}
	m.PopulateAggregateRoot(&s.BaseAggregateRoot)
	return s
}

// SellerModelFromDomain creates a persistence model from a domain Seller.
func SellerModelFromDomain(s *account.Seller) *SellerModel {
	m := &SellerModel{
		UserID:         s.UserID,
		Balance:        s.Balance,
		TotalSpent:     s.TotalSpent,
		TotalCampaigns: s.TotalCampaigns,
		IsActive:       s.IsActive,
	}
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	return m
}

// ChannelModel is the persistence model for the Channel aggregate.
type ChannelModel struct {
	AggregateModel
	OwnerUserID       uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Title             string          `gorm:"type:varchar(255);not null"`
	TotalEarned       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	HeldForWithdrawal decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Rating            decimal.Decimal `gorm:"type:decimal(3,2);not null;default:0"`
	TotalOrders       int             `gorm:"not null;default:0"`
	CompletedOrders   int             `gorm:"not null;default:0"`
	IsActive          bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ChannelModel) TableName() string {
	return "channels"
}

// ToDomain converts the persistence model to a domain Channel.
func (m *ChannelModel) ToDomain() *account.Channel {
	c := &account.Channel{
		OwnerUserID:       m.OwnerUserID,
		Title:             m.Title,
		TotalEarned:       m.TotalEarned,
		HeldForWithdrawal: m.HeldForWithdrawal,
		Rating:            m.Rating,
		TotalOrders:       m.TotalOrders,
		CompletedOrders:   m.CompletedOrders,
		IsActive:          m.IsActive,
	}
	m.PopulateAggregateRoot(&c.BaseAggregateRoot)
	return c
}

// ChannelModelFromDomain creates a persistence model from a domain Channel.
func ChannelModelFromDomain(c *account.Channel) *ChannelModel {
	m := &ChannelModel{
		OwnerUserID:       c.OwnerUserID,
		Title:             c.Title,
		TotalEarned:       c.TotalEarned,
		HeldForWithdrawal: c.HeldForWithdrawal,
		Rating:            c.Rating,
		TotalOrders:       c.TotalOrders,
		CompletedOrders:   c.CompletedOrders,
		IsActive:          c.IsActive,
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	return m
}
