package models

import (
	"time"

	"github.com/admarket/backend/internal/domain/admin"
	"github.com/google/uuid"
)

// AdminActionModel is the persistence model for the admin audit log.
type AdminActionModel struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	AdminID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	ActionType  admin.ActionType `gorm:"type:varchar(30);not null"`
	TargetType  admin.TargetType `gorm:"type:varchar(30);not null"`
	TargetID    uuid.UUID        `gorm:"type:uuid;not null"`
	Description string           `gorm:"type:text"`
	CreatedAt   time.Time        `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AdminActionModel) TableName() string {
	return "admin_actions"
}

// ToDomain converts the persistence model to a domain Action.
func (m *AdminActionModel) ToDomain() *admin.Action {
	return &admin.Action{
		ID:          m.ID,
		AdminID:     m.AdminID,
		ActionType:  m.ActionType,
		TargetType:  m.TargetType,
		TargetID:    m.TargetID,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

// AdminActionModelFromDomain creates a persistence model from a domain Action.
func AdminActionModelFromDomain(a *admin.Action) *AdminActionModel {
	return &AdminActionModel{
		ID:          a.ID,
		AdminID:     a.AdminID,
		ActionType:  a.ActionType,
		TargetType:  a.TargetType,
		TargetID:    a.TargetID,
		Description: a.Description,
		CreatedAt:   a.CreatedAt,
	}
}
