package models

import (
	"time"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateModel holds the columns shared by sellers, channels and
// campaigns. version backs the optimistic lock in SaveWithLock.
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot copies identity, timestamps and version from a
// domain aggregate
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.ID, m.CreatedAt, m.UpdatedAt, m.Version = a.ID, a.CreatedAt, a.UpdatedAt, a.Version
}

// PopulateAggregateRoot is the reverse of FromDomainAggregateRoot. Pending
// events are not stored and stay empty.
func (m *AggregateModel) PopulateAggregateRoot(a *shared.BaseAggregateRoot) {
	a.ID, a.CreatedAt, a.UpdatedAt, a.Version = m.ID, m.CreatedAt, m.UpdatedAt, m.Version
}
