package campaign

import (
	"context"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Filter narrows list queries
type Filter struct {
	Status    *Status
	SortBy    string
	SortOrder string
	shared.Pagination
}

// SortFields are the columns a campaign listing may be ordered by
var SortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"start_date": true,
	"end_date":   true,
	"budget":     true,
	"status":     true,
}

// Counts summarises campaigns per status
type Counts map[Status]int64

// Total returns the number of campaigns across all statuses
func (c Counts) Total() int64 {
	var total int64
	for _, n := range c {
		total += n
	}
	return total
}

// Active returns campaigns that still hold escrowed funds
func (c Counts) Active() int64 {
	var active int64
	for status, n := range c {
		if status.IsActive() {
			active += n
		}
	}
	return active
}

// Repository persists campaigns
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Campaign, error)
	// FindByIDForUpdate loads the campaign and locks its row until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Campaign, error)
	Create(ctx context.Context, c *Campaign) error
	// SaveWithLock persists c only if the stored version is c.Version-1.
	// It returns shared.ErrConcurrencyConflict when another writer won.
	SaveWithLock(ctx context.Context, c *Campaign) error

	ListBySeller(ctx context.Context, sellerID uuid.UUID, filter Filter) ([]Campaign, int64, error)
	ListByChannel(ctx context.Context, channelID uuid.UUID, filter Filter) ([]Campaign, int64, error)
	CountBySellerAndStatus(ctx context.Context, sellerID uuid.UUID) (Counts, error)
	CountByChannelAndStatus(ctx context.Context, channelID uuid.UUID) (Counts, error)
	// CountByStatus counts every campaign created within period
	CountByStatus(ctx context.Context, period shared.Period) (Counts, error)
}

// ActivityRepository persists the campaign activity log
type ActivityRepository interface {
	Create(ctx context.Context, activity *Activity) error
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]Activity, error)
}
