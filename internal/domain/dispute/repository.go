package dispute

import (
	"context"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository persists disputes
type Repository interface {
	Create(ctx context.Context, d *Dispute) error
	FindByID(ctx context.Context, id uuid.UUID) (*Dispute, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Dispute, error)
	FindOpenByCampaign(ctx context.Context, campaignID uuid.UUID) (*Dispute, error)
	// SaveResolution persists a ruling only while the stored dispute is
	// still open; otherwise it fails with ErrAlreadyResolved.
	SaveResolution(ctx context.Context, d *Dispute) error
	List(ctx context.Context, status *Status, page shared.Pagination) ([]Dispute, int64, error)
}
