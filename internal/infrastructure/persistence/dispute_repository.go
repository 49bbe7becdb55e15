package persistence

import (
	"context"

	"github.com/admarket/backend/internal/domain/dispute"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDisputeRepository implements dispute.Repository using GORM
type GormDisputeRepository struct {
	db *gorm.DB
}

// NewGormDisputeRepository creates a new GormDisputeRepository
func NewGormDisputeRepository(db *gorm.DB) *GormDisputeRepository {
	return &GormDisputeRepository{db: db}
}

// Create inserts a dispute
func (r *GormDisputeRepository) Create(ctx context.Context, d *dispute.Dispute) error {
	return TranslateError(r.db.WithContext(ctx).Create(models.DisputeModelFromDomain(d)).Error)
}

// FindByID finds a dispute by its ID
func (r *GormDisputeRepository) FindByID(ctx context.Context, id uuid.UUID) (*dispute.Dispute, error) {
	var model models.DisputeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, dispute.ErrDisputeNotFound)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a dispute and locks its row
func (r *GormDisputeRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*dispute.Dispute, error) {
	var model models.DisputeModel
	if err := forUpdate(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, dispute.ErrDisputeNotFound)
	}
	return model.ToDomain(), nil
}

// FindOpenByCampaign finds the open dispute of a campaign
func (r *GormDisputeRepository) FindOpenByCampaign(ctx context.Context, campaignID uuid.UUID) (*dispute.Dispute, error) {
	var model models.DisputeModel
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND status = ?", campaignID, dispute.StatusOpen).
		First(&model).Error; err != nil {
		return nil, notFound(err, dispute.ErrDisputeNotFound)
	}
	return model.ToDomain(), nil
}

// SaveResolution persists a ruling while the dispute is still open
func (r *GormDisputeRepository) SaveResolution(ctx context.Context, d *dispute.Dispute) error {
	result := r.db.WithContext(ctx).
		Model(&models.DisputeModel{}).
		Where("id = ? AND status = ?", d.ID, dispute.StatusOpen).
		Updates(map[string]any{
			"status":              d.Status,
			"admin_decision":      d.AdminDecision,
			"admin_notes":         d.AdminNotes,
			"refund_amount":       d.RefundAmount,
			"decided_by_admin_id": d.DecidedByAdminID,
			"resolved_at":         d.ResolvedAt,
		})
	if result.Error != nil {
		return TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return dispute.ErrAlreadyResolved
	}
	return nil
}

// List lists disputes, optionally by status, newest first
func (r *GormDisputeRepository) List(ctx context.Context, status *dispute.Status, page shared.Pagination) ([]dispute.Dispute, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.DisputeModel{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, TranslateError(err)
	}

	page = page.Normalize()
	var disputeModels []models.DisputeModel
	if err := query.
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&disputeModels).Error; err != nil {
		return nil, 0, TranslateError(err)
	}

	disputes := make([]dispute.Dispute, len(disputeModels))
	for i, model := range disputeModels {
		disputes[i] = *model.ToDomain()
	}
	return disputes, total, nil
}

var _ dispute.Repository = (*GormDisputeRepository)(nil)
