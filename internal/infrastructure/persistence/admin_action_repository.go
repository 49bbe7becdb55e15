package persistence

import (
	"context"

	"github.com/admarket/backend/internal/domain/admin"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAdminActionRepository implements admin.ActionRepository using GORM
type GormAdminActionRepository struct {
	db *gorm.DB
}

// NewGormAdminActionRepository creates a new GormAdminActionRepository
func NewGormAdminActionRepository(db *gorm.DB) *GormAdminActionRepository {
	return &GormAdminActionRepository{db: db}
}

// Create appends an audit entry
func (r *GormAdminActionRepository) Create(ctx context.Context, action *admin.Action) error {
	return TranslateError(r.db.WithContext(ctx).Create(models.AdminActionModelFromDomain(action)).Error)
}

// List returns the audit log, newest first
func (r *GormAdminActionRepository) List(ctx context.Context, page shared.Pagination) ([]admin.Action, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AdminActionModel{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, TranslateError(err)
	}

	page = page.Normalize()
	var actionModels []models.AdminActionModel
	if err := query.
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&actionModels).Error; err != nil {
		return nil, 0, TranslateError(err)
	}

	actions := make([]admin.Action, len(actionModels))
	for i, model := range actionModels {
		actions[i] = *model.ToDomain()
	}
	return actions, total, nil
}

var _ admin.ActionRepository = (*GormAdminActionRepository)(nil)
