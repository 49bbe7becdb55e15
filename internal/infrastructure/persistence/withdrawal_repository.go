package persistence

import (
	"context"

	"github.com/admarket/backend/internal/domain/ledger"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWithdrawalRepository implements ledger.WithdrawalRepository using GORM
type GormWithdrawalRepository struct {
	db *gorm.DB
}

// NewGormWithdrawalRepository creates a new GormWithdrawalRepository
func NewGormWithdrawalRepository(db *gorm.DB) *GormWithdrawalRepository {
	return &GormWithdrawalRepository{db: db}
}

// Create inserts a withdrawal request
func (r *GormWithdrawalRepository) Create(ctx context.Context, w *ledger.WithdrawalRequest) error {
	return TranslateError(r.db.WithContext(ctx).Create(models.WithdrawalRequestModelFromDomain(w)).Error)
}

// FindByID finds a withdrawal request by its ID
func (r *GormWithdrawalRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.WithdrawalRequest, error) {
	var model models.WithdrawalRequestModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ledger.ErrWithdrawalNotFound)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a withdrawal request and locks its row
func (r *GormWithdrawalRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.WithdrawalRequest, error) {
	var model models.WithdrawalRequestModel
	if err := forUpdate(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ledger.ErrWithdrawalNotFound)
	}
	return model.ToDomain(), nil
}

// SaveProcessed persists an approve or reject while the row is still pending
func (r *GormWithdrawalRepository) SaveProcessed(ctx context.Context, w *ledger.WithdrawalRequest) error {
	result := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequestModel{}).
		Where("id = ? AND status = ?", w.ID, ledger.WithdrawalStatusPending).
		Updates(map[string]any{
			"status":             w.Status,
			"reason_if_rejected": w.ReasonIfRejected,
			"processed_by":       w.ProcessedBy,
			"processed_at":       w.ProcessedAt,
		})
	if result.Error != nil {
		return TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		current, err := r.FindByID(ctx, w.ID)
		if err != nil {
			return err
		}
		return ledger.ErrWithdrawalNotPending(current.Status)
	}
	return nil
}

// ListByStatus lists withdrawal requests in a status, oldest first
func (r *GormWithdrawalRepository) ListByStatus(ctx context.Context, status ledger.WithdrawalStatus, page shared.Pagination) ([]ledger.WithdrawalRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WithdrawalRequestModel{}).Where("status = ?", status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, TranslateError(err)
	}

	page = page.Normalize()
	var withdrawalModels []models.WithdrawalRequestModel
	if err := query.
		Order("created_at ASC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&withdrawalModels).Error; err != nil {
		return nil, 0, TranslateError(err)
	}

	withdrawals := make([]ledger.WithdrawalRequest, len(withdrawalModels))
	for i, model := range withdrawalModels {
		withdrawals[i] = *model.ToDomain()
	}
	return withdrawals, total, nil
}

var _ ledger.WithdrawalRepository = (*GormWithdrawalRepository)(nil)
