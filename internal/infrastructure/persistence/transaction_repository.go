package persistence

import (
	"context"
	"time"

	"github.com/admarket/backend/internal/domain/ledger"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormTransactionRepository implements ledger.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Create inserts ledger records
func (r *GormTransactionRepository) Create(ctx context.Context, txs ...*ledger.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	txModels := make([]*models.TransactionModel, len(txs))
	for i, tx := range txs {
		txModels[i] = models.TransactionModelFromDomain(tx)
	}
	return TranslateError(r.db.WithContext(ctx).Create(txModels).Error)
}

// FindByID finds a ledger record by its ID
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ledger.ErrTransactionNotFound)
	}
	return model.ToDomain(), nil
}

// CompleteIfPending flips a pending record to completed
func (r *GormTransactionRepository) CompleteIfPending(ctx context.Context, id uuid.UUID, externalID string, now time.Time) (bool, error) {
	updates := map[string]any{
		"status":       ledger.TransactionStatusCompleted,
		"completed_at": now,
	}
	if externalID != "" {
		updates["external_id"] = externalID
	}
	return r.transitionPending(ctx, id, updates)
}

// CancelIfPending flips a pending record to cancelled
func (r *GormTransactionRepository) CancelIfPending(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return r.transitionPending(ctx, id, map[string]any{
		"status":       ledger.TransactionStatusCancelled,
		"completed_at": now,
	})
}

func (r *GormTransactionRepository) transitionPending(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("id = ? AND status = ?", id, ledger.TransactionStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, TranslateError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ListByCampaign returns the records of one campaign, oldest first
func (r *GormTransactionRepository) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]ledger.Transaction, error) {
	var txModels []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&txModels).Error; err != nil {
		return nil, TranslateError(err)
	}
	return transactionsToDomain(txModels), nil
}

// ListByAccounts returns the records touching a seller or a channel, newest first
func (r *GormTransactionRepository) ListByAccounts(ctx context.Context, sellerID, channelID *uuid.UUID, page shared.Pagination) ([]ledger.Transaction, int64, error) {
	if sellerID == nil && channelID == nil {
		return []ledger.Transaction{}, 0, nil
	}

	query := r.db.WithContext(ctx).Model(&models.TransactionModel{})
	switch {
	case sellerID != nil && channelID != nil:
		query = query.Where("seller_id = ? OR channel_owner_id = ?", *sellerID, *channelID)
	case sellerID != nil:
		query = query.Where("seller_id = ?", *sellerID)
	default:
		query = query.Where("channel_owner_id = ?", *channelID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, TranslateError(err)
	}

	page = page.Normalize()
	var txModels []models.TransactionModel
	if err := query.
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&txModels).Error; err != nil {
		return nil, 0, TranslateError(err)
	}
	return transactionsToDomain(txModels), total, nil
}

// SummarizeCompleted totals completed records per type
func (r *GormTransactionRepository) SummarizeCompleted(ctx context.Context, period shared.Period) (map[ledger.TransactionType]ledger.Totals, error) {
	var rows []struct {
		Type   ledger.TransactionType
		Count  int64
		Amount decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Select("transaction_type AS type, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Where("status = ?", ledger.TransactionStatusCompleted).
		Scopes(within("completed_at", period)).
		Group("transaction_type").
		Scan(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}

	totals := make(map[ledger.TransactionType]ledger.Totals, len(rows))
	for _, row := range rows {
		totals[row.Type] = ledger.Totals{Count: row.Count, Amount: row.Amount}
	}
	return totals, nil
}

func transactionsToDomain(txModels []models.TransactionModel) []ledger.Transaction {
	txs := make([]ledger.Transaction, len(txModels))
	for i, model := range txModels {
		txs[i] = *model.ToDomain()
	}
	return txs
}

var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
