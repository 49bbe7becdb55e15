package persistence

import (
	"context"

	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormSellerRepository implements account.SellerRepository using GORM
type GormSellerRepository struct {
	db *gorm.DB
}

// NewGormSellerRepository creates a new GormSellerRepository
func NewGormSellerRepository(db *gorm.DB) *GormSellerRepository {
	return &GormSellerRepository{db: db}
}

// FindByID finds a seller by its ID
func (r *GormSellerRepository) FindByID(ctx context.Context, id uuid.UUID) (*account.Seller, error) {
	var model models.SellerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, account.ErrSellerNotFound)
	}
	return model.ToDomain(), nil
}

// FindByUserID finds the seller account of a user
func (r *GormSellerRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*account.Seller, error) {
	var model models.SellerModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, account.ErrSellerNotFound)
	}
	return model.ToDomain(), nil
}

// Save creates or updates a seller
func (r *GormSellerRepository) Save(ctx context.Context, seller *account.Seller) error {
	return TranslateError(r.db.WithContext(ctx).Save(models.SellerModelFromDomain(seller)).Error)
}

// Debit moves amount out of the balance in a single guarded UPDATE so that
// concurrent debits can never take the balance below zero.
func (r *GormSellerRepository) Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return account.ErrInsufficientFunds(decimal.Zero, amount)
	}
	result := r.db.WithContext(ctx).
		Model(&models.SellerModel{}).
		Where("id = ? AND balance >= ?", id, amount).
		Updates(map[string]any{
			"balance":         gorm.Expr("balance - ?", amount),
			"total_spent":     gorm.Expr("total_spent + ?", amount),
			"total_campaigns": gorm.Expr("total_campaigns + 1"),
			"version":         gorm.Expr("version + 1"),
			"updated_at":      nowUTC(),
		})
	if result.Error != nil {
		return TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		seller, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return account.ErrInsufficientFunds(seller.Balance, amount)
	}
	return nil
}

// Credit adds amount to the balance
func (r *GormSellerRepository) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return increment(ctx, r.db, &models.SellerModel{}, id, account.ErrSellerNotFound, map[string]any{
		"balance": gorm.Expr("balance + ?", amount),
	})
}

// AdjustSpend moves amount between balance and total spent without
// touching the campaign count. A positive amount takes more of the balance,
// a negative one gives it back.
func (r *GormSellerRepository) AdjustSpend(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		refund := amount.Neg()
		return increment(ctx, r.db, &models.SellerModel{}, id, account.ErrSellerNotFound, map[string]any{
			"balance":     gorm.Expr("balance + ?", refund),
			"total_spent": gorm.Expr("total_spent - ?", refund),
		})
	}
	result := r.db.WithContext(ctx).
		Model(&models.SellerModel{}).
		Where("id = ? AND balance >= ?", id, amount).
		Updates(map[string]any{
			"balance":     gorm.Expr("balance - ?", amount),
			"total_spent": gorm.Expr("total_spent + ?", amount),
			"version":     gorm.Expr("version + 1"),
			"updated_at":  nowUTC(),
		})
	if result.Error != nil {
		return TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		seller, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return account.ErrInsufficientFunds(seller.Balance, amount)
	}
	return nil
}

// Deactivate marks the seller inactive
func (r *GormSellerRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return increment(ctx, r.db, &models.SellerModel{}, id, account.ErrSellerNotFound, map[string]any{
		"is_active": false,
	})
}

// Count returns how many sellers exist and how many are active
func (r *GormSellerRepository) Count(ctx context.Context) (account.Counts, error) {
	return countAccounts(ctx, r.db, &models.SellerModel{})
}

var _ account.SellerRepository = (*GormSellerRepository)(nil)
