package persistence

import (
	"context"

	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormChannelRepository implements account.ChannelRepository using GORM
type GormChannelRepository struct {
	db *gorm.DB
}

// NewGormChannelRepository creates a new GormChannelRepository
func NewGormChannelRepository(db *gorm.DB) *GormChannelRepository {
	return &GormChannelRepository{db: db}
}

// FindByID finds a channel by its ID
func (r *GormChannelRepository) FindByID(ctx context.Context, id uuid.UUID) (*account.Channel, error) {
	var model models.ChannelModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, account.ErrChannelNotFound)
	}
	return model.ToDomain(), nil
}

// FindByOwnerUserID finds the channel owned by a user
func (r *GormChannelRepository) FindByOwnerUserID(ctx context.Context, userID uuid.UUID) (*account.Channel, error) {
	var model models.ChannelModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, account.ErrChannelNotFound)
	}
	return model.ToDomain(), nil
}

// Save creates or updates a channel
func (r *GormChannelRepository) Save(ctx context.Context, channel *account.Channel) error {
	return TranslateError(r.db.WithContext(ctx).Save(models.ChannelModelFromDomain(channel)).Error)
}

// CreditEarnings adds a payout to the channel's lifetime earnings
func (r *GormChannelRepository) CreditEarnings(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return increment(ctx, r.db, &models.ChannelModel{}, id, account.ErrChannelNotFound, map[string]any{
		"total_earned": gorm.Expr("total_earned + ?", amount),
	})
}

// IncrementCompletedOrders counts a paid-out campaign
func (r *GormChannelRepository) IncrementCompletedOrders(ctx context.Context, id uuid.UUID) error {
	return increment(ctx, r.db, &models.ChannelModel{}, id, account.ErrChannelNotFound, map[string]any{
		"completed_orders": gorm.Expr("completed_orders + 1"),
	})
}

// IncrementTotalOrders counts an accepted campaign
func (r *GormChannelRepository) IncrementTotalOrders(ctx context.Context, id uuid.UUID) error {
	return increment(ctx, r.db, &models.ChannelModel{}, id, account.ErrChannelNotFound, map[string]any{
		"total_orders": gorm.Expr("total_orders + 1"),
	})
}

// HoldForWithdrawal reserves amount of the available earnings. The guard
// predicate makes concurrent reservations unable to overdraw the channel.
func (r *GormChannelRepository) HoldForWithdrawal(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.ChannelModel{}).
		Where("id = ? AND total_earned - held_for_withdrawal >= ?", id, amount).
		Updates(map[string]any{
			"held_for_withdrawal": gorm.Expr("held_for_withdrawal + ?", amount),
			"version":             gorm.Expr("version + 1"),
			"updated_at":          nowUTC(),
		})
	if result.Error != nil {
		return TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		channel, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return account.ErrInsufficientFunds(channel.Available(), amount)
	}
	return nil
}

// ReleaseHold returns a reservation to the available earnings
func (r *GormChannelRepository) ReleaseHold(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.consumeHold(ctx, id, amount, map[string]any{
		"held_for_withdrawal": gorm.Expr("held_for_withdrawal - ?", amount),
	})
}

// SettleWithdrawal pays out a reservation: the hold and the earnings both shrink
func (r *GormChannelRepository) SettleWithdrawal(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.consumeHold(ctx, id, amount, map[string]any{
		"held_for_withdrawal": gorm.Expr("held_for_withdrawal - ?", amount),
		"total_earned":        gorm.Expr("total_earned - ?", amount),
	})
}

func (r *GormChannelRepository) consumeHold(ctx context.Context, id uuid.UUID, amount decimal.Decimal, updates map[string]any) error {
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = nowUTC()
	result := r.db.WithContext(ctx).
		Model(&models.ChannelModel{}).
		Where("id = ? AND held_for_withdrawal >= ?", id, amount).
		Updates(updates)
	if result.Error != nil {
		return TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return shared.NewIntegrityError("Withdrawal settlement", nil)
	}
	return nil
}

// Deactivate marks the channel inactive
func (r *GormChannelRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return increment(ctx, r.db, &models.ChannelModel{}, id, account.ErrChannelNotFound, map[string]any{
		"is_active": false,
	})
}

// Count returns how many channels exist and how many are active
func (r *GormChannelRepository) Count(ctx context.Context) (account.Counts, error) {
	return countAccounts(ctx, r.db, &models.ChannelModel{})
}

var _ account.ChannelRepository = (*GormChannelRepository)(nil)
