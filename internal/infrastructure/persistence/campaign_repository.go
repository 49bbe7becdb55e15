package persistence

import (
	"context"

	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCampaignRepository implements campaign.Repository using GORM
type GormCampaignRepository struct {
	db *gorm.DB
}

// NewGormCampaignRepository creates a new GormCampaignRepository
func NewGormCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

// FindByID finds a campaign by its ID
func (r *GormCampaignRepository) FindByID(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	var model models.CampaignModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, campaign.ErrCampaignNotFound)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a campaign and locks its row (SELECT ... FOR UPDATE)
func (r *GormCampaignRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	var model models.CampaignModel
	if err := forUpdate(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, campaign.ErrCampaignNotFound)
	}
	return model.ToDomain(), nil
}

// Create inserts a new campaign
func (r *GormCampaignRepository) Create(ctx context.Context, c *campaign.Campaign) error {
	return TranslateError(r.db.WithContext(ctx).Create(models.CampaignModelFromDomain(c)).Error)
}

// SaveWithLock saves a campaign with optimistic locking (version check).
// The domain aggregate has already incremented its version.
func (r *GormCampaignRepository) SaveWithLock(ctx context.Context, c *campaign.Campaign) error {
	model := models.CampaignModelFromDomain(c)
	result := r.db.WithContext(ctx).
		Model(&models.CampaignModel{}).
		Where("id = ? AND version = ?", c.ID, c.Version-1).
		Updates(map[string]any{
			"status":                 model.Status,
			"budget":                 model.Budget,
			"start_date":             model.StartDate,
			"end_date":               model.EndDate,
			"ad_format":              model.AdFormat,
			"creative_text":          model.CreativeText,
			"placement_proof_url":    model.PlacementProofURL,
			"placement_proof_type":   model.PlacementProofType,
			"owner_notes":            model.OwnerNotes,
			"seller_notes":           model.SellerNotes,
			"owner_submitted_at":     model.OwnerSubmittedAt,
			"seller_confirmed_at":    model.SellerConfirmedAt,
			"actual_completion_date": model.ActualCompletionDate,
			"version":                model.Version,
			"updated_at":             model.UpdatedAt,
		})
	if result.Error != nil {
		return TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// ListBySeller lists a seller's campaigns, newest first unless the filter sorts otherwise
func (r *GormCampaignRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, filter campaign.Filter) ([]campaign.Campaign, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("seller_id = ?", sellerID), filter)
}

// ListByChannel lists a channel's campaigns, newest first
func (r *GormCampaignRepository) ListByChannel(ctx context.Context, channelID uuid.UUID, filter campaign.Filter) ([]campaign.Campaign, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("channel_id = ?", channelID), filter)
}

func (r *GormCampaignRepository) list(ctx context.Context, query *gorm.DB, filter campaign.Filter) ([]campaign.Campaign, int64, error) {
	query = query.Model(&models.CampaignModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, TranslateError(err)
	}

	page := filter.Pagination.Normalize()
	var campaignModels []models.CampaignModel
	if err := query.
		Order(orderBy(filter.SortBy, filter.SortOrder, CampaignSortFields, "created_at")).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&campaignModels).Error; err != nil {
		return nil, 0, TranslateError(err)
	}

	campaigns := make([]campaign.Campaign, len(campaignModels))
	for i, model := range campaignModels {
		campaigns[i] = *model.ToDomain()
	}
	return campaigns, total, nil
}

// CountBySellerAndStatus counts a seller's campaigns per status
func (r *GormCampaignRepository) CountBySellerAndStatus(ctx context.Context, sellerID uuid.UUID) (campaign.Counts, error) {
	return r.countByStatus(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("seller_id = ?", sellerID)
	})
}

// CountByChannelAndStatus counts a channel's campaigns per status
func (r *GormCampaignRepository) CountByChannelAndStatus(ctx context.Context, channelID uuid.UUID) (campaign.Counts, error) {
	return r.countByStatus(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("channel_id = ?", channelID)
	})
}

// CountByStatus counts all campaigns created within period
func (r *GormCampaignRepository) CountByStatus(ctx context.Context, period shared.Period) (campaign.Counts, error) {
	return r.countByStatus(ctx, within("created_at", period))
}

func (r *GormCampaignRepository) countByStatus(ctx context.Context, scope func(*gorm.DB) *gorm.DB) (campaign.Counts, error) {
	var rows []struct {
		Status campaign.Status
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.CampaignModel{}).
		Select("status, COUNT(*) AS count").
		Scopes(scope).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}

	counts := make(campaign.Counts, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

var _ campaign.Repository = (*GormCampaignRepository)(nil)

// GormActivityRepository implements campaign.ActivityRepository using GORM
type GormActivityRepository struct {
	db *gorm.DB
}

// NewGormActivityRepository creates a new GormActivityRepository
func NewGormActivityRepository(db *gorm.DB) *GormActivityRepository {
	return &GormActivityRepository{db: db}
}

// Create appends an activity entry
func (r *GormActivityRepository) Create(ctx context.Context, activity *campaign.Activity) error {
	return TranslateError(r.db.WithContext(ctx).Create(models.CampaignActivityModelFromDomain(activity)).Error)
}

// ListByCampaign returns a campaign's activity log, oldest first
func (r *GormActivityRepository) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]campaign.Activity, error) {
	var activityModels []models.CampaignActivityModel
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&activityModels).Error; err != nil {
		return nil, TranslateError(err)
	}

	activities := make([]campaign.Activity, len(activityModels))
	for i, model := range activityModels {
		activities[i] = *model.ToDomain()
	}
	return activities, nil
}

var _ campaign.ActivityRepository = (*GormActivityRepository)(nil)
