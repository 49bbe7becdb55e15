package escrow

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Actor is the authenticated caller of a read operation
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

// ListFilter narrows campaign listings
type ListFilter struct {
	Status    *campaign.Status
	SortBy    string
	SortOrder string
	shared.Pagination
}

func (f ListFilter) repoFilter() campaign.Filter {
	return campaign.Filter{Status: f.Status, SortBy: f.SortBy, SortOrder: f.SortOrder, Pagination: f.Pagination.Normalize()}
}

// ParseStatusFilter turns an optional query value into a status filter
func ParseStatusFilter(raw string) (*campaign.Status, error) {
	if raw == "" {
		return nil, nil
	}
	status := campaign.Status(raw)
	if !status.IsValid() {
		return nil, shared.NewValidationError("Unknown campaign status %q", raw)
	}
	return &status, nil
}

// ParseSort checks the optional sort column and direction of a listing.
// Empty values keep the default newest-first order.
func ParseSort(sortBy, sortOrder string) (string, string, error) {
	sortBy = strings.TrimSpace(sortBy)
	if sortBy != "" && !campaign.SortFields[sortBy] {
		return "", "", shared.NewValidationError("Cannot sort campaigns by %q", sortBy)
	}
	switch order := strings.ToLower(strings.TrimSpace(sortOrder)); order {
	case "", "asc", "desc":
		return sortBy, order, nil
	default:
		return "", "", shared.NewValidationError("Sort order must be asc or desc, got %q", sortOrder)
	}
}

// GetCampaign returns a campaign visible to its seller, its channel owner
// or an administrator
func (s *Service) GetCampaign(ctx context.Context, campaignID uuid.UUID, actor Actor) (*CampaignResponse, error) {
	c, err := s.repos.Campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := s.checkParticipant(ctx, c, actor); err != nil {
		return nil, err
	}
	resp := ToCampaignResponse(c)
	return &resp, nil
}

// ListSellerCampaigns lists the caller's own campaigns, newest first
func (s *Service) ListSellerCampaigns(ctx context.Context, sellerUserID uuid.UUID, filter ListFilter) (*shared.Paginated[CampaignResponse], error) {
	seller, err := s.repos.Sellers.FindByUserID(ctx, sellerUserID)
	if err != nil {
		return nil, err
	}
	page := filter.Pagination.Normalize()
	items, total, err := s.repos.Campaigns.ListBySeller(ctx, seller.ID, filter.repoFilter())
	if err != nil {
		return nil, fmt.Errorf("list seller campaigns: %w", err)
	}
	result := shared.NewPaginated(ToCampaignResponses(items), total, page.Page, page.PageSize)
	return &result, nil
}

// ListChannelCampaigns lists a channel's campaigns for its owner or an
// administrator, newest first
func (s *Service) ListChannelCampaigns(ctx context.Context, channelID uuid.UUID, actor Actor, filter ListFilter) (*shared.Paginated[CampaignResponse], error) {
	if _, err := s.ownedChannel(ctx, channelID, actor); err != nil {
		return nil, err
	}
	page := filter.Pagination.Normalize()
	items, total, err := s.repos.Campaigns.ListByChannel(ctx, channelID, filter.repoFilter())
	if err != nil {
		return nil, fmt.Errorf("list channel campaigns: %w", err)
	}
	result := shared.NewPaginated(ToCampaignResponses(items), total, page.Page, page.PageSize)
	return &result, nil
}

// GetSellerStats summarises the caller's campaigns and spending
func (s *Service) GetSellerStats(ctx context.Context, sellerUserID uuid.UUID) (*SellerStats, error) {
	seller, err := s.repos.Sellers.FindByUserID(ctx, sellerUserID)
	if err != nil {
		return nil, err
	}
	counts, err := s.repos.Campaigns.CountBySellerAndStatus(ctx, seller.ID)
	if err != nil {
		return nil, fmt.Errorf("count seller campaigns: %w", err)
	}
	return &SellerStats{
		TotalCampaigns:     counts.Total(),
		ActiveCampaigns:    counts.Active(),
		CompletedCampaigns: counts[campaign.StatusCompleted],
		PendingCampaigns:   counts[campaign.StatusPending],
		TotalSpent:         seller.TotalSpent,
		Balance:            seller.Balance,
	}, nil
}

// GetChannelStats summarises a channel's campaigns and earnings
func (s *Service) GetChannelStats(ctx context.Context, channelID uuid.UUID, actor Actor) (*ChannelStats, error) {
	channel, err := s.ownedChannel(ctx, channelID, actor)
	if err != nil {
		return nil, err
	}
	counts, err := s.repos.Campaigns.CountByChannelAndStatus(ctx, channel.ID)
	if err != nil {
		return nil, fmt.Errorf("count channel campaigns: %w", err)
	}
	stats := newChannelStats(counts, channel)
	return &stats, nil
}

// ListActivities returns a campaign's activity log, oldest first
func (s *Service) ListActivities(ctx context.Context, campaignID uuid.UUID, actor Actor) ([]ActivityResponse, error) {
	c, err := s.repos.Campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := s.checkParticipant(ctx, c, actor); err != nil {
		return nil, err
	}
	activities, err := s.repos.Activities.ListByCampaign(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return toActivityResponses(activities), nil
}

var proofContentTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// ErrProofUploadUnavailable is returned when no proof storage is configured
// CodeProofUploadUnavailable is raised when no proof storage is configured
const CodeProofUploadUnavailable = "PROOF_UPLOAD_UNAVAILABLE"

var ErrProofUploadUnavailable = shared.NewDomainError(CodeProofUploadUnavailable, "Proof uploads are not available")

// RequestProofUpload issues a presigned URL the channel owner uploads a
// placement screenshot to. The returned ProofURL is what SubmitCampaign
// expects as proof.
func (s *Service) RequestProofUpload(ctx context.Context, campaignID, actorID uuid.UUID, req ProofUploadRequest) (*ProofUpload, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "escrow", "request_proof_upload")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrCampaignID, campaignID.String())

	if s.storage == nil {
		return nil, ErrProofUploadUnavailable
	}
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	ext, ok := proofContentTypes[contentType]
	if !ok {
		return nil, shared.NewValidationError("Unsupported proof content type %q", req.ContentType)
	}

	c, err := s.repos.Campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedChannel(ctx, c.ChannelID, Actor{UserID: actorID}); err != nil {
		return nil, err
	}
	if c.Status != campaign.StatusAccepted {
		return nil, campaign.ErrInvalidTransition(campaign.EventSubmit, c.Status)
	}

	key := path.Join("campaigns", c.ID.String(), "proof-"+uuid.NewString()+ext)
	upload, err := s.storage.PresignUpload(ctx, key, contentType)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to presign proof upload",
			zap.String("campaign_id", c.ID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("presign proof upload: %w", err)
	}
	return upload, nil
}

func (s *Service) checkParticipant(ctx context.Context, c *campaign.Campaign, actor Actor) error {
	if actor.Admin {
		return nil
	}
	seller, err := s.repos.Sellers.FindByID(ctx, c.SellerID)
	if err == nil && seller.UserID == actor.UserID {
		return nil
	}
	channel, err := s.repos.Channels.FindByID(ctx, c.ChannelID)
	if err == nil && channel.IsOwnedBy(actor.UserID) {
		return nil
	}
	return shared.ErrForbidden
}

func (s *Service) ownedChannel(ctx context.Context, channelID uuid.UUID, actor Actor) (*account.Channel, error) {
	channel, err := s.repos.Channels.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && !channel.IsOwnedBy(actor.UserID) {
		return nil, shared.ErrForbidden
	}
	return channel, nil
}
