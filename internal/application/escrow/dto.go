package escrow

import (
	"time"

	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateCampaignRequest places a new campaign on a channel
type CreateCampaignRequest struct {
	ChannelID    uuid.UUID       `json:"channel_id" binding:"required"`
	Budget       decimal.Decimal `json:"budget" binding:"required,money"`
	StartDate    time.Time       `json:"start_date" binding:"required"`
	EndDate      time.Time       `json:"end_date" binding:"required"`
	AdFormat     string          `json:"ad_format" binding:"max=50"`
	CreativeText string          `json:"creative_text" binding:"max=4096"`
	Notes        string          `json:"notes" binding:"max=2000"`
}

func (r CreateCampaignRequest) terms() campaign.Terms {
	return campaign.Terms{
		Budget:       r.Budget,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		AdFormat:     r.AdFormat,
		CreativeText: r.CreativeText,
		SellerNotes:  r.Notes,
	}
}

// UpdateCampaignRequest replaces the terms of a pending campaign
type UpdateCampaignRequest struct {
	Budget       decimal.Decimal `json:"budget" binding:"required,money"`
	StartDate    time.Time       `json:"start_date" binding:"required"`
	EndDate      time.Time       `json:"end_date" binding:"required"`
	AdFormat     string          `json:"ad_format" binding:"max=50"`
	CreativeText string          `json:"creative_text" binding:"max=4096"`
	Notes        string          `json:"notes" binding:"max=2000"`
}

func (r UpdateCampaignRequest) terms() campaign.Terms {
	return campaign.Terms{
		Budget:       r.Budget,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		AdFormat:     r.AdFormat,
		CreativeText: r.CreativeText,
		SellerNotes:  r.Notes,
	}
}

// AcceptCampaignRequest is the channel owner's acceptance
type AcceptCampaignRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

// RejectCampaignRequest is the channel owner's refusal
type RejectCampaignRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=2000"`
}

// SubmitCampaignRequest carries the placement proof
type SubmitCampaignRequest struct {
	ProofURL  string `json:"proof_url" binding:"required,url,max=2048"`
	ProofType string `json:"proof_type" binding:"max=50"`
	Notes     string `json:"notes" binding:"max=2000"`
}

// ConfirmCampaignRequest is the seller's verdict on a placement.
// Confirmed=false opens a dispute and requires DisputeReason.
type ConfirmCampaignRequest struct {
	Confirmed     bool   `json:"confirmed"`
	DisputeReason string `json:"dispute_reason" binding:"max=2000"`
	Notes         string `json:"notes" binding:"max=2000"`
}

// CancelCampaignRequest withdraws a pending campaign
type CancelCampaignRequest struct {
	Reason string `json:"reason" binding:"max=2000"`
}

// ProofUploadRequest asks for a presigned proof upload URL
type ProofUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// CampaignResponse is the API view of a campaign
type CampaignResponse struct {
	ID                        uuid.UUID       `json:"id"`
	SellerID                  uuid.UUID       `json:"seller_id"`
	ChannelID                 uuid.UUID       `json:"channel_id"`
	Status                    campaign.Status `json:"status"`
	Budget                    decimal.Decimal `json:"budget"`
	PlatformCommissionPercent decimal.Decimal `json:"platform_commission_percent"`
	StartDate                 time.Time       `json:"start_date"`
	EndDate                   time.Time       `json:"end_date"`
	AdFormat                  string          `json:"ad_format,omitempty"`
	CreativeText              string          `json:"creative_text,omitempty"`
	PlacementProofURL         *string         `json:"placement_proof_url,omitempty"`
	PlacementProofType        *string         `json:"placement_proof_type,omitempty"`
	OwnerNotes                *string         `json:"owner_notes,omitempty"`
	SellerNotes               *string         `json:"seller_notes,omitempty"`
	OwnerSubmittedAt          *time.Time      `json:"owner_submitted_at,omitempty"`
	SellerConfirmedAt         *time.Time      `json:"seller_confirmed_at,omitempty"`
	ActualCompletionDate      *time.Time      `json:"actual_completion_date,omitempty"`
	CreatedAt                 time.Time       `json:"created_at"`
	UpdatedAt                 time.Time       `json:"updated_at"`
	Version                   int             `json:"version"`
}

// ToCampaignResponse converts a domain campaign
func ToCampaignResponse(c *campaign.Campaign) CampaignResponse {
	return CampaignResponse{
		ID:                        c.ID,
		SellerID:                  c.SellerID,
		ChannelID:                 c.ChannelID,
		Status:                    c.Status,
		Budget:                    c.Budget,
		PlatformCommissionPercent: c.PlatformCommissionPercent,
		StartDate:                 c.StartDate,
		EndDate:                   c.EndDate,
		AdFormat:                  c.AdFormat,
		CreativeText:              c.CreativeText,
		PlacementProofURL:         c.PlacementProofURL,
		PlacementProofType:        c.PlacementProofType,
		OwnerNotes:                c.OwnerNotes,
		SellerNotes:               c.SellerNotes,
		OwnerSubmittedAt:          c.OwnerSubmittedAt,
		SellerConfirmedAt:         c.SellerConfirmedAt,
		ActualCompletionDate:      c.ActualCompletionDate,
		CreatedAt:                 c.CreatedAt,
		UpdatedAt:                 c.UpdatedAt,
		Version:                   c.Version,
	}
}

// ToCampaignResponses converts a page of campaigns
func ToCampaignResponses(cs []campaign.Campaign) []CampaignResponse {
	out := make([]CampaignResponse, len(cs))
	for i := range cs {
		out[i] = ToCampaignResponse(&cs[i])
	}
	return out
}

// ActivityResponse is one entry of the campaign activity log
type ActivityResponse struct {
	ID          uuid.UUID           `json:"id"`
	UserID      uuid.UUID           `json:"user_id"`
	ActionType  campaign.ActionType `json:"action_type"`
	Description string              `json:"description"`
	CreatedAt   time.Time           `json:"created_at"`
}

func toActivityResponses(as []campaign.Activity) []ActivityResponse {
	out := make([]ActivityResponse, len(as))
	for i, a := range as {
		out[i] = ActivityResponse{
			ID:          a.ID,
			UserID:      a.UserID,
			ActionType:  a.ActionType,
			Description: a.Description,
			CreatedAt:   a.CreatedAt,
		}
	}
	return out
}

// SellerStats summarises a seller's campaigns
type SellerStats struct {
	TotalCampaigns     int64           `json:"total_campaigns"`
	ActiveCampaigns    int64           `json:"active_campaigns"`
	CompletedCampaigns int64           `json:"completed_campaigns"`
	PendingCampaigns   int64           `json:"pending_campaigns"`
	TotalSpent         decimal.Decimal `json:"total_spent"`
	Balance            decimal.Decimal `json:"balance"`
}

// ChannelStats summarises a channel's campaigns and earnings
type ChannelStats struct {
	TotalCampaigns     int64           `json:"total_campaigns"`
	ActiveCampaigns    int64           `json:"active_campaigns"`
	CompletedCampaigns int64           `json:"completed_campaigns"`
	PendingCampaigns   int64           `json:"pending_campaigns"`
	TotalEarned        decimal.Decimal `json:"total_earned"`
	HeldForWithdrawal  decimal.Decimal `json:"held_for_withdrawal"`
	Available          decimal.Decimal `json:"available"`
	CompletionRate     decimal.Decimal `json:"completion_rate"`
}

func newChannelStats(counts campaign.Counts, ch *account.Channel) ChannelStats {
	return ChannelStats{
		TotalCampaigns:     counts.Total(),
		ActiveCampaigns:    counts[campaign.StatusAccepted] + counts[campaign.StatusInProgress],
		CompletedCampaigns: counts[campaign.StatusCompleted],
		PendingCampaigns:   counts[campaign.StatusPending],
		TotalEarned:        ch.TotalEarned,
		HeldForWithdrawal:  ch.HeldForWithdrawal,
		Available:          ch.Available(),
		CompletionRate:     ch.CompletionRate(),
	}
}

// ProofUpload is a presigned upload target for a placement proof
type ProofUpload struct {
	UploadURL string    `json:"upload_url"`
	ProofURL  string    `json:"proof_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
