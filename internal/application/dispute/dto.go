package dispute

import (
	"time"

	"github.com/admarket/backend/internal/application/escrow"
	"github.com/admarket/backend/internal/domain/dispute"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResolveDisputeRequest is an administrator's ruling
type ResolveDisputeRequest struct {
	Decision     string           `json:"decision" binding:"required"`
	Notes        string           `json:"notes" binding:"max=2000"`
	RefundAmount *decimal.Decimal `json:"refund_amount"`
}

// DisputeResponse is the API view of a dispute
type DisputeResponse struct {
	ID                uuid.UUID         `json:"id"`
	CampaignID        uuid.UUID         `json:"campaign_id"`
	InitiatedByUserID uuid.UUID         `json:"initiated_by_user_id"`
	Reason            string            `json:"reason"`
	Status            dispute.Status    `json:"status"`
	AdminDecision     *dispute.Decision `json:"admin_decision,omitempty"`
	AdminNotes        *string           `json:"admin_notes,omitempty"`
	RefundAmount      *decimal.Decimal  `json:"refund_amount,omitempty"`
	DecidedByAdminID  *uuid.UUID        `json:"decided_by_admin_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	ResolvedAt        *time.Time        `json:"resolved_at,omitempty"`
}

// ToDisputeResponse converts a domain dispute
func ToDisputeResponse(d *dispute.Dispute) DisputeResponse {
	return DisputeResponse{
		ID:                d.ID,
		CampaignID:        d.CampaignID,
		InitiatedByUserID: d.InitiatedByUserID,
		Reason:            d.Reason,
		Status:            d.Status,
		AdminDecision:     d.AdminDecision,
		AdminNotes:        d.AdminNotes,
		RefundAmount:      d.RefundAmount,
		DecidedByAdminID:  d.DecidedByAdminID,
		CreatedAt:         d.CreatedAt,
		ResolvedAt:        d.ResolvedAt,
	}
}

// DisputeDetailResponse is a dispute together with its campaign
type DisputeDetailResponse struct {
	DisputeResponse
	Campaign escrow.CampaignResponse `json:"campaign"`
}

// ResolutionResponse reports a settled dispute and where the money went
type ResolutionResponse struct {
	Dispute            DisputeResponse         `json:"dispute"`
	Campaign           escrow.CampaignResponse `json:"campaign"`
	SellerRefund       decimal.Decimal         `json:"seller_refund"`
	ChannelPayout      decimal.Decimal         `json:"channel_payout"`
	PlatformCommission decimal.Decimal         `json:"platform_commission"`
}
