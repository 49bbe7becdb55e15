package admin

import (
	"time"

	"github.com/admarket/backend/internal/domain/admin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlatformStatsResponse summarises marketplace activity. Campaign and
// money figures cover Date when it is set and all time otherwise; account
// figures are always current.
type PlatformStatsResponse struct {
	Date               *string          `json:"date,omitempty"`
	TotalAccounts      int64            `json:"total_accounts"`
	ActiveSellers      int64            `json:"active_sellers"`
	ActiveChannels     int64            `json:"active_channels"`
	TotalCampaigns     int64            `json:"total_campaigns"`
	CompletedCampaigns int64            `json:"completed_campaigns"`
	CompletionRate     decimal.Decimal  `json:"completion_rate"`
	GMV                decimal.Decimal  `json:"gmv"`
	PlatformRevenue    decimal.Decimal  `json:"platform_revenue"`
	AverageTransaction *decimal.Decimal `json:"average_transaction,omitempty"`
}

// BlockUserRequest carries the reason recorded in the audit log
type BlockUserRequest struct {
	Reason string `json:"reason" binding:"required,min=10,max=500"`
}

// BlockUserResponse lists the accounts a block deactivated
type BlockUserResponse struct {
	UserID    uuid.UUID  `json:"user_id"`
	SellerID  *uuid.UUID `json:"seller_id,omitempty"`
	ChannelID *uuid.UUID `json:"channel_id,omitempty"`
	ActionID  uuid.UUID  `json:"action_id"`
	BlockedAt time.Time  `json:"blocked_at"`
}

// ActionResponse is the API view of an audit entry
type ActionResponse struct {
	ID          uuid.UUID        `json:"id"`
	AdminID     uuid.UUID        `json:"admin_id"`
	ActionType  admin.ActionType `json:"action_type"`
	TargetType  admin.TargetType `json:"target_type"`
	TargetID    uuid.UUID        `json:"target_id"`
	Description string           `json:"description"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ToActionResponse converts a domain audit entry
func ToActionResponse(a *admin.Action) ActionResponse {
	return ActionResponse{
		ID:          a.ID,
		AdminID:     a.AdminID,
		ActionType:  a.ActionType,
		TargetType:  a.TargetType,
		TargetID:    a.TargetID,
		Description: a.Description,
		CreatedAt:   a.CreatedAt,
	}
}
