package campaign

import (
	"time"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeCampaign names the campaign aggregate in events
const AggregateTypeCampaign = "Campaign"

// Event type constants
const (
	EventTypeCampaignCreated   = "CampaignCreated"
	EventTypeCampaignAccepted  = "CampaignAccepted"
	EventTypeCampaignRejected  = "CampaignRejected"
	EventTypeCampaignSubmitted = "CampaignSubmitted"
	EventTypeCampaignCompleted = "CampaignCompleted"
	EventTypeCampaignDisputed  = "CampaignDisputed"
	EventTypeCampaignCancelled = "CampaignCancelled"
	EventTypeCampaignResolved  = "CampaignResolved"
)

// StatusChangeEventTypes are the event types carried by CampaignStatusChangedEvent
var StatusChangeEventTypes = []string{
	EventTypeCampaignAccepted,
	EventTypeCampaignRejected,
	EventTypeCampaignSubmitted,
	EventTypeCampaignDisputed,
	EventTypeCampaignCancelled,
	EventTypeCampaignResolved,
}

// CampaignCreatedEvent is raised when a seller places a new campaign
type CampaignCreatedEvent struct {
	shared.BaseDomainEvent
	CampaignID uuid.UUID       `json:"campaign_id"`
	SellerID   uuid.UUID       `json:"seller_id"`
	ChannelID  uuid.UUID       `json:"channel_id"`
	Budget     decimal.Decimal `json:"budget"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
}

// NewCampaignCreatedEvent creates a new CampaignCreatedEvent
func NewCampaignCreatedEvent(c *Campaign, now time.Time) *CampaignCreatedEvent {
	return &CampaignCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignCreated, AggregateTypeCampaign, c.ID, now),
		CampaignID:      c.ID,
		SellerID:        c.SellerID,
		ChannelID:       c.ChannelID,
		Budget:          c.Budget,
		StartDate:       c.StartDate,
		EndDate:         c.EndDate,
	}
}

// CampaignStatusChangedEvent is raised on accept, reject, submit, dispute,
// cancel and resolve. Detail carries the reason, proof URL or decision.
type CampaignStatusChangedEvent struct {
	shared.BaseDomainEvent
	CampaignID uuid.UUID `json:"campaign_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	ChannelID  uuid.UUID `json:"channel_id"`
	Status     Status    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
}

// NewCampaignStatusChangedEvent creates a status change event of the given type
func NewCampaignStatusChangedEvent(eventType string, c *Campaign, detail string, now time.Time) *CampaignStatusChangedEvent {
	return &CampaignStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeCampaign, c.ID, now),
		CampaignID:      c.ID,
		SellerID:        c.SellerID,
		ChannelID:       c.ChannelID,
		Status:          c.Status,
		Detail:          detail,
	}
}

// CampaignCompletedEvent is raised when the seller confirms a placement and the payout is released
type CampaignCompletedEvent struct {
	shared.BaseDomainEvent
	CampaignID uuid.UUID       `json:"campaign_id"`
	SellerID   uuid.UUID       `json:"seller_id"`
	ChannelID  uuid.UUID       `json:"channel_id"`
	Budget     decimal.Decimal `json:"budget"`
	Commission decimal.Decimal `json:"commission"`
	Payout     decimal.Decimal `json:"payout"`
}

// NewCampaignCompletedEvent creates a new CampaignCompletedEvent
func NewCampaignCompletedEvent(c *Campaign, split Split, now time.Time) *CampaignCompletedEvent {
	return &CampaignCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignCompleted, AggregateTypeCampaign, c.ID, now),
		CampaignID:      c.ID,
		SellerID:        c.SellerID,
		ChannelID:       c.ChannelID,
		Budget:          c.Budget,
		Commission:      split.Commission,
		Payout:          split.Payout,
	}
}
