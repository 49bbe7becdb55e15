package campaign

import (
	"time"

	"github.com/google/uuid"
)

// ActionType classifies an activity log entry
type ActionType string

const (
	ActionCreated   ActionType = "created"
	ActionUpdated   ActionType = "updated"
	ActionAccepted  ActionType = "accepted"
	ActionRejected  ActionType = "rejected"
	ActionSubmitted ActionType = "submitted"
	ActionConfirmed ActionType = "confirmed"
	ActionDisputed  ActionType = "disputed"
	ActionCancelled ActionType = "cancelled"
	ActionResolved  ActionType = "resolved"
)

// Activity is an append-only audit record of who did what to a campaign
type Activity struct {
	ID          uuid.UUID
	CampaignID  uuid.UUID
	UserID      uuid.UUID
	ActionType  ActionType
	Description string
	CreatedAt   time.Time
}

// NewActivity creates an activity log entry
func NewActivity(campaignID, userID uuid.UUID, action ActionType, description string, now time.Time) *Activity {
	return &Activity{
		ID:          uuid.New(),
		CampaignID:  campaignID,
		UserID:      userID,
		ActionType:  action,
		Description: description,
		CreatedAt:   now,
	}
}
