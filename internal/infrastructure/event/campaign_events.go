package event

import (
	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/shared"
)

// RegisterCampaignEvents registers every campaign event with the serializer
// so the outbox processor can decode stored payloads.
func RegisterCampaignEvents(serializer *EventSerializer) {
	serializer.Register(campaign.EventTypeCampaignCreated, func() shared.DomainEvent {
		return &campaign.CampaignCreatedEvent{}
	})
	serializer.Register(campaign.EventTypeCampaignCompleted, func() shared.DomainEvent {
		return &campaign.CampaignCompletedEvent{}
	})
	for _, eventType := range campaign.StatusChangeEventTypes {
		serializer.Register(eventType, func() shared.DomainEvent {
			return &campaign.CampaignStatusChangedEvent{}
		})
	}
}

// NewCampaignSerializer returns a serializer with the campaign events registered
func NewCampaignSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterCampaignEvents(s)
	return s
}
