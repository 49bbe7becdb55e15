package event

import (
	"context"

	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/telemetry"
)

// MetricsHandler feeds campaign events into the escrow metrics
type MetricsHandler struct {
	metrics *telemetry.EscrowMetrics
}

// NewMetricsHandler creates a handler recording into metrics
func NewMetricsHandler(metrics *telemetry.EscrowMetrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// EventTypes subscribes to every event
func (h *MetricsHandler) EventTypes() []string {
	return nil
}

// Handle counts the event and records the money it moved
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.metrics.RecordCampaignEvent(ctx, event.EventType())

	switch e := event.(type) {
	case *campaign.CampaignCreatedEvent:
		h.metrics.RecordAmount(ctx, telemetry.LedgerEntryEscrowHold, e.Budget)
	case *campaign.CampaignCompletedEvent:
		h.metrics.RecordAmount(ctx, telemetry.LedgerEntryCommission, e.Commission)
		h.metrics.RecordAmount(ctx, telemetry.LedgerEntryPayout, e.Payout)
	}
	return nil
}

var _ shared.EventHandler = (*MetricsHandler)(nil)
