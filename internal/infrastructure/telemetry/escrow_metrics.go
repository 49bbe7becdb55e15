package telemetry

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics constructor gets no meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// Ledger entry labels recorded by EscrowMetrics.RecordAmount
const (
	LedgerEntryEscrowHold = "escrow_hold"
	LedgerEntryCommission = "commission"
	LedgerEntryPayout     = "payout"
)

// EscrowMetrics counts campaign lifecycle events and the money they move.
// Amounts are recorded in currency units; float precision is acceptable for
// dashboards since the ledger itself never reads these values back.
type EscrowMetrics struct {
	campaignEvents *Counter
	amounts        *Histogram
}

// NewEscrowMetrics registers the escrow instruments on the given meter
func NewEscrowMetrics(meter metric.Meter) (*EscrowMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	events, err := NewCounter(meter,
		"admarket_campaign_events_total",
		"Campaign lifecycle events by type",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	amounts, err := NewHistogram(meter, HistogramOpts{
		Name:        "admarket_ledger_amount",
		Description: "Money moved per ledger entry kind",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &EscrowMetrics{campaignEvents: events, amounts: amounts}, nil
}

// RecordCampaignEvent counts one lifecycle event
func (m *EscrowMetrics) RecordCampaignEvent(ctx context.Context, eventType string) {
	m.campaignEvents.Inc(ctx, AttrCampaignEvent.String(eventType))
}

// RecordAmount records a money movement of the given ledger entry kind
func (m *EscrowMetrics) RecordAmount(ctx context.Context, entry string, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	m.amounts.Record(ctx, amount.InexactFloat64(), AttrLedgerEntry.String(entry))
}
