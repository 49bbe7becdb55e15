package telemetry

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestEscrowMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := NewEscrowMetrics(provider.Meter("escrow"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordCampaignEvent(ctx, "CampaignCreated")
	m.RecordCampaignEvent(ctx, "CampaignCreated")
	m.RecordCampaignEvent(ctx, "CampaignCompleted")
	m.RecordAmount(ctx, LedgerEntryEscrowHold, decimal.NewFromInt(3000))
	m.RecordAmount(ctx, LedgerEntryCommission, decimal.NewFromInt(300))
	m.RecordAmount(ctx, LedgerEntryPayout, decimal.Zero) // ignored

	data := collect(t, reader)

	events, ok := data["admarket_campaign_events_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range events.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(3), total)
	assert.Len(t, events.DataPoints, 2)

	amounts, ok := data["admarket_ledger_amount"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, amounts.DataPoints, 2)
	var sum float64
	for _, dp := range amounts.DataPoints {
		sum += dp.Sum
	}
	assert.Equal(t, 3300.0, sum)
}

func TestNewEscrowMetrics_NilMeter(t *testing.T) {
	_, err := NewEscrowMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}
