package telemetry_test

import (
	"testing"

	"github.com/admarket/backend/internal/infrastructure/telemetry"
	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_Validation(t *testing.T) {
	tests := map[string]telemetry.ProfilerConfig{
		"missing server address":   {Enabled: true, ApplicationName: "admarket"},
		"missing application name": {Enabled: true, ServerAddress: "http://localhost:4040"},
		"unknown profile type": {
			Enabled: true, ServerAddress: "http://localhost:4040", ApplicationName: "admarket",
			ProfileTypes: []string{"cpu", "wallclock"},
		},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
			assert.Error(t, err)
			assert.Nil(t, p)
		})
	}
}

func TestParseProfileTypes(t *testing.T) {
	types, err := telemetry.ParseProfileTypes(nil)
	require.NoError(t, err)
	assert.Len(t, types, len(telemetry.DefaultProfileTypes))
	assert.Contains(t, types, pyroscope.ProfileCPU)
	assert.NotContains(t, types, pyroscope.ProfileMutexDuration)

	types, err = telemetry.ParseProfileTypes([]string{" CPU ", "mutex_duration", "block_count"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU, pyroscope.ProfileMutexDuration, pyroscope.ProfileBlockCount,
	}, types)
}
