package commands

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/lattice/pkg/config"
	"github.com/Sumatoshi-tech/lattice/pkg/observability"
)

func TestResolveInputFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		configured string
		path       string
		want       string
	}{
		{configured: config.InputCSV, path: "rows.csv", want: config.InputCSV},
		{configured: config.InputCSV, path: "rows.JSON", want: config.InputJSON},
		{configured: config.InputCSV, path: "-", want: config.InputCSV},
		{configured: config.InputJSON, path: "-", want: config.InputJSON},
		{configured: config.InputPostgres, path: "", want: config.InputPostgres},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveInputFormat(tt.configured, tt.path), tt.path)
	}
}

func TestObservabilityConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Output:    config.OutputConfig{NoColor: true},
		Logging:   config.LoggingConfig{Level: "warn", JSON: true, Environment: "ci"},
		Telemetry: config.TelemetryConfig{OTLPHeaders: "a=1,b=2", SampleRatio: 0.5, MetricsAddr: ":0"},
	}

	var logs bytes.Buffer

	g := &Globals{}
	obs, err := g.observabilityConfig(cfg, observability.ModeBatch, &logs)
	require.NoError(t, err)

	assert.Equal(t, observability.ModeBatch, obs.Mode)
	assert.Equal(t, "ci", obs.Environment)
	assert.Equal(t, slog.LevelWarn, obs.LogLevel)
	assert.True(t, obs.LogJSON)
	assert.True(t, obs.LogNoColor)
	assert.True(t, obs.Prometheus)
	assert.InDelta(t, 0.5, obs.SampleRatio, 1e-9)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, obs.OTLPHeaders)
	assert.Same(t, &logs, obs.LogWriter)

	g.Verbose = true
	obs, err = g.observabilityConfig(cfg, observability.ModeCLI, &logs)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, obs.LogLevel)

	g.Verbose, g.Quiet = false, true
	obs, err = g.observabilityConfig(cfg, observability.ModeCLI, &logs)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, obs.LogLevel)

	cfg.Logging.Level = "loud"
	_, err = g.observabilityConfig(cfg, observability.ModeCLI, &logs)
	require.ErrorIs(t, err, config.ErrInvalidLogLevel)
}
