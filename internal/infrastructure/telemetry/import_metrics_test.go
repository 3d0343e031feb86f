package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arqcashflow/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewImportMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewImportMetrics(telemetry.ImportMetricsConfig{})

	require.Error(t, err)
	assert.Nil(t, m)
	assert.Equal(t, "NewImportMetrics: meter cannot be nil", err.Error())
}

func TestImportMetrics_NilSafe(t *testing.T) {
	var m *telemetry.ImportMetrics
	ctx := context.Background()

	// Should not panic
	m.RecordFile(ctx, "completed")
	m.RecordEntitiesCreated(ctx, "contract", 3)
	m.RecordEntityErrors(ctx, 1)
	m.RecordDuplicates(ctx, 2)
	m.ObserveCompletion(ctx, "openai", "extract", time.Second, nil)
}

func TestImportMetrics_Noop(t *testing.T) {
	m, err := telemetry.NewImportMetrics(telemetry.ImportMetricsConfig{
		Meter: noop.NewMeterProvider().Meter("test"),
	})
	require.NoError(t, err)

	m.ObserveCompletion(context.Background(), "gemini", "analyze", 2*time.Second, errors.New("boom"))
}

func TestImportMetrics_RecordsValues(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := telemetry.NewImportMetrics(telemetry.ImportMetricsConfig{Meter: provider.Meter("test")})
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordEntitiesCreated(ctx, "receivable", 4)
	m.RecordEntitiesCreated(ctx, "receivable", 3)
	m.RecordEntitiesCreated(ctx, "expense", 0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var total int64
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "arq_import_entities_created_total" {
				continue
			}
			found = true
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.True(t, found)
	assert.Equal(t, int64(7), total)
}
