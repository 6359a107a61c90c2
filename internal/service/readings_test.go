package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/config"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/domain"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/ingest"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/metrics"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/registry"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/testutil/fakedb"
)

func TestParsePayload(t *testing.T) {
	row, unknown, err := ParsePayload([]byte(`{
		"meter_name": "Meter_A",
		"values": {
			"time(UTC)": "2014-06-01 00:00:00",
			"Frequency (Hz)": 60.015,
			"error": 0,
			"lowalarm": null,
			"highalarm": "  ",
			"Firmware": "1.2"
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Meter_A", row.MeterName)
	assert.Equal(t, []string{"Firmware"}, unknown)
	require.Len(t, row.Values, len(domain.Columns))

	idx := func(h string) int {
		i, ok := domain.ColumnIndex(h)
		require.True(t, ok, h)
		return i
	}
	assert.Equal(t, "2014-06-01 00:00:00", row.Values[idx("time(UTC)")])
	assert.Equal(t, "60.015", row.Values[idx("Frequency (Hz)")])
	assert.Equal(t, "0", row.Values[idx("error")])
	assert.Nil(t, row.Values[idx("lowalarm")])
	assert.Nil(t, row.Values[idx("highalarm")])
}

func TestParsePayload_Invalid(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":       `meter`,
		"no meter":       `{"values": {}}`,
		"object value":   `{"meter_name": "m", "values": {"error": {"a": 1}}}`,
		"boolean value":  `{"meter_name": "m", "values": {"error": true}}`,
		"values not map": `{"meter_name": "m", "values": [1]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParsePayload([]byte(payload))
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestFromMQTT_StoresThroughResolver(t *testing.T) {
	db := fakedb.New()
	m := metrics.NewNop()
	resolver, err := registry.New(db, config.RegistryConfig{CacheSize: 8, LookupAttempts: 3}, zerolog.Nop(), m)
	require.NoError(t, err)
	loader, err := ingest.NewLoader(db, resolver, db, config.LoaderConfig{Delimiter: ",", OnError: config.AbortOnError}, zerolog.Nop(), m)
	require.NoError(t, err)
	svc := NewReadingService(loader, nil, zerolog.Nop())

	ctx := context.Background()
	require.NoError(t, svc.FromMQTT(ctx, "energy/readings", []byte(`{"meter_name":"Meter_A","values":{"Frequency (Hz)":60}}`)))
	require.NoError(t, svc.FromMQTT(ctx, "energy/readings", []byte(`{"meter_name":"Meter_A","values":{"Frequency (Hz)":59.9}}`)))

	assert.Len(t, db.Meters(), 1)
	assert.Len(t, db.Readings(), 2)

	err = svc.FromMQTT(ctx, "energy/readings", []byte(`{"meter_name":"   ","values":{}}`))
	var rowErr *ingest.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.ErrorIs(t, err, domain.ErrInvalidMeterName)
	assert.Equal(t, "energy/readings", rowErr.Path)
}
