package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/config"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/domain"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/service"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/testutil/pgtest"
)

func testConfig() *config.Config {
	return &config.Config{
		Loader: config.LoaderConfig{
			Workers:     4,
			Pattern:     "*.csv",
			Delimiter:   ",",
			OnError:     config.SkipOnError,
			MeterColumn: "Meter Name",
		},
		Registry: config.RegistryConfig{CacheSize: 128, LookupAttempts: 3},
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestMultiFileLoad_EndToEnd(t *testing.T) {
	pool := pgtest.NewPool(t)
	ctx := context.Background()

	root := t.TempDir()
	header := "Meter Name,time(UTC),error,Frequency (Hz),\"Current, Phase C (Amps)\"\n"
	writeFile(t, filepath.Join(root, "site1", "a.csv"), header+
		"Meter_A,2014-06-01 00:00:00,0,60.01,1.5\n"+
		"Meter_B,2014-06-01 00:00:00,0,59.99,\n")
	writeFile(t, filepath.Join(root, "site2", "b.csv"), header+
		"Meter_A,2014-06-01 00:15:00,0,60.02,1.6\n"+
		"Meter_A,2014-06-01 00:30:00,0,not-a-number,1.7\n"+
		"Meter_C,2014-06-01 00:30:00,0,60.00,1.7\n")
	// Files without a meter column are attributed to their base name.
	writeFile(t, filepath.Join(root, "site2", "Meter_D.csv"), "time(UTC),Frequency (Hz)\n2014-06-01 00:00:00,60\n")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")

	svcs, err := service.New(pool, testConfig(), zerolog.Nop(), nil, nil)
	require.NoError(t, err)

	summary, err := svcs.Dispatcher.Run(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Files)
	assert.Equal(t, 2, summary.Loaded)
	assert.Equal(t, 1, summary.Partial)
	assert.Equal(t, 5, summary.RowsInserted)
	assert.Equal(t, 1, summary.RowsFailed)

	meters, err := svcs.Meters.List(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(meters))
	for _, m := range meters {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{"Meter_A", "Meter_B", "Meter_C", "Meter_D"}, names)

	a, err := svcs.Meters.Get(ctx, "Meter_A")
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.Readings)

	_, err = svcs.Meters.Get(ctx, "Meter_Z")
	assert.ErrorIs(t, err, domain.ErrMeterNotFound)

	var nullAmps int
	require.NoError(t, pool.GetContext(ctx, &nullAmps, `SELECT count(*) FROM "MeterData" WHERE current_phase_c_amps IS NULL`))
	assert.Equal(t, 2, nullAmps)

	// Loading the same tree again reuses every registered meter.
	_, err = svcs.Dispatcher.Run(ctx, root)
	require.NoError(t, err)
	var meterRows int
	require.NoError(t, pool.GetContext(ctx, &meterRows, `SELECT count(*) FROM "Meters"`))
	assert.Equal(t, 4, meterRows)
}

func TestFromMQTT_EndToEnd(t *testing.T) {
	pool := pgtest.NewPool(t)
	ctx := context.Background()

	svcs, err := service.New(pool, testConfig(), zerolog.Nop(), nil, nil)
	require.NoError(t, err)

	payload := []byte(`{"meter_name":"Meter_MQ","values":{"time(UTC)":"2014-06-01 00:00:00","Frequency (Hz)":60.0,"error":0}}`)
	require.NoError(t, svcs.Readings.FromMQTT(ctx, "energy/readings", payload))

	m, err := svcs.Meters.Get(ctx, "Meter_MQ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Readings)
}
