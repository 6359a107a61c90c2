package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/database"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/domain"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/testutil/pgtest"
)

func TestMigrate_SchemaMatchesReadingColumns(t *testing.T) {
	pool := pgtest.NewPool(t)
	ctx := context.Background()

	// Already applied by pgtest; a second run is a no-op.
	require.NoError(t, database.Migrate(ctx, pool))

	var cols []struct {
		Name string `db:"column_name"`
		Type string `db:"data_type"`
	}
	require.NoError(t, pool.SelectContext(ctx, &cols, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = 'MeterData'`))

	types := make(map[string]string, len(cols))
	for _, c := range cols {
		types[c.Name] = c.Type
	}
	want := map[domain.Kind]string{
		domain.KindFloat:     "double precision",
		domain.KindInteger:   "integer",
		domain.KindTimestamp: "timestamp with time zone",
	}
	for _, c := range domain.Columns {
		assert.Equal(t, want[c.Kind], types[c.Name], c.Name)
	}
	assert.Equal(t, "bigint", types["meter_id"])
}

func TestMigrate_RequiresPool(t *testing.T) {
	assert.Error(t, database.Migrate(context.Background(), nil))
	assert.Error(t, database.Migrate(context.Background(), &database.Pool{}))
}
