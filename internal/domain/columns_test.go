package domain

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumns(t *testing.T) {
	require.Len(t, Columns, 76)
	assert.Equal(t, "time(UTC)", Columns[0].Header)
	assert.Equal(t, KindTimestamp, Columns[0].Kind)

	ident := regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	headers := map[string]bool{}
	names := map[string]bool{}
	for _, c := range Columns {
		assert.False(t, headers[c.Header], "duplicate header %q", c.Header)
		assert.False(t, names[c.Name], "duplicate column %q", c.Name)
		assert.Regexp(t, ident, c.Name)
		headers[c.Header] = true
		names[c.Name] = true
	}

	for _, h := range []string{"error", "lowalarm", "highalarm"} {
		i, ok := ColumnIndex(h)
		require.True(t, ok)
		assert.Equal(t, KindInteger, Columns[i].Kind)
	}
}

func TestColumnIndex(t *testing.T) {
	i, ok := ColumnIndex("  Current, Phase C (Amps) ")
	require.True(t, ok)
	assert.Equal(t, "current_phase_c_amps", Columns[i].Name)
	assert.Equal(t, len(Columns)-1, i)

	_, ok = ColumnIndex("current, phase c (amps)")
	assert.False(t, ok)

	assert.Equal(t, "time_utc", ColumnNames()[0])
}

func TestNewReading(t *testing.T) {
	rd := NewReading(7)
	assert.Equal(t, int64(7), rd.MeterID)
	require.Len(t, rd.Values, len(Columns))
	for _, v := range rd.Values {
		assert.Nil(t, v)
	}
}
