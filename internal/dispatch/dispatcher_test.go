package dispatch

import (
	"context"
	"database/sql/driver"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
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

const header = "Meter Name,time(UTC),Frequency (Hz)\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newLoader(t *testing.T, db *fakedb.DB) *ingest.Loader {
	t.Helper()
	m := metrics.NewNop()
	resolver, err := registry.New(db, config.RegistryConfig{CacheSize: 64, LookupAttempts: 3}, zerolog.Nop(), m)
	require.NoError(t, err)
	l, err := ingest.NewLoader(db, resolver, db, config.LoaderConfig{
		Delimiter:   ",",
		OnError:     config.AbortOnError,
		MeterColumn: "Meter Name",
	}, zerolog.Nop(), m)
	require.NoError(t, err)
	return l
}

type recordingArchiver struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (a *recordingArchiver) Archive(_ context.Context, _, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paths = append(a.paths, path)
	return a.err
}

func TestDiscover_WalksNestedDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.csv"), header)
	writeFile(t, filepath.Join(root, "site1", "a.csv"), header)
	writeFile(t, filepath.Join(root, "site1", "2014", "06", "c.csv"), header)
	writeFile(t, filepath.Join(root, "site1", "notes.txt"), "x")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir.csv"), 0o755))

	paths, err := Discover(root, "*.csv")
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, "b.csv"),
		filepath.Join(root, "site1", "2014", "06", "c.csv"),
		filepath.Join(root, "site1", "a.csv"),
	}
	sort.Strings(want)
	assert.Equal(t, want, paths)
}

func TestDiscover_Errors(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "x.csv")
	writeFile(t, file, header)

	_, err := Discover(filepath.Join(root, "missing"), "*.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Discover(file, "*.csv")
	assert.Error(t, err)

	_, err = Discover(root, "sub/*.csv")
	assert.Error(t, err)

	_, err = Discover(root, "[")
	assert.Error(t, err)
}

func TestRun_SameMeterAcrossFilesRegistersOnce(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"one.csv", "two.csv", "three.csv", "four.csv"} {
		writeFile(t, filepath.Join(root, name), header+
			"Meter_A,2014-06-01 00:00:00,60.00\n"+
			"Meter_B,2014-06-01 00:00:00,59.90\n")
	}

	db := fakedb.New()
	archiver := &recordingArchiver{}
	d := New(newLoader(t, db), 4, "*.csv", archiver, zerolog.Nop())

	s, err := d.Run(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, s.OK())
	assert.NoError(t, s.Err())
	assert.Equal(t, 4, s.Files)
	assert.Equal(t, 4, s.Loaded)
	assert.Equal(t, 8, s.RowsInserted)

	assert.Len(t, db.Meters(), 2)
	assert.Len(t, db.Readings(), 8)
	assert.Len(t, archiver.paths, 4)
	assert.Zero(t, db.OpenSessions())
}

func TestProcess_BoundsConcurrentSessions(t *testing.T) {
	root := t.TempDir()
	var paths []string
	for i := 0; i < 12; i++ {
		p := filepath.Join(root, string(rune('a'+i))+".csv")
		writeFile(t, p, header+"Meter_A,2014-06-01 00:00:00,60.00\n")
		paths = append(paths, p)
	}

	db := fakedb.New()
	d := New(newLoader(t, db), 3, "*.csv", nil, zerolog.Nop())

	s, err := d.Process(context.Background(), root, paths)
	require.NoError(t, err)
	assert.Equal(t, 12, s.Loaded)
	assert.LessOrEqual(t, db.MaxOpenSessions(), int64(3))
	assert.EqualValues(t, 12, db.SessionsOpened())
	assert.Zero(t, db.OpenSessions())
}

func TestRun_FailedFileDoesNotStopOthers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bad.csv"), header+
		"Meter_A,2014-06-01 00:00:00,60.00\n"+
		"Meter_A,2014-06-01 00:01:00,oops\n")
	writeFile(t, filepath.Join(root, "good.csv"), header+
		"Meter_B,2014-06-01 00:00:00,60.00\n")

	db := fakedb.New()
	freq, _ := domain.ColumnIndex("Frequency (Hz)")
	db.InsertErr = func(rd domain.Reading) error {
		if rd.Values[freq] == "oops" {
			return errors.New(`invalid input syntax for type double precision: "oops"`)
		}
		return nil
	}
	archiver := &recordingArchiver{}
	d := New(newLoader(t, db), 2, "*.csv", archiver, zerolog.Nop())

	s, err := d.Run(context.Background(), root)
	require.NoError(t, err)
	assert.False(t, s.OK())
	assert.False(t, s.Aborted)
	assert.Equal(t, 1, s.Loaded)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 2, s.RowsInserted)
	assert.Equal(t, 1, s.RowsFailed)
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "bad.csv")
	assert.Equal(t, []string{filepath.Join(root, "good.csv")}, archiver.paths)
	assert.Contains(t, s.Subject(), "completed with failures")
}

func TestRun_ConnectionLossAbortsRun(t *testing.T) {
	root := t.TempDir()
	var paths []string
	for i := 0; i < 6; i++ {
		p := filepath.Join(root, string(rune('a'+i))+".csv")
		writeFile(t, p, header+"Meter_A,2014-06-01 00:00:00,60.00\n")
		paths = append(paths, p)
	}

	db := fakedb.New()
	db.InsertErr = func(domain.Reading) error { return driver.ErrBadConn }
	d := New(newLoader(t, db), 1, "*.csv", nil, zerolog.Nop())

	s, err := d.Process(context.Background(), root, paths)
	require.ErrorIs(t, err, driver.ErrBadConn)
	assert.True(t, s.Aborted)
	assert.False(t, s.OK())
	assert.Equal(t, 6, s.Files)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 5, s.Skipped)
	for _, r := range s.Results[1:] {
		assert.ErrorIs(t, r.Err, ErrRunAborted, r.Path)
	}
	assert.Contains(t, s.Subject(), "aborted")
	assert.Contains(t, s.Report(), "not processed")
}

func TestRun_EmptyTree(t *testing.T) {
	db := fakedb.New()
	d := New(newLoader(t, db), 4, "*.csv", nil, zerolog.Nop())

	s, err := d.Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.True(t, s.OK())
	assert.Zero(t, s.Files)
	assert.Contains(t, s.Subject(), "succeeded")
}

func TestProcess_CancelledBeforeStart(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "a.csv")
	writeFile(t, p, header+"Meter_A,2014-06-01 00:00:00,60.00\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	db := fakedb.New()
	d := New(newLoader(t, db), 1, "*.csv", nil, zerolog.Nop())
	s, err := d.Process(ctx, root, []string{p})
	require.Error(t, err)
	assert.False(t, s.OK())
	assert.Empty(t, db.Readings())
}
