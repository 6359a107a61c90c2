package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/config"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/database"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/domain"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/metrics"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/repository"
)

// MeterResolver maps a meter name to its registry identifier.
type MeterResolver interface {
	Resolve(ctx context.Context, q database.Querier, name string) (int64, error)
}

// ReadingWriter stores one reading.
type ReadingWriter interface {
	InsertReading(ctx context.Context, q database.Querier, rd domain.Reading) error
}

// RowError is a row that was not stored.
type RowError struct {
	Path  string
	Line  int
	Meter string
	SQL   string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: meter %q: %v", e.Path, e.Line, e.Meter, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Result is the outcome of loading one file.
type Result struct {
	Path     string
	Rows     int
	Inserted int
	Failed   int
	Errors   []*RowError
	// Err is set when the file was abandoned before its end.
	Err      error
	Duration time.Duration
}

// OK reports whether every row of the file was stored.
func (r Result) OK() bool { return r.Err == nil && r.Failed == 0 }

// Status is the metrics label for the result.
func (r Result) Status() string {
	switch {
	case r.Err != nil:
		return metrics.StatusFailed
	case r.Failed > 0:
		return metrics.StatusPartial
	}
	return metrics.StatusLoaded
}

type Loader struct {
	sessions database.SessionOpener
	resolver MeterResolver
	readings ReadingWriter
	cfg      config.LoaderConfig
	comma    rune
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

func NewLoader(
	sessions database.SessionOpener,
	resolver MeterResolver,
	readings ReadingWriter,
	cfg config.LoaderConfig,
	log zerolog.Logger,
	m *metrics.Metrics,
) (*Loader, error) {
	comma, err := cfg.Comma()
	if err != nil {
		return nil, fmt.Errorf("loader delimiter: %w", err)
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Loader{
		sessions: sessions,
		resolver: resolver,
		readings: readings,
		cfg:      cfg,
		comma:    comma,
		log:      log.With().Str("component", "loader").Logger(),
		metrics:  m,
	}, nil
}

// LoadFile ingests one file on a session of its own. Rows are stored in file
// order, one statement each, so rows before a failure stay stored.
func (l *Loader) LoadFile(ctx context.Context, path string) Result {
	start := time.Now()
	res := l.loadFile(ctx, path)
	res.Duration = time.Since(start)
	l.metrics.FilesProcessed.WithLabelValues(res.Status()).Inc()

	ev := l.log.Info()
	if res.Err != nil {
		ev = l.log.Error().Err(res.Err)
	} else if res.Failed > 0 {
		ev = l.log.Warn()
	}
	ev.Str("path", path).
		Int("rows", res.Rows).
		Int("inserted", res.Inserted).
		Int("failed", res.Failed).
		Dur("took", res.Duration).
		Msg("file processed")
	return res
}

func (l *Loader) loadFile(ctx context.Context, path string) Result {
	res := Result{Path: path}

	f, err := os.Open(path)
	if err != nil {
		res.Err = fmt.Errorf("open %s: %w", path, err)
		return res
	}
	defer f.Close()

	reader, err := NewReader(f, l.comma, l.cfg.MeterColumn, meterNameFromPath(path))
	if errors.Is(err, ErrNoHeader) {
		l.log.Warn().Str("path", path).Msg("empty file")
		return res
	}
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", path, err)
		return res
	}
	if unknown := reader.Unknown(); len(unknown) > 0 {
		l.log.Warn().Str("path", path).Strs("headers", unknown).Msg("ignoring unknown columns")
	}
	if !reader.HasMeterColumn() {
		l.log.Debug().Str("path", path).Str("meter", meterNameFromPath(path)).Msg("no meter column, using file name")
	}

	session, err := l.sessions.Session(ctx)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", path, err)
		return res
	}
	defer session.Close()

	for {
		if err := ctx.Err(); err != nil {
			res.Err = fmt.Errorf("%s: stopped at row %d: %w", path, res.Rows, err)
			return res
		}

		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return res
		}
		var parseErr *ParseError
		switch {
		case errors.As(err, &parseErr):
			res.Rows++
			err = &RowError{Path: path, Line: parseErr.Line, Err: parseErr}
		case err != nil:
			res.Err = fmt.Errorf("read %s: %w", path, err)
			return res
		default:
			res.Rows++
			err = l.IngestRow(ctx, session, path, row)
		}
		if err == nil {
			res.Inserted++
			l.metrics.RowsInserted.Inc()
			continue
		}

		rowErr := err.(*RowError)
		res.Failed++
		res.Errors = append(res.Errors, rowErr)
		l.metrics.RowsFailed.Inc()
		l.logRowError(rowErr)

		if database.IsConnectionError(rowErr) {
			res.Err = rowErr
			return res
		}
		if l.cfg.OnError != config.SkipOnError {
			res.Err = fmt.Errorf("aborting %s: %w", path, rowErr)
			return res
		}
	}
}

// IngestRow resolves the row's meter and stores the reading. Any failure is
// returned as a *RowError.
func (l *Loader) IngestRow(ctx context.Context, q database.Querier, path string, row Row) error {
	id, err := l.resolver.Resolve(ctx, q, row.MeterName)
	if err != nil {
		return newRowError(path, row, err)
	}
	if err := l.readings.InsertReading(ctx, q, domain.Reading{MeterID: id, Values: row.Values}); err != nil {
		return newRowError(path, row, err)
	}
	return nil
}

func newRowError(path string, row Row, err error) *RowError {
	re := &RowError{Path: path, Line: row.Line, Meter: row.MeterName, Err: err}
	var stmtErr *repository.StatementError
	if errors.As(err, &stmtErr) {
		re.SQL = stmtErr.SQL
	}
	return re
}

func (l *Loader) logRowError(e *RowError) {
	ev := l.log.Error().Err(e.Err).Str("path", e.Path).Int("line", e.Line).Str("meter", e.Meter)
	if e.SQL != "" {
		ev = ev.Str("sql", e.SQL)
	}
	if l.cfg.OnError == config.SkipOnError {
		ev.Msg("row skipped")
		return
	}
	ev.Msg("row failed")
}

func meterNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
