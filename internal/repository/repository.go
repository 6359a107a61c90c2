package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/database"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/domain"
)

const meterDataTable = "MeterData"

const (
	selectMeterIDSQL = `SELECT meter_id FROM "Meters" WHERE meter_name = $1`
	insertMeterSQL   = `INSERT INTO "Meters" (meter_name) VALUES ($1) ON CONFLICT (meter_name) DO NOTHING RETURNING meter_id`
)

// StatementError carries the SQL that failed so it can be logged next to
// the row that produced it.
type StatementError struct {
	SQL string
	Err error
}

func (e *StatementError) Error() string { return fmt.Sprintf("%v (sql: %s)", e.Err, e.SQL) }
func (e *StatementError) Unwrap() error { return e.Err }

// Repos runs the registry and reading statements. Every method takes the
// session to run on so that each worker keeps to its own connection.
type Repos struct {
	dialect    goqu.DialectWrapper
	insertCols []any
}

func New() *Repos {
	cols := make([]any, 0, len(domain.Columns)+1)
	cols = append(cols, "meter_id")
	for _, name := range domain.ColumnNames() {
		cols = append(cols, name)
	}
	return &Repos{dialect: goqu.Dialect("postgres"), insertCols: cols}
}

// LookupMeterID returns domain.ErrMeterNotFound when name is not registered.
func (r *Repos) LookupMeterID(ctx context.Context, q database.Querier, name string) (int64, error) {
	var id int64
	err := q.QueryRowxContext(ctx, selectMeterIDSQL, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrMeterNotFound
	}
	if err != nil {
		return 0, &StatementError{SQL: selectMeterIDSQL, Err: err}
	}
	return id, nil
}

// CreateMeter inserts name and returns its new identifier. When another
// session already holds the name it returns domain.ErrMeterExists, whether
// the conflict was absorbed by ON CONFLICT or surfaced as a unique_violation.
func (r *Repos) CreateMeter(ctx context.Context, q database.Querier, name string) (int64, error) {
	var id int64
	err := q.QueryRowxContext(ctx, insertMeterSQL, name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows), database.IsUniqueViolation(err):
		return 0, domain.ErrMeterExists
	case err != nil:
		return 0, &StatementError{SQL: insertMeterSQL, Err: err}
	}
	return id, nil
}

// InsertReadingSQL renders the parameterised insert for rd.
func (r *Repos) InsertReadingSQL(rd domain.Reading) (string, []any, error) {
	if len(rd.Values) != len(domain.Columns) {
		return "", nil, fmt.Errorf("reading has %d values, want %d", len(rd.Values), len(domain.Columns))
	}
	vals := make(goqu.Vals, 0, len(rd.Values)+1)
	vals = append(vals, rd.MeterID)
	vals = append(vals, rd.Values...)
	return r.dialect.Insert(meterDataTable).
		Prepared(true).
		Cols(r.insertCols...).
		Vals(vals).
		ToSQL()
}

// InsertReading stores one reading.
func (r *Repos) InsertReading(ctx context.Context, q database.Querier, rd domain.Reading) error {
	query, args, err := r.InsertReadingSQL(rd)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return &StatementError{SQL: query, Err: err}
	}
	return nil
}

func (r *Repos) ListMeters(ctx context.Context, db *sqlx.DB) ([]domain.Meter, error) {
	var out []domain.Meter
	err := db.SelectContext(ctx, &out, `SELECT meter_id, meter_name, created_at FROM "Meters" ORDER BY meter_id`)
	return out, err
}

// GetMeter returns domain.ErrMeterNotFound when name is not registered.
func (r *Repos) GetMeter(ctx context.Context, db *sqlx.DB, name string) (domain.Meter, error) {
	var m domain.Meter
	err := db.GetContext(ctx, &m, `SELECT meter_id, meter_name, created_at FROM "Meters" WHERE meter_name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return m, domain.ErrMeterNotFound
	}
	return m, err
}

// CountReadings returns the number of readings stored for meterID.
func (r *Repos) CountReadings(ctx context.Context, db *sqlx.DB, meterID int64) (int64, error) {
	var n int64
	err := db.GetContext(ctx, &n, `SELECT count(*) FROM "MeterData" WHERE meter_id = $1`, meterID)
	return n, err
}
