// Package fakedb is an in-memory stand-in for the meter registry and the
// MeterData table. It enforces the same uniqueness rule as the real schema
// and counts the calls made against it.
package fakedb

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/database"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/domain"
)

var errRawSQL = errors.New("fakedb: raw SQL is not supported")

type DB struct {
	mu       sync.Mutex
	meters   map[string]int64
	nextID   int64
	readings []domain.Reading
	events   []string

	// OnLookupMiss runs after a lookup found nothing and before it returns.
	OnLookupMiss func(name string)
	// LookupErr, CreateErr and InsertErr inject failures when they return
	// non-nil.
	LookupErr func(name string) error
	CreateErr func(name string) error
	InsertErr func(rd domain.Reading) error
	// SessionErr makes Session fail.
	SessionErr error

	Lookups  atomic.Int64
	Creates  atomic.Int64
	Inserts  atomic.Int64
	open     atomic.Int64
	maxOpen  atomic.Int64
	sessions atomic.Int64
}

func New() *DB {
	return &DB{meters: make(map[string]int64)}
}

func (db *DB) LookupMeterID(_ context.Context, _ database.Querier, name string) (int64, error) {
	db.Lookups.Add(1)
	if db.LookupErr != nil {
		if err := db.LookupErr(name); err != nil {
			return 0, err
		}
	}
	db.mu.Lock()
	id, ok := db.meters[name]
	db.mu.Unlock()
	if ok {
		return id, nil
	}
	if db.OnLookupMiss != nil {
		db.OnLookupMiss(name)
	}
	return 0, domain.ErrMeterNotFound
}

func (db *DB) CreateMeter(_ context.Context, _ database.Querier, name string) (int64, error) {
	db.Creates.Add(1)
	if db.CreateErr != nil {
		if err := db.CreateErr(name); err != nil {
			return 0, err
		}
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.meters[name]; ok {
		return 0, domain.ErrMeterExists
	}
	db.nextID++
	db.meters[name] = db.nextID
	db.events = append(db.events, "create:"+name)
	return db.nextID, nil
}

func (db *DB) InsertReading(_ context.Context, _ database.Querier, rd domain.Reading) error {
	db.Inserts.Add(1)
	if db.InsertErr != nil {
		if err := db.InsertErr(rd); err != nil {
			return err
		}
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	found := false
	for _, id := range db.meters {
		if id == rd.MeterID {
			found = true
			break
		}
	}
	if !found {
		return errors.New("fakedb: MeterData.meter_id violates foreign key")
	}
	db.readings = append(db.readings, rd)
	db.events = append(db.events, "insert:"+db.nameLocked(rd.MeterID))
	return nil
}

func (db *DB) nameLocked(id int64) string {
	for name, mid := range db.meters {
		if mid == id {
			return name
		}
	}
	return ""
}

// Meters returns a copy of the registry.
func (db *DB) Meters() map[string]int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make(map[string]int64, len(db.meters))
	for k, v := range db.meters {
		out[k] = v
	}
	return out
}

// Readings returns the stored readings in insert order.
func (db *DB) Readings() []domain.Reading {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]domain.Reading(nil), db.readings...)
}

// Events returns "create:<name>" and "insert:<name>" entries in the order
// they were applied.
func (db *DB) Events() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]string(nil), db.events...)
}

// Session hands out a session that only tracks how many are open.
func (db *DB) Session(ctx context.Context) (database.Session, error) {
	if db.SessionErr != nil {
		return nil, db.SessionErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := db.open.Add(1)
	db.sessions.Add(1)
	for {
		m := db.maxOpen.Load()
		if n <= m || db.maxOpen.CompareAndSwap(m, n) {
			break
		}
	}
	return &session{db: db}, nil
}

// OpenSessions is the number of sessions not yet closed.
func (db *DB) OpenSessions() int64 { return db.open.Load() }

// MaxOpenSessions is the highest number of sessions open at once.
func (db *DB) MaxOpenSessions() int64 { return db.maxOpen.Load() }

// SessionsOpened counts every successful Session call.
func (db *DB) SessionsOpened() int64 { return db.sessions.Load() }

type session struct {
	db     *DB
	closed atomic.Bool
}

func (s *session) QueryRowxContext(context.Context, string, ...any) *sqlx.Row {
	panic(errRawSQL)
}

func (s *session) QueryxContext(context.Context, string, ...any) (*sqlx.Rows, error) {
	return nil, errRawSQL
}

func (s *session) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errRawSQL
}

func (s *session) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.db.open.Add(-1)
	}
	return nil
}
