package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/config"
)

// Querier is satisfied by *sqlx.DB, *sqlx.Conn and *sqlx.Tx.
type Querier interface {
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Session is one dedicated connection. A session belongs to a single
// goroutine and must be closed when the caller is done with it.
type Session interface {
	Querier
	Close() error
}

// SessionOpener hands out sessions.
type SessionOpener interface {
	Session(ctx context.Context) (Session, error)
}

// Pool is the process-wide connection pool.
type Pool struct {
	*sqlx.DB
}

// Connect opens the pool and checks the database is reachable.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connect %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	return &Pool{DB: db}, nil
}

// Session takes a dedicated connection out of the pool.
func (p *Pool) Session(ctx context.Context) (Session, error) {
	conn, err := p.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return conn, nil
}
