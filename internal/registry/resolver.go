// Package registry resolves meter names to registry identifiers.
//
// Resolution is get-or-create and is safe for any number of concurrent
// callers across goroutines, sessions and processes. Correctness rests on the
// UNIQUE constraint on "Meters".meter_name: the insert is a conditional
// upsert, and a caller whose insert loses to a concurrent one reads back the
// winner's row instead. The in-process cache and request collapsing only
// save round trips; they are not needed for correctness.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/config"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/database"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/domain"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/metrics"
)

// Store is the durable registry.
type Store interface {
	// LookupMeterID returns domain.ErrMeterNotFound for unknown names.
	LookupMeterID(ctx context.Context, q database.Querier, name string) (int64, error)
	// CreateMeter returns domain.ErrMeterExists when name is already taken.
	CreateMeter(ctx context.Context, q database.Querier, name string) (int64, error)
}

const readBackDelay = 10 * time.Millisecond

type Resolver struct {
	store    Store
	cache    *lru.Cache
	group    singleflight.Group
	attempts uint
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// New returns a resolver over store. A cfg.CacheSize of zero disables the
// cache.
func New(store Store, cfg config.RegistryConfig, log zerolog.Logger, m *metrics.Metrics) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("registry store is required")
	}
	if m == nil {
		m = metrics.NewNop()
	}
	r := &Resolver{
		store:    store,
		attempts: 1,
		log:      log.With().Str("component", "registry").Logger(),
		metrics:  m,
	}
	if cfg.LookupAttempts > 1 {
		r.attempts = uint(cfg.LookupAttempts)
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New(cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create meter cache: %w", err)
		}
		r.cache = cache
	}
	return r, nil
}

// Resolve returns the identifier registered for name, registering it first
// if needed. q is the caller's session. Concurrent calls for one name within
// this process share a single round trip on the first caller's session.
func (r *Resolver) Resolve(ctx context.Context, q database.Querier, name string) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	if r.cache != nil {
		if v, ok := r.cache.Get(name); ok {
			r.metrics.ResolveCacheHits.Inc()
			return v.(int64), nil
		}
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		id, err := r.getOrCreate(ctx, q, name)
		if err != nil {
			return int64(0), err
		}
		if r.cache != nil {
			r.cache.Add(name, id)
		}
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (r *Resolver) getOrCreate(ctx context.Context, q database.Querier, name string) (int64, error) {
	id, err := r.store.LookupMeterID(ctx, q, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, domain.ErrMeterNotFound) {
		return 0, fmt.Errorf("look up meter %q: %w", name, err)
	}

	id, err = r.store.CreateMeter(ctx, q, name)
	if err == nil {
		r.metrics.MetersCreated.Inc()
		r.log.Debug().Str("meter", name).Int64("meter_id", id).Msg("registered meter")
		return id, nil
	}
	if !errors.Is(err, domain.ErrMeterExists) {
		return 0, fmt.Errorf("create meter %q: %w", name, err)
	}

	// Lost the insert race; the winner's row is committed by now.
	r.metrics.ResolveRetries.Inc()
	r.log.Debug().Str("meter", name).Msg("meter registered concurrently, reading it back")
	err = retry.Do(
		func() error {
			var lookupErr error
			id, lookupErr = r.store.LookupMeterID(ctx, q, name)
			return lookupErr
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(readBackDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, domain.ErrMeterNotFound) }),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return 0, fmt.Errorf("read back meter %q: %w", name, err)
	}
	return id, nil
}

// ValidateName rejects names PostgreSQL cannot store as text or that would
// make a meaningless registry key.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty name", domain.ErrInvalidMeterName)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a NUL byte", domain.ErrInvalidMeterName, name)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: %q is not valid UTF-8", domain.ErrInvalidMeterName, name)
	}
	return nil
}
