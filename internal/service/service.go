package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/config"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/database"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/dispatch"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/domain"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/ingest"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/metrics"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/registry"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/repository"
)

type Services struct {
	Pool       *database.Pool
	Repos      *repository.Repos
	Resolver   *registry.Resolver
	Loader     *ingest.Loader
	Dispatcher *dispatch.Dispatcher
	Readings   *ReadingService
	Meters     *MeterService
	Metrics    *metrics.Metrics
}

// New wires the loading pipeline on top of pool. archiver may be nil.
func New(pool *database.Pool, cfg *config.Config, log zerolog.Logger, m *metrics.Metrics, archiver dispatch.Archiver) (*Services, error) {
	if m == nil {
		m = metrics.NewNop()
	}
	repos := repository.New()

	resolver, err := registry.New(repos, cfg.Registry, log, m)
	if err != nil {
		return nil, fmt.Errorf("meter resolver: %w", err)
	}
	loader, err := ingest.NewLoader(pool, resolver, repos, cfg.Loader, log, m)
	if err != nil {
		return nil, err
	}

	return &Services{
		Pool:       pool,
		Repos:      repos,
		Resolver:   resolver,
		Loader:     loader,
		Dispatcher: dispatch.New(loader, cfg.Loader.Workers, cfg.Loader.Pattern, archiver, log),
		Readings:   NewReadingService(loader, pool, log),
		Meters:     &MeterService{repos: repos, pool: pool},
		Metrics:    m,
	}, nil
}

// MeterSummary is a registered meter and how many readings it has.
type MeterSummary struct {
	domain.Meter
	Readings int64 `json:"readings"`
}

type MeterService struct {
	repos *repository.Repos
	pool  *database.Pool
}

func (s *MeterService) List(ctx context.Context) ([]domain.Meter, error) {
	return s.repos.ListMeters(ctx, s.pool.DB)
}

// Get returns domain.ErrMeterNotFound for an unregistered name.
func (s *MeterService) Get(ctx context.Context, name string) (MeterSummary, error) {
	m, err := s.repos.GetMeter(ctx, s.pool.DB, name)
	if err != nil {
		return MeterSummary{}, err
	}
	n, err := s.repos.CountReadings(ctx, s.pool.DB, m.ID)
	if err != nil {
		return MeterSummary{}, err
	}
	return MeterSummary{Meter: m, Readings: n}, nil
}
