// Package cli implements the insert-single and insert-multi commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/cloud"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/config"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/database"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/dispatch"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/logging"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/metrics"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/service"
)

// Execute runs cmd until it finishes or the process is interrupted and
// returns the process exit code.
func Execute(cmd *cobra.Command) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Str("command", cmd.Name()).Msg("load failed")
		return 1
	}
	return 0
}

// addLoaderFlags registers the flags shared by both loaders. Their defaults
// only document the built-in configuration; an unset flag never overrides a
// config file or environment value.
func addLoaderFlags(cmd *cobra.Command, configPath *string) {
	f := cmd.Flags()
	f.StringVarP(configPath, "config", "c", "", "config file (yaml, toml or json)")
	f.Int("workers", 4, "number of files loaded concurrently")
	f.String("pattern", "*.csv", "file name pattern matched at any depth")
	f.String("delimiter", ",", `field delimiter; "tab" or \t for tab`)
	f.String("on-error", string(config.AbortOnError), `what to do with a failed row: "abort" the file or "skip" the row`)
	f.Bool("migrate", true, "apply schema migrations before loading")
	f.String("log-level", "info", "log level")
}

// env is everything a loader command needs once configuration is resolved.
type env struct {
	cfg  *config.Config
	log  zerolog.Logger
	pool *database.Pool
	svcs *service.Services
}

func setup(ctx context.Context, cmd *cobra.Command, configPath string) (*env, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.Log).With().Str("command", cmd.Name()).Logger()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Loader.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	m := metrics.New(prometheus.NewRegistry())

	var archiver dispatch.Archiver
	if cfg.Archive.Enabled {
		a, err := cloud.NewS3Archiver(ctx, cfg.Archive.Region, cfg.Archive.Bucket, cfg.Archive.Prefix, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		archiver = a
	}

	svcs, err := service.New(pool, cfg, logger, m, archiver)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &env{cfg: cfg, log: logger, pool: pool, svcs: svcs}, nil
}

func (e *env) close() {
	if err := e.pool.Close(); err != nil {
		e.log.Warn().Err(err).Msg("close database pool")
	}
}

// pushMetrics is best effort; the run outcome does not depend on it. It
// still runs when ctx has been cancelled by an interrupt.
func (e *env) pushMetrics(ctx context.Context, job string) {
	if e.cfg.Metrics.PushgatewayURL == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := e.svcs.Metrics.Push(ctx, e.cfg.Metrics.PushgatewayURL, job); err != nil {
		e.log.Warn().Err(err).Msg("metrics push failed")
	}
}

// notify publishes the run summary when notifications are enabled.
func (e *env) notify(ctx context.Context, subject, message string) {
	if !e.cfg.Notify.Enabled {
		return
	}
	ctx = context.WithoutCancel(ctx)
	n, err := cloud.NewSNSNotifier(ctx, e.cfg.Notify.Region, e.cfg.Notify.TopicARN, e.log)
	if err == nil {
		err = n.Publish(ctx, subject, message)
	}
	if err != nil {
		e.log.Warn().Err(err).Msg("run notification failed")
	}
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
