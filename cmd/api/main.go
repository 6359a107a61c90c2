package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/config"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/database"
	httpHandlers "github.com/ANIKETSHETTY47/meter-data-loader/internal/http"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/logging"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/metrics"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/service"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "config file (yaml, toml or json)")
	pflag.String("log-level", "info", "log level")
	pflag.Parse()

	cfg, err := config.Load(*configPath, pflag.CommandLine)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logger := logging.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewDBStatsCollector(pool.DB.DB, "meters"))
	svcs, err := service.New(pool, cfg, logger, metrics.New(reg), nil)
	if err != nil {
		log.Fatal().Err(err).Msg("service setup failed")
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httpHandlers.Register(app, svcs.Meters, reg, logger)

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	log.Info().Str("addr", cfg.API.Addr).Msg("api listening")
	if err := app.Listen(cfg.API.Addr); err != nil {
		log.Fatal().Err(err).Msg("server exit")
	}
}
