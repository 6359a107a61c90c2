package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/config"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/database"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/logging"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/metrics"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/service"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "config file (yaml, toml or json)")
	pflag.String("log-level", "info", "log level")
	pflag.Bool("migrate", true, "apply schema migrations at startup")
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

	if cfg.Loader.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migrate failed")
		}
	}

	reg := prometheus.NewRegistry()
	svcs, err := service.New(pool, cfg, logger, metrics.New(reg), nil)
	if err != nil {
		log.Fatal().Err(err).Msg("service setup failed")
	}

	metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server")
		}
	}()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetClientID(cfg.MQTT.ClientID).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(c mqtt.Client) {
			handler := func(_ mqtt.Client, msg mqtt.Message) {
				if err := svcs.Readings.FromMQTT(ctx, msg.Topic(), msg.Payload()); err != nil {
					log.Error().Err(err).Str("topic", msg.Topic()).Msg("ingest failed")
				}
			}
			if token := c.Subscribe(cfg.MQTT.Topic, 1, handler); token.Wait() && token.Error() != nil {
				log.Error().Err(token.Error()).Str("topic", cfg.MQTT.Topic).Msg("subscribe failed")
				return
			}
			log.Info().Str("topic", cfg.MQTT.Topic).Msg("subscribed")
		})
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}

	log.Info().Str("broker", cfg.MQTT.Broker).Msg("ingestor running; Ctrl+C to stop")
	<-ctx.Done()

	client.Disconnect(250)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info().Msg("ingestor stopped")
}
