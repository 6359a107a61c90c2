// Command cloudcheck verifies the archive bucket and notification topic
// configured for the loaders before a scheduled run depends on them.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/cloud"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/config"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/logging"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "config file (yaml, toml or json)")
	publish := pflag.Bool("publish", false, "also publish a test notification")
	pflag.Parse()

	cfg, err := config.Load(*configPath, pflag.CommandLine)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logger := logging.Setup(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := false
	if cfg.Archive.Enabled {
		a, err := cloud.NewS3Archiver(ctx, cfg.Archive.Region, cfg.Archive.Bucket, cfg.Archive.Prefix, logger)
		if err == nil {
			err = a.Check(ctx)
		}
		if err != nil {
			failed = true
			log.Error().Err(err).Msg("archive check failed")
		} else {
			log.Info().Str("bucket", cfg.Archive.Bucket).Msg("archive bucket ok")
		}
	}

	if cfg.Notify.Enabled {
		n, err := cloud.NewSNSNotifier(ctx, cfg.Notify.Region, cfg.Notify.TopicARN, logger)
		if err == nil {
			err = n.Check(ctx)
		}
		if err == nil && *publish {
			err = n.Publish(ctx, "Meter data loader notification test", "Test message from cloudcheck.")
		}
		if err != nil {
			failed = true
			log.Error().Err(err).Msg("notification check failed")
		} else {
			log.Info().Str("topic", cfg.Notify.TopicARN).Msg("notification topic ok")
		}
	}

	if !cfg.Archive.Enabled && !cfg.Notify.Enabled {
		log.Warn().Msg("neither archive nor notify is enabled; nothing to check")
	}
	if failed {
		os.Exit(1)
	}
}
