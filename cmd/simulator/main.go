package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/config"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/logging"
)

type reading struct {
	MeterName string         `json:"meter_name"`
	Values    map[string]any `json:"values"`
}

func main() {
	configPath := pflag.StringP("config", "c", "", "config file (yaml, toml or json)")
	meters := pflag.Int("meters", 3, "number of simulated meters")
	count := pflag.Int("count", 100, "readings to publish per meter")
	interval := pflag.Duration("interval", 500*time.Millisecond, "delay between rounds")
	pflag.Parse()

	cfg, err := config.Load(*configPath, pflag.CommandLine)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logging.Setup(cfg.Log)

	opts := mqtt.NewClientOptions().AddBroker(cfg.MQTT.Broker).SetClientID(cfg.MQTT.ClientID + "-simulator")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < *count; i++ {
		now := time.Now().UTC()
		for m := 1; m <= *meters; m++ {
			volts := 120 + rng.Float64()*2
			amps := 5 + rng.Float64()*2
			r := reading{
				MeterName: fmt.Sprintf("Meter_%03d", m),
				Values: map[string]any{
					"time(UTC)":                               now.Format("2006-01-02 15:04:05"),
					"error":                                   0,
					"lowalarm":                                0,
					"highalarm":                               0,
					"Frequency (Hz)":                          59.95 + rng.Float64()*0.1,
					"Voltage, L-N, 3p Ave (Volts)":            volts,
					"Current, 3p Ave (Amps)":                  amps,
					"Total Net Instantaneous Real Power (kW)": 3 * volts * amps / 1000,
				},
			}
			payload, _ := json.Marshal(r)
			token := client.Publish(cfg.MQTT.Topic, 1, false, payload)
			token.Wait()
			if err := token.Error(); err != nil {
				log.Error().Err(err).Msg("publish failed")
			}
		}
		time.Sleep(*interval)
	}
	log.Info().Int("meters", *meters).Int("rounds", *count).Msg("simulation done")
}
