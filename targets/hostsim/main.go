//go:build !tinygo

// Command hostsim runs the probe firmware on a host serial device, such as
// one end of a pty pair, with a simulated radio.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"gosniff/config"
	"gosniff/core"
	"gosniff/host/serial"
	"gosniff/protocol"
	"gosniff/radio/sim"
)

var (
	configPath = flag.String("config", "", "JSON probe configuration (default: built-in)")
	device     = flag.String("device", "", "Serial device to serve the probe on (overrides config)")
)

func loadConfig() (*config.ProbeConfig, error) {
	if *configPath == "" {
		return config.DefaultProbeConfig(), nil
	}
	data, err := os.ReadFile(*configPath)
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(data)
}

func main() {
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli}).
		With().Timestamp().Logger()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
	}
	log = log.Level(cfg.Level())
	if *device != "" {
		cfg.Device = *device
	}
	if cfg.Device == "" {
		log.Fatal().Msg("no serial device, use -device or set \"device\" in the config")
	}

	port, err := serial.OpenDevice(&serial.Config{Device: cfg.Device, Baud: cfg.Baud})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open device")
	}
	link := protocol.NewStreamLink(port, cfg.PoolSize)

	radio := sim.New(sim.Config{
		FramesPerSecond: cfg.Sim.FramesPerSecond,
		SSIDs:           cfg.Sim.SSIDs,
		Seed:            cfg.Sim.Seed,
	}, log)
	for _, ap := range radio.AccessPoints() {
		log.Debug().Str("ssid", ap.SSID).Str("bssid", ap.BSSID.String()).Uint8("channel", ap.Channel).Msg("simulated AP")
	}

	probe := core.New(link, radio, cfg.CoreConfig(&log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		radio.Run(ctx)
	}()

	if cfg.StatsIntervalMS > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(time.Duration(cfg.StatsIntervalMS) * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					probe.DumpStats()
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	log.Info().Str("device", cfg.Device).Msg("probe running")
	err = probe.Run(ctx)
	cancel()
	wg.Wait()

	probe.DumpStats()
	link.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("probe stopped")
		os.Exit(1)
	}
	log.Info().Msg("probe stopped")
}
