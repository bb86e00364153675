package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"gosniff/host/client"
	"gosniff/host/serial"
	"gosniff/host/sink/mqtt"
)

var (
	device  = flag.String("device", "", "Serial device path (default: first probe found)")
	baud    = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	verbose = flag.Bool("verbose", false, "Enable verbose output")
	alert   = flag.String("alert", "flock", "Highlight frames whose SSID contains this text (empty disables)")
	broker  = flag.String("mqtt", "", "Publish frame summaries to this broker URL, e.g. mqtt://host:1883/sniffers")
	eval    = flag.String("e", "", "Run one command and exit, e.g. -e \"scan 6 mgmt\"")
	timeout = flag.Duration("timeout", 3*time.Second, "Command response timeout")
)

func main() {
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	path := *device
	if path == "" {
		ports, err := serial.ListPorts()
		if err != nil {
			log.Fatal().Err(err).Msg("no device given")
		}
		p, ok := serial.FindProbe(ports)
		if !ok {
			log.Fatal().Msg("no probe found, use -device")
		}
		vendor, _ := p.ProbeVendor()
		log.Info().Str("port", p.Name).Str("bridge", vendor).Msg("found probe")
		path = p.Name
	}

	c := client.New(log)
	c.SetTimeout(*timeout)

	cfg := serial.DefaultConfig(path)
	cfg.Baud = *baud
	if err := c.ConnectWithConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	var sink *mqtt.Sink
	if *broker != "" {
		var err error
		sink, err = mqtt.Dial(*broker, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer sink.Close()
	}

	sh := newShell(c, sink, *alert, log)
	if *eval != "" {
		if err := sh.eval(*eval); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	go func() {
		<-c.Done()
		log.Warn().Msg("probe disconnected")
		sh.close()
	}()
	sh.run()
}
