package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/abiosoft/ishell"
	"github.com/rs/zerolog"

	"gosniff/host/client"
	"gosniff/host/serial"
	"gosniff/host/sink/mqtt"
	"gosniff/protocol"
)

// shell drives a probe from an interactive ishell session
type shell struct {
	sh     *ishell.Shell
	client *client.Client
	sink   *mqtt.Sink
	alert  string
	log    zerolog.Logger

	show atomic.Bool
}

func newShell(c *client.Client, sink *mqtt.Sink, alert string, log zerolog.Logger) *shell {
	s := &shell{
		sh:     ishell.New(),
		client: c,
		sink:   sink,
		alert:  alert,
		log:    log,
	}
	s.show.Store(true)
	s.sh.SetPrompt("sniff> ")

	s.sh.AddCmd(&ishell.Cmd{
		Name: "scan",
		Help: "scan [channel|all] [mgmt,ctrl,data|all] - start scanning",
		Func: s.report(s.scan),
	})
	s.sh.AddCmd(&ishell.Cmd{
		Name: "stop",
		Help: "stop scanning",
		Func: s.report(func(*ishell.Context) error { return s.client.StopScan() }),
	})
	s.sh.AddCmd(&ishell.Cmd{
		Name: "promisc",
		Help: "promisc on|off|status - control promiscuous mode",
		Func: s.report(s.promisc),
	})
	s.sh.AddCmd(&ishell.Cmd{
		Name: "stats",
		Help: "show frame counters (stats reset clears them)",
		Func: s.report(s.stats),
	})
	s.sh.AddCmd(&ishell.Cmd{
		Name: "show",
		Help: "show on|off - print captured frames",
		Func: s.report(s.toggleShow),
	})
	s.sh.AddCmd(&ishell.Cmd{
		Name: "ports",
		Help: "list serial ports",
		Func: s.report(s.ports),
	})

	c.OnFrame(s.frame)
	return s
}

func (s *shell) run() {
	s.sh.Println("Wi-Fi sniffer host, type 'help' for commands")
	s.sh.Run()
}

func (s *shell) close() {
	s.sh.Close()
}

// eval runs one command line without the interactive prompt
func (s *shell) eval(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return errors.New("empty command")
	}
	return s.sh.Process(args...)
}

// report adapts a command returning an error to an ishell func
func (s *shell) report(fn func(c *ishell.Context) error) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if err := fn(c); err != nil {
			c.Err(err)
		}
	}
}

func (s *shell) scan(c *ishell.Context) error {
	channel, filter, err := parseScanArgs(c.Args)
	if err != nil {
		return err
	}
	if err := s.client.StartScan(channel, filter); err != nil {
		return err
	}
	s.client.ResetStats()

	target := "all channels"
	if channel != 0 {
		target = fmt.Sprintf("channel %d", channel)
	}
	c.Printf("scanning %s (%s)\n", target, filter.Effective())
	return nil
}

func (s *shell) promisc(c *ishell.Context) error {
	arg := "status"
	if len(c.Args) > 0 {
		arg = c.Args[0]
	}
	switch arg {
	case "on":
		return s.client.PromiscuousOn()
	case "off":
		return s.client.PromiscuousOff()
	case "status":
		enabled, err := s.client.PromiscuousStatus()
		if err != nil {
			return err
		}
		c.Printf("promiscuous: %v\n", enabled)
		return nil
	}
	return fmt.Errorf("usage: promisc on|off|status")
}

func (s *shell) stats(c *ishell.Context) error {
	if len(c.Args) > 0 && c.Args[0] == "reset" {
		s.client.ResetStats()
		return nil
	}
	st := s.client.Stats()
	c.Printf("frames=%d dropped=%d malformed=%d\n", st.Frames, st.Dropped, st.Malformed)
	return nil
}

func (s *shell) toggleShow(c *ishell.Context) error {
	if len(c.Args) != 1 || (c.Args[0] != "on" && c.Args[0] != "off") {
		return fmt.Errorf("usage: show on|off")
	}
	s.show.Store(c.Args[0] == "on")
	return nil
}

func (s *shell) ports(c *ishell.Context) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}
	for _, p := range ports {
		line := p.Name
		if id := p.VIDPID(); id != "" {
			line += "  " + id
		}
		if vendor, ok := p.ProbeVendor(); ok {
			line += "  (" + vendor + ")"
		}
		c.Println(line)
	}
	return nil
}

// frame is the client frame handler
func (s *shell) frame(f *client.Frame) {
	if s.sink != nil {
		if err := s.sink.Publish(f); err != nil {
			s.log.Debug().Err(err).Msg("mqtt publish failed")
		}
	}
	line, alerted := formatFrame(f, s.alert)
	if alerted {
		s.log.Warn().Uint8("channel", f.Meta.Channel).Int8("rssi", f.Meta.RSSI).Msg("SSID alert")
	}
	if s.show.Load() || alerted {
		s.sh.Println(line)
	}
}

// parseScanArgs parses "[channel|all] [filter]". A missing channel scans all
// channels; a missing filter captures every frame class.
func parseScanArgs(args []string) (uint8, protocol.FilterMask, error) {
	if len(args) > 2 {
		return 0, 0, fmt.Errorf("usage: scan [channel|all] [mgmt,ctrl,data|all]")
	}

	var channel uint8
	if len(args) > 0 && args[0] != "all" {
		n, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid channel %q", args[0])
		}
		channel = uint8(n)
	}

	var filter protocol.FilterMask
	if len(args) > 1 {
		var err error
		if filter, err = protocol.ParseFilter(args[1]); err != nil {
			return 0, 0, err
		}
	}
	return channel, filter, nil
}
