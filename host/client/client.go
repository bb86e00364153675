// Package client talks to a sniffer probe from the host.
package client

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"gosniff/host/serial"
	"gosniff/protocol"
)

// Frame is a captured frame received from the probe
type Frame struct {
	Meta     protocol.FrameMeta
	Data     []byte // Raw 802.11 frame, FrameLen bytes
	Received time.Time
}

// FrameHandler is called from the reader goroutine for each captured frame
type FrameHandler func(f *Frame)

// Stats summarizes the frames seen by the client
type Stats struct {
	Frames    uint64
	Dropped   uint64 // Estimated from sequence gaps
	Malformed uint64 // Frame events with inconsistent lengths, and bad framing
}

// Client represents a connection to a sniffer probe
type Client struct {
	// Transport layer
	transport *protocol.HostTransport

	// Serial port
	port io.ReadWriteCloser

	log     zerolog.Logger
	timeout time.Duration

	mu      sync.Mutex
	onFrame FrameHandler
	seq     SeqTracker

	frames    atomic.Uint64
	malformed atomic.Uint64

	// Connection state
	connected bool
}

// New creates a new client instance (not yet connected)
func New(log zerolog.Logger) *Client {
	return &Client{
		log:     log.With().Str("component", "client").Logger(),
		timeout: protocol.DefaultCommandTimeout,
	}
}

// SetTimeout sets how long commands wait for their response
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Connect connects to a probe via serial port
func (c *Client) Connect(device string) error {
	return c.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to a probe with a custom serial config
func (c *Client) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	c.Attach(port)
	c.log.Info().Str("device", cfg.Device).Int("baud", cfg.Baud).Msg("connected to probe")
	return nil
}

// Attach starts talking to a probe over an already open stream
func (c *Client) Attach(port io.ReadWriteCloser) {
	c.port = port
	c.transport = protocol.NewHostTransport(port)
	c.transport.SetEventHandler(c.handleEvent)
	c.connected = true
}

// Close closes the connection to the probe
func (c *Client) Close() error {
	if !c.connected {
		return nil
	}
	c.connected = false
	return c.transport.Close()
}

// Done is closed when the connection to the probe is lost or closed
func (c *Client) Done() <-chan struct{} {
	return c.transport.Done()
}

// OnFrame sets the captured-frame callback
func (c *Client) OnFrame(h FrameHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFrame = h
}

// StartScan starts scanning channel, or every channel when channel is 0.
// A zero filter captures all frame classes.
func (c *Client) StartScan(channel uint8, filter protocol.FilterMask) error {
	_, err := c.command(protocol.MsgScanStart, []byte{channel, uint8(filter)})
	return err
}

// StopScan stops scanning
func (c *Client) StopScan() error {
	_, err := c.command(protocol.MsgScanStop, nil)
	return err
}

// PromiscuousOn enables promiscuous mode
func (c *Client) PromiscuousOn() error {
	_, err := c.command(protocol.MsgPromiscOn, nil)
	return err
}

// PromiscuousOff disables promiscuous mode. The probe refuses while scanning.
func (c *Client) PromiscuousOff() error {
	_, err := c.command(protocol.MsgPromiscOff, nil)
	return err
}

// PromiscuousStatus queries whether promiscuous mode is enabled
func (c *Client) PromiscuousStatus() (bool, error) {
	resp, err := c.command(protocol.MsgPromiscQuery, nil)
	if err != nil {
		return false, err
	}
	if resp.Header.Type != protocol.MsgPromiscStatus || len(resp.Payload) < 1 {
		return false, fmt.Errorf("unexpected %s response to %s", resp.Header.Type, protocol.MsgPromiscQuery)
	}
	return resp.Payload[0] != 0, nil
}

func (c *Client) command(cmd protocol.MessageType, payload []byte) (*protocol.Message, error) {
	if !c.connected {
		return nil, fmt.Errorf("not connected to probe")
	}

	resp, err := c.transport.SendCommandWithTimeout(cmd, payload, c.timeout)
	if err != nil {
		c.log.Debug().Err(err).Str("cmd", cmd.String()).Msg("command failed")
		return resp, err
	}
	return resp, nil
}

// handleEvent processes captured-frame events from the transport
func (c *Client) handleEvent(msg *protocol.Message) {
	if msg.Header.Type != protocol.MsgFrame {
		c.log.Debug().Str("type", msg.Header.Type.String()).Msg("ignoring event")
		return
	}

	meta, err := protocol.ParseFrameMeta(msg.Payload)
	if err != nil || len(msg.Payload) < protocol.MetaSize+int(meta.FrameLen) {
		c.malformed.Add(1)
		return
	}

	f := &Frame{
		Meta:     meta,
		Data:     msg.Payload[protocol.MetaSize : protocol.MetaSize+int(meta.FrameLen)],
		Received: time.Now(),
	}

	c.frames.Add(1)
	c.mu.Lock()
	if gap := c.seq.Observe(meta.SeqNum); gap > 0 {
		c.log.Debug().Uint16("seq", meta.SeqNum).Uint16("gap", gap).Msg("frames lost")
	}
	handler := c.onFrame
	c.mu.Unlock()

	if handler != nil {
		handler(f)
	}
}

// Stats returns the frame counters
func (c *Client) Stats() Stats {
	c.mu.Lock()
	dropped := c.seq.Dropped()
	c.mu.Unlock()

	s := Stats{
		Frames:    c.frames.Load(),
		Dropped:   dropped,
		Malformed: c.malformed.Load(),
	}
	if c.transport != nil {
		s.Malformed += uint64(c.transport.Malformed())
	}
	return s
}

// ResetStats clears the frame counters and the sequence expectation
func (c *Client) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq.Reset()
	c.frames.Store(0)
	c.malformed.Store(0)
}
