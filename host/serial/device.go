//go:build !wasm

package serial

import (
	"fmt"
	"time"

	bugst "go.bug.st/serial"
)

// DevicePort wraps a go.bug.st/serial port. It is used on the probe side,
// where Close must unblock a pending Read.
type DevicePort struct {
	port bugst.Port
	cfg  *Config
}

// OpenDevice opens a serial device in 8N1 mode
func OpenDevice(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	port, err := bugst.Open(cfg.Device, &bugst.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial device %s: %w", cfg.Device, err)
	}

	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(time.Duration(cfg.ReadTimeout) * time.Millisecond); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	// Discard whatever the host sent before we were listening
	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to reset input buffer: %w", err)
	}

	return &DevicePort{
		port: port,
		cfg:  cfg,
	}, nil
}

// Read reads data from the serial device
func (p *DevicePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write writes data to the serial device
func (p *DevicePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the serial device
func (p *DevicePort) Close() error {
	return p.port.Close()
}

// Flush waits until all written data has been transmitted
func (p *DevicePort) Flush() error {
	return p.port.Drain()
}
