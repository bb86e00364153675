//go:build !wasm

package serial

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial port found on the host
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// VIDPID returns the USB identifier as "VID:PID", or "" for non-USB ports
func (p PortInfo) VIDPID() string {
	if !p.IsUSB {
		return ""
	}
	return strings.ToUpper(p.VID + ":" + p.PID)
}

// probeVendors are USB vendor IDs of the serial bridges found on ESP32 boards
var probeVendors = map[string]string{
	"303A": "Espressif USB-JTAG/serial",
	"10C4": "Silicon Labs CP210x",
	"1A86": "WCH CH340",
	"0403": "FTDI",
}

// ProbeVendor returns the bridge name if p looks like a probe board
func (p PortInfo) ProbeVendor() (string, bool) {
	if !p.IsUSB {
		return "", false
	}
	name, ok := probeVendors[strings.ToUpper(p.VID)]
	return name, ok
}

// ListPorts returns the serial ports present on the host, sorted by name
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports, nil
}

// FindProbe returns the first port whose USB bridge is used on probe boards
func FindProbe(ports []PortInfo) (PortInfo, bool) {
	for _, p := range ports {
		if _, ok := p.ProbeVendor(); ok {
			return p, true
		}
	}
	return PortInfo{}, false
}
