package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"gosniff/host/client"
	"gosniff/host/dot11"
)

var alertColor = color.New(color.FgRed, color.Bold).SprintFunc()

// formatFrame renders one line per captured frame and reports whether the
// SSID matched the alert text
func formatFrame(f *client.Frame, alert string) (string, bool) {
	raw := dot11.Frame(f.Data)
	src, srcOK := raw.Addr2()
	dst, dstOK := raw.Addr1()

	var b strings.Builder
	fmt.Fprintf(&b, "ch=%-3d rssi=%-4d %-13s src=%s dst=%s len=%d",
		f.Meta.Channel, f.Meta.RSSI, raw.Name(),
		dot11.FormatMAC(src, srcOK), dot11.FormatMAC(dst, dstOK), len(f.Data))

	ssid, ok := raw.SSID()
	if !ok || ssid == "" {
		return b.String(), false
	}
	fmt.Fprintf(&b, " ssid=%q", ssid)

	if alert != "" && strings.Contains(strings.ToLower(ssid), strings.ToLower(alert)) {
		return alertColor(b.String()), true
	}
	return b.String(), false
}
