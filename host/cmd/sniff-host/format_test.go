package main

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosniff/host/client"
	"gosniff/protocol"
	"gosniff/radio/sim"
)

func init() {
	color.NoColor = true
}

func TestFormatFrame(t *testing.T) {
	bssid := sim.MAC{0x02, 0, 0, 0, 0, 0x07}
	f := &client.Frame{
		Meta: protocol.FrameMeta{Channel: 6, RSSI: -52},
		Data: sim.AppendBeacon(nil, bssid, "Flock-Cam-1", 6, 1, 0),
	}

	line, alerted := formatFrame(f, "flock")
	assert.True(t, alerted, "match ignores case")
	assert.Contains(t, line, "ch=6")
	assert.Contains(t, line, "rssi=-52")
	assert.Contains(t, line, "beacon")
	assert.Contains(t, line, "src=02:00:00:00:00:07")
	assert.Contains(t, line, `ssid="Flock-Cam-1"`)

	_, alerted = formatFrame(f, "")
	assert.False(t, alerted)
	_, alerted = formatFrame(f, "coffee")
	assert.False(t, alerted)
}

func TestFormatFrameWithoutSSID(t *testing.T) {
	f := &client.Frame{Data: sim.AppendProbeRequest(nil, sim.MAC{1, 2, 3, 4, 5, 6}, "", 1)}
	line, alerted := formatFrame(f, "flock")
	assert.False(t, alerted)
	assert.NotContains(t, line, "ssid=")
	assert.Contains(t, line, "probe-req")
}

func TestParseScanArgs(t *testing.T) {
	testCases := []struct {
		args    []string
		channel uint8
		filter  protocol.FilterMask
		wantErr bool
	}{
		{nil, 0, 0, false},
		{[]string{"all"}, 0, 0, false},
		{[]string{"6"}, 6, 0, false},
		{[]string{"149", "mgmt,data"}, 149, protocol.FilterMgmt | protocol.FilterData, false},
		{[]string{"all", "ctrl"}, 0, protocol.FilterCtrl, false},
		{[]string{"300"}, 0, 0, true},
		{[]string{"six"}, 0, 0, true},
		{[]string{"6", "beacons"}, 0, 0, true},
		{[]string{"6", "mgmt", "extra"}, 0, 0, true},
	}

	for _, tc := range testCases {
		channel, filter, err := parseScanArgs(tc.args)
		if tc.wantErr {
			assert.Error(t, err, "%v", tc.args)
			continue
		}
		require.NoError(t, err, "%v", tc.args)
		assert.Equal(t, tc.channel, channel, "%v", tc.args)
		assert.Equal(t, tc.filter, filter, "%v", tc.args)
	}
}
