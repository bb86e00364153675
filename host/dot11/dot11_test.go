package dot11

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosniff/radio/sim"
)

var (
	apMAC      = sim.MAC{0x02, 0xaa, 0xbb, 0xcc, 0xdd, 0xee}
	stationMAC = sim.MAC{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
)

// withoutFCS strips the trailing checksum the radio keeps on captures
func withoutFCS(raw []byte) Frame {
	return Frame(raw[:len(raw)-4])
}

func TestBeacon(t *testing.T) {
	f := withoutFCS(sim.AppendBeacon(nil, apMAC, "flock-cam-2231", 11, 0x2ab, 0))

	assert.Equal(t, TypeMgmt, f.Type())
	assert.Equal(t, SubtypeBeacon, f.Subtype())
	assert.True(t, f.IsBeacon())
	assert.False(t, f.IsProbeRequest())
	assert.Equal(t, "beacon", f.Name())

	bssid, ok := f.BSSID()
	require.True(t, ok)
	assert.Equal(t, MAC(apMAC), bssid)
	src, _ := f.Source()
	assert.Equal(t, MAC(apMAC), src)
	dst, _ := f.Destination()
	assert.Equal(t, "ff:ff:ff:ff:ff:ff", dst.String())

	seq, ok := f.SequenceNumber()
	require.True(t, ok)
	assert.Equal(t, uint16(0x2ab), seq)
	frag, _ := f.FragmentNumber()
	assert.Zero(t, frag)

	ssid, ok := f.SSID()
	require.True(t, ok)
	assert.Equal(t, "flock-cam-2231", ssid)

	ies := f.IEs()
	require.Len(t, ies, 3)
	assert.Equal(t, uint8(3), ies[2].ID)
	assert.Equal(t, []byte{11}, ies[2].Data)
}

func TestProbeRequest(t *testing.T) {
	f := withoutFCS(sim.AppendProbeRequest(nil, stationMAC, "", 1))
	assert.True(t, f.IsProbeRequest())

	// Wildcard probe carries an empty SSID element
	ssid, ok := f.SSID()
	assert.True(t, ok)
	assert.Empty(t, ssid)

	f = withoutFCS(sim.AppendProbeRequest(nil, stationMAC, "HomeNet", 2))
	ssid, _ = f.SSID()
	assert.Equal(t, "HomeNet", ssid)
	src, _ := f.Source()
	assert.Equal(t, "00:11:22:33:44:55", src.String())
}

func TestControlFrame(t *testing.T) {
	f := Frame(sim.AppendRTS(nil, sim.Broadcast, stationMAC, 44))
	assert.Equal(t, TypeCtrl, f.Type())
	assert.Equal(t, "rts", f.Name())
	assert.Equal(t, uint16(44), f.Duration())

	_, ok := f.SSID()
	assert.False(t, ok, "control frames carry no elements")
	assert.Empty(t, f.IEs())

	// An RTS is 20 bytes with its FCS, too short for addr3
	_, ok = f.Addr3()
	assert.False(t, ok)
	_, ok = f.SequenceControl()
	assert.False(t, ok)
}

func TestDataAddressing(t *testing.T) {
	testCases := []struct {
		name   string
		toAP   bool
		bssid  MAC
		source MAC
		dest   MAC
	}{
		{"to AP", true, MAC(apMAC), MAC(stationMAC), MAC(sim.Broadcast)},
		{"from AP", false, MAC(apMAC), MAC(apMAC), MAC(stationMAC)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := Frame(sim.AppendData(nil, apMAC, stationMAC, tc.toAP, 9, []byte{1, 2, 3}))
			assert.Equal(t, TypeData, f.Type())
			assert.Equal(t, "data", f.Name())
			assert.Equal(t, tc.toAP, f.ToDS())
			assert.Equal(t, !tc.toAP, f.FromDS())

			bssid, ok := f.BSSID()
			require.True(t, ok)
			assert.Equal(t, tc.bssid, bssid)
			src, _ := f.Source()
			assert.Equal(t, tc.source, src)
			dst, _ := f.Destination()
			assert.Equal(t, tc.dest, dst)
		})
	}
}

func TestWDS(t *testing.T) {
	f := make(Frame, 30)
	f[0] = 0x08
	f[1] = 0x03
	for i := 0; i < 6; i++ {
		f[4+i] = 0x01
		f[10+i] = 0x02
		f[16+i] = 0x03
		f[24+i] = 0x04
	}

	_, ok := f.BSSID()
	assert.False(t, ok)
	src, ok := f.Source()
	require.True(t, ok)
	assert.Equal(t, "04:04:04:04:04:04", src.String())
	dst, _ := f.Destination()
	assert.Equal(t, "03:03:03:03:03:03", dst.String())

	_, ok = f[:28].Source()
	assert.False(t, ok)
}

func TestIEOffsets(t *testing.T) {
	testCases := []struct {
		name    string
		subtype byte
		offset  int
	}{
		{"assoc req", SubtypeAssocReq, 28},
		{"probe req", SubtypeProbeReq, 24},
		{"probe resp", SubtypeProbeResp, 36},
		{"beacon", SubtypeBeacon, 36},
		{"deauth", SubtypeDeauth, 24},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := make(Frame, tc.offset, tc.offset+6)
			f[0] = tc.subtype << 4
			f = append(f, IESSID, 4, 'l', 'a', 'b', '1')
			ssid, ok := f.SSID()
			require.True(t, ok)
			assert.Equal(t, "lab1", ssid)
		})
	}
}

func TestTruncatedElements(t *testing.T) {
	f := make(Frame, 24)
	f[0] = SubtypeProbeReq << 4
	f = append(f, 0x01, 0x02, 0xaa, 0xbb, IESSID, 10, 'x')

	ies := f.IEs()
	require.Len(t, ies, 1)
	assert.Equal(t, uint8(1), ies[0].ID)
	_, ok := f.SSID()
	assert.False(t, ok)
}

func TestInvalidUTF8SSID(t *testing.T) {
	f := make(Frame, 24)
	f[0] = SubtypeProbeReq << 4
	f = append(f, IESSID, 3, 'a', 0xff, 'b')

	ssid, ok := f.SSID()
	require.True(t, ok)
	assert.Equal(t, "a�b", ssid)
}

func TestShortFrames(t *testing.T) {
	var f Frame
	assert.Zero(t, f.FrameControl())
	assert.Zero(t, f.Duration())
	_, ok := f.Addr1()
	assert.False(t, ok)
	assert.Equal(t, "??:??:??:??:??:??", FormatMAC(MAC{}, false))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "deauth", Frame{SubtypeDeauth << 4, 0}.Name())
	assert.Equal(t, "qos-data", Frame{0x88, 0}.Name())
	assert.Equal(t, "mgmt/15", Frame{0xF0, 0}.Name())
	assert.Equal(t, "ctrl", Frame{0xB4, 0}.TypeName())
}

func TestString(t *testing.T) {
	f := withoutFCS(sim.AppendBeacon(nil, apMAC, "lab", 1, 1, 0))
	assert.Equal(t, `beacon src=02:aa:bb:cc:dd:ee dst=ff:ff:ff:ff:ff:ff len=54 ssid="lab"`, f.String())
}
