package sim

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// MAC is an IEEE 802 hardware address
type MAC [6]byte

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Broadcast is the all-stations address
var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

var supportedRates = []byte{0x82, 0x84, 0x8b, 0x96, 0x0c, 0x12, 0x18, 0x24}

// Frame control first byte: subtype<<4 | type<<2
const (
	fcBeacon       = 0x80
	fcProbeRequest = 0x40
	fcRTS          = 0xB4
	fcData         = 0x08

	flagToDS   = 0x01
	flagFromDS = 0x02
)

func appendHeader(dst []byte, fc0, fc1 byte, a1, a2, a3 MAC, seq uint16) []byte {
	dst = append(dst, fc0, fc1, 0x00, 0x00)
	dst = append(dst, a1[:]...)
	dst = append(dst, a2[:]...)
	dst = append(dst, a3[:]...)
	return binary.LittleEndian.AppendUint16(dst, seq<<4)
}

func appendIE(dst []byte, id byte, body []byte) []byte {
	dst = append(dst, id, byte(len(body)))
	return append(dst, body...)
}

// appendFCS appends the frame check sequence over dst[start:]. Captured
// frames keep their FCS.
func appendFCS(dst []byte, start int) []byte {
	return binary.LittleEndian.AppendUint32(dst, crc32.ChecksumIEEE(dst[start:]))
}

// AppendBeacon appends a beacon for ssid on channel
func AppendBeacon(dst []byte, bssid MAC, ssid string, channel uint8, seq uint16, tsf uint64) []byte {
	start := len(dst)
	dst = appendHeader(dst, fcBeacon, 0, Broadcast, bssid, bssid, seq)
	dst = binary.LittleEndian.AppendUint64(dst, tsf)
	dst = append(dst, 0x64, 0x00) // beacon interval, 100 TU
	dst = append(dst, 0x11, 0x04) // ESS, privacy, short slot
	dst = appendIE(dst, 0, []byte(ssid))
	dst = appendIE(dst, 1, supportedRates)
	dst = appendIE(dst, 3, []byte{channel})
	return appendFCS(dst, start)
}

// AppendProbeRequest appends a probe request; an empty ssid is a wildcard probe
func AppendProbeRequest(dst []byte, src MAC, ssid string, seq uint16) []byte {
	start := len(dst)
	dst = appendHeader(dst, fcProbeRequest, 0, Broadcast, src, Broadcast, seq)
	dst = appendIE(dst, 0, []byte(ssid))
	dst = appendIE(dst, 1, supportedRates)
	return appendFCS(dst, start)
}

// AppendRTS appends a request-to-send control frame
func AppendRTS(dst []byte, ra, ta MAC, duration uint16) []byte {
	start := len(dst)
	dst = append(dst, fcRTS, 0x00)
	dst = binary.LittleEndian.AppendUint16(dst, duration)
	dst = append(dst, ra[:]...)
	dst = append(dst, ta[:]...)
	return appendFCS(dst, start)
}

// AppendData appends a data frame carrying an LLC/SNAP encapsulated IPv4
// payload. toAP selects the client -> AP direction.
func AppendData(dst []byte, bssid, station MAC, toAP bool, seq uint16, body []byte) []byte {
	start := len(dst)
	if toAP {
		dst = appendHeader(dst, fcData, flagToDS, bssid, station, Broadcast, seq)
	} else {
		dst = appendHeader(dst, fcData, flagFromDS, station, bssid, bssid, seq)
	}
	dst = append(dst, 0xaa, 0xaa, 0x03, 0x00, 0x00, 0x00, 0x08, 0x00)
	dst = append(dst, body...)
	return appendFCS(dst, start)
}
