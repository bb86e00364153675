// Package dot11 decodes the 802.11 MAC header and information elements of
// captured frames. Fields are read on demand straight from the raw bytes.
package dot11

import (
	"encoding/binary"
	"fmt"
)

// Frame types
const (
	TypeMgmt = 0
	TypeCtrl = 1
	TypeData = 2
)

// Management subtypes
const (
	SubtypeAssocReq  = 0
	SubtypeAssocResp = 1
	SubtypeProbeReq  = 4
	SubtypeProbeResp = 5
	SubtypeBeacon    = 8
	SubtypeDisassoc  = 10
	SubtypeAuth      = 11
	SubtypeDeauth    = 12
	SubtypeAction    = 13
)

// IESSID is the element ID of the SSID
const IESSID = 0

const (
	headerLen        = 24
	fixedBeaconLen   = 12 // timestamp, beacon interval, capability
	fixedAssocReqLen = 4  // capability, listen interval
	addrLen          = 6
)

// MAC is a 48-bit hardware address
type MAC [addrLen]byte

// String formats m as colon-separated lowercase hex
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// FormatMAC formats an optional address, printing placeholders when absent
func FormatMAC(m MAC, ok bool) string {
	if !ok {
		return "??:??:??:??:??:??"
	}
	return m.String()
}

// Frame is a raw 802.11 frame
type Frame []byte

// FrameControl returns the frame control field, or 0 for a truncated frame
func (f Frame) FrameControl() uint16 {
	if len(f) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(f[0:2])
}

// Type returns the frame type (TypeMgmt, TypeCtrl or TypeData)
func (f Frame) Type() int {
	return int(f.FrameControl()>>2) & 0x03
}

// Subtype returns the frame subtype
func (f Frame) Subtype() int {
	return int(f.FrameControl()>>4) & 0x0F
}

func (f Frame) ToDS() bool {
	return f.FrameControl()&(1<<8) != 0
}

func (f Frame) FromDS() bool {
	return f.FrameControl()&(1<<9) != 0
}

// Duration returns the duration/ID field
func (f Frame) Duration() uint16 {
	if len(f) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint16(f[2:4])
}

func (f Frame) addr(off int) (MAC, bool) {
	var m MAC
	if len(f) < off+addrLen {
		return m, false
	}
	copy(m[:], f[off:off+addrLen])
	return m, true
}

// Addr1 returns the receiver address
func (f Frame) Addr1() (MAC, bool) { return f.addr(4) }

// Addr2 returns the transmitter address
func (f Frame) Addr2() (MAC, bool) { return f.addr(10) }

// Addr3 returns the third address, usually the BSSID
func (f Frame) Addr3() (MAC, bool) { return f.addr(16) }

// Addr4 returns the fourth address, present in WDS data frames
func (f Frame) Addr4() (MAC, bool) { return f.addr(24) }

// SequenceControl returns the sequence control field
func (f Frame) SequenceControl() (uint16, bool) {
	if len(f) < headerLen {
		return 0, false
	}
	return binary.LittleEndian.Uint16(f[22:24]), true
}

// SequenceNumber returns the 12-bit 802.11 sequence number
func (f Frame) SequenceNumber() (uint16, bool) {
	sc, ok := f.SequenceControl()
	return sc >> 4, ok
}

// FragmentNumber returns the 4-bit fragment number
func (f Frame) FragmentNumber() (uint8, bool) {
	sc, ok := f.SequenceControl()
	return uint8(sc & 0x0F), ok
}

// BSSID returns the network address according to the DS bits. WDS frames
// carry no BSSID.
func (f Frame) BSSID() (MAC, bool) {
	if f.Type() == TypeMgmt {
		return f.Addr3()
	}
	switch {
	case !f.ToDS() && !f.FromDS():
		return f.Addr3()
	case !f.ToDS() && f.FromDS():
		return f.Addr2()
	case f.ToDS() && !f.FromDS():
		return f.Addr1()
	}
	return MAC{}, false
}

// Source returns the originating station according to the DS bits
func (f Frame) Source() (MAC, bool) {
	if f.Type() == TypeMgmt {
		return f.Addr2()
	}
	switch {
	case !f.ToDS() && !f.FromDS():
		return f.Addr2()
	case !f.ToDS() && f.FromDS():
		return f.Addr3()
	case f.ToDS() && !f.FromDS():
		return f.Addr2()
	}
	return f.Addr4()
}

// Destination returns the final recipient according to the DS bits
func (f Frame) Destination() (MAC, bool) {
	if f.Type() == TypeMgmt || !f.ToDS() {
		return f.Addr1()
	}
	return f.Addr3()
}

func (f Frame) IsBeacon() bool {
	return f.Type() == TypeMgmt && f.Subtype() == SubtypeBeacon
}

func (f Frame) IsProbeRequest() bool {
	return f.Type() == TypeMgmt && f.Subtype() == SubtypeProbeReq
}

func (f Frame) IsProbeResponse() bool {
	return f.Type() == TypeMgmt && f.Subtype() == SubtypeProbeResp
}

// String summarizes the frame for logs
func (f Frame) String() string {
	src, srcOK := f.Addr2()
	dst, dstOK := f.Addr1()
	s := fmt.Sprintf("%s src=%s dst=%s len=%d", f.Name(), FormatMAC(src, srcOK), FormatMAC(dst, dstOK), len(f))
	if ssid, ok := f.SSID(); ok {
		s += fmt.Sprintf(" ssid=%q", ssid)
	}
	return s
}
