package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrShortHeader is returned when a message is smaller than HeaderSize
	ErrShortHeader = errors.New("message shorter than header")
	// ErrPayloadLength is returned when the header claims more payload than present
	ErrPayloadLength = errors.New("payload length exceeds message")
)

// Header precedes every message.
//
// Layout (little-endian):
//
//	0  type        u8
//	1  flags       u8
//	2  payload_len u16
type Header struct {
	Type       MessageType
	Flags      uint8
	PayloadLen uint16
}

// Put writes the header into the first HeaderSize bytes of b
func (h Header) Put(b []byte) {
	b[0] = uint8(h.Type)
	b[1] = h.Flags
	binary.LittleEndian.PutUint16(b[2:4], h.PayloadLen)
}

// ParseHeader reads a header from b
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	return Header{
		Type:       MessageType(b[0]),
		Flags:      b[1],
		PayloadLen: binary.LittleEndian.Uint16(b[2:4]),
	}, nil
}

// SplitMessage parses the header of a decoded message and returns it along
// with exactly PayloadLen payload bytes. Trailing bytes are ignored.
func SplitMessage(msg []byte) (Header, []byte, error) {
	hdr, err := ParseHeader(msg)
	if err != nil {
		return Header{}, nil, err
	}
	if int(hdr.PayloadLen) > len(msg)-HeaderSize {
		return Header{}, nil, ErrPayloadLength
	}
	return hdr, msg[HeaderSize : HeaderSize+int(hdr.PayloadLen)], nil
}

// PacketType tags the radio class of a captured frame
type PacketType uint8

const (
	PacketMgmt PacketType = 0
	PacketCtrl PacketType = 1
	PacketData PacketType = 2
	PacketMisc PacketType = 3
)

func (p PacketType) String() string {
	switch p {
	case PacketMgmt:
		return "mgmt"
	case PacketCtrl:
		return "ctrl"
	case PacketData:
		return "data"
	case PacketMisc:
		return "misc"
	default:
		return fmt.Sprintf("pkt(%d)", uint8(p))
	}
}

// FrameMeta describes a captured frame. It follows the header in MsgFrame
// events and precedes FrameLen raw bytes.
//
// Layout (little-endian):
//
//	0  timestamp   u32
//	4  frame_len   u16
//	6  channel     u8
//	7  rssi        i8
//	8  noise_floor i8
//	9  pkt_type    u8
//	10 rx_state    u8
//	11 rate        u8
//	12 seq_num     u16
//	14 reserved    u16
type FrameMeta struct {
	Timestamp  uint32
	FrameLen   uint16
	Channel    uint8
	RSSI       int8
	NoiseFloor int8
	PktType    PacketType
	RxState    uint8
	Rate       uint8
	SeqNum     uint16
}

// Put writes the metadata into the first MetaSize bytes of b
func (m *FrameMeta) Put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], m.Timestamp)
	binary.LittleEndian.PutUint16(b[4:6], m.FrameLen)
	b[6] = m.Channel
	b[7] = uint8(m.RSSI)
	b[8] = uint8(m.NoiseFloor)
	b[9] = uint8(m.PktType)
	b[10] = m.RxState
	b[11] = m.Rate
	binary.LittleEndian.PutUint16(b[12:14], m.SeqNum)
	b[14] = 0
	b[15] = 0
}

// ParseFrameMeta reads frame metadata from b
func ParseFrameMeta(b []byte) (FrameMeta, error) {
	if len(b) < MetaSize {
		return FrameMeta{}, fmt.Errorf("frame metadata: need %d bytes, got %d", MetaSize, len(b))
	}
	return FrameMeta{
		Timestamp:  binary.LittleEndian.Uint32(b[0:4]),
		FrameLen:   binary.LittleEndian.Uint16(b[4:6]),
		Channel:    b[6],
		RSSI:       int8(b[7]),
		NoiseFloor: int8(b[8]),
		PktType:    PacketType(b[9]),
		RxState:    b[10],
		Rate:       b[11],
		SeqNum:     binary.LittleEndian.Uint16(b[12:14]),
	}, nil
}

// FilterMask selects which frame classes the radio delivers in promiscuous mode
type FilterMask uint8

const (
	FilterMgmt FilterMask = 1 << 0
	FilterCtrl FilterMask = 1 << 1
	FilterData FilterMask = 1 << 2

	// FilterAll is the set of defined filter bits. A zero filter on the wire
	// also means all classes.
	FilterAll = FilterMgmt | FilterCtrl | FilterData
)

// Valid reports whether m has no bits outside FilterAll
func (m FilterMask) Valid() bool {
	return m&^FilterAll == 0
}

// Effective returns the mask to program into the radio; zero selects all classes
func (m FilterMask) Effective() FilterMask {
	if m == 0 {
		return FilterAll
	}
	return m
}

func (m FilterMask) String() string {
	if m == 0 || m == FilterAll {
		return "all"
	}
	var names []string
	if m&FilterMgmt != 0 {
		names = append(names, "mgmt")
	}
	if m&FilterCtrl != 0 {
		names = append(names, "ctrl")
	}
	if m&FilterData != 0 {
		names = append(names, "data")
	}
	if !m.Valid() {
		names = append(names, "0x"+hex8(uint8(m&^FilterAll)))
	}
	return strings.Join(names, ",")
}

// ParseFilter parses a comma-separated list of frame classes ("mgmt,data")
// or "all" into a FilterMask. "all" yields zero, the wire value for all classes.
func ParseFilter(s string) (FilterMask, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "all" {
		return 0, nil
	}
	var mask FilterMask
	for _, name := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "mgmt":
			mask |= FilterMgmt
		case "ctrl":
			mask |= FilterCtrl
		case "data":
			mask |= FilterData
		default:
			return 0, fmt.Errorf("unknown filter %q (choose from: all, mgmt, ctrl, data)", name)
		}
	}
	return mask, nil
}

// CommandError is an error response for a command
type CommandError struct {
	Command MessageType
	Code    ErrorCode
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %s", e.Command, e.Code)
}

// AppendCommand appends a raw (unencoded) command message to dst
func AppendCommand(dst []byte, cmd MessageType, payload []byte) []byte {
	var hdr [HeaderSize]byte
	Header{Type: cmd, PayloadLen: uint16(len(payload))}.Put(hdr[:])
	dst = append(dst, hdr[:]...)
	return append(dst, payload...)
}

// AppendAck appends an ack response echoing cmd
func AppendAck(dst []byte, cmd MessageType) []byte {
	var msg [HeaderSize + 1]byte
	Header{Type: MsgAck, Flags: FlagAck, PayloadLen: 1}.Put(msg[:])
	msg[HeaderSize] = uint8(cmd)
	return append(dst, msg[:]...)
}

// AppendError appends an error response for cmd
func AppendError(dst []byte, cmd MessageType, code ErrorCode) []byte {
	var msg [HeaderSize + 2]byte
	Header{Type: MsgError, Flags: FlagError, PayloadLen: 2}.Put(msg[:])
	msg[HeaderSize] = uint8(cmd)
	msg[HeaderSize+1] = uint8(code)
	return append(dst, msg[:]...)
}

// AppendPromiscStatus appends a promiscuous-status response
func AppendPromiscStatus(dst []byte, enabled bool) []byte {
	var msg [HeaderSize + 1]byte
	Header{Type: MsgPromiscStatus, Flags: FlagAck, PayloadLen: 1}.Put(msg[:])
	if enabled {
		msg[HeaderSize] = 1
	}
	return append(dst, msg[:]...)
}

// PutFrameEvent writes a MsgFrame header and metadata into slot and copies
// payload after them. It returns the total message length.
func PutFrameEvent(slot []byte, meta *FrameMeta, payload []byte) int {
	Header{Type: MsgFrame, PayloadLen: uint16(MetaSize + len(payload))}.Put(slot)
	meta.Put(slot[HeaderSize:])
	n := copy(slot[HeaderSize+MetaSize:], payload)
	return HeaderSize + MetaSize + n
}
