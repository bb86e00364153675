// Package protocol implements the probe <-> host framing protocol.
//
// Every message is a 4-byte header followed by a payload, COBS-encoded and
// wrapped in zero delimiters on the wire.
package protocol

// Version represents the probe firmware version
const Version = "0.1.0"

// Size limits
const (
	HeaderSize      = 4
	MetaSize        = 16
	MaxFrameLen     = 2300                                // Maximum captured frame payload
	SlotSize        = HeaderSize + MetaSize + MaxFrameLen // Buffer pool slot capacity
	PoolSize        = 8                                   // Default buffer pool depth
	AccumulatorSize = 128                                 // Device-side reassembly capacity
	ResponseMax     = 64                                  // Largest synchronous response

	// Delimiter marks the start and end of every encoded frame
	Delimiter = 0x00
)

// MessageType identifies the kind of message carried by a frame
type MessageType uint8

// Commands (host -> probe)
const (
	MsgScanStart    MessageType = 0x01
	MsgScanStop     MessageType = 0x02
	MsgPromiscOn    MessageType = 0x03
	MsgPromiscOff   MessageType = 0x04
	MsgPromiscQuery MessageType = 0x05
)

// Responses (probe -> host)
const (
	MsgAck           MessageType = 0x81
	MsgError         MessageType = 0x82
	MsgPromiscStatus MessageType = 0x83
)

// Events (probe -> host)
const (
	MsgFrame MessageType = 0xC0
)

// IsCommand reports whether t is in the host -> probe command range
func (t MessageType) IsCommand() bool {
	return t < 0x80
}

// IsResponse reports whether t is a synchronous response
func (t MessageType) IsResponse() bool {
	return t >= 0x80 && t < 0xC0
}

// IsEvent reports whether t is an asynchronous event
func (t MessageType) IsEvent() bool {
	return t >= 0xC0
}

func (t MessageType) String() string {
	switch t {
	case MsgScanStart:
		return "scan_start"
	case MsgScanStop:
		return "scan_stop"
	case MsgPromiscOn:
		return "promisc_on"
	case MsgPromiscOff:
		return "promisc_off"
	case MsgPromiscQuery:
		return "promisc_query"
	case MsgAck:
		return "ack"
	case MsgError:
		return "error"
	case MsgPromiscStatus:
		return "promisc_status"
	case MsgFrame:
		return "frame"
	default:
		return "unknown(0x" + hex8(uint8(t)) + ")"
	}
}

// Header flags
const (
	FlagError uint8 = 1 << 0
	FlagAck   uint8 = 1 << 1
)

// ErrorCode is carried by error responses
type ErrorCode uint8

const (
	ErrUnknownCommand ErrorCode = 0x01
	ErrInvalidChannel ErrorCode = 0x02
	ErrRadioFailure   ErrorCode = 0x03
	ErrScanActive     ErrorCode = 0x04
	ErrInvalidFilter  ErrorCode = 0x05
)

func (c ErrorCode) String() string {
	switch c {
	case ErrUnknownCommand:
		return "unknown command"
	case ErrInvalidChannel:
		return "invalid channel"
	case ErrRadioFailure:
		return "radio failure"
	case ErrScanActive:
		return "scan active (stop scan first)"
	case ErrInvalidFilter:
		return "invalid filter"
	default:
		return "error 0x" + hex8(uint8(c))
	}
}

func hex8(v uint8) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[v>>4], digits[v&0x0F]})
}
