package core

import "gosniff/protocol"

// Capture is one frame delivered by the radio in promiscuous mode
type Capture struct {
	Payload    []byte // Raw 802.11 frame
	SigLen     uint16 // Bytes of Payload that belong to the frame
	Timestamp  uint32 // Radio receive timestamp (us)
	Channel    uint8
	RSSI       int8
	NoiseFloor int8
	PktType    protocol.PacketType
	RxState    uint8
	Rate       uint8
}

// CaptureHandler receives captured frames. It is called from the radio's
// delivery context and must not block.
type CaptureHandler func(c *Capture)

// RadioDriver is the abstract radio interface that core code uses.
// Platform-specific implementations handle the actual hardware.
type RadioDriver interface {
	// SetChannel tunes the radio to a primary channel
	SetChannel(ch uint8) error

	// SetPromiscuousFilter selects the frame classes delivered in promiscuous mode
	SetPromiscuousFilter(mask protocol.FilterMask) error

	// SetPromiscuous enables or disables promiscuous capture
	SetPromiscuous(enable bool) error

	// SetCaptureHandler registers the capture callback. A nil handler
	// detaches it.
	SetCaptureHandler(h CaptureHandler)
}
