package protocol

import (
	"sync"
	"sync/atomic"
	"time"
)

// Write timeouts used by the probe
const (
	DelimiterTimeout = 100 * time.Millisecond
	FrameTimeout     = 500 * time.Millisecond
	ResponseTimeout  = 50 * time.Millisecond
	ReadTimeout      = 100 * time.Millisecond

	rxChunkSize    = 64
	responseEncMax = ResponseMax + ResponseMax/254 + 1
)

var delimiter = []byte{Delimiter}

// FrameHandler is called with each decoded message. The slice is only valid
// for the duration of the call.
type FrameHandler func(msg []byte)

// Transport handles the probe side of the framing protocol: it reassembles
// and decodes delimited frames from the link and writes delimited frames
// back to it.
type Transport struct {
	link    Link
	handler FrameHandler

	// Receive side, owned by the goroutine calling Poll/Receive
	accum   *Accumulator
	decoded [AccumulatorSize]byte
	rxBuf   [rxChunkSize]byte

	// Write side. One delimited frame is written at a time so the response
	// path and the transmit task never interleave bytes.
	writeMu sync.Mutex
	respEnc [responseEncMax]byte

	// Timeouts, overridable before use
	ReadTimeout      time.Duration
	DelimiterTimeout time.Duration
	FrameTimeout     time.Duration
	ResponseTimeout  time.Duration

	overflows   uint32 // atomic
	malformed   uint32 // atomic
	writeErrors uint32 // atomic
}

// NewTransport creates a new Transport instance
func NewTransport(link Link, handler FrameHandler) *Transport {
	return &Transport{
		link:             link,
		handler:          handler,
		accum:            NewAccumulator(AccumulatorSize),
		ReadTimeout:      ReadTimeout,
		DelimiterTimeout: DelimiterTimeout,
		FrameTimeout:     FrameTimeout,
		ResponseTimeout:  ResponseTimeout,
	}
}

// SetHandler replaces the frame handler. Must be called before Poll.
func (t *Transport) SetHandler(handler FrameHandler) {
	t.handler = handler
}

// Poll reads once from the link, waiting at most ReadTimeout, and processes
// whatever arrived. An idle link is not an error.
func (t *Transport) Poll() error {
	n, err := t.link.Read(t.rxBuf[:], t.ReadTimeout)
	if n > 0 {
		t.Receive(t.rxBuf[:n])
	}
	return err
}

// Receive processes raw link bytes
func (t *Transport) Receive(data []byte) {
	for _, b := range data {
		if b != Delimiter {
			resyncing := t.accum.Discarding()
			if !t.accum.Push(b) && !resyncing {
				atomic.AddUint32(&t.overflows, 1)
			}
			continue
		}

		frame := t.accum.Frame()
		if frame == nil {
			continue
		}
		n, err := Decode(t.decoded[:], frame)
		if err != nil || n == 0 {
			// Indistinguishable from line noise: dropped without a response
			atomic.AddUint32(&t.malformed, 1)
			continue
		}
		if t.handler != nil {
			t.handler(t.decoded[:n])
		}
	}
}

// WriteEncoded writes an already COBS-encoded message wrapped in delimiters.
// Each write is bounded by a timeout and not retried.
func (t *Transport) WriteEncoded(encoded []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.writeDelimited(encoded, t.FrameTimeout)
}

// SendRaw encodes a small message (at most ResponseMax bytes) and writes it
// directly, bypassing the transmit queue.
func (t *Transport) SendRaw(msg []byte) error {
	if len(msg) > ResponseMax {
		msg = msg[:ResponseMax]
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	n := Encode(t.respEnc[:], msg)
	return t.writeDelimited(t.respEnc[:n], t.ResponseTimeout)
}

// SendAck sends an ack response for cmd
func (t *Transport) SendAck(cmd MessageType) error {
	var buf [HeaderSize + 1]byte
	return t.SendRaw(AppendAck(buf[:0], cmd))
}

// SendError sends an error response for cmd
func (t *Transport) SendError(cmd MessageType, code ErrorCode) error {
	var buf [HeaderSize + 2]byte
	return t.SendRaw(AppendError(buf[:0], cmd, code))
}

// SendPromiscStatus sends the promiscuous-mode status
func (t *Transport) SendPromiscStatus(enabled bool) error {
	var buf [HeaderSize + 1]byte
	return t.SendRaw(AppendPromiscStatus(buf[:0], enabled))
}

// writeDelimited must be called with writeMu held
func (t *Transport) writeDelimited(encoded []byte, bodyTimeout time.Duration) error {
	delimTimeout := t.DelimiterTimeout
	if bodyTimeout < delimTimeout {
		delimTimeout = bodyTimeout
	}

	var first error
	record := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	_, err := t.link.Write(delimiter, delimTimeout)
	record(err)
	_, err = t.link.Write(encoded, bodyTimeout)
	record(err)
	_, err = t.link.Write(delimiter, delimTimeout)
	record(err)

	if first != nil {
		atomic.AddUint32(&t.writeErrors, 1)
	}
	return first
}

// TransportStats is a snapshot of transport counters
type TransportStats struct {
	Overflows   uint32
	Malformed   uint32
	WriteErrors uint32
}

// Stats returns the transport counters
func (t *Transport) Stats() TransportStats {
	return TransportStats{
		Overflows:   atomic.LoadUint32(&t.overflows),
		Malformed:   atomic.LoadUint32(&t.malformed),
		WriteErrors: atomic.LoadUint32(&t.writeErrors),
	}
}
