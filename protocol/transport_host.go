package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrTransportStopped is returned once the host transport is closed
	ErrTransportStopped = errors.New("transport stopped")
	// ErrResponseTimeout is returned when no response arrives in time
	ErrResponseTimeout = errors.New("response timeout")
)

// DefaultCommandTimeout bounds how long the host waits for a command response
const DefaultCommandTimeout = 3 * time.Second

// hostAccumulatorSize fits the largest encoded frame event
var hostAccumulatorSize = EncodedMaxLen(SlotSize) + 1

// Message is a decoded message received by the host
type Message struct {
	Header  Header
	Payload []byte
}

// EventHandler is called from the read loop for every event message
type EventHandler func(msg *Message)

// HostTransport handles the framing protocol from the host side.
// It sends commands, waits for their responses and delivers events.
type HostTransport struct {
	// Serial I/O
	port io.ReadWriteCloser

	// Reassembly
	accum   *Accumulator
	decoded []byte

	// Responses are matched to the single outstanding command
	responseChan chan *Message
	eventHandler EventHandler

	// Mutexes for thread-safe operations
	writeMutex   sync.Mutex
	commandMutex sync.Mutex
	handlerMutex sync.RWMutex

	malformed uint32 // atomic

	// Stop channel for graceful shutdown
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewHostTransport creates a new host-side transport and starts its reader
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		accum:        NewAccumulator(hostAccumulatorSize),
		decoded:      make([]byte, hostAccumulatorSize),
		responseChan: make(chan *Message, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}

	go t.readLoop()

	return t
}

// SetEventHandler sets the callback for asynchronous events
func (t *HostTransport) SetEventHandler(handler EventHandler) {
	t.handlerMutex.Lock()
	defer t.handlerMutex.Unlock()
	t.eventHandler = handler
}

// SendCommand sends a command and waits for its response
func (t *HostTransport) SendCommand(cmd MessageType, payload []byte) (*Message, error) {
	return t.SendCommandWithTimeout(cmd, payload, DefaultCommandTimeout)
}

// SendCommandWithTimeout sends a command with a custom timeout. An error
// response is returned as a *CommandError.
func (t *HostTransport) SendCommandWithTimeout(cmd MessageType, payload []byte, timeout time.Duration) (*Message, error) {
	if len(payload) > ResponseMax-HeaderSize {
		return nil, fmt.Errorf("command payload too long: %d bytes", len(payload))
	}

	t.commandMutex.Lock()
	defer t.commandMutex.Unlock()

	// Drop stale responses from earlier timed-out commands
	for len(t.responseChan) > 0 {
		<-t.responseChan
	}

	if err := t.writeMessage(AppendCommand(nil, cmd, payload)); err != nil {
		return nil, fmt.Errorf("failed to write command %s: %w", cmd, err)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case resp := <-t.responseChan:
			if !matchesCommand(cmd, resp) {
				continue
			}
			if resp.Header.Type == MsgError {
				code := ErrorCode(0)
				if len(resp.Payload) >= 2 {
					code = ErrorCode(resp.Payload[1])
				}
				return resp, &CommandError{Command: cmd, Code: code}
			}
			return resp, nil

		case <-deadline.C:
			return nil, fmt.Errorf("command %s: %w after %v", cmd, ErrResponseTimeout, timeout)

		case <-t.stopChan:
			return nil, ErrTransportStopped
		}
	}
}

// matchesCommand reports whether resp answers cmd
func matchesCommand(cmd MessageType, resp *Message) bool {
	switch resp.Header.Type {
	case MsgAck, MsgError:
		return len(resp.Payload) >= 1 && MessageType(resp.Payload[0]) == cmd
	case MsgPromiscStatus:
		return cmd == MsgPromiscQuery
	default:
		return false
	}
}

// writeMessage COBS-encodes msg and writes it wrapped in delimiters
func (t *HostTransport) writeMessage(msg []byte) error {
	frame := make([]byte, 0, EncodedMaxLen(len(msg))+2)
	frame = append(frame, Delimiter)
	frame = AppendEncode(frame, msg)
	frame = append(frame, Delimiter)

	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	n, err := t.port.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(frame))
	}
	return nil
}

// readLoop continuously reads from the port and processes messages
func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buffer := make([]byte, 4096)

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buffer)
		if n > 0 {
			t.process(buffer[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				t.stop()
				return
			}
			select {
			case <-t.stopChan:
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
}

// process reassembles delimited frames and dispatches them
func (t *HostTransport) process(data []byte) {
	for _, b := range data {
		if b != Delimiter {
			t.accum.Push(b)
			continue
		}
		frame := t.accum.Frame()
		if frame == nil {
			continue
		}
		n, err := Decode(t.decoded, frame)
		if err != nil {
			atomic.AddUint32(&t.malformed, 1)
			continue
		}
		hdr, payload, err := SplitMessage(t.decoded[:n])
		if err != nil {
			atomic.AddUint32(&t.malformed, 1)
			continue
		}
		msg := &Message{Header: hdr, Payload: append([]byte(nil), payload...)}
		t.dispatchMessage(msg)
	}
}

// dispatchMessage routes a message to the response channel or event handler
func (t *HostTransport) dispatchMessage(msg *Message) {
	if msg.Header.Type.IsEvent() {
		t.handlerMutex.RLock()
		handler := t.eventHandler
		t.handlerMutex.RUnlock()
		if handler != nil {
			handler(msg)
		}
		return
	}

	if !msg.Header.Type.IsResponse() {
		return
	}

	select {
	case t.responseChan <- msg:
	default:
		// Response channel full, drop oldest
		select {
		case <-t.responseChan:
		default:
		}
		t.responseChan <- msg
	}
}

func (t *HostTransport) stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
}

// Close stops the transport and closes the port
func (t *HostTransport) Close() error {
	t.stop()
	var err error
	if t.port != nil {
		err = t.port.Close()
	}
	<-t.doneChan // Wait for read loop to finish
	return err
}

// Malformed returns the number of frames dropped for bad framing
func (t *HostTransport) Malformed() uint32 {
	return atomic.LoadUint32(&t.malformed)
}

// Done is closed when the read loop exits
func (t *HostTransport) Done() <-chan struct{} {
	return t.doneChan
}
