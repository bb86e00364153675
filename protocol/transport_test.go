package protocol

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeLink records writes and serves queued reads
type fakeLink struct {
	mu       sync.Mutex
	reads    [][]byte
	written  bytes.Buffer
	writeErr error
}

func (l *fakeLink) Read(p []byte, timeout time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.reads) == 0 {
		return 0, nil
	}
	n := copy(p, l.reads[0])
	l.reads[0] = l.reads[0][n:]
	if len(l.reads[0]) == 0 {
		l.reads = l.reads[1:]
	}
	return n, nil
}

func (l *fakeLink) Write(p []byte, timeout time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeErr != nil {
		return 0, l.writeErr
	}
	return l.written.Write(p)
}

func (l *fakeLink) bytes() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte(nil), l.written.Bytes()...)
}

func frameBytes(msg []byte) []byte {
	out := []byte{Delimiter}
	out = AppendEncode(out, msg)
	return append(out, Delimiter)
}

type collector struct {
	msgs [][]byte
}

func (c *collector) handle(msg []byte) {
	c.msgs = append(c.msgs, append([]byte(nil), msg...))
}

func TestTransportDispatch(t *testing.T) {
	var c collector
	tr := NewTransport(&fakeLink{}, c.handle)

	cmd := AppendCommand(nil, MsgScanStart, []byte{6})
	tr.Receive(frameBytes(cmd))

	if len(c.msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(c.msgs))
	}
	if !bytes.Equal(c.msgs[0], cmd) {
		t.Errorf("Expected %x, got %x", cmd, c.msgs[0])
	}
}

func TestTransportSplitChunks(t *testing.T) {
	var c collector
	tr := NewTransport(&fakeLink{}, c.handle)

	stream := frameBytes(AppendCommand(nil, MsgPromiscQuery, nil))
	stream = append(stream, frameBytes(AppendCommand(nil, MsgScanStop, nil))...)
	for _, b := range stream {
		tr.Receive([]byte{b})
	}

	if len(c.msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(c.msgs))
	}
	if MessageType(c.msgs[0][0]) != MsgPromiscQuery || MessageType(c.msgs[1][0]) != MsgScanStop {
		t.Errorf("Unexpected message order %x %x", c.msgs[0], c.msgs[1])
	}
}

func TestTransportOverflowResync(t *testing.T) {
	var c collector
	tr := NewTransport(&fakeLink{}, c.handle)

	tr.Receive(bytes.Repeat([]byte{0x01}, 130))
	tr.Receive(frameBytes(AppendCommand(nil, MsgPromiscQuery, nil)))

	if len(c.msgs) != 1 {
		t.Fatalf("Expected exactly 1 message after overflow, got %d", len(c.msgs))
	}
	if MessageType(c.msgs[0][0]) != MsgPromiscQuery {
		t.Errorf("Expected promisc query, got %x", c.msgs[0])
	}
	stats := tr.Stats()
	if stats.Overflows != 1 {
		t.Errorf("Expected 1 overflow, got %d", stats.Overflows)
	}
}

func TestTransportMalformedDropped(t *testing.T) {
	var c collector
	link := &fakeLink{}
	tr := NewTransport(link, c.handle)

	tr.Receive([]byte{0x00, 0x05, 0x01, 0x02, 0x00})
	tr.Receive([]byte{0x00, 0x00, 0x00})

	if len(c.msgs) != 0 {
		t.Errorf("Expected no messages, got %d", len(c.msgs))
	}
	if tr.Stats().Malformed != 1 {
		t.Errorf("Expected 1 malformed frame, got %d", tr.Stats().Malformed)
	}
	if len(link.bytes()) != 0 {
		t.Error("Malformed input must not produce a response")
	}
}

func TestTransportPoll(t *testing.T) {
	var c collector
	link := &fakeLink{reads: [][]byte{frameBytes(AppendCommand(nil, MsgPromiscOff, nil))}}
	tr := NewTransport(link, c.handle)

	for i := 0; i < 3; i++ {
		if err := tr.Poll(); err != nil {
			t.Fatalf("Poll failed: %v", err)
		}
	}
	if len(c.msgs) != 1 {
		t.Errorf("Expected 1 message, got %d", len(c.msgs))
	}
}

func TestTransportSendAck(t *testing.T) {
	link := &fakeLink{}
	tr := NewTransport(link, nil)

	if err := tr.SendAck(MsgScanStart); err != nil {
		t.Fatalf("SendAck failed: %v", err)
	}
	expected := []byte{0x00, 0x04, 0x81, 0x02, 0x01, 0x02, 0x01, 0x00}
	if !bytes.Equal(link.bytes(), expected) {
		t.Errorf("Expected %x, got %x", expected, link.bytes())
	}
}

func TestTransportSendErrorRoundTrip(t *testing.T) {
	link := &fakeLink{}
	tr := NewTransport(link, nil)
	tr.SendError(MsgScanStart, ErrInvalidChannel)

	var c collector
	NewTransport(&fakeLink{}, c.handle).Receive(link.bytes())
	if len(c.msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(c.msgs))
	}
	expected := []byte{0x82, 0x01, 0x02, 0x00, 0x01, 0x02}
	if !bytes.Equal(c.msgs[0], expected) {
		t.Errorf("Expected %x, got %x", expected, c.msgs[0])
	}
}

func TestTransportWriteError(t *testing.T) {
	failure := errors.New("uart busy")
	tr := NewTransport(&fakeLink{writeErr: failure}, nil)

	if err := tr.WriteEncoded([]byte{0x01}); !errors.Is(err, failure) {
		t.Errorf("Expected write error, got %v", err)
	}
	if tr.Stats().WriteErrors != 1 {
		t.Errorf("Expected 1 write error, got %d", tr.Stats().WriteErrors)
	}
}

func TestTransportConcurrentWritesDoNotInterleave(t *testing.T) {
	link := &fakeLink{}
	tr := NewTransport(link, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tr.SendAck(MsgScanStop)
			}
		}()
	}
	wg.Wait()

	var c collector
	NewTransport(&fakeLink{}, c.handle).Receive(link.bytes())
	if len(c.msgs) != 400 {
		t.Fatalf("Expected 400 messages, got %d", len(c.msgs))
	}
	for _, msg := range c.msgs {
		if !bytes.Equal(msg, AppendAck(nil, MsgScanStop)) {
			t.Fatalf("Corrupted message %x", msg)
		}
	}
}
