package protocol

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestStreamLinkReadTimeout(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	l := NewStreamLink(a, 4)
	defer l.Close()

	buf := make([]byte, 16)
	start := time.Now()
	n, err := l.Read(buf, 20*time.Millisecond)
	if n != 0 || err != nil {
		t.Errorf("Expected idle read, got n=%d err=%v", n, err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Read returned before its timeout")
	}
}

func TestStreamLinkReadPending(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	l := NewStreamLink(a, 4)
	defer l.Close()

	go b.Write([]byte{1, 2, 3, 4, 5})

	var got []byte
	buf := make([]byte, 2)
	deadline := time.Now().Add(time.Second)
	for len(got) < 5 && time.Now().Before(deadline) {
		n, err := l.Read(buf, 50*time.Millisecond)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		got = append(got, buf[:n]...)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4, 5}) {
		t.Errorf("Expected 0102030405, got %x", got)
	}
}

func TestStreamLinkWrite(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	l := NewStreamLink(a, 4)
	defer l.Close()

	if _, err := l.Write([]byte("probe"), 50*time.Millisecond); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	buf := make([]byte, 5)
	if _, err := io.ReadFull(b, buf); err != nil {
		t.Fatalf("ReadFull failed: %v", err)
	}
	if string(buf) != "probe" {
		t.Errorf("Expected probe, got %q", buf)
	}
}

func TestStreamLinkWriteTimeout(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	l := NewStreamLink(a, 1)
	defer l.Close()

	// Nobody reads b, so the writer stalls and the queue fills
	var err error
	for i := 0; i < 5 && err == nil; i++ {
		_, err = l.Write([]byte{0xAA}, 20*time.Millisecond)
	}
	if !errors.Is(err, ErrWriteTimeout) {
		t.Errorf("Expected ErrWriteTimeout, got %v", err)
	}
}

func TestStreamLinkPeerClosed(t *testing.T) {
	a, b := net.Pipe()
	l := NewStreamLink(a, 4)
	defer l.Close()

	b.Close()
	_, err := l.Read(make([]byte, 4), time.Second)
	if !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF after peer close, got %v", err)
	}
}
