package protocol

import (
	"errors"
	"io"
	"sync"
	"time"
)

var (
	// ErrWriteTimeout is returned when a write could not be handed to the link in time
	ErrWriteTimeout = errors.New("link write timeout")
	// ErrLinkClosed is returned after the link has been closed
	ErrLinkClosed = errors.New("link closed")
)

// Link is a byte-oriented point-to-point transport with bounded reads and writes.
type Link interface {
	// Read reads available bytes, waiting at most timeout.
	// A timeout with no data returns 0 and a nil error.
	Read(p []byte, timeout time.Duration) (int, error)

	// Write writes p, waiting at most timeout for the link to accept it.
	Write(p []byte, timeout time.Duration) (int, error)
}

// StreamLink adapts a blocking io.ReadWriter (a serial port, a pipe) into a
// Link. A reader goroutine feeds received chunks to Read and a writer
// goroutine drains a bounded transmit queue, so neither side of the probe
// ever blocks past its timeout.
type StreamLink struct {
	rw io.ReadWriter

	chunks  chan []byte
	pending []byte
	writes  chan []byte

	readErr  error
	readDone chan struct{}

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewStreamLink starts a link over rw. txDepth bounds the number of writes
// that can be queued before Write starts timing out.
func NewStreamLink(rw io.ReadWriter, txDepth int) *StreamLink {
	if txDepth <= 0 {
		txDepth = 64
	}
	l := &StreamLink{
		rw:       rw,
		chunks:   make(chan []byte, 16),
		writes:   make(chan []byte, txDepth),
		readDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
	l.wg.Add(2)
	go l.readLoop()
	go l.writeLoop()
	return l
}

// Read implements Link
func (l *StreamLink) Read(p []byte, timeout time.Duration) (int, error) {
	if len(l.pending) > 0 {
		n := copy(p, l.pending)
		l.pending = l.pending[n:]
		return n, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case chunk := <-l.chunks:
		n := copy(p, chunk)
		l.pending = chunk[n:]
		return n, nil
	case <-timer.C:
		return 0, nil
	case <-l.readDone:
		return 0, l.readErr
	case <-l.done:
		return 0, ErrLinkClosed
	}
}

// Write implements Link. The data is copied and queued for the writer goroutine.
func (l *StreamLink) Write(p []byte, timeout time.Duration) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)

	select {
	case l.writes <- buf:
		return len(p), nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case l.writes <- buf:
		return len(p), nil
	case <-timer.C:
		return 0, ErrWriteTimeout
	case <-l.done:
		return 0, ErrLinkClosed
	}
}

// Close stops the link. If the underlying stream is an io.Closer it is
// closed too, which unblocks the reader goroutine.
func (l *StreamLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		if c, ok := l.rw.(io.Closer); ok {
			err = c.Close()
		}
		l.wg.Wait()
	})
	return err
}

func (l *StreamLink) readLoop() {
	defer l.wg.Done()

	for {
		buf := make([]byte, 256)
		n, err := l.rw.Read(buf)
		if n > 0 {
			select {
			case l.chunks <- buf[:n]:
			case <-l.done:
				return
			}
		}
		if err != nil {
			l.readErr = err
			close(l.readDone)
			return
		}
	}
}

func (l *StreamLink) writeLoop() {
	defer l.wg.Done()

	for {
		select {
		case buf := <-l.writes:
			// Best effort: a failed write is not retried
			_, _ = l.rw.Write(buf)
		case <-l.done:
			return
		}
	}
}
