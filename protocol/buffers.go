package protocol

import (
	"context"
	"sync/atomic"
)

// SlotState tracks which owner currently holds a slot
type SlotState uint32

const (
	SlotFree SlotState = iota
	SlotInUse
	SlotQueued
)

func (s SlotState) String() string {
	switch s {
	case SlotFree:
		return "free"
	case SlotInUse:
		return "in_use"
	case SlotQueued:
		return "queued"
	default:
		return "invalid"
	}
}

// Slot is one fixed-capacity buffer owned by a Pool
type Slot struct {
	id    int
	state uint32 // atomic SlotState
	Buf   [SlotSize]byte
}

// ID returns the slot index within its pool
func (s *Slot) ID() int {
	return s.id
}

// State returns the current ownership state
func (s *Slot) State() SlotState {
	return SlotState(atomic.LoadUint32(&s.state))
}

func (s *Slot) transition(from, to SlotState) bool {
	return atomic.CompareAndSwapUint32(&s.state, uint32(from), uint32(to))
}

// Pool is a fixed set of slots with a non-blocking free-list.
// The free-list channel has capacity equal to the slot count, so a release
// can only fail if a slot is returned twice.
type Pool struct {
	slots []Slot
	free  chan *Slot
}

// NewPool creates a pool of n slots, all free
func NewPool(n int) *Pool {
	if n <= 0 {
		n = PoolSize
	}
	p := &Pool{
		slots: make([]Slot, n),
		free:  make(chan *Slot, n),
	}
	for i := range p.slots {
		p.slots[i].id = i
		p.free <- &p.slots[i]
	}
	return p
}

// Acquire pops a free slot without blocking.
// Returns false immediately when the pool is empty.
func (p *Pool) Acquire() (*Slot, bool) {
	select {
	case s := <-p.free:
		if !s.transition(SlotFree, SlotInUse) {
			panic("protocol: acquired slot was not free")
		}
		return s, true
	default:
		return nil, false
	}
}

// Release returns a slot to the free-list without blocking.
// Releasing a slot that is already free is a programming error and panics.
func (p *Pool) Release(s *Slot) {
	if !s.transition(SlotInUse, SlotFree) && !s.transition(SlotQueued, SlotFree) {
		panic("protocol: double release of slot")
	}
	select {
	case p.free <- s:
	default:
		panic("protocol: free-list overflow")
	}
}

// Cap returns the number of slots
func (p *Pool) Cap() int {
	return len(p.slots)
}

// Available returns the number of slots currently on the free-list
func (p *Pool) Available() int {
	return len(p.free)
}

// Counts returns how many slots are in each state
func (p *Pool) Counts() (free, inUse, queued int) {
	for i := range p.slots {
		switch p.slots[i].State() {
		case SlotFree:
			free++
		case SlotInUse:
			inUse++
		case SlotQueued:
			queued++
		}
	}
	return
}

// TxItem is a filled slot handed to the transmit consumer
type TxItem struct {
	Slot *Slot
	Len  int
}

// Bytes returns the message held by the item
func (it TxItem) Bytes() []byte {
	return it.Slot.Buf[:it.Len]
}

// TxQueue is a bounded FIFO of filled slots between the capture producer
// and the single transmit consumer.
type TxQueue struct {
	pool  *Pool
	items chan TxItem
}

// NewTxQueue creates a transmit queue with the same depth as the pool
func NewTxQueue(pool *Pool) *TxQueue {
	return NewTxQueueDepth(pool, pool.Cap())
}

// NewTxQueueDepth creates a transmit queue holding at most depth items
func NewTxQueueDepth(pool *Pool, depth int) *TxQueue {
	if depth <= 0 || depth > pool.Cap() {
		depth = pool.Cap()
	}
	return &TxQueue{
		pool:  pool,
		items: make(chan TxItem, depth),
	}
}

// TrySend queues a filled slot without blocking. When the queue is full the
// slot is released back to the pool and false is returned.
func (q *TxQueue) TrySend(s *Slot, n int) bool {
	if !s.transition(SlotInUse, SlotQueued) {
		panic("protocol: queued slot was not in use")
	}
	select {
	case q.items <- TxItem{Slot: s, Len: n}:
		return true
	default:
		q.pool.Release(s)
		return false
	}
}

// Receive blocks until an item is available or ctx is done
func (q *TxQueue) Receive(ctx context.Context) (TxItem, error) {
	select {
	case it := <-q.items:
		return it, nil
	case <-ctx.Done():
		return TxItem{}, ctx.Err()
	}
}

// Len returns the number of queued items
func (q *TxQueue) Len() int {
	return len(q.items)
}

// Done releases the item's slot back to the pool
func (q *TxQueue) Done(it TxItem) {
	q.pool.Release(it.Slot)
}

// Accumulator collects stream bytes between delimiters into a bounded buffer.
// On overflow everything collected is discarded and input is ignored until
// the next delimiter.
type Accumulator struct {
	buf        []byte
	n          int
	discarding bool
}

// NewAccumulator creates an accumulator with the given capacity
func NewAccumulator(capacity int) *Accumulator {
	return &Accumulator{buf: make([]byte, capacity)}
}

// Push adds a non-delimiter byte. It returns false if the byte overflowed
// the buffer or was dropped while resynchronizing.
func (a *Accumulator) Push(b byte) bool {
	if a.discarding {
		return false
	}
	if a.n >= len(a.buf) {
		a.n = 0
		a.discarding = true
		return false
	}
	a.buf[a.n] = b
	a.n++
	return true
}

// Frame ends the current frame at a delimiter. It returns the collected
// bytes, or nil when the frame was empty or discarded. The returned slice is
// only valid until the next Push.
func (a *Accumulator) Frame() []byte {
	if a.discarding {
		a.discarding = false
		a.n = 0
		return nil
	}
	if a.n == 0 {
		return nil
	}
	frame := a.buf[:a.n]
	a.n = 0
	return frame
}

// Len returns the number of collected bytes
func (a *Accumulator) Len() int {
	return a.n
}

// Discarding reports whether input is being dropped until the next delimiter
func (a *Accumulator) Discarding() bool {
	return a.discarding
}

// Cap returns the accumulator capacity
func (a *Accumulator) Cap() int {
	return len(a.buf)
}

// Reset clears the buffer
func (a *Accumulator) Reset() {
	a.n = 0
	a.discarding = false
}
