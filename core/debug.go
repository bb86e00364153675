package core

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Stats counts what happened to captured frames and commands.
// All counters are updated lock-free, including from the capture context.
type Stats struct {
	captured         atomic.Uint32 // frames queued for transmit
	droppedIdle      atomic.Uint32 // delivered while not scanning
	droppedOversize  atomic.Uint32
	droppedPoolEmpty atomic.Uint32
	droppedQueueFull atomic.Uint32
	transmitted      atomic.Uint32
	txWriteErrors    atomic.Uint32
	commands         atomic.Uint32
	commandErrors    atomic.Uint32
	rxMalformed      atomic.Uint32 // decoded messages with a bad header
	radioErrors      atomic.Uint32
}

// StatsSnapshot is a point-in-time copy of the probe counters
type StatsSnapshot struct {
	Captured         uint32
	DroppedIdle      uint32
	DroppedOversize  uint32
	DroppedPoolEmpty uint32
	DroppedQueueFull uint32
	Transmitted      uint32
	TxWriteErrors    uint32
	RxOverflows      uint32
	RxMalformed      uint32
	Commands         uint32
	CommandErrors    uint32
	RadioErrors      uint32
	PoolFree         int
	QueueLen         int
}

// Dropped returns the number of captured frames that never reached the queue
func (s StatsSnapshot) Dropped() uint32 {
	return s.DroppedIdle + s.DroppedOversize + s.DroppedPoolEmpty + s.DroppedQueueFull
}

// Stats returns a snapshot of the probe counters
func (p *Probe) Stats() StatsSnapshot {
	ts := p.transport.Stats()
	return StatsSnapshot{
		Captured:         p.stats.captured.Load(),
		DroppedIdle:      p.stats.droppedIdle.Load(),
		DroppedOversize:  p.stats.droppedOversize.Load(),
		DroppedPoolEmpty: p.stats.droppedPoolEmpty.Load(),
		DroppedQueueFull: p.stats.droppedQueueFull.Load(),
		Transmitted:      p.stats.transmitted.Load(),
		TxWriteErrors:    p.stats.txWriteErrors.Load(),
		RxOverflows:      ts.Overflows,
		RxMalformed:      ts.Malformed + p.stats.rxMalformed.Load(),
		Commands:         p.stats.commands.Load(),
		CommandErrors:    p.stats.commandErrors.Load(),
		RadioErrors:      p.stats.radioErrors.Load(),
		PoolFree:         p.pool.Available(),
		QueueLen:         p.txq.Len(),
	}
}

// DumpStats writes the probe counters to the log
func (p *Probe) DumpStats() {
	s := p.Stats()
	p.log.Info().
		Uint32("captured", s.Captured).
		Uint32("transmitted", s.Transmitted).
		Uint32("dropped_idle", s.DroppedIdle).
		Uint32("dropped_oversize", s.DroppedOversize).
		Uint32("dropped_pool_empty", s.DroppedPoolEmpty).
		Uint32("dropped_queue_full", s.DroppedQueueFull).
		Uint32("tx_write_errors", s.TxWriteErrors).
		Uint32("rx_overflows", s.RxOverflows).
		Uint32("rx_malformed", s.RxMalformed).
		Uint32("commands", s.Commands).
		Uint32("command_errors", s.CommandErrors).
		Uint32("radio_errors", s.RadioErrors).
		Int("pool_free", s.PoolFree).
		Int("queue_len", s.QueueLen).
		Str("scan_mode", p.scanner.Mode().String()).
		Uint8("channel", p.scanner.CurrentChannel()).
		Msg("probe stats")
}

// componentLogger tags a logger with the component name
func componentLogger(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
