package core

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ScanSignal is the intent carried by a scan notification
type ScanSignal uint8

const (
	SignalStop  ScanSignal = 0
	SignalStart ScanSignal = 1
)

// ScanMode is the state of the channel scan state machine
type ScanMode uint32

const (
	ScanIdle ScanMode = iota
	ScanAll
	ScanSingle
)

func (m ScanMode) String() string {
	switch m {
	case ScanIdle:
		return "idle"
	case ScanAll:
		return "all"
	case ScanSingle:
		return "single"
	default:
		return "invalid"
	}
}

// Default scan timing
const (
	DefaultDwell  = 2500 * time.Millisecond
	DefaultRescan = 2500 * time.Millisecond
)

// Scanner drives the radio channel according to the shared scan state.
//
// Notifications go through a single-slot mailbox that keeps only the latest
// signal. The scanner never trusts the signal value: it always re-reads the
// shared state after waking.
type Scanner struct {
	state *State
	radio RadioDriver
	stats *Stats
	log   zerolog.Logger

	notify chan ScanSignal
	dwell  time.Duration
	rescan time.Duration

	next    int           // index into Channels for the next hop
	mode    atomic.Uint32 // ScanMode
	current atomic.Uint32 // last channel applied to the radio
}

// NewScanner creates an idle scanner. Zero durations select the defaults.
func NewScanner(state *State, radio RadioDriver, stats *Stats, log zerolog.Logger, dwell, rescan time.Duration) *Scanner {
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	if rescan <= 0 {
		rescan = DefaultRescan
	}
	return &Scanner{
		state:  state,
		radio:  radio,
		stats:  stats,
		log:    log,
		notify: make(chan ScanSignal, 1),
		dwell:  dwell,
		rescan: rescan,
	}
}

// Notify posts sig, replacing any signal not yet consumed. It never blocks.
func (s *Scanner) Notify(sig ScanSignal) {
	for {
		select {
		case s.notify <- sig:
			return
		default:
		}
		select {
		case <-s.notify:
		default:
		}
	}
}

// Mode returns the current state machine state
func (s *Scanner) Mode() ScanMode {
	return ScanMode(s.mode.Load())
}

// CurrentChannel returns the channel last applied to the radio, 0 before the first hop
func (s *Scanner) CurrentChannel() uint8 {
	return uint8(s.current.Load())
}

func (s *Scanner) setMode(m ScanMode) {
	if ScanMode(s.mode.Swap(uint32(m))) != m {
		s.log.Debug().Str("mode", m.String()).Msg("scan mode")
	}
}

// Run executes the state machine until ctx is cancelled
func (s *Scanner) Run(ctx context.Context) error {
	s.log.Debug().Msg("scan task started")
	defer s.log.Debug().Msg("scan task stopped")

	for {
		if !s.state.Scanning() {
			s.setMode(ScanIdle)
			select {
			case <-s.notify:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		var err error
		if s.state.Channel() == ChannelAll {
			err = s.scanAll(ctx)
		} else {
			err = s.scanSingle(ctx)
		}
		if err != nil {
			return err
		}
	}
}

// scanSingle holds the requested channel, re-asserting it every rescan
// period. It returns when scanning stops or the mode switches to all.
func (s *Scanner) scanSingle(ctx context.Context) error {
	s.setMode(ScanSingle)
	ch := s.state.Channel()
	s.tune(ch)

	for {
		signaled, err := s.wait(ctx, s.rescan)
		if err != nil {
			return err
		}
		if !s.state.Scanning() {
			return nil
		}
		next := s.state.Channel()
		if next == ChannelAll {
			return nil
		}
		if signaled {
			ch = next
		}
		s.tune(ch)
	}
}

// scanAll hops through the channel table, dwelling on each channel.
// Any notification ends the hop loop so the mode is re-evaluated.
func (s *Scanner) scanAll(ctx context.Context) error {
	s.setMode(ScanAll)

	for s.state.Scanning() {
		ch := Channels[s.next]
		s.next = (s.next + 1) % len(Channels)
		s.tune(ch)

		signaled, err := s.wait(ctx, s.dwell)
		if err != nil {
			return err
		}
		if signaled {
			return nil
		}
	}
	return nil
}

// wait blocks for a notification or until d elapses
func (s *Scanner) wait(ctx context.Context, d time.Duration) (bool, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-s.notify:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (s *Scanner) tune(ch uint8) {
	if err := s.radio.SetChannel(ch); err != nil {
		s.stats.radioErrors.Add(1)
		s.log.Warn().Err(err).Uint8("channel", ch).Msg("set channel failed")
		return
	}
	s.current.Store(uint32(ch))
}
