// Package core implements the sniffer probe runtime: the capture producer,
// the transmit and receive tasks, command dispatch and the channel scan
// state machine.
package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"gosniff/protocol"
)

// Config holds the probe runtime settings. Zero values select defaults.
type Config struct {
	PoolSize int

	Dwell  time.Duration // Time on each channel when scanning all channels
	Rescan time.Duration // Period for re-asserting a single scan channel

	ReadTimeout      time.Duration
	DelimiterTimeout time.Duration
	FrameTimeout     time.Duration
	ResponseTimeout  time.Duration

	Logger *zerolog.Logger // nil disables logging
}

// Probe ties the radio, the buffer pool and the host link together
type Probe struct {
	radio     RadioDriver
	transport *protocol.Transport
	pool      *protocol.Pool
	txq       *protocol.TxQueue
	commands  *CommandRegistry
	scanner   *Scanner

	state State
	stats Stats
	seq   atomic.Uint32
	log   zerolog.Logger

	txEnc []byte // transmit scratch, owned by txTask
}

// New creates a probe talking to the host over link
func New(link protocol.Link, radio RadioDriver, cfg Config) *Probe {
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = protocol.PoolSize
	}

	p := &Probe{
		radio:    radio,
		pool:     protocol.NewPool(cfg.PoolSize),
		commands: NewCommandRegistry(),
		log:      componentLogger(log, "probe"),
		txEnc:    make([]byte, protocol.EncodedMaxLen(protocol.SlotSize)),
	}
	p.txq = protocol.NewTxQueue(p.pool)
	p.scanner = NewScanner(&p.state, radio, &p.stats, componentLogger(log, "scan"), cfg.Dwell, cfg.Rescan)

	p.transport = protocol.NewTransport(link, p.handleMessage)
	if cfg.ReadTimeout > 0 {
		p.transport.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.DelimiterTimeout > 0 {
		p.transport.DelimiterTimeout = cfg.DelimiterTimeout
	}
	if cfg.FrameTimeout > 0 {
		p.transport.FrameTimeout = cfg.FrameTimeout
	}
	if cfg.ResponseTimeout > 0 {
		p.transport.ResponseTimeout = cfg.ResponseTimeout
	}

	p.registerCommands()
	return p
}

// Run attaches the capture handler and runs the transmit, receive and scan
// tasks until ctx is cancelled or one of them fails.
func (p *Probe) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.radio.SetCaptureHandler(p.HandleCapture)
	defer p.radio.SetCaptureHandler(nil)

	tasks := []func(context.Context) error{
		p.txTask,
		p.rxTask,
		p.scanner.Run,
	}

	errc := make(chan error, len(tasks))
	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(run func(context.Context) error) {
			defer wg.Done()
			errc <- run(ctx)
		}(task)
	}

	p.log.Info().Int("pool", p.pool.Cap()).Msg("probe running")

	err := <-errc
	cancel()
	wg.Wait()

	p.log.Info().Err(err).Msg("probe stopped")
	return err
}

// State returns the shared scan state
func (p *Probe) State() *State {
	return &p.state
}

// Scanner returns the channel scan state machine
func (p *Probe) Scanner() *Scanner {
	return p.scanner
}

// Commands returns the command registry
func (p *Probe) Commands() *CommandRegistry {
	return p.commands
}

// Pool returns the frame buffer pool
func (p *Probe) Pool() *protocol.Pool {
	return p.pool
}
