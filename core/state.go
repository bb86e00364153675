package core

import (
	"sync/atomic"

	"gosniff/protocol"
)

// State holds the scan control flags shared between the command dispatcher,
// the scan task and the capture producer. Each field is written only by the
// dispatcher and read lock-free everywhere else.
type State struct {
	scanning    atomic.Bool
	promiscuous atomic.Bool
	channel     atomic.Uint32 // requested scan channel, ChannelAll for all
	filter      atomic.Uint32 // protocol.FilterMask as sent by the host
}

func (s *State) Scanning() bool {
	return s.scanning.Load()
}

func (s *State) SetScanning(v bool) {
	s.scanning.Store(v)
}

func (s *State) Promiscuous() bool {
	return s.promiscuous.Load()
}

func (s *State) SetPromiscuous(v bool) {
	s.promiscuous.Store(v)
}

// Channel returns the requested scan channel
func (s *State) Channel() uint8 {
	return uint8(s.channel.Load())
}

func (s *State) SetChannel(ch uint8) {
	s.channel.Store(uint32(ch))
}

// Filter returns the last filter requested by the host
func (s *State) Filter() protocol.FilterMask {
	return protocol.FilterMask(s.filter.Load())
}

func (s *State) SetFilter(m protocol.FilterMask) {
	s.filter.Store(uint32(m))
}
