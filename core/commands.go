package core

import (
	"errors"

	"gosniff/protocol"
)

// registerCommands registers the probe command set
func (p *Probe) registerCommands() {
	p.commands.Register(protocol.MsgScanStart, "scan_start", p.handleScanStart)
	p.commands.Register(protocol.MsgScanStop, "scan_stop", p.handleScanStop)
	p.commands.Register(protocol.MsgPromiscOn, "promisc_on", p.handlePromiscOn)
	p.commands.Register(protocol.MsgPromiscOff, "promisc_off", p.handlePromiscOff)
	p.commands.Register(protocol.MsgPromiscQuery, "promisc_query", p.handlePromiscQuery)
}

func rejectCommand(cmd protocol.MessageType, code protocol.ErrorCode) error {
	return &protocol.CommandError{Command: cmd, Code: code}
}

// radioFailure records a driver error and converts it into an error response
func (p *Probe) radioFailure(cmd protocol.MessageType, op string, err error) error {
	p.stats.radioErrors.Add(1)
	p.log.Warn().Err(err).Str("cmd", cmd.String()).Str("op", op).Msg("radio driver failed")
	return rejectCommand(cmd, protocol.ErrRadioFailure)
}

// handleMessage validates a decoded message and dispatches it.
// Messages with a bad header are dropped without a response.
func (p *Probe) handleMessage(msg []byte) {
	hdr, payload, err := protocol.SplitMessage(msg)
	if err != nil {
		p.stats.rxMalformed.Add(1)
		p.log.Debug().Err(err).Int("len", len(msg)).Msg("dropping malformed message")
		return
	}

	p.stats.commands.Add(1)
	err = p.commands.Dispatch(hdr.Type, payload)
	if err == nil {
		return
	}

	var cmdErr *protocol.CommandError
	if errors.As(err, &cmdErr) {
		p.stats.commandErrors.Add(1)
		p.log.Debug().
			Str("cmd", cmdErr.Command.String()).
			Str("code", cmdErr.Code.String()).
			Msg("command rejected")
		p.transport.SendError(cmdErr.Command, cmdErr.Code)
		return
	}

	// Only response writes fail here; the transport has already counted them
	p.log.Debug().Err(err).Str("cmd", hdr.Type.String()).Msg("response not delivered")
}

// handleScanStart starts scanning one channel, or all channels when the
// channel is zero.
//
// Payload: channel u8, filter u8
func (p *Probe) handleScanStart(payload []byte) error {
	const cmd = protocol.MsgScanStart

	if len(payload) < 2 {
		return rejectCommand(cmd, protocol.ErrInvalidChannel)
	}
	ch := payload[0]
	filter := protocol.FilterMask(payload[1])

	if ch != ChannelAll && !IsValidChannel(ch) {
		return rejectCommand(cmd, protocol.ErrInvalidChannel)
	}
	if !filter.Valid() {
		return rejectCommand(cmd, protocol.ErrInvalidFilter)
	}

	if err := p.radio.SetPromiscuousFilter(filter.Effective()); err != nil {
		return p.radioFailure(cmd, "set_filter", err)
	}
	if !p.state.Promiscuous() {
		if err := p.radio.SetPromiscuous(true); err != nil {
			return p.radioFailure(cmd, "set_promiscuous", err)
		}
		p.state.SetPromiscuous(true)
	}

	p.state.SetChannel(ch)
	p.state.SetFilter(filter)
	p.state.SetScanning(true)
	p.scanner.Notify(SignalStart)

	p.log.Info().Uint8("channel", ch).Str("filter", filter.String()).Msg("scan started")
	return p.transport.SendAck(cmd)
}

func (p *Probe) handleScanStop(payload []byte) error {
	p.state.SetScanning(false)
	p.scanner.Notify(SignalStop)

	p.log.Info().Msg("scan stopped")
	return p.transport.SendAck(protocol.MsgScanStop)
}

// handlePromiscOn enables capture with the last requested filter
func (p *Probe) handlePromiscOn(payload []byte) error {
	const cmd = protocol.MsgPromiscOn

	if err := p.radio.SetPromiscuousFilter(p.state.Filter().Effective()); err != nil {
		return p.radioFailure(cmd, "set_filter", err)
	}
	if err := p.radio.SetPromiscuous(true); err != nil {
		return p.radioFailure(cmd, "set_promiscuous", err)
	}
	p.state.SetPromiscuous(true)

	return p.transport.SendAck(cmd)
}

// handlePromiscOff is refused while a scan is running
func (p *Probe) handlePromiscOff(payload []byte) error {
	const cmd = protocol.MsgPromiscOff

	if p.state.Scanning() {
		return rejectCommand(cmd, protocol.ErrScanActive)
	}
	if err := p.radio.SetPromiscuous(false); err != nil {
		return p.radioFailure(cmd, "set_promiscuous", err)
	}
	p.state.SetPromiscuous(false)

	return p.transport.SendAck(cmd)
}

func (p *Probe) handlePromiscQuery(payload []byte) error {
	return p.transport.SendPromiscStatus(p.state.Promiscuous())
}
