package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosniff/protocol"
)

func command(t protocol.MessageType, payload ...byte) []byte {
	return protocol.AppendCommand(nil, t, payload)
}

// lastResponse dispatches msg and returns the single response it produced
func lastResponse(t *testing.T, p *Probe, link *fakeLink, msg []byte) []byte {
	t.Helper()
	link.reset()
	p.handleMessage(msg)
	msgs := link.messages(t)
	require.Len(t, msgs, 1)
	return msgs[0]
}

func TestScanStartInvalidChannel(t *testing.T) {
	p, radio, link := newTestProbe(t)

	resp := lastResponse(t, p, link, command(protocol.MsgScanStart, 14, 0))

	assert.Equal(t, protocol.AppendError(nil, protocol.MsgScanStart, protocol.ErrInvalidChannel), resp)
	assert.Equal(t, []byte{0x01, 0x02}, resp[protocol.HeaderSize:])
	assert.False(t, p.State().Scanning())
	_, promisc := radio.snapshot()
	assert.False(t, promisc)
}

func TestScanStartInvalidFilter(t *testing.T) {
	p, _, link := newTestProbe(t)

	resp := lastResponse(t, p, link, command(protocol.MsgScanStart, 0, 0x08))

	assert.Equal(t, protocol.AppendError(nil, protocol.MsgScanStart, protocol.ErrInvalidFilter), resp)
	assert.False(t, p.State().Scanning())
	assert.False(t, p.State().Promiscuous())
	assert.Equal(t, uint8(0), p.State().Channel())
}

func TestScanStartShortPayload(t *testing.T) {
	p, _, link := newTestProbe(t)

	resp := lastResponse(t, p, link, command(protocol.MsgScanStart, 6))

	assert.Equal(t, protocol.AppendError(nil, protocol.MsgScanStart, protocol.ErrInvalidChannel), resp)
	assert.False(t, p.State().Scanning())
}

func TestScanStartSingleChannel(t *testing.T) {
	p, radio, link := newTestProbe(t)

	resp := lastResponse(t, p, link, command(protocol.MsgScanStart, 6, uint8(protocol.FilterMgmt)))

	assert.Equal(t, protocol.AppendAck(nil, protocol.MsgScanStart), resp)
	assert.True(t, p.State().Scanning())
	assert.True(t, p.State().Promiscuous())
	assert.Equal(t, uint8(6), p.State().Channel())
	assert.Equal(t, protocol.FilterMgmt, p.State().Filter())

	filter, promisc := radio.snapshot()
	assert.Equal(t, protocol.FilterMgmt, filter)
	assert.True(t, promisc)
}

func TestScanStartAllChannelsDefaultFilter(t *testing.T) {
	p, radio, link := newTestProbe(t)

	resp := lastResponse(t, p, link, command(protocol.MsgScanStart, 0, 0))

	assert.Equal(t, protocol.AppendAck(nil, protocol.MsgScanStart), resp)
	assert.Equal(t, uint8(ChannelAll), p.State().Channel())
	filter, _ := radio.snapshot()
	assert.Equal(t, protocol.FilterAll, filter)
}

func TestScanStartRadioFailure(t *testing.T) {
	p, radio, link := newTestProbe(t)
	radio.failFilter = errors.New("driver busy")

	resp := lastResponse(t, p, link, command(protocol.MsgScanStart, 6, 0))

	assert.Equal(t, protocol.AppendError(nil, protocol.MsgScanStart, protocol.ErrRadioFailure), resp)
	assert.False(t, p.State().Scanning())
	assert.Equal(t, uint32(1), p.Stats().RadioErrors)
}

func TestScanStop(t *testing.T) {
	p, _, link := newTestProbe(t)
	lastResponse(t, p, link, command(protocol.MsgScanStart, 0, 0))

	resp := lastResponse(t, p, link, command(protocol.MsgScanStop))

	assert.Equal(t, protocol.AppendAck(nil, protocol.MsgScanStop), resp)
	assert.False(t, p.State().Scanning())
	assert.True(t, p.State().Promiscuous(), "stopping a scan leaves promiscuous mode on")

	// Stop is acked even when nothing is running
	resp = lastResponse(t, p, link, command(protocol.MsgScanStop))
	assert.Equal(t, protocol.AppendAck(nil, protocol.MsgScanStop), resp)
}

func TestPromiscOffWhileScanning(t *testing.T) {
	p, radio, link := newTestProbe(t)
	lastResponse(t, p, link, command(protocol.MsgScanStart, 1, 0))

	resp := lastResponse(t, p, link, command(protocol.MsgPromiscOff))
	assert.Equal(t, protocol.AppendError(nil, protocol.MsgPromiscOff, protocol.ErrScanActive), resp)
	assert.True(t, p.State().Promiscuous())

	lastResponse(t, p, link, command(protocol.MsgScanStop))
	resp = lastResponse(t, p, link, command(protocol.MsgPromiscOff))
	assert.Equal(t, protocol.AppendAck(nil, protocol.MsgPromiscOff), resp)
	assert.False(t, p.State().Promiscuous())
	_, promisc := radio.snapshot()
	assert.False(t, promisc)
}

func TestPromiscOnUsesLastFilter(t *testing.T) {
	p, radio, link := newTestProbe(t)

	resp := lastResponse(t, p, link, command(protocol.MsgPromiscOn))
	assert.Equal(t, protocol.AppendAck(nil, protocol.MsgPromiscOn), resp)
	filter, promisc := radio.snapshot()
	assert.Equal(t, protocol.FilterAll, filter)
	assert.True(t, promisc)

	p.State().SetFilter(protocol.FilterData)
	lastResponse(t, p, link, command(protocol.MsgPromiscOn))
	filter, _ = radio.snapshot()
	assert.Equal(t, protocol.FilterData, filter)
}

func TestPromiscQuery(t *testing.T) {
	p, _, link := newTestProbe(t)

	resp := lastResponse(t, p, link, command(protocol.MsgPromiscQuery))
	assert.Equal(t, protocol.AppendPromiscStatus(nil, false), resp)

	lastResponse(t, p, link, command(protocol.MsgPromiscOn))
	resp = lastResponse(t, p, link, command(protocol.MsgPromiscQuery))
	assert.Equal(t, protocol.AppendPromiscStatus(nil, true), resp)
}

func TestUnknownCommand(t *testing.T) {
	p, _, link := newTestProbe(t)

	resp := lastResponse(t, p, link, command(protocol.MessageType(0x7F)))
	assert.Equal(t, []byte{0x82, 0x01, 0x02, 0x00, 0x7F, 0x01}, resp)

	// Response types sent to the probe are unknown commands too
	resp = lastResponse(t, p, link, command(protocol.MsgAck, 0x01))
	assert.Equal(t, protocol.AppendError(nil, protocol.MsgAck, protocol.ErrUnknownCommand), resp)
}

func TestMalformedHeaderDropped(t *testing.T) {
	p, _, link := newTestProbe(t)

	p.handleMessage([]byte{0x01, 0x00, 0x05, 0x00, 0x06})
	p.handleMessage([]byte{0x05, 0x00})

	assert.Empty(t, link.messages(t))
	assert.Equal(t, uint32(2), p.Stats().RxMalformed)
	assert.Equal(t, uint32(0), p.Stats().Commands)
}

func TestScanRestartChangesChannel(t *testing.T) {
	p, _, link := newTestProbe(t)

	lastResponse(t, p, link, command(protocol.MsgScanStart, 1, 0))
	resp := lastResponse(t, p, link, command(protocol.MsgScanStart, 149, 0))

	assert.Equal(t, protocol.AppendAck(nil, protocol.MsgScanStart), resp)
	assert.Equal(t, uint8(149), p.State().Channel())
}
