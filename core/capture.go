package core

import "gosniff/protocol"

// HandleCapture is the capture producer. It runs in the radio delivery
// context, so every path is non-blocking and allocation-free: when the probe
// is idle, the frame is too large, no slot is free or the transmit queue is
// full, the frame is dropped and counted.
//
// Sequence numbers are assigned only to frames that got a slot, so gaps seen
// by the host correspond to queue-full drops and later losses.
func (p *Probe) HandleCapture(c *Capture) {
	if !p.state.Scanning() {
		p.stats.droppedIdle.Add(1)
		return
	}

	n := int(c.SigLen)
	if n > protocol.MaxFrameLen || n > len(c.Payload) {
		p.stats.droppedOversize.Add(1)
		return
	}

	slot, ok := p.pool.Acquire()
	if !ok {
		p.stats.droppedPoolEmpty.Add(1)
		return
	}

	meta := protocol.FrameMeta{
		Timestamp:  c.Timestamp,
		FrameLen:   uint16(n),
		Channel:    c.Channel,
		RSSI:       c.RSSI,
		NoiseFloor: c.NoiseFloor,
		PktType:    c.PktType,
		RxState:    c.RxState,
		Rate:       c.Rate,
		SeqNum:     uint16(p.seq.Add(1) - 1),
	}
	length := protocol.PutFrameEvent(slot.Buf[:], &meta, c.Payload[:n])

	if !p.txq.TrySend(slot, length) {
		p.stats.droppedQueueFull.Add(1)
		return
	}
	p.stats.captured.Add(1)
}
