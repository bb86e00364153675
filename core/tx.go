package core

import (
	"context"

	"gosniff/protocol"
)

// txTask is the single transmit consumer. It encodes each queued frame and
// writes it once; the slot is released whether or not the write succeeded.
func (p *Probe) txTask(ctx context.Context) error {
	p.log.Debug().Msg("tx task started")
	defer p.log.Debug().Msg("tx task stopped")

	for {
		it, err := p.txq.Receive(ctx)
		if err != nil {
			return err
		}

		n := protocol.Encode(p.txEnc, it.Bytes())
		if err := p.transport.WriteEncoded(p.txEnc[:n]); err != nil {
			p.stats.txWriteErrors.Add(1)
		} else {
			p.stats.transmitted.Add(1)
		}

		p.txq.Done(it)
	}
}
