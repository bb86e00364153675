package core

import "context"

// rxTask reads from the link and dispatches every complete command frame.
// Idle periods are bounded by the transport read timeout so cancellation is
// observed promptly. A link read error ends the task.
func (p *Probe) rxTask(ctx context.Context) error {
	p.log.Debug().Msg("rx task started")
	defer p.log.Debug().Msg("rx task stopped")

	for ctx.Err() == nil {
		if err := p.transport.Poll(); err != nil {
			p.log.Error().Err(err).Msg("link read failed")
			return err
		}
	}
	return ctx.Err()
}
