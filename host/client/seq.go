package client

// SeqTracker estimates dropped frames from gaps in the 16-bit frame
// sequence. The first frame only sets the expectation. A gap of 0x8000 or
// more is treated as reordering or a probe restart and is not counted.
type SeqTracker struct {
	expect  uint16
	started bool
	dropped uint64
}

// Observe records seq and returns the number of frames it reveals as lost
func (s *SeqTracker) Observe(seq uint16) uint16 {
	var gap uint16
	if s.started && seq != s.expect {
		gap = seq - s.expect
		if gap >= 0x8000 {
			gap = 0
		}
		s.dropped += uint64(gap)
	}
	s.started = true
	s.expect = seq + 1
	return gap
}

// Dropped returns the total number of lost frames seen so far
func (s *SeqTracker) Dropped() uint64 {
	return s.dropped
}

// Reset forgets the expectation and the drop count
func (s *SeqTracker) Reset() {
	*s = SeqTracker{}
}
