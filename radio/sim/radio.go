// Package sim provides a simulated radio that synthesizes 802.11 traffic so
// the probe core can run on a host without Wi-Fi hardware.
package sim

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gosniff/core"
	"gosniff/protocol"
)

// ErrBadChannel is returned when tuning to a channel the radio does not support
var ErrBadChannel = errors.New("sim: unsupported channel")

// Config configures the simulated environment
type Config struct {
	FramesPerSecond int
	SSIDs           []string // One access point is simulated per SSID
	Seed            int64
}

// AccessPoint is a simulated network beaconing on one channel
type AccessPoint struct {
	SSID    string
	BSSID   MAC
	Channel uint8
}

// Radio implements core.RadioDriver
type Radio struct {
	mu      sync.Mutex
	channel uint8
	filter  protocol.FilterMask
	promisc bool
	handler core.CaptureHandler

	aps      []AccessPoint
	stations []MAC
	interval time.Duration
	start    time.Time
	log      zerolog.Logger

	// Emit state, owned by the emitting goroutine
	rng *rand.Rand
	seq uint16
	buf []byte
}

// New creates a simulated radio tuned to channel 1
func New(cfg Config, log zerolog.Logger) *Radio {
	if cfg.FramesPerSecond <= 0 {
		cfg.FramesPerSecond = 50
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	r := &Radio{
		channel:  1,
		filter:   protocol.FilterAll,
		interval: time.Second / time.Duration(cfg.FramesPerSecond),
		start:    time.Now(),
		log:      log.With().Str("component", "sim_radio").Logger(),
		rng:      rng,
		buf:      make([]byte, 0, protocol.MaxFrameLen),
	}

	for i, ssid := range cfg.SSIDs {
		r.aps = append(r.aps, AccessPoint{
			SSID:    ssid,
			BSSID:   randomMAC(rng, 0x02),
			Channel: core.Channels[(i*5+int(cfg.Seed&0xff))%len(core.Channels)],
		})
	}
	for i := 0; i < 4; i++ {
		r.stations = append(r.stations, randomMAC(rng, 0x00))
	}
	return r
}

// randomMAC returns a unicast address; flags sets the locally administered bit
func randomMAC(rng *rand.Rand, flags byte) MAC {
	var m MAC
	rng.Read(m[:])
	m[0] = m[0]&0xfc | flags
	return m
}

// AccessPoints returns the simulated networks
func (r *Radio) AccessPoints() []AccessPoint {
	return append([]AccessPoint(nil), r.aps...)
}

// SetChannel implements core.RadioDriver
func (r *Radio) SetChannel(ch uint8) error {
	if !core.IsValidChannel(ch) {
		return ErrBadChannel
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channel = ch
	return nil
}

// SetPromiscuousFilter implements core.RadioDriver
func (r *Radio) SetPromiscuousFilter(mask protocol.FilterMask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter = mask.Effective()
	return nil
}

// SetPromiscuous implements core.RadioDriver
func (r *Radio) SetPromiscuous(enable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.promisc != enable {
		r.log.Debug().Bool("enabled", enable).Msg("promiscuous mode")
	}
	r.promisc = enable
	return nil
}

// SetCaptureHandler implements core.RadioDriver
func (r *Radio) SetCaptureHandler(h core.CaptureHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
}

// Channel returns the current channel
func (r *Radio) Channel() uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel
}

// Run emits frames at the configured rate until ctx is cancelled
func (r *Radio) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Debug().Dur("interval", r.interval).Int("aps", len(r.aps)).Msg("sim radio started")
	for {
		select {
		case <-ticker.C:
			r.Emit()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Emit synthesizes one frame on the current channel and delivers it if
// promiscuous mode is on and its class passes the filter. It reports whether
// a frame was delivered. Emit must not be called concurrently.
func (r *Radio) Emit() bool {
	r.mu.Lock()
	ch, filter, promisc, handler := r.channel, r.filter, r.promisc, r.handler
	r.mu.Unlock()

	if !promisc || handler == nil {
		return false
	}

	frame, pktType := r.synthesize(ch)
	if filter&(1<<pktType) == 0 {
		return false
	}

	handler(&core.Capture{
		Payload:    frame,
		SigLen:     uint16(len(frame)),
		Timestamp:  uint32(time.Since(r.start) / time.Microsecond),
		Channel:    ch,
		RSSI:       int8(-30 - r.rng.Intn(60)),
		NoiseFloor: -95,
		PktType:    pktType,
		Rate:       11,
	})
	return true
}

// synthesize builds a frame typical of channel ch into the shared buffer
func (r *Radio) synthesize(ch uint8) ([]byte, protocol.PacketType) {
	r.seq = (r.seq + 1) & 0x0fff
	buf := r.buf[:0]

	var local []AccessPoint
	for _, ap := range r.aps {
		if ap.Channel == ch {
			local = append(local, ap)
		}
	}
	station := r.stations[r.rng.Intn(len(r.stations))]

	switch kind := r.rng.Intn(10); {
	case kind < 5 && len(local) > 0:
		ap := local[r.rng.Intn(len(local))]
		tsf := uint64(time.Since(r.start) / time.Microsecond)
		return AppendBeacon(buf, ap.BSSID, ap.SSID, ch, r.seq, tsf), protocol.PacketMgmt
	case kind < 7:
		ssid := ""
		if len(r.aps) > 0 && r.rng.Intn(2) == 0 {
			ssid = r.aps[r.rng.Intn(len(r.aps))].SSID
		}
		return AppendProbeRequest(buf, station, ssid, r.seq), protocol.PacketMgmt
	case kind < 8 || len(local) == 0:
		return AppendRTS(buf, Broadcast, station, uint16(r.rng.Intn(300))), protocol.PacketCtrl
	default:
		ap := local[r.rng.Intn(len(local))]
		body := make([]byte, 40+r.rng.Intn(1400))
		r.rng.Read(body)
		return AppendData(buf, ap.BSSID, station, r.rng.Intn(2) == 0, r.seq, body), protocol.PacketData
	}
}
