// audio_beeper.go - ZX Spectrum one-bit beeper

package main

import (
	"log/slog"
)

const (
	BEEPER_SAMPLE_RATE = 44100
	BEEPER_PACKET_MS   = 20
	BEEPER_AMPLITUDE   = 0.5

	beeperLevelBit = 0x10
)

type BeeperConfig struct {
	ClockHz       uint64
	SampleRate    int
	PacketSamples int
}

// Beeper turns writes to bit 4 of the ULA port into point-sampled PCM.
// Sample k is the speaker level at tick k*ClockHz/SampleRate.
type Beeper struct {
	board *Board
	id    DeviceID
	log   *slog.Logger

	cfg  BeeperConfig
	sink AudioSink

	time      uint64
	level     bool
	sampleIdx uint64
	packet    []float32
	dropped   uint64
}

func NewBeeper(board *Board, cfg BeeperConfig, sink AudioSink, logger *slog.Logger) *Beeper {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = BEEPER_SAMPLE_RATE
	}
	if cfg.PacketSamples <= 0 {
		cfg.PacketSamples = cfg.SampleRate * BEEPER_PACKET_MS / 1000
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Beeper{
		board:  board,
		log:    logger,
		cfg:    cfg,
		sink:   sink,
		packet: make([]float32, 0, cfg.PacketSamples),
	}
	b.id = board.Add("beeper", b)
	board.IO.AddWriteResponder(b.id, ulaPort)
	return b
}

func (b *Beeper) ID() DeviceID { return b.id }

// SetSink replaces the packet consumer; nil discards audio.
func (b *Beeper) SetSink(sink AudioSink) { b.sink = sink }

func (b *Beeper) Reset() {
	b.time = 0
	b.level = false
	b.sampleIdx = 0
	b.packet = b.packet[:0]
}

func (b *Beeper) Time() uint64 { return b.time }

func (b *Beeper) NeedSyncWithRealTime() bool { return true }

func (b *Beeper) Level() bool { return b.level }

// Dropped counts packets the sink refused.
func (b *Beeper) Dropped() uint64 { return b.dropped }

func (b *Beeper) BusWrite(kind BusKind, addr uint16, value byte) {
	if kind == BusIO {
		b.level = value&beeperLevelBit != 0
	}
}

func (b *Beeper) sampleTick(k uint64) uint64 {
	return k * b.cfg.ClockHz / uint64(b.cfg.SampleRate)
}

// SimulateTo emits every sample whose tick lies before the reachable
// target. The level written at tick t is heard from sample tick t onwards.
func (b *Beeper) SimulateTo(t uint64) bool {
	target := b.board.IO.HorizonFor(t)
	if target <= b.time {
		return b.time >= t
	}

	var v float32
	if b.level {
		v = BEEPER_AMPLITUDE
	}
	for b.sampleTick(b.sampleIdx) < target {
		b.packet = append(b.packet, v)
		b.sampleIdx++
		if len(b.packet) == b.cfg.PacketSamples {
			b.flush()
		}
	}
	b.time = target
	return b.time >= t
}

func (b *Beeper) flush() {
	if len(b.packet) == 0 {
		return
	}
	out := b.packet
	b.packet = make([]float32, 0, b.cfg.PacketSamples)
	if b.sink == nil {
		return
	}
	if !b.sink.PushPacket(out) {
		b.dropped++
		b.log.Debug("audio packet dropped", slog.Uint64("dropped", b.dropped))
	}
}

// Flush hands a partially filled packet to the sink.
func (b *Beeper) Flush() { b.flush() }
