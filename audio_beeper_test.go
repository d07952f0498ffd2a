package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type packetSink struct {
	packets [][]float32
	refuse  bool
}

func (s *packetSink) PushPacket(samples []float32) bool {
	if s.refuse {
		return false
	}
	s.packets = append(s.packets, samples)
	return true
}

func (s *packetSink) samples() []float32 {
	var out []float32
	for _, p := range s.packets {
		out = append(out, p...)
	}
	return out
}

func newTestBeeper(t *testing.T, packet int) (*Board, *Beeper, *packetSink) {
	t.Helper()
	board := NewBoard(nil)
	sink := &packetSink{}
	b := NewBeeper(board, BeeperConfig{ClockHz: 3500000, SampleRate: 35000, PacketSamples: packet}, sink, nil)
	return board, b, sink
}

func TestBeeperSamplesLevelAtSampleTicks(t *testing.T) {
	board, b, sink := newTestBeeper(t, 64)

	require.True(t, b.SimulateTo(1000))
	board.IO.Write(0x00FE, beeperLevelBit)
	assert.True(t, b.Level())
	require.True(t, b.SimulateTo(1100))
	board.IO.Write(0x00FE, 0x08)
	assert.False(t, b.Level())
	require.True(t, b.SimulateTo(2000))
	b.Flush()

	got := sink.samples()
	require.Len(t, got, 20)
	for i, v := range got {
		if i == 10 {
			assert.Equal(t, float32(BEEPER_AMPLITUDE), v)
			continue
		}
		assert.Zero(t, v, "sample %d", i)
	}
}

func TestBeeperIgnoresOddPorts(t *testing.T) {
	board, b, _ := newTestBeeper(t, 64)
	board.IO.Write(0x00FF, 0xFF)
	assert.False(t, b.Level())
}

func TestBeeperEmitsFullPackets(t *testing.T) {
	_, b, sink := newTestBeeper(t, 8)

	// 25 samples: three full packets, one sample left over.
	require.True(t, b.SimulateTo(2401))
	require.Len(t, sink.packets, 3)
	for _, p := range sink.packets {
		assert.Len(t, p, 8)
	}
	b.Flush()
	require.Len(t, sink.packets, 4)
	assert.Len(t, sink.packets[3], 1)

	b.Flush()
	assert.Len(t, sink.packets, 4, "empty flush sends nothing")
}

func TestBeeperCountsRefusedPackets(t *testing.T) {
	_, b, sink := newTestBeeper(t, 4)
	sink.refuse = true
	require.True(t, b.SimulateTo(1200))
	assert.Equal(t, uint64(3), b.Dropped())
}

func TestBeeperStopsAtWriterHorizon(t *testing.T) {
	board, b, sink := newTestBeeper(t, 64)
	cpu := &requester{time: 500}
	board.IO.AddWriteRequester(board.Add("cpu", cpu))

	assert.False(t, b.SimulateTo(1000))
	assert.Equal(t, uint64(500), b.Time())
	b.Flush()
	assert.Len(t, sink.samples(), 5)
}

func TestBeeperReset(t *testing.T) {
	board, b, sink := newTestBeeper(t, 64)
	board.IO.Write(0x00FE, beeperLevelBit)
	require.True(t, b.SimulateTo(1000))
	board.ResetAll()

	assert.False(t, b.Level())
	assert.Zero(t, b.Time())
	b.Flush()
	assert.Empty(t, sink.packets, "reset discards the partial packet")
}

func TestAudioQueueRepeatsLastSampleOnUnderrun(t *testing.T) {
	q := NewAudioQueue(2)
	assert.Zero(t, q.NextSample())

	require.True(t, q.PushPacket([]float32{0.1, 0.2}))
	assert.Equal(t, 1, q.Pending())

	dst := make([]float32, 4)
	assert.Equal(t, 4, q.ReadSamples(dst))
	assert.Equal(t, []float32{0.1, 0.2, 0.2, 0.2}, dst)
	assert.Zero(t, q.Pending())
}

func TestAudioQueueDropsWhenFull(t *testing.T) {
	q := NewAudioQueue(1)
	assert.True(t, q.PushPacket([]float32{1}))
	assert.False(t, q.PushPacket([]float32{2}))
	assert.Equal(t, uint64(1), q.Dropped())
	assert.Equal(t, float32(1), q.NextSample())
}

func TestMultiSinkAcceptsWhenAnySinkDoes(t *testing.T) {
	a := &packetSink{refuse: true}
	b := &packetSink{}
	m := multiSink{a, b}
	assert.True(t, m.PushPacket([]float32{0.5}))
	assert.Len(t, b.packets, 1)

	b.refuse = true
	assert.False(t, m.PushPacket([]float32{0.5}))
}

func TestWavRecorderRoundTripsThroughTapeLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beep.wav")
	rec := NewWavRecorder(path, 22050, nil)

	rec.PushPacket([]float32{0.5, 0.5, 0, -0.25})
	rec.PushPacket([]float32{2, -2})
	assert.Equal(t, 6, rec.Samples())
	require.NoError(t, rec.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(6*2))

	tape, err := LoadTapeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 22050, tape.SampleRate)
	require.Len(t, tape.Samples, 6)
	assert.Equal(t, float32(16383), tape.Samples[0])
	assert.Zero(t, tape.Samples[2])
	assert.Less(t, tape.Samples[3], float32(0))
	assert.Equal(t, float32(32767), tape.Samples[4])
	assert.Equal(t, float32(-32767), tape.Samples[5])
}
