package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// busProbe is a passive responder that answers with a fixed value and
// records writes. It advances no further than the bus horizon allows, or
// stays put when frozen.
type busProbe struct {
	board  *Board
	value  byte
	time   uint64
	frozen bool
	writes map[uint16]byte
}

func newBusProbe(board *Board, value byte) *busProbe {
	return &busProbe{board: board, value: value, writes: make(map[uint16]byte)}
}

func (p *busProbe) Reset()                     { p.time = 0 }
func (p *busProbe) Time() uint64               { return p.time }
func (p *busProbe) NeedSyncWithRealTime() bool { return false }

func (p *busProbe) SimulateTo(t uint64) bool {
	if p.frozen {
		return p.time >= t
	}
	if limit := p.board.Memory.HorizonFor(t); limit > p.time {
		p.time = limit
	}
	return p.time >= t
}

func (p *busProbe) BusRead(kind BusKind, addr uint16) byte { return p.value }

func (p *busProbe) BusWrite(kind BusKind, addr uint16, value byte) {
	p.writes[addr] = value
}

// requester is a write requester whose time the test sets directly.
type requester struct{ time uint64 }

func (r *requester) Reset()                     { r.time = 0 }
func (r *requester) Time() uint64               { return r.time }
func (r *requester) NeedSyncWithRealTime() bool { return false }
func (r *requester) SimulateTo(t uint64) bool   { r.time = t; return true }

func TestBusReadIsWiredAnd(t *testing.T) {
	board := NewBoard(nil)
	a := newBusProbe(board, 0xF0)
	b := newBusProbe(board, 0x3C)
	board.Memory.AddReadResponder(board.Add("a", a), AddressRange{Start: 0x0000, End: 0x7FFF})
	board.Memory.AddReadResponder(board.Add("b", b), AddressRange{Start: 0x4000, End: 0xFFFF})

	assert.Equal(t, byte(0xF0), board.Memory.Read(0x1000))
	assert.Equal(t, byte(0x30), board.Memory.Read(0x5000))
	assert.Equal(t, byte(0x3C), board.Memory.Read(0x9000))

	empty := NewBoard(nil)
	assert.Equal(t, byte(0xFF), empty.Memory.Read(0x1234), "undecoded reads float high")
}

func TestBusWriteReachesEveryDecoder(t *testing.T) {
	board := NewBoard(nil)
	a := newBusProbe(board, 0)
	b := newBusProbe(board, 0)
	board.IO.AddWriteResponder(board.Add("a", a), AddressMatch{Mask: 0x0001, Value: 0x0000})
	board.IO.AddWriteResponder(board.Add("b", b), AddressMatch{Mask: 0x8002, Value: 0x0000})

	board.IO.Write(0x7FFC, 0x11)
	assert.Equal(t, byte(0x11), a.writes[0x7FFC])
	assert.Equal(t, byte(0x11), b.writes[0x7FFC])

	board.IO.Write(0x00FE, 0x22)
	assert.Equal(t, byte(0x22), a.writes[0x00FE])
	_, hit := b.writes[0x00FE]
	assert.False(t, hit, "A1 set must not decode the paging port")
}

func TestBusTryReadRequestCatchesUpResponder(t *testing.T) {
	board := NewBoard(nil)
	p := newBusProbe(board, 0x42)
	board.Memory.AddReadResponder(board.Add("p", p), AddressRange{Start: 0, End: 0xFFFF})

	v, ok := board.Memory.TryReadRequest(0x1234, 500)
	require.True(t, ok)
	assert.Equal(t, byte(0x42), v)
	assert.Equal(t, uint64(500), p.Time())

	p.frozen = true
	_, ok = board.Memory.TryReadRequest(0x1234, 900)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), board.Memory.Stalls())
}

func TestBusTryWriteRequestIsAllOrNothing(t *testing.T) {
	board := NewBoard(nil)
	a := newBusProbe(board, 0)
	b := newBusProbe(board, 0)
	board.Memory.AddWriteResponder(board.Add("a", a), AddressRange{Start: 0, End: 0xFFFF})
	board.Memory.AddWriteResponder(board.Add("b", b), AddressRange{Start: 0, End: 0xFFFF})
	b.frozen = true

	assert.False(t, board.Memory.TryWriteRequest(0x4000, 0x99, 10))
	assert.Empty(t, a.writes)
	assert.Empty(t, b.writes)

	b.frozen = false
	assert.True(t, board.Memory.TryWriteRequest(0x4000, 0x99, 10))
	assert.Equal(t, byte(0x99), a.writes[0x4000])
	assert.Equal(t, byte(0x99), b.writes[0x4000])
}

func TestBusWordAccess(t *testing.T) {
	rig := newCPUZ80TestRig()
	bus := rig.board.Memory

	require.True(t, bus.TryWriteRequest16(0x8000, 0xBEEF, 0))
	assert.Equal(t, byte(0xEF), rig.bus.mem[0x8000])
	assert.Equal(t, byte(0xBE), rig.bus.mem[0x8001])

	v, ok := bus.TryReadRequest16(0x8000, 0)
	require.True(t, ok)
	assert.Equal(t, uint16(0xBEEF), v)
}

func TestBusHorizonFollowsSlowestWriter(t *testing.T) {
	board := NewBoard(nil)
	fast := &requester{time: 1000}
	slow := &requester{time: 300}
	board.Memory.AddWriteRequester(board.Add("fast", fast))
	board.Memory.AddWriteRequester(board.Add("slow", slow))

	assert.Equal(t, uint64(300), board.Memory.HorizonFor(800))
	assert.Equal(t, uint64(200), board.Memory.HorizonFor(200))

	id, behind := board.Memory.WriterBehindOf(800)
	assert.True(t, behind)
	assert.Equal(t, "slow", board.Name(id))

	// A passive responder cannot run ahead of the slow writer.
	p := newBusProbe(board, 0)
	board.Add("p", p)
	assert.False(t, p.SimulateTo(800))
	assert.Equal(t, uint64(300), p.Time())
}

func TestBoardRemoveDetachesEverywhere(t *testing.T) {
	board := NewBoard(nil)
	p := newBusProbe(board, 0x00)
	id := board.Add("p", p)
	board.Memory.AddReadResponder(id, AddressRange{Start: 0, End: 0xFFFF})
	board.IO.AddWriteResponder(id, AddressRange{Start: 0, End: 0xFFFF})
	require.Equal(t, byte(0x00), board.Memory.Read(0))

	board.Remove(id)
	assert.Nil(t, board.Device(id))
	assert.Equal(t, byte(0xFF), board.Memory.Read(0))
	board.IO.Write(0, 1)
	assert.Empty(t, p.writes)

	// The freed slot is reused.
	q := newBusProbe(board, 0)
	assert.Equal(t, id, board.Add("q", q))
}

func TestBoardSyncRealTimeOnlyTouchesRealTimeDevices(t *testing.T) {
	board := NewBoard(nil)
	ula, err := NewULAScreen(board, ULATiming48K, nil)
	require.NoError(t, err)
	p := newBusProbe(board, 0)
	board.Add("p", p)

	assert.True(t, board.SyncRealTime(1000))
	assert.Equal(t, uint64(1000), ula.Time())
	assert.Equal(t, uint64(0), p.Time())
}
