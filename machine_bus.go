// machine_bus.go - Timed memory and I/O bus

/*
machine_bus.go - Machine Bus for the Spectrum simulator

The bus is the arbitration point for every memory and port transaction and the
mechanism that keeps devices with independent local clocks consistent.

Core Features:

    Three ordered collections per bus: write requesters (devices whose writes
    must be awaited before anyone fast-forwards past them), read responders and
    write responders. Responders are stored as (DeviceID, decoder) pairs; the
    Board resolves handles, so a removed device can never be called.

    Timed requests. Before a responder answers at time t it must have simulated
    up to t. A lagging responder is pulled forward with SimulateTo; if it still
    lags the whole request fails and nothing is read or written.

    Wired-AND reads. Every decoding responder drives the data lines and the
    values are ANDed; an undecoded address floats to 0xFF.

    All-or-nothing writes. Every decoding responder is caught up before the
    first write callback runs. 16-bit writes prepare both bytes before
    committing either.

Technical Details:

    Read and Write are untimed and exist for tooling only; nothing on the
    simulation path uses them.

    HorizonFor gives passive devices the furthest time they may advance to
    without missing a write from a requester that is still behind.
*/

package main

import "fmt"

// BusKind tells a responder which bus a transaction arrived on.
type BusKind int

const (
	BusMemory BusKind = iota
	BusIO
)

func (k BusKind) String() string {
	switch k {
	case BusMemory:
		return "memory"
	case BusIO:
		return "io"
	}
	return fmt.Sprintf("bus(%d)", int(k))
}

// AddressDecoder selects the addresses a responder answers.
type AddressDecoder interface {
	Decodes(addr uint16) bool
}

// AddressRange decodes Start..End inclusive.
type AddressRange struct {
	Start, End uint16
}

func (r AddressRange) Decodes(addr uint16) bool {
	return addr >= r.Start && addr <= r.End
}

// AddressMatch decodes addr&Mask == Value, the way partially decoded
// Spectrum ports are wired.
type AddressMatch struct {
	Mask, Value uint16
}

func (m AddressMatch) Decodes(addr uint16) bool {
	return addr&m.Mask == m.Value
}

// BusReader is implemented by devices registered as read responders.
type BusReader interface {
	BusRead(kind BusKind, addr uint16) byte
}

// BusWriter is implemented by devices registered as write responders.
type BusWriter interface {
	BusWrite(kind BusKind, addr uint16, value byte)
}

type busRegion struct {
	id      DeviceID
	decoder AddressDecoder
}

type Bus struct {
	kind  BusKind
	board *Board

	writeRequesters []DeviceID
	readResponders  []busRegion
	writeResponders []busRegion

	stalls uint64
}

func newBus(board *Board, kind BusKind) *Bus {
	return &Bus{kind: kind, board: board}
}

func (b *Bus) Kind() BusKind { return b.kind }

// Stalls counts timed requests that could not be satisfied.
func (b *Bus) Stalls() uint64 { return b.stalls }

func (b *Bus) AddWriteRequester(id DeviceID) {
	b.writeRequesters = append(b.writeRequesters, id)
}

func (b *Bus) AddReadResponder(id DeviceID, decoder AddressDecoder) {
	if _, ok := b.board.Device(id).(BusReader); !ok {
		panic(fmt.Sprintf("%s bus: %s is not a BusReader", b.kind, b.board.Name(id)))
	}
	b.readResponders = append(b.readResponders, busRegion{id: id, decoder: decoder})
}

func (b *Bus) AddWriteResponder(id DeviceID, decoder AddressDecoder) {
	if _, ok := b.board.Device(id).(BusWriter); !ok {
		panic(fmt.Sprintf("%s bus: %s is not a BusWriter", b.kind, b.board.Name(id)))
	}
	b.writeResponders = append(b.writeResponders, busRegion{id: id, decoder: decoder})
}

func (b *Bus) detach(id DeviceID) {
	b.writeRequesters = removeID(b.writeRequesters, id)
	b.readResponders = removeRegion(b.readResponders, id)
	b.writeResponders = removeRegion(b.writeResponders, id)
}

func removeID(ids []DeviceID, id DeviceID) []DeviceID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func removeRegion(regions []busRegion, id DeviceID) []busRegion {
	out := regions[:0]
	for _, r := range regions {
		if r.id != id {
			out = append(out, r)
		}
	}
	return out
}

// Read is the untimed read used by debuggers and loaders.
func (b *Bus) Read(addr uint16) byte {
	value := byte(0xFF)
	for _, r := range b.readResponders {
		if r.decoder.Decodes(addr) {
			value &= b.board.Device(r.id).(BusReader).BusRead(b.kind, addr)
		}
	}
	return value
}

// Write is the untimed write used by debuggers and loaders.
func (b *Bus) Write(addr uint16, value byte) {
	for _, r := range b.writeResponders {
		if r.decoder.Decodes(addr) {
			b.board.Device(r.id).(BusWriter).BusWrite(b.kind, addr, value)
		}
	}
}

// catchUp makes sure a device has simulated up to t.
func (b *Bus) catchUp(id DeviceID, t uint64) bool {
	d := b.board.Device(id)
	if d.Time() >= t {
		return true
	}
	d.SimulateTo(t)
	return d.Time() >= t
}

// TryReadRequest reads addr at time t. It fails without side effects when a
// decoding responder cannot reach t.
func (b *Bus) TryReadRequest(addr uint16, t uint64) (byte, bool) {
	for _, r := range b.readResponders {
		if r.decoder.Decodes(addr) && !b.catchUp(r.id, t) {
			b.stalls++
			return 0xFF, false
		}
	}
	return b.Read(addr), true
}

// PrepareWrite brings every write responder for addr up to t without
// writing anything.
func (b *Bus) PrepareWrite(addr uint16, t uint64) bool {
	for _, r := range b.writeResponders {
		if r.decoder.Decodes(addr) && !b.catchUp(r.id, t) {
			b.stalls++
			return false
		}
	}
	return true
}

// TryWriteRequest writes value at time t to every decoding responder, or to
// none of them.
func (b *Bus) TryWriteRequest(addr uint16, value byte, t uint64) bool {
	if !b.PrepareWrite(addr, t) {
		return false
	}
	b.Write(addr, value)
	return true
}

// TryReadRequest16 reads a little-endian word.
func (b *Bus) TryReadRequest16(addr uint16, t uint64) (uint16, bool) {
	lo, ok := b.TryReadRequest(addr, t)
	if !ok {
		return 0, false
	}
	hi, ok := b.TryReadRequest(addr+1, t)
	if !ok {
		return 0, false
	}
	return uint16(lo) | uint16(hi)<<8, true
}

// TryWriteRequest16 writes a little-endian word. Both bytes are prepared
// before either is written, so a stall on the high byte leaves memory
// untouched.
func (b *Bus) TryWriteRequest16(addr uint16, value uint16, t uint64) bool {
	if !b.PrepareWrite(addr, t) || !b.PrepareWrite(addr+1, t) {
		return false
	}
	b.Write(addr, byte(value))
	b.Write(addr+1, byte(value>>8))
	return true
}

// WriterBehindOf returns the first write requester whose time is still
// before t.
func (b *Bus) WriterBehindOf(t uint64) (DeviceID, bool) {
	for _, id := range b.writeRequesters {
		if d := b.board.Device(id); d != nil && d.Time() < t {
			return id, true
		}
	}
	return noDevice, false
}

// HorizonFor clamps t to the time of every write requester that is behind
// it. A passive device may advance to the result without missing a write.
func (b *Bus) HorizonFor(t uint64) uint64 {
	for {
		id, behind := b.WriterBehindOf(t)
		if !behind {
			return t
		}
		t = b.board.Device(id).Time()
	}
}
