// memory_spectrum.go - Timed RAM and ROM devices with 128K paging

/*
Memory map

	0x0000-0x3FFF  ROM (bank 0 or 1 on the 128K model)
	0x4000-0x7FFF  RAM page 0 (48K) / page 5 (128K), screen memory
	0x8000-0xBFFF  RAM page 1 (48K) / page 2 (128K)
	0xC000-0xFFFF  RAM page 2 (48K) / paged 0-7 (128K)

On the 128K model both devices listen to the paging port (A15=0, A1=0) and
keep their own copy of the bank-select flip-flops from the same write.
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const memPageSize = 0x4000

const (
	pagingRAMMask = 0x07
	pagingROM     = 0x10
	pagingLock    = 0x20
)

var pagingPort = AddressMatch{Mask: 0x8002, Value: 0x0000}

var (
	ErrROMTooLarge       = errors.New("rom image too large")
	ErrROMCorrupt        = errors.New("rom image corrupt or truncated")
	ErrAddressOutOfRange = errors.New("address out of range")
)

type MemoryModel int

const (
	Model48K MemoryModel = iota
	Model128K
)

func (m MemoryModel) String() string {
	switch m {
	case Model48K:
		return "48k"
	case Model128K:
		return "128k"
	}
	return fmt.Sprintf("model(%d)", int(m))
}

func ParseMemoryModel(s string) (MemoryModel, error) {
	switch strings.ToLower(s) {
	case "48", "48k":
		return Model48K, nil
	case "128", "128k":
		return Model128K, nil
	}
	return Model48K, fmt.Errorf("unknown machine model %q", s)
}

func (m MemoryModel) ROMSize() int {
	if m == Model128K {
		return 2 * memPageSize
	}
	return memPageSize
}

func (m MemoryModel) RAMPages() int {
	if m == Model128K {
		return 8
	}
	return 3
}

// ---------------------------------------------------------------------------
// RAM
// ---------------------------------------------------------------------------

type RAM struct {
	board *Board
	id    DeviceID
	model MemoryModel

	pages  [][]byte
	slots  [4]int
	paging byte
	locked bool
	time   uint64
}

// NewRAM builds the RAM device and registers it on the board.
func NewRAM(board *Board, model MemoryModel) *RAM {
	r := &RAM{board: board, model: model}
	r.pages = make([][]byte, model.RAMPages())
	for i := range r.pages {
		r.pages[i] = make([]byte, memPageSize)
	}
	r.mapPages()

	r.id = board.Add("ram", r)
	board.Memory.AddReadResponder(r.id, AddressRange{Start: 0x4000, End: 0xFFFF})
	board.Memory.AddWriteResponder(r.id, AddressRange{Start: 0x4000, End: 0xFFFF})
	if model == Model128K {
		board.IO.AddWriteResponder(r.id, pagingPort)
	}
	return r
}

func (r *RAM) mapPages() {
	if r.model == Model128K {
		r.slots = [4]int{-1, 5, 2, int(r.paging & pagingRAMMask)}
		return
	}
	r.slots = [4]int{-1, 0, 1, 2}
}

// Reset clears paging and time. Contents survive, as they do across the
// hardware reset line.
func (r *RAM) Reset() {
	r.paging = 0
	r.locked = false
	r.time = 0
	r.mapPages()
}

func (r *RAM) Time() uint64 { return r.time }

func (r *RAM) NeedSyncWithRealTime() bool { return false }

func (r *RAM) SimulateTo(t uint64) bool {
	limit := r.board.Memory.HorizonFor(t)
	if r.model == Model128K {
		limit = r.board.IO.HorizonFor(limit)
	}
	if limit > r.time {
		r.time = limit
	}
	return r.time >= t
}

func (r *RAM) BusRead(kind BusKind, addr uint16) byte {
	if kind != BusMemory {
		return 0xFF
	}
	return r.pages[r.slots[addr>>14]][addr&(memPageSize-1)]
}

func (r *RAM) BusWrite(kind BusKind, addr uint16, value byte) {
	if kind == BusIO {
		r.writePaging(value)
		return
	}
	r.pages[r.slots[addr>>14]][addr&(memPageSize-1)] = value
}

func (r *RAM) writePaging(value byte) {
	if r.locked {
		return
	}
	r.paging = value
	r.locked = value&pagingLock != 0
	r.mapPages()
}

// Paging returns the last value latched from the paging port.
func (r *RAM) Paging() byte { return r.paging }

// Size is the length of the linear page space used by ReadMemory and
// WriteMemory. Offset 0 is the first byte of page 0.
func (r *RAM) Size() int { return len(r.pages) * memPageSize }

// ReadMemory copies RAM into buf, bypassing the bus and timing.
func (r *RAM) ReadMemory(offset int, buf []byte) error {
	if offset < 0 || offset+len(buf) > r.Size() {
		return fmt.Errorf("%w: ram read 0x%05X+%d (size 0x%05X)", ErrAddressOutOfRange, offset, len(buf), r.Size())
	}
	for i := range buf {
		o := offset + i
		buf[i] = r.pages[o/memPageSize][o%memPageSize]
	}
	return nil
}

// WriteMemory stores data into RAM, bypassing the bus and timing.
func (r *RAM) WriteMemory(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > r.Size() {
		return fmt.Errorf("%w: ram write 0x%05X+%d (size 0x%05X)", ErrAddressOutOfRange, offset, len(data), r.Size())
	}
	for i, v := range data {
		o := offset + i
		r.pages[o/memPageSize][o%memPageSize] = v
	}
	return nil
}

// ---------------------------------------------------------------------------
// ROM
// ---------------------------------------------------------------------------

type ROM struct {
	board *Board
	id    DeviceID
	model MemoryModel

	banks  [][]byte
	bank   int
	locked bool
	time   uint64
}

// CheckROMImage validates an image against the model's ROM size.
func CheckROMImage(image []byte, model MemoryModel) error {
	want := model.ROMSize()
	switch {
	case len(image) > want:
		return fmt.Errorf("%w: %d bytes, %s model takes %d", ErrROMTooLarge, len(image), model, want)
	case len(image) < want:
		return fmt.Errorf("%w: %d bytes, %s model takes %d", ErrROMCorrupt, len(image), model, want)
	}
	return nil
}

// LoadROMImage reads a ROM file and validates its size.
func LoadROMImage(path string, model MemoryModel) ([]byte, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rom %s: %w", path, err)
	}
	if err := CheckROMImage(image, model); err != nil {
		return nil, fmt.Errorf("rom %s: %w", path, err)
	}
	return image, nil
}

// NewROM validates the image before touching the board, so a bad image
// leaves nothing registered.
func NewROM(board *Board, model MemoryModel, image []byte) (*ROM, error) {
	if err := CheckROMImage(image, model); err != nil {
		return nil, err
	}
	r := &ROM{board: board, model: model}
	for off := 0; off < len(image); off += memPageSize {
		bank := make([]byte, memPageSize)
		copy(bank, image[off:off+memPageSize])
		r.banks = append(r.banks, bank)
	}

	r.id = board.Add("rom", r)
	board.Memory.AddReadResponder(r.id, AddressRange{Start: 0x0000, End: 0x3FFF})
	if model == Model128K {
		board.IO.AddWriteResponder(r.id, pagingPort)
	}
	return r, nil
}

func (r *ROM) Reset() {
	r.bank = 0
	r.locked = false
	r.time = 0
}

func (r *ROM) Time() uint64 { return r.time }

func (r *ROM) NeedSyncWithRealTime() bool { return false }

func (r *ROM) SimulateTo(t uint64) bool {
	limit := t
	if r.model == Model128K {
		limit = r.board.IO.HorizonFor(t)
	}
	if limit > r.time {
		r.time = limit
	}
	return r.time >= t
}

func (r *ROM) BusRead(kind BusKind, addr uint16) byte {
	if kind != BusMemory {
		return 0xFF
	}
	return r.banks[r.bank][addr&(memPageSize-1)]
}

func (r *ROM) BusWrite(kind BusKind, addr uint16, value byte) {
	if kind != BusIO || r.locked {
		return
	}
	r.bank = 0
	if value&pagingROM != 0 && len(r.banks) > 1 {
		r.bank = 1
	}
	r.locked = value&pagingLock != 0
}

// Bank returns the ROM bank currently mapped at 0x0000.
func (r *ROM) Bank() int { return r.bank }
