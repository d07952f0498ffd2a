// snapshot_sna.go - 48K .sna snapshot loading

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

const (
	snaHeaderSize = 27
	snaRAMSize    = 3 * memPageSize
	snaFileSize   = snaHeaderSize + snaRAMSize
)

var ErrSnapshotFormat = errors.New("invalid snapshot")

// SNASnapshot is a decoded 48K snapshot. The program counter is not stored
// in the header; it sits on the stack and is popped when the snapshot is
// applied.
type SNASnapshot struct {
	Regs   Registers
	Border byte
	RAM    []byte // 0x4000-0xFFFF
}

func ParseSNA(data []byte) (*SNASnapshot, error) {
	if len(data) != snaFileSize {
		return nil, fmt.Errorf("%w: %d bytes, 48K .sna is %d", ErrSnapshotFormat, len(data), snaFileSize)
	}
	le := binary.LittleEndian
	s := &SNASnapshot{RAM: data[snaHeaderSize:]}
	r := &s.Regs
	r.I = data[0]
	r.SetHL2(le.Uint16(data[1:]))
	r.SetDE2(le.Uint16(data[3:]))
	r.SetBC2(le.Uint16(data[5:]))
	r.SetAF2(le.Uint16(data[7:]))
	r.SetHL(le.Uint16(data[9:]))
	r.SetDE(le.Uint16(data[11:]))
	r.SetBC(le.Uint16(data[13:]))
	r.IY = le.Uint16(data[15:])
	r.IX = le.Uint16(data[17:])
	r.IFF2 = data[19]&0x04 != 0
	r.IFF1 = r.IFF2
	r.R = data[20]
	r.SetAF(le.Uint16(data[21:]))
	r.SP = le.Uint16(data[23:])
	r.IM = data[25]
	s.Border = data[26] & 0x07
	if r.IM > 2 {
		return nil, fmt.Errorf("%w: interrupt mode %d", ErrSnapshotFormat, r.IM)
	}
	return s, nil
}

func LoadSNAFile(path string) (*SNASnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	s, err := ParseSNA(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return s, nil
}

// Apply writes RAM through the untimed bus, sets the border and the
// registers, then pops PC as the RETN at the end of the NMI handler would.
// The board is expected to have been reset just before.
func (s *SNASnapshot) Apply(board *Board, cpu *CPU_Z80) {
	for i, v := range s.RAM {
		board.Memory.Write(uint16(0x4000+i), v)
	}
	board.IO.Write(0x00FE, s.Border)

	cpu.Registers = s.Regs
	lo := board.Memory.Read(cpu.SP)
	hi := board.Memory.Read(cpu.SP + 1)
	cpu.PC = uint16(hi)<<8 | uint16(lo)
	cpu.SP += 2
}
