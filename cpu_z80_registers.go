// cpu_z80_registers.go - Z80 register file, flag masks and register blob encoding

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const (
	FlagS  = 0x80
	FlagZ  = 0x40
	FlagY  = 0x20
	FlagH  = 0x10
	FlagX  = 0x08
	FlagPV = 0x04
	FlagN  = 0x02
	FlagC  = 0x01
)

// RegisterBlobSize is the size of the packed register image exchanged with
// tooling through GetRegisters/SetRegisters.
const RegisterBlobSize = 28

var ErrBufferTooSmall = errors.New("register buffer too small")

// Registers is the programmer-visible Z80 state. Pairs are exposed through
// accessor methods over the 8-bit fields; nothing here relies on memory layout.
type Registers struct {
	A, F, B, C, D, E, H, L         byte
	A2, F2, B2, C2, D2, E2, H2, L2 byte

	IX, IY uint16
	SP, PC uint16
	I, R   byte
	IM     byte

	IFF1, IFF2 bool
}

func (r Registers) AF() uint16 { return uint16(r.A)<<8 | uint16(r.F) }
func (r Registers) BC() uint16 { return uint16(r.B)<<8 | uint16(r.C) }
func (r Registers) DE() uint16 { return uint16(r.D)<<8 | uint16(r.E) }
func (r Registers) HL() uint16 { return uint16(r.H)<<8 | uint16(r.L) }

func (r *Registers) SetAF(v uint16) { r.A, r.F = byte(v>>8), byte(v) }
func (r *Registers) SetBC(v uint16) { r.B, r.C = byte(v>>8), byte(v) }
func (r *Registers) SetDE(v uint16) { r.D, r.E = byte(v>>8), byte(v) }
func (r *Registers) SetHL(v uint16) { r.H, r.L = byte(v>>8), byte(v) }

func (r Registers) AF2() uint16 { return uint16(r.A2)<<8 | uint16(r.F2) }
func (r Registers) BC2() uint16 { return uint16(r.B2)<<8 | uint16(r.C2) }
func (r Registers) DE2() uint16 { return uint16(r.D2)<<8 | uint16(r.E2) }
func (r Registers) HL2() uint16 { return uint16(r.H2)<<8 | uint16(r.L2) }

func (r *Registers) SetAF2(v uint16) { r.A2, r.F2 = byte(v>>8), byte(v) }
func (r *Registers) SetBC2(v uint16) { r.B2, r.C2 = byte(v>>8), byte(v) }
func (r *Registers) SetDE2(v uint16) { r.D2, r.E2 = byte(v>>8), byte(v) }
func (r *Registers) SetHL2(v uint16) { r.H2, r.L2 = byte(v>>8), byte(v) }

func (r Registers) Flag(mask byte) bool {
	return r.F&mask != 0
}

func (r *Registers) SetFlag(mask byte, on bool) {
	if on {
		r.F |= mask
	} else {
		r.F &^= mask
	}
}

func (r *Registers) ExAF() {
	r.A, r.A2 = r.A2, r.A
	r.F, r.F2 = r.F2, r.F
}

func (r *Registers) Exx() {
	r.B, r.B2 = r.B2, r.B
	r.C, r.C2 = r.C2, r.C
	r.D, r.D2 = r.D2, r.D
	r.E, r.E2 = r.E2, r.E
	r.H, r.H2 = r.H2, r.H
	r.L, r.L2 = r.L2, r.L
}

// incrementR bumps the 7-bit refresh counter, leaving bit 7 as last written.
func (r *Registers) incrementR() {
	r.R = (r.R & 0x80) | ((r.R + 1) & 0x7F)
}

// registerNames lists the names accepted by Get/Set in display order.
var registerNames = []string{
	"PC", "SP", "AF", "BC", "DE", "HL", "IX", "IY",
	"AF'", "BC'", "DE'", "HL'", "I", "R", "IM", "IFF1", "IFF2",
	"A", "F", "B", "C", "D", "E", "H", "L",
}

// RegisterNames returns the register names understood by Get and Set.
func RegisterNames() []string {
	return append([]string(nil), registerNames...)
}

// Get returns a register by name. Names are case-insensitive; the alternate
// bank uses a trailing quote ("HL'").
func (r *Registers) Get(name string) (uint16, bool) {
	switch strings.ToUpper(name) {
	case "A":
		return uint16(r.A), true
	case "F":
		return uint16(r.F), true
	case "B":
		return uint16(r.B), true
	case "C":
		return uint16(r.C), true
	case "D":
		return uint16(r.D), true
	case "E":
		return uint16(r.E), true
	case "H":
		return uint16(r.H), true
	case "L":
		return uint16(r.L), true
	case "AF":
		return r.AF(), true
	case "BC":
		return r.BC(), true
	case "DE":
		return r.DE(), true
	case "HL":
		return r.HL(), true
	case "AF'":
		return r.AF2(), true
	case "BC'":
		return r.BC2(), true
	case "DE'":
		return r.DE2(), true
	case "HL'":
		return r.HL2(), true
	case "IX":
		return r.IX, true
	case "IY":
		return r.IY, true
	case "SP":
		return r.SP, true
	case "PC":
		return r.PC, true
	case "I":
		return uint16(r.I), true
	case "R":
		return uint16(r.R), true
	case "IM":
		return uint16(r.IM), true
	case "IFF1":
		return boolToU16(r.IFF1), true
	case "IFF2":
		return boolToU16(r.IFF2), true
	}
	return 0, false
}

// Set writes a register by name, truncating to the register width.
func (r *Registers) Set(name string, value uint16) error {
	switch strings.ToUpper(name) {
	case "A":
		r.A = byte(value)
	case "F":
		r.F = byte(value)
	case "B":
		r.B = byte(value)
	case "C":
		r.C = byte(value)
	case "D":
		r.D = byte(value)
	case "E":
		r.E = byte(value)
	case "H":
		r.H = byte(value)
	case "L":
		r.L = byte(value)
	case "AF":
		r.SetAF(value)
	case "BC":
		r.SetBC(value)
	case "DE":
		r.SetDE(value)
	case "HL":
		r.SetHL(value)
	case "AF'":
		r.SetAF2(value)
	case "BC'":
		r.SetBC2(value)
	case "DE'":
		r.SetDE2(value)
	case "HL'":
		r.SetHL2(value)
	case "IX":
		r.IX = value
	case "IY":
		r.IY = value
	case "SP":
		r.SP = value
	case "PC":
		r.PC = value
	case "I":
		r.I = byte(value)
	case "R":
		r.R = byte(value)
	case "IM":
		if value > 2 {
			return fmt.Errorf("invalid interrupt mode %d", value)
		}
		r.IM = byte(value)
	case "IFF1":
		r.IFF1 = value != 0
	case "IFF2":
		r.IFF2 = value != 0
	default:
		return fmt.Errorf("unknown register %q", name)
	}
	return nil
}

func boolToU16(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

// MarshalBlob packs the register file into buf using the little-endian
// layout AF BC DE HL AF' BC' DE' HL' IX IY SP PC I R IM IFF.
func (r *Registers) MarshalBlob(buf []byte) (int, error) {
	if len(buf) < RegisterBlobSize {
		return 0, fmt.Errorf("%w: have %d bytes, need %d", ErrBufferTooSmall, len(buf), RegisterBlobSize)
	}
	words := [...]uint16{
		r.AF(), r.BC(), r.DE(), r.HL(),
		r.AF2(), r.BC2(), r.DE2(), r.HL2(),
		r.IX, r.IY, r.SP, r.PC,
	}
	for i, w := range words {
		binary.LittleEndian.PutUint16(buf[i*2:], w)
	}
	buf[24] = r.I
	buf[25] = r.R
	buf[26] = r.IM
	var iff byte
	if r.IFF1 {
		iff |= 0x01
	}
	if r.IFF2 {
		iff |= 0x02
	}
	buf[27] = iff
	return RegisterBlobSize, nil
}

// UnmarshalBlob loads a blob produced by MarshalBlob. Trailing bytes beyond
// RegisterBlobSize are ignored so newer producers stay readable.
func (r *Registers) UnmarshalBlob(blob []byte) error {
	if len(blob) < RegisterBlobSize {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrBufferTooSmall, len(blob), RegisterBlobSize)
	}
	if blob[26] > 2 {
		return fmt.Errorf("invalid interrupt mode %d in register blob", blob[26])
	}
	word := func(i int) uint16 { return binary.LittleEndian.Uint16(blob[i*2:]) }
	r.SetAF(word(0))
	r.SetBC(word(1))
	r.SetDE(word(2))
	r.SetHL(word(3))
	r.SetAF2(word(4))
	r.SetBC2(word(5))
	r.SetDE2(word(6))
	r.SetHL2(word(7))
	r.IX = word(8)
	r.IY = word(9)
	r.SP = word(10)
	r.PC = word(11)
	r.I = blob[24]
	r.R = blob[25]
	r.IM = blob[26]
	r.IFF1 = blob[27]&0x01 != 0
	r.IFF2 = blob[27]&0x02 != 0
	return nil
}
