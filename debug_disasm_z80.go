// debug_disasm_z80.go - Z80 disassembler for the monitor and trace log

package main

import (
	"fmt"
	"strings"
)

var z80Reg8 = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
var z80Reg16 = [4]string{"BC", "DE", "HL", "SP"}
var z80Reg16Push = [4]string{"BC", "DE", "HL", "AF"}
var z80Cond = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
var z80ALU = [8]string{"ADD A,", "ADC A,", "SUB", "SBC A,", "AND", "XOR", "OR", "CP"}
var z80CBOps = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}
var z80Rot = [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}
var z80Block = [4][4]string{
	{"LDI", "CPI", "INI", "OUTI"},
	{"LDD", "CPD", "IND", "OUTD"},
	{"LDIR", "CPIR", "INIR", "OTIR"},
	{"LDDR", "CPDR", "INDR", "OTDR"},
}

// z80Disasm decodes one instruction with the same x/y/z split the CPU uses.
type z80Disasm struct {
	read   func(addr uint16) byte
	start  uint16
	pos    uint16
	idx    string // "", "IX" or "IY"
	branch bool
	target uint16
}

func (d *z80Disasm) next() byte {
	v := d.read(d.pos)
	d.pos++
	return v
}

func (d *z80Disasm) imm8() string { return fmt.Sprintf("$%02X", d.next()) }

func (d *z80Disasm) word() uint16 {
	lo := d.next()
	hi := d.next()
	return uint16(hi)<<8 | uint16(lo)
}

func (d *z80Disasm) imm16() string { return fmt.Sprintf("$%04X", d.word()) }

func (d *z80Disasm) hl() string {
	if d.idx != "" {
		return d.idx
	}
	return "HL"
}

// mem returns "(HL)" or "(IX+d)", fetching the displacement.
func (d *z80Disasm) mem() string {
	if d.idx == "" {
		return "(HL)"
	}
	return fmt.Sprintf("(%s%+d)", d.idx, int8(d.next()))
}

// r names r[code]; H and L follow the index prefix.
func (d *z80Disasm) r(code byte) string {
	switch {
	case code == 6:
		return d.mem()
	case d.idx != "" && code == 4:
		return d.idx + "H"
	case d.idx != "" && code == 5:
		return d.idx + "L"
	}
	return z80Reg8[code]
}

func (d *z80Disasm) rp(p byte) string {
	if p == 2 {
		return d.hl()
	}
	return z80Reg16[p]
}

func (d *z80Disasm) rp2(p byte) string {
	if p == 2 {
		return d.hl()
	}
	return z80Reg16Push[p]
}

func (d *z80Disasm) relative() string {
	e := int8(d.next())
	d.branch = true
	d.target = d.pos + uint16(int16(e))
	return fmt.Sprintf("$%04X", d.target)
}

func (d *z80Disasm) absolute() string {
	d.branch = true
	d.target = d.word()
	return fmt.Sprintf("$%04X", d.target)
}

func (d *z80Disasm) decode() string {
	op := d.next()
	for op == 0xDD || op == 0xFD {
		if op == 0xDD {
			d.idx = "IX"
		} else {
			d.idx = "IY"
		}
		op = d.next()
	}
	switch op {
	case 0xCB:
		if d.idx != "" {
			return d.decodeIndexedCB()
		}
		return d.decodeCB(d.next())
	case 0xED:
		d.idx = ""
		return d.decodeED(d.next())
	}
	return d.decodeBase(op)
}

func (d *z80Disasm) decodeBase(op byte) string {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	switch x {
	case 1:
		if op == 0x76 {
			return "HALT"
		}
		if y == 6 {
			m := d.mem()
			return fmt.Sprintf("LD %s, %s", m, z80Reg8[z])
		}
		if z == 6 {
			return fmt.Sprintf("LD %s, %s", z80Reg8[y], d.mem())
		}
		return fmt.Sprintf("LD %s, %s", d.r(y), d.r(z))
	case 2:
		return fmt.Sprintf("%s %s", z80ALU[y], d.r(z))
	case 0:
		switch z {
		case 0:
			switch y {
			case 0:
				return "NOP"
			case 1:
				return "EX AF, AF'"
			case 2:
				return "DJNZ " + d.relative()
			case 3:
				return "JR " + d.relative()
			}
			return fmt.Sprintf("JR %s, %s", z80Cond[y-4], d.relative())
		case 1:
			if q == 0 {
				return fmt.Sprintf("LD %s, %s", d.rp(p), d.imm16())
			}
			return fmt.Sprintf("ADD %s, %s", d.hl(), d.rp(p))
		case 2:
			switch p {
			case 0, 1:
				if q == 0 {
					return fmt.Sprintf("LD (%s), A", z80Reg16[p])
				}
				return fmt.Sprintf("LD A, (%s)", z80Reg16[p])
			case 2:
				if q == 0 {
					return fmt.Sprintf("LD (%s), %s", d.imm16(), d.hl())
				}
				return fmt.Sprintf("LD %s, (%s)", d.hl(), d.imm16())
			}
			if q == 0 {
				return fmt.Sprintf("LD (%s), A", d.imm16())
			}
			return fmt.Sprintf("LD A, (%s)", d.imm16())
		case 3:
			if q == 0 {
				return "INC " + d.rp(p)
			}
			return "DEC " + d.rp(p)
		case 4:
			return "INC " + d.r(y)
		case 5:
			return "DEC " + d.r(y)
		case 6:
			dst := d.r(y)
			return fmt.Sprintf("LD %s, %s", dst, d.imm8())
		}
		return z80Rot[y]
	}

	switch z {
	case 0:
		return "RET " + z80Cond[y]
	case 1:
		if q == 0 {
			return "POP " + d.rp2(p)
		}
		switch p {
		case 0:
			return "RET"
		case 1:
			return "EXX"
		case 2:
			return fmt.Sprintf("JP (%s)", d.hl())
		}
		return "LD SP, " + d.hl()
	case 2:
		return fmt.Sprintf("JP %s, %s", z80Cond[y], d.absolute())
	case 3:
		switch y {
		case 0:
			return "JP " + d.absolute()
		case 2:
			return fmt.Sprintf("OUT (%s), A", d.imm8())
		case 3:
			return fmt.Sprintf("IN A, (%s)", d.imm8())
		case 4:
			return fmt.Sprintf("EX (SP), %s", d.hl())
		case 5:
			return "EX DE, HL"
		case 6:
			return "DI"
		case 7:
			return "EI"
		}
	case 4:
		return fmt.Sprintf("CALL %s, %s", z80Cond[y], d.absolute())
	case 5:
		if q == 0 {
			return "PUSH " + d.rp2(p)
		}
		return "CALL " + d.absolute()
	case 6:
		return fmt.Sprintf("%s %s", z80ALU[y], d.imm8())
	case 7:
		return fmt.Sprintf("RST $%02X", y*8)
	}
	return fmt.Sprintf("db $%02X", op)
}

func cbMnemonic(op byte, operand string) string {
	x, y := op>>6, (op>>3)&7
	switch x {
	case 0:
		return fmt.Sprintf("%s %s", z80CBOps[y], operand)
	case 1:
		return fmt.Sprintf("BIT %d, %s", y, operand)
	case 2:
		return fmt.Sprintf("RES %d, %s", y, operand)
	}
	return fmt.Sprintf("SET %d, %s", y, operand)
}

func (d *z80Disasm) decodeCB(op byte) string {
	return cbMnemonic(op, z80Reg8[op&7])
}

// decodeIndexedCB handles DDCB d op; the register copy of the undocumented
// forms is shown after the memory operand.
func (d *z80Disasm) decodeIndexedCB() string {
	m := d.mem()
	op := d.next()
	s := cbMnemonic(op, m)
	if z := op & 7; z != 6 && op>>6 != 1 {
		s += ", " + z80Reg8[z]
	}
	return s
}

func (d *z80Disasm) decodeED(op byte) string {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	if x == 2 && z <= 3 && y >= 4 {
		return z80Block[y-4][z]
	}
	if x != 1 {
		return fmt.Sprintf("db $ED, $%02X", op)
	}
	switch z {
	case 0:
		if y == 6 {
			return "IN (C)"
		}
		return fmt.Sprintf("IN %s, (C)", z80Reg8[y])
	case 1:
		if y == 6 {
			return "OUT (C), 0"
		}
		return fmt.Sprintf("OUT (C), %s", z80Reg8[y])
	case 2:
		if q == 0 {
			return "SBC HL, " + z80Reg16[p]
		}
		return "ADC HL, " + z80Reg16[p]
	case 3:
		if q == 0 {
			return fmt.Sprintf("LD (%s), %s", d.imm16(), z80Reg16[p])
		}
		return fmt.Sprintf("LD %s, (%s)", z80Reg16[p], d.imm16())
	case 4:
		return "NEG"
	case 5:
		if y == 1 {
			return "RETI"
		}
		return "RETN"
	case 6:
		return fmt.Sprintf("IM %d", z80InterruptModes[y])
	}
	switch y {
	case 0:
		return "LD I, A"
	case 1:
		return "LD R, A"
	case 2:
		return "LD A, I"
	case 3:
		return "LD A, R"
	case 4:
		return "RRD"
	case 5:
		return "RLD"
	}
	return fmt.Sprintf("db $ED, $%02X", op)
}

// DisassembleZ80 decodes the instruction at addr.
func DisassembleZ80(read func(addr uint16) byte, addr uint16) DisassembledLine {
	d := &z80Disasm{read: read, start: addr, pos: addr}
	mnemonic := d.decode()
	size := int(d.pos - addr)

	hexParts := make([]string, 0, size)
	for i := range size {
		hexParts = append(hexParts, fmt.Sprintf("%02X", read(addr+uint16(i))))
	}
	return DisassembledLine{
		Address:      addr,
		HexBytes:     strings.Join(hexParts, " "),
		Mnemonic:     mnemonic,
		Size:         size,
		IsBranch:     d.branch,
		BranchTarget: d.target,
	}
}

func disassembleZ80(read func(addr uint16) byte, addr uint16, count int, pc uint16) []DisassembledLine {
	lines := make([]DisassembledLine, 0, count)
	for range count {
		line := DisassembleZ80(read, addr)
		line.IsPC = addr == pc
		lines = append(lines, line)
		addr += uint16(line.Size)
	}
	return lines
}
