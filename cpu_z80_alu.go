// cpu_z80_alu.go - Z80 arithmetic, logic, rotate and flag helpers

package main

type aluOp byte

const (
	aluAdd aluOp = iota
	aluAdc
	aluSub
	aluSbc
	aluAnd
	aluXor
	aluOr
	aluCp
)

func (c *CPU_Z80) carry() byte {
	return c.F & FlagC
}

func (c *CPU_Z80) performALU(op aluOp, value byte) {
	switch op {
	case aluAdd:
		c.addA(value, 0)
	case aluAdc:
		c.addA(value, c.carry())
	case aluSub:
		c.subA(value, 0, true)
	case aluSbc:
		c.subA(value, c.carry(), true)
	case aluAnd:
		c.A &= value
		c.F = szpTable[c.A] | FlagH
	case aluXor:
		c.A ^= value
		c.F = szpTable[c.A]
	case aluOr:
		c.A |= value
		c.F = szpTable[c.A]
	case aluCp:
		c.subA(value, 0, false)
		// CP takes the undocumented bits from the operand, not the result.
		c.F = c.F&^(FlagX|FlagY) | value&(FlagX|FlagY)
	}
}

func (c *CPU_Z80) addA(value byte, carry byte) {
	a := c.A
	sum := uint16(a) + uint16(value) + uint16(carry)
	res := byte(sum)

	c.A = res
	c.F = szTable[res]
	if ((a&0x0F)+(value&0x0F)+carry)&0x10 != 0 {
		c.F |= FlagH
	}
	if (^(a^value))&(a^res)&0x80 != 0 {
		c.F |= FlagPV
	}
	if sum > 0xFF {
		c.F |= FlagC
	}
}

func (c *CPU_Z80) subA(value byte, carry byte, store bool) {
	a := c.A
	diff := int(a) - int(value) - int(carry)
	res := byte(diff)

	if store {
		c.A = res
	}
	c.F = szTable[res] | FlagN
	if int(a&0x0F)-int(value&0x0F)-int(carry) < 0 {
		c.F |= FlagH
	}
	if (a^value)&(a^res)&0x80 != 0 {
		c.F |= FlagPV
	}
	if diff < 0 {
		c.F |= FlagC
	}
}

func (c *CPU_Z80) inc8(value byte) byte {
	res := value + 1
	c.F = c.F&FlagC | szTable[res]
	if value&0x0F == 0x0F {
		c.F |= FlagH
	}
	if value == 0x7F {
		c.F |= FlagPV
	}
	return res
}

func (c *CPU_Z80) dec8(value byte) byte {
	res := value - 1
	c.F = c.F&FlagC | szTable[res] | FlagN
	if value&0x0F == 0 {
		c.F |= FlagH
	}
	if value == 0x80 {
		c.F |= FlagPV
	}
	return res
}

// add16 is ADD HL/IX/IY,rr: S, Z and P/V are preserved.
func (c *CPU_Z80) add16(a, b uint16) uint16 {
	sum := uint32(a) + uint32(b)
	res := uint16(sum)
	c.F &^= FlagH | FlagN | FlagC | FlagX | FlagY
	if ((a&0x0FFF)+(b&0x0FFF))&0x1000 != 0 {
		c.F |= FlagH
	}
	if sum > 0xFFFF {
		c.F |= FlagC
	}
	c.F |= byte(res>>8) & (FlagX | FlagY)
	c.WZ = a + 1
	return res
}

func (c *CPU_Z80) adcHL(value uint16) {
	hl := c.HL()
	carry := uint16(c.carry())
	sum := uint32(hl) + uint32(value) + uint32(carry)
	res := uint16(sum)

	c.F = szTable[byte(res>>8)] &^ FlagZ
	if res == 0 {
		c.F |= FlagZ
	}
	if ((hl&0x0FFF)+(value&0x0FFF)+carry)&0x1000 != 0 {
		c.F |= FlagH
	}
	if (^(hl^value))&(hl^res)&0x8000 != 0 {
		c.F |= FlagPV
	}
	if sum > 0xFFFF {
		c.F |= FlagC
	}
	c.WZ = hl + 1
	c.SetHL(res)
}

func (c *CPU_Z80) sbcHL(value uint16) {
	hl := c.HL()
	carry := uint16(c.carry())
	diff := int32(hl) - int32(value) - int32(carry)
	res := uint16(diff)

	c.F = szTable[byte(res>>8)]&^FlagZ | FlagN
	if res == 0 {
		c.F |= FlagZ
	}
	if int32(hl&0x0FFF)-int32(value&0x0FFF)-int32(carry) < 0 {
		c.F |= FlagH
	}
	if (hl^value)&(hl^res)&0x8000 != 0 {
		c.F |= FlagPV
	}
	if diff < 0 {
		c.F |= FlagC
	}
	c.WZ = hl + 1
	c.SetHL(res)
}

func (c *CPU_Z80) neg() {
	a := c.A
	c.A = 0
	c.subA(a, 0, true)
}

func (c *CPU_Z80) daa() {
	c.SetAF(daaTable[daaIndex(c.A, c.F)])
}

func (c *CPU_Z80) cpl() {
	c.A = ^c.A
	c.F = c.F&(FlagS|FlagZ|FlagPV|FlagC) | FlagH | FlagN | c.A&(FlagX|FlagY)
}

func (c *CPU_Z80) scf() {
	c.F = c.F&(FlagS|FlagZ|FlagPV) | FlagC | c.A&(FlagX|FlagY)
}

func (c *CPU_Z80) ccf() {
	f := c.F&(FlagS|FlagZ|FlagPV) | c.A&(FlagX|FlagY)
	if c.F&FlagC != 0 {
		f |= FlagH
	} else {
		f |= FlagC
	}
	c.F = f
}

// rotateA covers RLCA/RRCA/RLA/RRA, which leave S, Z and P/V alone.
func (c *CPU_Z80) rotateA(y byte) {
	var carry bool
	switch y {
	case 0:
		carry = c.A&0x80 != 0
		c.A = c.A<<1 | c.A>>7
	case 1:
		carry = c.A&0x01 != 0
		c.A = c.A>>1 | c.A<<7
	case 2:
		carry = c.A&0x80 != 0
		c.A = c.A<<1 | c.carry()
	case 3:
		carry = c.A&0x01 != 0
		c.A = c.A>>1 | c.carry()<<7
	}
	f := c.F&(FlagS|FlagZ|FlagPV) | c.A&(FlagX|FlagY)
	if carry {
		f |= FlagC
	}
	c.F = f
}

// rotShift is the CB rot[y] group: RLC RRC RL RR SLA SRA SLL SRL.
func (c *CPU_Z80) rotShift(y byte, value byte) byte {
	var res byte
	var carry bool
	switch y {
	case 0:
		carry = value&0x80 != 0
		res = value<<1 | value>>7
	case 1:
		carry = value&0x01 != 0
		res = value>>1 | value<<7
	case 2:
		carry = value&0x80 != 0
		res = value<<1 | c.carry()
	case 3:
		carry = value&0x01 != 0
		res = value>>1 | c.carry()<<7
	case 4:
		carry = value&0x80 != 0
		res = value << 1
	case 5:
		carry = value&0x01 != 0
		res = value>>1 | value&0x80
	case 6:
		carry = value&0x80 != 0
		res = value<<1 | 0x01
	case 7:
		carry = value&0x01 != 0
		res = value >> 1
	}
	c.F = szpTable[res]
	if carry {
		c.F |= FlagC
	}
	return res
}

// bitTest is BIT b,value. xy supplies the undocumented X/Y bits, which come
// from the operand for registers and from the high byte of the address for
// memory forms.
func (c *CPU_Z80) bitTest(bit byte, value byte, xy byte) {
	f := c.F&FlagC | FlagH | xy&(FlagX|FlagY)
	if value&(1<<bit) == 0 {
		f |= FlagZ | FlagPV
	} else if bit == 7 {
		f |= FlagS
	}
	c.F = f
}

// ldAIRFlags is the flag update of LD A,I and LD A,R.
func (c *CPU_Z80) ldAIRFlags() {
	c.F = c.F&FlagC | szTable[c.A]
	if c.IFF2 {
		c.F |= FlagPV
	}
}

func (c *CPU_Z80) inFlags(value byte) {
	c.F = c.F&FlagC | szpTable[value]
}

func (c *CPU_Z80) rrdRLDFlags() {
	c.F = c.F&FlagC | szpTable[c.A]
}

func (c *CPU_Z80) ldiFlags(value byte) {
	n := c.A + value
	f := c.F & (FlagS | FlagZ | FlagC)
	if c.BC() != 0 {
		f |= FlagPV
	}
	f |= n & FlagX
	if n&0x02 != 0 {
		f |= FlagY
	}
	c.F = f
}

func (c *CPU_Z80) cpiFlags(value byte) {
	carry := c.F & FlagC
	c.subA(value, 0, false)
	n := c.A - value
	if c.F&FlagH != 0 {
		n--
	}
	f := c.F&^(FlagX|FlagY|FlagPV|FlagC) | carry
	if c.BC() != 0 {
		f |= FlagPV
	}
	f |= n & FlagX
	if n&0x02 != 0 {
		f |= FlagY
	}
	c.F = f
}

// blockIOFlags is the documented-plus-undocumented flag result of
// INI/IND/OUTI/OUTD; k is the sum used for H, C and P/V.
func (c *CPU_Z80) blockIOFlags(value byte, k uint16) {
	f := szTable[c.B]
	if value&0x80 != 0 {
		f |= FlagN
	}
	if k > 0xFF {
		f |= FlagH | FlagC
	}
	if parityTable[byte(k&7)^c.B] {
		f |= FlagPV
	}
	c.F = f
}
