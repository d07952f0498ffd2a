// cpu_z80_decode.go - Z80 instruction decode and execute

/*
Opcodes are split into the fields used by the Zilog decoding tables:

	x = op[7:6]  y = op[5:3]  z = op[2:0]  p = y[2:1]  q = y[0]

Every opcode space (base, CB, ED, DD/FD, DDCB/FDCB) is a switch over
those fields. A DD or FD prefix only changes which register stands in for HL
and whether (HL) becomes (IX+d); the base switch handles both through
idxHL, reg8 and hlAddr.
*/

package main

func (c *CPU_Z80) idxHL() uint16 {
	switch c.prefixMode {
	case z80PrefixDD:
		return c.IX
	case z80PrefixFD:
		return c.IY
	}
	return c.HL()
}

func (c *CPU_Z80) setIdxHL(v uint16) {
	switch c.prefixMode {
	case z80PrefixDD:
		c.IX = v
	case z80PrefixFD:
		c.IY = v
	default:
		c.SetHL(v)
	}
}

// hlAddr returns the address of the (HL) operand. Under a DD/FD prefix it
// fetches the displacement and charges the 8 extra T-states of (IX+d).
func (c *CPU_Z80) hlAddr() uint16 {
	if c.prefixMode == z80PrefixNone {
		return c.HL()
	}
	d := int8(c.fetchByte())
	addr := c.idxHL() + uint16(int16(d))
	c.WZ = addr
	c.tick(8)
	return addr
}

// reg8 reads r[code] for codes other than 6. Codes 4 and 5 follow the
// index prefix (IXH/IXL, IYH/IYL).
func (c *CPU_Z80) reg8(code byte) byte {
	switch code {
	case 4:
		return byte(c.idxHL() >> 8)
	case 5:
		return byte(c.idxHL())
	}
	return c.reg8Plain(code)
}

func (c *CPU_Z80) setReg8(code byte, v byte) {
	switch code {
	case 4:
		c.setIdxHL(c.idxHL()&0x00FF | uint16(v)<<8)
	case 5:
		c.setIdxHL(c.idxHL()&0xFF00 | uint16(v))
	default:
		c.setReg8Plain(code, v)
	}
}

// reg8Plain ignores the index prefix; used when the other operand is (IX+d).
func (c *CPU_Z80) reg8Plain(code byte) byte {
	switch code {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 7:
		return c.A
	}
	panic("z80: reg8Plain called with (HL)")
}

func (c *CPU_Z80) setReg8Plain(code byte, v byte) {
	switch code {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 7:
		c.A = v
	default:
		panic("z80: setReg8Plain called with (HL)")
	}
}

func (c *CPU_Z80) rp(p byte) uint16 {
	switch p {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.idxHL()
	}
	return c.SP
}

func (c *CPU_Z80) setRP(p byte, v uint16) {
	switch p {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		c.setIdxHL(v)
	default:
		c.SP = v
	}
}

func (c *CPU_Z80) rp2(p byte) uint16 {
	if p == 3 {
		return c.AF()
	}
	return c.rp(p)
}

func (c *CPU_Z80) setRP2(p byte, v uint16) {
	if p == 3 {
		c.SetAF(v)
		return
	}
	c.setRP(p, v)
}

func (c *CPU_Z80) condition(y byte) bool {
	switch y {
	case 0:
		return c.F&FlagZ == 0
	case 1:
		return c.F&FlagZ != 0
	case 2:
		return c.F&FlagC == 0
	case 3:
		return c.F&FlagC != 0
	case 4:
		return c.F&FlagPV == 0
	case 5:
		return c.F&FlagPV != 0
	case 6:
		return c.F&FlagS == 0
	}
	return c.F&FlagS != 0
}

func (c *CPU_Z80) jumpRelative(d byte) {
	c.PC += uint16(int16(int8(d)))
	c.WZ = c.PC
}

// ---------------------------------------------------------------------------
// Base opcode space (also entered with a DD/FD prefix active)
// ---------------------------------------------------------------------------

func (c *CPU_Z80) executeBase(op byte) {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	switch x {
	case 0:
		c.executeX0(y, z, p, q)
	case 1:
		c.executeLoad8(op, y, z)
	case 2:
		if z == 6 {
			addr := c.hlAddr()
			c.performALU(aluOp(y), c.read(addr))
			c.tick(7)
			return
		}
		c.performALU(aluOp(y), c.reg8(z))
		c.tick(4)
	case 3:
		c.executeX3(y, z, p, q)
	}
}

func (c *CPU_Z80) executeX0(y, z, p, q byte) {
	switch z {
	case 0:
		switch y {
		case 0: // NOP
			c.tick(4)
		case 1: // EX AF,AF'
			c.ExAF()
			c.tick(4)
		case 2: // DJNZ d
			d := c.fetchByte()
			c.B--
			if c.B != 0 {
				c.jumpRelative(d)
				c.tick(13)
			} else {
				c.tick(8)
			}
		case 3: // JR d
			c.jumpRelative(c.fetchByte())
			c.tick(12)
		default: // JR cc,d
			d := c.fetchByte()
			if c.condition(y - 4) {
				c.jumpRelative(d)
				c.tick(12)
			} else {
				c.tick(7)
			}
		}
	case 1:
		if q == 0 { // LD rp,nn
			c.setRP(p, c.fetchWord())
			c.tick(10)
		} else { // ADD HL,rp
			c.setIdxHL(c.add16(c.idxHL(), c.rp(p)))
			c.tick(11)
		}
	case 2:
		c.executeIndirectLoad(p, q)
	case 3:
		if q == 0 {
			c.setRP(p, c.rp(p)+1)
		} else {
			c.setRP(p, c.rp(p)-1)
		}
		c.tick(6)
	case 4, 5:
		inc := z == 4
		if y == 6 {
			addr := c.hlAddr()
			v := c.read(addr)
			if inc {
				v = c.inc8(v)
			} else {
				v = c.dec8(v)
			}
			c.write(addr, v)
			c.tick(11)
			return
		}
		if inc {
			c.setReg8(y, c.inc8(c.reg8(y)))
		} else {
			c.setReg8(y, c.dec8(c.reg8(y)))
		}
		c.tick(4)
	case 6:
		if y == 6 { // LD (HL),n
			if c.prefixMode != z80PrefixNone {
				addr := c.hlAddr()
				c.write(addr, c.fetchByte())
				c.tick(7)
				return
			}
			c.write(c.HL(), c.fetchByte())
			c.tick(10)
			return
		}
		c.setReg8(y, c.fetchByte())
		c.tick(7)
	case 7:
		switch y {
		case 0, 1, 2, 3:
			c.rotateA(y)
		case 4:
			c.daa()
		case 5:
			c.cpl()
		case 6:
			c.scf()
		case 7:
			c.ccf()
		}
		c.tick(4)
	}
}

func (c *CPU_Z80) executeIndirectLoad(p, q byte) {
	switch p {
	case 0, 1:
		addr := c.BC()
		if p == 1 {
			addr = c.DE()
		}
		if q == 0 { // LD (BC/DE),A
			c.write(addr, c.A)
			c.WZ = uint16(c.A)<<8 | (addr+1)&0xFF
		} else { // LD A,(BC/DE)
			c.A = c.read(addr)
			c.WZ = addr + 1
		}
		c.tick(7)
	case 2:
		addr := c.fetchWord()
		if q == 0 { // LD (nn),HL
			c.writeWord(addr, c.idxHL())
		} else { // LD HL,(nn)
			c.setIdxHL(c.readWord(addr))
		}
		c.WZ = addr + 1
		c.tick(16)
	case 3:
		addr := c.fetchWord()
		if q == 0 { // LD (nn),A
			c.write(addr, c.A)
			c.WZ = uint16(c.A)<<8 | (addr+1)&0xFF
		} else { // LD A,(nn)
			c.A = c.read(addr)
			c.WZ = addr + 1
		}
		c.tick(13)
	}
}

func (c *CPU_Z80) executeLoad8(op, y, z byte) {
	switch {
	case op == 0x76: // HALT
		c.Halted = true
		c.tick(4)
	case y == 6: // LD (HL),r
		addr := c.hlAddr()
		c.write(addr, c.reg8Plain(z))
		c.tick(7)
	case z == 6: // LD r,(HL)
		addr := c.hlAddr()
		c.setReg8Plain(y, c.read(addr))
		c.tick(7)
	default:
		c.setReg8(y, c.reg8(z))
		c.tick(4)
	}
}

func (c *CPU_Z80) executeX3(y, z, p, q byte) {
	switch z {
	case 0: // RET cc
		if c.condition(y) {
			c.PC = c.popWord()
			c.WZ = c.PC
			c.tick(11)
		} else {
			c.tick(5)
		}
	case 1:
		if q == 0 { // POP rp2
			c.setRP2(p, c.popWord())
			c.tick(10)
			return
		}
		switch p {
		case 0: // RET
			c.PC = c.popWord()
			c.WZ = c.PC
			c.tick(10)
		case 1:
			c.Exx()
			c.tick(4)
		case 2: // JP (HL)
			c.PC = c.idxHL()
			c.tick(4)
		case 3: // LD SP,HL
			c.SP = c.idxHL()
			c.tick(6)
		}
	case 2: // JP cc,nn
		addr := c.fetchWord()
		if c.condition(y) {
			c.PC = addr
		}
		c.WZ = addr
		c.tick(10)
	case 3:
		c.executeX3Z3(y)
	case 4: // CALL cc,nn
		addr := c.fetchWord()
		c.WZ = addr
		if c.condition(y) {
			c.pushWord(c.PC)
			c.PC = addr
			c.tick(17)
		} else {
			c.tick(10)
		}
	case 5:
		if q == 0 { // PUSH rp2
			c.pushWord(c.rp2(p))
			c.tick(11)
			return
		}
		switch p {
		case 0: // CALL nn
			addr := c.fetchWord()
			c.pushWord(c.PC)
			c.PC = addr
			c.WZ = addr
			c.tick(17)
		case 1:
			c.enterIndexPrefix(z80PrefixDD)
		case 2:
			c.prefixMode = z80PrefixNone
			c.executeED(c.fetchOpcode())
		case 3:
			c.enterIndexPrefix(z80PrefixFD)
		}
	case 6: // alu n
		c.performALU(aluOp(y), c.fetchByte())
		c.tick(7)
	case 7: // RST
		c.pushWord(c.PC)
		c.PC = uint16(y) * 8
		c.WZ = c.PC
		c.tick(11)
	}
}

func (c *CPU_Z80) executeX3Z3(y byte) {
	switch y {
	case 0: // JP nn
		c.PC = c.fetchWord()
		c.WZ = c.PC
		c.tick(10)
	case 1:
		if c.prefixMode != z80PrefixNone {
			c.executeIndexedCB()
			return
		}
		c.executeCB(c.fetchOpcode())
	case 2: // OUT (n),A
		n := c.fetchByte()
		port := uint16(c.A)<<8 | uint16(n)
		c.out(port, c.A)
		c.WZ = uint16(c.A)<<8 | uint16(n+1)
		c.tick(11)
	case 3: // IN A,(n)
		n := c.fetchByte()
		port := uint16(c.A)<<8 | uint16(n)
		c.A = c.in(port)
		c.WZ = port + 1
		c.tick(11)
	case 4: // EX (SP),HL
		v := c.readWord(c.SP)
		c.writeWord(c.SP, c.idxHL())
		c.setIdxHL(v)
		c.WZ = v
		c.tick(19)
	case 5: // EX DE,HL ignores the index prefix
		de := c.DE()
		c.SetDE(c.HL())
		c.SetHL(de)
		c.tick(4)
	case 6: // DI
		c.IFF1 = false
		c.IFF2 = false
		c.iffDelay = 0
		c.tick(4)
	case 7: // EI
		c.iffDelay = 2
		c.tick(4)
	}
}

// enterIndexPrefix charges the prefix and runs the following opcode with IX
// or IY standing in for HL. An opcode that does not use HL runs unchanged,
// so the prefix behaves as a 4 T-state NOP.
func (c *CPU_Z80) enterIndexPrefix(mode byte) {
	c.tick(4)
	c.prefixMode = mode
	c.executeBase(c.fetchOpcode())
}

// ---------------------------------------------------------------------------
// CB space
// ---------------------------------------------------------------------------

func (c *CPU_Z80) executeCB(op byte) {
	x, y, z := op>>6, (op>>3)&7, op&7

	if z == 6 {
		addr := c.HL()
		v := c.read(addr)
		switch x {
		case 0:
			c.write(addr, c.rotShift(y, v))
			c.tick(15)
		case 1:
			c.bitTest(y, v, byte(c.WZ>>8))
			c.tick(12)
		case 2:
			c.write(addr, v&^(1<<y))
			c.tick(15)
		case 3:
			c.write(addr, v|1<<y)
			c.tick(15)
		}
		return
	}

	v := c.reg8Plain(z)
	switch x {
	case 0:
		c.setReg8Plain(z, c.rotShift(y, v))
	case 1:
		c.bitTest(y, v, v)
	case 2:
		c.setReg8Plain(z, v&^(1<<y))
	case 3:
		c.setReg8Plain(z, v|1<<y)
	}
	c.tick(8)
}

// executeIndexedCB handles DDCB d op / FDCB d op. The displacement comes
// before the final opcode and neither byte refreshes R. Non-BIT forms also
// copy the result into r[z] when z is not 6.
func (c *CPU_Z80) executeIndexedCB() {
	d := int8(c.fetchByte())
	op := c.fetchByte()
	addr := c.idxHL() + uint16(int16(d))
	c.WZ = addr

	x, y, z := op>>6, (op>>3)&7, op&7
	v := c.read(addr)

	var res byte
	switch x {
	case 0:
		res = c.rotShift(y, v)
	case 1:
		c.bitTest(y, v, byte(addr>>8))
		c.tick(16)
		return
	case 2:
		res = v &^ (1 << y)
	case 3:
		res = v | 1<<y
	}
	c.write(addr, res)
	if z != 6 {
		c.setReg8Plain(z, res)
	}
	c.tick(19)
}

// ---------------------------------------------------------------------------
// ED space
// ---------------------------------------------------------------------------

var z80InterruptModes = [8]byte{0, 0, 1, 2, 0, 0, 1, 2}

func (c *CPU_Z80) executeED(op byte) {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	switch {
	case x == 1:
		c.executeED1(y, z, p, q)
	case x == 2 && z <= 3 && y >= 4:
		c.executeBlock(y, z)
	default:
		c.markUndefined(0xED00 | uint16(op))
		c.tick(8)
	}
}

func (c *CPU_Z80) executeED1(y, z, p, q byte) {
	switch z {
	case 0: // IN r,(C)
		v := c.in(c.BC())
		c.WZ = c.BC() + 1
		c.inFlags(v)
		if y != 6 {
			c.setReg8Plain(y, v)
		}
		c.tick(12)
	case 1: // OUT (C),r
		v := byte(0)
		if y != 6 {
			v = c.reg8Plain(y)
		}
		c.out(c.BC(), v)
		c.WZ = c.BC() + 1
		c.tick(12)
	case 2:
		if q == 0 {
			c.sbcHL(c.rp(p))
		} else {
			c.adcHL(c.rp(p))
		}
		c.tick(15)
	case 3:
		addr := c.fetchWord()
		if q == 0 {
			c.writeWord(addr, c.rp(p))
		} else {
			c.setRP(p, c.readWord(addr))
		}
		c.WZ = addr + 1
		c.tick(20)
	case 4:
		c.neg()
		c.tick(8)
	case 5: // RETN / RETI
		c.PC = c.popWord()
		c.WZ = c.PC
		c.IFF1 = c.IFF2
		c.tick(14)
	case 6:
		c.IM = z80InterruptModes[y]
		c.tick(8)
	case 7:
		c.executeED1Z7(y)
	}
}

func (c *CPU_Z80) executeED1Z7(y byte) {
	switch y {
	case 0: // LD I,A
		c.I = c.A
		c.tick(9)
	case 1: // LD R,A
		c.R = c.A
		c.tick(9)
	case 2: // LD A,I
		c.A = c.I
		c.ldAIRFlags()
		c.tick(9)
	case 3: // LD A,R
		c.A = c.R
		c.ldAIRFlags()
		c.tick(9)
	case 4: // RRD
		addr := c.HL()
		v := c.read(addr)
		c.write(addr, c.A<<4|v>>4)
		c.A = c.A&0xF0 | v&0x0F
		c.rrdRLDFlags()
		c.WZ = addr + 1
		c.tick(18)
	case 5: // RLD
		addr := c.HL()
		v := c.read(addr)
		c.write(addr, v<<4|c.A&0x0F)
		c.A = c.A&0xF0 | v>>4
		c.rrdRLDFlags()
		c.WZ = addr + 1
		c.tick(18)
	default:
		c.markUndefined(0xED40 | uint16(y)<<3 | 7)
		c.tick(8)
	}
}

// executeBlock runs one iteration of LDI/CPI/INI/OUTI and their decrementing
// and repeating forms. A repeating form that has not finished rewinds PC so
// the same instruction runs again.
func (c *CPU_Z80) executeBlock(y, z byte) {
	dec := y&1 != 0
	repeat := y >= 6
	step := uint16(1)
	if dec {
		step = 0xFFFF
	}

	again := false
	switch z {
	case 0: // LDI
		v := c.read(c.HL())
		c.write(c.DE(), v)
		c.SetHL(c.HL() + step)
		c.SetDE(c.DE() + step)
		c.SetBC(c.BC() - 1)
		c.ldiFlags(v)
		again = c.BC() != 0
	case 1: // CPI
		v := c.read(c.HL())
		c.SetHL(c.HL() + step)
		c.SetBC(c.BC() - 1)
		c.cpiFlags(v)
		c.WZ += step
		again = c.BC() != 0 && c.F&FlagZ == 0
	case 2: // INI
		v := c.in(c.BC())
		c.WZ = c.BC() + step
		c.write(c.HL(), v)
		c.B--
		c.SetHL(c.HL() + step)
		c.blockIOFlags(v, uint16(v)+uint16(c.C+byte(step)))
		again = c.B != 0
	case 3: // OUTI
		v := c.read(c.HL())
		c.B--
		c.out(c.BC(), v)
		c.WZ = c.BC() + step
		c.SetHL(c.HL() + step)
		c.blockIOFlags(v, uint16(v)+uint16(c.L))
		again = c.B != 0
	}

	c.tick(16)
	if repeat && again {
		c.PC -= 2
		c.WZ = c.PC + 1
		c.tick(5)
	}
}
