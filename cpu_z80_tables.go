// cpu_z80_tables.go - Precomputed Z80 flag lookup tables

package main

// The tables below are built once during package initialisation and never
// written afterwards; they are safe to share between simulators.
var (
	// parityTable[v] is true when v has an even number of set bits.
	parityTable = buildParityTable()

	// szTable holds S, Z and the undocumented Y/X copies for a result byte.
	szTable = buildSZTable()

	// szpTable is szTable with the parity flag folded in.
	szpTable = buildSZPTable()

	// daaTable maps (C, H, N, A) to the AF pair produced by DAA.
	// Index: bit 8 = C, bit 9 = H, bit 10 = N, bits 0-7 = A.
	daaTable = buildDAATable()
)

func buildParityTable() [256]bool {
	var t [256]bool
	for i := range 256 {
		v := byte(i)
		v ^= v >> 4
		v ^= v >> 2
		v ^= v >> 1
		t[i] = v&1 == 0
	}
	return t
}

func buildSZTable() [256]byte {
	var t [256]byte
	for i := range 256 {
		f := byte(i) & (FlagS | FlagY | FlagX)
		if i == 0 {
			f |= FlagZ
		}
		t[i] = f
	}
	return t
}

func buildSZPTable() [256]byte {
	var t [256]byte
	for i := range 256 {
		t[i] = szTable[i]
		if parityTable[i] {
			t[i] |= FlagPV
		}
	}
	return t
}

func daaIndex(a, f byte) int {
	idx := int(a)
	if f&FlagC != 0 {
		idx |= 0x100
	}
	if f&FlagH != 0 {
		idx |= 0x200
	}
	if f&FlagN != 0 {
		idx |= 0x400
	}
	return idx
}

func buildDAATable() [2048]uint16 {
	var t [2048]uint16
	for idx := range 2048 {
		a := byte(idx)
		carry := idx&0x100 != 0
		half := idx&0x200 != 0
		sub := idx&0x400 != 0

		lo := a & 0x0F
		var diff byte
		if half || lo > 9 {
			diff |= 0x06
		}
		newCarry := carry
		if carry || a > 0x99 {
			diff |= 0x60
			newCarry = true
		}

		var res byte
		var newHalf bool
		if sub {
			res = a - diff
			newHalf = half && lo < 6
		} else {
			res = a + diff
			newHalf = lo > 9
		}

		f := szpTable[res]
		if sub {
			f |= FlagN
		}
		if newHalf {
			f |= FlagH
		}
		if newCarry {
			f |= FlagC
		}
		t[idx] = uint16(res)<<8 | uint16(f)
	}
	return t
}
