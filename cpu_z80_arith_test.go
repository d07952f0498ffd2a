package main

import "testing"

func TestZ80ALURegister(t *testing.T) {
	cases := []struct {
		name         string
		op           byte
		a, b, f      uint16
		wantA, wantF uint16
	}{
		{"ADD A,B", 0x80, 0x0F, 0x01, 0x00, 0x10, 0x10},
		{"ADD A,B overflow", 0x80, 0x7F, 0x01, 0x00, 0x80, 0x94},
		{"ADC A,B carry out", 0x88, 0xFF, 0x00, 0x01, 0x00, 0x51},
		{"ADC A,B carry in", 0x88, 0x10, 0x01, 0x01, 0x12, 0x00},
		{"SUB B", 0x90, 0x10, 0x01, 0x00, 0x0F, 0x1A},
		{"SBC A,B borrow", 0x98, 0x00, 0x00, 0x01, 0xFF, 0xBB},
		{"SBC A,B", 0x98, 0x12, 0x01, 0x00, 0x11, 0x02},
		{"AND B zero", 0xA0, 0xF0, 0x0F, 0x00, 0x00, 0x54},
		{"AND B", 0xA0, 0x11, 0x01, 0x00, 0x01, 0x10},
		{"XOR B", 0xA8, 0xFF, 0x0F, 0x00, 0xF0, 0xA4},
		{"XOR B all ones", 0xA8, 0x0F, 0xF0, 0x00, 0xFF, 0xAC},
		{"OR B", 0xB0, 0x01, 0x80, 0x00, 0x81, 0x84},
		{"CP B", 0xB8, 0x81, 0x01, 0x00, 0x81, 0x82},
	}

	var table []z80Case
	for _, tc := range cases {
		table = append(table, z80Case{
			name:   tc.name,
			code:   []byte{tc.op},
			regs:   z80Regs{"A": tc.a, "B": tc.b, "F": tc.f},
			cycles: 4,
			want:   z80Regs{"A": tc.wantA, "F": tc.wantF, "B": tc.b},
		})
	}
	runZ80Cases(t, table)
}

func TestZ80ALUImmediate(t *testing.T) {
	runZ80Cases(t, []z80Case{
		{name: "CP n takes X/Y from operand", code: []byte{0xFE, 0x20}, regs: z80Regs{"A": 0x10},
			cycles: 7, want: z80Regs{"A": 0x10, "F": 0xA3}},
		{name: "ADC A,n", code: []byte{0xCE, 0x01}, regs: z80Regs{"A": 0x00, "F": 0x01},
			cycles: 7, want: z80Regs{"A": 0x02, "F": 0x00}},
		{name: "SBC A,n", code: []byte{0xDE, 0x01}, regs: z80Regs{"A": 0x02},
			cycles: 7, want: z80Regs{"A": 0x01, "F": 0x02}},
		{name: "AND n", code: []byte{0xE6, 0x0F}, regs: z80Regs{"A": 0x01},
			want: z80Regs{"A": 0x01, "F": 0x10}},
		{name: "XOR n", code: []byte{0xEE, 0xF0}, regs: z80Regs{"A": 0x01},
			want: z80Regs{"A": 0xF1, "F": 0xA0}},
		{name: "OR n", code: []byte{0xF6, 0x01}, regs: z80Regs{"A": 0xF1},
			want: z80Regs{"A": 0xF1, "F": 0xA0}},
		{name: "CP n", code: []byte{0xFE, 0x80}, regs: z80Regs{"A": 0xF1},
			want: z80Regs{"A": 0xF1, "F": 0x02}},
		{name: "NEG", code: []byte{0xED, 0x44}, regs: z80Regs{"A": 0x01},
			cycles: 8, want: z80Regs{"A": 0xFF, "F": 0xBB}},
		{
			name:   "register, (HL) and immediate operands",
			code:   []byte{0x80, 0x86, 0xC6, 0x01},
			regs:   z80Regs{"B": 0x01, "HL": 0x2000},
			mem:    map[uint16]byte{0x2000: 0x01},
			steps:  3,
			cycles: 18,
			want:   z80Regs{"A": 0x03, "PC": 4},
		},
	})
}

func TestZ80IncDec(t *testing.T) {
	runZ80Cases(t, []z80Case{
		{name: "INC B overflow", code: []byte{0x04}, regs: z80Regs{"B": 0x7F},
			cycles: 4, want: z80Regs{"B": 0x80, "F": 0x94}},
		{name: "DEC B overflow", code: []byte{0x05}, regs: z80Regs{"B": 0x80},
			cycles: 4, want: z80Regs{"B": 0x7F, "F": 0x3E}},
		{name: "INC keeps carry", code: []byte{0x0C}, regs: z80Regs{"C": 0x01, "F": FlagC},
			want: z80Regs{"C": 0x02, "F": FlagC}},
		{name: "INC (HL)", code: []byte{0x34}, regs: z80Regs{"HL": 0x2000},
			cycles: 11, want: z80Regs{"F": 0x00}, wantMem: map[uint16]byte{0x2000: 0x01}},
		{name: "DEC (HL)", code: []byte{0x35}, regs: z80Regs{"HL": 0x2000}, mem: map[uint16]byte{0x2000: 0x01},
			cycles: 11, want: z80Regs{"F": 0x42}, wantMem: map[uint16]byte{0x2000: 0x00}},
		{
			name:   "INC rr",
			code:   []byte{0x03, 0x13, 0x23, 0x33},
			regs:   z80Regs{"BC": 1, "DE": 2, "HL": 3, "SP": 4},
			steps:  4,
			cycles: 24,
			want:   z80Regs{"BC": 2, "DE": 3, "HL": 4, "SP": 5, "F": 0},
		},
		{
			name:   "INC rr then DEC rr",
			code:   []byte{0x03, 0x13, 0x23, 0x33, 0x0B, 0x1B, 0x2B, 0x3B},
			regs:   z80Regs{"BC": 1, "DE": 2, "HL": 3, "SP": 4},
			steps:  8,
			cycles: 48,
			want:   z80Regs{"BC": 1, "DE": 2, "HL": 3, "SP": 4},
		},
	})
}

func TestZ80Arith16(t *testing.T) {
	runZ80Cases(t, []z80Case{
		{name: "ADD HL,BC half carry", code: []byte{0x09}, regs: z80Regs{"HL": 0x0FFF, "BC": 0x0001},
			cycles: 11, want: z80Regs{"HL": 0x1000, "F": 0x10, "WZ": 0x1000}},
		{
			name:   "ADD HL,rr",
			code:   []byte{0x09, 0x19, 0x29, 0x39},
			regs:   z80Regs{"HL": 0x0FFF, "BC": 1, "DE": 1, "SP": 1},
			steps:  4,
			cycles: 44,
			want:   z80Regs{"HL": 0x2003},
		},
		{name: "ADC HL,BC wraps to zero", code: []byte{0xED, 0x4A}, regs: z80Regs{"HL": 0xFFFF, "BC": 0x0001},
			cycles: 15, want: z80Regs{"HL": 0x0000, "F": 0x51}},
		{name: "SBC HL,BC borrows", code: []byte{0xED, 0x42}, regs: z80Regs{"BC": 0x0001, "F": FlagC},
			cycles: 15, want: z80Regs{"HL": 0xFFFE, "F": 0xBB}},
	})
}

func TestZ80AccumulatorOps(t *testing.T) {
	runZ80Cases(t, []z80Case{
		{name: "CPL", code: []byte{0x2F}, regs: z80Regs{"A": 0x55, "F": 0xC5},
			cycles: 4, want: z80Regs{"A": 0xAA, "F": 0xFF}},
		{name: "SCF", code: []byte{0x37}, regs: z80Regs{"A": 0x28, "F": 0xC4},
			want: z80Regs{"F": 0xED}},
		{name: "CCF", code: []byte{0x3F}, regs: z80Regs{"A": 0x28, "F": 0xED},
			want: z80Regs{"F": 0xFC}},
		{name: "DAA after add", code: []byte{0x27}, regs: z80Regs{"A": 0x9A},
			want: z80Regs{"A": 0x00, "F": 0x55}},
		{name: "DAA after subtract", code: []byte{0x27}, regs: z80Regs{"A": 0x15, "F": FlagN | FlagH},
			want: z80Regs{"A": 0x0F, "F": 0x1E}},
		{name: "RLCA", code: []byte{0x07}, regs: z80Regs{"A": 0x81, "F": 0xC4},
			cycles: 4, want: z80Regs{"A": 0x03, "F": 0xC5}},
		{name: "RRCA", code: []byte{0x0F}, regs: z80Regs{"A": 0x03, "F": 0xC5},
			want: z80Regs{"A": 0x81, "F": 0xC5}},
		{name: "RLA", code: []byte{0x17}, regs: z80Regs{"A": 0x81, "F": 0x81},
			want: z80Regs{"A": 0x03, "F": 0x81}},
		{name: "RRA", code: []byte{0x1F}, regs: z80Regs{"A": 0x03, "F": 0x41},
			want: z80Regs{"A": 0x81, "F": 0x41}},
		{name: "RRD", code: []byte{0xED, 0x67}, regs: z80Regs{"A": 0x12, "HL": 0x4000, "F": 0x01},
			mem: map[uint16]byte{0x4000: 0x34}, cycles: 18,
			want: z80Regs{"A": 0x14, "F": 0x05}, wantMem: map[uint16]byte{0x4000: 0x23}},
		{name: "RLD", code: []byte{0xED, 0x6F}, regs: z80Regs{"A": 0x14, "HL": 0x4000, "F": 0x01},
			mem: map[uint16]byte{0x4000: 0x23}, cycles: 18,
			want: z80Regs{"A": 0x12, "F": 0x05}, wantMem: map[uint16]byte{0x4000: 0x34}},
	})
}

func TestZ80CBGroup(t *testing.T) {
	runZ80Cases(t, []z80Case{
		{name: "RLC B", code: []byte{0xCB, 0x00}, regs: z80Regs{"B": 0x81},
			cycles: 8, want: z80Regs{"B": 0x03, "F": 0x05}},
		{name: "RRC B", code: []byte{0xCB, 0x08}, regs: z80Regs{"B": 0x03},
			want: z80Regs{"B": 0x81, "F": 0x85}},
		{name: "RL B", code: []byte{0xCB, 0x10}, regs: z80Regs{"B": 0x81, "F": FlagC},
			want: z80Regs{"B": 0x03, "F": 0x05}},
		{name: "RR B", code: []byte{0xCB, 0x18}, regs: z80Regs{"B": 0x03, "F": FlagC},
			want: z80Regs{"B": 0x81, "F": 0x85}},
		{name: "SLA B", code: []byte{0xCB, 0x20}, regs: z80Regs{"B": 0x81, "F": 0x85},
			want: z80Regs{"B": 0x02, "F": 0x01}},
		{name: "SRA B", code: []byte{0xCB, 0x28}, regs: z80Regs{"B": 0x02},
			want: z80Regs{"B": 0x01, "F": 0x00}},
		{name: "SRA B keeps sign", code: []byte{0xCB, 0x28}, regs: z80Regs{"B": 0x81},
			want: z80Regs{"B": 0xC0, "F": 0x85}},
		{name: "SLL B", code: []byte{0xCB, 0x30}, regs: z80Regs{"B": 0x80},
			want: z80Regs{"B": 0x01, "F": 0x01}},
		{name: "SRL B", code: []byte{0xCB, 0x38}, regs: z80Regs{"B": 0x01},
			want: z80Regs{"B": 0x00, "F": 0x45}},
		{name: "BIT 0,A set", code: []byte{0xCB, 0x47}, regs: z80Regs{"A": 0x01},
			cycles: 8, want: z80Regs{"F": 0x10}},
		{name: "BIT 7,A clear", code: []byte{0xCB, 0x7F}, regs: z80Regs{"A": 0x01, "F": 0x10},
			want: z80Regs{"F": 0x54}},
		{name: "RES 0,B", code: []byte{0xCB, 0x80}, regs: z80Regs{"B": 0x01},
			cycles: 8, want: z80Regs{"B": 0x00}},
		{name: "SET 0,B", code: []byte{0xCB, 0xC0},
			cycles: 8, want: z80Regs{"B": 0x01}},
		{name: "RLC (HL)", code: []byte{0xCB, 0x06}, regs: z80Regs{"HL": 0x4000},
			mem: map[uint16]byte{0x4000: 0x80}, cycles: 15, wantMem: map[uint16]byte{0x4000: 0x01}},
		{name: "BIT 0,(HL)", code: []byte{0xCB, 0x46}, regs: z80Regs{"HL": 0x4000},
			mem: map[uint16]byte{0x4000: 0x01}, cycles: 12, wantMem: map[uint16]byte{0x4000: 0x01}},
		{name: "RES 0,(HL)", code: []byte{0xCB, 0x86}, regs: z80Regs{"HL": 0x4000},
			mem: map[uint16]byte{0x4000: 0x01}, cycles: 15, wantMem: map[uint16]byte{0x4000: 0x00}},
		{name: "SET 0,(HL)", code: []byte{0xCB, 0xC6}, regs: z80Regs{"HL": 0x4000},
			cycles: 15, wantMem: map[uint16]byte{0x4000: 0x01}},
	})
}
