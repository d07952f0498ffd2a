package main

import "testing"

// z80TestBus is a flat 64K memory and 64K port space answering on both buses
// of a real Board. With lag set it refuses to simulate past limit, which
// makes every access after that time stall.
type z80TestBus struct {
	mem   [0x10000]byte
	io    [0x10000]byte
	time  uint64
	lag   bool
	limit uint64
}

func (b *z80TestBus) Reset()                     { b.time = 0 }
func (b *z80TestBus) Time() uint64               { return b.time }
func (b *z80TestBus) NeedSyncWithRealTime() bool { return false }

func (b *z80TestBus) SimulateTo(t uint64) bool {
	if b.lag && t > b.limit {
		t = b.limit
	}
	if t > b.time {
		b.time = t
	}
	return b.time >= t
}

func (b *z80TestBus) BusRead(kind BusKind, addr uint16) byte {
	if kind == BusIO {
		return b.io[addr]
	}
	return b.mem[addr]
}

func (b *z80TestBus) BusWrite(kind BusKind, addr uint16, value byte) {
	if kind == BusIO {
		b.io[addr] = value
		return
	}
	b.mem[addr] = value
}

// z80TestIRQ is an interrupt source that asserts from a given time until
// acknowledged.
type z80TestIRQ struct {
	time     uint64
	asserted bool
	at       uint64
	vector   byte
	acks     int
}

func (s *z80TestIRQ) Reset()                     { *s = z80TestIRQ{} }
func (s *z80TestIRQ) Time() uint64               { return s.time }
func (s *z80TestIRQ) NeedSyncWithRealTime() bool { return false }

func (s *z80TestIRQ) SimulateTo(t uint64) bool {
	if t > s.time {
		s.time = t
	}
	return true
}

func (s *z80TestIRQ) InterruptPriority() int { return 0 }

func (s *z80TestIRQ) PendingInterrupt() (uint64, byte, bool) {
	return s.at, s.vector, s.asserted
}

func (s *z80TestIRQ) AcknowledgeInterrupt() {
	s.asserted = false
	s.acks++
}

func (s *z80TestIRQ) raise(at uint64, vector byte) {
	s.asserted = true
	s.at = at
	s.vector = vector
}

type cpuZ80TestRig struct {
	board *Board
	bus   *z80TestBus
	irq   *z80TestIRQ
	cpu   *CPU_Z80
}

func newCPUZ80TestRig() *cpuZ80TestRig {
	board := NewBoard(nil)
	bus := &z80TestBus{}
	full := AddressRange{Start: 0x0000, End: 0xFFFF}
	id := board.Add("testbus", bus)
	board.Memory.AddReadResponder(id, full)
	board.Memory.AddWriteResponder(id, full)
	board.IO.AddReadResponder(id, full)
	board.IO.AddWriteResponder(id, full)

	irq := &z80TestIRQ{}
	board.IRQ.Add(board.Add("testirq", irq))

	return &cpuZ80TestRig{
		board: board,
		bus:   bus,
		irq:   irq,
		cpu:   NewCPU_Z80(board, nil),
	}
}

func (r *cpuZ80TestRig) resetAndLoad(start uint16, program []byte) {
	r.bus.mem = [0x10000]byte{}
	r.bus.io = [0x10000]byte{}
	r.board.ResetAll()
	// Start from a zeroed AF so flag expectations only reflect the program.
	r.cpu.SetAF(0)
	for i, value := range program {
		r.bus.mem[start+uint16(i)] = value
	}
	r.cpu.PC = start
}

// step executes one instruction and fails the test unless it completed.
func (r *cpuZ80TestRig) step(t *testing.T) StepOutcome {
	t.Helper()
	out, err := r.cpu.SimulateOne(false)
	if err != nil {
		t.Fatalf("SimulateOne: %v", err)
	}
	if out.Result != StepExecuted {
		t.Fatalf("SimulateOne result = %s, want executed", out.Result)
	}
	return out
}

func (r *cpuZ80TestRig) stepN(t *testing.T, n int) {
	t.Helper()
	for range n {
		r.step(t)
	}
}

func requireZ80EqualU16(t *testing.T, name string, got, want uint16) {
	t.Helper()
	if got != want {
		t.Fatalf("%s = 0x%04X, want 0x%04X", name, got, want)
	}
}

func requireZ80EqualU8(t *testing.T, name string, got, want byte) {
	t.Helper()
	if got != want {
		t.Fatalf("%s = 0x%02X, want 0x%02X", name, got, want)
	}
}

func requireZ80Cycles(t *testing.T, out StepOutcome, want uint64) {
	t.Helper()
	if out.Cycles != want {
		t.Fatalf("cycles = %d, want %d", out.Cycles, want)
	}
}

// z80Regs names registers the way Registers.Get and Set do, plus "WZ".
type z80Regs map[string]uint16

// z80Case loads code at org, applies the presets, runs steps instructions
// (one when zero) and compares registers, memory, ports and total T-states.
// Presets must not overlap (no "A" together with "AF").
type z80Case struct {
	name    string
	org     uint16
	code    []byte
	regs    z80Regs
	mem     map[uint16]byte
	io      map[uint16]byte
	steps   int
	cycles  uint64
	want    z80Regs
	wantMem map[uint16]byte
	wantIO  map[uint16]byte
	check   func(t *testing.T, cpu *CPU_Z80)
}

func runZ80Cases(t *testing.T, cases []z80Case) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rig := newCPUZ80TestRig()
			rig.resetAndLoad(tc.org, tc.code)
			rig.preset(t, tc.regs)
			for addr, v := range tc.mem {
				rig.bus.mem[addr] = v
			}
			for port, v := range tc.io {
				rig.bus.io[port] = v
			}

			rig.stepN(t, max(tc.steps, 1))

			if tc.cycles != 0 && rig.cpu.Time() != tc.cycles {
				t.Errorf("T-states = %d, want %d", rig.cpu.Time(), tc.cycles)
			}
			rig.expect(t, tc.want)
			for addr, want := range tc.wantMem {
				if got := rig.bus.mem[addr]; got != want {
					t.Errorf("mem[0x%04X] = 0x%02X, want 0x%02X", addr, got, want)
				}
			}
			for port, want := range tc.wantIO {
				if got := rig.bus.io[port]; got != want {
					t.Errorf("port 0x%04X = 0x%02X, want 0x%02X", port, got, want)
				}
			}
			if tc.check != nil {
				tc.check(t, rig.cpu)
			}
		})
	}
}

func (r *cpuZ80TestRig) preset(t *testing.T, regs z80Regs) {
	t.Helper()
	for name, v := range regs {
		if name == "WZ" {
			r.cpu.WZ = v
			continue
		}
		if err := r.cpu.Registers.Set(name, v); err != nil {
			t.Fatalf("preset %s: %v", name, err)
		}
	}
}

func (r *cpuZ80TestRig) expect(t *testing.T, want z80Regs) {
	t.Helper()
	for name, v := range want {
		got, ok := r.cpu.WZ, true
		if name != "WZ" {
			got, ok = r.cpu.Registers.Get(name)
		}
		if !ok {
			t.Fatalf("unknown register %q", name)
		}
		if got != v {
			t.Errorf("%s = 0x%04X, want 0x%04X", name, got, v)
		}
	}
}
