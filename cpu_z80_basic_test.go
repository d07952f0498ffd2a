package main

import (
	"errors"
	"testing"
)

func TestZ80ResetDefaults(t *testing.T) {
	rig := newCPUZ80TestRig()
	cpu := rig.cpu

	cpu.A = 0x11
	cpu.F = 0x22
	cpu.B = 0x33
	cpu.C = 0x44
	cpu.D = 0x55
	cpu.E = 0x66
	cpu.H = 0x77
	cpu.L = 0x88
	cpu.A2 = 0x99
	cpu.F2 = 0xAA
	cpu.B2 = 0xBB
	cpu.C2 = 0xCC
	cpu.IX = 0x1234
	cpu.IY = 0x4567
	cpu.SP = 0xABCD
	cpu.PC = 0xFEED
	cpu.I = 0x12
	cpu.R = 0x34
	cpu.IM = 2
	cpu.WZ = 0x2222
	cpu.IFF1 = true
	cpu.IFF2 = true
	cpu.iffDelay = 1
	cpu.Halted = true
	cpu.TriggerNMI()

	cpu.Reset()

	requireZ80EqualU16(t, "PC", cpu.PC, 0x0000)
	requireZ80EqualU16(t, "SP", cpu.SP, 0xFFFF)
	requireZ80EqualU16(t, "AF", cpu.AF(), 0xFFFF)
	requireZ80EqualU16(t, "BC", cpu.BC(), 0x0000)
	requireZ80EqualU16(t, "DE", cpu.DE(), 0x0000)
	requireZ80EqualU16(t, "HL", cpu.HL(), 0x0000)
	requireZ80EqualU16(t, "AF'", cpu.AF2(), 0x0000)
	requireZ80EqualU16(t, "BC'", cpu.BC2(), 0x0000)
	requireZ80EqualU16(t, "IX", cpu.IX, 0x0000)
	requireZ80EqualU16(t, "IY", cpu.IY, 0x0000)
	requireZ80EqualU8(t, "I", cpu.I, 0x00)
	requireZ80EqualU8(t, "R", cpu.R, 0x00)
	requireZ80EqualU16(t, "WZ", cpu.WZ, 0x0000)
	if cpu.IFF1 || cpu.IFF2 {
		t.Fatalf("IFF1/IFF2 should be cleared on reset")
	}
	if cpu.nmiPending {
		t.Fatalf("pending NMI should be cleared on reset")
	}
	if cpu.iffDelay != 0 {
		t.Fatalf("iffDelay should be cleared on reset")
	}
	if cpu.IM != 0 {
		t.Fatalf("IM = %d, want 0", cpu.IM)
	}
	if cpu.Halted {
		t.Fatalf("Halted should be false on reset")
	}
	if cpu.Time() != 0 {
		t.Fatalf("Time = %d, want 0", cpu.Time())
	}
}

func TestZ80StepNOP(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0x00})

	out := rig.step(t)

	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0001)
	requireZ80Cycles(t, out, 4)
	if rig.cpu.Time() != 4 {
		t.Fatalf("Time = %d, want 4", rig.cpu.Time())
	}
	if rig.bus.Time() != 0 {
		t.Fatalf("bus time = %d, want 0 (fetch happens at instruction start)", rig.bus.Time())
	}
}

func TestZ80LoadIncrementProgram(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0x3E, 0x05, // LD A,5
		0x3C, // INC A
	})

	rig.step(t)
	rig.step(t)

	requireZ80EqualU8(t, "A", rig.cpu.A, 0x06)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0003)
	if rig.cpu.Time() != 11 {
		t.Fatalf("Time = %d, want 11", rig.cpu.Time())
	}
}

func TestZ80StallRollsBackFetch(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0x00,       // NOP
		0x3E, 0x42, // LD A,0x42
	})
	rig.bus.lag = true
	rig.bus.limit = 0

	rig.step(t)
	before := rig.cpu.z80State

	out, err := rig.cpu.SimulateOne(false)
	if err != nil {
		t.Fatalf("SimulateOne: %v", err)
	}
	if out.Result != StepStalled {
		t.Fatalf("result = %s, want stalled", out.Result)
	}
	if out.Cycles != 0 {
		t.Fatalf("stalled step reported %d cycles", out.Cycles)
	}
	if rig.cpu.z80State != before {
		t.Fatalf("registers changed across a stalled step")
	}
	if rig.cpu.Time() != 4 {
		t.Fatalf("Time = %d, want 4", rig.cpu.Time())
	}

	rig.bus.limit = 4
	rig.step(t)
	requireZ80EqualU8(t, "A", rig.cpu.A, 0x42)
	if rig.cpu.Time() != 11 {
		t.Fatalf("Time = %d, want 11", rig.cpu.Time())
	}
}

func TestZ80StallLeavesMemoryUntouched(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0x00, // NOP
		0xC5, // PUSH BC
	})
	rig.cpu.SP = 0x8000
	rig.cpu.SetBC(0x1234)

	// A second responder on the stack page that has not caught up yet.
	shadow := &z80TestBus{lag: true}
	id := rig.board.Add("shadow", shadow)
	rig.board.Memory.AddWriteResponder(id, AddressRange{Start: 0x7000, End: 0x7FFF})

	rig.step(t)

	out, err := rig.cpu.SimulateOne(false)
	if err != nil {
		t.Fatalf("SimulateOne: %v", err)
	}
	if out.Result != StepStalled {
		t.Fatalf("result = %s, want stalled", out.Result)
	}
	requireZ80EqualU16(t, "SP", rig.cpu.SP, 0x8000)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0001)
	requireZ80EqualU8(t, "mem[0x7FFF]", rig.bus.mem[0x7FFF], 0x00)
	requireZ80EqualU8(t, "mem[0x7FFE]", rig.bus.mem[0x7FFE], 0x00)
	if rig.cpu.Time() != 4 {
		t.Fatalf("Time = %d, want 4", rig.cpu.Time())
	}

	shadow.lag = false
	out = rig.step(t)
	requireZ80Cycles(t, out, 11)
	requireZ80EqualU16(t, "SP", rig.cpu.SP, 0x7FFE)
	requireZ80EqualU8(t, "mem[0x7FFF]", rig.bus.mem[0x7FFF], 0x12)
	requireZ80EqualU8(t, "mem[0x7FFE]", rig.bus.mem[0x7FFE], 0x34)
	requireZ80EqualU8(t, "shadow[0x7FFF]", shadow.mem[0x7FFF], 0x12)
}

func TestZ80RRegisterCountsOpcodeFetches(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0x00,             // NOP
		0xCB, 0x00,       // RLC B
		0xED, 0x44,       // NEG
		0xDD, 0x21, 0, 0, // LD IX,0
	})
	rig.cpu.R = 0x80

	rig.stepN(t, 4)

	requireZ80EqualU8(t, "R", rig.cpu.R, 0x87)
}

func TestZ80UndefinedEDOpcodeIsNop(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0x00})
	rig.cpu.A = 0x12

	out := rig.step(t)

	if !out.Undefined {
		t.Fatalf("Undefined = false, want true")
	}
	requireZ80Cycles(t, out, 8)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0002)
	requireZ80EqualU8(t, "A", rig.cpu.A, 0x12)
}

func TestZ80SimulateToStopsAtTarget(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, nil)

	if !rig.cpu.SimulateTo(10) {
		t.Fatalf("SimulateTo(10) = false")
	}
	// Three NOPs overshoot to 12; time is only ever advanced by whole
	// instructions.
	if rig.cpu.Time() != 12 {
		t.Fatalf("Time = %d, want 12", rig.cpu.Time())
	}

	rig.bus.lag = true
	rig.bus.limit = 12
	if rig.cpu.SimulateTo(100) {
		t.Fatalf("SimulateTo past a lagging device should report false")
	}
	if rig.cpu.Time() != 16 {
		t.Fatalf("Time = %d, want 16", rig.cpu.Time())
	}
}

func TestZ80SimulateOneSurfacesErrors(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, nil)
	rig.cpu.IFF1 = true
	rig.irq.raise(0, 0xFF)

	out, err := rig.cpu.SimulateOne(false)
	if !errors.Is(err, ErrInterruptMode0) {
		t.Fatalf("err = %v, want ErrInterruptMode0", err)
	}
	if out.Result != StepFault {
		t.Fatalf("result = %s, want fault", out.Result)
	}
}
