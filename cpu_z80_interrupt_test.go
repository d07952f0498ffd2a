package main

import (
	"errors"
	"testing"
)

func TestZ80DIAndEIDelay(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0xF3, // DI
		0xFB, // EI
		0x00, // NOP
		0x00, // NOP
	})
	rig.cpu.IM = 1
	rig.cpu.SP = 0x9000
	rig.cpu.IFF1 = true
	rig.cpu.IFF2 = true

	rig.step(t)
	if rig.cpu.IFF1 || rig.cpu.IFF2 {
		t.Fatalf("DI should clear IFF1/IFF2")
	}

	rig.irq.raise(rig.cpu.Time(), 0xFF)
	rig.step(t)
	if rig.cpu.IFF1 || rig.cpu.IFF2 {
		t.Fatalf("EI should not enable interrupts immediately")
	}

	rig.step(t)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0003)
	if !rig.cpu.IFF1 || !rig.cpu.IFF2 {
		t.Fatalf("EI should enable interrupts after one instruction")
	}

	rig.step(t)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0038)
	if rig.irq.acks != 1 {
		t.Fatalf("acks = %d, want 1", rig.irq.acks)
	}
}

func TestZ80IM1Interrupt(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x1000, []byte{0x00})
	rig.cpu.SP = 0xFF00
	rig.cpu.IM = 1
	rig.cpu.IFF1 = true
	rig.cpu.IFF2 = true
	rig.irq.raise(0, 0xFF)

	out := rig.step(t)

	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0038)
	if rig.cpu.SP != 0xFEFE {
		t.Fatalf("SP = 0x%04X, want 0xFEFE", rig.cpu.SP)
	}
	if rig.bus.mem[0xFEFE] != 0x00 || rig.bus.mem[0xFEFF] != 0x10 {
		t.Fatalf("stack push incorrect: %02X %02X", rig.bus.mem[0xFEFE], rig.bus.mem[0xFEFF])
	}
	if rig.cpu.IFF1 || rig.cpu.IFF2 {
		t.Fatalf("IRQ should clear IFF1/IFF2")
	}
	requireZ80Cycles(t, out, 13)
	requireZ80EqualU8(t, "R", rig.cpu.R, 0x01)
	if rig.irq.asserted {
		t.Fatalf("interrupt source was not acknowledged")
	}
}

func TestZ80InterruptNotTakenBeforeItIsRaised(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, nil)
	rig.cpu.SP = 0xFF00
	rig.cpu.IM = 1
	rig.cpu.IFF1 = true
	rig.cpu.IFF2 = true
	rig.irq.raise(6, 0xFF)

	rig.step(t)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0001)
	rig.step(t)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0002)
	rig.step(t)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0038)
}

func TestZ80NMIInterrupt(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x2000, []byte{0x00})
	rig.cpu.SP = 0xFF00
	rig.cpu.IFF1 = true
	rig.cpu.IFF2 = true
	rig.cpu.TriggerNMI()

	out := rig.step(t)

	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0066)
	if rig.cpu.SP != 0xFEFE {
		t.Fatalf("SP = 0x%04X, want 0xFEFE", rig.cpu.SP)
	}
	if rig.bus.mem[0xFEFE] != 0x00 || rig.bus.mem[0xFEFF] != 0x20 {
		t.Fatalf("stack push incorrect: %02X %02X", rig.bus.mem[0xFEFE], rig.bus.mem[0xFEFF])
	}
	if rig.cpu.IFF1 {
		t.Fatalf("NMI should clear IFF1")
	}
	if !rig.cpu.IFF2 {
		t.Fatalf("NMI should preserve IFF2")
	}
	requireZ80Cycles(t, out, 11)
}

func TestZ80NMIBeatsMaskableInterrupt(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x2000, nil)
	rig.cpu.SP = 0xFF00
	rig.cpu.IM = 1
	rig.cpu.IFF1 = true
	rig.cpu.IFF2 = true
	rig.irq.raise(0, 0xFF)
	rig.cpu.TriggerNMI()

	rig.step(t)

	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0066)
	if !rig.irq.asserted {
		t.Fatalf("maskable request should still be pending")
	}
}

func TestZ80RETNRestoresIFF1AfterNMI(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x2000, nil)
	rig.bus.mem[0x0066] = 0xED // RETN
	rig.bus.mem[0x0067] = 0x45
	rig.cpu.SP = 0xFF00
	rig.cpu.IFF1 = true
	rig.cpu.IFF2 = true
	rig.cpu.TriggerNMI()

	rig.step(t)
	rig.step(t)

	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x2000)
	requireZ80EqualU16(t, "SP", rig.cpu.SP, 0xFF00)
	if !rig.cpu.IFF1 {
		t.Fatalf("RETN should copy IFF2 back into IFF1")
	}
}

func TestZ80IM2InterruptVector(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x3000, nil)
	rig.cpu.SP = 0xFF00
	rig.cpu.IM = 2
	rig.cpu.I = 0x12
	rig.cpu.IFF1 = true
	rig.cpu.IFF2 = true
	rig.bus.mem[0x1234] = 0x78
	rig.bus.mem[0x1235] = 0x56
	rig.irq.raise(0, 0x34)

	out := rig.step(t)

	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x5678)
	if rig.cpu.SP != 0xFEFE {
		t.Fatalf("SP = 0x%04X, want 0xFEFE", rig.cpu.SP)
	}
	if rig.bus.mem[0xFEFE] != 0x00 || rig.bus.mem[0xFEFF] != 0x30 {
		t.Fatalf("stack push incorrect: %02X %02X", rig.bus.mem[0xFEFE], rig.bus.mem[0xFEFF])
	}
	requireZ80EqualU16(t, "WZ", rig.cpu.WZ, 0x5678)
	requireZ80Cycles(t, out, 19)
}

func TestZ80IM0InterruptFaults(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x4000, nil)
	rig.cpu.SP = 0xFF00
	rig.cpu.IM = 0
	rig.cpu.IFF1 = true
	rig.cpu.IFF2 = true
	rig.irq.raise(0, 0xC7)

	out, err := rig.cpu.SimulateOne(false)

	if !errors.Is(err, ErrInterruptMode0) {
		t.Fatalf("err = %v, want ErrInterruptMode0", err)
	}
	if out.Result != StepFault {
		t.Fatalf("result = %s, want fault", out.Result)
	}
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x4000)
	requireZ80EqualU16(t, "SP", rig.cpu.SP, 0xFF00)
	if !rig.cpu.IFF1 {
		t.Fatalf("IFF1 should be untouched by a refused interrupt")
	}
	if rig.cpu.Time() != 0 {
		t.Fatalf("Time = %d, want 0", rig.cpu.Time())
	}
}

func TestZ80HALTSpinsUntilInterrupt(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x5000, []byte{0x76}) // HALT
	rig.cpu.SP = 0xFF00
	rig.cpu.IM = 1
	rig.cpu.IFF1 = true
	rig.cpu.IFF2 = true

	rig.step(t)
	if !rig.cpu.Halted {
		t.Fatalf("HALT should set Halted")
	}
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x5001)

	out := rig.step(t)
	requireZ80Cycles(t, out, 4)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x5001)
	requireZ80EqualU8(t, "R", rig.cpu.R, 0x02)

	rig.irq.raise(rig.cpu.Time(), 0xFF)
	rig.step(t)

	if rig.cpu.Halted {
		t.Fatalf("HALT should exit on interrupt")
	}
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0038)
	if rig.bus.mem[0xFEFE] != 0x01 || rig.bus.mem[0xFEFF] != 0x50 {
		t.Fatalf("return address = %02X%02X, want 5001", rig.bus.mem[0xFEFF], rig.bus.mem[0xFEFE])
	}
}

func TestZ80InterruptStallsOnLaggingSource(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, nil)
	rig.cpu.IM = 1
	rig.cpu.IFF1 = true
	rig.cpu.IFF2 = true

	lagging := &z80TestIRQLagging{}
	rig.board.IRQ.Add(rig.board.Add("lagging", lagging))

	rig.step(t)
	out, err := rig.cpu.SimulateOne(false)
	if err != nil {
		t.Fatalf("SimulateOne: %v", err)
	}
	if out.Result != StepStalled {
		t.Fatalf("result = %s, want stalled", out.Result)
	}
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0001)
}

// z80TestIRQLagging never gets past time zero.
type z80TestIRQLagging struct{}

func (*z80TestIRQLagging) Reset()                                 {}
func (*z80TestIRQLagging) Time() uint64                           { return 0 }
func (*z80TestIRQLagging) NeedSyncWithRealTime() bool             { return false }
func (*z80TestIRQLagging) SimulateTo(uint64) bool                 { return false }
func (*z80TestIRQLagging) InterruptPriority() int                 { return 1 }
func (*z80TestIRQLagging) PendingInterrupt() (uint64, byte, bool) { return 0, 0, false }
func (*z80TestIRQLagging) AcknowledgeInterrupt()                  {}
