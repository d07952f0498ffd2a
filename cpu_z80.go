// cpu_z80.go - Timed Z80 core driven one instruction at a time

package main

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrStalled           = errors.New("simulation stalled, retry later")
	ErrInterruptMode0    = errors.New("interrupt mode 0 is not implemented")
	ErrNotImplemented    = errors.New("not implemented")
	ErrUnknownBreakpoint = errors.New("unknown breakpoint")
)

type StepResult int

const (
	StepExecuted StepResult = iota
	StepStalled
	StepBreakpoint
	StepFault
)

func (r StepResult) String() string {
	switch r {
	case StepExecuted:
		return "executed"
	case StepStalled:
		return "stalled"
	case StepBreakpoint:
		return "breakpoint"
	case StepFault:
		return "fault"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// StepOutcome describes one call to SimulateOne. Cycles is zero unless the
// result is StepExecuted.
type StepOutcome struct {
	Result      StepResult
	Cycles      uint64
	Breakpoints []BreakpointCookie
	Undefined   bool
}

// z80State is everything an instruction may change besides memory and I/O.
// A copy of it is the rollback point when an instruction stalls.
type z80State struct {
	Registers
	WZ         uint16
	Halted     bool
	iffDelay   int
	nmiPending bool
}

const (
	z80PrefixNone byte = iota
	z80PrefixDD
	z80PrefixFD
)

type pendingWrite struct {
	bus   *Bus
	addr  uint16
	value byte
}

// maxPendingWrites covers the worst case of a push plus one extra byte pair.
const maxPendingWrites = 4

type CPU_Z80 struct {
	z80State

	board *Board
	id    DeviceID
	mem   *Bus
	io    *Bus
	log   *slog.Logger

	time        uint64
	breakpoints *BreakpointTable

	// Per-instruction transaction. Reset by beginTx, consumed by endTx.
	cycles      uint64
	stalled     bool
	writes      [maxPendingWrites]pendingWrite
	nwrites     int
	ack         DeviceID
	prefixMode  byte
	undefined   bool
	undefinedOp uint16
}

// NewCPU_Z80 builds the CPU and registers it as the write requester on both
// buses.
func NewCPU_Z80(board *Board, logger *slog.Logger) *CPU_Z80 {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &CPU_Z80{
		board:       board,
		mem:         board.Memory,
		io:          board.IO,
		log:         logger,
		breakpoints: NewBreakpointTable(),
	}
	c.Reset()
	c.id = board.Add("z80", c)
	board.Memory.AddWriteRequester(c.id)
	board.IO.AddWriteRequester(c.id)
	return c
}

func (c *CPU_Z80) ID() DeviceID { return c.id }

// Reset puts the core in its power-on state. Breakpoints survive.
func (c *CPU_Z80) Reset() {
	c.z80State = z80State{}
	c.SetAF(0xFFFF)
	c.SP = 0xFFFF
	c.time = 0
	c.beginTx()
}

func (c *CPU_Z80) Time() uint64 { return c.time }

func (c *CPU_Z80) NeedSyncWithRealTime() bool { return false }

// SimulateTo runs instructions without breakpoint checks until the CPU time
// reaches t or an instruction cannot complete.
func (c *CPU_Z80) SimulateTo(t uint64) bool {
	for c.time < t {
		out, err := c.SimulateOne(false)
		if err != nil || out.Result != StepExecuted {
			break
		}
	}
	return c.time >= t
}

// TriggerNMI latches a non-maskable interrupt, taken before the next
// instruction.
func (c *CPU_Z80) TriggerNMI() {
	c.nmiPending = true
}

func (c *CPU_Z80) Breakpoints() *BreakpointTable { return c.breakpoints }

func (c *CPU_Z80) AddBreakpoint(kind BreakpointKind, addr uint16) (BreakpointCookie, error) {
	return c.breakpoints.Add(kind, addr)
}

func (c *CPU_Z80) RemoveBreakpoint(cookie BreakpointCookie) error {
	return c.breakpoints.Remove(cookie)
}

// SimulateOne services a pending interrupt or executes one instruction at the
// current CPU time. Either the whole step happens (registers, memory, I/O and
// time all move) or nothing does and StepStalled is returned.
func (c *CPU_Z80) SimulateOne(checkBreakpoints bool) (StepOutcome, error) {
	saved := c.z80State
	c.beginTx()

	if c.nmiPending {
		c.serviceNMI()
		return c.endTx(saved), nil
	}

	if c.IFF1 && c.iffDelay == 0 {
		if !c.board.IRQ.CatchUp(c.time) {
			return StepOutcome{Result: StepStalled}, nil
		}
		if src, vector, ok := c.board.IRQ.Pending(c.time); ok {
			if c.IM == 0 {
				c.log.Error("maskable interrupt in mode 0",
					slog.String("source", c.board.Name(src)),
					slog.Uint64("time", c.time),
					slog.String("pc", fmt.Sprintf("0x%04X", c.PC)))
				return StepOutcome{Result: StepFault}, ErrInterruptMode0
			}
			c.serviceIRQ(vector)
			c.ack = src
			return c.endTx(saved), nil
		}
	}

	if c.Halted {
		c.incrementR()
		c.tick(4)
		c.finishInstruction()
		return c.endTx(saved), nil
	}

	if checkBreakpoints {
		if cookies := c.breakpoints.At(c.PC); len(cookies) > 0 {
			return StepOutcome{Result: StepBreakpoint, Breakpoints: cookies}, nil
		}
	}

	opcode := c.fetchOpcode()
	if c.stalled {
		return c.endTx(saved), nil
	}
	c.executeBase(opcode)
	c.finishInstruction()
	return c.endTx(saved), nil
}

func (c *CPU_Z80) beginTx() {
	c.cycles = 0
	c.stalled = false
	c.nwrites = 0
	c.ack = noDevice
	c.prefixMode = z80PrefixNone
	c.undefined = false
}

// endTx commits the buffered writes if every one of them can be prepared,
// otherwise it rolls the registers back to saved.
func (c *CPU_Z80) endTx(saved z80State) StepOutcome {
	if !c.stalled {
		for i := 0; i < c.nwrites; i++ {
			w := &c.writes[i]
			if !w.bus.PrepareWrite(w.addr, c.time) {
				c.stalled = true
				break
			}
		}
	}
	if c.stalled {
		c.z80State = saved
		return StepOutcome{Result: StepStalled}
	}

	for i := 0; i < c.nwrites; i++ {
		w := &c.writes[i]
		w.bus.Write(w.addr, w.value)
	}
	if c.ack != noDevice {
		c.board.IRQ.Acknowledge(c.ack)
	}
	if c.undefined {
		c.log.Warn("undefined opcode",
			slog.String("opcode", fmt.Sprintf("0x%04X", c.undefinedOp)),
			slog.String("pc", fmt.Sprintf("0x%04X", saved.PC)))
	}
	c.time += c.cycles
	return StepOutcome{Result: StepExecuted, Cycles: c.cycles, Undefined: c.undefined}
}

func (c *CPU_Z80) tick(cycles int) {
	c.cycles += uint64(cycles)
}

func (c *CPU_Z80) finishInstruction() {
	if c.iffDelay > 0 {
		c.iffDelay--
		if c.iffDelay == 0 {
			c.IFF1 = true
			c.IFF2 = true
		}
	}
}

func (c *CPU_Z80) markUndefined(op uint16) {
	c.undefined = true
	c.undefinedOp = op
}

// ---------------------------------------------------------------------------
// Bus access. Every access happens at the instruction start time; writes are
// held back until endTx.
// ---------------------------------------------------------------------------

func (c *CPU_Z80) read(addr uint16) byte {
	for i := c.nwrites - 1; i >= 0; i-- {
		if w := &c.writes[i]; w.bus == c.mem && w.addr == addr {
			return w.value
		}
	}
	if c.stalled {
		return 0xFF
	}
	v, ok := c.mem.TryReadRequest(addr, c.time)
	if !ok {
		c.stalled = true
	}
	return v
}

func (c *CPU_Z80) write(addr uint16, value byte) {
	c.queueWrite(c.mem, addr, value)
}

func (c *CPU_Z80) in(port uint16) byte {
	if c.stalled {
		return 0xFF
	}
	v, ok := c.io.TryReadRequest(port, c.time)
	if !ok {
		c.stalled = true
	}
	return v
}

func (c *CPU_Z80) out(port uint16, value byte) {
	c.queueWrite(c.io, port, value)
}

func (c *CPU_Z80) queueWrite(bus *Bus, addr uint16, value byte) {
	if c.nwrites == maxPendingWrites {
		panic("z80: too many writes in one instruction")
	}
	c.writes[c.nwrites] = pendingWrite{bus: bus, addr: addr, value: value}
	c.nwrites++
}

func (c *CPU_Z80) fetchOpcode() byte {
	opcode := c.read(c.PC)
	c.PC++
	c.incrementR()
	return opcode
}

func (c *CPU_Z80) fetchByte() byte {
	value := c.read(c.PC)
	c.PC++
	return value
}

func (c *CPU_Z80) fetchWord() uint16 {
	low := c.fetchByte()
	high := c.fetchByte()
	return uint16(high)<<8 | uint16(low)
}

func (c *CPU_Z80) readWord(addr uint16) uint16 {
	low := c.read(addr)
	high := c.read(addr + 1)
	return uint16(high)<<8 | uint16(low)
}

func (c *CPU_Z80) writeWord(addr uint16, value uint16) {
	c.write(addr, byte(value))
	c.write(addr+1, byte(value>>8))
}

func (c *CPU_Z80) pushWord(value uint16) {
	c.SP--
	c.write(c.SP, byte(value>>8))
	c.SP--
	c.write(c.SP, byte(value))
}

func (c *CPU_Z80) popWord() uint16 {
	low := c.read(c.SP)
	c.SP++
	high := c.read(c.SP)
	c.SP++
	return uint16(high)<<8 | uint16(low)
}

// ---------------------------------------------------------------------------
// Interrupts
// ---------------------------------------------------------------------------

func (c *CPU_Z80) serviceNMI() {
	c.nmiPending = false
	c.Halted = false
	c.incrementR()
	c.pushWord(c.PC)
	c.IFF1 = false
	c.PC = 0x0066
	c.WZ = c.PC
	c.tick(11)
}

// serviceIRQ handles modes 1 and 2; mode 0 is refused by the caller.
func (c *CPU_Z80) serviceIRQ(vector byte) {
	c.Halted = false
	c.incrementR()
	c.IFF1 = false
	c.IFF2 = false
	if c.IM == 2 {
		table := uint16(c.I)<<8 | uint16(vector)
		target := c.readWord(table)
		c.pushWord(c.PC)
		c.PC = target
		c.WZ = target
		c.tick(19)
		return
	}
	c.pushWord(c.PC)
	c.PC = 0x0038
	c.WZ = c.PC
	c.tick(13)
}
