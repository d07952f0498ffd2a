// simulator.go - Owns one Spectrum board and drives it

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

/*
simulator.go - Simulator Facade

The Simulator builds every device on a Board and is the only thing a host
(window, monitor, script, test) talks to. It is not safe for concurrent use;
each host drives it from a single goroutine.

Run loop (Advance):
 1. Bring the real-time devices (screen, beeper) up to CPU time
 2. Execute one CPU step, checking breakpoints unless a resume asked to
    skip the current PC once
 3. Stop on a breakpoint or a fault and tell the EventSink
*/

package main

import (
	"fmt"
	"log/slog"
)

const (
	DEFAULT_AUDIO_QUEUE_DEPTH = 8
)

type SimulatorConfig struct {
	Model MemoryModel

	// ROMImage wins over ROMPath when both are set.
	ROMPath  string
	ROMImage []byte

	// Timing overrides the model's raster when non-nil.
	Timing *ULATiming

	SampleRate int
	AudioSink  AudioSink

	Events EventSink
	Logger *slog.Logger
}

type Simulator struct {
	cfg SimulatorConfig
	log *slog.Logger

	board    *Board
	rom      *ROM
	ram      *RAM
	cpu      *CPU_Z80
	screen   *ULAScreen
	beeper   *Beeper
	keyboard *Keyboard
	tape     *TapeDeck
	typer    *KeyTyper

	events EventSink

	running        bool
	skipBreakpoint bool
}

// NewSimulator validates the ROM and timing before creating any device, so
// a failure leaves nothing half built.
func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	image := cfg.ROMImage
	if image == nil {
		if cfg.ROMPath == "" {
			return nil, fmt.Errorf("simulator: no rom image")
		}
		var err error
		if image, err = LoadROMImage(cfg.ROMPath, cfg.Model); err != nil {
			return nil, err
		}
	} else if err := CheckROMImage(image, cfg.Model); err != nil {
		return nil, err
	}

	timing := TimingForModel(cfg.Model)
	if cfg.Timing != nil {
		timing = *cfg.Timing
	}
	if err := timing.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{cfg: cfg, log: logger, events: cfg.Events}
	s.board = NewBoard(logger)

	rom, err := NewROM(s.board, cfg.Model, image)
	if err != nil {
		return nil, err
	}
	s.rom = rom
	s.ram = NewRAM(s.board, cfg.Model)
	s.cpu = NewCPU_Z80(s.board, logger.With(slog.String("device", "z80")))
	if s.screen, err = NewULAScreen(s.board, timing, logger.With(slog.String("device", "ula"))); err != nil {
		return nil, err
	}
	s.beeper = NewBeeper(s.board, BeeperConfig{
		ClockHz:    timing.ClockHz,
		SampleRate: cfg.SampleRate,
	}, cfg.AudioSink, logger.With(slog.String("device", "beeper")))
	s.keyboard = NewKeyboard(s.board, logger)
	s.tape = NewTapeDeck(s.board, timing.ClockHz, logger.With(slog.String("device", "tape")))
	s.typer = NewKeyTyper(s.keyboard, logger)

	s.screen.OnFrame(s.frameComplete)

	logger.Info("simulator ready",
		slog.String("model", cfg.Model.String()),
		slog.Uint64("clock", timing.ClockHz),
		slog.Uint64("frame_ticks", timing.FrameTicks()))
	return s, nil
}

func (s *Simulator) frameComplete(frame []byte, number uint64) {
	s.typer.Advance()
	if s.events != nil {
		s.events.ScreenComplete(ScreenFrame{
			Pixels: frame,
			Width:  ULA_FRAME_WIDTH,
			Height: ULA_FRAME_HEIGHT,
			Number: number,
			Time:   s.screen.Time(),
		})
	}
}

func (s *Simulator) emit(kind SimulatorEventKind, cookies []BreakpointCookie, err error) {
	if s.events == nil {
		return
	}
	s.events.SimulatorEvent(SimulatorEvent{
		Kind:        kind,
		PC:          s.cpu.PC,
		Time:        s.cpu.Time(),
		Breakpoints: cookies,
		Err:         err,
	})
}

// SetEvents replaces the event sink.
func (s *Simulator) SetEvents(events EventSink) { s.events = events }

// =============================================================================
// Run control
// =============================================================================

func (s *Simulator) Running() bool { return s.running }

// Resume starts the run loop. With checkBreakpointsAtCurrentPC false the
// first instruction runs even if a breakpoint sits on it, which is how a
// debugger continues from a hit.
func (s *Simulator) Resume(checkBreakpointsAtCurrentPC bool) {
	s.running = true
	s.skipBreakpoint = !checkBreakpointsAtCurrentPC
	s.emit(EventResumed, nil, nil)
}

func (s *Simulator) Break() {
	if !s.running {
		return
	}
	s.running = false
	s.emit(EventBreak, nil, nil)
}

// Reset resets every device and points the CPU at start. RAM contents
// survive and the machine is left stopped; call Resume to run it.
func (s *Simulator) Reset(start uint16) {
	s.typer.Cancel()
	s.board.ResetAll()
	s.cpu.PC = start
	s.running = false
	s.skipBreakpoint = false
	s.log.Info("reset", slog.String("pc", fmt.Sprintf("0x%04X", start)))
}

// Advance runs the CPU for up to ticks T-states while the simulator is
// running. It returns early on a breakpoint, a fault or a stall; a stall is
// reported as ErrStalled and is safe to retry.
func (s *Simulator) Advance(ticks uint64) error {
	target := s.cpu.Time() + ticks
	for s.running && s.cpu.Time() < target {
		out, err := s.step(!s.skipBreakpoint)
		if err != nil {
			s.running = false
			s.log.Error("cpu fault", slog.Any("err", err), slog.String("pc", fmt.Sprintf("0x%04X", s.cpu.PC)))
			s.emit(EventFault, nil, err)
			return err
		}
		switch out.Result {
		case StepExecuted:
			s.skipBreakpoint = false
		case StepBreakpoint:
			s.running = false
			s.emit(EventBreakpointHit, out.Breakpoints, nil)
			return nil
		case StepStalled:
			return ErrStalled
		}
	}
	return nil
}

func (s *Simulator) step(checkBreakpoints bool) (StepOutcome, error) {
	s.board.SyncRealTime(s.cpu.Time())
	return s.cpu.SimulateOne(checkBreakpoints)
}

// SimulateOne executes a single step for a debugger, ignoring breakpoints.
// It does not change the running state.
func (s *Simulator) SimulateOne() (StepOutcome, error) {
	out, err := s.step(false)
	if err == nil && out.Result == StepStalled {
		err = ErrStalled
	}
	return out, err
}

// RunFrames runs until n more frames have completed or the machine stops.
// It resumes the machine if needed and leaves it running.
func (s *Simulator) RunFrames(n int) error {
	if !s.running {
		s.Resume(true)
	}
	target := s.screen.Frames() + uint64(n)
	slice := s.screen.Timing().FrameTicks() / 8
	for s.screen.Frames() < target {
		if !s.running {
			return nil
		}
		if err := s.Advance(slice); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Accessors
// =============================================================================

func (s *Simulator) Board() *Board { return s.board }
func (s *Simulator) CPU() *CPU_Z80 { return s.cpu }
func (s *Simulator) Screen() *ULAScreen { return s.screen }
func (s *Simulator) Beeper() *Beeper { return s.beeper }
func (s *Simulator) Keyboard() *Keyboard { return s.keyboard }
func (s *Simulator) Tape() *TapeDeck { return s.tape }
func (s *Simulator) RAM() *RAM { return s.ram }
func (s *Simulator) ROM() *ROM { return s.rom }
func (s *Simulator) Model() MemoryModel { return s.cfg.Model }
func (s *Simulator) Time() uint64 { return s.cpu.Time() }
func (s *Simulator) Registers() Registers { return s.cpu.Registers }
func (s *Simulator) GetPC() uint16 { return s.cpu.PC }
func (s *Simulator) SetPC(pc uint16) { s.cpu.PC = pc }
func (s *Simulator) Breakpoints() []Breakpoint { return s.cpu.Breakpoints().List() }

// ReadMemoryBus fills buf from addr with untimed reads; addresses wrap.
func (s *Simulator) ReadMemoryBus(addr uint16, buf []byte) {
	for i := range buf {
		buf[i] = s.board.Memory.Read(addr + uint16(i))
	}
}

// WriteMemoryBus stores data from addr with untimed writes. ROM ignores
// them like the real chip.
func (s *Simulator) WriteMemoryBus(addr uint16, data []byte) {
	for i, v := range data {
		s.board.Memory.Write(addr+uint16(i), v)
	}
}

func (s *Simulator) GetRegisters(buf []byte) (int, error) {
	return s.cpu.MarshalBlob(buf)
}

func (s *Simulator) SetRegisters(blob []byte) error {
	return s.cpu.UnmarshalBlob(blob)
}

func (s *Simulator) SetRegister(name string, value uint16) error {
	return s.cpu.Set(name, value)
}

func (s *Simulator) AddBreakpoint(kind BreakpointKind, addr uint16) (BreakpointCookie, error) {
	return s.cpu.AddBreakpoint(kind, addr)
}

func (s *Simulator) RemoveBreakpoint(cookie BreakpointCookie) error {
	return s.cpu.RemoveBreakpoint(cookie)
}

func (s *Simulator) ProcessKeyDown(vk VirtualKey, mods KeyModifiers) bool {
	return s.keyboard.ProcessKeyDown(vk, mods)
}

func (s *Simulator) ProcessKeyUp(vk VirtualKey, mods KeyModifiers) bool {
	return s.keyboard.ProcessKeyUp(vk, mods)
}

// TypeText queues text for the key typer and returns the number of
// characters skipped.
func (s *Simulator) TypeText(text string) int {
	return s.typer.Type(text)
}

func (s *Simulator) Typer() *KeyTyper { return s.typer }

// GetScreenData renders the current VRAM into dst without running the beam.
func (s *Simulator) GetScreenData(dst []byte) []byte {
	return s.screen.GetScreenData(dst)
}

func (s *Simulator) TriggerNMI() { s.cpu.TriggerNMI() }

// LoadSnapshot resets the machine and applies a 48K .sna file. On the 128K
// model the 48K BASIC ROM is selected and paging locked first.
func (s *Simulator) LoadSnapshot(path string) error {
	snap, err := LoadSNAFile(path)
	if err != nil {
		return err
	}
	s.ApplySnapshot(snap)
	s.log.Info("snapshot loaded", slog.String("path", path), slog.String("pc", fmt.Sprintf("0x%04X", s.cpu.PC)))
	return nil
}

func (s *Simulator) ApplySnapshot(snap *SNASnapshot) {
	s.Reset(0)
	if s.cfg.Model == Model128K {
		s.board.IO.Write(0x7FFD, pagingROM|pagingLock)
	}
	snap.Apply(s.board, s.cpu)
}

func (s *Simulator) LoadTape(path string) error {
	tape, err := LoadTapeFile(path)
	if err != nil {
		return err
	}
	s.tape.Insert(tape)
	return nil
}

func (s *Simulator) PlayTape() error { return s.tape.Play() }

func (s *Simulator) StopTape() { s.tape.Stop() }

// Close stops the machine and flushes buffered audio.
func (s *Simulator) Close() error {
	s.running = false
	s.beeper.Flush()
	return nil
}
