// video_interface.go - Display front end contract and the frame pump they share

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

package main

import (
	"errors"
	"fmt"
	"log/slog"
)

// VideoError provides detailed error context for video operations
type VideoError struct {
	Operation string // What operation was being attempted
	Details   string // Additional error context
	Err       error  // Underlying error if any
}

func (e *VideoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("video %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("video %s failed: %s", e.Operation, e.Details)
}

func (e *VideoError) Unwrap() error { return e.Err }

// DisplayConfig contains hardware-independent configuration
type DisplayConfig struct {
	Width      int
	Height     int
	Scale      int // Integer scaling factor for output
	Fullscreen bool
	Title      string
}

func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Width:  ULA_FRAME_WIDTH,
		Height: ULA_FRAME_HEIGHT,
		Scale:  2,
		Title:  "IntuitionSpectrum",
	}
}

// ClampScale keeps the window scale in 1..4.
func ClampScale(scale int) int {
	return min(max(scale, 1), 4)
}

// VideoOutput runs a host until the user closes it or the host is done.
type VideoOutput interface {
	SetDisplayConfig(config DisplayConfig) error
	GetDisplayConfig() DisplayConfig
	Run(host *SimulatorHost) error
	GetFrameCount() uint64
}

const (
	VIDEO_BACKEND_EBITEN = iota
	VIDEO_BACKEND_HEADLESS
)

// NewVideoOutput creates a new video output instance using the specified backend
func NewVideoOutput(backend int) (VideoOutput, error) {
	switch backend {
	case VIDEO_BACKEND_EBITEN:
		return NewEbitenOutput()
	case VIDEO_BACKEND_HEADLESS:
		return NewHeadlessVideoOutput(), nil
	}
	return nil, &VideoError{
		Operation: "backend creation",
		Details:   fmt.Sprintf("unknown backend type: %d", backend),
	}
}

// =============================================================================
// SimulatorHost
// =============================================================================

// SimulatorHost advances a Simulator one frame's worth of T-states per
// display tick and keeps a copy of the last completed frame. Every call
// must come from the goroutine that owns the simulator.
type SimulatorHost struct {
	sim *Simulator
	log *slog.Logger

	frameTicks uint64
	maxFrames  uint64

	frame   []byte
	frameNo uint64
	shown   uint64
	fault   error
	status  string
}

// NewSimulatorHost takes over the simulator's event sink. maxFrames of zero
// means run until closed.
func NewSimulatorHost(sim *Simulator, maxFrames int, logger *slog.Logger) *SimulatorHost {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &SimulatorHost{
		sim:        sim,
		log:        logger,
		frameTicks: sim.Screen().Timing().FrameTicks(),
		maxFrames:  uint64(max(maxFrames, 0)),
		frame:      make([]byte, ULA_FRAME_WIDTH*ULA_FRAME_HEIGHT*4),
	}
	sim.SetEvents(EventFuncs{OnScreen: h.onScreen, OnEvent: h.onEvent})
	return h
}

func (h *SimulatorHost) Simulator() *Simulator { return h.sim }

func (h *SimulatorHost) onScreen(f ScreenFrame) {
	copy(h.frame, f.Pixels)
	h.frameNo = f.Number
}

func (h *SimulatorHost) onEvent(ev SimulatorEvent) {
	switch ev.Kind {
	case EventBreakpointHit:
		h.status = fmt.Sprintf("BREAK $%04X", ev.PC)
		h.log.Info("breakpoint hit", slog.String("pc", fmt.Sprintf("0x%04X", ev.PC)), slog.Any("ids", ev.Breakpoints))
	case EventFault:
		h.fault = ev.Err
		h.status = "FAULT"
	case EventResumed:
		h.status = ""
	}
}

// Tick runs one frame of emulated time. A stalled step is retried on the
// next tick.
func (h *SimulatorHost) Tick() error {
	if h.fault != nil {
		return h.fault
	}
	if !h.sim.Running() {
		return nil
	}
	err := h.sim.Advance(h.frameTicks)
	if errors.Is(err, ErrStalled) {
		h.log.Debug("stalled", slog.Uint64("time", h.sim.Time()))
		return nil
	}
	return err
}

// Done reports whether the frame limit has been reached.
func (h *SimulatorHost) Done() bool {
	return h.maxFrames > 0 && h.frameNo >= h.maxFrames
}

// Frame returns the last completed frame, owned by the host.
func (h *SimulatorHost) Frame() []byte { return h.frame }

func (h *SimulatorHost) FrameNumber() uint64 { return h.frameNo }

// TogglePause breaks a running machine or resumes a stopped one past any
// breakpoint on the current PC.
func (h *SimulatorHost) TogglePause() {
	if h.sim.Running() {
		h.sim.Break()
		h.status = "PAUSED"
		return
	}
	h.sim.Resume(false)
}

// StatusLine is the one-line summary drawn under the screen.
func (h *SimulatorHost) StatusLine() string {
	s := fmt.Sprintf("%s  PC $%04X  frame %d", h.sim.Model(), h.sim.GetPC(), h.frameNo)
	if h.sim.Tape().Playing() {
		s += fmt.Sprintf("  TAPE %s", h.sim.Tape().Position().Truncate(1e9))
	}
	if h.status != "" {
		s += "  " + h.status
	}
	return s
}
