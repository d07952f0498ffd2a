//go:build !headless

// video_backend_ebiten.go - Ebiten window, keyboard and status line

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
	"image/color"
	"log/slog"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

const (
	statusBarHeight = 16
	maxPasteBytes   = 4096
)

// ebitenKeys maps host keys onto the virtual key codes the keyboard matrix
// understands.
var ebitenKeys = map[ebiten.Key]VirtualKey{
	ebiten.KeyEnter:        VK_RETURN,
	ebiten.KeyNumpadEnter:  VK_RETURN,
	ebiten.KeySpace:        VK_SPACE,
	ebiten.KeyBackspace:    VK_BACK,
	ebiten.KeyShiftLeft:    VK_LSHIFT,
	ebiten.KeyShiftRight:   VK_RSHIFT,
	ebiten.KeyControlLeft:  VK_LCTRL,
	ebiten.KeyControlRight: VK_RCTRL,
	ebiten.KeyArrowLeft:    VK_LEFT,
	ebiten.KeyArrowRight:   VK_RIGHT,
	ebiten.KeyArrowUp:      VK_UP,
	ebiten.KeyArrowDown:    VK_DOWN,
	ebiten.KeySemicolon:    VK_OEM_1,
	ebiten.KeyEqual:        VK_OEM_PLUS,
	ebiten.KeyComma:        VK_OEM_COMMA,
	ebiten.KeyMinus:        VK_OEM_MINUS,
	ebiten.KeyPeriod:       VK_OEM_PERIOD,
	ebiten.KeySlash:        VK_OEM_2,
	ebiten.KeyQuote:        VK_OEM_7,
}

func init() {
	for i := range 26 {
		ebitenKeys[ebiten.KeyA+ebiten.Key(i)] = VK_A + VirtualKey(i)
	}
	for i := range 10 {
		ebitenKeys[ebiten.KeyDigit0+ebiten.Key(i)] = VK_0 + VirtualKey(i)
	}
}

type EbitenOutput struct {
	config DisplayConfig
	host    *SimulatorHost
	window  *ebiten.Image
	monitor *MonitorOverlay
	err    error

	frameCount    uint64
	showStatusBar bool

	clipboardOnce sync.Once
	clipboardOK   bool
}

func NewEbitenOutput() (VideoOutput, error) {
	return &EbitenOutput{
		config:        DefaultDisplayConfig(),
		showStatusBar: true,
	}, nil
}

func (eo *EbitenOutput) SetDisplayConfig(config DisplayConfig) error {
	if config.Width <= 0 || config.Height <= 0 {
		return &VideoError{Operation: "configure", Details: "display size must be positive"}
	}
	config.Scale = ClampScale(config.Scale)
	eo.config = config
	return nil
}

func (eo *EbitenOutput) GetDisplayConfig() DisplayConfig { return eo.config }

func (eo *EbitenOutput) GetFrameCount() uint64 { return eo.frameCount }

// Run opens the window and blocks until it is closed, the host reaches its
// frame limit or the simulator faults. The simulator is only touched from
// Update.
func (eo *EbitenOutput) Run(host *SimulatorHost) error {
	eo.host = host
	w, h := eo.layoutSize()
	eo.monitor = NewMonitorOverlay(host.Simulator(), eo.config.Width, eo.config.Height+statusBarHeight)
	ebiten.SetWindowSize(w*eo.config.Scale, h*eo.config.Scale)
	ebiten.SetWindowTitle(eo.config.Title)
	ebiten.SetWindowResizable(true)
	ebiten.SetTPS(int(host.Simulator().Screen().Timing().FramesPerSecond() + 0.5))
	ebiten.SetFullscreen(eo.config.Fullscreen)

	if err := ebiten.RunGame(eo); err != nil {
		return &VideoError{Operation: "run", Details: "ebiten", Err: err}
	}
	return eo.err
}

func (eo *EbitenOutput) layoutSize() (int, int) {
	h := eo.config.Height
	if eo.showStatusBar {
		h += statusBarHeight
	}
	return eo.config.Width, h
}

func (eo *EbitenOutput) Update() error {
	if ebiten.IsWindowBeingClosed() || eo.host.Done() {
		return ebiten.Termination
	}

	sim := eo.host.Simulator()
	if eo.monitor.Active() {
		eo.monitor.HandleInput()
		return eo.tick()
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyF1):
		sim.Keyboard().ReleaseAll()
		eo.monitor.Open()
		return nil
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		eo.host.TogglePause()
	case inpututil.IsKeyJustPressed(ebiten.KeyF9):
		sim.TriggerNMI()
	case inpututil.IsKeyJustPressed(ebiten.KeyF10):
		sim.Reset(0)
		sim.Resume(true)
	case inpututil.IsKeyJustPressed(ebiten.KeyF11):
		eo.config.Fullscreen = !eo.config.Fullscreen
		ebiten.SetFullscreen(eo.config.Fullscreen)
	case inpututil.IsKeyJustPressed(ebiten.KeyF12):
		eo.showStatusBar = !eo.showStatusBar
	}
	eo.handleKeyboardInput(sim)
	return eo.tick()
}

func (eo *EbitenOutput) tick() error {
	if err := eo.host.Tick(); err != nil {
		eo.err = err
		return ebiten.Termination
	}
	return nil
}

func (eo *EbitenOutput) handleKeyboardInput(sim *Simulator) {
	if !ebiten.IsFocused() {
		sim.Keyboard().ReleaseAll()
		return
	}

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)

	// Clipboard paste: Ctrl+Shift+V
	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		eo.handleClipboardPaste(sim)
		return
	}

	var mods KeyModifiers
	if shift {
		mods |= ModShift
	}
	if ctrl {
		mods |= ModCtrl
	}
	for key, vk := range ebitenKeys {
		if inpututil.IsKeyJustPressed(key) {
			sim.ProcessKeyDown(vk, mods)
		}
		if inpututil.IsKeyJustReleased(key) {
			sim.ProcessKeyUp(vk, mods)
		}
	}
}

func normalizePasteText(raw []byte) string {
	s := strings.ReplaceAll(string(raw), "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func (eo *EbitenOutput) handleClipboardPaste(sim *Simulator) {
	eo.clipboardOnce.Do(func() {
		eo.clipboardOK = clipboard.Init() == nil
	})
	if !eo.clipboardOK {
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	if len(data) > maxPasteBytes {
		data = data[:maxPasteBytes]
	}
	if skipped := sim.TypeText(normalizePasteText(data)); skipped > 0 {
		eo.host.log.Warn("paste: characters without a key", slog.Int("skipped", skipped))
	}
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	if eo.window == nil {
		eo.window = ebiten.NewImage(eo.config.Width, eo.config.Height)
	}
	eo.window.WritePixels(eo.host.Frame())
	screen.DrawImage(eo.window, nil)
	if eo.showStatusBar {
		eo.drawStatusBar(screen)
	}
	if eo.monitor.Active() {
		eo.monitor.Draw(screen)
	}
	eo.frameCount++
}

func (eo *EbitenOutput) drawStatusBar(screen *ebiten.Image) {
	y := eo.config.Height
	ebitenutil.DrawRect(screen, 0, float64(y), float64(eo.config.Width), statusBarHeight, color.RGBA{0, 0, 0, 255})
	text.Draw(screen, eo.host.StatusLine(), basicfont.Face7x13, 4, y+12, color.RGBA{190, 190, 190, 255})
}

func (eo *EbitenOutput) Layout(_, _ int) (int, int) {
	return eo.layoutSize()
}
