//go:build !headless

// debug_overlay.go - In-window machine monitor for the Ebiten front end

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

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

const (
	overlayGlyphW     = 7
	overlayGlyphH     = 13
	overlayScrollback = 500
	overlayPageStep   = 10
)

var (
	overlayBackground = color.RGBA{0x00, 0x55, 0xAA, 0xF0}
	overlayText       = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	overlayHeader     = color.RGBA{0x55, 0xFF, 0xFF, 0xFF}
)

// MonitorOverlay draws a MonitorConsole over the screen and feeds it the
// keyboard while it is open.
type MonitorOverlay struct {
	console *MonitorConsole
	cols    int
	rows    int
}

func NewMonitorOverlay(sim *Simulator, width, height int) *MonitorOverlay {
	cols := width / overlayGlyphW
	return &MonitorOverlay{
		console: NewMonitorConsole(sim, overlayScrollback, cols-len(monitorPrompt)-1),
		cols:    cols,
		rows:    height / overlayGlyphH,
	}
}

func (o *MonitorOverlay) Active() bool { return o.console.Active() }

func (o *MonitorOverlay) Open() { o.console.Open() }

func (o *MonitorOverlay) Draw(screen *ebiten.Image) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	ebitenutil.DrawRect(screen, 0, 0, float64(w), float64(h), overlayBackground)

	o.drawRow(screen, 0, "MACHINE MONITOR  Esc closes", overlayHeader)
	for i, line := range o.console.Visible(o.rows - 2) {
		o.drawRow(screen, i+1, line, overlayText)
	}

	input := monitorPrompt + o.console.Input()
	o.drawRow(screen, o.rows-1, input, overlayText)
	cursor := len(monitorPrompt) + o.console.Cursor()
	if cursor < o.cols {
		text.Draw(screen, "_", basicfont.Face7x13, cursor*overlayGlyphW, o.rows*overlayGlyphH-2, overlayText)
	}
}

func (o *MonitorOverlay) drawRow(screen *ebiten.Image, row int, s string, c color.Color) {
	if len(s) > o.cols {
		s = s[:o.cols]
	}
	text.Draw(screen, s, basicfont.Face7x13, 0, (row+1)*overlayGlyphH-3, c)
}

// HandleInput processes keyboard input while the monitor is open and
// reports whether it closed.
func (o *MonitorOverlay) HandleInput() bool {
	c := o.console
	page := o.rows - 2

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		c.Close()
		return true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageUp) {
		c.Scroll(overlayPageStep, page)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageDown) {
		c.Scroll(-overlayPageStep, page)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		c.HistoryUp()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		c.HistoryDown()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
		c.CursorLeft()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
		c.CursorRight()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		c.Backspace()
	}
	for _, r := range ebiten.AppendInputChars(nil) {
		if r < 0x80 {
			c.InsertChar(byte(r))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter) {
		return c.Submit()
	}
	return false
}
