// keyboard_typer.go - Types text into the keyboard matrix one chord per frame

package main

import (
	"log/slog"
)

const (
	TYPER_HOLD_FRAMES = 2
	TYPER_GAP_FRAMES  = 2
)

// KeyTyper feeds text to the matrix at a pace the ROM's 50 Hz keyboard scan
// can follow: each character is held for HoldFrames and followed by
// GapFrames with nothing pressed.
type KeyTyper struct {
	kb  *Keyboard
	log *slog.Logger

	HoldFrames int
	GapFrames  int

	queue [][]matrixPos
	held  []matrixPos
	wait  int
}

func NewKeyTyper(kb *Keyboard, logger *slog.Logger) *KeyTyper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &KeyTyper{
		kb:         kb,
		log:        logger,
		HoldFrames: TYPER_HOLD_FRAMES,
		GapFrames:  TYPER_GAP_FRAMES,
	}
}

// Type queues text and returns how many characters had no Spectrum
// equivalent and were skipped. Carriage returns are dropped so CRLF text
// types a single ENTER.
func (t *KeyTyper) Type(text string) int {
	skipped := 0
	for _, r := range text {
		if r == '\r' {
			continue
		}
		chord, ok := ChordForChar(r)
		if !ok {
			skipped++
			continue
		}
		t.queue = append(t.queue, chord)
	}
	if skipped > 0 {
		t.log.Warn("typer skipped characters", slog.Int("count", skipped))
	}
	return skipped
}

// Pending is the number of characters not yet pressed.
func (t *KeyTyper) Pending() int { return len(t.queue) }

// Busy reports whether anything is queued or still held.
func (t *KeyTyper) Busy() bool { return len(t.queue) > 0 || t.held != nil || t.wait > 0 }

// Advance moves the typer on by one frame.
func (t *KeyTyper) Advance() {
	if t.wait > 0 {
		t.wait--
		if t.wait > 0 {
			return
		}
	}
	if t.held != nil {
		t.kb.ReleaseMatrix(t.held)
		t.held = nil
		t.wait = t.GapFrames
		if t.wait > 0 {
			return
		}
	}
	if len(t.queue) == 0 {
		return
	}
	t.held = t.queue[0]
	t.queue = t.queue[1:]
	t.kb.PressMatrix(t.held)
	t.wait = t.HoldFrames
}

// Cancel drops the queue and releases a held chord.
func (t *KeyTyper) Cancel() {
	if t.held != nil {
		t.kb.ReleaseMatrix(t.held)
		t.held = nil
	}
	t.queue = nil
	t.wait = 0
}
