// video_ula.go - Raster-timed ZX Spectrum ULA screen device

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
video_ula.go - ZX Spectrum ULA Screen Device

The ULA is simulated as a beam that walks the raster one T-state at a time.
Inside the pixel area it fetches the bitmap and attribute byte for each
8-pixel cell through the memory bus at the exact tick the cell starts, so
writes that race the beam show up where real hardware would show them. The
border colour is sampled at every tick from the last value written to an
even I/O port.

Signal Flow:
1. The CPU writes VRAM or the border port; the bus first brings the screen
   up to the CPU time
2. SimulateTo advances the beam, never past the CPU (write-requester horizon)
3. At frameStart+IRQOffset the maskable interrupt is latched
4. Leaving the last visible pixel hands the finished frame to the callback

GenerateAll redraws the whole frame from untimed reads for tools that want a
picture without running the beam.
*/

package main

import (
	"fmt"
	"log/slog"
	"unsafe"
)

// ULATiming describes one raster. Every horizontal segment is a whole
// number of 4-tick cells.
type ULATiming struct {
	ClockHz      uint64
	TicksPerRow  int
	RowsPerFrame int
	VSyncRows    int
	BorderRows   int
	HSyncTicks   int
	BorderTicks  int
	IRQOffset    uint64
}

var ULATiming48K = ULATiming{
	ClockHz:      3500000,
	TicksPerRow:  224,
	RowsPerFrame: 312,
	VSyncRows:    32,
	BorderRows:   32,
	HSyncTicks:   64,
	BorderTicks:  16,
}

var ULATiming128K = ULATiming{
	ClockHz:      3546900,
	TicksPerRow:  228,
	RowsPerFrame: 311,
	VSyncRows:    31,
	BorderRows:   32,
	HSyncTicks:   68,
	BorderTicks:  16,
}

func TimingForModel(m MemoryModel) ULATiming {
	if m == Model128K {
		return ULATiming128K
	}
	return ULATiming48K
}

func (t ULATiming) FrameTicks() uint64 {
	return uint64(t.TicksPerRow) * uint64(t.RowsPerFrame)
}

// FramesPerSecond is the refresh rate the timing produces, about 50.08 Hz
// on the 48K.
func (t ULATiming) FramesPerSecond() float64 {
	return float64(t.ClockHz) / float64(t.FrameTicks())
}

// Validate checks that the layout produces the 320x256 visible frame.
func (t ULATiming) Validate() error {
	pixelTicks := ULA_DISPLAY_WIDTH / ULA_PIXELS_PER_TICK
	switch {
	case t.ClockHz == 0:
		return fmt.Errorf("ula timing: zero clock")
	case t.HSyncTicks+2*t.BorderTicks+pixelTicks != t.TicksPerRow:
		return fmt.Errorf("ula timing: %d+2*%d+%d ticks does not fill a %d tick row",
			t.HSyncTicks, t.BorderTicks, pixelTicks, t.TicksPerRow)
	case (2*t.BorderTicks+pixelTicks)*ULA_PIXELS_PER_TICK != ULA_FRAME_WIDTH:
		return fmt.Errorf("ula timing: visible width is not %d pixels", ULA_FRAME_WIDTH)
	case t.BorderRows != ULA_BORDER_TOP:
		return fmt.Errorf("ula timing: border must be %d rows", ULA_BORDER_TOP)
	case t.VSyncRows+2*t.BorderRows+ULA_DISPLAY_HEIGHT > t.RowsPerFrame:
		return fmt.Errorf("ula timing: %d rows cannot hold the visible area", t.RowsPerFrame)
	case t.HSyncTicks%ULA_TICKS_PER_CELL != 0 || t.BorderTicks%ULA_TICKS_PER_CELL != 0:
		return fmt.Errorf("ula timing: horizontal segments must be multiples of %d ticks", ULA_TICKS_PER_CELL)
	case t.IRQOffset >= t.FrameTicks():
		return fmt.Errorf("ula timing: irq offset %d outside the %d tick frame", t.IRQOffset, t.FrameTicks())
	}
	return nil
}

// ULAScreen implements the Spectrum display as a timed device and the
// frame interrupt as an InterruptSource.
type ULAScreen struct {
	board  *Board
	id     DeviceID
	timing ULATiming
	log    *slog.Logger

	time uint64

	border byte

	// Latched at the start of the current cell
	cellBitmap byte
	cellAttr   byte

	irqPending bool
	irqAt      uint64

	frames     uint64
	flashState bool

	// Derived raster positions, in ticks/rows from the frame start
	visRowStart, visRowEnd int
	pixRowStart, pixRowEnd int
	visColStart, visColEnd int
	pixColStart, pixColEnd int
	frameEndTick           uint64

	colorU32    [16]uint32
	frameBuffer []byte

	onFrame func(frame []byte, number uint64)
}

// NewULAScreen builds the screen and registers it as a write responder on
// even I/O ports and as a source on the interrupt line.
func NewULAScreen(board *Board, timing ULATiming, logger *slog.Logger) (*ULAScreen, error) {
	if err := timing.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	u := &ULAScreen{
		board:       board,
		timing:      timing,
		log:         logger,
		frameBuffer: make([]byte, ULA_FRAME_WIDTH*ULA_FRAME_HEIGHT*4),
	}

	// Pre-build uint32 color lookup: [0..7] = normal, [8..15] = bright
	for i := range 8 {
		c := ULAColorNormal[i]
		u.colorU32[i] = uint32(c[0]) | uint32(c[1])<<8 | uint32(c[2])<<16 | 0xFF000000
		c = ULAColorBright[i]
		u.colorU32[8+i] = uint32(c[0]) | uint32(c[1])<<8 | uint32(c[2])<<16 | 0xFF000000
	}

	u.visRowStart = timing.VSyncRows
	u.visRowEnd = u.visRowStart + ULA_FRAME_HEIGHT
	u.pixRowStart = u.visRowStart + timing.BorderRows
	u.pixRowEnd = u.pixRowStart + ULA_DISPLAY_HEIGHT
	u.visColStart = timing.HSyncTicks
	u.visColEnd = u.visColStart + ULA_FRAME_WIDTH/ULA_PIXELS_PER_TICK
	u.pixColStart = u.visColStart + timing.BorderTicks
	u.pixColEnd = u.pixColStart + ULA_DISPLAY_WIDTH/ULA_PIXELS_PER_TICK
	u.frameEndTick = uint64(u.visRowEnd-1)*uint64(timing.TicksPerRow) + uint64(u.visColEnd)

	u.id = board.Add("ula", u)
	board.IO.AddWriteResponder(u.id, ulaPort)
	board.IRQ.Add(u.id)
	return u, nil
}

func (u *ULAScreen) ID() DeviceID { return u.id }

func (u *ULAScreen) Timing() ULATiming { return u.timing }

// OnFrame sets the frame-complete callback. The slice is the live frame
// buffer and is only valid during the call.
func (u *ULAScreen) OnFrame(fn func(frame []byte, number uint64)) {
	u.onFrame = fn
}

func (u *ULAScreen) Reset() {
	u.time = 0
	u.border = 0
	u.cellBitmap = 0
	u.cellAttr = 0
	u.irqPending = false
	u.irqAt = 0
	u.frames = 0
	u.flashState = false
}

func (u *ULAScreen) Time() uint64 { return u.time }

func (u *ULAScreen) NeedSyncWithRealTime() bool { return true }

func (u *ULAScreen) Border() byte { return u.border }

func (u *ULAScreen) Frames() uint64 { return u.frames }

func (u *ULAScreen) FlashState() bool { return u.flashState }

// =============================================================================
// Bus and interrupt handlers
// =============================================================================

func (u *ULAScreen) BusWrite(kind BusKind, addr uint16, value byte) {
	if kind == BusIO {
		u.border = value & 0x07
	}
}

func (u *ULAScreen) InterruptPriority() int { return ULA_IRQ_PRIORITY }

func (u *ULAScreen) PendingInterrupt() (uint64, byte, bool) {
	return u.irqAt, ULA_IRQ_VECTOR, u.irqPending
}

func (u *ULAScreen) AcknowledgeInterrupt() {
	u.irqPending = false
}

// =============================================================================
// Beam
// =============================================================================

// SimulateTo advances the beam towards t. It never passes a write requester
// on either bus and covers at most one second of ticks per call. It returns
// false when it stopped short, either because of that clamp or because a
// VRAM fetch could not be satisfied yet.
func (u *ULAScreen) SimulateTo(t uint64) bool {
	target := u.board.Memory.HorizonFor(u.board.IO.HorizonFor(t))
	if limit := u.time + u.timing.ClockHz; target > limit {
		target = limit
	}

	frameTicks := u.timing.FrameTicks()
	tpr := uint64(u.timing.TicksPerRow)

	for u.time < target {
		frameStart := u.time - u.time%frameTicks
		ft := u.time - frameStart
		row := int(ft / tpr)
		col := int(ft % tpr)

		visibleRow := row >= u.visRowStart && row < u.visRowEnd
		pixelRow := row >= u.pixRowStart && row < u.pixRowEnd

		// Step to the next point where something changes, never crossing a
		// row or a cell.
		next := int(tpr)
		switch {
		case visibleRow && col < u.visColStart:
			next = u.visColStart
		case visibleRow && col < u.visColEnd:
			next = col - col%ULA_TICKS_PER_CELL + ULA_TICKS_PER_CELL
		}
		step := uint64(next - col)
		if remain := target - u.time; step > remain {
			step = remain
		}

		if pixelRow && col >= u.pixColStart && col < u.pixColEnd && (col-u.pixColStart)%ULA_TICKS_PER_CELL == 0 {
			if !u.fetchCell(row-u.pixRowStart, (col-u.pixColStart)*ULA_PIXELS_PER_TICK) {
				return false
			}
		}

		if visibleRow && col >= u.visColStart && col < u.visColEnd {
			u.drawTicks(row, col, int(step))
		}

		if ft <= u.timing.IRQOffset && u.timing.IRQOffset < ft+step {
			u.irqPending = true
			u.irqAt = frameStart + u.timing.IRQOffset
		}

		u.time += step

		if ft < u.frameEndTick && u.frameEndTick <= ft+step {
			u.completeFrame()
		}
	}
	return u.time >= t
}

func (u *ULAScreen) fetchCell(y, x int) bool {
	bitmap, ok := u.board.Memory.TryReadRequest(BitmapAddress(y, x), u.time)
	if !ok {
		return false
	}
	attr, ok := u.board.Memory.TryReadRequest(AttributeAddress(y, x), u.time)
	if !ok {
		return false
	}
	u.cellBitmap = bitmap
	u.cellAttr = attr
	return true
}

// drawTicks paints n ticks (two pixels each) starting at raster (row, col).
func (u *ULAScreen) drawTicks(row, col, n int) {
	fy := row - u.visRowStart
	pixelRow := row >= u.pixRowStart && row < u.pixRowEnd
	borderU32 := u.colorU32[u.border]

	for i := range n {
		c := col + i
		idx := (fy*ULA_FRAME_WIDTH + (c-u.visColStart)*ULA_PIXELS_PER_TICK) * 4
		if !pixelRow || c < u.pixColStart || c >= u.pixColEnd {
			*(*uint32)(unsafe.Pointer(&u.frameBuffer[idx])) = borderU32
			*(*uint32)(unsafe.Pointer(&u.frameBuffer[idx+4])) = borderU32
			continue
		}
		fg, bg := u.cellColors(u.cellAttr)
		bit := 7 - ((c-u.pixColStart)%ULA_TICKS_PER_CELL)*ULA_PIXELS_PER_TICK
		for p := range ULA_PIXELS_PER_TICK {
			color := bg
			if (u.cellBitmap>>(bit-p))&1 != 0 {
				color = fg
			}
			*(*uint32)(unsafe.Pointer(&u.frameBuffer[idx+p*4])) = color
		}
	}
}

func (u *ULAScreen) cellColors(attr byte) (fg, bg uint32) {
	ink, paper, bright, flash := ParseAttribute(attr)
	if flash && u.flashState {
		ink, paper = paper, ink
	}
	var brightOff uint8
	if bright {
		brightOff = 8
	}
	return u.colorU32[brightOff+ink], u.colorU32[brightOff+paper]
}

func (u *ULAScreen) completeFrame() {
	u.frames++
	if u.frames%ULA_FLASH_FRAMES == 0 {
		u.flashState = !u.flashState
	}
	if u.onFrame != nil {
		u.onFrame(u.frameBuffer, u.frames)
	}
}

// =============================================================================
// Untimed rendering
// =============================================================================

// GenerateAll redraws the full frame from the current VRAM and border using
// time-unaware bus reads. It does not move the beam.
func (u *ULAScreen) GenerateAll() []byte {
	borderU32 := u.colorU32[u.border]
	for i := 0; i < len(u.frameBuffer); i += 4 {
		*(*uint32)(unsafe.Pointer(&u.frameBuffer[i])) = borderU32
	}

	mem := u.board.Memory
	for y := range ULA_DISPLAY_HEIGHT {
		rowBase := ((ULA_BORDER_TOP+y)*ULA_FRAME_WIDTH + ULA_BORDER_LEFT) * 4
		for cx := range ULA_CELLS_X {
			x := cx * 8
			bitmap := mem.Read(BitmapAddress(y, x))
			fg, bg := u.cellColors(mem.Read(AttributeAddress(y, x)))
			for bit := 7; bit >= 0; bit-- {
				idx := rowBase + (x+7-bit)*4
				if (bitmap>>bit)&1 != 0 {
					*(*uint32)(unsafe.Pointer(&u.frameBuffer[idx])) = fg
				} else {
					*(*uint32)(unsafe.Pointer(&u.frameBuffer[idx])) = bg
				}
			}
		}
	}
	return u.frameBuffer
}

// GetScreenData regenerates the frame and copies it into dst, growing dst
// when it is too small.
func (u *ULAScreen) GetScreenData(dst []byte) []byte {
	frame := u.GenerateAll()
	if cap(dst) < len(frame) {
		dst = make([]byte, len(frame))
	}
	dst = dst[:len(frame)]
	copy(dst, frame)
	return dst
}

// Frame returns the live beam-drawn frame buffer.
func (u *ULAScreen) Frame() []byte { return u.frameBuffer }
