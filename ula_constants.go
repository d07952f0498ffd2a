// ula_constants.go - ZX Spectrum ULA timing, layout and palette

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
Display Specifications:
  - Resolution: 256x192 pixels (32x24 character cells of 8x8 pixels)
  - Border: 32 pixels on each side, 320x256 visible frame
  - One T-state draws two pixels; a character cell is four T-states
  - VRAM: 6144 bytes bitmap at 0x4000 + 768 bytes attributes at 0x5800

Raster Layout (48K, one frame = 312 rows of 224 T-states):
  rows   0- 31  vertical sync, never visible
  rows  32- 63  top border
  rows  64-255  pixel rows
  rows 256-287  bottom border
  rows 288-311  blanking
  cols   0- 63  horizontal sync
  cols  64- 79  left border
  cols  80-207  pixels
  cols 208-223  right border

Attribute Byte Format:
  Bit 7: FLASH (swap INK/PAPER when set, toggles every 16 frames)
  Bit 6: BRIGHT (intensify both INK and PAPER)
  Bits 5-3: PAPER (background color, 0-7)
  Bits 2-0: INK (foreground color, 0-7)
*/

package main

// =============================================================================
// ULA VRAM Layout
// =============================================================================

const (
	ULA_VRAM_BASE   = 0x4000
	ULA_BITMAP_SIZE = 6144
	ULA_ATTR_BASE   = 0x5800
	ULA_ATTR_SIZE   = 768
)

// =============================================================================
// ULA Display Dimensions
// =============================================================================

const (
	ULA_DISPLAY_WIDTH  = 256
	ULA_DISPLAY_HEIGHT = 192
	ULA_CELLS_X        = 32

	ULA_BORDER_LEFT = 32
	ULA_BORDER_TOP  = 32

	ULA_FRAME_WIDTH  = ULA_DISPLAY_WIDTH + 2*ULA_BORDER_LEFT // 320
	ULA_FRAME_HEIGHT = ULA_DISPLAY_HEIGHT + 2*ULA_BORDER_TOP // 256

	// Pixels drawn per T-state and T-states per 8-pixel cell.
	ULA_PIXELS_PER_TICK = 2
	ULA_TICKS_PER_CELL  = 4
)

// =============================================================================
// ULA Timing Constants
// =============================================================================

const (
	// Flash toggle interval in frames
	ULA_FLASH_FRAMES = 16

	// The data bus floats high while the ULA holds INT, so IM 2 sees 0xFF.
	ULA_IRQ_VECTOR   = 0xFF
	ULA_IRQ_PRIORITY = 0
)

// Port decoding: the ULA answers every even port (A0 = 0).
var ulaPort = AddressMatch{Mask: 0x0001, Value: 0x0000}

// =============================================================================
// Color Palette
// =============================================================================

// Normal colors (RGB values when BRIGHT bit is 0)
var ULAColorNormal = [8][3]uint8{
	{0, 0, 0},       // 0: Black
	{0, 0, 205},     // 1: Blue
	{205, 0, 0},     // 2: Red
	{205, 0, 205},   // 3: Magenta
	{0, 205, 0},     // 4: Green
	{0, 205, 205},   // 5: Cyan
	{205, 205, 0},   // 6: Yellow
	{205, 205, 205}, // 7: White
}

// Bright colors (RGB values when BRIGHT bit is 1)
var ULAColorBright = [8][3]uint8{
	{0, 0, 0},       // 0: Black (same, can't brighten)
	{0, 0, 255},     // 1: Bright Blue
	{255, 0, 0},     // 2: Bright Red
	{255, 0, 255},   // 3: Bright Magenta
	{0, 255, 0},     // 4: Bright Green
	{0, 255, 255},   // 5: Bright Cyan
	{255, 255, 0},   // 6: Bright Yellow
	{255, 255, 255}, // 7: Bright White
}

// ParseAttribute extracts INK, PAPER, BRIGHT, and FLASH from an attribute byte.
func ParseAttribute(attr uint8) (ink, paper uint8, bright, flash bool) {
	ink = attr & 0x07
	paper = (attr >> 3) & 0x07
	bright = (attr & 0x40) != 0
	flash = (attr & 0x80) != 0
	return
}

// BitmapAddress is the non-linear Spectrum bitmap address of pixel (x, y):
// 0x4000 + ((y & 0xC0) << 5) + ((y & 0x07) << 8) + ((y & 0x38) << 2) + (x >> 3)
func BitmapAddress(y, x int) uint16 {
	highY := (y & 0xC0) << 5
	lowY := (y & 0x07) << 8
	midY := (y & 0x38) << 2
	return uint16(ULA_VRAM_BASE + highY + lowY + midY + x>>3)
}

// AttributeAddress is the attribute byte covering pixel (x, y).
func AttributeAddress(y, x int) uint16 {
	return uint16(ULA_ATTR_BASE + (y>>3)*ULA_CELLS_X + x>>3)
}
