// keyboard_matrix.go - ZX Spectrum 8x5 keyboard matrix

/*
Half-row layout. A row is selected by clearing its address line in the
high byte of the port; columns read active low in bits 0-4.

	row  line  bit0   bit1  bit2  bit3  bit4
	 0   A8    CAPS   Z     X     C     V
	 1   A9    A      S     D     F     G
	 2   A10   Q      W     E     R     T
	 3   A11   1      2     3     4     5
	 4   A12   0      9     8     7     6
	 5   A13   P      O     I     U     Y
	 6   A14   ENTER  L     K     J     H
	 7   A15   SPACE  SYM   M     N     B

Host keys arrive as Windows-style virtual key codes. A host key may press
several matrix positions at once (Backspace is CAPS+0). Every position is
reference counted so overlapping chords release cleanly.
*/

package main

import (
	"log/slog"
)

type VirtualKey uint16

// Windows virtual key codes used by the host front ends.
const (
	VK_BACK    VirtualKey = 0x08
	VK_TAB     VirtualKey = 0x09
	VK_RETURN  VirtualKey = 0x0D
	VK_SHIFT   VirtualKey = 0x10
	VK_CONTROL VirtualKey = 0x11
	VK_MENU    VirtualKey = 0x12
	VK_ESCAPE  VirtualKey = 0x1B
	VK_SPACE   VirtualKey = 0x20
	VK_LEFT    VirtualKey = 0x25
	VK_UP      VirtualKey = 0x26
	VK_RIGHT   VirtualKey = 0x27
	VK_DOWN    VirtualKey = 0x28
	VK_0       VirtualKey = 0x30
	VK_A       VirtualKey = 0x41
	VK_LSHIFT  VirtualKey = 0xA0
	VK_RSHIFT  VirtualKey = 0xA1
	VK_LCTRL   VirtualKey = 0xA2
	VK_RCTRL   VirtualKey = 0xA3

	VK_OEM_1      VirtualKey = 0xBA // ;:
	VK_OEM_PLUS   VirtualKey = 0xBB // =+
	VK_OEM_COMMA  VirtualKey = 0xBC // ,<
	VK_OEM_MINUS  VirtualKey = 0xBD // -_
	VK_OEM_PERIOD VirtualKey = 0xBE // .>
	VK_OEM_2      VirtualKey = 0xBF // /?
	VK_OEM_7      VirtualKey = 0xDE // '"
)

type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota
	ModCtrl
	ModAlt
)

type matrixPos struct {
	row, bit uint8
}

var (
	posCaps   = matrixPos{0, 0}
	posSymbol = matrixPos{7, 1}
	posEnter  = matrixPos{6, 0}
	posSpace  = matrixPos{7, 0}
)

// matrixChars maps the legend of every plain key to its position.
var matrixChars = map[rune]matrixPos{
	'z': {0, 1}, 'x': {0, 2}, 'c': {0, 3}, 'v': {0, 4},
	'a': {1, 0}, 's': {1, 1}, 'd': {1, 2}, 'f': {1, 3}, 'g': {1, 4},
	'q': {2, 0}, 'w': {2, 1}, 'e': {2, 2}, 'r': {2, 3}, 't': {2, 4},
	'1': {3, 0}, '2': {3, 1}, '3': {3, 2}, '4': {3, 3}, '5': {3, 4},
	'0': {4, 0}, '9': {4, 1}, '8': {4, 2}, '7': {4, 3}, '6': {4, 4},
	'p': {5, 0}, 'o': {5, 1}, 'i': {5, 2}, 'u': {5, 3}, 'y': {5, 4},
	'l': {6, 1}, 'k': {6, 2}, 'j': {6, 3}, 'h': {6, 4},
	'm': {7, 2}, 'n': {7, 3}, 'b': {7, 4},
	' ': posSpace, '\n': posEnter,
}

// symbolChars are produced with SYMBOL SHIFT held.
var symbolChars = map[rune]rune{
	';': 'o', ':': 'z',
	'=': 'l', '+': 'k',
	',': 'n', '<': 'r',
	'-': 'j', '_': '0',
	'.': 'm', '>': 't',
	'/': 'v', '?': 'c',
	'\'': '7', '"': 'p',
	'!': '1', '@': '2', '#': '3', '$': '4', '%': '5',
	'&': '6', '(': '8', ')': '9', '*': 'b', '^': 'h',
}

// oemKeys gives the unshifted and shifted characters of the punctuation
// keys.
var oemKeys = map[VirtualKey][2]rune{
	VK_OEM_1:      {';', ':'},
	VK_OEM_PLUS:   {'=', '+'},
	VK_OEM_COMMA:  {',', '<'},
	VK_OEM_MINUS:  {'-', '_'},
	VK_OEM_PERIOD: {'.', '>'},
	VK_OEM_2:      {'/', '?'},
	VK_OEM_7:      {'\'', '"'},
}

// keyChord is the set of matrix positions one host key presses. suppressCaps
// hides a held host shift so SYMBOL+key is not read as CAPS+SYMBOL+key.
type keyChord struct {
	positions    []matrixPos
	suppressCaps bool
}

// ChordForChar returns the positions that type r, or false when the
// Spectrum keyboard has no way to produce it.
func ChordForChar(r rune) ([]matrixPos, bool) {
	if r >= 'A' && r <= 'Z' {
		return []matrixPos{posCaps, matrixChars[r-'A'+'a']}, true
	}
	if p, ok := matrixChars[r]; ok {
		return []matrixPos{p}, true
	}
	if base, ok := symbolChars[r]; ok {
		return []matrixPos{posSymbol, matrixChars[base]}, true
	}
	return nil, false
}

type Keyboard struct {
	board *Board
	id    DeviceID
	log   *slog.Logger

	time uint64

	counts   [8][5]int
	suppress int
	pressed  map[VirtualKey]keyChord
}

func NewKeyboard(board *Board, logger *slog.Logger) *Keyboard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	k := &Keyboard{
		board:   board,
		log:     logger,
		pressed: make(map[VirtualKey]keyChord),
	}
	k.id = board.Add("keyboard", k)
	board.IO.AddReadResponder(k.id, ulaPort)
	return k
}

func (k *Keyboard) ID() DeviceID { return k.id }

// Reset releases every key.
func (k *Keyboard) Reset() {
	k.time = 0
	k.counts = [8][5]int{}
	k.suppress = 0
	clear(k.pressed)
}

func (k *Keyboard) Time() uint64 { return k.time }

func (k *Keyboard) NeedSyncWithRealTime() bool { return false }

func (k *Keyboard) SimulateTo(t uint64) bool {
	if limit := k.board.IO.HorizonFor(t); limit > k.time {
		k.time = limit
	}
	return k.time >= t
}

// BusRead ANDs the column bits of every row whose address line is low.
func (k *Keyboard) BusRead(kind BusKind, addr uint16) byte {
	if kind != BusIO {
		return 0xFF
	}
	high := byte(addr >> 8)
	bits := byte(0x1F)
	for row := range 8 {
		if high&(1<<row) == 0 {
			bits &= k.rowBits(row)
		}
	}
	return 0xE0 | bits
}

func (k *Keyboard) rowBits(row int) byte {
	bits := byte(0x1F)
	for col := range 5 {
		if k.counts[row][col] == 0 {
			continue
		}
		if row == int(posCaps.row) && col == int(posCaps.bit) && k.suppress > 0 {
			continue
		}
		bits &^= 1 << col
	}
	return bits
}

// PressMatrix presses positions directly; the key typer uses this.
func (k *Keyboard) PressMatrix(positions []matrixPos) {
	for _, p := range positions {
		k.counts[p.row][p.bit]++
	}
}

func (k *Keyboard) ReleaseMatrix(positions []matrixPos) {
	for _, p := range positions {
		if k.counts[p.row][p.bit] > 0 {
			k.counts[p.row][p.bit]--
		}
	}
}

// IsPressed reports whether a matrix position currently reads as down.
func (k *Keyboard) IsPressed(row, bit int) bool {
	return k.rowBits(row)&(1<<bit) == 0
}

// ProcessKeyDown maps a host key to its chord and presses it. A repeat of a
// key that is already down is ignored. Unknown keys return false.
func (k *Keyboard) ProcessKeyDown(vk VirtualKey, mods KeyModifiers) bool {
	if _, down := k.pressed[vk]; down {
		return true
	}
	chord, ok := chordForKey(vk, mods)
	if !ok {
		k.log.Debug("unmapped key", slog.Int("vk", int(vk)))
		return false
	}
	k.pressed[vk] = chord
	k.PressMatrix(chord.positions)
	if chord.suppressCaps {
		k.suppress++
	}
	return true
}

// ProcessKeyUp releases exactly what the matching key down pressed, whatever
// the modifiers are now.
func (k *Keyboard) ProcessKeyUp(vk VirtualKey, mods KeyModifiers) bool {
	chord, down := k.pressed[vk]
	if !down {
		return false
	}
	delete(k.pressed, vk)
	k.ReleaseMatrix(chord.positions)
	if chord.suppressCaps && k.suppress > 0 {
		k.suppress--
	}
	return true
}

// ReleaseAll drops every host key, used when the window loses focus.
func (k *Keyboard) ReleaseAll() {
	for vk := range k.pressed {
		k.ProcessKeyUp(vk, 0)
	}
}

func chordForKey(vk VirtualKey, mods KeyModifiers) (keyChord, bool) {
	single := func(p ...matrixPos) (keyChord, bool) {
		return keyChord{positions: p}, true
	}
	switch {
	case vk >= VK_A && vk <= VK_A+25:
		return single(matrixChars[rune('a'+vk-VK_A)])
	case vk >= VK_0 && vk <= VK_0+9:
		return single(matrixChars[rune('0'+vk-VK_0)])
	}

	switch vk {
	case VK_RETURN:
		return single(posEnter)
	case VK_SPACE:
		return single(posSpace)
	case VK_SHIFT, VK_LSHIFT, VK_RSHIFT:
		return single(posCaps)
	case VK_CONTROL, VK_LCTRL, VK_RCTRL:
		return single(posSymbol)
	case VK_BACK:
		return single(posCaps, matrixChars['0'])
	case VK_LEFT:
		return single(posCaps, matrixChars['5'])
	case VK_DOWN:
		return single(posCaps, matrixChars['6'])
	case VK_UP:
		return single(posCaps, matrixChars['7'])
	case VK_RIGHT:
		return single(posCaps, matrixChars['8'])
	case VK_ESCAPE:
		return single(posCaps, posSpace)
	case VK_TAB:
		return single(posCaps, posSymbol)
	}

	if pair, ok := oemKeys[vk]; ok {
		shifted := mods&ModShift != 0
		r := pair[0]
		if shifted {
			r = pair[1]
		}
		return keyChord{
			positions:    []matrixPos{posSymbol, matrixChars[symbolChars[r]]},
			suppressCaps: shifted,
		}, true
	}
	return keyChord{}, false
}
