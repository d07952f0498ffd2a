// tape_deck.go - Cassette input on the EAR line, fed from WAV or MP3 audio

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

const tapeEarBit = 0x40

var (
	ErrTapeFormat = errors.New("unsupported tape format")
	ErrNoTape     = errors.New("no tape loaded")
)

// TapeAudio is a mono recording. Only the sign of each sample matters: the
// Spectrum sees a positive half wave as EAR high.
type TapeAudio struct {
	Samples    []float32
	SampleRate int
}

func (a *TapeAudio) Duration() time.Duration {
	if a.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(a.Samples)) * time.Second / time.Duration(a.SampleRate)
}

// TapeFromBuffer takes the first channel of a go-audio buffer.
func TapeFromBuffer(buf *audio.FloatBuffer) (*TapeAudio, error) {
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: buffer without format", ErrTapeFormat)
	}
	chans := buf.Format.NumChannels
	if chans < 1 {
		chans = 1
	}
	t := &TapeAudio{
		Samples:    make([]float32, 0, len(buf.Data)/chans),
		SampleRate: buf.Format.SampleRate,
	}
	for i := 0; i < len(buf.Data); i += chans {
		t.Samples = append(t.Samples, float32(buf.Data[i]))
	}
	return t, nil
}

// LoadTapeFile decodes a .wav or .mp3 recording.
func LoadTapeFile(path string) (*TapeAudio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tape %s: %w", path, err)
	}
	defer f.Close()

	var tape *TapeAudio
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		tape, err = decodeWavTape(f)
	case ".mp3":
		tape, err = decodeMP3Tape(f)
	default:
		err = fmt.Errorf("%w: %q", ErrTapeFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("tape %s: %w", path, err)
	}
	return tape, nil
}

func decodeWavTape(r io.ReadSeeker) (*TapeAudio, error) {
	dec := wav.NewDecoder(r)
	if dec == nil || !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid wav file", ErrTapeFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	fb := buf.AsFloatBuffer()
	fb.Format = &audio.Format{NumChannels: int(dec.NumChans), SampleRate: int(dec.SampleRate)}
	return TapeFromBuffer(fb)
}

// decodeMP3Tape keeps the left channel. go-mp3 always produces 16-bit
// little-endian stereo.
func decodeMP3Tape(r io.Reader) (*TapeAudio, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	t := &TapeAudio{SampleRate: dec.SampleRate()}
	chunk := make([]byte, 4096)
	for {
		n, err := dec.Read(chunk)
		for i := 0; i+1 < n; i += 4 {
			t.Samples = append(t.Samples, float32(int16(uint16(chunk[i])|uint16(chunk[i+1])<<8)))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("mp3: %w", err)
		}
	}
	return t, nil
}

// TapeDeck drives bit 6 of every even port from the loaded recording. It
// answers reads only, so the keyboard's result is ANDed with it.
type TapeDeck struct {
	board   *Board
	id      DeviceID
	log     *slog.Logger
	clockHz uint64

	time    uint64
	tape    *TapeAudio
	playing bool
	elapsed uint64 // ticks of tape played
}

func NewTapeDeck(board *Board, clockHz uint64, logger *slog.Logger) *TapeDeck {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &TapeDeck{board: board, log: logger, clockHz: clockHz}
	d.id = board.Add("tape", d)
	board.IO.AddReadResponder(d.id, ulaPort)
	return d
}

func (d *TapeDeck) ID() DeviceID { return d.id }

// Reset stops the motor and rewinds. The cassette stays inserted.
func (d *TapeDeck) Reset() {
	d.time = 0
	d.playing = false
	d.elapsed = 0
}

func (d *TapeDeck) Time() uint64 { return d.time }

func (d *TapeDeck) NeedSyncWithRealTime() bool { return false }

func (d *TapeDeck) SimulateTo(t uint64) bool {
	target := d.board.IO.HorizonFor(t)
	if target > d.time {
		if d.playing {
			d.elapsed += target - d.time
			if d.sampleIndex() >= len(d.tape.Samples) {
				d.playing = false
				d.log.Info("tape finished", slog.Duration("length", d.tape.Duration()))
			}
		}
		d.time = target
	}
	return d.time >= t
}

func (d *TapeDeck) sampleIndex() int {
	return int(d.elapsed * uint64(d.tape.SampleRate) / d.clockHz)
}

// Ear reports the current EAR level.
func (d *TapeDeck) Ear() bool {
	if !d.playing || d.tape == nil {
		return false
	}
	i := d.sampleIndex()
	return i < len(d.tape.Samples) && d.tape.Samples[i] > 0
}

func (d *TapeDeck) BusRead(kind BusKind, addr uint16) byte {
	if kind != BusIO || !d.playing {
		return 0xFF
	}
	if d.Ear() {
		return 0xFF
	}
	return 0xFF &^ tapeEarBit
}

// Insert loads a recording and rewinds it.
func (d *TapeDeck) Insert(tape *TapeAudio) {
	d.tape = tape
	d.playing = false
	d.elapsed = 0
	d.log.Info("tape inserted",
		slog.Int("rate", tape.SampleRate),
		slog.Duration("length", tape.Duration()))
}

func (d *TapeDeck) Play() error {
	if d.tape == nil {
		return ErrNoTape
	}
	d.playing = true
	return nil
}

func (d *TapeDeck) Stop() { d.playing = false }

func (d *TapeDeck) Rewind() { d.elapsed = 0 }

func (d *TapeDeck) Playing() bool { return d.playing }

// Position is how far into the recording playback is.
func (d *TapeDeck) Position() time.Duration {
	if d.clockHz == 0 {
		return 0
	}
	return time.Duration(float64(d.elapsed) / float64(d.clockHz) * float64(time.Second))
}
