// audio_wav_recorder.go - Records beeper output to a WAV file

package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/youpy/go-wav"
)

// WavRecorder is an AudioSink that keeps every packet in memory and writes
// a mono 16-bit WAV file on Close.
type WavRecorder struct {
	mu         sync.Mutex
	path       string
	sampleRate int
	samples    []wav.Sample
	log        *slog.Logger
}

func NewWavRecorder(path string, sampleRate int, logger *slog.Logger) *WavRecorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WavRecorder{path: path, sampleRate: sampleRate, log: logger}
}

func (r *WavRecorder) PushPacket(samples []float32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var w wav.Sample
		w.Values[0] = int(s * 32767)
		r.samples = append(r.samples, w)
	}
	return true
}

// Samples reports how many samples have been recorded so far.
func (r *WavRecorder) Samples() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func (r *WavRecorder) Close() (rerr error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("wav recorder: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("wav recorder: %w", err)
		}
	}()

	enc := wav.NewWriter(f, uint32(len(r.samples)), 1, uint32(r.sampleRate), 16)
	if enc == nil {
		return fmt.Errorf("wav recorder: bad parameters for wav encoding")
	}
	r.log.Info("writing audio", slog.String("path", r.path), slog.Int("samples", len(r.samples)))
	if err := enc.WriteSamples(r.samples); err != nil {
		return fmt.Errorf("wav recorder: %w", err)
	}
	return nil
}
