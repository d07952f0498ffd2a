// audio_queue.go - Packet queue between the simulated beeper and the host

package main

import (
	"sync/atomic"
)

// AudioSink receives finished PCM packets. PushPacket must not block; it
// returns false when the packet was dropped.
type AudioSink interface {
	PushPacket(samples []float32) bool
}

// AudioQueue is a bounded packet queue read by the host audio backend. The
// simulator pushes from its own goroutine and never waits on the host.
type AudioQueue struct {
	packets chan []float32
	dropped atomic.Uint64

	// Reader side, only touched by the goroutine calling NextSample.
	current []float32
	pos     int
	last    float32
}

func NewAudioQueue(depth int) *AudioQueue {
	if depth < 1 {
		depth = 1
	}
	return &AudioQueue{packets: make(chan []float32, depth)}
}

func (q *AudioQueue) PushPacket(samples []float32) bool {
	select {
	case q.packets <- samples:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Dropped reports how many packets were discarded because the queue was
// full.
func (q *AudioQueue) Dropped() uint64 { return q.dropped.Load() }

// Pending is the number of whole packets waiting.
func (q *AudioQueue) Pending() int { return len(q.packets) }

// NextSample returns the next queued sample. On underrun it repeats the last
// sample so a held level does not click.
func (q *AudioQueue) NextSample() float32 {
	for q.pos >= len(q.current) {
		select {
		case p := <-q.packets:
			q.current = p
			q.pos = 0
		default:
			return q.last
		}
	}
	q.last = q.current[q.pos]
	q.pos++
	return q.last
}

// ReadSamples fills dst and returns len(dst).
func (q *AudioQueue) ReadSamples(dst []float32) int {
	for i := range dst {
		dst[i] = q.NextSample()
	}
	return len(dst)
}

// multiSink fans a packet out to several sinks; the packet counts as
// accepted when any sink took it.
type multiSink []AudioSink

func (m multiSink) PushPacket(samples []float32) bool {
	ok := false
	for _, s := range m {
		if s.PushPacket(samples) {
			ok = true
		}
	}
	return ok
}
