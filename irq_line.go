// irq_line.go - Maskable interrupt line shared by interrupting devices

package main

import "sort"

// InterruptSource is a device that can pull the INT line.
//
// PendingInterrupt reports the time the request became pending and the byte
// the device places on the data bus during acknowledge (used by IM 2).
type InterruptSource interface {
	Device
	InterruptPriority() int
	PendingInterrupt() (at uint64, vector byte, ok bool)
	AcknowledgeInterrupt()
}

type IRQLine struct {
	board   *Board
	sources []DeviceID
}

func newIRQLine(board *Board) *IRQLine {
	return &IRQLine{board: board}
}

// Add registers an interrupting device; lower priority values are polled
// first, ties keep registration order.
func (l *IRQLine) Add(id DeviceID) {
	if _, ok := l.board.Device(id).(InterruptSource); !ok {
		panic("irq line: " + l.board.Name(id) + " is not an InterruptSource")
	}
	l.sources = append(l.sources, id)
	sort.SliceStable(l.sources, func(i, j int) bool {
		return l.source(l.sources[i]).InterruptPriority() < l.source(l.sources[j]).InterruptPriority()
	})
}

func (l *IRQLine) detach(id DeviceID) {
	l.sources = removeID(l.sources, id)
}

func (l *IRQLine) source(id DeviceID) InterruptSource {
	return l.board.Device(id).(InterruptSource)
}

// CatchUp pulls every source forward to t and reports whether all of them
// got there.
func (l *IRQLine) CatchUp(t uint64) bool {
	for _, id := range l.sources {
		src := l.source(id)
		if src.Time() < t {
			src.SimulateTo(t)
			if src.Time() < t {
				return false
			}
		}
	}
	return true
}

// Pending returns the highest-priority source with a request pending at or
// before t.
func (l *IRQLine) Pending(t uint64) (DeviceID, byte, bool) {
	for _, id := range l.sources {
		if at, vector, ok := l.source(id).PendingInterrupt(); ok && at <= t {
			return id, vector, true
		}
	}
	return noDevice, 0xFF, false
}

func (l *IRQLine) Acknowledge(id DeviceID) {
	l.source(id).AcknowledgeInterrupt()
}
