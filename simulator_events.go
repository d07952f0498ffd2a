// simulator_events.go - Notifications from the simulator to its host

package main

import "fmt"

type SimulatorEventKind int

const (
	EventBreakpointHit SimulatorEventKind = iota
	EventResumed
	EventBreak
	EventFault
)

func (k SimulatorEventKind) String() string {
	switch k {
	case EventBreakpointHit:
		return "breakpoint"
	case EventResumed:
		return "resumed"
	case EventBreak:
		return "break"
	case EventFault:
		return "fault"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

type SimulatorEvent struct {
	Kind        SimulatorEventKind
	PC          uint16
	Time        uint64
	Breakpoints []BreakpointCookie
	Err         error
}

// ScreenFrame is a finished 320x256 RGBA frame. Pixels belongs to the
// screen device and is only valid during the callback.
type ScreenFrame struct {
	Pixels []byte
	Width  int
	Height int
	Number uint64
	Time   uint64
}

type EventSink interface {
	ScreenComplete(frame ScreenFrame)
	SimulatorEvent(ev SimulatorEvent)
}

// EventFuncs adapts plain functions to EventSink. Either may be nil.
type EventFuncs struct {
	OnScreen func(ScreenFrame)
	OnEvent  func(SimulatorEvent)
}

func (f EventFuncs) ScreenComplete(frame ScreenFrame) {
	if f.OnScreen != nil {
		f.OnScreen(frame)
	}
}

func (f EventFuncs) SimulatorEvent(ev SimulatorEvent) {
	if f.OnEvent != nil {
		f.OnEvent(ev)
	}
}
