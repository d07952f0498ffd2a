// device.go - Timed device model and the board that owns every device

package main

import (
	"fmt"
	"log/slog"
)

// Device is anything that keeps its own simulated time.
//
// SimulateTo advances the device towards t and reports whether it got all
// the way there. A device may stop early when a bus access it depends on is
// not yet satisfiable or when a write requester it listens to is still
// behind; the caller retries later. Time never decreases and never exceeds
// the requested value.
type Device interface {
	Reset()
	Time() uint64
	NeedSyncWithRealTime() bool
	SimulateTo(t uint64) bool
}

// DeviceID is a stable handle into a Board. Buses and the IRQ line store
// handles, never device values.
type DeviceID int

const noDevice DeviceID = -1

type boardSlot struct {
	name   string
	device Device
}

// Board owns all devices of one machine together with the buses and the
// interrupt line they are registered on.
type Board struct {
	slots  []boardSlot
	Memory *Bus
	IO     *Bus
	IRQ    *IRQLine
	log    *slog.Logger
}

func NewBoard(logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Board{log: logger}
	b.Memory = newBus(b, BusMemory)
	b.IO = newBus(b, BusIO)
	b.IRQ = newIRQLine(b)
	return b
}

// Add places a device in the arena and returns its handle. The device is not
// yet visible on any bus; callers register it afterwards.
func (b *Board) Add(name string, d Device) DeviceID {
	for i := range b.slots {
		if b.slots[i].device == nil {
			b.slots[i] = boardSlot{name: name, device: d}
			b.log.Debug("device attached", slog.String("device", name), slog.Int("id", i))
			return DeviceID(i)
		}
	}
	b.slots = append(b.slots, boardSlot{name: name, device: d})
	id := DeviceID(len(b.slots) - 1)
	b.log.Debug("device attached", slog.String("device", name), slog.Int("id", int(id)))
	return id
}

// Remove drops a device from the arena and from every bus and the IRQ line.
func (b *Board) Remove(id DeviceID) {
	if !b.valid(id) {
		return
	}
	b.Memory.detach(id)
	b.IO.detach(id)
	b.IRQ.detach(id)
	b.log.Debug("device detached", slog.String("device", b.slots[id].name), slog.Int("id", int(id)))
	b.slots[id] = boardSlot{}
}

func (b *Board) valid(id DeviceID) bool {
	return id >= 0 && int(id) < len(b.slots) && b.slots[id].device != nil
}

// Device resolves a handle. It returns nil for removed or unknown handles.
func (b *Board) Device(id DeviceID) Device {
	if !b.valid(id) {
		return nil
	}
	return b.slots[id].device
}

func (b *Board) Name(id DeviceID) string {
	if !b.valid(id) {
		return fmt.Sprintf("device#%d", id)
	}
	return b.slots[id].name
}

// Each visits the live devices in handle order.
func (b *Board) Each(fn func(DeviceID, Device)) {
	for i, s := range b.slots {
		if s.device != nil {
			fn(DeviceID(i), s.device)
		}
	}
}

// ResetAll resets every device. Bus registration is untouched.
func (b *Board) ResetAll() {
	b.Each(func(_ DeviceID, d Device) {
		d.Reset()
	})
}

// SyncRealTime pulls every device that must track wall-clock output
// (screen, audio) forward to t. It reports false when one of them could not
// get there.
func (b *Board) SyncRealTime(t uint64) bool {
	ok := true
	b.Each(func(_ DeviceID, d Device) {
		if d.NeedSyncWithRealTime() && d.Time() < t {
			if !d.SimulateTo(t) {
				ok = false
			}
		}
	})
	return ok
}
