// cpu_z80_breakpoints.go - Code breakpoints keyed by address

package main

import (
	"fmt"
	"sort"
)

type BreakpointKind int

const (
	BreakpointCode BreakpointKind = iota
	BreakpointData
)

func (k BreakpointKind) String() string {
	switch k {
	case BreakpointCode:
		return "code"
	case BreakpointData:
		return "data"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// BreakpointCookie identifies one breakpoint. Several cookies may share an
// address. Zero is never issued.
type BreakpointCookie uint32

type Breakpoint struct {
	Cookie BreakpointCookie
	Kind   BreakpointKind
	Addr   uint16
}

type BreakpointTable struct {
	byAddr   map[uint16][]BreakpointCookie
	byCookie map[BreakpointCookie]Breakpoint
	next     BreakpointCookie
}

func NewBreakpointTable() *BreakpointTable {
	return &BreakpointTable{
		byAddr:   make(map[uint16][]BreakpointCookie),
		byCookie: make(map[BreakpointCookie]Breakpoint),
		next:     1,
	}
}

// Add registers a code breakpoint. Data breakpoints are not supported.
func (t *BreakpointTable) Add(kind BreakpointKind, addr uint16) (BreakpointCookie, error) {
	if kind != BreakpointCode {
		return 0, fmt.Errorf("%s breakpoint at 0x%04X: %w", kind, addr, ErrNotImplemented)
	}
	cookie := t.next
	t.next++
	t.byAddr[addr] = append(t.byAddr[addr], cookie)
	t.byCookie[cookie] = Breakpoint{Cookie: cookie, Kind: kind, Addr: addr}
	return cookie, nil
}

func (t *BreakpointTable) Remove(cookie BreakpointCookie) error {
	bp, ok := t.byCookie[cookie]
	if !ok {
		return fmt.Errorf("breakpoint %d: %w", cookie, ErrUnknownBreakpoint)
	}
	delete(t.byCookie, cookie)
	list := t.byAddr[bp.Addr]
	for i, c := range list {
		if c == cookie {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(t.byAddr, bp.Addr)
	} else {
		t.byAddr[bp.Addr] = list
	}
	return nil
}

// At returns a copy of the cookies set on addr.
func (t *BreakpointTable) At(addr uint16) []BreakpointCookie {
	list := t.byAddr[addr]
	if len(list) == 0 {
		return nil
	}
	return append([]BreakpointCookie(nil), list...)
}

// List returns every breakpoint ordered by cookie.
func (t *BreakpointTable) List() []Breakpoint {
	out := make([]Breakpoint, 0, len(t.byCookie))
	for _, bp := range t.byCookie {
		out = append(out, bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cookie < out[j].Cookie })
	return out
}

func (t *BreakpointTable) Clear() {
	clear(t.byAddr)
	clear(t.byCookie)
}
