// script_lua.go - Lua automation of a running simulator

/*
Scripts see a flat set of globals:

	peek(addr)            -> byte          poke(addr, byte)
	pc()                  -> addr          setpc(addr)
	reg(name)             -> value         setreg(name, value)
	step([n])             -> T-states      frames(n) -> pc
	breakpoint(addr)      -> id            clear(id)
	type(text)            -> skipped       key_down(key) / key_up(key)
	time()                -> T-states      running() -> bool
	reset([addr])         nmi()            screenshot(path)
	log(...)

A key is a VirtualKey number or a name: a single letter or digit, "enter",
"space", "shift", "symbol", "backspace", "left", "right", "up", "down".
frames() stops early at a breakpoint; running() tells the two apart.
*/

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

type ScriptEngine struct {
	sim *Simulator
	L   *lua.LState
	out io.Writer
	log *slog.Logger
}

func NewScriptEngine(sim *Simulator, out io.Writer, logger *slog.Logger) *ScriptEngine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &ScriptEngine{sim: sim, L: lua.NewState(), out: out, log: logger}
	e.register()
	return e
}

func (e *ScriptEngine) Close() { e.L.Close() }

// RunFile executes a script file to completion.
func (e *ScriptEngine) RunFile(path string) error {
	if err := e.L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

func (e *ScriptEngine) RunString(src string) error {
	if err := e.L.DoString(src); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

func (e *ScriptEngine) register() {
	funcs := map[string]lua.LGFunction{
		"peek":       e.luaPeek,
		"poke":       e.luaPoke,
		"pc":         e.luaPC,
		"setpc":      e.luaSetPC,
		"reg":        e.luaReg,
		"setreg":     e.luaSetReg,
		"step":       e.luaStep,
		"frames":     e.luaFrames,
		"breakpoint": e.luaBreakpoint,
		"clear":      e.luaClear,
		"type":       e.luaType,
		"key_down":   e.luaKeyDown,
		"key_up":     e.luaKeyUp,
		"time":       e.luaTime,
		"running":    e.luaRunning,
		"reset":      e.luaReset,
		"nmi":        e.luaNMI,
		"screenshot": e.luaScreenshot,
		"log":        e.luaLog,
	}
	for name, fn := range funcs {
		e.L.SetGlobal(name, e.L.NewFunction(fn))
	}
}

func checkAddr(L *lua.LState, n int) uint16 {
	v := L.CheckInt(n)
	if v < 0 || v > 0xFFFF {
		L.ArgError(n, "address out of range")
	}
	return uint16(v)
}

func (e *ScriptEngine) luaPeek(L *lua.LState) int {
	buf := make([]byte, 1)
	e.sim.ReadMemoryBus(checkAddr(L, 1), buf)
	L.Push(lua.LNumber(buf[0]))
	return 1
}

func (e *ScriptEngine) luaPoke(L *lua.LState) int {
	addr := checkAddr(L, 1)
	v := L.CheckInt(2)
	if v < 0 || v > 0xFF {
		L.ArgError(2, "byte out of range")
	}
	e.sim.WriteMemoryBus(addr, []byte{byte(v)})
	return 0
}

func (e *ScriptEngine) luaPC(L *lua.LState) int {
	L.Push(lua.LNumber(e.sim.GetPC()))
	return 1
}

func (e *ScriptEngine) luaSetPC(L *lua.LState) int {
	e.sim.SetPC(checkAddr(L, 1))
	return 0
}

func (e *ScriptEngine) luaReg(L *lua.LState) int {
	regs := e.sim.Registers()
	v, ok := regs.Get(L.CheckString(1))
	if !ok {
		L.ArgError(1, "unknown register")
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (e *ScriptEngine) luaSetReg(L *lua.LState) int {
	if err := e.sim.SetRegister(L.CheckString(1), checkAddr(L, 2)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (e *ScriptEngine) luaStep(L *lua.LState) int {
	n := L.OptInt(1, 1)
	var cycles uint64
	for range n {
		out, err := e.sim.SimulateOne()
		if err != nil {
			L.RaiseError("step at 0x%04X: %v", e.sim.GetPC(), err)
		}
		cycles += out.Cycles
	}
	L.Push(lua.LNumber(cycles))
	return 1
}

func (e *ScriptEngine) luaFrames(L *lua.LState) int {
	if err := e.sim.RunFrames(L.CheckInt(1)); err != nil {
		L.RaiseError("frames: %v", err)
	}
	L.Push(lua.LNumber(e.sim.GetPC()))
	return 1
}

func (e *ScriptEngine) luaBreakpoint(L *lua.LState) int {
	cookie, err := e.sim.AddBreakpoint(BreakpointCode, checkAddr(L, 1))
	if err != nil {
		L.RaiseError("%v", err)
	}
	L.Push(lua.LNumber(cookie))
	return 1
}

func (e *ScriptEngine) luaClear(L *lua.LState) int {
	if err := e.sim.RemoveBreakpoint(BreakpointCookie(L.CheckInt(1))); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (e *ScriptEngine) luaType(L *lua.LState) int {
	L.Push(lua.LNumber(e.sim.TypeText(L.CheckString(1))))
	return 1
}

var scriptKeyNames = map[string]VirtualKey{
	"enter":     VK_RETURN,
	"space":     VK_SPACE,
	"shift":     VK_SHIFT,
	"symbol":    VK_CONTROL,
	"backspace": VK_BACK,
	"left":      VK_LEFT,
	"right":     VK_RIGHT,
	"up":        VK_UP,
	"down":      VK_DOWN,
}

// luaKey reads a VirtualKey argument given as a number or a name.
func luaKey(L *lua.LState, n int) VirtualKey {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		return VirtualKey(v)
	case lua.LString:
		name := strings.ToLower(string(v))
		if vk, ok := scriptKeyNames[name]; ok {
			return vk
		}
		if len(name) == 1 {
			switch c := name[0]; {
			case c >= 'a' && c <= 'z':
				return VK_A + VirtualKey(c-'a')
			case c >= '0' && c <= '9':
				return VK_0 + VirtualKey(c-'0')
			}
		}
	}
	L.ArgError(n, "unknown key")
	return 0
}

func (e *ScriptEngine) luaKeyDown(L *lua.LState) int {
	L.Push(lua.LBool(e.sim.ProcessKeyDown(luaKey(L, 1), 0)))
	return 1
}

func (e *ScriptEngine) luaKeyUp(L *lua.LState) int {
	L.Push(lua.LBool(e.sim.ProcessKeyUp(luaKey(L, 1), 0)))
	return 1
}

func (e *ScriptEngine) luaTime(L *lua.LState) int {
	L.Push(lua.LNumber(e.sim.Time()))
	return 1
}

func (e *ScriptEngine) luaRunning(L *lua.LState) int {
	L.Push(lua.LBool(e.sim.Running()))
	return 1
}

func (e *ScriptEngine) luaReset(L *lua.LState) int {
	var start uint16
	if L.GetTop() > 0 {
		start = checkAddr(L, 1)
	}
	e.sim.Reset(start)
	return 0
}

func (e *ScriptEngine) luaNMI(L *lua.LState) int {
	e.sim.TriggerNMI()
	return 0
}

func (e *ScriptEngine) luaScreenshot(L *lua.LState) int {
	if err := SaveScreenshot(L.CheckString(1), e.sim.GetScreenData(nil)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (e *ScriptEngine) luaLog(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	msg := strings.Join(parts, " ")
	e.log.Info("script", slog.String("msg", msg))
	if e.out != nil {
		fmt.Fprintln(e.out, msg)
	}
	return 0
}
