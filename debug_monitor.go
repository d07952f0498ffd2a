// debug_monitor.go - Machine Monitor console (registers, memory, breakpoints)

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

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bradleyjkemp/memviz"
	"golang.org/x/term"
)

const (
	monitorPrompt      = "> "
	monitorGoFrames    = 50
	monitorDumpLines   = 8
	monitorDisasmLines = 16
)

// MonitorCommand is a parsed command with name and arguments.
type MonitorCommand struct {
	Name string
	Args []string
}

// ParseCommand splits a raw input line into a command name and arguments.
func ParseCommand(input string) MonitorCommand {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return MonitorCommand{}
	}
	return MonitorCommand{
		Name: strings.ToLower(parts[0]),
		Args: parts[1:],
	}
}

// ParseAddress parses a monitor number in various formats:
// $hex, 0xhex, bare hex, #decimal
func ParseAddress(s string) (uint16, bool) {
	s = strings.TrimSpace(s)
	base := 16
	switch {
	case s == "":
		return 0, false
	case strings.HasPrefix(s, "#"):
		s, base = s[1:], 10
	case strings.HasPrefix(s, "$"):
		s = s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, base, 16)
	return uint16(v), err == nil
}

// EvalAddress evaluates <term> [+|- <term>]*, where a term is a register
// name or a number. Register names win, so "BC" is the register and "$BC"
// the number. Arithmetic wraps at 16 bits.
func EvalAddress(expr string, regs *Registers) (uint16, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, false
	}

	var result uint16
	op := byte('+')
	start := 0
	for i := 0; i <= len(expr); i++ {
		if i < len(expr) && (i == start || (expr[i] != '+' && expr[i] != '-')) {
			continue
		}
		tok := strings.TrimSpace(expr[start:i])
		val, ok := regs.Get(tok)
		if !ok {
			val, ok = ParseAddress(tok)
		}
		if !ok {
			return 0, false
		}
		if op == '+' {
			result += val
		} else {
			result -= val
		}
		if i < len(expr) {
			op = expr[i]
		}
		start = i + 1
	}
	return result, true
}

// MachineMonitor drives a Simulator from text commands. Output goes to out;
// Run adds an interactive line editor on top of Execute.
type MachineMonitor struct {
	sim *Simulator
	out io.Writer

	prevRegs map[string]uint16
	nextDump uint16
	nextDis  uint16
	done     bool
}

func NewMachineMonitor(sim *Simulator, out io.Writer) *MachineMonitor {
	m := &MachineMonitor{sim: sim, out: out, prevRegs: make(map[string]uint16)}
	m.saveCurrentRegs()
	m.nextDis = sim.GetPC()
	return m
}

func (m *MachineMonitor) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format+"\n", args...)
}

func (m *MachineMonitor) peek(addr uint16) byte {
	return m.sim.Board().Memory.Read(addr)
}

// Enter prints the banner and the machine state and clears a previous quit.
func (m *MachineMonitor) Enter() {
	m.done = false
	m.saveCurrentRegs()
	m.nextDis = m.sim.GetPC()
	m.printf("MACHINE MONITOR - Type ? for help")
	m.showRegisters()
	m.showDisassemblyAt(m.sim.GetPC(), 1)
}

// Done reports whether a quit command has been executed.
func (m *MachineMonitor) Done() bool { return m.done }

// Execute runs one command line and reports whether the monitor should
// exit.
func (m *MachineMonitor) Execute(input string) bool {
	cmd := ParseCommand(input)
	if cmd.Name == "" {
		return m.done
	}

	var err error
	switch cmd.Name {
	case "r":
		err = m.cmdRegisters(cmd)
	case "s":
		err = m.cmdStep(cmd)
	case "g":
		err = m.cmdGo(cmd)
	case "b":
		err = m.cmdBreakpointSet(cmd)
	case "bc":
		err = m.cmdBreakpointClear(cmd)
	case "bl":
		m.cmdBreakpointList()
	case "m":
		err = m.cmdMemoryDump(cmd)
	case "w":
		err = m.cmdWrite(cmd)
	case "d":
		err = m.cmdDisassemble(cmd)
	case "pc":
		err = m.cmdSetPC(cmd)
	case "reset":
		err = m.cmdReset(cmd)
	case "nmi":
		m.sim.TriggerNMI()
		m.printf("NMI pending")
	case "type":
		err = m.cmdType(input)
	case "sna":
		err = m.cmdSnapshot(cmd)
	case "dot":
		err = m.cmdDot(cmd)
	case "shot":
		err = m.cmdScreenshot(cmd)
	case "q", "x", "quit":
		m.done = true
	case "?", "help":
		m.cmdHelp()
	default:
		err = fmt.Errorf("unknown command: %s", cmd.Name)
	}
	if err != nil {
		m.printf("Error: %v", err)
	}
	return m.done
}

func (m *MachineMonitor) needArgs(cmd MonitorCommand, n int, usage string) error {
	if len(cmd.Args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func (m *MachineMonitor) address(arg string) (uint16, error) {
	regs := m.sim.Registers()
	v, ok := EvalAddress(arg, &regs)
	if !ok {
		return 0, fmt.Errorf("invalid address: %s", arg)
	}
	return v, nil
}

func (m *MachineMonitor) cmdRegisters(cmd MonitorCommand) error {
	if len(cmd.Args) >= 2 {
		val, ok := ParseAddress(cmd.Args[1])
		if !ok {
			return fmt.Errorf("invalid value: %s", cmd.Args[1])
		}
		if err := m.sim.SetRegister(cmd.Args[0], val); err != nil {
			return err
		}
		m.printf("%s = $%X", strings.ToUpper(cmd.Args[0]), val)
		m.saveCurrentRegs()
		return nil
	}
	m.showRegisters()
	return nil
}

func (m *MachineMonitor) showRegisters() {
	regs := m.sim.Registers()
	var sb strings.Builder
	col := 0
	for _, r := range z80RegisterInfo(&regs) {
		if r.BitWidth == 8 && r.Group == "general" {
			continue
		}
		mark := " "
		if prev, ok := m.prevRegs[r.Name]; ok && prev != r.Value {
			mark = "*"
		}
		if r.BitWidth == 8 {
			fmt.Fprintf(&sb, "%-4s   $%02X%s ", r.Name, r.Value, mark)
		} else {
			fmt.Fprintf(&sb, "%-4s $%04X%s ", r.Name, r.Value, mark)
		}
		if col++; col%6 == 0 {
			m.printf("%s", strings.TrimRight(sb.String(), " "))
			sb.Reset()
		}
	}
	if sb.Len() > 0 {
		m.printf("%s", strings.TrimRight(sb.String(), " "))
	}
	m.printf("Flags %s  T=%d", flagString(regs.F), m.sim.Time())
}

func flagString(f byte) string {
	const names = "SZYHXPNC"
	b := []byte(names)
	for i := range b {
		if f&(0x80>>i) == 0 {
			b[i] = '-'
		}
	}
	return string(b)
}

func (m *MachineMonitor) saveCurrentRegs() {
	regs := m.sim.Registers()
	for _, r := range z80RegisterInfo(&regs) {
		m.prevRegs[r.Name] = r.Value
	}
}

func (m *MachineMonitor) cmdStep(cmd MonitorCommand) error {
	count := 1
	if len(cmd.Args) >= 1 {
		v, ok := ParseAddress(cmd.Args[0])
		if !ok || v == 0 {
			return fmt.Errorf("invalid count: %s", cmd.Args[0])
		}
		count = int(v)
	}

	var cycles uint64
	for range count {
		out, err := m.sim.SimulateOne()
		if err != nil {
			return err
		}
		cycles += out.Cycles
		if out.Undefined {
			m.printf("Undefined opcode executed")
		}
	}
	m.printf("Step: %d instruction(s), %d cycle(s)", count, cycles)

	regs := m.sim.Registers()
	for _, r := range z80RegisterInfo(&regs) {
		if prev, ok := m.prevRegs[r.Name]; ok && prev != r.Value && r.Name != "R" {
			m.printf("  %s: $%X -> $%X", r.Name, prev, r.Value)
		}
	}
	m.saveCurrentRegs()
	m.showDisassemblyAt(m.sim.GetPC(), 1)
	return nil
}

// cmdGo runs for at most the given number of frames, stopping early on a
// breakpoint or fault. "g" with no arguments runs monitorGoFrames frames.
func (m *MachineMonitor) cmdGo(cmd MonitorCommand) error {
	frames := monitorGoFrames
	if len(cmd.Args) >= 1 {
		v, ok := ParseAddress(cmd.Args[0])
		if !ok {
			return fmt.Errorf("invalid frame count: %s", cmd.Args[0])
		}
		frames = int(v)
	}

	m.sim.Resume(false)
	err := m.sim.RunFrames(frames)
	stopped := !m.sim.Running()
	m.sim.Break()
	if err != nil {
		return err
	}

	pc := m.sim.GetPC()
	if stopped {
		m.printf("Breakpoint at $%04X", pc)
	} else {
		m.printf("Ran %d frame(s), PC=$%04X", frames, pc)
	}
	m.saveCurrentRegs()
	m.showDisassemblyAt(pc, 1)
	return nil
}

func (m *MachineMonitor) cmdBreakpointSet(cmd MonitorCommand) error {
	if err := m.needArgs(cmd, 1, "b <addr>"); err != nil {
		return err
	}
	addr, err := m.address(cmd.Args[0])
	if err != nil {
		return err
	}
	cookie, err := m.sim.AddBreakpoint(BreakpointCode, addr)
	if err != nil {
		return err
	}
	m.printf("Breakpoint %d set at $%04X", cookie, addr)
	return nil
}

func (m *MachineMonitor) cmdBreakpointClear(cmd MonitorCommand) error {
	if err := m.needArgs(cmd, 1, "bc <id>|*"); err != nil {
		return err
	}
	if cmd.Args[0] == "*" {
		m.sim.CPU().Breakpoints().Clear()
		m.printf("All breakpoints cleared")
		return nil
	}
	id, err := strconv.ParseUint(cmd.Args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid breakpoint id: %s", cmd.Args[0])
	}
	if err := m.sim.RemoveBreakpoint(BreakpointCookie(id)); err != nil {
		return err
	}
	m.printf("Breakpoint %d cleared", id)
	return nil
}

func (m *MachineMonitor) cmdBreakpointList() {
	list := m.sim.Breakpoints()
	if len(list) == 0 {
		m.printf("No breakpoints set")
		return
	}
	for _, bp := range list {
		m.printf("%3d  $%04X  %s", bp.Cookie, bp.Addr, bp.Kind)
	}
}

func (m *MachineMonitor) cmdMemoryDump(cmd MonitorCommand) error {
	addr := m.nextDump
	lines := monitorDumpLines
	if len(cmd.Args) >= 1 {
		v, err := m.address(cmd.Args[0])
		if err != nil {
			return err
		}
		addr = v
	}
	if len(cmd.Args) >= 2 {
		v, ok := ParseAddress(cmd.Args[1])
		if !ok {
			return fmt.Errorf("invalid line count: %s", cmd.Args[1])
		}
		lines = int(v)
	}

	data := make([]byte, 16)
	for range lines {
		m.sim.ReadMemoryBus(addr, data)
		hexParts := make([]string, 16)
		ascii := make([]byte, 16)
		for j, b := range data {
			hexParts[j] = fmt.Sprintf("%02X", b)
			ascii[j] = '.'
			if b >= 0x20 && b < 0x7F {
				ascii[j] = b
			}
		}
		hexStr := strings.Join(hexParts[:8], " ") + "  " + strings.Join(hexParts[8:], " ")
		m.printf("%04X: %s  %s", addr, hexStr, ascii)
		addr += 16
	}
	m.nextDump = addr
	return nil
}

func (m *MachineMonitor) cmdWrite(cmd MonitorCommand) error {
	if err := m.needArgs(cmd, 2, "w <addr> <byte> [byte...]"); err != nil {
		return err
	}
	addr, err := m.address(cmd.Args[0])
	if err != nil {
		return err
	}
	data := make([]byte, 0, len(cmd.Args)-1)
	for _, arg := range cmd.Args[1:] {
		v, ok := ParseAddress(arg)
		if !ok || v > 0xFF {
			return fmt.Errorf("invalid byte: %s", arg)
		}
		data = append(data, byte(v))
	}
	m.sim.WriteMemoryBus(addr, data)
	m.printf("Wrote %d byte(s) at $%04X", len(data), addr)
	return nil
}

func (m *MachineMonitor) cmdDisassemble(cmd MonitorCommand) error {
	addr := m.nextDis
	count := monitorDisasmLines
	if len(cmd.Args) >= 1 {
		v, err := m.address(cmd.Args[0])
		if err != nil {
			return err
		}
		addr = v
	}
	if len(cmd.Args) >= 2 {
		v, ok := ParseAddress(cmd.Args[1])
		if !ok {
			return fmt.Errorf("invalid count: %s", cmd.Args[1])
		}
		count = int(v)
	}
	m.nextDis = m.showDisassemblyAt(addr, count)
	return nil
}

// showDisassemblyAt prints count lines from addr and returns the address
// after the last one.
func (m *MachineMonitor) showDisassemblyAt(addr uint16, count int) uint16 {
	lines := disassembleZ80(m.peek, addr, count, m.sim.GetPC())
	bps := m.sim.CPU().Breakpoints()

	for _, line := range lines {
		prefix := "  "
		switch {
		case line.IsPC:
			prefix = "> "
		case len(bps.At(line.Address)) > 0:
			prefix = "* "
		}
		suffix := ""
		if line.IsBranch && line.BranchTarget < line.Address {
			suffix = " <- LOOP"
		}
		m.printf("%s%04X: %-12s %s%s", prefix, line.Address, line.HexBytes, line.Mnemonic, suffix)
		addr = line.Address + uint16(line.Size)
	}
	return addr
}

func (m *MachineMonitor) cmdSetPC(cmd MonitorCommand) error {
	if err := m.needArgs(cmd, 1, "pc <addr>"); err != nil {
		return err
	}
	addr, err := m.address(cmd.Args[0])
	if err != nil {
		return err
	}
	m.sim.SetPC(addr)
	m.nextDis = addr
	m.printf("PC = $%04X", addr)
	return nil
}

func (m *MachineMonitor) cmdReset(cmd MonitorCommand) error {
	var start uint16
	if len(cmd.Args) > 0 {
		addr, err := m.address(cmd.Args[0])
		if err != nil {
			return err
		}
		start = addr
	}
	m.sim.Reset(start)
	m.nextDis = start
	m.printf("Reset, PC=$%04X", start)
	return nil
}

// cmdType queues the rest of the line, verbatim, for the key typer. A
// trailing "\n" becomes ENTER.
func (m *MachineMonitor) cmdType(input string) error {
	_, text, ok := strings.Cut(strings.TrimLeft(input, " \t"), " ")
	if !ok || text == "" {
		return errors.New("usage: type <text>")
	}
	text = strings.ReplaceAll(text, `\n`, "\n")
	skipped := m.sim.TypeText(text)
	m.printf("Queued %d character(s), %d skipped", len([]rune(text))-skipped, skipped)
	return nil
}

func (m *MachineMonitor) cmdSnapshot(cmd MonitorCommand) error {
	if err := m.needArgs(cmd, 1, "sna <file>"); err != nil {
		return err
	}
	if err := m.sim.LoadSnapshot(cmd.Args[0]); err != nil {
		return err
	}
	m.saveCurrentRegs()
	m.nextDis = m.sim.GetPC()
	m.printf("Loaded %s, PC=$%04X", cmd.Args[0], m.sim.GetPC())
	return nil
}

// cmdDot writes a Graphviz description of the register file and breakpoint
// table.
func (m *MachineMonitor) cmdDot(cmd MonitorCommand) error {
	if err := m.needArgs(cmd, 1, "dot <file>"); err != nil {
		return err
	}
	f, err := os.Create(cmd.Args[0])
	if err != nil {
		return err
	}
	regs := m.sim.Registers()
	bps := m.sim.Breakpoints()
	memviz.Map(f, &regs, &bps)
	if err := f.Close(); err != nil {
		return err
	}
	m.printf("Wrote %s", cmd.Args[0])
	return nil
}

func (m *MachineMonitor) cmdScreenshot(cmd MonitorCommand) error {
	if err := m.needArgs(cmd, 1, "shot <file.png>"); err != nil {
		return err
	}
	if err := SaveScreenshot(cmd.Args[0], m.sim.GetScreenData(nil)); err != nil {
		return err
	}
	m.printf("Wrote %s", cmd.Args[0])
	return nil
}

var monitorHelp = []string{
	"r [reg value]      show or set registers",
	"s [n]              step n instructions",
	"g [frames]         run, stopping at breakpoints",
	"b <addr>           set breakpoint",
	"bc <id>|*          clear breakpoint(s)",
	"bl                 list breakpoints",
	"m [addr] [lines]   dump memory",
	"w <addr> <bytes>   write memory",
	"d [addr] [count]   disassemble",
	"pc <addr>          set PC",
	"reset [addr]       reset the machine, starting at addr",
	"nmi                raise an NMI",
	"type <text>        type text on the keyboard",
	"sna <file>         load a .sna snapshot",
	"dot <file>         write a register graph",
	"shot <file.png>    save the screen",
	"q                  quit",
}

func (m *MachineMonitor) cmdHelp() {
	for _, line := range monitorHelp {
		m.printf("%s", line)
	}
}

// Run reads commands from in until quit or EOF. When in is a terminal it is
// put into raw mode and x/term provides line editing and history.
func (m *MachineMonitor) Run(in *os.File) error {
	m.Enter()

	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return m.runLines(in)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("monitor: raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, m.out}, monitorPrompt)
	saved := m.out
	m.out = t
	defer func() { m.out = saved }()

	for !m.done {
		line, err := t.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		m.Execute(line)
	}
	return nil
}

func (m *MachineMonitor) runLines(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for !m.done && scanner.Scan() {
		m.Execute(scanner.Text())
	}
	return scanner.Err()
}

