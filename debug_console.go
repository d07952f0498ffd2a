// debug_console.go - Scrollback and line editor behind the in-window monitor

package main

// MonitorConsole wraps a MachineMonitor with the state an on-screen monitor
// needs: a bounded scrollback that the monitor writes into, an editable input
// line and a command history. It is driven from the display goroutine only.
type MonitorConsole struct {
	sim     *Simulator
	monitor *MachineMonitor

	lines    []string
	partial  []byte
	maxLines int
	scroll   int

	input      []byte
	cursor     int
	maxInput   int
	history    []string
	historyIdx int

	active     bool
	wasRunning bool
}

func NewMonitorConsole(sim *Simulator, maxLines, maxInput int) *MonitorConsole {
	c := &MonitorConsole{sim: sim, maxLines: max(maxLines, 1), maxInput: max(maxInput, 1)}
	c.monitor = NewMachineMonitor(sim, c)
	return c
}

// Write collects monitor output into whole lines.
func (c *MonitorConsole) Write(p []byte) (int, error) {
	for _, b := range p {
		switch b {
		case '\n':
			c.pushLine(string(c.partial))
			c.partial = c.partial[:0]
		case '\r':
		default:
			c.partial = append(c.partial, b)
		}
	}
	return len(p), nil
}

func (c *MonitorConsole) pushLine(s string) {
	c.lines = append(c.lines, s)
	if over := len(c.lines) - c.maxLines; over > 0 {
		c.lines = append(c.lines[:0], c.lines[over:]...)
	}
}

func (c *MonitorConsole) Active() bool { return c.active }

// Open stops the machine and shows the monitor banner. The machine resumes
// on Close if it was running.
func (c *MonitorConsole) Open() {
	if c.active {
		return
	}
	c.active = true
	c.wasRunning = c.sim.Running()
	c.sim.Break()
	c.scroll = 0
	c.monitor.Enter()
}

func (c *MonitorConsole) Close() {
	if !c.active {
		return
	}
	c.active = false
	c.input = c.input[:0]
	c.cursor = 0
	if c.wasRunning {
		c.sim.Resume(false)
	}
}

// Submit executes the input line and reports whether the console closed.
func (c *MonitorConsole) Submit() bool {
	line := string(c.input)
	c.pushLine(monitorPrompt + line)
	if line != "" {
		c.history = append(c.history, line)
	}
	c.historyIdx = len(c.history)
	c.input = c.input[:0]
	c.cursor = 0
	c.scroll = 0

	if c.monitor.Execute(line) {
		c.Close()
		return true
	}
	return false
}

func (c *MonitorConsole) InsertChar(ch byte) {
	if ch < 0x20 || ch >= 0x7F || len(c.input) >= c.maxInput {
		return
	}
	c.input = append(c.input, 0)
	copy(c.input[c.cursor+1:], c.input[c.cursor:])
	c.input[c.cursor] = ch
	c.cursor++
}

func (c *MonitorConsole) Backspace() {
	if c.cursor == 0 {
		return
	}
	c.input = append(c.input[:c.cursor-1], c.input[c.cursor:]...)
	c.cursor--
}

func (c *MonitorConsole) CursorLeft() {
	if c.cursor > 0 {
		c.cursor--
	}
}

func (c *MonitorConsole) CursorRight() {
	if c.cursor < len(c.input) {
		c.cursor++
	}
}

func (c *MonitorConsole) HistoryUp() {
	if c.historyIdx == 0 {
		return
	}
	c.historyIdx--
	c.setInput(c.history[c.historyIdx])
}

func (c *MonitorConsole) HistoryDown() {
	if c.historyIdx < len(c.history)-1 {
		c.historyIdx++
		c.setInput(c.history[c.historyIdx])
		return
	}
	c.historyIdx = len(c.history)
	c.setInput("")
}

func (c *MonitorConsole) setInput(s string) {
	c.input = append(c.input[:0], s...)
	c.cursor = len(c.input)
}

// Scroll moves the view back (positive) or forward (negative) through the
// scrollback, keeping at least one page visible.
func (c *MonitorConsole) Scroll(delta, page int) {
	c.scroll = min(max(c.scroll+delta, 0), max(len(c.lines)-page, 0))
}

// Visible returns up to rows lines of scrollback ending at the scroll
// position.
func (c *MonitorConsole) Visible(rows int) []string {
	end := len(c.lines) - c.scroll
	start := max(end-rows, 0)
	return c.lines[start:end]
}

func (c *MonitorConsole) Input() string { return string(c.input) }

func (c *MonitorConsole) Cursor() int { return c.cursor }
