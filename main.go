// main.go - Command line entry point for IntuitionSpectrum

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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// CLI holds the flags shared by every command. It is bound into each
// command's Run method.
type CLI struct {
	ROM       string `name:"rom" type:"existingfile" required:"" help:"ROM image (16K for 48k, 32K for 128k)"`
	Model     string `name:"model" default:"48k" enum:"48k,128k" help:"Machine model"`
	LogLevel  string `name:"log-level" default:"warn" help:"debug, info, warn or error"`
	Snapshot  string `name:"sna" type:"existingfile" help:"48K .sna snapshot to load after reset"`
	Tape      string `name:"tape" type:"existingfile" help:".wav or .mp3 tape to insert"`
	Statsview bool   `name:"statsview" help:"Serve runtime statistics (needs -tags statsview)"`

	Run     runCmd     `cmd default:"1" help:"Run the machine in a window"`
	Monitor monitorCmd `cmd help:"Start the machine monitor on the terminal"`
	Script  scriptCmd  `cmd help:"Run a Lua script against the machine"`
	Disasm  disasmCmd  `cmd help:"Disassemble memory after loading"`
}

func boilerPlate(w io.Writer) {
	fmt.Fprintln(w, "\nIntuitionSpectrum - a cycle-timed ZX Spectrum 48K/128K")
	fmt.Fprintln(w, "(c) 2024 - 2026 Zayn Otley")
	fmt.Fprintln(w, "License: GPLv3 or later")
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("intuitionspectrum"),
		kong.Description("Cycle-timed ZX Spectrum simulator"))
	ctx.FatalIfErrorf(ctx.Run(&cli))
}

// machine builds a simulator from the shared flags, loads media and returns
// it stopped.
func (c *CLI) machine(sink AudioSink, sampleRate int) (*Simulator, *slog.Logger, error) {
	level, err := parseLogLevel(c.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(level, os.Stderr)

	if c.Statsview {
		if !statsviewAvailable() {
			return nil, nil, errors.New("statsview: rebuild with -tags statsview")
		}
		launchStatsview(os.Stderr)
	}

	model, err := ParseMemoryModel(c.Model)
	if err != nil {
		return nil, nil, err
	}
	sim, err := NewSimulator(SimulatorConfig{
		Model:      model,
		ROMPath:    c.ROM,
		SampleRate: sampleRate,
		AudioSink:  sink,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}
	sim.Reset(0)

	if c.Snapshot != "" {
		if err := sim.LoadSnapshot(c.Snapshot); err != nil {
			return nil, nil, err
		}
	}
	if c.Tape != "" {
		if err := sim.LoadTape(c.Tape); err != nil {
			return nil, nil, err
		}
	}
	return sim, logger, nil
}

type runCmd struct {
	Headless   bool   `name:"headless" help:"Run without a window or sound device"`
	Frames     int    `name:"frames" help:"Stop after this many frames (0 runs until closed)"`
	RecordWAV  string `name:"record-wav" help:"Record the beeper to a WAV file"`
	Screenshot string `name:"screenshot" help:"Save the last frame as PNG on exit"`
	Type       string `name:"type" help:"Text to type once the machine starts"`
	Scale      int    `name:"scale" default:"2" help:"Window scale 1-4"`
	Fullscreen bool   `name:"fullscreen" help:"Start fullscreen"`
}

func (r *runCmd) Run(cli *CLI) error {
	if r.Headless && r.Frames == 0 {
		return errors.New("--headless needs --frames")
	}

	var sinks multiSink
	var recorder *WavRecorder
	if !r.Headless {
		queue := NewAudioQueue(DEFAULT_AUDIO_QUEUE_DEPTH)
		speaker, err := NewSpeakerOutput(BEEPER_SAMPLE_RATE, queue)
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		speaker.Play()
		defer speaker.Close()
		sinks = append(sinks, queue)
	}

	sim, logger, err := cli.machine(nil, BEEPER_SAMPLE_RATE)
	if err != nil {
		return err
	}
	if r.RecordWAV != "" {
		recorder = NewWavRecorder(r.RecordWAV, BEEPER_SAMPLE_RATE, logger)
		sinks = append(sinks, recorder)
	}
	if len(sinks) > 0 {
		sim.Beeper().SetSink(sinks)
	}

	if cli.Tape != "" {
		if err := sim.PlayTape(); err != nil {
			return err
		}
	}
	if r.Type != "" {
		sim.TypeText(r.Type)
	}

	backend := VIDEO_BACKEND_EBITEN
	if r.Headless {
		backend = VIDEO_BACKEND_HEADLESS
	}
	out, err := NewVideoOutput(backend)
	if err != nil {
		return err
	}
	cfg := DefaultDisplayConfig()
	cfg.Scale = r.Scale
	cfg.Fullscreen = r.Fullscreen
	if err := out.SetDisplayConfig(cfg); err != nil {
		return err
	}

	host := NewSimulatorHost(sim, r.Frames, logger)
	sim.Resume(true)
	runErr := out.Run(host)

	if err := sim.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if recorder != nil {
		if err := recorder.Close(); err != nil && runErr == nil {
			runErr = err
		}
	}
	if r.Screenshot != "" {
		if err := SaveScreenshot(r.Screenshot, host.Frame()); err != nil && runErr == nil {
			runErr = err
		}
	}
	logger.Info("stopped", slog.Uint64("frames", host.FrameNumber()), slog.Uint64("time", sim.Time()))
	return runErr
}

type monitorCmd struct{}

func (m *monitorCmd) Run(cli *CLI) error {
	boilerPlate(os.Stdout)
	sim, _, err := cli.machine(nil, 0)
	if err != nil {
		return err
	}
	defer sim.Close()
	return NewMachineMonitor(sim, os.Stdout).Run(os.Stdin)
}

type scriptCmd struct {
	Path string `arg:"" type:"existingfile" help:"Lua script"`
}

func (s *scriptCmd) Run(cli *CLI) error {
	sim, logger, err := cli.machine(nil, 0)
	if err != nil {
		return err
	}
	defer sim.Close()
	engine := NewScriptEngine(sim, os.Stdout, logger)
	defer engine.Close()
	return engine.RunFile(s.Path)
}

type disasmCmd struct {
	Start string `name:"start" default:"0000" help:"Start address (hex)"`
	Count int    `name:"count" default:"32" help:"Number of instructions"`
}

func (d *disasmCmd) Run(cli *CLI) error {
	sim, _, err := cli.machine(nil, 0)
	if err != nil {
		return err
	}
	defer sim.Close()
	start, ok := ParseAddress(d.Start)
	if !ok {
		return fmt.Errorf("invalid start address %q", d.Start)
	}
	read := sim.Board().Memory.Read
	for _, line := range disassembleZ80(read, start, d.Count, sim.GetPC()) {
		fmt.Printf("%04X: %-12s %s\n", line.Address, line.HexBytes, line.Mnemonic)
	}
	return nil
}
