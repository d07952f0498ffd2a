package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestROM stores a ROM of NOPs followed by code and returns its path.
func writeTestROM(t *testing.T, model MemoryModel, code ...byte) string {
	t.Helper()
	image := make([]byte, model.ROMSize())
	copy(image, code)
	path := filepath.Join(t.TempDir(), "test.rom")
	require.NoError(t, os.WriteFile(path, image, 0o644))
	return path
}

func parseCLI(t *testing.T, args ...string) (*CLI, *kong.Context, error) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Name("intuitionspectrum"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	return cli, ctx, err
}

func TestCLIDefaults(t *testing.T) {
	rom := writeTestROM(t, Model48K)
	cli, ctx, err := parseCLI(t, "--rom", rom)
	require.NoError(t, err)
	assert.Equal(t, "run", ctx.Command())
	assert.Equal(t, "48k", cli.Model)
	assert.Equal(t, "warn", cli.LogLevel)
	assert.Equal(t, 2, cli.Run.Scale)
	assert.False(t, cli.Run.Headless)
}

func TestCLIRejectsBadArguments(t *testing.T) {
	_, _, err := parseCLI(t)
	assert.Error(t, err, "rom is required")

	_, _, err = parseCLI(t, "--rom", filepath.Join(t.TempDir(), "missing.rom"))
	assert.Error(t, err)

	rom := writeTestROM(t, Model48K)
	_, _, err = parseCLI(t, "--rom", rom, "--model", "64k")
	assert.Error(t, err)
}

func TestCLIMachineLoadsMedia(t *testing.T) {
	rom := writeTestROM(t, Model48K)
	sna := filepath.Join(t.TempDir(), "game.sna")
	require.NoError(t, os.WriteFile(sna, testSNA(), 0o644))

	cli, _, err := parseCLI(t, "--rom", rom, "--sna", sna, "--log-level", "error", "disasm")
	require.NoError(t, err)
	sim, logger, err := cli.machine(nil, 0)
	require.NoError(t, err)
	defer sim.Close()
	assert.NotNil(t, logger)
	assert.False(t, sim.Running())
	assert.Equal(t, uint16(0x1234), sim.GetPC())

	cli.LogLevel = "loud"
	_, _, err = cli.machine(nil, 0)
	assert.Error(t, err)
}

func TestRunCommandHeadless(t *testing.T) {
	rom := writeTestROM(t, Model48K)
	dir := t.TempDir()
	shot := filepath.Join(dir, "last.png")
	wav := filepath.Join(dir, "beeper.wav")

	cli, ctx, err := parseCLI(t, "--rom", rom, "--log-level", "error",
		"run", "--headless", "--frames", "2", "--screenshot", shot, "--record-wav", wav)
	require.NoError(t, err)
	require.NoError(t, ctx.Run(cli))

	assert.FileExists(t, shot)
	assert.FileExists(t, wav)
}

func TestRunCommandHeadlessNeedsFrameLimit(t *testing.T) {
	rom := writeTestROM(t, Model48K)
	cli, ctx, err := parseCLI(t, "--rom", rom, "run", "--headless")
	require.NoError(t, err)
	assert.Error(t, ctx.Run(cli))
}

func TestDisasmCommand(t *testing.T) {
	rom := writeTestROM(t, Model48K, 0x3E, 0x05, 0x76)
	cli, ctx, err := parseCLI(t, "--rom", rom, "--log-level", "error", "disasm", "--count", "2")
	require.NoError(t, err)
	assert.Equal(t, "disasm", ctx.Command())
	require.NoError(t, ctx.Run(cli))

	cli, ctx, err = parseCLI(t, "--rom", rom, "disasm", "--start", "zz")
	require.NoError(t, err)
	assert.Error(t, ctx.Run(cli))
}

func TestScriptCommand(t *testing.T) {
	rom := writeTestROM(t, Model48K)
	script := filepath.Join(t.TempDir(), "boot.lua")
	require.NoError(t, os.WriteFile(script, []byte("step(1)\n"), 0o644))

	cli, ctx, err := parseCLI(t, "--rom", rom, "--log-level", "error", "script", script)
	require.NoError(t, err)
	assert.Equal(t, "script <path>", ctx.Command())
	require.NoError(t, ctx.Run(cli))
}
