package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"nescore/debug"
	"nescore/emu"
	"nescore/ines"
)

var version = "devel"

type runCmd struct {
	Rom     string `arg:"" help:"Path to the iNES rom." type:"existingfile"`
	Frames  int    `help:"Number of frames to emulate (0 = run forever)." default:"0"`
	Trace   string `help:"Write an execution trace to a file ('-' for stdout). Very verbose." placeholder:"FILE"`
	Debug   string `help:"Serve machine state as JSON on this address." placeholder:"ADDR"`
	Capture string `help:"Save the last frame as a PNG." placeholder:"FILE"`
}

func (cmd *runCmd) Run(cfg *emu.Config) error {
	rom, err := ines.ReadRom(cmd.Rom)
	if err != nil {
		return fmt.Errorf("failed to open rom: %w", err)
	}

	e, err := emu.New(rom, cfg)
	if err != nil {
		return err
	}

	if cmd.Trace != "" {
		w := os.Stdout
		if cmd.Trace != "-" {
			f, err := os.Create(cmd.Trace)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		e.NES.CPU.SetTraceOutput(w)
	}

	if cmd.Debug != "" {
		srv := debug.NewServer(e.NES, cmd.Debug)
		srv.Start()
	}

	if cmd.Frames > 0 {
		e.RunFrames(cmd.Frames)
	} else {
		e.Run()
	}

	if cmd.Capture != "" {
		return emu.SaveAsPNG(e.NES.PPU.Framebuffer(), cmd.Capture)
	}
	return nil
}

type romInfosCmd struct {
	Rom string `arg:"" help:"Path to the iNES rom." type:"existingfile"`
}

func (cmd *romInfosCmd) Run(cfg *emu.Config) error {
	rom, err := ines.ReadRom(cmd.Rom)
	if err != nil {
		return fmt.Errorf("failed to open rom: %w", err)
	}
	rom.PrintInfos(os.Stdout)
	return nil
}

type versionCmd struct{}

func (cmd *versionCmd) Run(cfg *emu.Config) error {
	fmt.Println("nescore", version)
	return nil
}

var cli struct {
	Run      runCmd      `cmd:"" help:"Emulate a rom (headless)."`
	RomInfos romInfosCmd `cmd:"" name:"rom-infos" help:"Print informations about a rom file."`
	Version  versionCmd  `cmd:"" help:"Print version and exit."`

	Log []string `help:"Enable logging for the given modules (cpu,ppu,apu,dma,mapper,bus,hwio,input,emu or all)." short:"l"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("nescore"),
		kong.Description("A cycle-accurate NES emulation core."),
		kong.UsageOnError(),
	)

	cfg, err := emu.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(1)
	}
	if len(cli.Log) > 0 {
		cfg.LogModules = cli.Log
	}
	cfg.Apply()

	ctx.FatalIfErrorf(ctx.Run(cfg))
}
