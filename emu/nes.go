package emu

import (
	"nescore/emu/log"
	"nescore/hw"
	"nescore/hw/apu"
	"nescore/hw/hwdefs"
	"nescore/hw/input"
	"nescore/hw/mappers"
	"nescore/ines"
)

// stepLimit bounds the number of CPU instructions RunFrame executes while
// waiting for the PPU to complete a frame. A rom that disables rendering
// forever still yields (partial) frames instead of hanging the caller.
const stepLimit = 200000

type NES struct {
	CPU   *hw.CPU
	PPU   *hw.PPU
	APU   *apu.APU
	Rom   *ines.Rom
	Mixer *apu.Mixer

	Region hwdefs.Region
}

// PowerUp assembles and resets a console around rom. The audio sink may be
// nil for a silent instance.
func PowerUp(rom *ines.Rom, sink apu.AudioSink) (*NES, error) {
	mixer := apu.NewMixer(sink)
	ppu := hw.NewPPU()
	cpu := hw.NewCPU(ppu)
	sound := apu.New(cpu, mixer)
	cpu.APU = sound

	region := hwdefs.NTSC
	if rom.Region() == ines.PAL {
		region = hwdefs.PAL
	}
	cpu.SetRegion(region)
	ppu.SetRegion(region)
	sound.SetRegion(region)

	ppu.InitBus()
	ppu.CreateScreen()
	cpu.InitBus()

	if err := mappers.Load(rom, cpu, ppu); err != nil {
		return nil, err
	}

	nes := &NES{
		CPU:    cpu,
		PPU:    ppu,
		APU:    sound,
		Rom:    rom,
		Mixer:  mixer,
		Region: region,
	}
	nes.Reset(hwdefs.HardReset)
	return nes, nil
}

// SetRegion overrides the region derived from the rom header.
func (nes *NES) SetRegion(region hwdefs.Region) {
	nes.Region = region
	nes.CPU.SetRegion(region)
	nes.PPU.SetRegion(region)
	nes.APU.SetRegion(region)
}

// PlugInput connects the controller provider to the console's I/O ports.
func (nes *NES) PlugInput(provider *input.Provider) {
	nes.CPU.PlugInputDevice(provider)
}

func (nes *NES) Reset(soft bool) {
	nes.PPU.Reset()
	nes.APU.Reset(soft)
	nes.CPU.Reset(soft)
	nes.Mixer.Reset()
}

// RunFrame advances the whole system until the PPU completes the current
// frame (the 261->0 scanline transition), then returns the framebuffer.
// The CPU drives the pace: each instruction's cycles tick the PPU by 3
// dots per cycle and the APU by 1, and interrupts raised during the
// PPU/APU slices are serviced at the next instruction boundary. A jammed
// CPU (KIL opcode) no longer executes but the clock keeps running, so a
// frame still completes.
func (nes *NES) RunFrame() []uint32 {
	nes.PPU.ClearFrameComplete()

	for steps := 0; !nes.PPU.FrameComplete(); steps++ {
		if steps >= stepLimit {
			log.ModEmu.WarnZ("frame step limit exceeded, returning partial frame").
				Hex16("pc", nes.CPU.PC).
				End()
			break
		}
		if nes.CPU.StepInstruction() == 0 {
			nes.CPU.BurnCycle()
		}
	}

	nes.APU.EndFrame()
	return nes.PPU.Framebuffer()
}
