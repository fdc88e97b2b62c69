package emu

import (
	"fmt"
	"sync/atomic"

	"nescore/emu/log"
	"nescore/hw"
	"nescore/hw/hwdefs"
	"nescore/hw/input"
	"nescore/ines"
)

// A VideoSink receives completed 256x240 ARGB frames. BeginFrame hands the
// emulator the buffer to render into; EndFrame publishes it.
type VideoSink interface {
	BeginFrame() []uint32
	EndFrame(frame []uint32)
}

// nullVideo discards frames, rendering into a single internal buffer.
type nullVideo struct {
	buf [hw.NTSCWidth * hw.NTSCHeight]uint32
}

func (nv *nullVideo) BeginFrame() []uint32      { return nv.buf[:] }
func (nv *nullVideo) EndFrame(frame []uint32)   {}

// Emulator drives a NES at the frame level and connects it to the host's
// video, audio and input.
type Emulator struct {
	NES *NES

	out     VideoSink
	chunker *AudioChunker
	stopped atomic.Bool
}

// New powers up a console for rom, wired according to cfg.
func New(rom *ines.Rom, cfg *Config) (*Emulator, error) {
	if rom.IsNES20() {
		return nil, fmt.Errorf("NES 2.0 roms are not supported")
	}

	chunker := NewAudioChunker(cfg.Audio.BufferSize)
	nes, err := PowerUp(rom, chunker)
	if err != nil {
		return nil, err
	}
	nes.Mixer.SetSampleRate(cfg.Audio.SampleRate)

	// The rom header decides the region; an explicit config value
	// overrides it.
	switch cfg.Region {
	case "ntsc":
		nes.SetRegion(hwdefs.NTSC)
	case "pal":
		nes.SetRegion(hwdefs.PAL)
	}

	e := &Emulator{
		NES:     nes,
		out:     &nullVideo{},
		chunker: chunker,
	}
	nes.PlugInput(input.NewProvider(cfg.Input))
	return e, nil
}

// SetOutput replaces the video sink (headless by default).
func (e *Emulator) SetOutput(out VideoSink) {
	e.out = out
}

// SetAudioSink forwards mixed PCM chunks to sink.
func (e *Emulator) SetAudioSink(sink AudioChunkSink) {
	e.chunker.SetSink(sink)
}

// RunFrame emulates a single frame into the video sink.
func (e *Emulator) RunFrame() {
	video := e.out.BeginFrame()
	e.NES.PPU.SetFrameBuffer(video)
	e.NES.RunFrame()
	e.out.EndFrame(video)
}

// Run emulates frames until Stop is called.
func (e *Emulator) Run() {
	for !e.stopped.Load() {
		e.RunFrame()
	}
	log.ModEmu.InfoZ("emulation stopped").End()
}

// RunFrames emulates exactly n frames.
func (e *Emulator) RunFrames(n int) {
	for i := 0; i < n && !e.stopped.Load(); i++ {
		e.RunFrame()
	}
}

func (e *Emulator) Stop() {
	e.stopped.Store(true)
}
