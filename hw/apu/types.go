package apu

import "nescore/hw/hwdefs"

// Channel identifies one of the five sound generators.
type Channel uint8

//go:generate go tool stringer -type=Channel

const (
	Square1 Channel = iota
	Square2
	Triangle
	Noise
	DPCM
)

// apu is the slice of *APU the sub-units call back into: catching up
// emulation before a register mutation takes effect.
type apu interface {
	SetNeedToRun()
	Run()
}

// mixer is the subset of *Mixer a channel timer drives: one delta per
// output level change, stamped with the APU cycle it occurred on.
type mixer interface {
	AddDelta(ch Channel, time uint32, delta int16)
}

// cpu is the subset of *hw.CPU the APU needs: raising/clearing its IRQ
// sources and driving the DMC's DMA stalls.
type cpu interface {
	HasIRQSource(src hwdefs.IRQSource) bool
	SetIRQSource(src hwdefs.IRQSource)
	ClearIRQSource(src hwdefs.IRQSource)
	CurrentCycle() int64
	StartDMCTransfer()
	StopDMCTransfer()
}

// FrameType tags the frame counter events fed back into the channels.
type FrameType uint8

const (
	NoFrame FrameType = iota
	QuarterFrame
	HalfFrame
)
