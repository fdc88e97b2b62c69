package apu

import (
	"nescore/emu/log"
	"nescore/hw/hwdefs"
	"nescore/hw/snapshot"
)

// Frame counter step schedules, in CPU cycles. Row 0 is 4-step mode, row 1
// is 5-step. The 4-step IRQ is asserted on the last 3 entries.
var ntscStepCycles = [2][6]int32{
	{7457, 14913, 22371, 29828, 29829, 29830},
	{7457, 14913, 22371, 29829, 37281, 37282},
}

var palStepCycles = [2][6]int32{
	{8313, 16627, 24939, 33252, 33253, 33254},
	{8313, 16627, 24939, 33253, 41565, 41566},
}

var frameType = [2][6]FrameType{
	{QuarterFrame, HalfFrame, QuarterFrame, NoFrame, HalfFrame, NoFrame},
	{QuarterFrame, HalfFrame, QuarterFrame, NoFrame, HalfFrame, NoFrame},
}

// frameCounter clocks envelopes, linear counters, length counters and
// sweeps at fixed CPU-cycle intervals, and raises the frame IRQ in 4-step
// mode.
type frameCounter struct {
	apu *APU
	cpu cpu

	stepCycles        [2][6]int32
	prevCycle         int32
	curStep           uint32
	stepMode          uint32 // 0: 4-step mode, 1: 5-step mode
	inhibitIRQ        bool
	blockTick         uint8
	newval            int16
	writeDelayCounter int8
}

func (fc *frameCounter) init(apu *APU, cpu cpu) {
	fc.apu = apu
	fc.cpu = cpu
	fc.stepCycles = ntscStepCycles
}

func (fc *frameCounter) setRegion(region hwdefs.Region) {
	if region == hwdefs.PAL {
		fc.stepCycles = palStepCycles
	} else {
		fc.stepCycles = ntscStepCycles
	}
}

func (fc *frameCounter) reset(soft bool) {
	fc.prevCycle = 0

	// After reset the APU mode in $4017 is unchanged, so keep whatever
	// value stepMode has for soft resets.
	if !soft {
		fc.stepMode = 0
	}

	fc.curStep = 0

	// After reset or power-up, the APU acts as if $4017 were written with
	// $00 a few clocks before the first instruction runs.
	fc.newval = 0
	if fc.stepMode != 0 {
		fc.newval = 0x80
	}
	fc.writeDelayCounter = 3
	fc.inhibitIRQ = false

	fc.blockTick = 0
}

func (fc *frameCounter) WriteFRAMECOUNTER(old, val uint8) {
	log.ModSound.InfoZ("write framecounter").Uint8("val", val).End()
	fc.apu.Run()
	fc.newval = int16(val)

	// Reset sequence after $4017 is written to.
	if fc.cpu.CurrentCycle()&0x01 != 0 {
		// If the write occurs between APU cycles, the effects occur 4 CPU
		// cycles after the write cycle.
		fc.writeDelayCounter = 4
	} else {
		// If the write occurs during an APU cycle, the effects occur 3 CPU
		// cycles after the $4017 write cycle.
		fc.writeDelayCounter = 3
	}

	fc.inhibitIRQ = (val & 0x40) == 0x40
	if fc.inhibitIRQ {
		fc.cpu.ClearIRQSource(hwdefs.FrameCounter)
	}
}

func (fc *frameCounter) run(cyclesToRun *int32) uint32 {
	var cyclesRan int32

	if fc.prevCycle+*cyclesToRun >= fc.stepCycles[fc.stepMode][fc.curStep] {
		if !fc.inhibitIRQ && fc.stepMode == 0 && fc.curStep >= 3 {
			// The IRQ is asserted on the last 3 cycles of 4-step mode.
			fc.cpu.SetIRQSource(hwdefs.FrameCounter)
		}

		ftyp := frameType[fc.stepMode][fc.curStep]
		if ftyp != NoFrame && fc.blockTick == 0 {
			fc.apu.FrameCounterTick(ftyp)

			// Do not allow writes to $4017 to clock the frame counter for
			// the next cycle (i.e this odd cycle + the following even one).
			fc.blockTick = 2
		}

		if fc.stepCycles[fc.stepMode][fc.curStep] < fc.prevCycle {
			// This can happen when switching from PAL to NTSC, which can
			// cause a freeze (endless loop in the APU).
			cyclesRan = 0
		} else {
			cyclesRan = fc.stepCycles[fc.stepMode][fc.curStep] - fc.prevCycle
		}

		*cyclesToRun -= cyclesRan

		fc.curStep++
		if fc.curStep == 6 {
			fc.curStep = 0
			fc.prevCycle = 0
		} else {
			fc.prevCycle += cyclesRan
		}
	} else {
		cyclesRan = *cyclesToRun
		*cyclesToRun = 0
		fc.prevCycle += cyclesRan
	}

	if fc.newval >= 0 {
		fc.writeDelayCounter--
		if fc.writeDelayCounter == 0 {
			// Apply the new value after the appropriate number of cycles.
			if (fc.newval & 0x80) == 0x80 {
				fc.stepMode = 1
			} else {
				fc.stepMode = 0
			}

			fc.writeDelayCounter = -1
			fc.curStep = 0
			fc.prevCycle = 0
			fc.newval = -1

			if fc.stepMode != 0 && fc.blockTick == 0 {
				// Writing to $4017 with bit 7 set immediately generates a
				// clock for both the quarter frame and the half frame
				// units, regardless of what the sequencer is doing.
				fc.apu.FrameCounterTick(HalfFrame)
				fc.blockTick = 2
			}
		}
	}

	if fc.blockTick > 0 {
		fc.blockTick--
	}

	return uint32(cyclesRan)
}

func (fc *frameCounter) needToRun(cyclesToRun uint32) bool {
	// Run the APU when:
	// - a new $4017 value is pending
	// - the "blockTick" process is running
	// - we're at the before-last or last tick of the current step
	return fc.newval >= 0 ||
		fc.blockTick > 0 ||
		(fc.prevCycle+int32(cyclesToRun) >= fc.stepCycles[fc.stepMode][fc.curStep]-1)
}

func (fc *frameCounter) saveState(state *snapshot.APUFrameCounter) {
	state.PrevCycle = fc.prevCycle
	state.CurStep = fc.curStep
	state.StepMode = fc.stepMode
	state.InhibitIRQ = fc.inhibitIRQ
	state.BlockTick = fc.blockTick
	state.NewVal = fc.newval
	state.WriteDelayCounter = fc.writeDelayCounter
}

func (fc *frameCounter) setState(state *snapshot.APUFrameCounter) {
	fc.prevCycle = state.PrevCycle
	fc.curStep = state.CurStep
	fc.stepMode = state.StepMode
	fc.inhibitIRQ = state.InhibitIRQ
	fc.blockTick = state.BlockTick
	fc.newval = state.NewVal
	fc.writeDelayCounter = state.WriteDelayCounter
}
