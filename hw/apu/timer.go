package apu

import "nescore/hw/snapshot"

// timer clocks a channel's waveform generator at a rate derived from its
// period register, and forwards each output change to the mixer as a delta
// at the cycle it occurred on.
type timer struct {
	previousCycle uint32
	timer         uint16
	period        uint16
	lastOutput    int8

	Channel Channel
	mixer   mixer
}

func (t *timer) reset(_ bool) {
	t.timer = 0
	t.period = 0
	t.previousCycle = 0
	t.lastOutput = 0
}

func (t *timer) addOutput(output int8) {
	if output != t.lastOutput {
		t.mixer.AddDelta(t.Channel, t.previousCycle, int16(output-t.lastOutput))
		t.lastOutput = output
	}
}

// run clocks the timer up to targetCycle, returning true once per period
// elapsed (the caller loops on this to advance its sequencer).
func (t *timer) run(targetCycle uint32) bool {
	cyclesToRun := uint16(targetCycle - t.previousCycle)

	if cyclesToRun > t.timer {
		t.previousCycle += uint32(t.timer) + 1
		t.timer = t.period
		return true
	}

	t.timer -= cyclesToRun
	t.previousCycle = targetCycle
	return false
}

func (t *timer) endFrame() {
	t.previousCycle = 0
}

func (t *timer) saveState(state *snapshot.APUTimer) {
	state.PreviousCycle = t.previousCycle
	state.Timer = t.timer
	state.Period = t.period
	state.LastOutput = t.lastOutput
}

func (t *timer) setState(state *snapshot.APUTimer) {
	t.previousCycle = state.PreviousCycle
	t.timer = state.Timer
	t.period = state.Period
	t.lastOutput = state.LastOutput
}
