package apu

import "nescore/hw/snapshot"

// envelope implements the square/noise volume envelope: either a fixed
// volume or a decaying divider-driven counter, optionally looping through
// the channel's length counter halt flag.
type envelope struct {
	constantVolume bool
	vol            uint8

	start   bool
	divider int8
	counter uint8

	lenCounter lengthCounter
}

func (env *envelope) init(regValue uint8) {
	env.lenCounter.init((regValue & 0x20) == 0x20)
	env.constantVolume = (regValue & 0x10) == 0x10
	env.vol = regValue & 0x0F
}

func (env *envelope) restart() {
	env.start = true
}

func (env *envelope) volume() uint32 {
	if env.lenCounter.status() {
		if env.constantVolume {
			return uint32(env.vol)
		}
		return uint32(env.counter)
	}
	return 0
}

func (env *envelope) reset(soft bool) {
	env.lenCounter.reset(soft)
	env.constantVolume = false
	env.vol = 0
	env.start = false
	env.divider = 0
	env.counter = 0
}

func (env *envelope) tick() {
	if !env.start {
		env.divider--
		if env.divider < 0 {
			env.divider = int8(env.vol)
			if env.counter > 0 {
				env.counter--
			} else if env.lenCounter.isHalted() {
				env.counter = 15
			}
		}
	} else {
		env.start = false
		env.counter = 15
		env.divider = int8(env.vol)
	}
}

func (env *envelope) saveState(state *snapshot.APUEnvelope) {
	env.lenCounter.saveState(&state.LengthCounter)
	state.ConstantVolume = env.constantVolume
	state.Volume = env.vol
	state.Start = env.start
	state.Divider = env.divider
	state.Counter = env.counter
}

func (env *envelope) setState(state *snapshot.APUEnvelope) {
	env.lenCounter.setState(&state.LengthCounter)
	env.constantVolume = state.ConstantVolume
	env.vol = state.Volume
	env.start = state.Start
	env.divider = state.Divider
	env.counter = state.Counter
}
