package apu

import (
	"nescore/emu/log"
	"nescore/hw/hwio"
	"nescore/hw/snapshot"
)

// The noiseChannel contains the following: Envelope Generator, Timer with
// period driven by a lookup table, 15-bit LFSR, Length Counter.
type noiseChannel struct {
	apu      *APU
	envelope envelope
	timer    timer

	shiftReg uint16 // 15-bit linear feedback shift register
	mode     bool   // feedback from bit 6 instead of bit 1

	Volume hwio.Reg8 `hwio:"offset=0x0C,wcb"`
	Unused hwio.Reg8 `hwio:"offset=0x0D,wcb"`
	Period hwio.Reg8 `hwio:"offset=0x0E,wcb"`
	Length hwio.Reg8 `hwio:"offset=0x0F,wcb"`
}

func newNoiseChannel(apu *APU, mixer *Mixer) noiseChannel {
	return noiseChannel{
		apu:      apu,
		shiftReg: 1,
		envelope: envelope{
			lenCounter: lengthCounter{
				channel: Noise,
				apu:     apu,
			},
		},
		timer: timer{
			Channel: Noise,
			mixer:   mixer,
		},
	}
}

var noisePeriodLUT = [16]uint16{4, 8, 16, 32, 64, 96, 128, 160, 202, 254, 380, 508, 762, 1016, 2034, 4068}

func (nc *noiseChannel) WriteVOLUME(_, val uint8) {
	nc.apu.Run()
	nc.envelope.init(val)

	log.ModSound.InfoZ("write noise volume").Uint8("reg", val).End()
}

func (nc *noiseChannel) WriteUNUSED(_, _ uint8) {
	nc.apu.Run()
}

func (nc *noiseChannel) WritePERIOD(_, val uint8) {
	nc.apu.Run()
	nc.timer.period = noisePeriodLUT[val&0x0F] - 1
	nc.mode = (val & 0x80) == 0x80

	log.ModSound.InfoZ("write noise period").
		Uint8("reg", val).
		Uint16("period", nc.timer.period).
		Bool("mode", nc.mode).
		End()
}

func (nc *noiseChannel) WriteLENGTH(_, val uint8) {
	nc.apu.Run()
	nc.envelope.lenCounter.load(val >> 3)
	nc.envelope.restart()

	log.ModSound.InfoZ("write noise length").Uint8("reg", val).End()
}

func (nc *noiseChannel) isMuted() bool {
	// The mixer receives 0 whenever bit 0 of the shift register is set.
	return nc.shiftReg&0x01 == 0x01
}

func (nc *noiseChannel) run(targetCycle uint32) {
	for nc.timer.run(targetCycle) {
		// Feedback is the XOR of bits 0 and 1 (mode 0) or 0 and 6 (mode 1).
		fbBit := uint16(1)
		if nc.mode {
			fbBit = 6
		}
		feedback := (nc.shiftReg & 0x01) ^ ((nc.shiftReg >> fbBit) & 0x01)
		nc.shiftReg >>= 1
		nc.shiftReg |= feedback << 14

		if nc.isMuted() {
			nc.timer.addOutput(0)
		} else {
			nc.timer.addOutput(int8(nc.envelope.volume()))
		}
	}
}

func (nc *noiseChannel) reset(soft bool) {
	nc.envelope.reset(soft)
	nc.timer.reset(soft)
	nc.timer.period = noisePeriodLUT[0] - 1
	nc.shiftReg = 1
	nc.mode = false
}

func (nc *noiseChannel) tickEnvelope() {
	nc.envelope.tick()
}

func (nc *noiseChannel) tickLengthCounter() {
	nc.envelope.lenCounter.tick()
}

func (nc *noiseChannel) reloadLengthCounter() {
	nc.envelope.lenCounter.reload()
}

func (nc *noiseChannel) endFrame() {
	nc.timer.endFrame()
}

func (nc *noiseChannel) setEnabled(enabled bool) {
	nc.envelope.lenCounter.setEnabled(enabled)
}

func (nc *noiseChannel) status() bool {
	return nc.envelope.lenCounter.status()
}

func (nc *noiseChannel) output() uint8 {
	return uint8(nc.timer.lastOutput)
}

func (nc *noiseChannel) saveState(state *snapshot.APUNoise) {
	nc.envelope.saveState(&state.Envelope)
	nc.timer.saveState(&state.Timer)
	state.ShiftReg = nc.shiftReg
	state.Mode = nc.mode
}

func (nc *noiseChannel) setState(state *snapshot.APUNoise) {
	nc.envelope.setState(&state.Envelope)
	nc.timer.setState(&state.Timer)
	nc.shiftReg = state.ShiftReg
	nc.mode = state.Mode
}
