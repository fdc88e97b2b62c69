package mappers

import (
	"nescore/emu/log"
	"nescore/ines"
)

var MMC3 = MapperDesc{
	Name: "MMC3",
	Load: loadMMC3,
}

type mmc3 struct {
	*base

	register  uint8    // bank register selected by $8000
	registers [8]uint8 // R0-R7
	prgMode   uint8
	chrMode   uint8

	// IRQ unit, clocked by filtered A12 rising edges.
	irqLatch   uint8
	irqCounter int
	irqReload  bool
	irqEnabled bool

	prevA12  bool
	lastRise int64 // CPU cycle of the previous counted rising edge
}

func loadMMC3(b *base) error {
	m := &mmc3{base: b}
	b.init(m.write)
	b.chrAccess = m.watchA12

	// Power-up: R6/R7 map the first two banks, last two fixed.
	m.updateBanks()
	return nil
}

func (m *mmc3) write(addr uint16, val uint8) {
	even := addr&1 == 0
	switch {
	case addr <= 0x9FFF && even: // bank select
		m.register = val & 0x07
		m.prgMode = (val >> 6) & 1
		m.chrMode = (val >> 7) & 1
		m.updateBanks()

	case addr <= 0x9FFF: // bank data
		m.registers[m.register] = val
		m.updateBanks()

	case addr <= 0xBFFF && even: // mirroring
		if m.rom.Mirroring() == ines.FourScreen {
			return
		}
		if val&1 == 0 {
			m.setNTMirroring(ines.VertMirroring)
		} else {
			m.setNTMirroring(ines.HorzMirroring)
		}

	case addr <= 0xBFFF: // PRG RAM protect
		// Not wired: no commercial game depends on it and implementing it
		// risks save corruption on the ones that leave it misconfigured.

	case addr <= 0xDFFF && even: // IRQ latch
		m.irqLatch = val

	case addr <= 0xDFFF: // IRQ reload
		m.irqReload = true

	case even: // $E000: IRQ disable + acknowledge
		m.irqEnabled = false
		m.cpu.AckIRQ()

	default: // $E001: IRQ enable
		m.irqEnabled = true
	}
}

func (m *mmc3) updateBanks() {
	r6, r7 := int(m.registers[6]), int(m.registers[7])
	switch m.prgMode {
	case 0:
		m.mapPRG8K(0, r6)
		m.mapPRG8K(1, r7)
		m.mapPRG8K(2, -2)
		m.mapPRG8K(3, -1)
	case 1:
		m.mapPRG8K(0, -2)
		m.mapPRG8K(1, r7)
		m.mapPRG8K(2, r6)
		m.mapPRG8K(3, -1)
	}

	r := &m.registers
	switch m.chrMode {
	case 0:
		m.mapCHR2K(0, int(r[0])>>1)
		m.mapCHR2K(1, int(r[1])>>1)
		m.mapCHR1K(4, int(r[2]))
		m.mapCHR1K(5, int(r[3]))
		m.mapCHR1K(6, int(r[4]))
		m.mapCHR1K(7, int(r[5]))
	case 1:
		m.mapCHR1K(0, int(r[2]))
		m.mapCHR1K(1, int(r[3]))
		m.mapCHR1K(2, int(r[4]))
		m.mapCHR1K(3, int(r[5]))
		m.mapCHR2K(2, int(r[0])>>1)
		m.mapCHR2K(3, int(r[1])>>1)
	}
}

// watchA12 observes PPU address bit 12 on every pattern table access. A
// low-to-high transition clocks the IRQ counter, filtered so that rises
// closer than 3 CPU cycles to the previous counted one are ignored
// (consecutive sprite fetches from $1000 must count once, not eight
// times).
func (m *mmc3) watchA12(addr uint16) {
	a12 := addr&0x1000 != 0
	rise := a12 && !m.prevA12
	m.prevA12 = a12
	if !rise {
		return
	}

	now := m.cpu.CurrentCycle()
	counted := now-m.lastRise >= 3
	m.lastRise = now
	if !counted {
		return
	}

	m.clockIRQ()
}

func (m *mmc3) clockIRQ() {
	if m.irqCounter == 0 || m.irqReload {
		m.irqReload = false
		m.irqCounter = int(m.irqLatch)
		if m.irqCounter == 0 {
			m.irqCounter = 0x100
		}
	} else {
		m.irqCounter--
	}

	if m.irqCounter == 0 && m.irqEnabled {
		log.ModMapper.DebugZ("MMC3 IRQ").End()
		m.cpu.TriggerIRQ()
	}
}
