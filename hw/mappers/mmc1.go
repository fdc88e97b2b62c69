package mappers

import (
	"nescore/emu/log"
	"nescore/ines"
)

var MMC1 = MapperDesc{
	Name: "MMC1",
	Load: loadMMC1,
}

type mmc1 struct {
	*base

	prevCycle int64

	serial  shiftReg // serial shift register
	counter uint8    // count of bits shifted

	// CTRL reg bits
	chrmode uint8
	prgmode uint8
	ntm     uint8

	chrbank0 int
	chrbank1 int

	disableWRAM bool
	prgbank     int
}

type shiftReg uint8

func (sr shiftReg) push(val uint8) shiftReg {
	sr >>= 1
	sr |= shiftReg((val << 4) & 0x10)
	return sr
}

func loadMMC1(b *base) error {
	m := &mmc1{base: b}
	b.init(m.write)

	// On powerup bits 2,3 of the control register are set: $8000 holds
	// bank 0, $C000 the last bank. Needed by SEROM/SHROM/SH1ROM boards
	// which do not support banking.
	m.writeREG(0x8000, 0x0C)
	m.writeREG(0xA000, 0)
	m.writeREG(0xC000, 0)
	m.writeREG(0xE000, 0)
	m.remap()
	return nil
}

func (m *mmc1) write(addr uint16, val uint8) {
	curCycle := m.cpu.CurrentCycle()

	// Consecutive-cycle writes are ignored (RMW instructions write twice).
	resetbit := val&0x80 != 0
	if resetbit || curCycle-m.prevCycle >= 2 {
		if resetbit {
			// Reset the shift register so the next write is the "first",
			// and set bits 2,3 of the control reg (16k PRG mode, $8000
			// swappable). Other registers are unchanged.
			m.serial = 0
			m.counter = 0
			m.prgmode = 0b11
			m.remap()
		} else {
			m.serial = m.serial.push(val)
			m.counter++
			if m.counter == 5 {
				m.writeREG(addr, uint8(m.serial))
				m.remap()
				m.serial = 0
				m.counter = 0
			}
		}
	}
	m.prevCycle = curCycle
}

// writeREG dispatches a completed 5-bit value to the register selected by
// address bits 13-14.
func (m *mmc1) writeREG(addr uint16, val uint8) {
	switch (addr & 0x6000) >> 13 {
	case 0:
		m.writeCTRL(val)
	case 1:
		m.chrbank0 = int(val & 0x1F)
	case 2:
		m.chrbank1 = int(val & 0x1F)
	case 3:
		// $E000-FFFF: [...W PPPP]
		m.disableWRAM = val&0x10 != 0
		m.prgbank = int(val & 0x0F)
	}
}

func (m *mmc1) writeCTRL(val uint8) {
	m.chrmode = (val & 0x10) >> 4
	m.prgmode = (val & 0x0C) >> 2

	prevNT := m.ntm
	m.ntm = val & 0x03
	if prevNT != m.ntm {
		switch m.ntm {
		case 0:
			m.setNTMirroring(ines.OnlyAScreen)
		case 1:
			m.setNTMirroring(ines.OnlyBScreen)
		case 2:
			m.setNTMirroring(ines.VertMirroring)
		case 3:
			m.setNTMirroring(ines.HorzMirroring)
		}
	}

	log.ModMapper.DebugZ("Write CTRL reg").
		String("mapper", m.desc.Name).
		Uint8("val", val).
		Uint8("prgmode", m.prgmode).
		Uint8("chrmode", m.chrmode).
		End()
}

func (m *mmc1) remap() {
	switch m.prgmode {
	case 0, 1:
		// 32KiB mode, low bit of the bank number ignored.
		m.mapPRG32K(m.prgbank >> 1)
	case 2:
		m.mapPRG16K(0, 0)
		m.mapPRG16K(1, m.prgbank)
	case 3:
		m.mapPRG16K(0, m.prgbank)
		m.mapPRG16K(1, -1)
	}

	switch m.chrmode {
	case 0:
		m.mapCHR8K(m.chrbank0 >> 1)
	case 1:
		m.mapCHR4K(0, m.chrbank0)
		m.mapCHR4K(1, m.chrbank1)
	}
}
