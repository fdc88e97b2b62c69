package mappers

import (
	"nescore/ines"
)

var AxROM = MapperDesc{
	Name: "AxROM",
	Load: loadAxROM,
}

type axrom struct {
	*base
}

// AxROM: 32KiB switchable PRG banks and single-screen mirroring selected
// by bit 4.
func loadAxROM(b *base) error {
	m := &axrom{base: b}
	b.init(m.write)
	b.setNTMirroring(ines.OnlyAScreen)
	return nil
}

func (m *axrom) write(addr uint16, val uint8) {
	m.mapPRG32K(int(val & 0x07))
	if val&0x10 != 0 {
		m.setNTMirroring(ines.OnlyBScreen)
	} else {
		m.setNTMirroring(ines.OnlyAScreen)
	}
}
