package mappers

var GxROM = MapperDesc{
	Name: "GxROM",
	Load: loadGxROM,
}

type gxrom struct {
	*base
}

// GxROM: 32KiB PRG banks in bits 4-5, 8KiB CHR banks in bits 0-1.
func loadGxROM(b *base) error {
	m := &gxrom{base: b}
	b.init(m.write)
	return nil
}

func (m *gxrom) write(addr uint16, val uint8) {
	m.mapPRG32K(int(val>>4) & 0x03)
	m.mapCHR8K(int(val & 0x03))
}
