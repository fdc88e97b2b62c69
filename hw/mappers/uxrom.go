package mappers

var UxROM = MapperDesc{
	Name: "UxROM",
	Load: loadUxROM,
}

type uxrom struct {
	*base
}

// UxROM: 16KiB switchable PRG bank at $8000, last bank fixed at $C000,
// CHR RAM.
func loadUxROM(b *base) error {
	m := &uxrom{base: b}
	b.init(m.write)

	b.mapPRG16K(0, 0)
	b.mapPRG16K(1, -1)
	return nil
}

func (m *uxrom) write(addr uint16, val uint8) {
	m.mapPRG16K(0, int(val))
}
