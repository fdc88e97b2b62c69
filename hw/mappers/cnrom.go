package mappers

var CNROM = MapperDesc{
	Name: "CNROM",
	Load: loadCNROM,
}

type cnrom struct {
	*base
}

// CNROM: fixed PRG, 8KiB switchable CHR bank.
func loadCNROM(b *base) error {
	m := &cnrom{base: b}
	b.init(m.write)
	return nil
}

func (m *cnrom) write(addr uint16, val uint8) {
	m.mapCHR8K(int(val & 0x03))
}
