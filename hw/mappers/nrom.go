package mappers

var NROM = MapperDesc{
	Name: "NROM",
	Load: loadNROM,
}

// NROM has no banking at all: 16 or 32KiB of PRG (16KiB mirrored into both
// halves by the modulo clamp) and a fixed 8KiB of CHR.
func loadNROM(b *base) error {
	b.init(nil)
	return nil
}
