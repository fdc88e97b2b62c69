// Package mappers implements the cartridge mapping hardware: PRG/CHR
// banking, nametable mirroring and mapper-specific IRQs.
package mappers

import (
	"fmt"

	"nescore/emu/log"
	"nescore/hw"
	"nescore/ines"
)

type MapperDesc struct {
	Name string
	Load func(*base) error
}

var All = map[uint16]MapperDesc{
	0:  NROM,
	1:  MMC1,
	2:  UxROM,
	3:  CNROM,
	4:  MMC3,
	7:  AxROM,
	66: GxROM,
}

// Load wires the mapper for rom onto the CPU and PPU buses.
func Load(rom *ines.Rom, cpu *hw.CPU, ppu *hw.PPU) error {
	desc, ok := All[rom.Mapper()]
	if !ok {
		return fmt.Errorf("unsupported mapper %d", rom.Mapper())
	}

	log.ModMapper.InfoZ("loading mapper").
		String("name", desc.Name).
		Uint16("id", rom.Mapper()).
		End()

	base, err := newbase(desc, rom, cpu, ppu)
	if err != nil {
		return fmt.Errorf("mapper initialization failed: %w", err)
	}
	if err := desc.Load(base); err != nil {
		return fmt.Errorf("failed to load mapper %s: %w", desc.Name, err)
	}
	return nil
}
