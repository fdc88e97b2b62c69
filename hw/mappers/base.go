package mappers

import (
	"fmt"

	"nescore/hw"
	"nescore/hw/hwio"
	"nescore/ines"
)

// base carries the plumbing shared by all mappers: windowed PRG/CHR
// banking, PRG RAM, CHR RAM and nametable mirroring. Bank selects are
// clamped by modulo bank count, like the unconnected address lines of the
// real cartridges.
type base struct {
	desc MapperDesc

	rom *ines.Rom
	cpu *hw.CPU
	ppu *hw.PPU

	chr    []byte // CHR ROM, or 8KiB of CHR RAM
	chrRAM bool

	prgRAM  [0x2000]byte
	extraNT [0x800]byte // 4-screen only

	// $8000-$FFFF write hook (bank select registers).
	prgWrite func(addr uint16, val uint8)

	// CHR access hook, called with the PPU address on every pattern
	// fetch (MMC3 watches A12 through this).
	chrAccess func(addr uint16)

	prgOffsets [4]int // 4 x 8KiB CPU windows at $8000
	chrOffsets [8]int // 8 x 1KiB PPU windows at $0000

	mirroring ines.NTMirroring
}

func newbase(desc MapperDesc, rom *ines.Rom, cpu *hw.CPU, ppu *hw.PPU) (*base, error) {
	if len(rom.PRGROM) == 0 {
		return nil, fmt.Errorf("empty PRGROM")
	}

	b := &base{desc: desc, rom: rom, cpu: cpu, ppu: ppu}

	b.chr = rom.CHRROM
	if len(b.chr) == 0 {
		// No CHR ROM: the board carries 8KiB of CHR RAM.
		b.chr = make([]byte, 0x2000)
		b.chrRAM = true
	}

	if rom.HasTrainer() {
		copy(b.prgRAM[0x1000:], rom.Trainer)
	}

	return b, nil
}

// init wires the CPU and PPU bus windows. prgWrite, when non-nil, sees
// every CPU write to $8000-$FFFF.
func (b *base) init(prgWrite func(addr uint16, val uint8)) {
	b.prgWrite = prgWrite

	// PRG RAM at $6000-$7FFF.
	b.cpu.Bus.MapMemorySlice(0x6000, 0x7FFF, b.prgRAM[:], false)

	// PRG ROM windows at $8000-$FFFF.
	b.cpu.Bus.MapDevice(0x8000, &hwio.Device{
		Name:    b.desc.Name + ".prg",
		Size:    0x8000,
		ReadCb:  b.readPRG,
		PeekCb:  b.readPRG,
		WriteCb: b.writePRG,
	})

	// CHR windows at $0000-$1FFF on the PPU bus.
	b.ppu.Bus.MapDevice(0x0000, &hwio.Device{
		Name:    b.desc.Name + ".chr",
		Size:    0x2000,
		ReadCb:  b.readCHR,
		PeekCb:  b.peekCHR,
		WriteCb: b.writeCHR,
	})

	b.mapPRG32K(0)
	b.mapCHR8K(0)
	b.setNTMirroring(b.rom.Mirroring())
}

func (b *base) readPRG(addr uint16) uint8 {
	a := addr - 0x8000
	return b.rom.PRGROM[b.prgOffsets[a>>13]+int(a&0x1FFF)]
}

func (b *base) writePRG(addr uint16, val uint8) {
	if b.prgWrite != nil {
		b.prgWrite(addr, val)
	}
}

func (b *base) readCHR(addr uint16) uint8 {
	if b.chrAccess != nil {
		b.chrAccess(addr)
	}
	return b.chr[b.chrOffsets[addr>>10]+int(addr&0x3FF)]
}

func (b *base) peekCHR(addr uint16) uint8 {
	return b.chr[b.chrOffsets[addr>>10]+int(addr&0x3FF)]
}

func (b *base) writeCHR(addr uint16, val uint8) {
	if b.chrAccess != nil {
		b.chrAccess(addr)
	}
	if b.chrRAM {
		b.chr[b.chrOffsets[addr>>10]+int(addr&0x3FF)] = val
	}
}

/* banking */

// prgOffset8K converts an 8KiB bank index into a PRGROM byte offset.
// Negative indexes count from the last bank; out-of-range indexes wrap.
func (b *base) prgOffset8K(bank int) int {
	nbanks := len(b.rom.PRGROM) / 0x2000
	bank %= nbanks
	if bank < 0 {
		bank += nbanks
	}
	return bank * 0x2000
}

func (b *base) mapPRG8K(slot, bank int) {
	b.prgOffsets[slot] = b.prgOffset8K(bank)
}

func (b *base) mapPRG16K(slot, bank int) {
	b.mapPRG8K(slot*2, bank*2)
	b.mapPRG8K(slot*2+1, bank*2+1)
}

func (b *base) mapPRG32K(bank int) {
	b.mapPRG16K(0, bank*2)
	b.mapPRG16K(1, bank*2+1)
}

func (b *base) chrOffset1K(bank int) int {
	nbanks := len(b.chr) / 0x400
	bank %= nbanks
	if bank < 0 {
		bank += nbanks
	}
	return bank * 0x400
}

func (b *base) mapCHR1K(slot, bank int) {
	b.chrOffsets[slot] = b.chrOffset1K(bank)
}

func (b *base) mapCHR2K(slot, bank int) {
	b.mapCHR1K(slot*2, bank*2)
	b.mapCHR1K(slot*2+1, bank*2+1)
}

func (b *base) mapCHR4K(slot, bank int) {
	for i := 0; i < 4; i++ {
		b.mapCHR1K(slot*4+i, bank*4+i)
	}
}

func (b *base) mapCHR8K(bank int) {
	for i := 0; i < 8; i++ {
		b.mapCHR1K(i, bank*8+i)
	}
}

/* nametable mirroring */

func (b *base) setNTMirroring(m ines.NTMirroring) {
	b.mirroring = m
	b.ppu.Bus.Unmap(0x2000, 0x3EFF)

	A := b.ppu.NTRAM[:0x400]
	B := b.ppu.NTRAM[0x400:0x800]

	var nt1, nt2, nt3, nt4 []byte

	switch m {
	case ines.HorzMirroring:
		nt1, nt2 = A, A
		nt3, nt4 = B, B
	case ines.VertMirroring:
		nt1, nt2 = A, B
		nt3, nt4 = A, B
	case ines.OnlyAScreen:
		nt1, nt2 = A, A
		nt3, nt4 = A, A
	case ines.OnlyBScreen:
		nt1, nt2 = B, B
		nt3, nt4 = B, B
	case ines.FourScreen:
		nt1, nt2 = A, B
		nt3, nt4 = b.extraNT[:0x400], b.extraNT[0x400:]
	default:
		panic(fmt.Sprintf("unsupported mirroring %d", m))
	}

	// Map nametables.
	b.ppu.Bus.MapMemorySlice(0x2000, 0x23FF, nt1, false)
	b.ppu.Bus.MapMemorySlice(0x2400, 0x27FF, nt2, false)
	b.ppu.Bus.MapMemorySlice(0x2800, 0x2BFF, nt3, false)
	b.ppu.Bus.MapMemorySlice(0x2C00, 0x2FFF, nt4, false)

	// Mirrors.
	b.ppu.Bus.MapMemorySlice(0x3000, 0x33FF, nt1, false)
	b.ppu.Bus.MapMemorySlice(0x3400, 0x37FF, nt2, false)
	b.ppu.Bus.MapMemorySlice(0x3800, 0x3BFF, nt3, false)
	b.ppu.Bus.MapMemorySlice(0x3C00, 0x3EFF, nt4, false)
}

// Mirroring returns the nametable arrangement currently in effect.
func (b *base) Mirroring() ines.NTMirroring {
	return b.mirroring
}
