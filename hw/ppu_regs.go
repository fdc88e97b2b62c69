package hw

import (
	"nescore/emu/log"
)

// CPU-visible PPU register callbacks. Every access also refreshes the
// PPU's open bus latch, whose stale bits leak into $2002 reads.

// PPUCTRL: $2000
func (p *PPU) WritePPUCTRL(old, val uint8) {
	log.ModPPU.DebugZ("Write to PPUCTRL").Hex8("val", val).End()
	p.refreshOpenBus(val)

	p.ctrl = val

	// By toggling the nmi bit during vblank without reading PPUSTATUS, a
	// program can pull /nmi low multiple times, generating multiple NMIs.
	if val&(1<<nmiEnable) == 0 {
		p.CPU.clearNMIflag()
	} else if p.status&(1<<vblank) != 0 {
		p.CPU.setNMIflag()
	}

	// Transfer the nametable bits into t.
	p.vramTmp.setNametable(val & ntselect)
}

// PPUMASK: $2001
func (p *PPU) WritePPUMASK(old, val uint8) {
	log.ModPPU.DebugZ("Write to PPUMASK").Hex8("val", val).End()
	p.refreshOpenBus(val)
	p.mask = val
}

// PPUSTATUS: $2002
func (p *PPU) ReadPPUSTATUS(_ uint8) uint8 {
	ret := p.status&0xE0 | p.openbus&openbusMask

	p.status &^= 1 << vblank
	p.writeLatch = false
	p.CPU.clearNMIflag()
	p.refreshOpenBus(ret)
	return ret
}

func (p *PPU) PeekPPUSTATUS(_ uint8) uint8 {
	return p.status&0xE0 | p.openbus&openbusMask
}

// OAMADDR: $2003
func (p *PPU) WriteOAMADDR(old, val uint8) {
	p.refreshOpenBus(val)
	p.oamAddr = val
}

// OAMDATA: $2004
func (p *PPU) ReadOAMDATA(_ uint8) uint8 {
	val := p.oam[p.oamAddr]
	if p.oamAddr&0x03 == 0x02 {
		// Attribute bytes have 3 unimplemented bits.
		val &= 0xE3
	}
	p.refreshOpenBus(val)
	return val
}

func (p *PPU) WriteOAMDATA(old, val uint8) {
	p.refreshOpenBus(val)
	p.oam[p.oamAddr] = val
	p.oamAddr++
}

// PPUSCROLL: $2005
func (p *PPU) WritePPUSCROLL(old, val uint8) {
	log.ModPPU.DebugZ("Write to PPUSCROLL").Hex8("val", val).End()
	p.refreshOpenBus(val)

	if !p.writeLatch { // first write
		p.bg.finex = val & 0b111
		p.vramTmp.setCoarseX(val >> 3)
	} else { // second write
		p.vramTmp.setFineY(val & 0b111)
		p.vramTmp.setCoarseY(val >> 3)
	}

	p.writeLatch = !p.writeLatch
}

// PPUADDR: $2006
func (p *PPU) WritePPUADDR(old, val uint8) {
	p.refreshOpenBus(val)

	if !p.writeLatch { // first write
		p.vramTmp.setHigh(val)
	} else { // second write
		p.vramTmp.setLow(val)
		p.vramAddr = p.vramTmp
	}

	p.writeLatch = !p.writeLatch
}

// PPUDATA: $2007
func (p *PPU) ReadPPUDATA(_ uint8) uint8 {
	val := p.readVRAM()
	p.refreshOpenBus(val)
	return val
}

func (p *PPU) WritePPUDATA(old, val uint8) {
	p.refreshOpenBus(val)
	p.writeVRAM(val)
}
