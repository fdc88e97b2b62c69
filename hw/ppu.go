package hw

import (
	"nescore/emu/log"
	"nescore/hw/hwdefs"
	"nescore/hw/hwio"
)

const (
	NumCycles      = 341 // dots per scanline
	NTSCScanlines  = 262
	PALScanlines   = 312
	vblankScanline = 241

	NTSCWidth  = 256
	NTSCHeight = 240

	ntscPPUDivider = 4
	palPPUDivider  = 5
)

const (
	// PPUCTRL bits

	// Base nametable address mask
	// (0 = $2000; 1 = $2400; 2 = $2800; 3 = $2C00)
	ntselect = 0b11

	// VRAM address increment per CPU read/write of PPUDATA
	// (0: +1 i.e. horizontal; 1: +32 i.e. vertical)
	vramIncr = 2

	// Sprite pattern table address for 8x8 sprites
	// (0: $0000; 1: $1000; ignored in 8x16 mode)
	spriteAddr = 3

	// Background pattern table address (0: $0000; 1: $1000)
	backgroundAddr = 4

	// Sprite size (0: 8x8 pixels; 1: 8x16 pixels)
	spriteSize = 5

	// Generate an NMI at the start of vertical blanking (0: off; 1: on)
	nmiEnable = 7
)

const (
	// PPUMASK bits

	greyscale       = 0 // mask palette index with 0x30
	leftmostBg      = 1 // show background in leftmost 8 pixels
	leftmostSprites = 2 // show sprites in leftmost 8 pixels
	showBg          = 3
	showSprites     = 4
	// bits 5/6/7 are R/G/B emphasis.
)

const (
	// PPUSTATUS bits

	spriteOverflow = 5
	sprite0Hit     = 6
	vblank         = 7

	// Low 5 status bits return stale PPU bus contents.
	openbusMask = 0b11111
)

// sprite holds one of the 8 per-scanline sprite slots, pattern bytes
// already fetched and flipped.
type sprite struct {
	x     uint8
	attr  uint8
	dataL uint8
	dataH uint8
	zero  bool // slot holds sprite 0
}

// bgRegs is the background fetch/shift pipeline state.
type bgRegs struct {
	finex uint8

	// per-tile latches
	nt, at       uint8
	bgLo, bgHi   uint8

	// shift registers; attribute shifters carry 1 bit per pixel, refilled
	// from the latches every 8 dots.
	bgShiftLo, bgShiftHi uint16
	atShiftLo, atShiftHi uint8
	atLatchLo, atLatchHi bool
}

type PPU struct {
	Bus *hwio.Table // PPU bus: pattern tables + nametables, mapped by the cartridge
	CPU *CPU

	// Physical nametable RAM; the cartridge maps 4 logical nametables onto
	// it according to its mirroring.
	NTRAM [0x800]uint8

	// CPU-exposed memory-mapped registers (bank 1), mirrored every 8
	// bytes from $2000 to $3FFF.
	PPUCTRL   hwio.Reg8 `hwio:"bank=1,offset=0x0,writeonly,wcb"`
	PPUMASK   hwio.Reg8 `hwio:"bank=1,offset=0x1,writeonly,wcb"`
	PPUSTATUS hwio.Reg8 `hwio:"bank=1,offset=0x2,readonly,rcb,pcb"`
	OAMADDR   hwio.Reg8 `hwio:"bank=1,offset=0x3,writeonly,wcb"`
	OAMDATA   hwio.Reg8 `hwio:"bank=1,offset=0x4,rcb,wcb"`
	PPUSCROLL hwio.Reg8 `hwio:"bank=1,offset=0x5,writeonly,wcb"`
	PPUADDR   hwio.Reg8 `hwio:"bank=1,offset=0x6,writeonly,wcb"`
	PPUDATA   hwio.Reg8 `hwio:"bank=1,offset=0x7,rcb,wcb"`

	Cycle      uint32 // current dot in the scanline, 0..340
	Scanline   int    // 0..261 NTSC, 0..311 PAL
	FrameCount uint32

	masterClock    uint64
	clockDivider   uint64
	totalScanlines int

	ctrl   uint8
	mask   uint8
	status uint8

	palette [0x20]uint8
	oam     [0x100]uint8
	oamAddr uint8

	// 8 sprite slots for the scanline being drawn; refilled at dot 257.
	sprites     [8]sprite
	spriteCount int

	bg bgRegs

	vramAddr    loopy
	vramTmp     loopy
	writeLatch  bool
	ppuDataRbuf uint8

	openbus      uint8
	openbusDecay uint32 // frames since the open bus latch was refreshed

	oddFrame      bool
	frameComplete bool

	framebuf []uint32
}

func NewPPU() *PPU {
	p := &PPU{
		Bus: hwio.NewTable("ppu"),
	}
	p.SetRegion(hwdefs.NTSC)
	return p
}

// SetRegion adjusts dot pacing and frame height.
func (p *PPU) SetRegion(region hwdefs.Region) {
	switch region {
	case hwdefs.PAL:
		p.clockDivider = palPPUDivider
		p.totalScanlines = PALScanlines
	default:
		p.clockDivider = ntscPPUDivider
		p.totalScanlines = NTSCScanlines
	}
}

func (p *PPU) InitBus() {
	hwio.MustInitRegs(p)
}

// CreateScreen allocates an internal framebuffer. The host normally
// provides one with SetFrameBuffer instead.
func (p *PPU) CreateScreen() {
	p.framebuf = make([]uint32, NTSCWidth*NTSCHeight)
}

// SetFrameBuffer redirects pixel output to video, a 256x240 array of
// 0xAARRGGBB pixels.
func (p *PPU) SetFrameBuffer(video []uint32) {
	p.framebuf = video
}

// Framebuffer returns the current frame pixels.
func (p *PPU) Framebuffer() []uint32 {
	return p.framebuf
}

// FrameComplete reports whether a full frame has been rendered since the
// last ClearFrameComplete.
func (p *PPU) FrameComplete() bool { return p.frameComplete }

func (p *PPU) ClearFrameComplete() { p.frameComplete = false }

func (p *PPU) Reset() {
	p.Scanline = 0
	p.Cycle = 0
	p.FrameCount = 0
	p.masterClock = 0
	p.writeLatch = false
	p.vramAddr = 0
	p.vramTmp = 0
	p.ctrl = 0
	p.mask = 0
	p.status = 0
	p.oamAddr = 0
	p.ppuDataRbuf = 0
	p.oddFrame = false
	p.frameComplete = false
	p.bg = bgRegs{}
	p.spriteCount = 0
}

// Run advances the PPU until its master clock catches up with target.
func (p *PPU) Run(target uint64) {
	for p.masterClock+p.clockDivider <= target {
		p.step()
		p.masterClock += p.clockDivider
	}
}

func (p *PPU) renderingEnabled() bool {
	return p.mask&(1<<showBg|1<<showSprites) != 0
}

// step advances the PPU by one dot.
func (p *PPU) step() {
	preRender := p.Scanline == p.totalScanlines-1

	switch {
	case p.Scanline < NTSCHeight:
		p.renderDot(false)

	case p.Scanline == vblankScanline && p.Cycle == 1:
		p.status |= 1 << vblank
		if p.ctrl&(1<<nmiEnable) != 0 {
			p.CPU.setNMIflag()
		}

	case preRender:
		if p.Cycle == 1 {
			p.status &^= 1<<vblank | 1<<sprite0Hit | 1<<spriteOverflow
			p.CPU.clearNMIflag()
		}
		p.renderDot(true)
	}

	p.Cycle++
	if p.Cycle >= NumCycles {
		p.Cycle = 0
		p.Scanline++
		if p.Scanline >= p.totalScanlines {
			p.Scanline = 0
			p.FrameCount++
			p.oddFrame = !p.oddFrame
			p.frameComplete = true
			p.decayOpenBus()
		}
	}

	// On NTSC odd frames, dot 339 of the pre-render scanline is the last
	// one when rendering is enabled.
	if preRender && p.Cycle == 340 && p.oddFrame &&
		p.renderingEnabled() && p.totalScanlines == NTSCScanlines {
		p.Cycle = 0
		p.Scanline = 0
		p.FrameCount++
		p.oddFrame = !p.oddFrame
		p.frameComplete = true
		p.decayOpenBus()
	}
}

// renderDot runs the background and sprite pipelines for one dot of a
// visible (or pre-render) scanline.
func (p *PPU) renderDot(preRender bool) {
	if !p.renderingEnabled() {
		if !preRender && p.Cycle >= 1 && p.Cycle <= NTSCWidth {
			// Rendering disabled: the backdrop color fills the frame. When v
			// points into palette space the hardware shows that entry instead.
			idx := p.palette[0]
			if p.vramAddr.addr() >= 0x3F00 {
				idx = p.readPalette(uint8(p.vramAddr.addr() & 0x1F))
			}
			p.putPixel(int(p.Cycle-1), p.Scanline, idx)
		}
		return
	}

	switch {
	case p.Cycle == 0:
		// idle dot

	case p.Cycle <= 256:
		if !preRender {
			p.drawPixel(int(p.Cycle - 1))
		}
		p.shiftBg()
		p.fetchBg()

		if p.Cycle == 256 {
			p.vramAddr.incY()
		}

	case p.Cycle == 257:
		p.vramAddr.copyX(p.vramTmp)
		p.evaluateSprites()
		p.oamAddr = 0

	case p.Cycle >= 280 && p.Cycle <= 304:
		if preRender {
			p.vramAddr.copyY(p.vramTmp)
		}

	case p.Cycle >= 321 && p.Cycle <= 336:
		// Prefetch the first two tiles of the next scanline.
		p.shiftBg()
		p.fetchBg()

	case p.Cycle == 337:
		// The second prefetched tile enters the shifters here.
		p.reloadShifters()
	}
}

// fetchBg performs the per-dot background memory access, 4 fetches spread
// over each 8-dot tile slot, and reloads the shifters on slot boundaries.
func (p *PPU) fetchBg() {
	switch (p.Cycle - 1) & 7 {
	case 0:
		if p.Cycle != 1 && p.Cycle != 321 {
			p.reloadShifters()
		}
		p.bg.nt = p.Bus.Read8(0x2000|p.vramAddr.val()&0x0FFF, false)
	case 2:
		v := p.vramAddr.val()
		addr := 0x23C0 | (v & 0x0C00) | ((v >> 4) & 0x38) | ((v >> 2) & 0x07)
		shift := ((v >> 4) & 4) | (v & 2)
		p.bg.at = (p.Bus.Read8(addr, false) >> shift) & 0x3
	case 4:
		addr := uint16(p.ctrl&(1<<backgroundAddr))<<8 | uint16(p.bg.nt)<<4 | uint16(p.vramAddr.finey())
		p.bg.bgLo = p.Bus.Read8(addr, false)
	case 6:
		addr := uint16(p.ctrl&(1<<backgroundAddr))<<8 | uint16(p.bg.nt)<<4 | uint16(p.vramAddr.finey())
		p.bg.bgHi = p.Bus.Read8(addr|8, false)
	case 7:
		p.vramAddr.incX()
	}
}

func (p *PPU) reloadShifters() {
	p.bg.bgShiftLo = (p.bg.bgShiftLo & 0xFF00) | uint16(p.bg.bgLo)
	p.bg.bgShiftHi = (p.bg.bgShiftHi & 0xFF00) | uint16(p.bg.bgHi)
	p.bg.atLatchLo = p.bg.at&1 != 0
	p.bg.atLatchHi = p.bg.at&2 != 0
}

func (p *PPU) shiftBg() {
	p.bg.bgShiftLo <<= 1
	p.bg.bgShiftHi <<= 1
	p.bg.atShiftLo = p.bg.atShiftLo<<1 | b2u8(p.bg.atLatchLo)
	p.bg.atShiftHi = p.bg.atShiftHi<<1 | b2u8(p.bg.atLatchHi)
}

// bgPixel returns the current 4-bit background color (palette | color).
func (p *PPU) bgPixel(x int) uint8 {
	if p.mask&(1<<showBg) == 0 || (x < 8 && p.mask&(1<<leftmostBg) == 0) {
		return 0
	}

	shift := 15 - p.bg.finex
	pix := uint8(p.bg.bgShiftLo>>shift)&1 | (uint8(p.bg.bgShiftHi>>shift)&1)<<1
	if pix == 0 {
		return 0
	}

	atShift := 7 - p.bg.finex
	attr := p.bg.atShiftLo>>atShift&1 | (p.bg.atShiftHi>>atShift&1)<<1
	return attr<<2 | pix
}

// spritePixel scans the 8 slots in priority order and returns the first
// opaque sprite pixel at x, its attributes and whether it is sprite 0.
func (p *PPU) spritePixel(x int) (pix, attr uint8, zero bool) {
	if p.mask&(1<<showSprites) == 0 || (x < 8 && p.mask&(1<<leftmostSprites) == 0) {
		return 0, 0, false
	}

	for i := 0; i < p.spriteCount; i++ {
		spr := &p.sprites[i]
		off := x - int(spr.x)
		if off < 0 || off > 7 {
			continue
		}
		c := spr.dataL>>(7-off)&1 | (spr.dataH>>(7-off)&1)<<1
		if c == 0 {
			continue
		}
		return (spr.attr&0x3)<<2 | c, spr.attr, spr.zero
	}
	return 0, 0, false
}

func (p *PPU) drawPixel(x int) {
	bg := p.bgPixel(x)
	spr, attr, zero := p.spritePixel(x)

	var idx uint8
	switch {
	case bg == 0 && spr == 0:
		idx = 0
	case bg == 0:
		idx = 0x10 | spr
	case spr == 0:
		idx = bg
	default:
		// Both opaque: sprite 0 hit, then the sprite priority bit decides.
		if zero && x < 255 {
			p.status |= 1 << sprite0Hit
		}
		if attr&0x20 == 0 {
			idx = 0x10 | spr
		} else {
			idx = bg
		}
	}

	p.putPixel(x, p.Scanline, p.readPalette(idx))
}

func (p *PPU) putPixel(x, y int, palIdx uint8) {
	if p.framebuf == nil {
		return
	}
	if p.mask&(1<<greyscale) != 0 {
		palIdx &= 0x30
	}
	argb := nesPalette[palIdx&0x3F]
	p.framebuf[y*NTSCWidth+x] = emphasize(argb, p.mask>>5)
}

// evaluateSprites fills the 8 sprite slots for the next scanline,
// fetching and flipping the pattern bytes. More than 8 in-range sprites
// set the overflow flag.
func (p *PPU) evaluateSprites() {
	target := p.Scanline + 1
	if p.Scanline == p.totalScanlines-1 {
		target = 0
	}

	height := 8
	if p.ctrl&(1<<spriteSize) != 0 {
		height = 16
	}

	p.spriteCount = 0
	for i := 0; i < 64; i++ {
		y := int(p.oam[i*4])
		if target < y || target >= y+height {
			continue
		}
		if p.spriteCount == 8 {
			p.status |= 1 << spriteOverflow
			break
		}

		tile := p.oam[i*4+1]
		attr := p.oam[i*4+2]

		row := target - y
		if attr&0x80 != 0 { // vertical flip
			row = height - 1 - row
		}

		var addr uint16
		if height == 16 {
			// 8x16: pattern table from tile bit 0.
			table := uint16(tile&1) << 12
			t := uint16(tile & 0xFE)
			if row >= 8 {
				t++
				row -= 8
			}
			addr = table | t<<4 | uint16(row)
		} else {
			table := uint16(p.ctrl&(1<<spriteAddr)) << 9
			addr = table | uint16(tile)<<4 | uint16(row)
		}

		dataL := p.Bus.Read8(addr, false)
		dataH := p.Bus.Read8(addr|8, false)
		if attr&0x40 != 0 { // horizontal flip
			dataL = reverseByte(dataL)
			dataH = reverseByte(dataH)
		}

		p.sprites[p.spriteCount] = sprite{
			x:     p.oam[i*4+3],
			attr:  attr,
			dataL: dataL,
			dataH: dataH,
			zero:  i == 0,
		}
		p.spriteCount++
	}
}

func reverseByte(b uint8) uint8 {
	b = b&0xF0>>4 | b&0x0F<<4
	b = b&0xCC>>2 | b&0x33<<2
	b = b&0xAA>>1 | b&0x55<<1
	return b
}

/* palette RAM */

// readPalette reads palette RAM; entries $10/$14/$18/$1C mirror
// $00/$04/$08/$0C.
func (p *PPU) readPalette(idx uint8) uint8 {
	idx &= 0x1F
	if idx&0x13 == 0x10 {
		idx &= 0x0F
	}
	return p.palette[idx]
}

func (p *PPU) writePalette(idx, val uint8) {
	idx &= 0x1F
	if idx&0x13 == 0x10 {
		idx &= 0x0F
	}
	p.palette[idx] = val & 0x3F
}

/* open bus */

func (p *PPU) refreshOpenBus(val uint8) {
	p.openbus = val
	p.openbusDecay = 0
}

// decayOpenBus zeroes the open bus latch when it hasn't been refreshed
// for about 600ms (36 NTSC frames). A coarse single timer, not per-bit.
func (p *PPU) decayOpenBus() {
	p.openbusDecay++
	if p.openbusDecay > 36 {
		p.openbus = 0
		p.openbusDecay = 0
	}
}

/* VRAM access through $2007 */

func (p *PPU) readVRAM() uint8 {
	addr := p.vramAddr.addr()

	var val uint8
	if addr >= 0x3F00 {
		// Palette reads are immediate; the read buffer still loads the
		// nametable byte underneath.
		val = p.readPalette(uint8(addr & 0x1F))
		p.ppuDataRbuf = p.Bus.Read8(addr-0x1000, false)
	} else {
		val = p.ppuDataRbuf
		p.ppuDataRbuf = p.Bus.Read8(addr, false)
	}

	p.incVRAMaddr()
	log.ModPPU.DebugZ("VRAM read").
		Hex16("addr", addr).
		Hex8("val", val).
		End()
	return val
}

func (p *PPU) writeVRAM(val uint8) {
	addr := p.vramAddr.addr()
	if addr >= 0x3F00 {
		p.writePalette(uint8(addr&0x1F), val)
	} else {
		p.Bus.Write8(addr, val)
	}
	p.incVRAMaddr()

	log.ModPPU.DebugZ("VRAM write").
		Hex16("addr", addr).
		Hex8("val", val).
		End()
}

func (p *PPU) incVRAMaddr() {
	incr := loopy(1)
	if p.ctrl&(1<<vramIncr) != 0 {
		incr = 32
	}
	p.vramAddr = (p.vramAddr + incr) & 0x7FFF
}
