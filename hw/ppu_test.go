package hw

import (
	"testing"
)

func newTestConsole(tb testing.TB) (*CPU, *PPU) {
	tb.Helper()

	ppu := NewPPU()
	ppu.InitBus()
	ppu.CreateScreen()

	cpu := NewCPU(ppu)
	cpu.InitBus()

	// Nametable RAM, straight vertical mirroring.
	ppu.Bus.MapMemorySlice(0x2000, 0x27FF, ppu.NTRAM[:], false)
	ppu.Bus.MapMemorySlice(0x2800, 0x2FFF, ppu.NTRAM[:], false)
	return cpu, ppu
}

func TestPPUScroll(t *testing.T) {
	cpu, ppu := newTestConsole(t)

	ppu.vramTmp = 0xffff

	// Write to PPUCTRL
	cpu.Write8(0x2000, 0)
	if got := ppu.vramTmp.nametable(); got != 0b00 {
		t.Errorf("t.nametable = 0b%08b, want 0b00", got)
	}

	// Read from PPUSTATUS
	_ = cpu.Read8(0x2002)
	if ppu.writeLatch {
		t.Errorf("writeLatch = %t, want false", ppu.writeLatch)
	}

	// First write to PPUSCROLL
	cpu.Write8(0x2005, 0b01111_101)
	if got := ppu.vramTmp.coarsex(); got != 0b01111 {
		t.Errorf("t.coarsex = 0b%08b, want 0b01111", got)
	}
	if ppu.bg.finex != 0b101 {
		t.Errorf("finex = 0b%08b, want 0b101", ppu.bg.finex)
	}
	if !ppu.writeLatch {
		t.Errorf("writeLatch = %t, want true", ppu.writeLatch)
	}

	// Second write to PPUSCROLL
	cpu.Write8(0x2005, 0b01011_110)
	if got := ppu.vramTmp.coarsey(); got != 0b01011 {
		t.Errorf("t.coarsey = 0b%08b, want 0b01011", got)
	}
	if got := ppu.vramTmp.finey(); got != 0b110 {
		t.Errorf("t.finey = 0b%08b, want 0b110", got)
	}
	if ppu.writeLatch {
		t.Errorf("writeLatch = %t, want false", ppu.writeLatch)
	}

	// First write to PPUADDR
	cpu.Write8(0x2006, 0b00_111101)
	if got := ppu.vramTmp.high(); got != 0b111101 {
		t.Errorf("t.high = %08b, want 0b111101", got)
	}

	// Second write to PPUADDR
	cpu.Write8(0x2006, 0b11110000)
	if got := ppu.vramTmp.low(); got != 0b11110000 {
		t.Errorf("t.low = %08b, want 0b11110000", got)
	}
	// After t is updated, contents of t are copied into v
	if ppu.vramTmp.val() != ppu.vramAddr.val() {
		t.Errorf("v != t")
	}
}

func TestPaletteMirrors(t *testing.T) {
	cpu, ppu := newTestConsole(t)

	// Write $3F10 through PPUADDR/PPUDATA: $3F00 must mirror it.
	cpu.Write8(0x2006, 0x3F)
	cpu.Write8(0x2006, 0x10)
	cpu.Write8(0x2007, 0x2A)

	if got := ppu.readPalette(0x00); got != 0x2A {
		t.Errorf("palette[$00] = %02X, want 2A (mirror of $10)", got)
	}
	if got := ppu.readPalette(0x10); got != 0x2A {
		t.Errorf("palette[$10] = %02X, want 2A", got)
	}

	// And the other way around.
	cpu.Write8(0x2006, 0x3F)
	cpu.Write8(0x2006, 0x04)
	cpu.Write8(0x2007, 0x15)
	if got := ppu.readPalette(0x14); got != 0x15 {
		t.Errorf("palette[$14] = %02X, want 15 (mirror of $04)", got)
	}
}

func TestPPUDataReadBuffer(t *testing.T) {
	cpu, ppu := newTestConsole(t)
	ppu.NTRAM[0x005] = 0xAB
	ppu.NTRAM[0x006] = 0xCD

	cpu.Write8(0x2006, 0x20)
	cpu.Write8(0x2006, 0x05)

	// First read returns the stale buffer, second the actual byte.
	_ = cpu.Read8(0x2007)
	if got := cpu.Read8(0x2007); got != 0xAB {
		t.Errorf("buffered read = %02X, want AB", got)
	}
	if got := cpu.Read8(0x2007); got != 0xCD {
		t.Errorf("buffered read = %02X, want CD", got)
	}
}

func TestVBlankEdge(t *testing.T) {
	_, ppu := newTestConsole(t)

	stepTo := func(scanline int, dot uint32) {
		for ppu.Scanline != scanline || ppu.Cycle != dot {
			ppu.step()
		}
	}

	stepTo(vblankScanline, 1)
	if ppu.status&(1<<vblank) != 0 {
		t.Fatal("vblank should not be set before 241/1")
	}
	ppu.step() // process dot 1
	if ppu.status&(1<<vblank) == 0 {
		t.Fatal("vblank should be set at scanline 241, dot 1")
	}

	stepTo(NTSCScanlines-1, 1)
	if ppu.status&(1<<vblank) == 0 {
		t.Fatal("vblank should still be set right before pre-render dot 1")
	}
	ppu.step() // process pre-render dot 1
	if ppu.status&(1<<vblank) != 0 {
		t.Fatal("vblank should be cleared at pre-render dot 1")
	}
}

// An NTSC frame with rendering disabled is exactly 341*262 dots; with
// rendering enabled, every other frame drops one dot.
func TestFrameLength(t *testing.T) {
	_, ppu := newTestConsole(t)

	countFrame := func() int {
		dots := 0
		for !ppu.frameComplete {
			ppu.step()
			dots++
		}
		ppu.frameComplete = false
		return dots
	}

	// Rendering disabled: every frame has the full dot count.
	if got := countFrame(); got != 341*262 {
		t.Errorf("frame 0 (rendering off) = %d dots, want %d", got, 341*262)
	}
	if got := countFrame(); got != 341*262 {
		t.Errorf("frame 1 (rendering off) = %d dots, want %d", got, 341*262)
	}

	// Rendering enabled: odd frames are one dot short.
	ppu.mask = 1 << showBg
	f0, f1 := countFrame(), countFrame()
	if f0+f1 != 2*341*262-1 {
		t.Errorf("two rendered frames = %d+%d dots, want %d total", f0, f1, 2*341*262-1)
	}
}

func TestNMIOnCtrlWrite(t *testing.T) {
	cpu, ppu := newTestConsole(t)

	// While the vblank flag is set, enabling the NMI bit raises NMI
	// immediately.
	ppu.status |= 1 << vblank
	cpu.Write8(0x2000, 0x80)
	if !cpu.nmiFlag {
		t.Fatal("NMI should be raised when enabling the bit during vblank")
	}

	// Disabling releases the line; re-enabling raises it again.
	cpu.Write8(0x2000, 0x00)
	if cpu.nmiFlag {
		t.Fatal("NMI line should drop when the enable bit is cleared")
	}
	cpu.Write8(0x2000, 0x80)
	if !cpu.nmiFlag {
		t.Fatal("NMI should be raised again")
	}

	// Writing 0x80 twice keeps the line asserted: the CPU's edge detector
	// sees a single low-to-high transition, so only one NMI is serviced.
	cpu.Write8(0x2000, 0x80)
	if !cpu.nmiFlag {
		t.Fatal("NMI line should still be asserted")
	}
	if !cpu.needNmi {
		t.Fatal("the edge should have been latched")
	}
}
