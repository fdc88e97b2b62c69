package mappers_test

import (
	"bytes"
	"testing"

	"nescore/hw"
	"nescore/hw/hwdefs"
	"nescore/hw/mappers"
	"nescore/ines"
)

// buildRom assembles an in-memory iNES image.
func buildRom(tb testing.TB, mapper uint16, prgBanks, chrBanks int) *ines.Rom {
	tb.Helper()

	var buf bytes.Buffer
	buf.WriteString(ines.Magic)
	flags6 := uint8(mapper&0x0F) << 4
	flags7 := uint8(mapper & 0xF0)
	buf.Write([]byte{uint8(prgBanks), uint8(chrBanks), flags6, flags7})
	buf.Write(make([]byte, 8))

	prg := make([]byte, prgBanks*16384)
	for i := range prg {
		prg[i] = uint8(i / 8192) // stamp each 8KiB bank with its index
	}
	buf.Write(prg)
	buf.Write(make([]byte, chrBanks*8192))

	rom := new(ines.Rom)
	if _, err := rom.ReadFrom(bytes.NewReader(buf.Bytes())); err != nil {
		tb.Fatal(err)
	}
	return rom
}

func newConsole(tb testing.TB, rom *ines.Rom) (*hw.CPU, *hw.PPU) {
	tb.Helper()

	ppu := hw.NewPPU()
	ppu.InitBus()
	cpu := hw.NewCPU(ppu)
	cpu.InitBus()

	if err := mappers.Load(rom, cpu, ppu); err != nil {
		tb.Fatal(err)
	}
	return cpu, ppu
}

func TestLoadUnsupportedMapper(t *testing.T) {
	rom := buildRom(t, 99, 1, 1)
	ppu := hw.NewPPU()
	ppu.InitBus()
	cpu := hw.NewCPU(ppu)
	cpu.InitBus()

	if err := mappers.Load(rom, cpu, ppu); err == nil {
		t.Fatal("expected an error for an unsupported mapper")
	}
}

func TestNROMMirrorsSmallPRG(t *testing.T) {
	rom := buildRom(t, 0, 1, 1) // 16KiB PRG appears at both $8000 and $C000
	cpu, _ := newConsole(t, rom)

	if got, want := cpu.Bus.Peek8(0x8000), cpu.Bus.Peek8(0xC000); got != want {
		t.Errorf("$8000 = %02X, $C000 = %02X, want mirrors", got, want)
	}
}

func TestMMC3PRGBanking(t *testing.T) {
	rom := buildRom(t, 4, 8, 1) // 128KiB PRG = 16 x 8KiB banks
	cpu, _ := newConsole(t, rom)

	// Select R6 (bank at $8000) = 5.
	cpu.Bus.Write8(0x8000, 6)
	cpu.Bus.Write8(0x8001, 5)

	if got := cpu.Bus.Peek8(0x8000); got != 5 {
		t.Errorf("$8000 bank stamp = %d, want 5", got)
	}
	// Last bank is fixed at $E000.
	if got := cpu.Bus.Peek8(0xE000); got != 15 {
		t.Errorf("$E000 bank stamp = %d, want 15", got)
	}

	// PRG mode 1 swaps $8000 and $C000.
	cpu.Bus.Write8(0x8000, 6|0x40)
	if got := cpu.Bus.Peek8(0xC000); got != 5 {
		t.Errorf("mode 1: $C000 bank stamp = %d, want 5", got)
	}
	if got := cpu.Bus.Peek8(0x8000); got != 14 {
		t.Errorf("mode 1: $8000 bank stamp = %d, want 14 (second-to-last)", got)
	}
}

// MMC3 IRQ: with latch=5 and the counter at 0, the 1st A12 rising edge
// reloads, the next five count down, and the IRQ fires exactly on the 6th.
func TestMMC3IRQ(t *testing.T) {
	rom := buildRom(t, 4, 2, 1)
	cpu, ppu := newConsole(t, rom)

	cpu.Bus.Write8(0xC000, 5) // latch
	cpu.Bus.Write8(0xE001, 0) // enable IRQ

	// One filtered A12 rising edge: pattern fetches from $0xxx (A12 low)
	// then $1xxx (A12 high), separated by enough CPU cycles.
	edge := func() {
		for i := 0; i < 4; i++ {
			cpu.BurnCycle()
		}
		ppu.Bus.Read8(0x0000, false)
		ppu.Bus.Read8(0x1000, false)
	}

	for i := 1; i <= 5; i++ {
		edge()
		if cpu.HasIRQSource(hwdefs.External) {
			t.Fatalf("IRQ raised after %d edges, want 6", i)
		}
	}

	edge()
	if !cpu.HasIRQSource(hwdefs.External) {
		t.Fatal("IRQ should be raised on the 6th edge")
	}

	// $E000 acknowledges and disables.
	cpu.Bus.Write8(0xE000, 0)
	if cpu.HasIRQSource(hwdefs.External) {
		t.Fatal("IRQ should be acknowledged by $E000")
	}
}

// Rapid consecutive rises (like the 8 sprite fetches of one scanline)
// count as a single edge.
func TestMMC3A12Filter(t *testing.T) {
	rom := buildRom(t, 4, 2, 1)
	cpu, ppu := newConsole(t, rom)

	cpu.Bus.Write8(0xC000, 1)
	cpu.Bus.Write8(0xE001, 0)

	for i := 0; i < 4; i++ {
		cpu.BurnCycle()
	}

	// reload edge
	ppu.Bus.Read8(0x0000, false)
	ppu.Bus.Read8(0x1000, false)

	// 8 back-to-back fetches with no CPU time in between: one more edge
	// would fire the IRQ (latch=1), more than one would have fired it
	// during the burst.
	for i := 0; i < 8; i++ {
		ppu.Bus.Read8(0x0000, false)
		ppu.Bus.Read8(0x1000, false)
	}
	if cpu.HasIRQSource(hwdefs.External) {
		t.Fatal("burst of rises should count as at most one filtered edge")
	}
}
