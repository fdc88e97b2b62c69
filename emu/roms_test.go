package emu

import (
	"os"
	"path/filepath"
	"testing"

	"nescore/ines"
	"nescore/tests"
)

// TestNestest runs the nestest rom in automation mode (PC forced to
// $C000): 8991 instructions covering every documented opcode and the
// common unofficial set, reporting failures in $02/$03.
func TestNestest(t *testing.T) {
	if testing.Short() {
		t.Skip("requires the nes-test-roms suite")
	}

	romPath := filepath.Join(tests.RomsPath(t), "other", "nestest.nes")
	if _, err := os.Stat(romPath); err != nil {
		t.Skip("nestest.nes not available")
	}

	rom, err := ines.ReadRom(romPath)
	if err != nil {
		t.Fatal(err)
	}

	nes, err := PowerUp(rom, nil)
	if err != nil {
		t.Fatal(err)
	}

	// nestest.nes has an 'automation' mode: PC must be set to $C000
	// (instead of $C004 for graphic mode).
	nes.CPU.PC = 0xC000

	for i := 0; i < 8991; i++ {
		if nes.CPU.StepInstruction() == 0 {
			t.Fatalf("CPU jammed at $%04X after %d instructions", nes.CPU.PC, i)
		}
	}

	if res := nes.CPU.Bus.Peek8(0x02); res != 0 {
		t.Errorf("documented opcode tests failed with code $%02X (see nestest.txt)", res)
	}
	if res := nes.CPU.Bus.Peek8(0x03); res != 0 {
		t.Errorf("unofficial opcode tests failed with code $%02X (see nestest.txt)", res)
	}
}
