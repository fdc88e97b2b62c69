package emu

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nescore/ines"
)

// buildNROM assembles a 16KiB NROM image: code is placed at $8000 and the
// vectors patched in (reset=$8000 unless the code overrides $3FFC/D).
func buildNROM(tb testing.TB, code []byte) *ines.Rom {
	tb.Helper()

	prg := make([]byte, 16384)
	copy(prg, code)

	// reset vector -> $8000 unless set.
	if prg[0x3FFC] == 0 && prg[0x3FFD] == 0 {
		prg[0x3FFC], prg[0x3FFD] = 0x00, 0x80
	}

	var buf bytes.Buffer
	buf.WriteString(ines.Magic)
	buf.Write([]byte{1, 1, 0, 0})
	buf.Write(make([]byte, 8))
	buf.Write(prg)
	buf.Write(make([]byte, 8192))

	rom := new(ines.Rom)
	if _, err := rom.ReadFrom(bytes.NewReader(buf.Bytes())); err != nil {
		tb.Fatal(err)
	}
	return rom
}

func TestResetVector(t *testing.T) {
	code := make([]byte, 0x4000)
	code[0x3FFC], code[0x3FFD] = 0x05, 0x80 // reset -> $8005
	code[0x5] = 0xEA                        // NOP at $8005

	rom := buildNROM(t, code)
	nes, err := PowerUp(rom, nil)
	if err != nil {
		t.Fatal(err)
	}

	if nes.CPU.PC != 0x8005 {
		t.Errorf("PC = $%04X, want $8005", nes.CPU.PC)
	}
	if nes.CPU.SP != 0xFD {
		t.Errorf("SP = $%02X, want $FD", nes.CPU.SP)
	}
	if !nes.CPU.P.IntDisable() {
		t.Error("I flag should be set after reset")
	}
}

// An infinite JMP loop: frames keep completing and the PPU advances
// exactly 3 dots per CPU cycle.
func TestRunFrameCycleRatio(t *testing.T) {
	// $8000: JMP $8000
	rom := buildNROM(t, []byte{0x4C, 0x00, 0x80})
	nes, err := PowerUp(rom, nil)
	if err != nil {
		t.Fatal(err)
	}

	const dotsPerFrame = 341 * 262

	dots := func() int64 {
		return int64(nes.PPU.FrameCount)*dotsPerFrame +
			int64(nes.PPU.Scanline)*341 + int64(nes.PPU.Cycle)
	}

	d0, c0 := dots(), nes.CPU.Clock
	frame := nes.RunFrame()
	d1, c1 := dots(), nes.CPU.Clock

	if len(frame) != 256*240 {
		t.Fatalf("framebuffer size = %d, want %d", len(frame), 256*240)
	}

	dotDelta, cycDelta := d1-d0, c1-c0
	if dotDelta != 3*cycDelta {
		t.Errorf("PPU advanced %d dots over %d CPU cycles, want exactly 3:1", dotDelta, cycDelta)
	}
	if cycDelta < 29000 || cycDelta > 30500 {
		t.Errorf("frame consumed %d CPU cycles, expected around 29780", cycDelta)
	}
}

// A jammed CPU stops executing but frames still complete.
func TestRunFrameWithJammedCPU(t *testing.T) {
	// $8000: KIL
	rom := buildNROM(t, []byte{0x02})
	nes, err := PowerUp(rom, nil)
	if err != nil {
		t.Fatal(err)
	}

	f0 := nes.PPU.FrameCount
	nes.RunFrame()
	if !nes.CPU.IsHalted() {
		t.Fatal("CPU should be jammed")
	}
	if nes.PPU.FrameCount != f0+1 {
		t.Fatalf("frame count = %d, want %d", nes.PPU.FrameCount, f0+1)
	}
	if nes.CPU.PC != 0x8000 {
		t.Errorf("PC = $%04X, want $8000 (held on the jam byte)", nes.CPU.PC)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	rom := buildNROM(t, []byte{0x4C, 0x00, 0x80})
	nes, err := PowerUp(rom, nil)
	if err != nil {
		t.Fatal(err)
	}
	nes.RunFrame()

	var buf bytes.Buffer
	if err := nes.SaveSnapshot(&buf); err != nil {
		t.Fatal(err)
	}

	wantCPU := nes.CPU.State()
	wantPPU := nes.PPU.State()

	// Diverge, then restore.
	nes.RunFrame()
	nes.RunFrame()

	if err := nes.LoadSnapshot(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(wantCPU, nes.CPU.State()); diff != "" {
		t.Errorf("CPU state not restored (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantPPU, nes.PPU.State()); diff != "" {
		t.Errorf("PPU state not restored (-want +got):\n%s", diff)
	}
}

func TestLoadSnapshotCorrupt(t *testing.T) {
	rom := buildNROM(t, []byte{0x4C, 0x00, 0x80})
	nes, err := PowerUp(rom, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := nes.LoadSnapshot(bytes.NewReader([]byte("not a snapshot"))); err == nil {
		t.Fatal("expected an error for a corrupt snapshot")
	}
}

// The NMI handler runs once per frame when enabled during vblank.
func TestNMIDelivery(t *testing.T) {
	// $8000: LDA #$80, STA $2000, JMP $8005 (spin)
	// NMI handler at $8200: INC $10, RTI
	code := []byte{
		0xA9, 0x80, // LDA #$80
		0x8D, 0x00, 0x20, // STA $2000
		0x4C, 0x05, 0x80, // JMP $8005
	}
	prg := make([]byte, 0x4000)
	copy(prg, code)
	prg[0x0200] = 0xE6 // INC $10
	prg[0x0201] = 0x10
	prg[0x0202] = 0x40 // RTI
	prg[0x3FFA], prg[0x3FFB] = 0x00, 0x82 // NMI -> $8200
	prg[0x3FFC], prg[0x3FFD] = 0x00, 0x80

	rom := buildNROM(t, prg)
	nes, err := PowerUp(rom, nil)
	if err != nil {
		t.Fatal(err)
	}

	nes.RunFrame()
	nes.RunFrame()
	nes.RunFrame()

	count := nes.CPU.Bus.Peek8(0x10)
	if count < 2 || count > 4 {
		t.Errorf("NMI handler ran %d times over 3 frames, want ~3", count)
	}
}
