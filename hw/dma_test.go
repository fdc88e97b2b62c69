package hw

import (
	"testing"

	"nescore/hw/input"
)

// OAM DMA round trip: after a $4014 write, the PPU's OAM holds the whole
// source page and the CPU lost 513 (or 514 on odd alignment) cycles.
func TestOAMDMA(t *testing.T) {
	cpu, ppu := newTestConsole(t)

	// Fill page $03 with a recognizable pattern.
	for i := 0; i < 256; i++ {
		cpu.Bus.Write8(0x0300+uint16(i), uint8(255-i))
	}
	// A couple of NOPs to execute around the transfer.
	cpu.Bus.Write8(0x0000, 0xEA)
	cpu.Bus.Write8(0x0001, 0xEA)
	cpu.PC = 0x0000

	cpu.Write8(0x4014, 0x03)

	start := cpu.Clock
	cpu.StepInstruction() // the DMA runs before the next opcode fetch
	elapsed := cpu.Clock - start

	const nop = 2
	if elapsed != 513+nop && elapsed != 514+nop {
		t.Errorf("DMA + NOP = %d cycles, want %d or %d", elapsed, 513+nop, 514+nop)
	}

	for i := 0; i < 256; i++ {
		if got, want := ppu.oam[i], uint8(255-i); got != want {
			t.Fatalf("oam[%d] = %02X, want %02X", i, got, want)
		}
	}
}

type padStub uint8

func (p padStub) Buttons() uint8 { return uint8(p) }

// Controller strobe round trip: writing 1 then 0 to $4016 latches the
// buttons; eight reads shift them out, A first.
func TestControllerStrobe(t *testing.T) {
	cpu, _ := newTestConsole(t)

	provider := input.NewProvider(input.Config{})
	provider.Plug(0, padStub(0b1010_0110)) // A=0,B=1,Sel=1,Sta=0,U=0,D=1,L=0,R=1
	cpu.PlugInputDevice(provider)

	cpu.Write8(0x4016, 1)
	cpu.Write8(0x4016, 0)

	want := []uint8{0, 1, 1, 0, 0, 1, 0, 1}
	for i, w := range want {
		got := cpu.Read8(0x4016)
		if got&1 != w {
			t.Errorf("read %d = %d, want %d", i, got&1, w)
		}
		if got&0x40 == 0 {
			t.Errorf("read %d: open bus bit 6 should be set", i)
		}
	}

	// Further reads report 1 on a standard controller.
	for i := 0; i < 3; i++ {
		if got := cpu.Read8(0x4016); got&1 != 1 {
			t.Errorf("post-exhaustion read = %d, want 1", got&1)
		}
	}
}
