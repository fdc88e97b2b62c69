package hw

import "testing"

func TestPflag(t *testing.T) {
	p := P(0x40)
	p = p.SetIntDisable(true)
	if p != 0x44 {
		t.Errorf("got P = %q, want %q", p.String(), P(0x44))
	}

	p = p.SetBreak(true)
	if p != 0x54 {
		t.Errorf("got P = %q, want %q", p.String(), P(0x54))
	}

	// Negative flag
	p.checkN(0xff)
	if !p.Negative() {
		t.Error("N bit should be set")
	}
	p.checkN(0x7f)
	if p.Negative() {
		t.Error("N bit should not be set")
	}
	p.checkN(0x80)
	if !p.Negative() {
		t.Error("N bit should be set")
	}

	// Zero flag
	p.checkZ(0)
	if !p.Zero() {
		t.Error("Z bit should be set")
	}

	p.checkZ(1)
	if p.Zero() {
		t.Error("Z bit should not be set")
	}

	p.checkZ(0xff)
	if p.Zero() {
		t.Error("Z bit should not be set")
	}
}

func TestPString(t *testing.T) {
	p := P(0b00110100)
	if got := p.String(); got != "nvUBdIzc" {
		t.Errorf("got P = %s, want %s", got, "nvUBdIzc")
	}
	p = P(0b00000100)
	if p.String() != "nvubdIzc" {
		t.Errorf("got P = %s, want %s", p.String(), "nvubdIzc")
	}
}

func TestResetState(t *testing.T) {
	dump := `
0600: ea ea
# reset vector
FFFC: 00 06`
	cpu := loadCPUWith(t, dump)

	if cpu.PC != 0x0600 {
		t.Errorf("PC = $%04X, want $0600", cpu.PC)
	}
	if cpu.SP != 0xFD {
		t.Errorf("SP = $%02X, want $FD", cpu.SP)
	}
	if !cpu.P.IntDisable() {
		t.Error("I flag should be set after reset")
	}
	if cpu.Clock != 7 {
		t.Errorf("Clock = %d, want 7 (reset burns 8 cycles)", cpu.Clock)
	}
}

func TestKILJamsCPU(t *testing.T) {
	dump := `
0600: 02 ea ea
FFFC: 00 06`
	cpu := loadCPUWith(t, dump)

	if n := cpu.StepInstruction(); n == 0 {
		t.Fatal("first step should have executed the KIL")
	}
	if !cpu.IsHalted() {
		t.Fatal("CPU should be jammed after KIL")
	}
	if cpu.PC != 0x0600 {
		t.Errorf("PC = $%04X, want $0600 (rewound onto the jam byte)", cpu.PC)
	}
	if n := cpu.StepInstruction(); n != 0 {
		t.Errorf("jammed CPU executed %d cycles", n)
	}
}

// Interrupt latency: the I flag cleared by CLI only takes effect for IRQ
// recognition after the instruction that follows CLI.
func TestCLILatency(t *testing.T) {
	dump := `
# CLI, NOP, NOP
0600: 58 ea ea
# IRQ vector -> $0700 (RTI)
0700: 40
FFFC: 00 06
FFFE: 00 07`
	cpu := loadCPUWith(t, dump)
	cpu.P.setIntDisable(true)
	cpu.TriggerIRQ()

	cpu.StepInstruction() // CLI: IRQ not yet recognized
	if cpu.PC != 0x0601 {
		t.Fatalf("after CLI, PC = $%04X, want $0601", cpu.PC)
	}

	cpu.StepInstruction() // NOP runs, then the IRQ is serviced
	if cpu.PC != 0x0700 {
		t.Fatalf("after NOP, PC = $%04X, want $0700 (IRQ handler)", cpu.PC)
	}
}

// A pending NMI hijacks BRK's vector.
func TestBRKHijacking(t *testing.T) {
	dump := `
# BRK
0600: 00 00
# IRQ vector -> $0700, NMI vector -> $0750
FFFA: 50 07
FFFC: 00 06
FFFE: 00 07`
	cpu := loadCPUWith(t, dump)
	cpu.TriggerNMI()

	// The NMI edge is detected during BRK's first cycles: BRK pushes as
	// usual but fetches the NMI vector instead.
	cpu.StepInstruction()
	if cpu.PC != 0x0750 {
		t.Fatalf("PC = $%04X, want $0750 (NMI vector)", cpu.PC)
	}
}
