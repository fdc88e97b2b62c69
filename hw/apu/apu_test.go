package apu

import (
	"testing"

	"nescore/hw/hwdefs"
)

// fakeCPU satisfies the cpu interface without a full 6502 around it.
type fakeCPU struct {
	cycle int64
	irq   hwdefs.IRQSource
	dmc   int // StartDMCTransfer call count
}

func (f *fakeCPU) HasIRQSource(src hwdefs.IRQSource) bool { return f.irq&src != 0 }
func (f *fakeCPU) SetIRQSource(src hwdefs.IRQSource)      { f.irq |= src }
func (f *fakeCPU) ClearIRQSource(src hwdefs.IRQSource)    { f.irq &= ^src }
func (f *fakeCPU) CurrentCycle() int64                    { return f.cycle }
func (f *fakeCPU) StartDMCTransfer()                      { f.dmc++ }
func (f *fakeCPU) StopDMCTransfer()                       {}

func newTestAPU(tb testing.TB) (*APU, *fakeCPU) {
	tb.Helper()

	cpu := &fakeCPU{}
	a := New(cpu, NewMixer(nil))
	a.Reset(hwdefs.HardReset)
	return a, cpu
}

// tick advances the APU by n CPU cycles.
func tick(a *APU, cpu *fakeCPU, n int) {
	for i := 0; i < n; i++ {
		cpu.cycle++
		a.Tick()
	}
}

// In 4-step mode the frame IRQ is raised at cycle 29829 of the sequence.
func TestFrameCounterIRQ(t *testing.T) {
	a, cpu := newTestAPU(t)

	tick(a, cpu, 29820)
	a.Run()
	if cpu.HasIRQSource(hwdefs.FrameCounter) {
		t.Fatal("frame IRQ too early")
	}

	tick(a, cpu, 20)
	a.Run()
	if !cpu.HasIRQSource(hwdefs.FrameCounter) {
		t.Fatal("frame IRQ should be set at the end of the 4-step sequence")
	}

	// Reading $4015 clears it.
	if st := a.ReadSTATUS(0); st&0x40 == 0 {
		t.Fatal("status bit 6 should report the frame IRQ")
	}
	if cpu.HasIRQSource(hwdefs.FrameCounter) {
		t.Fatal("reading $4015 should clear the frame IRQ")
	}
}

// Setting the inhibit bit ($4017 bit 6) prevents the frame IRQ.
func TestFrameCounterIRQInhibit(t *testing.T) {
	a, cpu := newTestAPU(t)

	a.WriteFrameCounterReg(0, 0x40)
	tick(a, cpu, 30000)
	a.Run()
	if cpu.HasIRQSource(hwdefs.FrameCounter) {
		t.Fatal("frame IRQ should be inhibited")
	}
}

// 5-step mode never raises the IRQ.
func TestFrameCounter5Step(t *testing.T) {
	a, cpu := newTestAPU(t)

	a.WriteFrameCounterReg(0, 0x80)
	tick(a, cpu, 40000)
	a.Run()
	if cpu.HasIRQSource(hwdefs.FrameCounter) {
		t.Fatal("no IRQ in 5-step mode")
	}
}

// The length counter silences a channel after the right number of
// half-frame clocks.
func TestPulseLengthCounter(t *testing.T) {
	a, cpu := newTestAPU(t)

	a.WriteSTATUS(0, 0x01)            // enable pulse 1
	a.Square1.WriteDUTY(0, 0x10)      // constant volume, no halt
	a.Square1.WriteTIMER(0, 0x80)     // period > 8 so the channel is audible
	a.Square1.WriteLENGTH(0, 0x18<<3) // length index 0x18 loads 192

	tick(a, cpu, 1) // the length reload takes effect on the next APU cycle
	a.Run()
	if st := a.Status(); st&0x01 == 0 {
		t.Fatal("pulse 1 length counter should be loaded")
	}

	a.WriteSTATUS(0, 0x00) // disabling zeroes the length counter
	a.Run()
	if st := a.Status(); st&0x01 != 0 {
		t.Fatal("pulse 1 should be silenced when disabled")
	}
}

// Length counter index 3 loads the value 2: two half-frames empty it.
func TestPulseLengthCounterExpires(t *testing.T) {
	a, cpu := newTestAPU(t)

	a.WriteSTATUS(0, 0x01)
	a.Square1.WriteDUTY(0, 0x10)
	a.Square1.WriteTIMER(0, 0x80)
	a.Square1.WriteLENGTH(0, 3<<3)

	tick(a, cpu, 1) // the length reload takes effect on the next APU cycle
	a.Run()
	if a.Status()&0x01 == 0 {
		t.Fatal("length counter should be nonzero after load")
	}

	// Run past two half-frame clocks (14913 and 29829).
	tick(a, cpu, 30000)
	a.Run()
	if a.Status()&0x01 != 0 {
		t.Fatal("length counter should have expired after two half-frames")
	}
}

// DMC: enabling with a sample length schedules a DMA fetch.
func TestDMCStartsTransfer(t *testing.T) {
	a, cpu := newTestAPU(t)

	a.DMC.WriteSAMPLEADDR(0, 0x00) // $C000
	a.DMC.WriteSAMPLELEN(0, 0x01)  // 17 bytes
	a.WriteSTATUS(0, 0x10)         // enable DMC

	tick(a, cpu, 8)
	a.Run()
	if cpu.dmc == 0 {
		t.Fatal("enabling the DMC should schedule a sample fetch")
	}
	if a.Status()&0x10 == 0 {
		t.Fatal("status bit 4 should report bytes remaining")
	}
}
