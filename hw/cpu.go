package hw

import (
	"io"

	"nescore/emu/log"
	"nescore/hw/apu"
	"nescore/hw/hwdefs"
	"nescore/hw/hwio"
	"nescore/hw/input"
)

// Locations reserved for vector pointers.
const (
	NMIVector   = uint16(0xFFFA) // Non-Maskable Interrupt
	ResetVector = uint16(0xFFFC) // Reset
	IRQVector   = uint16(0xFFFE) // Interrupt Request
)

type CPU struct {
	Bus *hwio.Table

	RAM hwio.Mem `hwio:"bank=0,offset=0x0,size=0x800,vsize=0x2000"`

	PPU *PPU // non-nil when there's a PPU.
	APU *apu.APU
	DMA DMA

	// Non-nil when execution tracing is enabled.
	tracer *tracer
	dbg    Debugger

	input InputPorts

	Clock       int64 // CPU cycles
	masterClock int64

	// master clock pacing, region dependent.
	clockDivider int64
	startClocks  int64
	endClocks    int64

	// cpu registers
	A, X, Y, SP uint8
	PC          uint16
	P           P

	// interrupt handling
	nmiFlag, prevNmiFlag bool
	needNmi, prevNeedNmi bool
	runIRQ, prevRunIRQ   bool
	irqFlag              hwdefs.IRQSource

	// last value seen on the data bus, returned by undecoded reads.
	openbus uint8

	halted bool
}

// NewCPU creates a new CPU at power-up state, paced for NTSC.
func NewCPU(ppu *PPU) *CPU {
	cpu := &CPU{
		Bus: hwio.NewTable("cpu"),
		A:   0x00,
		X:   0x00,
		Y:   0x00,
		SP:  0xFD,
		P:   0x00,
		PC:  0x0000,
		PPU: ppu,
		dbg: nopDebugger{},
	}
	cpu.SetRegion(hwdefs.NTSC)
	if ppu != nil {
		ppu.CPU = cpu
	}
	return cpu
}

// SetRegion adjusts the master-clock pacing. On NTSC a CPU cycle is 12
// master clocks (3 PPU dots); on PAL it is 16 (3.2 dots).
func (c *CPU) SetRegion(region hwdefs.Region) {
	switch region {
	case hwdefs.PAL:
		c.clockDivider = palCPUDivider
		c.startClocks = palCPUDivider / 2
		c.endClocks = palCPUDivider / 2
	default:
		c.clockDivider = ntscCPUDivider
		c.startClocks = ntscCPUDivider / 2
		c.endClocks = ntscCPUDivider / 2
	}
}

func (c *CPU) PlugInputDevice(ip *input.Provider) {
	c.input.provider = ip
}

func (c *CPU) InitBus() {
	hwio.MustInitRegs(c)
	// CPU internal RAM, mirrored.
	c.Bus.MapBank(0x0000, c, 0)

	// Map the 8 PPU registers (bank 1) from 0x2000 to 0x3FFF.
	if c.PPU != nil {
		for off := uint16(0x2000); off < 0x4000; off += 8 {
			c.Bus.MapBank(off, c.PPU, 1)
		}
	}

	// Map the OAMDMA register.
	c.DMA.InitBus(c)
	c.Bus.MapBank(0x4014, &c.DMA, 0)

	c.input.initBus()
	c.Bus.MapBank(0x4000, &c.input, 0)

	if c.APU != nil {
		c.Bus.MapBank(0x4000, c.APU, 0)
		c.Bus.MapBank(0x4000, &c.APU.Square1, 0)
		c.Bus.MapBank(0x4004, &c.APU.Square2, 0)
		c.Bus.MapBank(0x4000, &c.APU.Noise, 0)
		c.Bus.MapBank(0x4000, &c.APU.Triangle, 0)
		c.Bus.MapBank(0x4000, &c.APU.DMC, 0)
	}

	var reg4017 reg4017
	hwio.MustInitRegs(&reg4017)
	c.Bus.MapBank(0x4017, &reg4017, 0)
	reg4017.Read = c.input.ReadOUT
	if c.APU != nil {
		reg4017.Write = c.APU.WriteFrameCounterReg
	}

	// Undecoded regions read back the last value driven on the bus.
	c.Bus.Unmapped = &hwio.Device{
		Name:    "openbus",
		ReadCb:  func(_ uint16) uint8 { return c.openbus },
		PeekCb:  func(_ uint16) uint8 { return c.openbus },
		WriteCb: func(_ uint16, _ uint8) {},
	}
}

// Used to disambiguate between:
// - read 0x4017 -> reads controller state (OUT register)
// - write 0x4017 -> writes to APU frame counter.
type reg4017 struct {
	Reg   hwio.Reg8 `hwio:"offset=0,rcb,wcb"`
	Write func(old, val uint8)
	Read  func(old uint8) uint8
}

func (r *reg4017) WriteREG(old, val uint8) {
	if r.Write != nil {
		r.Write(old, val)
	}
}

func (r *reg4017) ReadREG(old uint8) uint8 {
	if r.Read != nil {
		return r.Read(old)
	}
	return old
}

func (c *CPU) Reset(soft bool) {
	if soft {
		c.SP -= 0x03
		c.P.setIntDisable(true)
	} else {
		c.A = 0x00
		c.X = 0x00
		c.Y = 0x00
		c.runIRQ = false

		c.SP = 0xFD
		c.P = 0x00
		c.P.setIntDisable(true)
	}

	c.DMA.reset()
	c.halted = false

	// Directly read from the bus to avoid side effects.
	c.PC = hwio.Read16(c.Bus, ResetVector)
	c.dbg.Reset()

	c.Clock = -1
	c.nmiFlag = false
	c.masterClock = c.clockDivider

	// After a reset/power up, the CPU burns 8 cycles before going on with
	// ROM execution.
	for i := 0; i < 8; i++ {
		c.cycleBegin(true)
		c.cycleEnd(true)
	}
}

func (c *CPU) traceOp() {
	if c.tracer != nil {
		state := cpuState{
			A:     c.A,
			X:     c.X,
			Y:     c.Y,
			P:     c.P,
			SP:    c.SP,
			Clock: c.Clock,
			PC:    c.PC,
		}
		if c.PPU != nil {
			state.PPUCycle = c.PPU.Cycle
			state.Scanline = c.PPU.Scanline
		}
		c.tracer.write(state)
	}

	c.dbg.Trace(c.PC)
}

// Run executes instructions until at least ncycles CPU cycles have elapsed
// since the call (or until the CPU jams).
func (c *CPU) Run(ncycles int64) {
	until := c.Clock + ncycles
	for c.Clock < until {
		if c.StepInstruction() == 0 {
			break
		}
	}
}

// StepInstruction executes a single instruction, then services an
// interrupt recognized before its last cycle. It returns the number of CPU
// cycles consumed, interrupt sequence included, or 0 if the CPU is jammed.
func (c *CPU) StepInstruction() int64 {
	if c.halted {
		return 0
	}

	start := c.Clock

	opcode := c.Read8(c.PC)
	c.traceOp()
	c.PC++
	ops[opcode](c)

	if c.halted {
		log.ModCPU.WarnZ("CPU jammed").
			Hex16("PC", c.PC).
			Hex8("opcode", opcode).
			End()
		return c.Clock - start
	}

	if c.prevRunIRQ || c.prevNeedNmi {
		c.IRQ()
	}
	return c.Clock - start
}

func (c *CPU) halt() {
	c.halted = true
	// Rewind onto the jam byte: the CPU makes no further progress.
	c.PC--
}

func (c *CPU) IsHalted() bool {
	return c.halted
}

// BurnCycle advances time by one CPU cycle without executing anything.
// The frame loop uses it to keep the PPU and APU ticking around a jammed
// CPU.
func (c *CPU) BurnCycle() {
	c.cycleBegin(true)
	c.cycleEnd(true)
}

const (
	ntscCPUDivider = 12
	palCPUDivider  = 16

	ppuOffset = 1
)

func (c *CPU) cycleBegin(forRead bool) {
	if forRead {
		c.masterClock += c.startClocks - 1
	} else {
		c.masterClock += c.startClocks + 1
	}
	c.Clock++

	if c.PPU != nil {
		c.PPU.Run(uint64(c.masterClock - ppuOffset))
	}
	if c.APU != nil && c.APU.Enabled() {
		c.APU.Tick()
	}
}

func (c *CPU) cycleEnd(forRead bool) {
	if forRead {
		c.masterClock += c.endClocks + 1
	} else {
		c.masterClock += c.endClocks - 1
	}

	if c.PPU != nil {
		c.PPU.Run(uint64(c.masterClock - ppuOffset))
	}

	c.handleInterrupts()
}

func (c *CPU) Read8(addr uint16) uint8 {
	c.DMA.processPending(addr)
	c.cycleBegin(true)
	val := c.Bus.Read8(addr, false)
	c.cycleEnd(true)
	c.openbus = val
	return val
}

func (c *CPU) Write8(addr uint16, val uint8) {
	c.cycleBegin(false)
	c.openbus = val
	c.Bus.Write8(addr, val)
	c.cycleEnd(false)
}

func (c *CPU) Read16(addr uint16) uint16 {
	lo := c.Read8(addr)
	hi := c.Read8(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) Write16(addr uint16, val uint16) {
	lo := uint8(val & 0xff)
	hi := uint8(val >> 8)
	c.Write8(addr, lo)
	c.Write8(addr+1, hi)
}

/* stack operations */

func (c *CPU) push8(val uint8) {
	top := uint16(c.SP) + 0x0100
	c.Write8(top, val)
	c.SP -= 1
}

func (c *CPU) push16(val uint16) {
	c.push8(uint8(val >> 8))
	c.push8(uint8(val & 0xff))
}

func (c *CPU) pull8() uint8 {
	c.SP++
	top := uint16(c.SP) + 0x0100
	return c.Read8(top)
}

func (c *CPU) pull16() uint16 {
	lo := c.pull8()
	hi := c.pull8()
	return uint16(hi)<<8 | uint16(lo)
}

/* interface for the APU and the mappers */

func (c *CPU) SetIRQSource(src hwdefs.IRQSource)      { c.irqFlag |= src }
func (c *CPU) HasIRQSource(src hwdefs.IRQSource) bool { return (c.irqFlag & src) != 0 }
func (c *CPU) ClearIRQSource(src hwdefs.IRQSource)    { c.irqFlag &= ^src }

// CurrentCycle returns the CPU cycle count since reset.
func (c *CPU) CurrentCycle() int64 { return c.Clock }

// StartDMCTransfer schedules a DMC sample fetch; the CPU is stalled for 3
// cycles at its next read.
func (c *CPU) StartDMCTransfer() { c.DMA.startDMCTransfer() }
func (c *CPU) StopDMCTransfer()  { c.DMA.stopDMCTransfer() }

// AddDMAStall steals ncycles CPU cycles, the PPU and APU keep running.
// OAM and DMC transfers schedule their own stalls; this entry point is for
// external peripherals.
func (c *CPU) AddDMAStall(ncycles int) {
	for i := 0; i < ncycles; i++ {
		c.BurnCycle()
	}
}

// TriggerIRQ asserts the external (mapper) IRQ line.
func (c *CPU) TriggerIRQ() { c.SetIRQSource(hwdefs.External) }

// AckIRQ releases the external IRQ line.
func (c *CPU) AckIRQ() { c.ClearIRQSource(hwdefs.External) }

// TriggerNMI pulls the NMI line low. The line is edge-triggered: it must
// be released (clearNMIflag) before a new NMI can be signaled.
func (c *CPU) TriggerNMI() { c.setNMIflag() }

func (c *CPU) setNMIflag()   { c.nmiFlag = true }
func (c *CPU) clearNMIflag() { c.nmiFlag = false }

/* interrupt handling */

func (c *CPU) handleInterrupts() {
	// The internal signal goes high during φ1 of the cycle that follows the one
	// where the edge is detected and stays high until the NMI has been handled.
	c.prevNeedNmi = c.needNmi

	// This edge detector polls the status of the NMI line during φ2 of each CPU
	// cycle (i.e. during the second half of each cycle) and raises an internal
	// signal if the input goes from being high during one cycle to being low
	// during the next.
	if !c.prevNmiFlag && c.nmiFlag {
		c.needNmi = true
	}
	c.prevNmiFlag = c.nmiFlag

	// It's really the status of the interrupt lines at the end of the
	// second-to-last cycle that matters. Keep the IRQ lines values from the
	// previous cycle. The before-to-last cycle's values will be used.
	c.prevRunIRQ = c.runIRQ
	c.runIRQ = c.irqFlag != 0 && !c.P.intDisable()
}

func BRK(cpu *CPU) {
	// dummy read.
	_ = cpu.Read8(cpu.PC)

	cpu.push16(cpu.PC + 1)

	p := cpu.P
	p.setBrk(true)
	p.setUnused(true)
	if cpu.needNmi {
		cpu.needNmi = false
		cpu.push8(uint8(p))
		cpu.P.setIntDisable(true)
		cpu.PC = cpu.Read16(NMIVector)
	} else {
		cpu.push8(uint8(p))
		cpu.P.setIntDisable(true)
		cpu.PC = cpu.Read16(IRQVector)
	}

	// Ensure we don't start an NMI right after running a BRK instruction (first
	// instruction in IRQ handler must run first - needed for nmi_and_brk test)
	cpu.prevNeedNmi = false
}

func (c *CPU) IRQ() {
	c.Read8(c.PC) // dummy reads
	c.Read8(c.PC)

	prevpc := c.PC
	c.push16(c.PC)

	if c.needNmi {
		c.needNmi = false
		p := c.P
		p.setBrk(true)
		c.push8(uint8(p))

		c.P.setIntDisable(true)
		c.PC = c.Read16(NMIVector)
		c.dbg.Interrupt(prevpc, c.PC, true)
	} else {
		p := c.P
		p.setUnused(true)
		c.push8(uint8(p))

		c.P.setIntDisable(true)
		c.PC = c.Read16(IRQVector)
		c.dbg.Interrupt(prevpc, c.PC, false)
	}
}

/* tracing / debugging */

func (c *CPU) SetTraceOutput(w io.Writer) {
	c.tracer = &tracer{w: w, d: c}
}

func (cpu *CPU) SetDebugger(dbg Debugger) {
	cpu.dbg = dbg
}

func (cpu *CPU) Disasm(pc uint16) DisasmOp {
	opcode := cpu.Bus.Peek8(pc)
	return disasmOps[opcode](cpu, pc)
}
