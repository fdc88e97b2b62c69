package hw

import (
	"nescore/emu/log"
	"nescore/hw/hwio"
)

// DMA steals CPU cycles to copy OAM (sprite attributes) to the PPU and to
// fetch DMC samples for the APU. Transfers are scheduled by register writes
// (or by the DMC) and executed right before the CPU's next read, going
// through the regular bus path so every stolen cycle advances the PPU and
// APU like any other.
type DMA struct {
	cpu *CPU

	OAMDMA hwio.Reg8 `hwio:"offset=0x00,writeonly,wcb"`

	oamPage    uint8
	oamPending bool
	dmcPending bool
	running    bool
}

func (dma *DMA) InitBus(cpu *CPU) {
	hwio.MustInitRegs(dma)
	dma.cpu = cpu
	dma.reset()
}

func (dma *DMA) reset() {
	dma.oamPage = 0x00
	dma.oamPending = false
	dma.dmcPending = false
	dma.running = false
}

// OAMDMA: $4014
func (dma *DMA) WriteOAMDMA(_, val uint8) {
	log.ModDMA.DebugZ("start OAM DMA transfer").Hex8("page", val).End()
	dma.oamPage = val
	dma.oamPending = true
}

func (dma *DMA) startDMCTransfer() {
	log.ModDMA.DebugZ("start DMC DMA transfer").End()
	dma.dmcPending = true
}

func (dma *DMA) stopDMCTransfer() {
	dma.dmcPending = false
}

// stealCycle burns one CPU cycle with a dummy read of addr.
func (dma *DMA) stealCycle(addr uint16) {
	cpu := dma.cpu
	cpu.cycleBegin(true)
	cpu.Bus.Read8(addr, false)
	cpu.cycleEnd(true)
}

// processPending runs any scheduled transfer. addr is the address the CPU
// was about to read; it is reused for the halt/alignment dummy reads.
func (dma *DMA) processPending(addr uint16) {
	if dma.running || !(dma.oamPending || dma.dmcPending) {
		return
	}
	dma.running = true

	cpu := dma.cpu

	if dma.oamPending {
		dma.oamPending = false

		// Halt cycle, plus an alignment cycle so the read/write pairs
		// start on an even CPU cycle: 513 cycles total, 514 when the
		// transfer was triggered on an odd cycle.
		dma.stealCycle(addr)
		if cpu.Clock&1 == 1 {
			dma.stealCycle(addr)
		}

		src := uint16(dma.oamPage) << 8
		for i := uint16(0); i < 256; i++ {
			val := cpu.Read8(src + i)
			cpu.Write8(0x2004, val)
		}
	}

	if dma.dmcPending && cpu.APU != nil {
		dma.dmcPending = false

		// Halt + dummy + read: the 3-cycle DMC fetch stall.
		dma.stealCycle(addr)
		dma.stealCycle(addr)

		dmc := &cpu.APU.DMC
		val := cpu.Read8(dmc.CurrentAddr())
		dmc.SetReadBuffer(val)
	}

	dma.running = false
}
