package hw

import (
	"nescore/hw/hwdefs"
	"nescore/hw/snapshot"
)

// Save-state capture and restore for the CPU, DMA and PPU. The APU has its
// own State/SetState in hw/apu.

func (c *CPU) State() *snapshot.CPU {
	return &snapshot.CPU{
		PC: c.PC,
		SP: c.SP,
		P:  uint8(c.P),
		A:  c.A,
		X:  c.X,
		Y:  c.Y,

		Clock:       c.Clock,
		MasterClock: c.masterClock,

		IRQFlag:    uint8(c.irqFlag),
		RunIRQ:     c.runIRQ,
		PrevRunIRQ: c.prevRunIRQ,

		NMIFlag:     c.nmiFlag,
		PrevNMIFlag: c.prevNmiFlag,
		NeedNMI:     c.needNmi,
		PrevNeedNMI: c.prevNeedNmi,

		OpenBus: c.openbus,
		Halted:  c.halted,
	}
}

func (c *CPU) SetState(state *snapshot.CPU) {
	c.PC = state.PC
	c.SP = state.SP
	c.P = P(state.P)
	c.A = state.A
	c.X = state.X
	c.Y = state.Y

	c.Clock = state.Clock
	c.masterClock = state.MasterClock

	c.irqFlag = hwdefs.IRQSource(state.IRQFlag)
	c.runIRQ = state.RunIRQ
	c.prevRunIRQ = state.PrevRunIRQ

	c.nmiFlag = state.NMIFlag
	c.prevNmiFlag = state.PrevNMIFlag
	c.needNmi = state.NeedNMI
	c.prevNeedNmi = state.PrevNeedNMI

	c.openbus = state.OpenBus
	c.halted = state.Halted
}

func (dma *DMA) State() *snapshot.DMA {
	return &snapshot.DMA{
		OAMPage:    dma.oamPage,
		OAMPending: dma.oamPending,
		DMCPending: dma.dmcPending,
	}
}

func (dma *DMA) SetState(state *snapshot.DMA) {
	dma.oamPage = state.OAMPage
	dma.oamPending = state.OAMPending
	dma.dmcPending = state.DMCPending
}

func (p *PPU) State() *snapshot.PPU {
	state := &snapshot.PPU{
		Palette: p.palette,
		OAMMem:  p.oam,
		NTRAM:   p.NTRAM,

		SpriteCount: p.spriteCount,

		OpenBus:      p.openbus,
		OpenBusDecay: p.openbusDecay,

		OAMAddr:    p.oamAddr,
		VRAMAddr:   p.vramAddr.val(),
		VRAMTemp:   p.vramTmp.val(),
		WriteLatch: p.writeLatch,
		PPUDataBuf: p.ppuDataRbuf,

		Bg: snapshot.PPUBgRegs{
			FineX:     p.bg.finex,
			NT:        p.bg.nt,
			AT:        p.bg.at,
			BgLo:      p.bg.bgLo,
			BgHi:      p.bg.bgHi,
			BgShiftLo: p.bg.bgShiftLo,
			BgShiftHi: p.bg.bgShiftHi,
			ATShiftLo: p.bg.atShiftLo,
			ATShiftHi: p.bg.atShiftHi,
			ATLatchLo: p.bg.atLatchLo,
			ATLatchHi: p.bg.atLatchHi,
		},

		Ctrl:   p.ctrl,
		Mask:   p.mask,
		Status: p.status,

		MasterClock: p.masterClock,
		Cycle:       p.Cycle,
		Scanline:    p.Scanline,
		FrameCount:  p.FrameCount,

		OddFrame: p.oddFrame,
	}

	for i, spr := range p.sprites {
		state.Sprites[i] = snapshot.Sprite{
			X:     spr.x,
			Attr:  spr.attr,
			DataL: spr.dataL,
			DataH: spr.dataH,
			Zero:  spr.zero,
		}
	}
	return state
}

func (p *PPU) SetState(state *snapshot.PPU) {
	p.palette = state.Palette
	p.oam = state.OAMMem
	p.NTRAM = state.NTRAM

	p.spriteCount = state.SpriteCount
	for i, spr := range state.Sprites {
		p.sprites[i] = sprite{
			x:     spr.X,
			attr:  spr.Attr,
			dataL: spr.DataL,
			dataH: spr.DataH,
			zero:  spr.Zero,
		}
	}

	p.openbus = state.OpenBus
	p.openbusDecay = state.OpenBusDecay

	p.oamAddr = state.OAMAddr
	p.vramAddr = loopy(state.VRAMAddr)
	p.vramTmp = loopy(state.VRAMTemp)
	p.writeLatch = state.WriteLatch
	p.ppuDataRbuf = state.PPUDataBuf

	p.bg = bgRegs{
		finex:     state.Bg.FineX,
		nt:        state.Bg.NT,
		at:        state.Bg.AT,
		bgLo:      state.Bg.BgLo,
		bgHi:      state.Bg.BgHi,
		bgShiftLo: state.Bg.BgShiftLo,
		bgShiftHi: state.Bg.BgShiftHi,
		atShiftLo: state.Bg.ATShiftLo,
		atShiftHi: state.Bg.ATShiftHi,
		atLatchLo: state.Bg.ATLatchLo,
		atLatchHi: state.Bg.ATLatchHi,
	}

	p.ctrl = state.Ctrl
	p.mask = state.Mask
	p.status = state.Status

	p.masterClock = state.MasterClock
	p.Cycle = state.Cycle
	p.Scanline = state.Scanline
	p.FrameCount = state.FrameCount

	p.oddFrame = state.OddFrame
}
