package hwio_test

import (
	"bytes"
	"testing"

	"nescore/hw/hwio"
)

// openbus simulates an unmapped address returning the value last driven on
// the bus.
type openbus struct{}

func (ob *openbus) Read8(addr uint16, peek bool) uint8 { return 0xD3 }
func (ob *openbus) Write8(addr uint16, val uint8)      {}

type busTable struct {
	t   testing.TB
	Bus *hwio.Table

	// mapped to $0000-$07FF, mirrored at $0800-$0FFF
	RAM hwio.Mem `hwio:"bank=0,offset=0x0,size=0x800,vsize=0x2000"`

	// $2000
	Reg0 hwio.Reg8 `hwio:"bank=1,offset=0x0,reset=0x77"`
	// $2001
	Reg1 hwio.Reg8 `hwio:"bank=1,offset=0x1,romask=0xF0,rcb,reset=0x99"`

	// $4000-$40FF
	DEV hwio.Device `hwio:"bank=2,offset=0x0,size=0x100,rcb,wcb"`

	devval uint8
}

func newBusTable(tb testing.TB) *busTable {
	bt := &busTable{t: tb}
	hwio.MustInitRegs(bt)

	bt.Bus = hwio.NewTable("bus")
	bt.Bus.MapBank(0x0000, bt, 0)
	bt.Bus.MapBank(0x2000, bt, 1)
	bt.Bus.MapBank(0x4000, bt, 2)
	bt.Bus.Unmapped = &openbus{}
	return bt
}

// $2001
func (bt *busTable) ReadREG1(val uint8) uint8 { return bt.Reg1.Value + 1 }

// $4000-$40FF
func (bt *busTable) ReadDEV(addr uint16) uint8       { return 0xE1 }
func (bt *busTable) WriteDEV(addr uint16, val uint8) { bt.devval = uint8(addr) & val }

func (bt *busTable) wantRead8(addr uint16, want uint8) {
	bt.t.Helper()
	if got := bt.Bus.Read8(addr, false); got != want {
		bt.t.Errorf("Read8(%04X) = %02X, want %02X", addr, got, want)
	}
}

func (bt *busTable) Write8(addr uint16, val uint8) {
	bt.Bus.Write8(addr, val)
}

func (bt *busTable) wantPeek8(addr uint16, want uint8) {
	bt.t.Helper()
	if got := bt.Bus.Peek8(addr); got != want {
		bt.t.Errorf("Peek8(%04X) = %02X, want %02X", addr, got, want)
	}
}

func TestTableMem(t *testing.T) {
	bt := newBusTable(t)

	bt.wantRead8(0x00, 0)
	bt.Write8(0x00, 0x12)
	bt.wantRead8(0x00, 0x12)
	bt.wantRead8(0x800, 0x12)
}

func TestTableRegs(t *testing.T) {
	bt := newBusTable(t)

	bt.wantRead8(0x2001, 0x9a)

	// The high nibble is read-only (romask=0xF0).
	bt.Write8(0x2001, 0xff)
	bt.wantRead8(0x2001, 0xa0)
	bt.Write8(0x2001, 0xF0)
	bt.wantRead8(0x2001, 0x91)
	bt.Write8(0x2001, 0x0F)
	bt.wantRead8(0x2001, 0xa0)
}

func TestTableUnmapped(t *testing.T) {
	bt := newBusTable(t)
	bt.wantRead8(0x2020, 0xd3)
	bt.wantPeek8(0x2020, 0xd3)
}

func TestTableMapMemorySlice(t *testing.T) {
	bt := newBusTable(t)

	rom := bytes.Repeat([]byte("\x12\x34"), 0x100)
	bt.Bus.MapMemorySlice(0x3000, 0x3199, rom, true)

	bt.wantRead8(0x3000, 0x12)
	bt.wantRead8(0x3001, 0x34)
	bt.wantRead8(0x3199, 0x34)
	bt.wantRead8(0x3200, 0xd3) // unmapped
}

func TestTableMapDevice(t *testing.T) {
	bt := newBusTable(t)

	bt.wantRead8(0x4000, 0xe1)
	bt.Write8(0x4020, 0x27)
	if bt.devval != 0x20 {
		t.Errorf("devval = %02X, want 0x20", bt.devval)
	}
}

func TestUnmapBank(t *testing.T) {
	t.Run("hwio.Mem", func(t *testing.T) {
		bt := newBusTable(t)

		bt.Write8(40, 0x12)
		bt.Bus.UnmapBank(0x0000, bt, 0)
		bt.wantRead8(0x40, 0xd3) // openbus
	})
	t.Run("hwio.Reg8", func(t *testing.T) {
		bt := newBusTable(t)

		bt.wantRead8(0x2001, 0x9a)
		bt.Write8(0x2001, 0xff)
		bt.Bus.UnmapBank(0x2000, bt, 1)
		bt.wantRead8(0x2001, 0xd3) // openbus
	})
}

func TestUnmap(t *testing.T) {
	t.Run("partial", func(t *testing.T) {
		bt := newBusTable(t)

		bt.Write8(0x40, 0x12)
		bt.wantRead8(0x40, 0x12)
		bt.Bus.Unmap(0x0000, 0x003F)
		bt.wantRead8(0x00, 0xd3) // openbus
	})
	t.Run("full", func(t *testing.T) {
		bt := newBusTable(t)

		bt.Write8(0x40, 0x12)
		bt.wantRead8(0x40, 0x12)
		bt.Bus.Unmap(0x0000, 0x1FFF)
		bt.wantRead8(0x2000, 0x77)
	})
}
