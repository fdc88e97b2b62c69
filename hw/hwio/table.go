package hwio

import (
	"nescore/emu/log"
)

// log unmapped accesses (useful for debugging but verbose on NES since many
// games read from open bus)
const logUnmapped = false

// BankIO8 is implemented by anything that can be mapped into a Table: Reg8,
// Mem (through its BankIO8 adapter) and Device.
type BankIO8 interface {
	Read8(addr uint16, peek bool) uint8
	Write8(addr uint16, val uint8)
}

func Write16(b BankIO8, addr uint16, val uint16) {
	b.Write8(addr, uint8(val))
	b.Write8(addr+1, uint8(val>>8))
}

func Read16(b BankIO8, addr uint16) uint16 {
	lo := b.Read8(addr, false)
	hi := b.Read8(addr+1, false)
	return uint16(hi)<<8 | uint16(lo)
}

// Table maps the 64KiB CPU (or PPU) address space onto BankIO8
// implementations. Dispatch is a flat 65536-entry array: the NES address
// space is small and fixed-size, so a direct-indexed array beats a
// general-purpose interval tree both in code complexity and in speed.
type Table struct {
	Name     string
	Unmapped BankIO8

	slots [0x10000]BankIO8
}

func NewTable(name string) *Table {
	return &Table{Name: name}
}

func (t *Table) Reset() {
	for i := range t.slots {
		t.slots[i] = nil
	}
}

// MapBank maps every hwio-tagged field of bank whose "bank" tag option
// equals bankNum at consecutive addresses starting at addr, offset by each
// field's "offset" tag option.
func (t *Table) MapBank(addr uint16, bank any, bankNum int) {
	for _, r := range bankFields(bank, bankNum) {
		switch io := r.ptr.(type) {
		case *Mem:
			t.MapMem(addr+r.offset, io)
		case *Reg8:
			t.MapReg8(addr+r.offset, io)
		case *Device:
			t.mapBus8(addr+r.offset, uint16(io.Size), io)
		}
	}
}

func (t *Table) UnmapBank(addr uint16, bank any, bankNum int) {
	for _, r := range bankFields(bank, bankNum) {
		switch io := r.ptr.(type) {
		case *Mem:
			t.Unmap(addr+r.offset, addr+r.offset+uint16(io.VSize)-1)
		case *Reg8:
			t.Unmap(addr+r.offset, addr+r.offset)
		case *Device:
			t.Unmap(addr+r.offset, addr+r.offset+uint16(io.Size)-1)
		}
	}
}

func (t *Table) mapBus8(addr, size uint16, io BankIO8) {
	end := uint32(addr) + uint32(size)
	for a := uint32(addr); a < end && a <= 0xFFFF; a++ {
		t.slots[a] = io
	}
}

func (t *Table) MapReg8(addr uint16, io *Reg8) {
	t.mapBus8(addr, 1, io)
}

func (t *Table) MapMem(addr uint16, m *Mem) {
	log.ModHwIo.DebugZ("mapping mem").
		Hex16("addr", addr).
		Hex16("size", uint16(m.VSize)).
		String("area", m.Name).
		String("bus", t.Name).
		End()

	if len(m.Data)&(len(m.Data)-1) != 0 {
		panic("memory buffer size is not pow2")
	}
	io := m.BankIO8()
	end := uint32(addr) + uint32(m.VSize)
	for a := uint32(addr); a < end && a <= 0xFFFF; a++ {
		t.slots[a] = io
	}
}

func (t *Table) MapMemorySlice(addr, end uint16, data []uint8, readonly bool) {
	log.ModHwIo.DebugZ("mapping slice").
		Hex16("addr", addr).
		Hex16("end", end).
		String("bus", t.Name).
		Bool("ro", readonly).
		End()

	var flags MemFlags
	if readonly {
		flags |= MemFlag8ReadOnly
	}
	t.MapMem(addr, &Mem{
		Data:  data,
		Flags: flags,
		VSize: int(end-addr) + 1,
	})
}

func (t *Table) MapDevice(addr uint16, d *Device) {
	t.mapBus8(addr, uint16(d.Size), d)
}

func (t *Table) Unmap(begin, end uint16) {
	for a := uint32(begin); a <= uint32(end) && a <= 0xFFFF; a++ {
		t.slots[a] = nil
	}
}

func (t *Table) unmappedRead(addr uint16, peek bool) uint8 {
	if t.Unmapped != nil {
		return t.Unmapped.Read8(addr, peek)
	}
	if logUnmapped && !peek {
		log.ModHwIo.ErrorZ("unmapped Read8").String("name", t.Name).Hex16("addr", addr).End()
	}
	return 0
}

func (t *Table) Read8(addr uint16, peek bool) uint8 {
	io := t.slots[addr]
	if io == nil {
		return t.unmappedRead(addr, peek)
	}
	return io.Read8(addr, peek)
}

func (t *Table) Peek8(addr uint16) uint8 {
	return t.Read8(addr, true)
}

func (t *Table) Write8(addr uint16, val uint8) {
	io := t.slots[addr]
	if io == nil {
		if t.Unmapped != nil {
			t.Unmapped.Write8(addr, val)
			return
		}
		if logUnmapped {
			log.ModHwIo.ErrorZ("unmapped Write8").
				String("name", t.Name).Hex16("addr", addr).Hex8("val", val).End()
		}
		return
	}
	io.Write8(addr, val)
}

func (t *Table) FetchPointer(addr uint16) []uint8 {
	if m, ok := t.slots[addr].(*mem); ok {
		return m.FetchPointer(addr)
	}
	return nil
}
