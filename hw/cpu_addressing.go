package hw

// Addressing mode helpers. Each bus access costs one CPU cycle, so an
// instruction's timing (page-cross penalties, dummy reads and writes
// included) falls out of performing exactly the accesses the hardware
// does, in order.

// fetch8 reads the byte at PC and increments PC.
func (c *CPU) fetch8() uint8 {
	val := c.Read8(c.PC)
	c.PC++
	return val
}

func (c *CPU) fetch16() uint16 {
	lo := c.fetch8()
	hi := c.fetch8()
	return uint16(hi)<<8 | uint16(lo)
}

// imp: implied addressing. The CPU still reads the byte after the opcode.
func (c *CPU) imp() {
	_ = c.Read8(c.PC)
}

// acc: accumulator addressing, same dummy read as implied.
func (c *CPU) acc() {
	_ = c.Read8(c.PC)
}

// rel: relative addressing, sign-extended branch offset.
func (c *CPU) rel() uint16 {
	return uint16(int16(int8(c.fetch8())))
}

// zpg: zero page addressing.
func (c *CPU) zpg() uint16 {
	return uint16(c.fetch8())
}

// zpx: indexed addressing: zeropage,X. The index is added after a dummy
// read of the unindexed location, wrapping in 8 bits.
func (c *CPU) zpx() uint16 {
	zero := c.fetch8()
	_ = c.Read8(uint16(zero))
	return uint16(zero+c.X) & 0xff
}

// zpy: indexed addressing: zeropage,Y.
func (c *CPU) zpy() uint16 {
	zero := c.fetch8()
	_ = c.Read8(uint16(zero))
	return uint16(zero+c.Y) & 0xff
}

// abs: absolute addressing.
func (c *CPU) abs() uint16 {
	return c.fetch16()
}

// abx: absolute indexed X. The dummy read at the partially-added address
// happens on page cross (reads) or always (writes and read-modify-write,
// dummyread=true).
func (c *CPU) abx(dummyread bool) uint16 {
	base := c.fetch16()
	oper := base + uint16(c.X)
	if dummyread || (base&0xFF00) != (oper&0xFF00) {
		_ = c.Read8((base & 0xFF00) | (oper & 0x00FF))
	}
	return oper
}

// aby: absolute indexed Y.
func (c *CPU) aby(dummyread bool) uint16 {
	base := c.fetch16()
	oper := base + uint16(c.Y)
	if dummyread || (base&0xFF00) != (oper&0xFF00) {
		_ = c.Read8((base & 0xFF00) | (oper & 0x00FF))
	}
	return oper
}

// ind: indirect addressing, with the hardware bug: the pointer high byte
// is read from the same page when the pointer low byte is 0xFF.
func (c *CPU) ind() uint16 {
	ptr := c.fetch16()
	lo := c.Read8(ptr)
	hi := c.Read8((ptr & 0xFF00) | ((ptr + 1) & 0x00FF))
	return uint16(hi)<<8 | uint16(lo)
}

// izx: indexed indirect (zp,X).
func (c *CPU) izx() uint16 {
	zero := c.fetch8()
	_ = c.Read8(uint16(zero))
	zero += c.X
	lo := c.Read8(uint16(zero))
	hi := c.Read8(uint16(zero+1) & 0xff)
	return uint16(hi)<<8 | uint16(lo)
}

// izy: indirect indexed (zp),Y.
func (c *CPU) izy(dummyread bool) uint16 {
	zero := c.fetch8()
	lo := c.Read8(uint16(zero))
	hi := c.Read8(uint16(zero+1) & 0xff)
	base := uint16(hi)<<8 | uint16(lo)
	oper := base + uint16(c.Y)
	if dummyread || (base&0xFF00) != (oper&0xFF00) {
		_ = c.Read8((base & 0xFF00) | (oper & 0x00FF))
	}
	return oper
}

// branch takes the branch to PC+off when (P & flag) ^ xormask is nonzero:
// branch-if-set passes xormask 0, branch-if-clear passes the flag itself.
// Taken branches cost one extra cycle, two when crossing a page.
func (c *CPU) branch(off uint16, flag, xormask P) {
	if (c.P&flag)^xormask != 0 {
		_ = c.Read8(c.PC)
		target := c.PC + off
		if (target & 0xFF00) != (c.PC & 0xFF00) {
			_ = c.Read8((c.PC & 0xFF00) | (target & 0x00FF))
		}
		c.PC = target
	}
}

// add implements the ADC core (SBC feeds it the complemented operand).
func (c *CPU) add(val uint8) {
	sum := uint16(c.A) + uint16(val) + uint16(c.P&Carry)
	res := uint8(sum)

	c.P.clearFlags(Carry | Zero | Overflow | Negative)
	if sum > 0xFF {
		c.P.setFlags(Carry)
	}
	if (uint16(c.A)^sum)&(uint16(val)^sum)&0x80 != 0 {
		c.P.setFlags(Overflow)
	}
	c.P.setNZ(res)
	c.A = res
}

// setreg stores val into a register, updating N and Z.
func (c *CPU) setreg(reg *uint8, val uint8) {
	c.P.clearFlags(Zero | Negative)
	c.P.setNZ(val)
	*reg = val
}

// sh implements the unstable SHA/SHX/SHY stores: the stored value is
// AND-ed with the high byte of the base address plus one, and on a page
// cross that value replaces the target's high byte.
func (c *CPU) sh(base uint16, idx, val uint8) {
	oper := base + uint16(idx)
	_ = c.Read8((base & 0xFF00) | (oper & 0x00FF))

	v := val & (uint8(base>>8) + 1)
	if (base & 0xFF00) != (oper & 0xFF00) {
		oper = (uint16(v) << 8) | (oper & 0x00FF)
	}
	c.Write8(oper, v)
}

// JSR pushes the address of its own last byte, then jumps.
func JSR(cpu *CPU) {
	lo := cpu.fetch8()
	_ = cpu.Read8(uint16(cpu.SP) + 0x0100) // internal stack operation
	cpu.push16(cpu.PC)
	hi := cpu.Read8(cpu.PC)
	cpu.PC = uint16(hi)<<8 | uint16(lo)
}
