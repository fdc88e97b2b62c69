package hw

import "fmt"

// Disassembly helpers, one per addressing mode, dispatched through the
// disasmOps table. They only ever peek at the bus so disassembling has no
// side effect on emulation.

func disasmImp(cpu *CPU, pc uint16) DisasmOp {
	op := cpu.Bus.Peek8(pc)
	return DisasmOp{Opcode: opcodeNames[op], Buf: []byte{op}, PC: pc}
}

func disasmAcc(cpu *CPU, pc uint16) DisasmOp {
	op := cpu.Bus.Peek8(pc)
	return DisasmOp{Opcode: opcodeNames[op], Oper: "A", Buf: []byte{op}, PC: pc}
}

func disasmImm(cpu *CPU, pc uint16) DisasmOp {
	op, b1 := cpu.Bus.Peek8(pc), cpu.Bus.Peek8(pc+1)
	return DisasmOp{
		Opcode: opcodeNames[op],
		Oper:   fmt.Sprintf("#$%02X", b1),
		Buf:    []byte{op, b1},
		PC:     pc,
	}
}

func disasmZpg(cpu *CPU, pc uint16) DisasmOp {
	op, b1 := cpu.Bus.Peek8(pc), cpu.Bus.Peek8(pc+1)
	return DisasmOp{
		Opcode: opcodeNames[op],
		Oper:   fmt.Sprintf("$%02X = %02X", b1, cpu.Bus.Peek8(uint16(b1))),
		Buf:    []byte{op, b1},
		PC:     pc,
	}
}

func disasmZpx(cpu *CPU, pc uint16) DisasmOp {
	op, b1 := cpu.Bus.Peek8(pc), cpu.Bus.Peek8(pc+1)
	addr := uint16(b1+cpu.X) & 0xff
	return DisasmOp{
		Opcode: opcodeNames[op],
		Oper:   fmt.Sprintf("$%02X,X @ %02X = %02X", b1, addr, cpu.Bus.Peek8(addr)),
		Buf:    []byte{op, b1},
		PC:     pc,
	}
}

func disasmZpy(cpu *CPU, pc uint16) DisasmOp {
	op, b1 := cpu.Bus.Peek8(pc), cpu.Bus.Peek8(pc+1)
	addr := uint16(b1+cpu.Y) & 0xff
	return DisasmOp{
		Opcode: opcodeNames[op],
		Oper:   fmt.Sprintf("$%02X,Y @ %02X = %02X", b1, addr, cpu.Bus.Peek8(addr)),
		Buf:    []byte{op, b1},
		PC:     pc,
	}
}

func disasmRel(cpu *CPU, pc uint16) DisasmOp {
	op, b1 := cpu.Bus.Peek8(pc), cpu.Bus.Peek8(pc+1)
	target := pc + 2 + uint16(int16(int8(b1)))
	return DisasmOp{
		Opcode: opcodeNames[op],
		Oper:   fmt.Sprintf("$%04X", target),
		Buf:    []byte{op, b1},
		PC:     pc,
	}
}

func disasmAbs(cpu *CPU, pc uint16) DisasmOp {
	op, b1, b2 := cpu.Bus.Peek8(pc), cpu.Bus.Peek8(pc+1), cpu.Bus.Peek8(pc+2)
	addr := uint16(b2)<<8 | uint16(b1)
	name := opcodeNames[op]

	oper := fmt.Sprintf("$%04X", addr)
	if name != "JMP" && name != "JSR" {
		oper = fmt.Sprintf("%s = %02X", oper, cpu.Bus.Peek8(addr))
	}
	return DisasmOp{Opcode: name, Oper: oper, Buf: []byte{op, b1, b2}, PC: pc}
}

func disasmAbx(cpu *CPU, pc uint16) DisasmOp {
	op, b1, b2 := cpu.Bus.Peek8(pc), cpu.Bus.Peek8(pc+1), cpu.Bus.Peek8(pc+2)
	base := uint16(b2)<<8 | uint16(b1)
	addr := base + uint16(cpu.X)
	return DisasmOp{
		Opcode: opcodeNames[op],
		Oper:   fmt.Sprintf("$%04X,X @ %04X = %02X", base, addr, cpu.Bus.Peek8(addr)),
		Buf:    []byte{op, b1, b2},
		PC:     pc,
	}
}

func disasmAby(cpu *CPU, pc uint16) DisasmOp {
	op, b1, b2 := cpu.Bus.Peek8(pc), cpu.Bus.Peek8(pc+1), cpu.Bus.Peek8(pc+2)
	base := uint16(b2)<<8 | uint16(b1)
	addr := base + uint16(cpu.Y)
	return DisasmOp{
		Opcode: opcodeNames[op],
		Oper:   fmt.Sprintf("$%04X,Y @ %04X = %02X", base, addr, cpu.Bus.Peek8(addr)),
		Buf:    []byte{op, b1, b2},
		PC:     pc,
	}
}

func disasmInd(cpu *CPU, pc uint16) DisasmOp {
	op, b1, b2 := cpu.Bus.Peek8(pc), cpu.Bus.Peek8(pc+1), cpu.Bus.Peek8(pc+2)
	ptr := uint16(b2)<<8 | uint16(b1)

	// Same page-wrap bug as the actual indirect jump.
	lo := cpu.Bus.Peek8(ptr)
	hi := cpu.Bus.Peek8((ptr & 0xFF00) | ((ptr + 1) & 0x00FF))
	return DisasmOp{
		Opcode: opcodeNames[op],
		Oper:   fmt.Sprintf("($%04X) = %04X", ptr, uint16(hi)<<8|uint16(lo)),
		Buf:    []byte{op, b1, b2},
		PC:     pc,
	}
}

func disasmIzx(cpu *CPU, pc uint16) DisasmOp {
	op, b1 := cpu.Bus.Peek8(pc), cpu.Bus.Peek8(pc+1)
	zero := b1 + cpu.X
	lo := cpu.Bus.Peek8(uint16(zero))
	hi := cpu.Bus.Peek8(uint16(zero+1) & 0xff)
	addr := uint16(hi)<<8 | uint16(lo)
	return DisasmOp{
		Opcode: opcodeNames[op],
		Oper:   fmt.Sprintf("($%02X,X) @ %02X = %04X = %02X", b1, zero, addr, cpu.Bus.Peek8(addr)),
		Buf:    []byte{op, b1},
		PC:     pc,
	}
}

func disasmIzy(cpu *CPU, pc uint16) DisasmOp {
	op, b1 := cpu.Bus.Peek8(pc), cpu.Bus.Peek8(pc+1)
	lo := cpu.Bus.Peek8(uint16(b1))
	hi := cpu.Bus.Peek8(uint16(b1+1) & 0xff)
	base := uint16(hi)<<8 | uint16(lo)
	addr := base + uint16(cpu.Y)
	return DisasmOp{
		Opcode: opcodeNames[op],
		Oper:   fmt.Sprintf("($%02X),Y = %04X @ %04X = %02X", b1, base, addr, cpu.Bus.Peek8(addr)),
		Buf:    []byte{op, b1},
		PC:     pc,
	}
}
