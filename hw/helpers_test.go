package hw

import (
	"strconv"
	"strings"
	"testing"

	"nescore/hw/hwio"
)

// newTestCPU returns a CPU wired to 64KiB of flat RAM, no PPU, no APU.
func newTestCPU(tb testing.TB) *CPU {
	tb.Helper()

	cpu := NewCPU(nil)
	cpu.Bus = hwio.NewTable("cputest")
	cpu.Bus.MapMem(0x0000, &hwio.Mem{
		Data:  make([]byte, 0x10000),
		VSize: 0x10000,
	})
	return cpu
}

type dumpline struct {
	off   uint16
	bytes []byte
}

// parseDump reads a memory dump in the "ADDR: xx xx xx" format, one line
// per region, '#' starting a comment line.
func parseDump(tb testing.TB, dump string) []dumpline {
	tb.Helper()

	var lines []dumpline
	for _, line := range strings.Split(dump, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addr, rest, ok := strings.Cut(line, ":")
		if !ok {
			tb.Fatalf("malformed dump line %q", line)
		}
		off, err := strconv.ParseUint(strings.TrimSpace(addr), 16, 16)
		if err != nil {
			tb.Fatalf("malformed dump address %q: %s", addr, err)
		}
		dl := dumpline{off: uint16(off)}
		for _, tok := range strings.Fields(rest) {
			b, err := strconv.ParseUint(tok, 16, 8)
			if err != nil {
				tb.Fatalf("malformed dump byte %q: %s", tok, err)
			}
			dl.bytes = append(dl.bytes, uint8(b))
		}
		lines = append(lines, dl)
	}
	return lines
}

// loadCPUWith builds a test CPU, loads the memory dump and resets.
func loadCPUWith(tb testing.TB, dump string) *CPU {
	tb.Helper()

	cpu := newTestCPU(tb)
	for _, dl := range parseDump(tb, dump) {
		for i, b := range dl.bytes {
			cpu.Bus.Write8(dl.off+uint16(i), b)
		}
	}
	cpu.Reset(false)
	return cpu
}

func wantMem8(tb testing.TB, cpu *CPU, addr uint16, want uint8) {
	tb.Helper()

	if got := cpu.Bus.Peek8(addr); got != want {
		tb.Errorf("$%04X = %02X want %02X", addr, got, want)
	}
}

func asUint16(tb testing.TB, v any) uint16 {
	tb.Helper()
	switch v := v.(type) {
	case int:
		return uint16(v)
	case uint8:
		return uint16(v)
	case uint16:
		return v
	}
	tb.Fatalf("unsupported state value type %T", v)
	return 0
}

// runAndCheckState runs the CPU for ncycles then checks the listed
// registers, flags (e.g. "Pnz") and memory regions.
func runAndCheckState(t *testing.T, cpu *CPU, ncycles int64, states ...any) {
	t.Helper()

	if len(states)%2 != 0 {
		panic("odd number of states")
	}

	cpu.Run(ncycles)

	checku8 := func(name string, got uint8, want any) {
		t.Helper()
		if w := uint8(asUint16(t, want)); got != w {
			t.Errorf("got %s=$%02X, want $%02X", name, got, w)
		}
	}

	for i := 0; i < len(states); i += 2 {
		s := states[i].(string)
		switch {
		case s == "A":
			checku8("A", cpu.A, states[i+1])
		case s == "X":
			checku8("X", cpu.X, states[i+1])
		case s == "Y":
			checku8("Y", cpu.Y, states[i+1])
		case s == "SP":
			checku8("SP", cpu.SP, states[i+1])
		case s == "PC":
			if got, want := cpu.PC, asUint16(t, states[i+1]); got != want {
				t.Errorf("got PC=$%04X, want $%04X", got, want)
			}
		case s == "P":
			if got, want := uint8(cpu.P), uint8(asUint16(t, states[i+1])); got != want {
				t.Errorf("got P=$%02X(%s), want $%02X(%s)", got, P(got), want, P(want))
			}
		case s == "mem":
			for _, dl := range parseDump(t, states[i+1].(string)) {
				for j, b := range dl.bytes {
					wantMem8(t, cpu, dl.off+uint16(j), b)
				}
			}
		case len(s) > 1 && s[0] == 'P':
			want := asUint16(t, states[i+1]) != 0
			for _, flag := range s[1:] {
				var got bool
				switch flag {
				case 'n':
					got = cpu.P.Negative()
				case 'v':
					got = cpu.P.Overflow()
				case 'b':
					got = cpu.P.Break()
				case 'd':
					got = cpu.P.Decimal()
				case 'i':
					got = cpu.P.IntDisable()
				case 'z':
					got = cpu.P.Zero()
				case 'c':
					got = cpu.P.Carry()
				default:
					t.Fatalf("unknown flag %q", flag)
				}
				if got != want {
					t.Errorf("got P%c=%t, want %t", flag, got, want)
				}
			}
		default:
			t.Fatalf("unknown state key %q", s)
		}
	}
}
