package hw

// A Debugger controls and monitors a CPU.
type Debugger interface {
	// Reset is called when the CPU resets.
	Reset()

	// Trace must be called before each opcode is executed. This is the main
	// entry point for debugging activity, as the debugger can stop the CPU
	// execution by making this function blocking until user interaction
	// finishes.
	Trace(pc uint16)

	// Interrupt is called when an interrupt is about to be executed. prevpc is
	// the address of the instruction that was about to be executed, curpc is
	// the address of the interrupt handler, and isNMI is true if the interrupt
	// is a non-maskable interrupt.
	Interrupt(prevpc, curpc uint16, isNMI bool)

	// FrameEnd signals the debugger the end of the current frame.
	FrameEnd()
}

type nopDebugger struct{}

func (nopDebugger) Reset()                                     {}
func (nopDebugger) Trace(pc uint16)                            {}
func (nopDebugger) Interrupt(prevpc, curpc uint16, isNMI bool) {}
func (nopDebugger) FrameEnd()                                  {}
