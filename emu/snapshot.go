package emu

import (
	"encoding/gob"
	"fmt"
	"io"

	"nescore/hw/snapshot"
)

const snapshotVersion = 1

// SaveSnapshot serializes the full machine state to w.
func (nes *NES) SaveSnapshot(w io.Writer) error {
	state := &snapshot.NES{
		Version: snapshotVersion,
		CPU:     nes.CPU.State(),
		DMA:     nes.CPU.DMA.State(),
		PPU:     nes.PPU.State(),
		APU:     nes.APU.State(),
	}
	copy(state.RAM[:], nes.CPU.RAM.Data)

	return gob.NewEncoder(w).Encode(state)
}

// LoadSnapshot restores a state previously written by SaveSnapshot. The
// console must have been powered up with the same rom.
func (nes *NES) LoadSnapshot(r io.Reader) error {
	state := &snapshot.NES{}
	if err := gob.NewDecoder(r).Decode(state); err != nil {
		return fmt.Errorf("corrupt snapshot: %w", err)
	}
	if state.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", state.Version)
	}

	nes.CPU.SetState(state.CPU)
	nes.CPU.DMA.SetState(state.DMA)
	nes.PPU.SetState(state.PPU)
	nes.APU.SetState(state.APU)
	copy(nes.CPU.RAM.Data, state.RAM[:])
	return nil
}
