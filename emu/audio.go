package emu

// An AudioChunkSink receives fixed-size chunks of monaural signed 16-bit
// PCM from the emulator.
type AudioChunkSink interface {
	PushChunk(chunk []int16) error
}

// AudioChunker adapts the mixer's per-frame sample batches into the
// fixed-size chunks hosts prefer. It implements apu.AudioSink. With no
// downstream sink, samples are discarded.
type AudioChunker struct {
	sink      AudioChunkSink
	chunkSize int
	buf       []int16
}

func NewAudioChunker(chunkSize int) *AudioChunker {
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	return &AudioChunker{
		chunkSize: chunkSize,
		buf:       make([]int16, 0, chunkSize*2),
	}
}

// SetSink attaches the host sink receiving full chunks.
func (ac *AudioChunker) SetSink(sink AudioChunkSink) {
	ac.sink = sink
}

// PushSamples implements apu.AudioSink.
func (ac *AudioChunker) PushSamples(samples []int16) error {
	if ac.sink == nil {
		return nil
	}

	ac.buf = append(ac.buf, samples...)
	for len(ac.buf) >= ac.chunkSize {
		if err := ac.sink.PushChunk(ac.buf[:ac.chunkSize]); err != nil {
			// Drop every buffered sample, keep emulating.
			ac.buf = ac.buf[:0]
			return err
		}
		ac.buf = append(ac.buf[:0], ac.buf[ac.chunkSize:]...)
	}
	return nil
}
