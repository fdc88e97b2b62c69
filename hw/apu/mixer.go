package apu

import (
	"slices"

	"nescore/emu/log"
	"nescore/hw/hwdefs"

	"github.com/arl/blip"
)

const (
	// Upper bound on the CPU cycles between two EndFrame calls: one video
	// frame plus generous slack for a scheduler hitting its step cap.
	cycleLength = 65536

	maxSampleRate      = 96000
	maxSamplesPerFrame = maxSampleRate / 60 * 4 // x4 allows pathological frame lengths

	ntscClockRate = 1789773
	palClockRate  = 1662607
)

// An AudioSink receives the mixed output: monaural signed 16-bit PCM at
// the configured sample rate. A rejected buffer is the host's problem; the
// mixer drops it and carries on.
type AudioSink interface {
	PushSamples(buf []int16) error
}

// Mixer turns per-channel output level deltas into band-limited PCM,
// resampled to the host rate with a blip buffer, and applies the standard
// non-linear channel weights.
type Mixer struct {
	buf     *blip.Buffer
	outbuf  [maxSamplesPerFrame]int16
	prevOut int16

	volumes [hwdefs.NumAudioChannels]float64

	timestamps []uint32
	chanoutput [hwdefs.NumAudioChannels][cycleLength]int16
	curOutput  [hwdefs.NumAudioChannels]int16

	clockRate  uint32
	sampleRate uint32

	sink AudioSink
}

func NewMixer(sink AudioSink) *Mixer {
	am := &Mixer{
		buf:        blip.NewBuffer(maxSamplesPerFrame),
		sampleRate: 48000,
		clockRate:  ntscClockRate,
		sink:       sink,
	}
	for i := range am.volumes {
		am.volumes[i] = 1.0
	}
	am.updateRates(true)
	return am
}

func (am *Mixer) SetRegion(region hwdefs.Region) {
	rate := uint32(ntscClockRate)
	if region == hwdefs.PAL {
		rate = palClockRate
	}
	if rate != am.clockRate {
		am.clockRate = rate
		am.updateRates(true)
	}
}

// SetSampleRate changes the host sample rate (default 48000).
func (am *Mixer) SetSampleRate(rate uint32) {
	if rate != am.sampleRate {
		am.sampleRate = rate
		am.updateRates(true)
	}
}

// SetVolume scales one channel's contribution to the mix (1.0 = natural).
func (am *Mixer) SetVolume(ch Channel, vol float64) {
	am.volumes[ch] = vol
}

func (am *Mixer) Reset() {
	am.prevOut = 0
	am.buf.Clear()
	am.timestamps = am.timestamps[:0]

	for i := range am.chanoutput {
		clear(am.chanoutput[i][:])
		am.curOutput[i] = 0
	}
	am.updateRates(true)
}

func (am *Mixer) updateRates(force bool) {
	if force {
		am.buf.SetRates(float64(am.clockRate), float64(am.sampleRate))
	}
}

// AddDelta records an output level change for ch at the given APU time.
func (am *Mixer) AddDelta(ch Channel, time uint32, delta int16) {
	if delta != 0 {
		am.timestamps = append(am.timestamps, time)
		am.chanoutput[ch][time] += delta
	}
}

func (am *Mixer) channelOutput(ch Channel) float64 {
	return float64(am.curOutput[ch]) * am.volumes[ch]
}

// outputVolume applies the standard non-linear mix,
//
//	pulse_out = 95.52  / (8128/(p1+p2) + 100)
//	tnd_out   = 163.67 / (24329/(3*T + 2*N + D) + 100)
//
// scaled to signed 16-bit.
func (am *Mixer) outputVolume() int16 {
	squareOutput := am.channelOutput(Square1) + am.channelOutput(Square2)
	tndOutput := 3*am.channelOutput(Triangle) + 2*am.channelOutput(Noise) + am.channelOutput(DPCM)

	var out float64
	if squareOutput > 0 {
		out += 95.52 / (8128.0/squareOutput + 100.0)
	}
	if tndOutput > 0 {
		out += 163.67 / (24329.0/tndOutput + 100.0)
	}

	return int16(clampf(out*32000.0, -32768, 32767))
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// playAudioBuffer flushes the deltas accumulated up to time into the blip
// buffer and pushes the resampled PCM to the sink.
func (am *Mixer) playAudioBuffer(time uint32) {
	am.endFrame(time)

	nsamples := am.buf.SamplesAvailable()
	if nsamples > len(am.outbuf) {
		nsamples = len(am.outbuf)
	}
	n := am.buf.ReadSamples(am.outbuf[:nsamples], nsamples, false)

	if am.sink == nil {
		return
	}
	if err := am.sink.PushSamples(am.outbuf[:n]); err != nil {
		// The sink rejecting a buffer must not stall emulation.
		log.ModSound.WarnZ("audio sink rejected buffer").
			Int("samples", n).
			Error("err", err).
			End()
	}
}

func (am *Mixer) endFrame(time uint32) {
	// Each channel stamps its deltas in increasing order, but the channels
	// are drained one after the other: merge by sorting.
	slices.Sort(am.timestamps)
	am.timestamps = slices.Compact(am.timestamps)

	for _, stamp := range am.timestamps {
		for ch := range am.chanoutput {
			am.curOutput[ch] += am.chanoutput[ch][stamp]
			am.chanoutput[ch][stamp] = 0
		}

		out := am.outputVolume()
		if delta := out - am.prevOut; delta != 0 {
			am.buf.AddDelta(uint64(stamp), int32(delta))
		}
		am.prevOut = out
	}

	am.buf.EndFrame(int(time))
	am.timestamps = am.timestamps[:0]
}
