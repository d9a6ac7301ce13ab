// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Streams interleaved int16 frames, carrying the last frame across chunks
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64 // next output position, in input frames relative to lastFrame
	lastFrame  []int16 // final input frame of the previous chunk
	primed     bool
	scratch    []int16
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]int16, channels),
	}
}

// InputRate returns the rate consumed by Resample
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the rate produced by Resample
func (r *Resampler) OutputRate() int { return r.outputRate }

// Resample interpolates input (interleaved, at inputRate) and appends the
// frames it can produce at outputRate to dst. Frames that need input beyond
// the end of this chunk are produced by the next call.
func (r *Resampler) Resample(dst, input []int16) []int16 {
	ch := r.channels
	if len(input) < ch {
		return dst
	}

	// Interpolate over [lastFrame, input...] so chunk boundaries are seamless
	src := input
	if r.primed {
		r.scratch = append(r.scratch[:0], r.lastFrame...)
		r.scratch = append(r.scratch, input[:len(input)-len(input)%ch]...)
		src = r.scratch
	}
	frames := len(src) / ch

	for {
		idx := int(r.position)
		if idx+1 >= frames {
			break
		}

		frac := r.position - float64(idx)
		for c := 0; c < ch; c++ {
			s1 := float64(src[idx*ch+c])
			s2 := float64(src[(idx+1)*ch+c])
			dst = append(dst, int16(s1*(1.0-frac)+s2*frac))
		}

		r.position += r.ratio
	}

	// Re-anchor position on the last input frame, keeping the fractional part
	r.position -= float64(frames - 1)
	copy(r.lastFrame, src[(frames-1)*ch:frames*ch])
	r.primed = true

	return dst
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
	r.primed = false
	for i := range r.lastFrame {
		r.lastFrame[i] = 0
	}
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// InputSamplesNeeded calculates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.ratio)
	return inputFrames * r.channels
}
