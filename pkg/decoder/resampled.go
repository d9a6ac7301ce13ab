// ABOUTME: Adapter that renders a fixed-rate engine at a forced output rate
// ABOUTME: Buffers resampled frames so every Render call is filled exactly
package decoder

import (
	"github.com/Resonate-Protocol/chipdec/pkg/audio"
	"github.com/Resonate-Protocol/chipdec/pkg/audio/resample"
)

type resampledEngine struct {
	src     FixedRateEngine
	rs      *resample.Resampler
	in      []int16
	pending []int16
	eof     bool
}

func newResampled(src FixedRateEngine, inputRate, outputRate, quantum int) *resampledEngine {
	return &resampledEngine{
		src: src,
		rs:  resample.New(inputRate, outputRate, audio.Channels),
		in:  make([]int16, quantum*audio.Channels),
	}
}

func (r *resampledEngine) Render(dst []int16) (int, error) {
	for len(r.pending) < len(dst) && !r.eof {
		n, err := r.src.Render(r.in)
		if err != nil {
			return 0, err
		}
		if n <= 0 {
			r.eof = true
			break
		}
		r.pending = r.rs.Resample(r.pending, r.in[:n*audio.Channels])
	}

	copied := copy(dst, r.pending)
	copied -= copied % audio.Channels
	r.pending = r.pending[:copy(r.pending, r.pending[copied:])]
	return copied / audio.Channels, nil
}

func (r *resampledEngine) SampleRate() (int, error) {
	return r.rs.OutputRate(), nil
}

func (r *resampledEngine) Restart() error {
	r.rs.Reset()
	r.pending = r.pending[:0]
	r.eof = false
	return r.src.Restart()
}

func (r *resampledEngine) Close() error {
	return r.src.Close()
}
