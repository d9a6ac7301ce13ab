// ABOUTME: Shared plumbing for the bundled decoder backends
// ABOUTME: Common naming, session options and stereo conversion helpers
package decode

import (
	"github.com/Resonate-Protocol/chipdec/pkg/audio"
	"github.com/Resonate-Protocol/chipdec/pkg/config"
	"github.com/Resonate-Protocol/chipdec/pkg/decoder"
)

// base carries what every backend shares
type base struct {
	name     string
	suffixes []string
	opts     decoder.Options
}

func (b *base) Name() string       { return b.name }
func (b *base) Suffixes() []string { return b.suffixes }

func (b *base) SessionOptions() decoder.Options { return b.opts }

func (b *base) configure(block config.Block) {
	b.opts = decoder.OptionsFromBlock(block)
}

// All returns the bundled backends in default priority order
func All() []decoder.Backend {
	return []decoder.Backend{
		NewFLAC(),
		NewMP3(),
		NewWAV(),
		NewOpus(),
		NewTone(),
	}
}

// appendStereo appends frames of an interleaved int stream with channels
// channels as stereo S16. Mono is duplicated; extra channels are dropped.
func appendStereo(dst []int16, data []int, channels, bitDepth int) []int16 {
	if channels <= 0 {
		return dst
	}
	for i := 0; i+channels <= len(data); i += channels {
		left := audio.SampleToInt16(int32(data[i]), bitDepth)
		right := left
		if channels > 1 {
			right = audio.SampleToInt16(int32(data[i+1]), bitDepth)
		}
		dst = append(dst, left, right)
	}
	return dst
}

// appendStereo16 is appendStereo for data that is already 16-bit
func appendStereo16(dst, data []int16, channels int) []int16 {
	if channels <= 0 {
		return dst
	}
	for i := 0; i+channels <= len(data); i += channels {
		left := data[i]
		right := left
		if channels > 1 {
			right = data[i+1]
		}
		dst = append(dst, left, right)
	}
	return dst
}

// drain copies pending into dst and returns what is left of pending
func drain(dst, pending []int16) (int, []int16) {
	n := copy(dst, pending)
	return n, pending[n:]
}
