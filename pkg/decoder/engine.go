// ABOUTME: Engine and backend interfaces implemented by codec plugins
// ABOUTME: Unifies fixed-rate and resample-aware engines behind one contract
package decoder

import (
	"github.com/Resonate-Protocol/chipdec/pkg/audio"
	"github.com/Resonate-Protocol/chipdec/pkg/config"
)

// Engine is one opened native decoder. Render fills dst, whose length is a
// multiple of audio.Channels, with interleaved stereo S16 frames and returns
// the number of frames written. Zero frames means end of stream.
type Engine interface {
	Render(dst []int16) (int, error)

	// Restart rewinds the engine to the start of the song
	Restart() error

	// Close releases the engine
	Close() error
}

// FixedRateEngine renders at a rate it chooses itself
type FixedRateEngine interface {
	Engine
	SampleRate() (int, error)
}

// ResampleAwareEngine renders at a rate requested by the session.
// SetOutputRate is called once before the first Render; a request of 0
// asks for the engine's preferred rate. It returns the rate in effect.
type ResampleAwareEngine interface {
	Engine
	SetOutputRate(rate int) (int, error)
}

// Discarder is implemented by engines that can advance without producing
// output. Skip returns the frames actually skipped, which is short only when
// the stream ended.
type Discarder interface {
	Skip(frames int) (int, error)
}

// LengthReporter is implemented by engines that know the song length
// independently of the file's tags
type LengthReporter interface {
	LengthMs() (uint32, bool)
}

// Backend is a codec plugin: it opens files of the suffixes it claims
type Backend interface {
	Name() string
	Suffixes() []string

	// Configure is called once, before the first Open, with the backend's
	// decoder block. Returning ErrUnavailable disables the backend.
	Configure(block config.Block) error

	// Open loads path, reporting every metadata pair through meta
	Open(path string, meta MetaFunc) (Engine, error)

	// SessionOptions returns the session tunables for this backend
	SessionOptions() Options
}

// Scanner is implemented by backends that can read metadata without
// creating an engine
type Scanner interface {
	ScanFile(path string, meta MetaFunc) error
}

// Options tune the session that drives an engine
type Options struct {
	// QuantumFrames is the number of frames rendered per loop iteration
	QuantumFrames int

	// SeekChunkFrames bounds each discard render while seeking
	SeekChunkFrames int

	// SampleRate forces the session output rate; 0 keeps the engine rate
	SampleRate int

	// DefaultFadeMs applies when a file has a length but no fade
	DefaultFadeMs uint32
}

const (
	DefaultQuantumFrames   = 1024
	DefaultSeekChunkFrames = 8192
)

// OptionsFromBlock reads the common tunables from a decoder block
func OptionsFromBlock(block config.Block) Options {
	return Options{
		QuantumFrames:   block.Int("quantum", DefaultQuantumFrames),
		SeekChunkFrames: block.Int("seek_chunk", DefaultSeekChunkFrames),
		SampleRate:      block.Int("sample_rate", 0),
		DefaultFadeMs:   ParseTimeMs(block.String("default_fade", "")),
	}
}

func (o Options) withDefaults() Options {
	if o.QuantumFrames <= 0 {
		o.QuantumFrames = DefaultQuantumFrames
	}
	if o.SeekChunkFrames <= 0 {
		o.SeekChunkFrames = DefaultSeekChunkFrames
	}
	if o.SampleRate < 0 || o.SampleRate > audio.MaxSampleRate {
		o.SampleRate = 0
	}
	return o
}
