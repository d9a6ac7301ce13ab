// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for session PCM sinks and software volume
package output

import (
	"sync/atomic"

	"github.com/Resonate-Protocol/chipdec/pkg/audio"
)

// Output represents an audio sink for decoded sessions
type Output interface {
	// Open prepares the sink for the given format
	Open(format audio.Format) error

	// Write outputs interleaved samples (blocks until written)
	Write(samples []int16) error

	// Close releases output resources
	Close() error
}

// Volume is software gain shared by the outputs. It is safe for concurrent
// use, so a UI can adjust it while a session writes.
type Volume struct {
	level atomic.Int32
	muted atomic.Bool
}

// NewVolume returns full volume, unmuted
func NewVolume() *Volume {
	v := &Volume{}
	v.level.Store(100)
	return v
}

// SetVolume sets the volume (0-100)
func (v *Volume) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	v.level.Store(int32(volume))
}

// SetMuted sets mute state
func (v *Volume) SetMuted(muted bool) { v.muted.Store(muted) }

// Level returns current volume
func (v *Volume) Level() int { return int(v.level.Load()) }

// Muted returns mute state
func (v *Volume) Muted() bool { return v.muted.Load() }

// Apply scales samples in place
func (v *Volume) Apply(samples []int16) {
	if v.muted.Load() {
		clear(samples)
		return
	}
	level := int64(v.level.Load())
	if level >= 100 {
		return
	}
	for i, s := range samples {
		samples[i] = audio.ClampInt16(int64(s) * level / 100)
	}
}

// Discard accepts and drops samples. It counts frames written, which is
// what headless runs and tests need.
type Discard struct {
	format audio.Format
	frames atomic.Int64
}

// NewDiscard creates a sink that drops everything
func NewDiscard() *Discard { return &Discard{} }

func (d *Discard) Open(format audio.Format) error {
	if err := format.Validate(); err != nil {
		return err
	}
	d.format = format
	return nil
}

func (d *Discard) Write(samples []int16) error {
	if d.format.Channels > 0 {
		d.frames.Add(int64(len(samples) / d.format.Channels))
	}
	return nil
}

func (d *Discard) Close() error { return nil }

// Frames returns the number of frames written since creation
func (d *Discard) Frames() int64 { return d.frames.Load() }
