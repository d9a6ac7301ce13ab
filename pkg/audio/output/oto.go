// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams session PCM to the sound card with software volume control
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"

	"github.com/ebitengine/oto/v3"

	"github.com/Resonate-Protocol/chipdec/pkg/audio"
)

// Oto output implementation using oto library
type Oto struct {
	*Volume

	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	format     audio.Format
	bytes      []byte
	scratch    []int16
	ready      bool
}

// NewOto creates a new Oto output
func NewOto(volume *Volume) *Oto {
	if volume == nil {
		volume = NewVolume()
	}
	return &Oto{Volume: volume}
}

// Open initializes the output device
func (o *Oto) Open(format audio.Format) error {
	if err := format.Validate(); err != nil {
		return err
	}

	// If already initialized with same format, reuse the existing context
	if o.otoCtx != nil && o.format == format {
		if !o.ready {
			o.startPlayer()
		}
		return nil
	}

	// oto allows one context per process, so a rate change cannot be honoured
	if o.otoCtx != nil {
		return fmt.Errorf("output already opened at %s, cannot switch to %s", o.format, format)
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.format = format
	o.startPlayer()

	log.Printf("Audio output initialized: %s", format)

	return nil
}

func (o *Oto) startPlayer() {
	// Create pipe for continuous streaming
	o.pipeReader, o.pipeWriter = io.Pipe()

	// Create persistent player that reads from the pipe
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()
	if err := o.otoCtx.Resume(); err != nil {
		log.Printf("Failed to resume audio context: %v", err)
	}
	o.ready = true
}

// Write outputs audio samples (blocks until written)
func (o *Oto) Write(samples []int16) error {
	if !o.ready {
		return fmt.Errorf("output not initialized")
	}

	o.scratch = append(o.scratch[:0], samples...)
	o.Apply(o.scratch)
	o.bytes = encodeLE(o.bytes[:0], o.scratch)

	// Write to pipe (which feeds the persistent player)
	if _, err := o.pipeWriter.Write(o.bytes); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}

	return nil
}

// Close stops playback. The oto context is suspended, not destroyed, so the
// next Open at the same format reuses it.
func (o *Oto) Close() error {
	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil && o.ready {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Failed to suspend audio context: %v", err)
		}
	}
	o.ready = false
	return nil
}

// encodeLE appends samples as little-endian bytes
func encodeLE(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}
