// ABOUTME: FLAC backend built on mewkiz/flac
// ABOUTME: Reports vorbis comments as metadata and renders frames as stereo S16
package decode

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Resonate-Protocol/chipdec/pkg/audio"
	"github.com/Resonate-Protocol/chipdec/pkg/config"
	"github.com/Resonate-Protocol/chipdec/pkg/decoder"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FLAC decodes .flac files
type FLAC struct {
	base
}

// NewFLAC creates the FLAC backend
func NewFLAC() *FLAC {
	return &FLAC{base{name: "flac", suffixes: []string{"flac"}}}
}

// Configure reads the common session tunables
func (b *FLAC) Configure(block config.Block) error {
	b.configure(block)
	return nil
}

// Open parses every metadata block, reports vorbis comments and returns an
// engine positioned at the first audio frame
func (b *FLAC) Open(path string, report decoder.MetaFunc) (decoder.Engine, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	if info.NChannels == 0 || info.SampleRate == 0 {
		stream.Close()
		return nil, errors.New("FLAC stream info has no channels or sample rate")
	}

	for _, block := range stream.Blocks {
		if vc, ok := block.Body.(*meta.VorbisComment); ok {
			for _, tag := range vc.Tags {
				report(tag[0], tag[1])
			}
		}
	}

	return &flacEngine{
		path:     path,
		stream:   stream,
		rate:     int(info.SampleRate),
		bitDepth: int(info.BitsPerSample),
		nsamples: info.NSamples,
	}, nil
}

type flacEngine struct {
	path     string
	stream   *flac.Stream
	rate     int
	bitDepth int
	nsamples uint64
	frameBuf []int16
	pending  []int16
}

func (e *flacEngine) SampleRate() (int, error) { return e.rate, nil }

func (e *flacEngine) LengthMs() (uint32, bool) {
	if e.nsamples == 0 {
		return 0, false
	}
	ms := e.nsamples * 1000 / uint64(e.rate)
	if ms > math.MaxUint32 {
		ms = math.MaxUint32
	}
	return uint32(ms), ms > 0
}

func (e *flacEngine) Render(dst []int16) (int, error) {
	written := 0
	for written < len(dst) {
		if len(e.pending) == 0 {
			f, err := e.stream.ParseNext()
			if err == io.EOF {
				break
			}
			if err != nil {
				return written / audio.Channels, fmt.Errorf("failed to parse FLAC frame: %w", err)
			}
			e.frameBuf = appendFrame(e.frameBuf[:0], f, e.bitDepth)
			e.pending = e.frameBuf
		}

		var n int
		n, e.pending = drain(dst[written:], e.pending)
		written += n
	}
	return written / audio.Channels, nil
}

// appendFrame converts one decoded frame to interleaved stereo S16
func appendFrame(dst []int16, f *frame.Frame, bitDepth int) []int16 {
	if len(f.Subframes) == 0 {
		return dst
	}
	left := f.Subframes[0].Samples
	right := left
	if len(f.Subframes) > 1 {
		right = f.Subframes[1].Samples
	}

	n := int(f.BlockSize)
	if len(left) < n {
		n = len(left)
	}
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		dst = append(dst,
			audio.SampleToInt16(left[i], bitDepth),
			audio.SampleToInt16(right[i], bitDepth))
	}
	return dst
}

// Restart reopens the file; flac.Open skips the metadata blocks
func (e *flacEngine) Restart() error {
	e.stream.Close()
	stream, err := flac.Open(e.path)
	if err != nil {
		return fmt.Errorf("failed to reopen FLAC: %w", err)
	}
	e.stream = stream
	e.pending = nil
	return nil
}

func (e *flacEngine) Close() error {
	return e.stream.Close()
}
