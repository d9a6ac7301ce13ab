//go:build !nolibopusfile

// ABOUTME: Ogg Opus backend built on libopusfile via hraban/opus
// ABOUTME: Reads OpusHead/OpusTags for channels and metadata, renders at 48kHz
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/chipdec/pkg/audio"
	"github.com/Resonate-Protocol/chipdec/pkg/config"
	"github.com/Resonate-Protocol/chipdec/pkg/decoder"
	"gopkg.in/hraban/opus.v2"
)

// Opus decodes Ogg Opus files
type Opus struct {
	base
}

// NewOpus creates the Opus backend
func NewOpus() *Opus {
	return &Opus{base{name: "opus", suffixes: []string{"opus", "ogg"}}}
}

// Configure reads the common session tunables
func (b *Opus) Configure(block config.Block) error {
	b.configure(block)
	return nil
}

// Open probes the identification and comment headers, then hands the file
// to libopusfile
func (b *Opus) Open(path string, report decoder.MetaFunc) (decoder.Engine, error) {
	head, err := probeOggOpus(path)
	if err != nil {
		return nil, err
	}
	for _, kv := range head.comments {
		report(kv[0], kv[1])
	}

	e := &opusEngine{path: path, channels: head.channels}
	if err := e.open(); err != nil {
		return nil, err
	}
	return e, nil
}

// ScanFile reads the headers only
func (b *Opus) ScanFile(path string, report decoder.MetaFunc) error {
	head, err := probeOggOpus(path)
	if err != nil {
		return err
	}
	for _, kv := range head.comments {
		report(kv[0], kv[1])
	}
	return nil
}

type opusEngine struct {
	path     string
	channels int
	file     *os.File
	stream   *opus.Stream
	pcm      []int16
	out      []int16
	pending  []int16
}

func (e *opusEngine) open() error {
	f, err := os.Open(e.path)
	if err != nil {
		return fmt.Errorf("failed to open Opus file: %w", err)
	}
	stream, err := opus.NewStream(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode Opus: %w", err)
	}
	e.file = f
	e.stream = stream
	e.pending = nil
	return nil
}

// SampleRate is fixed: libopusfile always decodes at 48kHz
func (e *opusEngine) SampleRate() (int, error) { return opusRate, nil }

func (e *opusEngine) Render(dst []int16) (int, error) {
	if e.pcm == nil {
		// 120ms is the largest Opus packet
		e.pcm = make([]int16, opusRate*120/1000*e.channels)
	}

	written := 0
	for written < len(dst) {
		if len(e.pending) == 0 {
			n, err := e.stream.Read(e.pcm)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return written / audio.Channels, fmt.Errorf("opus decode error: %w", err)
			}
			if n == 0 {
				continue
			}
			e.out = appendStereo16(e.out[:0], e.pcm[:n*e.channels], e.channels)
			e.pending = e.out
		}

		var n int
		n, e.pending = drain(dst[written:], e.pending)
		written += n
	}
	return written / audio.Channels, nil
}

func (e *opusEngine) Restart() error {
	e.closeStream()
	return e.open()
}

func (e *opusEngine) Close() error {
	return e.closeStream()
}

func (e *opusEngine) closeStream() error {
	var err error
	if e.stream != nil {
		err = e.stream.Close()
		e.stream = nil
	}
	if e.file != nil {
		e.file.Close()
		e.file = nil
	}
	return err
}
