// ABOUTME: WAV backend built on go-audio/wav
// ABOUTME: Reports LIST/INFO metadata and renders integer PCM as stereo S16
package decode

import (
	"fmt"
	"math"
	"os"

	"github.com/Resonate-Protocol/chipdec/pkg/audio"
	"github.com/Resonate-Protocol/chipdec/pkg/config"
	"github.com/Resonate-Protocol/chipdec/pkg/decoder"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WAV decodes .wav files
type WAV struct {
	base
}

// NewWAV creates the WAV backend
func NewWAV() *WAV {
	return &WAV{base{name: "wav", suffixes: []string{"wav"}}}
}

// Configure reads the common session tunables
func (b *WAV) Configure(block config.Block) error {
	b.configure(block)
	return nil
}

// Open validates the header, reports INFO tags and positions the engine at
// the start of the PCM data
func (b *WAV) Open(path string, report decoder.MetaFunc) (decoder.Engine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	probe := wav.NewDecoder(f)
	if !probe.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("invalid WAV file")
	}
	if probe.WavAudioFormat != wavFormatPCM && probe.WavAudioFormat != wavFormatExtensible {
		f.Close()
		return nil, fmt.Errorf("unsupported WAV encoding %d", probe.WavAudioFormat)
	}
	switch probe.BitDepth {
	case 16, 24, 32:
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported WAV bit depth %d", probe.BitDepth)
	}

	probe.ReadMetadata()
	if md := probe.Metadata; md != nil {
		reportWAVInfo(md, report)
	}

	e := &wavEngine{
		file:     f,
		rate:     int(probe.SampleRate),
		channels: int(probe.NumChans),
		bitDepth: int(probe.BitDepth),
	}
	if err := e.Restart(); err != nil {
		f.Close()
		return nil, err
	}
	return e, nil
}

func reportWAVInfo(md *wav.Metadata, report decoder.MetaFunc) {
	fields := [][2]string{
		{"title", md.Title},
		{"artist", md.Artist},
		{"album", md.Product},
		{"date", md.CreationDate},
		{"genre", md.Genre},
		{"comment", md.Comments},
		{"track", md.TrackNbr},
		{"encoder", md.Software},
		{"copyright", md.Copyright},
	}
	for _, kv := range fields {
		if kv[1] != "" {
			report(kv[0], kv[1])
		}
	}
}

type wavEngine struct {
	file     *os.File
	dec      *wav.Decoder
	rate     int
	channels int
	bitDepth int
	pcmBytes int
	buf      *goaudio.IntBuffer
	pending  []int16
	out      []int16
}

func (e *wavEngine) SampleRate() (int, error) { return e.rate, nil }

func (e *wavEngine) LengthMs() (uint32, bool) {
	frameBytes := e.channels * e.bitDepth / 8
	if e.pcmBytes <= 0 || frameBytes <= 0 {
		return 0, false
	}
	ms := audio.MsFromFrames(int64(e.pcmBytes/frameBytes), e.rate)
	if ms > math.MaxUint32 {
		ms = math.MaxUint32
	}
	return uint32(ms), ms > 0
}

func (e *wavEngine) Render(dst []int16) (int, error) {
	frames := len(dst) / audio.Channels
	if e.buf == nil || len(e.buf.Data) < frames*e.channels {
		e.buf = &goaudio.IntBuffer{
			Data:           make([]int, frames*e.channels),
			Format:         e.dec.Format(),
			SourceBitDepth: e.bitDepth,
		}
	}

	written := 0
	for written < len(dst) {
		if len(e.pending) == 0 {
			e.buf.Data = e.buf.Data[:cap(e.buf.Data)]
			n, err := e.dec.PCMBuffer(e.buf)
			if err != nil {
				return written / audio.Channels, fmt.Errorf("wav decode error: %w", err)
			}
			if n == 0 {
				break
			}
			e.out = appendStereo(e.out[:0], e.buf.Data[:n], e.channels, e.bitDepth)
			e.pending = e.out
		}

		var n int
		n, e.pending = drain(dst[written:], e.pending)
		written += n
	}
	return written / audio.Channels, nil
}

// Restart rewinds the file and parses up to the PCM chunk again
func (e *wavEngine) Restart() error {
	if _, err := e.file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	dec := wav.NewDecoder(e.file)
	if err := dec.FwdToPCM(); err != nil {
		return fmt.Errorf("failed to find WAV data: %w", err)
	}
	e.dec = dec
	e.pcmBytes = dec.PCMSize
	e.pending = nil
	return nil
}

func (e *wavEngine) Close() error {
	return e.file.Close()
}
