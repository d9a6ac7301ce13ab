// ABOUTME: MP3 backend built on go-mp3
// ABOUTME: Decodes to 16-bit stereo with byte-accurate seeking and length
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/chipdec/pkg/audio"
	"github.com/Resonate-Protocol/chipdec/pkg/config"
	"github.com/Resonate-Protocol/chipdec/pkg/decoder"
	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16-bit stereo
const mp3BytesPerFrame = 4

// MP3 decodes .mp3 files
type MP3 struct {
	base
}

// NewMP3 creates the MP3 backend
func NewMP3() *MP3 {
	return &MP3{base{name: "mp3", suffixes: []string{"mp3"}}}
}

// Configure reads the common session tunables
func (b *MP3) Configure(block config.Block) error {
	b.configure(block)
	return nil
}

// Open decodes the first frame and reports the file name as title
func (b *MP3) Open(path string, report decoder.MetaFunc) (decoder.Engine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	filename := filepath.Base(path)
	report("title", strings.TrimSuffix(filename, filepath.Ext(filename)))

	return &mp3Engine{file: f, dec: dec}, nil
}

type mp3Engine struct {
	file  *os.File
	dec   *mp3.Decoder
	buf   []byte
	ended bool
}

func (e *mp3Engine) SampleRate() (int, error) { return e.dec.SampleRate(), nil }

func (e *mp3Engine) LengthMs() (uint32, bool) {
	length := e.dec.Length()
	if length <= 0 {
		return 0, false
	}
	ms := audio.MsFromFrames(length/mp3BytesPerFrame, e.dec.SampleRate())
	if ms > math.MaxUint32 {
		ms = math.MaxUint32
	}
	return uint32(ms), ms > 0
}

func (e *mp3Engine) Render(dst []int16) (int, error) {
	if e.ended {
		return 0, nil
	}
	need := len(dst) / audio.Channels * mp3BytesPerFrame
	if cap(e.buf) < need {
		e.buf = make([]byte, need)
	}
	buf := e.buf[:need]

	n, err := io.ReadFull(e.dec, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("mp3 decode error: %w", err)
	}

	frames := n / mp3BytesPerFrame
	for i := 0; i < frames*audio.Channels; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	return frames, nil
}

func (e *mp3Engine) Restart() error {
	if _, err := e.dec.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	e.ended = false
	return nil
}

// Skip seeks forward without decoding into a caller buffer. go-mp3 cannot
// seek onto the end of the stream, so a skip reaching it marks the engine
// ended instead.
func (e *mp3Engine) Skip(frames int) (int, error) {
	if e.ended {
		return 0, nil
	}
	pos, err := e.dec.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("failed to get position: %w", err)
	}
	target := pos + int64(frames)*mp3BytesPerFrame
	if length := e.dec.Length(); length > 0 && target >= length {
		e.ended = true
		return int((length - pos) / mp3BytesPerFrame), nil
	}
	if _, err := e.dec.Seek(target, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to skip %d frames: %w", frames, err)
	}
	return frames, nil
}

func (e *mp3Engine) Close() error {
	return e.file.Close()
}
