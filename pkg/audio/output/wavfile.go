// ABOUTME: WAV file output built on go-audio/wav
// ABOUTME: Renders sessions to disk instead of the sound card
package output

import (
	"fmt"
	"log"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/chipdec/pkg/audio"
)

// WAVFile writes every session to one 16-bit PCM WAV file. Consecutive
// sessions must share a format; they are concatenated.
type WAVFile struct {
	*Volume

	path    string
	file    *os.File
	enc     *wav.Encoder
	format  audio.Format
	buf     goaudio.IntBuffer
	scratch []int16
}

// NewWAVFile creates an output that writes to path on first Open
func NewWAVFile(path string, volume *Volume) *WAVFile {
	if volume == nil {
		volume = NewVolume()
	}
	return &WAVFile{path: path, Volume: volume}
}

func (w *WAVFile) Open(format audio.Format) error {
	if err := format.Validate(); err != nil {
		return err
	}
	if w.enc != nil {
		if w.format != format {
			return fmt.Errorf("wav output is %s, cannot append %s", w.format, format)
		}
		return nil
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create wav output: %w", err)
	}

	w.file = f
	w.format = format
	w.enc = wav.NewEncoder(f, format.SampleRate, audio.BitDepth, format.Channels, 1)
	w.buf = goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		SourceBitDepth: audio.BitDepth,
	}

	log.Printf("Writing audio to %s (%s)", w.path, format)
	return nil
}

func (w *WAVFile) Write(samples []int16) error {
	if w.enc == nil {
		return fmt.Errorf("output not initialized")
	}

	w.scratch = append(w.scratch[:0], samples...)
	w.Apply(w.scratch)

	w.buf.Data = w.buf.Data[:0]
	for _, s := range w.scratch {
		w.buf.Data = append(w.buf.Data, int(s))
	}
	if err := w.enc.Write(&w.buf); err != nil {
		return fmt.Errorf("failed to write wav data: %w", err)
	}
	return nil
}

// Close finalizes the WAV header and closes the file
func (w *WAVFile) Close() error {
	if w.enc == nil {
		return nil
	}
	encErr := w.enc.Close()
	fileErr := w.file.Close()
	w.enc = nil
	w.file = nil

	if encErr != nil {
		return fmt.Errorf("failed to finalize wav output: %w", encErr)
	}
	return fileErr
}
