// ABOUTME: Synthesized tone backend for demos and pipeline tests
// ABOUTME: Renders a configurable waveform at whatever rate the session asks for
package decode

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Resonate-Protocol/chipdec/pkg/config"
	"github.com/Resonate-Protocol/chipdec/pkg/decoder"
)

const (
	toneDefaultRate      = 44100
	toneDefaultFrequency = 440.0 // A4 note
	toneDefaultAmplitude = 0.5
)

// Tone plays .tone files: plain text key=value lines describing a tone.
// Recognized keys are waveform (sine, square, triangle), frequency,
// amplitude, plus the usual length, fade and tag keys. Blank lines and
// lines starting with # are ignored.
type Tone struct {
	base
	frequency float64
	amplitude float64
	waveform  string
	length    string
	fade      string
}

// NewTone creates the tone backend
func NewTone() *Tone {
	return &Tone{
		base:      base{name: "tone", suffixes: []string{"tone"}},
		frequency: toneDefaultFrequency,
		amplitude: toneDefaultAmplitude,
		waveform:  "sine",
	}
}

// Configure reads the session tunables and the default tone parameters
func (b *Tone) Configure(block config.Block) error {
	b.configure(block)
	b.frequency = block.Float("frequency", toneDefaultFrequency)
	b.amplitude = block.Float("amplitude", toneDefaultAmplitude)
	b.waveform = strings.ToLower(block.String("waveform", "sine"))
	b.length = block.String("length", "")
	b.fade = block.String("fade", "")

	if b.frequency <= 0 {
		return fmt.Errorf("tone: invalid frequency %g", b.frequency)
	}
	if b.amplitude < 0 || b.amplitude > 1 {
		return fmt.Errorf("tone: amplitude %g out of range [0, 1]", b.amplitude)
	}
	if !validWaveform(b.waveform) {
		return fmt.Errorf("tone: unknown waveform %q", b.waveform)
	}
	return nil
}

// Open reads the tone description. Values in the file take precedence over
// the configured defaults.
func (b *Tone) Open(path string, report decoder.MetaFunc) (decoder.Engine, error) {
	e := &toneEngine{
		frequency: b.frequency,
		amplitude: b.amplitude,
		waveform:  b.waveform,
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	hasTitle := false

	err := b.readFile(path, func(key, value string) {
		switch strings.ToLower(key) {
		case "frequency":
			if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
				e.frequency = f
			}
		case "amplitude":
			if a, err := strconv.ParseFloat(value, 64); err == nil && a >= 0 && a <= 1 {
				e.amplitude = a
			}
		case "waveform":
			if w := strings.ToLower(value); validWaveform(w) {
				e.waveform = w
			}
		case "title":
			hasTitle = true
		}
		report(key, value)
	})
	if err != nil {
		return nil, err
	}

	if !hasTitle {
		report("title", title)
	}
	if b.length != "" {
		report("length", b.length)
	}
	if b.fade != "" {
		report("fade", b.fade)
	}
	return e, nil
}

// ScanFile reports the file's pairs without building an engine
func (b *Tone) ScanFile(path string, report decoder.MetaFunc) error {
	_, err := b.Open(path, report)
	return err
}

func (b *Tone) readFile(path string, pair func(key, value string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open tone file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return fmt.Errorf("tone file line %d: expected key=value", line)
		}
		pair(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read tone file: %w", err)
	}
	return nil
}

func validWaveform(w string) bool {
	switch w {
	case "sine", "square", "triangle":
		return true
	}
	return false
}

type toneEngine struct {
	frequency float64
	amplitude float64
	waveform  string
	rate      int
	index     uint64
}

// SetOutputRate accepts any positive rate; 0 selects 44.1kHz
func (e *toneEngine) SetOutputRate(rate int) (int, error) {
	if rate == 0 {
		rate = toneDefaultRate
	}
	if rate < 0 {
		return 0, fmt.Errorf("invalid rate %d", rate)
	}
	e.rate = rate
	return rate, nil
}

func (e *toneEngine) Render(dst []int16) (int, error) {
	frames := len(dst) / 2
	for i := 0; i < frames; i++ {
		pcmValue := int16(e.sample(e.index+uint64(i)) * e.amplitude * 32767.0)

		// Stereo (duplicate to both channels)
		dst[i*2] = pcmValue
		dst[i*2+1] = pcmValue
	}
	e.index += uint64(frames)
	return frames, nil
}

// sample returns the waveform value in [-1, 1] at frame n
func (e *toneEngine) sample(n uint64) float64 {
	phase := math.Mod(float64(n)*e.frequency/float64(e.rate), 1.0)
	switch e.waveform {
	case "square":
		if phase < 0.5 {
			return 1
		}
		return -1
	case "triangle":
		return 1 - 4*math.Abs(phase-0.5)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

func (e *toneEngine) Restart() error {
	e.index = 0
	return nil
}

// Skip advances the phase without rendering
func (e *toneEngine) Skip(frames int) (int, error) {
	e.index += uint64(frames)
	return frames, nil
}

func (e *toneEngine) Close() error { return nil }
