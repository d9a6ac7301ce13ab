// ABOUTME: Tests for the tone backend
// ABOUTME: Tests file parsing, configuration defaults and waveform rendering
package decode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Resonate-Protocol/chipdec/pkg/config"
	"github.com/Resonate-Protocol/chipdec/pkg/decoder"
)

func writeToneFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func configuredTone(t *testing.T, values map[string]string) *Tone {
	t.Helper()
	b := NewTone()
	if err := b.Configure(config.NewBlock("tone", values)); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	return b
}

func TestToneFileOverridesDefaults(t *testing.T) {
	b := configuredTone(t, map[string]string{"length": "30", "fade": "2"})
	path := writeToneFile(t, "beep.tone", "# comment\n\ntitle = Beep\nlength=0:05\nfrequency=1000\n")

	md, err := decoder.ScanMetadata(b, path)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !md.Length.Valid || md.Length.Ms != 5000 {
		t.Errorf("expected length 5000ms from file, got %v", md.Length)
	}
	if md.FadeMs != 2000 {
		t.Errorf("expected configured fade 2000ms, got %d", md.FadeMs)
	}
	if md.Raw.Title != "Beep" {
		t.Errorf("expected title Beep, got %q", md.Raw.Title)
	}
}

func TestToneTitleFromFilename(t *testing.T) {
	b := configuredTone(t, nil)
	path := writeToneFile(t, "a440.tone", "")

	md, err := decoder.ScanMetadata(b, path)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if md.Raw.Title != "a440" {
		t.Errorf("expected title a440, got %q", md.Raw.Title)
	}
	if md.Length.Valid {
		t.Errorf("expected unknown length, got %v", md.Length)
	}
}

func TestToneMalformedLine(t *testing.T) {
	b := configuredTone(t, nil)
	path := writeToneFile(t, "bad.tone", "frequency 440\n")

	if _, err := b.Open(path, func(string, string) {}); err == nil {
		t.Fatal("expected error for line without '='")
	}
}

func TestToneConfigureValidation(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"zero frequency", map[string]string{"frequency": "0"}},
		{"loud amplitude", map[string]string{"amplitude": "1.5"}},
		{"unknown waveform", map[string]string{"waveform": "sawtooth"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewTone()
			if err := b.Configure(config.NewBlock("tone", tt.values)); err == nil {
				t.Error("expected configure error")
			}
		})
	}
}

func TestToneSquareWave(t *testing.T) {
	e := &toneEngine{frequency: 1000, amplitude: 1, waveform: "square"}
	rate, err := e.SetOutputRate(8000)
	if err != nil || rate != 8000 {
		t.Fatalf("expected rate 8000, got %d (%v)", rate, err)
	}

	buf := make([]int16, 16)
	n, err := e.Render(buf)
	if err != nil || n != 8 {
		t.Fatalf("expected 8 frames, got %d (%v)", n, err)
	}

	// One full period spans 8 frames at 1kHz/8kHz
	for i := 0; i < 8; i++ {
		want := int16(32767)
		if i >= 4 {
			want = -32767
		}
		if buf[i*2] != want || buf[i*2+1] != want {
			t.Errorf("frame %d: expected %d on both channels, got %d/%d", i, want, buf[i*2], buf[i*2+1])
		}
	}
}

func TestToneSkipMatchesRender(t *testing.T) {
	rendered := &toneEngine{frequency: 440, amplitude: 0.5, waveform: "sine"}
	skipped := &toneEngine{frequency: 440, amplitude: 0.5, waveform: "sine"}
	rendered.SetOutputRate(0)
	skipped.SetOutputRate(0)

	scratch := make([]int16, 2*100)
	rendered.Render(scratch)
	if n, _ := skipped.Skip(100); n != 100 {
		t.Fatalf("expected 100 frames skipped, got %d", n)
	}

	a := make([]int16, 8)
	b := make([]int16, 8)
	rendered.Render(a)
	skipped.Render(b)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d: rendered %d, skipped %d", i, a[i], b[i])
		}
	}

	if err := rendered.Restart(); err != nil {
		t.Fatal(err)
	}
	if rendered.index != 0 {
		t.Errorf("expected index 0 after restart, got %d", rendered.index)
	}
}

func TestToneDefaultRate(t *testing.T) {
	e := &toneEngine{}
	rate, err := e.SetOutputRate(0)
	if err != nil || rate != toneDefaultRate {
		t.Errorf("expected default rate %d, got %d (%v)", toneDefaultRate, rate, err)
	}
	if _, err := e.SetOutputRate(-1); err == nil {
		t.Error("expected error for negative rate")
	}
}

func TestToneSessionLength(t *testing.T) {
	b := configuredTone(t, map[string]string{"sample_rate": "8000"})
	path := writeToneFile(t, "short.tone", "length=2\nfade=1\n")

	s, err := decoder.Open(b, path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer s.Close()

	if s.Format().SampleRate != 8000 {
		t.Errorf("expected 8000Hz, got %d", s.Format().SampleRate)
	}
	if !s.Seekable() {
		t.Error("expected tone with a length to be seekable")
	}
	if got := s.Metadata().Declared(); !got.Valid || got.Ms != 3000 {
		t.Errorf("expected declared 3000ms, got %v", got)
	}
}
