// ABOUTME: Decode session state machine for one file
// ABOUTME: Drives an engine through open, render, fade, seek and teardown
package decoder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/chipdec/pkg/audio"
	"github.com/google/uuid"
)

// State is a session lifecycle state
type State int32

const (
	StateOpening State = iota
	StateReady
	StateRendering
	StateSeeking
	StateDraining
	StateClosed
	StateError
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateReady:
		return "ready"
	case StateRendering:
		return "rendering"
	case StateSeeking:
		return "seeking"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Session plays one file through one engine. Run may be called once.
type Session struct {
	id      uuid.UUID
	backend string
	path    string
	engine  Engine
	meta    TrackMetadata
	format  audio.Format
	opts    Options

	state    atomic.Int32
	position atomic.Int64 // frames since song start
	ran      atomic.Bool

	// Owned by the render loop
	hasLength     bool
	lengthFrames  int64
	fadeFrames    int64
	songRemaining int64
	fadeRemaining int64
	buf           []int16
	seekBuf       []int16

	errMu     sync.Mutex
	err       error
	closeOnce sync.Once
}

// Open loads path with backend and negotiates the output format. On failure
// no session is produced and the engine, if any, is released.
func Open(backend Backend, path string) (*Session, error) {
	name := backend.Name()
	collector := NewCollector()

	engine, err := backend.Open(path, collector.Meta)
	if err != nil {
		log.Printf("%s: error loading %s: %v", name, path, err)
		if errors.Is(err, ErrAllocation) {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return nil, fmt.Errorf("%s: %w: %w", name, ErrOpen, err)
	}
	if engine == nil {
		log.Printf("%s: no engine for %s", name, path)
		return nil, fmt.Errorf("%s: %w", name, ErrAllocation)
	}

	opts := backend.SessionOptions().withDefaults()

	if lr, ok := engine.(LengthReporter); ok {
		if ms, ok := lr.LengthMs(); ok {
			collector.SetLength(ms)
		}
	}
	if opts.DefaultFadeMs > 0 {
		collector.SetDefaultFade(opts.DefaultFadeMs)
	}

	negotiated, rate, err := negotiateRate(engine, opts)
	if err == nil {
		err = audio.Stereo16(rate).Validate()
	}
	if err != nil {
		if cerr := engine.Close(); cerr != nil {
			log.Printf("%s: error closing engine: %v", name, cerr)
		}
		log.Printf("%s: invalid audio format for %s: %v", name, path, err)
		return nil, fmt.Errorf("%s: %w: %w", name, ErrOpen, err)
	}

	md := collector.Metadata()
	s := &Session{
		id:      uuid.New(),
		backend: name,
		path:    path,
		engine:  negotiated,
		meta:    md,
		format:  audio.Stereo16(rate),
		opts:    opts,
		buf:     make([]int16, opts.QuantumFrames*audio.Channels),
	}

	s.hasLength = md.Length.Valid
	if s.hasLength {
		s.lengthFrames = audio.FramesFromMs(int64(md.Length.Ms), rate)
		s.fadeFrames = audio.FramesFromMs(int64(md.FadeMs), rate)
	}
	s.songRemaining = s.lengthFrames
	s.fadeRemaining = s.fadeFrames
	s.setState(StateReady)

	log.Printf("%s: opened %s (%s, length %s, fade %dms)", name, path, s.format, md.Length, md.FadeMs)
	return s, nil
}

func negotiateRate(engine Engine, opts Options) (Engine, int, error) {
	switch e := engine.(type) {
	case ResampleAwareEngine:
		rate, err := e.SetOutputRate(opts.SampleRate)
		if err != nil {
			return engine, 0, fmt.Errorf("failed to set output rate: %w", err)
		}
		return engine, rate, nil
	case FixedRateEngine:
		rate, err := e.SampleRate()
		if err != nil {
			return engine, 0, fmt.Errorf("failed to get sample rate: %w", err)
		}
		if opts.SampleRate > 0 && opts.SampleRate != rate && rate > 0 {
			return newResampled(e, rate, opts.SampleRate, opts.QuantumFrames), opts.SampleRate, nil
		}
		return engine, rate, nil
	default:
		return engine, 0, errors.New("engine has no sample rate")
	}
}

// Decode opens path and runs the session to completion
func Decode(ctx context.Context, backend Backend, path string, client Client) error {
	s, err := Open(backend, path)
	if err != nil {
		return err
	}
	return s.Run(ctx, client)
}

// Run reports the format to client and renders until the song ends, the
// client stops, or ctx is cancelled. The engine is released on return.
func (s *Session) Run(ctx context.Context, client Client) (err error) {
	if !s.ran.CompareAndSwap(false, true) {
		return errors.New("session already run")
	}
	defer s.release()
	defer func() {
		if err != nil {
			s.fail(err)
		}
	}()

	client.Ready(s.format, s.hasLength, s.meta.Declared())
	s.setState(StateRendering)

	for {
		if ctx.Err() != nil {
			log.Printf("%s: stopping %s: %v", s.backend, s.path, ctx.Err())
			return nil
		}

		frames := s.opts.QuantumFrames
		if s.hasLength {
			left := s.songRemaining + s.fadeRemaining
			if left <= 0 {
				return nil
			}
			if left < int64(frames) {
				frames = int(left)
			}
		}

		n, err := s.engine.Render(s.buf[:frames*audio.Channels])
		if err != nil {
			log.Printf("%s: decode error: %v", s.backend, err)
			return fmt.Errorf("%s: %w: %w", s.backend, ErrRender, err)
		}
		if n <= 0 {
			return nil
		}
		if n > frames {
			n = frames
		}

		out := s.buf[:n*audio.Channels]
		s.applyEnvelope(out, n)
		s.position.Add(int64(n))

		cmd := client.SubmitAudio(out)
		switch cmd.Kind {
		case CommandStop:
			return nil
		case CommandSeek:
			if err := s.seek(cmd.Seek); err != nil {
				log.Printf("%s: seek failed: %v", s.backend, err)
				return fmt.Errorf("%s: %w: %w", s.backend, ErrSeek, err)
			}
			client.CommandFinished()
			s.setState(StateRendering)
			continue
		}

		if s.hasLength && s.songRemaining <= 0 && s.fadeRemaining <= 0 {
			return nil
		}
	}
}

// applyEnvelope advances the body and fade counters by frames and fades
// whatever part of buf lies past the end of the body
func (s *Session) applyEnvelope(buf []int16, frames int) {
	if !s.hasLength {
		return
	}

	n := int64(frames)
	before := s.songRemaining
	s.songRemaining -= n
	if s.songRemaining < 0 {
		s.songRemaining = 0
	}

	if before > n {
		return
	}
	start := before
	if start < 0 {
		start = 0
	}
	ApplyFade(buf, frames, audio.Channels, start, s.fadeRemaining, s.fadeFrames)

	s.fadeRemaining -= n - start
	if s.fadeRemaining < 0 {
		s.fadeRemaining = 0
	}
}

// seek restarts the engine and discards frames up to target
func (s *Session) seek(target time.Duration) error {
	s.setState(StateSeeking)

	ms := target.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	targetFrames := audio.FramesFromMs(ms, s.format.SampleRate)
	if s.hasLength {
		if end := s.lengthFrames + s.fadeFrames; targetFrames > end {
			targetFrames = end
		}
	}

	if err := s.engine.Restart(); err != nil {
		return fmt.Errorf("restart: %w", err)
	}

	skipped, err := s.skip(targetFrames)
	if err != nil {
		return fmt.Errorf("skip to frame %d: %w", targetFrames, err)
	}
	s.position.Store(skipped)

	s.songRemaining = s.lengthFrames
	s.fadeRemaining = s.fadeFrames
	if s.hasLength {
		if skipped <= s.lengthFrames {
			s.songRemaining = s.lengthFrames - skipped
		} else {
			// Inside the fade tail: resume mid-fade
			s.songRemaining = 0
			s.fadeRemaining = s.fadeFrames - (skipped - s.lengthFrames)
			if s.fadeRemaining < 0 {
				s.fadeRemaining = 0
			}
		}
	}
	return nil
}

// skip advances the engine by frames in bounded chunks. It returns the
// frames actually skipped, which is short if the stream ended.
func (s *Session) skip(frames int64) (int64, error) {
	chunkFrames := int64(s.opts.SeekChunkFrames)
	var done int64

	if d, ok := s.engine.(Discarder); ok {
		for done < frames {
			chunk := min(frames-done, chunkFrames)
			n, err := d.Skip(int(chunk))
			if err != nil {
				return done, err
			}
			done += int64(n)
			if int64(n) < chunk {
				break
			}
		}
		return done, nil
	}

	if s.seekBuf == nil {
		s.seekBuf = make([]int16, chunkFrames*audio.Channels)
	}
	for done < frames {
		chunk := min(frames-done, chunkFrames)
		n, err := s.engine.Render(s.seekBuf[:chunk*audio.Channels])
		if err != nil {
			return done, err
		}
		if n <= 0 {
			break
		}
		done += int64(n)
	}
	return done, nil
}

// Close releases a session that will not be run. It must not be called
// concurrently with Run.
func (s *Session) Close() error {
	s.release()
	return nil
}

func (s *Session) release() {
	s.closeOnce.Do(func() {
		if s.State() != StateError {
			s.setState(StateDraining)
		}
		if err := s.engine.Close(); err != nil {
			log.Printf("%s: error closing engine: %v", s.backend, err)
		}
		s.setState(StateClosed)
	})
}

func (s *Session) fail(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
	s.setState(StateError)
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

// Err returns the error that ended the session, if any
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// ID identifies the session in logs and status messages
func (s *Session) ID() uuid.UUID { return s.id }

// Backend returns the name of the backend driving the session
func (s *Session) Backend() string { return s.backend }

// Path returns the file being played
func (s *Session) Path() string { return s.path }

// Format returns the negotiated output format
func (s *Session) Format() audio.Format { return s.format }

// Metadata returns the metadata collected at open time
func (s *Session) Metadata() TrackMetadata { return s.meta }

// Seekable reports whether the song length is known
func (s *Session) Seekable() bool { return s.hasLength }

// Position returns the playback position of the last rendered buffer
func (s *Session) Position() time.Duration {
	ms := audio.MsFromFrames(s.position.Load(), s.format.SampleRate)
	return time.Duration(ms) * time.Millisecond
}

// Frames returns the playback position in frames
func (s *Session) Frames() int64 {
	return s.position.Load()
}
