// ABOUTME: Queue player that drives decode sessions into an output
// ABOUTME: Resolves backends per file, falls back across candidates, handles commands
package player

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/chipdec/pkg/audio/output"
	"github.com/Resonate-Protocol/chipdec/pkg/decoder"
	"github.com/Resonate-Protocol/chipdec/pkg/registry"
)

// ErrNoBackend is reported for files no enabled backend could open
var ErrNoBackend = errors.New("no backend could open file")

// Resolver yields the backends to try for a path, in priority order
type Resolver interface {
	PlayableFor(path string) []decoder.Backend
}

// Player plays a queue of files one session at a time
type Player struct {
	resolver Resolver
	out      output.Output
	status   *statusHub

	mu      sync.Mutex
	queue   []string
	index   int
	pending *decoder.Command
	playing bool

	halted atomic.Bool
}

// New creates a player reading backends from reg and writing to out
func New(reg Resolver, out output.Output) *Player {
	return &Player{
		resolver: reg,
		out:      out,
		status:   newStatusHub(),
	}
}

var _ Resolver = (*registry.Registry)(nil)

// Enqueue appends files to the queue
func (p *Player) Enqueue(paths ...string) {
	p.mu.Lock()
	p.queue = append(p.queue, paths...)
	queued := len(p.queue)
	p.mu.Unlock()

	p.status.update(func(s *Status) { s.Queued = queued })
}

// Run plays the queue until it is exhausted, Stop is called, or ctx is
// cancelled. Files that fail to open or render are logged and skipped.
func (p *Player) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil || p.halted.Load() {
			break
		}
		path, index, ok := p.nextPath()
		if !ok {
			break
		}

		if err := p.play(ctx, path, index); err != nil {
			log.Printf("Playback of %s failed: %v", path, err)
			p.status.update(func(s *Status) {
				s.State = StateError
				s.Path = path
				s.Err = err.Error()
			})
		}
	}

	state := StateIdle
	if p.halted.Load() {
		state = StateStopped
	}
	p.status.update(func(s *Status) {
		s.State = state
		s.Position = 0
	})
	return nil
}

func (p *Player) nextPath() (string, int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.index >= len(p.queue) {
		return "", 0, false
	}
	path := p.queue[p.index]
	index := p.index
	p.index++
	return path, index, true
}

// play opens path with the first candidate that accepts it and runs the
// session to completion
func (p *Player) play(ctx context.Context, path string, index int) error {
	session, err := p.open(path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.pending = nil
	p.playing = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.playing = false
		p.pending = nil
		p.mu.Unlock()
	}()

	p.status.update(func(s *Status) { s.Index = index })

	client := &sessionClient{p: p, session: session}
	start := time.Now()
	if err := session.Run(ctx, client); err != nil {
		return err
	}
	if client.outErr != nil {
		return fmt.Errorf("output: %w", client.outErr)
	}

	log.Printf("Finished %s after %v (%v of audio)", path, time.Since(start).Round(time.Millisecond), session.Position())
	return nil
}

func (p *Player) open(path string) (*decoder.Session, error) {
	candidates := p.resolver.PlayableFor(path)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no backend claims %q", ErrNoBackend, registry.SuffixOf(path))
	}

	var errs []error
	for _, backend := range candidates {
		session, err := decoder.Open(backend, path)
		if err == nil {
			return session, nil
		}
		log.Printf("%s could not open %s, trying next backend", backend.Name(), path)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoBackend, errors.Join(errs...))
}

// Seek asks the current session to move to target. Ignored when idle.
func (p *Player) Seek(target time.Duration) {
	p.command(decoder.SeekTo(target))
}

// Next ends the current file and continues with the queue
func (p *Player) Next() {
	p.command(decoder.Stop())
}

// Stop ends the current file and the queue
func (p *Player) Stop() {
	p.halted.Store(true)
	p.command(decoder.Stop())
}

// command records cmd for the running session. A later command replaces an
// earlier one that has not been picked up yet, except that a pending stop
// is never downgraded to a seek.
func (p *Player) command(cmd decoder.Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	if p.pending != nil && p.pending.Kind == decoder.CommandStop && cmd.Kind != decoder.CommandStop {
		return
	}
	p.pending = &cmd
}

func (p *Player) takeCommand() decoder.Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return decoder.None()
	}
	cmd := *p.pending
	p.pending = nil
	return cmd
}

// Status returns the latest snapshot
func (p *Player) Status() Status {
	return p.status.get()
}

// Subscribe returns a channel of status snapshots and a function that
// unsubscribes and closes it
func (p *Player) Subscribe() (<-chan Status, func()) {
	return p.status.subscribe()
}
