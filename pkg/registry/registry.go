// ABOUTME: Backend registry and suffix/codec priority resolution
// ABOUTME: Owns backend lifecycle and an atomically replaced override table
package registry

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/Resonate-Protocol/chipdec/pkg/config"
	"github.com/Resonate-Protocol/chipdec/pkg/decoder"
)

type entry struct {
	backend     decoder.Backend
	name        string
	suffixes    map[string]bool
	enabled     bool
	initialized bool
}

// priorityTable maps a lowercased codec name to the backends that must be
// tried first for it. Never mutated once published.
type priorityTable map[string][]*entry

// Registry maps file suffixes to candidate backends. Init must complete
// before the registry is shared; afterwards every query is safe for
// concurrent use.
type Registry struct {
	mu       sync.Mutex
	entries  []*entry
	ready    bool
	priority atomic.Pointer[priorityTable]
}

// New registers backends in priority order. Later backends with a name
// already registered are ignored.
func New(backends ...decoder.Backend) *Registry {
	r := &Registry{}
	seen := make(map[string]bool)
	for _, b := range backends {
		name := strings.ToLower(b.Name())
		if seen[name] {
			log.Printf("registry: duplicate backend %q ignored", name)
			continue
		}
		seen[name] = true

		e := &entry{backend: b, name: name, suffixes: make(map[string]bool)}
		for _, s := range b.Suffixes() {
			e.suffixes[normalizeSuffix(s)] = true
		}
		r.entries = append(r.entries, e)
	}
	empty := priorityTable{}
	r.priority.Store(&empty)
	return r
}

// Init enables and configures every backend whose block does not disable
// it, then builds the override table. Backends are configured at most once;
// a second Init is an error.
func (r *Registry) Init(cfg *config.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ready {
		return errors.New("registry already initialized")
	}

	for _, e := range r.entries {
		block := blockFor(cfg, e.name)
		if !block.Bool("enabled", true) {
			log.Printf("registry: decoder %s disabled", e.name)
			continue
		}
		if err := r.initialize(e, block); err != nil {
			return err
		}
	}

	r.ready = true
	r.priority.Store(r.buildPriority(cfg))
	return nil
}

func (r *Registry) initialize(e *entry, block *config.Block) error {
	if e.initialized {
		return nil
	}
	if err := e.backend.Configure(*block); err != nil {
		if errors.Is(err, decoder.ErrUnavailable) {
			log.Printf("registry: decoder %s unavailable: %v", e.name, err)
			return nil
		}
		return fmt.Errorf("failed to configure decoder %s: %w", e.name, err)
	}
	e.initialized = true
	e.enabled = true
	return nil
}

// Reconfigure replaces the override table from cfg. Backend enablement and
// configuration are not revisited.
func (r *Registry) Reconfigure(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.priority.Store(r.buildPriority(cfg))
}

func (r *Registry) buildPriority(cfg *config.Config) *priorityTable {
	table := priorityTable{}
	if cfg == nil {
		return &table
	}

	for i := range cfg.Decoders {
		block := &cfg.Decoders[i]
		codecs := block.String("codecs", "")
		if codecs == "" {
			continue
		}

		e := r.find(block.Plugin)
		if e == nil {
			log.Printf("registry: codecs for unknown decoder %q ignored", block.Plugin)
			continue
		}
		if !e.enabled {
			log.Printf("registry: codecs for disabled decoder %q ignored", block.Plugin)
			continue
		}

		for _, codec := range ParseCodecList(codecs) {
			if !containsEntry(table[codec], e) {
				table[codec] = append(table[codec], e)
			}
		}
	}
	return &table
}

// Candidates returns the backends to try for suffix: its overrides first,
// then every other enabled backend in registration order
func (r *Registry) Candidates(suffix string) []decoder.Backend {
	return r.resolve(suffix, false)
}

// Playable is Candidates restricted to overrides and backends that claim
// suffix
func (r *Registry) Playable(suffix string) []decoder.Backend {
	return r.resolve(suffix, true)
}

// PlayableFor resolves the backends for a file path
func (r *Registry) PlayableFor(path string) []decoder.Backend {
	return r.Playable(SuffixOf(path))
}

func (r *Registry) resolve(suffix string, claimedOnly bool) []decoder.Backend {
	suffix = normalizeSuffix(suffix)
	overrides := (*r.priority.Load())[suffix]

	ordered := make([]*entry, 0, len(r.entries))
	ordered = append(ordered, overrides...)
	for _, e := range r.entries {
		if !e.enabled || containsEntry(ordered, e) {
			continue
		}
		if claimedOnly && !e.suffixes[suffix] {
			continue
		}
		ordered = append(ordered, e)
	}

	out := make([]decoder.Backend, len(ordered))
	for i, e := range ordered {
		out[i] = e.backend
	}
	return out
}

// SupportsSuffix reports whether any enabled backend claims suffix
func (r *Registry) SupportsSuffix(suffix string) bool {
	suffix = normalizeSuffix(suffix)
	for _, e := range r.entries {
		if e.enabled && e.suffixes[suffix] {
			return true
		}
	}
	return false
}

// Lookup returns the enabled backend called name
func (r *Registry) Lookup(name string) (decoder.Backend, bool) {
	e := r.find(name)
	if e == nil || !e.enabled {
		return nil, false
	}
	return e.backend, true
}

// Enabled returns the enabled backends in registration order
func (r *Registry) Enabled() []decoder.Backend {
	var out []decoder.Backend
	for _, e := range r.entries {
		if e.enabled {
			out = append(out, e.backend)
		}
	}
	return out
}

// Suffixes returns every suffix claimed by an enabled backend
func (r *Registry) Suffixes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range r.entries {
		if !e.enabled {
			continue
		}
		for _, s := range e.backend.Suffixes() {
			s = normalizeSuffix(s)
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

func (r *Registry) find(name string) *entry {
	name = strings.ToLower(name)
	for _, e := range r.entries {
		if e.name == name {
			return e
		}
	}
	return nil
}

// ParseCodecList splits a codecs setting on commas and whitespace into
// lowercased names, dropping empties and repeats
func ParseCodecList(s string) []string {
	fields := strings.FieldsFunc(s, func(c rune) bool {
		return c == ',' || unicode.IsSpace(c)
	})

	var out []string
	seen := make(map[string]bool)
	for _, f := range fields {
		f = strings.ToLower(f)
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// SuffixOf returns the lowercased extension of path without the dot
func SuffixOf(path string) string {
	return normalizeSuffix(filepath.Ext(path))
}

func normalizeSuffix(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, "."))
}

func blockFor(cfg *config.Config, name string) *config.Block {
	if b := cfg.FindBlock(name); b != nil {
		return b
	}
	empty := config.NewBlock(name, nil)
	return &empty
}

func containsEntry(list []*entry, e *entry) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}
