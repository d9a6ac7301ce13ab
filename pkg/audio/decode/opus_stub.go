//go:build nolibopusfile

// ABOUTME: Opus backend placeholder for builds without libopusfile
// ABOUTME: Configure reports the backend as unavailable so the registry disables it
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/chipdec/pkg/config"
	"github.com/Resonate-Protocol/chipdec/pkg/decoder"
)

// Opus is unavailable in this build
type Opus struct {
	base
}

// NewOpus creates the disabled Opus backend
func NewOpus() *Opus {
	return &Opus{base{name: "opus", suffixes: []string{"opus", "ogg"}}}
}

// Configure always fails with decoder.ErrUnavailable
func (b *Opus) Configure(config.Block) error {
	return fmt.Errorf("opus: built with nolibopusfile: %w", decoder.ErrUnavailable)
}

// Open always fails
func (b *Opus) Open(string, decoder.MetaFunc) (decoder.Engine, error) {
	return nil, fmt.Errorf("opus: built with nolibopusfile: %w", decoder.ErrUnavailable)
}
