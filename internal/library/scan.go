// ABOUTME: Parallel metadata scan over a music library
// ABOUTME: Walks directories for claimed suffixes and scans files with bounded concurrency
package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Resonate-Protocol/chipdec/pkg/decoder"
	"github.com/Resonate-Protocol/chipdec/pkg/registry"
)

// Resolver yields backends for files
type Resolver interface {
	PlayableFor(path string) []decoder.Backend
	SupportsSuffix(suffix string) bool
}

// Entry is the scan result for one file
type Entry struct {
	Path     string
	Backend  string
	Metadata decoder.TrackMetadata
	Err      error
}

// Walk returns the files under root whose suffix some enabled backend
// claims, sorted by path
func Walk(root string, reg Resolver) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if reg.SupportsSuffix(registry.SuffixOf(path)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ScanAll scans paths with at most limit files in flight (NumCPU when
// limit <= 0). Per-file failures are reported in Entry.Err; only
// cancellation aborts the scan. Results keep the order of paths.
func ScanAll(ctx context.Context, reg Resolver, paths []string, limit int) ([]Entry, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	results := make([]Entry, len(paths))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			results[i] = scanOne(reg, path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// scanOne tries each candidate backend until one reads the file
func scanOne(reg Resolver, path string) Entry {
	entry := Entry{Path: path}

	candidates := reg.PlayableFor(path)
	if len(candidates) == 0 {
		entry.Err = fmt.Errorf("no backend claims %q", registry.SuffixOf(path))
		return entry
	}

	var errs []error
	for _, backend := range candidates {
		md, err := decoder.ScanMetadata(backend, path)
		if err == nil {
			entry.Backend = backend.Name()
			entry.Metadata = md
			return entry
		}
		errs = append(errs, err)
	}
	entry.Err = errors.Join(errs...)
	return entry
}
