// ABOUTME: Metadata scanning without playback
// ABOUTME: Uses a backend's Scanner capability or a throwaway engine
package decoder

import (
	"fmt"
	"log"
)

// ScanMetadata reads the metadata of path without rendering audio
func ScanMetadata(backend Backend, path string) (TrackMetadata, error) {
	name := backend.Name()
	collector := NewCollector()

	if sc, ok := backend.(Scanner); ok {
		if err := sc.ScanFile(path, collector.Meta); err != nil {
			return TrackMetadata{}, fmt.Errorf("%s: %w: %w", name, ErrOpen, err)
		}
	} else {
		engine, err := backend.Open(path, collector.Meta)
		if err != nil {
			return TrackMetadata{}, fmt.Errorf("%s: %w: %w", name, ErrOpen, err)
		}
		if engine == nil {
			return TrackMetadata{}, fmt.Errorf("%s: %w", name, ErrAllocation)
		}
		if lr, ok := engine.(LengthReporter); ok {
			if ms, ok := lr.LengthMs(); ok {
				collector.SetLength(ms)
			}
		}
		if err := engine.Close(); err != nil {
			log.Printf("%s: error closing engine: %v", name, err)
		}
	}

	if fade := backend.SessionOptions().DefaultFadeMs; fade > 0 {
		collector.SetDefaultFade(fade)
	}
	return collector.Metadata(), nil
}

// Scan reads the metadata of path and reports it to sink: duration first,
// then tags and pairs
func Scan(backend Backend, path string, sink TagSink) error {
	md, err := ScanMetadata(backend, path)
	if err != nil {
		return err
	}
	md.Emit(sink)
	return nil
}
