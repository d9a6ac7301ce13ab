// ABOUTME: Entry point for the chipdec library scanner
// ABOUTME: Prints one JSON line of metadata per playable file
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/chipdec/internal/library"
	"github.com/Resonate-Protocol/chipdec/pkg/audio/decode"
	"github.com/Resonate-Protocol/chipdec/pkg/config"
	"github.com/Resonate-Protocol/chipdec/pkg/registry"
)

var (
	configPath = flag.String("config", "", "Decoder configuration file (JSON)")
	jobs       = flag.Int("jobs", 0, "Files scanned in parallel (default: number of CPUs)")
	pairs      = flag.Bool("pairs", false, "Include freeform key/value pairs")
	quiet      = flag.Bool("quiet", false, "Only log errors")
)

// record is one output line
type record struct {
	Path       string            `json:"path"`
	Backend    string            `json:"backend,omitempty"`
	LengthMs   *uint32           `json:"length_ms,omitempty"`
	FadeMs     uint32            `json:"fade_ms,omitempty"`
	DeclaredMs *uint32           `json:"declared_ms,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
	Pairs      map[string]string `json:"pairs,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] file-or-dir...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log.SetOutput(os.Stderr)
	if *quiet {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	reg := registry.New(decode.All()...)
	if err := reg.Init(cfg); err != nil {
		log.Fatalf("Failed to initialize decoders: %v", err)
	}
	cfg.WarnUnused()

	var paths []string
	for _, arg := range flag.Args() {
		info, err := os.Stat(arg)
		if err != nil {
			log.Fatalf("cannot read %s: %v", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := library.Walk(arg, reg)
		if err != nil {
			log.Fatalf("%v", err)
		}
		paths = append(paths, found...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	entries, err := library.ScanAll(ctx, reg, paths, *jobs)
	if err != nil {
		log.Fatalf("Scan aborted: %v", err)
	}

	failed := 0
	enc := json.NewEncoder(os.Stdout)
	for _, entry := range entries {
		if entry.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", entry.Path, entry.Err)
		}
		if err := enc.Encode(newRecord(entry, *pairs)); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
	}

	log.Printf("Scanned %d files, %d failed", len(entries), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func newRecord(entry library.Entry, withPairs bool) record {
	rec := record{Path: entry.Path, Backend: entry.Backend}
	if entry.Err != nil {
		rec.Error = entry.Err.Error()
		return rec
	}

	md := entry.Metadata
	if md.Length.Valid {
		length := md.Length.Ms
		rec.LengthMs = &length
	}
	rec.FadeMs = md.FadeMs
	if declared := md.Declared(); declared.Valid {
		rec.DeclaredMs = &declared.Ms
	}

	tags := md.Tags()
	if len(tags.Tags) > 0 {
		rec.Tags = make(map[string]string, len(tags.Tags))
		for _, t := range tags.Tags {
			if _, seen := rec.Tags[t.Kind.String()]; !seen {
				rec.Tags[t.Kind.String()] = t.Value
			}
		}
	}
	if withPairs && len(tags.Pairs) > 0 {
		rec.Pairs = make(map[string]string, len(tags.Pairs))
		for _, p := range tags.Pairs {
			rec.Pairs[p.Key] = p.Value
		}
	}
	return rec
}
