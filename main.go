// ABOUTME: Entry point for the chipdec player
// ABOUTME: Parses CLI flags, loads decoder config and plays the given files
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Resonate-Protocol/chipdec/internal/library"
	"github.com/Resonate-Protocol/chipdec/internal/player"
	"github.com/Resonate-Protocol/chipdec/internal/remote"
	"github.com/Resonate-Protocol/chipdec/internal/ui"
	"github.com/Resonate-Protocol/chipdec/internal/version"
	"github.com/Resonate-Protocol/chipdec/pkg/audio/decode"
	"github.com/Resonate-Protocol/chipdec/pkg/audio/output"
	"github.com/Resonate-Protocol/chipdec/pkg/config"
	"github.com/Resonate-Protocol/chipdec/pkg/registry"
)

var (
	configPath  = flag.String("config", "", "Decoder configuration file (JSON)")
	outputKind  = flag.String("output", "speaker", "Audio output: speaker, wav or null")
	wavOut      = flag.String("wav-out", "chipdec.wav", "File written by -output wav")
	volume      = flag.Int("volume", 100, "Initial volume (0-100)")
	sampleRate  = flag.Int("sample-rate", 44100, "Output rate every decoder is resampled to (0 keeps each file's rate)")
	remotePort  = flag.Int("remote-port", 0, "Port for the websocket remote control (0 disables)")
	name        = flag.String("name", "", "Player friendly name (default: hostname-chipdec)")
	enableMDNS  = flag.Bool("mdns", true, "Advertise the remote control via mDNS")
	logFile     = flag.String("log-file", "chipdec.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs  = flag.Bool("stream-logs", false, "Alias for -no-tui")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] file-or-dir...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Determine if we should use TUI or streaming logs
	useTUI := !(*noTUI || *streamLogs)

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s", version.String())

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	backends := decode.All()
	if *sampleRate > 0 {
		// Outputs hold one format for the whole queue
		names := make([]string, len(backends))
		for i, b := range backends {
			names[i] = b.Name()
		}
		cfg.SetDefault("sample_rate", strconv.Itoa(*sampleRate), names...)
	}

	reg := registry.New(backends...)
	if err := reg.Init(cfg); err != nil {
		log.Fatalf("Failed to initialize decoders: %v", err)
	}
	cfg.WarnUnused()

	paths, err := collectPaths(reg, flag.Args())
	if err != nil {
		log.Fatalf("%v", err)
	}
	if len(paths) == 0 {
		log.Fatalf("No playable files found")
	}

	vol := output.NewVolume()
	vol.SetVolume(*volume)

	out, err := newOutput(*outputKind, *wavOut, vol)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Printf("Error closing output: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := player.New(reg, out)
	p.Enqueue(paths...)

	if *remotePort > 0 {
		srv := remote.NewServer(remote.Config{
			Port:       *remotePort,
			Name:       playerName(*name),
			EnableMDNS: *enableMDNS,
		}, p)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Printf("Remote control stopped: %v", err)
			}
		}()
	}

	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			log.Printf("Player error: %v", err)
		}
	}()

	if useTUI {
		prog := ui.Run(p, vol, updates)
		go func() {
			select {
			case <-done:
			case <-ctx.Done():
				p.Stop()
			}
			prog.Send(ui.QuitMsg{})
		}()
		if _, err := prog.Run(); err != nil {
			log.Printf("TUI error: %v", err)
		}
		p.Stop()
	} else {
		go logStatus(updates)
	}

	<-done
	log.Printf("Player stopped")
}

// collectPaths expands directories into the playable files beneath them
func collectPaths(reg *registry.Registry, args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := library.Walk(arg, reg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func newOutput(kind, wavPath string, vol *output.Volume) (output.Output, error) {
	switch kind {
	case "speaker":
		return output.NewOto(vol), nil
	case "wav":
		return output.NewWAVFile(wavPath, vol), nil
	case "null":
		return output.NewDiscard(), nil
	default:
		return nil, fmt.Errorf("unknown output %q (want speaker, wav or null)", kind)
	}
}

func playerName(name string) string {
	if name != "" {
		return name
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-chipdec", hostname)
}

// logStatus prints track changes in streaming mode
func logStatus(updates <-chan player.Status) {
	var last player.Status
	for st := range updates {
		if st.State != last.State || st.Path != last.Path {
			switch st.State {
			case player.StatePlaying:
				if st.Path != last.Path {
					log.Printf("Now playing: %s [%s, %s, length %s]", displayName(st), st.Backend, st.Format, st.Length)
				}
			case player.StateError:
				log.Printf("Error: %s: %s", st.Path, st.Err)
			default:
				log.Printf("State: %s", st.State)
			}
		}
		last = st
	}
}

func displayName(st player.Status) string {
	if st.Title == "" {
		return st.Path
	}
	if st.Artist == "" {
		return st.Title
	}
	return st.Artist + " - " + st.Title
}
