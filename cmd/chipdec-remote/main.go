// ABOUTME: Entry point for the chipdec remote control
// ABOUTME: Finds a player via mDNS or address and sends one command
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/chipdec/internal/discovery"
	"github.com/Resonate-Protocol/chipdec/internal/protocol"
	"github.com/Resonate-Protocol/chipdec/internal/remote"
	"github.com/Resonate-Protocol/chipdec/internal/version"
	"github.com/Resonate-Protocol/chipdec/pkg/decoder"
)

var (
	addr    = flag.String("addr", "", "Player address host:port (skip mDNS)")
	timeout = flag.Duration("timeout", 10*time.Second, "How long to wait for a player")
	verbose = flag.Bool("v", false, "Log connection details")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] status|next|stop|watch|seek <time>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if !*verbose {
		log.SetOutput(io.Discard)
	}

	cmd, target, err := parseCommand(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd, target); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, target time.Duration) error {
	findCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	address, path := *addr, ""
	if address == "" {
		p, err := discovery.FindFirst(findCtx)
		if err != nil {
			return err
		}
		address, path = p.Addr(), p.Path
	}

	c, err := remote.Dial(findCtx, address, path, version.Product+"-remote")
	if err != nil {
		return err
	}
	defer c.Close()

	// The player pushes a snapshot right after the handshake
	st, err := c.NextStatus(findCtx)
	if err != nil {
		return err
	}

	switch cmd {
	case "status":
		printStatus(st)
		return nil
	case "next":
		return c.Next()
	case "stop":
		return c.Stop()
	case "seek":
		return c.Seek(target)
	case "watch":
		printStatus(st)
		for {
			st, err := c.NextStatus(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			printStatus(st)
		}
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// parseCommand validates the positional arguments. Seek targets use the
// same time syntax as tags: seconds or [[hh:]mm:]ss[.fff].
func parseCommand(args []string) (string, time.Duration, error) {
	if len(args) == 0 {
		return "", 0, errors.New("missing command")
	}
	switch args[0] {
	case "status", "next", "stop", "watch":
		if len(args) != 1 {
			return "", 0, fmt.Errorf("%s takes no arguments", args[0])
		}
		return args[0], 0, nil
	case "seek":
		if len(args) != 2 {
			return "", 0, errors.New("seek needs a target time")
		}
		ms := decoder.ParseTimeMs(args[1])
		if ms == 0 && strings.Trim(args[1], "0:.") != "" {
			return "", 0, fmt.Errorf("invalid seek target %q", args[1])
		}
		return "seek", time.Duration(ms) * time.Millisecond, nil
	}
	return "", 0, fmt.Errorf("unknown command %q", args[0])
}

func printStatus(st protocol.Status) {
	length := "--:--"
	if st.LengthMs != nil {
		length = clock(int64(*st.LengthMs))
	}
	title := st.Title
	if title == "" {
		title = st.Path
	}
	fmt.Printf("%-8s %s / %s  %s", st.State, clock(st.PositionMs), length, title)
	if st.Backend != "" {
		fmt.Printf(" [%s]", st.Backend)
	}
	if st.Error != "" {
		fmt.Printf(" error: %s", st.Error)
	}
	fmt.Println()
}

func clock(ms int64) string {
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
