// ABOUTME: Minimal Ogg page reader for the Opus identification and comment headers
// ABOUTME: Extracts the channel count and vorbis-style comments without decoding audio
package decode

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	opusRate = 48000

	// Headers larger than this (usually embedded cover art) are not parsed
	maxOpusHeaderBytes = 1 << 20
)

type opusHead struct {
	channels int
	comments [][2]string
}

func probeOggOpus(path string) (opusHead, error) {
	f, err := os.Open(path)
	if err != nil {
		return opusHead{}, fmt.Errorf("failed to open Opus file: %w", err)
	}
	defer f.Close()
	return readOpusHeaders(bufio.NewReader(f))
}

func readOpusHeaders(r io.Reader) (opusHead, error) {
	pr := &oggPacketReader{r: r}

	id, err := pr.next()
	if err != nil {
		return opusHead{}, fmt.Errorf("failed to read Ogg page: %w", err)
	}
	if len(id) < 19 || !bytes.HasPrefix(id, []byte("OpusHead")) {
		return opusHead{}, errors.New("not an Ogg Opus stream")
	}

	head := opusHead{channels: int(id[9])}
	if head.channels < 1 {
		return opusHead{}, fmt.Errorf("invalid Opus channel count %d", head.channels)
	}

	tags, err := pr.next()
	if err != nil {
		// A stream without a readable comment header still plays
		return head, nil
	}
	head.comments = parseOpusTags(tags)
	return head, nil
}

// parseOpusTags decodes an OpusTags packet, stopping at the first
// malformed entry
func parseOpusTags(p []byte) [][2]string {
	if !bytes.HasPrefix(p, []byte("OpusTags")) {
		return nil
	}
	p = p[8:]

	readLen := func() (int, bool) {
		if len(p) < 4 {
			return 0, false
		}
		n := int(binary.LittleEndian.Uint32(p))
		p = p[4:]
		return n, n >= 0 && n <= len(p)
	}

	vendor, ok := readLen()
	if !ok {
		return nil
	}
	p = p[vendor:]

	if len(p) < 4 {
		return nil
	}
	count := int(binary.LittleEndian.Uint32(p))
	p = p[4:]

	var out [][2]string
	for i := 0; i < count; i++ {
		n, ok := readLen()
		if !ok {
			break
		}
		entry := string(p[:n])
		p = p[n:]
		if key, value, found := strings.Cut(entry, "="); found && key != "" {
			out = append(out, [2]string{key, value})
		}
	}
	return out
}

// oggPacketReader joins page segments into packets
type oggPacketReader struct {
	r        io.Reader
	segments []byte
	seg      int
	total    int
}

func (o *oggPacketReader) next() ([]byte, error) {
	var packet []byte
	for {
		if o.seg >= len(o.segments) {
			if err := o.readPageHeader(); err != nil {
				return nil, err
			}
			continue
		}

		size := int(o.segments[o.seg])
		o.seg++

		o.total += size
		if o.total > maxOpusHeaderBytes {
			return nil, errors.New("Ogg header too large")
		}

		buf := make([]byte, size)
		if _, err := io.ReadFull(o.r, buf); err != nil {
			return nil, err
		}
		packet = append(packet, buf...)
		if size < 255 {
			return packet, nil
		}
	}
}

func (o *oggPacketReader) readPageHeader() error {
	var hdr [27]byte
	if _, err := io.ReadFull(o.r, hdr[:]); err != nil {
		return err
	}
	if !bytes.Equal(hdr[:4], []byte("OggS")) {
		return errors.New("missing Ogg capture pattern")
	}

	o.segments = make([]byte, hdr[26])
	o.seg = 0
	_, err := io.ReadFull(o.r, o.segments)
	return err
}
