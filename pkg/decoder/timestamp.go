// ABOUTME: Duration string parsing for length and fade tags
// ABOUTME: Accepts plain integers and [[hh:]mm:]ss[.fff] clock strings
package decoder

import (
	"math"
	"strings"
)

// msIntegerThreshold separates plain integers given in seconds from ones
// already expressed in milliseconds. "120" is two minutes, "90500" is 90.5s.
const msIntegerThreshold = 10000

// ParseTimeMs parses a length or fade tag value into milliseconds.
// It never fails: empty or malformed input yields 0. Results saturate at
// math.MaxUint32.
func ParseTimeMs(text string) uint32 {
	if text == "" {
		return 0
	}

	if !strings.ContainsAny(text, ":.,") {
		value, ok := parseDigits(text)
		if !ok {
			return 0
		}
		if value >= msIntegerThreshold {
			return saturate32(value)
		}
		return saturate32(value * 1000)
	}

	var totalSeconds uint64
	rest := text
	for {
		segment, tail, more := strings.Cut(rest, ":")

		seconds, ms, ok := parseSegment(segment, !more)
		if !ok {
			return 0
		}
		totalSeconds = satAdd(satMul(totalSeconds, 60), seconds)

		if !more {
			return saturate32(satAdd(satMul(totalSeconds, 1000), ms))
		}
		rest = tail
	}
}

// parseSegment reads one colon-separated segment. Only the final segment
// may carry a fraction, which is truncated or zero padded to milliseconds.
func parseSegment(segment string, final bool) (seconds, ms uint64, ok bool) {
	seenDigit := false
	seenFraction := false
	fractionDigits := 0

	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if c == '.' || c == ',' {
			if seenFraction || !final {
				return 0, 0, false
			}
			seenFraction = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, 0, false
		}

		seenDigit = true
		digit := uint64(c - '0')
		if !seenFraction {
			seconds = satAdd(satMul(seconds, 10), digit)
		} else if fractionDigits < 3 {
			ms = ms*10 + digit
			fractionDigits++
		}
	}
	if !seenDigit {
		return 0, 0, false
	}

	for ; fractionDigits < 3; fractionDigits++ {
		ms *= 10
	}
	return seconds, ms, true
}

func parseDigits(s string) (uint64, bool) {
	var value uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		value = satAdd(satMul(value, 10), uint64(c-'0'))
	}
	return value, true
}

func saturate32(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

func satMul(a, b uint64) uint64 {
	if a != 0 && b > math.MaxUint64/a {
		return math.MaxUint64
	}
	return a * b
}

func satAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
