// ABOUTME: Session error taxonomy
// ABOUTME: Sentinels wrapped together with the engine cause
package decoder

import "errors"

var (
	// ErrOpen means the engine could not load the file
	ErrOpen = errors.New("open failed")

	// ErrRender means the engine failed mid-stream
	ErrRender = errors.New("render failed")

	// ErrSeek means restarting or catching up to a seek target failed
	ErrSeek = errors.New("seek failed")

	// ErrAllocation means engine state could not be allocated
	ErrAllocation = errors.New("allocation failed")

	// ErrUnavailable is returned by Configure when a backend cannot run
	// in this build or environment
	ErrUnavailable = errors.New("backend unavailable")
)
