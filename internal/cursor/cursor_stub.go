//go:build !windows
// +build !windows

package cursor

import "errors"

// ErrUnsupported is returned when no cursor backend exists for the platform.
var ErrUnsupported = errors.New("cursor: movement not supported on this platform")

// MoveTo places the cursor at absolute screen coordinates.
func MoveTo(x, y int) error {
	return ErrUnsupported
}

// Supported reports whether cursor movement works on this platform.
func Supported() bool { return false }
