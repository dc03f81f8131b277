//go:build !windows
// +build !windows

package capture

import "fmt"

// NewNativeCapturer reports the native path as unavailable on platforms
// without a BitBlt equivalent; the provider falls through to the portable
// screenshot backend.
func NewNativeCapturer() (Capturer, error) {
	return nil, fmt.Errorf("no native capture on this platform: %w", ErrUnavailable)
}
