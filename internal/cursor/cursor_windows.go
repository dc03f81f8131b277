//go:build windows
// +build windows

package cursor

import (
	"fmt"
	"syscall"
)

var (
	user32           = syscall.NewLazyDLL("user32.dll")
	procSetCursorPos = user32.NewProc("SetCursorPos")
)

// MoveTo places the cursor at absolute screen coordinates.
func MoveTo(x, y int) error {
	ret, _, err := procSetCursorPos.Call(uintptr(x), uintptr(y))
	if ret == 0 {
		return fmt.Errorf("SetCursorPos(%d, %d) failed: %v", x, y, err)
	}
	return nil
}

// Supported reports whether cursor movement works on this platform.
func Supported() bool { return true }
