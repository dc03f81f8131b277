//go:build windows
// +build windows

package capture

import (
	"fmt"
	"image"
	"syscall"
	"unsafe"
)

var (
	user32                     = syscall.NewLazyDLL("user32.dll")
	gdi32                      = syscall.NewLazyDLL("gdi32.dll")
	procGetDC                  = user32.NewProc("GetDC")
	procReleaseDC              = user32.NewProc("ReleaseDC")
	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procBitBlt                 = gdi32.NewProc("BitBlt")
	procDeleteDC               = gdi32.NewProc("DeleteDC")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procGetDIBits              = gdi32.NewProc("GetDIBits")
)

const (
	srcCopy      = 0x00CC0020
	biRGB        = 0
	dibRGBColors = 0
)

// BITMAPINFOHEADER structure
type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

// BITMAPINFO structure
type bitmapInfo struct {
	BmiHeader bitmapInfoHeader
	BmiColors [1]uint32
}

// BitBltCapturer captures screen regions directly from the desktop device
// context. This is the fast native path, typically ~1ms per region.
type BitBltCapturer struct{}

// NewNativeCapturer returns the BitBlt backend after probing that a desktop
// DC can be acquired.
func NewNativeCapturer() (Capturer, error) {
	hdc, _, _ := procGetDC.Call(0)
	if hdc == 0 {
		return nil, fmt.Errorf("cannot acquire desktop DC: %w", ErrUnavailable)
	}
	procReleaseDC.Call(0, hdc)
	return &BitBltCapturer{}, nil
}

func (c *BitBltCapturer) Name() string { return "bitblt" }

// Capture copies the region from the desktop DC into an RGBA buffer.
func (c *BitBltCapturer) Capture(region Region) (*image.RGBA, error) {
	hdcScreen, _, err := procGetDC.Call(0)
	if hdcScreen == 0 {
		return nil, fmt.Errorf("GetDC failed: %v: %w", err, ErrUnavailable)
	}
	defer procReleaseDC.Call(0, hdcScreen)

	hdcMem, _, err := procCreateCompatibleDC.Call(hdcScreen)
	if hdcMem == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed: %v", err)
	}
	defer procDeleteDC.Call(hdcMem)

	hBitmap, _, err := procCreateCompatibleBitmap.Call(
		hdcScreen,
		uintptr(region.Width),
		uintptr(region.Height),
	)
	if hBitmap == 0 {
		return nil, fmt.Errorf("CreateCompatibleBitmap failed: %v", err)
	}
	defer procDeleteObject.Call(hBitmap)

	procSelectObject.Call(hdcMem, hBitmap)

	ret, _, err := procBitBlt.Call(
		hdcMem,
		0, 0,
		uintptr(region.Width), uintptr(region.Height),
		hdcScreen,
		uintptr(region.X), uintptr(region.Y),
		srcCopy,
	)
	if ret == 0 {
		return nil, fmt.Errorf("BitBlt failed: %v", err)
	}

	var bi bitmapInfo
	bi.BmiHeader.Size = uint32(unsafe.Sizeof(bi.BmiHeader))
	bi.BmiHeader.Width = int32(region.Width)
	bi.BmiHeader.Height = -int32(region.Height) // Negative for top-down bitmap
	bi.BmiHeader.Planes = 1
	bi.BmiHeader.BitCount = 32
	bi.BmiHeader.Compression = biRGB

	buffer := make([]byte, region.Width*region.Height*4)

	ret, _, err = procGetDIBits.Call(
		hdcMem,
		hBitmap,
		0,
		uintptr(region.Height),
		uintptr(unsafe.Pointer(&buffer[0])),
		uintptr(unsafe.Pointer(&bi)),
		dibRGBColors,
	)
	if ret == 0 {
		return nil, fmt.Errorf("GetDIBits failed: %v", err)
	}

	// Windows uses BGRA, Go uses RGBA
	img := image.NewRGBA(image.Rect(0, 0, region.Width, region.Height))
	for i := 0; i < len(buffer); i += 4 {
		img.Pix[i] = buffer[i+2]
		img.Pix[i+1] = buffer[i+1]
		img.Pix[i+2] = buffer[i]
		img.Pix[i+3] = 255
	}

	return img, nil
}
