//go:build windows

package clip

import (
	"fmt"
	"syscall"
	"time"
	"unicode/utf16"
	"unsafe"

	"go.klb.dev/clipbook/internal/dib"
)

const (
	cfUnicodeText = 13
	cfDIB         = 8

	gmemMoveable = 0x0002

	// OpenClipboard fails while another process holds the clipboard open;
	// retry a few times before reporting failure.
	openRetries    = 5
	openRetryDelay = 50 * time.Millisecond
)

var (
	user32   = syscall.NewLazyDLL("user32.dll")
	kernel32 = syscall.NewLazyDLL("kernel32.dll")

	procOpenClipboard              = user32.NewProc("OpenClipboard")
	procCloseClipboard             = user32.NewProc("CloseClipboard")
	procEmptyClipboard             = user32.NewProc("EmptyClipboard")
	procGetClipboardData           = user32.NewProc("GetClipboardData")
	procSetClipboardData           = user32.NewProc("SetClipboardData")
	procIsClipboardFormatAvailable = user32.NewProc("IsClipboardFormatAvailable")

	procGlobalAlloc  = kernel32.NewProc("GlobalAlloc")
	procGlobalFree   = kernel32.NewProc("GlobalFree")
	procGlobalLock   = kernel32.NewProc("GlobalLock")
	procGlobalUnlock = kernel32.NewProc("GlobalUnlock")
	procGlobalSize   = kernel32.NewProc("GlobalSize")
)

type winBackend struct{}

// New returns the Win32 clipboard backend.
func New() Backend { return winBackend{} }

func (winBackend) Name() string { return "Win32 clipboard" }

func (winBackend) Read() (Sample, error) {
	if err := openClipboard(); err != nil {
		return Sample{}, err
	}
	defer closeClipboard()

	if avail, _, _ := procIsClipboardFormatAvailable.Call(cfDIB); avail != 0 {
		raw, err := clipboardBytes(cfDIB)
		if err != nil {
			return Sample{}, err
		}
		png, err := dib.ToPNG(raw)
		if err != nil {
			// Unsupported bitmap layout: treat as unrecognizable content.
			return Sample{}, nil
		}
		return ImageSample(png), nil
	}

	if avail, _, _ := procIsClipboardFormatAvailable.Call(cfUnicodeText); avail != 0 {
		raw, err := clipboardBytes(cfUnicodeText)
		if err != nil {
			return Sample{}, err
		}
		text := decodeUTF16(raw)
		if text == "" {
			return Sample{}, nil
		}
		return TextSample(text), nil
	}

	return Sample{}, nil
}

func (winBackend) Write(s Sample) error {
	var (
		format uintptr
		data   []byte
	)
	switch s.Kind {
	case KindText:
		u := utf16.Encode([]rune(s.Text))
		data = make([]byte, (len(u)+1)*2) // NUL-terminated
		for i, cu := range u {
			data[i*2] = byte(cu)
			data[i*2+1] = byte(cu >> 8)
		}
		format = cfUnicodeText
	case KindImage:
		packed, err := dib.FromPNG(s.Image)
		if err != nil {
			return fmt.Errorf("dib conversion: %w", err)
		}
		data = packed
		format = cfDIB
	default:
		return fmt.Errorf("unsupported sample kind: %s", s.Kind)
	}

	if err := openClipboard(); err != nil {
		return err
	}
	defer closeClipboard()

	if r, _, err := procEmptyClipboard.Call(); r == 0 {
		return fmt.Errorf("EmptyClipboard: %w", err)
	}

	h, _, err := procGlobalAlloc.Call(gmemMoveable, uintptr(len(data)))
	if h == 0 {
		return fmt.Errorf("GlobalAlloc: %w", err)
	}
	p, _, err := procGlobalLock.Call(h)
	if p == 0 {
		procGlobalFree.Call(h)
		return fmt.Errorf("GlobalLock: %w", err)
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(p)), len(data)), data)
	procGlobalUnlock.Call(h)

	// On success the system owns the handle; free it only on failure.
	if r, _, err := procSetClipboardData.Call(format, h); r == 0 {
		procGlobalFree.Call(h)
		return fmt.Errorf("SetClipboardData: %w", err)
	}
	return nil
}

func (winBackend) Close() {}

func openClipboard() error {
	var err error
	for i := 0; i < openRetries; i++ {
		var r uintptr
		r, _, err = procOpenClipboard.Call(0)
		if r != 0 {
			return nil
		}
		time.Sleep(openRetryDelay)
	}
	return fmt.Errorf("OpenClipboard: %w", err)
}

func closeClipboard() {
	procCloseClipboard.Call()
}

// clipboardBytes copies the clipboard data for format out of the global
// memory handle. Must be called with the clipboard open.
func clipboardBytes(format uintptr) ([]byte, error) {
	h, _, err := procGetClipboardData.Call(format)
	if h == 0 {
		return nil, fmt.Errorf("GetClipboardData: %w", err)
	}
	size, _, _ := procGlobalSize.Call(h)
	if size == 0 {
		return nil, nil
	}
	p, _, err := procGlobalLock.Call(h)
	if p == 0 {
		return nil, fmt.Errorf("GlobalLock: %w", err)
	}
	defer procGlobalUnlock.Call(h)

	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(p)), size))
	return out, nil
}

// decodeUTF16 converts NUL-terminated little-endian UTF-16 bytes to a string.
func decodeUTF16(b []byte) string {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		cu := uint16(b[i]) | uint16(b[i+1])<<8
		if cu == 0 {
			break
		}
		u = append(u, cu)
	}
	return string(utf16.Decode(u))
}
