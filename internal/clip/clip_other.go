//go:build !windows

package clip

import (
	"fmt"
	"log/slog"

	"golang.design/x/clipboard"
)

type xBackend struct{}

// New returns the portable clipboard backend, or a headless no-op backend
// if the display environment is unavailable. clipboard.Init is called here
// rather than in init() so that CLI sub-commands that never construct a
// Backend don't log spurious warnings on headless systems.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return headlessBackend{}
	}
	return xBackend{}
}

func (xBackend) Name() string { return "x/clipboard" }

func (xBackend) Read() (Sample, error) {
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		return ImageSample(img), nil
	}
	if text := clipboard.Read(clipboard.FmtText); len(text) > 0 {
		return TextSample(string(text)), nil
	}
	return Sample{}, nil
}

func (xBackend) Write(s Sample) error {
	switch s.Kind {
	case KindText:
		clipboard.Write(clipboard.FmtText, []byte(s.Text))
	case KindImage:
		clipboard.Write(clipboard.FmtImage, s.Image)
	default:
		return fmt.Errorf("unsupported sample kind: %s", s.Kind)
	}
	return nil
}

func (xBackend) Close() {}
