// Package clip provides access to the system clipboard. Build constraints
// select the implementation:
//
//	clip_windows.go — Win32 API: CF_DIB / CF_UNICODETEXT with open-retry
//	clip_other.go   — golang.design/x/clipboard (PNG + UTF-8 text)
//
// Both fall back to a headless no-op backend when the platform clipboard
// is unavailable.
package clip

// Kind classifies the content of a Sample.
type Kind int

const (
	// KindNone means the clipboard was empty or held nothing recognizable.
	KindNone Kind = iota
	KindText
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	default:
		return "none"
	}
}

// Sample is one classified clipboard observation. Image data is always
// normalized to PNG regardless of the platform's native format.
type Sample struct {
	Kind  Kind
	Text  string
	Image []byte
}

// TextSample wraps a string as a text sample.
func TextSample(s string) Sample { return Sample{Kind: KindText, Text: s} }

// ImageSample wraps PNG bytes as an image sample.
func ImageSample(png []byte) Sample { return Sample{Kind: KindImage, Image: png} }

// Bytes returns the raw content bytes the fingerprint is computed over.
func (s Sample) Bytes() []byte {
	switch s.Kind {
	case KindText:
		return []byte(s.Text)
	case KindImage:
		return s.Image
	default:
		return nil
	}
}

// Backend is the interface all platform clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read samples the clipboard once. A bitmap takes priority over text:
	// when both are present only the image is returned. An empty clipboard
	// or unrecognized content yields a KindNone sample and no error.
	Read() (Sample, error)

	// Write replaces the clipboard contents with the sample.
	Write(Sample) error

	// Close releases any resources held by the backend.
	Close()
}
