package clip

// headlessBackend is the no-op fallback used when the platform clipboard
// is unavailable (no display, locked-down session). Reads always report
// an empty clipboard; writes are dropped.
type headlessBackend struct{}

func (headlessBackend) Name() string          { return "headless (no clipboard)" }
func (headlessBackend) Read() (Sample, error) { return Sample{}, nil }
func (headlessBackend) Write(Sample) error    { return nil }
func (headlessBackend) Close()                {}
