// Package monitor implements the clipboard watch loop: sample, classify,
// fingerprint, merge against history, notify. This is the only writer that
// ever resolves fingerprint collisions; presentation-side mutations operate
// on single ids and never race with the merge.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.klb.dev/clipbook/internal/clip"
	"go.klb.dev/clipbook/internal/fingerprint"
	"go.klb.dev/clipbook/internal/store"
)

// DefaultInterval is the polling cadence of the watch loop.
const DefaultInterval = time.Second

// Store is the slice of the history store the engine mutates.
type Store interface {
	Insert(kind store.Kind, content string) (store.Entry, error)
	DeleteTextByContent(content string) (int, error)
	DeleteImagesByKey(key string) ([]string, error)
}

// Sink receives the engine's notifications. Exactly one notification is
// emitted per accepted sample: EntryAdded when nothing was superseded,
// FullRefresh when the merge removed prior entries.
type Sink interface {
	EntryAdded(store.Entry)
	FullRefresh()
}

// Engine is the monitoring core. Not safe for concurrent use: Run owns it.
type Engine struct {
	store    Store
	backend  clip.Backend
	sink     Sink
	imageDir string
	interval time.Duration

	// fingerprint of the most recently accepted sample; an unchanged
	// clipboard re-observed on later ticks is a no-op against this.
	lastFingerprint string

	now func() time.Time // stubbed in tests
}

// New creates an engine. The image directory is created if missing.
func New(st Store, backend clip.Backend, sink Sink, imageDir string) (*Engine, error) {
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		return nil, fmt.Errorf("image dir: %w", err)
	}
	return &Engine{
		store:    st,
		backend:  backend,
		sink:     sink,
		imageDir: imageDir,
		interval: DefaultInterval,
		now:      time.Now,
	}, nil
}

// Run polls the clipboard until ctx is cancelled. A failed tick is logged
// and abandoned; the loop itself never stops on error.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("clipboard monitor started",
		"backend", e.backend.Name(),
		"interval", e.interval,
		"image_dir", e.imageDir,
	)
	t := time.NewTicker(e.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("clipboard monitor stopped")
			return
		case <-t.C:
			e.tick()
		}
	}
}

func (e *Engine) tick() {
	sample, err := e.backend.Read()
	if err != nil {
		// Transient: clipboard held by another process, decode failure.
		// Retried on the next tick.
		slog.Debug("clipboard read failed", "err", err)
		return
	}
	if sample.Kind == clip.KindNone {
		return
	}
	if err := e.Process(sample); err != nil {
		slog.Error("clipboard tick failed", "kind", sample.Kind.String(), "err", err)
	}
}

// Process runs the merge decision for one sample. On error the engine's
// last-seen fingerprint is left untouched so the same content is retried
// on the next tick.
func (e *Engine) Process(sample clip.Sample) error {
	fp := fingerprint.Sum(sample.Bytes())
	if fp == e.lastFingerprint {
		return nil
	}

	switch sample.Kind {
	case clip.KindImage:
		return e.processImage(sample.Image, fp)
	case clip.KindText:
		return e.processText(sample.Text, fp)
	default:
		return nil
	}
}

func (e *Engine) processImage(png []byte, fp string) error {
	key := fingerprint.Key(fp)

	// Supersede any prior capture of the same image: the filename key is
	// the dedup token, deliberately narrower than the full fingerprint.
	refs, err := e.store.DeleteImagesByKey(key)
	if err != nil {
		return err
	}
	e.removeFiles(refs)

	path := filepath.Join(e.imageDir, fingerprint.ImageFilename(e.now(), fp))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	entry, err := e.store.Insert(store.KindImage, path)
	if err != nil {
		return err
	}
	e.lastFingerprint = fp

	slog.Debug("image captured", "path", path, "superseded", len(refs))
	if len(refs) > 0 {
		e.sink.FullRefresh()
	} else {
		e.sink.EntryAdded(entry)
	}
	return nil
}

func (e *Engine) processText(text string, fp string) error {
	deleted, err := e.store.DeleteTextByContent(text)
	if err != nil {
		return err
	}

	// Re-insert rather than update: the fresh timestamp realizes
	// recency promotion for repeated copies.
	entry, err := e.store.Insert(store.KindText, text)
	if err != nil {
		return err
	}
	e.lastFingerprint = fp

	slog.Debug("text captured", "bytes", len(text), "superseded", deleted)
	if deleted > 0 {
		e.sink.FullRefresh()
	} else {
		e.sink.EntryAdded(entry)
	}
	return nil
}

// removeFiles unlinks superseded backing files. Failures (file held open
// by a viewer) leave an orphan behind, which is logged and accepted.
func (e *Engine) removeFiles(refs []string) {
	for _, ref := range refs {
		if err := os.Remove(ref); err != nil && !os.IsNotExist(err) {
			slog.Warn("backing file not removed", "path", ref, "err", err)
		}
	}
}
