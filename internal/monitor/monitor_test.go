package monitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipbook/internal/clip"
	"go.klb.dev/clipbook/internal/store"
)

type recordingSink struct {
	added     []store.Entry
	refreshes int
}

func (r *recordingSink) EntryAdded(e store.Entry) { r.added = append(r.added, e) }
func (r *recordingSink) FullRefresh()             { r.refreshes++ }

func (r *recordingSink) total() int { return len(r.added) + r.refreshes }

type stubBackend struct {
	samples []clip.Sample
	err     error
}

func (b *stubBackend) Name() string { return "stub" }
func (b *stubBackend) Read() (clip.Sample, error) {
	if b.err != nil {
		return clip.Sample{}, b.err
	}
	if len(b.samples) == 0 {
		return clip.Sample{}, nil
	}
	s := b.samples[0]
	b.samples = b.samples[1:]
	return s, nil
}
func (b *stubBackend) Write(clip.Sample) error { return nil }
func (b *stubBackend) Close()                  {}

func newTestEngine(t *testing.T) (*Engine, *store.Store, *recordingSink) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sink := &recordingSink{}
	eng, err := New(st, &stubBackend{}, sink, filepath.Join(t.TempDir(), "images"))
	require.NoError(t, err)

	// deterministic, strictly advancing capture times
	base := time.Unix(1700000000, 0)
	var ticks int64
	eng.now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}
	return eng, st, sink
}

func TestRepeatedSampleIsNoOp(t *testing.T) {
	eng, st, sink := newTestEngine(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, eng.Process(clip.TextSample("constant")))
	}

	count, err := st.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, sink.added, 1)
	assert.Equal(t, "constant", sink.added[0].Content)
	assert.Zero(t, sink.refreshes)
}

func TestTextRecencyPromotion(t *testing.T) {
	eng, st, sink := newTestEngine(t)

	require.NoError(t, eng.Process(clip.TextSample("A")))
	require.NoError(t, eng.Process(clip.TextSample("B")))
	require.NoError(t, eng.Process(clip.TextSample("A")))

	all, err := st.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].Content)
	assert.Equal(t, "B", all[1].Content)

	// two novel adds, then one refresh for the merge
	assert.Len(t, sink.added, 2)
	assert.Equal(t, 1, sink.refreshes)
}

func TestImageDedupByContent(t *testing.T) {
	eng, st, sink := newTestEngine(t)

	img := []byte{0x89, 'P', 'N', 'G', 1, 2, 3, 4}
	require.NoError(t, eng.Process(clip.ImageSample(img)))

	firstList, err := st.ListAll()
	require.NoError(t, err)
	require.Len(t, firstList, 1)
	firstPath := firstList[0].Content
	_, err = os.Stat(firstPath)
	require.NoError(t, err, "backing file must exist after capture")

	// something else lands on the clipboard, then the same image again
	require.NoError(t, eng.Process(clip.TextSample("interlude")))
	require.NoError(t, eng.Process(clip.ImageSample(img)))

	all, err := st.ListAll()
	require.NoError(t, err)
	images := 0
	var secondPath string
	for _, e := range all {
		if e.Kind == store.KindImage {
			images++
			secondPath = e.Content
		}
	}
	assert.Equal(t, 1, images, "exactly one entry per image content")
	assert.NotEqual(t, firstPath, secondPath)

	_, err = os.Stat(firstPath)
	assert.True(t, os.IsNotExist(err), "superseded backing file must be removed")
	_, err = os.Stat(secondPath)
	assert.NoError(t, err)

	// image add, text add, then refresh for the dedup merge
	assert.Len(t, sink.added, 2)
	assert.Equal(t, 1, sink.refreshes)
}

func TestNotificationShape(t *testing.T) {
	eng, _, sink := newTestEngine(t)

	require.NoError(t, eng.Process(clip.TextSample("novel")))
	require.Len(t, sink.added, 1)
	assert.Equal(t, "novel", sink.added[0].Content)
	assert.Equal(t, store.KindText, sink.added[0].Kind)
	assert.Zero(t, sink.refreshes)

	require.NoError(t, eng.Process(clip.TextSample("other")))
	require.NoError(t, eng.Process(clip.TextSample("novel")))
	assert.Len(t, sink.added, 2, "duplicate content must not emit EntryAdded")
	assert.Equal(t, 1, sink.refreshes)
}

func TestNoneSampleIgnored(t *testing.T) {
	eng, st, sink := newTestEngine(t)

	require.NoError(t, eng.Process(clip.Sample{}))

	count, err := st.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, sink.total())
}

// failingStore fails a configurable number of mutations, then delegates.
type failingStore struct {
	inner    Store
	failures int
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) Insert(kind store.Kind, content string) (store.Entry, error) {
	if f.failures > 0 {
		f.failures--
		return store.Entry{}, errDiskFull
	}
	return f.inner.Insert(kind, content)
}

func (f *failingStore) DeleteTextByContent(content string) (int, error) {
	return f.inner.DeleteTextByContent(content)
}

func (f *failingStore) DeleteImagesByKey(key string) ([]string, error) {
	return f.inner.DeleteImagesByKey(key)
}

func TestStoreFailureRetriedNextTick(t *testing.T) {
	eng, st, sink := newTestEngine(t)
	eng.store = &failingStore{inner: eng.store, failures: 1}

	err := eng.Process(clip.TextSample("flaky"))
	require.ErrorIs(t, err, errDiskFull)
	assert.Empty(t, eng.lastFingerprint, "failed tick must not advance the fingerprint")
	assert.Zero(t, sink.total())

	// same content next tick: no longer suppressed, succeeds
	require.NoError(t, eng.Process(clip.TextSample("flaky")))
	count, err := st.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, sink.added, 1)
}

func TestRunLoopProcessesTicks(t *testing.T) {
	eng, st, sink := newTestEngine(t)
	backend := &stubBackend{samples: []clip.Sample{
		clip.TextSample("one"),
		{}, // empty clipboard tick
		clip.TextSample("two"),
	}}
	eng.backend = backend
	eng.interval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	eng.Run(ctx)

	all, err := st.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "two", all[0].Content)
	assert.Len(t, sink.added, 2)
}
