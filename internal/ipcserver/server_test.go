package ipcserver

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipbook/internal/clip"
	"go.klb.dev/clipbook/internal/hub"
	"go.klb.dev/clipbook/internal/protocol"
	"go.klb.dev/clipbook/internal/retention"
	"go.klb.dev/clipbook/internal/store"
	"go.klb.dev/clipbook/internal/wire"
)

type recordingBackend struct {
	writes []clip.Sample
	err    error
}

func (b *recordingBackend) Name() string               { return "recording" }
func (b *recordingBackend) Read() (clip.Sample, error) { return clip.Sample{}, nil }
func (b *recordingBackend) Write(s clip.Sample) error {
	if b.err != nil {
		return b.err
	}
	b.writes = append(b.writes, s)
	return nil
}
func (b *recordingBackend) Close() {}

type testRig struct {
	store   *store.Store
	hub     *hub.Hub
	backend *recordingBackend
	client  *wire.Conn
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := hub.New()
	backend := &recordingBackend{}
	srv := New(st, h, backend, retention.New(st), "test")

	clientConn, serverConn := net.Pipe()
	go srv.Handle(serverConn)
	wc := wire.New(clientConn)
	t.Cleanup(func() { wc.Close() })

	return &testRig{store: st, hub: h, backend: backend, client: wc}
}

func (r *testRig) roundTrip(t *testing.T, msg *protocol.Message) *protocol.Message {
	t.Helper()
	require.NoError(t, r.client.WriteMsg(msg))
	resp := make(chan *protocol.Message, 1)
	fail := make(chan error, 1)
	go func() {
		m, err := r.client.ReadMsg()
		if err != nil {
			fail <- err
			return
		}
		resp <- m
	}()
	select {
	case m := <-resp:
		return m
	case err := <-fail:
		t.Fatalf("read response: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
	}
	return nil
}

func TestListPagedAndAll(t *testing.T) {
	r := newTestRig(t)
	for _, c := range []string{"one", "two", "three"} {
		_, err := r.store.Insert(store.KindText, c)
		require.NoError(t, err)
	}

	resp := r.roundTrip(t, &protocol.Message{Type: protocol.TypeList})
	require.Equal(t, protocol.TypeEntries, resp.Type)
	require.Len(t, resp.Entries, 3)
	assert.Equal(t, "three", resp.Entries[0].Content)

	resp = r.roundTrip(t, &protocol.Message{Type: protocol.TypeList, Limit: 2, Offset: 1})
	require.Equal(t, protocol.TypeEntries, resp.Type)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "two", resp.Entries[0].Content)
	assert.Equal(t, "one", resp.Entries[1].Content)
}

func TestAddValidatesKind(t *testing.T) {
	r := newTestRig(t)

	resp := r.roundTrip(t, &protocol.Message{Type: protocol.TypeAdd, Kind: "gif", Content: "x"})
	assert.Equal(t, protocol.TypeError, resp.Type)

	resp = r.roundTrip(t, &protocol.Message{Type: protocol.TypeAdd, Kind: "text", Content: "edited"})
	require.Equal(t, protocol.TypeOK, resp.Type)
	require.NotNil(t, resp.Entry)
	assert.Equal(t, "edited", resp.Entry.Content)

	// image adds must reference a file that exists
	resp = r.roundTrip(t, &protocol.Message{
		Type: protocol.TypeAdd, Kind: "image",
		Content: filepath.Join(t.TempDir(), "missing.png"),
	})
	assert.Equal(t, protocol.TypeError, resp.Type)
}

func TestCopyWritesBackToClipboard(t *testing.T) {
	r := newTestRig(t)
	e, err := r.store.Insert(store.KindText, "recall me")
	require.NoError(t, err)

	resp := r.roundTrip(t, &protocol.Message{Type: protocol.TypeCopy, ID: e.ID})
	require.Equal(t, protocol.TypeOK, resp.Type)
	require.Len(t, r.backend.writes, 1)
	assert.Equal(t, clip.KindText, r.backend.writes[0].Kind)
	assert.Equal(t, "recall me", r.backend.writes[0].Text)

	resp = r.roundTrip(t, &protocol.Message{Type: protocol.TypeCopy, ID: e.ID + 50})
	assert.Equal(t, protocol.TypeError, resp.Type)
}

func TestCopyImageReadsBackingFile(t *testing.T) {
	r := newTestRig(t)
	path := filepath.Join(t.TempDir(), "1700000000_abcdef0123.png")
	require.NoError(t, os.WriteFile(path, []byte("pngdata"), 0o644))
	e, err := r.store.Insert(store.KindImage, path)
	require.NoError(t, err)

	resp := r.roundTrip(t, &protocol.Message{Type: protocol.TypeCopy, ID: e.ID})
	require.Equal(t, protocol.TypeOK, resp.Type)
	require.Len(t, r.backend.writes, 1)
	assert.Equal(t, clip.KindImage, r.backend.writes[0].Kind)
	assert.Equal(t, []byte("pngdata"), r.backend.writes[0].Image)
}

func TestDeleteRemovesEntryAndFile(t *testing.T) {
	r := newTestRig(t)
	path := filepath.Join(t.TempDir(), "1700000000_abcdef0123.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))
	e, err := r.store.Insert(store.KindImage, path)
	require.NoError(t, err)

	resp := r.roundTrip(t, &protocol.Message{Type: protocol.TypeDelete, ID: e.ID})
	require.Equal(t, protocol.TypeOK, resp.Type)

	_, err = r.store.Get(e.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	resp = r.roundTrip(t, &protocol.Message{Type: protocol.TypeDelete, ID: e.ID})
	assert.Equal(t, protocol.TypeError, resp.Type)
}

func TestUpdateTextOnly(t *testing.T) {
	r := newTestRig(t)
	txt, err := r.store.Insert(store.KindText, "before")
	require.NoError(t, err)
	img, err := r.store.Insert(store.KindImage, "/img/x_aaaaaaaaaa.png")
	require.NoError(t, err)

	resp := r.roundTrip(t, &protocol.Message{Type: protocol.TypeUpdate, ID: txt.ID, Content: "after"})
	require.Equal(t, protocol.TypeOK, resp.Type)
	got, err := r.store.Get(txt.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Content)
	assert.True(t, got.Timestamp.Equal(txt.Timestamp), "edits must not refresh the timestamp")

	resp = r.roundTrip(t, &protocol.Message{Type: protocol.TypeUpdate, ID: img.ID, Content: "x"})
	assert.Equal(t, protocol.TypeError, resp.Type)
}

func TestCleanSweepsEverythingOlderThanWindow(t *testing.T) {
	r := newTestRig(t)
	_, err := r.store.Insert(store.KindText, "doomed")
	require.NoError(t, err)

	// days=0 means "older than right now", i.e. delete all
	resp := r.roundTrip(t, &protocol.Message{Type: protocol.TypeClean, Days: 0})
	require.Equal(t, protocol.TypeOK, resp.Type)
	assert.Equal(t, 1, resp.Count)

	resp = r.roundTrip(t, &protocol.Message{Type: protocol.TypeClean, Days: -1})
	assert.Equal(t, protocol.TypeError, resp.Type)
}

func TestStatus(t *testing.T) {
	r := newTestRig(t)
	_, err := r.store.Insert(store.KindText, "x")
	require.NoError(t, err)

	resp := r.roundTrip(t, &protocol.Message{Type: protocol.TypeStatus})
	require.Equal(t, protocol.TypeStatusResponse, resp.Type)
	require.NotNil(t, resp.Status)
	assert.Equal(t, "test", resp.Status.Version)
	assert.Equal(t, "recording", resp.Status.Backend)
	assert.Equal(t, 1, resp.Status.Entries)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	r := newTestRig(t)
	require.NoError(t, r.client.WriteMsg(&protocol.Message{Type: protocol.TypeSubscribe}))

	require.Eventually(t, func() bool { return r.hub.Subscribers() == 1 },
		time.Second, 10*time.Millisecond)

	got := make(chan *protocol.Message, 2)
	go func() {
		for {
			m, err := r.client.ReadMsg()
			if err != nil {
				return
			}
			got <- m
		}
	}()

	r.hub.EntryAdded(store.Entry{ID: 1, Kind: store.KindText, Content: "ping"})
	r.hub.FullRefresh()

	select {
	case m := <-got:
		require.Equal(t, protocol.TypeEvent, m.Type)
		require.Equal(t, protocol.EventAdded, m.Event)
		require.NotNil(t, m.Entry)
		assert.Equal(t, "ping", m.Entry.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered to subscriber")
	}

	select {
	case m := <-got:
		require.Equal(t, protocol.TypeEvent, m.Type)
		assert.Equal(t, protocol.EventRefresh, m.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh event not delivered")
	}
}
