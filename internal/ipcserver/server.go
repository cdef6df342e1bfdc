// Package ipcserver serves the clipbook protocol on the local IPC socket.
// It is the presentation boundary: the UI and the CLI tools are clients,
// the daemon answers against the store and the clipboard backend, and
// SUBSCRIBE turns a connection into a hub subscriber receiving the
// monitor's notifications.
package ipcserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"time"

	"go.klb.dev/clipbook/internal/clip"
	"go.klb.dev/clipbook/internal/hub"
	"go.klb.dev/clipbook/internal/protocol"
	"go.klb.dev/clipbook/internal/retention"
	"go.klb.dev/clipbook/internal/store"
	"go.klb.dev/clipbook/internal/wire"
)

// Store is the slice of the history store the server needs.
type Store interface {
	Insert(kind store.Kind, content string) (store.Entry, error)
	Get(id int64) (store.Entry, error)
	ListAll() ([]store.Entry, error)
	ListPaged(limit, offset int) ([]store.Entry, error)
	Count() (int, error)
	UpdateContent(id int64, content string) error
	DeleteByID(id int64) error
}

// Server handles IPC connections.
type Server struct {
	store     Store
	hub       *hub.Hub
	backend   clip.Backend
	sweeper   *retention.Sweeper
	version   string
	startedAt time.Time

	nextSubID atomic.Int64
}

// New builds a Server. The hub is shared with the monitor engine.
func New(st Store, h *hub.Hub, backend clip.Backend, sweeper *retention.Sweeper, version string) *Server {
	return &Server{
		store:     st,
		hub:       h,
		backend:   backend,
		sweeper:   sweeper,
		version:   version,
		startedAt: time.Now(),
	}
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go s.Handle(conn)
	}
}

// Handle runs the request loop for one connection.
func (s *Server) Handle(conn net.Conn) {
	wc := wire.New(conn)
	defer wc.Close()

	for {
		msg, err := wc.ReadMsg()
		if err != nil {
			return
		}

		if msg.Type == protocol.TypeSubscribe {
			// the connection becomes a one-way event stream
			s.serveSubscriber(wc)
			return
		}

		resp := s.dispatch(msg)
		if err := wc.WriteMsg(resp); err != nil {
			slog.Debug("ipc write failed", "err", err)
			return
		}
	}
}

func (s *Server) dispatch(msg *protocol.Message) *protocol.Message {
	switch msg.Type {
	case protocol.TypeList:
		return s.handleList(msg)
	case protocol.TypeAdd:
		return s.handleAdd(msg)
	case protocol.TypeCopy:
		return s.handleCopy(msg)
	case protocol.TypeDelete:
		return s.handleDelete(msg)
	case protocol.TypeUpdate:
		return s.handleUpdate(msg)
	case protocol.TypeClean:
		return s.handleClean(msg)
	case protocol.TypeStatus:
		return s.handleStatus()
	default:
		return protocol.Errorf("unknown message type %q", msg.Type)
	}
}

func (s *Server) handleList(msg *protocol.Message) *protocol.Message {
	var (
		entries []store.Entry
		err     error
	)
	if msg.Limit > 0 {
		entries, err = s.store.ListPaged(msg.Limit, msg.Offset)
	} else {
		entries, err = s.store.ListAll()
	}
	if err != nil {
		return protocol.Errorf("list: %v", err)
	}
	out := make([]protocol.Entry, len(entries))
	for i, e := range entries {
		out[i] = protocol.FromStore(e)
	}
	return &protocol.Message{Type: protocol.TypeEntries, Entries: out}
}

// handleAdd inserts an entry produced outside the monitor: a manual
// edit-save or an annotated image whose file the editor already wrote.
func (s *Server) handleAdd(msg *protocol.Message) *protocol.Message {
	kind := store.Kind(msg.Kind)
	if kind != store.KindText && kind != store.KindImage {
		return protocol.Errorf("add: bad kind %q", msg.Kind)
	}
	if kind == store.KindImage {
		if _, err := os.Stat(msg.Content); err != nil {
			return protocol.Errorf("add: backing file: %v", err)
		}
	}
	entry, err := s.store.Insert(kind, msg.Content)
	if err != nil {
		return protocol.Errorf("add: %v", err)
	}
	s.hub.EntryAdded(entry)
	e := protocol.FromStore(entry)
	return &protocol.Message{Type: protocol.TypeOK, Entry: &e}
}

// handleCopy writes a stored entry back to the system clipboard. The next
// monitor tick then observes it and performs the usual recency promotion.
func (s *Server) handleCopy(msg *protocol.Message) *protocol.Message {
	entry, err := s.store.Get(msg.ID)
	if errors.Is(err, store.ErrNotFound) {
		return protocol.Errorf("copy: entry %d not found", msg.ID)
	}
	if err != nil {
		return protocol.Errorf("copy: %v", err)
	}

	var sample clip.Sample
	switch entry.Kind {
	case store.KindText:
		sample = clip.TextSample(entry.Content)
	case store.KindImage:
		png, err := os.ReadFile(entry.Content)
		if err != nil {
			return protocol.Errorf("copy: backing file: %v", err)
		}
		sample = clip.ImageSample(png)
	default:
		return protocol.Errorf("copy: bad kind %q", entry.Kind)
	}

	if err := s.backend.Write(sample); err != nil {
		return protocol.Errorf("copy: clipboard write: %v", err)
	}
	return &protocol.Message{Type: protocol.TypeOK, ID: entry.ID}
}

func (s *Server) handleDelete(msg *protocol.Message) *protocol.Message {
	entry, err := s.store.Get(msg.ID)
	if errors.Is(err, store.ErrNotFound) {
		return protocol.Errorf("delete: entry %d not found", msg.ID)
	}
	if err != nil {
		return protocol.Errorf("delete: %v", err)
	}
	if err := s.store.DeleteByID(entry.ID); err != nil {
		return protocol.Errorf("delete: %v", err)
	}
	if entry.Kind == store.KindImage {
		if err := os.Remove(entry.Content); err != nil && !os.IsNotExist(err) {
			slog.Warn("backing file not removed", "path", entry.Content, "err", err)
		}
	}
	s.hub.FullRefresh()
	return &protocol.Message{Type: protocol.TypeOK, ID: entry.ID, Count: 1}
}

// handleUpdate edits text content in place. No notification: the editing
// client already shows the new text, and the timestamp does not move.
func (s *Server) handleUpdate(msg *protocol.Message) *protocol.Message {
	entry, err := s.store.Get(msg.ID)
	if errors.Is(err, store.ErrNotFound) {
		return protocol.Errorf("update: entry %d not found", msg.ID)
	}
	if err != nil {
		return protocol.Errorf("update: %v", err)
	}
	if entry.Kind != store.KindText {
		return protocol.Errorf("update: entry %d is not text", msg.ID)
	}
	if err := s.store.UpdateContent(msg.ID, msg.Content); err != nil {
		return protocol.Errorf("update: %v", err)
	}
	return &protocol.Message{Type: protocol.TypeOK, ID: msg.ID}
}

func (s *Server) handleClean(msg *protocol.Message) *protocol.Message {
	if msg.Days < 0 {
		return protocol.Errorf("clean: bad retention window %d", msg.Days)
	}
	deleted, err := s.sweeper.Sweep(msg.Days)
	if err != nil {
		return protocol.Errorf("clean: %v", err)
	}
	if deleted > 0 {
		s.hub.FullRefresh()
	}
	return &protocol.Message{Type: protocol.TypeOK, Count: deleted}
}

func (s *Server) handleStatus() *protocol.Message {
	count, err := s.store.Count()
	if err != nil {
		return protocol.Errorf("status: %v", err)
	}
	return &protocol.Message{
		Type: protocol.TypeStatusResponse,
		Status: &protocol.Status{
			Version:   s.version,
			Backend:   s.backend.Name(),
			Entries:   count,
			StartedAt: s.startedAt,
		},
	}
}

// subscriber adapts an IPC connection to a hub.Subscriber.
type subscriber struct {
	id   string
	ch   chan hub.Event
	done chan struct{}
}

func (p *subscriber) ID() string { return p.id }

// Send implements hub.Subscriber — must never block the publisher.
func (p *subscriber) Send(ev hub.Event) {
	select {
	case p.ch <- ev:
	case <-p.done:
	default:
		slog.Warn("subscriber channel full, dropping", "subscriber", p.id)
	}
}

func (s *Server) serveSubscriber(wc *wire.Conn) {
	sub := &subscriber{
		id:   fmt.Sprintf("ipc-%d", s.nextSubID.Add(1)),
		ch:   make(chan hub.Event, 64),
		done: make(chan struct{}),
	}
	s.hub.Register(sub)
	defer func() {
		s.hub.Unregister(sub)
		close(sub.done)
	}()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case ev := <-sub.ch:
				if err := wc.WriteMsg(eventMessage(ev)); err != nil {
					wc.Close()
					return
				}
			}
		}
	}()

	// Block until the client disconnects; anything it sends is ignored.
	for {
		if _, err := wc.ReadMsg(); err != nil {
			return
		}
	}
}

func eventMessage(ev hub.Event) *protocol.Message {
	msg := &protocol.Message{Type: protocol.TypeEvent}
	switch ev.Kind {
	case hub.EventAdded:
		msg.Event = protocol.EventAdded
		if ev.Entry != nil {
			e := protocol.FromStore(*ev.Entry)
			msg.Entry = &e
		}
	case hub.EventRefresh:
		msg.Event = protocol.EventRefresh
	}
	return msg
}
