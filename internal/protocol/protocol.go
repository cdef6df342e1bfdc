// Package protocol defines the local IPC protocol between the clipbook
// daemon and its clients (CLI tools and the presentation layer).
//
// All messages are newline-delimited JSON, one message per line. Image
// payloads travel as file references; the daemon owns the files.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"go.klb.dev/clipbook/internal/store"
)

// Type identifies the kind of message.
type Type string

const (
	// client → daemon
	TypeSubscribe Type = "SUBSCRIBE"
	TypeList      Type = "LIST"
	TypeAdd       Type = "ADD"
	TypeCopy      Type = "COPY"
	TypeDelete    Type = "DELETE"
	TypeUpdate    Type = "UPDATE"
	TypeClean     Type = "CLEAN"
	TypeStatus    Type = "STATUS"

	// daemon → client
	TypeEvent          Type = "EVENT"
	TypeEntries        Type = "ENTRIES"
	TypeOK             Type = "OK"
	TypeStatusResponse Type = "STATUS_RESPONSE"
	TypeError          Type = "ERROR"
)

// Event names carried on TypeEvent messages.
const (
	EventAdded   = "added"
	EventRefresh = "refresh"
)

// Entry is the wire form of a history entry.
type Entry struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// FromStore converts a store entry to its wire form.
func FromStore(e store.Entry) Entry {
	return Entry{
		ID:        e.ID,
		Kind:      string(e.Kind),
		Content:   e.Content,
		Timestamp: e.Timestamp,
	}
}

// Status carries daemon state for STATUS_RESPONSE.
type Status struct {
	Version   string    `json:"version"`
	Backend   string    `json:"backend"`
	Entries   int       `json:"entries"`
	StartedAt time.Time `json:"started_at"`
}

// Message is the top-level wire envelope.
type Message struct {
	Type Type `json:"type"`

	// EVENT
	Event string `json:"event,omitempty"`
	Entry *Entry `json:"entry,omitempty"`

	// LIST request / ENTRIES response
	Limit   int     `json:"limit,omitempty"`
	Offset  int     `json:"offset,omitempty"`
	Entries []Entry `json:"entries,omitempty"`

	// ADD / COPY / DELETE / UPDATE
	ID      int64  `json:"id,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Content string `json:"content,omitempty"`

	// CLEAN request / OK response
	Days  int `json:"days,omitempty"`
	Count int `json:"count,omitempty"`

	// STATUS_RESPONSE
	Status *Status `json:"status,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	return &m, nil
}

// Errorf builds an ERROR message.
func Errorf(format string, args ...any) *Message {
	return &Message{Type: TypeError, Error: fmt.Sprintf(format, args...)}
}
