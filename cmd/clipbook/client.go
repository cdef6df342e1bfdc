package main

import (
	"errors"
	"fmt"
	"time"

	"go.klb.dev/clipbook/internal/ipc"
	"go.klb.dev/clipbook/internal/protocol"
	"go.klb.dev/clipbook/internal/wire"
)

// dialDaemon connects to the running clipbook daemon over the IPC socket.
func dialDaemon() (*wire.Conn, error) {
	if !ipc.IsRunning() {
		return nil, errors.New(`no clipbook daemon running (start one with "clipbook serve")`)
	}
	conn, err := ipc.Dial()
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", ipc.SocketPath(), err)
	}
	return wire.New(conn), nil
}

// request performs a single request/response exchange with the daemon.
// An ERROR response is surfaced as a Go error.
func request(msg *protocol.Message) (*protocol.Message, error) {
	wc, err := dialDaemon()
	if err != nil {
		return nil, err
	}
	defer wc.Close()

	if err := wc.WriteMsg(msg); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	wc.SetReadDeadline(10 * time.Second)
	resp, err := wc.ReadMsg()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.Type == protocol.TypeError {
		return nil, errors.New(resp.Error)
	}
	return resp, nil
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}
