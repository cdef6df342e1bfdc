// Package ipc provides the local socket the clipbook daemon serves its
// protocol on: a Unix domain socket on POSIX systems, a named pipe on
// Windows. CLI tools and the presentation layer dial it to reach the
// running daemon.
package ipc

import (
	"net"
	"os"
)

// SocketPath returns the platform-appropriate path for the IPC socket,
// honouring the CLIPBOOK_SOCKET override.
func SocketPath() string {
	if s := os.Getenv("CLIPBOOK_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a clipbook daemon appears to be listening on
// the IPC socket. It does a cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	c, err := Dial()
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a net.Listener on the IPC socket path, removing any
// stale socket left by a crashed run.
func Listen() (net.Listener, error) {
	return listenIPC(SocketPath())
}

// Dial connects to a running daemon's IPC socket.
func Dial() (net.Conn, error) {
	return dialIPC(SocketPath())
}
