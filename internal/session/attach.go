// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"

	"github.com/tonyjom/lineforge/internal/sessionlog"
)

// SockDir is where per-session attach sockets live. Each session gets
// exactly one socket, named by its ID, for the lifetime of the process.
const SockDir = "/tmp/lineforge"

func sockPath(id ID) string {
	return filepath.Join(SockDir, id.String()+".sock")
}

// attachListener accepts Unix-domain connections for one session and
// multiplexes them onto that session's log and input channel. Any number
// of clients may be attached concurrently; their input is interleaved onto
// the child's stdin with no arbitration between them.
type attachListener struct {
	id       ID
	listener net.Listener
}

// startAttachListener binds the session's socket and begins accepting
// connections in the background. It blocks until the socket is ready (bound
// and listening) or binding failed, signaling the caller either way so a
// concurrent Spawn never races a client dialing before the socket exists.
func startAttachListener(id ID, slog *sessionlog.Log, input func([]byte)) (*attachListener, error) {
	if err := os.MkdirAll(SockDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating socket dir: %w", err)
	}

	path := sockPath(id)
	_ = os.Remove(path) // stale socket from a prior, uncleanly-stopped run

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("binding attach socket: %w", err)
	}

	al := &attachListener{id: id, listener: ln}
	go al.acceptLoop(slog, input)
	return al, nil
}

func (al *attachListener) acceptLoop(slog *sessionlog.Log, input func([]byte)) {
	for {
		conn, err := al.listener.Accept()
		if err != nil {
			return // listener closed
		}
		go al.serve(conn, slog, input)
	}
}

func (al *attachListener) serve(conn net.Conn, slog *sessionlog.Log, input func([]byte)) {
	defer conn.Close()

	// Subscribe before taking the snapshot so no entry published in the
	// gap between the two calls is lost.
	sub := slog.Subscribe()

	for _, entry := range slog.Snapshot() {
		if _, err := conn.Write(entry.Data); err != nil {
			return
		}
	}

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for msg := range sub.C {
			if msg.Lagged {
				continue
			}
			if _, err := conn.Write(msg.Value.Data); err != nil {
				return
			}
		}
	}()

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			input(buf[:n])
		}
		if err != nil {
			break
		}
	}
	// Unsubscribe now so the writer goroutine's range over sub.C sees the
	// channel close and exits — waiting until serve returns would deadlock,
	// since serve can't return until the writer does.
	sub.Unsubscribe()
	<-writeDone
}

// Close stops accepting new connections and removes the socket file.
func (al *attachListener) Close() error {
	err := al.listener.Close()
	_ = os.Remove(sockPath(al.id))
	return err
}

// DialAttach connects to a running session's attach socket. It makes a
// single attempt and does not retry.
func DialAttach(id ID) (net.Conn, error) {
	return net.Dial("unix", sockPath(id))
}

// CopyAttach pipes a local terminal's stdin/stdout through an attach
// connection until either side closes.
func CopyAttach(conn net.Conn, in io.Reader, out io.Writer) error {
	done := make(chan error, 2)
	go func() {
		_, err := io.Copy(conn, in)
		done <- err
	}()
	go func() {
		_, err := io.Copy(out, conn)
		done <- err
	}()
	err := <-done
	if err != nil {
		log.Printf("attach: connection ended: %v", err)
	}
	return err
}
