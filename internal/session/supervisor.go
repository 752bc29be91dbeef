// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sync/errgroup"

	"github.com/tonyjom/lineforge/internal/sessionlog"
)

// supervisor owns one session's PTY-wrapped child process: it forwards
// input to the PTY, captures output into the session log, and reaps the
// child's exit status. Reader, writer, and reaper each run in their own
// goroutine, coordinated with an errgroup.
type supervisor struct {
	ptmx *os.File
	cmd  *exec.Cmd

	input chan []byte

	mu     sync.Mutex
	size   pty.Winsize
	closed bool
}

// startOptions describes a child process to launch under a PTY.
type startOptions struct {
	Command    string
	Args       []string
	WorkingDir string
	Rows, Cols uint16
}

func startSupervisor(opts startOptions) (*supervisor, int, error) {
	cmd := exec.Command(opts.Command, opts.Args...)
	cmd.Dir = opts.WorkingDir
	cmd.Env = os.Environ()

	size := &pty.Winsize{Rows: opts.Rows, Cols: opts.Cols}
	if size.Rows == 0 {
		size.Rows = 24
	}
	if size.Cols == 0 {
		size.Cols = 80
	}

	ptmx, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return nil, 0, fmt.Errorf("starting %s under pty: %w", opts.Command, err)
	}

	s := &supervisor{
		ptmx:  ptmx,
		cmd:   cmd,
		input: make(chan []byte, 256),
		size:  *size,
	}
	return s, cmd.Process.Pid, nil
}

// Resize adjusts the PTY's terminal dimensions in place.
func (s *supervisor) Resize(rows, cols uint16) error {
	s.mu.Lock()
	s.size = pty.Winsize{Rows: rows, Cols: cols}
	s.mu.Unlock()
	return pty.Setsize(s.ptmx, &pty.Winsize{Rows: rows, Cols: cols})
}

// Write queues bytes for delivery to the child's stdin. If the input
// channel is full the call blocks until there is room rather than dropping
// keystrokes, since input loss is worse than a short stall.
func (s *supervisor) Write(p []byte) {
	cp := append([]byte(nil), p...)
	s.input <- cp
}

// Signal delivers a signal to the child process directly.
func (s *supervisor) Signal(sig os.Signal) error {
	if s.cmd.Process == nil {
		return errors.New("process not started")
	}
	return s.cmd.Process.Signal(sig)
}

// run drives the reader, writer, and reaper goroutines until the child
// exits. onExit is always called exactly once, with the status derived from
// the child's exit; deciding whether to apply it (a session already stopped
// by an explicit Stop call keeps that status) is left to the callback.
func (s *supervisor) run(slog *sessionlog.Log, onExit func(status Status)) {
	var g errgroup.Group

	g.Go(func() error {
		for data := range s.input {
			if _, err := s.ptmx.Write(data); err != nil {
				return nil
			}
		}
		return nil
	})

	g.Go(func() error {
		buf := make([]byte, 4*1024)
		for {
			n, err := s.ptmx.Read(buf)
			if n > 0 {
				slog.Push(buf[:n])
			}
			if err != nil {
				return nil
			}
		}
	})

	go func() {
		err := s.cmd.Wait()

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.input)
		s.ptmx.Close()

		_ = g.Wait()

		status := exitStatus(err)
		onExit(status)
	}()
}

func exitStatus(err error) Status {
	if err == nil {
		return StatusStopped()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				return StatusStopped()
			}
			if ws.ExitStatus() != 0 {
				return StatusErrored("Process exited with non-zero status")
			}
		}
		return StatusStopped()
	}
	return StatusErrored(err.Error())
}

// terminate asks the child to exit via SIGTERM. Callers that need to
// guarantee termination should follow up with a timeout and SIGKILL.
func (s *supervisor) terminate() error {
	if err := s.Signal(syscall.SIGTERM); err != nil {
		log.Printf("session: SIGTERM failed: %v", err)
		return err
	}
	return nil
}
