//go:build !windows

package termauto

import (
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	creackpty "github.com/creack/pty"
	"golang.org/x/sys/unix"
)

const (
	writeRetryBudget = 200
	writeRetryDelay  = 5 * time.Millisecond
	terminateGrace   = 2 * time.Second
)

// terminal is the narrow surface the engine needs from a live session.
// Policies and the loop are exercised in tests against an in-memory fake;
// ptySession is the real thing.
type terminal interface {
	write(p []byte) error
	readAvailable() []byte
	alive() bool
	terminate()
}

// ptySession owns one PTY pair and one child process. Exactly one session
// exists per invocation and nothing outside it touches the descriptors.
type ptySession struct {
	cmd  *exec.Cmd
	ptmx *os.File
	fd   int

	done     chan struct{} // closed by the wait goroutine on child exit
	termOnce sync.Once
}

// startPTY allocates the pair, sizes it, and spawns the child attached to
// the secondary side in its own session. The primary side is switched to
// non-blocking so the poll loop can drain without stalling.
func startPTY(path string, opts Options) (*ptySession, error) {
	ptmx, pts, err := creackpty.Open()
	if err != nil {
		return nil, &LaunchFailedError{Reason: "pty allocation failed", Err: err}
	}
	if err := creackpty.Setsize(ptmx, &creackpty.Winsize{Rows: opts.Rows, Cols: opts.Cols}); err != nil {
		ptmx.Close()
		pts.Close()
		return nil, &LaunchFailedError{Reason: "pty resize failed", Err: err}
	}

	cmd := newChildCmd(path, opts, pts)
	// New session plus controlling terminal: the child and any helpers it
	// spawns form one process group we can signal together. If the
	// platform refuses, run unisolated rather than not at all.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}
	if err := cmd.Start(); err != nil {
		cmd = newChildCmd(path, opts, pts)
		if err2 := cmd.Start(); err2 != nil {
			ptmx.Close()
			pts.Close()
			return nil, &LaunchFailedError{Reason: "spawn failed", Err: err2}
		}
	}
	// The child holds its own copy of the secondary side now.
	pts.Close()

	fd := int(ptmx.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = cmd.Process.Kill()
		ptmx.Close()
		return nil, &LaunchFailedError{Reason: "set nonblocking failed", Err: err}
	}

	s := &ptySession{
		cmd:  cmd,
		ptmx: ptmx,
		fd:   fd,
		done: make(chan struct{}),
	}
	go s.reap()
	return s, nil
}

func newChildCmd(path string, opts Options, pts *os.File) *exec.Cmd {
	cmd := exec.Command(path, opts.ExtraArgs...)
	cmd.Dir = opts.WorkDir
	if len(opts.Env) > 0 {
		cmd.Env = opts.Env
	}
	cmd.Stdin = pts
	cmd.Stdout = pts
	cmd.Stderr = pts
	return cmd
}

// reap waits for the child so it never zombies, then marks the session dead.
func (s *ptySession) reap() {
	_ = s.cmd.Wait()
	close(s.done)
}

func (s *ptySession) alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// write pushes p through the non-blocking descriptor with a bounded retry
// budget. A full PTY buffer that never drains means the child is wedged;
// surfacing an error beats blocking the loop forever.
func (s *ptySession) write(p []byte) error {
	for attempt := 0; attempt < writeRetryBudget; attempt++ {
		n, err := unix.Write(s.fd, p)
		if n > 0 {
			p = p[n:]
		}
		if len(p) == 0 {
			return nil
		}
		if err != nil && err != unix.EAGAIN && err != unix.EINTR {
			return &LaunchFailedError{Reason: "terminal write failed", Err: err}
		}
		time.Sleep(writeRetryDelay)
	}
	return &LaunchFailedError{Reason: "terminal write retries exhausted"}
}

// readAvailable drains whatever the child has produced so far and returns
// immediately. Empty result means nothing was ready. EIO is how a PTY
// reports the secondary side fully closed; that is quiet exit, not error.
func (s *ptySession) readAvailable() []byte {
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := unix.Read(s.fd, buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil || n < len(buf) {
			return out
		}
	}
}

// terminate tears the child down on every exit path. Idempotent: the first
// caller does the work, later calls are no-ops. Escalation order is a
// graceful "exit", SIGTERM to the group (falling back to the pid), a grace
// wait, then SIGKILL. Close failures are swallowed so teardown can never
// mask the primary outcome.
func (s *ptySession) terminate() {
	s.termOnce.Do(func() {
		if s.alive() {
			// A well-behaved interactive CLI treats this as a normal quit.
			_ = s.write([]byte("exit" + keyEnter))

			pid := s.cmd.Process.Pid
			if err := unix.Kill(-pid, unix.SIGTERM); err != nil {
				_ = unix.Kill(pid, unix.SIGTERM)
			}
			select {
			case <-s.done:
			case <-time.After(terminateGrace):
				if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
					_ = unix.Kill(pid, unix.SIGKILL)
				}
			}
		}
		_ = s.ptmx.Close()
	})
}
