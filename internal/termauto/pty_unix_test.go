//go:build !windows

package termauto

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func shPath(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PTY integration test in short mode")
	}
	path, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return path
}

// TestPTYTerminateIdempotent: calling terminate twice must behave exactly
// like calling it once — no double-close, no double-signal, no panic.
func TestPTYTerminateIdempotent(t *testing.T) {
	opts := Options{ExtraArgs: []string{"-c", "sleep 30"}}.withDefaults()
	sess, err := startPTY(shPath(t), opts)
	if err != nil {
		t.Fatalf("startPTY: %v", err)
	}

	sess.terminate()
	sess.terminate()

	deadline := time.Now().Add(3 * time.Second)
	for sess.alive() {
		if time.Now().After(deadline) {
			t.Fatal("child still alive after terminate")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestPTYReadAvailableNonBlocking(t *testing.T) {
	opts := Options{ExtraArgs: []string{"-c", "sleep 5"}}.withDefaults()
	sess, err := startPTY(shPath(t), opts)
	if err != nil {
		t.Fatalf("startPTY: %v", err)
	}
	defer sess.terminate()

	start := time.Now()
	_ = sess.readAvailable()
	if time.Since(start) > 200*time.Millisecond {
		t.Fatal("readAvailable blocked")
	}
}

func TestRunCapturesOutput(t *testing.T) {
	opts := Options{
		ExtraArgs:        []string{"-c", "printf 'hello-probe\\n'; sleep 1"},
		Timeout:          5 * time.Second,
		StopOnSubstrings: []string{"hello-probe"},
	}
	out, err := Run(context.Background(), shPath(t), "", opts, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "hello-probe") {
		t.Fatalf("capture = %q", out)
	}
}

// TestRunScriptReachesChild types through the write path and relies on PTY
// echo to observe the keystrokes landing.
func TestRunScriptReachesChild(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PTY integration test in short mode")
	}
	catPath, err := exec.LookPath("cat")
	if err != nil {
		t.Skip("cat not available")
	}
	opts := Options{
		Timeout:          5 * time.Second,
		InitialDelay:     100 * time.Millisecond,
		StopOnSubstrings: []string{"ping-marker"},
	}
	out, err := Run(context.Background(), catPath, "ping-marker", opts, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "ping-marker") {
		t.Fatalf("capture = %q", out)
	}
}

// TestRunDeadlineRespected: a silent child and a 1s timeout must surface
// ErrTimedOut in roughly a second, teardown included.
func TestRunDeadlineRespected(t *testing.T) {
	opts := Options{
		ExtraArgs: []string{"-c", "sleep 5"},
		Timeout:   time.Second,
	}
	start := time.Now()
	_, err := Run(context.Background(), shPath(t), "", opts, nil)
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
	if elapsed := time.Since(start); elapsed > 2500*time.Millisecond {
		t.Fatalf("Run took %v for a 1s deadline", elapsed)
	}
}

func TestRunBinaryNotFound(t *testing.T) {
	_, err := Run(context.Background(), "/no/such/agent-cli", "", Options{Timeout: time.Second}, nil)
	var nf *BinaryNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want BinaryNotFoundError", err)
	}
	if nf.Name != "agent-cli" {
		t.Fatalf("error names %q, want the binary base name", nf.Name)
	}
}

func TestCheckExecutableRejectsPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not a program"), 0o644); err != nil {
		t.Fatal(err)
	}
	var nf *BinaryNotFoundError
	if err := checkExecutable(path); !errors.As(err, &nf) {
		t.Fatalf("err = %v, want BinaryNotFoundError", err)
	}
}

func TestRunChildExitReturnsCapture(t *testing.T) {
	opts := Options{
		ExtraArgs: []string{"-c", "printf 'goodbye\\n'"},
		Timeout:   5 * time.Second,
	}
	start := time.Now()
	out, err := Run(context.Background(), shPath(t), "", opts, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "goodbye") {
		t.Fatalf("capture = %q", out)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("child exit did not short-circuit the deadline")
	}
}
