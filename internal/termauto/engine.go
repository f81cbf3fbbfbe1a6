// Package termauto automates command-line programs that only speak an
// interactive, ANSI-formatted UI. It spawns the target under a PTY, types
// a scripted exchange, scans the live stream for patterns, answers terminal
// queries, and always tears the child down. Callers get the raw captured
// text or a typed error; interpreting the text is someone else's job.
package termauto

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// pollInterval paces the single-threaded read/scan/decide loop. Short
// enough to feel immediate, long enough not to spin.
const pollInterval = 30 * time.Millisecond

// Run spawns the program at path under a fresh PTY, drives it with the
// selected interaction policy, and returns whatever text it captured.
//
// path must already be an absolute, resolved executable (see the locate
// package); script is the line typed after the initial delay. onURL, when
// non-nil, fires once on the first http(s) URL in the output.
//
// Errors are *BinaryNotFoundError, *LaunchFailedError, or ErrTimedOut. A
// deadline with partial output is a success, never an error. Cancelling
// ctx abandons the loop early; teardown still runs.
func Run(ctx context.Context, path, script string, opts Options, onURL func(string)) (string, error) {
	opts = opts.withDefaults()
	if err := checkExecutable(path); err != nil {
		return "", err
	}

	sess, err := startPTY(path, opts)
	if err != nil {
		return "", err
	}
	defer sess.terminate()

	return runLoop(ctx, sess, policyFor(path, script, opts, onURL), opts)
}

// runLoop is the orchestration core: drain, scan, let the policy decide,
// write, until a stop condition or the wall-clock deadline. Factored off
// Run so tests can drive it with a fake terminal.
func runLoop(ctx context.Context, term terminal, pol policy, opts Options) (string, error) {
	var captured bytes.Buffer
	start := time.Now()
	deadline := start.Add(opts.Timeout)
	lastOutput := start
	cursor := newCursorEcho()

	for {
		if ctx.Err() != nil {
			return finish(&captured)
		}
		now := time.Now()

		chunk := term.readAvailable()
		if len(chunk) > 0 {
			captured.Write(chunk)
			lastOutput = now
			if opts.OnOutput != nil {
				opts.OnOutput(chunk)
			}
		}
		if reply := cursor.reply(chunk, now); reply != nil {
			if err := term.write(reply); err != nil {
				return "", err
			}
		}

		act := pol.tick(tickInput{
			now:         now,
			chunk:       chunk,
			captured:    captured.Len(),
			lastOutput:  lastOutput,
			childExited: !term.alive(),
		})
		if act.resetCapture {
			captured.Reset()
		}
		for _, s := range act.sends {
			if err := term.write(s.data); err != nil {
				return "", err
			}
			if s.pause > 0 {
				time.Sleep(s.pause)
			}
		}
		if act.stop {
			settle := opts.SettleAfterStop
			if act.settle > 0 {
				settle = act.settle
			}
			settleLoop(term, &captured, cursor, settle, opts.OnOutput)
			return finish(&captured)
		}
		if now.After(deadline) {
			return finish(&captured)
		}

		time.Sleep(pollInterval)
	}
}

// settleLoop stays attached briefly after a stop condition, still capturing
// stragglers and answering cursor queries, so the child does not die
// mid-repaint and lose the tail of the panel.
func settleLoop(term terminal, captured *bytes.Buffer, cursor *cursorEcho, settle time.Duration, onOutput func([]byte)) {
	deadline := time.Now().Add(settle)
	for time.Now().Before(deadline) {
		chunk := term.readAvailable()
		if len(chunk) > 0 {
			captured.Write(chunk)
			if onOutput != nil {
				onOutput(chunk)
			}
		}
		if reply := cursor.reply(chunk, time.Now()); reply != nil {
			_ = term.write(reply)
		}
		time.Sleep(pollInterval)
	}
}

// finish converts the accumulated buffer into the caller-visible result:
// any output at all is a capture, an empty buffer is a timeout.
func finish(captured *bytes.Buffer) (string, error) {
	if captured.Len() == 0 {
		return "", ErrTimedOut
	}
	return captured.String(), nil
}

func checkExecutable(path string) error {
	name := filepath.Base(path)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return &BinaryNotFoundError{Name: name}
	}
	if info.Mode()&fs.FileMode(0o111) == 0 {
		return &BinaryNotFoundError{Name: name}
	}
	return nil
}
