package termauto

import (
	"path/filepath"
	"strings"
	"time"
)

// send is one keystroke burst. pause, when set, is honored after the burst
// before the next one goes out; dismissal flows need the child to repaint
// between keys.
type send struct {
	data  []byte
	pause time.Duration
}

// tickInput is what the engine hands the active policy once per poll
// iteration. The policy owns its scan state; the engine owns the capture
// buffer, the deadline and the PTY.
type tickInput struct {
	now         time.Time
	chunk       []byte // bytes read this iteration, may be empty
	captured    int    // total bytes accumulated so far
	lastOutput  time.Time
	childExited bool
}

// tickAction is what the policy asks the engine to do in response.
type tickAction struct {
	sends        []send
	resetCapture bool // drop everything accumulated and restart capture
	stop         bool
	settle       time.Duration // overrides Options.SettleAfterStop when > 0
}

// policy decides, chunk by chunk, what to type and when the probe is done.
// Variants are selected by target program identity at construction.
type policy interface {
	tick(in tickInput) tickAction
}

// policyFor picks the interaction variant for the target binary. Claude's
// CLI gets the update-nag-aware state machine; everything else gets the
// generic flow.
func policyFor(path, script string, opts Options, onURL func(string)) policy {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(filepath.Base(path)))
	if strings.EqualFold(base, "claude") {
		return newClaudePolicy(script, opts)
	}
	return newGenericPolicy(script, opts, onURL)
}

// cursorEcho answers Device Status Report queries so terminal-aware
// programs do not block waiting on a real terminal. Replies are throttled
// to one per second no matter how often the child asks.
type cursorEcho struct {
	scan      *RollingBuffer
	nextReply time.Time
}

func newCursorEcho() *cursorEcho {
	return &cursorEcho{scan: NewRollingBuffer(len(cursorQuery))}
}

// reply returns the fake position answer when the query is present in this
// chunk's window and the throttle allows it, else nil.
func (c *cursorEcho) reply(chunk []byte, now time.Time) []byte {
	window := c.scan.Append(chunk)
	if !strings.Contains(string(window), cursorQuery) {
		return nil
	}
	if now.Before(c.nextReply) {
		return nil
	}
	c.nextReply = now.Add(time.Second)
	return []byte(cursorReply)
}
