package termauto

import (
	"strings"
	"time"

	"github.com/zzfadi/CodexBar-sub003/internal/ansi"
)

// claudeStatusScript is the slash command that opens the status panel.
const claudeStatusScript = "/status"

// Phrases that only appear once the status panel has actually been drawn.
// Matched against ANSI-stripped output.
var claudeRenderMarkers = []string{
	"Current session",
	"Current week",
	"esc to close",
}

// Update-nag phrases, matched case-insensitively. The nag steals focus on
// startup and swallows the first command if it is not dismissed.
var claudeUpdateMarkers = []string{
	"update available",
	"update installed",
	"restart to apply",
}

// Retry tuning for Claude's racy first paint. The panel sometimes needs a
// nudge (bare Enter) and occasionally the whole command again.
const (
	claudeEnterRetryEvery  = 1200 * time.Millisecond
	claudeEnterRetryBudget = 6
	claudeResendAfter      = 3 * time.Second
	claudeResendBudget     = 2
	claudeSettle           = 1200 * time.Millisecond
	claudeKeyPause         = 150 * time.Millisecond
)

// claudePolicy drives the Claude CLI through its startup races: dismiss the
// update nag if it shows, (re)send the script, nudge the render along with
// bounded Enter retries, and stop once the panel markers appear.
type claudePolicy struct {
	script string
	opts   Options

	started      time.Time
	scriptSent   bool
	scriptSentAt time.Time
	lastEnter    time.Time

	updateDismissed bool
	renderSeen      bool
	enterRetries    int
	resends         int

	accum *tailBuffer
}

func newClaudePolicy(script string, opts Options) *claudePolicy {
	return &claudePolicy{
		script: script,
		opts:   opts,
		accum:  newTailBuffer(plainTailMax),
	}
}

func (p *claudePolicy) tick(in tickInput) tickAction {
	var act tickAction
	if p.started.IsZero() {
		p.started = in.now
		p.lastEnter = in.now
		// Anything other than /status goes out immediately; the extra
		// Enter and Escape clear whatever startup modal is in the way.
		// /status itself waits out the banner, which otherwise wins the
		// race and eats the command.
		if p.script != "" && p.script != claudeStatusScript {
			p.markScriptSent(in.now)
			act.sends = append(act.sends,
				send{data: []byte(p.script + keyEnter), pause: claudeKeyPause},
				send{data: []byte(keyEnter), pause: claudeKeyPause},
				send{data: []byte(keyEscape)},
			)
		}
	}

	p.accum.Write(in.chunk)
	plain := ansi.Strip(string(p.accum.Bytes()))

	// Update prompt: arrow down to the dismiss choice, confirm twice
	// (the dialog occasionally re-renders mid-keystroke), then start the
	// whole exchange over. The pre-dismissal banner must not leak into
	// the final capture.
	if !p.updateDismissed && containsAnyFold(plain, claudeUpdateMarkers) {
		p.updateDismissed = true
		p.markScriptSent(in.now)
		p.renderSeen = false
		p.accum.Reset()
		act.resetCapture = true
		act.sends = append(act.sends,
			send{data: []byte(keyDown), pause: claudeKeyPause},
			send{data: []byte(keyEnter), pause: claudeKeyPause},
			send{data: []byte(keyEnter), pause: claudeKeyPause},
		)
		if p.script != "" {
			act.sends = append(act.sends, send{data: []byte(p.script + keyEnter)})
		}
		return act
	}

	if !p.scriptSent && in.now.Sub(p.started) >= p.opts.InitialDelay {
		p.markScriptSent(in.now)
		if p.script != "" {
			act.sends = append(act.sends, send{data: []byte(p.script + keyEnter)})
		}
	}

	if p.scriptSent && !p.renderSeen && containsAny(plain, claudeRenderMarkers) {
		p.renderSeen = true
		act.stop = true
		act.settle = claudeSettle
		return act
	}

	if p.scriptSent && !p.renderSeen {
		switch {
		case in.now.Sub(p.scriptSentAt) > claudeResendAfter && p.resends < claudeResendBudget:
			// The command itself got lost; start capture over so the
			// half-drawn screen does not pollute the result.
			p.resends++
			p.markScriptSent(in.now)
			p.accum.Reset()
			act.resetCapture = true
			if p.script != "" {
				act.sends = append(act.sends, send{data: []byte(p.script + keyEnter)})
			}
		case in.now.Sub(p.lastEnter) > claudeEnterRetryEvery && p.enterRetries < claudeEnterRetryBudget:
			p.enterRetries++
			p.lastEnter = in.now
			act.sends = append(act.sends, send{data: []byte(keyEnter)})
		}
	}

	if in.childExited {
		act.stop = true
	}
	return act
}

func (p *claudePolicy) markScriptSent(now time.Time) {
	p.scriptSent = true
	p.scriptSentAt = now
	p.lastEnter = now
	p.enterRetries = 0
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func containsAnyFold(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
