package termauto

import (
	"strings"
	"time"

	"github.com/zzfadi/CodexBar-sub003/internal/ansi"
)

// plainTailMax bounds the accumulated plain-text scan state. Probes are
// short-lived; 16KiB comfortably covers a few screens of redraw.
const plainTailMax = 16 * 1024

// genericPolicy drives any target without special-case handling: send the
// script once after the initial delay, fire configured triggers at most
// once, then stop on a URL, a stop substring, idleness, or child exit.
type genericPolicy struct {
	script string
	opts   Options
	onURL  func(string)

	started    time.Time
	lastEnter  time.Time
	scriptSent bool
	urlSeen    bool

	scan      *RollingBuffer
	accum     *tailBuffer
	triggered map[string]bool
}

func newGenericPolicy(script string, opts Options, onURL func(string)) *genericPolicy {
	return &genericPolicy{
		script:    script,
		opts:      opts,
		onURL:     onURL,
		scan:      NewRollingBuffer(maxNeedleLen(opts)),
		accum:     newTailBuffer(plainTailMax),
		triggered: make(map[string]bool),
	}
}

// maxNeedleLen sizes the rolling window to the longest substring the policy
// will ever look for, with a floor covering URL prefixes.
func maxNeedleLen(opts Options) int {
	max := len("https://")
	for needle := range opts.SendOnSubstrings {
		if len(needle) > max {
			max = len(needle)
		}
	}
	for _, needle := range opts.StopOnSubstrings {
		if len(needle) > max {
			max = len(needle)
		}
	}
	return max
}

func (p *genericPolicy) tick(in tickInput) tickAction {
	var act tickAction
	if p.started.IsZero() {
		p.started = in.now
		p.lastEnter = in.now
	}

	window := string(p.scan.Append(in.chunk))
	p.accum.Write(in.chunk)
	raw := string(p.accum.Bytes())
	plain := ansi.StripCR(raw)

	// Script goes out exactly once, after the initial delay.
	if !p.scriptSent && in.now.Sub(p.started) >= p.opts.InitialDelay {
		p.scriptSent = true
		p.lastEnter = in.now
		if p.script != "" {
			act.sends = append(act.sends, send{data: []byte(p.script + keyEnter)})
		}
	}

	// Configured triggers, each at most once. Needles are checked against
	// the chunk-boundary window and against the accumulated text both with
	// and without carriage returns, since redraws can split a phrase.
	for needle, keys := range p.opts.SendOnSubstrings {
		if p.triggered[needle] {
			continue
		}
		if p.sees(window, raw, plain, needle) {
			p.triggered[needle] = true
			act.sends = append(act.sends, send{data: []byte(keys)})
		}
	}

	if !p.urlSeen {
		if u := findURL(plain); u != "" {
			p.urlSeen = true
			if p.onURL != nil {
				p.onURL(u)
			}
			if p.opts.StopOnURL {
				act.stop = true
			}
		}
	}

	for _, needle := range p.opts.StopOnSubstrings {
		if p.sees(window, raw, plain, needle) {
			act.stop = true
			break
		}
	}

	if p.opts.IdleTimeout > 0 && in.captured > 0 &&
		in.now.Sub(in.lastOutput) >= p.opts.IdleTimeout {
		act.stop = true
	}

	// Keepalive Enter. Suppressed once a URL is on screen so we do not
	// dismiss a login page the user is supposed to open.
	if !p.urlSeen && p.opts.SendEnterEvery > 0 &&
		in.now.Sub(p.lastEnter) >= p.opts.SendEnterEvery {
		p.lastEnter = in.now
		act.sends = append(act.sends, send{data: []byte(keyEnter)})
	}

	if in.childExited {
		act.stop = true
	}
	return act
}

func (p *genericPolicy) sees(window, raw, plain, needle string) bool {
	return strings.Contains(window, needle) ||
		strings.Contains(raw, needle) ||
		strings.Contains(plain, needle)
}

// findURL returns the first http(s) URL in s, or "".
func findURL(s string) string {
	idx := strings.Index(s, "http://")
	if j := strings.Index(s, "https://"); j >= 0 && (idx < 0 || j < idx) {
		idx = j
	}
	if idx < 0 {
		return ""
	}
	rest := s[idx:]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == '"' || r == '\'' || r == ')'
	})
	if end < 0 {
		return rest
	}
	return rest[:end]
}
