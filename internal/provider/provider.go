// Package provider knows the individual agent CLIs: how to probe each one
// (script, stop markers, timeouts) and how to read account identity and
// usage figures out of the captured panel text.
package provider

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/zzfadi/CodexBar-sub003/internal/termauto"
)

// ErrNoUsage means the capture contained no recognizable usage figures.
// The probe itself succeeded; the panel just was not on screen.
var ErrNoUsage = errors.New("no usage figures found in capture")

// Usage is one parsed snapshot of an account's rate-limit consumption.
type Usage struct {
	Provider   string    `json:"provider"`
	Account    string    `json:"account,omitempty"`
	Plan       string    `json:"plan,omitempty"`
	SessionPct float64   `json:"session_pct"` // percent of the rolling session window used
	WeekPct    float64   `json:"week_pct"`    // percent of the weekly window used
	CapturedAt time.Time `json:"captured_at"`
}

// Profile describes how to probe one provider's CLI.
type Profile struct {
	Name    string
	Binary  string
	Script  string
	Options termauto.Options
	Parse   func(text string) (*Usage, error)
}

var profiles = map[string]Profile{
	"claude": {
		Name:   "claude",
		Binary: "claude",
		Script: "/status",
		Options: termauto.Options{
			Timeout:      20 * time.Second,
			InitialDelay: 1200 * time.Millisecond,
		},
		Parse: ParseClaudeStatus,
	},
	"codex": {
		Name:   "codex",
		Binary: "codex",
		Script: "/status",
		Options: termauto.Options{
			Timeout:          20 * time.Second,
			IdleTimeout:      2 * time.Second,
			StopOnSubstrings: []string{"Weekly limit"},
		},
		Parse: ParseCodexStatus,
	},
}

// Get returns the profile for a provider name.
func Get(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown provider %q (have %v)", name, Names())
	}
	return p, nil
}

// Names lists the known providers, sorted.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

func findEmail(text string) string {
	return emailPattern.FindString(text)
}

// percentAfter pulls the first "NN%" following the anchor phrase.
func percentAfter(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	var pct float64
	if _, err := fmt.Sscanf(m[1], "%f", &pct); err != nil {
		return 0, false
	}
	return pct, true
}
