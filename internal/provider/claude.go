package provider

import (
	"regexp"
	"strings"
	"time"

	"github.com/zzfadi/CodexBar-sub003/internal/ansi"
)

// The /status panel labels its gauges "Current session" and "Current week";
// both render as "NN% used". Older builds write the weekly line with a
// model qualifier in parens, which the pattern tolerates.
var (
	claudeSessionPct = regexp.MustCompile(`(?i)current session[^\d%]*(\d+(?:\.\d+)?)\s*%`)
	claudeWeekPct    = regexp.MustCompile(`(?i)current week[^%]*?(\d+(?:\.\d+)?)\s*%`)
	claudePlan       = regexp.MustCompile(`(?i)(?:current )?plan[:\s]+([^\n·|]+)`)
)

// ParseClaudeStatus extracts account identity and usage percentages from a
// captured /status panel. Returns ErrNoUsage when neither gauge is present.
func ParseClaudeStatus(text string) (*Usage, error) {
	plain := ansi.Strip(text)

	u := &Usage{
		Provider:   "claude",
		Account:    findEmail(plain),
		CapturedAt: time.Now().UTC(),
	}
	if m := claudePlan.FindStringSubmatch(plain); m != nil {
		u.Plan = strings.TrimSpace(m[1])
	}

	session, okSession := percentAfter(claudeSessionPct, plain)
	week, okWeek := percentAfter(claudeWeekPct, plain)
	if !okSession && !okWeek {
		return nil, ErrNoUsage
	}
	u.SessionPct = session
	u.WeekPct = week
	return u, nil
}
