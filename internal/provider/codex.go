package provider

import (
	"regexp"
	"strings"
	"time"

	"github.com/zzfadi/CodexBar-sub003/internal/ansi"
)

// Codex draws its limits as bracketed gauges: "5h limit: [███░░] 37% used"
// and "Weekly limit: [█░░░░] 12% used". The plan rides along with the
// account line in parens.
var (
	codexSessionPct = regexp.MustCompile(`(?i)5h limit[^\d%]*(\d+(?:\.\d+)?)\s*%`)
	codexWeekPct    = regexp.MustCompile(`(?i)weekly limit[^\d%]*(\d+(?:\.\d+)?)\s*%`)
	codexPlan       = regexp.MustCompile(`(?i)account[^\n(]*\(([^)]+)\)`)
)

// ParseCodexStatus extracts account identity and usage percentages from a
// captured codex /status exchange.
func ParseCodexStatus(text string) (*Usage, error) {
	plain := ansi.Strip(text)

	u := &Usage{
		Provider:   "codex",
		Account:    findEmail(plain),
		CapturedAt: time.Now().UTC(),
	}
	if m := codexPlan.FindStringSubmatch(plain); m != nil {
		u.Plan = strings.TrimSpace(m[1])
	}

	session, okSession := percentAfter(codexSessionPct, plain)
	week, okWeek := percentAfter(codexWeekPct, plain)
	if !okSession && !okWeek {
		return nil, ErrNoUsage
	}
	u.SessionPct = session
	u.WeekPct = week
	return u, nil
}
