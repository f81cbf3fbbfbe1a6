package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Probe outcomes.
const (
	OutcomeOK      = "ok"       // usage parsed
	OutcomeNoUsage = "no_usage" // CLI answered but no figures in the capture
	OutcomeTimeout = "timeout"  // no output before the deadline
	OutcomeError   = "error"    // launch or teardown failure
)

// Probe is one recorded drive of a provider CLI.
type Probe struct {
	ID         string        `json:"id"`
	Provider   string        `json:"provider"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"-"`
	Outcome    string        `json:"outcome"`
	Text       string        `json:"-"`
	Account    string        `json:"account,omitempty"`
	Plan       string        `json:"plan,omitempty"`
	SessionPct float64       `json:"session_pct"`
	WeekPct    float64       `json:"week_pct"`
}

// probeJSON carries Duration over the wire as whole milliseconds, same
// unit the probes table stores.
type probeJSON struct {
	*probeAlias
	DurationMs int64 `json:"duration_ms"`
}

type probeAlias Probe

func (p Probe) MarshalJSON() ([]byte, error) {
	alias := probeAlias(p)
	return json.Marshal(probeJSON{
		probeAlias: &alias,
		DurationMs: p.Duration.Milliseconds(),
	})
}

func (p *Probe) UnmarshalJSON(data []byte) error {
	wire := probeJSON{probeAlias: (*probeAlias)(p)}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	p.Duration = time.Duration(wire.DurationMs) * time.Millisecond
	return nil
}

type ProbeRepo struct {
	db *sql.DB
}

func NewProbeRepo(db *sql.DB) *ProbeRepo {
	return &ProbeRepo{db: db}
}

func (r *ProbeRepo) Record(ctx context.Context, probe *Probe) error {
	if probe.ID == "" {
		probe.ID = uuid.NewString()
	}
	if probe.StartedAt.IsZero() {
		probe.StartedAt = nowUTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO probes (id, provider, started_at, duration_ms, outcome, text, account, plan, session_pct, week_pct)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, probe.ID, probe.Provider, formatTimestamp(probe.StartedAt), probe.Duration.Milliseconds(), probe.Outcome, probe.Text, nullIfEmpty(probe.Account), nullIfEmpty(probe.Plan), probe.SessionPct, probe.WeekPct)
	if err != nil {
		return fmt.Errorf("failed to record probe: %w", err)
	}

	return nil
}

// Latest returns the most recent probe for a provider, nil when none exists.
func (r *ProbeRepo) Latest(ctx context.Context, provider string) (*Probe, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, provider, started_at, duration_ms, outcome, text, account, plan, session_pct, week_pct
FROM probes
WHERE provider = ?
ORDER BY started_at DESC, id DESC
LIMIT 1
`, provider)

	probe, err := scanProbe(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest probe for %q: %w", provider, err)
	}
	return probe, nil
}

// History returns the newest probes for a provider, most recent first.
func (r *ProbeRepo) History(ctx context.Context, provider string, limit int) ([]*Probe, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, provider, started_at, duration_ms, outcome, text, account, plan, session_pct, week_pct
FROM probes
WHERE provider = ?
ORDER BY started_at DESC, id DESC
LIMIT ?
`, provider, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list probes for %q: %w", provider, err)
	}
	defer rows.Close()

	probes := []*Probe{}
	for rows.Next() {
		probe, err := scanProbe(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan probe: %w", err)
		}
		probes = append(probes, probe)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating probes: %w", err)
	}

	return probes, nil
}

// Prune deletes probes older than the cutoff, returning how many went.
func (r *ProbeRepo) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM probes WHERE started_at < ?`, formatTimestamp(before))
	if err != nil {
		return 0, fmt.Errorf("failed to prune probes: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned rows: %w", err)
	}
	return affected, nil
}

func scanProbe(scan func(dest ...any) error) (*Probe, error) {
	var p Probe
	var startedAtRaw string
	var durationMs int64
	var account, plan sql.NullString
	var sessionPct, weekPct sql.NullFloat64

	if err := scan(&p.ID, &p.Provider, &startedAtRaw, &durationMs, &p.Outcome, &p.Text, &account, &plan, &sessionPct, &weekPct); err != nil {
		return nil, err
	}

	var err error
	p.StartedAt, err = parseTimestamp(startedAtRaw)
	if err != nil {
		return nil, err
	}
	p.Duration = time.Duration(durationMs) * time.Millisecond
	p.Account = account.String
	p.Plan = plan.String
	p.SessionPct = sessionPct.Float64
	p.WeekPct = weekPct.Float64

	return &p, nil
}
