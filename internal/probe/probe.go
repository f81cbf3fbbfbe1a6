// Package probe ties the pieces together: resolve the provider's binary,
// drive it under a PTY, parse the capture, and shape the outcome for
// storage and broadcast.
package probe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zzfadi/CodexBar-sub003/internal/config"
	"github.com/zzfadi/CodexBar-sub003/internal/locate"
	"github.com/zzfadi/CodexBar-sub003/internal/provider"
	"github.com/zzfadi/CodexBar-sub003/internal/store"
	"github.com/zzfadi/CodexBar-sub003/internal/termauto"
)

// Result is the full outcome of one probe: the raw capture, the parsed
// usage when the panel was readable, and the error that stopped it.
type Result struct {
	ID        string
	Provider  string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   string
	Text      string
	Usage     *provider.Usage
	Err       error
}

// Run probes one provider, applying any config overrides on top of the
// built-in profile. onOutput, when non-nil, observes raw capture chunks as
// they arrive. The returned Result always carries an outcome; err is
// non-nil only when the provider name itself is unknown or the overrides
// are unusable.
func Run(ctx context.Context, name string, cfg config.ProviderConfig, onOutput func(chunk []byte)) (*Result, error) {
	prof, err := provider.Get(name)
	if err != nil {
		return nil, err
	}

	binary := prof.Binary
	if cfg.Binary != "" {
		binary = cfg.Binary
	}
	script := prof.Script
	if cfg.Script != "" {
		script = cfg.Script
	}
	args, err := cfg.Args()
	if err != nil {
		return nil, err
	}

	opts := prof.Options
	opts.Env = locate.Environ()
	opts.OnOutput = onOutput
	if len(args) > 0 {
		opts.ExtraArgs = append(opts.ExtraArgs, args...)
	}
	if cfg.Timeout.Std() > 0 {
		opts.Timeout = cfg.Timeout.Std()
	}
	if cfg.IdleTimeout.Std() > 0 {
		opts.IdleTimeout = cfg.IdleTimeout.Std()
	}
	if cfg.InitialDelay.Std() > 0 {
		opts.InitialDelay = cfg.InitialDelay.Std()
	}
	if len(cfg.StopOnSubstrings) > 0 {
		opts.StopOnSubstrings = cfg.StopOnSubstrings
	}
	if cfg.WorkDir != "" {
		opts.WorkDir = cfg.WorkDir
	}

	res := &Result{
		ID:        uuid.NewString(),
		Provider:  name,
		StartedAt: time.Now().UTC(),
	}

	path, err := locate.Resolve(binary)
	if err != nil {
		res.Outcome = store.OutcomeError
		res.Err = err
		slog.Warn("probe binary missing", "provider", name, "binary", binary)
		return res, nil
	}

	slog.Info("probe started", "provider", name, "binary", path, "timeout", opts.Timeout)
	text, runErr := termauto.Run(ctx, path, script, opts, nil)
	res.Duration = time.Since(res.StartedAt)
	res.Text = text

	switch {
	case runErr == nil:
		usage, parseErr := prof.Parse(text)
		if errors.Is(parseErr, provider.ErrNoUsage) {
			res.Outcome = store.OutcomeNoUsage
			res.Err = parseErr
			slog.Warn("probe captured no usage", "provider", name, "bytes", len(text))
			break
		}
		if parseErr != nil {
			res.Outcome = store.OutcomeError
			res.Err = parseErr
			break
		}
		res.Outcome = store.OutcomeOK
		res.Usage = usage
		slog.Info("probe parsed usage",
			"provider", name,
			"session_pct", usage.SessionPct,
			"week_pct", usage.WeekPct,
			"duration", res.Duration.Round(time.Millisecond))
	case errors.Is(runErr, termauto.ErrTimedOut):
		res.Outcome = store.OutcomeTimeout
		res.Err = runErr
		slog.Warn("probe timed out", "provider", name, "timeout", opts.Timeout)
	default:
		res.Outcome = store.OutcomeError
		res.Err = runErr
		slog.Error("probe failed", "provider", name, "error", runErr)
	}

	return res, nil
}

// Record converts the result into a probes-table row.
func (r *Result) Record() *store.Probe {
	p := &store.Probe{
		ID:        r.ID,
		Provider:  r.Provider,
		StartedAt: r.StartedAt,
		Duration:  r.Duration,
		Outcome:   r.Outcome,
		Text:      r.Text,
	}
	if r.Usage != nil {
		p.Account = r.Usage.Account
		p.Plan = r.Usage.Plan
		p.SessionPct = r.Usage.SessionPct
		p.WeekPct = r.Usage.WeekPct
	}
	return p
}
