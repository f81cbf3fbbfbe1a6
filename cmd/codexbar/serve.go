package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/zzfadi/CodexBar-sub003/internal/config"
	"github.com/zzfadi/CodexBar-sub003/internal/hub"
	"github.com/zzfadi/CodexBar-sub003/internal/probe"
	"github.com/zzfadi/CodexBar-sub003/internal/provider"
	"github.com/zzfadi/CodexBar-sub003/internal/server"
	"github.com/zzfadi/CodexBar-sub003/internal/store"
)

// runServe runs the polling daemon: probe every enabled provider on a
// timer (or on client request), record results, and fan events out to
// connected menubar clients.
func runServe(ctx context.Context, cfg *config.Config) error {
	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	probes := store.NewProbeRepo(st.SQL())

	refresh := make(chan string, 8)
	h := hub.New(cfg.Token, func(name string) {
		select {
		case refresh <- name:
		default:
		}
	})
	go h.Run(ctx)

	srv := server.New(cfg, h, probes)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	// First sweep immediately so a fresh daemon has data to serve.
	poll := newPoller(cfg, h, probes)
	poll.sweep(ctx, "")

	ticker := time.NewTicker(cfg.PollInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return <-errCh
		case err := <-errCh:
			return err
		case <-ticker.C:
			poll.sweep(ctx, "")
		case name := <-refresh:
			poll.sweep(ctx, name)
		}
	}
}

type poller struct {
	cfg    *config.Config
	hub    *hub.Hub
	probes *store.ProbeRepo
}

func newPoller(cfg *config.Config, h *hub.Hub, probes *store.ProbeRepo) *poller {
	return &poller{cfg: cfg, hub: h, probes: probes}
}

// sweep probes one provider, or all enabled ones when name is empty.
// Providers run sequentially: two interactive CLIs fighting over the
// keyboard-heavy startup window would slow each other down.
func (p *poller) sweep(ctx context.Context, name string) {
	targets := provider.Names()
	if name != "" {
		targets = []string{name}
	}

	for _, target := range targets {
		if ctx.Err() != nil {
			return
		}
		pcfg := p.cfg.Provider(target)
		if pcfg.Disabled {
			continue
		}

		p.hub.BroadcastProbeStarted(target)
		res, err := probe.Run(ctx, target, pcfg, func(chunk []byte) {
			p.hub.BroadcastProbeOutput(target, string(chunk))
		})
		if err != nil {
			slog.Error("probe setup failed", "provider", target, "error", err)
			continue
		}

		if err := p.probes.Record(ctx, res.Record()); err != nil {
			slog.Error("failed to record probe", "provider", target, "error", err)
		}

		done := hub.ProbeDoneMessage{
			Provider:   target,
			Outcome:    res.Outcome,
			DurationMs: res.Duration.Milliseconds(),
		}
		if res.Usage != nil {
			done.Usage = &hub.UsageInfo{
				Provider:   target,
				Outcome:    res.Outcome,
				Account:    res.Usage.Account,
				Plan:       res.Usage.Plan,
				SessionPct: res.Usage.SessionPct,
				WeekPct:    res.Usage.WeekPct,
				CapturedAt: res.Usage.CapturedAt.Unix(),
			}
		}
		p.hub.BroadcastProbeDone(done)
	}
}
