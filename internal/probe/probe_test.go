//go:build !windows

package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zzfadi/CodexBar-sub003/internal/config"
	"github.com/zzfadi/CodexBar-sub003/internal/locate"
	"github.com/zzfadi/CodexBar-sub003/internal/provider"
	"github.com/zzfadi/CodexBar-sub003/internal/store"
	"github.com/zzfadi/CodexBar-sub003/internal/termauto"
)

// fakeBinary drops a shell script into a temp dir and pins the provider's
// override variable to it, so Run drives our script instead of a real CLI.
func fakeBinary(t *testing.T, providerName, body string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PTY integration test in short mode")
	}
	path := filepath.Join(t.TempDir(), providerName)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv(locate.OverrideVar(providerName), path)
}

func TestRunParsesStatusPanel(t *testing.T) {
	fakeBinary(t, "claude", `
read -r line
printf ' Claude Code Status\n'
printf '  Account: dev@example.com\n'
printf '  Current plan: Max 5x\n'
printf '  Current session: 34%% used (resets 3pm)\n'
printf '  Current week (all models): 12%% used (resets Tue)\n'
printf '  esc to close\n'
sleep 5
`)

	var streamed int
	cfg := config.ProviderConfig{
		Timeout:      config.Duration(8 * time.Second),
		InitialDelay: config.Duration(50 * time.Millisecond),
	}
	res, err := Run(context.Background(), "claude", cfg, func(chunk []byte) { streamed += len(chunk) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != store.OutcomeOK {
		t.Fatalf("Outcome = %q (err %v, text %q)", res.Outcome, res.Err, res.Text)
	}
	if streamed == 0 {
		t.Error("output observer never fired")
	}
	if res.Usage == nil {
		t.Fatal("Usage is nil")
	}
	if res.Usage.Account != "dev@example.com" || res.Usage.SessionPct != 34 || res.Usage.WeekPct != 12 {
		t.Errorf("Usage = %+v", res.Usage)
	}
	if res.ID == "" || res.Duration <= 0 {
		t.Errorf("bookkeeping: id=%q duration=%s", res.ID, res.Duration)
	}
}

func TestRunNoUsageInCapture(t *testing.T) {
	fakeBinary(t, "claude", `
read -r line
printf 'Unknown slash command.\n'
printf '  esc to close\n'
sleep 5
`)

	cfg := config.ProviderConfig{
		Timeout:      config.Duration(8 * time.Second),
		InitialDelay: config.Duration(50 * time.Millisecond),
	}
	res, err := Run(context.Background(), "claude", cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != store.OutcomeNoUsage {
		t.Fatalf("Outcome = %q (err %v)", res.Outcome, res.Err)
	}
	if !errors.Is(res.Err, provider.ErrNoUsage) {
		t.Errorf("Err = %v", res.Err)
	}
}

func TestRunTimeout(t *testing.T) {
	// Echo off so the typed script does not count as output.
	fakeBinary(t, "codex", "stty -echo 2>/dev/null\nsleep 10\n")

	cfg := config.ProviderConfig{Timeout: config.Duration(time.Second)}
	res, err := Run(context.Background(), "codex", cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != store.OutcomeTimeout {
		t.Fatalf("Outcome = %q (err %v, text %q)", res.Outcome, res.Err, res.Text)
	}
	if !errors.Is(res.Err, termauto.ErrTimedOut) {
		t.Errorf("Err = %v", res.Err)
	}
}

func TestRunMissingBinary(t *testing.T) {
	cfg := config.ProviderConfig{Binary: "codexbar-test-no-such-cli"}
	res, err := Run(context.Background(), "claude", cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != store.OutcomeError {
		t.Fatalf("Outcome = %q", res.Outcome)
	}
	var nf *termauto.BinaryNotFoundError
	if !errors.As(res.Err, &nf) {
		t.Errorf("Err = %v, want BinaryNotFoundError", res.Err)
	}
}

func TestRunUnknownProvider(t *testing.T) {
	if _, err := Run(context.Background(), "copilot", config.ProviderConfig{}, nil); err == nil {
		t.Fatal("Run accepted an unknown provider")
	}
}

func TestResultRecord(t *testing.T) {
	started := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	res := &Result{
		ID:        "abc",
		Provider:  "claude",
		StartedAt: started,
		Duration:  4 * time.Second,
		Outcome:   store.OutcomeOK,
		Text:      "panel",
		Usage: &provider.Usage{
			Account:    "dev@example.com",
			Plan:       "Max 5x",
			SessionPct: 34,
			WeekPct:    12,
		},
	}

	p := res.Record()
	if p.ID != "abc" || p.Provider != "claude" || !p.StartedAt.Equal(started) {
		t.Errorf("row identity = %+v", p)
	}
	if p.Account != "dev@example.com" || p.Plan != "Max 5x" || p.SessionPct != 34 || p.WeekPct != 12 {
		t.Errorf("row usage = %+v", p)
	}

	bare := &Result{Outcome: store.OutcomeTimeout}
	if row := bare.Record(); row.Account != "" || row.SessionPct != 0 {
		t.Errorf("bare row = %+v", row)
	}
}
