package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/zzfadi/CodexBar-sub003/internal/config"
	"github.com/zzfadi/CodexBar-sub003/internal/probe"
	"github.com/zzfadi/CodexBar-sub003/internal/provider"
	"github.com/zzfadi/CodexBar-sub003/internal/store"
)

func main() {
	var (
		configPath  = flag.String("config", "", "config file (default ~/.config/codexbar/config.yaml)")
		probeTarget = flag.String("probe", "", "probe one provider and print its usage")
		serve       = flag.Bool("serve", false, "run the polling daemon with the local API")
		jsonOut     = flag.Bool("json", false, "print probe results as JSON")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			slog.Error("failed to resolve config path", "error", err)
			os.Exit(1)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *probeTarget != "":
		os.Exit(runOnce(ctx, *probeTarget, cfg, *jsonOut))
	case *serve:
		if err := runServe(ctx, cfg); err != nil {
			slog.Error("daemon error", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "usage: codexbar -probe <provider> | -serve\nproviders: %v\n", provider.Names())
		os.Exit(2)
	}
}

// runOnce probes a single provider and prints the result to stdout.
func runOnce(ctx context.Context, name string, cfg *config.Config, jsonOut bool) int {
	res, err := probe.Run(ctx, name, cfg.Provider(name), nil)
	if err != nil {
		slog.Error("probe setup failed", "error", err)
		return 1
	}

	if jsonOut || !isatty.IsTerminal(os.Stdout.Fd()) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res.Record())
	} else {
		printHuman(res)
	}

	if res.Outcome != store.OutcomeOK {
		return 1
	}
	return 0
}

func printHuman(res *probe.Result) {
	fmt.Printf("%s: %s (%s)\n", res.Provider, res.Outcome, res.Duration.Round(10*time.Millisecond))
	if res.Usage == nil {
		if res.Err != nil {
			fmt.Printf("  %v\n", res.Err)
		}
		return
	}
	if res.Usage.Account != "" {
		fmt.Printf("  account  %s\n", res.Usage.Account)
	}
	if res.Usage.Plan != "" {
		fmt.Printf("  plan     %s\n", res.Usage.Plan)
	}
	fmt.Printf("  session  %.1f%% used\n", res.Usage.SessionPct)
	fmt.Printf("  week     %.1f%% used\n", res.Usage.WeekPct)
}
