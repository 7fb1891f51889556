// Command tradesim runs the Sugarscape-style trading simulation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/talgya/tradescape/internal/config"
	"github.com/talgya/tradescape/internal/engine"
	"github.com/talgya/tradescape/internal/llm"
	"github.com/talgya/tradescape/internal/metrics"
	"github.com/talgya/tradescape/internal/persistence"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults used when empty)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	slog.Info("tradescape",
		"grid", fmt.Sprintf("%dx%d", cfg.Grid.Width, cfg.Grid.Height),
		"traders", cfg.Traders,
		"resources", cfg.Resources,
		"seed", cfg.Seed,
	)

	// ── Decision-maker ───────────────────────────────────────────────
	var decider engine.Decider = engine.RuleDecider{}
	if cfg.LLM.Enabled {
		client := llm.NewClient(os.Getenv("ANTHROPIC_API_KEY"), cfg.LLM.Model, cfg.LLM.MaxPerMin)
		if client.Enabled() {
			d, err := llm.NewDecider(client)
			if err != nil {
				slog.Error("llm decider setup failed", "error", err)
				os.Exit(1)
			}
			decider = d
			slog.Info("LLM decision-maker enabled", "model", cfg.LLM.Model)
		} else {
			slog.Warn("ANTHROPIC_API_KEY not set — falling back to rule decider")
		}
	}

	// ── Metrics sinks ────────────────────────────────────────────────
	collector := metrics.NewCollector()
	sinks := metrics.MultiSink{collector}

	if cfg.DB.Path != "" {
		os.MkdirAll(filepath.Dir(cfg.DB.Path), 0755)
		rec, err := persistence.Open(cfg.DB.Path)
		if err != nil {
			slog.Error("failed to open recorder", "path", cfg.DB.Path, "error", err)
			os.Exit(1)
		}
		defer rec.Close()
		if err := rec.BeginRun(cfg.Seed, cfg.Grid.Width, cfg.Grid.Height, cfg.Traders, cfg.Resources); err != nil {
			slog.Error("failed to begin run", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, rec)
		slog.Info("run recorder opened", "path", cfg.DB.Path, "run", rec.RunID())
	}

	// ── Simulation ───────────────────────────────────────────────────
	sim, err := engine.NewSimulation(cfg, decider, sinks)
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}

	eng := engine.NewEngine(sim)
	eng.MaxTicks = cfg.Ticks

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\n%d traders and %d resources on a %dx%d grid. (Ctrl+C to stop)\n\n",
		len(sim.Traders), len(sim.Resources), cfg.Grid.Width, cfg.Grid.Height)

	if err := eng.Run(ctx); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}

	if last, ok := collector.Last(); ok {
		slog.Info("final state",
			"tick", last.Tick,
			"traders", last.TraderCount,
			"total_sugar", fmt.Sprintf("%.1f", last.TotalSugar),
			"total_spice", fmt.Sprintf("%.1f", last.TotalSpice),
			"trade_volume", last.TradeVolume,
			"price", fmt.Sprintf("%.3f", last.Price),
		)
	}
	fmt.Println("Simulation stopped.")
}
