package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/biosim/config"
	"github.com/pthm-cable/biosim/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	scenarioPath := flag.String("scenario", "", "Path to scenario.yaml with the island map and starting population")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	years := flag.Int("years", 0, "Years to simulate (0 = use config)")
	logEvery := flag.Int("log-every", 0, "Stats window length in years (0 = use config)")
	censusEvery := flag.Int("census-every", 0, "Years between per-cell census rows (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *scenarioPath == "" {
		slog.Error("no scenario given, pass -scenario")
		os.Exit(1)
	}
	scn, err := sim.LoadScenario(*scenarioPath)
	if err != nil {
		slog.Error("failed to load scenario", "error", err)
		os.Exit(1)
	}

	// Set up seed: flag wins, then the scenario's, then the clock
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = scn.Seed
	}
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	s, err := sim.New(scn, sim.Options{
		Seed:            rngSeed,
		Years:           *years,
		LogEvery:        *logEvery,
		CellCensusEvery: *censusEvery,
		LogStats:        *logStats,
		OutputDir:       *outputDir,
	})
	if err != nil {
		slog.Error("failed to build run", "error", err)
		os.Exit(1)
	}

	herbs, carns := s.Run()
	if err := s.Close(); err != nil {
		slog.Error("failed to close outputs", "error", err)
	}

	slog.Info("run complete",
		"years", s.Year(),
		"herbivores", herbs,
		"carnivores", carns,
	)
}
