package sim

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/biosim/config"
	"github.com/pthm-cable/biosim/island"
	"github.com/pthm-cable/biosim/telemetry"
)

// Options configures a run. Zero values fall back to the corresponding
// configuration entries.
type Options struct {
	Seed            int64
	Years           int
	LogEvery        int
	CellCensusEvery int
	LogStats        bool
	OutputDir       string
}

// Sim owns one simulation run: the island, its random stream, and the
// telemetry pipeline.
type Sim struct {
	isl        *island.Island
	rng        *rand.Rand
	collector  *telemetry.Collector
	output     *telemetry.OutputManager
	perf       *telemetry.PerfCollector
	milestones *telemetry.MilestoneDetector

	mapText     string
	logStats    bool
	years       int
	censusEvery int
	year        int
	history     []telemetry.YearStats
}

// New builds a run from a scenario. The configuration must be initialized
// before calling.
func New(scn *Scenario, opts Options) (*Sim, error) {
	cfg := config.Cfg()

	mapText, err := scn.resolveMap()
	if err != nil {
		return nil, err
	}
	isl, err := island.FromMapString(mapText)
	if err != nil {
		return nil, fmt.Errorf("building island: %w", err)
	}
	entries, err := scn.entries()
	if err != nil {
		return nil, err
	}
	if err := isl.Populate(entries); err != nil {
		return nil, fmt.Errorf("seeding island: %w", err)
	}

	years := opts.Years
	if years <= 0 {
		years = scn.Years
	}
	if years <= 0 {
		years = cfg.Sim.Years
	}
	logEvery := opts.LogEvery
	if logEvery <= 0 {
		logEvery = cfg.Sim.LogEvery
	}
	censusEvery := opts.CellCensusEvery
	if censusEvery <= 0 {
		censusEvery = cfg.Sim.CellCensusEvery
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}

	s := &Sim{
		isl:         isl,
		rng:         rand.New(rand.NewSource(opts.Seed)),
		collector:   telemetry.NewCollector(logEvery),
		output:      output,
		perf:        telemetry.NewPerfCollector(logEvery),
		milestones:  telemetry.NewMilestoneDetector(10),
		mapText:     mapText,
		logStats:    opts.LogStats,
		years:       years,
		censusEvery: censusEvery,
	}

	// Persist the run's inputs next to its outputs so it can be replayed.
	if err := s.output.WriteConfig(cfg); err != nil {
		return nil, err
	}
	if err := s.output.WriteMap(mapText); err != nil {
		return nil, err
	}
	if err := s.output.WriteCellStats(telemetry.CellCensus(0, isl)); err != nil {
		return nil, err
	}

	herbs, carns := isl.TotalPopulation()
	slog.Info("run initialized",
		"run_id", s.collector.RunID(),
		"rows", isl.Rows(),
		"cols", isl.Cols(),
		"herbivores", herbs,
		"carnivores", carns,
		"years", years,
		"seed", opts.Seed,
	)
	return s, nil
}

// Island exposes the underlying island, mainly for queries.
func (s *Sim) Island() *island.Island { return s.isl }

// Year returns the number of completed years.
func (s *Sim) Year() int { return s.year }

// RunID returns the unique identifier of this run.
func (s *Sim) RunID() string { return s.collector.RunID() }

// History returns the window stats flushed so far, in order.
func (s *Sim) History() []telemetry.YearStats { return s.history }

// Step advances the simulation by one year and returns the surviving
// (herbivore, carnivore) totals.
func (s *Sim) Step() (int, int) {
	s.perf.StartYear()
	s.year++
	herbs, carns := s.isl.AdvanceYear(s.rng)
	s.collector.RecordYear(s.isl.YearEvents())
	s.perf.EndYear()

	if s.collector.ShouldFlush(s.year) {
		s.flushTelemetry()
	}
	if s.censusEvery > 0 && s.year%s.censusEvery == 0 {
		if err := s.output.WriteCellStats(telemetry.CellCensus(s.year, s.isl)); err != nil {
			slog.Error("failed to write cell stats", "error", err)
		}
	}
	return herbs, carns
}

// Run steps until the configured year count, stopping early if both
// species die out. Returns the final (herbivore, carnivore) totals.
func (s *Sim) Run() (int, int) {
	herbs, carns := s.isl.TotalPopulation()
	for s.year < s.years {
		herbs, carns = s.Step()
		if herbs+carns == 0 {
			slog.Info("population extinct", "year", s.year)
			break
		}
	}
	if s.collector.WindowOpen(s.year) {
		s.flushTelemetry()
	}
	return herbs, carns
}

// Close writes the final state snapshot and closes the output files.
func (s *Sim) Close() error {
	if err := s.writeSnapshot(); err != nil {
		slog.Error("failed to write snapshot", "error", err)
	}
	return s.output.Close()
}

// flushTelemetry closes the current stats window and routes it to the
// enabled sinks.
func (s *Sim) flushTelemetry() {
	stats := s.collector.Flush(s.year, s.isl)
	s.history = append(s.history, stats)

	for _, m := range s.milestones.Check(stats) {
		m.LogMilestone()
	}

	if s.logStats {
		stats.LogStats()
	}
	if err := s.output.WriteYearStats(stats); err != nil {
		slog.Error("failed to write year stats", "error", err)
	}
	if err := s.output.WritePerf(s.perf.Stats(), s.year); err != nil {
		slog.Error("failed to write perf stats", "error", err)
	}
}
