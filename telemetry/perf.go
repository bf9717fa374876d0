package telemetry

import (
	"log/slog"
	"time"
)

// PerfCollector tracks how long simulated years take over a rolling
// window. The annual cycle runs as a single engine call, so timing is
// per year; phase-level breakdowns stay inside the engine.
type PerfCollector struct {
	windowSize  int
	samples     []time.Duration
	writeIndex  int
	sampleCount int
	yearStart   time.Time
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of years to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 50
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]time.Duration, windowSize),
	}
}

// StartYear begins timing a simulated year.
func (p *PerfCollector) StartYear() {
	p.yearStart = time.Now()
}

// EndYear finishes timing the current year and records the sample.
func (p *PerfCollector) EndYear() {
	p.samples[p.writeIndex] = time.Since(p.yearStart)
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgYearDuration time.Duration
	MinYearDuration time.Duration
	MaxYearDuration time.Duration
	YearsPerSecond  float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{}
	}

	var total time.Duration
	var minYear, maxYear time.Duration
	for i := 0; i < p.sampleCount; i++ {
		d := p.samples[i]
		total += d
		if i == 0 || d < minYear {
			minYear = d
		}
		if d > maxYear {
			maxYear = d
		}
	}

	avg := total / time.Duration(p.sampleCount)

	var yearsPerSec float64
	if avg > 0 {
		yearsPerSec = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgYearDuration: avg,
		MinYearDuration: minYear,
		MaxYearDuration: maxYear,
		YearsPerSecond:  yearsPerSec,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	slog.Info("perf",
		"avg_year_us", s.AvgYearDuration.Microseconds(),
		"min_year_us", s.MinYearDuration.Microseconds(),
		"max_year_us", s.MaxYearDuration.Microseconds(),
		"years_per_sec", int(s.YearsPerSecond),
	)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("avg_year_us", s.AvgYearDuration.Microseconds()),
		slog.Int64("min_year_us", s.MinYearDuration.Microseconds()),
		slog.Int64("max_year_us", s.MaxYearDuration.Microseconds()),
		slog.Float64("years_per_sec", s.YearsPerSecond),
	)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd   int     `csv:"window_end"`
	AvgYearUS   int64   `csv:"avg_year_us"`
	MinYearUS   int64   `csv:"min_year_us"`
	MaxYearUS   int64   `csv:"max_year_us"`
	YearsPerSec float64 `csv:"years_per_sec"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd int) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:   windowEnd,
		AvgYearUS:   s.AvgYearDuration.Microseconds(),
		MinYearUS:   s.MinYearDuration.Microseconds(),
		MaxYearUS:   s.MaxYearDuration.Microseconds(),
		YearsPerSec: s.YearsPerSecond,
	}
}
