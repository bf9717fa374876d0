package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/biosim/config"
)

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir       string
	yearsFile *os.File
	cellsFile *os.File
	perfFile  *os.File

	// Track if headers have been written
	yearsHeaderWritten bool
	cellsHeaderWritten bool
	perfHeaderWritten  bool
}

// NewOutputManager creates a new output manager and initializes the output
// directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	yearsPath := filepath.Join(dir, "years.csv")
	f, err := os.Create(yearsPath)
	if err != nil {
		return nil, fmt.Errorf("creating years.csv: %w", err)
	}
	om.yearsFile = f

	cellsPath := filepath.Join(dir, "cells.csv")
	f, err = os.Create(cellsPath)
	if err != nil {
		om.yearsFile.Close()
		return nil, fmt.Errorf("creating cells.csv: %w", err)
	}
	om.cellsFile = f

	perfPath := filepath.Join(dir, "perf.csv")
	f, err = os.Create(perfPath)
	if err != nil {
		om.yearsFile.Close()
		om.cellsFile.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteMap saves the landscape map used for the run.
func (om *OutputManager) WriteMap(mapText string) error {
	if om == nil {
		return nil
	}
	mapPath := filepath.Join(om.dir, "island.txt")
	if err := os.WriteFile(mapPath, []byte(mapText), 0644); err != nil {
		return fmt.Errorf("writing island.txt: %w", err)
	}
	return nil
}

// WriteYearStats writes a window stats record to years.csv.
func (om *OutputManager) WriteYearStats(stats YearStats) error {
	if om == nil {
		return nil
	}

	records := []YearStats{stats}

	if !om.yearsHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.yearsFile); err != nil {
			return fmt.Errorf("writing year stats: %w", err)
		}
		om.yearsHeaderWritten = true
	} else {
		// Subsequent writes skip headers
		if err := gocsv.MarshalWithoutHeaders(records, om.yearsFile); err != nil {
			return fmt.Errorf("writing year stats: %w", err)
		}
	}

	return nil
}

// WriteCellStats appends one census's rows to cells.csv.
func (om *OutputManager) WriteCellStats(records []CellStats) error {
	if om == nil || len(records) == 0 {
		return nil
	}

	if !om.cellsHeaderWritten {
		if err := gocsv.Marshal(records, om.cellsFile); err != nil {
			return fmt.Errorf("writing cell stats: %w", err)
		}
		om.cellsHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.cellsFile); err != nil {
			return fmt.Errorf("writing cell stats: %w", err)
		}
	}

	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int) error {
	if om == nil {
		return nil
	}

	records := []PerfStatsCSV{stats.ToCSV(windowEnd)}

	if !om.perfHeaderWritten {
		if err := gocsv.Marshal(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		om.perfHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
	}

	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	if om.yearsFile != nil {
		if err := om.yearsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.cellsFile != nil {
		if err := om.cellsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.perfFile != nil {
		if err := om.perfFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
