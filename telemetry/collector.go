package telemetry

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/biosim/island"
)

// Collector accumulates annual event counts within logging windows and
// samples the island into YearStats records. Every collector carries a
// unique run identifier so rows from different runs can share a sink.
type Collector struct {
	runID    string
	logEvery int

	// Current window tracking
	windowStart int

	// Event counters for current window
	herbivoreBirths     int
	carnivoreBirths     int
	herbivoreDeaths     int
	carnivoreDeaths     int
	herbivoresEaten     int
	herbivoreMigrations int
	carnivoreMigrations int
}

// NewCollector creates a stats collector flushing every logEvery years.
func NewCollector(logEvery int) *Collector {
	if logEvery < 1 {
		logEvery = 1
	}
	return &Collector{
		runID:       uuid.NewString(),
		logEvery:    logEvery,
		windowStart: 1,
	}
}

// RunID returns the unique identifier of this run.
func (c *Collector) RunID() string {
	return c.runID
}

// RecordYear folds one year's event counters into the current window.
func (c *Collector) RecordYear(ev island.YearEvents) {
	c.herbivoreBirths += ev.HerbivoreBirths
	c.carnivoreBirths += ev.CarnivoreBirths
	c.herbivoreDeaths += ev.HerbivoreDeaths
	c.carnivoreDeaths += ev.CarnivoreDeaths
	c.herbivoresEaten += ev.HerbivoresEaten
	c.herbivoreMigrations += ev.HerbivoreMigrations
	c.carnivoreMigrations += ev.CarnivoreMigrations
}

// ShouldFlush reports whether the window closing at the given year has
// reached its full length.
func (c *Collector) ShouldFlush(year int) bool {
	return year-c.windowStart+1 >= c.logEvery
}

// WindowOpen reports whether any years have accumulated since the last
// flush, i.e. whether a final partial window remains to be written.
func (c *Collector) WindowOpen(year int) bool {
	return year >= c.windowStart
}

// Flush samples the island at the given year, produces the closed
// window's YearStats and resets counters for the next window.
func (c *Collector) Flush(year int, isl *island.Island) YearStats {
	herbs, carns := isl.TotalPopulation()

	var herbWeights, carnWeights []float64
	var herbFitness, carnFitness []float64
	var herbAges, carnAges []float64
	isl.EachOrganism(func(o *island.Organism) {
		switch o.Species() {
		case island.Herbivore:
			herbWeights = append(herbWeights, o.Weight())
			herbFitness = append(herbFitness, o.Fitness())
			herbAges = append(herbAges, float64(o.Age()))
		case island.Carnivore:
			carnWeights = append(carnWeights, o.Weight())
			carnFitness = append(carnFitness, o.Fitness())
			carnAges = append(carnAges, float64(o.Age()))
		}
	})

	var totalFodder float64
	for _, cell := range isl.PopulationPerCell() {
		totalFodder += cell.Fodder
	}

	stats := YearStats{
		WindowStart: c.windowStart,
		Year:        year,

		Herbivores: herbs,
		Carnivores: carns,

		HerbivoreBirths:     c.herbivoreBirths,
		CarnivoreBirths:     c.carnivoreBirths,
		HerbivoreDeaths:     c.herbivoreDeaths,
		CarnivoreDeaths:     c.carnivoreDeaths,
		HerbivoresEaten:     c.herbivoresEaten,
		HerbivoreMigrations: c.herbivoreMigrations,
		CarnivoreMigrations: c.carnivoreMigrations,

		HerbFitnessMean: meanOrZero(herbFitness),
		CarnFitnessMean: meanOrZero(carnFitness),
		HerbAgeMean:     meanOrZero(herbAges),
		CarnAgeMean:     meanOrZero(carnAges),

		TotalFodder: totalFodder,
	}
	stats.HerbWeightMean, stats.HerbWeightP10, stats.HerbWeightP50, stats.HerbWeightP90 = DistributionStats(herbWeights)
	stats.CarnWeightMean, stats.CarnWeightP10, stats.CarnWeightP50, stats.CarnWeightP90 = DistributionStats(carnWeights)

	// Reset for next window
	c.windowStart = year + 1
	c.herbivoreBirths = 0
	c.carnivoreBirths = 0
	c.herbivoreDeaths = 0
	c.carnivoreDeaths = 0
	c.herbivoresEaten = 0
	c.carnivoreMigrations = 0
	c.herbivoreMigrations = 0

	return stats
}

// CellCensus converts the island's per-cell census into CSV rows.
func CellCensus(year int, isl *island.Island) []CellStats {
	cells := isl.PopulationPerCell()
	out := make([]CellStats, 0, len(cells))
	for _, cell := range cells {
		out = append(out, CellStats{
			Year:       year,
			Row:        cell.Row,
			Col:        cell.Col,
			Terrain:    cell.Kind.String(),
			Fodder:     cell.Fodder,
			Herbivores: cell.Herbivores,
			Carnivores: cell.Carnivores,
		})
	}
	return out
}

func meanOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
