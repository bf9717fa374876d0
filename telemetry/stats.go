package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// YearStats holds aggregated statistics for one logging window: the
// population state at the window's closing year plus the event counts
// accumulated since the previous flush.
type YearStats struct {
	WindowStart int `csv:"-"`
	Year        int `csv:"year"`

	// Population counts at window end
	Herbivores int `csv:"herbivores"`
	Carnivores int `csv:"carnivores"`

	// Events during window
	HerbivoreBirths     int `csv:"herbivore_births"`
	CarnivoreBirths     int `csv:"carnivore_births"`
	HerbivoreDeaths     int `csv:"herbivore_deaths"`
	CarnivoreDeaths     int `csv:"carnivore_deaths"`
	HerbivoresEaten     int `csv:"herbivores_eaten"`
	HerbivoreMigrations int `csv:"herbivore_migrations"`
	CarnivoreMigrations int `csv:"carnivore_migrations"`

	// Weight distribution (sampled at window end)
	HerbWeightMean float64 `csv:"herb_weight_mean"`
	HerbWeightP10  float64 `csv:"herb_weight_p10"`
	HerbWeightP50  float64 `csv:"herb_weight_p50"`
	HerbWeightP90  float64 `csv:"herb_weight_p90"`

	CarnWeightMean float64 `csv:"carn_weight_mean"`
	CarnWeightP10  float64 `csv:"carn_weight_p10"`
	CarnWeightP50  float64 `csv:"carn_weight_p50"`
	CarnWeightP90  float64 `csv:"carn_weight_p90"`

	// Fitness and age means
	HerbFitnessMean float64 `csv:"herb_fitness_mean"`
	CarnFitnessMean float64 `csv:"carn_fitness_mean"`
	HerbAgeMean     float64 `csv:"herb_age_mean"`
	CarnAgeMean     float64 `csv:"carn_age_mean"`

	// Standing fodder across all cells
	TotalFodder float64 `csv:"total_fodder"`
}

// CellStats is one row of the per-cell census written to cells.csv.
type CellStats struct {
	Year       int     `csv:"year"`
	Row        int     `csv:"row"`
	Col        int     `csv:"col"`
	Terrain    string  `csv:"terrain"`
	Fodder     float64 `csv:"fodder"`
	Herbivores int     `csv:"herbivores"`
	Carnivores int     `csv:"carnivores"`
}

// DistributionStats computes the mean and the 10th, 50th and 90th
// percentiles of a sample. Returns zeros for an empty sample.
func DistributionStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s YearStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("year", s.Year),
		slog.Int("herbivores", s.Herbivores),
		slog.Int("carnivores", s.Carnivores),
		slog.Int("herbivore_births", s.HerbivoreBirths),
		slog.Int("carnivore_births", s.CarnivoreBirths),
		slog.Int("herbivore_deaths", s.HerbivoreDeaths),
		slog.Int("carnivore_deaths", s.CarnivoreDeaths),
		slog.Int("herbivores_eaten", s.HerbivoresEaten),
		slog.Int("herbivore_migrations", s.HerbivoreMigrations),
		slog.Int("carnivore_migrations", s.CarnivoreMigrations),
		slog.Float64("herb_weight_mean", s.HerbWeightMean),
		slog.Float64("carn_weight_mean", s.CarnWeightMean),
		slog.Float64("herb_fitness_mean", s.HerbFitnessMean),
		slog.Float64("carn_fitness_mean", s.CarnFitnessMean),
		slog.Float64("total_fodder", s.TotalFodder),
	)
}

// LogStats logs the window stats using slog.
func (s YearStats) LogStats() {
	slog.Info("stats",
		"year", s.Year,
		"herbivores", s.Herbivores,
		"carnivores", s.Carnivores,
		"herbivore_births", s.HerbivoreBirths,
		"carnivore_births", s.CarnivoreBirths,
		"herbivore_deaths", s.HerbivoreDeaths,
		"carnivore_deaths", s.CarnivoreDeaths,
		"herbivores_eaten", s.HerbivoresEaten,
		"herbivore_migrations", s.HerbivoreMigrations,
		"carnivore_migrations", s.CarnivoreMigrations,
		"herb_weight_mean", s.HerbWeightMean,
		"herb_weight_p50", s.HerbWeightP50,
		"carn_weight_mean", s.CarnWeightMean,
		"carn_weight_p50", s.CarnWeightP50,
		"herb_fitness_mean", s.HerbFitnessMean,
		"carn_fitness_mean", s.CarnFitnessMean,
		"herb_age_mean", s.HerbAgeMean,
		"carn_age_mean", s.CarnAgeMean,
		"total_fodder", s.TotalFodder,
	)
}
