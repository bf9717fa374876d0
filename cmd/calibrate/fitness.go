package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/biosim/config"
	"github.com/pthm-cable/biosim/sim"
)

// Evaluator runs headless simulations and computes fitness.
type Evaluator struct {
	params   *ParamVector
	maxYears int
	seeds    []int64
	scenario *sim.Scenario
	base     config.Config // pristine copy, re-applied before every evaluation

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewEvaluator creates a new evaluator. The base config is copied so later
// global mutations cannot leak into it.
func NewEvaluator(params *ParamVector, maxYears int, seeds []int64, scn *sim.Scenario) *Evaluator {
	return &Evaluator{
		params:   params,
		maxYears: maxYears,
		seeds:    seeds,
		scenario: scn,
		base:     *config.Cfg(),
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *Evaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Minimum viable population: if either species stays below this for
// extinctionGraceYears consecutive years, it counts as functionally extinct.
const (
	minViablePop         = 3
	extinctionGraceYears = 10
	warmupYears          = 10 // years before extinction checks start
)

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalYears int       // years before functional extinction (or maxYears if survived)
	herbs         []float64 // yearly herbivore counts
	carns         []float64 // yearly carnivore counts
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative survival years: longer coexistence = lower fitness.
func (fe *Evaluator) Evaluate(x []float64) float64 {
	// Install this vector into the live config. All seeds share the same
	// parameters, and evaluations run sequentially, so a single install
	// before the parallel launch is race-free.
	fresh := fe.base
	fe.params.ApplyToConfig(&fresh, x)
	*config.Cfg() = fresh

	// Run all seeds in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(s)
			results[idx] = seedResult{
				fitness: fe.computeFitness(result),
				quality: fe.computeQuality(result.herbs, result.carns),
			}
		}(i, seed)
	}
	wg.Wait()

	// Aggregate results
	var totalFitness, totalQuality float64
	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless run. Runs until functional
// extinction or maxYears, whichever comes first.
func (fe *Evaluator) runSimulation(seed int64) *runResult {
	result := &runResult{}

	s, err := sim.New(fe.scenario, sim.Options{Seed: seed, Years: fe.maxYears})
	if err != nil {
		// The scenario was validated at startup, so a failure here means
		// the run could not even start. Score it as immediate collapse.
		return result
	}

	herbBelow, carnBelow := 0, 0
	for s.Year() < fe.maxYears {
		herbs, carns := s.Step()
		result.herbs = append(result.herbs, float64(herbs))
		result.carns = append(result.carns, float64(carns))

		// Let the population establish before checking
		if s.Year() < warmupYears {
			continue
		}

		// Hard extinction: either species completely gone
		if herbs == 0 || carns == 0 {
			result.survivalYears = s.Year()
			return result
		}

		// Functional extinction: species below minimum viable population too long
		if herbs < minViablePop {
			herbBelow++
		} else {
			herbBelow = 0
		}
		if carns < minViablePop {
			carnBelow++
		} else {
			carnBelow = 0
		}
		if herbBelow >= extinctionGraceYears || carnBelow >= extinctionGraceYears {
			result.survivalYears = s.Year()
			return result
		}
	}

	// Survived the full run
	result.survivalYears = fe.maxYears
	return result
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalYears × (1.0 + 0.2 × quality))
// Survival dominates; quality adds up to 20% bonus to differentiate
// configs with similar survival.
func (fe *Evaluator) computeFitness(r *runResult) float64 {
	survival := float64(r.survivalYears)
	quality := fe.computeQuality(r.herbs, r.carns)
	return -(survival * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightRatio     = 0.35
	qualityWeightStability = 0.40
	qualityWeightDrift     = 0.25

	qualityWarmupYears = 20
	qualityMinPop      = 3
	ratioTarget        = 8.0 // herbivores per carnivore in a healthy system
)

// computeQuality computes ecosystem quality ∈ [0, 1] from yearly counts.
func (fe *Evaluator) computeQuality(herbs, carns []float64) float64 {
	if len(herbs) <= qualityWarmupYears {
		return 0
	}

	// Collect valid years (past warmup, both species present)
	var validHerbs, validCarns []float64
	var ratioSum float64
	for i := qualityWarmupYears; i < len(herbs); i++ {
		if herbs[i] < qualityMinPop || carns[i] < qualityMinPop {
			continue
		}
		validHerbs = append(validHerbs, herbs[i])
		validCarns = append(validCarns, carns[i])

		// 1. Population ratio score
		logErr := math.Log(herbs[i] / carns[i] / ratioTarget)
		ratioSum += math.Exp(-logErr * logErr)
	}

	// No valid years → zero quality
	if len(validHerbs) == 0 {
		return 0
	}

	// 1. Population ratio (averaged per valid year)
	ratioScore := ratioSum / float64(len(validHerbs))

	// 2. Population stability (CV across all valid years)
	stabilityScore := 0.0
	if len(validHerbs) >= 2 {
		cvHerb := cv(validHerbs)
		cvCarn := cv(validCarns)
		stabilityScore = math.Exp(-(cvHerb*cvHerb + cvCarn*cvCarn))
	}

	// 3. Long-run drift: compare mean population of the first and second
	// half of the valid years; a slow collapse or blow-up scores low.
	driftScore := 0.0
	if half := len(validHerbs) / 2; half >= 1 {
		hDrift := math.Log(mean(validHerbs[half:]) / mean(validHerbs[:half]))
		cDrift := math.Log(mean(validCarns[half:]) / mean(validCarns[:half]))
		driftScore = math.Exp(-(hDrift*hDrift + cDrift*cDrift))
	}

	quality := qualityWeightRatio*ratioScore +
		qualityWeightStability*stabilityScore +
		qualityWeightDrift*driftScore

	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	m := mean(values)
	if m == 0 {
		return 0
	}
	var sqDiff float64
	for _, v := range values {
		d := v - m
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff/n) / m
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
