// Package island implements the annual-cycle population engine: two
// interacting species with stochastic life cycles, distributed over a grid
// of fodder-bearing habitat cells. The whole grid advances one year at a
// time; every run is deterministic under a fixed random seed.
package island

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/biosim/config"
)

// Species identifies the trophic role of an organism.
type Species uint8

const (
	Herbivore Species = iota
	Carnivore
)

func (s Species) String() string {
	switch s {
	case Herbivore:
		return "herbivore"
	case Carnivore:
		return "carnivore"
	}
	return "unknown"
}

// ParseSpecies maps a species name (as written in scenarios) to its value.
func ParseSpecies(name string) (Species, error) {
	switch strings.ToLower(name) {
	case "herbivore":
		return Herbivore, nil
	case "carnivore":
		return Carnivore, nil
	}
	return 0, fmt.Errorf("unknown species %q", name)
}

// Organism is one individual: a species tag plus mutable weight and age.
// Every organism is exclusively owned by the cell holding it. The fitness
// value is kept current by each mutating operation, so reads never see a
// stale score.
type Organism struct {
	species Species
	age     int
	weight  float64
	phi     float64
}

// newOrganism builds an organism with explicit age and weight, as used when
// seeding an island with a starting population.
func newOrganism(sp Species, age int, weight float64, p *config.SpeciesParams) *Organism {
	o := &Organism{species: sp, age: age, weight: weight}
	o.refreshFitness(p)
	return o
}

// distuvSource adapts the engine's *rand.Rand to the x/exp/rand.Source
// interface that distuv draws from: the two types agree on Uint64 but
// disagree on the Seed parameter type.
type distuvSource struct{ *rand.Rand }

func (s distuvSource) Seed(seed uint64) { s.Rand.Seed(int64(seed)) }

// newborn creates an age-zero organism with a birth weight drawn from the
// species distribution. Negative samples are clamped to zero; a zero-weight
// newborn simply has zero fitness.
func newborn(sp Species, rng *rand.Rand, p *config.SpeciesParams) *Organism {
	dist := distuv.Normal{Mu: p.WBirth, Sigma: p.SigmaBirth, Src: distuvSource{rng}}
	w := dist.Rand()
	if w < 0 {
		w = 0
	}
	return newOrganism(sp, 0, w, p)
}

// Species returns the organism's trophic role.
func (o *Organism) Species() Species { return o.species }

// Age returns the organism's age in years.
func (o *Organism) Age() int { return o.age }

// Weight returns the organism's current weight.
func (o *Organism) Weight() float64 { return o.weight }

// Fitness returns the current fitness score in [0, 1].
func (o *Organism) Fitness() float64 { return o.phi }

// refreshFitness recomputes the fitness score: the product of a falling
// age sigmoid and a rising weight sigmoid, or zero when the weight is not
// positive. Both factors lie in (0, 1), so the product always lands in
// [0, 1].
func (o *Organism) refreshFitness(p *config.SpeciesParams) {
	if o.weight <= 0 {
		o.phi = 0
		return
	}
	qAge := 1.0 / (1.0 + math.Exp(p.PhiAge*(float64(o.age)-p.AHalf)))
	qWeight := 1.0 / (1.0 + math.Exp(-p.PhiWeight*(o.weight-p.WHalf)))
	o.phi = qAge * qWeight
}

// eat grazes up to the annual appetite from the available fodder and
// converts it to weight. Returns the amount actually eaten.
func (o *Organism) eat(available float64, p *config.SpeciesParams) float64 {
	eaten := math.Min(p.F, available)
	if eaten <= 0 {
		return 0
	}
	o.weight += p.Beta * eaten
	o.refreshFitness(p)
	return eaten
}

// gainFromPrey converts consumed prey mass into carnivore weight.
func (o *Organism) gainFromPrey(mass float64, p *config.SpeciesParams) {
	o.weight += p.Beta * mass
	o.refreshFitness(p)
}

// killProbability returns the chance this carnivore kills the given prey:
// zero without a fitness advantage, certain once the advantage reaches
// delta_phi_max, linear in between. A delta_phi_max of zero makes any
// positive advantage a certain kill.
func (o *Organism) killProbability(prey *Organism, p *config.SpeciesParams) float64 {
	diff := o.phi - prey.phi
	switch {
	case diff <= 0:
		return 0
	case diff < p.DeltaPhiMax:
		return diff / p.DeltaPhiMax
	default:
		return 1
	}
}

// reproductionProbability returns the chance of bearing a newborn this
// year, given n same-species residents in the cell at the start of the
// reproduction phase. Underweight parents never reproduce, and a lone
// resident has no mate, so n = 1 always yields zero.
func (o *Organism) reproductionProbability(n int, p *config.SpeciesParams) float64 {
	if o.weight < p.Zeta*(p.WBirth+p.SigmaBirth) {
		return 0
	}
	return math.Min(1, p.Gamma*o.phi*float64(n-1))
}

// bear draws this parent's reproduction decision against the
// pre-reproduction count n. On success the newborn is returned and the
// parent pays xi times the newborn's weight; the parent's weight may go
// negative, which only zeroes its fitness.
func (o *Organism) bear(n int, rng *rand.Rand, p *config.SpeciesParams) *Organism {
	if !(rng.Float64() < o.reproductionProbability(n, p)) {
		return nil
	}
	child := newborn(o.species, rng, p)
	o.weight -= p.Xi * child.weight
	o.refreshFitness(p)
	return child
}

// wantsToMove draws the annual migration decision, probability mu * fitness.
func (o *Organism) wantsToMove(rng *rand.Rand, p *config.SpeciesParams) bool {
	return rng.Float64() < p.Mu*o.phi
}

// dies draws the annual death decision, probability omega * (1 - fitness).
// The draw is strict, so a zero probability never fires and a probability
// of one always does, regardless of seed.
func (o *Organism) dies(rng *rand.Rand, p *config.SpeciesParams) bool {
	return rng.Float64() < p.Omega*(1-o.phi)
}

// ageOneYear advances the organism's age by one year.
func (o *Organism) ageOneYear(p *config.SpeciesParams) {
	o.age++
	o.refreshFitness(p)
}

// loseWeight applies the annual metabolic weight loss.
func (o *Organism) loseWeight(p *config.SpeciesParams) {
	o.weight -= p.Eta * o.weight
	o.refreshFitness(p)
}
