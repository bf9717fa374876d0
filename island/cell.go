package island

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/pthm-cable/biosim/config"
)

// LandscapeKind identifies the terrain of a cell.
type LandscapeKind uint8

const (
	Jungle LandscapeKind = iota
	Savannah
	Desert
	Mountain
	Ocean
	numLandscapeKinds
)

// ParseLandscape maps a map character to its terrain kind.
func ParseLandscape(code byte) (LandscapeKind, error) {
	switch code {
	case 'J':
		return Jungle, nil
	case 'S':
		return Savannah, nil
	case 'D':
		return Desert, nil
	case 'M':
		return Mountain, nil
	case 'O':
		return Ocean, nil
	}
	return 0, fmt.Errorf("unknown landscape code %q", string(code))
}

func (k LandscapeKind) String() string {
	switch k {
	case Jungle:
		return "jungle"
	case Savannah:
		return "savannah"
	case Desert:
		return "desert"
	case Mountain:
		return "mountain"
	case Ocean:
		return "ocean"
	}
	return "unknown"
}

// Code returns the single-character map code for the kind.
func (k LandscapeKind) Code() byte {
	switch k {
	case Jungle:
		return 'J'
	case Savannah:
		return 'S'
	case Desert:
		return 'D'
	case Mountain:
		return 'M'
	}
	return 'O'
}

// Habitable reports whether organisms may reside in this terrain.
// Mountain and ocean never host animals and hold no fodder.
func (k LandscapeKind) Habitable() bool {
	return k == Jungle || k == Savannah || k == Desert
}

// Cell is one habitat square: a terrain kind, its fodder store, the
// organisms resident this year, and the staging lists that collect next
// year's residents during the migration phase.
type Cell struct {
	kind   LandscapeKind
	fodder float64

	herbivores []*Organism
	carnivores []*Organism

	stagedHerbivores []*Organism
	stagedCarnivores []*Organism
}

// newCell builds a cell of the given kind. Habitable cells start at their
// terrain's fodder capacity; mountain and ocean always hold zero.
func newCell(kind LandscapeKind, lp *config.LandscapeParams) *Cell {
	c := &Cell{kind: kind}
	if kind.Habitable() {
		c.fodder = lp.FMax
	}
	return c
}

// Kind returns the cell's terrain kind.
func (c *Cell) Kind() LandscapeKind { return c.kind }

// Fodder returns the fodder currently available in the cell.
func (c *Cell) Fodder() float64 { return c.fodder }

// add places an organism into the active population, outside the annual
// cycle (initial seeding).
func (c *Cell) add(o *Organism) {
	switch o.species {
	case Herbivore:
		c.herbivores = append(c.herbivores, o)
	case Carnivore:
		c.carnivores = append(c.carnivores, o)
	}
}

// regenerateFodder applies the annual regrowth rule: jungle resets to
// capacity, savannah grows toward capacity by alpha times the deficit, and
// the remaining kinds hold no regrowing fodder.
func (c *Cell) regenerateFodder(lp *config.LandscapeParams) {
	switch c.kind {
	case Jungle:
		c.fodder = lp.FMax
	case Savannah:
		c.fodder += lp.Alpha * (lp.FMax - c.fodder)
	}
}

// sortByFitness orders both resident lists fitness-descending. The sort is
// stable, so equal-fitness organisms keep their relative order. Grazing
// priority and the weakest-first predation scan both derive from this one
// ordering.
func (c *Cell) sortByFitness() {
	sort.SliceStable(c.herbivores, func(i, j int) bool {
		return c.herbivores[i].phi > c.herbivores[j].phi
	})
	sort.SliceStable(c.carnivores, func(i, j int) bool {
		return c.carnivores[i].phi > c.carnivores[j].phi
	})
}

// feedHerbivores lets residents graze in fitness order against the
// depleting fodder pool: the fittest eats first, the pool shrinks for
// everyone after it.
func (c *Cell) feedHerbivores(p *config.SpeciesParams) {
	for _, h := range c.herbivores {
		if c.fodder <= 0 {
			break
		}
		c.fodder -= h.eat(c.fodder, p)
	}
}

// feedCarnivores runs the predation pass: carnivores hunt in fitness order,
// each scanning the prey list weakest-first until its annual appetite is
// met. A successful attack always removes the prey, even when the carnivore
// is too full to consume the whole carcass; satiation only caps the weight
// gained. Returns the number of herbivores eaten.
func (c *Cell) feedCarnivores(rng *rand.Rand, p *config.SpeciesParams) int {
	eaten := 0
	for _, carn := range c.carnivores {
		remaining := p.F
		herbs := c.herbivores
		// The resident list is fitness-descending, so walk it backwards to
		// target the least fit prey first. Removing at index i leaves the
		// not-yet-visited prefix untouched.
		for i := len(herbs) - 1; i >= 0 && remaining > 0; i-- {
			prey := herbs[i]
			if !(rng.Float64() < carn.killProbability(prey, p)) {
				continue
			}
			mass := math.Min(prey.weight, remaining)
			carn.gainFromPrey(mass, p)
			remaining -= mass
			last := len(herbs) - 1
			copy(herbs[i:], herbs[i+1:])
			herbs[last] = nil
			herbs = herbs[:last]
			eaten++
		}
		c.herbivores = herbs
	}
	return eaten
}

// reproduce runs the annual reproduction pass for both species. Every
// decision is evaluated against the population size at the start of the
// phase; newborns join the cell afterwards and never influence their
// parents' generation.
func (c *Cell) reproduce(rng *rand.Rand, herb, carn *config.SpeciesParams) (births int) {
	var n int
	c.herbivores, n = reproduceSpecies(c.herbivores, rng, herb)
	births += n
	c.carnivores, n = reproduceSpecies(c.carnivores, rng, carn)
	births += n
	return births
}

// reproduceSpecies evaluates each resident against the fixed
// pre-reproduction count and appends the newborns at the end.
func reproduceSpecies(residents []*Organism, rng *rand.Rand, p *config.SpeciesParams) ([]*Organism, int) {
	n := len(residents)
	if n == 0 {
		return residents, 0
	}
	var newborns []*Organism
	for _, parent := range residents {
		if child := parent.bear(n, rng, p); child != nil {
			newborns = append(newborns, child)
		}
	}
	return append(residents, newborns...), len(newborns)
}

// propensityExpCap bounds the exponent fed to math.Exp, which overflows to
// +Inf past ~709.8. Saturated cells all score exp(propensityExpCap), and a
// 4-neighbor total always stays finite.
const propensityExpCap = 700

// migrationPropensity scores how attractive this cell is to an arriving
// organism of the given species: exponential in the relative fodder left
// per (current resident + 1), and zero for uninhabitable terrain. For
// carnivores the "fodder" is the total herbivore weight present. The score
// saturates rather than overflow when a cell is extremely attractive.
func (c *Cell) migrationPropensity(sp Species, herb, carn *config.SpeciesParams) float64 {
	if !c.kind.Habitable() {
		return 0
	}
	switch sp {
	case Herbivore:
		rel := c.fodder / ((float64(len(c.herbivores)) + 1) * herb.F)
		return math.Exp(math.Min(herb.Lambda*rel, propensityExpCap))
	case Carnivore:
		var preyMass float64
		for _, h := range c.herbivores {
			preyMass += h.weight
		}
		rel := preyMass / ((float64(len(c.carnivores)) + 1) * carn.F)
		return math.Exp(math.Min(carn.Lambda*rel, propensityExpCap))
	}
	return 0
}

// acceptMigrant places an organism into next year's population. Routing an
// organism onto uninhabitable terrain is a bug in the migration logic, not
// a recoverable condition.
func (c *Cell) acceptMigrant(o *Organism) {
	if !c.kind.Habitable() {
		panic(fmt.Sprintf("island: organism staged into uninhabitable %s cell", c.kind))
	}
	switch o.species {
	case Herbivore:
		c.stagedHerbivores = append(c.stagedHerbivores, o)
	case Carnivore:
		c.stagedCarnivores = append(c.stagedCarnivores, o)
	}
}

// clearActive empties the resident lists once every resident has been
// staged somewhere, keeping the backing arrays for reuse.
func (c *Cell) clearActive() {
	c.herbivores = c.herbivores[:0]
	c.carnivores = c.carnivores[:0]
}

// commitYear promotes the staged populations to active. The previous
// year's (emptied) lists become the next staging area, so the two buffers
// alternate roles without reallocating.
func (c *Cell) commitYear() {
	c.herbivores, c.stagedHerbivores = c.stagedHerbivores, c.herbivores
	c.carnivores, c.stagedCarnivores = c.stagedCarnivores, c.carnivores
}
