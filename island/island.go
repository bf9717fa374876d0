package island

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/pthm-cable/biosim/config"
)

// Island is the rectangular grid of cells and the driver of the annual
// cycle. Every border cell is ocean, so no organism can ever reach the rim.
type Island struct {
	rows, cols int
	cells      [][]*Cell
	events     YearEvents
}

// YearEvents counts what happened during the most recent AdvanceYear call.
type YearEvents struct {
	HerbivoreBirths     int
	CarnivoreBirths     int
	HerbivoreDeaths     int
	CarnivoreDeaths     int
	HerbivoresEaten     int
	HerbivoreMigrations int
	CarnivoreMigrations int
}

// CellCensus is one row of the per-cell population breakdown.
type CellCensus struct {
	Row        int
	Col        int
	Kind       LandscapeKind
	Fodder     float64
	Herbivores int
	Carnivores int
}

// PopulationEntry seeds organisms into one cell.
type PopulationEntry struct {
	Row       int
	Col       int
	Organisms []OrganismSpec
}

// OrganismSpec describes one organism to create.
type OrganismSpec struct {
	Species Species
	Age     int
	Weight  float64
}

// yearParams is the parameter snapshot one annual cycle runs against. It is
// copied out of the global configuration when the cycle starts, so
// overrides applied between years never drift into a running cycle.
type yearParams struct {
	herb config.SpeciesParams
	carn config.SpeciesParams
	land [numLandscapeKinds]config.LandscapeParams
}

// snapshotParams reads the current configuration by value.
func snapshotParams() yearParams {
	cfg := config.Cfg()
	yp := yearParams{
		herb: cfg.Species.Herbivore,
		carn: cfg.Species.Carnivore,
	}
	for k := Jungle; k < numLandscapeKinds; k++ {
		yp.land[k] = landscapeParams(cfg, k)
	}
	return yp
}

// landscapeParams selects the parameter table for a terrain kind.
func landscapeParams(cfg *config.Config, k LandscapeKind) config.LandscapeParams {
	switch k {
	case Jungle:
		return cfg.Landscape.Jungle
	case Savannah:
		return cfg.Landscape.Savannah
	case Desert:
		return cfg.Landscape.Desert
	case Mountain:
		return cfg.Landscape.Mountain
	default:
		return cfg.Landscape.Ocean
	}
}

// FromMapString parses a rectangular landscape map into an island. One
// character per cell (J jungle, S savannah, D desert, M mountain, O ocean),
// rows separated by line breaks. All rows must be equally long and every
// border cell must be ocean; any violation fails construction and no
// partial island is produced.
func FromMapString(mapText string) (*Island, error) {
	var rows []string
	for _, line := range strings.Split(strings.TrimSpace(mapText), "\n") {
		rows = append(rows, strings.TrimSpace(line))
	}
	if len(rows) == 0 || rows[0] == "" {
		return nil, errors.New("empty map")
	}

	cols := len(rows[0])
	kinds := make([][]LandscapeKind, len(rows))
	for r, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("map row %d has %d cells, want %d", r, len(row), cols)
		}
		kinds[r] = make([]LandscapeKind, cols)
		for c := 0; c < cols; c++ {
			kind, err := ParseLandscape(row[c])
			if err != nil {
				return nil, fmt.Errorf("map row %d col %d: %w", r, c, err)
			}
			kinds[r][c] = kind
		}
	}

	for r := 0; r < len(rows); r++ {
		for c := 0; c < cols; c++ {
			onBorder := r == 0 || r == len(rows)-1 || c == 0 || c == cols-1
			if onBorder && kinds[r][c] != Ocean {
				return nil, fmt.Errorf("map border must be ocean, found %s at row %d col %d", kinds[r][c], r, c)
			}
		}
	}

	cfg := config.Cfg()
	isl := &Island{rows: len(rows), cols: cols, cells: make([][]*Cell, len(rows))}
	for r := range isl.cells {
		isl.cells[r] = make([]*Cell, cols)
		for c := 0; c < cols; c++ {
			lp := landscapeParams(cfg, kinds[r][c])
			isl.cells[r][c] = newCell(kinds[r][c], &lp)
		}
	}
	return isl, nil
}

// Rows returns the number of grid rows.
func (isl *Island) Rows() int { return isl.rows }

// Cols returns the number of grid columns.
func (isl *Island) Cols() int { return isl.cols }

// Populate inserts organisms into their cells. The whole call is validated
// up front: every location must be inside the grid and habitable, every
// age non-negative, every weight non-negative, every species known. On any
// violation nothing is inserted and the island is unchanged.
func (isl *Island) Populate(entries []PopulationEntry) error {
	for _, e := range entries {
		if e.Row < 0 || e.Row >= isl.rows || e.Col < 0 || e.Col >= isl.cols {
			return fmt.Errorf("location (%d, %d) is outside the %dx%d grid", e.Row, e.Col, isl.rows, isl.cols)
		}
		cell := isl.cells[e.Row][e.Col]
		if !cell.kind.Habitable() {
			return fmt.Errorf("cannot place organisms on %s at (%d, %d)", cell.kind, e.Row, e.Col)
		}
		for i, spec := range e.Organisms {
			if spec.Species != Herbivore && spec.Species != Carnivore {
				return fmt.Errorf("organism %d at (%d, %d): unknown species", i, e.Row, e.Col)
			}
			if spec.Age < 0 {
				return fmt.Errorf("organism %d at (%d, %d): age %d is negative", i, e.Row, e.Col, spec.Age)
			}
			if spec.Weight < 0 {
				return fmt.Errorf("organism %d at (%d, %d): weight %v is negative", i, e.Row, e.Col, spec.Weight)
			}
		}
	}

	cfg := config.Cfg()
	for _, e := range entries {
		cell := isl.cells[e.Row][e.Col]
		for _, spec := range e.Organisms {
			p := cfg.Species.Herbivore
			if spec.Species == Carnivore {
				p = cfg.Species.Carnivore
			}
			cell.add(newOrganism(spec.Species, spec.Age, spec.Weight, &p))
		}
	}
	return nil
}

// AdvanceYear runs one full annual cycle across the whole grid and returns
// the surviving (herbivore, carnivore) totals. Phase order, each applied to
// every cell before the next begins: fodder regeneration, fitness sort,
// herbivore feeding, carnivore feeding, reproduction, migration, commit,
// aging, weight loss, death. Migration computes its attractiveness scores
// for the entire grid before any organism moves, so one organism's move
// can never bias another's destination this year.
func (isl *Island) AdvanceYear(rng *rand.Rand) (int, int) {
	yp := snapshotParams()
	isl.events = YearEvents{}

	// Fitness values may have been computed against an older parameter
	// table; align every organism with this year's snapshot first.
	isl.refreshFitness(&yp)

	isl.forEachCell(func(c *Cell) {
		c.regenerateFodder(&yp.land[c.kind])
	})
	isl.forEachCell((*Cell).sortByFitness)
	isl.forEachCell(func(c *Cell) {
		c.feedHerbivores(&yp.herb)
	})
	isl.forEachCell(func(c *Cell) {
		isl.events.HerbivoresEaten += c.feedCarnivores(rng, &yp.carn)
	})
	isl.forEachCell(func(c *Cell) {
		herbsBefore := len(c.herbivores)
		births := c.reproduce(rng, &yp.herb, &yp.carn)
		herbBirths := len(c.herbivores) - herbsBefore
		isl.events.HerbivoreBirths += herbBirths
		isl.events.CarnivoreBirths += births - herbBirths
	})
	isl.migrate(rng, &yp)
	isl.forEachCell((*Cell).commitYear)
	isl.forEachCell(func(c *Cell) {
		for _, o := range c.herbivores {
			o.ageOneYear(&yp.herb)
		}
		for _, o := range c.carnivores {
			o.ageOneYear(&yp.carn)
		}
	})
	isl.forEachCell(func(c *Cell) {
		for _, o := range c.herbivores {
			o.loseWeight(&yp.herb)
		}
		for _, o := range c.carnivores {
			o.loseWeight(&yp.carn)
		}
	})
	isl.forEachCell(func(c *Cell) {
		var deaths int
		c.herbivores, deaths = cullSpecies(c.herbivores, rng, &yp.herb)
		isl.events.HerbivoreDeaths += deaths
		c.carnivores, deaths = cullSpecies(c.carnivores, rng, &yp.carn)
		isl.events.CarnivoreDeaths += deaths
	})

	return isl.TotalPopulation()
}

// forEachCell visits every cell in row-major order. All phases use this
// single traversal order, which keeps runs reproducible for a given seed.
func (isl *Island) forEachCell(fn func(*Cell)) {
	for r := 0; r < isl.rows; r++ {
		for c := 0; c < isl.cols; c++ {
			fn(isl.cells[r][c])
		}
	}
}

// refreshFitness re-evaluates every organism against the year's parameters.
func (isl *Island) refreshFitness(yp *yearParams) {
	isl.forEachCell(func(c *Cell) {
		for _, o := range c.herbivores {
			o.refreshFitness(&yp.herb)
		}
		for _, o := range c.carnivores {
			o.refreshFitness(&yp.carn)
		}
	})
}

// cullSpecies applies the annual death draw to each resident and filters
// the list in place, preserving order.
func cullSpecies(residents []*Organism, rng *rand.Rand, p *config.SpeciesParams) ([]*Organism, int) {
	alive := residents[:0]
	for _, o := range residents {
		if o.dies(rng, p) {
			continue
		}
		alive = append(alive, o)
	}
	for i := len(alive); i < len(residents); i++ {
		residents[i] = nil
	}
	return alive, len(residents) - len(alive)
}

// neighborOffsets is the fixed visit order for the 4-connected
// neighborhood: south, north, east, west.
var neighborOffsets = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// migrate runs the two-step migration phase. Step one computes every
// cell's attractiveness for both species from the pre-migration state of
// the whole grid; step two lets each organism decide to move or stay and
// stages it in its destination. Because no staged organism is visible to
// the scores, migration behaves as one grid-wide transaction with no
// order-dependent bias.
func (isl *Island) migrate(rng *rand.Rand, yp *yearParams) {
	herbProp := make([][]float64, isl.rows)
	carnProp := make([][]float64, isl.rows)
	for r := 0; r < isl.rows; r++ {
		herbProp[r] = make([]float64, isl.cols)
		carnProp[r] = make([]float64, isl.cols)
		for c := 0; c < isl.cols; c++ {
			cell := isl.cells[r][c]
			herbProp[r][c] = cell.migrationPropensity(Herbivore, &yp.herb, &yp.carn)
			carnProp[r][c] = cell.migrationPropensity(Carnivore, &yp.herb, &yp.carn)
		}
	}

	for r := 0; r < isl.rows; r++ {
		for c := 0; c < isl.cols; c++ {
			cell := isl.cells[r][c]
			for _, o := range cell.herbivores {
				isl.placeOrganism(o, r, c, herbProp, rng, &yp.herb)
			}
			for _, o := range cell.carnivores {
				isl.placeOrganism(o, r, c, carnProp, rng, &yp.carn)
			}
			cell.clearActive()
		}
	}
}

// placeOrganism draws one organism's migration decision and stages it at
// its destination. Staying, declining to move, and having nowhere habitable
// to go all land the organism back in its own cell's staging area.
func (isl *Island) placeOrganism(o *Organism, row, col int, prop [][]float64, rng *rand.Rand, p *config.SpeciesParams) {
	home := isl.cells[row][col]
	if !o.wantsToMove(rng, p) {
		home.acceptMigrant(o)
		return
	}
	dest := isl.chooseNeighbor(row, col, prop, rng)
	if dest == nil {
		home.acceptMigrant(o)
		return
	}
	dest.acceptMigrant(o)
	switch o.species {
	case Herbivore:
		isl.events.HerbivoreMigrations++
	case Carnivore:
		isl.events.CarnivoreMigrations++
	}
}

// chooseNeighbor samples a destination among the existing neighbors of
// (row, col), weighted by the snapshot propensities. Out-of-grid positions
// are excluded rather than treated as zero-weight entries. Returns nil when
// the neighborhood holds no probability mass at all (every existing
// neighbor uninhabitable), which callers treat as "no migration".
func (isl *Island) chooseNeighbor(row, col int, prop [][]float64, rng *rand.Rand) *Cell {
	var cells [4]*Cell
	var weights [4]float64
	n := 0
	last := -1
	total := 0.0
	for _, d := range neighborOffsets {
		r, c := row+d[0], col+d[1]
		if r < 0 || r >= isl.rows || c < 0 || c >= isl.cols {
			continue
		}
		w := prop[r][c]
		cells[n] = isl.cells[r][c]
		weights[n] = w
		if w > 0 {
			last = n
			total += w
		}
		n++
	}
	if last < 0 {
		return nil
	}

	draw := rng.Float64() * total
	acc := 0.0
	for i := 0; i < n; i++ {
		if weights[i] <= 0 {
			continue
		}
		acc += weights[i]
		if draw < acc {
			return cells[i]
		}
	}
	// Rounding or a saturated total can carry the draw past every bucket;
	// the fall-through must still land on a weighted neighbor, never on a
	// zero-weight cell.
	return cells[last]
}

// TotalPopulation returns the grid-wide (herbivore, carnivore) counts.
func (isl *Island) TotalPopulation() (int, int) {
	herbs, carns := 0, 0
	isl.forEachCell(func(c *Cell) {
		herbs += len(c.herbivores)
		carns += len(c.carnivores)
	})
	return herbs, carns
}

// PopulationPerCell returns the census for every cell in row-major order.
func (isl *Island) PopulationPerCell() []CellCensus {
	out := make([]CellCensus, 0, isl.rows*isl.cols)
	for r := 0; r < isl.rows; r++ {
		for c := 0; c < isl.cols; c++ {
			cell := isl.cells[r][c]
			out = append(out, CellCensus{
				Row:        r,
				Col:        c,
				Kind:       cell.kind,
				Fodder:     cell.fodder,
				Herbivores: len(cell.herbivores),
				Carnivores: len(cell.carnivores),
			})
		}
	}
	return out
}

// Population captures every resident as a population entry, one spec per
// organism, in row-major cell order with herbivores before carnivores.
// The result is valid Populate input for an island with the same map.
func (isl *Island) Population() []PopulationEntry {
	var out []PopulationEntry
	for r := 0; r < isl.rows; r++ {
		for c := 0; c < isl.cols; c++ {
			cell := isl.cells[r][c]
			n := len(cell.herbivores) + len(cell.carnivores)
			if n == 0 {
				continue
			}
			entry := PopulationEntry{Row: r, Col: c, Organisms: make([]OrganismSpec, 0, n)}
			for _, o := range cell.herbivores {
				entry.Organisms = append(entry.Organisms, OrganismSpec{Species: Herbivore, Age: o.Age(), Weight: o.Weight()})
			}
			for _, o := range cell.carnivores {
				entry.Organisms = append(entry.Organisms, OrganismSpec{Species: Carnivore, Age: o.Age(), Weight: o.Weight()})
			}
			out = append(out, entry)
		}
	}
	return out
}

// EachOrganism visits every resident organism in row-major cell order,
// herbivores before carnivores within a cell.
func (isl *Island) EachOrganism(fn func(*Organism)) {
	isl.forEachCell(func(c *Cell) {
		for _, o := range c.herbivores {
			fn(o)
		}
		for _, o := range c.carnivores {
			fn(o)
		}
	})
}

// YearEvents returns the event counters from the most recent AdvanceYear.
func (isl *Island) YearEvents() YearEvents { return isl.events }
