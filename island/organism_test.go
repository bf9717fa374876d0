package island

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/biosim/config"
)

// resetConfig reloads the embedded defaults. Tests mutate the global
// parameter table, so every test starts from a clean slate.
func resetConfig() {
	config.MustInit("")
}

func herbParams() *config.SpeciesParams {
	p := config.Cfg().Species.Herbivore
	return &p
}

func carnParams() *config.SpeciesParams {
	p := config.Cfg().Species.Carnivore
	return &p
}

// ---------- fitness ----------

func TestRefreshFitness_AlwaysInUnitInterval(t *testing.T) {
	resetConfig()
	p := herbParams()

	for age := 0; age <= 200; age += 5 {
		for _, w := range []float64{-10, 0, 0.001, 1, 8, 50, 1000} {
			o := newOrganism(Herbivore, age, w, p)
			if o.Fitness() < 0 || o.Fitness() > 1 {
				t.Fatalf("fitness %v out of [0,1] for age=%d weight=%v", o.Fitness(), age, w)
			}
		}
	}
}

func TestRefreshFitness_HalfPointIsQuarter(t *testing.T) {
	resetConfig()
	p := herbParams()

	// At age = a_half and weight = w_half both sigmoids sit at 0.5.
	o := newOrganism(Herbivore, int(p.AHalf), p.WHalf, p)
	if math.Abs(o.Fitness()-0.25) > 1e-12 {
		t.Errorf("expected fitness 0.25 at both half points, got %v", o.Fitness())
	}
}

func TestRefreshFitness_NonPositiveWeightIsZero(t *testing.T) {
	resetConfig()
	p := herbParams()

	for _, w := range []float64{0, -3} {
		o := newOrganism(Herbivore, 5, w, p)
		if o.Fitness() != 0 {
			t.Errorf("expected fitness 0 at weight %v, got %v", w, o.Fitness())
		}
	}
}

func TestRefreshFitness_MonotoneInAgeAndWeight(t *testing.T) {
	resetConfig()
	p := herbParams()

	light := newOrganism(Herbivore, 5, 5, p)
	heavy := newOrganism(Herbivore, 5, 50, p)
	if heavy.Fitness() <= light.Fitness() {
		t.Errorf("heavier organism should be fitter: %v <= %v", heavy.Fitness(), light.Fitness())
	}

	young := newOrganism(Herbivore, 1, 20, p)
	old := newOrganism(Herbivore, 80, 20, p)
	if old.Fitness() >= young.Fitness() {
		t.Errorf("older organism should be less fit: %v >= %v", old.Fitness(), young.Fitness())
	}
}

// ---------- feeding ----------

func TestEat_CapsAtAppetite(t *testing.T) {
	resetConfig()
	p := herbParams() // F=10, beta=0.9

	tests := []struct {
		name       string
		available  float64
		wantEaten  float64
		wantWeight float64
	}{
		{"plenty", 25, 10, 29},
		{"scarce", 4, 4, 23.6},
		{"none", 0, 0, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrganism(Herbivore, 2, 20, p)
			eaten := o.eat(tt.available, p)
			if math.Abs(eaten-tt.wantEaten) > 1e-9 {
				t.Errorf("eaten = %v, want %v", eaten, tt.wantEaten)
			}
			if math.Abs(o.Weight()-tt.wantWeight) > 1e-9 {
				t.Errorf("weight = %v, want %v", o.Weight(), tt.wantWeight)
			}
		})
	}
}

func TestKillProbability_AdvantageBands(t *testing.T) {
	resetConfig()

	tests := []struct {
		name        string
		carnPhi     float64
		preyPhi     float64
		deltaPhiMax float64
		want        float64
	}{
		{"prey fitter", 0.6, 0.8, 10, 0},
		{"equal fitness", 0.5, 0.5, 10, 0},
		{"linear band", 0.8, 0.3, 10, 0.05},
		{"advantage at cap", 0.9, 0.3, 0.2, 1},
		{"zero cap any advantage kills", 0.50001, 0.5, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := carnParams()
			p.DeltaPhiMax = tt.deltaPhiMax
			carn := &Organism{species: Carnivore, weight: 20, phi: tt.carnPhi}
			prey := &Organism{species: Herbivore, weight: 10, phi: tt.preyPhi}
			if got := carn.killProbability(prey, p); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("killProbability = %v, want %v", got, tt.want)
			}
		})
	}
}

// ---------- reproduction ----------

func TestReproductionProbability_UnderweightParentNeverBreeds(t *testing.T) {
	resetConfig()
	p := herbParams()

	// Gate sits at zeta*(w_birth+sigma_birth) = 33.25 for defaults.
	o := newOrganism(Herbivore, 2, 33.0, p)
	if got := o.reproductionProbability(50, p); got != 0 {
		t.Errorf("expected 0 below the weight gate, got %v", got)
	}
}

func TestReproductionProbability_LoneResidentIsZero(t *testing.T) {
	resetConfig()
	p := herbParams()

	o := newOrganism(Herbivore, 2, 100, p)
	if got := o.reproductionProbability(1, p); got != 0 {
		t.Errorf("expected 0 with a single resident, got %v", got)
	}
}

func TestReproductionProbability_ClampsToOne(t *testing.T) {
	resetConfig()
	p := herbParams()

	o := newOrganism(Herbivore, 0, 40, p)
	if got := o.reproductionProbability(100, p); got != 1 {
		t.Errorf("expected clamp to exactly 1, got %v", got)
	}
}

func TestReproductionProbability_MidBand(t *testing.T) {
	resetConfig()
	p := herbParams()

	o := newOrganism(Herbivore, 0, 40, p)
	got := o.reproductionProbability(3, p)
	want := p.Gamma * o.Fitness() * 2
	if got <= 0 || got >= 1 {
		t.Fatalf("expected mid-band probability, got %v", got)
	}
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("probability = %v, want %v", got, want)
	}
}

func TestBear_ChildCostsParentWeight(t *testing.T) {
	resetConfig()
	p := herbParams()
	p.SigmaBirth = 0 // deterministic birth weight
	p.Gamma = 10     // probability clamps to 1

	rng := rand.New(rand.NewSource(1))
	parent := newOrganism(Herbivore, 0, 100, p)
	child := parent.bear(2, rng, p)
	if child == nil {
		t.Fatal("expected a certain birth")
	}
	if child.Species() != Herbivore || child.Age() != 0 {
		t.Errorf("newborn should be an age-zero herbivore, got %s age %d", child.Species(), child.Age())
	}
	if math.Abs(child.Weight()-p.WBirth) > 1e-9 {
		t.Errorf("child weight = %v, want %v", child.Weight(), p.WBirth)
	}
	wantParent := 100 - p.Xi*p.WBirth
	if math.Abs(parent.Weight()-wantParent) > 1e-9 {
		t.Errorf("parent weight = %v, want %v", parent.Weight(), wantParent)
	}
}

func TestBear_LoneResidentNeverBears(t *testing.T) {
	resetConfig()
	p := herbParams()
	p.Gamma = 10

	rng := rand.New(rand.NewSource(3))
	parent := newOrganism(Herbivore, 0, 100, p)
	for i := 0; i < 100; i++ {
		if child := parent.bear(1, rng, p); child != nil {
			t.Fatalf("draw %d: lone resident produced a child", i)
		}
	}
}

func TestNewborn_NegativeDrawClampsToZero(t *testing.T) {
	resetConfig()
	p := herbParams()
	p.WBirth = -5
	p.SigmaBirth = 0

	o := newborn(Herbivore, rand.New(rand.NewSource(1)), p)
	if o.Weight() != 0 {
		t.Errorf("expected clamped weight 0, got %v", o.Weight())
	}
	if o.Fitness() != 0 {
		t.Errorf("expected zero fitness at zero weight, got %v", o.Fitness())
	}
}

// ---------- death, aging, weight loss ----------

func TestDies_DeterministicAtExtremes(t *testing.T) {
	resetConfig()

	// omega=1 with zero fitness dies on every draw; omega=0 never does.
	always := herbParams()
	always.Omega = 1
	doomed := newOrganism(Herbivore, 5, 0, always)

	never := herbParams()
	never.Omega = 0
	safe := newOrganism(Herbivore, 5, 20, never)

	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 50; i++ {
		if !doomed.dies(rng, always) {
			t.Fatalf("draw %d: omega=1 phi=0 organism survived", i)
		}
		if safe.dies(rng, never) {
			t.Fatalf("draw %d: omega=0 organism died", i)
		}
	}
}

func TestAgeOneYear_ReducesFitness(t *testing.T) {
	resetConfig()
	p := herbParams()

	o := newOrganism(Herbivore, 10, 20, p)
	before := o.Fitness()
	o.ageOneYear(p)
	if o.Age() != 11 {
		t.Errorf("age = %d, want 11", o.Age())
	}
	if o.Fitness() >= before {
		t.Errorf("fitness should drop with age: %v >= %v", o.Fitness(), before)
	}
}

func TestLoseWeight_AppliesEta(t *testing.T) {
	resetConfig()
	p := herbParams() // eta=0.05

	o := newOrganism(Herbivore, 2, 20, p)
	before := o.Fitness()
	o.loseWeight(p)
	if math.Abs(o.Weight()-19) > 1e-9 {
		t.Errorf("weight = %v, want 19", o.Weight())
	}
	if o.Fitness() >= before {
		t.Errorf("fitness should drop with weight: %v >= %v", o.Fitness(), before)
	}
}

// ---------- species parsing ----------

func TestParseSpecies_Names(t *testing.T) {
	if sp, err := ParseSpecies("Herbivore"); err != nil || sp != Herbivore {
		t.Errorf("ParseSpecies(Herbivore) = %v, %v", sp, err)
	}
	if sp, err := ParseSpecies("carnivore"); err != nil || sp != Carnivore {
		t.Errorf("ParseSpecies(carnivore) = %v, %v", sp, err)
	}
	if _, err := ParseSpecies("omnivore"); err == nil {
		t.Error("expected error for unknown species name")
	}
}
