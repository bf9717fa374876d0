package sim

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pthm-cable/biosim/config"
	"github.com/pthm-cable/biosim/island"
)

const scenarioYAML = `map: |
  OOO
  OJO
  OOO
populations:
  - row: 1
    col: 1
    organisms:
      - species: herbivore
        count: 3
        age: 5
        weight: 20.0
      - species: carnivore
        age: 2
        weight: 10.0
`

func writeScenario(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatalf("writing scenario: %v", err)
	}
	return path
}

// ---------- scenario parsing ----------

func TestLoadScenario_ParsesYAML(t *testing.T) {
	scn, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if !strings.HasPrefix(scn.Map, "OOO\nOJO\nOOO") {
		t.Errorf("map = %q", scn.Map)
	}
	if len(scn.Populations) != 1 || len(scn.Populations[0].Organisms) != 2 {
		t.Fatalf("populations = %+v", scn.Populations)
	}
	if g := scn.Populations[0].Organisms[0]; g.Species != "herbivore" || g.Count != 3 || g.Age != 5 || g.Weight != 20 {
		t.Errorf("first group = %+v", g)
	}
}

func TestLoadScenario_MissingFileFails(t *testing.T) {
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestLoadScenario_RequiresMap(t *testing.T) {
	if _, err := LoadScenario(writeScenario(t, "populations: []\n")); err == nil {
		t.Fatal("expected error for a scenario without a map")
	}
}

func TestLoadScenario_RejectsMapAndMapGen(t *testing.T) {
	text := "map: |\n  OOO\n  OJO\n  OOO\nmapgen:\n  rows: 10\n  cols: 10\npopulations: []\n"
	if _, err := LoadScenario(writeScenario(t, text)); err == nil {
		t.Fatal("expected error for a scenario with both map and mapgen")
	}
}

func TestScenarioResolveMap_GeneratesFromSpec(t *testing.T) {
	scn := &Scenario{MapGen: &MapGenSpec{Rows: 12, Cols: 14, Seed: 3}}

	first, err := scn.resolveMap()
	if err != nil {
		t.Fatalf("resolveMap: %v", err)
	}
	lines := strings.Split(first, "\n")
	if len(lines) != 12 || len(lines[0]) != 14 {
		t.Fatalf("generated map is %dx%d, want 12x14", len(lines), len(lines[0]))
	}

	second, err := scn.resolveMap()
	if err != nil {
		t.Fatalf("resolveMap: %v", err)
	}
	if first != second {
		t.Error("expected the generated map to be deterministic")
	}
}

func TestScenarioEntries_ExpandsCounts(t *testing.T) {
	scn := &Scenario{
		Map: "OOO\nOJO\nOOO",
		Populations: []ScenarioEntry{{
			Row: 1, Col: 1,
			Organisms: []ScenarioGroup{
				{Species: "herbivore", Count: 3, Age: 5, Weight: 20},
				{Species: "carnivore", Age: 2, Weight: 10}, // count defaults to 1
			},
		}},
	}
	entries, err := scn.entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || len(entries[0].Organisms) != 4 {
		t.Fatalf("expected 4 expanded specs, got %+v", entries)
	}
	if entries[0].Organisms[3].Species != island.Carnivore {
		t.Errorf("last spec = %+v, want the carnivore", entries[0].Organisms[3])
	}
}

func TestScenarioEntries_RejectsUnknownSpecies(t *testing.T) {
	scn := &Scenario{
		Map: "OOO\nOJO\nOOO",
		Populations: []ScenarioEntry{{
			Row: 1, Col: 1,
			Organisms: []ScenarioGroup{{Species: "dragon", Count: 1, Weight: 20}},
		}},
	}
	if _, err := scn.entries(); err == nil {
		t.Fatal("expected error for unknown species")
	}
}

// ---------- run lifecycle ----------

func TestNew_SeedsIslandFromScenario(t *testing.T) {
	config.MustInit("")
	scn, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}

	s, err := New(scn, Options{Seed: 1, Years: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	h, c := s.Island().TotalPopulation()
	if h != 3 || c != 1 {
		t.Errorf("population = (%d, %d), want (3, 1)", h, c)
	}
	if s.Year() != 0 {
		t.Errorf("year = %d before any step", s.Year())
	}
	if s.RunID() == "" {
		t.Error("expected a run id")
	}
}

func TestNew_RejectsBrokenScenario(t *testing.T) {
	config.MustInit("")

	badMap := &Scenario{Map: "JOO\nOOO\nOOO"}
	if _, err := New(badMap, Options{Seed: 1}); err == nil {
		t.Error("expected map validation to fail")
	}

	badSeed := &Scenario{
		Map: "OOO\nOJO\nOOO",
		Populations: []ScenarioEntry{{
			Row: 0, Col: 0,
			Organisms: []ScenarioGroup{{Species: "herbivore", Count: 1, Weight: 20}},
		}},
	}
	if _, err := New(badSeed, Options{Seed: 1}); err == nil {
		t.Error("expected ocean placement to fail")
	}
}

func TestNew_BuildsIslandFromMapGen(t *testing.T) {
	config.MustInit("")
	scn := &Scenario{MapGen: &MapGenSpec{Rows: 10, Cols: 16, Seed: 9}}

	s, err := New(scn, Options{Seed: 1, Years: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if s.Island().Rows() != 10 || s.Island().Cols() != 16 {
		t.Errorf("island is %dx%d, want 10x16", s.Island().Rows(), s.Island().Cols())
	}
}

func TestSim_ScenarioYearsUsedWhenOptionsSilent(t *testing.T) {
	config.MustInit("")
	scn := &Scenario{
		Years: 3,
		Map:   "OOO\nOJO\nOOO",
		Populations: []ScenarioEntry{{
			Row: 1, Col: 1,
			Organisms: []ScenarioGroup{{Species: "herbivore", Count: 20, Age: 2, Weight: 30}},
		}},
	}
	s, err := New(scn, Options{Seed: 11})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	s.Run()
	if s.Year() != 3 {
		t.Errorf("run stopped at year %d, want the scenario's 3", s.Year())
	}
}

func TestSim_StepCountsYears(t *testing.T) {
	config.MustInit("")
	scn, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	s, err := New(scn, Options{Seed: 3, Years: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	h, c := s.Step()
	if s.Year() != 1 {
		t.Errorf("year = %d after one step, want 1", s.Year())
	}
	if th, tc := s.Island().TotalPopulation(); th != h || tc != c {
		t.Errorf("step returned (%d, %d) but census is (%d, %d)", h, c, th, tc)
	}
}

func TestSim_SameSeedSameRun(t *testing.T) {
	run := func() (int, int) {
		config.MustInit("")
		scn := &Scenario{
			Map: "OOOO\nOJSO\nOOOO",
			Populations: []ScenarioEntry{{
				Row: 1, Col: 1,
				Organisms: []ScenarioGroup{
					{Species: "herbivore", Count: 30, Age: 5, Weight: 25},
					{Species: "carnivore", Count: 8, Age: 5, Weight: 20},
				},
			}},
		}
		s, err := New(scn, Options{Seed: 42, Years: 15})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer s.Close()
		return s.Run()
	}

	h1, c1 := run()
	h2, c2 := run()
	if h1 != h2 || c1 != c2 {
		t.Errorf("same seed diverged: (%d, %d) vs (%d, %d)", h1, c1, h2, c2)
	}
}

func TestSim_RunWritesOutputFiles(t *testing.T) {
	config.MustInit("")
	dir := filepath.Join(t.TempDir(), "out")

	scn := &Scenario{
		Map: "OOO\nOJO\nOOO",
		Populations: []ScenarioEntry{{
			Row: 1, Col: 1,
			Organisms: []ScenarioGroup{{Species: "herbivore", Count: 20, Age: 2, Weight: 30}},
		}},
	}
	s, err := New(scn, Options{Seed: 7, Years: 5, LogEvery: 2, CellCensusEvery: 2, OutputDir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Run()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, name := range []string{"config.yaml", "island.txt", "years.csv", "cells.csv", "perf.csv", "snapshot.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	// Windows close at years 2 and 4, plus the final partial window.
	years := readLines(t, filepath.Join(dir, "years.csv"))
	if len(years) != 4 {
		t.Errorf("years.csv has %d lines, want header plus 3 windows", len(years))
	}
	// One perf row per closed window.
	perf := readLines(t, filepath.Join(dir, "perf.csv"))
	if len(perf) != 4 {
		t.Errorf("perf.csv has %d lines, want header plus 3 windows", len(perf))
	}
	// Census rows at years 0, 2 and 4 for all nine cells.
	cells := readLines(t, filepath.Join(dir, "cells.csv"))
	if len(cells) != 28 {
		t.Errorf("cells.csv has %d lines, want header plus 27 rows", len(cells))
	}
}

func TestSim_HistoryAccumulatesWindows(t *testing.T) {
	config.MustInit("")
	scn := &Scenario{
		Map: "OOO\nOJO\nOOO",
		Populations: []ScenarioEntry{{
			Row: 1, Col: 1,
			Organisms: []ScenarioGroup{{Species: "herbivore", Count: 20, Age: 2, Weight: 30}},
		}},
	}
	s, err := New(scn, Options{Seed: 7, Years: 5, LogEvery: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	s.Run()
	hist := s.History()
	if len(hist) != 3 {
		t.Fatalf("history has %d windows, want 3", len(hist))
	}
	if hist[0].WindowStart != 1 || hist[0].Year != 2 {
		t.Errorf("first window = [%d, %d], want [1, 2]", hist[0].WindowStart, hist[0].Year)
	}
	if hist[2].WindowStart != 5 || hist[2].Year != 5 {
		t.Errorf("final window = [%d, %d], want [5, 5]", hist[2].WindowStart, hist[2].Year)
	}
}

func TestSnapshot_ResumesRunExactly(t *testing.T) {
	config.MustInit("")
	dir := filepath.Join(t.TempDir(), "out")

	scn := &Scenario{
		Map: "OOOO\nOJSO\nOOOO",
		Populations: []ScenarioEntry{{
			Row: 1, Col: 1,
			Organisms: []ScenarioGroup{
				{Species: "herbivore", Count: 15, Age: 3, Weight: 25},
				{Species: "carnivore", Count: 4, Age: 5, Weight: 18},
			},
		}},
	}
	s, err := New(scn, Options{Seed: 21, Years: 3, OutputDir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Run()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	resumedScn, err := LoadScenario(filepath.Join(dir, "snapshot.yaml"))
	if err != nil {
		t.Fatalf("loading snapshot: %v", err)
	}
	resumed, err := New(resumedScn, Options{Seed: 99, Years: 1})
	if err != nil {
		t.Fatalf("New from snapshot: %v", err)
	}
	defer resumed.Close()

	if !reflect.DeepEqual(s.Island().Population(), resumed.Island().Population()) {
		t.Error("resumed population differs from the snapshotted one")
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}
