package sim

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/biosim/island"
)

// SnapshotScenario captures the island's current population as a scenario
// that reproduces it exactly when loaded. Runs of identical organisms in a
// cell collapse into one counted group.
func SnapshotScenario(isl *island.Island, mapText string) *Scenario {
	scn := &Scenario{Map: mapText}
	for _, entry := range isl.Population() {
		se := ScenarioEntry{Row: entry.Row, Col: entry.Col}
		for _, spec := range entry.Organisms {
			if n := len(se.Organisms); n > 0 {
				last := &se.Organisms[n-1]
				if last.Species == spec.Species.String() && last.Age == spec.Age && last.Weight == spec.Weight {
					last.Count++
					continue
				}
			}
			se.Organisms = append(se.Organisms, ScenarioGroup{
				Species: spec.Species.String(),
				Count:   1,
				Age:     spec.Age,
				Weight:  spec.Weight,
			})
		}
		scn.Populations = append(scn.Populations, se)
	}
	return scn
}

// writeSnapshot saves the current state as snapshot.yaml in the output
// directory, loadable with -scenario to continue the run.
func (s *Sim) writeSnapshot() error {
	dir := s.output.Dir()
	if dir == "" {
		return nil
	}

	scn := SnapshotScenario(s.isl, s.mapText)
	scn.Name = fmt.Sprintf("year %d of run %s", s.year, s.RunID())

	data, err := yaml.Marshal(scn)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	path := filepath.Join(dir, "snapshot.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
