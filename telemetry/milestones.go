package telemetry

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"
)

// MilestoneType identifies the type of milestone.
type MilestoneType string

const (
	MilestonePredationSurge    MilestoneType = "predation_surge"
	MilestoneCarnivoreRecovery MilestoneType = "carnivore_recovery"
	MilestoneHerbivoreCrash    MilestoneType = "herbivore_crash"
	MilestoneStableEcosystem   MilestoneType = "stable_ecosystem"
)

// Detection thresholds, sized for whole-island counts: under the default
// parameter tables a coexisting run settles around a few hundred
// herbivores and a few tens of carnivores.
const (
	surgeMinHistory = 3   // windows before the rolling average is trusted
	surgeFactor     = 2.0 // prey taken versus the rolling average
	surgeMinEaten   = 10  // ignore surges in near-empty windows

	collapseCeiling  = 5  // carnivore count at or below this marks a collapse
	recoveryFactor   = 4  // recovered at this multiple of the recorded low
	recoveryMinCount = 20 // and only once a real pack stands again

	crashFraction = 0.4 // herbivore drop from peak that counts as a crash
	crashMinPeak  = 50  // peaks below this are noise, not a population

	stableHerbMin   = 50 // floors for populations worth calling stable
	stableCarnMin   = 10
	stableMaxCV     = 0.15 // relative spread allowed across the lookback
	stableLookback  = 4    // windows the spread is measured over
	stableRunLength = 5    // consecutive stable checks before the milestone
)

// Milestone represents an automatically detected turning point in a run.
type Milestone struct {
	Type        MilestoneType
	Year        int
	Description string
}

// LogMilestone logs the milestone using slog.
func (m Milestone) LogMilestone() {
	slog.Info("milestone",
		"type", string(m.Type),
		"year", m.Year,
		"description", m.Description,
	)
}

// MilestoneDetector watches the flushed window stats for turning points in
// the population record. It keeps a rolling history of windows plus the
// running extremes the recovery and crash checks compare against.
type MilestoneDetector struct {
	history     []YearStats
	historySize int
	historyIdx  int
	historyFull bool

	carnLow   int // lowest carnivore count since the last recovery
	herbPeak  int // highest herbivore count since the last crash
	stableRun int // consecutive windows passing the stability check
}

// NewMilestoneDetector creates a detector whose rolling history holds
// historySize flushed windows, at least enough for the stability lookback.
func NewMilestoneDetector(historySize int) *MilestoneDetector {
	if historySize < stableLookback {
		historySize = stableLookback
	}
	return &MilestoneDetector{
		history:     make([]YearStats, historySize),
		historySize: historySize,
	}
}

// Check feeds one flushed window into the detector and reports any
// milestones it triggers. The first window only primes the history.
func (md *MilestoneDetector) Check(stats YearStats) []Milestone {
	var out []Milestone
	if md.recorded() > 0 {
		checks := []func(YearStats) *Milestone{
			md.checkPredationSurge,
			md.checkCarnivoreRecovery,
			md.checkHerbivoreCrash,
			md.checkStableEcosystem,
		}
		for _, check := range checks {
			if m := check(stats); m != nil {
				out = append(out, *m)
			}
		}
	}
	md.record(stats)
	return out
}

// recorded returns how many windows the history currently holds.
func (md *MilestoneDetector) recorded() int {
	if md.historyFull {
		return md.historySize
	}
	return md.historyIdx
}

// record appends the window to the ring and refreshes the running extremes.
func (md *MilestoneDetector) record(stats YearStats) {
	md.history[md.historyIdx] = stats
	md.historyIdx = (md.historyIdx + 1) % md.historySize
	if md.historyIdx == 0 {
		md.historyFull = true
	}

	if md.carnLow == 0 || stats.Carnivores < md.carnLow {
		md.carnLow = stats.Carnivores
	}
	if stats.Herbivores > md.herbPeak {
		md.herbPeak = stats.Herbivores
	}
}

// recentCounts returns the populations of the n most recently recorded
// windows, oldest first, or nils while the history is still shorter.
func (md *MilestoneDetector) recentCounts(n int) (herbs, carns []float64) {
	if md.recorded() < n {
		return nil, nil
	}
	herbs = make([]float64, 0, n)
	carns = make([]float64, 0, n)
	for i := n - 1; i >= 0; i-- {
		h := md.history[(md.historyIdx-1-i+2*md.historySize)%md.historySize]
		herbs = append(herbs, float64(h.Herbivores))
		carns = append(carns, float64(h.Carnivores))
	}
	return herbs, carns
}

func (md *MilestoneDetector) checkPredationSurge(stats YearStats) *Milestone {
	n := md.recorded()
	if n < surgeMinHistory {
		return nil
	}

	var eaten int
	for _, h := range md.history[:n] {
		eaten += h.HerbivoresEaten
	}
	avg := float64(eaten) / float64(n)
	if avg == 0 || stats.HerbivoresEaten < surgeMinEaten || float64(stats.HerbivoresEaten) <= avg*surgeFactor {
		return nil
	}

	return &Milestone{
		Type: MilestonePredationSurge,
		Year: stats.Year,
		Description: fmt.Sprintf("predation took %d herbivores, %.1fx the rolling average of %.1f",
			stats.HerbivoresEaten, float64(stats.HerbivoresEaten)/avg, avg),
	}
}

func (md *MilestoneDetector) checkCarnivoreRecovery(stats YearStats) *Milestone {
	if md.carnLow == 0 || md.carnLow > collapseCeiling {
		return nil
	}
	if stats.Carnivores < recoveryMinCount || stats.Carnivores < md.carnLow*recoveryFactor {
		return nil
	}

	// Re-arm for the next collapse.
	low := md.carnLow
	md.carnLow = stats.Carnivores

	return &Milestone{
		Type:        MilestoneCarnivoreRecovery,
		Year:        stats.Year,
		Description: fmt.Sprintf("carnivore population recovered from %d to %d", low, stats.Carnivores),
	}
}

func (md *MilestoneDetector) checkHerbivoreCrash(stats YearStats) *Milestone {
	if md.herbPeak < crashMinPeak {
		return nil
	}
	if float64(stats.Herbivores) >= float64(md.herbPeak)*(1-crashFraction) {
		return nil
	}

	peak := md.herbPeak
	md.herbPeak = stats.Herbivores
	drop := 100 * (1 - float64(stats.Herbivores)/float64(peak))

	return &Milestone{
		Type:        MilestoneHerbivoreCrash,
		Year:        stats.Year,
		Description: fmt.Sprintf("herbivores fell %.0f%% from peak %d to %d", drop, peak, stats.Herbivores),
	}
}

func (md *MilestoneDetector) checkStableEcosystem(stats YearStats) *Milestone {
	if stats.Herbivores < stableHerbMin || stats.Carnivores < stableCarnMin {
		md.stableRun = 0
		return nil
	}
	herbs, carns := md.recentCounts(stableLookback)
	if herbs == nil {
		return nil
	}
	if relSpread(herbs) > stableMaxCV || relSpread(carns) > stableMaxCV {
		md.stableRun = 0
		return nil
	}

	md.stableRun++
	if md.stableRun != stableRunLength {
		return nil
	}

	return &Milestone{
		Type: MilestoneStableEcosystem,
		Year: stats.Year,
		Description: fmt.Sprintf("herbivores and carnivores steady at %d and %d over %d windows",
			stats.Herbivores, stats.Carnivores, stableRunLength),
	}
}

// relSpread is the coefficient of variation of a sample of counts. An
// all-zero sample reads as infinitely spread, never as stable.
func relSpread(counts []float64) float64 {
	mean := stat.Mean(counts, nil)
	if mean <= 0 {
		return math.Inf(1)
	}
	return stat.PopStdDev(counts, nil) / mean
}
