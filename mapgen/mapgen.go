// Package mapgen procedurally generates island maps: layered simplex
// noise shaped by a radial falloff, quantized into the terrain codes the
// engine accepts. Generated maps always satisfy the ocean-border rule.
package mapgen

import (
	"fmt"
	"math"
	"strings"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Params controls the shape of a generated island.
type Params struct {
	Rows int
	Cols int

	// Noise layering
	Octaves     int
	Frequency   float64
	Persistence float64

	// Elevation thresholds in [0, 1], ascending. Cells below SeaLevel
	// become ocean; the bands above it become desert, savannah and
	// jungle; everything at PeakLevel or higher becomes mountain.
	SeaLevel    float64
	DesertMax   float64
	SavannahMax float64
	PeakLevel   float64
}

// DefaultParams returns a parameter set that yields a coastal desert
// ring around savannah and jungle interiors with occasional peaks.
func DefaultParams(rows, cols int) Params {
	return Params{
		Rows:        rows,
		Cols:        cols,
		Octaves:     4,
		Frequency:   2.2,
		Persistence: 0.55,
		SeaLevel:    0.32,
		DesertMax:   0.42,
		SavannahMax: 0.58,
		PeakLevel:   0.82,
	}
}

func (p Params) validate() error {
	if p.Rows < 3 || p.Cols < 3 {
		return fmt.Errorf("grid %dx%d too small, need at least 3x3", p.Rows, p.Cols)
	}
	if p.Octaves < 1 {
		return fmt.Errorf("octaves %d must be positive", p.Octaves)
	}
	if !(p.SeaLevel < p.DesertMax && p.DesertMax < p.SavannahMax && p.SavannahMax < p.PeakLevel) {
		return fmt.Errorf("thresholds must ascend: sea %v < desert %v < savannah %v < peak %v",
			p.SeaLevel, p.DesertMax, p.SavannahMax, p.PeakLevel)
	}
	return nil
}

// Generate builds a map text for the given seed. The same seed and
// parameters always produce the same map.
func Generate(seed int64, p Params) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}

	noise := opensimplex.NewNormalized(seed)

	var b strings.Builder
	b.Grow((p.Cols + 1) * p.Rows)
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Cols; c++ {
			if r == 0 || r == p.Rows-1 || c == 0 || c == p.Cols-1 {
				b.WriteByte('O')
				continue
			}

			nx := float64(c) / float64(p.Cols)
			ny := float64(r) / float64(p.Rows)
			elev := octaveNoise(noise, nx, ny, p.Octaves, p.Frequency, p.Persistence)

			// Push elevation down toward the rim so land clusters into
			// an island instead of running off the map edge.
			dx := nx - 0.5
			dy := ny - 0.5
			dist := 2 * math.Sqrt(dx*dx+dy*dy)
			falloff := 1 - math.Pow(dist, 3.5)
			if falloff < 0 {
				falloff = 0
			}
			elev *= falloff

			b.WriteByte(terrainFor(elev, p))
		}
		if r < p.Rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// octaveNoise sums amplitude-weighted noise layers, doubling the
// frequency per octave, normalized back into [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxAmplitude := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxAmplitude += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxAmplitude
}

func terrainFor(elev float64, p Params) byte {
	switch {
	case elev < p.SeaLevel:
		return 'O'
	case elev < p.DesertMax:
		return 'D'
	case elev < p.SavannahMax:
		return 'S'
	case elev < p.PeakLevel:
		return 'J'
	default:
		return 'M'
	}
}

// Census counts the terrain codes in a map text.
func Census(mapText string) map[byte]int {
	counts := make(map[byte]int)
	for _, line := range strings.Split(strings.TrimSpace(mapText), "\n") {
		for i := 0; i < len(line); i++ {
			counts[line[i]]++
		}
	}
	return counts
}
