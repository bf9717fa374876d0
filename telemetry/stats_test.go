package telemetry

import (
	"math"
	"testing"
)

func TestDistributionStats(t *testing.T) {
	// Empirical quantiles land on sample members exactly.
	values := []float64{10, 1, 3, 5, 7, 9, 2, 4, 6, 8}
	mean, p10, p50, p90 := DistributionStats(values)

	if math.Abs(mean-5.5) > 1e-9 {
		t.Errorf("mean = %v, want 5.5", mean)
	}
	if p10 != 1 {
		t.Errorf("p10 = %v, want 1", p10)
	}
	if p50 != 5 {
		t.Errorf("p50 = %v, want 5", p50)
	}
	if p90 != 9 {
		t.Errorf("p90 = %v, want 9", p90)
	}
}

func TestDistributionStats_DoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	DistributionStats(values)

	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input slice was mutated: %v", values)
	}
}

func TestDistributionStats_Empty(t *testing.T) {
	mean, p10, p50, p90 := DistributionStats(nil)

	if mean != 0 || p10 != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty sample should return all zeros")
	}
}

func TestDistributionStats_SingleValue(t *testing.T) {
	mean, p10, p50, p90 := DistributionStats([]float64{4.2})

	if mean != 4.2 || p10 != 4.2 || p50 != 4.2 || p90 != 4.2 {
		t.Errorf("single sample should pin every statistic to 4.2, got %v %v %v %v", mean, p10, p50, p90)
	}
}
