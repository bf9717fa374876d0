// Package main provides CMA-ES calibration for finding species parameters
// that keep herbivores and carnivores coexisting on an island.
package main

import (
	"github.com/pthm-cable/biosim/config"
)

// ParamSpec defines a single calibratable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all calibratable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of calibratable parameters.
// Sigmoid shapes and birth weights stay locked: moving those changes what
// an organism is, not how the ecosystem balances.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Herbivores
			{Name: "herb_beta", Path: "species.herbivore.beta", Min: 0.5, Max: 1.0, Default: 0.9},
			{Name: "herb_gamma", Path: "species.herbivore.gamma", Min: 0.05, Max: 0.6, Default: 0.2},
			{Name: "herb_omega", Path: "species.herbivore.omega", Min: 0.1, Max: 0.8, Default: 0.4},
			{Name: "herb_mu", Path: "species.herbivore.mu", Min: 0.0, Max: 1.0, Default: 0.25},
			{Name: "herb_appetite", Path: "species.herbivore.f", Min: 5.0, Max: 20.0, Default: 10.0},
			// Carnivores
			{Name: "carn_beta", Path: "species.carnivore.beta", Min: 0.4, Max: 1.0, Default: 0.75},
			{Name: "carn_gamma", Path: "species.carnivore.gamma", Min: 0.2, Max: 1.5, Default: 0.8},
			{Name: "carn_omega", Path: "species.carnivore.omega", Min: 0.3, Max: 1.0, Default: 0.9},
			{Name: "carn_mu", Path: "species.carnivore.mu", Min: 0.0, Max: 1.0, Default: 0.4},
			{Name: "carn_appetite", Path: "species.carnivore.f", Min: 20.0, Max: 100.0, Default: 50.0},
			{Name: "carn_dphi_max", Path: "species.carnivore.delta_phi_max", Min: 5.0, Max: 15.0, Default: 10.0},
			// Landscape
			{Name: "savannah_alpha", Path: "landscape.savannah.alpha", Min: 0.1, Max: 0.9, Default: 0.3},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	// Clamp values to ensure they're within bounds
	clamped := pv.Clamp(values)

	// Apply each parameter to the config
	// Order must match Specs order
	i := 0

	cfg.Species.Herbivore.Beta = clamped[i]
	i++
	cfg.Species.Herbivore.Gamma = clamped[i]
	i++
	cfg.Species.Herbivore.Omega = clamped[i]
	i++
	cfg.Species.Herbivore.Mu = clamped[i]
	i++
	cfg.Species.Herbivore.F = clamped[i]
	i++

	cfg.Species.Carnivore.Beta = clamped[i]
	i++
	cfg.Species.Carnivore.Gamma = clamped[i]
	i++
	cfg.Species.Carnivore.Omega = clamped[i]
	i++
	cfg.Species.Carnivore.Mu = clamped[i]
	i++
	cfg.Species.Carnivore.F = clamped[i]
	i++
	cfg.Species.Carnivore.DeltaPhiMax = clamped[i]
	i++

	cfg.Landscape.Savannah.Alpha = clamped[i]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Species.Herbivore.Beta,
		cfg.Species.Herbivore.Gamma,
		cfg.Species.Herbivore.Omega,
		cfg.Species.Herbivore.Mu,
		cfg.Species.Herbivore.F,
		cfg.Species.Carnivore.Beta,
		cfg.Species.Carnivore.Gamma,
		cfg.Species.Carnivore.Omega,
		cfg.Species.Carnivore.Mu,
		cfg.Species.Carnivore.F,
		cfg.Species.Carnivore.DeltaPhiMax,
		cfg.Landscape.Savannah.Alpha,
	}
}
