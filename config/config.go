// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Species   SpeciesConfig   `yaml:"species"`
	Landscape LandscapeConfig `yaml:"landscape"`
	Sim       SimConfig       `yaml:"sim"`
}

// SpeciesConfig holds the parameter tables for the two trophic roles.
type SpeciesConfig struct {
	Herbivore SpeciesParams `yaml:"herbivore"`
	Carnivore SpeciesParams `yaml:"carnivore"`
}

// SpeciesParams holds the life-cycle parameters of one species.
// Names follow the standard notation of the underlying population model.
type SpeciesParams struct {
	WBirth      float64 `yaml:"w_birth"`       // Mean birth weight
	SigmaBirth  float64 `yaml:"sigma_birth"`   // Birth weight standard deviation
	Beta        float64 `yaml:"beta"`          // Weight gain per unit of food eaten
	Eta         float64 `yaml:"eta"`           // Annual weight loss fraction
	AHalf       float64 `yaml:"a_half"`        // Age sigmoid midpoint
	PhiAge      float64 `yaml:"phi_age"`       // Age sigmoid steepness
	WHalf       float64 `yaml:"w_half"`        // Weight sigmoid midpoint
	PhiWeight   float64 `yaml:"phi_weight"`    // Weight sigmoid steepness
	Mu          float64 `yaml:"mu"`            // Migration propensity coefficient
	Lambda      float64 `yaml:"lambda"`        // Directional migration coefficient
	Gamma       float64 `yaml:"gamma"`         // Reproduction probability coefficient
	Zeta        float64 `yaml:"zeta"`          // Minimum viable weight coefficient
	Xi          float64 `yaml:"xi"`            // Parent weight cost per unit newborn weight
	Omega       float64 `yaml:"omega"`         // Death probability coefficient
	F           float64 `yaml:"f"`             // Annual appetite
	DeltaPhiMax float64 `yaml:"delta_phi_max"` // Predation fitness-advantage ceiling (carnivore only)
}

// LandscapeConfig holds the per-terrain parameter tables.
type LandscapeConfig struct {
	Jungle   LandscapeParams `yaml:"jungle"`
	Savannah LandscapeParams `yaml:"savannah"`
	Desert   LandscapeParams `yaml:"desert"`
	Mountain LandscapeParams `yaml:"mountain"`
	Ocean    LandscapeParams `yaml:"ocean"`
}

// LandscapeParams holds the fodder parameters of one terrain kind.
type LandscapeParams struct {
	FMax  float64 `yaml:"f_max"` // Maximum fodder the cell can hold
	Alpha float64 `yaml:"alpha"` // Savannah regrowth rate toward f_max
}

// SimConfig holds run-level settings.
type SimConfig struct {
	Years           int `yaml:"years"`             // Default run length when the scenario omits one
	LogEvery        int `yaml:"log_every"`         // Census log cadence in years (0 = every year)
	CellCensusEvery int `yaml:"cell_census_every"` // Per-cell CSV cadence in years (0 = disabled)
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return cfg, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// SetSpeciesParameters overrides named parameters of one species in the
// global configuration. Species is "herbivore" or "carnivore"; keys use the
// YAML parameter names. Unknown species or parameter names fail the whole
// call before anything is applied. Values themselves are not range-checked;
// domain validity is the caller's responsibility.
func SetSpeciesParameters(species string, overrides map[string]float64) error {
	cfg := Cfg()

	var p *SpeciesParams
	switch strings.ToLower(species) {
	case "herbivore":
		p = &cfg.Species.Herbivore
	case "carnivore":
		p = &cfg.Species.Carnivore
	default:
		return fmt.Errorf("unknown species %q", species)
	}

	// Validate every key before applying any value
	carnivore := p == &cfg.Species.Carnivore
	for name := range overrides {
		if _, ok := speciesField(p, name); !ok {
			return fmt.Errorf("unknown %s parameter %q", strings.ToLower(species), name)
		}
		if name == "delta_phi_max" && !carnivore {
			return fmt.Errorf("parameter %q applies to carnivores only", name)
		}
	}

	for name, value := range overrides {
		field, _ := speciesField(p, name)
		*field = value
	}
	return nil
}

// SetLandscapeParameters overrides named parameters of one terrain kind in
// the global configuration. Kind is a map code ("J", "S", "D", "M", "O") or
// a full name ("jungle", ...). Same all-or-nothing key validation as
// SetSpeciesParameters.
func SetLandscapeParameters(kind string, overrides map[string]float64) error {
	cfg := Cfg()

	var p *LandscapeParams
	switch strings.ToLower(kind) {
	case "j", "jungle":
		p = &cfg.Landscape.Jungle
	case "s", "savannah":
		p = &cfg.Landscape.Savannah
	case "d", "desert":
		p = &cfg.Landscape.Desert
	case "m", "mountain":
		p = &cfg.Landscape.Mountain
	case "o", "ocean":
		p = &cfg.Landscape.Ocean
	default:
		return fmt.Errorf("unknown landscape kind %q", kind)
	}

	for name := range overrides {
		if _, ok := landscapeField(p, name); !ok {
			return fmt.Errorf("unknown landscape parameter %q", name)
		}
	}

	for name, value := range overrides {
		field, _ := landscapeField(p, name)
		*field = value
	}
	return nil
}

// speciesField maps a YAML parameter name to its struct field.
func speciesField(p *SpeciesParams, name string) (*float64, bool) {
	switch name {
	case "w_birth":
		return &p.WBirth, true
	case "sigma_birth":
		return &p.SigmaBirth, true
	case "beta":
		return &p.Beta, true
	case "eta":
		return &p.Eta, true
	case "a_half":
		return &p.AHalf, true
	case "phi_age":
		return &p.PhiAge, true
	case "w_half":
		return &p.WHalf, true
	case "phi_weight":
		return &p.PhiWeight, true
	case "mu":
		return &p.Mu, true
	case "lambda":
		return &p.Lambda, true
	case "gamma":
		return &p.Gamma, true
	case "zeta":
		return &p.Zeta, true
	case "xi":
		return &p.Xi, true
	case "omega":
		return &p.Omega, true
	case "f":
		return &p.F, true
	case "delta_phi_max":
		return &p.DeltaPhiMax, true
	}
	return nil, false
}

// landscapeField maps a YAML parameter name to its struct field.
func landscapeField(p *LandscapeParams, name string) (*float64, bool) {
	switch name {
	case "f_max":
		return &p.FMax, true
	case "alpha":
		return &p.Alpha, true
	}
	return nil, false
}
