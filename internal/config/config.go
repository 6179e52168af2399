package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rowhit/polypath/internal/homotopy"
	"github.com/rowhit/polypath/internal/poly"
	"github.com/rowhit/polypath/internal/zode"
)

const (
	DefaultDt          = 0.01
	DefaultMinDt       = 1e-12
	DefaultMaxDt       = 0.1
	DefaultTolerance   = 1e-8
	DefaultMaxSteps    = 10000
	DefaultEnterT      = 0.9
	DefaultMinStep     = 1e-6
	DefaultResidualTol = 1e-6
	DefaultDivergeNorm = 1e8
	DefaultEndgameMax  = 5000
	DefaultStepCap     = 0.01
)

// Complex is a complex number in configuration files, written [re, im].
type Complex [2]float64

func (c Complex) Value() complex128 { return complex(c[0], c[1]) }

func FromComplex(v complex128) Complex { return Complex{real(v), imag(v)} }

// TermConfig is one monomial: coeff times the product of z_k^powers[k].
type TermConfig struct {
	Coeff  Complex `yaml:"coeff"`
	Powers []int   `yaml:"powers"`
}

type PolynomialConfig struct {
	Terms []TermConfig `yaml:"terms"`
}

type TrackerConfig struct {
	Integrator string  `yaml:"integrator"`
	Dt         float64 `yaml:"dt"`
	MinDt      float64 `yaml:"min_dt"`
	MaxDt      float64 `yaml:"max_dt"`
	Tolerance  float64 `yaml:"tolerance"`
	MaxSteps   int     `yaml:"max_steps"`
	Adaptive   bool    `yaml:"adaptive"`
	Workers    int     `yaml:"workers"`
}

type EndgameConfig struct {
	EnterT      float64 `yaml:"enter_t"`
	MinStep     float64 `yaml:"min_step"`
	SpeedLimit  float64 `yaml:"speed_limit"`
	ResidualTol float64 `yaml:"residual_tol"`
	DivergeNorm float64 `yaml:"diverge_norm"`
	MaxSteps    int     `yaml:"max_steps"`
	StepCap     float64 `yaml:"step_cap"`
}

// Config describes one complete tracking run: the target system, the start
// system with its known roots, and the numerical knobs.
type Config struct {
	Name        string             `yaml:"name"`
	Gamma       Complex            `yaml:"gamma"`
	System      []PolynomialConfig `yaml:"system"`
	StartSystem []PolynomialConfig `yaml:"start_system"`
	StartPoints [][]Complex        `yaml:"start_points"`
	Tracker     TrackerConfig      `yaml:"tracker"`
	Endgame     EndgameConfig      `yaml:"endgame"`
}

// DefaultConfig is the quadratic benchmark: z^2-4 reached from z^2-1.
func DefaultConfig() *Config {
	return &Config{
		Name:  "quadratic",
		Gamma: Complex{0.6, 0.8},
		System: []PolynomialConfig{
			{Terms: []TermConfig{
				{Coeff: Complex{1, 0}, Powers: []int{2}},
				{Coeff: Complex{-4, 0}, Powers: []int{0}},
			}},
		},
		StartSystem: []PolynomialConfig{
			{Terms: []TermConfig{
				{Coeff: Complex{1, 0}, Powers: []int{2}},
				{Coeff: Complex{-1, 0}, Powers: []int{0}},
			}},
		},
		StartPoints: [][]Complex{
			{{1, 0}},
			{{-1, 0}},
		},
		Tracker: TrackerConfig{
			Integrator: "rk45",
			Dt:         DefaultDt,
			MinDt:      DefaultMinDt,
			MaxDt:      DefaultMaxDt,
			Tolerance:  DefaultTolerance,
			MaxSteps:   DefaultMaxSteps,
			Adaptive:   true,
			Workers:    0,
		},
		Endgame: EndgameConfig{
			EnterT:      DefaultEnterT,
			MinStep:     DefaultMinStep,
			ResidualTol: DefaultResidualTol,
			DivergeNorm: DefaultDivergeNorm,
			MaxSteps:    DefaultEndgameMax,
			StepCap:     DefaultStepCap,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the structural constraints a run needs before any system
// is compiled.
func (c *Config) Validate() error {
	n := len(c.System)
	if n == 0 {
		return fmt.Errorf("config %q: no target system", c.Name)
	}
	if len(c.StartSystem) != n {
		return fmt.Errorf("config %q: start system has %d polynomials, target has %d",
			c.Name, len(c.StartSystem), n)
	}
	if c.Gamma.Value() == 0 {
		return fmt.Errorf("config %q: gamma must be nonzero", c.Name)
	}
	for i, pt := range c.StartPoints {
		if len(pt) != n {
			return fmt.Errorf("config %q: start point %d has %d components, want %d",
				c.Name, i, len(pt), n)
		}
	}
	if c.Tracker.Dt <= 0 {
		return fmt.Errorf("config %q: tracker dt must be positive", c.Name)
	}
	return nil
}

// TargetSystem compiles the target polynomials.
func (c *Config) TargetSystem() (poly.System, error) {
	return compile(c.System)
}

// StartPolySystem compiles the start-system polynomials.
func (c *Config) StartPolySystem() (poly.System, error) {
	return compile(c.StartSystem)
}

// StartStates converts the configured start points.
func (c *Config) StartStates() []zode.State {
	states := make([]zode.State, len(c.StartPoints))
	for i, pt := range c.StartPoints {
		s := make(zode.State, len(pt))
		for j, v := range pt {
			s[j] = v.Value()
		}
		states[i] = s
	}
	return states
}

// SolverConfig maps the tracker section onto the per-path solver knobs.
func (c *Config) SolverConfig() zode.Config {
	sc := zode.DefaultConfig()
	sc.Dt = c.Tracker.Dt
	sc.MinDt = c.Tracker.MinDt
	sc.MaxDt = c.Tracker.MaxDt
	sc.Tolerance = c.Tracker.Tolerance
	sc.MaxSteps = c.Tracker.MaxSteps
	sc.Adaptive = c.Tracker.Adaptive
	return sc
}

// Policy maps the endgame section onto the threshold policy.
func (c *Config) Policy() *homotopy.ThresholdPolicy {
	return &homotopy.ThresholdPolicy{
		EnterT:      c.Endgame.EnterT,
		MinStep:     c.Endgame.MinStep,
		SpeedLimit:  c.Endgame.SpeedLimit,
		ResidualTol: c.Endgame.ResidualTol,
		DivergeNorm: c.Endgame.DivergeNorm,
		MaxEndgame:  c.Endgame.MaxSteps,
		StepCap:     c.Endgame.StepCap,
	}
}

func compile(polys []PolynomialConfig) (poly.System, error) {
	n := len(polys)
	ps := make([]poly.Polynomial, n)
	for i, pc := range polys {
		terms := make([]poly.Term, len(pc.Terms))
		for j, tc := range pc.Terms {
			powers := make([]int, len(tc.Powers))
			copy(powers, tc.Powers)
			terms[j] = poly.Term{Coeff: tc.Coeff.Value(), Powers: powers}
		}
		ps[i] = poly.Polynomial{Terms: terms}
	}
	return poly.NewSystem(n, ps...)
}
