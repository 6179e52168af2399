package config

// Presets are ready-to-run problems. Start points are listed explicitly so
// every preset is plain data; nothing is generated at load time.
var Presets = map[string]*Config{
	"line": {
		Name: "line", Gamma: Complex{0.6, 0.8},
		System: []PolynomialConfig{
			{Terms: []TermConfig{
				{Coeff: Complex{1, 0}, Powers: []int{1}},
				{Coeff: Complex{-2, 0}, Powers: []int{0}},
			}},
		},
		StartSystem: []PolynomialConfig{
			{Terms: []TermConfig{
				{Coeff: Complex{1, 0}, Powers: []int{1}},
				{Coeff: Complex{-1, 0}, Powers: []int{0}},
			}},
		},
		StartPoints: [][]Complex{
			{{1, 0}},
		},
		Tracker: TrackerConfig{
			Integrator: "rk45", Dt: DefaultDt, MinDt: DefaultMinDt, MaxDt: DefaultMaxDt,
			Tolerance: DefaultTolerance, MaxSteps: DefaultMaxSteps, Adaptive: true,
		},
		Endgame: EndgameConfig{
			EnterT: DefaultEnterT, MinStep: DefaultMinStep, ResidualTol: DefaultResidualTol,
			DivergeNorm: DefaultDivergeNorm, MaxSteps: DefaultEndgameMax, StepCap: DefaultStepCap,
		},
	},

	"quadratic": DefaultConfig(),

	// z^3 = 8, started from the cube roots of unity. Two of the three paths
	// end on complex roots.
	"cubic": {
		Name: "cubic", Gamma: Complex{0.6, 0.8},
		System: []PolynomialConfig{
			{Terms: []TermConfig{
				{Coeff: Complex{1, 0}, Powers: []int{3}},
				{Coeff: Complex{-8, 0}, Powers: []int{0}},
			}},
		},
		StartSystem: []PolynomialConfig{
			{Terms: []TermConfig{
				{Coeff: Complex{1, 0}, Powers: []int{3}},
				{Coeff: Complex{-1, 0}, Powers: []int{0}},
			}},
		},
		StartPoints: [][]Complex{
			{{1, 0}},
			{{-0.5, 0.8660254037844386}},
			{{-0.5, -0.8660254037844386}},
		},
		Tracker: TrackerConfig{
			Integrator: "rk45", Dt: DefaultDt, MinDt: DefaultMinDt, MaxDt: DefaultMaxDt,
			Tolerance: DefaultTolerance, MaxSteps: DefaultMaxSteps, Adaptive: true,
		},
		Endgame: EndgameConfig{
			EnterT: DefaultEnterT, MinStep: DefaultMinStep, ResidualTol: DefaultResidualTol,
			DivergeNorm: DefaultDivergeNorm, MaxSteps: DefaultEndgameMax, StepCap: DefaultStepCap,
		},
	},

	// Circle meets hyperbola: x^2+y^2=4, xy=1. Four paths from the
	// product start system (x^2-1, y^2-1).
	"conic": {
		Name: "conic", Gamma: Complex{0.6, 0.8},
		System: []PolynomialConfig{
			{Terms: []TermConfig{
				{Coeff: Complex{1, 0}, Powers: []int{2, 0}},
				{Coeff: Complex{1, 0}, Powers: []int{0, 2}},
				{Coeff: Complex{-4, 0}, Powers: []int{0, 0}},
			}},
			{Terms: []TermConfig{
				{Coeff: Complex{1, 0}, Powers: []int{1, 1}},
				{Coeff: Complex{-1, 0}, Powers: []int{0, 0}},
			}},
		},
		StartSystem: []PolynomialConfig{
			{Terms: []TermConfig{
				{Coeff: Complex{1, 0}, Powers: []int{2, 0}},
				{Coeff: Complex{-1, 0}, Powers: []int{0, 0}},
			}},
			{Terms: []TermConfig{
				{Coeff: Complex{1, 0}, Powers: []int{0, 2}},
				{Coeff: Complex{-1, 0}, Powers: []int{0, 0}},
			}},
		},
		StartPoints: [][]Complex{
			{{1, 0}, {1, 0}},
			{{1, 0}, {-1, 0}},
			{{-1, 0}, {1, 0}},
			{{-1, 0}, {-1, 0}},
		},
		Tracker: TrackerConfig{
			Integrator: "rk45", Dt: DefaultDt, MinDt: DefaultMinDt, MaxDt: DefaultMaxDt,
			Tolerance: DefaultTolerance, MaxSteps: DefaultMaxSteps, Adaptive: true,
		},
		Endgame: EndgameConfig{
			EnterT: DefaultEnterT, MinStep: DefaultMinStep, ResidualTol: DefaultResidualTol,
			DivergeNorm: DefaultDivergeNorm, MaxSteps: DefaultEndgameMax, StepCap: DefaultStepCap,
		},
	},
}

// GetPreset returns a copy of the named preset, or nil if it does not exist.
// Callers get their own Config so flag overrides never touch the shared table.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	cp := *cfg
	return &cp
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
