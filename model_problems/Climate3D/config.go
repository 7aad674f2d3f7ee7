package Climate3D

import (
	"fmt"
	"strings"
	"time"
)

type PressureSolverType uint8

const (
	PressureSOR PressureSolverType = iota
	PressureCG
)

var PressureSolverNames = map[string]PressureSolverType{
	"sor":   PressureSOR,
	"rbsor": PressureSOR,
	"cg":    PressureCG,
}

func (ps PressureSolverType) String() string {
	return [...]string{"Red-Black SOR", "Jacobi preconditioned CG"}[ps]
}

func NewPressureSolverType(label string) (ps PressureSolverType, err error) {
	var ok bool
	if ps, ok = PressureSolverNames[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("%w: unknown pressure solver %q", ErrInvalidConfig, label)
	}
	return
}

type TurbulenceModelType uint8

const (
	KEpsilon TurbulenceModelType = iota
	Laminar
)

var TurbulenceModelNames = map[string]TurbulenceModelType{
	"kepsilon":  KEpsilon,
	"k-epsilon": KEpsilon,
	"ke":        KEpsilon,
	"laminar":   Laminar,
	"none":      Laminar,
}

func (tm TurbulenceModelType) String() string {
	return [...]string{"k-epsilon", "laminar"}[tm]
}

func NewTurbulenceModelType(label string) (tm TurbulenceModelType, err error) {
	var ok bool
	if tm, ok = TurbulenceModelNames[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("%w: unknown turbulence model %q", ErrInvalidConfig, label)
	}
	return
}

// Config holds the physical properties and solver controls of a run. Zero
// valued numeric fields are replaced by the DefaultConfig values. The initial
// and reference states are pointers so that zero stays a valid setting; nil
// takes the mean inlet condition.
type Config struct {
	AirDensity           float64  // kg/m3
	AirViscosity         float64  // kinematic, m2/s
	ThermalDiffusivity   float64  // m2/s
	VapourDiffusivity    float64  // m2/s
	SpecificHeat         float64  // J/(kg K)
	AtmosphericPressure  float64  // Pa, for relative humidity
	Gravity              float64  // m/s2, acting along -z
	Buoyancy             bool     // Boussinesq body force on W
	ReferenceTemperature *float64 // degC, Boussinesq reference
	InitialTemperature   *float64 // degC
	InitialHumidity      *float64 // kg/kg

	// Transient runs advance EndTime/TimeStep physical steps of
	// InnerIterations SIMPLE iterations each. Steady runs ignore both.
	Transient       bool
	TimeStep        float64 // s
	EndTime         float64 // s
	InnerIterations int

	ConvergenceTolerance float64
	MinIterations        int
	MaxIterations        int
	WallClockLimit       time.Duration // zero disables
	DivergenceWindow     int           // consecutive residual increases
	DivergenceFloor      float64       // residual above which increases count, defaults to 10 x ConvergenceTolerance

	VelocityRelaxation   float64
	PressureRelaxation   float64
	TurbulenceRelaxation float64
	ScalarRelaxation     float64 // steady mode only
	MomentumSweeps       int

	PressureSolver    PressureSolverType
	PressureSweeps    int // SOR sweeps or CG iterations per outer iteration
	PressureTolerance float64
	SORFactor         float64

	ScalarSweeps    int
	ScalarTolerance float64

	TurbulenceModel  TurbulenceModelType
	NuTMaxRatio      float64 // cap on nu_t / nu
	TurbulentPrandtl float64
	TurbulentSchmidt float64

	ParallelDegree int // <= 0 uses GOMAXPROCS
}

func DefaultConfig() Config {
	return Config{
		AirDensity:           1.225,
		AirViscosity:         1.8e-5,
		ThermalDiffusivity:   2.2e-5,
		VapourDiffusivity:    2.5e-5,
		SpecificHeat:         1006,
		AtmosphericPressure:  101325,
		Gravity:              9.81,
		TimeStep:             0.1,
		InnerIterations:      5,
		ConvergenceTolerance: 1e-4,
		MinIterations:        10,
		MaxIterations:        2000,
		DivergenceWindow:     20,
		VelocityRelaxation:   0.7,
		PressureRelaxation:   0.3,
		TurbulenceRelaxation: 0.7,
		ScalarRelaxation:     1,
		MomentumSweeps:       3,
		PressureSolver:       PressureSOR,
		PressureSweeps:       200,
		PressureTolerance:    1e-6,
		SORFactor:            1.7,
		ScalarSweeps:         50,
		ScalarTolerance:      1e-8,
		TurbulenceModel:      KEpsilon,
		NuTMaxRatio:          1e4,
		TurbulentPrandtl:     0.9,
		TurbulentSchmidt:     0.7,
	}
}

func (cfg Config) withDefaults() (c Config) {
	var (
		d = DefaultConfig()
	)
	c = cfg
	for _, p := range []struct{ v, d *float64 }{
		{&c.AirDensity, &d.AirDensity},
		{&c.AirViscosity, &d.AirViscosity},
		{&c.ThermalDiffusivity, &d.ThermalDiffusivity},
		{&c.VapourDiffusivity, &d.VapourDiffusivity},
		{&c.SpecificHeat, &d.SpecificHeat},
		{&c.AtmosphericPressure, &d.AtmosphericPressure},
		{&c.Gravity, &d.Gravity},
		{&c.TimeStep, &d.TimeStep},
		{&c.ConvergenceTolerance, &d.ConvergenceTolerance},
		{&c.VelocityRelaxation, &d.VelocityRelaxation},
		{&c.PressureRelaxation, &d.PressureRelaxation},
		{&c.TurbulenceRelaxation, &d.TurbulenceRelaxation},
		{&c.ScalarRelaxation, &d.ScalarRelaxation},
		{&c.PressureTolerance, &d.PressureTolerance},
		{&c.SORFactor, &d.SORFactor},
		{&c.ScalarTolerance, &d.ScalarTolerance},
		{&c.NuTMaxRatio, &d.NuTMaxRatio},
		{&c.TurbulentPrandtl, &d.TurbulentPrandtl},
		{&c.TurbulentSchmidt, &d.TurbulentSchmidt},
	} {
		if *p.v == 0 {
			*p.v = *p.d
		}
	}
	for _, p := range []struct{ v, d *int }{
		{&c.InnerIterations, &d.InnerIterations},
		{&c.MaxIterations, &d.MaxIterations},
		{&c.DivergenceWindow, &d.DivergenceWindow},
		{&c.MomentumSweeps, &d.MomentumSweeps},
		{&c.PressureSweeps, &d.PressureSweeps},
		{&c.ScalarSweeps, &d.ScalarSweeps},
	} {
		if *p.v == 0 {
			*p.v = *p.d
		}
	}
	if c.DivergenceFloor == 0 {
		c.DivergenceFloor = 10 * c.ConvergenceTolerance
	}
	return
}

// Float64 returns a pointer to v, for the optional Config fields.
func Float64(v float64) *float64 { return &v }

func (cfg Config) Validate() (err error) {
	var (
		positive = []struct {
			name string
			val  float64
		}{
			{"AirDensity", cfg.AirDensity},
			{"AirViscosity", cfg.AirViscosity},
			{"ThermalDiffusivity", cfg.ThermalDiffusivity},
			{"VapourDiffusivity", cfg.VapourDiffusivity},
			{"SpecificHeat", cfg.SpecificHeat},
			{"AtmosphericPressure", cfg.AtmosphericPressure},
			{"TimeStep", cfg.TimeStep},
			{"ConvergenceTolerance", cfg.ConvergenceTolerance},
			{"PressureTolerance", cfg.PressureTolerance},
			{"ScalarTolerance", cfg.ScalarTolerance},
			{"NuTMaxRatio", cfg.NuTMaxRatio},
			{"TurbulentPrandtl", cfg.TurbulentPrandtl},
			{"TurbulentSchmidt", cfg.TurbulentSchmidt},
		}
		fractions = []struct {
			name string
			val  float64
		}{
			{"VelocityRelaxation", cfg.VelocityRelaxation},
			{"PressureRelaxation", cfg.PressureRelaxation},
			{"TurbulenceRelaxation", cfg.TurbulenceRelaxation},
			{"ScalarRelaxation", cfg.ScalarRelaxation},
		}
	)
	for _, p := range positive {
		if !(p.val > 0) {
			return fmt.Errorf("%w: %s must be positive, have %g", ErrInvalidConfig, p.name, p.val)
		}
	}
	for _, p := range []struct {
		name string
		val  *float64
	}{
		{"ReferenceTemperature", cfg.ReferenceTemperature},
		{"InitialTemperature", cfg.InitialTemperature},
		{"InitialHumidity", cfg.InitialHumidity},
	} {
		if p.val != nil && !finite(*p.val) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidConfig, p.name)
		}
	}
	if cfg.InitialHumidity != nil && *cfg.InitialHumidity < 0 {
		return fmt.Errorf("%w: InitialHumidity must be non-negative", ErrInvalidConfig)
	}
	for _, p := range fractions {
		if !(p.val > 0 && p.val <= 1) {
			return fmt.Errorf("%w: %s must be in (0, 1], have %g", ErrInvalidConfig, p.name, p.val)
		}
	}
	switch {
	case cfg.MaxIterations < 1 || cfg.MinIterations < 0:
		err = fmt.Errorf("%w: need MaxIterations >= 1 and MinIterations >= 0", ErrInvalidConfig)
	case cfg.MomentumSweeps < 1 || cfg.PressureSweeps < 1 || cfg.ScalarSweeps < 1 || cfg.InnerIterations < 1:
		err = fmt.Errorf("%w: sweep and inner iteration counts must be positive", ErrInvalidConfig)
	case cfg.DivergenceWindow < 1:
		err = fmt.Errorf("%w: DivergenceWindow must be positive", ErrInvalidConfig)
	case !(cfg.DivergenceFloor >= 0):
		err = fmt.Errorf("%w: DivergenceFloor must be non-negative", ErrInvalidConfig)
	case !(cfg.SORFactor > 0 && cfg.SORFactor < 2):
		err = fmt.Errorf("%w: SORFactor must be in (0, 2), have %g", ErrInvalidConfig, cfg.SORFactor)
	case cfg.Transient && !(cfg.EndTime > 0):
		err = fmt.Errorf("%w: transient runs need a positive EndTime", ErrInvalidConfig)
	case cfg.PressureSolver > PressureCG || cfg.TurbulenceModel > Laminar:
		err = fmt.Errorf("%w: unknown pressure solver or turbulence model", ErrInvalidConfig)
	case cfg.WallClockLimit < 0:
		err = fmt.Errorf("%w: WallClockLimit must be non-negative", ErrInvalidConfig)
	}
	return
}

// Steps is the number of physical time steps of a transient run.
func (cfg Config) Steps() int {
	if !cfg.Transient {
		return 0
	}
	return max(int(cfg.EndTime/cfg.TimeStep+0.5), 1)
}
