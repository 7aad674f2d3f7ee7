package InputParameters

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ghodss/yaml"

	"github.com/notargets/growcfd/FV3D"
	"github.com/notargets/growcfd/model_problems/Climate3D"
	"github.com/notargets/growcfd/types"
)

var ErrInvalidCase = errors.New("invalid case file")

// InputParametersClimate is a grow room case read from a YAML file
type InputParametersClimate struct {
	Title      string            `json:"Title"`
	Domain     DomainRecord      `json:"Domain"`
	Solver     SolverRecord      `json:"Solver"`
	Boundaries []BoundaryRecord  `json:"Boundaries"`
	Equipment  []EquipmentRecord `json:"Equipment"`
}

type DomainRecord struct {
	Size  []float64 `json:"Size"`  // Lx, Ly, Lz in metres
	Cells []int     `json:"Cells"` // Nx, Ny, Nz
}

// SolverRecord overrides Climate3D.DefaultConfig; zero values keep the default
type SolverRecord struct {
	Transient            bool    `json:"Transient"`
	TimeStep             float64 `json:"TimeStep"`
	EndTime              float64 `json:"EndTime"`
	InnerIterations      int     `json:"InnerIterations"`
	MaxIterations        int     `json:"MaxIterations"`
	MinIterations        int     `json:"MinIterations"`
	ConvergenceTolerance float64 `json:"ConvergenceTolerance"`
	WallClockLimit       string  `json:"WallClockLimit"` // e.g. "10m"
	PressureSolver       string  `json:"PressureSolver"` // sor | cg
	PressureSweeps       int     `json:"PressureSweeps"`
	Turbulence           string  `json:"Turbulence"` // kepsilon | laminar
	VelocityRelaxation   float64 `json:"VelocityRelaxation"`
	PressureRelaxation   float64 `json:"PressureRelaxation"`
	Buoyancy             bool    `json:"Buoyancy"`
	AirDensity           float64 `json:"AirDensity"`
	AirViscosity         float64 `json:"AirViscosity"`
	ParallelDegree       int     `json:"ParallelDegree"`
}

// BoundaryRecord is one boundary condition. Face conditions (inlet, outlet,
// wall) take Face and an optional Min/Max rectangle in metres along the two
// tangent axes of the face, the whole face when omitted. Porous zones take a
// Min/Max box in metres.
type BoundaryRecord struct {
	Type                string    `json:"Type"`
	Face                string    `json:"Face"`
	Min                 []float64 `json:"Min"`
	Max                 []float64 `json:"Max"`
	Velocity            []float64 `json:"Velocity"`
	Temperature         *float64  `json:"Temperature"` // an isothermal wall when given for a wall
	Humidity            float64   `json:"Humidity"`
	TurbulenceIntensity float64   `json:"TurbulenceIntensity"`
	Pressure            float64   `json:"Pressure"`
	Porosity            float64   `json:"Porosity"`
	LinearResistance    float64   `json:"LinearResistance"`
	QuadraticResistance float64   `json:"QuadraticResistance"`
	HeatRate            float64   `json:"HeatRate"`
	MoistureRate        float64   `json:"MoistureRate"`
}

// EquipmentRecord is the union of all equipment fields; Spec accepts only
// the fields belonging to its Type.
type EquipmentRecord struct {
	Type                string    `json:"Type"`
	Name                string    `json:"Name"`
	Position            []float64 `json:"Position"`
	Footprint           []float64 `json:"Footprint"`
	Wattage             float64   `json:"Wattage"`
	Efficiency          float64   `json:"Efficiency"`
	DriverLoss          float64   `json:"DriverLoss"`
	Supply              []float64 `json:"Supply"`
	Return              []float64 `json:"Return"`
	SupplyDirection     []float64 `json:"SupplyDirection"`
	ReturnDirection     []float64 `json:"ReturnDirection"`
	Direction           []float64 `json:"Direction"`
	CFM                 float64   `json:"CFM"`
	OutletArea          float64   `json:"OutletArea"`
	Capacity            float64   `json:"Capacity"`
	Dehumidification    float64   `json:"Dehumidification"`
	MotorHeat           float64   `json:"MotorHeat"`
	Min                 []float64 `json:"Min"`
	Max                 []float64 `json:"Max"`
	Porosity            float64   `json:"Porosity"`
	LinearResistance    float64   `json:"LinearResistance"`
	QuadraticResistance float64   `json:"QuadraticResistance"`
	SensibleHeat        float64   `json:"SensibleHeat"`
	Transpiration       float64   `json:"Transpiration"`
}

var equipmentFields = map[types.EquipmentKind][]string{
	types.EQ_Fixture:    {"Position", "Footprint", "Wattage", "Efficiency", "DriverLoss"},
	types.EQ_HVAC:       {"Supply", "Return", "SupplyDirection", "ReturnDirection", "CFM", "OutletArea", "Capacity", "Dehumidification"},
	types.EQ_Fan:        {"Position", "Direction", "CFM", "OutletArea", "MotorHeat"},
	types.EQ_CanopyZone: {"Min", "Max", "Porosity", "LinearResistance", "QuadraticResistance", "SensibleHeat", "Transpiration"},
}

func (ip *InputParametersClimate) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *InputParametersClimate) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("%v m\t\t= Domain Size\n", ip.Domain.Size)
	fmt.Printf("%v\t\t= Cells\n", ip.Domain.Cells)
	fmt.Printf("[%s]\t\t\t= Pressure Solver\n", ip.Solver.PressureSolver)
	fmt.Printf("[%s]\t\t\t= Turbulence\n", ip.Solver.Turbulence)
	fmt.Printf("%v\t\t\t= Transient\n", ip.Solver.Transient)
	for i, br := range ip.Boundaries {
		fmt.Printf("Boundaries[%d] = %s %s\n", i, br.Type, br.Face)
	}
	counts := make(map[string]int)
	for _, er := range ip.Equipment {
		counts[strings.ToLower(er.Type)]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("Equipment[%s] = %d\n", key, counts[key])
	}
}

// Validate checks that the case builds.
func (ip *InputParametersClimate) Validate() (err error) {
	_, _, _, _, err = ip.Build()
	return
}

// Build converts the case into the inputs of Climate3D.NewSimulationRun.
func (ip *InputParametersClimate) Build() (cfg Climate3D.Config, g *FV3D.Grid, bcs *FV3D.BoundarySet,
	equipment []Climate3D.EquipmentSpec, err error) {
	if cfg, err = ip.Solver.Config(); err != nil {
		return
	}
	var (
		size  [3]float64
		cells [3]int
	)
	if size, err = vec3(ip.Domain.Size, "Domain.Size"); err != nil {
		return
	}
	if len(ip.Domain.Cells) != 3 {
		err = fmt.Errorf("%w: Domain.Cells needs 3 entries, have %d", ErrInvalidCase, len(ip.Domain.Cells))
		return
	}
	copy(cells[:], ip.Domain.Cells)
	if g, err = FV3D.NewGrid(size[0], size[1], size[2], cells[0], cells[1], cells[2]); err != nil {
		return
	}
	bcs = FV3D.NewBoundarySet(g)
	for i, br := range ip.Boundaries {
		if err = br.add(bcs); err != nil {
			err = fmt.Errorf("Boundaries[%d]: %w", i, err)
			return
		}
	}
	for i, er := range ip.Equipment {
		var eq Climate3D.EquipmentSpec
		if eq, err = er.Spec(); err != nil {
			err = fmt.Errorf("Equipment[%d]: %w", i, err)
			return
		}
		equipment = append(equipment, eq)
	}
	return
}

func (sr SolverRecord) Config() (cfg Climate3D.Config, err error) {
	cfg = Climate3D.DefaultConfig()
	cfg.Transient, cfg.Buoyancy = sr.Transient, sr.Buoyancy
	cfg.EndTime = sr.EndTime
	setFloat(&cfg.TimeStep, sr.TimeStep)
	setFloat(&cfg.ConvergenceTolerance, sr.ConvergenceTolerance)
	setFloat(&cfg.VelocityRelaxation, sr.VelocityRelaxation)
	setFloat(&cfg.PressureRelaxation, sr.PressureRelaxation)
	setFloat(&cfg.AirDensity, sr.AirDensity)
	setFloat(&cfg.AirViscosity, sr.AirViscosity)
	setInt(&cfg.InnerIterations, sr.InnerIterations)
	setInt(&cfg.MinIterations, sr.MinIterations)
	setInt(&cfg.MaxIterations, sr.MaxIterations)
	setInt(&cfg.PressureSweeps, sr.PressureSweeps)
	cfg.ParallelDegree = sr.ParallelDegree
	if sr.WallClockLimit != "" {
		if cfg.WallClockLimit, err = time.ParseDuration(sr.WallClockLimit); err != nil {
			err = fmt.Errorf("%w: Solver.WallClockLimit: %v", ErrInvalidCase, err)
			return
		}
	}
	if sr.PressureSolver != "" {
		if cfg.PressureSolver, err = Climate3D.NewPressureSolverType(sr.PressureSolver); err != nil {
			return
		}
	}
	if sr.Turbulence != "" {
		if cfg.TurbulenceModel, err = Climate3D.NewTurbulenceModelType(sr.Turbulence); err != nil {
			return
		}
	}
	err = cfg.Validate()
	return
}

func setFloat(dst *float64, val float64) {
	if val != 0 {
		*dst = val
	}
}

func setInt(dst *int, val int) {
	if val != 0 {
		*dst = val
	}
}

func (br BoundaryRecord) add(bcs *FV3D.BoundarySet) (err error) {
	var (
		g      = bcs.Grid
		kind   types.BoundaryKind
		region FV3D.Region
		bc     FV3D.Condition
	)
	if kind, err = types.NewBoundaryKind(br.Type); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCase, err)
	}
	if kind == types.BK_PorousZone {
		var lo, hi [3]float64
		if lo, err = vec3(br.Min, "Min"); err != nil {
			return
		}
		if hi, err = vec3(br.Max, "Max"); err != nil {
			return
		}
		if region, err = g.CellBoxAt(lo, hi); err != nil {
			return
		}
	} else {
		var face types.Face
		if face, err = types.NewFace(br.Face); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCase, err)
		}
		switch {
		case br.Min == nil && br.Max == nil:
			region = g.WholeFace(face)
		case len(br.Min) == 2 && len(br.Max) == 2:
			if region, err = g.FaceRegionAt(face, [2]float64{br.Min[0], br.Min[1]},
				[2]float64{br.Max[0], br.Max[1]}); err != nil {
				return
			}
		default:
			return fmt.Errorf("%w: a face rectangle needs 2 entries in both Min and Max", ErrInvalidCase)
		}
	}
	switch kind {
	case types.BK_Inlet:
		in := FV3D.Inlet{
			Humidity:            br.Humidity,
			TurbulenceIntensity: br.TurbulenceIntensity,
		}
		if in.Velocity, err = vec3(br.Velocity, "Velocity"); err != nil {
			return
		}
		if br.Temperature == nil {
			return fmt.Errorf("%w: inlet needs a Temperature", ErrInvalidCase)
		}
		in.Temperature = *br.Temperature
		bc = in
	case types.BK_Outlet:
		bc = FV3D.Outlet{Pressure: br.Pressure}
	case types.BK_Wall:
		w := FV3D.Wall{Thermal: FV3D.Adiabatic}
		if br.Temperature != nil {
			w.Thermal, w.Temperature = FV3D.Isothermal, *br.Temperature
		}
		bc = w
	case types.BK_PorousZone:
		bc = FV3D.PorousZone{
			Porosity:            br.Porosity,
			LinearResistance:    br.LinearResistance,
			QuadraticResistance: br.QuadraticResistance,
			HeatRate:            br.HeatRate,
			MoistureRate:        br.MoistureRate,
		}
	}
	_, err = bcs.AddBoundary(region, bc)
	return
}

// Spec converts the record into its equipment type, rejecting fields that
// do not belong to it.
func (er EquipmentRecord) Spec() (eq Climate3D.EquipmentSpec, err error) {
	var (
		kind types.EquipmentKind
	)
	if kind, err = types.NewEquipmentKind(er.Type); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCase, err)
	}
	allowed := make(map[string]bool)
	for _, name := range equipmentFields[kind] {
		allowed[name] = true
	}
	var extra []string
	for _, name := range er.setFields() {
		if !allowed[name] {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		return nil, fmt.Errorf("%w: %s does not take %s", ErrInvalidCase, kind, strings.Join(extra, ", "))
	}
	var v [6][3]float64
	switch kind {
	case types.EQ_Fixture:
		if v[0], err = vec3(er.Position, "Position"); err != nil {
			return
		}
		fx := Climate3D.Fixture{
			Name:       er.Name,
			Position:   v[0],
			Wattage:    er.Wattage,
			Efficiency: er.Efficiency,
			DriverLoss: er.DriverLoss,
		}
		switch len(er.Footprint) {
		case 0:
		case 2:
			fx.Footprint = [2]float64{er.Footprint[0], er.Footprint[1]}
		default:
			return nil, fmt.Errorf("%w: Footprint needs 2 entries, have %d", ErrInvalidCase, len(er.Footprint))
		}
		eq = fx
	case types.EQ_HVAC:
		for i, f := range []struct {
			v    []float64
			name string
		}{
			{er.Supply, "Supply"}, {er.Return, "Return"},
			{er.SupplyDirection, "SupplyDirection"}, {er.ReturnDirection, "ReturnDirection"},
		} {
			if v[i], err = vec3(f.v, f.name); err != nil {
				return
			}
		}
		eq = Climate3D.HVAC{
			Name:             er.Name,
			Supply:           v[0],
			Return:           v[1],
			SupplyDirection:  v[2],
			ReturnDirection:  v[3],
			AirflowCFM:       er.CFM,
			OutletArea:       er.OutletArea,
			Capacity:         er.Capacity,
			Dehumidification: er.Dehumidification,
		}
	case types.EQ_Fan:
		if v[0], err = vec3(er.Position, "Position"); err != nil {
			return
		}
		if v[1], err = vec3(er.Direction, "Direction"); err != nil {
			return
		}
		eq = Climate3D.Fan{
			Name:       er.Name,
			Position:   v[0],
			Direction:  v[1],
			CFM:        er.CFM,
			OutletArea: er.OutletArea,
			MotorHeat:  er.MotorHeat,
		}
	case types.EQ_CanopyZone:
		if v[0], err = vec3(er.Min, "Min"); err != nil {
			return
		}
		if v[1], err = vec3(er.Max, "Max"); err != nil {
			return
		}
		eq = Climate3D.CanopyZone{
			Name:                er.Name,
			Min:                 v[0],
			Max:                 v[1],
			Porosity:            er.Porosity,
			LinearResistance:    er.LinearResistance,
			QuadraticResistance: er.QuadraticResistance,
			SensibleHeat:        er.SensibleHeat,
			Transpiration:       er.Transpiration,
		}
	}
	if err = eq.Validate(); err != nil {
		eq = nil
	}
	return
}

// setFields lists the fields given a value other than their zero value.
func (er EquipmentRecord) setFields() (names []string) {
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"Position", er.Position != nil},
		{"Footprint", er.Footprint != nil},
		{"Wattage", er.Wattage != 0},
		{"Efficiency", er.Efficiency != 0},
		{"DriverLoss", er.DriverLoss != 0},
		{"Supply", er.Supply != nil},
		{"Return", er.Return != nil},
		{"SupplyDirection", er.SupplyDirection != nil},
		{"ReturnDirection", er.ReturnDirection != nil},
		{"Direction", er.Direction != nil},
		{"CFM", er.CFM != 0},
		{"OutletArea", er.OutletArea != 0},
		{"Capacity", er.Capacity != 0},
		{"Dehumidification", er.Dehumidification != 0},
		{"MotorHeat", er.MotorHeat != 0},
		{"Min", er.Min != nil},
		{"Max", er.Max != nil},
		{"Porosity", er.Porosity != 0},
		{"LinearResistance", er.LinearResistance != 0},
		{"QuadraticResistance", er.QuadraticResistance != 0},
		{"SensibleHeat", er.SensibleHeat != 0},
		{"Transpiration", er.Transpiration != 0},
	} {
		if f.set {
			names = append(names, f.name)
		}
	}
	return
}

func vec3(v []float64, name string) (r [3]float64, err error) {
	if len(v) != 3 {
		err = fmt.Errorf("%w: %s needs 3 entries, have %d", ErrInvalidCase, name, len(v))
		return
	}
	copy(r[:], v)
	return
}
