package Climate3D

import (
	"fmt"
	"math"

	"github.com/notargets/growcfd/FV3D"
	"github.com/notargets/growcfd/types"
)

const (
	CFM              = 4.719474e-4 // m3/s per cubic foot per minute
	LatentHeatVapour = 2.45e6      // J/kg, evaporation near room temperature
)

// EquipmentSpec is implemented by Fixture, HVAC, Fan and CanopyZone only.
type EquipmentSpec interface {
	Kind() types.EquipmentKind
	Label() string
	Validate() error
	isEquipment()
}

// Fixture is a lighting fixture. Position is the center of the fixture, the
// optional Footprint spreads its heat over the cells under a horizontal
// rectangle of that size (x, y) at the fixture height.
type Fixture struct {
	Name       string
	Position   [3]float64 // m
	Footprint  [2]float64 // m
	Wattage    float64    // W, electrical input
	Efficiency float64    // fraction of input leaving as radiation, not heating the air
	DriverLoss float64    // W, remote driver dissipated in the room
}

// HVAC is a split or ducted unit with a supply and a return opening.
type HVAC struct {
	Name             string
	Supply, Return   [3]float64 // m
	SupplyDirection  [3]float64 // direction of the supply jet
	ReturnDirection  [3]float64 // direction of the air drawn into the return
	AirflowCFM       float64
	OutletArea       float64 // m2, supply opening
	Capacity         float64 // W, positive heating, negative cooling
	Dehumidification float64 // kg/s of water removed at the return
}

// Fan is a circulation fan.
type Fan struct {
	Name       string
	Position   [3]float64
	Direction  [3]float64
	CFM        float64
	OutletArea float64 // m2
	MotorHeat  float64 // W
}

// CanopyZone is a box of plants, applied as a porous zone boundary.
type CanopyZone struct {
	Name                string
	Min, Max            [3]float64 // m
	Porosity            float64
	LinearResistance    float64 // 1/s
	QuadraticResistance float64 // 1/m
	SensibleHeat        float64 // W absorbed from lighting and released to the air
	Transpiration       float64 // kg/s of water released
}

func (Fixture) Kind() types.EquipmentKind    { return types.EQ_Fixture }
func (HVAC) Kind() types.EquipmentKind       { return types.EQ_HVAC }
func (Fan) Kind() types.EquipmentKind        { return types.EQ_Fan }
func (CanopyZone) Kind() types.EquipmentKind { return types.EQ_CanopyZone }

func (e Fixture) Label() string    { return label(e.Kind(), e.Name) }
func (e HVAC) Label() string       { return label(e.Kind(), e.Name) }
func (e Fan) Label() string        { return label(e.Kind(), e.Name) }
func (e CanopyZone) Label() string { return label(e.Kind(), e.Name) }

func (Fixture) isEquipment()    {}
func (HVAC) isEquipment()       {}
func (Fan) isEquipment()        {}
func (CanopyZone) isEquipment() {}

func label(kind types.EquipmentKind, name string) string {
	if name == "" {
		return kind.String()
	}
	return fmt.Sprintf("%s %q", kind, name)
}

func (e Fixture) Validate() (err error) {
	switch {
	case !(e.Wattage >= 0 && e.DriverLoss >= 0):
		err = fmt.Errorf("%w: %s wattage and driver loss must be non-negative", ErrInvalidEquipment, e.Label())
	case !(e.Efficiency >= 0 && e.Efficiency <= 1):
		err = fmt.Errorf("%w: %s efficiency %g outside [0, 1]", ErrInvalidEquipment, e.Label(), e.Efficiency)
	case !(e.Footprint[0] >= 0 && e.Footprint[1] >= 0):
		err = fmt.Errorf("%w: %s footprint must be non-negative", ErrInvalidEquipment, e.Label())
	case !finite(e.Position[:]...):
		err = fmt.Errorf("%w: %s position must be finite", ErrInvalidEquipment, e.Label())
	}
	return
}

func (e HVAC) Validate() (err error) {
	switch {
	case !(e.AirflowCFM >= 0):
		err = fmt.Errorf("%w: %s airflow must be non-negative", ErrInvalidEquipment, e.Label())
	case e.AirflowCFM > 0 && !(e.OutletArea > 0):
		err = fmt.Errorf("%w: %s needs a positive outlet area", ErrInvalidEquipment, e.Label())
	case e.AirflowCFM > 0 && !(norm(e.SupplyDirection) > 0 && norm(e.ReturnDirection) > 0):
		err = fmt.Errorf("%w: %s needs supply and return directions", ErrInvalidEquipment, e.Label())
	case !(e.Dehumidification >= 0):
		err = fmt.Errorf("%w: %s dehumidification must be non-negative", ErrInvalidEquipment, e.Label())
	case !finite(e.Capacity):
		err = fmt.Errorf("%w: %s capacity must be finite", ErrInvalidEquipment, e.Label())
	case !finite(append(e.Supply[:], e.Return[:]...)...):
		err = fmt.Errorf("%w: %s supply and return positions must be finite", ErrInvalidEquipment, e.Label())
	}
	return
}

func (e Fan) Validate() (err error) {
	switch {
	case !(e.CFM >= 0 && e.MotorHeat >= 0):
		err = fmt.Errorf("%w: %s CFM and motor heat must be non-negative", ErrInvalidEquipment, e.Label())
	case !(e.OutletArea > 0):
		err = fmt.Errorf("%w: %s needs a positive outlet area", ErrInvalidEquipment, e.Label())
	case !(norm(e.Direction) > 0):
		err = fmt.Errorf("%w: %s needs a direction", ErrInvalidEquipment, e.Label())
	case !finite(e.Position[:]...):
		err = fmt.Errorf("%w: %s position must be finite", ErrInvalidEquipment, e.Label())
	}
	return
}

func (e CanopyZone) Validate() (err error) {
	switch {
	case !(e.Porosity > 0 && e.Porosity <= 1):
		err = fmt.Errorf("%w: %s porosity %g outside (0, 1]", ErrInvalidEquipment, e.Label(), e.Porosity)
	case !(e.LinearResistance >= 0 && e.QuadraticResistance >= 0):
		err = fmt.Errorf("%w: %s flow resistance must be non-negative", ErrInvalidEquipment, e.Label())
	case !(e.Transpiration >= 0):
		err = fmt.Errorf("%w: %s transpiration must be non-negative", ErrInvalidEquipment, e.Label())
	case !finite(e.SensibleHeat):
		err = fmt.Errorf("%w: %s sensible heat must be finite", ErrInvalidEquipment, e.Label())
	case !finite(append(e.Min[:], e.Max[:]...)...):
		err = fmt.Errorf("%w: %s extent must be finite", ErrInvalidEquipment, e.Label())
	}
	return
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Heat is the power released into the air.
func (e Fixture) Heat() float64 { return e.Wattage*(1-e.Efficiency) + e.DriverLoss }

// Airflow is the volumetric flow in m3/s.
func (e HVAC) Airflow() float64 { return e.AirflowCFM * CFM }
func (e Fan) Airflow() float64  { return e.CFM * CFM }

// Thrust is the momentum flux of the jet, rho * Q * Q/A, in N.
func (e HVAC) Thrust(rho float64) float64 { return thrust(rho, e.Airflow(), e.OutletArea) }
func (e Fan) Thrust(rho float64) float64  { return thrust(rho, e.Airflow(), e.OutletArea) }

func thrust(rho, Q, A float64) float64 {
	if A <= 0 {
		return 0
	}
	return rho * Q * Q / A
}

// PorousZone converts the canopy into the boundary condition applied over its
// cells. The latent heat of transpiration is taken from the air.
func (e CanopyZone) PorousZone() FV3D.PorousZone {
	return FV3D.PorousZone{
		Porosity:            e.Porosity,
		LinearResistance:    e.LinearResistance,
		QuadraticResistance: e.QuadraticResistance,
		HeatRate:            e.SensibleHeat - e.Transpiration*LatentHeatVapour,
		MoistureRate:        e.Transpiration,
	}
}

func norm(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func unit(v [3]float64) (u [3]float64) {
	if n := norm(v); n > 0 {
		u = [3]float64{v[0] / n, v[1] / n, v[2] / n}
	}
	return
}
