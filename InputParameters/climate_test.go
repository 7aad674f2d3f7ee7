package InputParameters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/growcfd/FV3D"
	"github.com/notargets/growcfd/model_problems/Climate3D"
	"github.com/notargets/growcfd/types"
)

var flowerRoom = []byte(`
Title: Flower Room 2
Domain:
  Size: [10, 5, 3]
  Cells: [20, 10, 6]
Solver:
  MaxIterations: 500
  PressureSolver: cg
  Turbulence: laminar
  WallClockLimit: 2m
Boundaries:
  - Type: supply
    Face: west
    Min: [1, 0]
    Max: [4, 1]
    Velocity: [1.5, 0, 0]
    Temperature: 18
    Humidity: 0.007
  - Type: exhaust
    Face: ceiling
    Min: [8, 2]
    Max: [9, 3]
  - Type: wall
    Face: floor
    Temperature: 19.5
Equipment:
  - Type: light
    Name: row 1
    Position: [5, 2.5, 2.2]
    Footprint: [6, 1.2]
    Wattage: 4000
    Efficiency: 0.45
  - Type: fan
    Position: [1, 1, 2]
    Direction: [1, 1, 0]
    CFM: 450
    OutletArea: 0.07
  - Type: hvac
    Supply: [9.5, 4.5, 2.5]
    Return: [9.5, 4.5, 0.5]
    SupplyDirection: [-1, 0, 0]
    ReturnDirection: [0, 0, -1]
    CFM: 1200
    OutletArea: 0.15
    Capacity: -3500
    Dehumidification: 0.0004
  - Type: canopy
    Min: [1, 1, 0]
    Max: [9, 4, 1.2]
    Porosity: 0.6
    LinearResistance: 0.3
    Transpiration: 0.0002
`)

func TestParseClimateCase(t *testing.T) {
	var ip InputParametersClimate
	require.NoError(t, ip.Parse(flowerRoom))
	assert.Equal(t, "Flower Room 2", ip.Title)
	assert.Equal(t, []int{20, 10, 6}, ip.Domain.Cells)
	require.Len(t, ip.Boundaries, 3)
	require.NotNil(t, ip.Boundaries[2].Temperature)
	assert.Equal(t, 19.5, *ip.Boundaries[2].Temperature)
	require.Len(t, ip.Equipment, 4)
	ip.Print()

	cfg, g, bcs, equipment, err := ip.Build()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.MaxIterations)
	assert.Equal(t, Climate3D.PressureCG, cfg.PressureSolver)
	assert.Equal(t, Climate3D.Laminar, cfg.TurbulenceModel)
	assert.Equal(t, 120., cfg.WallClockLimit.Seconds())
	assert.Equal(t, 0.7, cfg.VelocityRelaxation)
	assert.Equal(t, [3]int{20, 10, 6}, g.Dims())

	// Supply covers y in [1,4] and z in [0,1] of the west face: 6 x 2 faces
	in := bcs.FaceCondition(types.XMin, 3, 1)
	require.Equal(t, types.BK_Inlet, in.Kind())
	assert.Equal(t, 18., in.(FV3D.Inlet).Temperature)
	assert.Equal(t, types.BK_Wall, bcs.FaceCondition(types.XMin, 1, 1).Kind())
	assert.Equal(t, types.BK_Outlet, bcs.FaceCondition(types.ZMax, 16, 4).Kind())
	wall := bcs.FaceCondition(types.ZMin, 0, 0).(FV3D.Wall)
	assert.Equal(t, FV3D.Isothermal, wall.Thermal)

	require.Len(t, equipment, 4)
	fx, ok := equipment[0].(Climate3D.Fixture)
	require.True(t, ok)
	assert.Equal(t, [2]float64{6, 1.2}, fx.Footprint)
	assert.InDelta(t, 2200., fx.Heat(), 1e-9)
	assert.Equal(t, types.EQ_Fan, equipment[1].Kind())
	assert.Equal(t, 1200., equipment[2].(Climate3D.HVAC).AirflowCFM)
	assert.Equal(t, types.EQ_CanopyZone, equipment[3].Kind())

	sr, err := Climate3D.NewSimulationRun(cfg, g, bcs, equipment)
	require.NoError(t, err)
	assert.True(t, sr.BCs.HasKind(types.BK_PorousZone))
	assert.Empty(t, sr.Warnings())
}

func TestEquipmentRecordSpec(t *testing.T) {
	_, err := EquipmentRecord{Type: "fan", Position: []float64{1, 1, 1}, Direction: []float64{1, 0, 0},
		CFM: 100, OutletArea: 0.05, Wattage: 50}.Spec()
	assert.True(t, errors.Is(err, ErrInvalidCase))
	assert.Contains(t, err.Error(), "Wattage")

	_, err = EquipmentRecord{Type: "light", Position: []float64{1, 1, 1}, Wattage: 600, Porosity: 0.5, Direction: []float64{1, 0, 0}}.Spec()
	assert.Contains(t, err.Error(), "Direction, Porosity")

	_, err = EquipmentRecord{Type: "heater", Position: []float64{1, 1, 1}}.Spec()
	assert.True(t, errors.Is(err, ErrInvalidCase))

	_, err = EquipmentRecord{Type: "fixture", Position: []float64{1, 1}, Wattage: 600}.Spec()
	assert.True(t, errors.Is(err, ErrInvalidCase))

	_, err = EquipmentRecord{Type: "fixture", Position: []float64{1, 1, 1}, Wattage: 600, Efficiency: 2}.Spec()
	assert.True(t, errors.Is(err, Climate3D.ErrInvalidEquipment))

	eq, err := EquipmentRecord{Type: "Fixture", Name: "A", Position: []float64{1, 1, 1}, Wattage: 600}.Spec()
	require.NoError(t, err)
	assert.Equal(t, Climate3D.Fixture{Name: "A", Position: [3]float64{1, 1, 1}, Wattage: 600}, eq)
}

func TestBuildErrors(t *testing.T) {
	for _, tc := range []struct {
		name, yaml string
		target     error
	}{
		{"cells", "Domain: {Size: [1, 1, 1], Cells: [2, 2]}", ErrInvalidCase},
		{"grid", "Domain: {Size: [1, -1, 1], Cells: [2, 2, 2]}", FV3D.ErrInvalidDimension},
		{"solver", "Domain: {Size: [1, 1, 1], Cells: [2, 2, 2]}\nSolver: {PressureSolver: multigrid}", Climate3D.ErrInvalidConfig},
		{"duration", "Domain: {Size: [1, 1, 1], Cells: [2, 2, 2]}\nSolver: {WallClockLimit: soon}", ErrInvalidCase},
		{"face", "Domain: {Size: [1, 1, 1], Cells: [2, 2, 2]}\nBoundaries: [{Type: outlet, Face: up}]", ErrInvalidCase},
		{"inlet temperature", "Domain: {Size: [1, 1, 1], Cells: [2, 2, 2]}\nBoundaries: [{Type: inlet, Face: xmin, Velocity: [1, 0, 0]}]", ErrInvalidCase},
		{"overlap", "Domain: {Size: [1, 1, 1], Cells: [2, 2, 2]}\nBoundaries: [{Type: outlet, Face: xmax}, {Type: wall, Face: xmax}]", FV3D.ErrOverlappingRegion},
		{"porous box", "Domain: {Size: [1, 1, 1], Cells: [2, 2, 2]}\nBoundaries: [{Type: porous, Min: [0, 0, 0], Max: [2, 1, 1], Porosity: 0.5}]", FV3D.ErrOutOfDomain},
	} {
		var ip InputParametersClimate
		require.NoError(t, ip.Parse([]byte(tc.yaml)), tc.name)
		err := ip.Validate()
		assert.True(t, errors.Is(err, tc.target), "%s: %v", tc.name, err)
	}
}
