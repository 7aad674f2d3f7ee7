package Climate3D

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/growcfd/FV3D"
	"github.com/notargets/growcfd/types"
)

func cubeGrid(t *testing.T, n int) (g *FV3D.Grid) {
	var err error
	g, err = FV3D.NewGrid(float64(n), float64(n), float64(n), n, n, n)
	require.NoError(t, err)
	return
}

func TestEquipment(t *testing.T) {
	fx := Fixture{Name: "LED-1", Wattage: 1000, Efficiency: 0.4, DriverLoss: 20}
	assert.InDelta(t, 620., fx.Heat(), 1e-12)
	assert.Equal(t, types.EQ_Fixture, fx.Kind())
	assert.Equal(t, `Fixture "LED-1"`, fx.Label())
	assert.Equal(t, "Fan", Fan{}.Label())

	fan := Fan{CFM: 1000, OutletArea: 0.1, Direction: [3]float64{1, 0, 0}}
	Q := 1000 * CFM
	assert.InDelta(t, Q, fan.Airflow(), 1e-12)
	assert.InDelta(t, 1.2*Q*Q/0.1, fan.Thrust(1.2), 1e-12)

	cz := CanopyZone{Porosity: 0.6, SensibleHeat: 500, Transpiration: 1e-4}
	pz := cz.PorousZone()
	assert.InDelta(t, 500-1e-4*LatentHeatVapour, pz.HeatRate, 1e-9)
	assert.Equal(t, 1e-4, pz.MoistureRate)
	assert.Equal(t, 0.6, pz.Porosity)

	for _, eq := range []EquipmentSpec{
		Fixture{Wattage: -1},
		Fixture{Wattage: 10, Efficiency: 1.5},
		Fan{CFM: 100},
		Fan{CFM: 100, OutletArea: 0.1},
		HVAC{AirflowCFM: 100, OutletArea: 0.1, SupplyDirection: [3]float64{1, 0, 0}},
		CanopyZone{Porosity: 0},
		CanopyZone{Porosity: 0.5, Transpiration: -1},
		Fixture{Wattage: math.NaN()},
		Fixture{Wattage: 10, Efficiency: math.NaN()},
		Fixture{Wattage: 10, Position: [3]float64{1, math.Inf(1), 1}},
		Fan{CFM: math.NaN(), OutletArea: 0.1, Direction: [3]float64{1, 0, 0}},
		Fan{CFM: 100, OutletArea: 0.1, Direction: [3]float64{math.NaN(), 0, 0}},
		HVAC{Capacity: math.NaN()},
		HVAC{Dehumidification: math.NaN()},
		CanopyZone{Porosity: math.NaN()},
		CanopyZone{Porosity: 0.5, LinearResistance: math.NaN()},
	} {
		err := eq.Validate()
		assert.True(t, errors.Is(err, ErrInvalidEquipment), "%#v", eq)
	}
	assert.NoError(t, HVAC{Capacity: -2000}.Validate())
}

func TestBuildSources(t *testing.T) {
	var (
		g   = cubeGrid(t, 4)
		bcs = FV3D.NewBoundarySet(g)
		rho = 1.2
	)
	_, err := bcs.AddBoundary(FV3D.CellBox(0, 2, 0, 1, 0, 1), FV3D.PorousZone{Porosity: 0.5, HeatRate: 100, MoistureRate: 2e-5})
	require.NoError(t, err)
	fan := Fan{Name: "f", Position: [3]float64{3.5, 3.5, 0.5}, Direction: [3]float64{0, 2, 0}, CFM: 500, OutletArea: 0.05, MotorHeat: 40}
	hvac := HVAC{
		Supply: [3]float64{0.5, 3.5, 3.5}, Return: [3]float64{3.5, 0.5, 3.5},
		SupplyDirection: [3]float64{1, 0, 0}, ReturnDirection: [3]float64{0, 0, 1},
		AirflowCFM: 800, OutletArea: 0.1, Capacity: -1500, Dehumidification: 1e-4,
	}
	sf := BuildSources([]EquipmentSpec{
		Fixture{Position: [3]float64{1.5, 1.5, 2.5}, Wattage: 600},
		Fixture{Position: [3]float64{2, 2, 1.5}, Footprint: [2]float64{2, 2}, Wattage: 1000},
		Fixture{Name: "lost", Position: [3]float64{9, 1, 1}, Wattage: 1000},
		fan,
		hvac,
		CanopyZone{Name: "loose", Porosity: 0.5},
		Fan{Name: "bad"},
	}, g, bcs, rho)

	assert.InDelta(t, 600., sf.Heat[g.CellIndex(1, 1, 2)], 1e-12)
	for _, ij := range [][2]int{{1, 1}, {1, 2}, {2, 1}, {2, 2}} {
		assert.InDelta(t, 250., sf.Heat[g.CellIndex(ij[0], ij[1], 1)], 1e-12)
	}
	F := fan.Thrust(rho)
	assert.InDelta(t, F, sf.Momentum[g.CellIndex(3, 3, 0)][1], 1e-12)
	assert.InDelta(t, 40., sf.Heat[g.CellIndex(3, 3, 0)], 1e-12)

	Fh := hvac.Thrust(rho)
	assert.InDelta(t, Fh, sf.Momentum[g.CellIndex(0, 3, 3)][0], 1e-12)
	assert.InDelta(t, -1500., sf.Heat[g.CellIndex(0, 3, 3)], 1e-12)
	assert.InDelta(t, Fh, sf.Momentum[g.CellIndex(3, 0, 3)][2], 1e-12)
	assert.InDelta(t, -1e-4, sf.Moisture[g.CellIndex(3, 0, 3)], 1e-15)

	// Porous zone spread over its two cells
	assert.InDelta(t, 50., sf.Heat[g.CellIndex(0, 0, 0)], 1e-12)
	assert.InDelta(t, 1e-5, sf.Moisture[g.CellIndex(1, 0, 0)], 1e-15)

	assert.InDelta(t, 600+1000+40-1500+100, sf.TotalHeat(), 1e-9)
	assert.InDelta(t, 2e-5-1e-4, sf.TotalMoisture(), 1e-15)
	var total float64
	for _, c := range sf.Contributions {
		total += c.Heat
	}
	assert.InDelta(t, total, sf.TotalHeat(), 1e-9)

	require.Len(t, sf.Warnings, 3)
	assert.Contains(t, sf.Warnings[0], "outside the domain")
	assert.Contains(t, sf.Warnings[1], "not registered as a porous zone")
	assert.Contains(t, sf.Warnings[2], "outlet area")
}
