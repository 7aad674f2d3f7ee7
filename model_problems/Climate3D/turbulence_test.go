package Climate3D

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/growcfd/FV3D"
)

func TestEddyViscosity(t *testing.T) {
	nuT, limited := EddyViscosity(0.01, 0.001, 1.8e-5, 1e4)
	assert.InDelta(t, Cmu*0.01*0.01/0.001, nuT, 1e-15)
	assert.False(t, limited)

	nuT, limited = EddyViscosity(1, 1e-6, 1.8e-5, 1e4)
	assert.InDelta(t, 0.18, nuT, 1e-12)
	assert.True(t, limited)

	// Floors keep the ratio finite
	nuT, _ = EddyViscosity(0, 0, 1.8e-5, 1e4)
	assert.False(t, math.IsNaN(nuT))
	assert.InDelta(t, Cmu*kFloor*kFloor/epsFloor, nuT, 1e-20)
}

func TestInletTurbulence(t *testing.T) {
	k, eps := inletTurbulence(FV3D.Inlet{Velocity: [3]float64{2, 0, 0}}, 0.5)
	// I defaults to 5 %
	assert.InDelta(t, 1.5*0.1*0.1, k, 1e-12)
	assert.InDelta(t, math.Pow(Cmu, 0.75)*math.Pow(k, 1.5)/(0.07*0.5), eps, 1e-12)

	k, _ = inletTurbulence(FV3D.Inlet{Velocity: [3]float64{0, 0, -1}, TurbulenceIntensity: 0.1}, 1)
	assert.InDelta(t, 1.5*0.01, k, 1e-12)

	assert.InDelta(t, math.Pow(Cmu, 0.75)/(Kappa*0.5), wallEpsilon(1, 0.5), 1e-12)
}

func TestPsychrometrics(t *testing.T) {
	// Tabulated saturation pressures, Pa
	assert.InDelta(t, 611.2, SaturationVapourPressure(0.01), 1)
	assert.InDelta(t, 2339, SaturationVapourPressure(20), 3)
	assert.InDelta(t, 4246, SaturationVapourPressure(30), 5)
	assert.InDelta(t, 259.9, SaturationVapourPressure(-10), 1)

	var (
		P  = 101325.
		pv = 0.6 * SaturationVapourPressure(25)
		H  = HumidityRatio(pv, P)
	)
	assert.InDelta(t, 0.0119, H, 2e-4)
	assert.InDelta(t, pv, VapourPressure(H, P), 1e-6)
	assert.InDelta(t, 60., RelativeHumidity(25, H, P), 1e-6)
	assert.True(t, math.IsInf(HumidityRatio(P, P), 1))

	assert.InDelta(t, 20., DewPoint(SaturationVapourPressure(20)), 0.1)
	assert.InDelta(t, -10., DewPoint(SaturationVapourPressure(-10)), 0.3)
}
