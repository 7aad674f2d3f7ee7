package Climate3D

import "math"

// Wexler-Hyland coefficients over water (a) and over ice (b)
var (
	wexlerWater = [5]float64{-6096.9385, 21.2409642, -0.02711193, 0.00001673952, 2.433502}
	wexlerIce   = [5]float64{-6024.5282, 29.32707, 0.010613863, -0.000013198825, -0.49382577}
)

// molar mass ratio of water vapour to dry air
const epsVapour = 0.62198

// SaturationVapourPressure in Pa at T degC.
func SaturationVapourPressure(T float64) float64 {
	var (
		t = T + 273.15
		c = wexlerWater
	)
	if T < 0 {
		c = wexlerIce
	}
	return math.Exp(c[0]/t + c[1] + c[2]*t + c[3]*t*t + c[4]*math.Log(t))
}

// VapourPressure in Pa of air with humidity ratio H (kg/kg) at total pressure P.
func VapourPressure(H, P float64) float64 {
	return P * H / (H + epsVapour)
}

// HumidityRatio in kg/kg for vapour pressure pv at total pressure P.
func HumidityRatio(pv, P float64) float64 {
	if pv >= P {
		return math.Inf(1)
	}
	return epsVapour * pv / (P - pv)
}

// RelativeHumidity in percent. Values above 100 indicate supersaturated air.
func RelativeHumidity(T, H, P float64) float64 {
	return 100 * VapourPressure(H, P) / SaturationVapourPressure(T)
}

// DewPoint in degC for vapour pressure pv in Pa, valid from -50 to 50 degC.
func DewPoint(pv float64) float64 {
	if pv <= 0 {
		return math.Inf(-1)
	}
	y := math.Log(pv)
	if pv < 611.2 {
		return -60.662 + 7.4624*y + 0.20594*y*y + 0.016321*y*y*y
	}
	return -77.199 + 13.198*y - 0.63772*y*y + 0.071098*y*y*y
}
