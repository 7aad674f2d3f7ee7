package Climate3D

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/growcfd/FV3D"
	"github.com/notargets/growcfd/types"
)

// Result is returned by Solve in every terminal state.
type Result struct {
	Converged       bool
	Status          types.RunState
	Iterations      int
	Steps           int     // transient runs
	Time            float64 // simulated time reached, s
	FinalResidual   float64
	ResidualHistory []float64
	Metrics         Metrics
	Snapshot        *Snapshot
	Warnings        []string
	Err             error // *DivergenceError for diverged runs
	Elapsed         time.Duration
}

// Metrics are the scalar summaries of a solution.
type Metrics struct {
	MeanTemperature float64 `json:"mean_temperature_C"`
	MinTemperature  float64 `json:"min_temperature_C"`
	MaxTemperature  float64 `json:"max_temperature_C"`
	MeanSpeed       float64 `json:"mean_speed_mps"`
	MinSpeed        float64 `json:"min_speed_mps"`
	MaxSpeed        float64 `json:"max_speed_mps"`

	MeanHumidityRatio    float64 `json:"mean_humidity_ratio"`
	MaxHumidityRatio     float64 `json:"max_humidity_ratio"`
	MeanRelativeHumidity float64 `json:"mean_relative_humidity_pct"`
	MaxRelativeHumidity  float64 `json:"max_relative_humidity_pct"`

	// UniformityIndex is 1 - (Tmax - Tmin)/Tmean with temperatures in degC
	UniformityIndex float64 `json:"uniformity_index"`
	CVTemperature   float64 `json:"cv_temperature"`
	CVSpeed         float64 `json:"cv_speed"`

	InletFlow         float64 `json:"inlet_flow_m3s"`
	OutletFlow        float64 `json:"outlet_flow_m3s"`
	MassImbalance     float64 `json:"mass_imbalance_kgs"`
	AirChangesPerHour float64 `json:"air_changes_per_hour"`
	PressureDrop      float64 `json:"pressure_drop_Pa"`

	InletTemperature      float64 `json:"inlet_temperature_C"`
	OutletTemperature     float64 `json:"outlet_temperature_C"`
	HeatInput             float64 `json:"heat_input_W"`
	HeatRemoved           float64 `json:"heat_removed_W"`
	CanopyMeanTemperature float64 `json:"canopy_mean_temperature_C,omitempty"`

	// LimitedEddyViscosityCells counts cells where nu_t hit NuTMaxRatio on
	// the last turbulence update
	LimitedEddyViscosityCells int `json:"limited_eddy_viscosity_cells,omitempty"`

	Warnings []string `json:"-"`
}

// Snapshot holds cell centred copies of the fields indexed [k][j][i].
type Snapshot struct {
	U     [][][]float64 `json:"u"`
	V     [][][]float64 `json:"v"`
	W     [][][]float64 `json:"w"`
	Speed [][][]float64 `json:"speed"`
	T     [][][]float64 `json:"T"`
	P     [][][]float64 `json:"P"`
	H     [][][]float64 `json:"H"`
	K     [][][]float64 `json:"k"`
	Eps   [][][]float64 `json:"epsilon"`
}

// Summary is the part of a Result written to case reports and streamed to
// clients.
type Summary struct {
	Title         string   `json:"title,omitempty"`
	Status        string   `json:"status"`
	Converged     bool     `json:"converged"`
	Iterations    int      `json:"iterations"`
	SimulatedTime float64  `json:"simulated_time_s,omitempty"`
	FinalResidual *float64 `json:"final_residual,omitempty"` // nil when not finite
	Elapsed       string   `json:"elapsed"`
	Metrics       Metrics  `json:"metrics"`
	Warnings      []string `json:"warnings,omitempty"`
	Error         string   `json:"error,omitempty"`
}

func (res *Result) Summary(title string) (s Summary) {
	s = Summary{
		Title:         title,
		Status:        res.Status.String(),
		Converged:     res.Converged,
		Iterations:    res.Iterations,
		SimulatedTime: res.Time,
		Elapsed:       res.Elapsed.Round(time.Millisecond).String(),
		Metrics:       res.Metrics,
		Warnings:      res.Warnings,
	}
	if r := res.FinalResidual; !math.IsNaN(r) && !math.IsInf(r, 0) {
		s.FinalResidual = &r
	}
	if res.Err != nil {
		s.Error = res.Err.Error()
	}
	return
}

// Result assembles the outcome of the run in its current state.
func (sr *SimulationRun) Result() (res *Result) {
	var (
		m = ExtractResults(sr)
	)
	if sr.pc.misses > 0 && !sr.pc.converged {
		sr.warn("pressure correction did not reach PressureTolerance on the last iteration")
	}
	for _, w := range m.Warnings {
		sr.warn(w)
	}
	sr.mu.Lock()
	defer sr.mu.Unlock()
	res = &Result{
		Converged:       sr.state == types.Converged,
		Status:          sr.state,
		Iterations:      sr.iteration,
		Steps:           sr.step,
		Time:            sr.time,
		ResidualHistory: append([]float64(nil), sr.residuals...),
		Metrics:         m,
		Snapshot:        NewSnapshot(sr.Grid, sr.fields),
		Warnings:        append([]string(nil), sr.warnings...),
		Err:             sr.err,
		Elapsed:         sr.elapsed,
	}
	if n := len(sr.residuals); n > 0 {
		res.FinalResidual = sr.residuals[n-1]
	}
	return
}

// ExtractResults computes the metrics of the current fields of a run. It
// does not modify the run.
func ExtractResults(sr *SimulationRun) (m Metrics) {
	var (
		g     = sr.Grid
		f     = sr.fields
		cfg   = sr.Config
		bcs   = sr.BCs
		nc    = g.NumCells()
		speed = make([]float64, nc)
		rh    = make([]float64, nc)
	)
	for k := 0; k < g.Nz; k++ {
		for j := 0; j < g.Ny; j++ {
			for i := 0; i < g.Nx; i++ {
				c := g.CellIndex(i, j, k)
				u, v, w := f.CellVelocity(g, i, j, k)
				speed[c] = math.Sqrt(u*u + v*v + w*w)
				rh[c] = RelativeHumidity(f.T[c], f.H[c], cfg.AtmosphericPressure)
			}
		}
	}
	var sdT, sdS float64
	m.MeanTemperature, sdT = stat.PopMeanStdDev(f.T, nil)
	m.MinTemperature, m.MaxTemperature = floats.Min(f.T), floats.Max(f.T)
	m.MeanSpeed, sdS = stat.PopMeanStdDev(speed, nil)
	m.MinSpeed, m.MaxSpeed = floats.Min(speed), floats.Max(speed)
	m.MeanHumidityRatio, m.MaxHumidityRatio = stat.Mean(f.H, nil), floats.Max(f.H)
	m.MeanRelativeHumidity, m.MaxRelativeHumidity = stat.Mean(rh, nil), floats.Max(rh)
	if m.MaxRelativeHumidity > 100 {
		m.Warnings = append(m.Warnings, "relative humidity exceeds 100% in part of the room, condensation is not modelled")
	}

	if m.MeanTemperature > 0 {
		m.UniformityIndex = 1 - (m.MaxTemperature-m.MinTemperature)/m.MeanTemperature
		m.CVTemperature = sdT / m.MeanTemperature
	} else {
		m.Warnings = append(m.Warnings, "mean temperature is not above 0 degC, uniformity index reported as 0")
	}
	if m.MeanSpeed > 0 {
		m.CVSpeed = sdS / m.MeanSpeed
	}

	m.InletFlow, m.OutletFlow = bcs.FlowRates(f)
	m.MassImbalance = cfg.AirDensity * (m.InletFlow - m.OutletFlow)
	m.AirChangesPerHour = 3600 * m.OutletFlow / g.Volume()
	if in, out := bcs.AdjacentCells(types.BK_Inlet), bcs.AdjacentCells(types.BK_Outlet); len(in) > 0 && len(out) > 0 {
		m.PressureDrop = cellMean(f.P, in) - cellMean(f.P, out)
	}

	m.InletTemperature, m.OutletTemperature, m.HeatRemoved = advectedHeat(sr)
	m.HeatInput = sr.Sources.TotalHeat()
	var canopy []int
	for c := 0; c < nc; c++ {
		if _, ok := bcs.Porous(c); ok {
			canopy = append(canopy, c)
		}
	}
	if len(canopy) > 0 {
		m.CanopyMeanTemperature = cellMean(f.T, canopy)
	}
	m.LimitedEddyViscosityCells = sr.nuTClipped
	return
}

func cellMean(arr []float64, cells []int) (mean float64) {
	for _, c := range cells {
		mean += arr[c]
	}
	return mean / float64(len(cells))
}

// advectedHeat returns the flow weighted inlet and outlet temperatures and
// the heat carried out of the room by the through flow, rho cp (Qout Tout -
// Qin Tin).
func advectedHeat(sr *SimulationRun) (tIn, tOut, heat float64) {
	var (
		g          = sr.Grid
		f          = sr.fields
		rcp        = sr.Config.AirDensity * sr.Config.SpecificHeat
		qIn, qOut  float64
		qTin, qTou float64
	)
	sr.BCs.ForEachFace(func(face types.Face, a, b int, bc FV3D.Condition) {
		q := f.BoundaryNormalVelocity(g, face, a, b) * g.FaceArea(face.Axis())
		switch c := bc.(type) {
		case FV3D.Inlet:
			qIn -= q
			qTin -= q * c.Temperature
		case FV3D.Outlet:
			i, j, k := g.BoundaryCell(face, a, b)
			qOut += q
			qTou += q * f.T[g.CellIndex(i, j, k)]
		}
	})
	if qIn > 0 {
		tIn = qTin / qIn
	}
	if qOut > 0 {
		tOut = qTou / qOut
	}
	heat = rcp * (qTou - qTin)
	return
}

// NewSnapshot interpolates the fields to cell centers.
func NewSnapshot(g *FV3D.Grid, f *FV3D.Fields) (s *Snapshot) {
	s = &Snapshot{
		U: newCube(g), V: newCube(g), W: newCube(g), Speed: newCube(g),
		T: newCube(g), P: newCube(g), H: newCube(g), K: newCube(g), Eps: newCube(g),
	}
	for k := 0; k < g.Nz; k++ {
		for j := 0; j < g.Ny; j++ {
			for i := 0; i < g.Nx; i++ {
				c := g.CellIndex(i, j, k)
				u, v, w := f.CellVelocity(g, i, j, k)
				s.U[k][j][i], s.V[k][j][i], s.W[k][j][i] = u, v, w
				s.Speed[k][j][i] = math.Sqrt(u*u + v*v + w*w)
				s.T[k][j][i], s.P[k][j][i], s.H[k][j][i] = f.T[c], f.P[c], f.H[c]
				s.K[k][j][i], s.Eps[k][j][i] = f.K[c], f.Eps[c]
			}
		}
	}
	return
}

func newCube(g *FV3D.Grid) (c [][][]float64) {
	c = make([][][]float64, g.Nz)
	for k := range c {
		c[k] = make([][]float64, g.Ny)
		for j := range c[k] {
			c[k][j] = make([]float64, g.Nx)
		}
	}
	return
}
