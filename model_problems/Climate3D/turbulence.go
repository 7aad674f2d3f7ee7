package Climate3D

import (
	"math"

	"github.com/notargets/growcfd/FV3D"
	"github.com/notargets/growcfd/types"
)

// Standard k-epsilon constants
const (
	Cmu      = 0.09
	C1       = 1.44
	C2       = 1.92
	SigmaK   = 1.0
	SigmaEps = 1.3
	Kappa    = 0.41

	kFloor   = 1e-8
	epsFloor = 1e-10
	// Production is limited to a multiple of the dissipation near stagnation points
	productionLimit = 10.
)

var cmu75 = math.Pow(Cmu, 0.75)

// EddyViscosity is Cmu k^2/eps limited to maxRatio times the molecular
// viscosity nu.
func EddyViscosity(k, eps, nu, maxRatio float64) (nuT float64, limited bool) {
	k, eps = max(k, kFloor), max(eps, epsFloor)
	nuT = Cmu * k * k / eps
	if limit := maxRatio * nu; nuT > limit {
		return limit, true
	}
	return nuT, false
}

// inletTurbulence estimates k = 1.5 (I |U|)^2 and eps = Cmu^0.75 k^1.5 / l
// with the mixing length l = 0.07 Dh.
func inletTurbulence(in FV3D.Inlet, Dh float64) (k, eps float64) {
	var (
		I = in.TurbulenceIntensity
	)
	if I == 0 {
		I = 0.05
	}
	uI := I * norm(in.Velocity)
	k = max(1.5*uI*uI, kFloor)
	l := 0.07 * Dh
	if l <= 0 {
		l = 0.07
	}
	eps = max(cmu75*math.Pow(k, 1.5)/l, epsFloor)
	return
}

// wallEpsilon is the log layer dissipation at distance y from a wall.
func wallEpsilon(k, y float64) float64 {
	return max(cmu75*math.Pow(max(k, kFloor), 1.5)/(Kappa*y), epsFloor)
}

// wallDistances returns, for every cell touching a wall face, the distance
// from its center to the nearest such face; zero for other cells.
func wallDistances(g *FV3D.Grid, bcs *FV3D.BoundarySet) (dist []float64) {
	var (
		h = g.Spacing()
	)
	dist = make([]float64, g.NumCells())
	bcs.ForEachFace(func(face types.Face, a, b int, bc FV3D.Condition) {
		if bc.Kind() != types.BK_Wall {
			return
		}
		i, j, k := g.BoundaryCell(face, a, b)
		c := g.CellIndex(i, j, k)
		y := 0.5 * h[face.Axis()]
		if dist[c] == 0 || y < dist[c] {
			dist[c] = y
		}
	})
	return
}

func (sr *SimulationRun) updateEddyViscosity() {
	var (
		f       = sr.fields
		cfg     = sr.Config
		limited int
	)
	for c := range f.NuT {
		var lim bool
		if f.NuT[c], lim = EddyViscosity(f.K[c], f.Eps[c], cfg.AirViscosity, cfg.NuTMaxRatio); lim {
			limited++
		}
	}
	sr.nuTClipped = limited
	if limited > 0 {
		sr.warn("eddy viscosity limited to NuTMaxRatio times the molecular viscosity")
	}
}

// cellVelocities interpolates the staggered velocity to the cell centers.
func (sr *SimulationRun) cellVelocities() (uc [3][]float64) {
	var (
		g = sr.Grid
	)
	for ax := range uc {
		uc[ax] = make([]float64, g.NumCells())
	}
	for k := 0; k < g.Nz; k++ {
		for j := 0; j < g.Ny; j++ {
			for i := 0; i < g.Nx; i++ {
				c := g.CellIndex(i, j, k)
				uc[0][c], uc[1][c], uc[2][c] = sr.fields.CellVelocity(g, i, j, k)
			}
		}
	}
	return
}

// strainRate2 is 2 S_ij S_ij at cell (i,j,k). Normal strains come from the
// staggered faces, shear strains from central differences of the cell
// centred velocity, one sided at the domain boundary.
func (sr *SimulationRun) strainRate2(uc [3][]float64, i, j, k int) (s2 float64) {
	var (
		g    = sr.Grid
		f    = sr.fields
		h    = g.Spacing()
		grad [3][3]float64 // grad[a][b] = d u_a / d x_b
	)
	grad[0][0] = (f.U[g.UIndex(i+1, j, k)] - f.U[g.UIndex(i, j, k)]) / h[0]
	grad[1][1] = (f.V[g.VIndex(i, j+1, k)] - f.V[g.VIndex(i, j, k)]) / h[1]
	grad[2][2] = (f.W[g.WIndex(i, j, k+1)] - f.W[g.WIndex(i, j, k)]) / h[2]
	for b := 0; b < 3; b++ {
		var (
			il, jl, kl, okL = g.Neighbor(i, j, k, types.Face(2*b))
			ih, jh, kh, okH = g.Neighbor(i, j, k, types.Face(2*b+1))
			span            float64
		)
		if okL {
			span += h[b]
		}
		if okH {
			span += h[b]
		}
		if span == 0 {
			continue
		}
		cl, ch := g.CellIndex(il, jl, kl), g.CellIndex(ih, jh, kh)
		for a := 0; a < 3; a++ {
			if a != b {
				grad[a][b] = (uc[a][ch] - uc[a][cl]) / span
			}
		}
	}
	for a := 0; a < 3; a++ {
		s2 += 2 * grad[a][a] * grad[a][a]
		for b := a + 1; b < 3; b++ {
			sh := grad[a][b] + grad[b][a]
			s2 += sh * sh
		}
	}
	return
}

// solveTurbulence advances k then epsilon and updates the eddy viscosity.
func (sr *SimulationRun) solveTurbulence() {
	if sr.Config.TurbulenceModel == Laminar {
		return
	}
	var (
		g       = sr.Grid
		f       = sr.fields
		cfg     = sr.Config
		nc      = g.NumCells()
		vol     = g.CellVolume()
		st      = sr.cellStencil()
		uc      = sr.cellVelocities()
		Pk      = make([]float64, nc)
		su      = make([]float64, nc)
		sp      = make([]float64, nc)
		fixed   = make([]float64, nc)
		clipped bool
	)
	for k := 0; k < g.Nz; k++ {
		for j := 0; j < g.Ny; j++ {
			for i := 0; i < g.Nx; i++ {
				c := g.CellIndex(i, j, k)
				Pk[c] = min(f.NuT[c]*sr.strainRate2(uc, i, j, k), productionLimit*f.Eps[c])
			}
		}
	}
	inletValue := func(n int) func(bd *FV3D.Boundary, bc FV3D.Condition) (float64, bool) {
		return func(bd *FV3D.Boundary, bc FV3D.Condition) (float64, bool) {
			if bd == nil || bc.Kind() != types.BK_Inlet {
				return 0, false
			}
			return sr.inletTurb[bd.ID][n], true
		}
	}
	for c := 0; c < nc; c++ {
		su[c] = Pk[c] * vol
		sp[c] = f.Eps[c] / max(f.K[c], kFloor) * vol
	}
	sr.solveScalar(scalarEquation{
		phi:      f.K,
		old:      sr.stepStart.K,
		gamma:    cfg.AirViscosity,
		sigma:    SigmaK,
		su:       su,
		sp:       sp,
		relax:    cfg.TurbulenceRelaxation,
		boundary: inletValue(0),
	}, st)
	for c := range f.K {
		if !(f.K[c] >= kFloor) {
			f.K[c], clipped = kFloor, true
		}
	}

	for c := 0; c < nc; c++ {
		ratio := f.Eps[c] / max(f.K[c], kFloor)
		su[c] = C1 * ratio * Pk[c] * vol
		sp[c] = C2 * ratio * vol
		fixed[c] = math.NaN()
		if y := sr.wallDist[c]; y > 0 {
			fixed[c] = wallEpsilon(f.K[c], y)
		}
	}
	sr.solveScalar(scalarEquation{
		phi:      f.Eps,
		old:      sr.stepStart.Eps,
		gamma:    cfg.AirViscosity,
		sigma:    SigmaEps,
		su:       su,
		sp:       sp,
		fixed:    fixed,
		relax:    cfg.TurbulenceRelaxation,
		boundary: inletValue(1),
	}, st)
	for c := range f.Eps {
		if !(f.Eps[c] >= epsFloor) {
			f.Eps[c], clipped = epsFloor, true
		}
	}
	if clipped {
		sr.warn("turbulence quantities clipped to their lower bounds")
	}
	sr.updateEddyViscosity()
}
