package Climate3D

import (
	"math"

	"github.com/notargets/growcfd/FV3D"
	"github.com/notargets/growcfd/types"
	"github.com/notargets/growcfd/utils"
)

// stencil is a seven point linear system aP x_P = sum(aNb x_Nb) + b with
// neighbors ordered by types.Face. Rows with aP == 0 are held fixed.
type stencil struct {
	aP, b []float64
	aNb   [6][]float64
	work  []float64
}

func newStencil(n int) (st stencil) {
	st = stencil{
		aP:   make([]float64, n),
		b:    make([]float64, n),
		work: make([]float64, n),
	}
	for fc := range st.aNb {
		st.aNb[fc] = make([]float64, n)
	}
	return
}

// jacobi runs up to maxSweeps double buffered sweeps on x, partitioned over
// k-planes of stride[2] entries. It stops early once the linear residual has
// dropped by tol relative to the first sweep; tol <= 0 runs every sweep.
func (st *stencil) jacobi(pm *utils.PartitionMap, x []float64, stride [3]int, maxSweeps int,
	tol float64) (sweeps int, res float64) {
	var (
		offset [6]int
		res0   float64
	)
	for fc := range offset {
		offset[fc] = stride[fc/2]
		if fc%2 == 0 {
			offset[fc] = -offset[fc]
		}
	}
	copy(st.work, x)
	for sweeps = 1; sweeps <= maxSweeps; sweeps++ {
		res = math.Sqrt(pm.ParallelSum(func(kMin, kMax int) (sum float64) {
			for idx := kMin * stride[2]; idx < kMax*stride[2]; idx++ {
				aP := st.aP[idx]
				if aP == 0 {
					continue
				}
				acc := st.b[idx]
				for fc := range st.aNb {
					if a := st.aNb[fc][idx]; a != 0 {
						acc += a * x[idx+offset[fc]]
					}
				}
				r := acc - aP*x[idx]
				sum += r * r
				st.work[idx] = acc / aP
			}
			return
		}))
		copy(x, st.work)
		if sweeps == 1 {
			res0 = res
		}
		if tol > 0 && (res == 0 || res <= tol*res0) {
			break
		}
	}
	sweeps = min(sweeps, maxSweeps)
	return
}

// scalarEquation is a cell centred advection diffusion equation
//
//	div(u phi) = div((gamma + nu_t/sigma) grad phi) + su - sp phi
//
// with su in phi*m3/s and sp in m3/s per cell.
type scalarEquation struct {
	phi, old []float64
	gamma    float64
	sigma    float64
	su, sp   []float64
	fixed    []float64 // value held in a cell, NaN where free; nil for none
	relax    float64   // steady runs only
	// boundary returns the value imposed by a boundary face, if any
	boundary func(bd *FV3D.Boundary, bc FV3D.Condition) (val float64, fixed bool)
}

func (sr *SimulationRun) solveScalar(eq scalarEquation, st *stencil) (sweeps int, res float64) {
	var (
		g      = sr.Grid
		f      = sr.fields
		n      = g.Dims()
		h      = g.Spacing()
		vol    = g.CellVolume()
		cfg    = sr.Config
		stride = [3]int{1, g.Nx, g.Nx * g.Ny}
		nuT    = func(c int) float64 { return 0 }
	)
	if eq.sigma > 0 {
		nuT = func(c int) float64 { return f.NuT[c] / eq.sigma }
	}
	sr.pmCell.ParallelFor(func(_, kMin, kMax int) {
		for k := kMin; k < kMax; k++ {
			for j := 0; j < g.Ny; j++ {
				for i := 0; i < g.Nx; i++ {
					var (
						ijk                = [3]int{i, j, k}
						P                  = g.CellIndex(i, j, k)
						diff, out, in, bsu float64
					)
					for fc := range st.aNb {
						st.aNb[fc][P] = 0
					}
					if eq.fixed != nil && !math.IsNaN(eq.fixed[P]) {
						st.aP[P], st.b[P] = 1, eq.fixed[P]
						if !cfg.Transient {
							st.b[P] = eq.relax*eq.fixed[P] + (1-eq.relax)*eq.phi[P]
						}
						continue
					}
					for d := 0; d < 3; d++ {
						var (
							A   = g.FaceArea(d)
							vel = f.Velocity(d)
						)
						for _, side := range [2]int{-1, 1} {
							face := types.Face(2 * d)
							fi := ijk
							if side > 0 {
								face++
								fi[d]++
							}
							F := float64(side) * vel[g.FaceIndex(d, fi[0], fi[1], fi[2])] * A
							if nb := ijk[d] + side; nb >= 0 && nb < n[d] {
								N := P + side*stride[d]
								D := (eq.gamma + 0.5*(nuT(P)+nuT(N))) * A / h[d]
								st.aNb[face][P] = D + max(-F, 0)
								diff += D
								out += max(F, 0)
								in += max(-F, 0)
								continue
							}
							ta, tb := FV3D.TangentAxes(face)
							var (
								bd = sr.BCs.FaceBoundary(face, ijk[ta], ijk[tb])
								bc = FV3D.Condition(FV3D.DefaultWall)
							)
							if bd != nil {
								bc = bd.Condition
							}
							val, fixed := eq.boundary(bd, bc)
							if fixed {
								D := (eq.gamma + nuT(P)) * A / (0.5 * h[d])
								diff += D
								bsu += D * val
							}
							if F > 0 {
								out += F
							} else if F < 0 && fixed {
								in += -F
								bsu += -F * val
							}
						}
					}
					aP := diff + max(out, in)
					if eq.sp != nil {
						aP += eq.sp[P]
					}
					if eq.su != nil {
						bsu += eq.su[P]
					}
					if cfg.Transient {
						aP += vol / cfg.TimeStep
						bsu += vol / cfg.TimeStep * eq.old[P]
					} else if eq.relax < 1 {
						aP /= eq.relax
						bsu += (1 - eq.relax) * aP * eq.phi[P]
					}
					st.aP[P], st.b[P] = aP, bsu
				}
			}
		}
	})
	return st.jacobi(sr.pmCell, eq.phi, stride, cfg.ScalarSweeps, cfg.ScalarTolerance)
}

// solveScalars advances temperature and humidity.
func (sr *SimulationRun) solveScalars() {
	var (
		cfg  = sr.Config
		f    = sr.fields
		st   = sr.cellStencil()
		rcp  = cfg.AirDensity * cfg.SpecificHeat
		heat = sr.scratch
	)
	for c, q := range sr.Sources.Heat {
		heat[c] = q / rcp
	}
	sr.solveScalar(scalarEquation{
		phi:   f.T,
		old:   sr.stepStart.T,
		gamma: cfg.ThermalDiffusivity,
		sigma: sr.turbulentSigma(cfg.TurbulentPrandtl),
		su:    heat,
		relax: cfg.ScalarRelaxation,
		boundary: func(_ *FV3D.Boundary, bc FV3D.Condition) (float64, bool) {
			switch c := bc.(type) {
			case FV3D.Inlet:
				return c.Temperature, true
			case FV3D.Wall:
				return c.Temperature, c.Thermal == FV3D.Isothermal
			}
			return 0, false
		},
	}, st)

	moisture := sr.scratch
	for c, m := range sr.Sources.Moisture {
		moisture[c] = m / cfg.AirDensity
	}
	sr.solveScalar(scalarEquation{
		phi:   f.H,
		old:   sr.stepStart.H,
		gamma: cfg.VapourDiffusivity,
		sigma: sr.turbulentSigma(cfg.TurbulentSchmidt),
		su:    moisture,
		relax: cfg.ScalarRelaxation,
		boundary: func(_ *FV3D.Boundary, bc FV3D.Condition) (float64, bool) {
			if in, ok := bc.(FV3D.Inlet); ok {
				return in.Humidity, true
			}
			return 0, false
		},
	}, st)
	for c, h := range f.H {
		if h < 0 {
			f.H[c] = 0
		}
	}
}

func (sr *SimulationRun) turbulentSigma(sigma float64) float64 {
	if sr.Config.TurbulenceModel == Laminar {
		return 0
	}
	return sigma
}

func (sr *SimulationRun) cellStencil() *stencil {
	if sr.cells == nil {
		st := newStencil(sr.Grid.NumCells())
		sr.cells = &st
	}
	return sr.cells
}
