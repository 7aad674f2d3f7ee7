package Climate3D

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/growcfd/FV3D"
	"github.com/notargets/growcfd/types"
	"github.com/notargets/growcfd/utils"
)

// pressureSystem is the pressure correction equation
//
//	sum_f c_f (p'_P - p'_Nb) = -div(u*),  c_f = A_f d_f
//
// Every boundary face carries a prescribed velocity, so c_f is zero there and
// the problem is pure Neumann; p' is determined up to a constant.
type pressureSystem struct {
	pc, rhs   []float64
	converged bool
	misses    int // outer iterations whose correction did not reach tolerance
	sweeps    int // sweeps or CG iterations of the last solve
}

func newPressureSystem(g *FV3D.Grid) *pressureSystem {
	return &pressureSystem{
		pc:  make([]float64, g.NumCells()),
		rhs: make([]float64, g.NumCells()),
	}
}

// faceCoef is c_f of the staggered face normal to axis at (i,j,k).
func (sr *SimulationRun) faceCoef(axis, i, j, k int) float64 {
	return sr.Grid.FaceArea(axis) * sr.mom[axis].d[sr.Grid.FaceIndex(axis, i, j, k)]
}

// solvePressureCorrection enforces continuity on the momentum predictor:
// solves for p', corrects the face velocities with the full p' and the
// pressure with PressureRelaxation * p', then re-references the pressure.
func (sr *SimulationRun) solvePressureCorrection() {
	var (
		g   = sr.Grid
		ps  = sr.pc
		f   = sr.fields
		cfg = sr.Config
	)
	sr.BCs.ApplyBoundaries(f)
	sr.pmCell.ParallelFor(func(_, kMin, kMax int) {
		for k := kMin; k < kMax; k++ {
			for j := 0; j < g.Ny; j++ {
				for i := 0; i < g.Nx; i++ {
					ps.rhs[g.CellIndex(i, j, k)] = -f.Divergence(g, i, j, k)
				}
			}
		}
	})
	// Only the part of the imbalance orthogonal to the null space can be removed
	floats.AddConst(-floats.Sum(ps.rhs)/float64(len(ps.rhs)), ps.rhs)
	FV3D.Fill(ps.pc, 0)
	switch cfg.PressureSolver {
	case PressureCG:
		A := utils.PoissonMatrix(g.Nx, g.Ny, g.Nz, sr.faceCoef)
		res := utils.ConjugateGradient(A, ps.rhs, ps.pc, cfg.PressureTolerance, cfg.PressureSweeps, true)
		ps.converged, ps.sweeps = res.Converged, res.Iterations
	default:
		ps.converged, ps.sweeps = sr.redBlackSOR()
	}
	if !ps.converged {
		ps.misses++
	}
	sr.correctVelocity()
	floats.AddScaled(f.P, cfg.PressureRelaxation, ps.pc)
	sr.referencePressure()
	sr.BCs.ApplyBoundaries(f)
}

// redBlackSOR relaxes the cells of one parity while the other is frozen, so
// each colour is updated in parallel over k-slabs.
func (sr *SimulationRun) redBlackSOR() (converged bool, sweeps int) {
	var (
		g     = sr.Grid
		ps    = sr.pc
		omega = sr.Config.SORFactor
		bNorm = floats.Norm(ps.rhs, 2)
	)
	if bNorm == 0 {
		return true, 0
	}
	for sweeps = 1; sweeps <= sr.Config.PressureSweeps; sweeps++ {
		for color := 0; color < 2; color++ {
			sr.pmCell.ParallelFor(func(_, kMin, kMax int) {
				for k := kMin; k < kMax; k++ {
					for j := 0; j < g.Ny; j++ {
						for i := (color + j + k) % 2; i < g.Nx; i += 2 {
							aP, sum := sr.pressureRow(i, j, k)
							if aP == 0 {
								continue
							}
							ind := g.CellIndex(i, j, k)
							ps.pc[ind] += omega * ((sum+ps.rhs[ind])/aP - ps.pc[ind])
						}
					}
				}
			})
		}
		if sweeps%10 == 0 || sweeps == sr.Config.PressureSweeps {
			if sr.pressureResidual()/bNorm < sr.Config.PressureTolerance {
				converged = true
				break
			}
		}
	}
	mean := floats.Sum(ps.pc) / float64(len(ps.pc))
	floats.AddConst(-mean, ps.pc)
	return
}

// pressureRow returns the diagonal of cell (i,j,k) and sum c_f p'_Nb.
func (sr *SimulationRun) pressureRow(i, j, k int) (aP, sum float64) {
	var (
		g      = sr.Grid
		pc     = sr.pc.pc
		ijk    = [3]int{i, j, k}
		stride = [3]int{1, g.Nx, g.Nx * g.Ny}
		ind    = g.CellIndex(i, j, k)
	)
	for d := 0; d < 3; d++ {
		if c := sr.faceCoef(d, i, j, k); c != 0 {
			aP += c
			sum += c * pc[ind-stride[d]]
		}
		up := ijk
		up[d]++
		if c := sr.faceCoef(d, up[0], up[1], up[2]); c != 0 {
			aP += c
			sum += c * pc[ind+stride[d]]
		}
	}
	return
}

func (sr *SimulationRun) pressureResidual() float64 {
	var (
		g  = sr.Grid
		ps = sr.pc
	)
	return math.Sqrt(sr.pmCell.ParallelSum(func(kMin, kMax int) (sum float64) {
		for k := kMin; k < kMax; k++ {
			for j := 0; j < g.Ny; j++ {
				for i := 0; i < g.Nx; i++ {
					var (
						aP, nb = sr.pressureRow(i, j, k)
						ind    = g.CellIndex(i, j, k)
						r      = ps.rhs[ind] + nb - aP*ps.pc[ind]
					)
					sum += r * r
				}
			}
		}
		return
	}))
}

// correctVelocity applies u = u* + d (p'_lo - p'_hi) on interior faces.
func (sr *SimulationRun) correctVelocity() {
	var (
		g  = sr.Grid
		pc = sr.pc.pc
	)
	for ax := 0; ax < 3; ax++ {
		var (
			vel     = sr.fields.Velocity(ax)
			d       = sr.mom[ax].d
			dims, _ = staggeredStrides(g, ax)
			n       = g.Dims()
		)
		sr.pm[ax].ParallelFor(func(_, kMin, kMax int) {
			for k := kMin; k < kMax; k++ {
				for j := 0; j < dims[1]; j++ {
					for i := 0; i < dims[0]; i++ {
						ijk := [3]int{i, j, k}
						if ijk[ax] == 0 || ijk[ax] == n[ax] {
							continue
						}
						idx := g.FaceIndex(ax, i, j, k)
						lo := ijk
						lo[ax]--
						vel[idx] += d[idx] * (pc[g.CellIndex(lo[0], lo[1], lo[2])] - pc[g.CellIndex(i, j, k)])
					}
				}
			}
		})
	}
}

// referencePressure shifts the pressure so that the mean over the cells next
// to the outlets equals the outlet pressure, or to zero mean without outlets.
func (sr *SimulationRun) referencePressure() {
	var (
		g     = sr.Grid
		p     = sr.fields.P
		shift float64
		n     int
	)
	sr.BCs.ForEachFace(func(face types.Face, a, b int, bc FV3D.Condition) {
		if out, ok := bc.(FV3D.Outlet); ok {
			i, j, k := g.BoundaryCell(face, a, b)
			shift += p[g.CellIndex(i, j, k)] - out.Pressure
			n++
		}
	})
	if n > 0 {
		shift /= float64(n)
	} else {
		shift = floats.Sum(p) / float64(len(p))
	}
	floats.AddConst(-shift, p)
}
