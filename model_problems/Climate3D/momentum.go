package Climate3D

import (
	"math"

	"github.com/notargets/growcfd/FV3D"
	"github.com/notargets/growcfd/types"
)

// momentumSystem is the linearized equation of one velocity component on its
// staggered faces. Boundary faces keep aP = 0 and are never updated.
type momentumSystem struct {
	stencil
	d []float64 // A/(rho aP), the pressure correction coefficient
}

func newMomentumSystem(n int) *momentumSystem {
	return &momentumSystem{
		stencil: newStencil(n),
		d:       make([]float64, n),
	}
}

// staggeredStrides are the index strides of the face array normal to axis.
func staggeredStrides(g *FV3D.Grid, axis int) (dims, stride [3]int) {
	dims = g.Dims()
	dims[axis]++
	stride = [3]int{1, dims[0], dims[0] * dims[1]}
	return
}

// tangentialVelocity is the velocity component along axis imposed by a
// boundary on the flow parallel to it. Outlets impose none.
func tangentialVelocity(bc FV3D.Condition, axis int) (val float64, fixed bool) {
	switch c := bc.(type) {
	case FV3D.Inlet:
		return c.Velocity[axis], true
	case FV3D.Outlet:
		return 0, false
	default:
		return 0, true
	}
}

// solveMomentum assembles and relaxes all three velocity components against
// the current pressure.
func (sr *SimulationRun) solveMomentum() {
	for ax := 0; ax < 3; ax++ {
		sr.assembleMomentum(ax)
	}
	for ax := 0; ax < 3; ax++ {
		sr.sweepMomentum(ax)
	}
}

func (sr *SimulationRun) assembleMomentum(ax int) {
	var (
		g         = sr.Grid
		cfg       = sr.Config
		f         = sr.fields
		ms        = sr.mom[ax]
		vel       = f.Velocity(ax)
		old       = sr.stepStart.Velocity(ax)
		n         = g.Dims()
		h         = g.Spacing()
		vol       = g.CellVolume()
		rho       = cfg.AirDensity
		nu        = cfg.AirViscosity
		alpha     = cfg.VelocityRelaxation
		_, stride = staggeredStrides(g, ax)
		beta      = 1. / (sr.tRef + 273.15)
	)
	sr.pm[ax].ParallelFor(func(_, kMin, kMax int) {
		var (
			dims, _ = staggeredStrides(g, ax)
		)
		for k := kMin; k < kMax; k++ {
			for j := 0; j < dims[1]; j++ {
				for i := 0; i < dims[0]; i++ {
					var (
						ijk = [3]int{i, j, k}
						idx = g.FaceIndex(ax, i, j, k)
					)
					for fc := range ms.aNb {
						ms.aNb[fc][idx] = 0
					}
					if ijk[ax] == 0 || ijk[ax] == n[ax] {
						ms.aP[idx], ms.b[idx], ms.d[idx] = 0, 0, 0
						continue
					}
					var (
						lo, hi          = ijk, ijk
						cLo, cHi        int
						diff, out, in   float64
						drag, src, bSum float64
					)
					lo[ax]--
					cLo, cHi = g.CellIndex(lo[0], lo[1], lo[2]), g.CellIndex(hi[0], hi[1], hi[2])
					gamCV := nu + 0.5*(f.NuT[cLo]+f.NuT[cHi])
					for d := 0; d < 3; d++ {
						A := g.FaceArea(d)
						for _, side := range [2]int{-1, 1} {
							face := types.Face(2 * d)
							if side > 0 {
								face++
							}
							if d == ax {
								cell := cHi
								if side < 0 {
									cell = cLo
								}
								var (
									F = float64(side) * 0.5 * (vel[idx] + vel[idx+side*stride[ax]]) * A
									D = (nu + f.NuT[cell]) * A / h[ax]
								)
								ms.aNb[face][idx] = D + max(-F, 0)
								diff += D
								out += max(F, 0)
								in += max(-F, 0)
								continue
							}
							var (
								vd       = f.Velocity(d)
								fHi, fLo = hi, lo
							)
							if side > 0 {
								fHi[d]++
								fLo[d]++
							}
							if nb := ijk[d] + side; nb >= 0 && nb < n[d] {
								var (
									F = float64(side) * 0.5 *
										(vd[g.FaceIndex(d, fLo[0], fLo[1], fLo[2])] +
											vd[g.FaceIndex(d, fHi[0], fHi[1], fHi[2])]) * A
									D = gamCV * A / h[d]
								)
								ms.aNb[face][idx] = D + max(-F, 0)
								diff += D
								out += max(F, 0)
								in += max(-F, 0)
								continue
							}
							// Domain boundary, each adjacent cell owns half of the control volume face
							ta, tb := FV3D.TangentAxes(face)
							for _, c := range [2][3]int{lo, hi} {
								var (
									bc        = sr.BCs.FaceCondition(face, c[ta], c[tb])
									ub, fixed = tangentialVelocity(bc, ax)
									Fh        = float64(side) * vd[g.BoundaryFaceIndex(face, c[ta], c[tb])] * 0.5 * A
								)
								if fixed {
									Dh := gamCV * A / h[d]
									diff += Dh
									bSum += Dh * ub
								}
								if Fh >= 0 {
									out += Fh
								} else if fixed {
									in += -Fh
									bSum += -Fh * ub
								}
							}
						}
					}
					// Porous drag, implicit
					for _, c := range [2]int{cLo, cHi} {
						if pz, ok := sr.BCs.Porous(c); ok {
							drag += 0.5 * (pz.LinearResistance + pz.QuadraticResistance*math.Abs(vel[idx])) /
								pz.Porosity * vol
						}
					}
					// Cell momentum sources, shared by the two faces of a cell unless one is on the boundary
					src = sr.Sources.Momentum[cLo][ax] * 0.5
					if lo[ax] == 0 {
						src *= 2
					}
					if hi[ax] == n[ax]-1 {
						src += sr.Sources.Momentum[cHi][ax]
					} else {
						src += sr.Sources.Momentum[cHi][ax] * 0.5
					}
					bSum += src / rho
					bSum += (f.P[cLo] - f.P[cHi]) * g.FaceArea(ax) / rho
					if ax == 2 && cfg.Buoyancy {
						Tf := 0.5 * (f.T[cLo] + f.T[cHi])
						bSum += cfg.Gravity * beta * (Tf - sr.tRef) * vol
					}
					aP := diff + max(out, in) + drag
					if cfg.Transient {
						aP += vol / cfg.TimeStep
						bSum += vol / cfg.TimeStep * old[idx]
					}
					aP /= alpha
					bSum += (1 - alpha) * aP * vel[idx]
					ms.aP[idx], ms.b[idx] = aP, bSum
					ms.d[idx] = g.FaceArea(ax) / (rho * aP)
				}
			}
		}
	})
}

// sweepMomentum runs Jacobi sweeps of one component.
func (sr *SimulationRun) sweepMomentum(ax int) {
	_, stride := staggeredStrides(sr.Grid, ax)
	sr.mom[ax].jacobi(sr.pm[ax], sr.fields.Velocity(ax), stride, sr.Config.MomentumSweeps, 0)
}
