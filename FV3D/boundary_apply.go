package FV3D

import (
	"github.com/notargets/growcfd/types"
)

// ApplyBoundaries re-clamps the velocity on every exterior face:
//   - inlet faces take the prescribed normal velocity
//   - wall faces take zero
//   - outlet faces take the outward part of the adjacent interior face
//     velocity, scaled so that total outflow equals total inflow; with no
//     interior outflow yet, or when an outlet axis is a single cell thick and
//     has no interior face, the inflow is spread uniformly over the outlets
//
// Only boundary faces are written and only interior faces are read, so
// calling it repeatedly gives the same result as calling it once.
func (bs *BoundarySet) ApplyBoundaries(f *Fields) {
	var (
		g                = bs.Grid
		qIn, qExt, aOut  float64
		haveOutlet, thin bool
		dims             = g.Dims()
		outletExtrapolat = func(face types.Face, a, b int) float64 {
			vel := f.Velocity(face.Axis())
			return max(face.Sign()*vel[g.InteriorFaceIndex(face, a, b)], 0)
		}
	)
	bs.ForEachFace(func(face types.Face, a, b int, bc Condition) {
		var (
			vel  = f.Velocity(face.Axis())
			ind  = g.BoundaryFaceIndex(face, a, b)
			area = g.FaceArea(face.Axis())
		)
		switch c := bc.(type) {
		case Inlet:
			vel[ind] = c.Velocity[face.Axis()]
			qIn += -face.Sign() * vel[ind] * area
		case Outlet:
			haveOutlet = true
			thin = thin || dims[face.Axis()] == 1
			qExt += outletExtrapolat(face, a, b) * area
			aOut += area
		default:
			vel[ind] = 0
		}
	})
	if !haveOutlet {
		return
	}
	var (
		uniform = thin || qExt <= 1e-12*max(qIn, 1e-12)
		scale   float64
	)
	if !uniform {
		scale = qIn / qExt
	}
	bs.ForEachFace(func(face types.Face, a, b int, bc Condition) {
		if bc.Kind() != types.BK_Outlet {
			return
		}
		var (
			vel = f.Velocity(face.Axis())
			ind = g.BoundaryFaceIndex(face, a, b)
			un  float64
		)
		if uniform {
			un = qIn / aOut
		} else {
			un = scale * outletExtrapolat(face, a, b)
		}
		vel[ind] = face.Sign() * un
	})
}

// FlowRates returns the volumetric inflow through inlets and the outflow
// through outlets (both positive for flow in their nominal direction), m3/s.
func (bs *BoundarySet) FlowRates(f *Fields) (qIn, qOut float64) {
	var (
		g = bs.Grid
	)
	bs.ForEachFace(func(face types.Face, a, b int, bc Condition) {
		un := f.BoundaryNormalVelocity(g, face, a, b) * g.FaceArea(face.Axis())
		switch bc.Kind() {
		case types.BK_Inlet:
			qIn -= un
		case types.BK_Outlet:
			qOut += un
		}
	})
	return
}

// AdjacentCells lists the interior cells next to every exterior face of the
// given kind, once per face.
func (bs *BoundarySet) AdjacentCells(kind types.BoundaryKind) (cells []int) {
	var (
		g = bs.Grid
	)
	bs.ForEachFace(func(face types.Face, a, b int, bc Condition) {
		if bc.Kind() == kind {
			cells = append(cells, g.CellIndex(g.BoundaryCell(face, a, b)))
		}
	})
	return
}
