package FV3D

import (
	"github.com/notargets/growcfd/types"
	"github.com/notargets/growcfd/utils"
)

// Fields holds the solution state of a grid. Cell centered arrays are indexed
// by Grid.CellIndex, face velocities by UIndex/VIndex/WIndex.
type Fields struct {
	U, V, W []float64 // m/s, staggered
	P       []float64 // Pa, gauge
	T       []float64 // degC
	H       []float64 // humidity ratio, kg water / kg dry air
	K       []float64 // turbulent kinetic energy, m2/s2
	Eps     []float64 // dissipation rate, m2/s3
	NuT     []float64 // eddy viscosity, m2/s
}

func NewFields(g *Grid) (f *Fields) {
	var (
		nc = g.NumCells()
	)
	f = &Fields{
		U:   make([]float64, g.FaceCount(0)),
		V:   make([]float64, g.FaceCount(1)),
		W:   make([]float64, g.FaceCount(2)),
		P:   make([]float64, nc),
		T:   make([]float64, nc),
		H:   make([]float64, nc),
		K:   make([]float64, nc),
		Eps: make([]float64, nc),
		NuT: make([]float64, nc),
	}
	return
}

func (f *Fields) Copy() (c *Fields) {
	c = &Fields{}
	c.all(func(dst *[]float64, src []float64) {
		*dst = make([]float64, len(src))
		copy(*dst, src)
	}, f)
	return
}

// CopyFrom overwrites f with src without allocating; both must belong to the
// same grid.
func (f *Fields) CopyFrom(src *Fields) {
	f.all(func(dst *[]float64, s []float64) {
		copy(*dst, s)
	}, src)
}

func (f *Fields) all(op func(dst *[]float64, src []float64), src *Fields) {
	op(&f.U, src.U)
	op(&f.V, src.V)
	op(&f.W, src.W)
	op(&f.P, src.P)
	op(&f.T, src.T)
	op(&f.H, src.H)
	op(&f.K, src.K)
	op(&f.Eps, src.Eps)
	op(&f.NuT, src.NuT)
}

// Velocity returns the staggered array of the component along axis.
func (f *Fields) Velocity(axis int) []float64 {
	switch axis {
	case 0:
		return f.U
	case 1:
		return f.V
	default:
		return f.W
	}
}

// Finite is false if any entry of any field is NaN or infinite.
func (f *Fields) Finite() bool {
	return utils.AllFinite(f.U, f.V, f.W, f.P, f.T, f.H, f.K, f.Eps, f.NuT)
}

// CellVelocity interpolates the staggered velocity to the center of (i,j,k).
func (f *Fields) CellVelocity(g *Grid, i, j, k int) (u, v, w float64) {
	u = 0.5 * (f.U[g.UIndex(i, j, k)] + f.U[g.UIndex(i+1, j, k)])
	v = 0.5 * (f.V[g.VIndex(i, j, k)] + f.V[g.VIndex(i, j+1, k)])
	w = 0.5 * (f.W[g.WIndex(i, j, k)] + f.W[g.WIndex(i, j, k+1)])
	return
}

// Divergence is the net volumetric outflow of cell (i,j,k), m3/s.
func (f *Fields) Divergence(g *Grid, i, j, k int) float64 {
	return (f.U[g.UIndex(i+1, j, k)]-f.U[g.UIndex(i, j, k)])*g.FaceArea(0) +
		(f.V[g.VIndex(i, j+1, k)]-f.V[g.VIndex(i, j, k)])*g.FaceArea(1) +
		(f.W[g.WIndex(i, j, k+1)]-f.W[g.WIndex(i, j, k)])*g.FaceArea(2)
}

// BoundaryNormalVelocity is the velocity on boundary face (a,b) of a domain
// face, positive along the outward normal.
func (f *Fields) BoundaryNormalVelocity(g *Grid, face types.Face, a, b int) float64 {
	return face.Sign() * f.Velocity(face.Axis())[g.BoundaryFaceIndex(face, a, b)]
}

func Fill(arr []float64, val float64) {
	for i := range arr {
		arr[i] = val
	}
}

// CellValue reads a cell centered array at (i,j,k). Built with the
// growcfddebug tag the index is bounds checked.
func (g *Grid) CellValue(arr []float64, i, j, k int) float64 {
	return arr[g.CellIndex(i, j, k)]
}

func (g *Grid) SetCellValue(arr []float64, i, j, k int, val float64) {
	arr[g.CellIndex(i, j, k)] = val
}
