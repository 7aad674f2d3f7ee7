package FV3D

import (
	"errors"
	"fmt"
	"math"

	"github.com/notargets/growcfd/types"
)

var (
	ErrInvalidDimension  = errors.New("invalid grid dimension")
	ErrOverlappingRegion = errors.New("overlapping boundary region")
	ErrOutOfDomain       = errors.New("region outside of domain")
	ErrInvalidBoundary   = errors.New("invalid boundary condition")
)

/*
Grid is a uniform rectilinear finite volume mesh.

	Scalars live at cell centers, cell (i,j,k) has linear index i + Nx*(j + Ny*k)
	Velocity components live on the faces normal to their direction (staggered):
		U on x-faces, (Nx+1) x Ny x Nz, face i sits between cells i-1 and i
		V on y-faces, Nx x (Ny+1) x Nz
		W on z-faces, Nx x Ny x (Nz+1)
*/
type Grid struct {
	Lx, Ly, Lz float64
	Nx, Ny, Nz int
	Dx, Dy, Dz float64
}

func NewGrid(Lx, Ly, Lz float64, nx, ny, nz int) (g *Grid, err error) {
	for _, L := range []float64{Lx, Ly, Lz} {
		if !(L > 0) || math.IsInf(L, 0) {
			err = fmt.Errorf("%w: extents must be positive and finite, have (%g, %g, %g)",
				ErrInvalidDimension, Lx, Ly, Lz)
			return
		}
	}
	if nx <= 0 || ny <= 0 || nz <= 0 {
		err = fmt.Errorf("%w: cell counts must be positive, have (%d, %d, %d)",
			ErrInvalidDimension, nx, ny, nz)
		return
	}
	g = &Grid{
		Lx: Lx, Ly: Ly, Lz: Lz,
		Nx: nx, Ny: ny, Nz: nz,
		Dx: Lx / float64(nx), Dy: Ly / float64(ny), Dz: Lz / float64(nz),
	}
	return
}

func (g *Grid) NumCells() int { return g.Nx * g.Ny * g.Nz }

func (g *Grid) Dims() [3]int { return [3]int{g.Nx, g.Ny, g.Nz} }

func (g *Grid) Spacing() [3]float64 { return [3]float64{g.Dx, g.Dy, g.Dz} }

func (g *Grid) Extents() [3]float64 { return [3]float64{g.Lx, g.Ly, g.Lz} }

func (g *Grid) CellVolume() float64 { return g.Dx * g.Dy * g.Dz }

func (g *Grid) Volume() float64 { return g.Lx * g.Ly * g.Lz }

// FaceArea is the area of a cell face normal to axis.
func (g *Grid) FaceArea(axis int) float64 {
	switch axis {
	case 0:
		return g.Dy * g.Dz
	case 1:
		return g.Dx * g.Dz
	default:
		return g.Dx * g.Dy
	}
}

func (g *Grid) CellIndex(i, j, k int) int {
	if checkBounds && (i < 0 || i >= g.Nx || j < 0 || j >= g.Ny || k < 0 || k >= g.Nz) {
		panic(fmt.Errorf("cell index (%d,%d,%d) outside grid %dx%dx%d", i, j, k, g.Nx, g.Ny, g.Nz))
	}
	return i + g.Nx*(j+g.Ny*k)
}

// CellIJK inverts CellIndex.
func (g *Grid) CellIJK(ind int) (i, j, k int) {
	i = ind % g.Nx
	j = (ind / g.Nx) % g.Ny
	k = ind / (g.Nx * g.Ny)
	return
}

func (g *Grid) UIndex(i, j, k int) int {
	if checkBounds && (i < 0 || i > g.Nx || j < 0 || j >= g.Ny || k < 0 || k >= g.Nz) {
		panic(fmt.Errorf("u-face index (%d,%d,%d) outside grid", i, j, k))
	}
	return i + (g.Nx+1)*(j+g.Ny*k)
}

func (g *Grid) VIndex(i, j, k int) int {
	if checkBounds && (i < 0 || i >= g.Nx || j < 0 || j > g.Ny || k < 0 || k >= g.Nz) {
		panic(fmt.Errorf("v-face index (%d,%d,%d) outside grid", i, j, k))
	}
	return i + g.Nx*(j+(g.Ny+1)*k)
}

func (g *Grid) WIndex(i, j, k int) int {
	if checkBounds && (i < 0 || i >= g.Nx || j < 0 || j >= g.Ny || k < 0 || k > g.Nz) {
		panic(fmt.Errorf("w-face index (%d,%d,%d) outside grid", i, j, k))
	}
	return i + g.Nx*(j+g.Ny*k)
}

// FaceIndex dispatches to UIndex, VIndex or WIndex by axis.
func (g *Grid) FaceIndex(axis, i, j, k int) int {
	switch axis {
	case 0:
		return g.UIndex(i, j, k)
	case 1:
		return g.VIndex(i, j, k)
	default:
		return g.WIndex(i, j, k)
	}
}

// FaceCount is the number of staggered faces normal to axis.
func (g *Grid) FaceCount(axis int) int {
	d := g.Dims()
	d[axis]++
	return d[0] * d[1] * d[2]
}

func (g *Grid) CellCenter(i, j, k int) (x, y, z float64) {
	x = (float64(i) + 0.5) * g.Dx
	y = (float64(j) + 0.5) * g.Dy
	z = (float64(k) + 0.5) * g.Dz
	return
}

// FaceCenter is the center of the face normal to axis with the staggered index
// (i,j,k), i.e. the x-face i lies at x = i*Dx.
func (g *Grid) FaceCenter(axis, i, j, k int) (x, y, z float64) {
	x, y, z = g.CellCenter(i, j, k)
	switch axis {
	case 0:
		x -= 0.5 * g.Dx
	case 1:
		y -= 0.5 * g.Dy
	default:
		z -= 0.5 * g.Dz
	}
	return
}

// Neighbor returns the adjacent cell across the given face of (i,j,k). At the
// domain boundary the index is clamped to the cell itself and ok is false.
func (g *Grid) Neighbor(i, j, k int, dir types.Face) (ni, nj, nk int, ok bool) {
	var (
		ijk = [3]int{i, j, k}
		ax  = dir.Axis()
		n   = g.Dims()[ax]
	)
	ijk[ax] += int(dir.Sign())
	ok = true
	if ijk[ax] < 0 || ijk[ax] >= n {
		ijk[ax] = min(max(ijk[ax], 0), n-1)
		ok = false
	}
	return ijk[0], ijk[1], ijk[2], ok
}

// CellContaining maps a physical position to the cell enclosing it. Points
// on the upper extent of an axis belong to the last cell along that axis.
func (g *Grid) CellContaining(x, y, z float64) (i, j, k int, ok bool) {
	var (
		pos = [3]float64{x, y, z}
		L   = g.Extents()
		d   = g.Spacing()
		n   = g.Dims()
		ijk [3]int
	)
	for ax := 0; ax < 3; ax++ {
		if math.IsNaN(pos[ax]) || pos[ax] < 0 || pos[ax] > L[ax] {
			return 0, 0, 0, false
		}
		ijk[ax] = min(int(pos[ax]/d[ax]), n[ax]-1)
	}
	return ijk[0], ijk[1], ijk[2], true
}

// TangentAxes are the two axes spanning a face, in increasing order.
func TangentAxes(face types.Face) (a, b int) {
	switch face.Axis() {
	case 0:
		return 1, 2
	case 1:
		return 0, 2
	default:
		return 0, 1
	}
}

// FaceDims is the number of boundary faces along each tangent axis of a
// domain face.
func (g *Grid) FaceDims(face types.Face) (nA, nB int) {
	var (
		a, b = TangentAxes(face)
		n    = g.Dims()
	)
	return n[a], n[b]
}

// BoundaryCell is the interior cell adjacent to boundary face (a,b) of a
// domain face.
func (g *Grid) BoundaryCell(face types.Face, a, b int) (i, j, k int) {
	var (
		ijk      [3]int
		ta, tb   = TangentAxes(face)
		ax       = face.Axis()
		n        = g.Dims()
		boundary = 0
	)
	if face.Sign() > 0 {
		boundary = n[ax] - 1
	}
	ijk[ax], ijk[ta], ijk[tb] = boundary, a, b
	return ijk[0], ijk[1], ijk[2]
}

// BoundaryFaceIndex is the staggered velocity index of the face lying on the
// domain boundary; InteriorFaceIndex is the next face inward along the normal.
func (g *Grid) BoundaryFaceIndex(face types.Face, a, b int) int {
	var (
		i, j, k = g.BoundaryCell(face, a, b)
		ijk     = [3]int{i, j, k}
		ax      = face.Axis()
	)
	if face.Sign() > 0 {
		ijk[ax]++
	}
	return g.FaceIndex(ax, ijk[0], ijk[1], ijk[2])
}

func (g *Grid) InteriorFaceIndex(face types.Face, a, b int) int {
	var (
		i, j, k = g.BoundaryCell(face, a, b)
		ijk     = [3]int{i, j, k}
		ax      = face.Axis()
	)
	if face.Sign() < 0 {
		ijk[ax]++
	}
	return g.FaceIndex(ax, ijk[0], ijk[1], ijk[2])
}

// FaceRegionAt converts a physical rectangle on a domain face, given as
// [lo, hi] along the two tangent axes in metres, into the set of boundary
// faces whose centers fall inside it. A rectangle smaller than a cell selects
// the single face containing its midpoint.
func (g *Grid) FaceRegionAt(face types.Face, lo, hi [2]float64) (r Region, err error) {
	if face >= types.NoFace {
		err = fmt.Errorf("%w: invalid face %v", ErrOutOfDomain, face)
		return
	}
	var (
		ta, tb = TangentAxes(face)
		rng    [2][2]int
	)
	for n, ax := range [2]int{ta, tb} {
		if rng[n][0], rng[n][1], err = g.cellSpan(ax, lo[n], hi[n]); err != nil {
			return
		}
	}
	r = FaceRegion(face, rng[0][0], rng[0][1], rng[1][0], rng[1][1])
	return
}

// CellBoxAt converts a physical box into the cells whose centers fall inside.
func (g *Grid) CellBoxAt(lo, hi [3]float64) (r Region, err error) {
	var rng [3][2]int
	for ax := 0; ax < 3; ax++ {
		if rng[ax][0], rng[ax][1], err = g.cellSpan(ax, lo[ax], hi[ax]); err != nil {
			return
		}
	}
	r = CellBox(rng[0][0], rng[0][1], rng[1][0], rng[1][1], rng[2][0], rng[2][1])
	return
}

func (g *Grid) cellSpan(ax int, lo, hi float64) (c0, c1 int, err error) {
	var (
		L   = g.Extents()[ax]
		d   = g.Spacing()[ax]
		n   = g.Dims()[ax]
		tol = 1e-9 * L
	)
	if hi < lo {
		lo, hi = hi, lo
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || lo < -tol || hi > L+tol {
		err = fmt.Errorf("%w: span [%g, %g] exceeds [0, %g] along axis %d",
			ErrOutOfDomain, lo, hi, L, ax)
		return
	}
	c0 = int(math.Ceil(lo/d - 0.5 - 1e-9))
	c1 = int(math.Floor(hi/d-0.5+1e-9)) + 1
	c0, c1 = max(c0, 0), min(c1, n)
	if c1 <= c0 {
		c0 = min(int(0.5*(lo+hi)/d), n-1)
		c1 = c0 + 1
	}
	return
}
