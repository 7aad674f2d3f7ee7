package FV3D

import (
	"fmt"
	"math"

	"github.com/notargets/growcfd/types"
)

// Condition is one of Inlet, Outlet, Wall or PorousZone.
type Condition interface {
	Kind() types.BoundaryKind
	validate(face types.Face) error
}

type Inlet struct {
	Velocity            [3]float64 // m/s, global coordinates, must point into the domain
	Temperature         float64    // degC
	Humidity            float64    // kg/kg
	TurbulenceIntensity float64    // fraction of the inflow speed, e.g. 0.05
}

type Outlet struct {
	Pressure float64 // Pa, gauge reference
}

type WallThermal uint8

const (
	Adiabatic WallThermal = iota
	Isothermal
)

type Wall struct {
	Thermal     WallThermal
	Temperature float64 // degC, used when Thermal is Isothermal
}

// PorousZone is a block of cells partially obstructed by a plant canopy.
// The drag acceleration on the superficial velocity u is
// -(LinearResistance + QuadraticResistance*|u|) * u / Porosity.
type PorousZone struct {
	Porosity            float64 // open volume fraction, (0, 1]
	LinearResistance    float64 // 1/s
	QuadraticResistance float64 // 1/m
	HeatRate            float64 // W over the whole zone, negative for transpiration cooling
	MoistureRate        float64 // kg/s over the whole zone
}

func (Inlet) Kind() types.BoundaryKind      { return types.BK_Inlet }
func (Outlet) Kind() types.BoundaryKind     { return types.BK_Outlet }
func (Wall) Kind() types.BoundaryKind       { return types.BK_Wall }
func (PorousZone) Kind() types.BoundaryKind { return types.BK_PorousZone }

func (bc Inlet) validate(face types.Face) (err error) {
	if vn := -face.Sign() * bc.Velocity[face.Axis()]; !(vn > 0) {
		err = fmt.Errorf("%w: inlet on %v must have inward normal velocity, have %g m/s",
			ErrInvalidBoundary, face, vn)
	} else if bc.TurbulenceIntensity < 0 || bc.Humidity < 0 {
		err = fmt.Errorf("%w: inlet turbulence intensity and humidity must be non-negative",
			ErrInvalidBoundary)
	}
	return
}

func (bc Outlet) validate(types.Face) (err error) {
	if math.IsNaN(bc.Pressure) || math.IsInf(bc.Pressure, 0) {
		err = fmt.Errorf("%w: outlet pressure must be finite", ErrInvalidBoundary)
	}
	return
}

func (bc Wall) validate(types.Face) (err error) {
	if bc.Thermal > Isothermal {
		err = fmt.Errorf("%w: unknown wall thermal condition %d", ErrInvalidBoundary, bc.Thermal)
	}
	return
}

func (bc PorousZone) validate(types.Face) (err error) {
	if !(bc.Porosity > 0 && bc.Porosity <= 1) {
		err = fmt.Errorf("%w: porosity must be in (0, 1], have %g", ErrInvalidBoundary, bc.Porosity)
	} else if bc.LinearResistance < 0 || bc.QuadraticResistance < 0 {
		err = fmt.Errorf("%w: flow resistance must be non-negative", ErrInvalidBoundary)
	}
	return
}

// Region is either a rectangle of exterior faces on one domain face, or a box
// of cells (Face == NoFace). Index ranges are half-open. For face regions the
// range along the face normal is the single boundary cell layer.
type Region struct {
	Face     types.Face
	Min, Max [3]int
}

// FaceRegion selects faces [a0,a1) x [b0,b1) along the tangent axes of face,
// see TangentAxes.
func FaceRegion(face types.Face, a0, a1, b0, b1 int) (r Region) {
	r.Face = face
	if face >= types.NoFace {
		return
	}
	ta, tb := TangentAxes(face)
	r.Min[ta], r.Max[ta] = a0, a1
	r.Min[tb], r.Max[tb] = b0, b1
	// The normal range is filled in against the grid by BoundarySet.AddBoundary
	r.Min[face.Axis()], r.Max[face.Axis()] = -1, -1
	return
}

// WholeFace selects every boundary face of a domain face.
func (g *Grid) WholeFace(face types.Face) Region {
	nA, nB := g.FaceDims(face)
	return FaceRegion(face, 0, nA, 0, nB)
}

func CellBox(i0, i1, j0, j1, k0, k1 int) Region {
	return Region{
		Face: types.NoFace,
		Min:  [3]int{i0, j0, k0},
		Max:  [3]int{i1, j1, k1},
	}
}

func (r Region) IsFaceRegion() bool { return r.Face < types.NoFace }

// Cells returns the number of cells (or faces) selected.
func (r Region) Cells() (n int) {
	n = 1
	for ax := 0; ax < 3; ax++ {
		n *= max(r.Max[ax]-r.Min[ax], 0)
	}
	return
}

type BoundaryID int

type Boundary struct {
	ID        BoundaryID
	Region    Region
	Condition Condition
}

// DefaultWall applies to every exterior face not covered by a boundary.
var DefaultWall = Wall{Thermal: Adiabatic}

type BoundarySet struct {
	Grid       *Grid
	boundaries []Boundary
	faceOwner  [6][]int // boundary index per exterior face, -1 for the default wall
	cellOwner  []int    // porous zone index per cell, -1 for open cells
}

func NewBoundarySet(g *Grid) (bs *BoundarySet) {
	bs = &BoundarySet{
		Grid:      g,
		cellOwner: make([]int, g.NumCells()),
	}
	for _, face := range types.AllFaces {
		nA, nB := g.FaceDims(face)
		bs.faceOwner[face] = make([]int, nA*nB)
		fillInt(bs.faceOwner[face], -1)
	}
	fillInt(bs.cellOwner, -1)
	return
}

func fillInt(arr []int, val int) {
	for i := range arr {
		arr[i] = val
	}
}

// AddBoundary attaches a condition to a region. Inlet, Outlet and Wall attach
// to face regions, PorousZone to cell boxes. A region may overlap an existing
// one of the same kind, in which case the newer condition applies on the
// shared faces; overlap with a different kind is an error.
func (bs *BoundarySet) AddBoundary(region Region, bc Condition) (id BoundaryID, err error) {
	var (
		g    = bs.Grid
		n    = g.Dims()
		kind = bc.Kind()
	)
	id = -1
	if kind.IsFaceKind() != region.IsFaceRegion() {
		err = fmt.Errorf("%w: %v cannot be attached to a %s", ErrInvalidBoundary, kind,
			map[bool]string{true: "face region", false: "cell box"}[region.IsFaceRegion()])
		return
	}
	if region.IsFaceRegion() {
		ax := region.Face.Axis()
		region.Min[ax], region.Max[ax] = 0, 1
		if region.Face.Sign() > 0 {
			region.Min[ax], region.Max[ax] = n[ax]-1, n[ax]
		}
	}
	for ax := 0; ax < 3; ax++ {
		if region.Min[ax] < 0 || region.Max[ax] > n[ax] || region.Max[ax] <= region.Min[ax] {
			err = fmt.Errorf("%w: %v region [%v, %v) on grid %v", ErrOutOfDomain, kind,
				region.Min, region.Max, n)
			return
		}
	}
	if err = bc.validate(region.Face); err != nil {
		return
	}
	var (
		owners []int
		slots  = bs.slots(region)
	)
	if region.IsFaceRegion() {
		owners = bs.faceOwner[region.Face]
	} else {
		owners = bs.cellOwner
	}
	for _, s := range slots {
		if o := owners[s]; o >= 0 && bs.boundaries[o].Condition.Kind() != kind {
			err = fmt.Errorf("%w: %v region [%v, %v) overlaps %v boundary %d", ErrOverlappingRegion,
				kind, region.Min, region.Max, bs.boundaries[o].Condition.Kind(), o)
			return
		}
	}
	id = BoundaryID(len(bs.boundaries))
	bs.boundaries = append(bs.boundaries, Boundary{ID: id, Region: region, Condition: bc})
	for _, s := range slots {
		owners[s] = int(id)
	}
	return
}

// slots lists the owner array offsets covered by a validated region.
func (bs *BoundarySet) slots(r Region) (s []int) {
	var (
		g = bs.Grid
	)
	if !r.IsFaceRegion() {
		s = make([]int, 0, r.Cells())
		for k := r.Min[2]; k < r.Max[2]; k++ {
			for j := r.Min[1]; j < r.Max[1]; j++ {
				for i := r.Min[0]; i < r.Max[0]; i++ {
					s = append(s, g.CellIndex(i, j, k))
				}
			}
		}
		return
	}
	var (
		ta, tb = TangentAxes(r.Face)
		nA, _  = g.FaceDims(r.Face)
	)
	for b := r.Min[tb]; b < r.Max[tb]; b++ {
		for a := r.Min[ta]; a < r.Max[ta]; a++ {
			s = append(s, a+nA*b)
		}
	}
	return
}

func (bs *BoundarySet) Boundaries() []Boundary { return bs.boundaries }

// FaceBoundary returns the boundary owning exterior face (a,b) of a domain
// face, or nil when the default adiabatic wall applies.
func (bs *BoundarySet) FaceBoundary(face types.Face, a, b int) *Boundary {
	nA, _ := bs.Grid.FaceDims(face)
	if o := bs.faceOwner[face][a+nA*b]; o >= 0 {
		return &bs.boundaries[o]
	}
	return nil
}

// FaceCondition is FaceBoundary resolved to a condition, never nil.
func (bs *BoundarySet) FaceCondition(face types.Face, a, b int) Condition {
	if bd := bs.FaceBoundary(face, a, b); bd != nil {
		return bd.Condition
	}
	return DefaultWall
}

// Porous returns the porous zone containing a cell, if any.
func (bs *BoundarySet) Porous(cell int) (pz PorousZone, ok bool) {
	if o := bs.cellOwner[cell]; o >= 0 {
		return bs.boundaries[o].Condition.(PorousZone), true
	}
	return
}

// ZoneCells lists the cells currently owned by a porous zone boundary, taking
// later overlapping zones into account.
func (bs *BoundarySet) ZoneCells(id BoundaryID) (cells []int) {
	for _, s := range bs.slots(bs.boundaries[id].Region) {
		if bs.cellOwner[s] == int(id) {
			cells = append(cells, s)
		}
	}
	return
}

// HasKind reports whether any exterior face carries the given kind.
func (bs *BoundarySet) HasKind(kind types.BoundaryKind) bool {
	for _, bd := range bs.boundaries {
		if bd.Condition.Kind() == kind {
			return true
		}
	}
	return false
}

// ForEachFace visits every exterior face with its resolved condition.
func (bs *BoundarySet) ForEachFace(fn func(face types.Face, a, b int, bc Condition)) {
	for _, face := range types.AllFaces {
		nA, nB := bs.Grid.FaceDims(face)
		for b := 0; b < nB; b++ {
			for a := 0; a < nA; a++ {
				fn(face, a, b, bs.FaceCondition(face, a, b))
			}
		}
	}
}

// Clone returns an independent copy sharing only the grid.
func (bs *BoundarySet) Clone() (c *BoundarySet) {
	c = &BoundarySet{
		Grid:       bs.Grid,
		boundaries: append([]Boundary(nil), bs.boundaries...),
		cellOwner:  append([]int(nil), bs.cellOwner...),
	}
	for n := range bs.faceOwner {
		c.faceOwner[n] = append([]int(nil), bs.faceOwner[n]...)
	}
	return
}

// RegionSize is the physical extent of a region along each axis in metres;
// the normal extent of a face region is zero.
func (g *Grid) RegionSize(r Region) (size [3]float64) {
	d := g.Spacing()
	for ax := 0; ax < 3; ax++ {
		size[ax] = float64(r.Max[ax]-r.Min[ax]) * d[ax]
	}
	if r.IsFaceRegion() {
		size[r.Face.Axis()] = 0
	}
	return
}

// HydraulicDiameter of a face region, 4*area/perimeter.
func (g *Grid) HydraulicDiameter(r Region) float64 {
	var (
		s      = g.RegionSize(r)
		ta, tb = TangentAxes(r.Face)
	)
	if s[ta]+s[tb] == 0 {
		return 0
	}
	return 2 * s[ta] * s[tb] / (s[ta] + s[tb])
}
