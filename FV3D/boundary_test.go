package FV3D

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/growcfd/types"
)

func newTestRoom(t *testing.T) (g *Grid, bs *BoundarySet) {
	var err error
	g, err = NewGrid(4, 2, 2, 4, 2, 2)
	require.NoError(t, err)
	bs = NewBoundarySet(g)
	return
}

func TestAddBoundary(t *testing.T) {
	g, bs := newTestRoom(t)
	inlet := Inlet{Velocity: [3]float64{1, 0, 0}, Temperature: 20}
	id, err := bs.AddBoundary(g.WholeFace(types.XMin), inlet)
	require.NoError(t, err)
	assert.Equal(t, BoundaryID(0), id)
	id, err = bs.AddBoundary(FaceRegion(types.XMax, 0, 1, 0, 2), Outlet{})
	require.NoError(t, err)
	assert.Equal(t, BoundaryID(1), id)

	assert.Equal(t, types.BK_Inlet, bs.FaceCondition(types.XMin, 1, 1).Kind())
	assert.Equal(t, types.BK_Outlet, bs.FaceCondition(types.XMax, 0, 1).Kind())
	// Unassigned faces default to adiabatic walls
	assert.Nil(t, bs.FaceBoundary(types.XMax, 1, 1))
	assert.Equal(t, DefaultWall, bs.FaceCondition(types.XMax, 1, 1))
	assert.Equal(t, DefaultWall, bs.FaceCondition(types.ZMax, 3, 1))
	assert.True(t, bs.HasKind(types.BK_Outlet))
	assert.False(t, bs.HasKind(types.BK_PorousZone))
	assert.Len(t, bs.Boundaries(), 2)

	{ // A different kind on an assigned face is rejected
		_, err = bs.AddBoundary(FaceRegion(types.XMax, 0, 2, 1, 2), Wall{})
		assert.True(t, errors.Is(err, ErrOverlappingRegion))
		assert.Len(t, bs.Boundaries(), 2)
	}
	{ // Same kind overlap takes the newer condition
		hot := Inlet{Velocity: [3]float64{2, 0, 0}, Temperature: 30}
		id, err = bs.AddBoundary(FaceRegion(types.XMin, 0, 1, 0, 1), hot)
		require.NoError(t, err)
		assert.Equal(t, hot, bs.FaceCondition(types.XMin, 0, 0))
		assert.Equal(t, inlet, bs.FaceCondition(types.XMin, 1, 0))
	}
	{ // Regions outside the grid or empty
		_, err = bs.AddBoundary(FaceRegion(types.YMin, 0, 5, 0, 1), Wall{})
		assert.True(t, errors.Is(err, ErrOutOfDomain))
		_, err = bs.AddBoundary(FaceRegion(types.YMin, 1, 1, 0, 1), Wall{})
		assert.True(t, errors.Is(err, ErrOutOfDomain))
		_, err = bs.AddBoundary(CellBox(0, 5, 0, 1, 0, 1), PorousZone{Porosity: 0.5})
		assert.True(t, errors.Is(err, ErrOutOfDomain))
	}
	{ // Kind and region shape must agree
		_, err = bs.AddBoundary(CellBox(0, 1, 0, 1, 0, 1), Wall{})
		assert.True(t, errors.Is(err, ErrInvalidBoundary))
		_, err = bs.AddBoundary(g.WholeFace(types.ZMin), PorousZone{Porosity: 0.5})
		assert.True(t, errors.Is(err, ErrInvalidBoundary))
	}
	{ // Parameter validation
		_, err = bs.AddBoundary(g.WholeFace(types.ZMin), Inlet{Velocity: [3]float64{0, 0, -1}})
		assert.True(t, errors.Is(err, ErrInvalidBoundary))
		_, err = bs.AddBoundary(CellBox(0, 1, 0, 1, 0, 1), PorousZone{Porosity: 0})
		assert.True(t, errors.Is(err, ErrInvalidBoundary))
		_, err = bs.AddBoundary(CellBox(0, 1, 0, 1, 0, 1), PorousZone{Porosity: 1, LinearResistance: -1})
		assert.True(t, errors.Is(err, ErrInvalidBoundary))
	}
}

func TestPorousZones(t *testing.T) {
	g, bs := newTestRoom(t)
	pz := PorousZone{Porosity: 0.8, LinearResistance: 2, HeatRate: 100}
	id, err := bs.AddBoundary(CellBox(1, 3, 0, 2, 0, 1), pz)
	require.NoError(t, err)
	assert.Len(t, bs.ZoneCells(id), 4)
	got, ok := bs.Porous(g.CellIndex(2, 1, 0))
	assert.True(t, ok)
	assert.Equal(t, pz, got)
	_, ok = bs.Porous(g.CellIndex(0, 0, 0))
	assert.False(t, ok)

	// A later zone takes over the shared cells
	id2, err := bs.AddBoundary(CellBox(2, 4, 0, 1, 0, 1), PorousZone{Porosity: 0.5})
	require.NoError(t, err)
	assert.Len(t, bs.ZoneCells(id), 3)
	assert.Len(t, bs.ZoneCells(id2), 2)
}

func ductFlow(t *testing.T) (g *Grid, bs *BoundarySet, f *Fields) {
	g, bs = newTestRoom(t)
	_, err := bs.AddBoundary(g.WholeFace(types.XMin), Inlet{Velocity: [3]float64{1, 0, 0}})
	require.NoError(t, err)
	// Outlet on the upper half of the opposite face only
	_, err = bs.AddBoundary(FaceRegion(types.XMax, 0, 2, 1, 2), Outlet{})
	require.NoError(t, err)
	f = NewFields(g)
	return
}

func TestApplyBoundaries(t *testing.T) {
	{ // Quiescent interior spreads the inflow uniformly over the outlet
		g, bs, f := ductFlow(t)
		bs.ApplyBoundaries(f)
		qIn, qOut := bs.FlowRates(f)
		assert.InDelta(t, 4., qIn, 1e-12)
		assert.InDelta(t, 4., qOut, 1e-12)
		assert.InDelta(t, 2., f.U[g.UIndex(4, 0, 1)], 1e-12)
		assert.InDelta(t, 2., f.U[g.UIndex(4, 1, 1)], 1e-12)
		assert.Equal(t, 0., f.U[g.UIndex(4, 0, 0)])
		assert.Equal(t, 1., f.U[g.UIndex(0, 1, 0)])
	}
	{ // Interior profile is extrapolated and scaled, backflow is clipped
		g, bs, f := ductFlow(t)
		f.U[g.UIndex(3, 0, 1)] = 3
		f.U[g.UIndex(3, 1, 1)] = 1
		f.U[g.UIndex(3, 0, 0)] = -1
		// Garbage on walls is removed
		f.V[g.VIndex(2, 0, 0)] = 5
		f.W[g.WIndex(2, 1, 2)] = -5
		bs.ApplyBoundaries(f)
		assert.InDelta(t, 3., f.U[g.UIndex(4, 0, 1)], 1e-12)
		assert.InDelta(t, 1., f.U[g.UIndex(4, 1, 1)], 1e-12)
		assert.Equal(t, 0., f.V[g.VIndex(2, 0, 0)])
		assert.Equal(t, 0., f.W[g.WIndex(2, 1, 2)])
		qIn, qOut := bs.FlowRates(f)
		assert.InDelta(t, qIn, qOut, 1e-12)

		// Idempotent
		c := f.Copy()
		bs.ApplyBoundaries(f)
		bs.ApplyBoundaries(f)
		assert.Equal(t, c.U, f.U)
		assert.Equal(t, c.V, f.V)
		assert.Equal(t, c.W, f.W)
	}
	{ // Outlet on a low face points along -x
		g, bs := newTestRoom(t)
		_, err := bs.AddBoundary(g.WholeFace(types.XMax), Inlet{Velocity: [3]float64{-0.5, 0, 0}})
		require.NoError(t, err)
		_, err = bs.AddBoundary(g.WholeFace(types.XMin), Outlet{})
		require.NoError(t, err)
		f := NewFields(g)
		bs.ApplyBoundaries(f)
		assert.InDelta(t, -0.5, f.U[g.UIndex(0, 1, 1)], 1e-12)
		assert.InDelta(t, -0.5, f.U[g.UIndex(4, 1, 1)], 1e-12)
		assert.Len(t, bs.AdjacentCells(types.BK_Outlet), 4)
		assert.Equal(t, g.CellIndex(0, 0, 0), bs.AdjacentCells(types.BK_Outlet)[0])
	}
	{ // A single cell along the outlet axis has no interior face to extrapolate
		g, err := NewGrid(1, 2, 1, 1, 2, 1)
		require.NoError(t, err)
		bs := NewBoundarySet(g)
		_, err = bs.AddBoundary(g.WholeFace(types.XMin), Outlet{})
		require.NoError(t, err)
		_, err = bs.AddBoundary(FaceRegion(types.XMax, 0, 1, 0, 1), Inlet{Velocity: [3]float64{-1, 0, 0}})
		require.NoError(t, err)
		f := NewFields(g)
		bs.ApplyBoundaries(f)
		assert.Equal(t, []float64{-0.5, -1, -0.5, 0}, f.U)
		bs.ApplyBoundaries(f)
		assert.Equal(t, []float64{-0.5, -1, -0.5, 0}, f.U)
		qIn, qOut := bs.FlowRates(f)
		assert.InDelta(t, qIn, qOut, 1e-12)
	}
}

func TestFieldsHelpers(t *testing.T) {
	g, bs, f := ductFlow(t)
	bs.ApplyBoundaries(f)
	// Uniform inflow with no interior flow leaves sources in the first and last cells
	assert.InDelta(t, -1., f.Divergence(g, 0, 0, 0), 1e-12)
	assert.InDelta(t, 2., f.Divergence(g, 3, 1, 1), 1e-12)
	u, v, w := f.CellVelocity(g, 0, 0, 0)
	assert.Equal(t, [3]float64{0.5, 0, 0}, [3]float64{u, v, w})
	assert.True(t, f.Finite())
	c := f.Copy()
	c.T[3] = 1
	assert.Equal(t, 0., f.T[3])
	f.CopyFrom(c)
	assert.Equal(t, 1., f.T[3])
	Fill(f.T, 2)
	assert.Equal(t, 2., f.T[0])
	f.P[2] = 1. / zero()
	assert.False(t, f.Finite())
}

func zero() float64 { return 0 }

func TestBoundarySetClone(t *testing.T) {
	g, bs := newTestRoom(t)
	id, err := bs.AddBoundary(g.WholeFace(types.XMin), Inlet{Velocity: [3]float64{1, 0, 0}})
	require.NoError(t, err)
	c := bs.Clone()
	_, err = c.AddBoundary(CellBox(0, 1, 0, 1, 0, 1), PorousZone{Porosity: 1})
	require.NoError(t, err)
	assert.Len(t, bs.Boundaries(), 1)
	assert.Len(t, c.Boundaries(), 2)
	_, ok := bs.Porous(0)
	assert.False(t, ok)
	// Stored regions carry the boundary layer along the normal
	r := bs.Boundaries()[id].Region
	assert.Equal(t, [3]float64{0, 2, 2}, g.RegionSize(r))
	assert.InDelta(t, 2., g.HydraulicDiameter(r), 1e-12)
}
