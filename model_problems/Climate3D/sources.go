package Climate3D

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/growcfd/FV3D"
	"github.com/notargets/growcfd/types"
)

// SourceField holds per cell source terms assembled from the equipment list
// and the porous zones of a boundary set.
type SourceField struct {
	Momentum      [][3]float64 // N
	Heat          []float64    // W
	Moisture      []float64    // kg/s
	Contributions []Contribution
	Warnings      []string
}

// Contribution records what one item added to the field.
type Contribution struct {
	Label    string
	Cells    []int
	Heat     float64
	Moisture float64
	Momentum [3]float64
}

func NewSourceField(g *FV3D.Grid) (sf *SourceField) {
	nc := g.NumCells()
	sf = &SourceField{
		Momentum: make([][3]float64, nc),
		Heat:     make([]float64, nc),
		Moisture: make([]float64, nc),
	}
	return
}

func (sf *SourceField) TotalHeat() float64     { return floats.Sum(sf.Heat) }
func (sf *SourceField) TotalMoisture() float64 { return floats.Sum(sf.Moisture) }

func (sf *SourceField) warnf(format string, args ...interface{}) {
	sf.Warnings = append(sf.Warnings, fmt.Sprintf(format, args...))
}

// add spreads heat and moisture evenly over cells and puts the momentum on
// the first cell.
func (sf *SourceField) add(c Contribution) {
	if len(c.Cells) == 0 {
		return
	}
	var (
		share = 1. / float64(len(c.Cells))
	)
	for _, cell := range c.Cells {
		sf.Heat[cell] += c.Heat * share
		sf.Moisture[cell] += c.Moisture * share
	}
	for ax := 0; ax < 3; ax++ {
		sf.Momentum[c.Cells[0]][ax] += c.Momentum[ax]
	}
	sf.Contributions = append(sf.Contributions, c)
}

/*
BuildSources maps equipment onto the cells of g.

	Fixture:    heat Wattage*(1-Efficiency) + DriverLoss over its footprint cells
	HVAC:       heat Capacity at the supply cell, jet momentum rho*Q*Q/A along the
	            supply direction at the supply cell and along the return direction at
	            the return cell, moisture -Dehumidification at the return cell
	Fan:        jet momentum rho*Q*Q/A along its direction, MotorHeat at its cell
	PorousZone: every porous boundary of bcs spreads HeatRate and MoistureRate over
	            the cells it owns

Items placed outside the grid are skipped with a warning.
*/
func BuildSources(equipment []EquipmentSpec, g *FV3D.Grid, bcs *FV3D.BoundarySet, rho float64) (sf *SourceField) {
	sf = NewSourceField(g)
	cellAt := func(pos [3]float64, what string) (cell int, ok bool) {
		var i, j, k int
		if i, j, k, ok = g.CellContaining(pos[0], pos[1], pos[2]); !ok {
			sf.warnf("%s at (%g, %g, %g) is outside the domain, skipped", what, pos[0], pos[1], pos[2])
			return
		}
		cell = g.CellIndex(i, j, k)
		return
	}
	for _, eq := range equipment {
		if err := eq.Validate(); err != nil {
			sf.warnf("%v, skipped", err)
			continue
		}
		switch e := eq.(type) {
		case Fixture:
			center, ok := cellAt(e.Position, e.Label())
			if !ok {
				continue
			}
			sf.add(Contribution{
				Label: e.Label(),
				Cells: fixtureCells(g, e, center),
				Heat:  e.Heat(),
			})
		case HVAC:
			supply, ok := cellAt(e.Supply, e.Label()+" supply")
			if !ok {
				continue
			}
			ret, ok := cellAt(e.Return, e.Label()+" return")
			if !ok {
				continue
			}
			var (
				F  = e.Thrust(rho)
				sd = unit(e.SupplyDirection)
				rd = unit(e.ReturnDirection)
			)
			sf.add(Contribution{
				Label:    e.Label() + " supply",
				Cells:    []int{supply},
				Heat:     e.Capacity,
				Momentum: [3]float64{F * sd[0], F * sd[1], F * sd[2]},
			})
			sf.add(Contribution{
				Label:    e.Label() + " return",
				Cells:    []int{ret},
				Moisture: -e.Dehumidification,
				Momentum: [3]float64{F * rd[0], F * rd[1], F * rd[2]},
			})
		case Fan:
			cell, ok := cellAt(e.Position, e.Label())
			if !ok {
				continue
			}
			var (
				F = e.Thrust(rho)
				d = unit(e.Direction)
			)
			sf.add(Contribution{
				Label:    e.Label(),
				Cells:    []int{cell},
				Heat:     e.MotorHeat,
				Momentum: [3]float64{F * d[0], F * d[1], F * d[2]},
			})
		case CanopyZone:
			sf.warnf("%s is not registered as a porous zone, skipped", e.Label())
		}
	}
	if bcs == nil {
		return
	}
	for _, bd := range bcs.Boundaries() {
		if bd.Condition.Kind() != types.BK_PorousZone {
			continue
		}
		pz := bd.Condition.(FV3D.PorousZone)
		if pz.HeatRate == 0 && pz.MoistureRate == 0 {
			continue
		}
		cells := bcs.ZoneCells(bd.ID)
		if len(cells) == 0 {
			sf.warnf("porous zone %d has no cells left, its heat and moisture are dropped", bd.ID)
			continue
		}
		sf.add(Contribution{
			Label:    fmt.Sprintf("porous zone %d", bd.ID),
			Cells:    cells,
			Heat:     pz.HeatRate,
			Moisture: pz.MoistureRate,
		})
	}
	return
}

// fixtureCells lists the cells under a fixture footprint, clipped to the
// domain, or the center cell for a point fixture.
func fixtureCells(g *FV3D.Grid, e Fixture, center int) (cells []int) {
	if e.Footprint[0] == 0 && e.Footprint[1] == 0 {
		return []int{center}
	}
	var (
		L      = g.Extents()
		lo, hi [3]float64
	)
	for ax := 0; ax < 2; ax++ {
		lo[ax] = max(e.Position[ax]-0.5*e.Footprint[ax], 0)
		hi[ax] = min(e.Position[ax]+0.5*e.Footprint[ax], L[ax])
	}
	lo[2], hi[2] = e.Position[2], e.Position[2]
	box, err := g.CellBoxAt(lo, hi)
	if err != nil {
		return []int{center}
	}
	for k := box.Min[2]; k < box.Max[2]; k++ {
		for j := box.Min[1]; j < box.Max[1]; j++ {
			for i := box.Min[0]; i < box.Max[0]; i++ {
				cells = append(cells, g.CellIndex(i, j, k))
			}
		}
	}
	return
}
