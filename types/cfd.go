package types

import (
	"fmt"
	"strings"
)

type BoundaryKind uint8

const (
	BK_None BoundaryKind = iota
	BK_Inlet
	BK_Outlet
	BK_Wall
	BK_PorousZone
)

var BoundaryNameMap = map[string]BoundaryKind{
	"inlet":   BK_Inlet,
	"inflow":  BK_Inlet,
	"in":      BK_Inlet,
	"supply":  BK_Inlet,
	"outlet":  BK_Outlet,
	"outflow": BK_Outlet,
	"out":     BK_Outlet,
	"exhaust": BK_Outlet,
	"wall":    BK_Wall,
	"porous":  BK_PorousZone,
	"canopy":  BK_PorousZone,
}

func (bk BoundaryKind) String() string {
	switch bk {
	case BK_Inlet:
		return "Inlet"
	case BK_Outlet:
		return "Outlet"
	case BK_Wall:
		return "Wall"
	case BK_PorousZone:
		return "PorousZone"
	default:
		return "None"
	}
}

// IsFaceKind is true for conditions attached to exterior faces, false for those
// attached to cell volumes.
func (bk BoundaryKind) IsFaceKind() bool {
	return bk == BK_Inlet || bk == BK_Outlet || bk == BK_Wall
}

func NewBoundaryKind(label string) (bk BoundaryKind, err error) {
	var ok bool
	if bk, ok = BoundaryNameMap[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("unknown boundary kind %q", label)
	}
	return
}

type EquipmentKind uint8

const (
	EQ_Fixture EquipmentKind = iota
	EQ_HVAC
	EQ_Fan
	EQ_CanopyZone
)

var EquipmentNameMap = map[string]EquipmentKind{
	"fixture":    EQ_Fixture,
	"light":      EQ_Fixture,
	"hvac":       EQ_HVAC,
	"fan":        EQ_Fan,
	"canopy":     EQ_CanopyZone,
	"canopyzone": EQ_CanopyZone,
}

func (ek EquipmentKind) String() string {
	return [...]string{"Fixture", "HVAC", "Fan", "CanopyZone"}[ek]
}

func NewEquipmentKind(label string) (ek EquipmentKind, err error) {
	var ok bool
	if ek, ok = EquipmentNameMap[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("unknown equipment type %q", label)
	}
	return
}

// Face identifies one of the six exterior faces of the rectilinear domain.
type Face uint8

const (
	XMin Face = iota
	XMax
	YMin
	YMax
	ZMin
	ZMax
	NoFace
)

var FaceNameMap = map[string]Face{
	"xmin": XMin, "west": XMin,
	"xmax": XMax, "east": XMax,
	"ymin": YMin, "south": YMin,
	"ymax": YMax, "north": YMax,
	"zmin": ZMin, "floor": ZMin, "bottom": ZMin,
	"zmax": ZMax, "ceiling": ZMax, "top": ZMax,
}

func (f Face) String() string {
	if f > NoFace {
		return "Invalid"
	}
	return [...]string{"XMin", "XMax", "YMin", "YMax", "ZMin", "ZMax", "None"}[f]
}

// Axis is the coordinate direction normal to the face: 0=x, 1=y, 2=z.
func (f Face) Axis() int { return int(f) / 2 }

// Sign is -1 for the low face of an axis and +1 for the high face, i.e. the
// direction of the outward normal.
func (f Face) Sign() float64 {
	if f%2 == 0 {
		return -1
	}
	return 1
}

func NewFace(label string) (f Face, err error) {
	var ok bool
	if f, ok = FaceNameMap[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("unknown domain face %q", label)
	}
	return
}

var AllFaces = [6]Face{XMin, XMax, YMin, YMax, ZMin, ZMax}

type RunState uint8

const (
	Initializing RunState = iota
	Iterating
	Converged
	Diverged
	MaxIterationsReached
	Cancelled
	TimeLimitReached
)

func (rs RunState) String() string {
	return [...]string{"Initializing", "Iterating", "Converged", "Diverged",
		"MaxIterationsReached", "Cancelled", "TimeLimitReached"}[rs]
}

// Terminal is true once the convergence loop has stopped.
func (rs RunState) Terminal() bool {
	return rs >= Converged
}

func (rs RunState) MarshalText() ([]byte, error) {
	return []byte(rs.String()), nil
}
