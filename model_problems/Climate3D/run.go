package Climate3D

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/notargets/growcfd/FV3D"
	"github.com/notargets/growcfd/types"
	"github.com/notargets/growcfd/utils"
)

// SourceSchedule returns the equipment active at time t of a transient run.
type SourceSchedule func(t float64) []EquipmentSpec

type Option func(sr *SimulationRun)

func WithLogger(l log.FieldLogger) Option {
	return func(sr *SimulationRun) { sr.logger = l }
}

func WithObserver(o Observer) Option {
	return func(sr *SimulationRun) { sr.observers = append(sr.observers, o) }
}

func WithSourceSchedule(s SourceSchedule) Option {
	return func(sr *SimulationRun) { sr.schedule = s }
}

// SimulationRun owns everything needed to solve one case. Runs share no
// state and may be solved concurrently.
type SimulationRun struct {
	Config    Config
	Grid      *FV3D.Grid
	BCs       *FV3D.BoundarySet
	Sources   *SourceField
	equipment []EquipmentSpec
	schedule  SourceSchedule
	logger    log.FieldLogger
	observers []Observer

	// Fields are double buffered, prev holds the previous iteration and
	// stepStart the start of the current physical time step
	fields, prev, stepStart, lastStable *FV3D.Fields
	lastStableIter                      int

	// Work storage
	mom        [3]*momentumSystem
	pc         *pressureSystem
	cells      *stencil
	scratch    []float64
	pm         [3]*utils.PartitionMap // k-plane partitions for the U, V and W arrays
	pmCell     *utils.PartitionMap
	wallDist   []float64 // distance to the nearest wall, wall adjacent cells only
	tRef       float64
	inletTurb  map[FV3D.BoundaryID][2]float64 // k and epsilon per inlet
	nuTClipped int

	// Controller state
	mu         sync.Mutex
	state      types.RunState
	iteration  int
	step       int
	time       float64
	residuals  []float64
	normVel    float64
	normT      float64
	increasing int
	warnings   []string
	warned     map[string]bool
	err        error
	started    time.Time
	elapsed    time.Duration
	status     Progress
}

/*
NewSimulationRun assembles a run from a grid, its boundary set and the
equipment list. Canopy zones are added to a copy of the boundary set as porous
zones; the caller's set is not modified. Structural problems (bad
configuration, grid mismatch, invalid equipment) are returned as errors.
*/
func NewSimulationRun(cfg Config, g *FV3D.Grid, bcs *FV3D.BoundarySet, equipment []EquipmentSpec,
	opts ...Option) (sr *SimulationRun, err error) {
	cfg = cfg.withDefaults()
	if err = cfg.Validate(); err != nil {
		return
	}
	if g == nil {
		err = fmt.Errorf("%w: nil grid", FV3D.ErrInvalidDimension)
		return
	}
	if bcs == nil {
		bcs = FV3D.NewBoundarySet(g)
	}
	if bcs.Grid != g {
		err = fmt.Errorf("%w: boundary set belongs to a different grid", FV3D.ErrInvalidBoundary)
		return
	}
	for _, eq := range equipment {
		if eq == nil {
			err = fmt.Errorf("%w: nil equipment entry", ErrInvalidEquipment)
			return
		}
		if err = eq.Validate(); err != nil {
			return
		}
	}
	sr = &SimulationRun{
		Config:    cfg,
		Grid:      g,
		BCs:       bcs.Clone(),
		logger:    log.StandardLogger(),
		warned:    make(map[string]bool),
		state:     types.Initializing,
		inletTurb: make(map[FV3D.BoundaryID][2]float64),
	}
	for _, opt := range opts {
		opt(sr)
	}
	sr.equipment = sr.registerCanopies(equipment)
	sr.rebuildSources(sr.equipment)

	sr.pmCell = utils.NewPartitionMap(cfg.ParallelDegree, g.Nz)
	for ax := 0; ax < 3; ax++ {
		nk := g.Nz
		if ax == 2 {
			nk++
		}
		sr.pm[ax] = utils.NewPartitionMap(cfg.ParallelDegree, nk)
		sr.mom[ax] = newMomentumSystem(g.FaceCount(ax))
	}
	sr.pc = newPressureSystem(g)
	sr.scratch = make([]float64, g.NumCells())

	sr.initializeFields()
	if !sr.BCs.HasKind(types.BK_Outlet) && sr.BCs.HasKind(types.BK_Inlet) {
		sr.warn("inlets without an outlet: the inflow cannot leave the domain and continuity cannot be satisfied")
	}
	sr.state = types.Iterating
	sr.status = sr.progress()
	sr.logger.WithFields(log.Fields{
		"grid":       fmt.Sprintf("%dx%dx%d", g.Nx, g.Ny, g.Nz),
		"cells":      g.NumCells(),
		"boundaries": len(sr.BCs.Boundaries()),
		"equipment":  len(equipment),
		"heat_W":     sr.Sources.TotalHeat(),
		"turbulence": cfg.TurbulenceModel.String(),
		"pressure":   cfg.PressureSolver.String(),
		"transient":  cfg.Transient,
	}).Info("simulation run initialized")
	return
}

// registerCanopies adds canopy zones to the boundary set and returns the
// remaining equipment.
func (sr *SimulationRun) registerCanopies(equipment []EquipmentSpec) (rest []EquipmentSpec) {
	for _, eq := range equipment {
		cz, ok := eq.(CanopyZone)
		if !ok {
			rest = append(rest, eq)
			continue
		}
		region, err := sr.Grid.CellBoxAt(cz.Min, cz.Max)
		if err == nil {
			_, err = sr.BCs.AddBoundary(region, cz.PorousZone())
		}
		if err != nil {
			sr.warn(fmt.Sprintf("%s skipped: %v", cz.Label(), err))
		}
	}
	return
}

func (sr *SimulationRun) rebuildSources(equipment []EquipmentSpec) {
	sr.Sources = BuildSources(equipment, sr.Grid, sr.BCs, sr.Config.AirDensity)
	for _, w := range sr.Sources.Warnings {
		sr.warn(w)
	}
}

// initializeFields sets the initial state: quiescent air at the initial
// temperature and humidity with the boundary velocities applied.
func (sr *SimulationRun) initializeFields() {
	var (
		g                = sr.Grid
		cfg              = sr.Config
		tIn, hIn, nInlet float64
		kIn              float64
	)
	sr.fields = FV3D.NewFields(g)
	for _, bd := range sr.BCs.Boundaries() {
		in, ok := bd.Condition.(FV3D.Inlet)
		if !ok {
			continue
		}
		tIn += in.Temperature
		hIn += in.Humidity
		nInlet++
		k, eps := inletTurbulence(in, g.HydraulicDiameter(bd.Region))
		sr.inletTurb[bd.ID] = [2]float64{k, eps}
		kIn = max(kIn, k)
	}
	if nInlet > 0 {
		tIn /= nInlet
		hIn /= nInlet
	} else {
		tIn = 20
	}
	cfg.InitialTemperature = orDefault(cfg.InitialTemperature, tIn)
	cfg.InitialHumidity = orDefault(cfg.InitialHumidity, hIn)
	cfg.ReferenceTemperature = orDefault(cfg.ReferenceTemperature, tIn)
	sr.Config = cfg
	sr.tRef = *cfg.ReferenceTemperature
	FV3D.Fill(sr.fields.T, *cfg.InitialTemperature)
	FV3D.Fill(sr.fields.H, *cfg.InitialHumidity)
	if cfg.TurbulenceModel == KEpsilon {
		sr.wallDist = wallDistances(g, sr.BCs)
		kIn = max(kIn, kFloor)
		FV3D.Fill(sr.fields.K, kIn)
		FV3D.Fill(sr.fields.Eps, wallEpsilon(kIn, 0.07*minExtent(g)))
		sr.updateEddyViscosity()
	}
	sr.BCs.ApplyBoundaries(sr.fields)
	sr.prev = sr.fields.Copy()
	sr.stepStart = sr.fields.Copy()
	sr.lastStable = sr.fields.Copy()
}

func orDefault(v *float64, d float64) *float64 {
	if v == nil {
		return &d
	}
	return v
}

func minExtent(g *FV3D.Grid) float64 {
	return min(g.Lx, g.Ly, g.Lz)
}

// warn records a non-fatal condition once.
func (sr *SimulationRun) warn(msg string) {
	if sr.warned[msg] {
		return
	}
	sr.warned[msg] = true
	sr.warnings = append(sr.warnings, msg)
	sr.logger.WithField("iteration", sr.iteration).Warn(msg)
}

// Fields returns the current solution. It must not be modified while the run
// is iterating.
func (sr *SimulationRun) Fields() *FV3D.Fields { return sr.fields }

func (sr *SimulationRun) Warnings() []string { return sr.warnings }
