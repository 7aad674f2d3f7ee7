package Climate3D

import (
	"context"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/growcfd/types"
)

// residualWindow is the number of leading iterations whose largest change
// normalizes the residual.
const residualWindow = 5

// Progress is reported after every outer iteration.
type Progress struct {
	Iteration int
	Step      int     // physical time step, transient runs only
	Time      float64 // simulated time, s
	Residual  float64
	State     types.RunState
	Elapsed   time.Duration

	// PressureSweeps of the last pressure correction solve
	PressureSweeps int
}

type Observer interface {
	IterationComplete(p Progress)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(p Progress)

func (fn ObserverFunc) IterationComplete(p Progress) { fn(p) }

// Status may be polled from any goroutine while Solve runs.
func (sr *SimulationRun) Status() Progress {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.status
}

func (sr *SimulationRun) progress() Progress {
	var (
		res float64
	)
	if n := len(sr.residuals); n > 0 {
		res = sr.residuals[n-1]
	}
	return Progress{
		Iteration: sr.iteration,
		Step:      sr.step,
		Time:      sr.time,
		Residual:  res,
		State:     sr.state,
		Elapsed:   sr.elapsed,

		PressureSweeps: sr.pc.sweeps,
	}
}

func (sr *SimulationRun) setState(rs types.RunState) {
	sr.mu.Lock()
	sr.state = rs
	sr.status = sr.progress()
	sr.mu.Unlock()
}

/*
Solve iterates until the run reaches a terminal state:

	Converged             residual below ConvergenceTolerance after MinIterations,
	                      or the end time of a transient run
	MaxIterationsReached  the iteration cap, fields are unconverged
	Diverged              sustained residual growth or non-finite values, the
	                      last stable fields are restored
	TimeLimitReached      WallClockLimit elapsed
	Cancelled             ctx is done, ctx.Err() is returned with the partial result

The context is polled once per iteration.
*/
func (sr *SimulationRun) Solve(ctx context.Context) (res *Result, err error) {
	var (
		cfg = sr.Config
	)
	sr.started = time.Now()
	for !sr.state.Terminal() {
		if ctx.Err() != nil {
			err = ctx.Err()
			sr.setState(types.Cancelled)
			break
		}
		if cfg.WallClockLimit > 0 && time.Since(sr.started) >= cfg.WallClockLimit {
			sr.warn("wall clock limit reached before convergence")
			sr.setState(types.TimeLimitReached)
			break
		}
		sr.Step()
	}
	res = sr.Result()
	entry := sr.logger.WithFields(log.Fields{
		"state":      res.Status.String(),
		"iterations": res.Iterations,
		"residual":   res.FinalResidual,
		"elapsed":    res.Elapsed.String(),
	})
	if res.Err != nil {
		entry.WithError(res.Err).Error("simulation run finished")
	} else {
		entry.Info("simulation run finished")
	}
	return
}

// Step performs one outer iteration, or in transient mode one physical time
// step of InnerIterations outer iterations, and updates the run state.
func (sr *SimulationRun) Step() (p Progress) {
	if sr.state.Terminal() {
		return sr.Status()
	}
	if sr.started.IsZero() {
		sr.started = time.Now()
	}
	if sr.Config.Transient {
		sr.transientStep()
	} else {
		sr.outerIteration()
		sr.checkConvergence()
	}
	sr.elapsed = time.Since(sr.started)
	sr.mu.Lock()
	sr.status = sr.progress()
	p = sr.status
	sr.mu.Unlock()
	for _, o := range sr.observers {
		o.IterationComplete(p)
	}
	return
}

// outerIteration runs one SIMPLE cycle and records the residual.
func (sr *SimulationRun) outerIteration() {
	sr.prev.CopyFrom(sr.fields)
	sr.solveMomentum()
	sr.solvePressureCorrection()
	sr.solveTurbulence()
	sr.solveScalars()
	sr.iteration++
	sr.residuals = append(sr.residuals, sr.residual())
}

func (sr *SimulationRun) transientStep() {
	var (
		cfg = sr.Config
	)
	if sr.schedule != nil {
		sr.rebuildSources(sr.schedule(sr.time))
	}
	sr.stepStart.CopyFrom(sr.fields)
	for n := 0; n < cfg.InnerIterations && !sr.state.Terminal(); n++ {
		sr.outerIteration()
		sr.checkDivergence()
	}
	if sr.state.Terminal() {
		return
	}
	sr.step++
	sr.time = float64(sr.step) * cfg.TimeStep
	switch {
	case sr.step >= cfg.Steps():
		sr.setState(types.Converged)
	case sr.iteration >= cfg.MaxIterations:
		sr.warn("maximum iterations reached before convergence")
		sr.setState(types.MaxIterationsReached)
	}
}

// residual is the larger of the velocity and temperature changes since the
// previous iteration, each normalized by its largest change over the first
// residualWindow iterations.
func (sr *SimulationRun) residual() float64 {
	var (
		f, p = sr.fields, sr.prev
		dVel = math.Sqrt(sq(floats.Distance(f.U, p.U, 2)) +
			sq(floats.Distance(f.V, p.V, 2)) + sq(floats.Distance(f.W, p.W, 2)))
		dT = floats.Distance(f.T, p.T, 2)
	)
	if sr.iteration <= residualWindow {
		sr.normVel = max(sr.normVel, dVel)
		sr.normT = max(sr.normT, dT)
	}
	return max(normalized(dVel, sr.normVel), normalized(dT, sr.normT))
}

func sq(x float64) float64 { return x * x }

func normalized(change, norm float64) float64 {
	if norm == 0 {
		return change
	}
	return change / norm
}

func (sr *SimulationRun) checkConvergence() {
	var (
		cfg = sr.Config
		res = sr.residuals[len(sr.residuals)-1]
	)
	if sr.checkDivergence() {
		return
	}
	switch {
	case res < cfg.ConvergenceTolerance && sr.iteration >= cfg.MinIterations:
		sr.setState(types.Converged)
	case sr.iteration >= cfg.MaxIterations:
		sr.warn("maximum iterations reached before convergence")
		sr.setState(types.MaxIterationsReached)
	}
}

// checkDivergence tracks the last stable fields and stops the run on
// non-finite values or DivergenceWindow consecutive residual increases above
// DivergenceFloor.
func (sr *SimulationRun) checkDivergence() (diverged bool) {
	var (
		cfg = sr.Config
		n   = len(sr.residuals)
		res = sr.residuals[n-1]
	)
	switch {
	case math.IsNaN(res) || math.IsInf(res, 0) || !sr.fields.Finite():
		diverged = true
	case n > 1 && res > sr.residuals[n-2]:
		if res > cfg.DivergenceFloor {
			sr.increasing++
		} else {
			sr.increasing = 0
		}
		diverged = sr.increasing >= cfg.DivergenceWindow
	default:
		sr.increasing = 0
		sr.lastStable.CopyFrom(sr.fields)
		sr.lastStableIter = sr.iteration
	}
	if diverged {
		sr.err = &DivergenceError{
			Iteration:           sr.iteration,
			Residual:            res,
			LastStable:          sr.lastStable.Copy(),
			LastStableIteration: sr.lastStableIter,
		}
		sr.fields.CopyFrom(sr.lastStable)
		sr.setState(types.Diverged)
	}
	return
}
