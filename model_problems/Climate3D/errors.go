package Climate3D

import (
	"errors"
	"fmt"

	"github.com/notargets/growcfd/FV3D"
)

var (
	ErrInvalidConfig    = errors.New("invalid solver configuration")
	ErrInvalidEquipment = errors.New("invalid equipment")
)

// DivergenceError stops a run whose residual grew without bound or became
// non-finite. LastStable holds the fields of iteration LastStableIteration,
// the last one whose residual did not increase.
type DivergenceError struct {
	Iteration           int
	Residual            float64
	LastStable          *FV3D.Fields
	LastStableIteration int
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("solution diverged at iteration %d, residual %.4e, restored iteration %d",
		e.Iteration, e.Residual, e.LastStableIteration)
}
