package Climate3D

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/growcfd/types"
)

func TestSummary(t *testing.T) {
	res := &Result{
		Status:        types.Diverged,
		Iterations:    7,
		FinalResidual: math.NaN(),
		Err:           &DivergenceError{Iteration: 7, Residual: math.NaN()},
		Elapsed:       1500 * time.Microsecond,
		Warnings:      []string{"w"},
	}
	s := res.Summary("room")
	assert.Nil(t, s.FinalResidual)
	assert.Equal(t, "Diverged", s.Status)
	assert.Equal(t, "2ms", s.Elapsed)
	assert.NotEmpty(t, s.Error)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "final_residual")

	res = &Result{Status: types.Converged, Converged: true, FinalResidual: 5e-5}
	s = res.Summary("")
	require.NotNil(t, s.FinalResidual)
	assert.Equal(t, 5e-5, *s.FinalResidual)
	assert.True(t, s.Converged)
	assert.Empty(t, s.Error)
}
