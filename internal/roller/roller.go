// Package roller provides dice roll generation for the settlement engine.
// Rolls can come from a remote randomness authority or a local generator;
// the Fallback decorator composes the two so a round always completes.
package roller

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
)

const (
	// MinFace and MaxFace bound a die face value.
	MinFace = 1
	MaxFace = 6
)

// ErrRollProvider indicates a transient failure of a roll provider.
// It is recovered internally by the Fallback roller and never aborts a round.
var ErrRollProvider = errors.New("roll provider failure")

// Roller produces uniformly random die face values in [1,6].
type Roller interface {
	// Roll returns n face values, independent across dice and calls.
	Roll(ctx context.Context, n int) ([]int, error)
}

// Local generates rolls from the process-local PRNG. It never fails.
type Local struct{}

// NewLocal creates a local roller.
func NewLocal() *Local {
	return &Local{}
}

// Roll returns n locally generated face values.
func (l *Local) Roll(_ context.Context, n int) ([]int, error) {
	if n <= 0 {
		return nil, fmt.Errorf("roll count must be positive, got %d", n)
	}
	faces := make([]int, n)
	for i := range faces {
		faces[i] = rand.Intn(MaxFace) + 1
	}
	return faces, nil
}

// ValidFaces reports whether every value is a legal die face.
func ValidFaces(faces []int) bool {
	for _, f := range faces {
		if f < MinFace || f > MaxFace {
			return false
		}
	}
	return true
}
