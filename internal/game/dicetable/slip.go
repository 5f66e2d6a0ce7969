// Package dicetable implements the single-number dice game: the player
// stakes on die faces and a winning face pays a fixed multiple of its stake.
package dicetable

import (
	"errors"
	"fmt"

	"dice-casino/internal/money"
)

const (
	// HouseFace is the reserved face: it is never a winning pick.
	HouseFace = 1

	// DefaultMultiplier is the payout multiple on the winning stake.
	DefaultMultiplier = 5

	// DefaultMinStake is the minimum stake per face.
	DefaultMinStake = 100
)

// Errors for slip validation.
var (
	ErrNoStake      = errors.New("no stake placed")
	ErrInvalidFace  = errors.New("face must be between 1 and 6")
	ErrInvalidStake = errors.New("stake below minimum")
)

// Slip maps a die face (1-6) to the stake placed on it.
// Faces are unique by construction; each stake must be positive.
type Slip map[int]money.Money

// Total returns the sum of all stakes on the slip.
func (s Slip) Total() money.Money {
	var total money.Money
	for _, stake := range s {
		total += stake
	}
	return total
}

// FullCoverage reports whether every face 1-6 carries a stake.
func (s Slip) FullCoverage() bool {
	for face := 1; face <= 6; face++ {
		if s[face] <= 0 {
			return false
		}
	}
	return true
}

// Validate checks face range and the per-face minimum stake.
// It does not check funds; balance checks belong to the settlement engine,
// which imposes its own ordering between funds and no-stake errors.
func (s Slip) Validate(minStake money.Money) error {
	for face, stake := range s {
		if face < 1 || face > 6 {
			return fmt.Errorf("%w: %d", ErrInvalidFace, face)
		}
		if stake <= 0 || stake < minStake {
			return fmt.Errorf("%w: %d on face %d (minimum %d)", ErrInvalidStake, stake, face, minStake)
		}
	}
	return nil
}
