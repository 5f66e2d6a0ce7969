package dicetable

import (
	"dice-casino/internal/money"
)

// Result is the settled outcome of one single-number round.
// It is derived deterministically from the slip and the rolled face and is
// never modified after creation.
type Result struct {
	Face     int
	Win      bool
	HouseWin bool
	Payout   money.Money
}

// ForcedFace returns the face a slip forces, bypassing the roller.
// A slip covering all six faces would otherwise be a guaranteed win against
// the fixed multiplier, so full coverage always resolves to the house face.
// The second return is false when the roller should decide.
func ForcedFace(s Slip) (int, bool) {
	if s.FullCoverage() {
		return HouseFace, true
	}
	return 0, false
}

// Resolve computes the outcome for a rolled face.
// Face 1 belongs to the house: even a staked 1 is an unconditional loss.
// Otherwise only the stake on the rolled face pays, at multiplier times the
// stake; unstaked faces lose.
func Resolve(s Slip, face int, multiplier int64) Result {
	if face == HouseFace {
		return Result{Face: face, HouseWin: true}
	}

	stake := s[face]
	if stake <= 0 {
		return Result{Face: face}
	}

	return Result{
		Face:   face,
		Win:    true,
		Payout: stake * money.Money(multiplier),
	}
}
