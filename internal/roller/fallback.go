package roller

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Fallback tries a primary roller once and substitutes the local generator
// when it fails. Provider failures are logged, never surfaced: once a stake
// is escrowed the round must still resolve.
type Fallback struct {
	primary Roller
	local   *Local
}

// NewFallback composes a primary roller with the local generator.
func NewFallback(primary Roller) *Fallback {
	return &Fallback{
		primary: primary,
		local:   NewLocal(),
	}
}

// Roll delegates to the primary roller, falling back to the local generator
// on failure. There are no retries beyond the single fallback attempt.
func (f *Fallback) Roll(ctx context.Context, n int) ([]int, error) {
	faces, err := f.primary.Roll(ctx, n)
	if err == nil {
		return faces, nil
	}

	log.Warn().Err(err).Int("count", n).Msg("Remote roll failed, using local generator")
	return f.local.Roll(ctx, n)
}
