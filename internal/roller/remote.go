package roller

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// rollRequest is the wire request for the remote roll endpoint.
type rollRequest struct {
	Count int `json:"count"`
}

// rollResponse is the wire response for the remote roll endpoint.
type rollResponse struct {
	Values []int `json:"values"`
}

// Remote requests rolls from an external randomness authority over HTTP.
// The round trip is bounded by the client timeout; callers are expected to
// wrap Remote in a Fallback so a provider outage never blocks a round.
type Remote struct {
	client *resty.Client
}

// NewRemote creates a remote roller for the given base URL.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &Remote{client: client}
}

// Roll requests n face values from the remote authority.
// Any transport error, non-2xx status, or malformed payload is reported as
// ErrRollProvider.
func (r *Remote) Roll(ctx context.Context, n int) ([]int, error) {
	if n <= 0 {
		return nil, fmt.Errorf("roll count must be positive, got %d", n)
	}

	var result rollResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(rollRequest{Count: n}).
		SetResult(&result).
		Post("/api/game/rollDice")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRollProvider, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrRollProvider, resp.StatusCode())
	}
	if len(result.Values) != n || !ValidFaces(result.Values) {
		return nil, fmt.Errorf("%w: invalid payload %v", ErrRollProvider, result.Values)
	}

	return result.Values, nil
}
