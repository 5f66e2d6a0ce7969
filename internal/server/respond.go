package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"dice-casino/internal/engine"
	"dice-casino/internal/game/dicetable"
	"dice-casino/internal/game/duel"
	"dice-casino/internal/pkg/lock"
	"dice-casino/internal/service"
)

// errorResponse is the JSON error body for all endpoints.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// decodeStrict decodes a single JSON object, rejecting unknown fields and
// trailing content.
func decodeStrict(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "request body must contain a single JSON object")
		return false
	}
	return true
}

// writeDomainError maps engine and service errors to HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, service.ErrInsufficientBalance):
		writeError(w, http.StatusPaymentRequired, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, engine.ErrNoStake):
		writeError(w, http.StatusBadRequest, "NO_STAKE", err.Error())
	case errors.Is(err, dicetable.ErrInvalidStake),
		errors.Is(err, dicetable.ErrInvalidFace),
		errors.Is(err, duel.ErrInvalidBet),
		errors.Is(err, duel.ErrInvalidTableSize),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidCommission),
		errors.Is(err, service.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, lock.ErrRoundInFlight):
		writeError(w, http.StatusConflict, "ROUND_IN_FLIGHT", err.Error())
	case errors.Is(err, engine.ErrInvariantViolation):
		writeError(w, http.StatusConflict, "INVALID_ROUND_STATE", err.Error())
	case errors.Is(err, engine.ErrPlayerBlocked):
		writeError(w, http.StatusForbidden, "PLAYER_BLOCKED", err.Error())
	case errors.Is(err, engine.ErrTicketNotFound),
		errors.Is(err, service.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrWithdrawLimitReached):
		writeError(w, http.StatusTooManyRequests, "WITHDRAW_LIMIT", err.Error())
	default:
		log.Error().Err(err).Msg("Internal error")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
