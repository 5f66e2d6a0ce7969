package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"dice-casino/internal/engine"
	"dice-casino/internal/game/dicetable"
	"dice-casino/internal/game/duel"
	"dice-casino/internal/money"
)

// --- players ---

type ensurePlayerRequest struct {
	PlayerID    string `json:"playerId" validate:"required"`
	DisplayName string `json:"displayName" validate:"required"`
}

func (s *Server) handleEnsurePlayer(w http.ResponseWriter, r *http.Request) {
	var req ensurePlayerRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	wallet, created, err := s.wallets.EnsureWallet(r.Context(), req.PlayerID, req.DisplayName)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, wallet)
}

// --- bets ---

type tableBetRequest struct {
	PlayerID string        `json:"playerId" validate:"required"`
	Stakes   map[int]int64 `json:"stakes" validate:"required"`
}

type duelBetRequest struct {
	PlayerID   string `json:"playerId" validate:"required"`
	BetPerDuel int64  `json:"betPerDuel" validate:"required,gt=0"`
	TableSize  int    `json:"tableSize" validate:"required,min=2,max=5"`
}

type ticketResponse struct {
	TicketID   string `json:"ticketId"`
	Mode       string `json:"mode"`
	Phase      string `json:"phase"`
	TotalStake int64  `json:"totalStake"`
}

func (s *Server) handleTableBet(w http.ResponseWriter, r *http.Request) {
	var req tableBetRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	slip := make(dicetable.Slip, len(req.Stakes))
	for face, stake := range req.Stakes {
		slip[face] = money.Money(stake)
	}

	ticket, err := s.engine.PlaceTableBet(r.Context(), req.PlayerID, slip)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticketFromEngine(ticket))
}

func (s *Server) handleDuelBet(w http.ResponseWriter, r *http.Request) {
	var req duelBetRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	slip := duel.Slip{
		BetPerDuel: money.Money(req.BetPerDuel),
		TableSize:  req.TableSize,
	}

	ticket, err := s.engine.PlaceDuelBet(r.Context(), req.PlayerID, slip)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticketFromEngine(ticket))
}

func ticketFromEngine(t *engine.Ticket) ticketResponse {
	return ticketResponse{
		TicketID:   t.ID,
		Mode:       string(t.Mode),
		Phase:      string(t.Phase),
		TotalStake: int64(t.TotalStake),
	}
}

// --- settlement ---

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	outcome, err := s.engine.Settle(r.Context(), ticketID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	if err := s.engine.Reset(ticketID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- wallet ---

type moveFundsRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Method string `json:"method" validate:"required"`
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	wallet, err := s.wallets.GetWallet(r.Context(), playerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	var req moveFundsRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	wallet, err := s.wallets.Deposit(r.Context(), playerID, money.Money(req.Amount), req.Method)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	var req moveFundsRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	wallet, err := s.wallets.Withdraw(r.Context(), playerID, money.Money(req.Amount), req.Method)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.wallets.History(r.Context(), playerID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- admin ---

type commissionRequest struct {
	Rate int `json:"rate" validate:"min=0,max=20"`
}

type adjustRequest struct {
	Amount int64  `json:"amount" validate:"required"`
	Note   string `json:"note"`
}

type blockRequest struct {
	Blocked bool `json:"blocked"`
}

func (s *Server) handleGetCommission(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, commissionRequest{Rate: s.admin.CommissionRate()})
}

func (s *Server) handleSetCommission(w http.ResponseWriter, r *http.Request) {
	var req commissionRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if err := s.admin.SetCommissionRate(req.Rate); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commissionRequest{Rate: s.admin.CommissionRate()})
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	var req adjustRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	wallet, err := s.admin.AdjustBalance(r.Context(), playerID, money.Money(req.Amount), req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	var req blockRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	if err := s.admin.SetBlocked(r.Context(), playerID, req.Blocked); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseRange reads from/to query parameters (RFC 3339 dates), defaulting to
// the last 7 days.
func parseRange(r *http.Request) (time.Time, time.Time) {
	now := time.Now()
	from := now.Add(-7 * 24 * time.Hour)
	to := now

	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			from = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			to = t
		}
	}
	return from, to
}

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	from, to := parseRange(r)

	report, err := s.reports.HouseNetByDay(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePlayerReport(w http.ResponseWriter, r *http.Request) {
	from, to := parseRange(r)

	report, err := s.reports.PlayerNet(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePlayerLedgerReport(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	from, to := parseRange(r)

	entries, err := s.reports.PlayerLedger(r.Context(), playerID, from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
