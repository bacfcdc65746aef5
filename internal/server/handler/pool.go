package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/boxmeout/poolengine/internal/domain"
	"github.com/boxmeout/poolengine/internal/service"
)

// PoolHandler serves pool creation and pool-state endpoints.
type PoolHandler struct {
	svc    *service.AMMService
	logger *slog.Logger
}

// NewPoolHandler creates a PoolHandler over the settlement service.
func NewPoolHandler(svc *service.AMMService, logger *slog.Logger) *PoolHandler {
	return &PoolHandler{svc: svc, logger: logger.With(slog.String("handler", "pool"))}
}

type createPoolRequest struct {
	// Exactly one of MarketID or Question identifies the market; a question
	// derives the id deterministically.
	MarketID         string `json:"market_id,omitempty"`
	Question         string `json:"question,omitempty"`
	InitialLiquidity string `json:"initial_liquidity"`
}

type poolResponse struct {
	MarketID   string    `json:"market_id"`
	YesReserve string    `json:"yes_reserve"`
	NoReserve  string    `json:"no_reserve"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toPoolResponse(p domain.Pool) poolResponse {
	return poolResponse{
		MarketID:   p.MarketID.String(),
		YesReserve: p.YesReserve.Dec(),
		NoReserve:  p.NoReserve.Dec(),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// CreatePool seeds a new 50/50 pool.
// POST /api/pools
func (h *PoolHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var id domain.MarketID
	switch {
	case req.MarketID != "":
		parsed, err := domain.ParseMarketID(req.MarketID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid market_id")
			return
		}
		id = parsed
	case req.Question != "":
		id = domain.DeriveMarketID(req.Question)
	default:
		writeError(w, http.StatusBadRequest, "market_id or question is required")
		return
	}

	initial, err := parseAmount(req.InitialLiquidity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid initial_liquidity")
		return
	}

	pool, err := h.svc.CreatePool(r.Context(), id, initial)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPoolResponse(pool))
}

type stateResponse struct {
	MarketID       string `json:"market_id"`
	YesReserve     string `json:"yes_reserve"`
	NoReserve      string `json:"no_reserve"`
	TotalLiquidity string `json:"total_liquidity"`
	YesOddsBps     uint32 `json:"yes_odds_bps"`
	NoOddsBps      uint32 `json:"no_odds_bps"`
	Exists         bool   `json:"exists"`
}

// GetPool returns the pool snapshot. Never-created markets report zero
// reserves and even odds with a 200 rather than a 404.
// GET /api/pools/{id}
func (h *PoolHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	st, err := h.svc.State(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{
		MarketID:       st.MarketID.String(),
		YesReserve:     st.YesReserve.Dec(),
		NoReserve:      st.NoReserve.Dec(),
		TotalLiquidity: st.TotalLiquidity.Dec(),
		YesOddsBps:     st.Odds.Yes,
		NoOddsBps:      st.Odds.No,
		Exists:         st.Exists,
	})
}

// GetOdds returns only the implied odds pair.
// GET /api/pools/{id}/odds
func (h *PoolHandler) GetOdds(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	odds, err := h.svc.Odds(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint32{
		"yes_odds_bps": odds.Yes,
		"no_odds_bps":  odds.No,
	})
}
