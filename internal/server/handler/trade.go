package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/holiman/uint256"

	"github.com/boxmeout/poolengine/internal/crypto"
	"github.com/boxmeout/poolengine/internal/domain"
	"github.com/boxmeout/poolengine/internal/service"
)

// TradeHandler serves buy/sell settlement and trade-history endpoints.
type TradeHandler struct {
	svc    *service.AMMService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler over the settlement service.
func NewTradeHandler(svc *service.AMMService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{svc: svc, logger: logger.With(slog.String("handler", "trade"))}
}

type tradeRequest struct {
	Trader    string `json:"trader"`
	Outcome   string `json:"outcome"`
	Amount    string `json:"amount"`     // payment for buys, shares for sells
	MinOut    string `json:"min_out"`    // optional slippage floor
	Nonce     uint64 `json:"nonce"`      // replay protection, part of the signed digest
	Signature string `json:"signature"`  // hex r||s||v over the trade digest
}

type tradeResponse struct {
	ID         string    `json:"id"`
	MarketID   string    `json:"market_id"`
	Trader     string    `json:"trader"`
	Side       string    `json:"side"`
	Outcome    string    `json:"outcome"`
	AmountIn   string    `json:"amount_in"`
	AmountOut  string    `json:"amount_out"`
	Fee        string    `json:"fee"`
	YesReserve string    `json:"yes_reserve"`
	NoReserve  string    `json:"no_reserve"`
	CreatedAt  time.Time `json:"created_at"`
}

func toTradeResponse(t domain.Trade) tradeResponse {
	return tradeResponse{
		ID:         t.ID,
		MarketID:   t.MarketID.String(),
		Trader:     t.Trader,
		Side:       string(t.Side),
		Outcome:    t.Outcome.String(),
		AmountIn:   t.AmountIn.Dec(),
		AmountOut:  t.AmountOut.Dec(),
		Fee:        t.Fee.Dec(),
		YesReserve: t.YesReserve.Dec(),
		NoReserve:  t.NoReserve.Dec(),
		CreatedAt:  t.CreatedAt,
	}
}

// parseTradeRequest turns the HTTP body into a service request.
func parseTradeRequest(r *http.Request) (service.TradeRequest, error) {
	id, err := marketIDParam(r)
	if err != nil {
		return service.TradeRequest{}, domain.ErrNotFound
	}

	var body tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return service.TradeRequest{}, domain.ErrInvalidAmount
	}

	outcome, err := parseOutcome(body.Outcome)
	if err != nil {
		return service.TradeRequest{}, err
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		return service.TradeRequest{}, err
	}

	var minOut *uint256.Int
	if body.MinOut != "" {
		minOut, err = parseAmount(body.MinOut)
		if err != nil {
			return service.TradeRequest{}, err
		}
	}

	var sig []byte
	if body.Signature != "" {
		sig, err = crypto.ParseSignature(body.Signature)
		if err != nil {
			return service.TradeRequest{}, err
		}
	}

	return service.TradeRequest{
		MarketID:  id,
		Trader:    body.Trader,
		Outcome:   outcome,
		Amount:    amount,
		MinOut:    minOut,
		Nonce:     body.Nonce,
		Signature: sig,
	}, nil
}

// Buy settles a share purchase.
// POST /api/pools/{id}/buy
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	req, err := parseTradeRequest(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	trade, err := h.svc.Buy(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTradeResponse(trade))
}

// Sell settles a share sale.
// POST /api/pools/{id}/sell
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	req, err := parseTradeRequest(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	trade, err := h.svc.Sell(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTradeResponse(trade))
}

// ListTrades returns a market's settled trades, newest first.
// GET /api/trades?market_id=...
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("market_id")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "market_id is required")
		return
	}
	id, err := domain.ParseMarketID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market_id")
		return
	}

	trades, err := h.svc.Trades(r.Context(), id, parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, toTradeResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trades": out,
		"count":  len(out),
	})
}
