package handler

import (
	"log/slog"
	"net/http"

	"github.com/boxmeout/poolengine/internal/service"
)

// ParamsHandler exposes the engine's pricing configuration.
type ParamsHandler struct {
	svc    *service.AMMService
	logger *slog.Logger
}

// NewParamsHandler creates a ParamsHandler.
func NewParamsHandler(svc *service.AMMService, logger *slog.Logger) *ParamsHandler {
	return &ParamsHandler{svc: svc, logger: logger.With(slog.String("handler", "params"))}
}

// GetParams returns the immutable engine parameters.
// GET /api/engine/params
func (h *ParamsHandler) GetParams(w http.ResponseWriter, r *http.Request) {
	p := h.svc.Params()

	liquidityCap := ""
	if p.MaxLiquidityCap != nil {
		liquidityCap = p.MaxLiquidityCap.Dec()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pricing_model":           p.PricingModel,
		"trading_fee_bps":         p.TradingFeeBps,
		"slippage_protection_bps": p.SlippageProtectionBps,
		"max_liquidity_cap":       liquidityCap,
	})
}
