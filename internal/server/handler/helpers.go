package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/boxmeout/poolengine/internal/domain"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a domain error to its HTTP status and writes it.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidOutcome),
		errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrPoolNotFound),
		errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrPoolAlreadyExists),
		errors.Is(err, domain.ErrSlippageExceeded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInsufficientLiquidity),
		errors.Is(err, domain.ErrLiquidityCapExceeded):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrLockHeld):
		writeError(w, http.StatusLocked, "market busy, retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseListOpts extracts pagination from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{Limit: limit, Offset: offset}
}

// marketIDParam parses the {id} path segment as a market identifier.
func marketIDParam(r *http.Request) (domain.MarketID, error) {
	return domain.ParseMarketID(r.PathValue("id"))
}

// parseAmount decodes a positive decimal-string amount.
func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, domain.ErrInvalidAmount
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, domain.ErrInvalidAmount
	}
	return v, nil
}

// parseOutcome accepts 0/1 or the YES/NO labels.
func parseOutcome(s string) (domain.Outcome, error) {
	switch s {
	case "0", "NO", "no":
		return domain.OutcomeNo, nil
	case "1", "YES", "yes":
		return domain.OutcomeYes, nil
	default:
		return 0, domain.ErrInvalidOutcome
	}
}
