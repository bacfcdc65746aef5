package domain

import "errors"

var (
	// Trade validation failures. Every one of these terminates the call
	// before any reserve is written.
	ErrInvalidOutcome        = errors.New("outcome must be 0 (NO) or 1 (YES)")
	ErrInvalidAmount         = errors.New("amount must be greater than 0")
	ErrPoolAlreadyExists     = errors.New("pool already exists")
	ErrPoolNotFound          = errors.New("pool does not exist")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrSlippageExceeded      = errors.New("slippage exceeded")
	ErrInvariantViolation    = errors.New("constant-product invariant violation")
	ErrLiquidityCapExceeded  = errors.New("liquidity cap exceeded")

	// Infrastructure-level failures.
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrLockHeld     = errors.New("lock already held")
)
