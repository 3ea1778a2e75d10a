package amm

import "errors"

// Error kinds surfaced as distinct instruction-failure codes (spec §7).
var (
	ErrInvalidAccountOrder = errors.New("amm: invalid account order")
	ErrInvalidPDA          = errors.New("amm: invalid pda")
	ErrInvalidOwner        = errors.New("amm: invalid owner")
	ErrEmptyPool           = errors.New("amm: empty pool")
	ErrZeroOutput          = errors.New("amm: zero output")
	ErrSlippageExceeded    = errors.New("amm: slippage exceeded")
	ErrInsufficientInput   = errors.New("amm: insufficient input balance")
	ErrInsufficientLP      = errors.New("amm: insufficient lp balance")
	ErrInsufficientLiq     = errors.New("amm: insufficient liquidity minted")
	ErrMathOverflow        = errors.New("amm: math overflow")
	ErrInvariantBroken     = errors.New("amm: invariant broken")
	ErrRentFloorBreached   = errors.New("amm: rent floor breached")
	ErrUnauthorized        = errors.New("amm: unauthorized")
	ErrPoolExists          = errors.New("amm: pool already exists")
	ErrPoolNotFound        = errors.New("amm: pool not found")
)
