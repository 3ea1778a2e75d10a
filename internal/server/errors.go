package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gorb-swap/amm-core/internal/amm"
)

// ammErrorStatus maps an internal/amm sentinel error to the HTTP status
// code SPEC_FULL.md §7 assigns it. Unrecognized errors (including ones
// wrapped by the ledger/token layers) fall back to 500.
func ammErrorStatus(err error) int {
	switch {
	case errors.Is(err, amm.ErrSlippageExceeded):
		return http.StatusConflict
	case errors.Is(err, amm.ErrInvalidOwner), errors.Is(err, amm.ErrInvalidPDA),
		errors.Is(err, amm.ErrInvalidAccountOrder), errors.Is(err, amm.ErrUnauthorized):
		return http.StatusBadRequest
	case errors.Is(err, amm.ErrEmptyPool), errors.Is(err, amm.ErrZeroOutput),
		errors.Is(err, amm.ErrInsufficientInput), errors.Is(err, amm.ErrInsufficientLP),
		errors.Is(err, amm.ErrInsufficientLiq), errors.Is(err, amm.ErrRentFloorBreached),
		errors.Is(err, amm.ErrPoolExists):
		return http.StatusBadRequest
	case errors.Is(err, amm.ErrPoolNotFound):
		return http.StatusNotFound
	case errors.Is(err, amm.ErrMathOverflow), errors.Is(err, amm.ErrInvariantBroken):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already committed
		if c.Response().Committed {
			return
		}

		// Handle Echo HTTP errors (like 404, 400, etc.)
		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		// Handle all other errors as internal server error
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}
