package server

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/gorb-swap/amm-core/internal/amm"
	"github.com/gorb-swap/amm-core/internal/flags"
	"github.com/gorb-swap/amm-core/internal/storage"
)

// Handlers contains all dependencies for API endpoint handlers.
type Handlers struct {
	Processor *amm.Processor    // instruction dispatcher
	Program   solana.PublicKey  // program instructions are addressed to
	Flags     *flags.Store      // Redis-backed feature flags store
	Events    storage.EventLog  // event-log pipeline (optional)
	DevMode   bool              // enable detailed error responses in development
	Logger    *logrus.Logger    // structured logger
}

// err returns a standardized JSON error response. In dev mode, includes
// additional error details for debugging.
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// ammErr maps an internal/amm error to its spec §7 HTTP status and returns
// a standardized JSON error response for it.
func (h *Handlers) ammErr(c echo.Context, err error) error {
	return h.err(c, ammErrorStatus(err), err.Error(), nil)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0.
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

func parsePubkey(raw string) (solana.PublicKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return solana.PublicKey{}, errors.New("empty pubkey")
	}
	return solana.PublicKeyFromBase58(raw)
}

// SubmitInstruction decodes a base64 (opcode || payload) instruction plus a
// base58 account list and dispatches it through the Processor (spec §6,
// SPEC_FULL.md §4.10).
func (h *Handlers) SubmitInstruction(c echo.Context) error {
	var req InstructionRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid data", map[string]any{"data": "must be base64"})
	}

	accounts := make([]solana.PublicKey, len(req.Accounts))
	for i, a := range req.Accounts {
		pk, err := parsePubkey(a)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid account", map[string]any{"index": i})
		}
		accounts[i] = pk
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Processor.ProcessInstruction(ctx, h.Program, data, accounts)
	if err != nil {
		return h.ammErr(c, err)
	}
	return c.JSON(http.StatusOK, InstructionResponse{Opcode: res.Opcode.String(), View: res.View})
}

// PoolInfo returns GetPoolInfo for the token-token pool named by :pool.
func (h *Handlers) PoolInfo(c echo.Context) error {
	pool, err := parsePubkey(c.Param("pool"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool", nil)
	}

	info, err := h.Processor.Engine.GetPoolInfo(pool, h.Program)
	if err != nil {
		return h.ammErr(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

// Pools returns GetTotalPools, or FindPoolsByToken when a ?token= query
// param is given.
func (h *Handlers) Pools(c echo.Context) error {
	if token := strings.TrimSpace(c.QueryParam("token")); token != "" {
		mint, err := parsePubkey(token)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid token", nil)
		}
		return c.JSON(http.StatusOK, map[string]any{"items": h.Processor.Engine.FindPoolsByToken(mint)})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": h.Processor.Engine.GetTotalPools()})
}

// Quote returns GetSwapQuote for a single pool, or GetMultihopQuote when a
// comma-separated ?pools= chain is given alongside a ?mints= chain naming
// each hop's input mint in order.
func (h *Handlers) Quote(c echo.Context) error {
	amountStr := strings.TrimSpace(c.QueryParam("amount_in"))
	if amountStr == "" {
		return h.err(c, http.StatusBadRequest, "invalid amount_in", map[string]any{"amount_in": "required"})
	}
	amountIn, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount_in", map[string]any{"amount_in": "must be uint64"})
	}

	if poolsCSV := strings.TrimSpace(c.QueryParam("pools")); poolsCSV != "" {
		hops, err := h.parseHopChain(poolsCSV, strings.TrimSpace(c.QueryParam("mints")))
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid hop chain", map[string]any{"err": err.Error()})
		}
		quote, err := h.Processor.Engine.GetMultihopQuote(h.Program, hops, amountIn)
		if err != nil {
			return h.ammErr(c, err)
		}
		return c.JSON(http.StatusOK, quote)
	}

	pool, err := parsePubkey(c.QueryParam("pool"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool", nil)
	}
	tokenIn, err := parsePubkey(c.QueryParam("token_in"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid token_in", nil)
	}

	quote, err := h.Processor.Engine.GetSwapQuote(pool, h.Program, tokenIn, amountIn)
	if err != nil {
		return h.ammErr(c, err)
	}
	return c.JSON(http.StatusOK, quote)
}

// parseHopChain builds the []amm.Hop GetMultihopQuote needs from a
// comma-separated pool list and a comma-separated mint list one longer
// (mint[i] is hop i's input, mint[i+1] its output).
func (h *Handlers) parseHopChain(poolsCSV, mintsCSV string) ([]amm.Hop, error) {
	poolStrs := splitCSVQuery([]string{poolsCSV})
	mintStrs := splitCSVQuery([]string{mintsCSV})
	if len(poolStrs) < 2 || len(mintStrs) != len(poolStrs)+1 {
		return nil, errors.New("pools needs >=2 entries and mints needs len(pools)+1 entries")
	}

	hops := make([]amm.Hop, len(poolStrs))
	for i, p := range poolStrs {
		pool, err := parsePubkey(p)
		if err != nil {
			return nil, err
		}
		tokenIn, err := parsePubkey(mintStrs[i])
		if err != nil {
			return nil, err
		}
		tokenOut, err := parsePubkey(mintStrs[i+1])
		if err != nil {
			return nil, err
		}
		hops[i] = amm.Hop{Pool: pool, TokenInMint: tokenIn, TokenOutMint: tokenOut}
	}
	return hops, nil
}

// NativePoolInfo returns GetNativeSOLPoolInfo for the native-asset pool
// named by :pool.
func (h *Handlers) NativePoolInfo(c echo.Context) error {
	pool, err := parsePubkey(c.Param("pool"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool", nil)
	}
	info, err := h.Processor.Engine.GetNativeSOLPoolInfo(pool, h.Program)
	if err != nil {
		return h.ammErr(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

// NativePoolQuote returns GetNativeSOLSwapQuote for the pool named by
// :pool. ?sol_to_token=true|false selects swap direction (default true).
func (h *Handlers) NativePoolQuote(c echo.Context) error {
	pool, err := parsePubkey(c.Param("pool"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool", nil)
	}

	amountStr := strings.TrimSpace(c.QueryParam("amount_in"))
	amountIn, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount_in", map[string]any{"amount_in": "must be uint64"})
	}

	solToToken := true
	if v := strings.TrimSpace(c.QueryParam("sol_to_token")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid sol_to_token", map[string]any{"sol_to_token": "must be boolean"})
		}
		solToToken = b
	}

	quote, err := h.Processor.Engine.GetNativeSOLSwapQuote(pool, h.Program, amountIn, solToToken)
	if err != nil {
		return h.ammErr(c, err)
	}
	return c.JSON(http.StatusOK, quote)
}

// FlagsUpsert creates or updates a feature flag with the given key and value.
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates an existing feature flag with the given key.
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves a feature flag by its key. Returns 404 if absent.
func (h *Handlers) FlagsGet(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all feature flags in the system.
func (h *Handlers) FlagsList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a feature flag by its key.
func (h *Handlers) FlagsDelete(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
