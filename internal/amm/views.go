package amm

import (
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
)

// PoolInfo is the structured result of GetPoolInfo (spec §4.7): every
// field the view logs, available to the HTTP façade as JSON too.
type PoolInfo struct {
	Pool          string
	TokenA        string
	TokenB        string
	ReserveA      uint64
	ReserveB      uint64
	TotalLPSupply uint64
	FeeCollectedA uint64
	FeeCollectedB uint64
	FeeTreasury   string
}

// GetPoolInfo implements spec §4.7's GetPoolInfo: deserializes the named
// pool and logs a structured summary. State is never mutated.
func (e *Engine) GetPoolInfo(pool, program solana.PublicKey) (PoolInfo, error) {
	rec, err := e.loadPool(pool, program)
	if err != nil {
		return PoolInfo{}, err
	}
	info := PoolInfo{
		Pool:          base58.Encode(pool.Bytes()),
		TokenA:        base58.Encode(rec.TokenA.Bytes()),
		TokenB:        base58.Encode(rec.TokenB.Bytes()),
		ReserveA:      rec.ReserveA,
		ReserveB:      rec.ReserveB,
		TotalLPSupply: rec.TotalLPSupply,
		FeeCollectedA: rec.FeeCollectedA,
		FeeCollectedB: rec.FeeCollectedB,
		FeeTreasury:   base58.Encode(rec.FeeTreasury.Bytes()),
	}
	logrus.WithFields(logrus.Fields{
		"pool":            info.Pool,
		"token_a":         info.TokenA,
		"token_b":         info.TokenB,
		"reserve_a":       info.ReserveA,
		"reserve_b":       info.ReserveB,
		"total_lp_supply": info.TotalLPSupply,
		"fee_collected_a": info.FeeCollectedA,
		"fee_collected_b": info.FeeCollectedB,
		"fee_treasury":    info.FeeTreasury,
	}).Info("pool info")
	return info, nil
}

// PoolSummary is the lightweight per-entry shape GetTotalPools /
// FindPoolsByToken return.
type PoolSummary struct {
	Pool  string
	Kind  string
	MintA string
	MintB string
}

func summarize(e RegistryEntry) PoolSummary {
	kind := "token-token"
	if e.Kind == KindNativeAsset {
		kind = "native-asset"
	}
	return PoolSummary{
		Pool:  base58.Encode(e.Pool.Bytes()),
		Kind:  kind,
		MintA: base58.Encode(e.MintA.Bytes()),
		MintB: base58.Encode(e.MintB.Bytes()),
	}
}

// GetTotalPools implements spec §4.7's GetTotalPools.
func (e *Engine) GetTotalPools() []PoolSummary {
	entries := e.Registry.GetAllPools()
	out := make([]PoolSummary, 0, len(entries))
	for _, entry := range entries {
		out = append(out, summarize(entry))
	}
	logrus.WithField("count", len(out)).Info("total pools")
	return out
}

// FindPoolsByToken implements spec §4.7's FindPoolsByToken.
func (e *Engine) FindPoolsByToken(target solana.PublicKey) []PoolSummary {
	entries := e.Registry.FindPoolsByToken(target)
	out := make([]PoolSummary, 0, len(entries))
	for _, entry := range entries {
		out = append(out, summarize(entry))
	}
	logrus.WithFields(logrus.Fields{
		"token": base58.Encode(target.Bytes()),
		"count": len(out),
	}).Info("pools by token")
	return out
}

// SwapQuote is the structured result of GetSwapQuote / GetMultihopQuote /
// GetNativeSOLSwapQuote: amount out plus price-impact and exchange-rate
// fields (spec §4.7).
type SwapQuote struct {
	AmountIn       uint64
	AmountOut      uint64
	PriceImpactBps float64
	ExchangeRate   float64
}

func buildQuote(amountIn, reserveIn, reserveOut uint64) (SwapQuote, error) {
	if amountIn == 0 {
		return SwapQuote{}, ErrZeroOutput
	}
	swap, err := ComputeSwap(amountIn, reserveIn, reserveOut)
	if err != nil {
		return SwapQuote{}, err
	}
	spotBefore := float64(reserveOut) / float64(reserveIn)
	effectiveRate := float64(swap.AmountOut) / float64(amountIn)
	impact := 0.0
	if spotBefore > 0 {
		impact = (spotBefore - effectiveRate) / spotBefore * 10000
	}
	return SwapQuote{
		AmountIn:       amountIn,
		AmountOut:      swap.AmountOut,
		PriceImpactBps: impact,
		ExchangeRate:   effectiveRate,
	}, nil
}

// GetSwapQuote implements spec §4.7's GetSwapQuote for a token-token pool.
func (e *Engine) GetSwapQuote(pool, program, tokenIn solana.PublicKey, amountIn uint64) (SwapQuote, error) {
	rec, err := e.loadPool(pool, program)
	if err != nil {
		return SwapQuote{}, err
	}
	reserveIn, reserveOut := rec.ReserveA, rec.ReserveB
	if tokenIn != rec.TokenA {
		reserveIn, reserveOut = rec.ReserveB, rec.ReserveA
	}
	quote, err := buildQuote(amountIn, reserveIn, reserveOut)
	if err != nil {
		return SwapQuote{}, err
	}
	logrus.WithFields(logrus.Fields{
		"pool":             base58.Encode(pool.Bytes()),
		"amount_in":        quote.AmountIn,
		"amount_out":       quote.AmountOut,
		"price_impact_bps": quote.PriceImpactBps,
		"exchange_rate":    quote.ExchangeRate,
	}).Info("swap quote")
	return quote, nil
}

// GetMultihopQuote implements spec §4.7's GetMultihopQuote: chains
// buildQuote across each hop's reserves without mutating any pool,
// mirroring the router's reserve-based handoff (spec §4.5) in read-only
// form.
func (e *Engine) GetMultihopQuote(program solana.PublicKey, hops []Hop, amountIn uint64) (SwapQuote, error) {
	currentIn := amountIn
	var last SwapQuote
	for _, hop := range hops {
		rec, err := e.loadPool(hop.Pool, program)
		if err != nil {
			return SwapQuote{}, err
		}
		reserveIn, reserveOut := rec.ReserveA, rec.ReserveB
		if hop.TokenInMint != rec.TokenA {
			reserveIn, reserveOut = rec.ReserveB, rec.ReserveA
		}
		quote, err := buildQuote(currentIn, reserveIn, reserveOut)
		if err != nil {
			return SwapQuote{}, err
		}
		last = quote
		currentIn = quote.AmountOut
	}
	logrus.WithFields(logrus.Fields{
		"hops":       len(hops),
		"amount_in":  amountIn,
		"amount_out": last.AmountOut,
	}).Info("multihop quote")
	return SwapQuote{AmountIn: amountIn, AmountOut: last.AmountOut, PriceImpactBps: last.PriceImpactBps, ExchangeRate: last.ExchangeRate}, nil
}

// NativePoolInfo is the native-asset sibling of PoolInfo.
type NativePoolInfo struct {
	Pool              string
	TokenMint         string
	ReserveSOL        uint64
	ReserveToken      uint64
	TotalLPSupply     uint64
	FeeCollectedSOL   uint64
	FeeCollectedToken uint64
	FeeTreasury       string
}

// GetNativeSOLPoolInfo implements spec §4.7's GetNativeSOLPoolInfo.
func (e *Engine) GetNativeSOLPoolInfo(pool, program solana.PublicKey) (NativePoolInfo, error) {
	rec, _, err := e.loadNativePool(pool, program)
	if err != nil {
		return NativePoolInfo{}, err
	}
	info := NativePoolInfo{
		Pool:              base58.Encode(pool.Bytes()),
		TokenMint:         base58.Encode(rec.TokenMint.Bytes()),
		ReserveSOL:        rec.ReserveSOL,
		ReserveToken:      rec.ReserveToken,
		TotalLPSupply:     rec.TotalLPSupply,
		FeeCollectedSOL:   rec.FeeCollectedSOL,
		FeeCollectedToken: rec.FeeCollectedToken,
		FeeTreasury:       base58.Encode(rec.FeeTreasury.Bytes()),
	}
	logrus.WithFields(logrus.Fields{
		"pool":          info.Pool,
		"token_mint":    info.TokenMint,
		"reserve_sol":   info.ReserveSOL,
		"reserve_token": info.ReserveToken,
	}).Info("native pool info")
	return info, nil
}

// GetNativeSOLSwapQuote implements spec §4.7's GetNativeSOLSwapQuote.
func (e *Engine) GetNativeSOLSwapQuote(pool, program solana.PublicKey, amountIn uint64, solToToken bool) (SwapQuote, error) {
	rec, _, err := e.loadNativePool(pool, program)
	if err != nil {
		return SwapQuote{}, err
	}
	reserveIn, reserveOut := rec.ReserveSOL, rec.ReserveToken
	if !solToToken {
		reserveIn, reserveOut = rec.ReserveToken, rec.ReserveSOL
	}
	quote, err := buildQuote(amountIn, reserveIn, reserveOut)
	if err != nil {
		return SwapQuote{}, err
	}
	logrus.WithFields(logrus.Fields{
		"pool":       base58.Encode(pool.Bytes()),
		"amount_in":  quote.AmountIn,
		"amount_out": quote.AmountOut,
	}).Info("native swap quote")
	return quote, nil
}
