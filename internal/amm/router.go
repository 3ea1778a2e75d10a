package amm

import (
	"github.com/gagliardetto/solana-go"

	"github.com/gorb-swap/amm-core/internal/ledger"
)

// Hop names the 7-account window spec §4.5 assigns to one leg of a
// multi-hop route.
type Hop struct {
	Pool          solana.PublicKey
	TokenInMint   solana.PublicKey
	TokenOutMint  solana.PublicKey
	VaultIn       solana.PublicKey
	VaultOut      solana.PublicKey
	UserIn        solana.PublicKey
	UserOut       solana.PublicKey
}

// hopSnapshot is one account's pre-chain state, captured so a failing hop
// can be unwound as if the whole instruction had never run (spec §4.5 "the
// entire chain either commits or reverts", §7 "all account writes roll
// back").
type hopSnapshot struct {
	addr    solana.PublicKey
	account ledger.Account
	existed bool
}

// snapshotHopAccounts captures the current state of every address any hop
// in the chain touches, deduplicated, before a single hop runs.
func (e *Engine) snapshotHopAccounts(hops []Hop) []hopSnapshot {
	seen := make(map[solana.PublicKey]bool)
	var out []hopSnapshot
	capture := func(addr solana.PublicKey) {
		if seen[addr] {
			return
		}
		seen[addr] = true
		acc, err := e.Store.Get(addr)
		out = append(out, hopSnapshot{addr: addr, account: acc, existed: err == nil})
	}
	for _, h := range hops {
		capture(h.Pool)
		capture(h.VaultIn)
		capture(h.VaultOut)
		capture(h.UserIn)
		capture(h.UserOut)
	}
	return out
}

// restoreHopAccounts puts every snapshotted account back exactly as it was,
// deleting ones that didn't exist before the chain started.
func (e *Engine) restoreHopAccounts(snapshot []hopSnapshot) {
	for _, s := range snapshot {
		if s.existed {
			_ = e.Store.Put(s.addr, s.account)
		} else {
			_ = e.Store.Delete(s.addr)
		}
	}
}

// MultihopSwap implements spec §4.5: executes hops in order, threading hop
// i's output into hop i+1's input by recomputing from updated reserves
// (never by sampling the intermediate user account), applying the
// minimum-output guard only to the final hop. A snapshot of every touched
// account is taken up front and restored if any hop fails, so a failing
// chain leaves every pool exactly as it found it (scenario S3).
func (e *Engine) MultihopSwap(program solana.PublicKey, hops []Hop, amountIn, minimumOut uint64) ([]SwapResult, error) {
	if len(hops) < 2 {
		return nil, ErrInvalidAccountOrder
	}

	snapshot := e.snapshotHopAccounts(hops)
	results, err := e.runHops(program, hops, amountIn, minimumOut)
	if err != nil {
		e.restoreHopAccounts(snapshot)
		return nil, err
	}
	return results, nil
}

func (e *Engine) runHops(program solana.PublicKey, hops []Hop, amountIn, minimumOut uint64) ([]SwapResult, error) {
	results := make([]SwapResult, 0, len(hops))
	currentIn := amountIn
	for i, hop := range hops {
		rec, err := e.loadPool(hop.Pool, program)
		if err != nil {
			return nil, err
		}

		aToB := hop.TokenInMint == rec.TokenA
		if !aToB && hop.TokenInMint != rec.TokenB {
			return nil, ErrInvalidAccountOrder
		}

		acc := PoolAccounts{
			Program:    program,
			Pool:       hop.Pool,
			VaultA:     hop.VaultIn,
			VaultB:     hop.VaultOut,
			UserTokenA: hop.UserIn,
			UserTokenB: hop.UserOut,
		}
		if !aToB {
			acc.VaultA, acc.VaultB = hop.VaultOut, hop.VaultIn
			acc.UserTokenA, acc.UserTokenB = hop.UserOut, hop.UserIn
		}

		isLast := i == len(hops)-1
		var floor uint64
		if isLast {
			floor = minimumOut
		}

		result, err := e.swapWithMinOut(acc, currentIn, aToB, floor)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
		currentIn = result.AmountOut
	}
	return results, nil
}
