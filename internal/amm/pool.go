package amm

import (
	"github.com/gagliardetto/solana-go"

	"github.com/gorb-swap/amm-core/internal/ledger"
	"github.com/gorb-swap/amm-core/internal/token"
)

// PoolAccounts names every address a token-token handler touches,
// mirroring the account-ordering convention the dispatcher enforces
// (spec §6 "Account ordering per instruction").
type PoolAccounts struct {
	Program     solana.PublicKey
	Pool        solana.PublicKey
	VaultA      solana.PublicKey
	VaultB      solana.PublicKey
	LPMint      solana.PublicKey
	User        solana.PublicKey
	UserTokenA  solana.PublicKey
	UserTokenB  solana.PublicKey
	UserLP      solana.PublicKey
}

// Engine binds the AMM handlers to a concrete account store and token
// adapter. One Engine serves every pool; per-pool serialization is the
// store's responsibility (ledger.Store.WithPoolLock).
type Engine struct {
	Store    ledger.Store
	Token    *token.Service
	Registry *Registry
}

// NewEngine constructs an Engine over the given store, wiring its own
// token.Service and discovery registry.
func NewEngine(store ledger.Store) *Engine {
	return &Engine{Store: store, Token: token.NewService(store), Registry: NewRegistry()}
}

func (e *Engine) loadPool(addr, program solana.PublicKey) (*PoolRecord, error) {
	acc, err := e.Store.Get(addr)
	if err != nil {
		return nil, ErrPoolNotFound
	}
	if acc.Owner != program {
		return nil, ErrInvalidOwner
	}
	return UnmarshalPoolRecord(acc.Data)
}

func (e *Engine) savePool(addr, program solana.PublicKey, rec *PoolRecord) error {
	return e.Store.Put(addr, ledger.Account{Owner: program, Data: rec.Marshal()})
}

// InitPool implements spec §4.3's InitPool: creates the pool, both vaults,
// and the LP mint under pool-PDA-derived seeds, funds the vaults from the
// user, and bootstraps LP supply via the geometric mean of the first
// deposit. Reverts (returns an error with no store mutation applied) on
// any failure.
func (e *Engine) InitPool(acc PoolAccounts, mintA, mintB solana.PublicKey, amountA, amountB uint64) error {
	return e.Store.WithPoolLock(acc.Pool, func() error {
		if e.Store.Exists(acc.Pool) {
			return ErrPoolExists
		}
		if amountA == 0 || amountB == 0 {
			return ErrInsufficientLiq
		}

		pool, err := VerifyPDA(acc.Pool, acc.Program, seedPool, mintA.Bytes(), mintB.Bytes())
		if err != nil {
			return err
		}
		if _, err := VerifyPDA(acc.VaultA, acc.Program, seedVault, acc.Pool.Bytes(), mintA.Bytes()); err != nil {
			return err
		}
		if _, err := VerifyPDA(acc.VaultB, acc.Program, seedVault, acc.Pool.Bytes(), mintB.Bytes()); err != nil {
			return err
		}
		if _, err := VerifyPDA(acc.LPMint, acc.Program, seedMint, acc.Pool.Bytes()); err != nil {
			return err
		}

		deposit, err := ComputeInitialDeposit(amountA, amountB)
		if err != nil {
			return err
		}

		if err := e.Token.CreateAccount(acc.VaultA, mintA, acc.Pool); err != nil {
			return err
		}
		if err := e.Token.CreateAccount(acc.VaultB, mintB, acc.Pool); err != nil {
			return err
		}
		if err := e.Token.InitializeMint(acc.LPMint, acc.Pool); err != nil {
			return err
		}
		if err := e.Token.Transfer(acc.UserTokenA, acc.VaultA, amountA); err != nil {
			return ErrInsufficientInput
		}
		if err := e.Token.Transfer(acc.UserTokenB, acc.VaultB, amountB); err != nil {
			return ErrInsufficientInput
		}
		if err := e.Token.MintTo(acc.LPMint, acc.UserLP, deposit.SharesMinted); err != nil {
			return err
		}

		rec := &PoolRecord{
			TokenA:        mintA,
			TokenB:        mintB,
			Bump:          pool,
			ReserveA:      deposit.ActualA,
			ReserveB:      deposit.ActualB,
			TotalLPSupply: deposit.SharesMinted,
			FeeTreasury:   acc.User,
		}
		if err := e.savePool(acc.Pool, acc.Program, rec); err != nil {
			return err
		}
		e.Registry.add(RegistryEntry{Pool: acc.Pool, Kind: KindTokenToken, MintA: mintA, MintB: mintB})
		return nil
	})
}

// AddLiquidity implements spec §4.3's AddLiquidity.
func (e *Engine) AddLiquidity(acc PoolAccounts, desiredA, desiredB uint64) (DepositResult, error) {
	var result DepositResult
	err := e.Store.WithPoolLock(acc.Pool, func() error {
		rec, err := e.loadPool(acc.Pool, acc.Program)
		if err != nil {
			return err
		}

		deposit, err := ComputeProportionalDeposit(desiredA, desiredB, rec.ReserveA, rec.ReserveB, rec.TotalLPSupply)
		if err != nil {
			return err
		}

		if err := e.Token.Transfer(acc.UserTokenA, acc.VaultA, deposit.ActualA); err != nil {
			return ErrInsufficientInput
		}
		if err := e.Token.Transfer(acc.UserTokenB, acc.VaultB, deposit.ActualB); err != nil {
			return ErrInsufficientInput
		}
		if err := e.Token.MintTo(acc.LPMint, acc.UserLP, deposit.SharesMinted); err != nil {
			return err
		}

		rec.ReserveA += deposit.ActualA
		rec.ReserveB += deposit.ActualB
		rec.TotalLPSupply += deposit.SharesMinted
		result = deposit
		return e.savePool(acc.Pool, acc.Program, rec)
	})
	return result, err
}

// RemoveLiquidity implements spec §4.3's RemoveLiquidity.
func (e *Engine) RemoveLiquidity(acc PoolAccounts, shares uint64) (RedeemResult, error) {
	var result RedeemResult
	err := e.Store.WithPoolLock(acc.Pool, func() error {
		rec, err := e.loadPool(acc.Pool, acc.Program)
		if err != nil {
			return err
		}

		lpBalance, err := e.Token.BalanceOf(acc.UserLP)
		if err != nil {
			return err
		}
		if lpBalance < shares {
			return ErrInsufficientLP
		}

		redeem, err := ComputeProportionalRedeem(shares, rec.ReserveA, rec.ReserveB, rec.TotalLPSupply)
		if err != nil {
			return err
		}

		if err := e.Token.Burn(acc.LPMint, acc.UserLP, shares); err != nil {
			return err
		}
		if err := e.Token.Transfer(acc.VaultA, acc.UserTokenA, redeem.PayoutA); err != nil {
			return err
		}
		if err := e.Token.Transfer(acc.VaultB, acc.UserTokenB, redeem.PayoutB); err != nil {
			return err
		}

		rec.ReserveA -= redeem.PayoutA
		rec.ReserveB -= redeem.PayoutB
		rec.TotalLPSupply -= shares
		result = redeem
		return e.savePool(acc.Pool, acc.Program, rec)
	})
	return result, err
}

// Swap implements spec §4.3's Swap.
func (e *Engine) Swap(acc PoolAccounts, amountIn uint64, aToB bool) (SwapResult, error) {
	return e.swapWithMinOut(acc, amountIn, aToB, 0)
}

// swapWithMinOut is Swap with an optional minimum-output guard checked
// before any transfer or reserve update lands, so a failing guard leaves
// the pool untouched — used directly by the router (spec §4.5) so only
// the final hop's check can abort a hop that would otherwise commit.
func (e *Engine) swapWithMinOut(acc PoolAccounts, amountIn uint64, aToB bool, minOut uint64) (SwapResult, error) {
	var result SwapResult
	err := e.Store.WithPoolLock(acc.Pool, func() error {
		rec, err := e.loadPool(acc.Pool, acc.Program)
		if err != nil {
			return err
		}

		reserveIn, reserveOut := rec.ReserveA, rec.ReserveB
		if !aToB {
			reserveIn, reserveOut = rec.ReserveB, rec.ReserveA
		}

		swap, err := ComputeSwap(amountIn, reserveIn, reserveOut)
		if err != nil {
			return err
		}
		if minOut > 0 && swap.AmountOut < minOut {
			return ErrSlippageExceeded
		}

		inVault, outVault := acc.VaultA, acc.VaultB
		userIn, userOut := acc.UserTokenA, acc.UserTokenB
		if !aToB {
			inVault, outVault = acc.VaultB, acc.VaultA
			userIn, userOut = acc.UserTokenB, acc.UserTokenA
		}

		if err := e.Token.Transfer(userIn, inVault, amountIn); err != nil {
			return ErrInsufficientInput
		}
		if err := e.Token.Transfer(outVault, userOut, swap.AmountOut); err != nil {
			return err
		}

		if aToB {
			rec.ReserveA = swap.NewReserveIn
			rec.ReserveB = swap.NewReserveOut
			rec.FeeCollectedA += swap.FeeRetained
		} else {
			rec.ReserveB = swap.NewReserveIn
			rec.ReserveA = swap.NewReserveOut
			rec.FeeCollectedB += swap.FeeRetained
		}

		result = swap
		return e.savePool(acc.Pool, acc.Program, rec)
	})
	return result, err
}
