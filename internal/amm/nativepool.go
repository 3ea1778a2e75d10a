package amm

import (
	"github.com/gagliardetto/solana-go"

	"github.com/gorb-swap/amm-core/internal/ledger"
)

// NativePoolAccounts names every address a native-asset handler touches.
// The pool account itself holds the native-asset reserve as lamports
// (spec §4.4); there is no vault for the native side.
type NativePoolAccounts struct {
	Program      solana.PublicKey
	Pool         solana.PublicKey
	TokenVault   solana.PublicKey
	LPMint       solana.PublicKey
	User         solana.PublicKey
	UserToken    solana.PublicKey
	UserLP       solana.PublicKey
}

func (e *Engine) loadNativePool(addr, program solana.PublicKey) (*NativePoolRecord, ledger.Account, error) {
	acc, err := e.Store.Get(addr)
	if err != nil {
		return nil, ledger.Account{}, ErrPoolNotFound
	}
	if acc.Owner != program {
		return nil, ledger.Account{}, ErrInvalidOwner
	}
	rec, err := UnmarshalNativePoolRecord(acc.Data)
	if err != nil {
		return nil, ledger.Account{}, err
	}
	return rec, acc, nil
}

func (e *Engine) saveNativePool(addr, program solana.PublicKey, rec *NativePoolRecord, lamports uint64) error {
	return e.Store.Put(addr, ledger.Account{Owner: program, Lamports: lamports, Data: rec.Marshal()})
}

// InitNativeSOLPool implements spec §4.4's InitNativeSOLPool. The pool
// account is created with lamports = RentExemptMinimum + amount_sol, since
// the native reserve is always pool.lamports - RentExemptMinimum.
func (e *Engine) InitNativeSOLPool(acc NativePoolAccounts, tokenMint solana.PublicKey, amountSOL, amountToken uint64) error {
	return e.Store.WithPoolLock(acc.Pool, func() error {
		if e.Store.Exists(acc.Pool) {
			return ErrPoolExists
		}
		if amountToken == 0 {
			return ErrInsufficientLiq
		}

		pool, err := VerifyPDA(acc.Pool, acc.Program, seedNativePool, tokenMint.Bytes())
		if err != nil {
			return err
		}
		if _, err := VerifyPDA(acc.TokenVault, acc.Program, seedNativeVault, acc.Pool.Bytes(), tokenMint.Bytes()); err != nil {
			return err
		}
		if _, err := VerifyPDA(acc.LPMint, acc.Program, seedNativeMint, acc.Pool.Bytes()); err != nil {
			return err
		}

		deposit, err := ComputeInitialDeposit(amountSOL, amountToken)
		if err != nil {
			return err
		}

		if err := e.Token.CreateAccount(acc.TokenVault, tokenMint, acc.Pool); err != nil {
			return err
		}
		if err := e.Token.InitializeMint(acc.LPMint, acc.Pool); err != nil {
			return err
		}
		if err := e.Token.Transfer(acc.UserToken, acc.TokenVault, amountToken); err != nil {
			return ErrInsufficientInput
		}
		if err := e.Token.MintTo(acc.LPMint, acc.UserLP, deposit.SharesMinted); err != nil {
			return err
		}

		rec := &NativePoolRecord{
			TokenMint:     tokenMint,
			Bump:          pool,
			ReserveSOL:    deposit.ActualA,
			ReserveToken:  deposit.ActualB,
			TotalLPSupply: deposit.SharesMinted,
			FeeTreasury:   acc.User,
		}
		lamports := RentExemptMinimum + deposit.ActualA
		if err := e.saveNativePool(acc.Pool, acc.Program, rec, lamports); err != nil {
			return err
		}
		e.Registry.add(RegistryEntry{Pool: acc.Pool, Kind: KindNativeAsset, MintB: tokenMint})
		return nil
	})
}

// SwapNativeSOLToToken implements spec §4.4. The handler itself credits
// amountIn to the pool account's lamport balance; the user-side debit of
// that native inflow is not modeled in the account store. It also performs
// the bookkeeping and the token-side payout under pool-PDA authorization.
func (e *Engine) SwapNativeSOLToToken(acc NativePoolAccounts, amountIn, minOut uint64) (SwapResult, error) {
	var result SwapResult
	err := e.Store.WithPoolLock(acc.Pool, func() error {
		rec, poolAcc, err := e.loadNativePool(acc.Pool, acc.Program)
		if err != nil {
			return err
		}

		swap, err := ComputeSwap(amountIn, rec.ReserveSOL, rec.ReserveToken)
		if err != nil {
			return err
		}
		if swap.AmountOut < minOut {
			return ErrSlippageExceeded
		}

		if err := e.Token.Transfer(acc.TokenVault, acc.UserToken, swap.AmountOut); err != nil {
			return err
		}

		rec.ReserveSOL = swap.NewReserveIn
		rec.ReserveToken = swap.NewReserveOut
		rec.FeeCollectedSOL += swap.FeeRetained

		lamports := poolAcc.Lamports + amountIn
		result = swap
		return e.saveNativePool(acc.Pool, acc.Program, rec, lamports)
	})
	return result, err
}

// SwapTokenToNativeSOL implements spec §4.4's symmetric swap: the user
// transfers tokens into the vault, and the payout is a direct lamport
// decrement on the program-owned pool account (no signer needed), never a
// system-program transfer, per §9's "native-lamport transfers" note. The
// post-state lamport balance must not fall below RentExemptMinimum +
// reserve_sol'.
func (e *Engine) SwapTokenToNativeSOL(acc NativePoolAccounts, amountIn, minOut uint64) (SwapResult, error) {
	var result SwapResult
	err := e.Store.WithPoolLock(acc.Pool, func() error {
		rec, poolAcc, err := e.loadNativePool(acc.Pool, acc.Program)
		if err != nil {
			return err
		}

		swap, err := ComputeSwap(amountIn, rec.ReserveToken, rec.ReserveSOL)
		if err != nil {
			return err
		}
		if swap.AmountOut < minOut {
			return ErrSlippageExceeded
		}
		if poolAcc.Lamports < swap.AmountOut {
			return ErrMathOverflow
		}
		newLamports := poolAcc.Lamports - swap.AmountOut
		if newLamports < RentExemptMinimum+swap.NewReserveOut {
			return ErrRentFloorBreached
		}

		if err := e.Token.Transfer(acc.UserToken, acc.TokenVault, amountIn); err != nil {
			return ErrInsufficientInput
		}

		rec.ReserveToken = swap.NewReserveIn
		rec.ReserveSOL = swap.NewReserveOut
		rec.FeeCollectedToken += swap.FeeRetained

		result = swap
		return e.saveNativePool(acc.Pool, acc.Program, rec, newLamports)
	})
	return result, err
}

// AddLiquidityNativeSOL implements spec §4.4's add-liquidity analog: the
// handler credits the native-side deposit (ActualA) to the pool account's
// lamport balance itself; the user-side debit is not modeled in the
// account store.
func (e *Engine) AddLiquidityNativeSOL(acc NativePoolAccounts, amountSOL, amountToken uint64) (DepositResult, error) {
	var result DepositResult
	err := e.Store.WithPoolLock(acc.Pool, func() error {
		rec, poolAcc, err := e.loadNativePool(acc.Pool, acc.Program)
		if err != nil {
			return err
		}

		deposit, err := ComputeProportionalDeposit(amountSOL, amountToken, rec.ReserveSOL, rec.ReserveToken, rec.TotalLPSupply)
		if err != nil {
			return err
		}

		if err := e.Token.Transfer(acc.UserToken, acc.TokenVault, deposit.ActualB); err != nil {
			return ErrInsufficientInput
		}
		if err := e.Token.MintTo(acc.LPMint, acc.UserLP, deposit.SharesMinted); err != nil {
			return err
		}

		rec.ReserveSOL += deposit.ActualA
		rec.ReserveToken += deposit.ActualB
		rec.TotalLPSupply += deposit.SharesMinted
		lamports := poolAcc.Lamports + deposit.ActualA
		result = deposit
		return e.saveNativePool(acc.Pool, acc.Program, rec, lamports)
	})
	return result, err
}

// RemoveLiquidityNativeSOL implements spec §4.4's remove-liquidity analog:
// the native-side payout is a direct lamport write, subject to the same
// rent-floor invariant as SwapTokenToNativeSOL.
func (e *Engine) RemoveLiquidityNativeSOL(acc NativePoolAccounts, shares uint64) (RedeemResult, error) {
	var result RedeemResult
	err := e.Store.WithPoolLock(acc.Pool, func() error {
		rec, poolAcc, err := e.loadNativePool(acc.Pool, acc.Program)
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

		redeem, err := ComputeProportionalRedeem(shares, rec.ReserveSOL, rec.ReserveToken, rec.TotalLPSupply)
		if err != nil {
			return err
		}
		if poolAcc.Lamports < redeem.PayoutA {
			return ErrMathOverflow
		}
		newLamports := poolAcc.Lamports - redeem.PayoutA
		newReserveSOL := rec.ReserveSOL - redeem.PayoutA
		if newLamports < RentExemptMinimum+newReserveSOL {
			return ErrRentFloorBreached
		}

		if err := e.Token.Burn(acc.LPMint, acc.UserLP, shares); err != nil {
			return err
		}
		if err := e.Token.Transfer(acc.TokenVault, acc.UserToken, redeem.PayoutB); err != nil {
			return err
		}

		rec.ReserveSOL = newReserveSOL
		rec.ReserveToken -= redeem.PayoutB
		rec.TotalLPSupply -= shares
		result = redeem
		return e.saveNativePool(acc.Pool, acc.Program, rec, newLamports)
	})
	return result, err
}
