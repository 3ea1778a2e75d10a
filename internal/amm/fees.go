package amm

import "github.com/gagliardetto/solana-go"

// CollectFees implements spec §4.6's CollectFees: transfers the full
// accumulated amounts from both vaults to the pool's current fee_treasury
// and resets the accumulators. Caller must be the current treasury.
func (e *Engine) CollectFees(acc PoolAccounts, caller solana.PublicKey, treasuryTokenA, treasuryTokenB solana.PublicKey) (feeA, feeB uint64, err error) {
	err = e.Store.WithPoolLock(acc.Pool, func() error {
		rec, lerr := e.loadPool(acc.Pool, acc.Program)
		if lerr != nil {
			return lerr
		}
		if rec.FeeTreasury != caller {
			return ErrUnauthorized
		}

		feeA, feeB = rec.FeeCollectedA, rec.FeeCollectedB
		if feeA > 0 {
			if terr := e.Token.Transfer(acc.VaultA, treasuryTokenA, feeA); terr != nil {
				return terr
			}
		}
		if feeB > 0 {
			if terr := e.Token.Transfer(acc.VaultB, treasuryTokenB, feeB); terr != nil {
				return terr
			}
		}

		rec.ReserveA -= feeA
		rec.ReserveB -= feeB
		rec.FeeCollectedA = 0
		rec.FeeCollectedB = 0
		return e.savePool(acc.Pool, acc.Program, rec)
	})
	return feeA, feeB, err
}

// SetFeeTreasury implements spec §4.6's SetFeeTreasury. Caller must be the
// current treasury.
func (e *Engine) SetFeeTreasury(acc PoolAccounts, caller, newTreasury solana.PublicKey) error {
	return e.Store.WithPoolLock(acc.Pool, func() error {
		rec, err := e.loadPool(acc.Pool, acc.Program)
		if err != nil {
			return err
		}
		if rec.FeeTreasury != caller {
			return ErrUnauthorized
		}
		rec.FeeTreasury = newTreasury
		return e.savePool(acc.Pool, acc.Program, rec)
	})
}

// WithdrawFees implements spec §4.6's WithdrawFees: a partial collection
// that must not exceed the outstanding accumulators.
func (e *Engine) WithdrawFees(acc PoolAccounts, caller solana.PublicKey, amountA, amountB uint64, treasuryTokenA, treasuryTokenB solana.PublicKey) error {
	return e.Store.WithPoolLock(acc.Pool, func() error {
		rec, err := e.loadPool(acc.Pool, acc.Program)
		if err != nil {
			return err
		}
		if rec.FeeTreasury != caller {
			return ErrUnauthorized
		}
		if amountA > rec.FeeCollectedA || amountB > rec.FeeCollectedB {
			return ErrInsufficientInput
		}

		if amountA > 0 {
			if terr := e.Token.Transfer(acc.VaultA, treasuryTokenA, amountA); terr != nil {
				return terr
			}
		}
		if amountB > 0 {
			if terr := e.Token.Transfer(acc.VaultB, treasuryTokenB, amountB); terr != nil {
				return terr
			}
		}

		rec.ReserveA -= amountA
		rec.ReserveB -= amountB
		rec.FeeCollectedA -= amountA
		rec.FeeCollectedB -= amountB
		return e.savePool(acc.Pool, acc.Program, rec)
	})
}
