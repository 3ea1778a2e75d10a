package amm

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorb-swap/amm-core/internal/ledger"
)

type nativePoolFixture struct {
	engine    *Engine
	store     ledger.Store
	program   solana.PublicKey
	tokenMint solana.PublicKey
	user      solana.PublicKey
	acc       NativePoolAccounts
}

// newNativePoolFixture derives a fresh native-asset pool's accounts, funds
// the user's token account, and initializes the pool with (amountSOL,
// amountToken) reserves, mirroring newPoolFixture's token-token setup.
func newNativePoolFixture(t *testing.T, fundToken, amountSOL, amountToken uint64) nativePoolFixture {
	t.Helper()
	store := ledger.NewMemStore()
	engine := NewEngine(store)

	program := solana.NewWallet().PublicKey()
	tokenMint := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()

	pool, err := DeriveNativePoolPDA(program, tokenMint)
	require.NoError(t, err)
	vault, err := DeriveNativeVaultPDA(program, pool.Address, tokenMint)
	require.NoError(t, err)
	lpMint, err := DeriveNativeLPMintPDA(program, pool.Address)
	require.NoError(t, err)

	userToken := solana.NewWallet().PublicKey()
	userLP := solana.NewWallet().PublicKey()
	fundTokenAccount(t, store, userToken, tokenMint, user, fundToken)
	fundTokenAccount(t, store, userLP, lpMint.Address, user, 0)

	acc := NativePoolAccounts{
		Program: program, Pool: pool.Address, TokenVault: vault.Address,
		LPMint: lpMint.Address, User: user, UserToken: userToken, UserLP: userLP,
	}
	require.NoError(t, engine.InitNativeSOLPool(acc, tokenMint, amountSOL, amountToken))
	return nativePoolFixture{engine: engine, store: store, program: program, tokenMint: tokenMint, user: user, acc: acc}
}

func TestEngine_InitNativeSOLPool(t *testing.T) {
	f := newNativePoolFixture(t, 2_000_000_000, 1_000_000_000, 1_000_000_000)

	info, err := f.engine.GetNativeSOLPoolInfo(f.acc.Pool, f.program)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), info.ReserveSOL)
	assert.Equal(t, uint64(1_000_000_000), info.ReserveToken)

	poolAcc, err := f.store.Get(f.acc.Pool)
	require.NoError(t, err)
	assert.Equal(t, RentExemptMinimum+1_000_000_000, poolAcc.Lamports)
}

func TestEngine_SwapTokenToNativeSOL(t *testing.T) {
	f := newNativePoolFixture(t, 2_000_000_000, 1_000_000_000, 1_000_000_000)

	result, err := f.engine.SwapTokenToNativeSOL(f.acc, 100_000_000, 1)
	require.NoError(t, err)
	assert.Greater(t, result.AmountOut, uint64(0))

	info, err := f.engine.GetNativeSOLPoolInfo(f.acc.Pool, f.program)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000)-result.AmountOut, info.ReserveSOL)
	assert.Equal(t, uint64(1_000_000_000)+100_000_000, info.ReserveToken)

	poolAcc, err := f.store.Get(f.acc.Pool)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, poolAcc.Lamports, RentExemptMinimum+info.ReserveSOL)
}

func TestEngine_SwapNativeSOLToToken_SlippageExceeded(t *testing.T) {
	f := newNativePoolFixture(t, 2_000_000_000, 1_000_000_000, 1_000_000_000)

	_, err := f.engine.SwapNativeSOLToToken(f.acc, 100_000_000, 99_000_000_000)
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	info, err := f.engine.GetNativeSOLPoolInfo(f.acc.Pool, f.program)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), info.ReserveSOL)
	assert.Equal(t, uint64(1_000_000_000), info.ReserveToken)
}

func TestEngine_AddAndRemoveLiquidityNativeSOL(t *testing.T) {
	f := newNativePoolFixture(t, 2_000_000_000, 1_000_000_000, 1_000_000_000)

	deposit, err := f.engine.AddLiquidityNativeSOL(f.acc, 100_000_000, 100_000_000)
	require.NoError(t, err)
	assert.Greater(t, deposit.SharesMinted, uint64(0))

	info, err := f.engine.GetNativeSOLPoolInfo(f.acc.Pool, f.program)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_100_000_000), info.ReserveSOL)
	assert.Equal(t, uint64(1_100_000_000), info.ReserveToken)

	redeem, err := f.engine.RemoveLiquidityNativeSOL(f.acc, deposit.SharesMinted)
	require.NoError(t, err)
	assert.Greater(t, redeem.PayoutA, uint64(0))
	assert.Greater(t, redeem.PayoutB, uint64(0))

	info, err = f.engine.GetNativeSOLPoolInfo(f.acc.Pool, f.program)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), info.ReserveSOL)
	assert.Equal(t, uint64(1_000_000_000), info.ReserveToken)
}
