package amm

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorb-swap/amm-core/internal/ledger"
)

func TestEngine_MultihopSwap_S3_SlippageExceeded(t *testing.T) {
	store := ledger.NewMemStore()
	engine := NewEngine(store)
	program := solana.NewWallet().PublicKey()

	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	mintC := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()

	fAB := buildHopFixture(t, store, engine, program, mintA, mintB, user, 1_000_000_000, 1_000_000_000, 1_000_000_000)
	fBC := buildHopFixtureSharedB(t, store, engine, program, mintB, mintC, user, fAB.acc.UserTokenB, 1_000_000_000, 2_000_000_000, 1_500_000_000)

	hops := []Hop{
		{
			Pool:         fAB.acc.Pool,
			TokenInMint:  mintA,
			TokenOutMint: mintB,
			VaultIn:      fAB.acc.VaultA,
			VaultOut:     fAB.acc.VaultB,
			UserIn:       fAB.acc.UserTokenA,
			UserOut:      fAB.acc.UserTokenB,
		},
		{
			Pool:         fBC.acc.Pool,
			TokenInMint:  mintB,
			TokenOutMint: mintC,
			VaultIn:      fBC.acc.VaultA,
			VaultOut:     fBC.acc.VaultB,
			UserIn:       fBC.acc.UserTokenA,
			UserOut:      fBC.acc.UserTokenB,
		},
	}

	_, err := engine.MultihopSwap(program, hops, 100_000_000, 190_000_000)
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	infoAB, infoErr := engine.GetPoolInfo(fAB.acc.Pool, program)
	require.NoError(t, infoErr)
	assert.Equal(t, uint64(1_000_000_000), infoAB.ReserveA)
	assert.Equal(t, uint64(1_000_000_000), infoAB.ReserveB)
}

// buildHopFixture sets up a fresh pool between two brand-new mints, funding
// the user's token accounts with the seed amounts plus fundA of spare
// input-side balance, and seeding the pool via InitPool(poolA, poolB).
func buildHopFixture(t *testing.T, store ledger.Store, engine *Engine, program, mintA, mintB, user solana.PublicKey, poolA, poolB, fundA uint64) poolFixture {
	t.Helper()
	pool, err := DerivePoolPDA(program, mintA, mintB)
	require.NoError(t, err)
	vaultA, err := DeriveVaultPDA(program, pool.Address, mintA)
	require.NoError(t, err)
	vaultB, err := DeriveVaultPDA(program, pool.Address, mintB)
	require.NoError(t, err)
	lpMint, err := DeriveLPMintPDA(program, pool.Address)
	require.NoError(t, err)

	userTokenA := solana.NewWallet().PublicKey()
	userTokenB := solana.NewWallet().PublicKey()
	userLP := solana.NewWallet().PublicKey()

	fundTokenAccount(t, store, userTokenA, mintA, user, poolA+fundA)
	fundTokenAccount(t, store, userTokenB, mintB, user, poolB)
	fundTokenAccount(t, store, userLP, lpMint.Address, user, 0)

	acc := PoolAccounts{
		Program: program, Pool: pool.Address, VaultA: vaultA.Address, VaultB: vaultB.Address,
		LPMint: lpMint.Address, User: user, UserTokenA: userTokenA, UserTokenB: userTokenB, UserLP: userLP,
	}
	require.NoError(t, engine.InitPool(acc, mintA, mintB, poolA, poolB))
	return poolFixture{engine: engine, store: store, program: program, mintA: mintA, mintB: mintB, user: user, acc: acc}
}

// buildHopFixtureSharedB is like buildHopFixture but reuses an existing
// token account as the new pool's user-input side, modeling the router's
// "same account is hop i's out and hop i+1's in" case (spec §4.5).
func buildHopFixtureSharedB(t *testing.T, store ledger.Store, engine *Engine, program, mintB, mintC, user, sharedUserTokenB solana.PublicKey, poolB, poolC, extraFundB uint64) poolFixture {
	t.Helper()
	pool, err := DerivePoolPDA(program, mintB, mintC)
	require.NoError(t, err)
	vaultB, err := DeriveVaultPDA(program, pool.Address, mintB)
	require.NoError(t, err)
	vaultC, err := DeriveVaultPDA(program, pool.Address, mintC)
	require.NoError(t, err)
	lpMint, err := DeriveLPMintPDA(program, pool.Address)
	require.NoError(t, err)

	userTokenC := solana.NewWallet().PublicKey()
	userLP := solana.NewWallet().PublicKey()
	fundTokenAccount(t, store, userTokenC, mintC, user, 0)
	fundTokenAccount(t, store, userLP, lpMint.Address, user, 0)
	fundTokenAccount(t, store, sharedUserTokenB, mintB, user, extraFundB)

	acc := PoolAccounts{
		Program: program, Pool: pool.Address, VaultA: vaultB.Address, VaultB: vaultC.Address,
		LPMint: lpMint.Address, User: user, UserTokenA: sharedUserTokenB, UserTokenB: userTokenC, UserLP: userLP,
	}
	require.NoError(t, engine.InitPool(acc, mintB, mintC, poolB, poolC))
	return poolFixture{engine: engine, store: store, program: program, mintA: mintB, mintB: mintC, user: user, acc: acc}
}
