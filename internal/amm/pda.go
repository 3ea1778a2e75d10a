package amm

import "github.com/gagliardetto/solana-go"

// Seed prefixes for address derivation (spec §4.1). Byte-exact: changing
// any of these changes every derived address.
var (
	seedPool        = []byte("pool")
	seedVault       = []byte("vault")
	seedMint        = []byte("mint")
	seedNativePool  = []byte("native_sol_pool")
	seedNativeVault = []byte("native_sol_vault")
	seedNativeMint  = []byte("native_sol_lp_mint")
)

// PDA bundles a derived address with the bump that completes it.
type PDA struct {
	Address solana.PublicKey
	Bump    uint8
}

// DerivePoolPDA derives the token-token pool address from the mint pair in
// call order: swapping mintA/mintB yields a different pool (spec §4.1,
// §9's order-sensitivity note).
func DerivePoolPDA(program solana.PublicKey, mintA, mintB solana.PublicKey) (PDA, error) {
	return derive(program, seedPool, mintA.Bytes(), mintB.Bytes())
}

// DeriveVaultPDA derives a token vault address for a given pool and mint.
func DeriveVaultPDA(program solana.PublicKey, pool, mint solana.PublicKey) (PDA, error) {
	return derive(program, seedVault, pool.Bytes(), mint.Bytes())
}

// DeriveLPMintPDA derives the LP mint address for a given pool.
func DeriveLPMintPDA(program solana.PublicKey, pool solana.PublicKey) (PDA, error) {
	return derive(program, seedMint, pool.Bytes())
}

// DeriveNativePoolPDA derives the native-asset pool address from the paired
// token mint.
func DeriveNativePoolPDA(program solana.PublicKey, tokenMint solana.PublicKey) (PDA, error) {
	return derive(program, seedNativePool, tokenMint.Bytes())
}

// DeriveNativeVaultPDA derives the single token-side vault of a native-asset
// pool from the pool and its paired token mint.
func DeriveNativeVaultPDA(program solana.PublicKey, pool, tokenMint solana.PublicKey) (PDA, error) {
	return derive(program, seedNativeVault, pool.Bytes(), tokenMint.Bytes())
}

// DeriveNativeLPMintPDA derives the LP mint address of a native-asset pool.
func DeriveNativeLPMintPDA(program solana.PublicKey, pool solana.PublicKey) (PDA, error) {
	return derive(program, seedNativeMint, pool.Bytes())
}

func derive(program solana.PublicKey, prefix []byte, rest ...[]byte) (PDA, error) {
	seeds := make([][]byte, 0, len(rest)+1)
	seeds = append(seeds, prefix)
	seeds = append(seeds, rest...)
	addr, bump, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		return PDA{}, ErrInvalidPDA
	}
	return PDA{Address: addr, Bump: bump}, nil
}

// VerifyPDA re-derives the expected address for the given seeds and checks
// it matches the candidate, the runtime-enforced "signature" gate described
// in spec §9 ("PDA ownership vs. signing").
func VerifyPDA(candidate solana.PublicKey, program solana.PublicKey, prefix []byte, rest ...[]byte) (uint8, error) {
	got, err := derive(program, prefix, rest...)
	if err != nil {
		return 0, err
	}
	if got.Address != candidate {
		return 0, ErrInvalidPDA
	}
	return got.Bump, nil
}
