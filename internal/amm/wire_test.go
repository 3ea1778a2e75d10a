package amm

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInstructionData_RoundTrip(t *testing.T) {
	payload := EncodeSwapPayload(123_456, true)
	data := EncodeInstructionData(OpSwap, payload)

	op, decoded, err := DecodeInstructionData(data)
	require.NoError(t, err)
	assert.Equal(t, OpSwap, op)

	amountIn, aToB, err := DecodeSwapPayload(decoded)
	require.NoError(t, err)
	assert.Equal(t, uint64(123_456), amountIn)
	assert.True(t, aToB)
}

func TestDecodeInstructionData_Empty(t *testing.T) {
	_, _, err := DecodeInstructionData(nil)
	assert.Error(t, err)
}

func TestSwapQuotePayload_RoundTrip(t *testing.T) {
	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	payload := EncodeSwapQuotePayload(42, mint)
	amountIn, tokenIn, err := DecodeSwapQuotePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), amountIn)
	assert.Equal(t, mint, tokenIn)
}

func TestPoolRecord_MarshalRoundTrip(t *testing.T) {
	rec := &PoolRecord{
		TokenA:        solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112"),
		TokenB:        solana.SystemProgramID,
		Bump:          255,
		ReserveA:      1_000_000_000,
		ReserveB:      2_000_000_000,
		TotalLPSupply: 1_414_213_562,
		FeeCollectedA: 12345,
		FeeCollectedB: 6789,
		FeeTreasury:   solana.TokenProgramID,
	}
	data := rec.Marshal()
	assert.Len(t, data, PoolRecordSize)

	got, err := UnmarshalPoolRecord(data)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestUnmarshalPoolRecord_WrongSize(t *testing.T) {
	_, err := UnmarshalPoolRecord([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestNativePoolRecord_MarshalRoundTrip(t *testing.T) {
	rec := &NativePoolRecord{
		TokenMint:         solana.TokenProgramID,
		Bump:              7,
		ReserveSOL:        1_000_000_000,
		ReserveToken:      2_000_000_000,
		TotalLPSupply:     1_414_213_562,
		FeeCollectedSOL:   111,
		FeeCollectedToken: 222,
		FeeTreasury:       solana.SystemProgramID,
	}
	data := rec.Marshal()
	assert.Len(t, data, PoolRecordSize)

	got, err := UnmarshalNativePoolRecord(data)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}
