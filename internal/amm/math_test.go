package amm

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSwap_S1(t *testing.T) {
	swap, err := ComputeSwap(500_000_000, 1_000_000_000, 1_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(332_665_999), swap.AmountOut)
	assert.Equal(t, uint64(1_500_000_000), swap.NewReserveIn)
	assert.Equal(t, uint64(667_334_001), swap.NewReserveOut)
	assert.Equal(t, uint64(1_500_000), swap.FeeRetained)
}

func TestComputeSwap_ZeroAmountIsNoOp(t *testing.T) {
	swap, err := ComputeSwap(0, 1_000_000, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), swap.AmountOut)
	assert.Equal(t, uint64(1_000_000), swap.NewReserveIn)
	assert.Equal(t, uint64(1_000_000), swap.NewReserveOut)
}

func TestComputeSwap_EmptyPool(t *testing.T) {
	_, err := ComputeSwap(100, 0, 1_000_000)
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestComputeSwap_MaxUint64NeverWraps(t *testing.T) {
	_, err := ComputeSwap(math.MaxUint64, 1_000_000_000, 1_000_000_000)
	assert.Error(t, err)
}

func TestComputeSwap_InvariantNonDecreasing(t *testing.T) {
	swap, err := ComputeSwap(1_234_567, 50_000_000, 80_000_000)
	require.NoError(t, err)
	before := new(big.Int).Mul(big.NewInt(50_000_000), big.NewInt(80_000_000))
	after := new(big.Int).Mul(new(big.Int).SetUint64(swap.NewReserveIn), new(big.Int).SetUint64(swap.NewReserveOut))
	assert.True(t, after.Cmp(before) >= 0)
}

func TestComputeInitialDeposit_S1(t *testing.T) {
	deposit, err := ComputeInitialDeposit(1_000_000_000, 1_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), deposit.SharesMinted)
}

func TestComputeProportionalDeposit_S2(t *testing.T) {
	deposit, err := ComputeProportionalDeposit(1_000_000_000, 1_000_000_000, 2_000_000_000, 3_000_000_000, 2_449_489_742)
	require.NoError(t, err)
	assert.Equal(t, uint64(666_666_666), deposit.ActualA)
	assert.Equal(t, uint64(1_000_000_000), deposit.ActualB)
	assert.Equal(t, uint64(816_496_580), deposit.SharesMinted)
}

func TestComputeProportionalRedeem_DrainsToZero(t *testing.T) {
	redeem, err := ComputeProportionalRedeem(1_000_000_000, 1_000_000_000, 1_000_000_000, 1_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), redeem.PayoutA)
	assert.Equal(t, uint64(1_000_000_000), redeem.PayoutB)
}

func TestComputeProportionalRedeem_InsufficientShares(t *testing.T) {
	_, err := ComputeProportionalRedeem(100, 1000, 1000, 50)
	assert.ErrorIs(t, err, ErrInsufficientLP)
}

func TestIntegerSqrt(t *testing.T) {
	cases := []struct {
		n    int64
		want int64
	}{
		{0, 0},
		{1, 1},
		{4, 2},
		{1_000_000_000_000_000_000, 1_000_000_000},
		{6_000_000_000_000_000_000, 2_449_489_742},
		{8, 2},
		{9, 3},
	}
	for _, c := range cases {
		got := IntegerSqrt(big.NewInt(c.n))
		assert.Equal(t, big.NewInt(c.want).String(), got.String(), "sqrt(%d)", c.n)
	}
}
