package amm

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Opcode identifies the one-byte instruction discriminator (spec §6).
type Opcode uint8

const (
	OpInitPool                Opcode = 0
	OpAddLiquidity             Opcode = 1
	OpRemoveLiquidity          Opcode = 2
	OpSwap                     Opcode = 3
	OpMultihopSwap             Opcode = 4
	OpMultihopSwapWithPath     Opcode = 5 // reserved
	OpGetPoolInfo              Opcode = 6
	OpGetTotalPools            Opcode = 7
	OpFindPoolsByToken         Opcode = 8
	OpGetSwapQuote             Opcode = 9
	OpGetMultihopQuote         Opcode = 10 // reserved
	OpInitNativeSOLPool        Opcode = 11
	OpSwapNativeSOLToToken     Opcode = 12
	OpSwapTokenToNativeSOL     Opcode = 13
	OpAddLiquidityNativeSOL    Opcode = 14
	OpRemoveLiquidityNativeSOL Opcode = 15
	OpGetNativeSOLPoolInfo     Opcode = 16
	OpGetNativeSOLSwapQuote    Opcode = 17

	// Fee-ledger opcodes (added). Spec §6's wire table stops at 17 and is
	// silent on CollectFees/SetFeeTreasury/WithdrawFees (§4.6); since the
	// dispatcher is the only entry point (§2), these extend the table at
	// 18-20 rather than leaving the fee ledger uncallable over the wire.
	OpCollectFees     Opcode = 18
	OpSetFeeTreasury  Opcode = 19
	OpWithdrawFees    Opcode = 20
)

func (o Opcode) String() string {
	switch o {
	case OpInitPool:
		return "InitPool"
	case OpAddLiquidity:
		return "AddLiquidity"
	case OpRemoveLiquidity:
		return "RemoveLiquidity"
	case OpSwap:
		return "Swap"
	case OpMultihopSwap:
		return "MultihopSwap"
	case OpMultihopSwapWithPath:
		return "MultihopSwapWithPath"
	case OpGetPoolInfo:
		return "GetPoolInfo"
	case OpGetTotalPools:
		return "GetTotalPools"
	case OpFindPoolsByToken:
		return "FindPoolsByToken"
	case OpGetSwapQuote:
		return "GetSwapQuote"
	case OpGetMultihopQuote:
		return "GetMultihopQuote"
	case OpInitNativeSOLPool:
		return "InitNativeSOLPool"
	case OpSwapNativeSOLToToken:
		return "SwapNativeSOLToToken"
	case OpSwapTokenToNativeSOL:
		return "SwapTokenToNativeSOL"
	case OpAddLiquidityNativeSOL:
		return "AddLiquidityNativeSOL"
	case OpRemoveLiquidityNativeSOL:
		return "RemoveLiquidityNativeSOL"
	case OpGetNativeSOLPoolInfo:
		return "GetNativeSOLPoolInfo"
	case OpGetNativeSOLSwapQuote:
		return "GetNativeSOLSwapQuote"
	case OpCollectFees:
		return "CollectFees"
	case OpSetFeeTreasury:
		return "SetFeeTreasury"
	case OpWithdrawFees:
		return "WithdrawFees"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
}

// Instruction is a decoded (opcode, payload) pair together with the account
// list the caller supplied, mirroring the account-meta ordering convention
// the teacher's instruction builders use.
type Instruction struct {
	Opcode   Opcode
	Payload  []byte
	Accounts []*solana.AccountMeta
}

// DecodeInstructionData splits the raw wire bytes (spec §6) into an opcode
// and the remaining payload. The payload is not yet validated against the
// opcode's expected shape; callers use the typed Decode* helpers below.
func DecodeInstructionData(data []byte) (Opcode, []byte, error) {
	if len(data) < 1 {
		return 0, nil, fmt.Errorf("amm: empty instruction data")
	}
	return Opcode(data[0]), data[1:], nil
}

// EncodeInstructionData is the inverse of DecodeInstructionData, used by
// callers building an instruction to submit.
func EncodeInstructionData(op Opcode, payload []byte) []byte {
	buf := make([]byte, 1+len(payload))
	buf[0] = uint8(op)
	copy(buf[1:], payload)
	return buf
}

// --- payload codecs, one pair per opcode shape ---

func encodeU64Pair(a, b uint64) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], a)
	binary.LittleEndian.PutUint64(buf[8:16], b)
	return buf
}

func decodeU64Pair(payload []byte) (uint64, uint64, error) {
	if len(payload) < 16 {
		return 0, 0, fmt.Errorf("amm: payload too short for u64 pair")
	}
	return binary.LittleEndian.Uint64(payload[0:8]), binary.LittleEndian.Uint64(payload[8:16]), nil
}

// EncodeInitPoolPayload / DecodeInitPoolPayload: u64 amount_a, u64 amount_b.
func EncodeInitPoolPayload(amountA, amountB uint64) []byte { return encodeU64Pair(amountA, amountB) }
func DecodeInitPoolPayload(payload []byte) (amountA, amountB uint64, err error) {
	return decodeU64Pair(payload)
}

// EncodeAddLiquidityPayload / DecodeAddLiquidityPayload: u64 amount_a, u64 amount_b.
func EncodeAddLiquidityPayload(amountA, amountB uint64) []byte {
	return encodeU64Pair(amountA, amountB)
}
func DecodeAddLiquidityPayload(payload []byte) (amountA, amountB uint64, err error) {
	return decodeU64Pair(payload)
}

// EncodeRemoveLiquidityPayload / DecodeRemoveLiquidityPayload: u64 lp_amount.
func EncodeRemoveLiquidityPayload(lpAmount uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, lpAmount)
	return buf
}
func DecodeRemoveLiquidityPayload(payload []byte) (uint64, error) {
	if len(payload) < 8 {
		return 0, fmt.Errorf("amm: payload too short for lp_amount")
	}
	return binary.LittleEndian.Uint64(payload[:8]), nil
}

// EncodeSwapPayload / DecodeSwapPayload: u64 amount_in, u8 direction_a_to_b.
func EncodeSwapPayload(amountIn uint64, aToB bool) []byte {
	buf := make([]byte, 9)
	binary.LittleEndian.PutUint64(buf[0:8], amountIn)
	if aToB {
		buf[8] = 1
	}
	return buf
}
func DecodeSwapPayload(payload []byte) (amountIn uint64, aToB bool, err error) {
	if len(payload) < 9 {
		return 0, false, fmt.Errorf("amm: payload too short for swap")
	}
	return binary.LittleEndian.Uint64(payload[0:8]), payload[8] != 0, nil
}

// EncodeMultihopSwapPayload / DecodeMultihopSwapPayload: u64 amount_in, u64 minimum_amount_out.
func EncodeMultihopSwapPayload(amountIn, minimumOut uint64) []byte {
	return encodeU64Pair(amountIn, minimumOut)
}
func DecodeMultihopSwapPayload(payload []byte) (amountIn, minimumOut uint64, err error) {
	return decodeU64Pair(payload)
}

// EncodeFindPoolsByTokenPayload / DecodeFindPoolsByTokenPayload: pubkey target.
func EncodeFindPoolsByTokenPayload(target solana.PublicKey) []byte {
	b := target.Bytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
func DecodeFindPoolsByTokenPayload(payload []byte) (solana.PublicKey, error) {
	if len(payload) < 32 {
		return solana.PublicKey{}, fmt.Errorf("amm: payload too short for pubkey")
	}
	var pk solana.PublicKey
	copy(pk[:], payload[:32])
	return pk, nil
}

// EncodeSwapQuotePayload / DecodeSwapQuotePayload: u64 amount_in, pubkey token_in.
func EncodeSwapQuotePayload(amountIn uint64, tokenIn solana.PublicKey) []byte {
	buf := make([]byte, 40)
	binary.LittleEndian.PutUint64(buf[0:8], amountIn)
	copy(buf[8:40], tokenIn.Bytes())
	return buf
}
func DecodeSwapQuotePayload(payload []byte) (amountIn uint64, tokenIn solana.PublicKey, err error) {
	if len(payload) < 40 {
		return 0, solana.PublicKey{}, fmt.Errorf("amm: payload too short for swap quote")
	}
	amountIn = binary.LittleEndian.Uint64(payload[0:8])
	copy(tokenIn[:], payload[8:40])
	return amountIn, tokenIn, nil
}

// EncodeInitNativeSOLPoolPayload / DecodeInitNativeSOLPoolPayload: u64 amount_sol, u64 amount_token.
func EncodeInitNativeSOLPoolPayload(amountSOL, amountToken uint64) []byte {
	return encodeU64Pair(amountSOL, amountToken)
}
func DecodeInitNativeSOLPoolPayload(payload []byte) (amountSOL, amountToken uint64, err error) {
	return decodeU64Pair(payload)
}

// EncodeNativeSwapPayload / DecodeNativeSwapPayload: u64 amount_in, u64 minimum_amount_out.
// Shared by SwapNativeSOLToToken and SwapTokenToNativeSOL.
func EncodeNativeSwapPayload(amountIn, minimumOut uint64) []byte {
	return encodeU64Pair(amountIn, minimumOut)
}
func DecodeNativeSwapPayload(payload []byte) (amountIn, minimumOut uint64, err error) {
	return decodeU64Pair(payload)
}

// EncodeAddLiquidityNativeSOLPayload / DecodeAddLiquidityNativeSOLPayload: u64 amount_sol, u64 amount_token.
func EncodeAddLiquidityNativeSOLPayload(amountSOL, amountToken uint64) []byte {
	return encodeU64Pair(amountSOL, amountToken)
}
func DecodeAddLiquidityNativeSOLPayload(payload []byte) (amountSOL, amountToken uint64, err error) {
	return decodeU64Pair(payload)
}

// EncodeRemoveLiquidityNativeSOLPayload / DecodeRemoveLiquidityNativeSOLPayload: u64 lp_amount.
func EncodeRemoveLiquidityNativeSOLPayload(lpAmount uint64) []byte {
	return EncodeRemoveLiquidityPayload(lpAmount)
}
func DecodeRemoveLiquidityNativeSOLPayload(payload []byte) (uint64, error) {
	return DecodeRemoveLiquidityPayload(payload)
}

// EncodeNativeSwapQuotePayload / DecodeNativeSwapQuotePayload: u64 amount_in, u8 is_sol_to_token.
func EncodeNativeSwapQuotePayload(amountIn uint64, solToToken bool) []byte {
	buf := make([]byte, 9)
	binary.LittleEndian.PutUint64(buf[0:8], amountIn)
	if solToToken {
		buf[8] = 1
	}
	return buf
}
func DecodeNativeSwapQuotePayload(payload []byte) (amountIn uint64, solToToken bool, err error) {
	if len(payload) < 9 {
		return 0, false, fmt.Errorf("amm: payload too short for native swap quote")
	}
	return binary.LittleEndian.Uint64(payload[0:8]), payload[8] != 0, nil
}

// EncodeSetFeeTreasuryPayload / DecodeSetFeeTreasuryPayload: pubkey new_treasury.
func EncodeSetFeeTreasuryPayload(newTreasury solana.PublicKey) []byte {
	b := newTreasury.Bytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
func DecodeSetFeeTreasuryPayload(payload []byte) (solana.PublicKey, error) {
	return DecodeFindPoolsByTokenPayload(payload)
}

// EncodeWithdrawFeesPayload / DecodeWithdrawFeesPayload: u64 amount_a, u64 amount_b.
func EncodeWithdrawFeesPayload(amountA, amountB uint64) []byte { return encodeU64Pair(amountA, amountB) }
func DecodeWithdrawFeesPayload(payload []byte) (amountA, amountB uint64, err error) {
	return decodeU64Pair(payload)
}

// --- account-layout (de)serialization, spec §6 "Account layout" ---

// PoolRecordSize is the fixed byte width of both Pool account flavors.
const PoolRecordSize = 32 + 32 + 1 + 8 + 8 + 8 + 8 + 8 + 32 // 137

// PoolRecord is the token-token Pool account layout:
// token_a(32) | token_b(32) | bump(1) | reserve_a(8) | reserve_b(8) |
// total_lp_supply(8) | fee_collected_a(8) | fee_collected_b(8) | fee_treasury(32).
type PoolRecord struct {
	TokenA         solana.PublicKey
	TokenB         solana.PublicKey
	Bump           uint8
	ReserveA       uint64
	ReserveB       uint64
	TotalLPSupply  uint64
	FeeCollectedA  uint64
	FeeCollectedB  uint64
	FeeTreasury    solana.PublicKey
}

// Marshal encodes the record into its fixed 137-byte on-chain layout.
func (p *PoolRecord) Marshal() []byte {
	buf := make([]byte, PoolRecordSize)
	off := 0
	off += copy(buf[off:], p.TokenA.Bytes())
	off += copy(buf[off:], p.TokenB.Bytes())
	buf[off] = p.Bump
	off++
	binary.LittleEndian.PutUint64(buf[off:], p.ReserveA)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], p.ReserveB)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], p.TotalLPSupply)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], p.FeeCollectedA)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], p.FeeCollectedB)
	off += 8
	copy(buf[off:], p.FeeTreasury.Bytes())
	return buf
}

// UnmarshalPoolRecord decodes the fixed 137-byte layout back into a PoolRecord.
func UnmarshalPoolRecord(data []byte) (*PoolRecord, error) {
	if len(data) != PoolRecordSize {
		return nil, fmt.Errorf("amm: pool record must be %d bytes, got %d", PoolRecordSize, len(data))
	}
	p := &PoolRecord{}
	off := 0
	copy(p.TokenA[:], data[off:off+32])
	off += 32
	copy(p.TokenB[:], data[off:off+32])
	off += 32
	p.Bump = data[off]
	off++
	p.ReserveA = binary.LittleEndian.Uint64(data[off:])
	off += 8
	p.ReserveB = binary.LittleEndian.Uint64(data[off:])
	off += 8
	p.TotalLPSupply = binary.LittleEndian.Uint64(data[off:])
	off += 8
	p.FeeCollectedA = binary.LittleEndian.Uint64(data[off:])
	off += 8
	p.FeeCollectedB = binary.LittleEndian.Uint64(data[off:])
	off += 8
	copy(p.FeeTreasury[:], data[off:off+32])
	return p, nil
}

// NativePoolRecord is the native-asset Pool account layout: identical field
// widths to PoolRecord, with fee fields renamed per spec §6 (token_a/reserve_a
// hold the native side, token_b/reserve_b the paired token side).
type NativePoolRecord struct {
	NativeMarker       solana.PublicKey // token_a slot; zero value, native side has no mint
	TokenMint          solana.PublicKey // token_b slot
	Bump               uint8
	ReserveSOL         uint64
	ReserveToken       uint64
	TotalLPSupply      uint64
	FeeCollectedSOL    uint64
	FeeCollectedToken  uint64
	FeeTreasury        solana.PublicKey
}

// Marshal encodes the record into its fixed 137-byte on-chain layout.
func (p *NativePoolRecord) Marshal() []byte {
	buf := make([]byte, PoolRecordSize)
	off := 0
	off += copy(buf[off:], p.NativeMarker.Bytes())
	off += copy(buf[off:], p.TokenMint.Bytes())
	buf[off] = p.Bump
	off++
	binary.LittleEndian.PutUint64(buf[off:], p.ReserveSOL)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], p.ReserveToken)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], p.TotalLPSupply)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], p.FeeCollectedSOL)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], p.FeeCollectedToken)
	off += 8
	copy(buf[off:], p.FeeTreasury.Bytes())
	return buf
}

// UnmarshalNativePoolRecord decodes the fixed 137-byte layout back into a
// NativePoolRecord.
func UnmarshalNativePoolRecord(data []byte) (*NativePoolRecord, error) {
	if len(data) != PoolRecordSize {
		return nil, fmt.Errorf("amm: native pool record must be %d bytes, got %d", PoolRecordSize, len(data))
	}
	p := &NativePoolRecord{}
	off := 0
	copy(p.NativeMarker[:], data[off:off+32])
	off += 32
	copy(p.TokenMint[:], data[off:off+32])
	off += 32
	p.Bump = data[off]
	off++
	p.ReserveSOL = binary.LittleEndian.Uint64(data[off:])
	off += 8
	p.ReserveToken = binary.LittleEndian.Uint64(data[off:])
	off += 8
	p.TotalLPSupply = binary.LittleEndian.Uint64(data[off:])
	off += 8
	p.FeeCollectedSOL = binary.LittleEndian.Uint64(data[off:])
	off += 8
	p.FeeCollectedToken = binary.LittleEndian.Uint64(data[off:])
	off += 8
	copy(p.FeeTreasury[:], data[off:off+32])
	return p, nil
}
