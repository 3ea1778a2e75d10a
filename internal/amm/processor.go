package amm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// FlagChecker is the operational-killswitch port (SPEC_FULL.md §4.9) the
// dispatcher consults before running a given opcode, satisfied by
// internal/flags.Store without this package importing Redis directly.
type FlagChecker interface {
	Enabled(ctx context.Context, key string) (bool, error)
}

// Processor is the single dispatch entry point (spec §2): it reads the
// first byte of the instruction payload as an opcode, decodes the
// remainder, and routes to the matching Engine handler. Account order
// within each opcode's account list follows the field order of the
// PoolAccounts / NativePoolAccounts struct that opcode's handler takes;
// spec §6 requires a fixed order but does not enumerate one beyond the
// multi-hop window, so this order is this implementation's contract.
type Processor struct {
	Engine *Engine
	Flags  FlagChecker   // nil disables the flag-gate check entirely
	Events EventRecorder // nil disables event emission entirely
}

// NewProcessor builds a dispatcher over the given engine. flags may be nil
// if no operational-flag gate is wired up.
func NewProcessor(engine *Engine, flagChecker FlagChecker) *Processor {
	return &Processor{Engine: engine, Flags: flagChecker}
}

// Result is the outcome of one ProcessInstruction call: view handlers and
// the mutating handlers that return a typed result (liquidity, swap,
// multi-hop, CollectFees) populate View with it; InitPool,
// InitNativeSOLPool, SetFeeTreasury and WithdrawFees leave it nil.
type Result struct {
	Opcode Opcode
	View   any
}

func (p *Processor) gateCheck(ctx context.Context, op Opcode) error {
	if p.Flags == nil {
		return nil
	}
	if ok, err := p.Flags.Enabled(ctx, "maintenance_mode"); err == nil && ok {
		return fmt.Errorf("amm: maintenance mode active")
	}
	key := fmt.Sprintf("opcode.%d.disabled", uint8(op))
	if disabled, err := p.Flags.Enabled(ctx, key); err == nil && disabled {
		return fmt.Errorf("amm: opcode %s disabled by operator flag", op)
	}
	return nil
}

// ProcessInstruction dispatches one (opcode || payload) wire instruction
// (spec §6) against the given account list.
func (p *Processor) ProcessInstruction(ctx context.Context, program solana.PublicKey, data []byte, accounts []solana.PublicKey) (Result, error) {
	op, payload, err := DecodeInstructionData(data)
	if err != nil {
		return Result{}, err
	}
	if err := p.gateCheck(ctx, op); err != nil {
		return Result{}, err
	}

	logrus.WithFields(logrus.Fields{"opcode": op.String(), "accounts": len(accounts)}).Debug("dispatching instruction")

	switch op {
	case OpInitPool:
		if len(accounts) < 10 {
			return Result{}, ErrInvalidAccountOrder
		}
		amountA, amountB, err := DecodeInitPoolPayload(payload)
		if err != nil {
			return Result{}, err
		}
		acc := PoolAccounts{Program: program, Pool: accounts[0], VaultA: accounts[1], VaultB: accounts[2], LPMint: accounts[3], User: accounts[4], UserTokenA: accounts[5], UserTokenB: accounts[6], UserLP: accounts[7]}
		mintA, mintB := accounts[8], accounts[9]
		if err := p.Engine.InitPool(acc, mintA, mintB, amountA, amountB); err != nil {
			return Result{}, err
		}
		p.emit(ctx, Event{Opcode: op.String(), Pool: acc.Pool, Accounts: accounts, Data: map[string]any{"amount_a": amountA, "amount_b": amountB}})
		return Result{Opcode: op}, nil

	case OpAddLiquidity:
		if len(accounts) < 8 {
			return Result{}, ErrInvalidAccountOrder
		}
		amountA, amountB, err := DecodeAddLiquidityPayload(payload)
		if err != nil {
			return Result{}, err
		}
		acc := poolAccountsFrom(program, accounts)
		res, err := p.Engine.AddLiquidity(acc, amountA, amountB)
		if err == nil {
			p.emit(ctx, Event{Opcode: op.String(), Pool: acc.Pool, Accounts: accounts, Data: map[string]any{"amount_a": amountA, "amount_b": amountB, "shares_minted": res.SharesMinted}})
		}
		return Result{Opcode: op, View: res}, err

	case OpRemoveLiquidity:
		if len(accounts) < 8 {
			return Result{}, ErrInvalidAccountOrder
		}
		shares, err := DecodeRemoveLiquidityPayload(payload)
		if err != nil {
			return Result{}, err
		}
		acc := poolAccountsFrom(program, accounts)
		res, err := p.Engine.RemoveLiquidity(acc, shares)
		if err == nil {
			p.emit(ctx, Event{Opcode: op.String(), Pool: acc.Pool, Accounts: accounts, Data: map[string]any{"shares": shares, "payout_a": res.PayoutA, "payout_b": res.PayoutB}})
		}
		return Result{Opcode: op, View: res}, err

	case OpSwap:
		if len(accounts) < 8 {
			return Result{}, ErrInvalidAccountOrder
		}
		amountIn, aToB, err := DecodeSwapPayload(payload)
		if err != nil {
			return Result{}, err
		}
		acc := poolAccountsFrom(program, accounts)
		res, err := p.Engine.Swap(acc, amountIn, aToB)
		if err == nil {
			p.emit(ctx, Event{Opcode: op.String(), Pool: acc.Pool, Accounts: accounts, Data: map[string]any{"amount_in": amountIn, "a_to_b": aToB, "amount_out": res.AmountOut, "fee": res.FeeRetained}})
		}
		return Result{Opcode: op, View: res}, err

	case OpMultihopSwap:
		amountIn, minOut, err := DecodeMultihopSwapPayload(payload)
		if err != nil {
			return Result{}, err
		}
		hops, err := hopsFrom(accounts)
		if err != nil {
			return Result{}, err
		}
		res, err := p.Engine.MultihopSwap(program, hops, amountIn, minOut)
		if err == nil {
			p.emit(ctx, Event{Opcode: op.String(), Pool: hops[0].Pool, Accounts: accounts, Data: map[string]any{"amount_in": amountIn, "min_out": minOut, "hops": len(hops)}})
		}
		return Result{Opcode: op, View: res}, err

	case OpGetPoolInfo:
		if len(accounts) < 1 {
			return Result{}, ErrInvalidAccountOrder
		}
		res, err := p.Engine.GetPoolInfo(accounts[0], program)
		return Result{Opcode: op, View: res}, err

	case OpGetTotalPools:
		return Result{Opcode: op, View: p.Engine.GetTotalPools()}, nil

	case OpFindPoolsByToken:
		target, err := DecodeFindPoolsByTokenPayload(payload)
		if err != nil {
			return Result{}, err
		}
		return Result{Opcode: op, View: p.Engine.FindPoolsByToken(target)}, nil

	case OpGetSwapQuote:
		if len(accounts) < 1 {
			return Result{}, ErrInvalidAccountOrder
		}
		amountIn, tokenIn, err := DecodeSwapQuotePayload(payload)
		if err != nil {
			return Result{}, err
		}
		res, err := p.Engine.GetSwapQuote(accounts[0], program, tokenIn, amountIn)
		return Result{Opcode: op, View: res}, err

	case OpInitNativeSOLPool:
		if len(accounts) < 7 {
			return Result{}, ErrInvalidAccountOrder
		}
		amountSOL, amountToken, err := DecodeInitNativeSOLPoolPayload(payload)
		if err != nil {
			return Result{}, err
		}
		acc := nativeAccountsForLiquidity(program, accounts)
		tokenMint := accounts[6]
		if err := p.Engine.InitNativeSOLPool(acc, tokenMint, amountSOL, amountToken); err != nil {
			return Result{}, err
		}
		p.emit(ctx, Event{Opcode: op.String(), Pool: acc.Pool, Accounts: accounts, Data: map[string]any{"amount_sol": amountSOL, "amount_token": amountToken}})
		return Result{Opcode: op}, nil

	case OpSwapNativeSOLToToken:
		if len(accounts) < 4 {
			return Result{}, ErrInvalidAccountOrder
		}
		amountIn, minOut, err := DecodeNativeSwapPayload(payload)
		if err != nil {
			return Result{}, err
		}
		acc := nativeAccountsForSwap(program, accounts)
		res, err := p.Engine.SwapNativeSOLToToken(acc, amountIn, minOut)
		if err == nil {
			p.emit(ctx, Event{Opcode: op.String(), Pool: acc.Pool, Accounts: accounts, Data: map[string]any{"amount_in": amountIn, "min_out": minOut, "amount_out": res.AmountOut}})
		}
		return Result{Opcode: op, View: res}, err

	case OpSwapTokenToNativeSOL:
		if len(accounts) < 4 {
			return Result{}, ErrInvalidAccountOrder
		}
		amountIn, minOut, err := DecodeNativeSwapPayload(payload)
		if err != nil {
			return Result{}, err
		}
		acc := nativeAccountsForSwap(program, accounts)
		res, err := p.Engine.SwapTokenToNativeSOL(acc, amountIn, minOut)
		if err == nil {
			p.emit(ctx, Event{Opcode: op.String(), Pool: acc.Pool, Accounts: accounts, Data: map[string]any{"amount_in": amountIn, "min_out": minOut, "amount_out": res.AmountOut}})
		}
		return Result{Opcode: op, View: res}, err

	case OpAddLiquidityNativeSOL:
		if len(accounts) < 6 {
			return Result{}, ErrInvalidAccountOrder
		}
		amountSOL, amountToken, err := DecodeAddLiquidityNativeSOLPayload(payload)
		if err != nil {
			return Result{}, err
		}
		acc := nativeAccountsForLiquidity(program, accounts)
		res, err := p.Engine.AddLiquidityNativeSOL(acc, amountSOL, amountToken)
		if err == nil {
			p.emit(ctx, Event{Opcode: op.String(), Pool: acc.Pool, Accounts: accounts, Data: map[string]any{"amount_sol": amountSOL, "amount_token": amountToken, "shares_minted": res.SharesMinted}})
		}
		return Result{Opcode: op, View: res}, err

	case OpRemoveLiquidityNativeSOL:
		if len(accounts) < 6 {
			return Result{}, ErrInvalidAccountOrder
		}
		shares, err := DecodeRemoveLiquidityNativeSOLPayload(payload)
		if err != nil {
			return Result{}, err
		}
		acc := nativeAccountsForLiquidity(program, accounts)
		res, err := p.Engine.RemoveLiquidityNativeSOL(acc, shares)
		if err == nil {
			p.emit(ctx, Event{Opcode: op.String(), Pool: acc.Pool, Accounts: accounts, Data: map[string]any{"shares": shares, "payout_sol": res.PayoutA, "payout_token": res.PayoutB}})
		}
		return Result{Opcode: op, View: res}, err

	case OpGetNativeSOLPoolInfo:
		if len(accounts) < 1 {
			return Result{}, ErrInvalidAccountOrder
		}
		res, err := p.Engine.GetNativeSOLPoolInfo(accounts[0], program)
		return Result{Opcode: op, View: res}, err

	case OpGetNativeSOLSwapQuote:
		if len(accounts) < 1 {
			return Result{}, ErrInvalidAccountOrder
		}
		amountIn, solToToken, err := DecodeNativeSwapQuotePayload(payload)
		if err != nil {
			return Result{}, err
		}
		res, err := p.Engine.GetNativeSOLSwapQuote(accounts[0], program, amountIn, solToToken)
		return Result{Opcode: op, View: res}, err

	case OpCollectFees:
		if len(accounts) < 10 {
			return Result{}, ErrInvalidAccountOrder
		}
		acc := poolAccountsFrom(program, accounts)
		feeA, feeB, err := p.Engine.CollectFees(acc, accounts[4], accounts[8], accounts[9])
		if err == nil {
			p.emit(ctx, Event{Opcode: op.String(), Pool: acc.Pool, Accounts: accounts, Data: map[string]any{"fee_a": feeA, "fee_b": feeB}})
		}
		return Result{Opcode: op, View: map[string]uint64{"fee_a": feeA, "fee_b": feeB}}, err

	case OpSetFeeTreasury:
		if len(accounts) < 8 {
			return Result{}, ErrInvalidAccountOrder
		}
		newTreasury, err := DecodeSetFeeTreasuryPayload(payload)
		if err != nil {
			return Result{}, err
		}
		acc := poolAccountsFrom(program, accounts)
		if err := p.Engine.SetFeeTreasury(acc, accounts[4], newTreasury); err != nil {
			return Result{}, err
		}
		p.emit(ctx, Event{Opcode: op.String(), Pool: acc.Pool, Accounts: accounts, Data: map[string]any{"new_treasury": newTreasury.String()}})
		return Result{Opcode: op}, nil

	case OpWithdrawFees:
		if len(accounts) < 10 {
			return Result{}, ErrInvalidAccountOrder
		}
		amountA, amountB, err := DecodeWithdrawFeesPayload(payload)
		if err != nil {
			return Result{}, err
		}
		acc := poolAccountsFrom(program, accounts)
		if err := p.Engine.WithdrawFees(acc, accounts[4], amountA, amountB, accounts[8], accounts[9]); err != nil {
			return Result{}, err
		}
		p.emit(ctx, Event{Opcode: op.String(), Pool: acc.Pool, Accounts: accounts, Data: map[string]any{"amount_a": amountA, "amount_b": amountB}})
		return Result{Opcode: op}, nil

	default:
		return Result{}, fmt.Errorf("amm: unsupported opcode %s", op)
	}
}

// poolAccountsFrom reads the common 8-account token-token window:
// pool, vault_a, vault_b, lp_mint, user, user_token_a, user_token_b, user_lp.
func poolAccountsFrom(program solana.PublicKey, accounts []solana.PublicKey) PoolAccounts {
	return PoolAccounts{
		Program:    program,
		Pool:       accounts[0],
		VaultA:     accounts[1],
		VaultB:     accounts[2],
		LPMint:     accounts[3],
		User:       accounts[4],
		UserTokenA: accounts[5],
		UserTokenB: accounts[6],
		UserLP:     accounts[7],
	}
}

// nativeAccountsForLiquidity reads the 6-account native-asset window used
// by InitNativeSOLPool / AddLiquidityNativeSOL / RemoveLiquidityNativeSOL:
// pool, token_vault, lp_mint, user, user_token, user_lp. The system-program
// account implied by spec §6 for the native inflow is not modeled as a
// distinct account here: the native-asset handlers credit lamport inflows
// to the pool account themselves (see nativepool.go).
func nativeAccountsForLiquidity(program solana.PublicKey, accounts []solana.PublicKey) NativePoolAccounts {
	return NativePoolAccounts{
		Program:    program,
		Pool:       accounts[0],
		TokenVault: accounts[1],
		LPMint:     accounts[2],
		User:       accounts[3],
		UserToken:  accounts[4],
		UserLP:     accounts[5],
	}
}

// nativeAccountsForSwap reads the narrower 4-account window the two
// native-asset swap handlers need: pool, token_vault, user, user_token.
func nativeAccountsForSwap(program solana.PublicKey, accounts []solana.PublicKey) NativePoolAccounts {
	return NativePoolAccounts{
		Program:    program,
		Pool:       accounts[0],
		TokenVault: accounts[1],
		User:       accounts[2],
		UserToken:  accounts[3],
	}
}

// hopsFrom splits a flat account list into contiguous 7-account windows
// per spec §4.5.
func hopsFrom(accounts []solana.PublicKey) ([]Hop, error) {
	if len(accounts) < 14 || len(accounts)%7 != 0 {
		return nil, ErrInvalidAccountOrder
	}
	hops := make([]Hop, 0, len(accounts)/7)
	for i := 0; i < len(accounts); i += 7 {
		hops = append(hops, Hop{
			Pool:         accounts[i],
			TokenInMint:  accounts[i+1],
			TokenOutMint: accounts[i+2],
			VaultIn:      accounts[i+3],
			VaultOut:     accounts[i+4],
			UserIn:       accounts[i+5],
			UserOut:      accounts[i+6],
		})
	}
	return hops, nil
}
