// Package token is the thin fungible-token adapter the AMM core invokes
// instead of talking to a token program directly: transfer, mint_to, burn,
// initialize_mint, create_account (spec §1, module 2). It is grounded on
// the teacher's associated-token-account resolution idiom (deriving and
// creating the token account an owner/mint pair resolves to) but operates
// against the local ledger.Store rather than a live RPC endpoint, since
// this module is the program side, not the client side.
package token

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/gorb-swap/amm-core/internal/ledger"
)

// AccountDataSize is the fixed layout width of a token account record:
// mint(32) | owner(32) | amount(8).
const AccountDataSize = 32 + 32 + 8

// AccountData is the fungible-token account record this adapter reads and
// writes through the ledger store.
type AccountData struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

func (a AccountData) Marshal() []byte {
	buf := make([]byte, AccountDataSize)
	copy(buf[0:32], a.Mint.Bytes())
	copy(buf[32:64], a.Owner.Bytes())
	binary.LittleEndian.PutUint64(buf[64:72], a.Amount)
	return buf
}

func UnmarshalAccountData(data []byte) (AccountData, error) {
	if len(data) != AccountDataSize {
		return AccountData{}, fmt.Errorf("token: account data must be %d bytes, got %d", AccountDataSize, len(data))
	}
	var a AccountData
	copy(a.Mint[:], data[0:32])
	copy(a.Owner[:], data[32:64])
	a.Amount = binary.LittleEndian.Uint64(data[64:72])
	return a, nil
}

// MintDataSize is the fixed layout width of a mint record: authority(32) | supply(8).
const MintDataSize = 32 + 8

// MintData is the fungible-token mint record.
type MintData struct {
	Authority solana.PublicKey
	Supply    uint64
}

func (m MintData) Marshal() []byte {
	buf := make([]byte, MintDataSize)
	copy(buf[0:32], m.Authority.Bytes())
	binary.LittleEndian.PutUint64(buf[32:40], m.Supply)
	return buf
}

func UnmarshalMintData(data []byte) (MintData, error) {
	if len(data) != MintDataSize {
		return MintData{}, fmt.Errorf("token: mint data must be %d bytes, got %d", MintDataSize, len(data))
	}
	var m MintData
	copy(m.Authority[:], data[0:32])
	m.Supply = binary.LittleEndian.Uint64(data[32:40])
	return m, nil
}

// TokenProgramID is the owner stamped on every account and mint this
// adapter creates, so ownership checks (spec §7 InvalidOwner) have
// something concrete to compare against.
var TokenProgramID = solana.TokenProgramID

// Service is the fungible-token adapter. It never talks to a real token
// program; it reads and writes ledger.Account records in the token-account
// and mint layouts above.
type Service struct {
	store ledger.Store
}

// NewService builds an adapter bound to the given account store.
func NewService(store ledger.Store) *Service {
	return &Service{store: store}
}

// CreateAccount initializes a fresh token account at the given address.
func (s *Service) CreateAccount(addr, mint, owner solana.PublicKey) error {
	if s.store.Exists(addr) {
		return fmt.Errorf("token: account %s already exists", addr)
	}
	acc := AccountData{Mint: mint, Owner: owner, Amount: 0}
	return s.store.Put(addr, ledger.Account{Owner: TokenProgramID, Data: acc.Marshal()})
}

// InitializeMint creates a fresh mint record with zero supply.
func (s *Service) InitializeMint(addr, authority solana.PublicKey) error {
	if s.store.Exists(addr) {
		return fmt.Errorf("token: mint %s already exists", addr)
	}
	m := MintData{Authority: authority, Supply: 0}
	return s.store.Put(addr, ledger.Account{Owner: TokenProgramID, Data: m.Marshal()})
}

// Transfer moves amount from one token account to another, owned by the
// same mint. Fails with ErrInsufficientInput-equivalent if the source
// balance is too low; callers in internal/amm translate that into the
// typed spec error.
func (s *Service) Transfer(from, to solana.PublicKey, amount uint64) error {
	fromAcc, err := s.readAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := s.readAccount(to)
	if err != nil {
		return err
	}
	if fromAcc.Mint != toAcc.Mint {
		return fmt.Errorf("token: mint mismatch on transfer")
	}
	if fromAcc.Amount < amount {
		return fmt.Errorf("token: insufficient balance")
	}
	fromAcc.Amount -= amount
	toAcc.Amount += amount
	if err := s.writeAccount(from, fromAcc); err != nil {
		return err
	}
	return s.writeAccount(to, toAcc)
}

// MintTo increases a token account's balance and the mint's supply.
func (s *Service) MintTo(mintAddr, dest solana.PublicKey, amount uint64) error {
	mint, err := s.readMint(mintAddr)
	if err != nil {
		return err
	}
	destAcc, err := s.readAccount(dest)
	if err != nil {
		return err
	}
	mint.Supply += amount
	destAcc.Amount += amount
	if err := s.writeMint(mintAddr, mint); err != nil {
		return err
	}
	return s.writeAccount(dest, destAcc)
}

// Burn decreases a token account's balance and the mint's supply.
func (s *Service) Burn(mintAddr, src solana.PublicKey, amount uint64) error {
	mint, err := s.readMint(mintAddr)
	if err != nil {
		return err
	}
	srcAcc, err := s.readAccount(src)
	if err != nil {
		return err
	}
	if srcAcc.Amount < amount {
		return fmt.Errorf("token: insufficient balance to burn")
	}
	if mint.Supply < amount {
		return fmt.Errorf("token: burn exceeds supply")
	}
	mint.Supply -= amount
	srcAcc.Amount -= amount
	if err := s.writeMint(mintAddr, mint); err != nil {
		return err
	}
	return s.writeAccount(src, srcAcc)
}

// BalanceOf reads a token account's current balance.
func (s *Service) BalanceOf(addr solana.PublicKey) (uint64, error) {
	acc, err := s.readAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.Amount, nil
}

func (s *Service) readAccount(addr solana.PublicKey) (AccountData, error) {
	raw, err := s.store.Get(addr)
	if err != nil {
		return AccountData{}, err
	}
	return UnmarshalAccountData(raw.Data)
}

func (s *Service) writeAccount(addr solana.PublicKey, acc AccountData) error {
	return s.store.Put(addr, ledger.Account{Owner: TokenProgramID, Data: acc.Marshal()})
}

func (s *Service) readMint(addr solana.PublicKey) (MintData, error) {
	raw, err := s.store.Get(addr)
	if err != nil {
		return MintData{}, err
	}
	return UnmarshalMintData(raw.Data)
}

func (s *Service) writeMint(addr solana.PublicKey, m MintData) error {
	return s.store.Put(addr, ledger.Account{Owner: TokenProgramID, Data: m.Marshal()})
}
