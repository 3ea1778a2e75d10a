// Package ledger holds the ambient node's account store: a keyed map of
// account bytes standing in for the chain's accounts-db, so the
// instruction dispatcher in internal/amm can be exercised without a live
// validator. See SPEC_FULL.md §3 "Account store".
package ledger

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Account is one stored account: its raw bytes plus the metadata a real
// validator would track alongside them.
type Account struct {
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// Clone returns a deep copy so callers can mutate without racing the store.
func (a Account) Clone() Account {
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return Account{Owner: a.Owner, Lamports: a.Lamports, Data: data}
}

// ErrNotFound is returned when an address has no account.
var ErrNotFound = fmt.Errorf("ledger: account not found")

// Store is the account store port. Implementations: an in-memory map
// (default for unit tests and the dispatcher) and a Redis-backed store
// (used by the demo node so state survives restarts).
type Store interface {
	Get(pubkey solana.PublicKey) (Account, error)
	Put(pubkey solana.PublicKey, account Account) error
	Exists(pubkey solana.PublicKey) bool
	Delete(pubkey solana.PublicKey) error
	// WithPoolLock serializes writes touching the given pool address,
	// mirroring two transactions writing the same pool PDA serializing at
	// the host scheduler (SPEC_FULL.md §5).
	WithPoolLock(pool solana.PublicKey, fn func() error) error
}

// MemStore is the default in-memory Store, guarded by a single RWMutex plus
// a per-pool mutex set for WithPoolLock.
type MemStore struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]Account

	poolMu   sync.Mutex
	poolLock map[solana.PublicKey]*sync.Mutex
}

// NewMemStore constructs an empty in-memory account store.
func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[solana.PublicKey]Account),
		poolLock: make(map[solana.PublicKey]*sync.Mutex),
	}
}

func (s *MemStore) Get(pubkey solana.PublicKey) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[pubkey]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc.Clone(), nil
}

func (s *MemStore) Put(pubkey solana.PublicKey, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[pubkey] = account.Clone()
	return nil
}

func (s *MemStore) Exists(pubkey solana.PublicKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[pubkey]
	return ok
}

func (s *MemStore) Delete(pubkey solana.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, pubkey)
	return nil
}

func (s *MemStore) WithPoolLock(pool solana.PublicKey, fn func() error) error {
	s.poolMu.Lock()
	lock, ok := s.poolLock[pool]
	if !ok {
		lock = &sync.Mutex{}
		s.poolLock[pool] = lock
	}
	s.poolMu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn()
}
