package amm

import (
	"sync"

	"github.com/gagliardetto/solana-go"
)

// PoolKind distinguishes a token-token pool from a native-asset pool in the
// registry, since both share the view surface but not the account layout.
type PoolKind int

const (
	KindTokenToken PoolKind = iota
	KindNativeAsset
)

// RegistryEntry is what GetTotalPools / FindPoolsByToken (spec §4.7) walk
// over: enough to locate a pool's account and identify its mints without
// re-deserializing every record on every call.
type RegistryEntry struct {
	Pool   solana.PublicKey
	Kind   PoolKind
	MintA  solana.PublicKey // native marker (zero value) for native-asset pools
	MintB  solana.PublicKey
}

// Registry is an in-memory discovery index of every pool this engine has
// created, modeled on the teacher's PoolRegistry (FindPoolByMints,
// FindPoolByName, GetAllPools, PoolCount), generalized from a static
// config-driven list to one populated as pools are created.
type Registry struct {
	mu      sync.RWMutex
	entries []RegistryEntry
}

// NewRegistry constructs an empty discovery index.
func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) add(entry RegistryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// GetAllPools returns every registered pool, newest last.
func (r *Registry) GetAllPools() []RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RegistryEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// PoolCount returns the number of registered pools.
func (r *Registry) PoolCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// FindPoolsByToken returns every pool whose mint set contains the target.
func (r *Registry) FindPoolsByToken(target solana.PublicKey) []RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []RegistryEntry
	for _, e := range r.entries {
		if e.MintA == target || e.MintB == target {
			out = append(out, e)
		}
	}
	return out
}

// FindPoolByMints returns the first registered token-token pool matching
// the exact (ordered) mint pair, per spec §9's order-sensitivity note.
func (r *Registry) FindPoolByMints(mintA, mintB solana.PublicKey) (RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Kind == KindTokenToken && e.MintA == mintA && e.MintB == mintB {
			return e, true
		}
	}
	return RegistryEntry{}, false
}
