package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
)

const accountKeyPrefix = "amm:account:"

// redisAccount is the wire shape stored under each account key; account
// bytes are base64-encoded since Redis strings are binary-safe but JSON
// isn't.
type redisAccount struct {
	Owner    string `json:"owner"`
	Lamports uint64 `json:"lamports"`
	Data     string `json:"data"`
}

// RedisStore persists accounts in Redis so a demo node's state survives
// process restarts. Modeled on flags.Store's use of a bare redis.Cmdable.
type RedisStore struct {
	client redis.Cmdable
	ctx    context.Context

	poolMu   sync.Mutex
	poolLock map[solana.PublicKey]*sync.Mutex
}

// NewRedisStore wraps an existing Redis client. ctx is used for every
// request this store issues; pass context.Background() for a long-lived
// node process.
func NewRedisStore(ctx context.Context, client redis.Cmdable) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("ledger: redis client is nil")
	}
	return &RedisStore{
		client:   client,
		ctx:      ctx,
		poolLock: make(map[solana.PublicKey]*sync.Mutex),
	}, nil
}

func accountKey(pubkey solana.PublicKey) string {
	return accountKeyPrefix + pubkey.String()
}

func (s *RedisStore) Get(pubkey solana.PublicKey) (Account, error) {
	val, err := s.client.Get(s.ctx, accountKey(pubkey)).Result()
	if err == redis.Nil {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("ledger: get account: %w", err)
	}

	var ra redisAccount
	if err := json.Unmarshal([]byte(val), &ra); err != nil {
		return Account{}, fmt.Errorf("ledger: unmarshal account: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(ra.Data)
	if err != nil {
		return Account{}, fmt.Errorf("ledger: decode account data: %w", err)
	}
	owner, err := solana.PublicKeyFromBase58(ra.Owner)
	if err != nil {
		return Account{}, fmt.Errorf("ledger: decode account owner: %w", err)
	}
	return Account{Owner: owner, Lamports: ra.Lamports, Data: data}, nil
}

func (s *RedisStore) Put(pubkey solana.PublicKey, account Account) error {
	ra := redisAccount{
		Owner:    account.Owner.String(),
		Lamports: account.Lamports,
		Data:     base64.StdEncoding.EncodeToString(account.Data),
	}
	b, err := json.Marshal(ra)
	if err != nil {
		return fmt.Errorf("ledger: marshal account: %w", err)
	}
	if err := s.client.Set(s.ctx, accountKey(pubkey), b, 0).Err(); err != nil {
		return fmt.Errorf("ledger: put account: %w", err)
	}
	return nil
}

func (s *RedisStore) Exists(pubkey solana.PublicKey) bool {
	n, err := s.client.Exists(s.ctx, accountKey(pubkey)).Result()
	return err == nil && n > 0
}

func (s *RedisStore) Delete(pubkey solana.PublicKey) error {
	if err := s.client.Del(s.ctx, accountKey(pubkey)).Err(); err != nil {
		return fmt.Errorf("ledger: delete account: %w", err)
	}
	return nil
}

// WithPoolLock serializes writers to a given pool address using a
// process-local mutex. A single node process owns the account store, so a
// local mutex is sufficient even though the records themselves live in
// Redis; a multi-node deployment would need a Redis-backed distributed
// lock instead, which is out of scope for this demo runtime.
func (s *RedisStore) WithPoolLock(pool solana.PublicKey, fn func() error) error {
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
