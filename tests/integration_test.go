package tests

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorb-swap/amm-core/internal/amm"
	"github.com/gorb-swap/amm-core/internal/flags"
	"github.com/gorb-swap/amm-core/internal/ledger"
	"github.com/gorb-swap/amm-core/internal/server"
)

const (
	testAPIAddr = ":8091"
	testAPIKey  = "test-api-key-integration"
	testBaseURL = "http://localhost:8091"

	rateLimitedAPIAddr = ":8092"
	rateLimitedBaseURL = "http://localhost:8092"
)

type integrationEnv struct {
	engine    *amm.Engine
	processor *amm.Processor
	program   solana.PublicKey
}

func setupIntegrationTest(t *testing.T) (*integrationEnv, func()) {
	return setupIntegrationTestWithConfig(t, server.ServerConfig{
		Addr:      testAPIAddr,
		DevMode:   true,
		APIKey:    testAPIKey,
		RateLimit: 50,
		RateBurst: 50,
	})
}

func setupIntegrationTestWithConfig(t *testing.T, cfg server.ServerConfig) (*integrationEnv, func()) {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr, DB: 3})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}
	_ = redisClient.FlushDB(ctx).Err()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store := ledger.NewMemStore()
	engine := amm.NewEngine(store)

	flagStore, err := flags.NewStore(redisClient)
	require.NoError(t, err)

	processor := amm.NewProcessor(engine, flagStore)

	handlers := &server.Handlers{
		Processor: processor,
		Program:   solana.NewWallet().PublicKey(),
		Flags:     flagStore,
		DevMode:   true,
		Logger:    logger,
	}

	srv, err := server.NewServer(server.ServerDeps{Handlers: handlers, Config: cfg})
	require.NoError(t, err)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		_ = redisClient.FlushDB(ctx).Err()
		_ = redisClient.Close()
	}

	return &integrationEnv{engine: engine, processor: processor, program: handlers.Program}, cleanup
}

func makeRequest(t *testing.T, method, url string, body any, expectedStatus int) *http.Response {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)

	assert.Equal(t, expectedStatus, resp.StatusCode, "expected status %d, got %d", expectedStatus, resp.StatusCode)
	return resp
}

// newPoolFixture derives a fresh token-token pool's accounts and funds both
// of the user's token accounts through the engine's token service,
// bypassing the wire format the way a test harness standing in for a
// client wallet would. fundEach is credited to both sides so the fixture
// covers InitPool's deposit plus a follow-up swap.
func newPoolFixture(t *testing.T, env *integrationEnv, fundEach uint64) (amm.PoolAccounts, solana.PublicKey, solana.PublicKey) {
	t.Helper()
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()

	pool, err := amm.DerivePoolPDA(env.program, mintA, mintB)
	require.NoError(t, err)
	vaultA, err := amm.DeriveVaultPDA(env.program, pool.Address, mintA)
	require.NoError(t, err)
	vaultB, err := amm.DeriveVaultPDA(env.program, pool.Address, mintB)
	require.NoError(t, err)
	lpMint, err := amm.DeriveLPMintPDA(env.program, pool.Address)
	require.NoError(t, err)

	userTokenA := solana.NewWallet().PublicKey()
	userTokenB := solana.NewWallet().PublicKey()
	userLP := solana.NewWallet().PublicKey()

	mintAuthority := solana.NewWallet().PublicKey()
	svc := env.engine.Token
	require.NoError(t, svc.InitializeMint(mintA, mintAuthority))
	require.NoError(t, svc.InitializeMint(mintB, mintAuthority))
	require.NoError(t, svc.CreateAccount(userTokenA, mintA, user))
	require.NoError(t, svc.CreateAccount(userTokenB, mintB, user))
	require.NoError(t, svc.CreateAccount(userLP, lpMint.Address, user))
	if fundEach > 0 {
		require.NoError(t, svc.MintTo(mintA, userTokenA, fundEach))
		require.NoError(t, svc.MintTo(mintB, userTokenB, fundEach))
	}

	acc := amm.PoolAccounts{
		Program: env.program, Pool: pool.Address, VaultA: vaultA.Address, VaultB: vaultB.Address,
		LPMint: lpMint.Address, User: user, UserTokenA: userTokenA, UserTokenB: userTokenB, UserLP: userLP,
	}
	return acc, mintA, mintB
}

func instructionRequestBody(op amm.Opcode, payload []byte, accounts []solana.PublicKey) map[string]any {
	data := amm.EncodeInstructionData(op, payload)
	accs := make([]string, len(accounts))
	for i, a := range accounts {
		accs[i] = a.String()
	}
	return map[string]any{
		"data":     base64.StdEncoding.EncodeToString(data),
		"accounts": accs,
	}
}

func initPoolAccounts(acc amm.PoolAccounts, mintA, mintB solana.PublicKey) []solana.PublicKey {
	return []solana.PublicKey{
		acc.Pool, acc.VaultA, acc.VaultB, acc.LPMint, acc.User, acc.UserTokenA, acc.UserTokenB, acc.UserLP,
		mintA, mintB,
	}
}

func poolWindowAccounts(acc amm.PoolAccounts) []solana.PublicKey {
	return []solana.PublicKey{acc.Pool, acc.VaultA, acc.VaultB, acc.LPMint, acc.User, acc.UserTokenA, acc.UserTokenB, acc.UserLP}
}

func TestIntegration_Health(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	resp := makeRequest(t, http.MethodGet, testBaseURL+"/v1/health", nil, http.StatusOK)
	defer resp.Body.Close()

	var out server.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.OK)
}

func TestIntegration_InitPoolAndSwap(t *testing.T) {
	env, cleanup := setupIntegrationTest(t)
	defer cleanup()

	acc, mintA, mintB := newPoolFixture(t, env, 2_000_000_000)

	initBody := instructionRequestBody(amm.OpInitPool, amm.EncodeInitPoolPayload(1_000_000_000, 1_000_000_000), initPoolAccounts(acc, mintA, mintB))
	resp := makeRequest(t, http.MethodPost, testBaseURL+"/v1/instructions", initBody, http.StatusOK)
	resp.Body.Close()

	// Fund the swap input after InitPool consumed the initial deposit.
	require.NoError(t, env.engine.Token.MintTo(mintA, acc.UserTokenA, 500_000))

	swapBody := instructionRequestBody(amm.OpSwap, amm.EncodeSwapPayload(100_000, true), poolWindowAccounts(acc))
	resp = makeRequest(t, http.MethodPost, testBaseURL+"/v1/instructions", swapBody, http.StatusOK)
	defer resp.Body.Close()

	var out server.InstructionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, amm.OpSwap.String(), out.Opcode)

	poolResp := makeRequest(t, http.MethodGet, testBaseURL+"/v1/pools/"+acc.Pool.String(), nil, http.StatusOK)
	defer poolResp.Body.Close()

	var poolInfo amm.PoolInfo
	require.NoError(t, json.NewDecoder(poolResp.Body).Decode(&poolInfo))
	assert.Greater(t, poolInfo.ReserveA, uint64(1_000_000_000))
}

func TestIntegration_QuoteValidation(t *testing.T) {
	env, cleanup := setupIntegrationTest(t)
	defer cleanup()

	acc, mintA, mintB := newPoolFixture(t, env, 2_000_000_000)
	initBody := instructionRequestBody(amm.OpInitPool, amm.EncodeInitPoolPayload(1_000_000_000, 1_000_000_000), initPoolAccounts(acc, mintA, mintB))
	makeRequest(t, http.MethodPost, testBaseURL+"/v1/instructions", initBody, http.StatusOK).Body.Close()

	// A zero input amount can never clear ErrZeroOutput, which maps to 400
	// per SPEC_FULL.md §7.
	resp := makeRequest(t, http.MethodGet, testBaseURL+"/v1/quote?pool="+acc.Pool.String()+"&token_in="+mintA.String()+"&amount_in=0", nil, http.StatusBadRequest)
	defer resp.Body.Close()
}

func TestIntegration_FlagsCRUD(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	upsertPayload := map[string]any{"key": "test.flag", "value": true}
	resp := makeRequest(t, http.MethodPost, testBaseURL+"/v1/flags", upsertPayload, http.StatusOK)
	defer resp.Body.Close()

	var upsertResponse flags.Flag
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&upsertResponse))
	assert.Equal(t, "test.flag", upsertResponse.Key)
	assert.True(t, upsertResponse.Value)

	resp = makeRequest(t, http.MethodGet, testBaseURL+"/v1/flags/test.flag", nil, http.StatusOK)
	defer resp.Body.Close()
	var getResponse flags.Flag
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&getResponse))
	assert.True(t, getResponse.Value)

	updatePayload := map[string]any{"value": false}
	resp = makeRequest(t, http.MethodPut, testBaseURL+"/v1/flags/test.flag", updatePayload, http.StatusOK)
	defer resp.Body.Close()
	var updateResponse flags.Flag
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updateResponse))
	assert.False(t, updateResponse.Value)

	resp = makeRequest(t, http.MethodGet, testBaseURL+"/v1/flags", nil, http.StatusOK)
	defer resp.Body.Close()
	var listResponse struct {
		Items []*flags.Flag `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listResponse))
	assert.Len(t, listResponse.Items, 1)

	resp = makeRequest(t, http.MethodDelete, testBaseURL+"/v1/flags/test.flag", nil, http.StatusNoContent)
	resp.Body.Close()

	resp = makeRequest(t, http.MethodGet, testBaseURL+"/v1/flags/test.flag", nil, http.StatusNotFound)
	resp.Body.Close()
}

func TestIntegration_FlagsValidation(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	invalidPayload := map[string]any{"key": "", "value": true}
	resp := makeRequest(t, http.MethodPost, testBaseURL+"/v1/flags", invalidPayload, http.StatusBadRequest)
	defer resp.Body.Close()

	var errorResponse server.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errorResponse))
	assert.Contains(t, errorResponse.Error, "invalid key")
}

func TestIntegration_Authentication(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	req, err := http.NewRequest(http.MethodGet, testBaseURL+"/v1/health", nil)
	require.NoError(t, err)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err = http.NewRequest(http.MethodGet, testBaseURL+"/v1/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "invalid-key")
	resp, err = client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_ErrorHandling(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	req, err := http.NewRequest(http.MethodGet, testBaseURL+"/v1/nonexistent", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", testAPIKey)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errorResponse server.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errorResponse))
	assert.Equal(t, "not found", errorResponse.Error)

	req, err = http.NewRequest(http.MethodPost, testBaseURL+"/v1/instructions", bytes.NewReader([]byte("invalid json")))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	resp, err = client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntegration_ConcurrentRequests(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	const numRequests = 50
	const numGoroutines = 10

	results := make(chan struct{}, numRequests)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			for j := 0; j < numRequests/numGoroutines; j++ {
				resp := makeRequest(t, http.MethodGet, testBaseURL+"/v1/health", nil, http.StatusOK)
				resp.Body.Close()
				results <- struct{}{}
			}
		}()
	}
	for i := 0; i < numRequests; i++ {
		<-results
	}
}

func TestIntegration_RateLimiting(t *testing.T) {
	env, cleanup := setupIntegrationTestWithConfig(t, server.ServerConfig{
		Addr:      rateLimitedAPIAddr,
		DevMode:   true,
		APIKey:    testAPIKey,
		RateLimit: 1,
		RateBurst: 2,
	})
	defer cleanup()

	acc, mintA, mintB := newPoolFixture(t, env, 2_000_000_000)
	initBody := instructionRequestBody(amm.OpInitPool, amm.EncodeInitPoolPayload(1_000_000_000, 1_000_000_000), initPoolAccounts(acc, mintA, mintB))

	// Burst of 2 is admitted (the second fails on ErrPoolExists, not the
	// limiter); further immediate requests exhaust the token bucket and
	// come back 429 before ever reaching the dispatcher.
	var sawTooManyRequests bool
	for i := 0; i < 5; i++ {
		req, err := http.NewRequest(http.MethodPost, rateLimitedBaseURL+"/v1/instructions", jsonBody(t, initBody))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", testAPIKey)

		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Do(req)
		require.NoError(t, err)
		if resp.StatusCode == http.StatusTooManyRequests {
			sawTooManyRequests = true
		}
		resp.Body.Close()
	}
	assert.True(t, sawTooManyRequests, "expected at least one 429 once the token bucket was exhausted")
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}
