package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	bidding "gookie-auctions/internal/biddingService"
	"gookie-auctions/internal/engine"
	"gookie-auctions/internal/funds"
	model "gookie-auctions/internal/models"
	"gookie-auctions/internal/repository"
	"gookie-auctions/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const treasury = "treasury-wallet"

var startTime = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

// testEnv is a fully wired API over the in-memory store and ledger
type testEnv struct {
	router *gin.Engine
	repo   *repository.MemoryRepo
	ledger *funds.MemoryLedger

	mu  sync.Mutex
	now time.Time
}

// Advance moves the service clock forward
func (e *testEnv) Advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

// SetupTestEnv initializes the router with in-memory collaborators for integration testing.
func SetupTestEnv(t *testing.T, limiter *server.RateLimiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		repo:   repository.NewMemoryRepo(),
		ledger: funds.NewMemoryLedger(),
		now:    startTime,
	}
	service := bidding.NewBiddingService(
		env.repo,
		engine.NewEngine(env.repo, engine.DefaultConfig()),
		env.ledger,
		treasury,
		bidding.WithClock(env.clock),
		bidding.WithBalanceQuery(env.ledger),
	)
	env.router = server.SetupRouter(service, limiter)
	return env
}

// SeedAuction stores an active auction ending endIn after the current clock
func (e *testEnv) SeedAuction(t *testing.T, id, title, startingBid string, endIn time.Duration) {
	t.Helper()
	require.NoError(t, e.repo.CreateAuction(context.Background(), model.Auction{
		AuctionID:   id,
		Title:       title,
		StartingBid: decimal.RequireFromString(startingBid),
		EndTime:     e.clock().Add(endIn),
		Status:      model.StatusActive,
		CreatedAt:   e.clock(),
	}))
}

// Fund credits a wallet
func (e *testEnv) Fund(wallet, amount string) {
	e.ledger.Deposit(wallet, decimal.RequireFromString(amount))
}

// ExecuteRequestAndParse executes an HTTP request on the env's router and parses the response envelope
func (e *testEnv) ExecuteRequestAndParse(t *testing.T, method, url string, body any, headers ...string) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case string:
		reqBody = []byte(v)
	case []byte:
		reqBody = v
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err, "failed to marshal body")
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	e.router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "failed to unmarshal response")
	}
	return resp, w
}

// ExecuteRaw executes a body-less request without parsing the response
func (e *testEnv) ExecuteRaw(method, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, httptest.NewRequest(method, url, nil))
	return w
}
