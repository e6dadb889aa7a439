package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bidding "gookie-auctions/internal/biddingService"
	"gookie-auctions/internal/config"
	"gookie-auctions/internal/engine"
	"gookie-auctions/internal/funds"
	"gookie-auctions/internal/idempotency"
	"gookie-auctions/internal/repository"
	"gookie-auctions/internal/server"
	"gookie-auctions/utils"

	"github.com/shopspring/decimal"
)

func main() {
	configFile := os.Getenv("GOOKIE_CONFIG_FILE")
	if configFile == "" {
		configFile = config.DefaultFile
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		utils.Fatal("failed to load config", map[string]any{"error": err.Error()})
	}
	utils.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := buildStore(ctx, cfg)
	defer closeStore()

	minIncrement, _ := cfg.MinIncrement() // validated by config.Load
	maxAmount, _ := cfg.MaxAmount()
	engineCfg := engine.Config{
		MinIncrement:      minIncrement,
		MaxAmount:         maxAmount,
		AntiSnipeWindow:   cfg.Auction.AntiSnipeWindow,
		ExtensionDuration: cfg.Auction.ExtensionDuration,
	}
	if err := engineCfg.Validate(); err != nil {
		utils.Fatal("invalid auction rules", map[string]any{"error": err.Error()})
	}
	auctionEngine := engine.NewEngine(store, engineCfg)

	// The escrow network is external; the in-process ledger stands in for it.
	ledger := funds.NewMemoryLedger()

	opts := []bidding.Option{bidding.WithBalanceQuery(ledger)}
	if cfg.Redis.Addr != "" {
		guard, err := idempotency.NewRedisGuard(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.IdempotencyTTL)
		if err != nil {
			utils.Fatal("failed to connect to redis", map[string]any{"error": err.Error()})
		}
		defer guard.Close()
		opts = append(opts, bidding.WithGuard(guard))
	} else {
		opts = append(opts, bidding.WithGuard(idempotency.NewMemoryGuard(cfg.Redis.IdempotencyTTL)))
	}

	biddingSvc := bidding.NewBiddingService(store, auctionEngine, ledger, cfg.Auction.TreasuryWallet, opts...)

	if cfg.Environment == "development" {
		prepopulate(ctx, biddingSvc, ledger)
	}

	rl := cfg.Server.RateLimit
	limiter := server.NewRateLimiter(rl.RequestsPerSecond, rl.BurstSize,
		server.WithClientTTL(rl.ClientTTL), server.WithMaxClients(rl.MaxClients))
	go limiter.RunCleanup(ctx, rl.CleanupInterval)
	router := server.SetupRouter(biddingSvc, limiter)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		utils.Info("starting auction server", map[string]any{"addr": srv.Addr, "store": cfg.Store.Driver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("graceful shutdown failed", map[string]any{"error": err.Error()})
	}
	utils.Info("server stopped", nil)
}

// buildStore returns the configured auction store and its cleanup func
func buildStore(ctx context.Context, cfg *config.Config) (repository.AuctionStore, func()) {
	if cfg.Store.Driver != "postgres" {
		return repository.NewMemoryRepo(), func() {}
	}

	repo, err := repository.NewPostgresRepo(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		utils.Fatal("failed to connect to postgres", map[string]any{"error": err.Error()})
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		utils.Fatal("failed to prepare schema", map[string]any{"error": err.Error()})
	}
	return repo, repo.Close
}

// prepopulate adds sample auctions and funded wallets for local development
func prepopulate(ctx context.Context, svc *bidding.BiddingService, ledger *funds.MemoryLedger) {
	samples := []bidding.CreateAuctionRequest{
		{Title: "Genesis Gookie", Description: "The first Gookie ever baked", StartingBid: decimal.RequireFromString("1.0"), EndTime: time.Now().Add(24 * time.Hour)},
		{Title: "Double Choc Gookie", Description: "Limited edition", StartingBid: decimal.RequireFromString("0.5"), EndTime: time.Now().Add(2 * time.Hour)},
		{Title: "Last Call Gookie", Description: "Ends soon", StartingBid: decimal.RequireFromString("0.25"), EndTime: time.Now().Add(10 * time.Minute)},
	}

	for _, sample := range samples {
		if _, err := svc.CreateAuction(ctx, sample); err != nil {
			utils.Warn("failed to create sample auction", map[string]any{"title": sample.Title, "error": err.Error()})
		}
	}

	for _, wallet := range []string{"wallet-alice", "wallet-bob", "wallet-carol"} {
		ledger.Deposit(wallet, decimal.RequireFromString("100"))
	}
}
