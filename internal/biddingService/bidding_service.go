package bidding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gookie-auctions/internal/biddingerrors"
	"gookie-auctions/internal/engine"
	"gookie-auctions/internal/funds"
	"gookie-auctions/internal/idempotency"
	"gookie-auctions/internal/metrics"
	"gookie-auctions/internal/models"
	"gookie-auctions/internal/repository"
	"gookie-auctions/utils"

	"github.com/shopspring/decimal"
)

// maxCommitAttempts bounds re-validated commits after a conflict. Funds move
// once per PlaceBid; only the ledger write is repeated.
const maxCommitAttempts = 3

// PlaceBidRequest is a bid submission
type PlaceBidRequest struct {
	AuctionID      string
	Bidder         string
	Amount         decimal.Decimal
	IdempotencyKey string
}

// CreateAuctionRequest describes a new listing
type CreateAuctionRequest struct {
	Title       string
	Description string
	ImageURL    string
	StartingBid decimal.Decimal
	EndTime     time.Time
}

// BiddingService defines the business logic for auction bidding
type BiddingService struct {
	repo     repository.AuctionStore
	engine   *engine.Engine
	transfer funds.TransferService
	balances funds.BalanceQuery
	guard    idempotency.Guard
	treasury string
	now      func() time.Time
}

// Option customizes a BiddingService
type Option func(*BiddingService)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *BiddingService) { s.now = now }
}

// WithGuard replaces the default in-process idempotency guard
func WithGuard(guard idempotency.Guard) Option {
	return func(s *BiddingService) { s.guard = guard }
}

// WithBalanceQuery enables the pre-flight balance check
func WithBalanceQuery(balances funds.BalanceQuery) Option {
	return func(s *BiddingService) { s.balances = balances }
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionStore, eng *engine.Engine, transfer funds.TransferService, treasury string, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:     repo,
		engine:   eng,
		transfer: transfer,
		guard:    idempotency.NewMemoryGuard(24 * time.Hour),
		treasury: treasury,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAuction validates and stores a new active listing with no bids
func (s *BiddingService) CreateAuction(ctx context.Context, req CreateAuctionRequest) (models.Auction, error) {
	now := s.now().UTC()
	if strings.TrimSpace(req.Title) == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty title", biddingerrors.ErrInvalidAuction)
	}
	if err := s.engine.CheckAmount(req.StartingBid); err != nil {
		return models.Auction{}, fmt.Errorf("service: %w - starting bid: %v", biddingerrors.ErrInvalidAuction, err)
	}
	if !req.EndTime.After(now) {
		return models.Auction{}, fmt.Errorf("service: %w - end time must be in the future", biddingerrors.ErrInvalidAuction)
	}

	auction := models.Auction{
		AuctionID:         utils.GenerateID(),
		Title:             strings.TrimSpace(req.Title),
		Description:       req.Description,
		ImageURL:          req.ImageURL,
		StartingBid:       req.StartingBid,
		CurrentHighestBid: decimal.Zero,
		EndTime:           req.EndTime.UTC(),
		Status:            models.StatusActive,
		CreatedAt:         now,
	}

	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}

	utils.Info("auction created", map[string]any{
		"auction_id":   auction.AuctionID,
		"starting_bid": auction.StartingBid.String(),
		"end_time":     auction.EndTime.Format(time.RFC3339),
	})
	return auction, nil
}

// GetAuction returns an auction after applying lazy expiry
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (models.AuctionDetail, error) {
	if auctionID == "" {
		return models.AuctionDetail{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidAuction)
	}

	auction, err := s.repo.Fetch(ctx, auctionID)
	if err != nil {
		return models.AuctionDetail{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}

	now := s.now()
	auction, err = s.resolveExpiry(ctx, auction, now)
	if err != nil {
		return models.AuctionDetail{}, err
	}
	return s.detail(auction, now), nil
}

// ListAuctions returns auctions newest first. Expiry is resolved before the
// status filter applies so an overdue auction never lists as active.
func (s *BiddingService) ListAuctions(ctx context.Context, filter models.AuctionFilter) ([]models.AuctionDetail, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("service: %w - unknown status %q", biddingerrors.ErrInvalidAuction, filter.Status)
	}

	auctions, err := s.repo.ListAuctions(ctx, models.AuctionFilter{Search: filter.Search})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}

	now := s.now()
	details := make([]models.AuctionDetail, 0, len(auctions))
	for _, auction := range auctions {
		auction, err = s.resolveExpiry(ctx, auction, now)
		if err != nil {
			return nil, err
		}
		if filter.Status != "" && auction.Status != filter.Status {
			continue
		}
		details = append(details, s.detail(auction, now))
	}
	return details, nil
}

// PlaceBid validates a bid, moves the funds to escrow and records the bid.
// Once funds have moved, any failure to record the bid is returned as a
// *biddingerrors.ReconciliationError and must not be retried by the caller.
func (s *BiddingService) PlaceBid(ctx context.Context, req PlaceBidRequest) (models.CommitResult, error) {
	if err := s.validateBid(req); err != nil {
		metrics.BidsPlaced.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return models.CommitResult{}, err
	}

	auction, err := s.repo.Fetch(ctx, req.AuctionID)
	if err != nil {
		metrics.BidsPlaced.WithLabelValues(metrics.OutcomeError).Inc()
		return models.CommitResult{}, fmt.Errorf("service: failed to get auction %s: %w", req.AuctionID, err)
	}

	now := s.now()
	auction, err = s.resolveExpiry(ctx, auction, now)
	if err != nil {
		metrics.BidsPlaced.WithLabelValues(metrics.OutcomeError).Inc()
		return models.CommitResult{}, err
	}

	intent, err := s.engine.EvaluateBid(auction, req.Bidder, req.Amount, s.balanceHint(ctx, req.Bidder), now)
	if err != nil {
		metrics.BidsPlaced.WithLabelValues(rejectionOutcome(err)).Inc()
		return models.CommitResult{}, fmt.Errorf("service: %w", err)
	}

	guardKey := ""
	if req.IdempotencyKey != "" {
		guardKey = req.AuctionID + ":" + req.Bidder + ":" + req.IdempotencyKey
		acquired, err := s.guard.Acquire(ctx, guardKey)
		if err != nil {
			metrics.BidsPlaced.WithLabelValues(metrics.OutcomeError).Inc()
			return models.CommitResult{}, fmt.Errorf("service: failed to check submission %s: %w", req.IdempotencyKey, err)
		}
		if !acquired {
			metrics.BidsPlaced.WithLabelValues(metrics.OutcomeDuplicate).Inc()
			return models.CommitResult{}, fmt.Errorf("service: %w - key %s", biddingerrors.ErrDuplicateSubmission, req.IdempotencyKey)
		}
	}

	transferStart := time.Now()
	confirmation, err := s.transfer.Transfer(ctx, intent.Bidder, s.treasury, intent.Amount)
	metrics.TransferDuration.Observe(time.Since(transferStart).Seconds())
	if err != nil {
		if errors.Is(err, biddingerrors.ErrTransferUnknown) {
			return models.CommitResult{}, s.reconciliation(intent, "", err)
		}
		if guardKey != "" {
			if relErr := s.guard.Release(ctx, guardKey); relErr != nil {
				utils.Warn("failed to release idempotency key", map[string]any{"key": guardKey, "error": relErr.Error()})
			}
		}
		metrics.BidsPlaced.WithLabelValues(metrics.OutcomeTransferFailed).Inc()
		if !errors.Is(err, biddingerrors.ErrTransferFailed) {
			return models.CommitResult{}, fmt.Errorf("service: %w: %v", biddingerrors.ErrTransferFailed, err)
		}
		return models.CommitResult{}, fmt.Errorf("service: %w", err)
	}

	result, err := s.commit(ctx, auction, intent)
	if err != nil {
		return models.CommitResult{}, s.reconciliation(intent, confirmation.TransferID, err)
	}

	metrics.BidsPlaced.WithLabelValues(metrics.OutcomeAccepted).Inc()
	if result.Extended {
		metrics.AuctionExtensions.Inc()
	}
	utils.Info("bid committed", map[string]any{
		"auction_id":  result.Bid.AuctionID,
		"bid_id":      result.Bid.BidID,
		"bidder":      result.Bid.Bidder,
		"amount":      result.Bid.Amount.String(),
		"transfer_id": confirmation.TransferID,
		"extended":    result.Extended,
	})
	return result, nil
}

// commit writes the funds-backed bid. On a conflict the bid is re-evaluated
// against fresh state and committed again only if it is still valid.
func (s *BiddingService) commit(ctx context.Context, auction models.Auction, intent models.BidIntent) (models.CommitResult, error) {
	var err error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		commitStart := time.Now()
		var result models.CommitResult
		result, err = s.engine.CommitBid(ctx, auction, intent, s.now())
		metrics.CommitDuration.Observe(time.Since(commitStart).Seconds())
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, biddingerrors.ErrConflict) {
			return models.CommitResult{}, err
		}

		fresh, fetchErr := s.repo.Fetch(ctx, intent.AuctionID)
		if fetchErr != nil {
			return models.CommitResult{}, fmt.Errorf("%w; refetch failed: %v", err, fetchErr)
		}
		if _, evalErr := s.engine.EvaluateBid(fresh, intent.Bidder, intent.Amount, decimal.NullDecimal{}, s.now()); evalErr != nil {
			return models.CommitResult{}, evalErr
		}
		auction = fresh
	}
	return models.CommitResult{}, err
}

func (s *BiddingService) reconciliation(intent models.BidIntent, transferID string, cause error) error {
	metrics.BidsPlaced.WithLabelValues(metrics.OutcomeReconciliation).Inc()
	metrics.ReconciliationsRequired.Inc()

	recErr := &biddingerrors.ReconciliationError{
		AuctionID:  intent.AuctionID,
		Bidder:     intent.Bidder,
		Amount:     intent.Amount,
		TransferID: transferID,
		Cause:      cause,
	}
	utils.Error("RECONCILIATION REQUIRED: funds transferred but bid not recorded", map[string]any{
		"auction_id":  intent.AuctionID,
		"bidder":      intent.Bidder,
		"amount":      intent.Amount.String(),
		"transfer_id": transferID,
		"error":       cause.Error(),
	})
	return fmt.Errorf("service: %w", recErr)
}

// validateBid checks input validity before any state is read
func (s *BiddingService) validateBid(req PlaceBidRequest) error {
	if req.AuctionID == "" || req.Bidder == "" {
		return fmt.Errorf("service: %w - missing auctionID or bidder", biddingerrors.ErrInvalidBid)
	}
	if err := s.engine.CheckAmount(req.Amount); err != nil {
		return fmt.Errorf("service: %w - bid amount: %v", biddingerrors.ErrInvalidBid, err)
	}
	return nil
}

// balanceHint returns the bidder's balance, or an invalid NullDecimal when it
// cannot be determined
func (s *BiddingService) balanceHint(ctx context.Context, bidder string) decimal.NullDecimal {
	if s.balances == nil {
		return decimal.NullDecimal{}
	}
	balance, err := s.balances.GetBalance(ctx, bidder)
	if err != nil {
		utils.Warn("balance query failed, skipping pre-flight check", map[string]any{"bidder": bidder, "error": err.Error()})
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: balance, Valid: true}
}

// GetBids returns an auction's bids as a leaderboard or as an audit history
func (s *BiddingService) GetBids(ctx context.Context, auctionID string, order models.BidOrder) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}
	if order == "" {
		order = models.OrderByAmount
	}
	if order != models.OrderByAmount && order != models.OrderByTime {
		return nil, fmt.Errorf("service: %w - unknown order %q", biddingerrors.ErrInvalidBid, order)
	}

	bids, err := s.repo.ListBids(ctx, auctionID, order)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	return bids, nil
}

// GetWinningBid returns the leading bid, which is final once the auction is closed
func (s *BiddingService) GetWinningBid(ctx context.Context, auctionID string) (models.Bid, error) {
	bids, err := s.GetBids(ctx, auctionID, models.OrderByAmount)
	if err != nil {
		return models.Bid{}, err
	}
	if len(bids) == 0 {
		return models.Bid{}, fmt.Errorf("service: auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}

	return bids[0], nil
}

// GetAuctionsByBidder returns all auctions a bidder has placed bids on
func (s *BiddingService) GetAuctionsByBidder(ctx context.Context, bidder string) ([]models.Auction, error) {
	if bidder == "" {
		return nil, fmt.Errorf("service: %w - empty bidder", biddingerrors.ErrInvalidBid)
	}

	auctions, err := s.repo.GetAuctionsByBidder(ctx, bidder)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get auctions for bidder %s: %w", bidder, err)
	}

	return auctions, nil
}

// GetBalance returns a wallet's balance hint
func (s *BiddingService) GetBalance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	if wallet == "" {
		return decimal.Zero, fmt.Errorf("service: %w - empty wallet", biddingerrors.ErrInvalidBid)
	}
	if s.balances == nil {
		return decimal.Zero, fmt.Errorf("service: balance query not configured: %w", biddingerrors.ErrStore)
	}

	balance, err := s.balances.GetBalance(ctx, wallet)
	if err != nil {
		return decimal.Zero, fmt.Errorf("service: failed to get balance for %s: %w", wallet, err)
	}
	return balance, nil
}

func (s *BiddingService) resolveExpiry(ctx context.Context, auction models.Auction, now time.Time) (models.Auction, error) {
	auction, closed, err := s.engine.ResolveExpiry(ctx, auction, now)
	if err != nil {
		return auction, fmt.Errorf("service: %w", err)
	}
	if closed {
		metrics.AuctionsClosed.Inc()
		fields := map[string]any{"auction_id": auction.AuctionID, "winner": auction.HighestBidder}
		if auction.HasBids() {
			fields["winning_bid"] = auction.CurrentHighestBid.String()
		}
		utils.Info("auction closed", fields)
	}
	return auction, nil
}

func (s *BiddingService) detail(auction models.Auction, now time.Time) models.AuctionDetail {
	var remaining int64
	if auction.Status == models.StatusActive && auction.EndTime.After(now) {
		remaining = int64(auction.EndTime.Sub(now) / time.Second)
	}
	return models.AuctionDetail{
		Auction:          auction,
		MinimumBid:       s.engine.MinimumRequired(auction),
		SecondsRemaining: remaining,
		InSnipeWindow:    auction.Status == models.StatusActive && s.engine.InSnipeWindow(auction, now),
	}
}

func rejectionOutcome(err error) string {
	switch {
	case errors.Is(err, biddingerrors.ErrAuctionEnded):
		return metrics.OutcomeAuctionEnded
	case errors.Is(err, biddingerrors.ErrBidTooLow):
		return metrics.OutcomeBidTooLow
	case errors.Is(err, biddingerrors.ErrInsufficientFunds):
		return metrics.OutcomeInsufficientFunds
	default:
		return metrics.OutcomeError
	}
}
