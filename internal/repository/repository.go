package repository

//go:generate mockgen -source=repository.go -destination=repository_mock.go -package=repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gookie-auctions/internal/biddingerrors"
	model "gookie-auctions/internal/models"
)

// AuctionStore is the durable record of auctions and their bid ledgers.
// AppendBidAndUpdateAuction must apply the bid and the auction update as one
// atomic write and fail with biddingerrors.ErrConflict when the stored highest
// bid no longer matches the caller's snapshot.
type AuctionStore interface {
	CreateAuction(ctx context.Context, auction model.Auction) error
	Fetch(ctx context.Context, auctionID string) (model.Auction, error)
	ListAuctions(ctx context.Context, filter model.AuctionFilter) ([]model.Auction, error)
	AppendBidAndUpdateAuction(ctx context.Context, update model.BidUpdate) error
	ListBids(ctx context.Context, auctionID string, order model.BidOrder) ([]model.Bid, error)
	UpdateStatus(ctx context.Context, auctionID string, status model.AuctionStatus) error
	GetAuctionsByBidder(ctx context.Context, bidder string) ([]model.Auction, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionStore
type MemoryRepo struct {
	mu             sync.RWMutex
	auctions       map[string]model.Auction // key: auctionID -> value: auction
	bids           map[string][]model.Bid   // key: auctionID -> value: bids in commit order
	bidderAuctions map[string][]string      // key: bidder -> value: auctionIDs bid on
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:       make(map[string]model.Auction),
		bids:           make(map[string][]model.Bid),
		bidderAuctions: make(map[string][]string),
	}
}

// CreateAuction stores a new auction
func (r *MemoryRepo) CreateAuction(_ context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if auction.AuctionID == "" {
		return fmt.Errorf("create auction: %w - empty auction id", biddingerrors.ErrInvalidAuction)
	}
	if _, ok := r.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("create auction %s: %w - already exists", auction.AuctionID, biddingerrors.ErrInvalidAuction)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// Fetch returns the current snapshot of an auction
func (r *MemoryRepo) Fetch(_ context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("fetch auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return auction, nil
}

// ListAuctions returns auctions newest first, narrowed by filter
func (r *MemoryRepo) ListAuctions(_ context.Context, filter model.AuctionFilter) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	auctions := make([]model.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(a.Title), search) &&
			!strings.Contains(strings.ToLower(a.Description), search) {
			continue
		}
		auctions = append(auctions, a)
	}

	sort.SliceStable(auctions, func(i, j int) bool {
		if auctions[i].CreatedAt.Equal(auctions[j].CreatedAt) {
			return auctions[i].AuctionID < auctions[j].AuctionID
		}
		return auctions[i].CreatedAt.After(auctions[j].CreatedAt)
	})
	return auctions, nil
}

// AppendBidAndUpdateAuction appends the bid and moves the auction's cached
// leader and end time in one critical section
func (r *MemoryRepo) AppendBidAndUpdateAuction(_ context.Context, update model.BidUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bid := update.Bid
	auction, ok := r.auctions[bid.AuctionID]
	if !ok {
		return fmt.Errorf("append bid for auction %s: %w", bid.AuctionID, biddingerrors.ErrAuctionNotFound)
	}
	if auction.Status != model.StatusActive {
		return fmt.Errorf("append bid for auction %s: %w - auction is %s", bid.AuctionID, biddingerrors.ErrConflict, auction.Status)
	}
	if !auction.CurrentHighestBid.Equal(update.ExpectedPriorHighest) {
		return fmt.Errorf("append bid for auction %s: %w - expected highest %s, stored %s",
			bid.AuctionID, biddingerrors.ErrConflict, update.ExpectedPriorHighest, auction.CurrentHighestBid)
	}

	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)

	auction.CurrentHighestBid = bid.Amount
	auction.HighestBidder = bid.Bidder
	auction.EndTime = update.EndTime
	r.auctions[bid.AuctionID] = auction

	for _, id := range r.bidderAuctions[bid.Bidder] {
		if id == bid.AuctionID {
			return nil
		}
	}
	r.bidderAuctions[bid.Bidder] = append(r.bidderAuctions[bid.Bidder], bid.AuctionID)

	return nil
}

// ListBids returns a copy of an auction's bid ledger in the requested order
func (r *MemoryRepo) ListBids(_ context.Context, auctionID string, order model.BidOrder) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("list bids for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	bids := append([]model.Bid(nil), r.bids[auctionID]...)
	SortBids(bids, order)
	return bids, nil
}

// UpdateStatus sets the auction status. A closed auction is never reopened.
func (r *MemoryRepo) UpdateStatus(_ context.Context, auctionID string, status model.AuctionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("update status for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if auction.Status == model.StatusClosed {
		return nil
	}
	auction.Status = status
	r.auctions[auctionID] = auction
	return nil
}

// GetAuctionsByBidder returns all auctions a bidder has bid on
func (r *MemoryRepo) GetAuctionsByBidder(_ context.Context, bidder string) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctionIDs, ok := r.bidderAuctions[bidder]
	if !ok || len(auctionIDs) == 0 {
		return nil, fmt.Errorf("get auctions for bidder %s: %w", bidder, biddingerrors.ErrUserNoBids)
	}

	auctions := make([]model.Auction, 0, len(auctionIDs))
	for _, id := range auctionIDs {
		if auction, exists := r.auctions[id]; exists {
			auctions = append(auctions, auction)
		}
	}
	return auctions, nil
}

// SortBids orders bids in place. Amount order breaks ties by earlier bid first.
func SortBids(bids []model.Bid, order model.BidOrder) {
	switch order {
	case model.OrderByAmount:
		sort.SliceStable(bids, func(i, j int) bool {
			if c := bids[i].Amount.Cmp(bids[j].Amount); c != 0 {
				return c > 0
			}
			return bids[i].CreatedAt.Before(bids[j].CreatedAt)
		})
	default:
		sort.SliceStable(bids, func(i, j int) bool {
			return bids[i].CreatedAt.Before(bids[j].CreatedAt)
		})
	}
}
