package helpers

import (
	"time"

	model "gookie-auctions/internal/models"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	Bidder string          `json:"bidder" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

type CreateAuctionRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	StartingBid decimal.Decimal `json:"starting_bid"`
	EndTime     time.Time       `json:"end_time"`
}

type BidResponse struct {
	BidID      string `json:"bid_id"`
	AuctionID  string `json:"auction_id"`
	Bidder     string `json:"bidder"`
	Amount     string `json:"amount"`
	CreatedAt  string `json:"created_at"`
	Extended   bool   `json:"extended"`
	NewEndTime string `json:"new_end_time,omitempty"`
}

type BalanceResponse struct {
	Wallet  string `json:"wallet"`
	Balance string `json:"balance"`
}

// NewBidResponse converts a bid, and optionally its commit outcome, to the wire shape
func NewBidResponse(bid model.Bid, result *model.CommitResult) BidResponse {
	resp := BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		Bidder:    bid.Bidder,
		Amount:    bid.Amount.String(),
		CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339),
	}
	if result != nil && result.Extended {
		resp.Extended = true
		resp.NewEndTime = result.NewEndTime.UTC().Format(time.RFC3339)
	}
	return resp
}
