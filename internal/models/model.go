package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction. It only ever moves active -> closed.
type AuctionStatus string

const (
	StatusActive AuctionStatus = "active"
	StatusClosed AuctionStatus = "closed"
)

// Valid reports whether s is a known status
func (s AuctionStatus) Valid() bool {
	return s == StatusActive || s == StatusClosed
}

// Auction represents a single Gookie listing
type Auction struct {
	AuctionID         string          `json:"auction_id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	ImageURL          string          `json:"image_url,omitempty"`
	StartingBid       decimal.Decimal `json:"starting_bid"`
	CurrentHighestBid decimal.Decimal `json:"current_highest_bid"`
	HighestBidder     string          `json:"highest_bidder,omitempty"`
	EndTime           time.Time       `json:"end_time"`
	Status            AuctionStatus   `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
}

// HasBids reports whether any bid has been committed
func (a Auction) HasBids() bool {
	return a.CurrentHighestBid.IsPositive()
}

// Bid represents a committed bid. Bids are append-only.
type Bid struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	Bidder    string          `json:"bidder"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// BidIntent is an evaluated bid that still has to be backed by a funds transfer
type BidIntent struct {
	AuctionID string
	Bidder    string
	Amount    decimal.Decimal
}

// BidOrder selects the ordering of a bid listing
type BidOrder string

const (
	// OrderByAmount lists the leaderboard: highest amount first
	OrderByAmount BidOrder = "amount"
	// OrderByTime lists the audit history: oldest first
	OrderByTime BidOrder = "time"
)

// BidUpdate is the single atomic write applied when a bid is committed
type BidUpdate struct {
	Bid Bid
	// ExpectedPriorHighest is the highest bid the caller's snapshot saw. The
	// write only succeeds if the stored value still matches.
	ExpectedPriorHighest decimal.Decimal
	EndTime              time.Time
}

// CommitResult reports the outcome of a committed bid
type CommitResult struct {
	Bid        Bid       `json:"bid"`
	Extended   bool      `json:"extended"`
	NewEndTime time.Time `json:"new_end_time"`
}

// AuctionDetail is an auction snapshot with the values a bidder needs to act on it
type AuctionDetail struct {
	Auction
	MinimumBid       decimal.Decimal `json:"minimum_bid"`
	SecondsRemaining int64           `json:"seconds_remaining"`
	// InSnipeWindow is true while a bid would extend the deadline
	InSnipeWindow bool `json:"in_snipe_window"`
}

// AuctionFilter narrows an auction listing
type AuctionFilter struct {
	// Status is empty for all statuses
	Status AuctionStatus
	Search string
}
