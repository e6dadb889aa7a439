package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gookie-auctions/internal/biddingerrors"
	model "gookie-auctions/internal/models"
	"gookie-auctions/internal/repository"
	"gookie-auctions/utils"

	"github.com/shopspring/decimal"
)

// MinIncrement is the smallest step over the current highest bid
var MinIncrement = decimal.RequireFromString("0.05")

// MaxAmount is the largest amount the auction store holds exactly (NUMERIC(20, 9))
var MaxAmount = decimal.RequireFromString("99999999999.999999999")

// AmountScale is the number of decimal places an amount may carry
const AmountScale = 9

const (
	// AntiSnipeWindow is how close to the deadline a bid must land to extend it
	AntiSnipeWindow = 5 * time.Minute
	// ExtensionDuration is measured from the committing bid, not from the old deadline
	ExtensionDuration = 5 * time.Minute
)

// Config holds the auction rules. The zero value is not usable; start from DefaultConfig.
type Config struct {
	MinIncrement      decimal.Decimal
	MaxAmount         decimal.Decimal
	AntiSnipeWindow   time.Duration
	ExtensionDuration time.Duration
}

// DefaultConfig returns the reference auction rules
func DefaultConfig() Config {
	return Config{
		MinIncrement:      MinIncrement,
		MaxAmount:         MaxAmount,
		AntiSnipeWindow:   AntiSnipeWindow,
		ExtensionDuration: ExtensionDuration,
	}
}

// Validate checks that every rule is positive and that amounts fit the store
func (c Config) Validate() error {
	if !c.MinIncrement.IsPositive() {
		return fmt.Errorf("engine: min increment must be positive, got %s", c.MinIncrement)
	}
	if c.MinIncrement.Exponent() < -AmountScale {
		return fmt.Errorf("engine: min increment %s has more than %d decimal places", c.MinIncrement, AmountScale)
	}
	if !c.MaxAmount.IsPositive() || c.MaxAmount.Exponent() < -AmountScale || c.MaxAmount.GreaterThan(MaxAmount) {
		return fmt.Errorf("engine: max amount must be positive and at most %s, got %s", MaxAmount, c.MaxAmount)
	}
	if c.AntiSnipeWindow <= 0 {
		return fmt.Errorf("engine: anti-snipe window must be positive, got %s", c.AntiSnipeWindow)
	}
	if c.ExtensionDuration <= 0 {
		return fmt.Errorf("engine: extension duration must be positive, got %s", c.ExtensionDuration)
	}
	return nil
}

// Engine owns the bidding rules of a single-item ascending auction. It never
// reads the wall clock; every time-dependent call takes now from the caller.
type Engine struct {
	store repository.AuctionStore
	cfg   Config
}

// NewEngine creates an Engine persisting through store
func NewEngine(store repository.AuctionStore, cfg Config) *Engine {
	return &Engine{
		store: store,
		cfg:   cfg,
	}
}

// Config returns the rules the engine applies
func (e *Engine) Config() Config {
	return e.cfg
}

// CheckAmount rejects amounts that cannot be stored exactly. Untrusted
// amounts can carry any exponent, so only the sign, the exponent and the
// digit count are inspected before the value is compared.
func (e *Engine) CheckAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	if amount.Exponent() < -AmountScale {
		return fmt.Errorf("amount has more than %d decimal places", AmountScale)
	}
	if integerDigits(amount) > integerDigits(e.cfg.MaxAmount) || amount.GreaterThan(e.cfg.MaxAmount) {
		return fmt.Errorf("amount exceeds maximum %s", e.cfg.MaxAmount)
	}
	return nil
}

// integerDigits bounds the number of digits left of the decimal point
func integerDigits(d decimal.Decimal) int {
	return d.NumDigits() + int(d.Exponent())
}

// MinimumRequired is the starting bid until the first bid lands, then the
// current highest bid plus the increment
func (e *Engine) MinimumRequired(auction model.Auction) decimal.Decimal {
	if auction.HasBids() {
		return auction.CurrentHighestBid.Add(e.cfg.MinIncrement)
	}
	return auction.StartingBid
}

// IsEnded reports whether the auction no longer accepts bids at now
func (e *Engine) IsEnded(auction model.Auction, now time.Time) bool {
	return auction.Status == model.StatusClosed || !now.Before(auction.EndTime)
}

// InSnipeWindow reports whether a bid committed at now would extend the auction
func (e *Engine) InSnipeWindow(auction model.Auction, now time.Time) bool {
	remaining := auction.EndTime.Sub(now)
	return remaining > 0 && remaining < e.cfg.AntiSnipeWindow
}

// EvaluateBid validates a proposed bid against a fresh snapshot without
// touching any state. balance is a pre-flight hint; an invalid NullDecimal
// means the balance is unknown and the check is skipped.
func (e *Engine) EvaluateBid(auction model.Auction, bidder string, amount decimal.Decimal, balance decimal.NullDecimal, now time.Time) (model.BidIntent, error) {
	if e.IsEnded(auction, now) {
		return model.BidIntent{}, fmt.Errorf("engine: auction %s: %w", auction.AuctionID, biddingerrors.ErrAuctionEnded)
	}

	minimum := e.MinimumRequired(auction)
	if amount.LessThan(minimum) {
		return model.BidIntent{}, fmt.Errorf("engine: auction %s bid %s: %w", auction.AuctionID, amount, &biddingerrors.BidTooLowError{MinimumRequired: minimum})
	}

	if balance.Valid && amount.GreaterThan(balance.Decimal) {
		return model.BidIntent{}, fmt.Errorf("engine: bid %s exceeds balance %s: %w", amount, balance.Decimal, biddingerrors.ErrInsufficientFunds)
	}

	return model.BidIntent{
		AuctionID: auction.AuctionID,
		Bidder:    bidder,
		Amount:    amount,
	}, nil
}

// CommitBid records a funds-backed bid. The bid, the new leader and any
// deadline extension are written as one conditional update keyed on the
// snapshot's highest bid; a concurrent winner surfaces as ErrConflict.
func (e *Engine) CommitBid(ctx context.Context, auction model.Auction, intent model.BidIntent, now time.Time) (model.CommitResult, error) {
	if intent.AuctionID != auction.AuctionID {
		return model.CommitResult{}, fmt.Errorf("engine: %w - intent for auction %s committed against %s", biddingerrors.ErrInvalidBid, intent.AuctionID, auction.AuctionID)
	}

	endTime, extended := e.extendedEndTime(auction, now)

	bid := model.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: intent.AuctionID,
		Bidder:    intent.Bidder,
		Amount:    intent.Amount,
		CreatedAt: now.UTC(),
	}

	err := e.store.AppendBidAndUpdateAuction(ctx, model.BidUpdate{
		Bid:                  bid,
		ExpectedPriorHighest: auction.CurrentHighestBid,
		EndTime:              endTime,
	})
	if err != nil {
		return model.CommitResult{}, fmt.Errorf("engine: commit bid on auction %s: %w", auction.AuctionID, err)
	}

	if extended {
		utils.Info("auction extended by late bid", map[string]any{
			"auction_id":   auction.AuctionID,
			"bidder":       bid.Bidder,
			"old_end_time": auction.EndTime.UTC().Format(time.RFC3339),
			"new_end_time": endTime.UTC().Format(time.RFC3339),
		})
	}

	return model.CommitResult{
		Bid:        bid,
		Extended:   extended,
		NewEndTime: endTime,
	}, nil
}

// ResolveExpiry closes an active auction whose deadline has passed. It is
// idempotent and returns the possibly updated snapshot and whether this call
// performed the transition.
func (e *Engine) ResolveExpiry(ctx context.Context, auction model.Auction, now time.Time) (model.Auction, bool, error) {
	if auction.Status != model.StatusActive || now.Before(auction.EndTime) {
		return auction, false, nil
	}

	if err := e.store.UpdateStatus(ctx, auction.AuctionID, model.StatusClosed); err != nil {
		return auction, false, fmt.Errorf("engine: close auction %s: %w", auction.AuctionID, err)
	}

	auction.Status = model.StatusClosed
	return auction, true, nil
}

// extendedEndTime applies the anti-snipe rule: a bid committed at t inside the
// window moves the deadline to t + ExtensionDuration. There is no cap on how
// many times an auction can be extended. Product decision: the deadline is
// never moved earlier, so the result is max(end, t + ExtensionDuration). The
// two only differ when the extension is configured shorter than the window.
func (e *Engine) extendedEndTime(auction model.Auction, now time.Time) (time.Time, bool) {
	if !e.InSnipeWindow(auction, now) {
		return auction.EndTime, false
	}
	extended := now.Add(e.cfg.ExtensionDuration)
	if !extended.After(auction.EndTime) {
		return auction.EndTime, false
	}
	return extended, true
}
