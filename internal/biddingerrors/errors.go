package biddingerrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrNoBids          = errors.New("no bids found for auction")
	ErrUserNoBids      = errors.New("bidder has not placed any bids")
	ErrConflict        = errors.New("auction changed since snapshot")
	ErrStore           = errors.New("auction store unavailable")
)

// business logic errors
var (
	ErrInvalidBid          = errors.New("invalid bid")
	ErrInvalidAuction      = errors.New("invalid auction")
	ErrAuctionEnded        = errors.New("auction has ended")
	ErrBidTooLow           = errors.New("bid amount too low")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrDuplicateSubmission = errors.New("duplicate bid submission")
)

// funds transfer errors
var (
	ErrTransferFailed = errors.New("funds transfer failed")
	// ErrTransferUnknown means the transfer outcome could not be confirmed either way.
	ErrTransferUnknown        = errors.New("funds transfer outcome unknown")
	ErrReconciliationRequired = errors.New("bid not recorded after funds transfer")
)

// BidTooLowError reports the minimum amount the auction would currently accept
type BidTooLowError struct {
	MinimumRequired decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("%s: minimum required is %s", ErrBidTooLow, e.MinimumRequired.String())
}

func (e *BidTooLowError) Unwrap() error {
	return ErrBidTooLow
}

// ReconciliationError is raised when funds moved (or may have moved) but the
// bid is not in the ledger. It must never be retried automatically.
type ReconciliationError struct {
	AuctionID  string
	Bidder     string
	Amount     decimal.Decimal
	TransferID string
	Cause      error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("%s: auction %s bidder %s amount %s transfer %s: %v",
		ErrReconciliationRequired, e.AuctionID, e.Bidder, e.Amount.String(), e.TransferID, e.Cause)
}

func (e *ReconciliationError) Unwrap() []error {
	return []error{ErrReconciliationRequired, e.Cause}
}
