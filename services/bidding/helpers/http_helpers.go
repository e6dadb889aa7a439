package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"gookie-auctions/internal/biddingerrors"
	"gookie-auctions/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message.
// Reconciliation is checked first because it wraps the rejection that caused it.
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, biddingerrors.ErrReconciliationRequired):
		return http.StatusInternalServerError, "bid not recorded: funds may be in transit, reconciliation required"
	case errors.Is(err, biddingerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, biddingerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, biddingerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, biddingerrors.ErrAuctionEnded):
		return http.StatusConflict, "auction has ended"
	case errors.Is(err, biddingerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, biddingerrors.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient funds"
	case errors.Is(err, biddingerrors.ErrDuplicateSubmission):
		return http.StatusConflict, "duplicate bid submission"
	case errors.Is(err, biddingerrors.ErrTransferFailed):
		return http.StatusBadGateway, "funds transfer failed, no funds were moved"
	case errors.Is(err, biddingerrors.ErrNoBids):
		return http.StatusOK, "no bids found for auction"
	case errors.Is(err, biddingerrors.ErrUserNoBids):
		return http.StatusOK, "no auctions found for bidder"
	case errors.Is(err, biddingerrors.ErrStore):
		return http.StatusServiceUnavailable, "auction store unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// ErrorDetails returns the extra response fields a client needs to act on err
func ErrorDetails(err error) gin.H {
	details := gin.H{}
	if errors.Is(err, biddingerrors.ErrReconciliationRequired) {
		details["reconciliation_required"] = true
		var recErr *biddingerrors.ReconciliationError
		if errors.As(err, &recErr) && recErr.TransferID != "" {
			details["transfer_id"] = recErr.TransferID
		}
	}
	var tooLow *biddingerrors.BidTooLowError
	if errors.As(err, &tooLow) {
		details["minimum_required"] = tooLow.MinimumRequired.String()
	}
	return details
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
