package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bid outcomes used as the "outcome" label
const (
	OutcomeAccepted          = "accepted"
	OutcomeInvalid           = "invalid"
	OutcomeAuctionEnded      = "auction_ended"
	OutcomeBidTooLow         = "bid_too_low"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeDuplicate         = "duplicate"
	OutcomeTransferFailed    = "transfer_failed"
	OutcomeReconciliation    = "reconciliation_required"
	OutcomeError             = "error"
)

// Bidding metrics
var (
	BidsPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gookie_bids_total",
			Help: "Total number of bid submissions by outcome",
		},
		[]string{"outcome"},
	)

	AuctionExtensions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gookie_auction_extensions_total",
		Help: "Total number of anti-snipe deadline extensions",
	})

	AuctionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gookie_auctions_closed_total",
		Help: "Total number of auctions closed on lazy expiry",
	})

	ReconciliationsRequired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gookie_reconciliations_required_total",
		Help: "Total number of transfers whose bid could not be recorded",
	})
)

// Latency metrics
var (
	TransferDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gookie_funds_transfer_duration_seconds",
		Help:    "Time taken by the funds transfer collaborator",
		Buckets: prometheus.DefBuckets,
	})

	CommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gookie_bid_commit_duration_seconds",
		Help:    "Time taken to commit a bid to the auction store",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gookie_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
