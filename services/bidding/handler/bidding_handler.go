package handler

//go:generate mockgen -source=bidding_handler.go -destination=bidding_handler_mock.go -package=handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gookie-auctions/internal/biddingerrors"
	bidding "gookie-auctions/internal/biddingService"
	model "gookie-auctions/internal/models"
	"gookie-auctions/services/bidding/helpers"
	"gookie-auctions/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// IdempotencyHeader carries the client's submission key for a bid
const IdempotencyHeader = "Idempotency-Key"

type BiddingServiceInterface interface {
	CreateAuction(ctx context.Context, req bidding.CreateAuctionRequest) (model.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (model.AuctionDetail, error)
	ListAuctions(ctx context.Context, filter model.AuctionFilter) ([]model.AuctionDetail, error)
	PlaceBid(ctx context.Context, req bidding.PlaceBidRequest) (model.CommitResult, error)
	GetBids(ctx context.Context, auctionID string, order model.BidOrder) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error)
	GetAuctionsByBidder(ctx context.Context, bidder string) ([]model.Auction, error)
	GetBalance(ctx context.Context, wallet string) (decimal.Decimal, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// respondError writes the mapped error and logs it; reconciliation is logged at error level
func respondError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message := helpers.MapErrorToHTTP(err)
	utils.JSONErrorWithDetails(c, status, fmt.Errorf("%s: %w", message, err), message, helpers.ErrorDetails(err))

	fields["handler"] = handlerName
	fields["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Warn(handlerName+": request rejected", fields)
}

// CreateAuctionHandler handles POST /auctions
func (h *BiddingHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	auction, err := h.service.CreateAuction(c.Request.Context(), bidding.CreateAuctionRequest{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		StartingBid: req.StartingBid,
		EndTime:     req.EndTime,
	})
	if err != nil {
		respondError(c, "CreateAuctionHandler", err, map[string]any{"title": req.Title})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, auction, "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auction.AuctionID,
	})
}

// ListAuctionsHandler handles GET /auctions?status=&q=
func (h *BiddingHandler) ListAuctionsHandler(c *gin.Context) {
	status := strings.ToLower(c.DefaultQuery("status", "all"))
	if status == "all" {
		status = ""
	}
	filter := model.AuctionFilter{
		Status: model.AuctionStatus(status),
		Search: c.Query("q"),
	}

	auctions, err := h.service.ListAuctions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "ListAuctionsHandler", err, map[string]any{"status": status})
		return
	}

	if auctions == nil {
		auctions = []model.AuctionDetail{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
	helpers.LogSuccess("ListAuctionsHandler", "auctions retrieved successfully", map[string]any{
		"status": status,
		"count":  len(auctions),
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *BiddingHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.service.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, auction, "auction retrieved successfully")
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}
	if !req.Amount.IsPositive() {
		helpers.HandleBindError(c, "PlaceBidHandler", errors.New("amount must be positive"))
		return
	}

	result, err := h.service.PlaceBid(c.Request.Context(), bidding.PlaceBidRequest{
		AuctionID:      auctionID,
		Bidder:         req.Bidder,
		Amount:         req.Amount,
		IdempotencyKey: c.GetHeader(IdempotencyHeader),
	})
	if err != nil {
		respondError(c, "PlaceBidHandler", err, map[string]any{
			"auction_id": auctionID,
			"bidder":     req.Bidder,
		})
		return
	}

	message := "bid recorded successfully"
	if result.Extended {
		message = "bid recorded successfully, auction extended"
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(result.Bid, &result), message)
	helpers.LogSuccess("PlaceBidHandler", message, map[string]any{
		"bid_id":     result.Bid.BidID,
		"auction_id": result.Bid.AuctionID,
		"bidder":     result.Bid.Bidder,
		"amount":     result.Bid.Amount.String(),
		"extended":   result.Extended,
	})
}

// GetBidsHandler handles GET /auctions/:auction_id/bids?order=amount|time
func (h *BiddingHandler) GetBidsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	order := model.BidOrder(c.DefaultQuery("order", string(model.OrderByAmount)))

	bids, err := h.service.GetBids(c.Request.Context(), auctionID, order)
	if err != nil {
		respondError(c, "GetBidsHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, bid := range bids {
		resp = append(resp, helpers.NewBidResponse(bid, nil))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"order":      order,
		"count":      len(resp),
	})
}

// GetWinningBidHandler handles GET /auctions/:auction_id/winning
func (h *BiddingHandler) GetWinningBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bid, err := h.service.GetWinningBid(c.Request.Context(), auctionID)
	if err != nil {
		if errors.Is(err, biddingerrors.ErrNoBids) {
			utils.JSONError(c, http.StatusNotFound, err, "no winning bid found")
			utils.Info("GetWinningBidHandler: no winning bid found", map[string]any{"auction_id": auctionID})
			return
		}
		respondError(c, "GetWinningBidHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponse(bid, nil), "winning bid retrieved successfully")
	helpers.LogSuccess("GetWinningBidHandler", "winning bid retrieved successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder":     bid.Bidder,
		"amount":     bid.Amount.String(),
	})
}

// GetAuctionsByBidderHandler handles GET /bidders/:bidder/auctions
func (h *BiddingHandler) GetAuctionsByBidderHandler(c *gin.Context) {
	bidder := c.Param("bidder")
	auctions, err := h.service.GetAuctionsByBidder(c.Request.Context(), bidder)
	if err != nil && !errors.Is(err, biddingerrors.ErrUserNoBids) {
		respondError(c, "GetAuctionsByBidderHandler", err, map[string]any{"bidder": bidder})
		return
	}

	if auctions == nil {
		auctions = []model.Auction{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
	helpers.LogSuccess("GetAuctionsByBidderHandler", "auctions retrieved successfully", map[string]any{
		"bidder":         bidder,
		"auctions_count": len(auctions),
	})
}

// GetBalanceHandler handles GET /wallets/:wallet/balance
func (h *BiddingHandler) GetBalanceHandler(c *gin.Context) {
	wallet := c.Param("wallet")
	balance, err := h.service.GetBalance(c.Request.Context(), wallet)
	if err != nil {
		respondError(c, "GetBalanceHandler", err, map[string]any{"wallet": wallet})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.BalanceResponse{
		Wallet:  wallet,
		Balance: balance.String(),
	}, "balance retrieved successfully")
}
