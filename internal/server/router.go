package server

import (
	handler "gookie-auctions/services/bidding/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter configures all Gin routes for the application. limiter may be nil.
func SetupRouter(biddingService handler.BiddingServiceInterface, limiter *RateLimiter) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("")
	if limiter != nil {
		api.Use(limiter.Middleware)
	}

	biddingHandler := handler.NewBiddingHandler(biddingService)

	auctions := api.Group("/auctions")
	{
		auctions.POST("", biddingHandler.CreateAuctionHandler)
		auctions.GET("", biddingHandler.ListAuctionsHandler)
		auctions.GET("/:auction_id", biddingHandler.GetAuctionHandler)
		auctions.POST("/:auction_id/bids", biddingHandler.PlaceBidHandler)
		auctions.GET("/:auction_id/bids", biddingHandler.GetBidsHandler)
		auctions.GET("/:auction_id/winning", biddingHandler.GetWinningBidHandler)
	}

	bidders := api.Group("/bidders")
	{
		bidders.GET("/:bidder/auctions", biddingHandler.GetAuctionsByBidderHandler)
	}

	wallets := api.Group("/wallets")
	{
		wallets.GET("/:wallet/balance", biddingHandler.GetBalanceHandler)
	}

	return router
}
