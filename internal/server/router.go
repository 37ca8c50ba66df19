package server

import (
	handler "auction-core/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the settlement core
func SetupRouter(auctions handler.AuctionServiceInterface, settlement handler.SettlementServiceInterface) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(auctions, settlement)

	bids := router.Group("/bids")
	{
		bids.POST("", auctionHandler.PlaceBidHandler)
	}

	auctionRoutes := router.Group("/auctions")
	{
		auctionRoutes.POST("", auctionHandler.CreateAuctionHandler)
		auctionRoutes.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctionRoutes.GET("/:auction_id/bids", auctionHandler.GetAuctionBidsHandler)
		auctionRoutes.POST("/:auction_id/close", auctionHandler.CloseAuctionHandler)
		auctionRoutes.POST("/:auction_id/cancel", auctionHandler.CancelAuctionHandler)
	}

	escrows := router.Group("/escrows")
	{
		escrows.POST("/pay", auctionHandler.PayHandler)
		escrows.PUT("/:escrow_id/release", auctionHandler.ReleaseEscrowHandler)
		escrows.PUT("/:escrow_id/refund", auctionHandler.RefundEscrowHandler)
		escrows.GET("/held", auctionHandler.GetHeldEscrowsHandler)
	}

	return router
}
