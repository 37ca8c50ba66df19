package handler

import (
	"fmt"
	"net/http"
	"time"

	model "auction-core/internal/models"
	"auction-core/services/auction/helpers"
	"auction-core/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -source=auction_handler.go -destination=mock_services.go -package=handler

type AuctionServiceInterface interface {
	CreateAuction(productID, sellerID string, startingPrice float64, deadline time.Time) (model.Auction, error)
	PlaceBid(auctionID, bidderID string, amount float64) (model.Bid, error)
	Cancel(auctionID string) (model.Auction, error)
	GetAuction(auctionID string) (model.Auction, error)
	BidsForAuction(auctionID string) ([]model.Bid, error)
}

type SettlementServiceInterface interface {
	CloseAndSettle(auctionID string) error
	Pay(buyerID, sellerID, productID string, amount float64) (model.Order, error)
	Release(escrowID string) (model.EscrowAccount, error)
	Refund(escrowID string) (model.EscrowAccount, error)
	HeldEscrows() ([]model.EscrowAccount, error)
}

type AuctionHandler struct {
	auctions   AuctionServiceInterface
	settlement SettlementServiceInterface
}

func NewAuctionHandler(auctions AuctionServiceInterface, settlement SettlementServiceInterface) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, settlement: settlement}
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	auction, err := h.auctions.CreateAuction(req.ProductID, req.SellerID, req.StartingPrice, req.Deadline)
	if err != nil {
		h.respondError(c, "CreateAuctionHandler", err, map[string]any{
			"product_id": req.ProductID,
			"seller_id":  req.SellerID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewAuctionResponse(auction), "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"product_id": auction.ProductID,
		"deadline":   auction.Deadline,
	})
}

// PlaceBidHandler handles POST /bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bid, err := h.auctions.PlaceBid(req.AuctionID, req.BidderID, req.Amount)
	if err != nil {
		h.respondError(c, "PlaceBidHandler", err, map[string]any{
			"auction_id": req.AuctionID,
			"bidder_id":  req.BidderID,
			"amount":     req.Amount,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid), "bid accepted successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid accepted successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder_id":  bid.BidderID,
		"amount":     bid.Amount,
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.auctions.GetAuction(auctionID)
	if err != nil {
		h.respondError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "auction retrieved successfully")
}

// GetAuctionBidsHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetAuctionBidsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.auctions.BidsForAuction(auctionID)
	if err != nil {
		h.respondError(c, "GetAuctionBidsHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, bid := range bids {
		resp = append(resp, helpers.NewBidResponse(bid))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
}

// CloseAuctionHandler handles POST /auctions/:auction_id/close (admin early close)
func (h *AuctionHandler) CloseAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	if err := h.settlement.CloseAndSettle(auctionID); err != nil {
		h.respondError(c, "CloseAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	auction, err := h.auctions.GetAuction(auctionID)
	if err != nil {
		h.respondError(c, "CloseAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "auction closed successfully")
	helpers.LogSuccess("CloseAuctionHandler", "auction closed successfully", map[string]any{
		"auction_id": auctionID,
		"status":     string(auction.Status),
	})
}

// CancelAuctionHandler handles POST /auctions/:auction_id/cancel
func (h *AuctionHandler) CancelAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	auction, err := h.auctions.Cancel(auctionID)
	if err != nil {
		h.respondError(c, "CancelAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "auction cancelled successfully")
	helpers.LogSuccess("CancelAuctionHandler", "auction cancelled successfully", map[string]any{
		"auction_id": auctionID,
	})
}

// PayHandler handles POST /escrows/pay (direct purchase hold)
func (h *AuctionHandler) PayHandler(c *gin.Context) {
	var req helpers.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PayHandler", err)
		return
	}

	order, err := h.settlement.Pay(req.BuyerID, req.SellerID, req.ProductID, req.Amount)
	if err != nil {
		h.respondError(c, "PayHandler", err, map[string]any{
			"buyer_id":   req.BuyerID,
			"product_id": req.ProductID,
			"amount":     req.Amount,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewOrderResponse(order), "payment held in escrow successfully")
	helpers.LogSuccess("PayHandler", "payment held in escrow successfully", map[string]any{
		"order_id":  order.OrderID,
		"escrow_id": order.EscrowAccountID,
		"buyer_id":  order.BuyerID,
		"amount":    order.Amount,
	})
}

// ReleaseEscrowHandler handles PUT /escrows/:escrow_id/release
func (h *AuctionHandler) ReleaseEscrowHandler(c *gin.Context) {
	escrowID := c.Param("escrow_id")

	escrow, err := h.settlement.Release(escrowID)
	if err != nil {
		h.respondError(c, "ReleaseEscrowHandler", err, map[string]any{"escrow_id": escrowID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewEscrowResponse(escrow), "escrow released successfully")
	helpers.LogSuccess("ReleaseEscrowHandler", "escrow released successfully", map[string]any{
		"escrow_id": escrow.EscrowID,
		"payee_id":  escrow.PayeeID,
		"amount":    escrow.Amount,
	})
}

// RefundEscrowHandler handles PUT /escrows/:escrow_id/refund
func (h *AuctionHandler) RefundEscrowHandler(c *gin.Context) {
	escrowID := c.Param("escrow_id")

	escrow, err := h.settlement.Refund(escrowID)
	if err != nil {
		h.respondError(c, "RefundEscrowHandler", err, map[string]any{"escrow_id": escrowID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewEscrowResponse(escrow), "escrow refunded successfully")
	helpers.LogSuccess("RefundEscrowHandler", "escrow refunded successfully", map[string]any{
		"escrow_id": escrow.EscrowID,
		"payer_id":  escrow.PayerID,
		"amount":    escrow.Amount,
	})
}

// GetHeldEscrowsHandler handles GET /escrows/held
func (h *AuctionHandler) GetHeldEscrowsHandler(c *gin.Context) {
	held, err := h.settlement.HeldEscrows()
	if err != nil {
		h.respondError(c, "GetHeldEscrowsHandler", err, nil)
		return
	}

	resp := make([]helpers.EscrowResponse, 0, len(held))
	for _, e := range held {
		resp = append(resp, helpers.NewEscrowResponse(e))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "held escrows retrieved successfully")
}

// respondError maps a service error onto the wire and logs the full detail
func (h *AuctionHandler) respondError(c *gin.Context, handlerName string, err error, ctx map[string]any) {
	status, message := helpers.MapErrorToHTTP(err)

	if ctx == nil {
		ctx = map[string]any{}
	}
	ctx["handler"] = handlerName
	ctx["error"] = err.Error()
	utils.Error(handlerName+": request failed", ctx)

	if status == http.StatusInternalServerError {
		// Never leak internal faults to the caller.
		utils.JSONError(c, status, fmt.Errorf("%s", message), message)
		return
	}
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
}
