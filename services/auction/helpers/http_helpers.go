package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"auction-core/internal/auctionerrors"
	model "auction-core/internal/models"
	"auction-core/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message.
// Internal faults come back as a generic message; the handler logs the detail.
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrEscrowNotFound):
		return http.StatusNotFound, "escrow account not found"
	case errors.Is(err, auctionerrors.ErrAccountNotFound):
		return http.StatusNotFound, "credit card account not found"
	case errors.Is(err, auctionerrors.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, auctionerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, auctionerrors.ErrInvalidPayment):
		return http.StatusBadRequest, "invalid payment details"
	case errors.Is(err, auctionerrors.ErrStaleBid):
		return http.StatusConflict, "bid must exceed current high bid"
	case errors.Is(err, auctionerrors.ErrAuctionNotOpen):
		return http.StatusConflict, "auction is not open for bidding"
	case errors.Is(err, auctionerrors.ErrSelfBid):
		return http.StatusConflict, "seller cannot bid on own auction"
	case errors.Is(err, auctionerrors.ErrInvalidTransition):
		return http.StatusConflict, "invalid auction state transition"
	case errors.Is(err, auctionerrors.ErrAlreadyResolved):
		return http.StatusConflict, "escrow already released or refunded"
	case errors.Is(err, auctionerrors.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient funds"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// NewBidResponse converts a bid model into its transport shape
func NewBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:          bid.BidID,
		AuctionID:      bid.AuctionID,
		BidderID:       bid.BidderID,
		Amount:         bid.Amount,
		SequenceNumber: bid.SequenceNumber,
		PlacedAt:       bid.PlacedAt.UTC().Format(time.RFC3339),
	}
}

// NewAuctionResponse converts an auction model into its transport shape
func NewAuctionResponse(a model.Auction) AuctionResponse {
	return AuctionResponse{
		AuctionID:           a.AuctionID,
		ProductID:           a.ProductID,
		SellerID:            a.SellerID,
		StartingPrice:       a.StartingPrice,
		CurrentHighBid:      a.CurrentHighBid,
		CurrentHighBidderID: a.CurrentHighBidderID,
		BidCount:            a.BidCount,
		Deadline:            a.Deadline.UTC().Format(time.RFC3339),
		Status:              string(a.Status),
		WinningBidID:        a.WinningBidID,
	}
}

// NewEscrowResponse converts an escrow model into its transport shape
func NewEscrowResponse(e model.EscrowAccount) EscrowResponse {
	return EscrowResponse{
		EscrowID:  e.EscrowID,
		AuctionID: e.AuctionID,
		OrderID:   e.OrderID,
		PayerID:   e.PayerID,
		PayeeID:   e.PayeeID,
		Amount:    e.Amount,
		State:     string(e.State),
	}
}

// NewOrderResponse converts an order model into its transport shape
func NewOrderResponse(o model.Order) OrderResponse {
	return OrderResponse{
		OrderID:         o.OrderID,
		AuctionID:       o.AuctionID,
		ProductID:       o.ProductID,
		BuyerID:         o.BuyerID,
		SellerID:        o.SellerID,
		Amount:          o.Amount,
		EscrowAccountID: o.EscrowAccountID,
		ShipmentStatus:  string(o.ShipmentStatus),
	}
}
