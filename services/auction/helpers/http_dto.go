package helpers

import "time"

// Request/Response DTOs
type PlaceBidRequest struct {
	AuctionID string  `json:"auction_id" binding:"required"`
	BidderID  string  `json:"bidder_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
}

type CreateAuctionRequest struct {
	ProductID     string    `json:"product_id" binding:"required"`
	SellerID      string    `json:"seller_id" binding:"required"`
	StartingPrice float64   `json:"starting_price" binding:"required,gt=0"`
	Deadline      time.Time `json:"deadline" binding:"required"`
}

type PayRequest struct {
	BuyerID   string  `json:"buyer_id" binding:"required"`
	SellerID  string  `json:"seller_id" binding:"required"`
	ProductID string  `json:"product_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
}

type BidResponse struct {
	BidID          string  `json:"bid_id"`
	AuctionID      string  `json:"auction_id"`
	BidderID       string  `json:"bidder_id"`
	Amount         float64 `json:"amount"`
	SequenceNumber int     `json:"sequence_number"`
	PlacedAt       string  `json:"placed_at"`
}

type AuctionResponse struct {
	AuctionID           string  `json:"auction_id"`
	ProductID           string  `json:"product_id"`
	SellerID            string  `json:"seller_id"`
	StartingPrice       float64 `json:"starting_price"`
	CurrentHighBid      float64 `json:"current_high_bid"`
	CurrentHighBidderID string  `json:"current_high_bidder_id"`
	BidCount            int     `json:"bid_count"`
	Deadline            string  `json:"deadline"`
	Status              string  `json:"status"`
	WinningBidID        string  `json:"winning_bid_id"`
}

type EscrowResponse struct {
	EscrowID  string  `json:"escrow_id"`
	AuctionID string  `json:"auction_id"`
	OrderID   string  `json:"order_id"`
	PayerID   string  `json:"payer_id"`
	PayeeID   string  `json:"payee_id"`
	Amount    float64 `json:"amount"`
	State     string  `json:"state"`
}

type OrderResponse struct {
	OrderID         string  `json:"order_id"`
	AuctionID       string  `json:"auction_id"`
	ProductID       string  `json:"product_id"`
	BuyerID         string  `json:"buyer_id"`
	SellerID        string  `json:"seller_id"`
	Amount          float64 `json:"amount"`
	EscrowAccountID string  `json:"escrow_account_id"`
	ShipmentStatus  string  `json:"shipment_status"`
}
