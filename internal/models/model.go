package models

import "time"

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

const (
	AuctionOpen      AuctionStatus = "open"
	AuctionClosing   AuctionStatus = "closing"
	AuctionClosed    AuctionStatus = "closed"
	AuctionCancelled AuctionStatus = "cancelled"
)

// EscrowState is the lifecycle state of an escrow hold.
type EscrowState string

const (
	EscrowHeld     EscrowState = "held"
	EscrowReleased EscrowState = "released"
	EscrowRefunded EscrowState = "refunded"
)

// ShipmentStatus tracks the order after settlement.
type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "pending"
	ShipmentShipped   ShipmentStatus = "shipped"
	ShipmentDelivered ShipmentStatus = "delivered"
	ShipmentCancelled ShipmentStatus = "cancelled"
)

// Auction represents a timed listing accepting bids until its deadline.
// CurrentHighBid is zero until the first bid is accepted; WinningBidID is
// set only once the auction closes with a funded winner.
type Auction struct {
	AuctionID           string        `json:"auction_id"`
	ProductID           string        `json:"product_id"`
	SellerID            string        `json:"seller_id"`
	StartingPrice       float64       `json:"starting_price"`
	CurrentHighBid      float64       `json:"current_high_bid"`
	CurrentHighBidderID string        `json:"current_high_bidder_id"`
	BidCount            int           `json:"bid_count"`
	Deadline            time.Time     `json:"deadline"`
	Status              AuctionStatus `json:"status"`
	WinningBidID        string        `json:"winning_bid_id"`
	CreatedAt           time.Time     `json:"created_at"`
}

// Bid represents an accepted bid on an auction. SequenceNumber is monotonic
// per auction and assigned at acceptance time.
type Bid struct {
	BidID          string    `json:"bid_id"`
	AuctionID      string    `json:"auction_id"`
	BidderID       string    `json:"bidder_id"`
	Amount         float64   `json:"amount"`
	SequenceNumber int       `json:"sequence_number"`
	PlacedAt       time.Time `json:"placed_at"`
}

// EscrowAccount holds funds debited from the payer pending a release (to the
// payee) or a refund (back to the payer). ResolvedAt is zero while Held.
type EscrowAccount struct {
	EscrowID   string      `json:"escrow_id"`
	AuctionID  string      `json:"auction_id"`
	OrderID    string      `json:"order_id"`
	PayerID    string      `json:"payer_id"`
	PayeeID    string      `json:"payee_id"`
	Amount     float64     `json:"amount"`
	State      EscrowState `json:"state"`
	CreatedAt  time.Time   `json:"created_at"`
	ResolvedAt time.Time   `json:"resolved_at"`
}

// CreditCardAccount is a simulated ledger row, one per marketplace user.
type CreditCardAccount struct {
	Number  string  `json:"number"`
	OwnerID string  `json:"owner_id"`
	Balance float64 `json:"balance"`
	Expiry  string  `json:"expiry"`
}

// Order is produced by settlement (auction win or direct purchase) and
// continues its life in the shipment subsystem.
type Order struct {
	OrderID         string         `json:"order_id"`
	AuctionID       string         `json:"auction_id"`
	WinningBidID    string         `json:"winning_bid_id"`
	ProductID       string         `json:"product_id"`
	BuyerID         string         `json:"buyer_id"`
	SellerID        string         `json:"seller_id"`
	Amount          float64        `json:"amount"`
	EscrowAccountID string         `json:"escrow_account_id"`
	ShipmentStatus  ShipmentStatus `json:"shipment_status"`
	CreatedAt       time.Time      `json:"created_at"`
}
