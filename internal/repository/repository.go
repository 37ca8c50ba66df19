package repository

import (
	"auction-core/internal/auctionerrors"
	model "auction-core/internal/models"
	"fmt"
	"sync"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// AuctionStore defines the persistence interface for the settlement core.
// All services go through this interface so a durable store can be swapped in
// without touching the state machine or scheduler.
type AuctionStore interface {
	CreateAuction(auction model.Auction) error
	GetAuction(auctionID string) (model.Auction, error)
	UpdateAuction(auction model.Auction) error
	ListOpenAuctions() ([]model.Auction, error)

	// AppendBid stores the bid and the auction's updated high-bid fields in
	// one critical section, so no reader observes the bid without the new
	// high bid or vice versa.
	AppendBid(bid model.Bid, auction model.Auction) error
	GetBidsByAuction(auctionID string) ([]model.Bid, error)

	CreateEscrow(escrow model.EscrowAccount) error
	GetEscrow(escrowID string) (model.EscrowAccount, error)
	UpdateEscrow(escrow model.EscrowAccount) error
	ListEscrowsByState(state model.EscrowState) ([]model.EscrowAccount, error)

	CreateOrder(order model.Order) error
	GetOrder(orderID string) (model.Order, error)
	UpdateOrder(order model.Order) error
}

// MemoryStore is a concurrency-safe in-memory implementation of AuctionStore
type MemoryStore struct {
	mu       sync.RWMutex
	auctions map[string]model.Auction
	bids     map[string][]model.Bid // key: auctionID -> accepted bids in sequence order
	escrows  map[string]model.EscrowAccount
	orders   map[string]model.Order
}

// NewMemoryStore creates a new in-memory store instance
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions: make(map[string]model.Auction),
		bids:     make(map[string][]model.Bid),
		escrows:  make(map[string]model.EscrowAccount),
		orders:   make(map[string]model.Order),
	}
}

// CreateAuction stores a new auction row
func (s *MemoryStore) CreateAuction(auction model.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("create auction %s: %w - id already exists", auction.AuctionID, auctionerrors.ErrInvalidAuction)
	}
	s.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns the auction row for the given id
func (s *MemoryStore) GetAuction(auctionID string) (model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return auction, nil
}

// UpdateAuction overwrites an existing auction row
func (s *MemoryStore) UpdateAuction(auction model.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[auction.AuctionID]; !ok {
		return fmt.Errorf("update auction %s: %w", auction.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	s.auctions[auction.AuctionID] = auction
	return nil
}

// ListOpenAuctions returns every auction still in the Open state. Used by the
// scheduler on startup to re-enqueue pending deadlines.
func (s *MemoryStore) ListOpenAuctions() ([]model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	open := make([]model.Auction, 0)
	for _, a := range s.auctions {
		if a.Status == model.AuctionOpen {
			open = append(open, a)
		}
	}
	return open, nil
}

// AppendBid records an accepted bid together with the auction's new high-bid
// fields under a single lock
func (s *MemoryStore) AppendBid(bid model.Bid, auction model.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[bid.AuctionID]; !ok {
		return fmt.Errorf("append bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	s.bids[bid.AuctionID] = append(s.bids[bid.AuctionID], bid)
	s.auctions[auction.AuctionID] = auction
	return nil
}

// GetBidsByAuction returns all accepted bids for an auction in sequence order
func (s *MemoryStore) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return append([]model.Bid(nil), s.bids[auctionID]...), nil
}

// CreateEscrow stores a new escrow row
func (s *MemoryStore) CreateEscrow(escrow model.EscrowAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.escrows[escrow.EscrowID]; ok {
		return fmt.Errorf("create escrow %s: %w - id already exists", escrow.EscrowID, auctionerrors.ErrInvalidPayment)
	}
	s.escrows[escrow.EscrowID] = escrow
	return nil
}

// GetEscrow returns the escrow row for the given id
func (s *MemoryStore) GetEscrow(escrowID string) (model.EscrowAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	escrow, ok := s.escrows[escrowID]
	if !ok {
		return model.EscrowAccount{}, fmt.Errorf("get escrow %s: %w", escrowID, auctionerrors.ErrEscrowNotFound)
	}
	return escrow, nil
}

// UpdateEscrow overwrites an existing escrow row
func (s *MemoryStore) UpdateEscrow(escrow model.EscrowAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.escrows[escrow.EscrowID]; !ok {
		return fmt.Errorf("update escrow %s: %w", escrow.EscrowID, auctionerrors.ErrEscrowNotFound)
	}
	s.escrows[escrow.EscrowID] = escrow
	return nil
}

// ListEscrowsByState returns all escrow rows currently in the given state
func (s *MemoryStore) ListEscrowsByState(state model.EscrowState) ([]model.EscrowAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]model.EscrowAccount, 0)
	for _, e := range s.escrows {
		if e.State == state {
			matches = append(matches, e)
		}
	}
	return matches, nil
}

// CreateOrder stores a new order row
func (s *MemoryStore) CreateOrder(order model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.OrderID]; ok {
		return fmt.Errorf("create order %s: %w - id already exists", order.OrderID, auctionerrors.ErrInvalidPayment)
	}
	s.orders[order.OrderID] = order
	return nil
}

// GetOrder returns the order row for the given id
func (s *MemoryStore) GetOrder(orderID string) (model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return model.Order{}, fmt.Errorf("get order %s: %w", orderID, auctionerrors.ErrOrderNotFound)
	}
	return order, nil
}

// UpdateOrder overwrites an existing order row
func (s *MemoryStore) UpdateOrder(order model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.OrderID]; !ok {
		return fmt.Errorf("update order %s: %w", order.OrderID, auctionerrors.ErrOrderNotFound)
	}
	s.orders[order.OrderID] = order
	return nil
}
