package auction

import (
	"auction-core/internal/auctionerrors"
	"auction-core/internal/keyedlock"
	"auction-core/internal/models"
	"auction-core/internal/repository"
	"auction-core/utils"
	"fmt"
	"time"
)

// Service owns the per-auction lifecycle: bid admission against the live
// high bid and the Open -> Closing -> Closed/Cancelled transitions. Every
// mutation of one auction runs inside that auction's keyed lock, so the
// read-compare-write on the high bid and the close transition never
// interleave destructively.
type Service struct {
	store    repository.AuctionStore
	locks    *keyedlock.Table
	now      func() time.Time
	schedule func(auctionID string, deadline time.Time)
}

// NewService creates a new auction Service instance
func NewService(store repository.AuctionStore, locks *keyedlock.Table) *Service {
	return &Service{
		store: store,
		locks: locks,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// OnSchedule registers the callback invoked with each new auction's deadline,
// normally the scheduler's Add.
func (s *Service) OnSchedule(fn func(auctionID string, deadline time.Time)) {
	s.schedule = fn
}

// SetNow overrides the time source. Intended for tests only.
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

// CreateAuction lists a new auction-type product and registers its deadline
// with the scheduler
func (s *Service) CreateAuction(productID, sellerID string, startingPrice float64, deadline time.Time) (models.Auction, error) {
	if productID == "" || sellerID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing productID or sellerID", auctionerrors.ErrInvalidAuction)
	}
	if startingPrice <= 0 {
		return models.Auction{}, fmt.Errorf("service: %w - non-positive starting price", auctionerrors.ErrInvalidAuction)
	}
	if !deadline.After(s.now()) {
		return models.Auction{}, fmt.Errorf("service: %w - deadline not in the future", auctionerrors.ErrInvalidAuction)
	}

	auction := models.Auction{
		AuctionID:     utils.GenerateID(),
		ProductID:     productID,
		SellerID:      sellerID,
		StartingPrice: startingPrice,
		Deadline:      deadline.UTC(),
		Status:        models.AuctionOpen,
		CreatedAt:     s.now(),
	}

	if err := s.store.CreateAuction(auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction for product %s: %w", productID, err)
	}

	if s.schedule != nil {
		s.schedule(auction.AuctionID, auction.Deadline)
	}

	return auction, nil
}

// PlaceBid validates and records a bid against the auction's current high
// bid. The whole admission runs under the auction's lock: a bid is accepted
// only if the auction is still Open, the deadline has not passed, the bidder
// is not the seller, and the amount strictly exceeds the current high bid
// (or meets the starting price when no bids exist yet).
func (s *Service) PlaceBid(auctionID, bidderID string, amount float64) (models.Bid, error) {
	if auctionID == "" || bidderID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidBid)
	}
	if amount <= 0 {
		return models.Bid{}, fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}

	s.locks.Lock(auctionID)
	defer s.locks.Unlock(auctionID)

	auction, err := s.store.GetAuction(auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}

	// The deadline check lives inside the critical section: a bid racing the
	// scheduler's close loses even if it arrived first.
	if auction.Status != models.AuctionOpen || !s.now().Before(auction.Deadline) {
		return models.Bid{}, fmt.Errorf("service: auction %s: %w", auctionID, auctionerrors.ErrAuctionNotOpen)
	}
	if bidderID == auction.SellerID {
		return models.Bid{}, fmt.Errorf("service: auction %s: %w", auctionID, auctionerrors.ErrSelfBid)
	}
	if amount < auction.StartingPrice {
		return models.Bid{}, fmt.Errorf("service: auction %s: %w - below starting price %.2f", auctionID, auctionerrors.ErrStaleBid, auction.StartingPrice)
	}
	if auction.BidCount > 0 && amount <= auction.CurrentHighBid {
		return models.Bid{}, fmt.Errorf("service: auction %s: %w - current high bid is %.2f", auctionID, auctionerrors.ErrStaleBid, auction.CurrentHighBid)
	}

	bid := models.Bid{
		BidID:          utils.GenerateID(),
		AuctionID:      auctionID,
		BidderID:       bidderID,
		Amount:         amount,
		SequenceNumber: auction.BidCount + 1,
		PlacedAt:       s.now(),
	}

	auction.CurrentHighBid = bid.Amount
	auction.CurrentHighBidderID = bid.BidderID
	auction.BidCount = bid.SequenceNumber

	if err := s.store.AppendBid(bid, auction); err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to record bid on auction %s by %s: %w", auctionID, bidderID, err)
	}

	return bid, nil
}

// Close moves an Open auction to Closing so settlement can run. The
// transition happens at most once: repeat calls observe Closing, Closed or
// Cancelled and return the auction unchanged. An early close of an auction
// that never received a bid is equivalent to cancellation.
func (s *Service) Close(auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}

	s.locks.Lock(auctionID)
	defer s.locks.Unlock(auctionID)

	auction, err := s.store.GetAuction(auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}

	if auction.Status != models.AuctionOpen {
		// Already Closing, Closed or Cancelled: second fire is a no-op.
		return auction, nil
	}

	if auction.BidCount == 0 && s.now().Before(auction.Deadline) {
		auction.Status = models.AuctionCancelled
	} else {
		auction.Status = models.AuctionClosing
	}

	if err := s.store.UpdateAuction(auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to close auction %s: %w", auctionID, err)
	}

	utils.Info("auction left open state", map[string]any{
		"auction_id": auctionID,
		"status":     string(auction.Status),
		"bid_count":  auction.BidCount,
	})

	return auction, nil
}

// Cancel moves an Open auction to Cancelled. Any other starting state fails
// with ErrInvalidTransition.
func (s *Service) Cancel(auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}

	s.locks.Lock(auctionID)
	defer s.locks.Unlock(auctionID)

	auction, err := s.store.GetAuction(auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}

	if auction.Status != models.AuctionOpen {
		return models.Auction{}, fmt.Errorf("service: cancel auction %s in state %s: %w", auctionID, auction.Status, auctionerrors.ErrInvalidTransition)
	}

	auction.Status = models.AuctionCancelled
	if err := s.store.UpdateAuction(auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to cancel auction %s: %w", auctionID, err)
	}

	return auction, nil
}

// GetAuction returns a snapshot of the auction
func (s *Service) GetAuction(auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}

	auction, err := s.store.GetAuction(auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// BidsForAuction returns the accepted bid history in sequence order
func (s *Service) BidsForAuction(auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.store.GetBidsByAuction(auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}
