package settlement

import (
	"auction-core/internal/auctionerrors"
	auction "auction-core/internal/auctionService"
	"auction-core/internal/keyedlock"
	"auction-core/internal/ledger"
	"auction-core/internal/models"
	"auction-core/internal/repository"
	"auction-core/utils"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Service orchestrates the money side of the auction lifecycle: winner
// resolution and escrow capture when an auction closes, plus the externally
// triggered release/refund of held escrow. It shares the per-auction lock
// table with the auction Service, so settlement never interleaves with bid
// admission or close on the same auction.
type Service struct {
	store    repository.AuctionStore
	ledger   *ledger.CreditLedger
	auctions *auction.Service
	locks    *keyedlock.Table
	now      func() time.Time
}

// NewService creates a new settlement Service instance
func NewService(store repository.AuctionStore, creditLedger *ledger.CreditLedger, auctions *auction.Service, locks *keyedlock.Table) *Service {
	return &Service{
		store:    store,
		ledger:   creditLedger,
		auctions: auctions,
		locks:    locks,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the time source. Intended for tests only.
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

// CloseAndSettle drives an auction from Open through Closing to its terminal
// state. This is the path taken by the scheduler at deadline and by the admin
// early-close endpoint; both are safe to invoke repeatedly.
func (s *Service) CloseAndSettle(auctionID string) error {
	closed, err := s.auctions.Close(auctionID)
	if err != nil {
		return err
	}
	if closed.Status != models.AuctionClosing {
		// Cancelled on early close with no bids, or already terminal.
		return nil
	}

	_, err = s.Settle(auctionID)
	return err
}

// Settle resolves the winner of an auction in Closing state, captures escrow
// and creates the order. Bids are walked in descending amount (ties broken by
// earliest sequence number); a bidder whose debit fails with insufficient
// funds is skipped in favor of the next one. When no bidder can fund, the
// auction closes unsold with no escrow and no order. Settle is idempotent: a
// re-run against an already Closed or Cancelled auction is a no-op.
func (s *Service) Settle(auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("settlement: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}

	s.locks.Lock(auctionID)
	defer s.locks.Unlock(auctionID)

	a, err := s.store.GetAuction(auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("settlement: failed to load auction %s: %w", auctionID, err)
	}

	switch a.Status {
	case models.AuctionClosed, models.AuctionCancelled:
		return a, nil
	case models.AuctionClosing:
		// proceed
	default:
		return models.Auction{}, fmt.Errorf("settlement: settle auction %s in state %s: %w", auctionID, a.Status, auctionerrors.ErrInvalidTransition)
	}

	bids, err := s.store.GetBidsByAuction(auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("settlement: failed to load bids for auction %s: %w", auctionID, err)
	}

	sort.Slice(bids, func(i, j int) bool {
		if bids[i].Amount != bids[j].Amount {
			return bids[i].Amount > bids[j].Amount
		}
		return bids[i].SequenceNumber < bids[j].SequenceNumber
	})

	for _, bid := range bids {
		debitErr := s.ledger.Debit(bid.BidderID, bid.Amount)
		if errors.Is(debitErr, auctionerrors.ErrInsufficientFunds) || errors.Is(debitErr, auctionerrors.ErrAccountNotFound) {
			utils.Warn("settlement: bidder cannot fund bid, falling back", map[string]any{
				"auction_id": auctionID,
				"bid_id":     bid.BidID,
				"bidder_id":  bid.BidderID,
				"amount":     bid.Amount,
				"reason":     debitErr.Error(),
			})
			continue
		}
		if debitErr != nil {
			// Auction stays Closing so settlement can be retried safely.
			return models.Auction{}, fmt.Errorf("settlement: debit failed for auction %s: %w", auctionID, debitErr)
		}

		won, err := s.captureWin(a, bid)
		if err != nil {
			// Undo the debit so no money is lost before surfacing the fault.
			if creditErr := s.ledger.Credit(bid.BidderID, bid.Amount); creditErr != nil {
				utils.Error("settlement: failed to reverse debit", map[string]any{
					"auction_id": auctionID,
					"bidder_id":  bid.BidderID,
					"amount":     bid.Amount,
					"error":      creditErr.Error(),
				})
			}
			return models.Auction{}, err
		}
		return won, nil
	}

	// No bids, or every bidder failed funding: close unsold.
	a.Status = models.AuctionClosed
	a.WinningBidID = ""
	if err := s.store.UpdateAuction(a); err != nil {
		return models.Auction{}, fmt.Errorf("settlement: failed to close unsold auction %s: %w", auctionID, err)
	}

	utils.Info("auction closed unsold", map[string]any{
		"auction_id": auctionID,
		"bid_count":  a.BidCount,
	})

	return a, nil
}

// captureWin creates the escrow hold and order for the funded winning bid and
// moves the auction to Closed. The winner's debit has already succeeded.
func (s *Service) captureWin(a models.Auction, bid models.Bid) (models.Auction, error) {
	now := s.now()

	escrow := models.EscrowAccount{
		EscrowID:  utils.GenerateID(),
		AuctionID: a.AuctionID,
		PayerID:   bid.BidderID,
		PayeeID:   a.SellerID,
		Amount:    bid.Amount,
		State:     models.EscrowHeld,
		CreatedAt: now,
	}

	order := models.Order{
		OrderID:         utils.GenerateID(),
		AuctionID:       a.AuctionID,
		WinningBidID:    bid.BidID,
		ProductID:       a.ProductID,
		BuyerID:         bid.BidderID,
		SellerID:        a.SellerID,
		Amount:          bid.Amount,
		EscrowAccountID: escrow.EscrowID,
		ShipmentStatus:  models.ShipmentPending,
		CreatedAt:       now,
	}
	escrow.OrderID = order.OrderID

	if err := s.store.CreateEscrow(escrow); err != nil {
		return models.Auction{}, fmt.Errorf("settlement: failed to create escrow for auction %s: %w", a.AuctionID, err)
	}
	if err := s.store.CreateOrder(order); err != nil {
		return models.Auction{}, fmt.Errorf("settlement: failed to create order for auction %s: %w", a.AuctionID, err)
	}

	a.Status = models.AuctionClosed
	a.WinningBidID = bid.BidID
	a.CurrentHighBid = bid.Amount
	a.CurrentHighBidderID = bid.BidderID
	if err := s.store.UpdateAuction(a); err != nil {
		return models.Auction{}, fmt.Errorf("settlement: failed to finalize auction %s: %w", a.AuctionID, err)
	}

	utils.Info("auction settled", map[string]any{
		"auction_id": a.AuctionID,
		"bid_id":     bid.BidID,
		"winner_id":  bid.BidderID,
		"amount":     bid.Amount,
		"escrow_id":  escrow.EscrowID,
		"order_id":   order.OrderID,
	})

	return a, nil
}

// Pay creates a direct-purchase escrow hold: the buyer's card is debited and
// a Held escrow plus a pending order are created. This is the non-auction buy
// flow; release/refund then work exactly as for auction escrow.
func (s *Service) Pay(buyerID, sellerID, productID string, amount float64) (models.Order, error) {
	if buyerID == "" || sellerID == "" || productID == "" {
		return models.Order{}, fmt.Errorf("settlement: %w - missing buyer, seller or product", auctionerrors.ErrInvalidPayment)
	}
	if amount <= 0 {
		return models.Order{}, fmt.Errorf("settlement: %w - non-positive amount", auctionerrors.ErrInvalidPayment)
	}
	if buyerID == sellerID {
		return models.Order{}, fmt.Errorf("settlement: %w - buyer and seller are the same user", auctionerrors.ErrInvalidPayment)
	}

	if err := s.ledger.Debit(buyerID, amount); err != nil {
		return models.Order{}, fmt.Errorf("settlement: payment debit for %s failed: %w", buyerID, err)
	}

	now := s.now()
	escrow := models.EscrowAccount{
		EscrowID:  utils.GenerateID(),
		PayerID:   buyerID,
		PayeeID:   sellerID,
		Amount:    amount,
		State:     models.EscrowHeld,
		CreatedAt: now,
	}
	order := models.Order{
		OrderID:         utils.GenerateID(),
		ProductID:       productID,
		BuyerID:         buyerID,
		SellerID:        sellerID,
		Amount:          amount,
		EscrowAccountID: escrow.EscrowID,
		ShipmentStatus:  models.ShipmentPending,
		CreatedAt:       now,
	}
	escrow.OrderID = order.OrderID

	if err := s.store.CreateEscrow(escrow); err != nil {
		s.reverseDebit(buyerID, amount)
		return models.Order{}, fmt.Errorf("settlement: failed to create payment escrow: %w", err)
	}
	if err := s.store.CreateOrder(order); err != nil {
		s.reverseDebit(buyerID, amount)
		return models.Order{}, fmt.Errorf("settlement: failed to create payment order: %w", err)
	}

	return order, nil
}

// Release credits the seller with the held amount after delivery is
// confirmed. Valid only while the escrow is Held; a second release or a
// release after refund fails with ErrAlreadyResolved.
func (s *Service) Release(escrowID string) (models.EscrowAccount, error) {
	return s.resolve(escrowID, models.EscrowReleased)
}

// Refund credits the payer back with the held amount when the order is
// cancelled before delivery. Valid only while the escrow is Held.
func (s *Service) Refund(escrowID string) (models.EscrowAccount, error) {
	return s.resolve(escrowID, models.EscrowRefunded)
}

// resolve performs the single Held -> Released/Refunded transition. It runs
// under the owning auction's lock (or order's, for direct purchases), which
// makes release and refund mutually exclusive terminal operations.
func (s *Service) resolve(escrowID string, target models.EscrowState) (models.EscrowAccount, error) {
	if escrowID == "" {
		return models.EscrowAccount{}, fmt.Errorf("settlement: %w - empty escrow ID", auctionerrors.ErrInvalidPayment)
	}

	escrow, err := s.store.GetEscrow(escrowID)
	if err != nil {
		return models.EscrowAccount{}, fmt.Errorf("settlement: failed to load escrow %s: %w", escrowID, err)
	}

	key := escrow.AuctionID
	if key == "" {
		key = escrow.OrderID
	}
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	// Reload under the lock; the first resolver wins.
	escrow, err = s.store.GetEscrow(escrowID)
	if err != nil {
		return models.EscrowAccount{}, fmt.Errorf("settlement: failed to load escrow %s: %w", escrowID, err)
	}
	if escrow.State != models.EscrowHeld {
		return models.EscrowAccount{}, fmt.Errorf("settlement: escrow %s in state %s: %w", escrowID, escrow.State, auctionerrors.ErrAlreadyResolved)
	}

	recipient := escrow.PayeeID
	shipment := models.ShipmentDelivered
	if target == models.EscrowRefunded {
		recipient = escrow.PayerID
		shipment = models.ShipmentCancelled
	}

	if err := s.ledger.Credit(recipient, escrow.Amount); err != nil {
		// Escrow stays Held so the operation can be retried.
		return models.EscrowAccount{}, fmt.Errorf("settlement: credit to %s failed for escrow %s: %w", recipient, escrowID, err)
	}

	escrow.State = target
	escrow.ResolvedAt = s.now()
	if err := s.store.UpdateEscrow(escrow); err != nil {
		s.reverseCredit(recipient, escrow.Amount)
		return models.EscrowAccount{}, fmt.Errorf("settlement: failed to update escrow %s: %w", escrowID, err)
	}

	if escrow.OrderID != "" {
		if order, err := s.store.GetOrder(escrow.OrderID); err == nil {
			order.ShipmentStatus = shipment
			if err := s.store.UpdateOrder(order); err != nil {
				utils.Warn("settlement: failed to update order shipment status", map[string]any{
					"order_id": order.OrderID,
					"error":    err.Error(),
				})
			}
		}
	}

	utils.Info("escrow resolved", map[string]any{
		"escrow_id": escrow.EscrowID,
		"state":     string(escrow.State),
		"recipient": recipient,
		"amount":    escrow.Amount,
	})

	return escrow, nil
}

// HeldEscrows returns every escrow account still awaiting release or refund
func (s *Service) HeldEscrows() ([]models.EscrowAccount, error) {
	held, err := s.store.ListEscrowsByState(models.EscrowHeld)
	if err != nil {
		return nil, fmt.Errorf("settlement: failed to list held escrows: %w", err)
	}
	return held, nil
}

func (s *Service) reverseDebit(ownerID string, amount float64) {
	if err := s.ledger.Credit(ownerID, amount); err != nil {
		utils.Error("settlement: failed to reverse debit", map[string]any{
			"owner_id": ownerID,
			"amount":   amount,
			"error":    err.Error(),
		})
	}
}

func (s *Service) reverseCredit(ownerID string, amount float64) {
	if err := s.ledger.Debit(ownerID, amount); err != nil {
		utils.Error("settlement: failed to reverse credit", map[string]any{
			"owner_id": ownerID,
			"amount":   amount,
			"error":    err.Error(),
		})
	}
}
