package ledger

import (
	"auction-core/internal/auctionerrors"
	model "auction-core/internal/models"
	"fmt"
	"sync"
)

// CreditLedger holds simulated credit card balances, one account per
// marketplace user. Debit and credit are atomic per account: the
// check-then-decrement in Debit runs under the account's own lock, so two
// concurrent settlements can never both pass a stale balance check.
type CreditLedger struct {
	mu       sync.RWMutex
	accounts map[string]*account // key: owner user id
}

type account struct {
	mu   sync.Mutex
	card model.CreditCardAccount
}

// NewCreditLedger creates an empty ledger
func NewCreditLedger() *CreditLedger {
	return &CreditLedger{
		accounts: make(map[string]*account),
	}
}

// Register adds a card account for a user. Duplicate registration for the
// same owner is rejected.
func (l *CreditLedger) Register(card model.CreditCardAccount) error {
	if card.OwnerID == "" || card.Number == "" {
		return fmt.Errorf("register card: %w - missing owner or number", auctionerrors.ErrInvalidPayment)
	}
	if card.Balance < 0 {
		return fmt.Errorf("register card for %s: %w - negative opening balance", card.OwnerID, auctionerrors.ErrInvalidPayment)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[card.OwnerID]; ok {
		return fmt.Errorf("register card for %s: %w - account already exists", card.OwnerID, auctionerrors.ErrInvalidPayment)
	}
	l.accounts[card.OwnerID] = &account{card: card}
	return nil
}

// Debit atomically withdraws amount from the owner's account. Fails with
// ErrInsufficientFunds when the balance would go negative.
func (l *CreditLedger) Debit(ownerID string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("debit %s: %w - non-positive amount", ownerID, auctionerrors.ErrInvalidPayment)
	}

	acc, err := l.account(ownerID)
	if err != nil {
		return err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if acc.card.Balance < amount {
		return fmt.Errorf("debit %s by %.2f: %w - balance is %.2f", ownerID, amount, auctionerrors.ErrInsufficientFunds, acc.card.Balance)
	}
	acc.card.Balance -= amount
	return nil
}

// Credit atomically deposits amount into the owner's account
func (l *CreditLedger) Credit(ownerID string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("credit %s: %w - non-positive amount", ownerID, auctionerrors.ErrInvalidPayment)
	}

	acc, err := l.account(ownerID)
	if err != nil {
		return err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	acc.card.Balance += amount
	return nil
}

// Balance returns the current balance of the owner's account
func (l *CreditLedger) Balance(ownerID string) (float64, error) {
	acc, err := l.account(ownerID)
	if err != nil {
		return 0, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.card.Balance, nil
}

// TotalBalance returns the sum of all account balances. Together with the
// sum of held escrow amounts this is invariant across settlements.
func (l *CreditLedger) TotalBalance() float64 {
	l.mu.RLock()
	accounts := make([]*account, 0, len(l.accounts))
	for _, acc := range l.accounts {
		accounts = append(accounts, acc)
	}
	l.mu.RUnlock()

	var total float64
	for _, acc := range accounts {
		acc.mu.Lock()
		total += acc.card.Balance
		acc.mu.Unlock()
	}
	return total
}

func (l *CreditLedger) account(ownerID string) (*account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.accounts[ownerID]
	if !ok {
		return nil, fmt.Errorf("account for %s: %w", ownerID, auctionerrors.ErrAccountNotFound)
	}
	return acc, nil
}
