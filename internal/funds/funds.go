package funds

//go:generate mockgen -source=funds.go -destination=funds_mock.go -package=funds

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gookie-auctions/internal/biddingerrors"
	"gookie-auctions/utils"

	"github.com/shopspring/decimal"
)

// Confirmation is the receipt of a settled transfer
type Confirmation struct {
	TransferID  string
	From        string
	To          string
	Amount      decimal.Decimal
	ConfirmedAt time.Time
}

// TransferService moves bid funds from a bidder to the escrow wallet.
// Transfer returns biddingerrors.ErrTransferFailed when nothing moved and
// biddingerrors.ErrTransferUnknown when the outcome could not be confirmed.
type TransferService interface {
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (Confirmation, error)
}

// BalanceQuery reports a wallet's available funds. Results are hints only.
type BalanceQuery interface {
	GetBalance(ctx context.Context, wallet string) (decimal.Decimal, error)
}

// MemoryLedger is an in-process wallet ledger implementing both
// TransferService and BalanceQuery. Transfers are all-or-nothing.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	history  []Confirmation
	now      func() time.Time
}

// NewMemoryLedger creates an empty ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]decimal.Decimal),
		now:      time.Now,
	}
}

// Deposit credits a wallet
func (l *MemoryLedger) Deposit(wallet string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[wallet] = l.balances[wallet].Add(amount)
}

// GetBalance returns a wallet's balance. Unknown wallets hold zero.
func (l *MemoryLedger) GetBalance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("funds: get balance for %s: %w", wallet, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[wallet], nil
}

// Transfer moves amount from one wallet to another
func (l *MemoryLedger) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return Confirmation{}, fmt.Errorf("funds: transfer from %s: %w: %v", from, biddingerrors.ErrTransferFailed, err)
	}
	if !amount.IsPositive() {
		return Confirmation{}, fmt.Errorf("funds: transfer from %s: %w - non-positive amount %s", from, biddingerrors.ErrTransferFailed, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from].LessThan(amount) {
		return Confirmation{}, fmt.Errorf("funds: transfer from %s: %w - balance %s below %s",
			from, biddingerrors.ErrTransferFailed, l.balances[from], amount)
	}

	l.balances[from] = l.balances[from].Sub(amount)
	l.balances[to] = l.balances[to].Add(amount)

	confirmation := Confirmation{
		TransferID:  utils.GenerateID(),
		From:        from,
		To:          to,
		Amount:      amount,
		ConfirmedAt: l.now().UTC(),
	}
	l.history = append(l.history, confirmation)
	return confirmation, nil
}

// History returns all confirmed transfers, oldest first
func (l *MemoryLedger) History() []Confirmation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Confirmation(nil), l.history...)
}
