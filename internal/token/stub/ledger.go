// Package stub provides an in-memory token ledger for tests and local runs.
package stub

import (
	"context"
	"fmt"
	"sync"
)

// Ledger is an in-memory token ledger implementing token.BalanceOracle,
// token.TransferExecutor and token.MintExecutor.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]uint64
	shares   map[string]uint64

	// FailTransfers and FailMints make the corresponding call return an
	// error without touching balances. Used to exercise post-commit
	// executor failures.
	FailTransfers bool
	FailMints     bool
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[string]uint64),
		shares:   make(map[string]uint64),
	}
}

// SetBalance sets an account balance directly. Test setup helper.
func (l *Ledger) SetBalance(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = amount
}

// Balance returns the current balance of account. Unknown accounts are zero.
func (l *Ledger) Balance(_ context.Context, account string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

// Transfer moves amount from one account to another.
func (l *Ledger) Transfer(_ context.Context, from, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailTransfers {
		return fmt.Errorf("transfer %d from %s to %s: injected failure", amount, from, to)
	}
	if l.balances[from] < amount {
		return fmt.Errorf("transfer %d from %s: insufficient balance %d", amount, from, l.balances[from])
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// MintTo issues amount of shares to recipient.
func (l *Ledger) MintTo(_ context.Context, recipient string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailMints {
		return fmt.Errorf("mint %d to %s: injected failure", amount, recipient)
	}
	l.shares[recipient] += amount
	return nil
}

// ShareBalance returns the share balance minted to recipient.
func (l *Ledger) ShareBalance(recipient string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shares[recipient]
}
