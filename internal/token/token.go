// Package token defines the contracts with the external token ledger.
//
// The vault engine never moves value itself: balances, transfers and share
// issuance are supplied by collaborators behind these interfaces. The engine
// commits its own state before invoking them; a failure after that point
// leaves the ledger and the external world diverged, and no reconciliation
// is attempted here.
package token

import "context"

// BalanceOracle reports the assets currently on hand in an account.
// The vault treats this as an authoritative external fact.
type BalanceOracle interface {
	Balance(ctx context.Context, account string) (uint64, error)
}

// TransferExecutor moves amount from one account to another.
type TransferExecutor interface {
	Transfer(ctx context.Context, from, to string, amount uint64) error
}

// MintExecutor issues amount of the claim token to recipient.
type MintExecutor interface {
	MintTo(ctx context.Context, recipient string, amount uint64) error
}
