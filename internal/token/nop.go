package token

import "context"

// NopExecutor acknowledges transfers and mints without moving anything.
//
// Deployments where transaction signing and submission happen out of
// process use it so the daemon only keeps the accounting ledger; wiring a
// balance-tracking executor there would fail every post-commit call.
type NopExecutor struct{}

var (
	_ TransferExecutor = NopExecutor{}
	_ MintExecutor     = NopExecutor{}
)

// Transfer accepts the request and does nothing.
func (NopExecutor) Transfer(context.Context, string, string, uint64) error { return nil }

// MintTo accepts the request and does nothing.
func (NopExecutor) MintTo(context.Context, string, uint64) error { return nil }
