// Package vault implements the vault accounting ledger and the investment
// authorization registry.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"tokenized-vault/internal/domain"
	"tokenized-vault/internal/observability"
	"tokenized-vault/internal/pubkey"
	"tokenized-vault/internal/storage"
	"tokenized-vault/internal/token"
)

// EventSink receives committed vault events. Publish must not block the
// calling operation; sinks handle their own delivery failures.
type EventSink interface {
	Publish(e domain.Event)
}

// Service executes vault operations against persisted state.
//
// Every state-mutating operation takes the vault's lock for its whole
// duration, validates, commits internal state, and only then invokes the
// external executors. An executor failure after commit leaves the ledger
// and the external world diverged; the service logs and counts it but has
// no compensating transaction.
type Service struct {
	vaults     storage.VaultStateStore
	registries storage.RegistryStore
	oracle     token.BalanceOracle
	transfers  token.TransferExecutor
	minter     token.MintExecutor

	sinks   []EventSink
	metrics *observability.Metrics
	logger  *log.Logger
	now     func() int64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithEventSink adds a sink for committed events.
func WithEventSink(sink EventSink) Option {
	return func(s *Service) {
		s.sinks = append(s.sinks, sink)
	}
}

// WithMetrics attaches operation metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock overrides the millisecond timestamp source.
func WithClock(now func() int64) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a vault service.
func NewService(
	vaults storage.VaultStateStore,
	registries storage.RegistryStore,
	oracle token.BalanceOracle,
	transfers token.TransferExecutor,
	minter token.MintExecutor,
	opts ...Option,
) *Service {
	s := &Service{
		vaults:     vaults,
		registries: registries,
		oracle:     oracle,
		transfers:  transfers,
		minter:     minter,
		logger:     log.Default(),
		now:        func() int64 { return time.Now().UnixMilli() },
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockVault serializes access to one vault's state. Independent vaults
// proceed in parallel.
func (s *Service) lockVault(vaultID string) func() {
	s.mu.Lock()
	l, ok := s.locks[vaultID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[vaultID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Service) publish(e domain.Event) {
	for _, sink := range s.sinks {
		sink.Publish(e)
	}
}

// Initialize creates a new vault for an asset mint, with zero totals and an
// empty protocol registry. The vault id, share mint and vault token account
// are derived deterministically from the asset mint.
func (s *Service) Initialize(ctx context.Context, authority, assetMint string) (*domain.VaultState, error) {
	if err := pubkey.Validate(authority); err != nil {
		return nil, fmt.Errorf("authority: %w: %v", ErrInvalidPubkey, err)
	}
	// The authority signs every privileged operation, so it must be a real
	// keypair address. Derived addresses have no private key.
	if !pubkey.IsOnCurve(authority) {
		return nil, fmt.Errorf("authority: %w: not a signing address", ErrInvalidPubkey)
	}
	if err := pubkey.Validate(assetMint); err != nil {
		return nil, fmt.Errorf("asset mint: %w: %v", ErrInvalidPubkey, err)
	}

	now := s.now()
	state := &domain.VaultState{
		VaultID:      pubkey.VaultID(assetMint),
		Authority:    authority,
		AssetMint:    assetMint,
		ShareMint:    pubkey.DeriveShareMint(assetMint),
		TokenAccount: pubkey.DeriveVaultAccount(assetMint),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	unlock := s.lockVault(state.VaultID)
	defer unlock()

	if err := s.vaults.Create(ctx, state); err != nil {
		return nil, fmt.Errorf("create vault: %w", err)
	}
	registry := &domain.ProtocolRegistry{
		VaultID:   state.VaultID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.registries.Create(ctx, registry); err != nil {
		// A vault without a registry is unusable and, because the vault id
		// is derived from the asset mint, would block every retry. Remove
		// the row so the initialization leaves no trace.
		if delErr := s.vaults.Delete(ctx, state.VaultID); delErr != nil {
			s.logger.Printf("vault %s: cleanup after registry create failure: %v", state.VaultID, delErr)
		}
		return nil, fmt.Errorf("create registry: %w", err)
	}

	s.publish(domain.Event{
		VaultID:   state.VaultID,
		Type:      domain.EventVaultInitialized,
		Actor:     authority,
		Timestamp: now,
	})
	return state, nil
}

// DepositResult reports the outcome of a committed deposit.
type DepositResult struct {
	SharesMinted uint64
	TotalAssets  uint64
	TotalShares  uint64
}

// Deposit converts amount of the underlying asset into newly issued shares.
//
// Checks and state commit happen before the asset transfer and share mint
// are issued, because those are irrevocable.
func (s *Service) Deposit(ctx context.Context, vaultID, depositor string, amount uint64) (*DepositResult, error) {
	defer s.observe("deposit", time.Now())

	if amount == 0 {
		return nil, s.reject("deposit", ErrInvalidAmount)
	}
	if err := pubkey.Validate(depositor); err != nil {
		return nil, s.reject("deposit", fmt.Errorf("depositor: %w: %v", ErrInvalidPubkey, err))
	}

	unlock := s.lockVault(vaultID)
	defer unlock()

	state, err := s.vaults.Get(ctx, vaultID)
	if err != nil {
		return nil, fmt.Errorf("load vault: %w", err)
	}

	shares, err := SharesForDeposit(state.TotalAssets, state.TotalShares, amount)
	if err != nil {
		return nil, s.reject("deposit", err)
	}
	newAssets, err := checkedAdd(state.TotalAssets, amount)
	if err != nil {
		return nil, s.reject("deposit", err)
	}
	newShares, err := checkedAdd(state.TotalShares, shares)
	if err != nil {
		return nil, s.reject("deposit", err)
	}

	// Commit both totals together before any external call.
	now := s.now()
	if err := s.vaults.UpdateTotals(ctx, vaultID, newAssets, newShares, now); err != nil {
		return nil, fmt.Errorf("commit totals: %w", err)
	}

	if s.metrics != nil {
		s.metrics.DepositsCommitted.Inc()
	}
	s.publish(domain.Event{
		VaultID:      vaultID,
		Type:         domain.EventDeposited,
		Actor:        depositor,
		Target:       depositor,
		Amount:       amount,
		SharesMinted: shares,
		TotalAssets:  newAssets,
		TotalShares:  newShares,
		Timestamp:    now,
	})

	result := &DepositResult{
		SharesMinted: shares,
		TotalAssets:  newAssets,
		TotalShares:  newShares,
	}

	// Interactions. State is already committed; failures here are not
	// rolled back.
	if err := s.transfers.Transfer(ctx, depositor, state.TokenAccount, amount); err != nil {
		s.divergence(vaultID, "deposit transfer", err)
		return result, fmt.Errorf("transfer after commit: %w", err)
	}
	if err := s.minter.MintTo(ctx, depositor, shares); err != nil {
		s.divergence(vaultID, "share mint", err)
		return result, fmt.Errorf("mint after commit: %w", err)
	}
	return result, nil
}

// ValueOfShares returns the asset value of shares at the vault's current
// ratio. Read-only.
func (s *Service) ValueOfShares(ctx context.Context, vaultID string, shares uint64) (uint64, error) {
	state, err := s.vaults.Get(ctx, vaultID)
	if err != nil {
		return 0, fmt.Errorf("load vault: %w", err)
	}
	return AssetsForShares(state.TotalAssets, state.TotalShares, shares)
}

// AddProtocol adds target to the vault's whitelist, enabled. Authority only.
func (s *Service) AddProtocol(ctx context.Context, vaultID, caller, target, name string) error {
	defer s.observe("add_protocol", time.Now())

	if err := pubkey.Validate(target); err != nil {
		return s.reject("add_protocol", fmt.Errorf("target: %w: %v", ErrInvalidPubkey, err))
	}

	unlock := s.lockVault(vaultID)
	defer unlock()

	state, err := s.vaults.Get(ctx, vaultID)
	if err != nil {
		return fmt.Errorf("load vault: %w", err)
	}
	if caller != state.Authority {
		return s.reject("add_protocol", ErrUnauthorized)
	}

	registry, err := s.registries.Get(ctx, vaultID)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	if err := AddProtocol(registry, target, name); err != nil {
		return s.reject("add_protocol", err)
	}

	now := s.now()
	registry.UpdatedAt = now
	if err := s.registries.Save(ctx, registry); err != nil {
		return fmt.Errorf("commit registry: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ProtocolsAdded.Inc()
	}
	s.publish(domain.Event{
		VaultID:      vaultID,
		Type:         domain.EventProtocolAdded,
		Actor:        caller,
		Target:       target,
		ProtocolName: name,
		Enabled:      true,
		Timestamp:    now,
	})
	return nil
}

// ToggleProtocol enables or disables a whitelisted target. Authority only;
// setting the current state again is accepted.
func (s *Service) ToggleProtocol(ctx context.Context, vaultID, caller, target string, enabled bool) error {
	defer s.observe("toggle_protocol", time.Now())

	unlock := s.lockVault(vaultID)
	defer unlock()

	state, err := s.vaults.Get(ctx, vaultID)
	if err != nil {
		return fmt.Errorf("load vault: %w", err)
	}
	if caller != state.Authority {
		return s.reject("toggle_protocol", ErrUnauthorized)
	}

	registry, err := s.registries.Get(ctx, vaultID)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	if err := SetProtocolEnabled(registry, target, enabled); err != nil {
		return s.reject("toggle_protocol", err)
	}

	now := s.now()
	registry.UpdatedAt = now
	if err := s.registries.Save(ctx, registry); err != nil {
		return fmt.Errorf("commit registry: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ProtocolsToggled.Inc()
	}
	s.publish(domain.Event{
		VaultID:   vaultID,
		Type:      domain.EventProtocolToggled,
		Actor:     caller,
		Target:    target,
		Enabled:   enabled,
		Timestamp: now,
	})
	return nil
}

// InvestResult reports the outcome of a committed investment.
type InvestResult struct {
	Target         string
	Amount         uint64
	InvestedAmount uint64 // cumulative total for the target after this investment
}

// Invest routes amount of on-hand vault assets to a whitelisted target.
// Authority only. The registry's per-target total is committed before the
// transfer is issued.
func (s *Service) Invest(ctx context.Context, vaultID, caller, target string, amount uint64) (*InvestResult, error) {
	defer s.observe("invest", time.Now())

	unlock := s.lockVault(vaultID)
	defer unlock()

	state, err := s.vaults.Get(ctx, vaultID)
	if err != nil {
		return nil, fmt.Errorf("load vault: %w", err)
	}
	if caller != state.Authority {
		return nil, s.reject("invest", ErrUnauthorized)
	}
	if amount == 0 {
		return nil, s.reject("invest", ErrInvalidAmount)
	}

	registry, err := s.registries.Get(ctx, vaultID)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	protocol, err := approvedProtocol(registry, target)
	if err != nil {
		return nil, s.reject("invest", err)
	}

	available, err := s.oracle.Balance(ctx, state.TokenAccount)
	if err != nil {
		return nil, fmt.Errorf("query vault balance: %w", err)
	}
	if amount > available {
		return nil, s.reject("invest", ErrInsufficientBalance)
	}
	if amount > state.TotalAssets {
		return nil, s.reject("invest", ErrInvestTooLarge)
	}

	if err := recordInvestment(protocol, amount); err != nil {
		return nil, s.reject("invest", err)
	}

	now := s.now()
	registry.UpdatedAt = now
	if err := s.registries.Save(ctx, registry); err != nil {
		return nil, fmt.Errorf("commit registry: %w", err)
	}

	if s.metrics != nil {
		s.metrics.InvestmentsCommitted.Inc()
	}
	s.publish(domain.Event{
		VaultID:      vaultID,
		Type:         domain.EventInvested,
		Actor:        caller,
		Target:       target,
		ProtocolName: protocol.Name,
		Amount:       amount,
		TotalAssets:  state.TotalAssets,
		TotalShares:  state.TotalShares,
		Timestamp:    now,
	})

	result := &InvestResult{
		Target:         target,
		Amount:         amount,
		InvestedAmount: protocol.InvestedAmount,
	}

	if err := s.transfers.Transfer(ctx, state.TokenAccount, target, amount); err != nil {
		s.divergence(vaultID, "invest transfer", err)
		return result, fmt.Errorf("transfer after commit: %w", err)
	}
	return result, nil
}

// Withdraw is not part of this version. It fails deterministically instead
// of approximating a redemption path.
func (s *Service) Withdraw(ctx context.Context, vaultID, caller string, shares uint64) error {
	return fmt.Errorf("withdraw: %w", ErrNotImplemented)
}

// Redeem is not part of this version.
func (s *Service) Redeem(ctx context.Context, vaultID, caller string, shares uint64) error {
	return fmt.Errorf("redeem: %w", ErrNotImplemented)
}

// GetVault returns the vault state.
func (s *Service) GetVault(ctx context.Context, vaultID string) (*domain.VaultState, error) {
	return s.vaults.Get(ctx, vaultID)
}

// ListVaults returns all vaults, oldest first.
func (s *Service) ListVaults(ctx context.Context) ([]*domain.VaultState, error) {
	return s.vaults.List(ctx)
}

// GetRegistry returns the vault's protocol registry.
func (s *Service) GetRegistry(ctx context.Context, vaultID string) (*domain.ProtocolRegistry, error) {
	return s.registries.Get(ctx, vaultID)
}

// reject counts a denied operation and returns err unchanged.
func (s *Service) reject(op string, err error) error {
	if s.metrics != nil {
		s.metrics.OperationsRejected.WithLabelValues(op, reason(err)).Inc()
	}
	return err
}

// divergence records a post-commit executor failure. The internal ledger is
// already updated and stays that way.
func (s *Service) divergence(vaultID, stage string, err error) {
	if s.metrics != nil {
		s.metrics.PostCommitFailures.Inc()
	}
	s.logger.Printf("vault %s: %s failed after state commit, ledger diverged: %v", vaultID, stage, err)
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// reason maps an operation error to a stable metric label.
func reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidPubkey):
		return "invalid_pubkey"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrProtocolNotWhitelisted):
		return "not_whitelisted"
	case errors.Is(err, ErrProtocolDisabled):
		return "protocol_disabled"
	case errors.Is(err, ErrProtocolAlreadyApproved):
		return "already_approved"
	case errors.Is(err, ErrProtocolNotFound):
		return "protocol_not_found"
	case errors.Is(err, ErrRegistryFull):
		return "registry_full"
	case errors.Is(err, ErrNameTooLong):
		return "name_too_long"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInvestTooLarge):
		return "invest_too_large"
	case errors.Is(err, ErrMathOverflow):
		return "math_overflow"
	case errors.Is(err, ErrDivisionByZero):
		return "division_by_zero"
	default:
		return "other"
	}
}
