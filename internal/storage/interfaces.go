package storage

import (
	"context"

	"tokenized-vault/internal/domain"
)

// VaultStateStore provides access to vault_states storage.
type VaultStateStore interface {
	// Create adds a new vault. Returns ErrDuplicateKey if vault_id exists.
	Create(ctx context.Context, v *domain.VaultState) error

	// Get retrieves a vault by its ID. Returns ErrNotFound if not exists.
	Get(ctx context.Context, vaultID string) (*domain.VaultState, error)

	// UpdateTotals replaces the vault's accounting totals. Both fields are
	// written together. Returns ErrNotFound if the vault does not exist.
	UpdateTotals(ctx context.Context, vaultID string, totalAssets, totalShares uint64, updatedAt int64) error

	// Delete removes a vault. Returns ErrNotFound if it does not exist.
	// Used to roll back a partially initialized vault; a vault with a
	// registry attached is never deleted.
	Delete(ctx context.Context, vaultID string) error

	// List retrieves all vaults, ordered by created_at ASC.
	List(ctx context.Context) ([]*domain.VaultState, error)
}

// RegistryStore provides access to protocol registry storage.
type RegistryStore interface {
	// Create adds an empty registry for a vault. Returns ErrDuplicateKey
	// if a registry for vault_id exists.
	Create(ctx context.Context, r *domain.ProtocolRegistry) error

	// Get retrieves the registry for a vault. Returns ErrNotFound if not exists.
	Get(ctx context.Context, vaultID string) (*domain.ProtocolRegistry, error)

	// Save replaces the registry's protocol list. Returns ErrNotFound if
	// the registry does not exist and ErrCapacityExceeded if the list is
	// over domain.MaxProtocols.
	Save(ctx context.Context, r *domain.ProtocolRegistry) error
}

// EventStore provides access to the append-only vault event audit log.
type EventStore interface {
	// Append records a committed vault event.
	Append(ctx context.Context, e *domain.Event) error

	// ListByVault retrieves events for a vault, ordered by timestamp ASC.
	// A limit of 0 means no limit.
	ListByVault(ctx context.Context, vaultID string, limit int) ([]*domain.Event, error)
}
