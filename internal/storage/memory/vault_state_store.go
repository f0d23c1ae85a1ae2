package memory

import (
	"context"
	"sort"
	"sync"

	"tokenized-vault/internal/domain"
	"tokenized-vault/internal/storage"
)

// VaultStateStore is an in-memory implementation of storage.VaultStateStore.
type VaultStateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.VaultState // keyed by vault_id
}

// NewVaultStateStore creates a new in-memory vault state store.
func NewVaultStateStore() *VaultStateStore {
	return &VaultStateStore{
		data: make(map[string]*domain.VaultState),
	}
}

// Compile-time interface check.
var _ storage.VaultStateStore = (*VaultStateStore)(nil)

// Create adds a new vault. Returns ErrDuplicateKey if vault_id exists.
func (s *VaultStateStore) Create(_ context.Context, v *domain.VaultState) error {
	if v == nil || v.VaultID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[v.VaultID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	stateCopy := *v
	s.data[v.VaultID] = &stateCopy
	return nil
}

// Get retrieves a vault by its ID. Returns ErrNotFound if not exists.
func (s *VaultStateStore) Get(_ context.Context, vaultID string) (*domain.VaultState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[vaultID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	stateCopy := *v
	return &stateCopy, nil
}

// UpdateTotals replaces the vault's accounting totals together.
func (s *VaultStateStore) UpdateTotals(_ context.Context, vaultID string, totalAssets, totalShares uint64, updatedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.data[vaultID]
	if !exists {
		return storage.ErrNotFound
	}

	v.TotalAssets = totalAssets
	v.TotalShares = totalShares
	v.UpdatedAt = updatedAt
	return nil
}

// Delete removes a vault. Returns ErrNotFound if it does not exist.
func (s *VaultStateStore) Delete(_ context.Context, vaultID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[vaultID]; !exists {
		return storage.ErrNotFound
	}

	delete(s.data, vaultID)
	return nil
}

// List retrieves all vaults, ordered by created_at ASC.
func (s *VaultStateStore) List(_ context.Context) ([]*domain.VaultState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VaultState
	for _, v := range s.data {
		stateCopy := *v
		result = append(result, &stateCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].VaultID < result[j].VaultID
	})

	return result, nil
}
