package memory

import (
	"context"
	"sync"

	"tokenized-vault/internal/domain"
	"tokenized-vault/internal/storage"
)

// RegistryStore is an in-memory implementation of storage.RegistryStore.
type RegistryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ProtocolRegistry // keyed by vault_id
}

// NewRegistryStore creates a new in-memory registry store.
func NewRegistryStore() *RegistryStore {
	return &RegistryStore{
		data: make(map[string]*domain.ProtocolRegistry),
	}
}

// Compile-time interface check.
var _ storage.RegistryStore = (*RegistryStore)(nil)

// Create adds an empty registry for a vault. Returns ErrDuplicateKey if exists.
func (s *RegistryStore) Create(_ context.Context, r *domain.ProtocolRegistry) error {
	if r == nil || r.VaultID == "" {
		return storage.ErrInvalidInput
	}
	if len(r.Protocols) > domain.MaxProtocols {
		return storage.ErrCapacityExceeded
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.VaultID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.VaultID] = copyRegistry(r)
	return nil
}

// Get retrieves the registry for a vault. Returns ErrNotFound if not exists.
func (s *RegistryStore) Get(_ context.Context, vaultID string) (*domain.ProtocolRegistry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[vaultID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyRegistry(r), nil
}

// Save replaces the registry's protocol list. Rejects lists over capacity.
func (s *RegistryStore) Save(_ context.Context, r *domain.ProtocolRegistry) error {
	if r == nil || r.VaultID == "" {
		return storage.ErrInvalidInput
	}
	if len(r.Protocols) > domain.MaxProtocols {
		return storage.ErrCapacityExceeded
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.VaultID]; !exists {
		return storage.ErrNotFound
	}

	s.data[r.VaultID] = copyRegistry(r)
	return nil
}

// copyRegistry deep-copies a registry, including its protocol slice.
func copyRegistry(r *domain.ProtocolRegistry) *domain.ProtocolRegistry {
	registryCopy := *r
	registryCopy.Protocols = make([]domain.ApprovedProtocol, len(r.Protocols))
	copy(registryCopy.Protocols, r.Protocols)
	return &registryCopy
}
