package postgres

import (
	"context"
	"fmt"

	"tokenized-vault/internal/domain"
	"tokenized-vault/internal/storage"
)

// RegistryStore implements storage.RegistryStore using PostgreSQL.
//
// A registry is one row in protocol_registries plus position-ordered rows
// in approved_protocols. Save replaces the protocol rows in a single
// transaction, so readers never observe a partially written list.
type RegistryStore struct {
	pool *Pool
}

// NewRegistryStore creates a new RegistryStore.
func NewRegistryStore(pool *Pool) *RegistryStore {
	return &RegistryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RegistryStore = (*RegistryStore)(nil)

// Create adds an empty registry for a vault. Returns ErrDuplicateKey if exists.
func (s *RegistryStore) Create(ctx context.Context, r *domain.ProtocolRegistry) error {
	if len(r.Protocols) > domain.MaxProtocols {
		return storage.ErrCapacityExceeded
	}

	query := `
		INSERT INTO protocol_registries (vault_id, created_at, updated_at)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, r.VaultID, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert registry: %w", err)
	}

	if len(r.Protocols) > 0 {
		return s.Save(ctx, r)
	}
	return nil
}

// Get retrieves the registry for a vault. Returns ErrNotFound if not exists.
func (s *RegistryStore) Get(ctx context.Context, vaultID string) (*domain.ProtocolRegistry, error) {
	var r domain.ProtocolRegistry

	query := `
		SELECT vault_id, created_at, updated_at
		FROM protocol_registries
		WHERE vault_id = $1
	`
	err := s.pool.QueryRow(ctx, query, vaultID).Scan(&r.VaultID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get registry: %w", err)
	}

	protoQuery := `
		SELECT target, enabled, invested_amount, name
		FROM approved_protocols
		WHERE vault_id = $1
		ORDER BY position ASC
	`
	rows, err := s.pool.Query(ctx, protoQuery, vaultID)
	if err != nil {
		return nil, fmt.Errorf("get approved protocols: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.ApprovedProtocol
		var invested int64
		if err := rows.Scan(&p.Target, &p.Enabled, &invested, &p.Name); err != nil {
			return nil, fmt.Errorf("scan approved protocol row: %w", err)
		}
		p.InvestedAmount = uint64(invested)
		r.Protocols = append(r.Protocols, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approved protocol rows: %w", err)
	}

	return &r, nil
}

// Save replaces the registry's protocol list. Rejects lists over capacity.
func (s *RegistryStore) Save(ctx context.Context, r *domain.ProtocolRegistry) error {
	if len(r.Protocols) > domain.MaxProtocols {
		return storage.ErrCapacityExceeded
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin registry save: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE protocol_registries SET updated_at = $2 WHERE vault_id = $1`,
		r.VaultID, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update registry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM approved_protocols WHERE vault_id = $1`, r.VaultID,
	); err != nil {
		return fmt.Errorf("clear approved protocols: %w", err)
	}

	for i, p := range r.Protocols {
		invested, err := i64(p.InvestedAmount)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO approved_protocols (vault_id, position, target, enabled, invested_amount, name)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			r.VaultID, i, p.Target, p.Enabled, invested, p.Name,
		); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert approved protocol: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit registry save: %w", err)
	}
	return nil
}
