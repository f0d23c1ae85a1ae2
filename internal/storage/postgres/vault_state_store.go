package postgres

import (
	"context"
	"fmt"

	"tokenized-vault/internal/domain"
	"tokenized-vault/internal/storage"
)

// VaultStateStore implements storage.VaultStateStore using PostgreSQL.
type VaultStateStore struct {
	pool *Pool
}

// NewVaultStateStore creates a new VaultStateStore.
func NewVaultStateStore(pool *Pool) *VaultStateStore {
	return &VaultStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.VaultStateStore = (*VaultStateStore)(nil)

// Create adds a new vault. Returns ErrDuplicateKey if vault_id exists.
func (s *VaultStateStore) Create(ctx context.Context, v *domain.VaultState) error {
	totalAssets, err := i64(v.TotalAssets)
	if err != nil {
		return err
	}
	totalShares, err := i64(v.TotalShares)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO vault_states (
			vault_id, authority, asset_mint, share_mint, token_account,
			total_assets, total_shares, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		v.VaultID,
		v.Authority,
		v.AssetMint,
		v.ShareMint,
		v.TokenAccount,
		totalAssets,
		totalShares,
		v.CreatedAt,
		v.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert vault state: %w", err)
	}
	return nil
}

// Get retrieves a vault by its ID. Returns ErrNotFound if not exists.
func (s *VaultStateStore) Get(ctx context.Context, vaultID string) (*domain.VaultState, error) {
	query := `
		SELECT vault_id, authority, asset_mint, share_mint, token_account,
		       total_assets, total_shares, created_at, updated_at
		FROM vault_states
		WHERE vault_id = $1
	`

	var v domain.VaultState
	var totalAssets, totalShares int64

	err := s.pool.QueryRow(ctx, query, vaultID).Scan(
		&v.VaultID,
		&v.Authority,
		&v.AssetMint,
		&v.ShareMint,
		&v.TokenAccount,
		&totalAssets,
		&totalShares,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get vault state: %w", err)
	}

	v.TotalAssets = uint64(totalAssets)
	v.TotalShares = uint64(totalShares)
	return &v, nil
}

// UpdateTotals replaces the vault's accounting totals together.
func (s *VaultStateStore) UpdateTotals(ctx context.Context, vaultID string, totalAssets, totalShares uint64, updatedAt int64) error {
	assets, err := i64(totalAssets)
	if err != nil {
		return err
	}
	shares, err := i64(totalShares)
	if err != nil {
		return err
	}

	query := `
		UPDATE vault_states
		SET total_assets = $2, total_shares = $3, updated_at = $4
		WHERE vault_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, vaultID, assets, shares, updatedAt)
	if err != nil {
		return fmt.Errorf("update vault totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a vault. Returns ErrNotFound if it does not exist.
func (s *VaultStateStore) Delete(ctx context.Context, vaultID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM vault_states WHERE vault_id = $1`, vaultID)
	if err != nil {
		return fmt.Errorf("delete vault state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List retrieves all vaults, ordered by created_at ASC.
func (s *VaultStateStore) List(ctx context.Context) ([]*domain.VaultState, error) {
	query := `
		SELECT vault_id, authority, asset_mint, share_mint, token_account,
		       total_assets, total_shares, created_at, updated_at
		FROM vault_states
		ORDER BY created_at ASC, vault_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vault states: %w", err)
	}
	defer rows.Close()

	var vaults []*domain.VaultState
	for rows.Next() {
		var v domain.VaultState
		var totalAssets, totalShares int64

		err := rows.Scan(
			&v.VaultID,
			&v.Authority,
			&v.AssetMint,
			&v.ShareMint,
			&v.TokenAccount,
			&totalAssets,
			&totalShares,
			&v.CreatedAt,
			&v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan vault state row: %w", err)
		}

		v.TotalAssets = uint64(totalAssets)
		v.TotalShares = uint64(totalShares)
		vaults = append(vaults, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vault state rows: %w", err)
	}

	return vaults, nil
}
