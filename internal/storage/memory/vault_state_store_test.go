package memory

import (
	"context"
	"errors"
	"testing"

	"tokenized-vault/internal/domain"
	"tokenized-vault/internal/storage"
)

func testVault(id string, createdAt int64) *domain.VaultState {
	return &domain.VaultState{
		VaultID:      id,
		Authority:    "Authority111",
		AssetMint:    "Mint111",
		ShareMint:    "ShareMint111",
		TokenAccount: "TokenAccount111",
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestVaultStateStore_CreateAndGet(t *testing.T) {
	store := NewVaultStateStore()
	ctx := context.Background()

	v := testVault("vault-1", 1700000000000)
	v.TotalAssets = 1500
	v.TotalShares = 1000

	if err := store.Create(ctx, v); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "vault-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.TotalAssets != 1500 || got.TotalShares != 1000 {
		t.Errorf("Expected totals 1500/1000, got %d/%d", got.TotalAssets, got.TotalShares)
	}
	if got.Authority != v.Authority {
		t.Errorf("Expected authority %s, got %s", v.Authority, got.Authority)
	}
}

func TestVaultStateStore_CreateDuplicate(t *testing.T) {
	store := NewVaultStateStore()
	ctx := context.Background()

	if err := store.Create(ctx, testVault("vault-1", 1700000000000)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err := store.Create(ctx, testVault("vault-1", 1700000001000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestVaultStateStore_GetNotFound(t *testing.T) {
	store := NewVaultStateStore()

	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestVaultStateStore_UpdateTotals(t *testing.T) {
	store := NewVaultStateStore()
	ctx := context.Background()

	if err := store.Create(ctx, testVault("vault-1", 1700000000000)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.UpdateTotals(ctx, "vault-1", 1600, 1066, 1700000002000); err != nil {
		t.Fatalf("UpdateTotals failed: %v", err)
	}

	got, err := store.Get(ctx, "vault-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.TotalAssets != 1600 || got.TotalShares != 1066 {
		t.Errorf("Expected totals 1600/1066, got %d/%d", got.TotalAssets, got.TotalShares)
	}
	if got.UpdatedAt != 1700000002000 {
		t.Errorf("Expected UpdatedAt 1700000002000, got %d", got.UpdatedAt)
	}

	err = store.UpdateTotals(ctx, "nope", 1, 1, 1700000002000)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestVaultStateStore_GetReturnsCopy(t *testing.T) {
	store := NewVaultStateStore()
	ctx := context.Background()

	if err := store.Create(ctx, testVault("vault-1", 1700000000000)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, _ := store.Get(ctx, "vault-1")
	got.TotalAssets = 999999

	again, _ := store.Get(ctx, "vault-1")
	if again.TotalAssets != 0 {
		t.Error("Mutating a returned vault leaked into the store")
	}
}

func TestVaultStateStore_ListOrdered(t *testing.T) {
	store := NewVaultStateStore()
	ctx := context.Background()

	store.Create(ctx, testVault("vault-b", 1700000002000))
	store.Create(ctx, testVault("vault-a", 1700000001000))
	store.Create(ctx, testVault("vault-c", 1700000003000))

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("Expected 3 vaults, got %d", len(list))
	}
	for i, want := range []string{"vault-a", "vault-b", "vault-c"} {
		if list[i].VaultID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, list[i].VaultID)
		}
	}
}

func TestVaultStateStore_Delete(t *testing.T) {
	store := NewVaultStateStore()
	ctx := context.Background()

	if err := store.Create(ctx, testVault("vault-1", 1700000000000)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Delete(ctx, "vault-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Get(ctx, "vault-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "vault-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}

	// The id is reusable after deletion
	if err := store.Create(ctx, testVault("vault-1", 1700000001000)); err != nil {
		t.Errorf("Re-create after delete failed: %v", err)
	}
}
