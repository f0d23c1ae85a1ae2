// Package pubkey validates Solana-style base58 account identifiers and
// derives the deterministic ids the vault service keys its records by.
package pubkey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Seeds for derived vault accounts.
const (
	seedVault          = "vault"
	seedShareMint      = "shares"
	seedVaultAuthority = "vault_authority"
)

// Decode parses a base58 account identifier into its 32 raw bytes.
func Decode(s string) ([32]byte, error) {
	var key [32]byte
	raw, err := base58.Decode(s)
	if err != nil {
		return key, fmt.Errorf("decode base58 pubkey: %w", err)
	}
	if len(raw) != 32 {
		return key, fmt.Errorf("pubkey must be 32 bytes, got %d", len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// Validate reports whether s is a well-formed 32-byte base58 identifier.
func Validate(s string) error {
	_, err := Decode(s)
	return err
}

// IsOnCurve reports whether the key is a valid ed25519 curve point, i.e.
// could belong to a signing keypair. Derived vault accounts are generally
// off-curve.
func IsOnCurve(s string) bool {
	key, err := Decode(s)
	if err != nil {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(key[:])
	return err == nil
}

// VaultID computes the deterministic vault id for an asset mint.
// Formula: SHA256("vault"|asset_mint), hex-encoded (64 characters).
func VaultID(assetMint string) string {
	return hex.EncodeToString(deriveBytes(seedVault, assetMint))
}

// DeriveShareMint returns the derived share mint address for an asset mint.
func DeriveShareMint(assetMint string) string {
	return base58.Encode(deriveBytes(seedShareMint, assetMint))
}

// DeriveVaultAccount returns the derived address of the account holding the
// vault's on-hand assets.
func DeriveVaultAccount(assetMint string) string {
	return base58.Encode(deriveBytes(seedVaultAuthority, assetMint))
}

func deriveBytes(seed, assetMint string) []byte {
	hash := sha256.Sum256([]byte(seed + "|" + assetMint))
	return hash[:]
}
