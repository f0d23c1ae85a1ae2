package domain

// VaultState holds the accounting totals for one vault.
// Corresponds to vault_states table in PostgreSQL.
type VaultState struct {
	VaultID      string // PRIMARY KEY, deterministic hash of the asset mint
	Authority    string // base58 pubkey allowed to invest and manage protocols
	AssetMint    string // base58 mint of the underlying asset token
	ShareMint    string // base58 mint of the vault share token
	TokenAccount string // base58 account holding the vault's on-hand assets
	TotalAssets  uint64 // assets under vault control, including invested
	TotalShares  uint64 // shares issued to depositors
	CreatedAt    int64  // record creation timestamp (ms)
	UpdatedAt    int64  // last totals update timestamp (ms)
}

// ApprovedProtocol is a single whitelist entry in a protocol registry.
type ApprovedProtocol struct {
	Target         string // base58 account approved to receive vault assets
	Enabled        bool   // investments permitted only when true
	InvestedAmount uint64 // cumulative amount routed to this target
	Name           string // human-readable label, informational only
}

// ProtocolRegistry is the whitelist of investment destinations for one vault.
// Corresponds to protocol_registries + approved_protocols tables in PostgreSQL.
type ProtocolRegistry struct {
	VaultID   string             // vault this registry belongs to
	Protocols []ApprovedProtocol // insertion order preserved, targets unique
	CreatedAt int64              // record creation timestamp (ms)
	UpdatedAt int64              // last registry update timestamp (ms)
}

// Registry and label limits, carried over from the on-chain account sizing.
const (
	// MaxProtocols bounds the registry; persistence layers must reject
	// growth beyond it rather than truncate.
	MaxProtocols = 10

	// MaxProtocolNameLen bounds the informational protocol label.
	MaxProtocolNameLen = 32
)

// FindProtocol returns the registry entry for target, or nil if absent.
func (r *ProtocolRegistry) FindProtocol(target string) *ApprovedProtocol {
	for i := range r.Protocols {
		if r.Protocols[i].Target == target {
			return &r.Protocols[i]
		}
	}
	return nil
}

// IsApproved reports whether target is present and enabled.
func (r *ProtocolRegistry) IsApproved(target string) bool {
	p := r.FindProtocol(target)
	return p != nil && p.Enabled
}
